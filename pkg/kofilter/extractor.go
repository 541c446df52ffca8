// Package kofilter decides which index terms a token produces: the surface,
// stems, compound parts, bigrams for unknown spans and Hangul readings of
// Hanja, each with a rune offset and a position increment.
package kofilter

import (
	"unicode/utf8"

	"github.com/japaniel/kofilter/pkg/dictionary"
	"github.com/japaniel/kofilter/pkg/morph"
	"github.com/japaniel/kofilter/pkg/tokenizer"
)

// Extractor turns tokens into index terms. It holds read-only handles and is
// safe for concurrent use.
type Extractor struct {
	dict    dictionary.Dictionary
	an      morph.Analyzer
	endings morph.EndingSplitter // nil unless the analyzer implements it
	cfg     Config
}

// New creates an extractor. cfg is normalized first.
func New(dict dictionary.Dictionary, an morph.Analyzer, cfg Config) (*Extractor, error) {
	if dict == nil || an == nil {
		return nil, ErrNilDependency
	}
	e := &Extractor{dict: dict, an: an, cfg: cfg.Normalize()}
	e.endings, _ = an.(morph.EndingSplitter)
	return e, nil
}

// Config returns the normalized configuration.
func (e *Extractor) Config() Config { return e.cfg }

// WithConfig returns an extractor sharing e's dictionary and analyzer.
func (e *Extractor) WithConfig(cfg Config) *Extractor {
	c := *e
	c.cfg = cfg.Normalize()
	return &c
}

// Extract returns the terms of one token in emission order.
func (e *Extractor) Extract(tok tokenizer.Token) ([]IndexTerm, error) {
	switch tok.Script {
	case tokenizer.Ideograph:
		return e.Hanja(tok.Text, tok.Start), nil
	case tokenizer.Other:
		return otherTerms(tok), nil
	}

	cands, err := e.an.Analyze(tok.Text)
	if err != nil {
		return nil, &AnalysisError{Text: tok.Text, Err: err}
	}
	if len(cands) == 0 {
		return nil, nil
	}

	m := e.start(tok.Text, tok.Start)
	if e.cfg.WordSpacing && e.weak(cands) {
		seg, err := e.segment(tok.Text, cands)
		if err != nil {
			e.keywords(m, tok.Start, cands[:1], false)
			return m.terms, nil
		}
		if seg.usable() {
			e.spaced(m, tok.Start, seg)
			return m.terms, nil
		}
	}
	e.keywords(m, tok.Start, cands, false)
	return m.terms, nil
}

// Keywords applies the extraction policy to already analyzed candidates of
// surface, which starts at rune offset start.
func (e *Extractor) Keywords(surface string, start int, cands []morph.Candidate) []IndexTerm {
	if len(cands) == 0 {
		return nil
	}
	m := e.start(surface, start)
	e.keywords(m, start, cands, false)
	return m.terms
}

func (e *Extractor) start(surface string, start int) *emissionMap {
	m := newEmissionMap()
	if e.cfg.HasOrigin {
		m.add(IndexTerm{Text: surface, Start: start, Increment: 1})
	}
	return m
}

// weak reports whether the best parse is poor enough to try word spacing.
func (e *Extractor) weak(cands []morph.Candidate) bool {
	best := cands[0].Tier
	for _, c := range cands[1:] {
		best = max(best, c.Tier)
	}
	if e.cfg.QueryMode {
		return best < morph.TierCorrect
	}
	return best < morph.TierCompounds
}

// decompoundable reports whether the fragments of c may be emitted.
func (e *Extractor) decompoundable(c morph.Candidate) bool {
	if c.POS == morph.POSVerb {
		return false
	}
	if !e.cfg.ExactMatch {
		return true
	}
	for _, f := range c.Fragments {
		if !f.Exists {
			return false
		}
	}
	return true
}

// keywords emits stems, compound parts and bigrams of cands at start.
// spaceAdded is set for every segment after the first of a spaced token.
func (e *Extractor) keywords(m *emissionMap, start int, cands []morph.Candidate, spaceAdded bool) {
	firstOnly := e.cfg.QueryMode && !spaceAdded

	maxFrags := 0
	for _, c := range cands {
		if c.POS == morph.POSVerb {
			continue
		}
		if e.decompoundable(c) {
			maxFrags = max(maxFrags, len(c.Fragments))
		}
		if !e.cfg.HasCompoundNoun && len(c.Fragments) > 0 {
			continue
		}
		inc := 1
		if !spaceAdded && m.len() > 0 {
			inc = 0
		}
		m.add(IndexTerm{Text: c.Stem, Start: start, Increment: inc})
		if firstOnly {
			break
		}
	}

	if !e.cfg.DoDecompound || maxFrags < 2 {
		for _, c := range cands {
			if c.POS == morph.POSVerb {
				continue
			}
			if e.cfg.Bigrammable && c.Tier < morph.TierCompounds {
				e.addBigrams(m, c.Stem, start)
			}
			if firstOnly {
				break
			}
		}
		return
	}

	suppress := !e.cfg.HasOrigin && !e.cfg.HasCompoundNoun && e.cfg.QueryMode
	for i := 0; i < maxFrags; i++ {
		for _, c := range cands {
			frags := c.Fragments
			if len(frags) <= i || !e.decompoundable(c) {
				continue
			}
			if suppress && e.suppressForQuery(frags, i) {
				continue
			}

			offset := start + fragmentOffset(frags, i)
			inc := 1
			if i == 0 && m.len() > 0 {
				inc = 0
			}
			t := e.normalize(frags, i, offset, inc)
			// 공사+가+계약: 계약 shares the position of 가계약
			if i > 0 && runeLen(frags[i-1].Text) == 1 && e.dict.CompoundNoun(frags[i-1].Text+frags[i].Text) != nil {
				t.Increment = 0
			}
			m.add(t)

			if e.cfg.Bigrammable && !frags[i].Exists {
				e.addBigrams(m, frags[i].Text, offset)
			}
			if firstOnly {
				break
			}
		}
	}
}

// spaced emits the terms of a token split into several words.
func (e *Extractor) spaced(m *emissionMap, start int, seg Segmentation) {
	offset := 0
	for i, s := range seg.Segments {
		inc := 1
		if i == 0 && m.len() > 0 {
			inc = 0
		}
		if e.cfg.HasOrigin {
			m.add(IndexTerm{Text: s.Snippet, Start: start + offset, Increment: inc})
		}
		parses := s.Parses
		if len(parses) == 0 {
			parses = []morph.Candidate{{Stem: s.Snippet, POS: morph.POSNoun, Tier: s.Score}}
		}
		e.keywords(m, start+offset, parses[:1], i != 0)
		offset += runeLen(s.Snippet)
	}
}

func fragmentOffset(frags []morph.CompoundFragment, i int) int {
	n := 0
	for _, f := range frags[:i] {
		n += runeLen(f.Text)
	}
	return n
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
