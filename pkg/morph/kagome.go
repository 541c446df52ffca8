package morph

import (
	"fmt"
	"strings"

	ko "github.com/ikawaha/kagome-dict-ko"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/japaniel/kofilter/pkg/dictionary"
)

// mecab-ko-dic feature columns
const (
	featPOS        = 0
	featType       = 4
	featExpression = 7
)

// morpheme is one kagome token reduced to what candidate building needs.
type morpheme struct {
	Surface string
	Tags    []string // "VV+EP+EF" becomes [VV EP EF]
	Known   bool
	Base    string   // first expression surface of inflected tokens
	Parts   []string // unit nouns of a dictionary compound
}

func (m morpheme) first() string { return m.Tags[0] }
func (m morpheme) last() string  { return m.Tags[len(m.Tags)-1] }

// KagomeAnalyzer analyzes Korean words with kagome and the mecab-ko-dic
// system dictionary, then checks the result against the lexicon.
type KagomeAnalyzer struct {
	t        *tokenizer.Tokenizer
	dict     dictionary.Dictionary
	splitter *CompoundSplitter
}

// NewKagomeAnalyzer loads the Korean system dictionary. It is slow; share the result.
func NewKagomeAnalyzer(d dictionary.Dictionary) (*KagomeAnalyzer, error) {
	if d == nil {
		return nil, fmt.Errorf("morph: dictionary is required")
	}
	t, err := tokenizer.New(ko.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	s, err := NewCompoundSplitter(d, 4096)
	if err != nil {
		return nil, err
	}
	return &KagomeAnalyzer{t: t, dict: d, splitter: s}, nil
}

func (a *KagomeAnalyzer) morphemes(text string, mode tokenizer.TokenizeMode) []morpheme {
	var out []morpheme
	for _, tok := range a.t.Analyze(text, mode) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		out = append(out, toMorpheme(tok.Surface, tok.Class != tokenizer.UNKNOWN, tok.Features()))
	}
	return out
}

func toMorpheme(surface string, known bool, features []string) morpheme {
	m := morpheme{Surface: surface, Known: known, Base: surface, Tags: []string{"UNKNOWN"}}
	if len(features) > featPOS && features[featPOS] != "" && features[featPOS] != "*" {
		m.Tags = strings.Split(features[featPOS], "+")
	}
	if len(features) <= featExpression || features[featExpression] == "*" {
		return m
	}
	var exprs []string
	for _, e := range strings.Split(features[featExpression], "+") {
		if s, _, ok := strings.Cut(e, "/"); ok && s != "" {
			exprs = append(exprs, s)
		}
	}
	switch features[featType] {
	case "Inflect":
		if len(exprs) > 0 {
			m.Base = exprs[0]
		}
	case "Compound":
		if strings.Join(exprs, "") == surface && len(exprs) > 1 {
			m.Parts = exprs
		}
	}
	return m
}

func isNominal(m morpheme) bool {
	tag := m.first()
	switch tag {
	case "SL", "SH", "SN", "XPN", "XSN", "XR", "NR", "NP":
		return true
	case "UNKNOWN":
		return !m.Known
	}
	return strings.HasPrefix(tag, "NN")
}

func isPredicate(tag string) bool {
	switch tag {
	case "VV", "VA", "VX", "VCP", "VCN", "XSV", "XSA":
		return true
	}
	return false
}

// buildCandidate turns one morpheme sequence into a candidate.
// Leading nominal morphemes form the stem, particles follow it, and
// everything after the first non-particle is the ending.
// Words written without spaces ("공사가계약을") have nominals after the
// particles. Their stem runs through the last nominal and is graded
// TierFail, leaving the split to the lexicon and the fallbacks.
func buildCandidate(ms []morpheme) Candidate {
	var c Candidate
	if len(ms) == 0 {
		return c
	}

	i := 0
	for i < len(ms) && isNominal(ms[i]) {
		i++
	}
	glued := false
	if i > 0 {
		for j := len(ms) - 1; j > i; j-- {
			if isNominal(ms[j]) {
				i, glued = j+1, true
				break
			}
		}
	}
	stem, rest := ms[:i], ms[i:]

	if len(stem) == 0 {
		if isPredicate(ms[0].first()) {
			c.POS = POSVerb
			c.Stem = ms[0].Base
			c.Ending = strings.TrimPrefix(joinSurfaces(ms), c.Stem)
			c.Tier = TierAnalysis
			if ms[0].Known {
				c.Tier = TierCorrect
			}
			return c
		}
		c.POS = POSOther
		c.Stem = joinSurfaces(ms)
		c.Tier = TierFail
		if allKnown(ms) {
			c.Tier = TierAnalysis
		}
		return c
	}

	c.POS = POSNoun
	c.Stem = joinSurfaces(stem)

	var particle, ending strings.Builder
	for _, m := range rest {
		if ending.Len() == 0 && strings.HasPrefix(m.first(), "J") {
			particle.WriteString(m.Surface)
			continue
		}
		ending.WriteString(m.Surface)
	}
	c.Particle, c.Ending = particle.String(), ending.String()

	if glued {
		c.Tier = TierFail
		return c
	}
	switch {
	case !allKnown(stem):
		c.Tier = TierFail
	case len(stem) == 1:
		c.Tier = TierCorrect
	default:
		c.Tier = TierAnalysis
	}
	c.Fragments = stemFragments(stem)
	return c
}

// stemFragments splits the stem into unit nouns. Runs of unknown morphemes
// collapse into one fragment; nil means the stem is a single unit.
func stemFragments(stem []morpheme) []CompoundFragment {
	var out []CompoundFragment
	for _, m := range stem {
		if len(m.Parts) > 1 {
			for _, p := range m.Parts {
				out = append(out, CompoundFragment{Text: p, Exists: true})
			}
			continue
		}
		if n := len(out); n > 0 && !m.Known && !out[n-1].Exists {
			out[n-1].Text += m.Surface
			continue
		}
		out = append(out, CompoundFragment{Text: m.Surface, Exists: m.Known})
	}
	if len(out) < 2 {
		return nil
	}
	return out
}

func joinSurfaces(ms []morpheme) string {
	var b strings.Builder
	for _, m := range ms {
		b.WriteString(m.Surface)
	}
	return b.String()
}

func allKnown(ms []morpheme) bool {
	for _, m := range ms {
		if !m.Known {
			return false
		}
	}
	return true
}

// Analyze returns the normal-mode and search-mode parses of text, checked
// against the lexicon and ranked best first. Identical parses are merged.
func (a *KagomeAnalyzer) Analyze(text string) ([]Candidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var cands []Candidate
	for _, mode := range []tokenizer.TokenizeMode{tokenizer.Normal, tokenizer.Search} {
		c := buildCandidate(a.morphemes(text, mode))
		if c.Stem == "" {
			continue
		}
		a.refine(&c)
		dup := false
		for _, prev := range cands {
			if prev.sameParse(c) {
				dup = true
				break
			}
		}
		if !dup {
			cands = append(cands, c)
		}
	}
	SortByTier(cands)
	return cands, nil
}

// refine applies lexicon knowledge to a kagome parse.
func (a *KagomeAnalyzer) refine(c *Candidate) {
	if c.POS != POSNoun {
		if e := a.dict.Word(c.Stem); e != nil && e.Verb && c.POS == POSVerb {
			c.Tier = TierCorrect
		}
		return
	}
	if e := a.dict.CompoundNoun(c.Stem); e != nil {
		c.Fragments = nil
		a.ConfirmCompoundNoun(c)
		c.Tier = TierCorrect
		return
	}
	if e := dictionary.Noun(a.dict, c.Stem); e != nil {
		// the lexicon knows the whole stem as a simple noun
		c.Tier = TierCorrect
		c.Fragments = nil
		return
	}
	if len(c.Fragments) == 0 {
		a.ConfirmCompoundNoun(c)
	}
}

func (a *KagomeAnalyzer) ConfirmCompoundNoun(c *Candidate) {
	if c == nil || c.Stem == "" || len(c.Fragments) > 0 {
		return
	}
	frags := a.splitter.Split(c.Stem)
	if len(frags) < 2 {
		return
	}
	c.Fragments = frags
	if c.Tier >= TierCompounds {
		return
	}
	for _, f := range frags {
		if !f.Exists {
			return
		}
	}
	c.Tier = TierCompounds
}

// SplitEnding reports whether stem followed by ending reads as a predicate
// and a verbal ending. With an empty ending the whole stem is checked.
func (a *KagomeAnalyzer) SplitEnding(stem, ending string) bool {
	if stem == "" {
		return false
	}
	if ending == "" {
		ms := a.morphemes(stem, tokenizer.Normal)
		if len(ms) == 0 {
			return false
		}
		return isPredicate(ms[0].first()) && strings.HasPrefix(ms[len(ms)-1].last(), "E")
	}
	if !a.dict.ExistsEnding(ending) {
		return false
	}
	if e := a.dict.Word(stem); e != nil && e.Verb {
		return true
	}
	ms := a.morphemes(stem, tokenizer.Normal)
	if len(ms) == 0 {
		return false
	}
	last := ms[len(ms)-1].last()
	return isPredicate(last) || last == "EP"
}
