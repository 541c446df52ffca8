package kofilter

import (
	"github.com/japaniel/kofilter/pkg/dictionary"
	"github.com/japaniel/kofilter/pkg/morph"
)

const (
	maxReadingsPerChar = 4
	maxReadings        = 5
)

// Hanja returns the terms of a Hanja token: the token itself, up to five
// Hangul readings, and the aligned parts of readings that are compound nouns.
func (e *Extractor) Hanja(term string, offset int) []IndexTerm {
	m := newEmissionMap()
	m.add(IndexTerm{Text: term, Start: offset, Increment: 1})

	runes := []rune(term)
	if len(runes) < 2 {
		return m.terms
	}

	readings := e.readings(runes)
	if len(readings) > maxReadings {
		readings = readings[:maxReadings]
	}
	for _, r := range readings {
		m.add(IndexTerm{Text: r, Start: offset, Increment: 0})
	}

	seen := make(map[string]bool)
	for _, r := range readings {
		if !dictionary.HangulOnly(r) {
			continue
		}
		pos, off := 0, 0
		for i, part := range e.readingParts(r) {
			pos = min(pos+runeLen(part), len(runes))
			if seen[part] {
				off = pos
				continue
			}
			seen[part] = true

			inc := 1
			if i == 0 {
				inc = 0
			}
			m.add(IndexTerm{Text: string(runes[off:pos]), Start: offset + off, Increment: inc})
			m.add(IndexTerm{Text: part, Start: offset + off, Increment: 0})
			off = pos
		}
	}
	return m.terms
}

type branch struct {
	text string
	dead bool // not a prefix of any dictionary word
}

// readings enumerates Hangul readings of runes, pruning branches that cannot
// lead to a dictionary word. Characters without readings are skipped.
func (e *Extractor) readings(runes []rune) []string {
	cands := []string{""}
	for _, ch := range runes {
		sounds := e.dict.Readings(ch)
		if len(sounds) == 0 {
			continue
		}

		branches := make([]branch, len(cands))
		var extra []branch
		dead := 0
		for j, origin := range cands {
			for k, s := range sounds {
				if k == maxReadingsPerChar {
					break
				}
				b := branch{text: origin + string(s)}
				if !dictionary.HasPrefix(e.dict, b.text) {
					b.dead = true
					dead++
				}
				if k == 0 {
					branches[j] = b
				} else {
					extra = append(extra, b)
				}
			}
		}
		branches = append(branches, extra...)

		if dead == len(branches) {
			cands = []string{branches[0].text}
			continue
		}
		cands = cands[:0]
		for _, b := range branches {
			if !b.dead {
				cands = append(cands, b.text)
			}
		}
	}
	return cands
}

// readingParts splits a Hangul reading into unit nouns.
func (e *Extractor) readingParts(reading string) []string {
	if ent := e.dict.CompoundNoun(reading); ent != nil {
		return ent.Compounds
	}
	c := morph.Candidate{Stem: reading, POS: morph.POSNoun}
	e.an.ConfirmCompoundNoun(&c)
	if len(c.Fragments) == 0 {
		return []string{reading}
	}
	parts := make([]string, len(c.Fragments))
	for i, f := range c.Fragments {
		parts[i] = f.Text
	}
	return parts
}
