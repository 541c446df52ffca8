package kofilter

import "github.com/japaniel/kofilter/pkg/morph"

// normalize returns the term for fragment i. A single-syllable fragment is
// never emitted alone; it is joined with a neighbour.
func (e *Extractor) normalize(frags []morph.CompoundFragment, i, offset, inc int) IndexTerm {
	cur := frags[i].Text
	if runeLen(cur) != 1 || len(frags) == 1 {
		return IndexTerm{Text: cur, Start: offset, Increment: inc}
	}

	switch {
	case i == 0:
		return IndexTerm{Text: cur + frags[1].Text, Start: offset, Increment: inc}
	case i == len(frags)-1:
		prev := frags[i-1].Text
		if e.cfg.HasOrigin || e.cfg.HasCompoundNoun {
			inc = 0
		}
		return IndexTerm{Text: prev + cur, Start: offset - runeLen(prev), Increment: inc}
	}

	if w := cur + frags[i+1].Text; e.dict.CompoundNoun(w) != nil {
		return IndexTerm{Text: w, Start: offset, Increment: inc}
	}
	prev := frags[i-1].Text
	if !e.cfg.QueryMode {
		inc = 0
	}
	return IndexTerm{Text: prev + cur, Start: offset - runeLen(prev), Increment: inc}
}

// suppressForQuery reports whether fragment i is already covered by a
// neighbouring single-syllable merge and must not be emitted in query mode.
func (e *Extractor) suppressForQuery(frags []morph.CompoundFragment, i int) bool {
	n := len(frags)
	single := func(j int) bool { return runeLen(frags[j].Text) == 1 }
	compound := func(a, b int) bool { return e.dict.CompoundNoun(frags[a].Text+frags[b].Text) != nil }

	// 가+건물 was emitted at index 0
	if i == 1 && single(0) {
		return true
	}
	// 공장+가+건물: 가건물 is emitted instead of 건물
	if i > 1 && single(i-1) && compound(i-1, i) {
		return true
	}
	// 공장 stays when the next two fragments form their own compound
	if i+2 < n && single(i+1) && compound(i+1, i+2) {
		return false
	}
	if i <= n-2 && !single(i) && single(i+1) {
		return true
	}
	return false
}
