package kofilter

import "unicode/utf8"

// IndexTerm is one term to be indexed. Start is a rune offset into the
// original text. Increment is the position advance relative to the previous
// term; zero places the term on the same position as its predecessor.
type IndexTerm struct {
	Text      string
	Start     int
	Increment int
}

// End returns the exclusive rune offset of the term.
func (t IndexTerm) End() int { return t.Start + utf8.RuneCountInString(t.Text) }

type termKey struct {
	start int
	text  string
}

// emissionMap collects the terms of one token in insertion order.
// The first term stored for a (start, text) pair wins.
type emissionMap struct {
	seen  map[termKey]struct{}
	terms []IndexTerm
}

func newEmissionMap() *emissionMap {
	return &emissionMap{seen: make(map[termKey]struct{})}
}

func (m *emissionMap) add(t IndexTerm) bool {
	if t.Text == "" {
		return false
	}
	k := termKey{t.Start, t.Text}
	if _, ok := m.seen[k]; ok {
		return false
	}
	m.seen[k] = struct{}{}
	m.terms = append(m.terms, t)
	return true
}

func (m *emissionMap) len() int { return len(m.terms) }
