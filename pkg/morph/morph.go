// Package morph produces ranked morphological parses of Korean words.
package morph

import (
	"slices"
	"strings"
)

// Tier ranks the confidence of a parse.
type Tier int

const (
	TierFail      Tier = 30
	TierCompounds Tier = 70
	TierAnalysis  Tier = 80
	TierCorrect   Tier = 100
)

// POS is the coarse part of speech of a candidate stem.
type POS int

const (
	POSNoun POS = iota
	POSVerb
	POSOther
)

// CompoundFragment is one unit noun of a compound stem.
type CompoundFragment struct {
	Text   string
	Exists bool // found in a dictionary
}

// Candidate is one parse of a word.
type Candidate struct {
	Stem      string
	POS       POS
	Tier      Tier
	Particle  string
	Ending    string
	Fragments []CompoundFragment
}

// Analyzer turns a word into ranked candidates, best first.
type Analyzer interface {
	Analyze(text string) ([]Candidate, error)
	// ConfirmCompoundNoun fills c.Fragments when c.Stem decomposes into known nouns.
	ConfirmCompoundNoun(c *Candidate)
}

// EndingSplitter decides whether stem+ending is a predicate followed by a
// verbal ending. An empty ending asks whether stem alone ends with one.
type EndingSplitter interface {
	SplitEnding(stem, ending string) bool
}

// SortByTier orders candidates best first, keeping analyzer order on ties.
func SortByTier(cands []Candidate) {
	slices.SortStableFunc(cands, func(a, b Candidate) int { return int(b.Tier - a.Tier) })
}

func (c Candidate) sameParse(o Candidate) bool {
	if c.Stem != o.Stem || c.POS != o.POS || c.Particle != o.Particle || c.Ending != o.Ending {
		return false
	}
	return slices.Equal(c.Fragments, o.Fragments)
}

// FragmentText rebuilds the stem from fragments.
func FragmentText(frags []CompoundFragment) string {
	var b strings.Builder
	for _, f := range frags {
		b.WriteString(f.Text)
	}
	return b.String()
}
