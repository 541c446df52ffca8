package kofilter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/japaniel/kofilter/pkg/dictionary"
	"github.com/japaniel/kofilter/pkg/morph"
)

// stubAnalyzer returns canned parses keyed by surface.
type stubAnalyzer struct {
	parses    map[string][]morph.Candidate
	compounds map[string][]morph.CompoundFragment
	err       error
	failOn    string // only this surface fails when set
	calls     int
}

func (a *stubAnalyzer) Analyze(text string) ([]morph.Candidate, error) {
	a.calls++
	if a.err != nil && (a.failOn == "" || a.failOn == text) {
		return nil, a.err
	}
	return a.parses[text], nil
}

func (a *stubAnalyzer) ConfirmCompoundNoun(c *morph.Candidate) {
	if frags, ok := a.compounds[c.Stem]; ok {
		c.Fragments = frags
	}
}

func noun(stem string, tier morph.Tier, frags ...morph.CompoundFragment) morph.Candidate {
	return morph.Candidate{Stem: stem, POS: morph.POSNoun, Tier: tier, Fragments: frags}
}

func frag(text string, exists bool) morph.CompoundFragment {
	return morph.CompoundFragment{Text: text, Exists: exists}
}

func term(text string, start, inc int) IndexTerm {
	return IndexTerm{Text: text, Start: start, Increment: inc}
}

func sampleIndex() *dictionary.Index {
	return dictionary.NewIndex(dictionary.Sample())
}

func newExtractor(t *testing.T, dict dictionary.Dictionary, an morph.Analyzer, cfg Config) *Extractor {
	t.Helper()
	e, err := New(dict, an, cfg)
	require.NoError(t, err)
	return e
}
