package morph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/kofilter/pkg/dictionary"
)

func newKagome(t *testing.T) *KagomeAnalyzer {
	t.Helper()
	if testing.Short() {
		t.Skip("loading the system dictionary is slow")
	}
	a, err := NewKagomeAnalyzer(dictionary.NewIndex(dictionary.Sample()))
	require.NoError(t, err)
	return a
}

func TestKagomeAnalyzeNounWithParticle(t *testing.T) {
	a := newKagome(t)
	cands, err := a.Analyze("학교에서")
	require.NoError(t, err)
	require.NotEmpty(t, cands)

	best := cands[0]
	assert.Equal(t, "학교", best.Stem)
	assert.Equal(t, POSNoun, best.POS)
	assert.Equal(t, TierCorrect, best.Tier)
}

func TestKagomeAnalyzeLexiconCompound(t *testing.T) {
	a := newKagome(t)
	cands, err := a.Analyze("대학교회")
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	assert.Equal(t, "대학교회", cands[0].Stem)
	assert.Equal(t, "대학교회", FragmentText(cands[0].Fragments))
}

func TestKagomeAnalyzeWordsWithoutSpaces(t *testing.T) {
	a := newKagome(t)

	cands, err := a.Analyze("공사가계약을")
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	assert.Equal(t, "공사가계약", cands[0].Stem)
	assert.Equal(t, "공사가계약", FragmentText(cands[0].Fragments))

	cands, err = a.Analyze("서울에서경제정책문제를")
	require.NoError(t, err)
	require.NotEmpty(t, cands)
	for _, c := range cands {
		assert.NotContains(t, c.Ending, "경제", c.Stem)
		assert.Less(t, c.Tier, TierCompounds, c.Stem)
	}
	assert.Equal(t, "서울에서경제정책문제", cands[0].Stem)
}

func TestKagomeAnalyzeEmpty(t *testing.T) {
	a := newKagome(t)
	cands, err := a.Analyze("  ")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestConfirmCompoundNoun(t *testing.T) {
	a := newKagome(t)
	c := Candidate{Stem: "경제정책", POS: POSNoun, Tier: TierFail}
	a.ConfirmCompoundNoun(&c)
	require.Len(t, c.Fragments, 2)
	assert.Equal(t, TierCompounds, c.Tier)

	c = Candidate{Stem: "학교", POS: POSNoun, Tier: TierCorrect}
	a.ConfirmCompoundNoun(&c)
	assert.Nil(t, c.Fragments)
}

func TestSplitEndingWithLexiconVerb(t *testing.T) {
	a := newKagome(t)
	assert.True(t, a.SplitEnding("먹", "었다"))
	assert.False(t, a.SplitEnding("먹", "없는어미"))
	assert.False(t, a.SplitEnding("", "다"))
}
