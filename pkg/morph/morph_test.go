package morph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func known(surface string, tags ...string) morpheme {
	return morpheme{Surface: surface, Base: surface, Tags: tags, Known: true}
}

func unknown(surface string) morpheme {
	return morpheme{Surface: surface, Base: surface, Tags: []string{"UNKNOWN"}}
}

func TestToMorpheme(t *testing.T) {
	m := toMorpheme("먹었다", true, []string{"VV+EP+EF", "*", "F", "먹었다", "Inflect", "VV", "EF", "먹/VV/*+었/EP/*+다/EF/*"})
	assert.Equal(t, []string{"VV", "EP", "EF"}, m.Tags)
	assert.Equal(t, "먹", m.Base)
	assert.Nil(t, m.Parts)

	m = toMorpheme("대학교회", true, []string{"NNG", "*", "F", "대학교회", "Compound", "*", "*", "대학/NNG/*+교회/NNG/*"})
	assert.Equal(t, []string{"대학", "교회"}, m.Parts)

	m = toMorpheme("텍스트", false, nil)
	assert.Equal(t, []string{"UNKNOWN"}, m.Tags)
	assert.False(t, m.Known)
}

func TestBuildCandidateNounWithParticle(t *testing.T) {
	c := buildCandidate([]morpheme{known("학교", "NNG"), known("에서", "JKB")})
	assert.Equal(t, "학교", c.Stem)
	assert.Equal(t, POSNoun, c.POS)
	assert.Equal(t, "에서", c.Particle)
	assert.Empty(t, c.Ending)
	assert.Equal(t, TierCorrect, c.Tier)
	assert.Nil(t, c.Fragments)
}

func TestBuildCandidateCompoundStem(t *testing.T) {
	c := buildCandidate([]morpheme{known("공사", "NNG"), known("가", "NNG"), known("계약", "NNG"), known("을", "JKO")})
	assert.Equal(t, "공사가계약", c.Stem)
	assert.Equal(t, TierAnalysis, c.Tier)
	require.Len(t, c.Fragments, 3)
	assert.Equal(t, "공사가계약", FragmentText(c.Fragments))
	for _, f := range c.Fragments {
		assert.True(t, f.Exists)
	}
}

func TestBuildCandidateNounsAfterParticle(t *testing.T) {
	c := buildCandidate([]morpheme{known("공사", "NNG"), known("가", "JKS"), known("계약", "NNG"), known("을", "JKO")})
	assert.Equal(t, "공사가계약", c.Stem)
	assert.Equal(t, POSNoun, c.POS)
	assert.Equal(t, "을", c.Particle)
	assert.Empty(t, c.Ending)
	assert.Equal(t, TierFail, c.Tier)
	assert.Nil(t, c.Fragments)

	c = buildCandidate([]morpheme{
		known("서울", "NNP"), known("에서", "JKB"),
		known("경제", "NNG"), known("정책", "NNG"), known("문제", "NNG"), known("를", "JKO"),
	})
	assert.Equal(t, "서울에서경제정책문제", c.Stem)
	assert.Equal(t, "를", c.Particle)
	assert.Equal(t, TierFail, c.Tier)

	c = buildCandidate([]morpheme{known("학교", "NNG"), known("에", "JKB"), known("가", "VV"), known("다", "EF")})
	assert.Equal(t, "학교", c.Stem)
	assert.Equal(t, "가다", c.Ending)
	assert.Equal(t, TierCorrect, c.Tier)
}

func TestBuildCandidateUnknownRunMerges(t *testing.T) {
	c := buildCandidate([]morpheme{known("한국", "NNP"), unknown("폴리"), unknown("텍")})
	assert.Equal(t, TierFail, c.Tier)
	assert.Equal(t, []CompoundFragment{{Text: "한국", Exists: true}, {Text: "폴리텍", Exists: false}}, c.Fragments)
}

func TestBuildCandidateVerb(t *testing.T) {
	m := known("먹었다", "VV", "EP", "EF")
	m.Base = "먹"
	c := buildCandidate([]morpheme{m})
	assert.Equal(t, POSVerb, c.POS)
	assert.Equal(t, "먹", c.Stem)
	assert.Equal(t, "었다", c.Ending)
	assert.Equal(t, TierCorrect, c.Tier)
}

func TestBuildCandidateOther(t *testing.T) {
	c := buildCandidate([]morpheme{known("아주", "MAG")})
	assert.Equal(t, POSOther, c.POS)
	assert.Equal(t, TierAnalysis, c.Tier)

	assert.Equal(t, Candidate{}, buildCandidate(nil))
}

func TestSortByTierIsStable(t *testing.T) {
	cands := []Candidate{
		{Stem: "a", Tier: TierFail},
		{Stem: "b", Tier: TierAnalysis},
		{Stem: "c", Tier: TierCorrect},
		{Stem: "d", Tier: TierAnalysis},
	}
	SortByTier(cands)
	var stems []string
	for _, c := range cands {
		stems = append(stems, c.Stem)
	}
	assert.Equal(t, []string{"c", "b", "d", "a"}, stems)
}

func TestSameParse(t *testing.T) {
	a := Candidate{Stem: "학교", Particle: "에"}
	b := a
	assert.True(t, a.sameParse(b))
	b.Fragments = []CompoundFragment{{Text: "학", Exists: false}, {Text: "교", Exists: false}}
	assert.False(t, a.sameParse(b))
}
