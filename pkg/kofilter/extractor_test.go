package kofilter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/kofilter/pkg/dictionary"
	"github.com/japaniel/kofilter/pkg/morph"
	"github.com/japaniel/kofilter/pkg/tokenizer"
)

func native(text string, start int) tokenizer.Token {
	return tokenizer.Token{Text: text, Start: start, End: start + runeLen(text), Script: tokenizer.Native}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, &stubAnalyzer{}, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = New(sampleIndex(), nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestSingleNoun(t *testing.T) {
	an := &stubAnalyzer{parses: map[string][]morph.Candidate{
		"학교": {noun("학교", morph.TierCorrect)},
	}}
	e := newExtractor(t, sampleIndex(), an, DefaultConfig())

	terms, err := e.Extract(native("학교", 0))
	require.NoError(t, err)
	assert.Equal(t, []IndexTerm{term("학교", 0, 1)}, terms)
}

func TestCompoundNoun(t *testing.T) {
	an := &stubAnalyzer{parses: map[string][]morph.Candidate{
		"대학교회": {noun("대학교회", morph.TierCompounds, frag("대학", true), frag("교회", true))},
	}}
	e := newExtractor(t, sampleIndex(), an, DefaultConfig())

	terms, err := e.Extract(native("대학교회", 0))
	require.NoError(t, err)
	assert.Equal(t, []IndexTerm{
		term("대학교회", 0, 1),
		term("대학", 0, 0),
		term("교회", 2, 1),
	}, terms)
}

func TestAcronymAndPossessive(t *testing.T) {
	e := newExtractor(t, sampleIndex(), &stubAnalyzer{}, DefaultConfig())

	for _, tok := range tokenizer.Tokenize("a.b.c car's CAR'S plain") {
		terms, err := e.Extract(tok)
		require.NoError(t, err)
		require.Len(t, terms, 1, tok.Text)
		assert.Equal(t, tok.Start, terms[0].Start)
		assert.Equal(t, 1, terms[0].Increment)
		switch tok.Text {
		case "a.b.c":
			assert.Equal(t, "abc", terms[0].Text)
		case "car's":
			assert.Equal(t, "car", terms[0].Text)
		case "CAR'S":
			assert.Equal(t, "CAR", terms[0].Text)
		default:
			assert.Equal(t, tok.Text, terms[0].Text)
		}
	}
}

func TestHanjaWithEmptyDictionary(t *testing.T) {
	e := newExtractor(t, dictionary.NewIndex(nil), &stubAnalyzer{}, DefaultConfig())

	terms, err := e.Extract(tokenizer.Token{Text: "長官", Start: 0, End: 2, Script: tokenizer.Ideograph})
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "長官", terms[0].Text)
	assert.Equal(t, 0, terms[0].Start)
}

func TestNoCandidates(t *testing.T) {
	e := newExtractor(t, sampleIndex(), &stubAnalyzer{}, DefaultConfig())
	terms, err := e.Extract(native("뭐지", 0))
	require.NoError(t, err)
	assert.Empty(t, terms)
	assert.Nil(t, e.Keywords("뭐지", 0, nil))
}

func TestAnalyzerFailure(t *testing.T) {
	cause := errors.New("boom")
	e := newExtractor(t, sampleIndex(), &stubAnalyzer{err: cause}, DefaultConfig())

	_, err := e.Extract(native("학교", 0))
	var ae *AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "학교", ae.Text)
	assert.ErrorIs(t, err, cause)
}

func TestVerbCandidatesEmitNothingButOrigin(t *testing.T) {
	verb := morph.Candidate{Stem: "먹", POS: morph.POSVerb, Tier: morph.TierCorrect, Ending: "었다"}
	an := &stubAnalyzer{parses: map[string][]morph.Candidate{"먹었다": {verb}}}

	e := newExtractor(t, sampleIndex(), an, DefaultConfig())
	terms, err := e.Extract(native("먹었다", 4))
	require.NoError(t, err)
	assert.Equal(t, []IndexTerm{term("먹었다", 4, 1)}, terms)

	cfg := DefaultConfig()
	cfg.HasOrigin = false
	terms, err = e.WithConfig(cfg).Extract(native("먹었다", 4))
	require.NoError(t, err)
	assert.Empty(t, terms)
}

func TestBigramsForUnknownStem(t *testing.T) {
	cands := []morph.Candidate{noun("폴리텍", morph.TierFail)}
	e := newExtractor(t, sampleIndex(), &stubAnalyzer{}, DefaultConfig())

	assert.Equal(t, []IndexTerm{
		term("폴리텍", 3, 1),
		term("폴리", 3, 0),
		term("리텍", 4, 1),
	}, e.Keywords("폴리텍", 3, cands))

	cfg := DefaultConfig()
	cfg.Bigrammable = false
	assert.Equal(t, []IndexTerm{term("폴리텍", 3, 1)}, e.WithConfig(cfg).Keywords("폴리텍", 3, cands))
}

func TestUnknownFragmentIsBigrammed(t *testing.T) {
	cands := []morph.Candidate{noun("한국폴리텍", morph.TierFail, frag("한국", true), frag("폴리텍", false))}
	e := newExtractor(t, sampleIndex(), &stubAnalyzer{}, DefaultConfig())

	assert.Equal(t, []IndexTerm{
		term("한국폴리텍", 0, 1),
		term("한국", 0, 0),
		term("폴리텍", 2, 1),
		term("폴리", 2, 0),
		term("리텍", 3, 1),
	}, e.Keywords("한국폴리텍", 0, cands))
}

func TestExactMatchSkipsUnknownFragments(t *testing.T) {
	cands := []morph.Candidate{noun("한국폴리텍", morph.TierFail, frag("한국", true), frag("폴리텍", false))}
	cfg := DefaultConfig()
	cfg.ExactMatch = true
	e := newExtractor(t, sampleIndex(), &stubAnalyzer{}, cfg)

	// the stem is bigrammed instead of decompounded
	assert.Equal(t, []IndexTerm{
		term("한국폴리텍", 0, 1),
		term("한국", 0, 0),
		term("국폴", 1, 1),
		term("폴리", 2, 1),
		term("리텍", 3, 1),
	}, e.Keywords("한국폴리텍", 0, cands))
}

func TestWithoutCompoundNoun(t *testing.T) {
	cands := []morph.Candidate{noun("대학교회", morph.TierCompounds, frag("대학", true), frag("교회", true))}
	cfg := DefaultConfig()
	cfg.HasOrigin = false
	cfg.HasCompoundNoun = false
	e := newExtractor(t, sampleIndex(), &stubAnalyzer{}, cfg)

	assert.Equal(t, []IndexTerm{term("대학", 0, 1), term("교회", 2, 1)}, e.Keywords("대학교회", 0, cands))
}

func TestDoDecompoundOff(t *testing.T) {
	cands := []morph.Candidate{noun("대학교회", morph.TierCompounds, frag("대학", true), frag("교회", true))}
	cfg := DefaultConfig()
	cfg.DoDecompound = false
	cfg.HasCompoundNoun = false
	e := newExtractor(t, sampleIndex(), &stubAnalyzer{}, cfg)

	assert.True(t, e.Config().HasCompoundNoun)
	assert.False(t, e.Config().Bigrammable)
	assert.Equal(t, []IndexTerm{term("대학교회", 0, 1)}, e.Keywords("대학교회", 0, cands))
}

func TestQueryModeUsesFirstCandidate(t *testing.T) {
	cands := []morph.Candidate{
		noun("학교", morph.TierCorrect),
		noun("학", morph.TierAnalysis),
	}
	e := newExtractor(t, sampleIndex(), &stubAnalyzer{}, Config{HasCompoundNoun: true, DoDecompound: true, QueryMode: true})
	assert.Equal(t, []IndexTerm{term("학교", 0, 1)}, e.Keywords("학교", 0, cands))

	e = newExtractor(t, sampleIndex(), &stubAnalyzer{}, Config{HasCompoundNoun: true, DoDecompound: true})
	assert.Equal(t, []IndexTerm{term("학교", 0, 1), term("학", 0, 0)}, e.Keywords("학교", 0, cands))
}

func TestTermsAreSubstringsOfSurface(t *testing.T) {
	surface := "공사가계약한국폴리텍"
	cands := []morph.Candidate{
		noun(surface, morph.TierFail,
			frag("공사", true), frag("가", true), frag("계약", true), frag("한국", true), frag("폴리텍", false)),
		noun("공사가계약", morph.TierAnalysis),
	}
	e := newExtractor(t, sampleIndex(), &stubAnalyzer{}, DefaultConfig())
	runes := []rune(surface)
	const base = 7

	terms := e.Keywords(surface, base, cands)
	require.NotEmpty(t, terms)
	assert.Equal(t, 1, terms[0].Increment, "first term anchors the position")

	seen := map[termKey]bool{}
	for _, tm := range terms {
		require.GreaterOrEqual(t, tm.Start, base)
		require.LessOrEqual(t, tm.End(), base+len(runes))
		assert.Equal(t, string(runes[tm.Start-base:tm.End()-base]), tm.Text)
		k := termKey{tm.Start, tm.Text}
		assert.False(t, seen[k], "duplicate %v", tm)
		seen[k] = true
	}

	assert.Equal(t, terms, e.Keywords(surface, base, cands), "extraction is deterministic")
}
