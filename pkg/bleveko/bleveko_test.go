package bleveko

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/kofilter/pkg/dictionary"
	"github.com/japaniel/kofilter/pkg/kofilter"
	"github.com/japaniel/kofilter/pkg/morph"
)

// cannedAnalyzer returns the listed parse, or the whole word as a known noun.
type cannedAnalyzer struct {
	parses map[string][]morph.Candidate
	fail   string
}

func (a cannedAnalyzer) Analyze(text string) ([]morph.Candidate, error) {
	if text == a.fail {
		return nil, errors.New("analysis failed")
	}
	if c, ok := a.parses[text]; ok {
		return c, nil
	}
	return []morph.Candidate{{Stem: text, POS: morph.POSNoun, Tier: morph.TierCorrect}}, nil
}

func (cannedAnalyzer) ConfirmCompoundNoun(*morph.Candidate) {}

func compoundAnalyzer() cannedAnalyzer {
	return cannedAnalyzer{parses: map[string][]morph.Candidate{
		"대학교회": {{
			Stem: "대학교회", POS: morph.POSNoun, Tier: morph.TierCompounds,
			Fragments: []morph.CompoundFragment{{Text: "대학", Exists: true}, {Text: "교회", Exists: true}},
		}},
	}}
}

func newExtractor(t *testing.T, an morph.Analyzer) *kofilter.Extractor {
	t.Helper()
	ext, err := kofilter.New(dictionary.NewIndex(dictionary.Sample()), an, kofilter.DefaultConfig())
	require.NoError(t, err)
	return ext
}

type tok struct {
	Term       string
	Start, End int
	Position   int
}

func simplify(ts analysis.TokenStream) []tok {
	out := make([]tok, 0, len(ts))
	for _, t := range ts {
		out = append(out, tok{string(t.Term), t.Start, t.End, t.Position})
	}
	return out
}

func TestTokenizerByteOffsets(t *testing.T) {
	ts := Tokenizer{}.Tokenize([]byte("학교 長官 U.S.A"))
	assert.Equal(t, []tok{
		{"학교", 0, 6, 1},
		{"長官", 7, 13, 2},
		{"U.S.A", 14, 19, 3},
	}, simplify(ts))
	assert.Equal(t, analysis.AlphaNumeric, ts[0].Type)
	assert.Equal(t, analysis.Ideographic, ts[1].Type)

	assert.Empty(t, Tokenizer{}.Tokenize(nil))
}

func TestTokenizerOffsetsIndexRawInput(t *testing.T) {
	input := []byte("ｶﾞｲﾄﾞ 학교 ＡＢＣ")
	ts := Tokenizer{}.Tokenize(input)
	assert.Equal(t, []tok{
		{"ガイド", 0, 15, 1},
		{"학교", 16, 22, 2},
		{"ABC", 23, 32, 3},
	}, simplify(ts))
	assert.Equal(t, "학교", string(input[ts[1].Start:ts[1].End]))

	f := &Filter{Extractor: newExtractor(t, compoundAnalyzer())}
	got := simplify(f.Filter(ts))
	assert.Contains(t, got, tok{"학교", 16, 22, 2})
}

func TestFilterCompound(t *testing.T) {
	f := &Filter{Extractor: newExtractor(t, compoundAnalyzer())}
	got := f.Filter(Tokenizer{}.Tokenize([]byte("대학교회 長官 car's")))
	assert.Equal(t, []tok{
		{"대학교회", 0, 12, 1},
		{"대학", 0, 6, 1},
		{"교회", 6, 12, 2},
		{"長官", 13, 19, 3},
		{"장관", 13, 19, 3},
		{"car", 20, 25, 4},
	}, simplify(got))
}

func TestFilterKeepsFailedTokens(t *testing.T) {
	var buf bytes.Buffer
	an := compoundAnalyzer()
	an.fail = "예배"
	f := &Filter{Extractor: newExtractor(t, an), Logger: log.New(&buf, "", 0)}

	got := f.Filter(Tokenizer{}.Tokenize([]byte("예배 학교")))
	assert.Equal(t, []tok{{"예배", 0, 6, 1}, {"학교", 7, 13, 2}}, simplify(got))
	assert.Contains(t, buf.String(), "analysis failed")
}

func TestFilterWithoutPositionIncrements(t *testing.T) {
	ext := newExtractor(t, compoundAnalyzer())
	cfg := ext.Config()
	cfg.IncPosition = false
	f := &Filter{Extractor: ext.WithConfig(cfg)}
	for _, tk := range simplify(f.Filter(Tokenizer{}.Tokenize([]byte("대학교회 학교")))) {
		assert.Equal(t, 1, tk.Position, tk.Term)
	}
}

func TestRegisterTwice(t *testing.T) {
	ext := newExtractor(t, compoundAnalyzer())
	require.NoError(t, Register("ko_twice", ext, nil, nil))
	assert.ErrorIs(t, Register("ko_twice", ext, nil, nil), ErrRegistered)
	assert.ErrorIs(t, Register("ko_nil", nil, nil, nil), kofilter.ErrNilDependency)
}

func TestIndexAndSearch(t *testing.T) {
	indexName, queryName, err := RegisterPair("ko_search_test", newExtractor(t, compoundAnalyzer()), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ko_search_test_query", queryName)

	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = indexName
	idx, err := bleve.NewMemOnly(m)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index("church", map[string]interface{}{"body": "대학교회 예배 U.S.A"}))
	require.NoError(t, idx.Index("office", map[string]interface{}{"body": "長官 회의"}))

	for term, want := range map[string]string{"교회": "church", "usa": "church", "장관": "office"} {
		q := bleve.NewTermQuery(term)
		q.SetField("body")
		res, err := idx.Search(bleve.NewSearchRequest(q))
		require.NoError(t, err, term)
		require.Len(t, res.Hits, 1, term)
		assert.Equal(t, want, res.Hits[0].ID, term)
	}

	mq := bleve.NewMatchQuery("長官")
	mq.SetField("body")
	mq.Analyzer = queryName
	res, err := idx.Search(bleve.NewSearchRequest(mq))
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "office", res.Hits[0].ID)
}
