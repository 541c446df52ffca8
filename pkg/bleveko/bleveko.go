// Package bleveko plugs the Korean term extractor into bleve as a
// tokenizer, a token filter and an analyzer.
//
// bleve works in byte offsets and 1-based positions; the extractor in rune
// offsets and position increments. Tokens are converted at both ends.
package bleveko

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/japaniel/kofilter/pkg/kofilter"
	"github.com/japaniel/kofilter/pkg/metrics"
	"github.com/japaniel/kofilter/pkg/tokenizer"
)

// ErrRegistered is returned when a name is registered twice.
var ErrRegistered = errors.New("bleveko: analyzer already registered")

// Tokenizer splits input into script-classified words. Input is NFC
// normalized first; offsets refer to the normalized text.
type Tokenizer struct{}

func tokenType(s tokenizer.Script) analysis.TokenType {
	if s == tokenizer.Ideograph {
		return analysis.Ideographic
	}
	return analysis.AlphaNumeric
}

// Tokenize implements analysis.Tokenizer. Token text is normalized; Start
// and End index the raw input.
func (Tokenizer) Tokenize(input []byte) analysis.TokenStream {
	text, offsets := tokenizer.NormalizeOffsets(string(input))
	toks := tokenizer.Tokenize(text)
	if len(toks) == 0 {
		return nil
	}
	out := make(analysis.TokenStream, 0, len(toks))
	for i, t := range toks {
		out = append(out, &analysis.Token{
			Term:     []byte(t.Text),
			Start:    offsets[t.Start],
			End:      offsets[t.End],
			Position: i + 1,
			Type:     tokenType(t.Script),
		})
	}
	return out
}

// byteOffsets maps every rune offset of s, plus the end, to its byte offset.
func byteOffsets(s string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}

// Filter replaces each token with the index terms the extractor derives
// from it.
type Filter struct {
	Extractor *kofilter.Extractor
	// Logger receives tokens that failed analysis; they pass through unchanged.
	Logger  *log.Logger
	Metrics *metrics.Recorder
}

// Filter implements analysis.TokenFilter.
func (f *Filter) Filter(input analysis.TokenStream) analysis.TokenStream {
	incPosition := f.Extractor.Config().IncPosition
	out := make(analysis.TokenStream, 0, len(input))
	pos := 0
	for _, in := range input {
		text := string(in.Term)
		script, kind := tokenizer.Classify(text)
		f.Metrics.TokenAnalyzed(script.String())
		terms, err := f.Extractor.Extract(tokenizer.Token{
			Text:   text,
			End:    utf8.RuneCountInString(text),
			Script: script,
			Kind:   kind,
		})
		if err != nil {
			f.Metrics.AnalysisFailed()
			if f.Logger != nil {
				f.Logger.Printf("bleveko: keeping token as is: %v", err)
			}
			pos++
			keep := *in
			keep.Position = pos
			out = append(out, &keep)
			continue
		}
		f.Metrics.TermsEmitted(len(terms))

		offsets := byteOffsets(text)
		for _, t := range terms {
			if incPosition {
				pos += t.Increment
			}
			start, end := in.Start, in.End
			// acronym and possessive terms are shorter than their token;
			// normalized tokens no longer line up with the raw bytes
			if script != tokenizer.Other && in.End-in.Start == len(in.Term) {
				start = in.Start + offsets[min(t.Start, len(offsets)-1)]
				end = in.Start + offsets[min(t.End(), len(offsets)-1)]
			}
			out = append(out, &analysis.Token{
				Term:     []byte(t.Text),
				Start:    start,
				End:      end,
				Position: max(pos, 1),
				Type:     in.Type,
			})
		}
	}
	return out
}

var (
	registeredMu sync.Mutex
	registered   = map[string]bool{}
)

// Names returns the registry names Register uses for name.
func Names(name string) (tokenizerName, filterName, analyzerName string) {
	return name + "_tokenizer", name + "_filter", name
}

// Register adds a tokenizer, a filter and an analyzer to the bleve
// registry under the names returned by Names. The analyzer lowercases after
// extraction. bleve's registry is global, so each name can be used once.
func Register(name string, ext *kofilter.Extractor, logger *log.Logger, rec *metrics.Recorder) error {
	if ext == nil {
		return kofilter.ErrNilDependency
	}
	registeredMu.Lock()
	defer registeredMu.Unlock()
	if registered[name] {
		return fmt.Errorf("%w: %s", ErrRegistered, name)
	}
	registered[name] = true

	tokName, filterName, analyzerName := Names(name)
	registry.RegisterTokenizer(tokName, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return Tokenizer{}, nil
	})
	registry.RegisterTokenFilter(filterName, func(map[string]interface{}, *registry.Cache) (analysis.TokenFilter, error) {
		return &Filter{Extractor: ext, Logger: logger, Metrics: rec}, nil
	})
	registry.RegisterAnalyzer(analyzerName, func(config map[string]interface{}, cache *registry.Cache) (analysis.Analyzer, error) {
		tok, err := cache.TokenizerNamed(tokName)
		if err != nil {
			return nil, err
		}
		filter, err := cache.TokenFilterNamed(filterName)
		if err != nil {
			return nil, err
		}
		lower, err := cache.TokenFilterNamed(lowercase.Name)
		if err != nil {
			return nil, err
		}
		return &analysis.DefaultAnalyzer{
			Tokenizer:    tok,
			TokenFilters: []analysis.TokenFilter{filter, lower},
		}, nil
	})
	return nil
}

// RegisterPair registers name for indexing and name+"_query" with the same
// extractor switched to query mode.
func RegisterPair(name string, ext *kofilter.Extractor, logger *log.Logger, rec *metrics.Recorder) (indexName, queryName string, err error) {
	if ext == nil {
		return "", "", kofilter.ErrNilDependency
	}
	queryName = name + "_query"
	if err := Register(name, ext, logger, rec); err != nil {
		return "", "", err
	}
	cfg := ext.Config()
	cfg.QueryMode = true
	if err := Register(queryName, ext.WithConfig(cfg), logger, rec); err != nil {
		return "", "", err
	}
	return name, queryName, nil
}
