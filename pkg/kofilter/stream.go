package kofilter

import (
	"log"

	"github.com/japaniel/kofilter/pkg/metrics"
	"github.com/japaniel/kofilter/pkg/tokenizer"
)

// TokenSource yields upstream tokens; ok is false once input is exhausted.
type TokenSource interface {
	Next() (tok tokenizer.Token, ok bool)
}

type sliceSource struct {
	toks []tokenizer.Token
}

func (s *sliceSource) Next() (tokenizer.Token, bool) {
	if len(s.toks) == 0 {
		return tokenizer.Token{}, false
	}
	t := s.toks[0]
	s.toks = s.toks[1:]
	return t, true
}

// Tokens returns a source over a fixed token list.
func Tokens(toks []tokenizer.Token) TokenSource {
	return &sliceSource{toks: toks}
}

// Stream pulls tokens from a source and hands out their terms one at a
// time. A Stream belongs to one consumer.
type Stream struct {
	ext   *Extractor
	src   TokenSource
	queue []IndexTerm
	err   error

	// Logger receives skipped-token messages. Nil is silent.
	Logger  *log.Logger
	Metrics *metrics.Recorder
}

// NewStream creates a stream over src.
func NewStream(ext *Extractor, src TokenSource) *Stream {
	return &Stream{ext: ext, src: src}
}

// Next returns the next term. Tokens whose analysis fails are skipped; the
// first such error is kept for Err.
func (s *Stream) Next() (IndexTerm, bool) {
	for len(s.queue) == 0 {
		tok, ok := s.src.Next()
		if !ok {
			return IndexTerm{}, false
		}
		s.Metrics.TokenAnalyzed(tok.Script.String())
		terms, err := s.ext.Extract(tok)
		if err != nil {
			s.Metrics.AnalysisFailed()
			if s.err == nil {
				s.err = err
			}
			if s.Logger != nil {
				s.Logger.Printf("skipping token: %v", err)
			}
			continue
		}
		s.Metrics.TermsEmitted(len(terms))
		s.queue = terms
	}

	t := s.queue[0]
	s.queue = s.queue[1:]
	if !s.ext.cfg.IncPosition {
		t.Increment = 0
	}
	return t, true
}

// Err returns the first analysis error encountered, if any.
func (s *Stream) Err() error { return s.err }

// All drains the stream.
func (s *Stream) All() []IndexTerm {
	var out []IndexTerm
	for t, ok := s.Next(); ok; t, ok = s.Next() {
		out = append(out, t)
	}
	return out
}

// Analyze tokenizes text and returns all of its terms. Analysis failures
// skip the affected token and are reported as the returned error.
func (e *Extractor) Analyze(text string) ([]IndexTerm, error) {
	s := NewStream(e, Tokens(tokenizer.Tokenize(text)))
	terms := s.All()
	return terms, s.Err()
}
