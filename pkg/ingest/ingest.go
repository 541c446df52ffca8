// Package ingest indexes documents into the term store. Sentences are
// analyzed on a worker pool and their terms written in order through a
// BatchWriter, checkpointing after every sentence so an interrupted run
// can resume.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/japaniel/kofilter/pkg/db"
	"github.com/japaniel/kofilter/pkg/kofilter"
	"github.com/japaniel/kofilter/pkg/metrics"
	"github.com/japaniel/kofilter/pkg/tokenizer"
)

// ErrNoExtractor is returned by Ingest when the Ingester has no Extractor.
var ErrNoExtractor = errors.New("ingest: no term extractor configured")

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Ingester writes the index terms of a source's sentences to the database.
type Ingester struct {
	DB        *sql.DB
	Extractor *kofilter.Extractor
	BatchSize int
	// Logger receives resume and skipped-token messages. nil means no logging.
	Logger *log.Logger
	// OnProgress is called periodically with the number of processed sentences and total sentences.
	OnProgress func(current, total int)
	Metrics    *metrics.Recorder

	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewIngester creates an Ingester with default batch size and worker count.
func NewIngester(conn *sql.DB, ext *kofilter.Extractor) *Ingester {
	return &Ingester{
		DB:        conn,
		Extractor: ext,
		BatchSize: 50,
		Workers:   4,
	}
}

type termCount struct {
	Term  string
	Count int
}

type processedSentence struct {
	Index    int
	Sentence string
	Terms    []termCount
}

func (ig *Ingester) logf(format string, args ...any) {
	if ig.Logger != nil {
		ig.Logger.Printf(format, args...)
	}
}

// Ingest extracts and stores the terms of sentences for sourceID, starting
// after the source's last checkpoint. It returns the number of term
// occurrences linked.
func (ig *Ingester) Ingest(ctx context.Context, sourceID int64, sentences []tokenizer.Sentence) (int, error) {
	if ig.Extractor == nil {
		return 0, ErrNoExtractor
	}
	lastProcessed, err := db.GetSourceProgress(ig.DB, sourceID)
	if err != nil {
		ig.logf("Warning: failed to retrieve progress: %v", err)
		lastProcessed = -1
	}
	if lastProcessed >= 0 {
		ig.logf("Resuming from sentence index %d", lastProcessed+1)
	}

	total := len(sentences)
	startIdx := lastProcessed + 1
	if startIdx >= total {
		return 0, nil
	}

	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(ig.Workers, ig.Workers*2)
	} else {
		wp = NewWorkerPool(ig.Workers, ig.Workers*2)
	}
	resultCh := make(chan processedSentence, ig.Workers*2)
	resultClosed := false
	doneCh := make(chan error, 1)

	var totalLinks int64

	bw := NewBatchWriter(ig.DB, ig.BatchSize, 100*time.Millisecond)
	var batchErr error
	var batchErrMu sync.Mutex
	bw.OnError = func(e error) {
		batchErrMu.Lock()
		if batchErr == nil {
			batchErr = e
		}
		batchErrMu.Unlock()
	}

	defer func() {
		wp.Close()
		if !resultClosed {
			close(resultCh)
		}
		_ = bw.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	// Consumer: results arrive out of order; write them by index so the
	// checkpoint never skips an unwritten sentence.
	go func() {
		defer close(doneCh)
		pending := make(map[int]processedSentence)
		next := startIdx

		drain := func() error {
			for {
				item, ok := pending[next]
				if !ok {
					return nil
				}
				delete(pending, next)
				if err := bw.Submit(ig.persist(sourceID, item, &totalLinks)); err != nil {
					return err
				}
				if ig.OnProgress != nil && (next+1)%ig.BatchSize == 0 {
					ig.OnProgress(next+1, total)
				}
				next++
			}
		}

		for {
			select {
			case <-ctx.Done():
				doneCh <- ctx.Err()
				return
			default:
			}

			res, ok := <-resultCh
			if !ok {
				if err := drain(); err != nil {
					cancel()
					doneCh <- err
					return
				}
				if ig.OnProgress != nil {
					ig.OnProgress(total, total)
				}
				doneCh <- nil
				return
			}
			pending[res.Index] = res
			if err := drain(); err != nil {
				cancel()
				doneCh <- err
				return
			}
		}
	}()

Loop:
	for i := startIdx; i < total; i++ {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		idx := i
		sent := sentences[i]
		job := func(ctx context.Context) error {
			res := ig.processSentence(idx, sent)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}

		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, ctx.Err()) || errors.Is(err, ErrPoolClosed) {
				break Loop
			}
			return 0, err
		}
	}

	// Workers are done once Close returns, so closing resultCh is safe.
	wp.Close()
	close(resultCh)
	resultClosed = true

	consumerErr := <-doneCh
	if err := bw.Close(); err != nil && consumerErr == nil {
		consumerErr = err
	}
	batchErrMu.Lock()
	if batchErr != nil && consumerErr == nil {
		consumerErr = batchErr
	}
	batchErrMu.Unlock()

	return int(atomic.LoadInt64(&totalLinks)), consumerErr
}

// persist links every term of one sentence and advances the checkpoint in
// the same transaction.
func (ig *Ingester) persist(sourceID int64, ps processedSentence, links *int64) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, tc := range ps.Terms {
			termID, err := db.CreateOrGetTerm(tx, tc.Term)
			if err != nil {
				return fmt.Errorf("failed to persist term %s: %w", tc.Term, err)
			}
			if err := db.LinkTermToSource(tx, termID, sourceID, ps.Sentence, tc.Count); err != nil {
				return fmt.Errorf("failed to link term %d: %w", termID, err)
			}
			atomic.AddInt64(links, int64(tc.Count))
		}
		if err := db.UpdateSourceProgress(tx, sourceID, ps.Index); err != nil {
			return fmt.Errorf("failed to save progress: %w", err)
		}
		return nil
	}
}

// processSentence extracts the sentence's terms and counts them in order
// of first appearance. Tokens that fail analysis are logged and skipped.
func (ig *Ingester) processSentence(index int, sentence tokenizer.Sentence) processedSentence {
	s := kofilter.NewStream(ig.Extractor, kofilter.Tokens(sentence.Tokens))
	s.Logger = ig.Logger
	s.Metrics = ig.Metrics

	counts := make(map[string]int)
	var order []string
	for t, ok := s.Next(); ok; t, ok = s.Next() {
		if _, seen := counts[t.Text]; !seen {
			order = append(order, t.Text)
		}
		counts[t.Text]++
	}

	terms := make([]termCount, 0, len(order))
	for _, text := range order {
		terms = append(terms, termCount{Term: text, Count: counts[text]})
	}
	return processedSentence{Index: index, Sentence: sentence.Text, Terms: terms}
}
