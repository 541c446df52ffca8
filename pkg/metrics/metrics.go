// Package metrics exports analysis and audit counters to Prometheus.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the counters. A nil *Recorder records nothing.
type Recorder struct {
	tokens           *prometheus.CounterVec
	terms            prometheus.Counter
	analysisFailures prometheus.Counter
	auditWritten     prometheus.Counter
	auditDropped     *prometheus.CounterVec
}

// NewRecorder registers the counters on reg, or on the default registerer
// when reg is nil. Registering twice reuses the existing collectors.
func NewRecorder(namespace string, reg prometheus.Registerer) (*Recorder, error) {
	if namespace == "" {
		namespace = "kofilter"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Tokens analyzed, by script.",
		}, []string{"script"}),
		terms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terms_emitted_total",
			Help:      "Index terms emitted.",
		}),
		analysisFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failures_total",
			Help:      "Tokens skipped because morphological analysis failed.",
		}),
		auditWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_written_total",
			Help:      "Search audit records committed.",
		}),
		auditDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_dropped_total",
			Help:      "Search audit records not written, by reason.",
		}, []string{"reason"}),
	}

	var err error
	if r.tokens, err = register(reg, r.tokens); err != nil {
		return nil, err
	}
	if r.terms, err = register(reg, r.terms); err != nil {
		return nil, err
	}
	if r.analysisFailures, err = register(reg, r.analysisFailures); err != nil {
		return nil, err
	}
	if r.auditWritten, err = register(reg, r.auditWritten); err != nil {
		return nil, err
	}
	if r.auditDropped, err = register(reg, r.auditDropped); err != nil {
		return nil, err
	}
	return r, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

func (r *Recorder) TokenAnalyzed(script string) {
	if r == nil {
		return
	}
	r.tokens.WithLabelValues(script).Inc()
}

func (r *Recorder) TermsEmitted(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.terms.Add(float64(n))
}

func (r *Recorder) AnalysisFailed() {
	if r == nil {
		return
	}
	r.analysisFailures.Inc()
}

func (r *Recorder) AuditWritten(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.auditWritten.Add(float64(n))
}

// AuditDropped counts n records discarded for reason: "internal" for
// callers on the server's own network, "closed" after shutdown and "db"
// for failed batches.
func (r *Recorder) AuditDropped(reason string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.auditDropped.WithLabelValues(reason).Add(float64(n))
}
