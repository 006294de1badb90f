// Package metrics exposes parse counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/insightdelivered/moneylens/internal/models"
)

const namespace = "moneylens"

// Recorder owns a private registry. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	parses       *prometheus.CounterVec
	failures     *prometheus.CounterVec
	transactions prometheus.Histogram
	totalsFound  prometheus.Histogram
	duration     *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		parses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_total",
			Help:      "Documents parsed, by extraction mode used.",
		}, []string{"operation", "mode_used"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_failures_total",
			Help:      "Documents that could not be read.",
		}, []string{"operation"}),
		transactions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transactions_per_statement",
			Help:      "Transactions extracted from one statement.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		totalsFound: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "financial_totals_per_document",
			Help:      "Labelled totals detected in one document.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing one document.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"operation"}),
	}
	r.registry.MustRegister(
		r.parses, r.failures, r.transactions, r.totalsFound, r.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Operation names used as label values.
const (
	OpStatement = "statement"
	OpDocument  = "document"
)

// ObserveStatement records a finished statement parse.
func (r *Recorder) ObserveStatement(res *models.ParseResult, d time.Duration) {
	if r == nil || res == nil {
		return
	}
	r.parses.WithLabelValues(OpStatement, modeLabel(res.Metadata.ModeUsed)).Inc()
	r.transactions.Observe(float64(len(res.Transactions)))
	r.duration.WithLabelValues(OpStatement).Observe(d.Seconds())
}

// ObserveDocument records a finished financial-totals scan.
func (r *Recorder) ObserveDocument(res *models.DocumentResult, d time.Duration) {
	if r == nil || res == nil {
		return
	}
	r.parses.WithLabelValues(OpDocument, modeLabel(res.Method)).Inc()
	r.totalsFound.Observe(float64(len(res.Totals)))
	r.duration.WithLabelValues(OpDocument).Observe(d.Seconds())
}

// ObserveFailure counts a document that could not be parsed.
func (r *Recorder) ObserveFailure(operation string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(operation).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func modeLabel(m models.Mode) string {
	if m == models.ModeNone {
		return "none"
	}
	return string(m)
}
