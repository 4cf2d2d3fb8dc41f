// Package metrics defines the Prometheus collectors of the scoring service
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	ScoringRunsTotal     *prometheus.CounterVec
	ScoringDuration      prometheus.Histogram
	ScoreRows            prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocumentsIngested    *prometheus.CounterVec
	CorpusDocuments      prometheus.Gauge
	CorpusTokens         prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ScoringRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tfidf_scoring_runs_total",
				Help: "Scoring runs by outcome (computed, cached, stored, error).",
			},
			[]string{"outcome"},
		),
		ScoringDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tfidf_scoring_duration_seconds",
				Help:    "Time to score a corpus, cache lookups included.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		),
		ScoreRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tfidf_score_rows",
				Help:    "Rows (document, term pairs) per score table.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tfidf_cache_hits_total",
				Help: "Score tables served from cache.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tfidf_cache_misses_total",
				Help: "Score tables computed because the cache missed.",
			},
		),
		DocumentsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tfidf_documents_ingested_total",
				Help: "Document mutations by source (http, kafka) and action (add, delete).",
			},
			[]string{"source", "action"},
		),
		CorpusDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tfidf_corpus_documents",
				Help: "Documents currently in the ingested corpus.",
			},
		),
		CorpusTokens: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tfidf_corpus_tokens",
				Help: "Tokens currently in the ingested corpus.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ScoringRunsTotal,
		m.ScoringDuration,
		m.ScoreRows,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocumentsIngested,
		m.CorpusDocuments,
		m.CorpusTokens,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for the default
// registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
