// Package service runs scoring requests end to end: corpus snapshot, cache
// lookup, engine, persistence and the scores-computed notification. Every
// collaborator except the engine is optional.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tfidf"
	apperrors "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/tracing"
)

// RunStore is satisfied by *store.Store.
type RunStore interface {
	SaveRun(ctx context.Context, fingerprint string, table tfidf.ScoreTable) (*store.Run, error)
	LatestRun(ctx context.Context, fingerprint string) (*store.Run, bool, error)
	LoadRun(ctx context.Context, runID int64) (*store.Run, tfidf.ScoreTable, error)
}

// Result is one scored corpus.
type Result struct {
	Fingerprint string `json:"fingerprint"`
	Documents   int    `json:"documents"`
	Terms       int    `json:"terms"`
	CacheHit    bool   `json:"cache_hit"`

	// FromStore is set when the table was read back from an earlier run
	// instead of being computed.
	FromStore     bool             `json:"from_store,omitempty"`
	RunID         int64            `json:"run_id,omitempty"`
	CorpusVersion uint64           `json:"corpus_version,omitempty"`
	Table         tfidf.ScoreTable `json:"scores"`
}

// Service scores corpora and manages the ingested corpus.
type Service struct {
	builder  *corpus.Builder
	cache    *cache.ScoreCache
	store    RunStore
	notifier *ingest.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Service)

// WithCache serves repeated corpora from c.
func WithCache(c *cache.ScoreCache) Option { return func(s *Service) { s.cache = c } }

// WithStore persists each distinct corpus once and reads earlier runs back.
func WithStore(st RunStore) Option { return func(s *Service) { s.store = st } }

// WithNotifier publishes a ScoresComputedEvent after every scoring.
func WithNotifier(n *ingest.Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithMetrics records scoring and corpus metrics in m.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// New creates a Service over builder. Only the engine is required.
func New(builder *corpus.Builder, opts ...Option) *Service {
	s := &Service{
		builder: builder,
		logger:  slog.Default().With("component", "scoring-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Builder exposes the ingested corpus.
func (s *Service) Builder() *corpus.Builder {
	return s.builder
}

// Score scores c. With a store configured, a corpus that was already
// persisted is read back instead of recomputed and is never saved twice.
// Persistence and notification failures are logged; the caller still gets
// the table.
func (s *Service) Score(ctx context.Context, c tfidf.Corpus) (*Result, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "score")
	defer span.End()

	_, fpSpan := tracing.Start(ctx, "fingerprint")
	fingerprint := corpus.Fingerprint(c)
	fpSpan.End()
	span.SetAttr("fingerprint", fingerprint)

	// Runs at most once per fingerprint across concurrent callers when the
	// cache is on, so only the leader reads or writes the store.
	var (
		runID     int64
		fromStore bool
	)
	compute := func() (tfidf.ScoreTable, error) {
		if s.store != nil {
			if run, table, ok := s.storedRun(ctx, fingerprint); ok {
				runID, fromStore = run.ID, true
				return table, nil
			}
		}
		computeCtx, computeSpan := tracing.Start(ctx, "compute")
		table, err := tfidf.ScoreCorpus(computeCtx, c)
		computeSpan.SetAttr("rows", len(table))
		computeSpan.End()
		if err != nil {
			return nil, err
		}
		if s.store != nil {
			runID = s.persist(ctx, fingerprint, table)
		}
		return table, nil
	}

	var (
		table tfidf.ScoreTable
		hit   bool
		err   error
	)
	if s.cache != nil {
		table, hit, err = s.cache.GetOrCompute(ctx, fingerprint, compute)
	} else {
		table, err = compute()
	}
	if err != nil {
		s.observe("error", start, 0)
		return nil, err
	}

	result := &Result{
		Fingerprint: fingerprint,
		Documents:   len(table.Documents()),
		Terms:       table.Terms(),
		CacheHit:    hit,
		FromStore:   fromStore,
		RunID:       runID,
		Table:       table,
	}
	if s.notifier != nil {
		_, notifySpan := tracing.Start(ctx, "notify")
		s.notifier.ScoresComputed(ctx, ingest.ScoresComputedEvent{
			RunID:       result.RunID,
			Fingerprint: fingerprint,
			Documents:   result.Documents,
			Terms:       result.Terms,
			Rows:        len(table),
			CacheHit:    hit,
			ComputedAt:  time.Now().UTC(),
		})
		notifySpan.End()
	}

	outcome := "computed"
	switch {
	case hit:
		outcome = "cached"
	case fromStore:
		outcome = "stored"
	}
	s.observe(outcome, start, len(table))
	if s.metrics != nil && s.cache != nil {
		if hit {
			s.metrics.CacheHitsTotal.Inc()
		} else {
			s.metrics.CacheMissesTotal.Inc()
		}
	}
	span.SetAttr("cache_hit", hit)
	logger.FromContext(ctx).Info("corpus scored",
		"fingerprint", fingerprint,
		"documents", result.Documents,
		"terms", result.Terms,
		"rows", len(table),
		"cache_hit", hit,
		"from_store", fromStore,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// storedRun loads the latest persisted table for fingerprint. Store errors
// are logged and reported as a miss so scoring falls back to the engine.
func (s *Service) storedRun(ctx context.Context, fingerprint string) (*store.Run, tfidf.ScoreTable, bool) {
	_, span := tracing.Start(ctx, "load")
	defer span.End()
	run, ok, err := s.store.LatestRun(ctx, fingerprint)
	if err != nil {
		s.logger.Error("looking up scoring run failed", "fingerprint", fingerprint, "error", err)
		return nil, nil, false
	}
	if !ok {
		return nil, nil, false
	}
	_, table, err := s.store.LoadRun(ctx, run.ID)
	if err != nil {
		s.logger.Error("loading scoring run failed", "run_id", run.ID, "error", err)
		return nil, nil, false
	}
	span.SetAttr("run_id", run.ID)
	return run, table, true
}

// persist saves table and returns the new run ID, or 0 when saving failed.
func (s *Service) persist(ctx context.Context, fingerprint string, table tfidf.ScoreTable) int64 {
	_, span := tracing.Start(ctx, "persist")
	defer span.End()
	run, err := s.store.SaveRun(ctx, fingerprint, table)
	if err != nil {
		s.logger.Error("persisting scoring run failed", "fingerprint", fingerprint, "error", err)
		return 0
	}
	return run.ID
}

// ScoreCurrent scores a snapshot of the ingested corpus. The result carries
// the corpus version the snapshot was taken at.
func (s *Service) ScoreCurrent(ctx context.Context) (*Result, error) {
	c, version := s.builder.VersionedSnapshot()
	result, err := s.Score(ctx, c)
	if err != nil {
		return nil, err
	}
	result.CorpusVersion = version
	return result, nil
}

// Top returns the k best terms of one ingested document.
func (s *Service) Top(ctx context.Context, docID string, k int) ([]tfidf.Score, error) {
	if !s.builder.Has(docID) {
		return nil, fmt.Errorf("document %q: %w", docID, apperrors.ErrDocumentNotFound)
	}
	result, err := s.ScoreCurrent(ctx)
	if err != nil {
		return nil, err
	}
	return result.Table.TopTerms(docID, k), nil
}

// AddDocument adds or replaces an ingested document.
func (s *Service) AddDocument(doc tfidf.Document, source string) error {
	if err := s.builder.Add(doc); err != nil {
		return err
	}
	s.recordMutation(source, "add")
	return nil
}

// RemoveDocument deletes an ingested document.
func (s *Service) RemoveDocument(id, source string) error {
	if err := s.builder.Remove(id); err != nil {
		return err
	}
	s.recordMutation(source, "delete")
	return nil
}

// Sink adapts the service to ingest.Sink, attributing mutations to source.
func (s *Service) Sink(source string) ingest.Sink {
	return sourceSink{svc: s, source: source}
}

type sourceSink struct {
	svc    *Service
	source string
}

func (k sourceSink) Add(doc tfidf.Document) error { return k.svc.AddDocument(doc, k.source) }

func (k sourceSink) Remove(id string) error { return k.svc.RemoveDocument(id, k.source) }

// SyncCorpusGauges refreshes the corpus size gauges.
func (s *Service) SyncCorpusGauges() {
	if s.metrics == nil {
		return
	}
	s.metrics.CorpusDocuments.Set(float64(s.builder.Len()))
	s.metrics.CorpusTokens.Set(float64(s.builder.TotalTokens()))
}

func (s *Service) recordMutation(source, action string) {
	if s.metrics == nil {
		return
	}
	s.metrics.DocumentsIngested.WithLabelValues(source, action).Inc()
	s.SyncCorpusGauges()
}

func (s *Service) observe(outcome string, start time.Time, rows int) {
	if s.metrics == nil {
		return
	}
	s.metrics.ScoringRunsTotal.WithLabelValues(outcome).Inc()
	s.metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	if outcome != "error" {
		s.metrics.ScoreRows.Observe(float64(rows))
	}
}
