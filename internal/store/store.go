// Package store persists scoring runs and their score tables in PostgreSQL.
// Each run is written in a single transaction, rows bulk-loaded with COPY.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tfidf"
	apperrors "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS scoring_runs (
	id          BIGSERIAL PRIMARY KEY,
	fingerprint TEXT        NOT NULL,
	documents   INTEGER     NOT NULL,
	terms       INTEGER     NOT NULL,
	row_count   INTEGER     NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS scoring_runs_fingerprint_idx ON scoring_runs (fingerprint);
CREATE TABLE IF NOT EXISTS tfidf_scores (
	run_id  BIGINT           NOT NULL REFERENCES scoring_runs (id) ON DELETE CASCADE,
	doc_id  TEXT             NOT NULL,
	term    TEXT             NOT NULL,
	n       INTEGER          NOT NULL,
	total   INTEGER          NOT NULL,
	tf      DOUBLE PRECISION NOT NULL,
	idf     DOUBLE PRECISION NOT NULL,
	tf_idf  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, doc_id, term)
);`

// Run describes one persisted scoring of a corpus.
type Run struct {
	ID          int64     `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Rows        int       `json:"rows"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store reads and writes scoring runs.
type Store struct {
	db     *postgres.Client
	retry  resilience.RetryConfig
	logger *slog.Logger
}

// New creates a Store on db. Call EnsureSchema before first use.
func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "score-store"),
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveRun writes the run header and every score row atomically, retrying
// transient failures.
func (s *Store) SaveRun(ctx context.Context, fingerprint string, table tfidf.ScoreTable) (*Run, error) {
	run := &Run{
		Fingerprint: fingerprint,
		Documents:   len(table.Documents()),
		Terms:       table.Terms(),
		Rows:        len(table),
	}
	err := resilience.Retry(ctx, "save-scoring-run", s.retry, func() error {
		return s.db.InTx(ctx, func(tx *sql.Tx) error {
			return insertRun(ctx, tx, run, table)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("saving scoring run: %w", err)
	}
	s.logger.Info("scoring run saved",
		"run_id", run.ID,
		"fingerprint", fingerprint,
		"rows", run.Rows,
	)
	return run, nil
}

func insertRun(ctx context.Context, tx *sql.Tx, run *Run, table tfidf.ScoreTable) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO scoring_runs (fingerprint, documents, terms, row_count)
		 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		run.Fingerprint, run.Documents, run.Terms, run.Rows,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("tfidf_scores",
		"run_id", "doc_id", "term", "n", "total", "tf", "idf", "tf_idf"))
	if err != nil {
		return fmt.Errorf("preparing copy: %w", err)
	}
	defer stmt.Close()
	for _, row := range table {
		if _, err := stmt.ExecContext(ctx,
			run.ID, row.DocID, row.Term, row.N, row.Total, row.TF, row.IDF, row.TFIDF,
		); err != nil {
			return fmt.Errorf("copying score row: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flushing copy: %w", err)
	}
	return nil
}

// LoadRun returns a run header and its table, byte-ordered by (doc_id, term)
// so ScoreTable lookups work on the result.
func (s *Store) LoadRun(ctx context.Context, runID int64) (*Run, tfidf.ScoreTable, error) {
	run := &Run{}
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, fingerprint, documents, terms, row_count, created_at
		 FROM scoring_runs WHERE id = $1`, runID,
	).Scan(&run.ID, &run.Fingerprint, &run.Documents, &run.Terms, &run.Rows, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("scoring run %d: %w", runID, apperrors.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading run %d: %w", runID, err)
	}

	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT doc_id, term, n, total, tf, idf, tf_idf
		 FROM tfidf_scores WHERE run_id = $1 ORDER BY doc_id COLLATE "C", term COLLATE "C"`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying scores of run %d: %w", runID, err)
	}
	defer rows.Close()
	table := make(tfidf.ScoreTable, 0, run.Rows)
	for rows.Next() {
		var sc tfidf.Score
		if err := rows.Scan(&sc.DocID, &sc.Term, &sc.N, &sc.Total, &sc.TF, &sc.IDF, &sc.TFIDF); err != nil {
			return nil, nil, fmt.Errorf("scanning score row: %w", err)
		}
		table = append(table, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating scores of run %d: %w", runID, err)
	}
	return run, table, nil
}

// LatestRun returns the most recent run for fingerprint, if any.
func (s *Store) LatestRun(ctx context.Context, fingerprint string) (*Run, bool, error) {
	run := &Run{}
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, fingerprint, documents, terms, row_count, created_at
		 FROM scoring_runs WHERE fingerprint = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`, fingerprint,
	).Scan(&run.ID, &run.Fingerprint, &run.Documents, &run.Terms, &run.Rows, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying latest run: %w", err)
	}
	return run, true, nil
}
