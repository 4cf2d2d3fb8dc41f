package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(context.Background(), testPostgresConfig())
	if err != nil {
		t.Skipf("skipping store test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "tidytext_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "tidytext"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func TestSaveAndLoadRun(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	s := New(db)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	table, err := tfidf.ScoreCorpus(ctx, tfidf.Corpus{
		{ID: "doc1", Tokens: []string{"a", "a", "b"}},
		{ID: "doc2", Tokens: []string{"a", "c"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	fingerprint := fmt.Sprintf("test-%d", time.Now().UnixNano())
	run, err := s.SaveRun(ctx, fingerprint, table)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	t.Cleanup(func() {
		db.DB.Exec(`DELETE FROM scoring_runs WHERE id = $1`, run.ID)
	})
	if run.Documents != 2 || run.Terms != 3 || run.Rows != 4 {
		t.Errorf("run = %+v", run)
	}

	loadedRun, loaded, err := s.LoadRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if loadedRun.Fingerprint != fingerprint || len(loaded) != len(table) {
		t.Fatalf("loaded run %+v with %d rows", loadedRun, len(loaded))
	}
	for i := range table {
		if loaded[i] != table[i] {
			t.Errorf("row %d = %+v, want %+v", i, loaded[i], table[i])
		}
	}

	latest, ok, err := s.LatestRun(ctx, fingerprint)
	if err != nil || !ok || latest.ID != run.ID {
		t.Errorf("LatestRun = %+v, %v, %v", latest, ok, err)
	}
}

func TestLoadRunNotFound(t *testing.T) {
	db := skipIfNoPostgres(t)
	s := New(db)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, _, err := s.LoadRun(context.Background(), -1)
	if !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
	_, ok, err := s.LatestRun(context.Background(), "no-such-fingerprint")
	if err != nil || ok {
		t.Fatalf("LatestRun = %v, %v", ok, err)
	}
}
