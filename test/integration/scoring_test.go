//go:build integration

// Package integration runs the scoring API against real Redis, PostgreSQL
// and Kafka. Each test skips when its dependency is unreachable.
//
// Run with:
//
//	go test -v -tags=integration ./test/integration/...
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/api"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/ingest"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/service"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/resilience"
)

func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(context.Background(), config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "tidytext_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "tidytext"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func skipIfNoRedis(t *testing.T) *pkgredis.Client {
	t.Helper()
	client, err := pkgredis.NewClient(context.Background(), config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		DB:       envOrDefaultInt("TEST_REDIS_DB", 15),
		PoolSize: 5,
	})
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func kafkaConfig(t *testing.T) config.KafkaConfig {
	t.Helper()
	broker := envOrDefault("TEST_KAFKA_BROKER", "localhost:9092")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, err := kafkago.DialContext(ctx, "tcp", broker)
	if err != nil {
		t.Skipf("skipping integration test: kafka unavailable: %v", err)
	}
	conn.Close()
	return config.KafkaConfig{
		Enabled:       true,
		Brokers:       []string{broker},
		ConsumerGroup: fmt.Sprintf("tidytext-it-%d", time.Now().UnixNano()),
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// TestScoreIsCachedAndPersisted scores the same corpus twice through the
// HTTP API and checks the second request is served from Redis while exactly
// one run lands in PostgreSQL.
func TestScoreIsCachedAndPersisted(t *testing.T) {
	db := skipIfNoPostgres(t)
	redisClient := skipIfNoRedis(t)
	ctx := context.Background()

	st := store.New(db)
	if err := st.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	scoreCache := cache.New(cache.Guarded(redisClient, resilience.BreakerConfig{}), time.Minute)
	if _, err := scoreCache.Invalidate(ctx); err != nil {
		t.Fatalf("clearing cache: %v", err)
	}
	svc := service.New(corpus.NewBuilder(),
		service.WithCache(scoreCache),
		service.WithStore(st),
		service.WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	h := api.New(svc, scoreCache, api.Config{DefaultTopK: 5, MaxTopK: 50, Tokenizer: tokenizer.DefaultOptions()})
	srv := httptest.NewServer(api.NewRouter(h, health.NewChecker(), nil, 10*time.Second))
	defer srv.Close()

	unique := strconv.FormatInt(time.Now().UnixNano(), 36)
	body := map[string]any{
		"documents": []map[string]any{
			{"document_id": "emma-" + unique, "text": "Emma Woodhouse, handsome, clever, and rich"},
			{"document_id": "persuasion-" + unique, "text": "Sir Walter Elliot, of Kellynch Hall"},
		},
	}
	var results [2]service.Result
	for i := range results {
		resp := postJSON(t, srv.URL+"/api/v1/score", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("score %d: status %d", i, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&results[i]); err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}
	if results[0].CacheHit || !results[1].CacheHit {
		t.Errorf("cache hits = %v, %v; want false, true", results[0].CacheHit, results[1].CacheHit)
	}

	run, ok, err := st.LatestRun(ctx, results[0].Fingerprint)
	if err != nil || !ok {
		t.Fatalf("LatestRun = %v, %v", ok, err)
	}
	t.Cleanup(func() {
		db.DB.Exec(`DELETE FROM scoring_runs WHERE fingerprint = $1`, results[0].Fingerprint)
	})
	if run.ID != results[0].RunID || run.Rows != len(results[0].Table) {
		t.Errorf("run = %+v, first result run id %d rows %d", run, results[0].RunID, len(results[0].Table))
	}
	_, table, err := st.LoadRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	for i := range table {
		if table[i] != results[1].Table[i] {
			t.Errorf("row %d: stored %+v, cached %+v", i, table[i], results[1].Table[i])
		}
	}

	// With the cache emptied the run is read back from PostgreSQL, not saved again.
	if _, err := scoreCache.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	resp := postJSON(t, srv.URL+"/api/v1/score", body)
	defer resp.Body.Close()
	var third service.Result
	if err := json.NewDecoder(resp.Body).Decode(&third); err != nil {
		t.Fatal(err)
	}
	if !third.FromStore || third.RunID != run.ID {
		t.Errorf("third = run %d from store %v, want run %d from store", third.RunID, third.FromStore, run.ID)
	}
	var runs int
	if err := db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scoring_runs WHERE fingerprint = $1`, results[0].Fingerprint,
	).Scan(&runs); err != nil {
		t.Fatal(err)
	}
	if runs != 1 {
		t.Errorf("%d runs stored for one corpus, want 1", runs)
	}
}

// TestKafkaIngestAndNotify publishes document events, waits for the
// consumer to apply them and checks a scores-computed event follows scoring.
func TestKafkaIngestAndNotify(t *testing.T) {
	cfg := kafkaConfig(t)
	suffix := strconv.FormatInt(time.Now().UnixNano(), 36)
	cfg.Topics = config.KafkaTopics{
		DocumentIngest: "documents.ingest.it-" + suffix,
		ScoresComputed: "tfidf.scores-computed.it-" + suffix,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	scoresProducer := kafka.NewProducer(cfg, cfg.Topics.ScoresComputed)
	defer scoresProducer.Close()
	svc := service.New(corpus.NewBuilder(), service.WithNotifier(ingest.NewNotifier(scoresProducer)))

	consumer := kafka.NewConsumer(cfg, cfg.Topics.DocumentIngest,
		ingest.HandleMessage(svc.Sink("kafka"), tokenizer.DefaultOptions()))
	go consumer.Start(ctx)

	docs := kafka.NewProducer(cfg, cfg.Topics.DocumentIngest)
	defer docs.Close()
	for _, ev := range []ingest.DocumentEvent{
		{DocumentID: "moby", Text: "Call me Ishmael", IngestedAt: time.Now()},
		{DocumentID: "pride", Text: "It is a truth universally acknowledged", IngestedAt: time.Now()},
	} {
		if err := docs.Publish(ctx, ev.DocumentID, ev); err != nil {
			t.Fatalf("publishing %s: %v", ev.DocumentID, err)
		}
	}

	for svc.Builder().Len() < 2 {
		select {
		case <-ctx.Done():
			t.Fatalf("timed out waiting for ingest, corpus has %d documents", svc.Builder().Len())
		case <-time.After(200 * time.Millisecond):
		}
	}

	result, err := svc.ScoreCurrent(ctx)
	if err != nil {
		t.Fatal(err)
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   cfg.Brokers,
		Topic:     cfg.Topics.ScoresComputed,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1e6,
	})
	defer reader.Close()
	msg, err := reader.ReadMessage(ctx)
	if err != nil {
		t.Fatalf("reading scores-computed event: %v", err)
	}
	ev, err := kafka.DecodeJSON[ingest.ScoresComputedEvent](msg.Value)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Fingerprint != result.Fingerprint || ev.Documents != 2 {
		t.Errorf("event = %+v, want fingerprint %s", ev, result.Fingerprint)
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
