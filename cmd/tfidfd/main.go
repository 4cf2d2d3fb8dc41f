package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

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
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	seedDir := flag.String("seed", "", "directory of *.txt documents to load at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting tf-idf service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokOpts := tokenizer.FromConfig(cfg.Engine.Tokenizer)
	builder := corpus.NewBuilder()
	if *seedDir != "" {
		docs, err := corpus.LoadDir(*seedDir, tokOpts)
		if err != nil {
			slog.Error("failed to load seed corpus", "dir", *seedDir, "error", err)
			os.Exit(1)
		}
		for _, doc := range docs {
			if err := builder.Add(doc); err != nil {
				slog.Error("failed to add seed document", "doc_id", doc.ID, "error", err)
				os.Exit(1)
			}
		}
		slog.Info("seed corpus loaded", "dir", *seedDir, "documents", builder.Len())
	}

	var opts []service.Option
	checker := health.NewChecker()
	checker.Register("engine", health.Static(health.StatusUp, "in-process"))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		opts = append(opts, service.WithMetrics(m))
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	var scoreCache *cache.ScoreCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, score caching disabled", "error", err)
			checker.Register("redis", health.Static(health.StatusDegraded, "unavailable at startup"))
		} else {
			defer redisClient.Close()
			guarded := cache.Guarded(redisClient, resilience.BreakerConfig{})
			scoreCache = cache.New(guarded, cfg.Redis.CacheTTL)
			opts = append(opts, service.WithCache(scoreCache))
			checker.Register("redis", redisCheck(redisClient, guarded))
			slog.Info("score cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, scoring runs will not be persisted", "error", err)
			checker.Register("postgres", health.Static(health.StatusDegraded, "unavailable at startup"))
		} else {
			defer db.Close()
			st := store.New(db)
			err := resilience.WithTimeout(ctx, 30*time.Second, "ensure schema", st.EnsureSchema)
			if err != nil {
				slog.Error("failed to prepare score store", "error", err)
				os.Exit(1)
			}
			opts = append(opts, service.WithStore(st))
			checker.Register("postgres", health.PingCheck(db, false))
			slog.Info("score persistence enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		}
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ScoresComputed)
		defer producer.Close()
		opts = append(opts, service.WithNotifier(ingest.NewNotifier(producer)))
	}

	svc := service.New(builder, opts...)
	svc.SyncCorpusGauges()

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest,
			ingest.HandleMessage(svc.Sink("kafka"), tokOpts))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("document consumer error", "error", err)
			}
		}()
		slog.Info("document ingest enabled",
			"brokers", cfg.Kafka.Brokers,
			"ingest_topic", cfg.Kafka.Topics.DocumentIngest,
			"scores_topic", cfg.Kafka.Topics.ScoresComputed,
		)
	}

	h := api.New(svc, scoreCache, api.Config{
		DefaultTopK:  cfg.Engine.DefaultTopK,
		MaxTopK:      cfg.Engine.MaxTopK,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Tokenizer:    tokOpts,
	})
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(h, checker, m, cfg.Server.WriteTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("tf-idf service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("tf-idf service stopped")
}

// redisCheck reports degraded while the ping fails or the cache breaker is
// open.
func redisCheck(client *pkgredis.Client, guarded *cache.GuardedBackend) health.Check {
	ping := health.PingCheck(client, false)
	return func(ctx context.Context) health.ComponentHealth {
		result := ping(ctx)
		if result.Status == health.StatusUp && guarded.State() != resilience.StateClosed {
			return health.ComponentHealth{
				Status:  health.StatusDegraded,
				Message: "circuit " + guarded.State().String(),
			}
		}
		return result
	}
}
