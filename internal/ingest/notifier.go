package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/resilience"
)

const defaultPublishTimeout = 5 * time.Second

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
}

// Notifier announces scoring runs. Publish failures are logged, never
// returned, and each publish is bounded so a slow broker cannot hold up a
// scoring request.
type Notifier struct {
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger
}

func NewNotifier(p Publisher) *Notifier {
	return &Notifier{
		publisher: p,
		timeout:   defaultPublishTimeout,
		logger:    slog.Default().With("component", "scores-notifier"),
	}
}

func (n *Notifier) ScoresComputed(ctx context.Context, ev ScoresComputedEvent) {
	err := resilience.WithTimeout(ctx, n.timeout, "publish scores-computed", func(ctx context.Context) error {
		return n.publisher.Publish(ctx, ev.Fingerprint, ev)
	})
	if err != nil {
		n.logger.Error("failed to publish scores-computed event",
			"fingerprint", ev.Fingerprint,
			"error", err,
		)
	}
}
