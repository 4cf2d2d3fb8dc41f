package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tfidf"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/kafka"
)

// Sink receives document mutations. *corpus.Builder satisfies it.
type Sink interface {
	Add(doc tfidf.Document) error
	Remove(id string) error
}

// Apply validates ev and applies it to sink. Deleting an unknown document is
// not an error.
func Apply(sink Sink, ev DocumentEvent, opts tokenizer.Options) error {
	if err := Validate(&ev); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	id := strings.TrimSpace(ev.DocumentID)
	if ev.Deleted {
		if err := sink.Remove(id); err != nil && !errors.Is(err, apperrors.ErrDocumentNotFound) {
			return err
		}
		return nil
	}
	return sink.Add(Document(ev, opts))
}

// Document converts an add event into an engine document, tokenizing Text
// unless Tokens is set.
func Document(ev DocumentEvent, opts tokenizer.Options) tfidf.Document {
	tokens := ev.Tokens
	if len(tokens) == 0 {
		tokens = tokenizer.Tokenize(ev.Text, opts)
	}
	return tfidf.Document{ID: strings.TrimSpace(ev.DocumentID), Tokens: tokens}
}

// HandleMessage returns a kafka.MessageHandler that applies document events
// to sink. Malformed or invalid events are logged and skipped so they do not
// block the partition.
func HandleMessage(sink Sink, opts tokenizer.Options) kafka.MessageHandler {
	logger := slog.Default().With("component", "ingest-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[DocumentEvent](value)
		if err != nil {
			logger.Error("failed to decode document event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if ev.DocumentID == "" {
			ev.DocumentID = string(key)
		}
		if err := Apply(sink, ev, opts); err != nil {
			if errors.Is(err, apperrors.ErrInvalidInput) {
				logger.Warn("skipping invalid document event",
					"doc_id", ev.DocumentID,
					"error", err,
				)
				return nil
			}
			return fmt.Errorf("applying document %s: %w", ev.DocumentID, err)
		}
		logger.Debug("document event applied",
			"doc_id", ev.DocumentID,
			"deleted", ev.Deleted,
		)
		return nil
	}
}
