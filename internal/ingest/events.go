// Package ingest feeds the corpus builder from the document topic and
// announces finished scoring runs on the scores topic.
package ingest

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxIDLength   = 255
	maxTextLength = 8 << 20
)

// DocumentEvent adds, replaces or deletes one corpus document. Tokens wins
// over Text when both are set; Text is tokenized with the service options.
type DocumentEvent struct {
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text,omitempty"`
	Tokens     []string  `json:"tokens,omitempty"`
	Deleted    bool      `json:"deleted,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

// ScoresComputedEvent is published after every scoring run.
type ScoresComputedEvent struct {
	RunID       int64     `json:"run_id,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Rows        int       `json:"rows"`
	CacheHit    bool      `json:"cache_hit"`
	ComputedAt  time.Time `json:"computed_at"`
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// Validate checks an event before it touches the builder.
func Validate(ev *DocumentEvent) error {
	errs := make(map[string]string)
	id := strings.TrimSpace(ev.DocumentID)
	if id == "" {
		errs["document_id"] = "document_id is required"
	} else if len(id) > maxIDLength {
		errs["document_id"] = fmt.Sprintf("document_id must be at most %d characters", maxIDLength)
	}
	if !ev.Deleted {
		if len(ev.Text) > maxTextLength {
			errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
		}
		for i, tok := range ev.Tokens {
			if tok == "" {
				errs["tokens"] = fmt.Sprintf("token %d is empty", i)
				break
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
