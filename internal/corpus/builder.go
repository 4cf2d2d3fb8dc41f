// Package corpus accumulates tokenized documents and hands out immutable
// snapshots for scoring. It also loads documents from text files and
// fingerprints corpora for cache and persistence keys.
package corpus

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/internal/tfidf"
	apperrors "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/errors"
)

// Builder is a concurrency-safe document set. Writers call Add and Remove;
// scoring only ever sees the copy returned by Snapshot.
type Builder struct {
	mu      sync.RWMutex
	docs    map[string][]string
	tokens  int64
	version uint64
	logger  *slog.Logger
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		docs:   make(map[string][]string),
		logger: slog.Default().With("component", "corpus-builder"),
	}
}

// Add inserts or replaces a document. The token slice is copied.
func (b *Builder) Add(doc tfidf.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("adding document: empty id: %w", apperrors.ErrInvalidInput)
	}
	tokens := make([]string, len(doc.Tokens))
	copy(tokens, doc.Tokens)

	b.mu.Lock()
	defer b.mu.Unlock()
	old, replaced := b.docs[doc.ID]
	b.tokens += int64(len(tokens) - len(old))
	b.docs[doc.ID] = tokens
	b.version++
	b.logger.Debug("document added",
		"doc_id", doc.ID,
		"token_count", len(tokens),
		"replaced", replaced,
	)
	return nil
}

// Remove deletes a document, returning ErrDocumentNotFound if absent.
func (b *Builder) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	old, ok := b.docs[id]
	if !ok {
		return fmt.Errorf("removing document %q: %w", id, apperrors.ErrDocumentNotFound)
	}
	b.tokens -= int64(len(old))
	delete(b.docs, id)
	b.version++
	b.logger.Debug("document removed", "doc_id", id)
	return nil
}

// Has reports whether id is present.
func (b *Builder) Has(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.docs[id]
	return ok
}

func (b *Builder) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.docs)
}

// TotalTokens is the token count summed over every document.
func (b *Builder) TotalTokens() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tokens
}

// Snapshot returns a deep copy of the current documents ordered by ID.
func (b *Builder) Snapshot() tfidf.Corpus {
	c, _ := b.VersionedSnapshot()
	return c
}

// VersionedSnapshot is Snapshot plus the version it was taken at. The
// version increases on every mutation.
func (b *Builder) VersionedSnapshot() (tfidf.Corpus, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(tfidf.Corpus, 0, len(b.docs))
	for id, tokens := range b.docs {
		cp := make([]string, len(tokens))
		copy(cp, tokens)
		out = append(out, tfidf.Document{ID: id, Tokens: cp})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, b.version
}
