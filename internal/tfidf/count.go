package tfidf

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/errors"
)

// CountTerms returns one TermCount per distinct term of every document,
// ordered by (DocID, Term). Documents are counted concurrently; a document
// with no tokens contributes no rows.
func CountTerms(ctx context.Context, corpus Corpus) ([]TermCount, error) {
	if err := validate(corpus); err != nil {
		return nil, err
	}
	perDoc := make([][]TermCount, len(corpus))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range corpus {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perDoc[i] = countDocument(corpus[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("counting terms: %w", err)
	}

	total := 0
	for _, rows := range perDoc {
		total += len(rows)
	}
	counts := make([]TermCount, 0, total)
	for _, rows := range perDoc {
		counts = append(counts, rows...)
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].DocID < counts[j].DocID
	})
	return counts, nil
}

// TotalTokens is the length of the document's token sequence.
func TotalTokens(doc Document) int {
	return len(doc.Tokens)
}

func countDocument(doc Document) []TermCount {
	if len(doc.Tokens) == 0 {
		return nil
	}
	freq := make(map[string]int)
	for _, tok := range doc.Tokens {
		freq[tok]++
	}
	rows := make([]TermCount, 0, len(freq))
	for term, n := range freq {
		rows = append(rows, TermCount{DocID: doc.ID, Term: term, N: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Term < rows[j].Term
	})
	return rows
}

// validate rejects duplicate document IDs.
func validate(corpus Corpus) error {
	seen := make(map[string]struct{}, len(corpus))
	for _, doc := range corpus {
		if _, dup := seen[doc.ID]; dup {
			return fmt.Errorf("duplicate document id %q: %w", doc.ID, apperrors.ErrInvalidInput)
		}
		seen[doc.ID] = struct{}{}
	}
	return nil
}
