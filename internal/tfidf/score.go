package tfidf

import (
	"context"
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/errors"
)

// TermFrequency returns n / total. A zero-token document has no defined term
// frequency and yields ErrDivisionUndefined rather than a conventional zero.
func TermFrequency(tc TermCount, total int) (float64, error) {
	if total <= 0 {
		return 0, fmt.Errorf("document %q: %w", tc.DocID, apperrors.ErrDivisionUndefined)
	}
	if tc.N < 0 || tc.N > total {
		return 0, fmt.Errorf("document %q term %q: count %d outside [0, %d]: %w",
			tc.DocID, tc.Term, tc.N, total, apperrors.ErrInvalidInput)
	}
	return float64(tc.N) / float64(total), nil
}

// DocumentFrequency counts the documents containing term at least once.
func DocumentFrequency(term string, corpus Corpus) int {
	df := 0
	for _, doc := range corpus {
		for _, tok := range doc.Tokens {
			if tok == term {
				df++
				break
			}
		}
	}
	return df
}

// InverseDocumentFrequency returns ln(N / df), where N counts the documents
// holding at least one token.
func InverseDocumentFrequency(term string, corpus Corpus) (float64, error) {
	return inverseDocumentFrequency(nonEmptyDocuments(corpus), DocumentFrequency(term, corpus), term)
}

// TFIDF returns TermFrequency(tc, total) * InverseDocumentFrequency(tc.Term, corpus).
func TFIDF(tc TermCount, total int, corpus Corpus) (float64, error) {
	tf, err := TermFrequency(tc, total)
	if err != nil {
		return 0, err
	}
	idf, err := InverseDocumentFrequency(tc.Term, corpus)
	if err != nil {
		return 0, err
	}
	return tf * idf, nil
}

// ScoreCorpus scores every (document, term) pair with a nonzero count. It
// either returns the complete table, ordered by (DocID, Term), or an error.
func ScoreCorpus(ctx context.Context, corpus Corpus) (ScoreTable, error) {
	if len(corpus) == 0 {
		return nil, fmt.Errorf("scoring corpus: %w", apperrors.ErrEmptyCorpus)
	}
	counts, err := CountTerms(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("scoring corpus: %w", err)
	}

	totals := make(map[string]int, len(corpus))
	for _, doc := range corpus {
		totals[doc.ID] = TotalTokens(doc)
	}
	n := nonEmptyDocuments(corpus)
	if n == 0 {
		return nil, fmt.Errorf("scoring corpus: all %d documents have no tokens: %w",
			len(corpus), apperrors.ErrEmptyCorpus)
	}

	// Each count row is a distinct (document, term) pair, so counting rows
	// per term gives document frequency without rescanning tokens.
	df := make(map[string]int)
	for _, tc := range counts {
		df[tc.Term]++
	}
	idfs := make(map[string]float64, len(df))
	for term, d := range df {
		idf, err := inverseDocumentFrequency(n, d, term)
		if err != nil {
			return nil, fmt.Errorf("scoring corpus: %w", err)
		}
		idfs[term] = idf
	}

	table := make(ScoreTable, 0, len(counts))
	for _, tc := range counts {
		total := totals[tc.DocID]
		tf, err := TermFrequency(tc, total)
		if err != nil {
			return nil, fmt.Errorf("scoring corpus: %w", err)
		}
		idf := idfs[tc.Term]
		table = append(table, Score{
			DocID: tc.DocID,
			Term:  tc.Term,
			N:     tc.N,
			Total: total,
			TF:    tf,
			IDF:   idf,
			TFIDF: tf * idf,
		})
	}
	sortTable(table)
	return table, nil
}

func inverseDocumentFrequency(n, df int, term string) (float64, error) {
	if n == 0 {
		return 0, fmt.Errorf("idf of %q: %w", term, apperrors.ErrEmptyCorpus)
	}
	if df == 0 {
		return 0, fmt.Errorf("idf of %q: %w", term, apperrors.ErrTermNotInCorpus)
	}
	return math.Log(float64(n) / float64(df)), nil
}

func nonEmptyDocuments(corpus Corpus) int {
	n := 0
	for _, doc := range corpus {
		if len(doc.Tokens) > 0 {
			n++
		}
	}
	return n
}
