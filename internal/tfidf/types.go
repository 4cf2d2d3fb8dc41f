// Package tfidf scores every (document, term) pair of a tokenized corpus by
// term frequency times inverse document frequency.
//
// The engine never tokenizes: documents arrive as ordered token slices and
// tokens are compared by exact string equality. All functions are pure; a
// Corpus must not be mutated while it is being scored.
package tfidf

import "sort"

// Document is an identified, ordered token sequence. Tokens may repeat.
type Document struct {
	ID     string   `json:"id"`
	Tokens []string `json:"tokens"`
}

// Corpus is a set of documents with unique IDs.
type Corpus []Document

// TermCount is the number of occurrences of Term in document DocID. Only
// pairs with N > 0 are ever produced.
type TermCount struct {
	DocID string `json:"doc_id"`
	Term  string `json:"term"`
	N     int    `json:"n"`
}

// Score is one row of the score table.
type Score struct {
	DocID string  `json:"doc_id"`
	Term  string  `json:"term"`
	N     int     `json:"n"`
	Total int     `json:"total"`
	TF    float64 `json:"tf"`
	IDF   float64 `json:"idf"`
	TFIDF float64 `json:"tf_idf"`
}

// ScoreTable holds Score rows ordered by (DocID, Term).
type ScoreTable []Score

// Lookup returns the row for (docID, term).
func (t ScoreTable) Lookup(docID, term string) (Score, bool) {
	i := sort.Search(len(t), func(i int) bool {
		if t[i].DocID != docID {
			return t[i].DocID >= docID
		}
		return t[i].Term >= term
	})
	if i < len(t) && t[i].DocID == docID && t[i].Term == term {
		return t[i], true
	}
	return Score{}, false
}

// ForDocument returns the rows of one document, ordered by term.
func (t ScoreTable) ForDocument(docID string) []Score {
	lo := sort.Search(len(t), func(i int) bool { return t[i].DocID >= docID })
	hi := lo
	for hi < len(t) && t[hi].DocID == docID {
		hi++
	}
	if lo == hi {
		return nil
	}
	out := make([]Score, hi-lo)
	copy(out, t[lo:hi])
	return out
}

// Documents returns the distinct document IDs in the table, ascending.
func (t ScoreTable) Documents() []string {
	ids := make([]string, 0)
	for i, s := range t {
		if i == 0 || t[i-1].DocID != s.DocID {
			ids = append(ids, s.DocID)
		}
	}
	return ids
}

// Terms returns the number of distinct terms across the table.
func (t ScoreTable) Terms() int {
	seen := make(map[string]struct{})
	for _, s := range t {
		seen[s.Term] = struct{}{}
	}
	return len(seen)
}

func sortTable(t ScoreTable) {
	sort.Slice(t, func(i, j int) bool {
		if t[i].DocID != t[j].DocID {
			return t[i].DocID < t[j].DocID
		}
		return t[i].Term < t[j].Term
	})
}
