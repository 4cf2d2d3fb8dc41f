package tfidf

import "sort"

// TopTerms returns the k highest-scoring rows of docID by descending tf-idf,
// ties broken by ascending term. k <= 0 returns every row.
func (t ScoreTable) TopTerms(docID string, k int) []Score {
	rows := t.ForDocument(docID)
	rankScores(rows)
	if k > 0 && len(rows) > k {
		rows = rows[:k]
	}
	return rows
}

// TopK applies TopTerms to every document in the table.
func TopK(t ScoreTable, k int) map[string][]Score {
	result := make(map[string][]Score)
	for _, docID := range t.Documents() {
		result[docID] = t.TopTerms(docID, k)
	}
	return result
}

func rankScores(rows []Score) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TFIDF != rows[j].TFIDF {
			return rows[i].TFIDF > rows[j].TFIDF
		}
		return rows[i].Term < rows[j].Term
	})
}
