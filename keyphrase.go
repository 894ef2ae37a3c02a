package abstractcluster

import "fmt"

// DocumentTerms holds the key phrases of one document.
type DocumentTerms struct {
	DocID string `json:"doc_id"`
	Terms []Term `json:"terms"`
}

// KeyPhrases scores the n-grams of every document against the whole corpus,
// treating each document as a cluster of its own, and keeps the first limit
// phrases of each. The DocIDs of a phrase list every document containing it.
func KeyPhrases(ix *TermFrequencyIndexer, corpus Corpus, n, limit int) ([]DocumentTerms, error) {
	groups := make([]ClusterDocs, len(corpus))
	for i, d := range corpus {
		groups[i] = ClusterDocs{ClusterID: i, Docs: Corpus{d}}
	}
	table, err := ix.Index(groups, n)
	if err != nil {
		return nil, fmt.Errorf("failed to index documents: %w", err)
	}
	ranked := TFIDFScorer{}.Rank(table)

	out := make([]DocumentTerms, len(corpus))
	for i, d := range corpus {
		terms := ranked[i]
		terms = terms[:min(len(terms), max(limit, 0))]
		for k := range terms {
			ids := make([]string, len(terms[k].ClusterIDs))
			for j, pos := range terms[k].ClusterIDs {
				ids[j] = corpus[pos].DocID
			}
			terms[k].DocIDs = ids
			terms[k].ClusterIDs = nil
		}
		if terms == nil {
			terms = []Term{}
		}
		out[i] = DocumentTerms{DocID: d.DocID, Terms: terms}
	}
	return out, nil
}
