package abstractcluster

import (
	"math"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"
)

// Term is a ranked n-gram of one cluster.
type Term struct {
	Text       string   `json:"term"`
	N          int      `json:"n"`
	Freq       int      `json:"freq"`
	TF         float64  `json:"tf"`
	IDF        float64  `json:"idf"`
	Score      float64  `json:"score"`
	DocIDs     []string `json:"doc_ids"`
	ClusterIDs []int    `json:"cluster_ids,omitempty"`
	Plural     string   `json:"plural,omitempty"`
}

// TFIDFScorer ranks terms treating each cluster as one document.
type TFIDFScorer struct {
	// CandidateLimit caps the ranked list before document coverage. Zero
	// keeps every term.
	CandidateLimit int
}

// Rank scores every term of the table and returns the ranked terms of each
// cluster keyed by cluster id. Terms found in no document are dropped.
func (s TFIDFScorer) Rank(table *TermTable) map[int][]Term {
	total := len(table.Clusters)
	df := make(map[string][]int)
	for _, cc := range table.Clusters {
		for _, term := range cc.Order {
			df[term] = append(df[term], cc.ClusterID)
		}
	}

	ranked := make(map[int][]Term, total)
	for _, cc := range table.Clusters {
		terms := make([]Term, 0, len(cc.Order))
		for _, text := range cc.Order {
			clusters := append([]int(nil), df[text]...)
			sort.Ints(clusters)
			tf := float64(cc.Counts[text]) / float64(cc.Total)
			idf := math.Log10(float64(total) / float64(len(clusters)))
			terms = append(terms, Term{
				Text:       text,
				N:          table.N,
				Freq:       cc.Counts[text],
				TF:         tf,
				IDF:        idf,
				Score:      tf * idf,
				ClusterIDs: clusters,
			})
		}
		sort.SliceStable(terms, func(i, j int) bool { return terms[i].Score > terms[j].Score })
		if s.CandidateLimit > 0 && len(terms) > s.CandidateLimit {
			terms = terms[:s.CandidateLimit]
		}
		ranked[cc.ClusterID] = Coverage(cc, terms)
	}
	return ranked
}

// Coverage fills each term's DocIDs with the cluster documents whose
// qualifying n-grams include it, and drops terms no document contains.
func Coverage(cc ClusterCounts, terms []Term) []Term {
	out := terms[:0]
	for _, t := range terms {
		var docs []string
		for _, id := range cc.DocOrder {
			if cc.DocTerms[id][t.Text] {
				docs = append(docs, id)
			}
		}
		if len(docs) == 0 {
			continue
		}
		t.DocIDs = docs
		t.Plural = pluralize(t.Text)
		out = append(out, t)
	}
	return out
}

// FrequencyTerms ranks the terms of every cluster of the table by frequency
// plus range, the number of cluster documents containing the term, and keeps
// the first limit of each.
func FrequencyTerms(table *TermTable, limit int) map[int][]Term {
	ranked := make(map[int][]Term, len(table.Clusters))
	for _, cc := range table.Clusters {
		terms := make([]Term, 0, len(cc.Order))
		for _, text := range cc.Order {
			terms = append(terms, Term{Text: text, N: table.N, Freq: cc.Counts[text], ClusterIDs: []int{cc.ClusterID}})
		}
		terms = Coverage(cc, terms)
		for i := range terms {
			terms[i].Score = float64(terms[i].Freq + len(terms[i].DocIDs))
		}
		sort.SliceStable(terms, func(i, j int) bool { return terms[i].Score > terms[j].Score })
		ranked[cc.ClusterID] = terms[:min(len(terms), max(limit, 0))]
	}
	return ranked
}

// pluralize returns the term with its final word in plural form.
func pluralize(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}
	last := len(words) - 1
	if isUpperWord(words[last]) {
		return text
	}
	words[last] = inflection.Plural(words[last])
	return strings.Join(words, " ")
}
