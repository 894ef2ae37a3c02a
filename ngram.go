package abstractcluster

import (
	"fmt"
	"strings"
	"unicode"
)

// termTags are the only part-of-speech tags allowed inside a term.
var termTags = map[string]bool{"NN": true, "NNS": true, "JJ": true, "NNP": true}

// ClusterDocs is one accepted cluster handed to term extraction.
type ClusterDocs struct {
	ClusterID int
	Docs      Corpus
}

// ClusterCounts holds the qualifying n-gram counts of one cluster.
type ClusterCounts struct {
	ClusterID int
	Counts    map[string]int
	// Order lists terms in first-seen order.
	Order []string
	Total int
	// DocTerms is the qualifying n-gram set of each document, keyed by DocID.
	DocTerms map[string]map[string]bool
	DocOrder []string
}

// TermTable is the per-cluster count table for one n-gram length.
type TermTable struct {
	N        int
	Clusters []ClusterCounts
}

// TermFrequencyIndexer counts qualifying n-grams per cluster. Tagged
// sentences are cached per document so several n-gram lengths share one
// tagging pass.
type TermFrequencyIndexer struct {
	Tagger Tagger
	tagged map[string][][]TaggedToken
}

// NewTermFrequencyIndexer returns an indexer using t.
func NewTermFrequencyIndexer(t Tagger) *TermFrequencyIndexer {
	return &TermFrequencyIndexer{Tagger: t, tagged: make(map[string][][]TaggedToken)}
}

// Index builds the n-gram table for the given clusters.
func (ix *TermFrequencyIndexer) Index(clusters []ClusterDocs, n int) (*TermTable, error) {
	if n < 1 {
		return nil, fmt.Errorf("invalid n-gram length %d", n)
	}
	table := &TermTable{N: n, Clusters: make([]ClusterCounts, 0, len(clusters))}
	for _, c := range clusters {
		cc := ClusterCounts{
			ClusterID: c.ClusterID,
			Counts:    make(map[string]int),
			DocTerms:  make(map[string]map[string]bool, len(c.Docs)),
		}
		for _, doc := range c.Docs {
			sentences, err := ix.sentences(doc)
			if err != nil {
				return nil, fmt.Errorf("failed to tag document %s: %w", doc.DocID, err)
			}
			terms := make(map[string]bool)
			for _, s := range sentences {
				for _, term := range QualifyingNGrams(s, n) {
					if cc.Counts[term] == 0 {
						cc.Order = append(cc.Order, term)
					}
					cc.Counts[term]++
					cc.Total++
					terms[term] = true
				}
			}
			cc.DocTerms[doc.DocID] = terms
			cc.DocOrder = append(cc.DocOrder, doc.DocID)
		}
		table.Clusters = append(table.Clusters, cc)
	}
	return table, nil
}

// Reset drops the tagging cache.
func (ix *TermFrequencyIndexer) Reset() {
	ix.tagged = make(map[string][][]TaggedToken)
}

func (ix *TermFrequencyIndexer) sentences(doc *Document) ([][]TaggedToken, error) {
	if s, ok := ix.tagged[doc.DocID]; ok {
		return s, nil
	}
	if ix.tagged == nil {
		ix.tagged = make(map[string][][]TaggedToken)
	}
	raw, err := cleanSentences(ix.Tagger, doc.Text())
	if err != nil {
		return nil, err
	}
	out := make([][]TaggedToken, 0, len(raw))
	for _, s := range raw {
		tokens, err := ix.Tagger.Tag(s)
		if err != nil {
			return nil, err
		}
		out = append(out, tokens)
	}
	ix.tagged[doc.DocID] = out
	return out, nil
}

// QualifyingNGrams returns the normalised keys of every qualifying n-gram
// of the sentence, in order and with repeats.
func QualifyingNGrams(sentence []TaggedToken, n int) []string {
	var out []string
	for i := 0; i+n <= len(sentence); i++ {
		gram := sentence[i : i+n]
		if !qualifies(gram) {
			continue
		}
		words := make([]string, n)
		for j, tok := range gram {
			words[j] = normalizeToken(tok.Text)
		}
		out = append(out, strings.Join(words, " "))
	}
	return out
}

func qualifies(gram []TaggedToken) bool {
	if last := gram[len(gram)-1].Tag; last != "NN" && last != "NNS" {
		return false
	}
	hasNoun := false
	for _, tok := range gram {
		if !termTags[tok.Tag] || !isWord(tok.Text) || IsStopWord(tok.Text) {
			return false
		}
		if strings.HasPrefix(tok.Tag, "NN") {
			hasNoun = true
		}
	}
	return hasNoun
}

// isWord reports whether s is made only of letters and underscores.
func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && r != '_' {
			return false
		}
	}
	return true
}

// normalizeToken lower-cases a token unless it is an acronym.
func normalizeToken(s string) string {
	if isUpperWord(s) {
		return s
	}
	return lower(s)
}

func isUpperWord(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func lower(s string) string {
	return strings.ToLower(s)
}
