package abstractcluster

import (
	"fmt"
	"sort"
)

// Point is a 2-D projection of a document embedding.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Document is a single abstract. Documents are shared by pointer between
// iteration corpora and are not modified once the pipeline starts.
type Document struct {
	DocID      string    `json:"doc_id"`
	Title      string    `json:"title"`
	Abstract   string    `json:"abstract"`
	Embedding  []float64 `json:"-"`
	Projection *Point    `json:"projection,omitempty"`
}

// Text is the string used for embedding and term extraction.
func (d *Document) Text() string {
	if d.Title == "" {
		return d.Abstract
	}
	return d.Title + ". " + d.Abstract
}

// Corpus is an ordered set of documents.
type Corpus []*Document

// IDs returns the document ids in corpus order.
func (c Corpus) IDs() []string {
	ids := make([]string, len(c))
	for i, d := range c {
		ids[i] = d.DocID
	}
	return ids
}

// Embeddings returns the embedding rows in corpus order.
func (c Corpus) Embeddings() [][]float64 {
	rows := make([][]float64, len(c))
	for i, d := range c {
		rows[i] = d.Embedding
	}
	return rows
}

// Index maps document ids to their position in the corpus.
func (c Corpus) Index() map[string]int {
	idx := make(map[string]int, len(c))
	for i, d := range c {
		idx[d.DocID] = i
	}
	return idx
}

// Width returns the embedding width of the first non-nil document.
func (c Corpus) Width() int {
	for _, d := range c {
		if d != nil {
			return len(d.Embedding)
		}
	}
	return 0
}

// Validate checks that ids are unique and that every document carries an
// embedding of the same width.
func (c Corpus) Validate() error {
	seen := make(map[string]bool, len(c))
	var dup, missing, ragged []string
	width := c.Width()

	for i, d := range c {
		if d == nil {
			missing = append(missing, fmt.Sprintf("#%d", i))
			continue
		}
		if seen[d.DocID] {
			dup = append(dup, d.DocID)
		}
		seen[d.DocID] = true
		if len(d.Embedding) == 0 {
			missing = append(missing, d.DocID)
		} else if len(d.Embedding) != width {
			ragged = append(ragged, d.DocID)
		}
	}

	switch {
	case len(dup) > 0:
		sort.Strings(dup)
		return &DataIntegrityError{Reason: "duplicate document ids", DocIDs: dup}
	case len(missing) > 0:
		return &DataIntegrityError{Reason: "documents without embeddings", DocIDs: missing}
	case len(ragged) > 0:
		return &DataIntegrityError{Reason: fmt.Sprintf("embedding width differs from %d", width), DocIDs: ragged}
	}
	return nil
}

// Select returns the documents with the given ids, in the order given. Ids
// that are not in the corpus are reported as a DataIntegrityError.
func (c Corpus) Select(ids []string) (Corpus, error) {
	idx := c.Index()
	out := make(Corpus, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		i, ok := idx[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		out = append(out, c[i])
	}
	if len(unknown) > 0 {
		return nil, &DataIntegrityError{Reason: "unknown document ids", DocIDs: unknown}
	}
	return out, nil
}
