package abstractcluster

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestReadCorpusCSV(t *testing.T) {
	input := `doc_id,title,abstract
d1,Urban Heat,"Air temperature rises, even at night."
d2,,Tree canopy provides shade.
d3,Empty abstract,
,No id,Skipped.
`
	corpus, err := readCorpusCSV(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(corpus.IDs(), []string{"d1", "d2"}) {
		t.Fatalf("unexpected ids %v", corpus.IDs())
	}
	if corpus[0].Abstract != "Air temperature rises, even at night." {
		t.Fatalf("unexpected abstract %q", corpus[0].Abstract)
	}
	if corpus[1].Text() != "Tree canopy provides shade." {
		t.Fatalf("untitled document text = %q", corpus[1].Text())
	}
}

func TestReadCorpusCSVHeaderVariants(t *testing.T) {
	corpus, err := readCorpusCSV(strings.NewReader("Abstract,ID\nHeat islands.,x1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(corpus) != 1 || corpus[0].DocID != "x1" || corpus[0].Title != "" {
		t.Fatalf("unexpected corpus %+v", corpus[0])
	}

	if _, err := readCorpusCSV(strings.NewReader("title,abstract\nA,B\n")); err == nil {
		t.Fatal("expected error for missing id column")
	}
	if _, err := readCorpusCSV(strings.NewReader("doc_id,title\n1,A\n")); err == nil {
		t.Fatal("expected error for missing abstract column")
	}
}

func TestReadCorpusCSVDuplicates(t *testing.T) {
	input := "doc_id,abstract\nd1,One.\nd2,Two.\nd1,Again.\n"
	_, err := readCorpusCSV(strings.NewReader(input))
	var integrity *DataIntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
	if !reflect.DeepEqual(integrity.DocIDs, []string{"d1"}) {
		t.Fatalf("unexpected duplicate ids %v", integrity.DocIDs)
	}
}
