package abstractcluster

import (
	"errors"
	"reflect"
	"testing"
)

func TestCorpusValidateNilDocument(t *testing.T) {
	corpus := Corpus{nil, {DocID: "a", Embedding: []float64{1, 0}}}
	if corpus.Width() != 2 {
		t.Fatalf("width = %d, want 2", corpus.Width())
	}
	err := corpus.Validate()
	var integrity *DataIntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
	if !reflect.DeepEqual(integrity.DocIDs, []string{"#0"}) {
		t.Fatalf("unexpected offending ids %v", integrity.DocIDs)
	}
}

func TestCorpusValidateRagged(t *testing.T) {
	corpus := Corpus{
		{DocID: "a", Embedding: []float64{1, 0}},
		{DocID: "b", Embedding: []float64{1, 0, 0}},
	}
	var integrity *DataIntegrityError
	if err := corpus.Validate(); !errors.As(err, &integrity) || integrity.DocIDs[0] != "b" {
		t.Fatalf("expected ragged embedding error for b, got %v", err)
	}
}

func TestCorpusSelect(t *testing.T) {
	corpus := Corpus{{DocID: "a"}, {DocID: "b"}, {DocID: "c"}}
	got, err := corpus.Select([]string{"c", "a"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.IDs(), []string{"c", "a"}) {
		t.Fatalf("unexpected selection %v", got.IDs())
	}

	_, err = corpus.Select([]string{"a", "z"})
	var integrity *DataIntegrityError
	if !errors.As(err, &integrity) || !reflect.DeepEqual(integrity.DocIDs, []string{"z"}) {
		t.Fatalf("expected unknown id z, got %v", err)
	}
}
