package abstractcluster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var importFile string

var ImportCorpusCmd = &cobra.Command{
	Use:   "import-corpus",
	Short: "Import abstracts from a CSV file with doc_id, title and abstract columns",
	Run: func(cmd *cobra.Command, args []string) {
		if err := importCorpus(importFile); err != nil {
			log.Printf("Failed to import corpus: %v", err)
			return
		}
		log.Println("Corpus import complete.")
	},
}

func init() {
	ImportCorpusCmd.Flags().StringVar(&importFile, "file", "corpus.csv", "CSV file to import")
}

// importCorpus reads path and stores every row as a document.
func importCorpus(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	docs, err := readCorpusCSV(f)
	if err != nil {
		return err
	}

	store, err := OpenStore(Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	for _, d := range docs {
		if err := store.SaveDocument(d); err != nil {
			return err
		}
	}
	log.Printf("Imported %d documents from %s", len(docs), path)
	return nil
}

// readCorpusCSV parses a header row followed by documents. The id column
// may be named doc_id or id.
func readCorpusCSV(r io.Reader) (Corpus, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idCol, ok := col["doc_id"]
	if !ok {
		idCol, ok = col["id"]
	}
	if !ok {
		return nil, errors.New("CSV header has no doc_id column")
	}
	titleCol, hasTitle := col["title"]
	abstractCol, ok := col["abstract"]
	if !ok {
		return nil, errors.New("CSV header has no abstract column")
	}

	field := func(rec []string, i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var corpus Corpus
	seen := map[string]bool{}
	var dup []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		d := &Document{DocID: field(rec, idCol), Abstract: field(rec, abstractCol)}
		if hasTitle {
			d.Title = field(rec, titleCol)
		}
		if d.DocID == "" || d.Abstract == "" {
			continue
		}
		if seen[d.DocID] {
			dup = append(dup, d.DocID)
			continue
		}
		seen[d.DocID] = true
		corpus = append(corpus, d)
	}
	if len(dup) > 0 {
		return nil, &DataIntegrityError{Reason: "duplicate document ids in CSV", DocIDs: dup}
	}
	return corpus, nil
}
