package abstractcluster

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Store keeps the corpus, embeddings and clustering results in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens the database at path and creates missing tables.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS documents (
		doc_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		abstract TEXT NOT NULL,
		embedding_json TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS clusters (
		cluster_no INTEGER PRIMARY KEY,
		iteration INTEGER NOT NULL,
		label INTEGER NOT NULL,
		num_docs INTEGER NOT NULL,
		percent REAL NOT NULL,
		score REAL NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cluster_docs (
		cluster_no INTEGER NOT NULL,
		doc_id TEXT NOT NULL,
		PRIMARY KEY (cluster_no, doc_id)
	);
	CREATE TABLE IF NOT EXISTS cluster_terms (
		cluster_no INTEGER NOT NULL,
		rank INTEGER NOT NULL,
		term TEXT NOT NULL,
		n INTEGER NOT NULL,
		freq INTEGER NOT NULL,
		score REAL NOT NULL,
		doc_ids TEXT NOT NULL,
		PRIMARY KEY (cluster_no, rank)
	);
	CREATE TABLE IF NOT EXISTS experiments (
		iteration INTEGER NOT NULL,
		dimension INTEGER NOT NULL,
		min_cluster_size INTEGER NOT NULL,
		min_samples INTEGER NOT NULL,
		epsilon REAL NOT NULL,
		outliers INTEGER NOT NULL,
		total_clusters INTEGER NOT NULL,
		silhouette REAL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_cluster_docs_doc ON cluster_docs(doc_id);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDocument inserts a document or updates its title and abstract.
// Existing embeddings are kept.
func (s *Store) SaveDocument(d *Document) error {
	_, err := s.db.Exec(`
	INSERT INTO documents (doc_id, title, abstract) VALUES (?, ?, ?)
	ON CONFLICT(doc_id) DO UPDATE SET title = excluded.title, abstract = excluded.abstract
	`, d.DocID, d.Title, d.Abstract)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", d.DocID, err)
	}
	return nil
}

// SaveEmbedding stores the embedding of a document.
func (s *Store) SaveEmbedding(docID string, embedding []float64) error {
	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	res, err := s.db.Exec("UPDATE documents SET embedding_json = ? WHERE doc_id = ?", string(embeddingJSON), docID)
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &DataIntegrityError{Reason: "embedding for unknown document", DocIDs: []string{docID}}
	}
	return nil
}

// PendingDocuments returns documents that have no embedding yet.
func (s *Store) PendingDocuments() (Corpus, error) {
	return s.queryDocuments("SELECT doc_id, title, abstract, embedding_json FROM documents WHERE embedding_json IS NULL ORDER BY rowid")
}

// LoadCorpus returns every embedded document in insertion order.
func (s *Store) LoadCorpus() (Corpus, error) {
	return s.queryDocuments("SELECT doc_id, title, abstract, embedding_json FROM documents WHERE embedding_json IS NOT NULL ORDER BY rowid")
}

func (s *Store) queryDocuments(query string) (Corpus, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("Failed to close rows: %v", err)
		}
	}()

	var corpus Corpus
	for rows.Next() {
		var d Document
		var embeddingJSON sql.NullString
		if err := rows.Scan(&d.DocID, &d.Title, &d.Abstract, &embeddingJSON); err != nil {
			return nil, err
		}
		if embeddingJSON.Valid {
			if err := json.Unmarshal([]byte(embeddingJSON.String), &d.Embedding); err != nil {
				return nil, fmt.Errorf("failed to parse embedding for %s: %w", d.DocID, err)
			}
		}
		corpus = append(corpus, &d)
	}
	return corpus, rows.Err()
}

// SaveRun replaces the stored clustering results with result.
func (s *Store) SaveRun(result *RunResult) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("Failed to roll back: %v", rbErr)
			}
		}
	}()

	for _, table := range []string{"clusters", "cluster_docs", "cluster_terms", "experiments"} {
		if _, err = tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, c := range result.Clusters {
		if _, err = tx.Exec("INSERT INTO clusters (cluster_no, iteration, label, num_docs, percent, score) VALUES (?, ?, ?, ?, ?, ?)",
			c.ClusterNo, c.Iteration, c.Label, c.NumDocs, c.Percent, c.Score); err != nil {
			return fmt.Errorf("failed to insert cluster %d: %w", c.ClusterNo, err)
		}
		for _, id := range c.DocIDs {
			if _, err = tx.Exec("INSERT INTO cluster_docs (cluster_no, doc_id) VALUES (?, ?)", c.ClusterNo, id); err != nil {
				return fmt.Errorf("failed to insert cluster document: %w", err)
			}
		}
		for rank, t := range c.Terms {
			if _, err = tx.Exec("INSERT INTO cluster_terms (cluster_no, rank, term, n, freq, score, doc_ids) VALUES (?, ?, ?, ?, ?, ?, ?)",
				c.ClusterNo, rank, t.Text, t.N, t.Freq, t.Score, strings.Join(t.DocIDs, ",")); err != nil {
				return fmt.Errorf("failed to insert term: %w", err)
			}
		}
	}

	for _, it := range result.Iterations {
		for _, dr := range it.Best.Dimensions {
			for _, e := range dr.Experiments {
				var errText sql.NullString
				if e.Err != "" {
					errText = sql.NullString{String: e.Err, Valid: true}
				}
				if _, err = tx.Exec(`INSERT INTO experiments
					(iteration, dimension, min_cluster_size, min_samples, epsilon, outliers, total_clusters, silhouette, error)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					it.Index, e.Params.Dimension, e.Params.MinClusterSize, e.Params.MinSamples, e.Params.Epsilon,
					e.Outliers, e.TotalClusters, e.Silhouette, errText); err != nil {
					return fmt.Errorf("failed to insert experiment: %w", err)
				}
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// ClusterOf returns the accepted cluster number of a document, or 0.
func (s *Store) ClusterOf(docID string) (int, error) {
	var no int
	err := s.db.QueryRow("SELECT cluster_no FROM cluster_docs WHERE doc_id = ?", docID).Scan(&no)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return no, err
}

// SaveResultFile writes result as indented JSON, creating the directory.
func SaveResultFile(path string, result *RunResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	jsonData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal clusters: %w", err)
	}
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write clusters file: %w", err)
	}
	return nil
}

// LoadResultFile reads a result written by SaveResultFile.
func LoadResultFile(path string) (*RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clusters file: %w", err)
	}
	var result RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse clusters: %w", err)
	}
	return &result, nil
}
