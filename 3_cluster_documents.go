package abstractcluster

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var ClusterDocumentsCmd = &cobra.Command{
	Use:   "cluster-documents",
	Short: "Cluster embedded abstracts and extract cluster terms",
	Run: func(cmd *cobra.Command, args []string) {
		if err := clusterAllDocuments(cmd.Context()); err != nil {
			log.Printf("Failed to cluster documents: %v", err)
			return
		}
		log.Println("Document clustering complete.")
	},
}

// resultPath is where the clustering result is written.
func resultPath() string {
	return filepath.Join(Config.OutputDir, "clusters.json")
}

// clusterAllDocuments loads the corpus, runs the outlier loop and saves the results.
func clusterAllDocuments(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := LoadPipelineConfig(Config.PipelinePath)
	if err != nil {
		return err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	store, err := OpenStore(Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()

	corpus, err := store.LoadCorpus()
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	log.Printf("Loaded %d embedded documents for clustering", len(corpus))

	if err := Project2D(PCAReducer{}, corpus); err != nil {
		log.Printf("⚠️  %v", err)
	}

	result, runErr := NewOrchestrator(cfg, ProseTagger{}).Run(ctx, corpus)
	if result != nil {
		if err := SaveResultFile(resultPath(), result); err != nil {
			return err
		}
		if err := store.SaveRun(result); err != nil {
			return err
		}
		printClusteringQualityReport(result)
	}
	if runErr != nil {
		return fmt.Errorf("failed to run clustering: %w", runErr)
	}
	return nil
}

// printClusteringQualityReport logs a summary of every iteration and cluster.
func printClusteringQualityReport(result *RunResult) {
	log.Println("=====================================")
	log.Println("    CLUSTERING QUALITY REPORT")
	log.Println("=====================================")
	log.Printf("📊 Documents: %d → %d clusters over %d iterations",
		len(result.Documents), len(result.Clusters), len(result.Iterations))
	log.Printf("🗑️  Residual documents: %d (%s)", len(result.Residual), result.Termination)

	for _, it := range result.Iterations {
		log.Printf("\n🔁 Iteration %d (%d documents): %s", it.Index, it.InputSize, it.Best.Params)
		log.Printf("  📈 Silhouette: %.3f, clusters %d, outliers %d, deferred %d",
			it.Best.Silhouette, it.Best.TotalClusters, it.Best.Outliers, len(it.Deferred))
		for _, dr := range it.Best.Dimensions {
			if dr.Skipped != "" {
				log.Printf("  ⚠️  dimension %s skipped: %s", dimName(dr.Dimension), dr.Skipped)
			}
		}
	}

	log.Println("\n📋 Accepted Clusters:")
	for _, c := range result.Clusters {
		terms := make([]string, 0, len(c.TopTerms))
		for _, t := range c.TopTerms {
			terms = append(terms, t.Text)
		}
		log.Printf("  Cluster %d: %d documents (%.1f%%), score %.3f", c.ClusterNo, c.NumDocs, c.Percent, c.Score)
		if len(terms) > 0 {
			log.Printf("    • %s", truncateString(strings.Join(terms, ", "), 100))
		}
	}
	log.Println("=====================================")
}

// truncateString truncates a string to maxLength with ellipsis
func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength-3]) + "..."
}
