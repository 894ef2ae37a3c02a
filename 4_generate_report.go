package abstractcluster

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var GenerateReportCmd = &cobra.Command{
	Use:   "generate-report",
	Short: "Generate the markdown cluster report from clusters.json",
	Run: func(cmd *cobra.Command, args []string) {
		result, err := LoadResultFile(resultPath())
		if err != nil {
			log.Printf("Failed to load clusters: %v", err)
			return
		}
		report, err := formatReport(result)
		if err != nil {
			log.Printf("Failed to format report: %v", err)
			return
		}
		path := filepath.Join(Config.OutputDir, "report.md")
		if err := os.WriteFile(path, []byte(report), 0644); err != nil {
			log.Printf("Failed to write report file: %v", err)
			return
		}
		log.Printf("Report generated: %s", path)
	},
}

// formatReport renders result as markdown. Cluster members must be
// documents of the result.
func formatReport(result *RunResult) (string, error) {
	phrases := make(map[string][]Term, len(result.DocumentTerms))
	for _, dt := range result.DocumentTerms {
		phrases[dt.DocID] = dt.Terms
	}

	var b strings.Builder
	b.WriteString("# Abstract Clusters\n\n")
	fmt.Fprintf(&b, "*%s - %d documents, %d clusters, %d iterations, %d residual (%s)*\n\n",
		result.CreatedAt.Format("2 January 2006"), len(result.Documents), len(result.Clusters),
		len(result.Iterations), len(result.Residual), result.Termination)

	if len(result.Iterations) > 0 {
		b.WriteString("## Iterations\n\n")
		b.WriteString("| Iteration | Documents | Parameters | Silhouette | Clusters | Accepted | Outliers |\n")
		b.WriteString("|---|---|---|---|---|---|---|\n")
		for _, it := range result.Iterations {
			fmt.Fprintf(&b, "| %d | %d | %s | %.3f | %d | %d | %d |\n",
				it.Index, it.InputSize, it.Best.Params, it.Best.Silhouette,
				it.Best.TotalClusters, len(it.Clusters), len(it.Outliers))
		}
		b.WriteString("\n")
	}

	for _, c := range result.Clusters {
		fmt.Fprintf(&b, "## Cluster %d\n\n", c.ClusterNo)
		fmt.Fprintf(&b, "*Iteration %d - %d documents (%.1f%%) - silhouette %.3f*\n\n", c.Iteration, c.NumDocs, c.Percent, c.Score)

		if len(c.TopTerms) > 0 {
			b.WriteString("**Key terms:** ")
			for i, t := range c.TopTerms {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "%s (%d)", t.Text, len(t.DocIDs))
			}
			b.WriteString("\n\n")
		}

		if len(c.FreqTerms) > 0 {
			b.WriteString("**Frequent terms:** ")
			writeTerms(&b, c.FreqTerms)
			b.WriteString("\n\n")
		}

		b.WriteString("| Term | Freq | Docs | TF-IDF |\n|---|---|---|---|\n")
		for _, t := range c.Terms {
			fmt.Fprintf(&b, "| %s | %d | %d | %.4f |\n", t.Text, t.Freq, len(t.DocIDs), t.Score)
		}
		b.WriteString("\n")

		members, err := result.Documents.Select(c.DocIDs)
		if err != nil {
			return "", fmt.Errorf("cluster %d: %w", c.ClusterNo, err)
		}
		for _, d := range members {
			fmt.Fprintf(&b, "- %s: %s", d.DocID, d.Title)
			if terms := phrases[d.DocID]; len(terms) > 0 {
				b.WriteString(" (")
				writeTerms(&b, terms[:min(len(terms), 3)])
				b.WriteString(")")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n---\n\n")
	}
	return b.String(), nil
}

func writeTerms(b *strings.Builder, terms []Term) {
	for i, t := range terms {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Text)
	}
}
