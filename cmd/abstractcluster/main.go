package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/urbanstudy/abstractcluster"
)

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	abstractcluster.Config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	abstractcluster.Config.DBPath = getenv("ABSTRACTCLUSTER_DB", "abstracts.db")
	abstractcluster.Config.OutputDir = getenv("ABSTRACTCLUSTER_OUT", "output")
	abstractcluster.Config.PipelinePath = os.Getenv("ABSTRACTCLUSTER_CONFIG")

	rootCmd := &cobra.Command{
		Use:   "abstractcluster",
		Short: "Iterative topic clustering and term extraction for research abstracts",
	}

	rootCmd.AddCommand(abstractcluster.ImportCorpusCmd)
	rootCmd.AddCommand(abstractcluster.EmbedDocumentsCmd)
	rootCmd.AddCommand(abstractcluster.ClusterDocumentsCmd)
	rootCmd.AddCommand(abstractcluster.GenerateReportCmd)
	rootCmd.AddCommand(abstractcluster.GenerateHTMLCmd)
	rootCmd.AddCommand(abstractcluster.ExportSchemaCmd)
	rootCmd.AddCommand(abstractcluster.LookupDocumentCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: embed-documents -> cluster-documents -> generate-report -> generate-html",
	Run: func(cmd *cobra.Command, args []string) {
		if abstractcluster.Config.OpenAIAPIKey == "" {
			log.Fatal("Missing required environment variable: OPENAI_API_KEY")
		}
		log.Println("Running full pipeline...")
		abstractcluster.EmbedDocumentsCmd.Run(cmd, args)
		abstractcluster.ClusterDocumentsCmd.Run(cmd, args)
		abstractcluster.GenerateReportCmd.Run(cmd, args)
		abstractcluster.GenerateHTMLCmd.Run(cmd, args)
		log.Println("Pipeline complete.")
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove generated clusters, schema and reports",
	Run: func(cmd *cobra.Command, args []string) {
		out := abstractcluster.Config.OutputDir
		for _, name := range []string{"clusters.json", "clusters.schema.json", "report.md", "report.html"} {
			if err := os.Remove(filepath.Join(out, name)); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed to remove %s: %v", name, err)
			}
		}
		log.Printf("Cleaned %s.", out)
	},
}
