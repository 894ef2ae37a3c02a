package abstractcluster

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

var ExportSchemaCmd = &cobra.Command{
	Use:   "export-schema",
	Short: "Write the JSON schema of clusters.json",
	Run: func(cmd *cobra.Command, args []string) {
		path := filepath.Join(Config.OutputDir, "clusters.schema.json")
		if err := exportSchema(path); err != nil {
			log.Printf("Failed to export schema: %v", err)
			return
		}
		log.Printf("Schema written: %s", path)
	},
}

// resultSchema reflects the JSON schema of RunResult.
func resultSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(&RunResult{})
	if schema.Type == "" {
		schema.Type = "object"
	}
	return schema
}

func exportSchema(path string) error {
	schemaBytes, err := json.MarshalIndent(resultSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return os.WriteFile(path, schemaBytes, 0644)
}
