package abstractcluster

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var LookupDocumentCmd = &cobra.Command{
	Use:   "lookup-document [doc_id...]",
	Short: "Show the accepted cluster of stored documents",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, err := OpenStore(Config.DBPath)
		if err != nil {
			log.Printf("Failed to open database: %v", err)
			return
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Printf("Failed to close database: %v", err)
			}
		}()

		for _, id := range args {
			line, err := describeDocument(store, id)
			if err != nil {
				log.Printf("Failed to look up %s: %v", id, err)
				continue
			}
			fmt.Println(line)
		}
	},
}

// describeDocument reports the cluster a document was accepted into.
func describeDocument(store *Store, docID string) (string, error) {
	no, err := store.ClusterOf(docID)
	if err != nil {
		return "", err
	}
	if no == 0 {
		return fmt.Sprintf("%s: not in an accepted cluster", docID), nil
	}
	return fmt.Sprintf("%s: cluster %d", docID, no), nil
}
