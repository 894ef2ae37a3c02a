package abstractcluster

import (
	"context"
	"fmt"
	"log"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/spf13/cobra"
)

// Embedder turns texts into fixed-width vectors, one per text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// OpenAIEmbedder calls the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	Model  openai.EmbeddingModel
	retry  retryPolicy
}

// NewOpenAIEmbedder returns an embedder using text-embedding-3-large.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0)),
		Model:  openai.EmbeddingModelTextEmbedding3Large,
		retry:  defaultRetryPolicy,
	}
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	var resp *openai.CreateEmbeddingResponse
	err := e.retry.withRetry(ctx, func() error {
		var err error
		resp, err = e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model:          e.Model,
			EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(resp.Data), len(texts))
	}
	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

var embedBatchSize = 64

var EmbedDocumentsCmd = &cobra.Command{
	Use:   "embed-documents",
	Short: "Generate embeddings for all imported documents",
	Run: func(cmd *cobra.Command, args []string) {
		if Config.OpenAIAPIKey == "" {
			log.Println("OPENAI_API_KEY is not set")
			return
		}
		if err := embedAllDocuments(cmd.Context(), NewOpenAIEmbedder(Config.OpenAIAPIKey)); err != nil {
			log.Printf("Failed to embed documents: %v", err)
			return
		}
		log.Println("Document embedding complete.")
	},
}

func init() {
	EmbedDocumentsCmd.Flags().IntVar(&embedBatchSize, "batch-size", embedBatchSize, "documents per embeddings request")
}

// embedAllDocuments embeds every document that has no embedding yet.
func embedAllDocuments(ctx context.Context, embedder Embedder) error {
	if ctx == nil {
		ctx = context.Background()
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

	pending, err := store.PendingDocuments()
	if err != nil {
		return fmt.Errorf("failed to load pending documents: %w", err)
	}
	if len(pending) == 0 {
		log.Println("All documents already have embeddings")
		return nil
	}

	return embedCorpus(ctx, store, embedder, pending, embedBatchSize)
}

// embedCorpus embeds docs in batches and stores each vector.
func embedCorpus(ctx context.Context, store *Store, embedder Embedder, docs Corpus, batchSize int) error {
	batchSize = max(batchSize, 1)
	for start := 0; start < len(docs); start += batchSize {
		batch := docs[start:min(start+batchSize, len(docs))]
		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text()
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(batch))
		}
		for i, d := range batch {
			if err := store.SaveEmbedding(d.DocID, vectors[i]); err != nil {
				return fmt.Errorf("failed to save embedding: %w", err)
			}
		}
		log.Printf("Generated embeddings for %d/%d documents", start+len(batch), len(docs))
	}
	return nil
}
