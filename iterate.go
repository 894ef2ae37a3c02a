package abstractcluster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Termination reasons of an orchestrator run.
const (
	TerminationExhausted     = "corpus-exhausted"
	TerminationMaxIterations = "max-iterations"
	TerminationLowQuality    = "low-quality"
	TerminationNoScore       = "no-defined-score"
	TerminationStalled       = "no-progress"
)

// ClusterSummary is an accepted cluster with its term summary.
type ClusterSummary struct {
	ClusterNo int      `json:"cluster_no" jsonschema:"description=Cluster number unique across all iterations"`
	Iteration int      `json:"iteration" jsonschema:"description=Iteration that accepted the cluster"`
	Label     int      `json:"label" jsonschema:"description=Label assigned by the density clusterer in that iteration"`
	DocIDs    []string `json:"doc_ids"`
	NumDocs   int      `json:"num_docs"`
	Percent   float64  `json:"percent" jsonschema:"description=Share of the iteration corpus in percent"`
	Score     float64  `json:"score" jsonschema:"description=Mean silhouette of the cluster members"`
	Terms     []Term   `json:"terms" jsonschema:"description=Deduplicated terms ranked by TF-IDF"`
	TopTerms  []Term   `json:"top_terms" jsonschema:"description=Leading terms ordered by document count then frequency"`
	FreqTerms []Term   `json:"freq_terms,omitempty" jsonschema:"description=Terms ranked by frequency plus the number of documents containing them"`
}

// Iteration records one pass of the outlier loop.
type Iteration struct {
	Index      int         `json:"index"`
	InputSize  int         `json:"input_size"`
	Best       *BestResult `json:"best"`
	Clusters   []int       `json:"clusters"`
	Deferred   []int       `json:"deferred_labels,omitempty"`
	Outliers   []string    `json:"outliers"`
	NextCorpus []string    `json:"next_corpus"`
}

// RunResult is the outcome of a full orchestrator run.
type RunResult struct {
	CreatedAt   time.Time        `json:"created_at"`
	Config      PipelineConfig   `json:"config"`
	Documents   Corpus           `json:"documents"`
	Iterations  []Iteration      `json:"iterations"`
	Clusters    []ClusterSummary `json:"clusters"`
	Residual    []string         `json:"residual"`
	Termination string           `json:"termination"`
	// DocumentTerms holds the key phrases of every document, in corpus order.
	DocumentTerms []DocumentTerms `json:"document_terms,omitempty"`
}

// Orchestrator runs search and term extraction repeatedly, feeding noise and
// oversized clusters back as the next corpus.
type Orchestrator struct {
	Config  PipelineConfig
	Search  *ParameterSearchEngine
	Indexer *TermFrequencyIndexer
}

// NewOrchestrator wires the default search engine and indexer.
func NewOrchestrator(cfg PipelineConfig, tagger Tagger) *Orchestrator {
	return &Orchestrator{
		Config:  cfg,
		Search:  NewParameterSearchEngine(cfg.WorkerCount()),
		Indexer: NewTermFrequencyIndexer(tagger),
	}
}

// Run clusters corpus until it is exhausted, the iteration limit is
// reached, quality drops to the configured minimum or an iteration accepts
// nothing and leaves its input unchanged. Cluster terms are ranked once, over
// every cluster accepted during the run. On a data integrity error the
// iterations completed so far are returned with the error.
func (o *Orchestrator) Run(ctx context.Context, corpus Corpus) (*RunResult, error) {
	result := &RunResult{CreatedAt: time.Now(), Config: o.Config, Documents: corpus, Residual: []string{}}
	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	o.Indexer.Reset()
	if len(corpus) == 0 {
		result.Termination = TerminationExhausted
		return result, nil
	}
	if err := o.Config.Validate(len(corpus), corpus.Width()); err != nil {
		return nil, err
	}

	current := corpus
	nextNo := 1
	var accepted []ClusterDocs
	for i := 0; ; i++ {
		log.Printf("🔍 Iteration %d: clustering %d documents", i, len(current))

		best, err := o.Search.Search(ctx, current.Embeddings(), o.Config.Grid())
		if errors.Is(err, ErrNoDefinedScore) {
			log.Printf("⚠️  Iteration %d: no combination produced a defined score", i)
			result.Residual = current.IDs()
			result.Termination = TerminationNoScore
			return result, o.finish(result, accepted)
		}
		if err != nil {
			return result, fmt.Errorf("failed to search iteration %d: %w", i, err)
		}
		if len(best.Labels) != len(current) {
			return result, &DataIntegrityError{
				Reason: fmt.Sprintf("iteration %d produced %d labels for %d documents", i, len(best.Labels), len(current)),
			}
		}

		it, clusters, docs, next, err := o.step(i, current, best, &nextNo)
		if err != nil {
			return result, err
		}
		result.Iterations = append(result.Iterations, it)
		result.Clusters = append(result.Clusters, clusters...)
		accepted = append(accepted, docs...)

		log.Printf("✅ Iteration %d: %s, silhouette %.4f, %d accepted, %d deferred, %d outliers",
			i, best.Params, best.Silhouette, len(clusters), len(it.Deferred), len(it.Outliers))

		switch {
		case len(next) == 0:
			result.Termination = TerminationExhausted
		case len(clusters) == 0 && len(next) == len(current):
			// next keeps corpus order, so the same length means the same
			// documents and the same search result.
			result.Termination = TerminationStalled
		case i+1 >= o.Config.MaxIterations:
			result.Termination = TerminationMaxIterations
		case best.Silhouette <= o.Config.MinQuality:
			result.Termination = TerminationLowQuality
		default:
			current = next
			continue
		}
		result.Residual = next.IDs()
		return result, o.finish(result, accepted)
	}
}

// step accepts the small clusters of one labelling and collects the
// documents for the next iteration.
func (o *Orchestrator) step(i int, current Corpus, best *BestResult, nextNo *int) (Iteration, []ClusterSummary, []ClusterDocs, Corpus, error) {
	it := Iteration{Index: i, InputSize: len(current), Best: best, Clusters: []int{}, Outliers: []string{}}

	members := make(map[int]Corpus)
	for j, l := range best.Labels {
		if l != Noise {
			members[l] = append(members[l], current[j])
		}
	}

	accepted := make(map[int]bool)
	var clusters []ClusterSummary
	var docs []ClusterDocs
	for _, l := range SortedLabels(best.ClusterSizes) {
		group := members[l]
		if len(group) != best.ClusterSizes[l] {
			return it, nil, nil, nil, &DataIntegrityError{
				Reason: fmt.Sprintf("cluster %d reports %d documents but holds %d", l, best.ClusterSizes[l], len(group)),
				DocIDs: group.IDs(),
			}
		}
		if len(group) >= o.Config.MaxClusterSize {
			it.Deferred = append(it.Deferred, l)
			continue
		}
		accepted[l] = true
		cs := ClusterSummary{
			ClusterNo: *nextNo,
			Iteration: i,
			Label:     l,
			DocIDs:    group.IDs(),
			NumDocs:   len(group),
			Percent:   100 * float64(len(group)) / float64(len(current)),
			Score:     best.ClusterScores[l],
		}
		*nextNo++
		clusters = append(clusters, cs)
		docs = append(docs, ClusterDocs{ClusterID: cs.ClusterNo, Docs: group})
		it.Clusters = append(it.Clusters, cs.ClusterNo)
	}

	var next Corpus
	for j, l := range best.Labels {
		if accepted[l] {
			continue
		}
		if l == Noise {
			it.Outliers = append(it.Outliers, current[j].DocID)
		}
		next = append(next, current[j])
	}
	it.NextCorpus = next.IDs()
	return it, clusters, docs, next, nil
}

// finish ranks the terms of every accepted cluster against all clusters
// accepted during the run and extracts the key phrases of each document.
func (o *Orchestrator) finish(result *RunResult, accepted []ClusterDocs) error {
	if err := o.summarize(result.Clusters, accepted); err != nil {
		return err
	}
	if n := o.Config.KeyPhraseNGram; n > 0 {
		phrases, err := KeyPhrases(o.Indexer, result.Documents, n, o.Config.TopTerms)
		if err != nil {
			return fmt.Errorf("failed to extract key phrases: %w", err)
		}
		result.DocumentTerms = phrases
	}
	return nil
}

// summarize ranks, merges and attaches terms to each accepted cluster.
func (o *Orchestrator) summarize(clusters []ClusterSummary, docs []ClusterDocs) error {
	if len(clusters) == 0 {
		return nil
	}
	scorer := TFIDFScorer{CandidateLimit: o.Config.TermCandidateLimit}
	merger := OverlapMerger{Cap: o.Config.TermCap}

	combined := make(map[int][]Term, len(clusters))
	for _, n := range o.Config.NGramSizes {
		table, err := o.Indexer.Index(docs, n)
		if err != nil {
			return fmt.Errorf("failed to index %d-grams: %w", n, err)
		}
		for id, terms := range scorer.Rank(table) {
			combined[id] = append(combined[id], terms...)
		}
	}

	freq := map[int][]Term{}
	if n := o.Config.KeyPhraseNGram; n > 0 {
		table, err := o.Indexer.Index(docs, n)
		if err != nil {
			return fmt.Errorf("failed to index %d-grams: %w", n, err)
		}
		freq = FrequencyTerms(table, o.Config.TopTerms)
	}

	for k := range clusters {
		cs := &clusters[k]
		members := make(map[string]bool, len(cs.DocIDs))
		for _, id := range cs.DocIDs {
			members[id] = true
		}
		cs.Terms = merger.Merge(combined[cs.ClusterNo])
		for _, t := range cs.Terms {
			var unknown []string
			for _, id := range t.DocIDs {
				if !members[id] {
					unknown = append(unknown, id)
				}
			}
			if len(unknown) > 0 {
				return &DataIntegrityError{
					Reason: fmt.Sprintf("term %q of cluster %d references documents outside the cluster", t.Text, cs.ClusterNo),
					DocIDs: unknown,
				}
			}
		}
		cs.TopTerms = TopTerms(cs.Terms, o.Config.TopTerms)
		cs.FreqTerms = freq[cs.ClusterNo]
	}
	return nil
}
