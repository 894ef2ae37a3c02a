package abstractcluster

import (
	"fmt"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/sosodev/duration"
	"gopkg.in/yaml.v3"
)

// Config holds all environment variables
var Config struct {
	OpenAIAPIKey string
	DBPath       string
	OutputDir    string
	PipelinePath string
}

// PipelineConfig holds the candidate lists and limits for one clustering run.
type PipelineConfig struct {
	// Dimensions lists reduction targets. 0 means the native embedding width.
	Dimensions      []int     `yaml:"dimensions" json:"dimensions"`
	MinClusterSizes []int     `yaml:"min_cluster_sizes" json:"min_cluster_sizes"`
	MinSamples      []int     `yaml:"min_samples" json:"min_samples"`
	Epsilons        []float64 `yaml:"epsilons" json:"epsilons"`

	SafetyMargin       int     `yaml:"safety_margin" json:"safety_margin"`
	MaxClusterSize     int     `yaml:"max_cluster_size" json:"max_cluster_size"`
	MaxIterations      int     `yaml:"max_iterations" json:"max_iterations"`
	MinQuality         float64 `yaml:"min_quality" json:"min_quality"`
	NGramSizes         []int   `yaml:"ngram_sizes" json:"ngram_sizes"`
	TermCandidateLimit int     `yaml:"term_candidate_limit" json:"term_candidate_limit"`
	TermCap            int     `yaml:"term_cap" json:"term_cap"`
	TopTerms           int     `yaml:"top_terms" json:"top_terms"`
	// KeyPhraseNGram is the n-gram length of per-document key phrases and
	// per-cluster frequency terms. Zero disables both.
	KeyPhraseNGram int `yaml:"key_phrase_ngram" json:"key_phrase_ngram"`
	Workers            int     `yaml:"workers" json:"workers"`

	// GridTimeout is an ISO-8601 duration such as "PT30M". Empty means no deadline.
	GridTimeout string `yaml:"grid_timeout" json:"grid_timeout,omitempty"`
}

// DefaultPipelineConfig returns the parameter grid used for abstract corpora.
func DefaultPipelineConfig() PipelineConfig {
	dims := []int{0, 200, 150, 100}
	for d := 95; d >= 20; d -= 5 {
		dims = append(dims, d)
	}
	return PipelineConfig{
		Dimensions:         dims,
		MinClusterSizes:    []int{50, 40, 30, 20, 10},
		MinSamples:         []int{30, 25, 20, 15, 10},
		Epsilons:           []float64{0.0},
		SafetyMargin:       5,
		MaxClusterSize:     40,
		MaxIterations:      10,
		MinQuality:         0.0,
		NGramSizes:         []int{1, 2},
		TermCandidateLimit: 300,
		TermCap:            50,
		TopTerms:           10,
		KeyPhraseNGram:     2,
	}
}

// LoadPipelineConfig reads a YAML file over the defaults. An empty path
// returns the defaults.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read pipeline config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse pipeline config: %w", err)
	}
	return cfg, nil
}

// WorkerCount returns the grid parallelism, defaulting to the CPU count.
func (c PipelineConfig) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// Timeout parses GridTimeout. Zero means no deadline.
func (c PipelineConfig) Timeout() (time.Duration, error) {
	if c.GridTimeout == "" {
		return 0, nil
	}
	d, err := duration.Parse(c.GridTimeout)
	if err != nil {
		return 0, &ConfigurationError{Field: "grid_timeout", Reason: err.Error()}
	}
	return d.ToTimeDuration(), nil
}

// Validate checks the candidate lists against a corpus of n documents
// with embeddings of the given width.
func (c PipelineConfig) Validate(n, width int) error {
	switch {
	case len(c.Dimensions) == 0:
		return &ConfigurationError{Field: "dimensions", Reason: "empty candidate list"}
	case len(c.MinClusterSizes) == 0:
		return &ConfigurationError{Field: "min_cluster_sizes", Reason: "empty candidate list"}
	case len(c.MinSamples) == 0:
		return &ConfigurationError{Field: "min_samples", Reason: "empty candidate list"}
	case len(c.Epsilons) == 0:
		return &ConfigurationError{Field: "epsilons", Reason: "empty candidate list"}
	case len(c.NGramSizes) == 0:
		return &ConfigurationError{Field: "ngram_sizes", Reason: "empty candidate list"}
	}

	for _, d := range c.Dimensions {
		if err := c.checkDimension(d, n, width); err != nil {
			return err
		}
	}
	for _, m := range c.MinClusterSizes {
		if m < 2 {
			return &ConfigurationError{Field: "min_cluster_sizes", Reason: fmt.Sprintf("%d is below 2", m)}
		}
	}
	for _, m := range c.MinSamples {
		if m < 1 {
			return &ConfigurationError{Field: "min_samples", Reason: fmt.Sprintf("%d is below 1", m)}
		}
	}
	for _, e := range c.Epsilons {
		if e < 0 {
			return &ConfigurationError{Field: "epsilons", Reason: fmt.Sprintf("%g is negative", e)}
		}
	}
	for _, g := range c.NGramSizes {
		if g < 1 {
			return &ConfigurationError{Field: "ngram_sizes", Reason: fmt.Sprintf("%d is below 1", g)}
		}
	}
	if c.MaxClusterSize < 2 {
		return &ConfigurationError{Field: "max_cluster_size", Reason: "must be at least 2"}
	}
	if smallest := slices.Min(c.MinClusterSizes); smallest >= c.MaxClusterSize {
		return &ConfigurationError{
			Field:  "min_cluster_sizes",
			Reason: fmt.Sprintf("smallest value %d is not below max_cluster_size %d, no cluster could be accepted", smallest, c.MaxClusterSize),
		}
	}
	if c.MaxIterations < 1 {
		return &ConfigurationError{Field: "max_iterations", Reason: "must be at least 1"}
	}
	if c.TermCap < 1 {
		return &ConfigurationError{Field: "term_cap", Reason: "must be at least 1"}
	}
	if c.TermCandidateLimit < 0 {
		return &ConfigurationError{Field: "term_candidate_limit", Reason: "must not be negative, 0 keeps every candidate"}
	}
	if c.TopTerms < 0 {
		return &ConfigurationError{Field: "top_terms", Reason: "must not be negative"}
	}
	if c.KeyPhraseNGram < 0 {
		return &ConfigurationError{Field: "key_phrase_ngram", Reason: "must not be negative"}
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	return nil
}

// checkDimension reports whether d can be used for n documents of the given
// width. The native dimension is always valid.
func (c PipelineConfig) checkDimension(d, n, width int) error {
	if d == 0 {
		return nil
	}
	if d < 0 {
		return &ConfigurationError{Field: "dimensions", Reason: fmt.Sprintf("%d is negative", d)}
	}
	if d >= n-c.SafetyMargin {
		return &ConfigurationError{
			Field:  "dimensions",
			Reason: fmt.Sprintf("%d is not below corpus size %d minus margin %d", d, n, c.SafetyMargin),
		}
	}
	if width > 0 && d > width {
		return &ConfigurationError{Field: "dimensions", Reason: fmt.Sprintf("%d exceeds embedding width %d", d, width)}
	}
	return nil
}
