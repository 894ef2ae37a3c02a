package abstractcluster

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"testing"
	"time"
)

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()
	if cfg.Dimensions[0] != 0 || cfg.Dimensions[len(cfg.Dimensions)-1] != 20 {
		t.Fatalf("unexpected dimensions %v", cfg.Dimensions)
	}
	if cfg.MaxClusterSize != 40 || cfg.TermCap != 50 || cfg.TermCandidateLimit != 300 {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if err := cfg.Validate(1000, 3072); err != nil {
		t.Fatalf("defaults should be valid for a large corpus: %v", err)
	}
	if smallest := slices.Min(cfg.MinClusterSizes); smallest >= cfg.MaxClusterSize {
		t.Fatalf("default min cluster size %d leaves no acceptable cluster below %d", smallest, cfg.MaxClusterSize)
	}
}

func TestLoadPipelineConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	data := []byte(`
dimensions: [0, 50]
min_cluster_sizes: [20]
min_samples: [5, 3]
max_iterations: 3
grid_timeout: PT30M
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadPipelineConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Dimensions, []int{0, 50}) || !reflect.DeepEqual(cfg.MinSamples, []int{5, 3}) {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxIterations != 3 || cfg.MaxClusterSize != 40 {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	timeout, err := cfg.Timeout()
	if err != nil || timeout != 30*time.Minute {
		t.Fatalf("timeout = %v, %v", timeout, err)
	}
}

func TestLoadPipelineConfigMissingFile(t *testing.T) {
	if _, err := LoadPipelineConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	cfg, err := LoadPipelineConfig("")
	if err != nil || !reflect.DeepEqual(cfg, DefaultPipelineConfig()) {
		t.Fatalf("empty path should return defaults, got %+v, %v", cfg, err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
		field  string
	}{
		{"empty dimensions", func(c *PipelineConfig) { c.Dimensions = nil }, "dimensions"},
		{"empty min cluster sizes", func(c *PipelineConfig) { c.MinClusterSizes = nil }, "min_cluster_sizes"},
		{"empty min samples", func(c *PipelineConfig) { c.MinSamples = nil }, "min_samples"},
		{"empty epsilons", func(c *PipelineConfig) { c.Epsilons = nil }, "epsilons"},
		{"dimension too large", func(c *PipelineConfig) { c.Dimensions = []int{0, 96} }, "dimensions"},
		{"dimension wider than embedding", func(c *PipelineConfig) { c.Dimensions = []int{80} }, "dimensions"},
		{"min cluster size", func(c *PipelineConfig) { c.MinClusterSizes = []int{1} }, "min_cluster_sizes"},
		{"min samples", func(c *PipelineConfig) { c.MinSamples = []int{0} }, "min_samples"},
		{"negative epsilon", func(c *PipelineConfig) { c.Epsilons = []float64{-0.1} }, "epsilons"},
		{"bad timeout", func(c *PipelineConfig) { c.GridTimeout = "thirty minutes" }, "grid_timeout"},
		{"min cluster size at ceiling", func(c *PipelineConfig) { c.MinClusterSizes = []int{50, 40} }, "min_cluster_sizes"},
		{"negative candidate limit", func(c *PipelineConfig) { c.TermCandidateLimit = -1 }, "term_candidate_limit"},
		{"negative top terms", func(c *PipelineConfig) { c.TopTerms = -3 }, "top_terms"},
		{"negative key phrase n-gram", func(c *PipelineConfig) { c.KeyPhraseNGram = -1 }, "key_phrase_ngram"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			cfg.Dimensions = []int{0, 20}
			tc.mutate(&cfg)
			err := cfg.Validate(100, 64)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if cfgErr.Field != tc.field {
				t.Fatalf("field = %s, want %s", cfgErr.Field, tc.field)
			}
		})
	}
}

func TestWorkerCount(t *testing.T) {
	cfg := DefaultPipelineConfig()
	if cfg.WorkerCount() < 1 {
		t.Fatal("worker count must be positive")
	}
	cfg.Workers = 3
	if cfg.WorkerCount() != 3 {
		t.Fatalf("expected 3 workers, got %d", cfg.WorkerCount())
	}
}
