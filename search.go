package abstractcluster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ParameterCombination is one point of the search grid.
type ParameterCombination struct {
	Dimension      int     `json:"dimension"`
	MinClusterSize int     `json:"min_cluster_size"`
	MinSamples     int     `json:"min_samples"`
	Epsilon        float64 `json:"epsilon"`
}

func (p ParameterCombination) String() string {
	return fmt.Sprintf("dim=%s mcs=%d ms=%d eps=%g", dimName(p.Dimension), p.MinClusterSize, p.MinSamples, p.Epsilon)
}

// ExperimentResult is the outcome of clustering with one combination.
type ExperimentResult struct {
	Params        ParameterCombination `json:"params"`
	Labels        []int                `json:"-"`
	Outliers      int                  `json:"outliers"`
	TotalClusters int                  `json:"total_clusters"`
	ClusterSizes  map[int]int          `json:"cluster_sizes"`
	// Silhouette is nil when the score is undefined.
	Silhouette *float64 `json:"silhouette,omitempty"`
	Err        string   `json:"error,omitempty"`

	clusterScores map[int]float64
}

// DimensionResult is the best experiment for one candidate dimension.
type DimensionResult struct {
	Dimension int     `json:"dimension"`
	Eligible  bool    `json:"eligible"`
	Score     float64 `json:"score"`
	// Best indexes Experiments; -1 when no score was defined.
	Best        int                `json:"best"`
	Experiments []ExperimentResult `json:"experiments"`
	Skipped     string             `json:"skipped,omitempty"`
}

// BestResult is the winning combination across all dimensions.
type BestResult struct {
	Params        ParameterCombination `json:"params"`
	Labels        []int                `json:"-"`
	Outliers      int                  `json:"outliers"`
	TotalClusters int                  `json:"total_clusters"`
	ClusterSizes  map[int]int          `json:"cluster_sizes"`
	Silhouette    float64              `json:"silhouette"`
	ClusterScores map[int]float64      `json:"cluster_scores"`
	Dimensions    []DimensionResult    `json:"dimensions"`
}

// SearchGrid is the set of candidate lists swept by the search.
type SearchGrid struct {
	Dimensions      []int
	MinClusterSizes []int
	MinSamples      []int
	Epsilons        []float64
	SafetyMargin    int
}

// Grid returns the candidate lists of the pipeline configuration.
func (c PipelineConfig) Grid() SearchGrid {
	return SearchGrid{
		Dimensions:      c.Dimensions,
		MinClusterSizes: c.MinClusterSizes,
		MinSamples:      c.MinSamples,
		Epsilons:        c.Epsilons,
		SafetyMargin:    c.SafetyMargin,
	}
}

// ParameterSearchEngine sweeps dimension x min cluster size x min samples x
// epsilon and keeps the labelling with the best silhouette.
type ParameterSearchEngine struct {
	Reducer   Reducer
	Clusterer DensityClusterer
	Workers   int
}

// NewParameterSearchEngine returns an engine using PCA and HDBSCAN.
func NewParameterSearchEngine(workers int) *ParameterSearchEngine {
	return &ParameterSearchEngine{Reducer: PCAReducer{}, Clusterer: HDBSCAN{}, Workers: workers}
}

// Search runs the grid over vectors. Failed combinations are recorded as
// undefined; a dimension whose reduction fails is skipped and reported. When
// no dimension yields a defined score the error is ErrNoDefinedScore and the
// result still carries the per-dimension report.
func (e *ParameterSearchEngine) Search(ctx context.Context, vectors [][]float64, grid SearchGrid) (*BestResult, error) {
	if len(vectors) == 0 {
		return nil, errors.New("no vectors to cluster")
	}
	n, width := len(vectors), len(vectors[0])

	dims := make([]DimensionResult, 0, len(grid.Dimensions))
	for _, d := range grid.Dimensions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dr, err := e.searchDimension(ctx, vectors, d, n, width, grid)
		if err != nil {
			return nil, err
		}
		dims = append(dims, dr)
	}

	bestDim := -1
	for i, dr := range dims {
		if !dr.Eligible {
			continue
		}
		if bestDim < 0 || dr.Score > dims[bestDim].Score {
			bestDim = i
		}
	}
	if bestDim < 0 {
		return &BestResult{Dimensions: dims}, ErrNoDefinedScore
	}

	exp := dims[bestDim].Experiments[dims[bestDim].Best]
	return &BestResult{
		Params:        exp.Params,
		Labels:        exp.Labels,
		Outliers:      exp.Outliers,
		TotalClusters: exp.TotalClusters,
		ClusterSizes:  exp.ClusterSizes,
		Silhouette:    *exp.Silhouette,
		ClusterScores: exp.clusterScores,
		Dimensions:    dims,
	}, nil
}

// searchDimension reduces the vectors once and runs the whole inner grid
// against the shared distance matrix.
func (e *ParameterSearchEngine) searchDimension(ctx context.Context, vectors [][]float64, d, n, width int, grid SearchGrid) (DimensionResult, error) {
	dr := DimensionResult{Dimension: d, Best: -1}

	reduced := vectors
	if d > 0 && d != width {
		if d >= n-grid.SafetyMargin {
			dr.Skipped = fmt.Sprintf("dimension %d is not below corpus size %d minus margin %d", d, n, grid.SafetyMargin)
			log.Printf("⚠️  Skipping %s", dr.Skipped)
			return dr, nil
		}
		var err error
		reduced, err = e.reduce(vectors, d)
		if err != nil {
			dr.Skipped = err.Error()
			log.Printf("⚠️  Skipping dimension %d: %v", d, err)
			return dr, nil
		}
	}
	dm := NewDistanceMatrix(reduced)

	var combos []ParameterCombination
	for _, mcs := range grid.MinClusterSizes {
		for _, ms := range grid.MinSamples {
			for _, eps := range grid.Epsilons {
				combos = append(combos, ParameterCombination{Dimension: d, MinClusterSize: mcs, MinSamples: ms, Epsilon: eps})
			}
		}
	}
	dr.Experiments = make([]ExperimentResult, len(combos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Workers, 1))
	for i, p := range combos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dr.Experiments[i] = e.runCombination(dm, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dr, fmt.Errorf("failed to search dimension %d: %w", d, err)
	}

	for i, exp := range dr.Experiments {
		if exp.Silhouette == nil {
			continue
		}
		if dr.Best < 0 || *exp.Silhouette > dr.Score {
			dr.Best = i
			dr.Score = *exp.Silhouette
		}
	}
	dr.Eligible = dr.Best >= 0
	if dr.Eligible {
		log.Printf("📊 Dimension %s: best silhouette %.4f with %s", dimName(d), dr.Score, combos[dr.Best])
	} else {
		log.Printf("📊 Dimension %s: no defined silhouette", dimName(d))
	}
	return dr, nil
}

func (e *ParameterSearchEngine) reduce(vectors [][]float64, d int) (reduced [][]float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reducer panicked: %v", r)
		}
	}()
	return e.Reducer.Reduce(vectors, d)
}

// runCombination clusters one combination. Failures and panics become an
// undefined result.
func (e *ParameterSearchEngine) runCombination(dm *DistanceMatrix, p ParameterCombination) (res ExperimentResult) {
	res = ExperimentResult{Params: p}
	defer func() {
		if r := recover(); r != nil {
			cerr := &ComputationError{Combination: p, Err: fmt.Errorf("panic: %v", r)}
			res = ExperimentResult{Params: p, Err: cerr.Error()}
			log.Printf("⚠️  %v", cerr)
		}
	}()

	labels, err := e.Clusterer.Cluster(dm, p.MinClusterSize, p.MinSamples, p.Epsilon)
	if err == nil && len(labels) != dm.Len() {
		err = fmt.Errorf("clusterer returned %d labels for %d points", len(labels), dm.Len())
	}
	if err != nil {
		cerr := &ComputationError{Combination: p, Err: err}
		res.Err = cerr.Error()
		log.Printf("⚠️  %v", cerr)
		return res
	}

	res.Labels = labels
	res.ClusterSizes = make(map[int]int)
	for _, l := range labels {
		if l == Noise {
			res.Outliers++
			continue
		}
		res.ClusterSizes[l]++
	}
	res.TotalClusters = len(res.ClusterSizes)

	if report, ok := Silhouette(dm, labels); ok {
		score := report.Mean
		res.Silhouette = &score
		res.clusterScores = report.ByLabel
	}
	return res
}

// SortedLabels returns the non-noise labels of sizes in ascending order.
func SortedLabels(sizes map[int]int) []int {
	labels := make([]int, 0, len(sizes))
	for l := range sizes {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}

func dimName(d int) string {
	if d == 0 {
		return "native"
	}
	return fmt.Sprint(d)
}
