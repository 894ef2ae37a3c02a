package abstractcluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DistanceMatrix holds pairwise cosine distances for one vector set.
type DistanceMatrix struct {
	m *mat.SymDense
}

// NewDistanceMatrix computes 1 - cos(a, b) for every pair of rows. The
// diagonal is zero and round-off is clamped into [0, 2].
func NewDistanceMatrix(vectors [][]float64) *DistanceMatrix {
	n := len(vectors)
	if n == 0 {
		return &DistanceMatrix{}
	}

	norms := make([]float64, n)
	for i, v := range vectors {
		norms[i] = floats.Norm(v, 2)
	}

	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			m.SetSym(i, j, cosineDistance(vectors[i], vectors[j], norms[i], norms[j]))
		}
	}
	return &DistanceMatrix{m: m}
}

// cosineDistance returns 1 - cosine similarity. Zero vectors are treated as
// orthogonal to everything.
func cosineDistance(a, b []float64, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 1
	}
	d := 1 - floats.Dot(a, b)/(normA*normB)
	return math.Min(math.Max(d, 0), 2)
}

// Len returns the number of points.
func (d *DistanceMatrix) Len() int {
	if d.m == nil {
		return 0
	}
	return d.m.SymmetricDim()
}

// At returns the distance between points i and j.
func (d *DistanceMatrix) At(i, j int) float64 {
	return d.m.At(i, j)
}

// Row copies the distances from point i into dst, allocating when dst is too short.
func (d *DistanceMatrix) Row(i int, dst []float64) []float64 {
	n := d.Len()
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	for j := 0; j < n; j++ {
		dst[j] = d.m.At(i, j)
	}
	return dst
}
