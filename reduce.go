package abstractcluster

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Reducer projects vectors onto dim components.
type Reducer interface {
	Reduce(vectors [][]float64, dim int) ([][]float64, error)
}

// PCAReducer reduces L2-normalised vectors with principal component
// analysis. Normalising first makes Euclidean structure follow cosine
// similarity, so the projection keeps the angular layout of the input.
type PCAReducer struct{}

// Reduce implements Reducer.
func (PCAReducer) Reduce(vectors [][]float64, dim int) ([][]float64, error) {
	n := len(vectors)
	if n == 0 {
		return nil, errors.New("no vectors to reduce")
	}
	width := len(vectors[0])
	if dim <= 0 || dim > width || dim > n {
		return nil, fmt.Errorf("cannot reduce %d vectors of width %d to %d components", n, width, dim)
	}

	data := mat.NewDense(n, width, nil)
	for i, v := range vectors {
		if len(v) != width {
			return nil, fmt.Errorf("row %d has width %d, want %d", i, len(v), width)
		}
		row := make([]float64, width)
		copy(row, v)
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
		data.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(data, nil); !ok {
		return nil, errors.New("principal component decomposition failed")
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, k := vecs.Dims()
	if dim > k {
		return nil, fmt.Errorf("only %d components available, want %d", k, dim)
	}

	// Centre columns so the projection matches the decomposition.
	for j := 0; j < width; j++ {
		col := mat.Col(nil, j, data)
		mean := stat.Mean(col, nil)
		for i := range col {
			data.Set(i, j, col[i]-mean)
		}
	}

	var proj mat.Dense
	proj.Mul(data, vecs.Slice(0, width, 0, dim))

	out := make([][]float64, n)
	for i := range out {
		out[i] = mat.Row(nil, i, &proj)
	}
	return out, nil
}

// Project2D assigns every document a 2-D projection from its embedding.
// Corpora too small for a projection are left untouched.
func Project2D(r Reducer, corpus Corpus) error {
	if len(corpus) < 2 || corpus.Width() < 2 {
		return nil
	}
	coords, err := r.Reduce(corpus.Embeddings(), 2)
	if err != nil {
		return fmt.Errorf("failed to project documents: %w", err)
	}
	for i, d := range corpus {
		d.Projection = &Point{X: coords[i][0], Y: coords[i][1]}
	}
	return nil
}
