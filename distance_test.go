package abstractcluster

import (
	"math"
	"testing"
)

func TestDistanceMatrix(t *testing.T) {
	dm := NewDistanceMatrix([][]float64{
		{1, 0},
		{0, 1},
		{-1, 0},
		{2, 0},
		{0, 0},
	})

	if dm.Len() != 5 {
		t.Fatalf("expected 5 points, got %d", dm.Len())
	}

	tests := []struct {
		i, j int
		want float64
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0, 2, 2},
		{0, 3, 0},
		{1, 2, 1},
		{4, 0, 1},
		{4, 4, 0},
	}
	for _, tc := range tests {
		if got := dm.At(tc.i, tc.j); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("At(%d,%d) = %v, want %v", tc.i, tc.j, got, tc.want)
		}
		if dm.At(tc.i, tc.j) != dm.At(tc.j, tc.i) {
			t.Errorf("matrix not symmetric at (%d,%d)", tc.i, tc.j)
		}
	}
}

func TestDistanceMatrixNeverNegative(t *testing.T) {
	v := []float64{0.1, 0.2, 0.3}
	dm := NewDistanceMatrix([][]float64{v, v, {0.2, 0.4, 0.6}})
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if d := dm.At(i, j); d < 0 {
				t.Fatalf("negative distance %v at (%d,%d)", d, i, j)
			}
		}
	}
}

func TestDistanceMatrixRow(t *testing.T) {
	dm := NewDistanceMatrix([][]float64{{1, 0}, {0, 1}, {1, 1}})
	row := dm.Row(0, nil)
	if len(row) != 3 || row[0] != 0 || math.Abs(row[1]-1) > 1e-12 {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestDistanceMatrixEmpty(t *testing.T) {
	if n := NewDistanceMatrix(nil).Len(); n != 0 {
		t.Fatalf("expected empty matrix, got %d", n)
	}
}
