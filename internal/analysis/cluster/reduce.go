package cluster

import (
	"fmt"
	"math"
	"math/rand"
)

// Reducer is the pluggable dimensionality-reduction strategy. The
// neighbors parameter carries the manifold neighborhood size for
// strategies that use one; it is already clamped to n-1 by the caller.
type Reducer interface {
	Reduce(points [][]float64, dims, neighbors int) ([][]float64, error)
}

// PCAReducer projects embeddings onto their top principal components
// via power iteration with deflation. It ignores the neighbors
// parameter; the projection is deterministic for a given input.
type PCAReducer struct {
	iterations int
	seed       int64
}

// NewPCAReducer creates a reducer with enough iterations to converge
// on the well-separated spectra embedding batches have.
func NewPCAReducer() *PCAReducer {
	return &PCAReducer{iterations: 100, seed: 7}
}

// Reduce projects points down to dims dimensions.
func (p *PCAReducer) Reduce(points [][]float64, dims, neighbors int) ([][]float64, error) {
	n := len(points)
	if n == 0 {
		return [][]float64{}, nil
	}
	width := len(points[0])
	for i, row := range points {
		if len(row) != width {
			return nil, fmt.Errorf("ragged embedding matrix: row %d has %d dims, expected %d", i, len(row), width)
		}
	}

	if dims >= width {
		out := make([][]float64, n)
		for i, row := range points {
			out[i] = append([]float64(nil), row...)
		}
		return out, nil
	}

	// Center columns.
	centered := make([][]float64, n)
	means := make([]float64, width)
	for _, row := range points {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(n)
	}
	for i, row := range points {
		centered[i] = make([]float64, width)
		for j, v := range row {
			centered[i][j] = v - means[j]
		}
	}

	rng := rand.New(rand.NewSource(p.seed))
	reduced := make([][]float64, n)
	for i := range reduced {
		reduced[i] = make([]float64, dims)
	}

	for comp := 0; comp < dims; comp++ {
		v := randomUnit(width, rng)

		// Power iteration on the implicit covariance: v <- X^T (X v)
		for iter := 0; iter < p.iterations; iter++ {
			projected := matVec(centered, v)
			next := vecMat(projected, centered)
			norm := vecNorm(next)
			if norm == 0 {
				break
			}
			for j := range next {
				next[j] /= norm
			}
			v = next
		}

		scores := matVec(centered, v)
		for i := range reduced {
			reduced[i][comp] = scores[i]
		}

		// Deflate: remove the component so the next iteration finds an
		// orthogonal direction.
		for i := range centered {
			for j := range centered[i] {
				centered[i][j] -= scores[i] * v[j]
			}
		}
	}

	return reduced, nil
}

func randomUnit(dims int, rng *rand.Rand) []float64 {
	v := make([]float64, dims)
	for j := range v {
		v[j] = rng.NormFloat64()
	}
	norm := vecNorm(v)
	if norm == 0 {
		v[0] = 1
		return v
	}
	for j := range v {
		v[j] /= norm
	}
	return v
}

func matVec(m [][]float64, v []float64) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		var total float64
		for j, x := range row {
			total += x * v[j]
		}
		out[i] = total
	}
	return out
}

func vecMat(v []float64, m [][]float64) []float64 {
	out := make([]float64, len(m[0]))
	for i, row := range m {
		for j, x := range row {
			out[j] += v[i] * x
		}
	}
	return out
}

func vecNorm(v []float64) float64 {
	var total float64
	for _, x := range v {
		total += x * x
	}
	return math.Sqrt(total)
}
