// Package similarity computes cosine similarities between embedding vectors.
//
// Embeddings are expected to be L2-normalized, in which case cosine
// similarity is a plain dot product and the pairwise matrix is E·Eᵀ.
package similarity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/mat"
)

// Matrix computes the N×N cosine-similarity matrix of pre-normalized embeddings.
// Entry (i, j) is the dot product of embeddings i and j; the result is symmetric
// by construction. An empty input yields a nil matrix and no error.
func Matrix(embeddings [][]float32) (*mat.SymDense, error) {
	n := len(embeddings)
	if n == 0 {
		return nil, nil
	}

	d := len(embeddings[0])
	if d == 0 {
		return nil, fmt.Errorf("similarity: embeddings have zero width")
	}

	data := make([]float64, 0, n*d)
	for i, row := range embeddings {
		if len(row) != d {
			return nil, fmt.Errorf("similarity: embedding %d has width %d, want %d", i, len(row), d)
		}
		for _, v := range row {
			data = append(data, float64(v))
		}
	}

	e := mat.NewDense(n, d, data)
	s := mat.NewSymDense(n, nil)
	s.SymOuterK(1, e)
	return s, nil
}

// Cosine returns the cosine similarity of a and b without assuming unit norm.
// Zero vectors and mismatched lengths yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Sub returns a - b element-wise
func Sub(a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// Normalize scales v in place to unit L2 norm and reports whether it could.
// A zero vector is left unchanged.
func Normalize(v []float32) bool {
	if len(v) == 0 {
		return false
	}

	vec := blas32.Vector{N: len(v), Inc: 1, Data: v}
	norm := blas32.Nrm2(vec)
	if norm == 0 {
		return false
	}

	blas32.Scal(1/norm, vec)
	return true
}
