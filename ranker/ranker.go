package ranker

import (
	"errors"
	"fmt"
	"sort"

	"clipsim/types"
)

// ErrInvalidTopN is returned when the requested pair count is not positive
var ErrInvalidTopN = errors.New("top_n must be positive")

// Matrix is the read-only view of a similarity matrix the ranker needs.
// *mat.SymDense and *mat.Dense both satisfy it.
type Matrix interface {
	Dims() (r, c int)
	At(i, j int) float64
}

// Order selects which end of the similarity range is reported
type Order int

const (
	// Ascending reports the least similar pairs first
	Ascending Order = iota
	// Descending reports the most similar pairs first
	Descending
)

// LeastSimilar returns the topN pairs with the lowest similarity, ascending
func LeastSimilar(m Matrix, filenames []string, topN int) ([]types.RankedPair, error) {
	return Rank(m, filenames, topN, Ascending)
}

// Rank enumerates every pair (i, j) with i < j once, sorts by score in the
// given order and returns the first topN. Ties keep enumeration order.
// Fewer than two filenames yields an empty result.
func Rank(m Matrix, filenames []string, topN int, order Order) ([]types.RankedPair, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopN, topN)
	}

	n := len(filenames)
	if n < 2 {
		return []types.RankedPair{}, nil
	}

	if m == nil {
		return nil, fmt.Errorf("nil similarity matrix for %d images", n)
	}
	if r, c := m.Dims(); r != n || c != n {
		return nil, fmt.Errorf("similarity matrix is %dx%d but there are %d filenames", r, c, n)
	}

	pairs := make([]types.RankedPair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, types.RankedPair{
				First:  filenames[i],
				Second: filenames[j],
				Score:  m.At(i, j),
			})
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		if order == Descending {
			return pairs[a].Score > pairs[b].Score
		}
		return pairs[a].Score < pairs[b].Score
	})

	if len(pairs) > topN {
		pairs = pairs[:topN]
	}
	return pairs, nil
}
