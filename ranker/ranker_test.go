package ranker

import (
	"fmt"
	"math/rand"
	"testing"

	"clipsim/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// abcMatrix has sim(A,B)=0.9, sim(A,C)=0.2, sim(B,C)=0.5
func abcMatrix() *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		1, 0.9, 0.2,
		0.9, 1, 0.5,
		0.2, 0.5, 1,
	})
}

func TestLeastSimilarScenario(t *testing.T) {
	pairs, err := LeastSimilar(abcMatrix(), []string{"A", "B", "C"}, 2)
	require.NoError(t, err)

	assert.Equal(t, []types.RankedPair{
		{First: "A", Second: "C", Score: 0.2},
		{First: "B", Second: "C", Score: 0.5},
	}, pairs)
}

func TestTopNLargerThanPairCount(t *testing.T) {
	pairs, err := LeastSimilar(abcMatrix(), []string{"A", "B", "C"}, 10)
	require.NoError(t, err)

	assert.Equal(t, []types.RankedPair{
		{First: "A", Second: "C", Score: 0.2},
		{First: "B", Second: "C", Score: 0.5},
		{First: "A", Second: "B", Score: 0.9},
	}, pairs)
}

func TestDescendingOrder(t *testing.T) {
	pairs, err := Rank(abcMatrix(), []string{"A", "B", "C"}, 1, Descending)
	require.NoError(t, err)
	assert.Equal(t, []types.RankedPair{{First: "A", Second: "B", Score: 0.9}}, pairs)
}

func TestTiesKeepEnumerationOrder(t *testing.T) {
	m := mat.NewSymDense(3, []float64{
		1, 0.4, 0.4,
		0.4, 1, 0.4,
		0.4, 0.4, 1,
	})
	names := []string{"x", "y", "z"}

	for _, order := range []Order{Ascending, Descending} {
		pairs, err := Rank(m, names, 3, order)
		require.NoError(t, err)
		assert.Equal(t, []types.RankedPair{
			{First: "x", Second: "y", Score: 0.4},
			{First: "x", Second: "z", Score: 0.4},
			{First: "y", Second: "z", Score: 0.4},
		}, pairs)
	}
}

func TestFewerThanTwoImages(t *testing.T) {
	pairs, err := LeastSimilar(mat.NewSymDense(1, []float64{1}), []string{"solo"}, 3)
	require.NoError(t, err)
	assert.Empty(t, pairs)

	pairs, err = LeastSimilar(nil, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestInvalidInput(t *testing.T) {
	_, err := LeastSimilar(abcMatrix(), []string{"A", "B", "C"}, 0)
	assert.ErrorIs(t, err, ErrInvalidTopN)

	_, err = LeastSimilar(abcMatrix(), []string{"A", "B"}, 1)
	assert.Error(t, err)

	_, err = LeastSimilar(nil, []string{"A", "B"}, 1)
	assert.Error(t, err)
}

func TestPairCountUniquenessAndOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for n := 0; n <= 9; n++ {
		m := mat.NewDense(max(n, 1), max(n, 1), nil)
		if n > 0 {
			for i := 0; i < n; i++ {
				m.Set(i, i, 1)
				for j := i + 1; j < n; j++ {
					v := rng.Float64()*2 - 1
					m.Set(i, j, v)
					m.Set(j, i, v)
				}
			}
		}

		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("img%02d.png", i)
		}

		for _, topN := range []int{1, 3, 100} {
			pairs, err := LeastSimilar(m, names, topN)
			require.NoError(t, err)

			want := min(topN, n*(n-1)/2)
			require.Len(t, pairs, want, "n=%d topN=%d", n, topN)

			seen := make(map[[2]string]bool)
			for k, p := range pairs {
				assert.Less(t, p.First, p.Second, "pair must be i<j")
				key := [2]string{p.First, p.Second}
				assert.False(t, seen[key], "duplicate pair %v", key)
				seen[key] = true
				if k > 0 {
					assert.LessOrEqual(t, pairs[k-1].Score, p.Score)
				}
			}
		}
	}
}
