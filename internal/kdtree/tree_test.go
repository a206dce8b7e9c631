package kdtree

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomPoints creates n points in [0,100)^dim whose payload is their index.
func randomPoints(rng *rand.Rand, n, dim int) []Point[int] {
	points := make([]Point[int], n)
	for i := range points {
		c := make([]float64, dim)
		for d := range c {
			c[d] = rng.Float64() * 100
		}
		points[i] = Point[int]{Coords: c, Payload: i}
	}
	return points
}

// bruteForce returns the payload and squared distance of the closest point.
func bruteForce(points []Point[int], q []float64) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for _, p := range points {
		if d := distSq(q, p.Coords); d < bestDist {
			best, bestDist = p.Payload, d
		}
	}
	return best, bestDist
}

func TestNearestNeighbor_MatchesBruteForce(t *testing.T) {
	for _, dim := range []int{2, 4, 8} {
		t.Run(fmt.Sprintf("dim=%d", dim), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(dim)))
			points := randomPoints(rng, 1500, dim)

			tree, err := Build(points, dim, 8)
			require.NoError(t, err)
			require.Equal(t, 1500, tree.Len())

			for i := 0; i < 200; i++ {
				q := make([]float64, dim)
				for d := range q {
					q[d] = rng.Float64()*120 - 10
				}
				wantID, wantDist := bruteForce(points, q)

				exact, err := tree.NearestNeighbor(q, Options{})
				require.NoError(t, err)
				require.True(t, exact.Found)
				assert.Equal(t, wantID, exact.Payload, "exact query %d", i)
				assert.InDelta(t, wantDist, exact.DistSq, 1e-9)

				bbf, err := tree.NearestNeighborBBF(q, Options{MaxLeaves: tree.LeafCount()})
				require.NoError(t, err)
				require.True(t, bbf.Found)
				assert.Equal(t, wantID, bbf.Payload, "bbf query %d", i)
				assert.InDelta(t, wantDist, bbf.DistSq, 1e-9)
			}
		})
	}
}

func TestNearestNeighborBBF_LeafBudget(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	points := randomPoints(rng, 2000, 4)
	const bucket = 10

	tree, err := Build(points, 4, bucket)
	require.NoError(t, err)
	require.Greater(t, tree.LeafCount(), 1)

	for i := 0; i < 50; i++ {
		q := randomPoints(rng, 1, 4)[0].Coords

		res, err := tree.NearestNeighborBBF(q, Options{MaxLeaves: 1})
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, 1, res.LeavesVisited)
		assert.LessOrEqual(t, res.PointsCompared, bucket)

		dfs, err := tree.NearestNeighbor(q, Options{MaxLeaves: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, dfs.LeavesVisited)
		assert.LessOrEqual(t, dfs.PointsCompared, bucket)
	}
}

func TestNearestNeighbor_PruningVisitsFewLeaves(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	points := randomPoints(rng, 4000, 2)

	tree, err := Build(points, 2, 4)
	require.NoError(t, err)

	res, err := tree.NearestNeighbor([]float64{50, 50}, Options{})
	require.NoError(t, err)
	assert.Less(t, res.LeavesVisited, tree.LeafCount()/4)
}

func TestBuild_LeafSizesAndDepth(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	points := randomPoints(rng, 1000, 3)

	tree, err := Build(points, 3, 16)
	require.NoError(t, err)

	total := 0
	for _, n := range tree.nodes {
		if n.leaf {
			size := int(n.end - n.start)
			assert.Less(t, size, 16, "leaves hold at most bucketSize-1 points")
			assert.Positive(t, size)
			total += size
		}
	}
	assert.Equal(t, 1000, total)

	// balanced: ceil(log2(1000/15)) + 1 = 8 levels
	assert.LessOrEqual(t, tree.Depth(), 8)
}

func TestBuild_LeafBaseCase(t *testing.T) {
	points := randomPoints(rand.New(rand.NewSource(9)), 4, 2)

	// 4 points with bucket 5 fit in one leaf, with bucket 4 they do not.
	tree, err := Build(points, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, tree.LeafCount())

	tree, err = Build(points, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.LeafCount())

	tree, err = Build(points, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, tree.LeafCount())
}

func TestBuild_CopiesCoordinates(t *testing.T) {
	points := []Point[string]{
		{Coords: []float64{0, 0}, Payload: "origin"},
		{Coords: []float64{10, 10}, Payload: "far"},
	}
	tree, err := Build(points, 2, 1)
	require.NoError(t, err)

	points[0].Coords[0] = 99

	res, err := tree.NearestNeighbor([]float64{0.5, 0}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "origin", res.Payload)
	assert.Equal(t, []float64{0, 0}, res.Coords)
}

func TestBuild_Duplicates(t *testing.T) {
	points := make([]Point[int], 100)
	for i := range points {
		points[i] = Point[int]{Coords: []float64{1, 1}, Payload: i}
	}
	points[57].Coords = []float64{5, 5}

	tree, err := Build(points, 2, 3)
	require.NoError(t, err)

	res, err := tree.NearestNeighborBBF([]float64{5.1, 5}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 57, res.Payload)

	res, err = tree.NearestNeighbor([]float64{1, 1}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.DistSq)
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build([]Point[int]{{Coords: []float64{1, 2}}}, 0, 4)
	assert.Error(t, err)

	_, err = Build([]Point[int]{{Coords: []float64{1, 2}}}, 2, 0)
	assert.Error(t, err)

	_, err = Build([]Point[int]{{Coords: []float64{1, 2}}, {Coords: []float64{1}}}, 2, 4)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestQuery_DimensionMismatch(t *testing.T) {
	tree, err := Build(randomPoints(rand.New(rand.NewSource(1)), 10, 3), 3, 2)
	require.NoError(t, err)

	_, err = tree.NearestNeighbor([]float64{1, 2}, Options{})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = tree.NearestNeighborBBF([]float64{1, 2, 3, 4}, Options{})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestQuery_EmptyTree(t *testing.T) {
	tree, err := Build[int](nil, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.LeafCount())

	res, err := tree.NearestNeighbor([]float64{1, 2}, Options{})
	require.NoError(t, err)
	assert.False(t, res.Found)

	res, err = tree.NearestNeighborBBF([]float64{1, 2}, Options{})
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestQuery_Candidates(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	points := randomPoints(rng, 800, 2)
	tree, err := Build(points, 2, 6)
	require.NoError(t, err)

	q := []float64{42, 17}
	wantID, _ := bruteForce(points, q)

	for name, query := range map[string]func([]float64, Options) (Result[int], error){
		"dfs": tree.NearestNeighbor,
		"bbf": tree.NearestNeighborBBF,
	} {
		t.Run(name, func(t *testing.T) {
			res, err := query(q, Options{CollectCandidates: true})
			require.NoError(t, err)
			require.NotEmpty(t, res.Candidates)

			assert.Equal(t, wantID, res.Candidates[0].Payload)
			for i := 1; i < len(res.Candidates); i++ {
				assert.LessOrEqual(t, res.Candidates[i-1].DistSq, res.Candidates[i].DistSq)
			}
		})
	}

	res, err := tree.NearestNeighbor(q, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Candidates)
}

func TestQuery_ConcurrentReaders(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	points := randomPoints(rng, 1000, 3)
	tree, err := Build(points, 3, 8)
	require.NoError(t, err)

	queries := randomPoints(rng, 64, 3)
	done := make(chan struct{})
	for _, q := range queries {
		go func(q []float64) {
			defer func() { done <- struct{}{} }()
			want, _ := bruteForce(points, q)
			res, err := tree.NearestNeighborBBF(q, Options{})
			assert.NoError(t, err)
			assert.Equal(t, want, res.Payload)
		}(q.Coords)
	}
	for range queries {
		<-done
	}
}

func TestPoints_ReturnsCopies(t *testing.T) {
	points := randomPoints(rand.New(rand.NewSource(2)), 20, 2)
	tree, err := Build(points, 2, 4)
	require.NoError(t, err)

	got := tree.Points()
	require.Len(t, got, 20)
	got[0].Coords[0] = -1
	for _, p := range tree.Points() {
		assert.NotEqual(t, -1.0, p.Coords[0])
	}
}
