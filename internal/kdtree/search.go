package kdtree

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ironsheep/stereo-objects-mcp/internal/pqueue"
)

// DefaultMaxCandidates is the candidate queue capacity used when
// Options.CollectCandidates is set and Options.MaxCandidates is zero.
const DefaultMaxCandidates = 64

// Options tunes a single query.
type Options struct {
	// MaxLeaves bounds the number of leaf buckets scanned. Zero or negative
	// means LeafCount(), i.e. an exhaustive and therefore exact search.
	MaxLeaves int

	// CollectCandidates records every point that improved the running best
	// distance in Result.Candidates.
	CollectCandidates bool

	// MaxCandidates is the capacity of the candidate queue. Improvements past
	// the capacity are dropped.
	MaxCandidates int
}

// Neighbor is a point found by a query.
type Neighbor[T any] struct {
	// Coords aliases the tree's storage and must not be modified.
	Coords  []float64
	Payload T
	DistSq  float64
}

// Result is the outcome of a nearest-neighbor query.
type Result[T any] struct {
	Neighbor[T]

	// Found is false only for an empty tree.
	Found bool

	// LeavesVisited counts leaf buckets scanned.
	LeavesVisited int

	// PointsCompared counts points whose distance was evaluated.
	PointsCompared int

	// Candidates lists improving points in ascending distance when
	// Options.CollectCandidates is set. Improvements beyond MaxCandidates are
	// dropped, so the list may then miss the closest ones; Neighbor always
	// holds the result.
	Candidates []Neighbor[T]
}

// search is the per-query context. Nothing in it is shared with other
// queries.
type search[T any] struct {
	tree       *Tree[T]
	query      []float64
	best       int32
	bestDist   float64
	leavesLeft int
	leaves     int
	compared   int
	candidates *pqueue.Queue[int32]
}

func (t *Tree[T]) newSearch(query []float64, opts Options) (*search[T], error) {
	if len(query) != t.dimension {
		return nil, errors.Wrapf(ErrDimensionMismatch, "query has %d coordinates, want %d",
			len(query), t.dimension)
	}
	s := &search[T]{
		tree:       t,
		query:      query,
		best:       noChild,
		bestDist:   math.Inf(1),
		leavesLeft: opts.MaxLeaves,
	}
	if s.leavesLeft <= 0 || s.leavesLeft > t.leaves {
		s.leavesLeft = t.leaves
	}
	if opts.CollectCandidates {
		capacity := opts.MaxCandidates
		if capacity <= 0 {
			capacity = DefaultMaxCandidates
		}
		s.candidates = pqueue.New[int32](capacity)
	}
	return s, nil
}

// NearestNeighbor returns the indexed point closest to query in squared
// Euclidean distance, searching depth first with plane-distance pruning.
//
// With the default budget the result is exact. With opts.MaxLeaves smaller
// than LeafCount the best point among the visited leaves is returned, which
// may not be the true nearest neighbor.
func (t *Tree[T]) NearestNeighbor(query []float64, opts Options) (Result[T], error) {
	s, err := t.newSearch(query, opts)
	if err != nil {
		return Result[T]{}, err
	}
	if t.root != noChild {
		s.descend(t.root)
	}
	return s.result(), nil
}

func (s *search[T]) descend(ni int32) {
	if s.leavesLeft == 0 {
		return
	}
	n := &s.tree.nodes[ni]
	if n.leaf {
		s.scanLeaf(n)
		return
	}

	diff := s.query[n.cutDim] - n.split
	near, far := n.left, n.right
	if diff >= 0 {
		near, far = n.right, n.left
	}

	s.descend(near)
	if diff*diff <= s.bestDist {
		s.descend(far)
	}
}

// NearestNeighborBBF returns the indexed point closest to query, exploring
// bins in best-bin-first order.
//
// At every internal node on the way to a leaf the far child is queued with a
// lower bound on its distance to the query; after scanning a leaf the bin
// with the smallest bound is explored next. The search stops when the leaf
// budget is spent or the smallest remaining bound exceeds the best distance.
func (t *Tree[T]) NearestNeighborBBF(query []float64, opts Options) (Result[T], error) {
	s, err := t.newSearch(query, opts)
	if err != nil {
		return Result[T]{}, err
	}
	if t.root == noChild {
		return s.result(), nil
	}

	// every internal node is queued at most once, so this never overflows
	bins := pqueue.New[int32](len(t.nodes))
	bins.Push(t.rootBound(query), t.root)

	for s.leavesLeft > 0 {
		bound, ni, ok := bins.Pop()
		if !ok || bound > s.bestDist {
			break
		}

		for !t.nodes[ni].leaf {
			n := &t.nodes[ni]
			qv := query[n.cutDim]

			near, far := n.left, n.right
			farLo, farHi := n.split, n.hi
			if qv >= n.split {
				near, far = n.right, n.left
				farLo, farHi = n.lo, n.split
			}

			farBound := bound - slabDistSq(qv, n.lo, n.hi) + slabDistSq(qv, farLo, farHi)
			if farBound <= s.bestDist {
				bins.Push(farBound, far)
			}
			ni = near
		}
		s.scanLeaf(&t.nodes[ni])
	}
	return s.result(), nil
}

// rootBound is the squared distance from query to the bounding box of the
// whole point set.
func (t *Tree[T]) rootBound(query []float64) float64 {
	var sum float64
	for d, v := range query {
		sum += slabDistSq(v, t.boxMin[d], t.boxMax[d])
	}
	return sum
}

// slabDistSq is the squared distance from v to the interval [lo, hi].
func slabDistSq(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return (lo - v) * (lo - v)
	case v > hi:
		return (v - hi) * (v - hi)
	}
	return 0
}

func (s *search[T]) scanLeaf(n *node) {
	s.leavesLeft--
	s.leaves++
	for i := n.start; i < n.end; i++ {
		d := distSq(s.query, s.tree.coordsAt(i))
		s.compared++
		if d < s.bestDist {
			s.bestDist = d
			s.best = i
			if s.candidates != nil {
				s.candidates.Push(d, i)
			}
		}
	}
}

func (s *search[T]) result() Result[T] {
	r := Result[T]{
		LeavesVisited:  s.leaves,
		PointsCompared: s.compared,
	}
	if s.best == noChild {
		return r
	}
	r.Found = true
	r.Neighbor = s.neighbor(s.best, s.bestDist)

	if s.candidates != nil {
		r.Candidates = make([]Neighbor[T], 0, s.candidates.Len())
		for {
			d, i, ok := s.candidates.Pop()
			if !ok {
				break
			}
			r.Candidates = append(r.Candidates, s.neighbor(i, d))
		}
	}
	return r
}

func (s *search[T]) neighbor(i int32, d float64) Neighbor[T] {
	return Neighbor[T]{
		Coords:  s.tree.coordsAt(i),
		Payload: s.tree.payloads[i],
		DistSq:  d,
	}
}

func distSq(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
