package kdtree

import (
	"math"

	"github.com/pkg/errors"
)

// ErrDimensionMismatch is returned when a point or query does not have the
// tree's dimension.
var ErrDimensionMismatch = errors.New("kdtree: dimension mismatch")

// Point is a searchable coordinate vector with an opaque payload.
type Point[T any] struct {
	Coords  []float64
	Payload T
}

const noChild = -1

// node is an arena slot. Internal nodes use cutDim/split/left/right, leaves use
// start/end into the tree's leaf storage. lo and hi are the extent of the
// node's bounding box along cutDim.
type node struct {
	leaf   bool
	cutDim int
	split  float64
	lo, hi float64
	left   int32
	right  int32
	start  int32
	end    int32
}

// Tree is an immutable k-d tree. Build it with Build.
type Tree[T any] struct {
	dimension  int
	bucketSize int

	// leaf storage, point i occupies coords[i*dimension : (i+1)*dimension]
	coords   []float64
	payloads []T

	nodes  []node
	root   int32
	leaves int
	depth  int

	boxMin []float64
	boxMax []float64
}

// Build partitions points into a new tree.
//
// Parameters:
//   - points: the records to index. Every point must have exactly dimension
//     coordinates. The slice is not retained.
//   - dimension: number of searchable coordinates (k).
//   - bucketSize: a range becomes a leaf once it holds at most
//     bucketSize-1 points. A bucketSize of 1 yields single-point leaves.
//
// Returns:
//   - *Tree[T]: the built tree. An empty input yields an empty tree whose
//     queries report Found == false.
//   - error: non-nil when dimension or bucketSize is not positive or a point
//     has the wrong number of coordinates.
func Build[T any](points []Point[T], dimension, bucketSize int) (*Tree[T], error) {
	if dimension <= 0 {
		return nil, errors.Errorf("kdtree: dimension must be positive, got %d", dimension)
	}
	if bucketSize <= 0 {
		return nil, errors.Errorf("kdtree: bucket size must be positive, got %d", bucketSize)
	}
	for i, p := range points {
		if len(p.Coords) != dimension {
			return nil, errors.Wrapf(ErrDimensionMismatch, "point %d has %d coordinates, want %d",
				i, len(p.Coords), dimension)
		}
	}

	t := &Tree[T]{
		dimension:  dimension,
		bucketSize: bucketSize,
		root:       noChild,
		coords:     make([]float64, 0, len(points)*dimension),
		payloads:   make([]T, 0, len(points)),
	}
	if len(points) == 0 {
		return t, nil
	}

	// bounding box of the whole set
	t.boxMin = make([]float64, dimension)
	t.boxMax = make([]float64, dimension)
	for d := 0; d < dimension; d++ {
		t.boxMin[d] = math.Inf(1)
		t.boxMax[d] = math.Inf(-1)
	}
	for _, p := range points {
		for d, v := range p.Coords {
			t.boxMin[d] = math.Min(t.boxMin[d], v)
			t.boxMax[d] = math.Max(t.boxMax[d], v)
		}
	}

	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}

	b := builder[T]{tree: t, points: points, order: order}
	boxLo := append([]float64(nil), t.boxMin...)
	boxHi := append([]float64(nil), t.boxMax...)
	t.root = b.build(0, len(points), 0, boxLo, boxHi)
	return t, nil
}

type builder[T any] struct {
	tree   *Tree[T]
	points []Point[T]
	order  []int
}

// build materializes order[lo:hi]. Every split is at the median, so the
// recursion depth grows with log2 of n/bucketSize.
func (b *builder[T]) build(lo, hi, depth int, boxLo, boxHi []float64) int32 {
	t := b.tree
	if depth+1 > t.depth {
		t.depth = depth + 1
	}
	cut := depth % t.dimension
	count := hi - lo

	if count < t.bucketSize || count == 1 {
		start := len(t.payloads)
		for _, idx := range b.order[lo:hi] {
			p := b.points[idx]
			t.coords = append(t.coords, p.Coords...)
			t.payloads = append(t.payloads, p.Payload)
		}
		t.leaves++
		t.nodes = append(t.nodes, node{
			leaf:   true,
			cutDim: cut,
			lo:     boxLo[cut],
			hi:     boxHi[cut],
			left:   noChild,
			right:  noChild,
			start:  int32(start),
			end:    int32(len(t.payloads)),
		})
		return int32(len(t.nodes) - 1)
	}

	mid := lo + count/2
	b.selectKth(lo, hi, mid, cut)
	split := b.points[b.order[mid]].Coords[cut]

	self := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{cutDim: cut, split: split, lo: boxLo[cut], hi: boxHi[cut]})

	saved := boxHi[cut]
	boxHi[cut] = split
	left := b.build(lo, mid, depth+1, boxLo, boxHi)
	boxHi[cut] = saved

	saved = boxLo[cut]
	boxLo[cut] = split
	right := b.build(mid, hi, depth+1, boxLo, boxHi)
	boxLo[cut] = saved

	t.nodes[self].left = left
	t.nodes[self].right = right
	return self
}

// selectKth reorders order[lo:hi] so the element at k has the k-th smallest
// value along dim, smaller or equal values before it and larger or equal
// after it. Pivots are chosen by position so equal keys are placed
// deterministically.
func (b *builder[T]) selectKth(lo, hi, k, dim int) {
	key := func(i int) float64 { return b.points[b.order[i]].Coords[dim] }

	left, right := lo, hi-1
	for left < right {
		pivot := key(left + (right-left)/2)
		i, j := left, right
		for i <= j {
			for key(i) < pivot {
				i++
			}
			for key(j) > pivot {
				j--
			}
			if i <= j {
				b.order[i], b.order[j] = b.order[j], b.order[i]
				i++
				j--
			}
		}
		switch {
		case k <= j:
			right = j
		case k >= i:
			left = i
		default:
			return
		}
	}
}

// Len returns the number of indexed points.
func (t *Tree[T]) Len() int { return len(t.payloads) }

// Dimension returns the number of searchable coordinates.
func (t *Tree[T]) Dimension() int { return t.dimension }

// BucketSize returns the maximum leaf size the tree was built with.
func (t *Tree[T]) BucketSize() int { return t.bucketSize }

// LeafCount returns the number of leaf buckets. It is the default leaf budget
// of a query, which makes an unbudgeted query exhaustive.
func (t *Tree[T]) LeafCount() int { return t.leaves }

// Depth returns the number of levels, counting the leaf level.
func (t *Tree[T]) Depth() int { return t.depth }

// Points returns a copy of every indexed point in leaf storage order.
func (t *Tree[T]) Points() []Point[T] {
	out := make([]Point[T], len(t.payloads))
	for i := range out {
		out[i] = Point[T]{
			Coords:  append([]float64(nil), t.coordsAt(int32(i))...),
			Payload: t.payloads[i],
		}
	}
	return out
}

func (t *Tree[T]) coordsAt(i int32) []float64 {
	off := int(i) * t.dimension
	return t.coords[off : off+t.dimension : off+t.dimension]
}
