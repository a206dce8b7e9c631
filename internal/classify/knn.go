// Package classify labels feature vectors by their nearest training sample,
// using the k-d tree's best-bin-first search.
package classify

import (
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/ironsheep/stereo-objects-mcp/internal/kdtree"
)

// Defaults for NewKNN arguments that are not positive.
const (
	DefaultBucketSize = 8
	DefaultMaxLeaves  = 32
)

// ErrNoSamples is returned by Train for an empty training set.
var ErrNoSamples = errors.New("no training samples")

// Sample is a labelled feature vector.
type Sample struct {
	Label   string    `json:"label"`
	Feature []float64 `json:"feature"`
}

// KNN is a nearest-neighbor classifier. It is safe for concurrent use;
// Train replaces the model atomically.
type KNN struct {
	bucketSize int
	maxLeaves  int

	mu      sync.RWMutex
	tree    *kdtree.Tree[int]
	samples []string // label per sample index
	labels  []string // distinct labels, sorted; index is the class ID
}

// NewKNN creates an untrained classifier. maxLeaves bounds the leaves
// scanned per query; a negative value requests exact search.
func NewKNN(bucketSize, maxLeaves int) *KNN {
	if bucketSize <= 0 {
		bucketSize = DefaultBucketSize
	}
	if maxLeaves == 0 {
		maxLeaves = DefaultMaxLeaves
	}
	return &KNN{bucketSize: bucketSize, maxLeaves: maxLeaves}
}

// Train builds a new model from samples. All features must have the same
// non-zero length. On error the previous model stays in place.
func (k *KNN) Train(samples []Sample) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}
	dim := len(samples[0].Feature)
	points := make([]kdtree.Point[int], len(samples))
	names := make([]string, len(samples))
	distinct := map[string]struct{}{}
	for i, s := range samples {
		if len(s.Feature) != dim {
			return errors.Wrapf(kdtree.ErrDimensionMismatch, "sample %d has %d values, want %d", i, len(s.Feature), dim)
		}
		points[i] = kdtree.Point[int]{Coords: s.Feature, Payload: i}
		names[i] = s.Label
		distinct[s.Label] = struct{}{}
	}
	tree, err := kdtree.Build(points, dim, k.bucketSize)
	if err != nil {
		return errors.Wrap(err, "building classifier tree")
	}

	labels := make([]string, 0, len(distinct))
	for l := range distinct {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	k.mu.Lock()
	k.tree, k.samples, k.labels = tree, names, labels
	k.mu.Unlock()
	return nil
}

// Trained reports whether a model is loaded.
func (k *KNN) Trained() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.tree != nil
}

// Dimension returns the feature length of the model, 0 when untrained.
func (k *KNN) Dimension() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.tree == nil {
		return 0
	}
	return k.tree.Dimension()
}

// Labels returns the distinct labels in class ID order.
func (k *KNN) Labels() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return append([]string(nil), k.labels...)
}

// ClassID returns the class ID of label, or -1.
func (k *KNN) ClassID(label string) int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	i := sort.SearchStrings(k.labels, label)
	if i < len(k.labels) && k.labels[i] == label {
		return i
	}
	return -1
}

// Classify returns the label of the nearest training sample and the
// Euclidean distance to it. ok is false when the classifier is untrained or
// the feature has the wrong length.
func (k *KNN) Classify(feature []float64) (label string, distance float64, ok bool) {
	k.mu.RLock()
	tree, samples := k.tree, k.samples
	k.mu.RUnlock()
	if tree == nil {
		return "", 0, false
	}

	res, err := tree.NearestNeighborBBF(feature, kdtree.Options{MaxLeaves: k.maxLeaves})
	if err != nil || !res.Found {
		return "", 0, false
	}
	return samples[res.Payload], math.Sqrt(res.DistSq), true
}
