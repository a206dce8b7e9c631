package stereo

import (
	"reflect"

	"github.com/golang/geo/r3"

	"github.com/ironsheep/stereo-objects-mcp/internal/colorparams"
	"github.com/ironsheep/stereo-objects-mcp/internal/detection"
	"github.com/ironsheep/stereo-objects-mcp/internal/imaging"
)

// Pose is a rigid transform. Rotation is row-major.
type Pose struct {
	Rotation    [9]float64 `json:"rotation"`
	Translation r3.Vector  `json:"translation"`
}

// IdentityPose returns a pose with identity rotation at t.
func IdentityPose(t r3.Vector) Pose {
	return Pose{Rotation: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, Translation: t}
}

// Object3DEntry is an object observed in both views and located in the world.
type Object3DEntry struct {
	RegionLeft    imaging.Region `json:"region_left"`
	RegionRight   imaging.Region `json:"region_right"`
	RegionIDLeft  int            `json:"region_id_left"`
	RegionIDRight int            `json:"region_id_right"`

	Type  detection.ObjectType `json:"type"`
	Color colorparams.Color    `json:"color"`

	// Pose.Translation always equals WorldPoint. The rotation stays identity
	// unless a classifier sets it.
	Pose        Pose      `json:"pose"`
	WorldPoint  r3.Vector `json:"world_point"`
	Orientation r3.Vector `json:"orientation"`

	Name string `json:"name,omitempty"`

	// Quality is the left/right pixel count ratio and Quality2 the geometric
	// consistency distance of the match, unless a classifier replaces them.
	Quality  float64 `json:"quality"`
	Quality2 float64 `json:"quality2"`
	ClassID  int     `json:"class_id"`
	Data     any     `json:"-"`
	Valid    bool    `json:"valid"`
}

// EntryFilter accepts or rejects a candidate 3D object before it is kept.
type EntryFilter interface {
	CheckEntry(entry *Object3DEntry) bool
}

// EntryFilterFunc adapts a function to EntryFilter.
type EntryFilterFunc func(entry *Object3DEntry) bool

// CheckEntry calls fn.
func (fn EntryFilterFunc) CheckEntry(entry *Object3DEntry) bool { return fn(entry) }

// WorkspaceFilter keeps objects whose world point lies inside an
// axis-aligned box, bounds included.
type WorkspaceFilter struct {
	Min, Max r3.Vector
}

// CheckEntry implements EntryFilter.
func (w WorkspaceFilter) CheckEntry(e *Object3DEntry) bool {
	p := e.WorldPoint
	return p.X >= w.Min.X && p.X <= w.Max.X &&
		p.Y >= w.Min.Y && p.Y <= w.Max.Y &&
		p.Z >= w.Min.Z && p.Z <= w.Max.Z
}

// Classifier refines the final object list of a frame in place, e.g. by
// setting Type, Name, ClassID or the quality scores.
type Classifier interface {
	Classify(objects []Object3DEntry)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(objects []Object3DEntry)

// Classify calls fn.
func (fn ClassifierFunc) Classify(objects []Object3DEntry) { fn(objects) }

// sameClassifier compares classifiers without panicking on uncomparable
// dynamic types, which are never equal.
func sameClassifier(a, b Classifier) bool {
	ta := reflect.TypeOf(a)
	if ta == nil || ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
