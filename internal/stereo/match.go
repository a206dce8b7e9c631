package stereo

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/ironsheep/stereo-objects-mcp/internal/colorparams"
	"github.com/ironsheep/stereo-objects-mcp/internal/detection"
	"github.com/ironsheep/stereo-objects-mcp/internal/imaging"
)

// Matching gates for new left/right pairs. Both ratios are smaller/larger
// and must be exceeded.
const (
	MinPixelRatio  = 0.5
	MinAspectRatio = 0.5
)

// DetermineMatches rebuilds the 3D object list from the previous list and
// the current left and right observations.
//
// # Algorithm
//
//  1. Previous 3D objects of opts.Color (all objects for colorparams.None)
//     are taken out of the list; the others stay untouched.
//  2. Re-confirmation: each taken-out object whose left and right region IDs
//     are found unreserved in this frame's lists is triangulated again. It is
//     kept when its depth is within [MinZ, MaxZ] and the entry filter
//     accepts it, and both observations are reserved.
//  3. New matches: each unreserved left observation, in list order, is paired
//     with the unreserved right observation that passes every gate (same
//     color, compatible type, pixel ratio and aspect ratio above 0.5,
//     geometric distance below MaxEpipolarDistance, depth in range) with the
//     smallest geometric distance. Accepted pairs are reserved, so an earlier
//     left observation wins a contested right one.
//  4. Classifiers run over the whole list in registration order.
//
// The reserved flags are written back to both views. Returns the size of the
// 3D list, or 0 without calibration.
func (f *ObjectFinder) DetermineMatches(opts FinalizeOptions) int {
	if f.calibration == nil || !f.calibration.Loaded() {
		f.logger.Warn("DetermineMatches called without stereo calibration")
		return 0
	}

	left := f.left.Objects()
	right := f.right.Objects()

	var kept, previous []Object3DEntry
	for _, o := range f.objects {
		if opts.Color == colorparams.None || o.Color == opts.Color {
			previous = append(previous, o)
		} else {
			kept = append(kept, o)
		}
	}

	confirmed := 0
	for _, prev := range previous {
		li := findByID(left, prev.RegionIDLeft, prev.Color)
		ri := findByID(right, prev.RegionIDRight, prev.Color)
		if li < 0 || ri < 0 {
			continue
		}
		entry := prev
		entry.RegionLeft = left[li].Region
		entry.RegionRight = right[ri].Region
		if !f.locate(&entry, opts) || !f.accept(&entry) {
			continue
		}
		left[li].Reserved = true
		right[ri].Reserved = true
		kept = append(kept, entry)
		confirmed++
	}

	created := 0
	for li := range left {
		l := &left[li]
		if l.Reserved || (opts.Color != colorparams.None && l.Color != opts.Color) {
			continue
		}

		best := -1
		bestDist := math.Inf(1)
		var bestEntry Object3DEntry
		for ri := range right {
			r := &right[ri]
			if r.Reserved || !compatible(l, r) {
				continue
			}
			d := f.geometricDistance(l.Region.Centroid, r.Region.Centroid, opts)
			if !(d < opts.MaxEpipolarDistance) || d >= bestDist {
				continue
			}
			entry := newEntry(l, r, d)
			if !f.locate(&entry, opts) {
				continue
			}
			best, bestDist, bestEntry = ri, d, entry
		}
		if best < 0 || !f.accept(&bestEntry) {
			continue
		}
		l.Reserved = true
		right[best].Reserved = true
		kept = append(kept, bestEntry)
		created++
	}

	for _, c := range f.classifiers {
		c.Classify(kept)
	}

	f.objects = kept
	f.left.SetObjects(left)
	f.right.SetObjects(right)

	f.logger.Debugw("stereo matches determined",
		"color", opts.Color, "confirmed", confirmed, "new", created, "objects", len(kept))
	return len(kept)
}

// UpdateObjectFinderLists prunes both views' lists to the reserved entries of
// color (of every color for colorparams.None) and copies each 3D object's
// Type and Name onto its left and right observations.
//
// Observations are matched to 3D objects by color, centroid and pixel count,
// all compared exactly.
func (f *ObjectFinder) UpdateObjectFinderLists(color colorparams.Color) {
	prune := func(list []detection.Object2DEntry) []detection.Object2DEntry {
		out := list[:0]
		for _, o := range list {
			if o.Reserved || (color != colorparams.None && o.Color != color) {
				out = append(out, o)
			}
		}
		return out
	}
	left := prune(f.left.Objects())
	right := prune(f.right.Objects())

	for _, obj := range f.objects {
		propagate(left, obj.Color, obj.RegionLeft, obj)
		propagate(right, obj.Color, obj.RegionRight, obj)
	}

	f.left.SetObjects(left)
	f.right.SetObjects(right)
}

func propagate(list []detection.Object2DEntry, color colorparams.Color, region imaging.Region, obj Object3DEntry) {
	for i := range list {
		o := &list[i]
		if o.Color == color && o.Region.Centroid == region.Centroid && o.Region.Pixels == region.Pixels {
			o.Type = obj.Type
			o.Name = obj.Name
		}
	}
}

// locate triangulates the entry's region centroids and checks the depth.
func (f *ObjectFinder) locate(e *Object3DEntry, opts FinalizeOptions) bool {
	p, err := f.calibration.Calculate3DPoint(e.RegionLeft.Centroid, e.RegionRight.Centroid, opts.Rectified, opts.UseDistortion)
	if err != nil {
		f.logger.Debugw("triangulation failed", "error", err)
		return false
	}
	if p.Z < opts.MinZ || p.Z > opts.MaxZ {
		return false
	}
	e.WorldPoint = p
	e.Pose.Translation = p
	e.Valid = true
	return true
}

func (f *ObjectFinder) accept(e *Object3DEntry) bool {
	return f.entryFilter == nil || f.entryFilter.CheckEntry(e)
}

// geometricDistance is the vertical centroid offset for rectified images and
// the distance of the right centroid to the left centroid's epipolar line
// otherwise.
func (f *ObjectFinder) geometricDistance(pl, pr r2.Point, opts FinalizeOptions) float64 {
	if opts.Rectified {
		return math.Abs(pl.Y - pr.Y)
	}
	return f.calibration.EpipolarDistanceInRightImage(pl, pr, opts.UseDistortion)
}

// compatible applies the appearance gates of a new match.
func compatible(l, r *detection.Object2DEntry) bool {
	if l.Color != r.Color || !l.Type.CompatibleWith(r.Type) {
		return false
	}
	if imaging.SizeRatio(l.Region.Pixels, r.Region.Pixels) <= MinPixelRatio {
		return false
	}
	return ratioOf(l.Region.Ratio, r.Region.Ratio) > MinAspectRatio
}

// ratioOf returns smaller/larger of two positive values, 0 otherwise.
func ratioOf(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a < b {
		return a / b
	}
	return b / a
}

func newEntry(l, r *detection.Object2DEntry, dist float64) Object3DEntry {
	t := l.Type
	if t == detection.CompactObject {
		t = r.Type
	}
	name := l.Name
	if name == "" {
		name = r.Name
	}
	return Object3DEntry{
		RegionLeft:    l.Region,
		RegionRight:   r.Region,
		RegionIDLeft:  l.ID,
		RegionIDRight: r.ID,
		Type:          t,
		Color:         l.Color,
		Pose:          IdentityPose(r3.Vector{}),
		Name:          name,
		Quality:       imaging.SizeRatio(l.Region.Pixels, r.Region.Pixels),
		Quality2:      dist,
		ClassID:       -1,
	}
}

func findByID(list []detection.Object2DEntry, id int, color colorparams.Color) int {
	for i := range list {
		if list[i].ID == id && list[i].Color == color && !list[i].Reserved {
			return i
		}
	}
	return -1
}
