// Package stereo fuses the objects found by two per-view object finders into
// persistent 3D objects.
//
// # Frame Cycle
//
//	finder.PrepareImages(left, right, 2.0, true)
//	finder.FindObjects(ctx, colorparams.Red, 50, 0)
//	n := finder.Finalize(stereo.FinalizeOptions{MinZ: 300, MaxZ: 3000, MaxEpipolarDistance: 5})
//
// Finalize matches the left and right observations (see DetermineMatches),
// runs the registered classifiers and prunes each view's list down to the
// matched entries, which become the identity candidates of the next frame.
package stereo

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/stereo-objects-mcp/internal/calib"
	"github.com/ironsheep/stereo-objects-mcp/internal/colorparams"
	"github.com/ironsheep/stereo-objects-mcp/internal/detection"
)

// ObjectFinder owns a left and a right detection.ObjectFinder and the list of
// 3D objects built from them.
//
// The per-view finders can segment concurrently (SetParallel), since they
// share no state until Finalize. Everything else, and the ObjectFinder as a
// whole, is not safe for concurrent use.
type ObjectFinder struct {
	logger      *zap.SugaredLogger
	calibration *calib.StereoCalibration
	left        *detection.ObjectFinder
	right       *detection.ObjectFinder

	objects     []Object3DEntry
	classifiers []Classifier
	entryFilter EntryFilter

	parallel bool
	prepared bool
}

// NewObjectFinder creates a stereo finder without calibration. A nil logger
// disables logging; a nil parameter set means colorparams.Default(). Both
// views share the parameter set.
func NewObjectFinder(logger *zap.SugaredLogger, params *colorparams.Set) *ObjectFinder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if params == nil {
		params = colorparams.Default()
	}
	return &ObjectFinder{
		logger: logger,
		left:   detection.NewObjectFinder(logger.Named("left"), params),
		right:  detection.NewObjectFinder(logger.Named("right"), params),
	}
}

// Init loads the stereo calibration file. On failure the finder keeps its
// previous calibration, if any, and Finalize stays a no-op without one.
func (f *ObjectFinder) Init(calibrationPath string) error {
	c, err := calib.LoadStereoCalibration(calibrationPath)
	if err != nil {
		f.logger.Errorw("could not load stereo calibration", "path", calibrationPath, "error", err)
		return err
	}
	f.calibration = c
	f.logger.Infow("stereo calibration loaded", "path", calibrationPath)
	return nil
}

// InitWithCalibration uses an existing calibration. The finder does not take
// ownership; the caller may keep using c.
func (f *ObjectFinder) InitWithCalibration(c *calib.StereoCalibration) error {
	if c == nil || !c.Loaded() {
		return calib.ErrNotLoaded
	}
	f.calibration = c
	return nil
}

// Calibration returns the calibration in use, or nil.
func (f *ObjectFinder) Calibration() *calib.StereoCalibration { return f.calibration }

// Left returns the left view finder.
func (f *ObjectFinder) Left() *detection.ObjectFinder { return f.left }

// Right returns the right view finder.
func (f *ObjectFinder) Right() *detection.ObjectFinder { return f.right }

// SetColorParameterSet replaces the color thresholds of both views.
func (f *ObjectFinder) SetColorParameterSet(params *colorparams.Set) {
	f.left.SetColorParameterSet(params)
	f.right.SetColorParameterSet(params)
}

// SetRegionFilter installs the same region filter in both views.
func (f *ObjectFinder) SetRegionFilter(filter detection.RegionFilter) {
	f.left.SetRegionFilter(filter)
	f.right.SetRegionFilter(filter)
}

// SetParallel makes PrepareImages and FindObjects process the two views
// concurrently.
func (f *ObjectFinder) SetParallel(parallel bool) { f.parallel = parallel }

// SetEntryFilter installs the filter consulted for every 3D object; nil
// removes it.
func (f *ObjectFinder) SetEntryFilter(filter EntryFilter) { f.entryFilter = filter }

// AddClassifier appends a classifier. Classifiers run in registration order.
func (f *ObjectFinder) AddClassifier(c Classifier) {
	if c != nil {
		f.classifiers = append(f.classifiers, c)
	}
}

// RemoveClassifier removes the first registration of c and reports whether
// it was found. Classifiers of uncomparable types (funcs, maps, slices) can
// only be removed with ClearClassifiers.
func (f *ObjectFinder) RemoveClassifier(c Classifier) bool {
	for i, existing := range f.classifiers {
		if sameClassifier(existing, c) {
			f.classifiers = append(f.classifiers[:i], f.classifiers[i+1:]...)
			return true
		}
	}
	return false
}

// ClearClassifiers removes every classifier.
func (f *ObjectFinder) ClearClassifiers() { f.classifiers = nil }

// PrepareImages starts a new frame in both views. See
// detection.ObjectFinder.PrepareImages for roiFactor and computeHSV.
func (f *ObjectFinder) PrepareImages(left, right image.Image, roiFactor float64, computeHSV bool) {
	if f.parallel {
		var g errgroup.Group
		g.Go(func() error { f.left.PrepareImages(left, roiFactor, computeHSV); return nil })
		g.Go(func() error { f.right.PrepareImages(right, roiFactor, computeHSV); return nil })
		_ = g.Wait()
	} else {
		f.left.PrepareImages(left, roiFactor, computeHSV)
		f.right.PrepareImages(right, roiFactor, computeHSV)
	}
	f.prepared = true
}

// FindObjects segments both views for one color and returns the number of
// objects added in each.
func (f *ObjectFinder) FindObjects(ctx context.Context, color colorparams.Color, minPixels, maxPixels int) (int, int, error) {
	var nLeft, nRight int
	if !f.parallel {
		var err error
		if nLeft, err = f.left.FindObjects(color, minPixels, maxPixels); err != nil {
			return 0, 0, errors.Wrap(err, "left view")
		}
		if nRight, err = f.right.FindObjects(color, minPixels, maxPixels); err != nil {
			return nLeft, 0, errors.Wrap(err, "right view")
		}
		return nLeft, nRight, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := f.left.FindObjects(color, minPixels, maxPixels)
		nLeft = n
		return errors.Wrap(err, "left view")
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := f.right.FindObjects(color, minPixels, maxPixels)
		nRight = n
		return errors.Wrap(err, "right view")
	})
	err := g.Wait()
	return nLeft, nRight, err
}

// FindObjectsInSegmentedImages adds the regions of caller-provided masks of
// both views as objects of the given color.
func (f *ObjectFinder) FindObjectsInSegmentedImages(left, right *image.Gray, color colorparams.Color, minPixels, maxPixels int) (int, int) {
	return f.left.FindObjectsInSegmentedImage(left, color, minPixels, maxPixels),
		f.right.FindObjectsInSegmentedImage(right, color, minPixels, maxPixels)
}

// FinalizeOptions controls stereo matching.
type FinalizeOptions struct {
	// MinZ and MaxZ bound the triangulated depth, inclusive.
	MinZ, MaxZ float64

	// Rectified selects the vertical centroid difference as the geometric
	// consistency measure instead of the epipolar distance, and skips
	// distortion removal in triangulation.
	Rectified bool

	// Color limits matching to one color; colorparams.None matches all.
	Color colorparams.Color

	// MaxEpipolarDistance is the exclusive upper bound of the geometric
	// consistency distance in pixels.
	MaxEpipolarDistance float64

	// UseDistortion removes lens distortion before triangulation and
	// epipolar checks of unrectified images.
	UseDistortion bool
}

// Finalize matches the current frame, prunes both per-view lists to the
// matched entries of opts.Color and returns the number of 3D objects.
//
// Without calibration, or before PrepareImages, it logs a warning and
// returns 0 without touching any list.
func (f *ObjectFinder) Finalize(opts FinalizeOptions) int {
	if f.calibration == nil || !f.calibration.Loaded() {
		f.logger.Warn("Finalize called without stereo calibration")
		return 0
	}
	if !f.prepared {
		f.logger.Warn("Finalize called before PrepareImages")
		return 0
	}
	f.left.Finalize()
	f.right.Finalize()

	n := f.DetermineMatches(opts)
	f.UpdateObjectFinderLists(opts.Color)
	return n
}

// Objects returns a copy of the current 3D object list.
func (f *ObjectFinder) Objects() []Object3DEntry {
	return append([]Object3DEntry(nil), f.objects...)
}

// ClearObjectList forgets all 3D objects and both views' objects, so the
// next frame starts without history.
func (f *ObjectFinder) ClearObjectList() {
	f.objects = nil
	f.left.ClearObjectList()
	f.right.ClearObjectList()
}
