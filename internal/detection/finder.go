package detection

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/stereo-objects-mcp/internal/colorparams"
	"github.com/ironsheep/stereo-objects-mcp/internal/imaging"
)

// ROIDisabled turns off region-of-interest restriction when passed as the
// roiFactor of PrepareImages. Any negative factor has the same effect.
const ROIDisabled = -1.0

// IdentityRatio is the minimum smaller/larger pixel count ratio for a region
// to inherit the ID of a previous observation.
const IdentityRatio = 0.75

// Defaults for the generic colorparams.Colored segmentation, used when the
// parameter set has no entry for it.
const (
	DefaultColoredMinSaturation = 100
	DefaultColoredMinValue      = 60
)

// ErrNoColorParams is returned by FindObjects for a color without parameters.
var ErrNoColorParams = errors.New("no parameters for color")

// ObjectFinder turns the regions of one camera view into Object2DEntry
// observations and keeps their IDs stable across frames.
//
// # Frame Cycle
//
//  1. PrepareImages with the new frame
//  2. FindObjects once per color of interest
//  3. Finalize
//
// # Identity
//
// Every new region is compared with the identity candidates of the frame: the
// previous frame's objects, or the list given to SetROIList. Among the
// candidates of the same color whose pixel count ratio exceeds IdentityRatio
// the one with the nearest centroid donates its ID. Otherwise the region gets
// the next value of a per-finder counter. The assignment is greedy per region
// in segmentation order; two regions may inherit the same ID in crowded
// scenes.
//
// An ObjectFinder is not safe for concurrent use.
type ObjectFinder struct {
	logger *zap.SugaredLogger
	params *colorparams.Set
	filter RegionFilter

	morphRadius int

	frame     *image.NRGBA
	hsv       *imaging.HSVImage
	lastMask  *image.Gray
	windows   []image.Rectangle
	prepared  bool
	roiList   []Object2DEntry
	roiForced bool

	objects []Object2DEntry
	nextID  int
}

// NewObjectFinder creates a finder. A nil logger disables logging; a nil
// parameter set means colorparams.Default().
func NewObjectFinder(logger *zap.SugaredLogger, params *colorparams.Set) *ObjectFinder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if params == nil {
		params = colorparams.Default()
	}
	return &ObjectFinder{
		logger:      logger,
		params:      params,
		morphRadius: 1,
	}
}

// SetColorParameterSet replaces the color thresholds.
func (f *ObjectFinder) SetColorParameterSet(params *colorparams.Set) {
	if params != nil {
		f.params = params
	}
}

// ColorParameterSet returns the color thresholds in use.
func (f *ObjectFinder) ColorParameterSet() *colorparams.Set { return f.params }

// SetRegionFilter installs a filter consulted for every region; nil removes
// it.
func (f *ObjectFinder) SetRegionFilter(filter RegionFilter) { f.filter = filter }

// SetMorphologyRadius sets the erode/dilate radius applied to color masks.
// Zero disables the opening step.
func (f *ObjectFinder) SetMorphologyRadius(radius int) {
	if radius < 0 {
		radius = 0
	}
	f.morphRadius = radius
}

// SetROIList overrides the identity candidates (and ROI windows) used by the
// next PrepareImages. Without it the previous frame's objects are used.
func (f *ObjectFinder) SetROIList(list []Object2DEntry) {
	f.roiList = append([]Object2DEntry(nil), list...)
	f.roiForced = true
}

// PrepareImages starts a new frame.
//
// Parameters:
//   - img: The camera frame.
//   - roiFactor: When >= 0, segmentation is limited to the bounding boxes of
//     the identity candidates scaled by this factor around their centroids.
//     ROIDisabled (or any negative value) segments the whole image, as does a
//     frame without candidates.
//   - computeHSV: Convert the frame to HSV now. Otherwise the conversion is
//     done lazily by the first FindObjects call.
func (f *ObjectFinder) PrepareImages(img image.Image, roiFactor float64, computeHSV bool) {
	f.frame = imaging.Normalize(img)

	if !f.roiForced {
		f.roiList = f.objects
	}
	f.roiForced = false
	f.objects = nil

	f.windows = nil
	if roiFactor >= 0 && len(f.roiList) > 0 {
		for _, o := range f.roiList {
			if w := o.Region.ROI(roiFactor, f.frame.Rect); !w.Empty() {
				f.windows = append(f.windows, w)
			}
		}
	}

	f.hsv = nil
	f.lastMask = nil
	if computeHSV {
		f.hsv = imaging.CalculateHSVImage(f.frame, f.windows)
	}
	f.prepared = true
}

// FindObjects segments the current frame for one color and adds the accepted
// regions to the object list.
//
// Parameters:
//   - color: Color to segment. colorparams.Colored runs the generic "is this
//     pixel colored" segmentation using the Colored entry's minimum
//     saturation and value.
//   - minPixels, maxPixels: Region size limits; maxPixels <= 0 means none.
//
// Returns the number of objects added. Calling it before PrepareImages logs a
// warning and adds nothing.
func (f *ObjectFinder) FindObjects(color colorparams.Color, minPixels, maxPixels int) (int, error) {
	if !f.prepared {
		f.logger.Warnw("FindObjects called before PrepareImages", "color", color)
		return 0, nil
	}
	p, ok := f.params.Get(color)
	if !ok && color != colorparams.Colored {
		return 0, errors.Wrapf(ErrNoColorParams, "%s", color)
	}
	if f.hsv == nil {
		f.hsv = imaging.CalculateHSVImage(f.frame, f.windows)
	}

	var mask *image.Gray
	if color == colorparams.Colored {
		minSat, minVal := DefaultColoredMinSaturation, DefaultColoredMinValue
		if ok {
			minSat, minVal = p.MinSaturation, p.MinValue
		}
		mask = imaging.FilterColored(f.hsv, minSat, minVal, f.windows)
	} else {
		mask = imaging.FilterHSV(f.hsv, p, f.windows)
	}
	mask = imaging.Open(mask, f.morphRadius)

	return f.FindObjectsInSegmentedImage(mask, color, minPixels, maxPixels), nil
}

// FindObjectsInSegmentedImage extracts regions from a caller-provided mask
// and adds them as objects of the given color.
func (f *ObjectFinder) FindObjectsInSegmentedImage(mask *image.Gray, color colorparams.Color, minPixels, maxPixels int) int {
	f.lastMask = mask
	regions := imaging.FindRegions(mask, minPixels, maxPixels, false)
	return f.FindObjectsInRegions(regions, color, mask)
}

// FindObjectsInRegions adds already extracted regions as objects of the
// given color. segmented is passed to the region filter and may be nil.
func (f *ObjectFinder) FindObjectsInRegions(regions []imaging.Region, color colorparams.Color, segmented *image.Gray) int {
	added := 0
	for _, r := range regions {
		if f.filter != nil && !f.filter.CheckRegion(f.frame, segmented, r) {
			continue
		}
		typ := CompactObject
		if t, ok := f.filter.(RegionTyper); ok {
			typ = t.RegionType(f.frame, segmented, r)
		}
		f.objects = append(f.objects, Object2DEntry{
			ID:     f.assignID(r, color),
			Region: r,
			Type:   typ,
			Color:  color,
		})
		added++
	}
	f.logger.Debugw("regions converted to objects", "color", color, "regions", len(regions), "objects", added)
	return added
}

// assignID returns the ID of the nearest sufficiently similar candidate or a
// fresh one.
func (f *ObjectFinder) assignID(r imaging.Region, color colorparams.Color) int {
	best := -1
	bestDist := math.Inf(1)
	for i := range f.roiList {
		c := &f.roiList[i]
		if c.Color != color || imaging.SizeRatio(r.Pixels, c.Region.Pixels) <= IdentityRatio {
			continue
		}
		if d := r.Centroid.Sub(c.Region.Centroid).Norm(); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		return f.roiList[best].ID
	}
	id := f.nextID
	f.nextID++
	return id
}

// Finalize ends the frame's search and returns the number of objects.
func (f *ObjectFinder) Finalize() int {
	if !f.prepared {
		f.logger.Warn("Finalize called before PrepareImages")
		return 0
	}
	return len(f.objects)
}

// Objects returns a copy of the current object list.
func (f *ObjectFinder) Objects() []Object2DEntry {
	return append([]Object2DEntry(nil), f.objects...)
}

// SetObjects replaces the current object list. The stereo finder uses it to
// write back reservation flags and to prune unmatched entries.
func (f *ObjectFinder) SetObjects(list []Object2DEntry) {
	f.objects = append([]Object2DEntry(nil), list...)
}

// ClearObjectList empties the object list so that the next frame starts
// without identity candidates.
func (f *ObjectFinder) ClearObjectList() {
	f.objects = nil
	f.roiList = nil
	f.roiForced = false
}

// Frame returns the current frame, or nil before PrepareImages.
func (f *ObjectFinder) Frame() *image.NRGBA { return f.frame }

// HSV returns the HSV image of the current frame if it has been computed.
func (f *ObjectFinder) HSV() *imaging.HSVImage { return f.hsv }

// LastMask returns the most recent segmentation mask.
func (f *ObjectFinder) LastMask() *image.Gray { return f.lastMask }

// Windows returns the ROI windows of the current frame; nil means the whole
// image is searched.
func (f *ObjectFinder) Windows() []image.Rectangle {
	return append([]image.Rectangle(nil), f.windows...)
}
