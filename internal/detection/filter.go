package detection

import (
	"image"

	"github.com/ironsheep/stereo-objects-mcp/internal/imaging"
)

// RegionFilter decides whether a segmented region becomes an object.
type RegionFilter interface {
	// CheckRegion gets the frame, the mask the region was found in (may be
	// nil) and the region.
	CheckRegion(colorImage *image.NRGBA, segmented *image.Gray, region imaging.Region) bool
}

// RegionFilterFunc adapts a function to RegionFilter.
type RegionFilterFunc func(colorImage *image.NRGBA, segmented *image.Gray, region imaging.Region) bool

// CheckRegion calls fn.
func (fn RegionFilterFunc) CheckRegion(colorImage *image.NRGBA, segmented *image.Gray, region imaging.Region) bool {
	return fn(colorImage, segmented, region)
}

// RegionTyper decides the ObjectType of an accepted region. When the
// finder's region filter implements it, new objects get its type instead of
// CompactObject.
type RegionTyper interface {
	RegionType(colorImage *image.NRGBA, segmented *image.Gray, region imaging.Region) ObjectType
}

// FilterChain accepts a region only if every filter accepts it. Filters run
// in order and stop at the first rejection.
type FilterChain []RegionFilter

// CheckRegion implements RegionFilter.
func (c FilterChain) CheckRegion(colorImage *image.NRGBA, segmented *image.Gray, region imaging.Region) bool {
	for _, f := range c {
		if !f.CheckRegion(colorImage, segmented, region) {
			return false
		}
	}
	return true
}

// RegionType returns the first type other than CompactObject reported by a
// member implementing RegionTyper.
func (c FilterChain) RegionType(colorImage *image.NRGBA, segmented *image.Gray, region imaging.Region) ObjectType {
	for _, f := range c {
		if t, ok := f.(RegionTyper); ok {
			if typ := t.RegionType(colorImage, segmented, region); typ != CompactObject {
				return typ
			}
		}
	}
	return CompactObject
}

// SizeFilter gates regions by pixel count and fill ratio.
type SizeFilter struct {
	MinPixels int
	// MaxPixels <= 0 means no upper limit.
	MaxPixels int
	// MinFill is the minimum pixels / bounding box area. 0 disables it.
	MinFill float64
	// MinAspect is the minimum AspectRatio (short side / long side).
	MinAspect float64
}

// CheckRegion implements RegionFilter.
func (s SizeFilter) CheckRegion(_ *image.NRGBA, _ *image.Gray, r imaging.Region) bool {
	if r.Pixels < s.MinPixels || (s.MaxPixels > 0 && r.Pixels > s.MaxPixels) {
		return false
	}
	area := r.Width() * r.Height()
	if s.MinFill > 0 && (area <= 0 || float64(r.Pixels)/float64(area) < s.MinFill) {
		return false
	}
	return r.AspectRatio() >= s.MinAspect
}

// TextureFilter measures the edge density of the frame inside a region's
// bounding box. Printed labels and patterned objects have many edges,
// uniform blobs almost none.
type TextureFilter struct {
	MinDensity float64
	// MaxDensity <= 0 means no upper limit.
	MaxDensity float64

	// TexturedDensity types regions at or above it as TexturedObject.
	// 0 leaves every region CompactObject.
	TexturedDensity float64

	// Canny thresholds; zero values default to 50 and 150.
	ThresholdLow, ThresholdHigh int
}

// Density returns the edge density of the region's bounding box in img.
func (t TextureFilter) Density(img image.Image, r imaging.Region) float64 {
	crop, err := imaging.CropRegion(img, r, 0, 1)
	if err != nil {
		return 0
	}
	low, high := t.ThresholdLow, t.ThresholdHigh
	if low == 0 {
		low = 50
	}
	if high == 0 {
		high = 150
	}
	edges := imaging.EdgeMap(crop, low, high)
	return imaging.EdgeDensity(edges, edges.Rect)
}

// CheckRegion implements RegionFilter. Without a frame every region passes.
func (t TextureFilter) CheckRegion(colorImage *image.NRGBA, _ *image.Gray, r imaging.Region) bool {
	if colorImage == nil {
		return true
	}
	d := t.Density(colorImage, r)
	return d >= t.MinDensity && (t.MaxDensity <= 0 || d <= t.MaxDensity)
}

// RegionType implements RegionTyper.
func (t TextureFilter) RegionType(colorImage *image.NRGBA, _ *image.Gray, r imaging.Region) ObjectType {
	if colorImage == nil || t.TexturedDensity <= 0 {
		return CompactObject
	}
	if t.Density(colorImage, r) >= t.TexturedDensity {
		return TexturedObject
	}
	return CompactObject
}
