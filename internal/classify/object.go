package classify

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/stereo-objects-mcp/internal/imaging"
	"github.com/ironsheep/stereo-objects-mcp/internal/stereo"
)

// FeatureDimension is the length of the vectors returned by RegionFeatures.
const FeatureDimension = 5

// RegionFeatures describes a region by its shape and mean color:
//
//	[aspect, fill, hue/360, saturation, value]
//
// aspect is the bounding box's smaller/larger side, fill the share of the
// bounding box covered by the region. The color is the mean RGB of the
// bounding box in frame, converted to HSV; it is zero when frame is nil or
// the box lies outside it.
func RegionFeatures(frame *image.NRGBA, r imaging.Region) []float64 {
	f := make([]float64, FeatureDimension)
	f[0] = r.AspectRatio()
	if area := r.Width() * r.Height(); area > 0 {
		f[1] = float64(r.Pixels) / float64(area)
	}
	if frame == nil {
		return f
	}

	rect := r.Bounds().Intersect(frame.Rect)
	if rect.Empty() {
		return f
	}
	var sum colorful.Color
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		i := frame.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			sum.R += float64(frame.Pix[i]) / 255
			sum.G += float64(frame.Pix[i+1]) / 255
			sum.B += float64(frame.Pix[i+2]) / 255
			i += 4
			n++
		}
	}
	mean := colorful.Color{R: sum.R / float64(n), G: sum.G / float64(n), B: sum.B / float64(n)}
	h, s, v := mean.Hsv()
	f[2], f[3], f[4] = h/360, s, v
	return f
}

// ObjectClassifier names stereo objects after the nearest training sample of
// their left region's features. It implements stereo.Classifier.
type ObjectClassifier struct {
	Model *KNN

	// Frame returns the current left image; nil, or a nil image, limits the
	// features to the region's shape.
	Frame func() *image.NRGBA

	// MaxDistance rejects matches farther than this; zero accepts all.
	MaxDistance float64
}

// Classify sets Name and ClassID of every object with an accepted match, and
// Quality to 1/(1+distance).
func (c *ObjectClassifier) Classify(objects []stereo.Object3DEntry) {
	if c.Model == nil || !c.Model.Trained() {
		return
	}
	var frame *image.NRGBA
	if c.Frame != nil {
		frame = c.Frame()
	}
	for i := range objects {
		o := &objects[i]
		label, d, ok := c.Model.Classify(RegionFeatures(frame, o.RegionLeft))
		if !ok || (c.MaxDistance > 0 && d > c.MaxDistance) {
			continue
		}
		o.Name = label
		o.ClassID = c.Model.ClassID(label)
		o.Quality = 1 / (1 + d)
	}
}
