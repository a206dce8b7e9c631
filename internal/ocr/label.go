package ocr

import (
	"image"

	"go.uber.org/zap"

	"github.com/ironsheep/stereo-objects-mcp/internal/imaging"
	"github.com/ironsheep/stereo-objects-mcp/internal/stereo"
)

// Defaults for LabelClassifier fields left at zero.
const (
	DefaultLabelMargin = 4
	DefaultLabelScale  = 2.0
)

// LabelClassifier names stereo objects after the text printed on them. It
// crops each object's left region from the current left frame, reads it with
// a TextRecognizer and stores the most confident word as the object's Name.
// It implements stereo.Classifier.
//
// Objects that already have a name are left alone, so a label read once
// survives while the object is re-confirmed.
type LabelClassifier struct {
	Recognizer TextRecognizer

	// Frame returns the current left image.
	Frame func() *image.NRGBA

	// Margin in pixels around the region and the upscaling factor applied
	// before recognition; small labels read better enlarged.
	Margin int
	Scale  float64

	// MinConfidence is the minimum word confidence (0.0 to 1.0).
	MinConfidence float64

	Logger *zap.SugaredLogger
}

// Classify implements stereo.Classifier.
func (c *LabelClassifier) Classify(objects []stereo.Object3DEntry) {
	if c.Recognizer == nil || c.Frame == nil {
		return
	}
	frame := c.Frame()
	if frame == nil {
		return
	}
	margin, scale := c.Margin, c.Scale
	if margin <= 0 {
		margin = DefaultLabelMargin
	}
	if scale <= 0 {
		scale = DefaultLabelScale
	}

	for i := range objects {
		o := &objects[i]
		if o.Name != "" {
			continue
		}
		crop, err := imaging.CropRegion(frame, o.RegionLeft, margin, scale)
		if err != nil {
			c.debug("label crop failed", "region_id", o.RegionIDLeft, "error", err)
			continue
		}
		res, err := c.Recognizer.Recognize(crop)
		if err != nil {
			c.debug("label recognition failed", "region_id", o.RegionIDLeft, "error", err)
			continue
		}
		if word, conf, ok := res.BestWord(c.MinConfidence); ok {
			o.Name = word
			c.debug("label read", "region_id", o.RegionIDLeft, "label", word, "confidence", conf)
		}
	}
}

func (c *LabelClassifier) debug(msg string, kv ...interface{}) {
	if c.Logger != nil {
		c.Logger.Debugw(msg, kv...)
	}
}
