package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"

	"github.com/ironsheep/stereo-objects-mcp/internal/colorparams"
)

// Mask values produced by the filters in this package.
const (
	MaskOff uint8 = 0
	MaskOn  uint8 = 255
)

// FilterHSV thresholds an HSV image against one color's parameters.
//
// A pixel is set (255) when all of the following hold:
//   - its hue is within HueTolerance of Hue, measured around the hue circle
//   - MinSaturation <= saturation <= MaxSaturation
//   - MinValue <= value <= MaxValue
//
// Only pixels inside rois are tested; when rois is empty the whole image is.
// Everything else is left at 0.
func FilterHSV(hsv *HSVImage, p colorparams.Params, rois []image.Rectangle) *image.Gray {
	mask := image.NewGray(hsv.Rect)

	for _, r := range windows(hsv.Rect, rois) {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			src := hsv.Pix[y*hsv.Stride:]
			dst := mask.Pix[y*mask.Stride:]
			for x := r.Min.X; x < r.Max.X; x++ {
				i := 3 * x
				s, v := int(src[i+1]), int(src[i+2])
				if s < p.MinSaturation || s > p.MaxSaturation || v < p.MinValue || v > p.MaxValue {
					continue
				}
				if HueDistance(int(src[i]), p.Hue) > p.HueTolerance {
					continue
				}
				dst[x] = MaskOn
			}
		}
	}
	return mask
}

// FilterColored marks every pixel that is colored at all, regardless of hue:
// saturation >= minSaturation and value >= minValue. It backs the generic
// colorparams.Colored segmentation.
func FilterColored(hsv *HSVImage, minSaturation, minValue int, rois []image.Rectangle) *image.Gray {
	mask := image.NewGray(hsv.Rect)

	for _, r := range windows(hsv.Rect, rois) {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			src := hsv.Pix[y*hsv.Stride:]
			dst := mask.Pix[y*mask.Stride:]
			for x := r.Min.X; x < r.Max.X; x++ {
				i := 3 * x
				if int(src[i+1]) >= minSaturation && int(src[i+2]) >= minValue {
					dst[x] = MaskOn
				}
			}
		}
	}
	return mask
}

// Erode shrinks the set pixels of a binary mask. A pixel stays set only when
// its whole (2*radius+1) square neighborhood is set; borders are extended.
// A radius <= 0 returns a copy.
func Erode(mask *image.Gray, radius int) *image.Gray {
	return binarize(effect.Erode(mask, float64(radius)))
}

// Dilate grows the set pixels of a binary mask. A pixel becomes set when any
// pixel in its (2*radius+1) square neighborhood is set. A radius <= 0 returns
// a copy.
func Dilate(mask *image.Gray, radius int) *image.Gray {
	return binarize(effect.Dilate(mask, float64(radius)))
}

// Open is Erode followed by Dilate, the speckle removal step of the
// segmentation pipeline.
func Open(mask *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return mask
	}
	return Dilate(Erode(mask, radius), radius)
}

// binarize maps bild's RGBA output back to a 0/255 mask with origin (0,0).
func binarize(img *image.RGBA) *image.Gray {
	out := segment.Threshold(img, 128)
	if out.Rect.Min != (image.Point{}) {
		out.Rect = out.Rect.Sub(out.Rect.Min)
	}
	return out
}
