package imaging

import (
	"image"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// HSVImage is a three-channel image in HSV color space.
//
// Each pixel occupies three consecutive bytes in Pix:
//   - H: hue, 0-179 (degrees / 2, 0=red, 60=green, 120=blue)
//   - S: saturation, 0-255 (0=gray, 255=vivid)
//   - V: value, 0-255 (0=black, 255=brightest)
//
// Pixels outside the windows passed to CalculateHSVImage are left at zero.
type HSVImage struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewHSVImage allocates a zeroed HSV image of the given size.
func NewHSVImage(width, height int) *HSVImage {
	return &HSVImage{
		Pix:    make([]uint8, 3*width*height),
		Stride: 3 * width,
		Rect:   image.Rect(0, 0, width, height),
	}
}

// Bounds returns the image rectangle.
func (h *HSVImage) Bounds() image.Rectangle { return h.Rect }

// HSVAt returns the hue, saturation and value at (x, y). Coordinates outside
// the image return zeros.
func (h *HSVImage) HSVAt(x, y int) (hue, sat, val uint8) {
	if !(image.Point{X: x, Y: y}).In(h.Rect) {
		return 0, 0, 0
	}
	i := y*h.Stride + 3*x
	return h.Pix[i], h.Pix[i+1], h.Pix[i+2]
}

// SetHSV stores a pixel. Coordinates outside the image are ignored.
func (h *HSVImage) SetHSV(x, y int, hue, sat, val uint8) {
	if !(image.Point{X: x, Y: y}).In(h.Rect) {
		return
	}
	i := y*h.Stride + 3*x
	h.Pix[i], h.Pix[i+1], h.Pix[i+2] = hue, sat, val
}

// CalculateHSVImage converts img to HSV.
//
// Parameters:
//   - img: Source image. It is normalized to origin (0,0) first.
//   - rois: Optional windows to restrict the conversion to. When empty the
//     whole image is converted. Windows are clipped to the image; overlapping
//     windows are converted once per window, which is harmless.
//
// Returns an HSVImage the size of img.
//
// # Conversion
//
// RGB is converted with go-colorful (hue 0-360, saturation and value 0-1)
// and quantized to the byte scale documented on HSVImage. Fully transparent
// pixels map to black.
func CalculateHSVImage(img image.Image, rois []image.Rectangle) *HSVImage {
	src := Normalize(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	out := NewHSVImage(w, h)

	for _, r := range windows(src.Rect, rois) {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			row := src.Pix[y*src.Stride:]
			dst := out.Pix[y*out.Stride:]
			for x := r.Min.X; x < r.Max.X; x++ {
				i := 4 * x
				if row[i+3] == 0 {
					continue
				}
				hue, sat, val := rgbToHSV(row[i], row[i+1], row[i+2])
				j := 3 * x
				dst[j], dst[j+1], dst[j+2] = hue, sat, val
			}
		}
	}
	return out
}

// rgbToHSV converts 8-bit RGB to the byte HSV scale.
func rgbToHSV(r, g, b uint8) (uint8, uint8, uint8) {
	c := colorful.Color{R: float64(r) / 255.0, G: float64(g) / 255.0, B: float64(b) / 255.0}
	h, s, v := c.Hsv()

	hue := int(h/2 + 0.5)
	if hue >= 180 {
		hue -= 180
	}
	return uint8(hue), uint8(s*255 + 0.5), uint8(v*255 + 0.5)
}

// HueDistance returns the circular distance between two hues on the 0-179
// scale. The result is in 0-90.
func HueDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	d %= 180
	if d > 90 {
		d = 180 - d
	}
	return d
}

// windows clips rois to bounds, falling back to bounds when rois is empty.
func windows(bounds image.Rectangle, rois []image.Rectangle) []image.Rectangle {
	if len(rois) == 0 {
		return []image.Rectangle{bounds}
	}
	out := make([]image.Rectangle, 0, len(rois))
	for _, r := range rois {
		if c := r.Intersect(bounds); !c.Empty() {
			out = append(out, c)
		}
	}
	return out
}
