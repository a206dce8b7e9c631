package imaging

import (
	"image"

	"github.com/golang/geo/r2"
)

// Region is a connected set of mask pixels summarized by its statistics.
//
// Bounding box coordinates are inclusive. Regions are produced fresh by
// FindRegions and are treated as values; PixelOffsets is only filled when
// requested and indexes pixels as y*width + x.
type Region struct {
	Centroid r2.Point `json:"centroid"`
	MinX     int      `json:"min_x"`
	MinY     int      `json:"min_y"`
	MaxX     int      `json:"max_x"`
	MaxY     int      `json:"max_y"`
	Pixels   int      `json:"pixels"`

	// Ratio is width/height of the bounding box.
	Ratio float64 `json:"ratio"`

	PixelOffsets []int `json:"-"`

	// Seed is the offset of the first pixel found, in scan order.
	Seed int `json:"seed"`
}

// Width returns the bounding box width in pixels.
func (r Region) Width() int { return r.MaxX - r.MinX + 1 }

// Height returns the bounding box height in pixels.
func (r Region) Height() int { return r.MaxY - r.MinY + 1 }

// Bounds returns the bounding box as an image.Rectangle (Max exclusive).
func (r Region) Bounds() image.Rectangle {
	return image.Rect(r.MinX, r.MinY, r.MaxX+1, r.MaxY+1)
}

// AspectRatio returns the bounding box aspect ratio normalized to (0,1]:
// min(width,height)/max(width,height).
func (r Region) AspectRatio() float64 {
	w, h := float64(r.Width()), float64(r.Height())
	if w <= 0 || h <= 0 {
		return 0
	}
	if w < h {
		return w / h
	}
	return h / w
}

// ROI expands the bounding box by factor around the centroid and clips the
// result to bounds. Each side becomes factor times its original length.
func (r Region) ROI(factor float64, bounds image.Rectangle) image.Rectangle {
	hw := float64(r.Width()) * factor / 2
	hh := float64(r.Height()) * factor / 2
	roi := image.Rect(
		int(r.Centroid.X-hw),
		int(r.Centroid.Y-hh),
		int(r.Centroid.X+hw+1),
		int(r.Centroid.Y+hh+1),
	)
	return roi.Intersect(bounds)
}

// SizeRatio returns smaller/larger of two pixel counts, or 0 when either is
// not positive.
func SizeRatio(a, b int) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a < b {
		return float64(a) / float64(b)
	}
	return float64(b) / float64(a)
}

// FindRegions extracts the 8-connected components of the set pixels of mask.
//
// Parameters:
//   - mask: Binary mask; any nonzero pixel is set.
//   - minPixels: Components with fewer pixels are discarded.
//   - maxPixels: Components with more pixels are discarded. Zero or negative
//     means no upper limit.
//   - storePixels: When true each Region carries its PixelOffsets.
//
// Returns the regions in scan order of their seed pixel (top to bottom, left
// to right).
//
// # Algorithm
//
// A single raster scan seeds an iterative stack-based flood fill at every
// unvisited set pixel, so large components cannot overflow the call stack.
// Centroid and bounding box are accumulated during the fill.
func FindRegions(mask *image.Gray, minPixels, maxPixels int, storePixels bool) []Region {
	b := mask.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil
	}

	visited := make([]bool, width*height)
	set := func(x, y int) bool {
		return mask.Pix[y*mask.Stride+x] != 0
	}

	var regions []Region
	var stack []int
	var offsets []int

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			seed := y*width + x
			if visited[seed] || !set(x, y) {
				continue
			}

			reg := Region{MinX: x, MinY: y, MaxX: x, MaxY: y, Seed: seed}
			var sumX, sumY int
			offsets = offsets[:0]
			visited[seed] = true
			stack = append(stack[:0], seed)

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				px, py := p%width, p/width

				reg.Pixels++
				sumX += px
				sumY += py
				if storePixels {
					offsets = append(offsets, p)
				}
				if px < reg.MinX {
					reg.MinX = px
				}
				if px > reg.MaxX {
					reg.MaxX = px
				}
				if py < reg.MinY {
					reg.MinY = py
				}
				if py > reg.MaxY {
					reg.MaxY = py
				}

				// 8-connected neighbors
				for dy := -1; dy <= 1; dy++ {
					ny := py + dy
					if ny < 0 || ny >= height {
						continue
					}
					for dx := -1; dx <= 1; dx++ {
						nx := px + dx
						if (dx == 0 && dy == 0) || nx < 0 || nx >= width {
							continue
						}
						n := ny*width + nx
						if !visited[n] && set(nx, ny) {
							visited[n] = true
							stack = append(stack, n)
						}
					}
				}
			}

			if reg.Pixels < minPixels || (maxPixels > 0 && reg.Pixels > maxPixels) {
				continue
			}
			reg.Centroid = r2.Point{
				X: float64(sumX) / float64(reg.Pixels),
				Y: float64(sumY) / float64(reg.Pixels),
			}
			reg.Ratio = float64(reg.Width()) / float64(reg.Height())
			if storePixels {
				reg.PixelOffsets = append([]int(nil), offsets...)
			}
			regions = append(regions, reg)
		}
	}
	return regions
}
