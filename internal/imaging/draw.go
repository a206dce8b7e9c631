package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
)

// Annotation is one box drawn by DrawAnnotations.
type Annotation struct {
	Rect  image.Rectangle
	Label string
}

// DrawAnnotations renders boxes and labels over a copy of img.
//
// Parameters:
//   - img: Source image. It is not modified.
//   - boxes: Rectangles to outline; Label is drawn above the top-left corner
//     with the built-in digit font (digits, '#', '-' and ',').
//   - boxColorHex: Outline color as "#RRGGBB" or "#RRGGBBAA". An invalid value
//     falls back to opaque green.
//
// Returns an RGBA image with origin (0,0).
func DrawAnnotations(img image.Image, boxes []Annotation, boxColorHex string) *image.RGBA {
	src := Normalize(img)
	bounds := src.Bounds()

	boxColor, err := parseHexColor(boxColorHex)
	if err != nil {
		boxColor = color.RGBA{0, 255, 0, 255}
	}

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, src, bounds.Min, draw.Src)

	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}

	for _, b := range boxes {
		r := b.Rect.Intersect(bounds)
		if r.Empty() {
			continue
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			result.Set(x, r.Min.Y, boxColor)
			result.Set(x, r.Max.Y-1, boxColor)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			result.Set(r.Min.X, y, boxColor)
			result.Set(r.Max.X-1, y, boxColor)
		}
		if b.Label != "" {
			drawLabel(result, r.Min.X, r.Min.Y-8, b.Label, labelColor, bgColor)
		}
	}
	return result
}

// RegionAnnotations labels each region box with its index.
func RegionAnnotations(regions []Region) []Annotation {
	out := make([]Annotation, len(regions))
	for i, r := range regions {
		out[i] = Annotation{Rect: r.Bounds(), Label: fmt.Sprintf("#%d", i)}
	}
	return out
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws a label with the built-in 3x5 digit font. Unknown runes
// leave a gap.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	// Simple 3x5 pixel font for digits and comma
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
		'#': {"101", "111", "101", "111", "101"},
		'-': {"000", "000", "111", "000", "000"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	// Draw background
	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				img.Set(px, py, bg)
			}
		}
	}

	// Draw text
	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
						img.Set(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
