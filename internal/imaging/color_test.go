package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestCalculateHSVImage_KnownColors(t *testing.T) {
	tests := []struct {
		name    string
		color   color.RGBA
		wantHue uint8
		wantSat uint8
		wantVal uint8
	}{
		{"pure red", color.RGBA{255, 0, 0, 255}, 0, 255, 255},
		{"pure green", color.RGBA{0, 255, 0, 255}, 60, 255, 255},
		{"pure blue", color.RGBA{0, 0, 255, 255}, 120, 255, 255},
		{"yellow", color.RGBA{255, 255, 0, 255}, 30, 255, 255},
		{"white", color.RGBA{255, 255, 255, 255}, 0, 0, 255},
		{"black", color.RGBA{0, 0, 0, 255}, 0, 0, 0},
		{"dark blue", color.RGBA{0, 0, 128, 255}, 120, 255, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hsv := CalculateHSVImage(solidImage(4, 4, tt.color), nil)
			h, s, v := hsv.HSVAt(2, 2)
			if h != tt.wantHue || s != tt.wantSat || v != tt.wantVal {
				t.Errorf("HSV: got (%d,%d,%d), want (%d,%d,%d)", h, s, v, tt.wantHue, tt.wantSat, tt.wantVal)
			}
		})
	}
}

func TestCalculateHSVImage_HueWrapsBelow180(t *testing.T) {
	// hue just under 360 degrees must not overflow the 0-179 scale
	hsv := CalculateHSVImage(solidImage(2, 2, color.RGBA{255, 0, 2, 255}), nil)
	h, _, _ := hsv.HSVAt(0, 0)
	if h > 179 {
		t.Errorf("hue %d outside 0-179", h)
	}
}

func TestCalculateHSVImage_ROI(t *testing.T) {
	img := solidImage(20, 20, color.RGBA{0, 0, 255, 255})
	hsv := CalculateHSVImage(img, []image.Rectangle{image.Rect(5, 5, 10, 10)})

	if _, _, v := hsv.HSVAt(7, 7); v != 255 {
		t.Errorf("inside ROI: value %d, want 255", v)
	}
	if _, _, v := hsv.HSVAt(15, 15); v != 0 {
		t.Errorf("outside ROI: value %d, want 0", v)
	}
	if hsv.Bounds() != image.Rect(0, 0, 20, 20) {
		t.Errorf("bounds: got %v", hsv.Bounds())
	}
}

func TestCalculateHSVImage_OffsetOrigin(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{0, 255, 0, 255})
	sub := img.SubImage(image.Rect(3, 3, 8, 8))

	hsv := CalculateHSVImage(sub, nil)
	if hsv.Bounds() != image.Rect(0, 0, 5, 5) {
		t.Fatalf("bounds: got %v", hsv.Bounds())
	}
	if h, _, _ := hsv.HSVAt(0, 0); h != 60 {
		t.Errorf("hue: got %d, want 60", h)
	}
}

func TestHSVImage_OutOfBounds(t *testing.T) {
	hsv := NewHSVImage(3, 3)
	hsv.SetHSV(5, 5, 1, 2, 3)
	hsv.SetHSV(1, 1, 10, 20, 30)

	if h, s, v := hsv.HSVAt(5, 5); h != 0 || s != 0 || v != 0 {
		t.Error("out-of-bounds read should be zero")
	}
	if h, s, v := hsv.HSVAt(1, 1); h != 10 || s != 20 || v != 30 {
		t.Errorf("got (%d,%d,%d)", h, s, v)
	}
}

func TestHueDistance(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{0, 0, 0},
		{10, 20, 10},
		{20, 10, 10},
		{175, 5, 10},
		{5, 175, 10},
		{0, 90, 90},
		{0, 179, 1},
	}
	for _, tt := range tests {
		if got := HueDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("HueDistance(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
