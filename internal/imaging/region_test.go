package imaging

import (
	"image"
	"math"
	"testing"
)

func TestFindRegions(t *testing.T) {
	mask := squareMask(50, 50,
		image.Rect(5, 5, 15, 10),   // 10x5 = 50 px
		image.Rect(30, 30, 34, 34), // 4x4 = 16 px
		image.Rect(45, 0, 46, 1),   // 1 px
	)

	regions := FindRegions(mask, 2, 0, false)
	if len(regions) != 2 {
		t.Fatalf("regions: got %d, want 2", len(regions))
	}

	r := regions[0]
	if r.Pixels != 50 {
		t.Errorf("pixels: got %d, want 50", r.Pixels)
	}
	if r.MinX != 5 || r.MinY != 5 || r.MaxX != 14 || r.MaxY != 9 {
		t.Errorf("bbox: got (%d,%d)-(%d,%d)", r.MinX, r.MinY, r.MaxX, r.MaxY)
	}
	if math.Abs(r.Centroid.X-9.5) > 1e-9 || math.Abs(r.Centroid.Y-7) > 1e-9 {
		t.Errorf("centroid: got %v, want (9.5,7)", r.Centroid)
	}
	if r.Ratio != 2 {
		t.Errorf("ratio: got %v, want 2", r.Ratio)
	}
	if r.Seed != 5*50+5 {
		t.Errorf("seed: got %d", r.Seed)
	}
	if r.PixelOffsets != nil {
		t.Error("pixels stored without storePixels")
	}

	if regions[1].Pixels != 16 {
		t.Errorf("second region pixels: got %d, want 16", regions[1].Pixels)
	}
}

func TestFindRegions_SizeLimits(t *testing.T) {
	mask := squareMask(40, 40, image.Rect(0, 0, 10, 10), image.Rect(20, 20, 23, 23))

	if got := FindRegions(mask, 1, 50, false); len(got) != 1 || got[0].Pixels != 9 {
		t.Errorf("max limit: got %+v", got)
	}
	if got := FindRegions(mask, 10, 0, false); len(got) != 1 || got[0].Pixels != 100 {
		t.Errorf("min limit: got %+v", got)
	}
}

func TestFindRegions_EightConnected(t *testing.T) {
	mask := squareMask(10, 10,
		image.Rect(1, 1, 2, 2),
		image.Rect(2, 2, 3, 3),
		image.Rect(3, 3, 4, 4),
	)
	regions := FindRegions(mask, 1, 0, true)
	if len(regions) != 1 {
		t.Fatalf("diagonal pixels should form one region, got %d", len(regions))
	}
	if len(regions[0].PixelOffsets) != 3 {
		t.Errorf("pixel offsets: got %v", regions[0].PixelOffsets)
	}
}

func TestFindRegions_Empty(t *testing.T) {
	if got := FindRegions(image.NewGray(image.Rect(0, 0, 0, 0)), 1, 0, false); got != nil {
		t.Errorf("got %v", got)
	}
	if got := FindRegions(image.NewGray(image.Rect(0, 0, 5, 5)), 1, 0, false); len(got) != 0 {
		t.Errorf("got %v", got)
	}
}

func TestRegion_Geometry(t *testing.T) {
	r := Region{MinX: 10, MinY: 20, MaxX: 19, MaxY: 39}
	r.Centroid.X, r.Centroid.Y = 14.5, 29.5

	if r.Width() != 10 || r.Height() != 20 {
		t.Errorf("size: %dx%d", r.Width(), r.Height())
	}
	if r.Bounds() != image.Rect(10, 20, 20, 40) {
		t.Errorf("bounds: %v", r.Bounds())
	}
	if r.AspectRatio() != 0.5 {
		t.Errorf("aspect: %v", r.AspectRatio())
	}

	roi := r.ROI(2, image.Rect(0, 0, 100, 100))
	if roi.Dx() < 20 || roi.Dy() < 40 {
		t.Errorf("ROI too small: %v", roi)
	}
	if !r.Bounds().In(roi) {
		t.Errorf("ROI %v does not contain the region", roi)
	}

	clipped := r.ROI(10, image.Rect(0, 0, 30, 30))
	if clipped != clipped.Intersect(image.Rect(0, 0, 30, 30)) {
		t.Errorf("ROI not clipped: %v", clipped)
	}
}

func TestSizeRatio(t *testing.T) {
	if got := SizeRatio(50, 100); got != 0.5 {
		t.Errorf("got %v", got)
	}
	if got := SizeRatio(100, 50); got != 0.5 {
		t.Errorf("got %v", got)
	}
	if got := SizeRatio(0, 50); got != 0 {
		t.Errorf("got %v", got)
	}
}
