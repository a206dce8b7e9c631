package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/stereo-objects-mcp/internal/colorparams"
	"github.com/ironsheep/stereo-objects-mcp/internal/imaging"
)

func centroid(x, y float64) r2.Point { return r2.Point{X: x, Y: y} }

func TestSizeFilter(t *testing.T) {
	square := imaging.Region{MinX: 0, MinY: 0, MaxX: 9, MaxY: 9, Pixels: 100}
	sparse := imaging.Region{MinX: 0, MinY: 0, MaxX: 9, MaxY: 9, Pixels: 30}
	thin := imaging.Region{MinX: 0, MinY: 0, MaxX: 49, MaxY: 1, Pixels: 100}

	tests := []struct {
		name   string
		filter SizeFilter
		region imaging.Region
		want   bool
	}{
		{"passes", SizeFilter{MinPixels: 50, MaxPixels: 200}, square, true},
		{"too small", SizeFilter{MinPixels: 150}, square, false},
		{"too large", SizeFilter{MaxPixels: 99}, square, false},
		{"no upper limit", SizeFilter{MinPixels: 1}, square, true},
		{"fill", SizeFilter{MinFill: 0.5}, sparse, false},
		{"aspect", SizeFilter{MinAspect: 0.2}, thin, false},
		{"aspect ok", SizeFilter{MinAspect: 0.2}, square, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.CheckRegion(nil, nil, tt.region))
		})
	}
}

// textureScene has a flat red square on the left and black/white vertical
// stripes on the right.
func textureScene() (img *image.RGBA, flat, striped imaging.Region) {
	img = scene(120, 60, box{image.Rect(10, 10, 50, 50), red})
	for x := 70; x < 110; x++ {
		c := color.RGBA{255, 255, 255, 255}
		if (x/4)%2 == 0 {
			c = color.RGBA{0, 0, 0, 255}
		}
		for y := 10; y < 50; y++ {
			img.Set(x, y, c)
		}
	}
	flat = imaging.Region{MinX: 10, MinY: 10, MaxX: 49, MaxY: 49, Pixels: 1600}
	striped = imaging.Region{MinX: 70, MinY: 10, MaxX: 109, MaxY: 49, Pixels: 1600}
	return img, flat, striped
}

func TestTextureFilter(t *testing.T) {
	img, flat, striped := textureScene()
	frame := imaging.Normalize(img)

	f := TextureFilter{MinDensity: 0.05}
	assert.Less(t, f.Density(frame, flat), 0.01)
	assert.Greater(t, f.Density(frame, striped), 0.05)

	assert.False(t, f.CheckRegion(frame, nil, flat))
	assert.True(t, f.CheckRegion(frame, nil, striped))
	assert.True(t, f.CheckRegion(nil, nil, flat), "no frame, no opinion")

	capped := TextureFilter{MaxDensity: 0.01}
	assert.True(t, capped.CheckRegion(frame, nil, flat))
	assert.False(t, capped.CheckRegion(frame, nil, striped))

	outside := imaging.Region{MinX: 500, MinY: 500, MaxX: 510, MaxY: 510}
	assert.Zero(t, f.Density(frame, outside))
}

func TestFilterChain(t *testing.T) {
	calls := 0
	counting := RegionFilterFunc(func(*image.NRGBA, *image.Gray, imaging.Region) bool {
		calls++
		return true
	})
	r := imaging.Region{MaxX: 9, MaxY: 9, Pixels: 100}

	assert.True(t, FilterChain{counting, SizeFilter{MinPixels: 10}}.CheckRegion(nil, nil, r))
	assert.False(t, FilterChain{SizeFilter{MinPixels: 1000}, counting}.CheckRegion(nil, nil, r))
	assert.Equal(t, 1, calls, "chain stops at the first rejection")
	assert.True(t, FilterChain{}.CheckRegion(nil, nil, r))
}

func TestTextureFilter_RegionType(t *testing.T) {
	img, flat, striped := textureScene()
	frame := imaging.Normalize(img)

	f := TextureFilter{TexturedDensity: 0.05}
	assert.Equal(t, CompactObject, f.RegionType(frame, nil, flat))
	assert.Equal(t, TexturedObject, f.RegionType(frame, nil, striped))
	assert.Equal(t, CompactObject, f.RegionType(nil, nil, striped))
	assert.Equal(t, CompactObject, TextureFilter{}.RegionType(frame, nil, striped), "typing disabled")

	chain := FilterChain{SizeFilter{}, f}
	assert.Equal(t, TexturedObject, chain.RegionType(frame, nil, striped))
	assert.Equal(t, CompactObject, chain.RegionType(frame, nil, flat))
	assert.Equal(t, CompactObject, FilterChain{SizeFilter{}}.RegionType(frame, nil, striped))
}

func TestFindObjectsInRegions_TypesTexturedRegions(t *testing.T) {
	img, flat, striped := textureScene()
	f := newTestFinder(t)
	f.SetRegionFilter(FilterChain{SizeFilter{MinFill: 0.5}, TextureFilter{TexturedDensity: 0.05}})
	f.PrepareImages(img, ROIDisabled, false)

	assert.Equal(t, 2, f.FindObjectsInRegions([]imaging.Region{flat, striped}, colorparams.Red, nil))
	objs := f.Objects()
	require.Len(t, objs, 2)
	assert.Equal(t, CompactObject, objs[0].Type)
	assert.Equal(t, TexturedObject, objs[1].Type)

	// Without a typing filter every region stays compact.
	f.SetRegionFilter(nil)
	f.PrepareImages(img, ROIDisabled, false)
	f.FindObjectsInRegions([]imaging.Region{striped}, colorparams.Red, nil)
	assert.Equal(t, CompactObject, f.Objects()[0].Type)
}
