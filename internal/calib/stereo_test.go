package calib

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRig returns a parallel stereo pair with a 100 unit baseline along x.
func testRig() (Camera, Camera) {
	in := Intrinsics{Width: 640, Height: 480, Fx: 500, Fy: 500, Cx: 320, Cy: 240}
	left := Camera{Intrinsics: in}
	right := Camera{Intrinsics: in, Translation: r3.Vector{X: -100}}
	return left, right
}

func TestCalculate3DPoint_RecoversWorldPoint(t *testing.T) {
	left, right := testRig()
	s, err := NewStereoCalibration(left, right)
	require.NoError(t, err)

	for _, want := range []r3.Vector{
		{X: 50, Y: 20, Z: 1000},
		{X: -120, Y: 80, Z: 600},
		{X: 0, Y: 0, Z: 2500},
	} {
		pl, ok := left.Project(want, false)
		require.True(t, ok)
		pr, ok := right.Project(want, false)
		require.True(t, ok)

		got, err := s.Calculate3DPoint(pl, pr, true, false)
		require.NoError(t, err)
		assert.InDelta(t, want.X, got.X, 1e-6)
		assert.InDelta(t, want.Y, got.Y, 1e-6)
		assert.InDelta(t, want.Z, got.Z, 1e-6)
	}
}

func TestCalculate3DPoint_KnownDisparity(t *testing.T) {
	left, right := testRig()
	s, err := NewStereoCalibration(left, right)
	require.NoError(t, err)

	// z = f * b / d = 500 * 100 / 50
	got, err := s.Calculate3DPoint(r2.Point{X: 345, Y: 240}, r2.Point{X: 295, Y: 240}, true, false)
	require.NoError(t, err)
	assert.InDelta(t, 1000, got.Z, 1e-6)
}

func TestCalculate3DPoint_WithDistortion(t *testing.T) {
	left, right := testRig()
	left.Distortion = Distortion{K1: -0.2, K2: 0.05, P1: 0.001, P2: -0.001}
	right.Distortion = Distortion{K1: -0.15, K2: 0.02}
	s, err := NewStereoCalibration(left, right)
	require.NoError(t, err)

	want := r3.Vector{X: 150, Y: -90, Z: 900}
	pl, _ := left.Project(want, true)
	pr, _ := right.Project(want, true)

	got, err := s.Calculate3DPoint(pl, pr, false, true)
	require.NoError(t, err)
	assert.InDelta(t, want.Z, got.Z, 1e-3)
	assert.InDelta(t, want.X, got.X, 1e-3)

	// ignoring the distortion gives a different answer
	raw, err := s.Calculate3DPoint(pl, pr, false, false)
	require.NoError(t, err)
	assert.Greater(t, math.Abs(raw.X-want.X)+math.Abs(raw.Z-want.Z), 0.1)
}

func TestEpipolarLines(t *testing.T) {
	left, right := testRig()
	s, err := NewStereoCalibration(left, right)
	require.NoError(t, err)

	pl := r2.Point{X: 345, Y: 250}
	pr := r2.Point{X: 295, Y: 250}

	assert.InDelta(t, 0, s.EpipolarDistanceInRightImage(pl, pr, false), 1e-9)
	assert.InDelta(t, 0, s.EpipolarDistanceInLeftImage(pl, pr, false), 1e-9)

	// parallel cameras have horizontal epipolar lines
	lr := s.CalculateEpipolarLineInRightImage(pl)
	assert.InDelta(t, 250, lr.Y(0), 1e-9)
	assert.InDelta(t, 250, lr.Y(600), 1e-9)

	assert.InDelta(t, 10, s.EpipolarDistanceInRightImage(pl, r2.Point{X: 300, Y: 260}, false), 1e-9)
	assert.InDelta(t, 7, s.EpipolarDistanceInLeftImage(r2.Point{X: 10, Y: 243}, pr, false), 1e-9)
}

func TestEpipolarLines_RotatedRig(t *testing.T) {
	left, right := testRig()
	// right camera turned 10 degrees about y and shifted
	a := 10 * math.Pi / 180
	right.Rotation = []float64{
		math.Cos(a), 0, math.Sin(a),
		0, 1, 0,
		-math.Sin(a), 0, math.Cos(a),
	}
	right.Translation = r3.Vector{X: -100, Y: 5, Z: 10}
	s, err := NewStereoCalibration(left, right)
	require.NoError(t, err)

	for _, p := range []r3.Vector{{X: 10, Y: 10, Z: 800}, {X: -200, Y: 50, Z: 1500}} {
		pl, ok := left.Project(p, false)
		require.True(t, ok)
		pr, ok := right.Project(p, false)
		require.True(t, ok)

		assert.InDelta(t, 0, s.EpipolarDistanceInRightImage(pl, pr, false), 1e-6)
		assert.InDelta(t, 0, s.EpipolarDistanceInLeftImage(pl, pr, false), 1e-6)

		got, err := s.Calculate3DPoint(pl, pr, false, false)
		require.NoError(t, err)
		assert.InDelta(t, p.Z, got.Z, 1e-6)
	}
}

func TestNotLoaded(t *testing.T) {
	var s StereoCalibration
	assert.False(t, s.Loaded())

	_, err := s.Calculate3DPoint(r2.Point{}, r2.Point{}, true, false)
	assert.ErrorIs(t, err, ErrNotLoaded)

	assert.True(t, math.IsInf(s.EpipolarDistanceInRightImage(r2.Point{}, r2.Point{}, false), 1))
	assert.Equal(t, Line{}, s.CalculateEpipolarLineInLeftImage(r2.Point{X: 1}))
}

func TestLoadCameraParameters(t *testing.T) {
	left, right := testRig()
	right.Distortion.K1 = -0.1
	data, err := json.Marshal(map[string]Camera{"left": left, "right": right})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "stereo.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	s, err := LoadStereoCalibration(path)
	require.NoError(t, err)
	assert.True(t, s.Loaded())
	assert.Equal(t, -0.1, s.Right().Distortion.K1)
	assert.Equal(t, -100.0, s.Right().Translation.X)
	assert.Equal(t, 500.0, s.Left().Intrinsics.Fx)
}

func TestLoadCameraParameters_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadStereoCalibration(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{"), 0o600))
	_, err = LoadStereoCalibration(garbage)
	assert.Error(t, err)

	oneSided := filepath.Join(dir, "left-only.json")
	require.NoError(t, os.WriteFile(oneSided, []byte(`{"left": {"intrinsics": {"fx": 1, "fy": 1}}}`), 0o600))
	_, err = LoadStereoCalibration(oneSided)
	assert.Error(t, err)

	// both cameras invalid: both problems are reported
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"left": {}, "right": {"intrinsics": {"fx": 1, "fy": 1}, "rotation": [1, 2]}}`), 0o600))
	_, err = LoadStereoCalibration(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "left camera")
	assert.Contains(t, err.Error(), "right camera")
}

func TestLoadCameraParameters_KeepsPreviousOnError(t *testing.T) {
	left, right := testRig()
	s, err := NewStereoCalibration(left, right)
	require.NoError(t, err)

	assert.Error(t, s.LoadCameraParameters(filepath.Join(t.TempDir(), "missing.json")))
	assert.True(t, s.Loaded())
	assert.Equal(t, 500.0, s.Left().Intrinsics.Fx)
}

func TestDistortionRoundTrip(t *testing.T) {
	d := Distortion{K1: -0.28, K2: 0.07, K3: -0.01, P1: 0.0012, P2: -0.0008}
	for _, p := range [][2]float64{{0, 0}, {0.1, -0.2}, {-0.35, 0.25}, {0.4, 0.3}} {
		xd, yd := d.Apply(p[0], p[1])
		xu, yu := d.Remove(xd, yd)
		assert.InDelta(t, p[0], xu, 1e-8)
		assert.InDelta(t, p[1], yu, 1e-8)
	}

	cam := Camera{Intrinsics: Intrinsics{Fx: 400, Fy: 400, Cx: 200, Cy: 150}, Distortion: d}
	px := r2.Point{X: 20, Y: 30}
	back := cam.Undistort(cam.Distort(px))
	assert.InDelta(t, px.X, back.X, 1e-6)
	assert.InDelta(t, px.Y, back.Y, 1e-6)
}

func TestLine(t *testing.T) {
	l := Line{A: 0, B: 1, C: -5} // y = 5
	assert.InDelta(t, 3, l.Distance(r2.Point{X: 100, Y: 8}), 1e-12)
	assert.Equal(t, 5.0, l.Y(42))
	assert.True(t, math.IsNaN(Line{A: 1}.Y(0)))
	assert.True(t, math.IsInf(Line{}.Distance(r2.Point{}), 1))
}
