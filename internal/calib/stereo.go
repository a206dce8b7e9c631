package calib

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// ErrNotLoaded is returned by StereoCalibration methods before camera
// parameters were loaded.
var ErrNotLoaded = errors.New("stereo calibration not loaded")

// Line is an image line a*x + b*y + c = 0.
type Line struct {
	A, B, C float64
}

// Distance returns the perpendicular pixel distance of p to the line. A
// degenerate line (a = b = 0) is infinitely far from every point.
func (l Line) Distance(p r2.Point) float64 {
	n := math.Hypot(l.A, l.B)
	if n == 0 {
		return math.Inf(1)
	}
	return math.Abs(l.A*p.X+l.B*p.Y+l.C) / n
}

// Y returns the line's y at x, or NaN for a vertical line.
func (l Line) Y(x float64) float64 {
	if l.B == 0 {
		return math.NaN()
	}
	return -(l.A*x + l.C) / l.B
}

// stereoFile is the on-disk layout of a stereo calibration.
type stereoFile struct {
	Left  *Camera `json:"left"`
	Right *Camera `json:"right"`
}

// StereoCalibration combines a left and a right camera. The zero value is
// usable but not loaded; use LoadCameraParameters or NewStereoCalibration.
//
// A loaded calibration is read-only and safe for concurrent use.
type StereoCalibration struct {
	mu     sync.RWMutex
	left   Camera
	right  Camera
	f      *mat.Dense
	loaded bool
}

// NewStereoCalibration validates both cameras and precomputes the
// fundamental matrix.
func NewStereoCalibration(left, right Camera) (*StereoCalibration, error) {
	s := &StereoCalibration{}
	if err := s.set(left, right); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadStereoCalibration reads a calibration file.
func LoadStereoCalibration(path string) (*StereoCalibration, error) {
	s := &StereoCalibration{}
	if err := s.LoadCameraParameters(path); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadCameraParameters replaces the cameras with the ones in the JSON file
// at path:
//
//	{"left": {"intrinsics": {...}, "distortion": {...}, "rotation": [...], "translation": {...}},
//	 "right": {...}}
//
// On error the previous parameters are kept.
func (s *StereoCalibration) LoadCameraParameters(path string) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "error opening calibration file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "error reading calibration file")
	}
	var file stereoFile
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "error parsing calibration file")
	}
	if file.Left == nil || file.Right == nil {
		return errors.Errorf("calibration file %s must define left and right cameras", path)
	}
	return errors.Wrapf(s.set(*file.Left, *file.Right), "calibration file %s", path)
}

func (s *StereoCalibration) set(left, right Camera) error {
	err := multierr.Combine(
		errors.Wrap(left.CheckValid(), "left camera"),
		errors.Wrap(right.CheckValid(), "right camera"),
	)
	if err != nil {
		return err
	}

	f := fundamentalMatrix(&left, &right)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.left, s.right, s.f, s.loaded = left, right, f, true
	return nil
}

// Loaded reports whether camera parameters are available.
func (s *StereoCalibration) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Left returns a copy of the left camera.
func (s *StereoCalibration) Left() Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.left
}

// Right returns a copy of the right camera.
func (s *StereoCalibration) Right() Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.right
}

// Calculate3DPoint triangulates a left/right pixel pair into a world point.
//
// Parameters:
//   - pl, pr: Pixel coordinates of the same scene point in both images.
//   - rectified: The points come from rectified images, so lens distortion
//     has already been removed and useDistortion is ignored.
//   - useDistortion: Remove each camera's lens distortion from its point
//     before triangulating.
//
// # Algorithm
//
// Linear triangulation (DLT): each view contributes two rows x*P3 - P1 and
// y*P3 - P2 of a 4x4 system A*X = 0, solved as the right singular vector of
// the smallest singular value.
func (s *StereoCalibration) Calculate3DPoint(pl, pr r2.Point, rectified, useDistortion bool) (r3.Vector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return r3.Vector{}, ErrNotLoaded
	}

	if useDistortion && !rectified {
		pl = s.left.Undistort(pl)
		pr = s.right.Undistort(pr)
	}

	a := mat.NewDense(4, 4, nil)
	addRows := func(row int, p r2.Point, proj *mat.Dense) {
		for j := 0; j < 4; j++ {
			a.Set(row, j, p.X*proj.At(2, j)-proj.At(0, j))
			a.Set(row+1, j, p.Y*proj.At(2, j)-proj.At(1, j))
		}
	}
	addRows(0, pl, s.left.ProjectionMatrix())
	addRows(2, pr, s.right.ProjectionMatrix())

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return r3.Vector{}, errors.New("triangulation failed: SVD did not converge")
	}
	var v mat.Dense
	svd.VTo(&v)

	w := v.At(3, 3)
	if w == 0 {
		return r3.Vector{}, errors.New("triangulation failed: point at infinity")
	}
	return r3.Vector{X: v.At(0, 3) / w, Y: v.At(1, 3) / w, Z: v.At(2, 3) / w}, nil
}

// CalculateEpipolarLineInLeftImage returns the line in the left image on
// which the counterpart of the right image point pr must lie.
func (s *StereoCalibration) CalculateEpipolarLineInLeftImage(pr r2.Point) Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return Line{}
	}
	// l_left = F^T * pr
	var l mat.VecDense
	l.MulVec(s.f.T(), mat.NewVecDense(3, []float64{pr.X, pr.Y, 1}))
	return Line{A: l.AtVec(0), B: l.AtVec(1), C: l.AtVec(2)}
}

// CalculateEpipolarLineInRightImage returns the line in the right image on
// which the counterpart of the left image point pl must lie.
func (s *StereoCalibration) CalculateEpipolarLineInRightImage(pl r2.Point) Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return Line{}
	}
	// l_right = F * pl
	var l mat.VecDense
	l.MulVec(s.f, mat.NewVecDense(3, []float64{pl.X, pl.Y, 1}))
	return Line{A: l.AtVec(0), B: l.AtVec(1), C: l.AtVec(2)}
}

// EpipolarDistanceInLeftImage is the distance of pl to the epipolar line of
// pr in the left image. It is +Inf when the calibration is not loaded.
func (s *StereoCalibration) EpipolarDistanceInLeftImage(pl, pr r2.Point, useDistortion bool) float64 {
	if useDistortion {
		pl, pr = s.undistortPair(pl, pr)
	}
	return s.CalculateEpipolarLineInLeftImage(pr).Distance(pl)
}

// EpipolarDistanceInRightImage is the distance of pr to the epipolar line of
// pl in the right image. It is +Inf when the calibration is not loaded.
func (s *StereoCalibration) EpipolarDistanceInRightImage(pl, pr r2.Point, useDistortion bool) float64 {
	if useDistortion {
		pl, pr = s.undistortPair(pl, pr)
	}
	return s.CalculateEpipolarLineInRightImage(pl).Distance(pr)
}

func (s *StereoCalibration) undistortPair(pl, pr r2.Point) (r2.Point, r2.Point) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.left.Undistort(pl), s.right.Undistort(pr)
}

// fundamentalMatrix computes F = K_r^-T [t]x R K_l^-1 for the relative pose
// R = R_r R_l^T, t = t_r - R t_l, so that pr^T F pl = 0.
func fundamentalMatrix(left, right *Camera) *mat.Dense {
	var rel mat.Dense
	rel.Mul(right.RotationMatrix(), left.RotationMatrix().T())

	var rtl mat.VecDense
	rtl.MulVec(&rel, mat.NewVecDense(3, []float64{left.Translation.X, left.Translation.Y, left.Translation.Z}))
	t := r3.Vector{
		X: right.Translation.X - rtl.AtVec(0),
		Y: right.Translation.Y - rtl.AtVec(1),
		Z: right.Translation.Z - rtl.AtVec(2),
	}
	tx := mat.NewDense(3, 3, []float64{
		0, -t.Z, t.Y,
		t.Z, 0, -t.X,
		-t.Y, t.X, 0,
	})

	var e mat.Dense
	e.Mul(tx, &rel)

	var f mat.Dense
	f.Product(right.inverseCameraMatrix().T(), &e, left.inverseCameraMatrix())
	return &f
}
