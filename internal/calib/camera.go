// Package calib holds pinhole camera models and the stereo geometry built on
// them: triangulation of a left/right point pair into a world point and the
// epipolar lines used to check that two observations can be the same object.
//
// # Conventions
//
// A camera maps a world point X to camera coordinates with Xc = R*X + t and
// projects it with the intrinsic matrix K. Pixel coordinates are 0-based with
// y pointing down. World units are whatever the calibration file uses,
// usually millimeters.
package calib

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Intrinsics are the pinhole parameters of one camera.
type Intrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Cx     float64 `json:"cx"`
	Cy     float64 `json:"cy"`
}

// Distortion holds Brown-Conrady lens distortion coefficients.
type Distortion struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`
}

// IsZero reports whether the model is the identity.
func (d Distortion) IsZero() bool { return d == Distortion{} }

// Apply maps undistorted normalized coordinates to distorted ones.
func (d Distortion) Apply(xu, yu float64) (float64, float64) {
	r2 := xu*xu + yu*yu
	radial := 1 + d.K1*r2 + d.K2*r2*r2 + d.K3*r2*r2*r2
	xd := xu*radial + 2*d.P1*xu*yu + d.P2*(r2+2*xu*xu)
	yd := yu*radial + 2*d.P2*xu*yu + d.P1*(r2+2*yu*yu)
	return xd, yd
}

// Remove inverts Apply with Newton-Raphson iterations, starting from the
// distorted point.
func (d Distortion) Remove(xd, yd float64) (float64, float64) {
	if d.IsZero() {
		return xd, yd
	}
	const (
		maxIterations = 20
		tolerance     = 1e-10
	)

	xu, yu := xd, yd
	for i := 0; i < maxIterations; i++ {
		r2 := xu*xu + yu*yu
		r4 := r2 * r2
		radial := 1 + d.K1*r2 + d.K2*r4 + d.K3*r4*r2

		ex, ey := d.Apply(xu, yu)
		ex -= xd
		ey -= yd
		if ex*ex+ey*ey < tolerance*tolerance {
			break
		}

		dRadial := d.K1 + 2*d.K2*r2 + 3*d.K3*r4
		jxx := radial + 2*xu*xu*dRadial + 2*d.P1*yu + 6*d.P2*xu
		jxy := 2*xu*yu*dRadial + 2*d.P1*xu + 2*d.P2*yu
		jyx := 2*xu*yu*dRadial + 2*d.P2*yu + 2*d.P1*xu
		jyy := radial + 2*yu*yu*dRadial + 2*d.P2*xu + 6*d.P1*yu

		det := jxx*jyy - jxy*jyx
		if det == 0 {
			break
		}
		xu -= (jyy*ex - jxy*ey) / det
		yu -= (-jyx*ex + jxx*ey) / det
	}
	return xu, yu
}

// Camera is a calibrated pinhole camera with its pose in the world frame.
type Camera struct {
	Intrinsics Intrinsics `json:"intrinsics"`
	Distortion Distortion `json:"distortion"`

	// Rotation is the row-major 3x3 world-to-camera rotation. Empty means
	// identity.
	Rotation []float64 `json:"rotation,omitempty"`

	// Translation is t in Xc = R*X + t.
	Translation r3.Vector `json:"translation"`
}

// CheckValid checks the intrinsics and the rotation shape.
func (c *Camera) CheckValid() error {
	if c == nil {
		return errors.New("camera parameters not provided")
	}
	in := c.Intrinsics
	if in.Fx <= 0 || in.Fy <= 0 {
		return errors.Errorf("invalid focal length fx = %v, fy = %v", in.Fx, in.Fy)
	}
	if in.Width < 0 || in.Height < 0 {
		return errors.Errorf("invalid size (%d, %d)", in.Width, in.Height)
	}
	if len(c.Rotation) != 0 && len(c.Rotation) != 9 {
		return errors.Errorf("rotation must have 9 elements, got %d", len(c.Rotation))
	}
	return nil
}

// CameraMatrix returns K.
func (c *Camera) CameraMatrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		c.Intrinsics.Fx, 0, c.Intrinsics.Cx,
		0, c.Intrinsics.Fy, c.Intrinsics.Cy,
		0, 0, 1,
	})
}

// inverseCameraMatrix returns K^-1 in closed form.
func (c *Camera) inverseCameraMatrix() *mat.Dense {
	fx, fy := c.Intrinsics.Fx, c.Intrinsics.Fy
	return mat.NewDense(3, 3, []float64{
		1 / fx, 0, -c.Intrinsics.Cx / fx,
		0, 1 / fy, -c.Intrinsics.Cy / fy,
		0, 0, 1,
	})
}

// RotationMatrix returns R.
func (c *Camera) RotationMatrix() *mat.Dense {
	if len(c.Rotation) != 9 {
		return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	}
	return mat.NewDense(3, 3, append([]float64(nil), c.Rotation...))
}

// ProjectionMatrix returns the 3x4 matrix K*[R|t].
func (c *Camera) ProjectionMatrix() *mat.Dense {
	rt := mat.NewDense(3, 4, nil)
	rt.Slice(0, 3, 0, 3).(*mat.Dense).Copy(c.RotationMatrix())
	rt.Set(0, 3, c.Translation.X)
	rt.Set(1, 3, c.Translation.Y)
	rt.Set(2, 3, c.Translation.Z)

	p := mat.NewDense(3, 4, nil)
	p.Mul(c.CameraMatrix(), rt)
	return p
}

// WorldToCamera transforms a world point into camera coordinates.
func (c *Camera) WorldToCamera(p r3.Vector) r3.Vector {
	var v mat.VecDense
	v.MulVec(c.RotationMatrix(), mat.NewVecDense(3, []float64{p.X, p.Y, p.Z}))
	return r3.Vector{X: v.AtVec(0), Y: v.AtVec(1), Z: v.AtVec(2)}.Add(c.Translation)
}

// Project maps a world point to pixel coordinates, applying lens distortion
// when useDistortion is set. ok is false for points at or behind the camera.
func (c *Camera) Project(p r3.Vector, useDistortion bool) (px r2.Point, ok bool) {
	pc := c.WorldToCamera(p)
	if pc.Z <= 0 {
		return r2.Point{}, false
	}
	x, y := pc.X/pc.Z, pc.Y/pc.Z
	if useDistortion {
		x, y = c.Distortion.Apply(x, y)
	}
	return c.normalizedToPixel(x, y), true
}

// Undistort maps a distorted pixel to the pixel an ideal pinhole camera
// would have observed.
func (c *Camera) Undistort(p r2.Point) r2.Point {
	if c.Distortion.IsZero() {
		return p
	}
	x, y := c.pixelToNormalized(p)
	return c.normalizedToPixel(c.Distortion.Remove(x, y))
}

// Distort is the inverse of Undistort.
func (c *Camera) Distort(p r2.Point) r2.Point {
	if c.Distortion.IsZero() {
		return p
	}
	x, y := c.pixelToNormalized(p)
	return c.normalizedToPixel(c.Distortion.Apply(x, y))
}

func (c *Camera) pixelToNormalized(p r2.Point) (float64, float64) {
	return (p.X - c.Intrinsics.Cx) / c.Intrinsics.Fx, (p.Y - c.Intrinsics.Cy) / c.Intrinsics.Fy
}

func (c *Camera) normalizedToPixel(x, y float64) r2.Point {
	return r2.Point{X: x*c.Intrinsics.Fx + c.Intrinsics.Cx, Y: y*c.Intrinsics.Fy + c.Intrinsics.Cy}
}

// String summarizes the camera for logs.
func (c *Camera) String() string {
	return fmt.Sprintf("fx=%.1f fy=%.1f c=(%.1f,%.1f) t=%v", c.Intrinsics.Fx, c.Intrinsics.Fy,
		c.Intrinsics.Cx, c.Intrinsics.Cy, c.Translation)
}
