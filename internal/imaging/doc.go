// Package imaging provides the per-pixel operations behind color-based object
// segmentation: HSV conversion, HSV thresholding, morphology and connected
// region extraction, plus the image cache and overlay helpers used by the
// server.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Rectangles follow image.Rectangle: Min is inclusive, Max is exclusive
//   - Region bounding boxes (MinX..MaxX, MinY..MaxY) are inclusive
//
// Images produced here (HSV images, masks) always have their origin at (0,0).
// Normalize converts an arbitrary image.Image to that convention.
//
// # HSV Scale
//
// HSV images store hue on the 0-179 scale (degrees / 2) so it fits one byte,
// saturation and value on 0-255. Color parameters in package colorparams use
// the same scale.
//
// # Segmentation Pipeline
//
// The object finders run, per color and per frame:
//
//  1. CalculateHSVImage, optionally restricted to region-of-interest windows
//  2. FilterHSV (or FilterColored for the generic "any color" case)
//  3. Erode then Dilate to remove speckle
//  4. FindRegions to extract connected components with their statistics
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and allocate their outputs, so they can be called concurrently on
// different inputs.
package imaging
