// Package detection finds colored objects in a single camera view.
//
// An ObjectFinder runs the segmentation pipeline of package imaging for each
// color of interest and turns the resulting regions into Object2DEntry
// observations. Observations keep their ID from frame to frame while the
// object is re-found near its previous position with a similar size.
//
// # Frame Cycle
//
//	finder.PrepareImages(frame, 2.0, true)
//	finder.FindObjects(colorparams.Red, 50, 0)
//	finder.FindObjects(colorparams.Blue, 50, 0)
//	n := finder.Finalize()
//
// # Regions of Interest
//
// With a non-negative roiFactor, PrepareImages restricts HSV conversion and
// segmentation to the previous objects' bounding boxes scaled by that factor.
// This saves work when objects move little between frames, at the price of
// missing objects that appear elsewhere. Use ROIDisabled to search the whole
// frame.
//
// # Region Filters
//
// A RegionFilter rejects regions before they become objects. SizeFilter
// checks pixel count, fill and aspect ratio; TextureFilter checks edge density
// inside the bounding box; FilterChain combines filters.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
package detection
