package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// ImageResult is an encoded image returned to MCP clients.
type ImageResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG.
func EncodePNG(img image.Image) (*ImageResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &ImageResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// CropRegion extracts a region's bounding box from img.
//
// Parameters:
//   - img: Source image, usually the frame the region was found in.
//   - r: Region whose bounding box is cropped.
//   - margin: Extra pixels added on every side before clipping.
//   - scale: Resize factor applied after cropping (Lanczos). Values <= 0 or
//     equal to 1 keep the original size.
//
// Returns the cropped image with origin (0,0), or an error when the box does
// not intersect the image.
func CropRegion(img image.Image, r Region, margin int, scale float64) (*image.NRGBA, error) {
	bounds := img.Bounds()
	rect := r.Bounds().Inset(-margin).Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("region (%d,%d)-(%d,%d) outside image bounds %v",
			r.MinX, r.MinY, r.MaxX, r.MaxY, bounds)
	}

	cropped := imaging.Crop(img, rect)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth > 0 && newHeight > 0 {
			cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
		}
	}
	return cropped, nil
}
