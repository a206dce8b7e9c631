package ocr

import (
	"bytes"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/pkg/errors"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the complete results of text extraction from an image.
type OCRResult struct {
	// FullText is all recognized text with original spacing/newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words. It may be empty when bounding box
	// extraction fails; the text is still in FullText.
	Regions []TextRegion `json:"regions"`
}

// BestWord returns the word with the highest confidence of at least
// minConfidence, ignoring whitespace-only words.
func (r *OCRResult) BestWord(minConfidence float64) (string, float64, bool) {
	best, conf, found := "", 0.0, false
	if r == nil {
		return best, conf, found
	}
	for _, w := range r.Regions {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.Confidence < minConfidence {
			continue
		}
		if !found || w.Confidence > conf {
			best, conf, found = text, w.Confidence, true
		}
	}
	return best, conf, found
}

// TextRecognizer reads text from an in-memory image.
type TextRecognizer interface {
	Recognize(img image.Image) (*OCRResult, error)
}

// Tesseract is a TextRecognizer backed by the Tesseract engine.
//
// Tesseract and the language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
type Tesseract struct {
	// Language is a Tesseract language code such as "eng" or "deu".
	Language string

	// TessdataPrefix overrides the directory of the language data.
	TessdataPrefix string
}

// NewTesseract returns a recognizer for language (DefaultLanguage if empty).
func NewTesseract(language string) *Tesseract {
	if language == "" {
		language = DefaultLanguage
	}
	return &Tesseract{Language: language}
}

// Recognize implements TextRecognizer. Each call uses its own Tesseract
// client, so a Tesseract may be shared between goroutines.
func (t *Tesseract) Recognize(img image.Image) (*OCRResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "failed to encode image")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return nil, errors.Wrap(err, "failed to set tessdata path")
		}
	}
	lang := t.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	if err := client.SetLanguage(lang); err != nil {
		return nil, errors.Wrap(err, "failed to set language")
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, errors.Wrap(err, "failed to set image")
	}

	text, err := client.Text()
	if err != nil {
		return nil, errors.Wrap(err, "OCR failed")
	}

	// Word boxes are best effort; keep the text if they fail.
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &OCRResult{FullText: text, Regions: []TextRegion{}}, nil
	}
	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}
	return &OCRResult{FullText: text, Regions: regions}, nil
}

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
