// Package ocr reads printed labels on located objects using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2) behind the
// TextRecognizer interface, and provides LabelClassifier, a stereo classifier
// that names each object after the most confident word found in its left
// image region.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// # Performance Considerations
//
// OCR is computationally expensive. LabelClassifier only reads objects that
// have no name yet, and only inside their (slightly enlarged) region, so a
// label costs one recognition per object lifetime in the usual case.
package ocr
