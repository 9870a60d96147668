//go:build windows

package scanning

import (
	"context"
	"errors"
)

var errTesseractUnsupported = errors.New("tesseract OCR is not available on windows builds")

// Tesseract is unavailable on windows; use an AI scanner instead
type Tesseract struct{}

// NewTesseract always fails on windows
func NewTesseract(languages ...string) (*Tesseract, error) {
	return nil, errTesseractUnsupported
}

func (t *Tesseract) Recognize(ctx context.Context, pngData []byte) (string, float64, error) {
	return "", 0, errTesseractUnsupported
}

func (t *Tesseract) Close() error {
	return nil
}
