//go:build !windows

package scanning

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the Engine interface with the Tesseract OCR library.
// A single client is shared and guarded since gosseract clients are not
// safe for concurrent use.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a Tesseract engine for the given languages,
// defaulting to Turkish with an English fallback
func NewTesseract(languages ...string) (*Tesseract, error) {
	if len(languages) == 0 {
		languages = []string{"tur", "eng"}
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting OCR languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("setting page segmentation mode: %w", err)
	}

	return &Tesseract{client: client}, nil
}

// Recognize returns the text of the image and the mean word confidence
func (t *Tesseract) Recognize(ctx context.Context, pngData []byte) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	enhanced, err := enhanceForOCR(pngData)
	if err != nil {
		return "", 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(enhanced); err != nil {
		return "", 0, fmt.Errorf("loading image: %w", err)
	}

	text, err := t.client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("recognizing text: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		slog.Warn("Could not read OCR word confidences", "error", err)
		return text, -1, nil
	}

	return text, meanConfidence(boxes), nil
}

// Close releases the Tesseract client
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}

func meanConfidence(boxes []gosseract.BoundingBox) float64 {
	if len(boxes) == 0 {
		return -1
	}
	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	return sum / float64(len(boxes))
}
