package scanning

import (
	"context"
	"log/slog"

	"github.com/zombor/budget-receipts/internal/extract"
)

// Local implements the Scanner interface with an on-device OCR engine and
// the heuristic extractors
type Local struct {
	engine    Engine
	extractor *extract.Extractor
}

// NewLocal creates a Local scanner. A nil extractor uses extract.DefaultExtractor.
func NewLocal(engine Engine, extractor *extract.Extractor) *Local {
	if extractor == nil {
		extractor = extract.DefaultExtractor
	}
	return &Local{
		engine:    engine,
		extractor: extractor,
	}
}

// ScanReceipt runs OCR over the image and extracts receipt data from the text.
// Every engine or image decoding failure is reported as ErrOCRFailed.
func (l *Local) ScanReceipt(ctx context.Context, imageData []byte, contentType string, progress ProgressFunc) (*extract.ReceiptData, error) {
	report(progress, 0, statusPreparing)

	pngData, _, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		slog.Error("Failed to prepare receipt image",
			"content_type", contentType,
			"file_size", len(imageData),
			"error", err,
		)
		return nil, ErrOCRFailed
	}

	report(progress, 20, statusRecognizing)
	text, confidence, err := l.engine.Recognize(ctx, pngData)
	if err != nil {
		slog.Error("OCR engine failed", "error", err)
		return nil, ErrOCRFailed
	}

	report(progress, 90, statusExtracting)
	data := l.extractor.Extract(text, confidence)

	report(progress, 100, statusDone)
	slog.Debug("Receipt scanned locally",
		"ocr_confidence", confidence,
		"confidence", data.Confidence,
		"items", len(data.Items),
	)
	return data, nil
}

// ScanDataURI decodes a data-URI encoded image and scans it
func (l *Local) ScanDataURI(ctx context.Context, imageBase64 string, progress ProgressFunc) (*extract.ReceiptData, error) {
	data, contentType, err := DecodeDataURI(imageBase64)
	if err != nil {
		slog.Error("Failed to decode receipt image", "error", err)
		return nil, ErrOCRFailed
	}
	return l.ScanReceipt(ctx, data, contentType, progress)
}

// Close closes the underlying engine
func (l *Local) Close() error {
	return l.engine.Close()
}
