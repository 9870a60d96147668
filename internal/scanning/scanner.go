package scanning

import (
	"context"
	"errors"

	"github.com/zombor/budget-receipts/internal/extract"
)

// ErrOCRFailed is returned for any failure of the local OCR engine
var ErrOCRFailed = errors.New("OCR işlemi başarısız oldu")

// ProgressFunc receives a percentage and a human readable status during a scan
type ProgressFunc func(progress int, status string)

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt analyzes a receipt image/PDF and extracts its data.
	// progress may be nil.
	ScanReceipt(ctx context.Context, imageData []byte, contentType string, progress ProgressFunc) (*extract.ReceiptData, error)
	// Close closes the scanner and releases resources
	Close() error
}

// Engine turns a PNG image into text
type Engine interface {
	// Recognize returns the text on the image and the engine's mean
	// confidence in 0-100, or a negative confidence when unknown
	Recognize(ctx context.Context, pngData []byte) (string, float64, error)
	Close() error
}

const (
	statusPreparing   = "Görüntü hazırlanıyor"
	statusRecognizing = "Metin tanınıyor"
	statusExtracting  = "Bilgiler çıkarılıyor"
	statusAnalyzing   = "Yapay zeka ile analiz ediliyor"
	statusDone        = "Tamamlandı"
)

func report(progress ProgressFunc, pct int, status string) {
	if progress != nil {
		progress(pct, status)
	}
}
