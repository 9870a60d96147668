package extract

// ReceiptData contains the fields extracted from a receipt
type ReceiptData struct {
	Amount      float64       `json:"amount"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Currency    string        `json:"currency"`
	Date        *string       `json:"date"` // YYYY-MM-DD, nil when not found
	Confidence  int           `json:"confidence"`
	Items       []ReceiptItem `json:"items,omitempty"`
}

// ReceiptItem is a single purchased product parsed from a receipt line
type ReceiptItem struct {
	Name       string   `json:"name"`
	Quantity   int      `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price"`
	TotalPrice float64  `json:"total_price"`
	Category   *string  `json:"category"`
	Brand      *string  `json:"brand"`
}

// Extract runs every extractor over OCR text. ocrConfidence is the engine's
// own 0-100 confidence; pass a negative value when there is none.
func (e *Extractor) Extract(text string, ocrConfidence float64) *ReceiptData {
	data := &ReceiptData{
		Amount:      e.Amount(text),
		Category:    ExtractCategory(text),
		Description: ExtractDescription(text),
		Currency:    ExtractCurrency(text),
		Date:        e.Date(text),
	}
	if items := e.Items(text); len(items) > 0 {
		data.Items = items
	}
	data.Confidence = Confidence(Score(data), ocrConfidence)
	return data
}
