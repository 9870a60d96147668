package extract

// Limits holds the numeric thresholds used by the extractors. They were chosen
// empirically against real receipts and can be tuned per deployment.
type Limits struct {
	// MaxAmount is the exclusive upper bound for a labelled total
	MaxAmount float64
	// FallbackMaxAmount is the exclusive upper bound for an unlabelled price
	FallbackMaxAmount float64
	// MaxItemPrice is the inclusive upper bound for a line item total
	MaxItemPrice float64
	// QuantityTolerance is the allowed relative difference between
	// quantity × unit price and the printed line total
	QuantityTolerance float64
	// MinYear and MaxYear bound accepted receipt dates
	MinYear int
	MaxYear int
}

// DefaultLimits are the thresholds used by the package-level functions
var DefaultLimits = Limits{
	MaxAmount:         1_000_000,
	FallbackMaxAmount: 100_000,
	MaxItemPrice:      50_000,
	QuantityTolerance: 0.10,
	MinYear:           2020,
	MaxYear:           2030,
}

// Extractor runs the extraction heuristics with a specific set of limits.
// The zero value is not usable; use New or DefaultExtractor.
type Extractor struct {
	limits Limits
}

// New creates an Extractor. Zero fields in limits fall back to DefaultLimits.
func New(limits Limits) *Extractor {
	if limits.MaxAmount <= 0 {
		limits.MaxAmount = DefaultLimits.MaxAmount
	}
	if limits.FallbackMaxAmount <= 0 {
		limits.FallbackMaxAmount = DefaultLimits.FallbackMaxAmount
	}
	if limits.MaxItemPrice <= 0 {
		limits.MaxItemPrice = DefaultLimits.MaxItemPrice
	}
	if limits.QuantityTolerance <= 0 {
		limits.QuantityTolerance = DefaultLimits.QuantityTolerance
	}
	if limits.MinYear <= 0 {
		limits.MinYear = DefaultLimits.MinYear
	}
	if limits.MaxYear <= 0 {
		limits.MaxYear = DefaultLimits.MaxYear
	}
	return &Extractor{limits: limits}
}

// DefaultExtractor is the Extractor backing the package-level functions
var DefaultExtractor = New(DefaultLimits)

// Limits returns the thresholds in use
func (e *Extractor) Limits() Limits {
	return e.limits
}

// ExtractAmount returns the most plausible receipt total, or 0
func ExtractAmount(text string) float64 { return DefaultExtractor.Amount(text) }

// ExtractDate returns the receipt date as YYYY-MM-DD, or nil
func ExtractDate(text string) *string { return DefaultExtractor.Date(text) }

// ExtractItems returns the deduplicated line items of a receipt
func ExtractItems(text string) []ReceiptItem { return DefaultExtractor.Items(text) }

// Extract runs every extractor with DefaultLimits
func Extract(text string, ocrConfidence float64) *ReceiptData {
	return DefaultExtractor.Extract(text, ocrConfidence)
}

// Sanitize enforces DefaultLimits on externally produced data
func Sanitize(data *ReceiptData) { DefaultExtractor.Sanitize(data) }
