package extract

import (
	"math"
	"strings"
	"unicode/utf8"
)

// MaxConfidence is the highest confidence a heuristic extraction can report
const MaxConfidence = 95

// Score rates how many fields were recovered from the receipt. The raw score
// can exceed MaxConfidence; Confidence clamps it.
func Score(data *ReceiptData) int {
	score := 50
	if data.Amount > 0 {
		score += 20
	}
	if data.Category != DefaultCategory {
		score += 15
	}
	if data.Date != nil {
		score += 10
	}
	if data.Description != DefaultDescription {
		score += 5
	}
	if len(data.Items) > 0 {
		score += 5
	}
	return score
}

// Confidence averages the extraction score with the OCR engine's confidence.
// A negative ocrConfidence means the engine reported none.
func Confidence(score int, ocrConfidence float64) int {
	if ocrConfidence < 0 {
		return clampConfidence(float64(score))
	}
	return clampConfidence((float64(score) + ocrConfidence) / 2)
}

func clampConfidence(v float64) int {
	c := int(math.Round(v))
	if c < 0 {
		return 0
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// Sanitize applies defaults and bounds to receipt data that did not come from
// the local extractors, so it satisfies the same invariants.
func (e *Extractor) Sanitize(data *ReceiptData) {
	if data.Amount <= 0 || data.Amount >= e.limits.MaxAmount {
		data.Amount = 0
	}
	data.Amount = round2(data.Amount)

	data.Category = strings.TrimSpace(data.Category)
	if !knownCategory(data.Category) {
		data.Category = ExtractCategory(data.Category)
	}

	data.Currency = strings.ToUpper(strings.TrimSpace(data.Currency))
	if !knownCurrency(data.Currency) {
		data.Currency = DefaultCurrency
	}

	data.Description = strings.TrimSpace(data.Description)
	if data.Description == "" {
		data.Description = DefaultDescription
	}

	if data.Date != nil {
		data.Date = e.Date(*data.Date)
	}

	items := make([]ReceiptItem, 0, len(data.Items))
	for _, item := range data.Items {
		item.Name = strings.TrimSpace(spaces.ReplaceAllString(item.Name, " "))
		if item.Name == "" || item.TotalPrice <= 0 || item.TotalPrice > e.limits.MaxItemPrice {
			continue
		}
		if utf8.RuneCountInString(item.Name) > maxItemNameRunes {
			item.Name = string([]rune(item.Name)[:maxItemNameRunes])
		}
		item.TotalPrice = round2(item.TotalPrice)
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if item.UnitPrice != nil && (item.Quantity == 1 || !e.corroborates(item.Quantity, *item.UnitPrice, item.TotalPrice)) {
			item.Quantity = 1
			item.UnitPrice = nil
		}
		if item.UnitPrice == nil && item.Quantity > 1 {
			unit := round2(item.TotalPrice / float64(item.Quantity))
			item.UnitPrice = &unit
		}
		if item.Category != nil && !knownItemCategory(*item.Category) {
			item.Category = DetectItemCategory(item.Name)
		}
		if item.Brand != nil && strings.TrimSpace(*item.Brand) == "" {
			item.Brand = nil
		}
		items = append(items, item)
	}
	data.Items = nil
	if merged := e.mergeDuplicates(items); len(merged) > 0 {
		data.Items = merged
	}

	data.Confidence = clampConfidence(float64(data.Confidence))
}

func knownCategory(label string) bool {
	if label == DefaultCategory {
		return true
	}
	return hasLabel(categoryRules, label)
}

func knownCurrency(code string) bool {
	return hasLabel(currencyRules, code)
}

func knownItemCategory(label string) bool {
	return hasLabel(itemCategoryRules, label)
}

func hasLabel(table []rule, label string) bool {
	for _, r := range table {
		if r.label == label {
			return true
		}
	}
	return false
}
