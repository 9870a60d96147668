package extract

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// maxItemNameRunes caps the length of a line item name
const maxItemNameRunes = 100

// Items parses purchased products out of multi-line receipt text.
// Items whose names match case-insensitively are merged.
func (e *Extractor) Items(text string) []ReceiptItem {
	items := make([]ReceiptItem, 0)
	for _, line := range strings.Split(text, "\n") {
		if item, ok := e.parseItemLine(line); ok {
			items = append(items, item)
		}
	}
	return e.mergeDuplicates(items)
}

func (e *Extractor) parseItemLine(line string) (ReceiptItem, bool) {
	line = strings.TrimSpace(line)
	if len([]rune(line)) < 3 || isNonProductLine(fold(line)) {
		return ReceiptItem{}, false
	}

	var loc []int
	for _, pattern := range trailingPrice {
		if loc = pattern.FindStringSubmatchIndex(line); loc != nil {
			break
		}
	}
	if loc == nil {
		return ReceiptItem{}, false
	}

	// "-5,00" is a refund or discount line, not a purchase
	if negativeSign.MatchString(line[:loc[2]]) {
		return ReceiptItem{}, false
	}

	price := ParseNumber(line[loc[2]:loc[3]])
	if price <= 0 || price > e.limits.MaxItemPrice {
		return ReceiptItem{}, false
	}

	quantity, unitPrice, rest := e.detectQuantity(line[:loc[0]], price)

	name, ok := cleanItemName(rest)
	if !ok {
		return ReceiptItem{}, false
	}

	folded := fold(name)
	return ReceiptItem{
		Name:       name,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: price,
		Category:   DetectItemCategory(folded),
		Brand:      DetectBrand(folded),
	}, true
}

func isNonProductLine(folded string) bool {
	for _, pattern := range nonProductLine {
		if pattern.MatchString(folded) {
			return true
		}
	}
	return false
}

// detectQuantity looks for an explicit "N x P" or "adet N" pattern in the
// text preceding the line price. The quantity is only trusted when N × P is
// within tolerance of the printed total, so weights and product codes in the
// name are not mistaken for quantities. On success the pattern is removed
// from the returned name text.
func (e *Extractor) detectQuantity(text string, total float64) (int, *float64, string) {
	if m := multiplyQuantity.FindStringSubmatchIndex(text); m != nil {
		q, _ := strconv.Atoi(text[m[2]:m[3]])
		unit := ParseNumber(text[m[4]:m[5]])
		if q > 0 && e.corroborates(q, unit, total) {
			return q, &unit, text[:m[0]] + " " + text[m[1]:]
		}
	}

	if m := countQuantity.FindStringSubmatchIndex(text); m != nil {
		var q int
		if m[2] >= 0 {
			q, _ = strconv.Atoi(text[m[2]:m[3]])
		} else {
			q, _ = strconv.Atoi(text[m[4]:m[5]])
		}
		if q > 0 {
			var unit float64
			if m[6] >= 0 {
				unit = ParseNumber(text[m[6]:m[7]])
				if !e.corroborates(q, unit, total) {
					return 1, nil, text
				}
			} else {
				unit, _ = decimal.NewFromFloat(total).
					Div(decimal.NewFromInt(int64(q))).
					Round(2).
					Float64()
			}
			return q, &unit, text[:m[0]] + " " + text[m[1]:]
		}
	}

	return 1, nil, text
}

func (e *Extractor) corroborates(quantity int, unit, total float64) bool {
	if unit <= 0 || total <= 0 {
		return false
	}
	implied := decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(quantity)))
	diff := implied.Sub(decimal.NewFromFloat(total)).Abs()
	allowed := decimal.NewFromFloat(total).Mul(decimal.NewFromFloat(e.limits.QuantityTolerance))
	return diff.LessThanOrEqual(allowed)
}

// cleanItemName strips OCR noise from a candidate product name. It reports
// false when nothing product-like remains.
func cleanItemName(s string) (string, bool) {
	s = kdvRate.ReplaceAllString(s, " ")
	s = specialChars.ReplaceAllString(s, " ")
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	s = strings.Trim(s, ".,-/ ")

	if !strings.ContainsFunc(s, unicode.IsLetter) {
		return "", false
	}
	if totalLikeName.MatchString(fold(s)) {
		return "", false
	}

	// "1 Ekmek" -> "Ekmek", but "A101 Su" is kept
	s = leadingNumber.ReplaceAllString(s, "$1")

	if r := []rune(s); len(r) > maxItemNameRunes {
		s = strings.TrimSpace(string(r[:maxItemNameRunes]))
	}
	return s, true
}

// DetectItemCategory classifies a product name, or returns nil
func DetectItemCategory(name string) *string {
	if label, ok := firstMatch(itemCategoryRules, fold(name)); ok {
		return &label
	}
	return nil
}

// DetectBrand returns the brand named in a product name, or nil
func DetectBrand(name string) *string {
	if label, ok := firstMatch(brandRules, fold(name)); ok {
		return &label
	}
	return nil
}

// mergeDuplicates folds items with the same case-insensitive name into the
// first occurrence, summing quantity and total. A merge that would push the
// total past MaxItemPrice leaves the item as a separate entry.
func (e *Extractor) mergeDuplicates(items []ReceiptItem) []ReceiptItem {
	index := make(map[string]int, len(items))
	out := make([]ReceiptItem, 0, len(items))

	for _, item := range items {
		key := fold(item.Name)
		if i, ok := index[key]; ok {
			sum, _ := decimal.NewFromFloat(out[i].TotalPrice).
				Add(decimal.NewFromFloat(item.TotalPrice)).
				Round(2).
				Float64()
			if sum <= e.limits.MaxItemPrice {
				out[i].Quantity += item.Quantity
				out[i].TotalPrice = sum
				continue
			}
		}
		index[key] = len(out)
		out = append(out, item)
	}
	return out
}
