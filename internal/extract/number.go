package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonNumeric  = regexp.MustCompile(`[^\d.,]`)
	twoDecimals = regexp.MustCompile(`[.,]\d{2}$`)
)

// ParseNumber converts a receipt-formatted number to a float.
//
// Separators are disambiguated as follows:
//   - both "." and "," present: the last one is the decimal separator,
//     the other is grouping ("1.599,90" and "1,599.90" are both 1599.90)
//   - only ",": decimal if followed by exactly two trailing digits, else grouping
//   - only ".": decimal if followed by exactly two trailing digits, else grouping
//
// Unparseable input yields 0.
func ParseNumber(s string) float64 {
	d, ok := parseDecimal(s)
	if !ok {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = nonNumeric.ReplaceAllString(s, "")
	s = strings.Trim(s, ".,")
	if s == "" {
		return decimal.Zero, false
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		if twoDecimals.MatchString(s) && strings.Count(s, ",") == 1 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasDot:
		if !(twoDecimals.MatchString(s) && strings.Count(s, ".") == 1) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// round2 rounds a money value to two decimals
func round2(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}
