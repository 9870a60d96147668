package extract

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type dateOrder int

const (
	dayMonthYear dateOrder = iota
	yearMonthDay
	dayMonthShortYear
)

// descriptionScanLines is how many leading lines may hold the merchant name
const descriptionScanLines = 10

// Amount returns the most plausible total on the receipt, or 0 if none is found
func (e *Extractor) Amount(text string) float64 {
	folded := fold(text)

	for _, pattern := range amountPatterns {
		for _, m := range pattern.FindAllStringSubmatch(folded, -1) {
			v := ParseNumber(m[1])
			if v > 0 && v < e.limits.MaxAmount {
				return v
			}
		}
	}

	// No labelled total: take the largest price-looking value that is not
	// part of a date ("15.08.2024" would otherwise read as 15.08)
	var best float64
	for _, s := range anyPrice.FindAllString(dateLike.ReplaceAllString(folded, " "), -1) {
		v := ParseNumber(s)
		if v > best && v < e.limits.FallbackMaxAmount {
			best = v
		}
	}
	return best
}

// ExtractCategory returns the spending category of the receipt
func ExtractCategory(text string) string {
	if label, ok := firstMatch(categoryRules, fold(text)); ok {
		return label
	}
	return DefaultCategory
}

// ExtractCurrency returns the ISO currency code of the receipt
func ExtractCurrency(text string) string {
	if label, ok := firstMatch(currencyRules, fold(text)); ok {
		return label
	}
	return DefaultCurrency
}

// Date returns the first valid receipt date formatted as YYYY-MM-DD
func (e *Extractor) Date(text string) *string {
	for _, dp := range datePatterns {
		for _, m := range dp.pattern.FindAllStringSubmatch(text, -1) {
			a, _ := strconv.Atoi(m[1])
			b, _ := strconv.Atoi(m[2])
			c, _ := strconv.Atoi(m[3])

			var day, month, year int
			switch dp.order {
			case dayMonthYear:
				day, month, year = a, b, c
			case yearMonthDay:
				year, month, day = a, b, c
			case dayMonthShortYear:
				day, month, year = a, b, 2000+c
			}

			if day < 1 || day > 31 || month < 1 || month > 12 {
				continue
			}
			if year < e.limits.MinYear || year > e.limits.MaxYear {
				continue
			}
			// rejects days past the end of the month, e.g. 31.02
			t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			if t.Day() != day {
				continue
			}
			date := t.Format("2006-01-02")
			return &date
		}
	}
	return nil
}

// ExtractDescription returns the merchant name printed on the receipt
func ExtractDescription(text string) string {
	if label, ok := firstMatch(storeRules, fold(text)); ok {
		return label
	}

	if m := legalEntity.FindStringSubmatch(text); m != nil {
		name := strings.TrimSpace(m[1])
		if strings.ContainsFunc(name, unicode.IsLetter) {
			return titleCase(name) + " " + strings.TrimSpace(m[2])
		}
	}

	lines := strings.Split(text, "\n")
	if len(lines) > descriptionScanLines {
		lines = lines[:descriptionScanLines]
	}
	for _, line := range lines {
		line = strings.TrimSpace(spaces.ReplaceAllString(line, " "))
		if isMerchantLine(line) {
			return line
		}
	}

	return DefaultDescription
}

func isMerchantLine(line string) bool {
	n := utf8.RuneCountInString(line)
	if n < 4 || n > 50 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(line)
	if !unicode.IsUpper(first) {
		return false
	}
	return !notMerchantLine.MatchString(fold(line))
}

func titleCase(s string) string {
	return cases.Title(language.Turkish).String(fold(s))
}
