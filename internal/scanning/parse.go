package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zombor/budget-receipts/internal/extract"
)

// parseReceiptJSON parses the JSON response from an LLM provider and
// holds it to the same bounds as the local extractors
func parseReceiptJSON(text string, extractor *extract.Extractor) (*extract.ReceiptData, error) {
	text = responseText(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var data extract.ReceiptData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if extractor == nil {
		extractor = extract.DefaultExtractor
	}
	extractor.Sanitize(&data)
	data.Confidence = extract.Confidence(extract.Score(&data), -1)

	return &data, nil
}

// responseText strips whitespace and markdown fences from a model reply
func responseText(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
