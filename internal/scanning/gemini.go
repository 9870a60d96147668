package scanning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zombor/budget-receipts/internal/extract"
)

var errNoGeminiReply = errors.New("no response from gemini")

// Gemini implements the Scanner interface using Google Gemini
type Gemini struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	extractor *extract.Extractor
	timeout   time.Duration
}

// NewGemini creates a new Gemini Scanner instance
func NewGemini(apiKey string, modelName string, extractor *extract.Extractor) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)

	return &Gemini{
		client:    client,
		model:     model,
		extractor: extractor,
		timeout:   30 * time.Second,
	}, nil
}

// ScanReceipt analyzes a receipt and extracts its data
func (g *Gemini) ScanReceipt(ctx context.Context, imageData []byte, contentType string, progress ProgressFunc) (*extract.ReceiptData, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	report(progress, 0, statusPreparing)
	finalImageData, _, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects just the format suffix, and everything is PNG by now
	parts := []genai.Part{
		genai.ImageData("png", finalImageData),
		genai.Text(receiptScanPrompt),
	}

	report(progress, 30, statusAnalyzing)
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	reply, err := replyText(resp)
	if err != nil {
		return nil, err
	}

	report(progress, 90, statusExtracting)
	data, err := parseReceiptJSON(reply, g.extractor)
	if err != nil {
		return nil, fmt.Errorf("parsing receipt data: %w", err)
	}

	report(progress, 100, statusDone)
	return data, nil
}

// replyText joins the text parts of the first candidate. Image or other
// non-text parts are skipped.
func replyText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errNoGeminiReply
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("%w (finish reason: %s)", errNoGeminiReply, candidate.FinishReason)
	}

	var reply strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			reply.WriteString(string(text))
		}
	}
	if strings.TrimSpace(reply.String()) == "" {
		return "", errNoGeminiReply
	}
	return reply.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
