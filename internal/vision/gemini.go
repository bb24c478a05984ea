package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const scanTimeout = 30 * time.Second

const receiptPrompt = `Analyze this receipt image and return ONLY a JSON object with these fields:
{
  "merchant": "store or vendor name",
  "date": "transaction date in YYYY-MM-DD format",
  "total": total amount as a number,
  "tax": tax amount as a number (0 if not shown),
  "currency": "three-letter ISO currency code",
  "payment_method": "cash, card, or other (empty if not shown)",
  "line_items": [{"description": "...", "quantity": 1, "unit_price": 0.0, "total": 0.0}]
}
Do not include any text outside the JSON object.`

// Gemini implements Scanner using the Gemini vision model.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vision api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

func (g *Gemini) Scan(ctx context.Context, image []byte, contentType string) (*ReceiptData, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	parts := []genai.Part{
		genai.ImageData(formatSuffix(contentType), image),
		genai.Text(receiptPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from vision model")
	}

	var text strings.Builder

	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	data, err := parseReceiptJSON(text.String())
	if err != nil {
		return nil, fmt.Errorf("parsing scan result: %w", err)
	}

	return data, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// formatSuffix maps a MIME type to the bare format name the model API
// expects ("image/png" -> "png").
func formatSuffix(contentType string) string {
	if i := strings.Index(contentType, "/"); i >= 0 {
		return contentType[i+1:]
	}

	return "jpeg"
}
