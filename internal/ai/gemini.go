package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiParser implements ExpenseParser using Google's Gemini models.
type GeminiParser struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiParser initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiParser(ctx context.Context, apiKey string) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Gemini 2.0 Flash for low latency and cost efficiency.
	model := client.GenerativeModel("gemini-2.0-flash")

	// Force JSON response for structured parsing.
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	return &GeminiParser{
		client: client,
		model:  model,
	}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiParser) Close() {
	p.client.Close()
}

// ParseExpense analyzes free-text intake and extracts an expense draft.
func (p *GeminiParser) ParseExpense(ctx context.Context, userMessage string, currentContext map[string]string) (*ExpenseDraft, error) {
	systemPrompt := buildSystemPrompt(currentContext)
	fullPrompt := fmt.Sprintf("%s\n\nUser Message: %s", systemPrompt, userMessage)

	resp, err := p.model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from Gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}

	// Strip markdown fences in case the model ignores the JSON response mode.
	cleanJSON := cleanJSONString(responseText.String())

	var draft ExpenseDraft
	if err := json.Unmarshal([]byte(cleanJSON), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, cleanJSON)
	}
	return &draft, nil
}

// buildSystemPrompt constructs the instructions for the AI.
func buildSystemPrompt(ctxMap map[string]string) string {
	currentTime := ctxMap["current_time"]
	tripCode := ctxMap["trip_code"]

	if currentTime == "" {
		currentTime = "UNKNOWN_TIME"
	}
	if tripCode == "" {
		tripCode = "NONE"
	}

	return fmt.Sprintf(`Role: You are the expense intake assistant for a trucking fleet operations system.
Context:
- Current System Time: %s
- Active Trip Code: %s

TASK:
Extract exactly one expense from the user's message.

RULES:
1. "type" MUST be one of: FUEL, TOLL, MAINTENANCE, INSURANCE, PARKING, FOOD, OTHER.
   - Diesel, petrol, gas station receipts -> FUEL.
   - Motorway, bridge, highway fees -> TOLL.
   - Repairs, tires, oil changes, washes -> MAINTENANCE.
   - Meals, snacks, coffee -> FOOD.
   - Anything that fits no category -> OTHER.
2. "amount" is the numeric value only, no currency symbols. If several numbers
   appear, pick the one labelled as total or the largest plausible price.
3. "date" resolves relative wording ("yesterday", "last Friday") against the
   Current System Time and is formatted YYYY-MM-DD. Leave empty if no date is
   mentioned; the caller defaults to today.
4. "currency" is the ISO 4217 code only when the message names one.
5. "confidence" reflects how certain the extraction is, between 0 and 1.
   Use below 0.5 when the amount or the type is a guess.
6. If the message describes no expense at all, set confidence to 0.

Output JSON Schema:
{
  "type": "FUEL" | "TOLL" | "MAINTENANCE" | "INSURANCE" | "PARKING" | "FOOD" | "OTHER",
  "amount": number,
  "currency": "string (optional)",
  "date": "YYYY-MM-DD (optional)",
  "description": "string",
  "confidence": number
}
`, currentTime, tripCode)
}

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
