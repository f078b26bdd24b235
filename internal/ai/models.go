package ai

// ExpenseDraft captures the structured output from the AI model. It is a
// suggestion for the client to confirm, never written to storage directly.
type ExpenseDraft struct {
	// Type is one of the expense categories: FUEL, TOLL, MAINTENANCE,
	// INSURANCE, PARKING, FOOD, OTHER.
	Type string `json:"type"`

	// Amount is the monetary value extracted from the input.
	Amount float64 `json:"amount"`

	// Currency is the ISO 4217 code when the input names one, else "".
	Currency string `json:"currency,omitempty"`

	// Date is the absolute date (YYYY-MM-DD) resolved from relative wording
	// ("yesterday", "last Friday") against the current context.
	Date string `json:"date,omitempty"`

	// Description is a short cleaned-up summary of the expense.
	Description string `json:"description"`

	// Confidence is the model's self-reported certainty in [0, 1]; drafts
	// below the caller's threshold should be sent back for confirmation.
	Confidence float64 `json:"confidence"`
}
