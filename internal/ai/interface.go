package ai

import (
	"context"
)

// ExpenseParser defines the contract for turning free-text expense intake
// (a driver's message, a receipt description) into a structured draft.
// This interface allows for swapping different AI providers in the future.
type ExpenseParser interface {
	// ParseExpense analyzes the user's natural language input and extracts a
	// structured expense draft. contextMap carries dynamic information like
	// "current_time" and "trip_code".
	ParseExpense(ctx context.Context, userMessage string, currentContext map[string]string) (*ExpenseDraft, error)
}
