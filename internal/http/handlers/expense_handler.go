// README: Expense handlers for create/update/delete/list and AI intake.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleetops/internal/ai"
	"fleetops/internal/modules/expense"
	"fleetops/internal/types"
)

type ExpenseHandler struct {
	expenses *expense.Service
	parser   ai.ExpenseParser // nil when no AI key is configured
}

func NewExpenseHandler(svc *expense.Service, parser ai.ExpenseParser) *ExpenseHandler {
	return &ExpenseHandler{expenses: svc, parser: parser}
}

type expenseResponse struct {
	ID          string    `json:"id"`
	TripID      *string   `json:"trip_id,omitempty"`
	TruckID     *string   `json:"truck_id,omitempty"`
	ClientID    *string   `json:"client_id,omitempty"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

func toExpenseResponse(e *expense.Expense) expenseResponse {
	return expenseResponse{
		ID:          string(e.ID),
		TripID:      idString(e.TripID),
		TruckID:     idString(e.TruckID),
		ClientID:    idString(e.ClientID),
		Type:        string(e.Type),
		Amount:      e.Amount,
		Description: e.Description,
		Date:        e.Date,
	}
}

type expenseReq struct {
	TripID      *string   `json:"trip_id"`
	TruckID     *string   `json:"truck_id"`
	ClientID    *string   `json:"client_id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

func (h *ExpenseHandler) Create(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	var req expenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	e, err := h.expenses.Create(c.Request.Context(), role, expense.CreateCommand{
		TripID:      toIDPtr(req.TripID),
		TruckID:     toIDPtr(req.TruckID),
		ClientID:    toIDPtr(req.ClientID),
		Type:        expense.Type(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		writeExpenseError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toExpenseResponse(e))
}

func (h *ExpenseHandler) Get(c *gin.Context) {
	e, err := h.expenses.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeExpenseError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toExpenseResponse(e))
}

func (h *ExpenseHandler) List(c *gin.Context) {
	expenses, err := h.expenses.List(c.Request.Context(), expense.Filter{
		TripID:  types.ID(c.Query("trip_id")),
		TruckID: types.ID(c.Query("truck_id")),
		Type:    expense.Type(c.Query("type")),
	})
	if err != nil {
		writeExpenseError(c, err)
		return
	}
	out := make([]expenseResponse, 0, len(expenses))
	for i := range expenses {
		out = append(out, toExpenseResponse(&expenses[i]))
	}
	writeJSON(c, http.StatusOK, map[string]any{"expenses": out})
}

func (h *ExpenseHandler) Update(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	var req expenseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	e, err := h.expenses.Update(c.Request.Context(), role, expense.UpdateCommand{
		ID:          types.ID(c.Param("id")),
		TripID:      toIDPtr(req.TripID),
		TruckID:     toIDPtr(req.TruckID),
		ClientID:    toIDPtr(req.ClientID),
		Type:        expense.Type(req.Type),
		Amount:      req.Amount,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		writeExpenseError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toExpenseResponse(e))
}

func (h *ExpenseHandler) Delete(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	if err := h.expenses.Delete(c.Request.Context(), role, types.ID(c.Param("id"))); err != nil {
		writeExpenseError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type parseExpenseReq struct {
	Message  string `json:"message"`
	TripCode string `json:"trip_code"`
}

// Parse turns free-text intake into a structured expense draft for the client
// to confirm. Nothing is stored here.
func (h *ExpenseHandler) Parse(c *gin.Context) {
	if h.parser == nil {
		writeError(c, http.StatusServiceUnavailable, "expense parsing is not configured")
		return
	}
	var req parseExpenseReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	draft, err := h.parser.ParseExpense(c.Request.Context(), req.Message, map[string]string{
		"current_time": time.Now().UTC().Format(time.RFC3339),
		"trip_code":    req.TripCode,
	})
	if err != nil {
		writeError(c, http.StatusBadGateway, "parse failed")
		return
	}
	writeJSON(c, http.StatusOK, draft)
}
