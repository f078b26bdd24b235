// README: Settings handlers (diesel price singleton).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetops/internal/auth"
	"fleetops/internal/modules/finance"
)

type SettingsHandler struct {
	settings *finance.SettingsStore
}

func NewSettingsHandler(store *finance.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: store}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	if err != nil {
		writeFinanceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"diesel_price": s.DieselPrice,
		"updated_at":   s.UpdatedAt,
	})
}

type updateSettingsReq struct {
	DieselPrice float64 `json:"diesel_price"`
}

func (h *SettingsHandler) Update(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	if !auth.CanUpdateSettings(role) {
		writeError(c, http.StatusForbidden, "role may not update settings")
		return
	}
	var req updateSettingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	s, err := h.settings.Update(c.Request.Context(), req.DieselPrice)
	if err != nil {
		writeFinanceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{
		"diesel_price": s.DieselPrice,
		"updated_at":   s.UpdatedAt,
	})
}
