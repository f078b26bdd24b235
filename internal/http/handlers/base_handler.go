// README: Base handler utilities (JSON helpers, error mapping, role extraction).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetops/internal/auth"
	"fleetops/internal/http/middleware"
	"fleetops/internal/modules/expense"
	"fleetops/internal/modules/finance"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/maintenance"
	"fleetops/internal/modules/trip"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// callerRole resolves the role claim into the closed role set; unknown or
// missing roles are rejected before any service call runs.
func callerRole(c *gin.Context) (auth.Role, bool) {
	role, ok := auth.ParseRole(middleware.CallerRole(c))
	if !ok {
		writeError(c, http.StatusForbidden, "missing or unknown role")
		return "", false
	}
	return role, true
}

func writeTripError(c *gin.Context, err error) {
	var conflict *trip.ConflictError
	if errors.As(err, &conflict) {
		writeError(c, http.StatusConflict, conflict.Error())
		return
	}
	switch err {
	case trip.ErrBadRequest, trip.ErrInvalidMileage, trip.ErrRetroactiveSchedule:
		writeError(c, http.StatusBadRequest, err.Error())
	case trip.ErrNotFound, fleet.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case trip.ErrInvalidState, trip.ErrNotEditable, trip.ErrNotDeletable,
		trip.ErrConflict, trip.ErrScheduleBusy:
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeExpenseError(c *gin.Context, err error) {
	switch err {
	case expense.ErrBadRequest:
		writeError(c, http.StatusBadRequest, err.Error())
	case expense.ErrNotFound, trip.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case expense.ErrPermission:
		writeError(c, http.StatusForbidden, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeFleetError(c *gin.Context, err error) {
	switch err {
	case fleet.ErrBadRequest, fleet.ErrInvalidMileage:
		writeError(c, http.StatusBadRequest, err.Error())
	case fleet.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeMaintenanceError(c *gin.Context, err error) {
	switch err {
	case maintenance.ErrBadRequest:
		writeError(c, http.StatusBadRequest, err.Error())
	case maintenance.ErrNotFound, fleet.ErrNotFound:
		writeError(c, http.StatusNotFound, err.Error())
	case maintenance.ErrInvalidState:
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeFinanceError(c *gin.Context, err error) {
	switch err {
	case finance.ErrBadRequest:
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
