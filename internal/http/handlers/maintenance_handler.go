// README: Maintenance handlers for records and their status flow.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleetops/internal/auth"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/maintenance"
	"fleetops/internal/types"
)

type MaintenanceHandler struct {
	maint *maintenance.Service
	fleet *fleet.Service
}

func NewMaintenanceHandler(maintSvc *maintenance.Service, fleetSvc *fleet.Service) *MaintenanceHandler {
	return &MaintenanceHandler{maint: maintSvc, fleet: fleetSvc}
}

type createMaintenanceReq struct {
	TruckID          string     `json:"truck_id"`
	Description      string     `json:"description"`
	ScheduledMileage *float64   `json:"scheduled_mileage"`
	ScheduledDate    *time.Time `json:"scheduled_date"`
	Priority         string     `json:"priority"`
}

func (h *MaintenanceHandler) Create(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	if !auth.CanManageFleet(role) {
		writeError(c, http.StatusForbidden, "role may not manage maintenance")
		return
	}
	var req createMaintenanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	truck, err := h.fleet.GetTruck(c.Request.Context(), types.ID(req.TruckID))
	if err != nil {
		writeMaintenanceError(c, err)
		return
	}
	record, err := h.maint.Create(c.Request.Context(), maintenance.CreateCommand{
		TruckID:          truck.ID,
		Description:      req.Description,
		ScheduledMileage: req.ScheduledMileage,
		ScheduledDate:    req.ScheduledDate,
		Priority:         maintenance.Priority(req.Priority),
	}, truck)
	if err != nil {
		writeMaintenanceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, record)
}

func (h *MaintenanceHandler) Get(c *gin.Context) {
	record, err := h.maint.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeMaintenanceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, record)
}

func (h *MaintenanceHandler) ListByTruck(c *gin.Context) {
	records, err := h.maint.ListByTruck(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeMaintenanceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"records": records})
}

func (h *MaintenanceHandler) Start(c *gin.Context) {
	if err := h.maint.Start(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeMaintenanceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": maintenance.StatusInProgress})
}

func (h *MaintenanceHandler) Complete(c *gin.Context) {
	ctx := c.Request.Context()
	record, err := h.maint.Get(ctx, types.ID(c.Param("id")))
	if err != nil {
		writeMaintenanceError(c, err)
		return
	}
	truck, err := h.fleet.GetTruck(ctx, record.TruckID)
	if err != nil {
		writeMaintenanceError(c, err)
		return
	}
	if err := h.maint.Complete(ctx, record.ID, truck); err != nil {
		writeMaintenanceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": maintenance.StatusCompleted})
}

func (h *MaintenanceHandler) Cancel(c *gin.Context) {
	if err := h.maint.Cancel(c.Request.Context(), types.ID(c.Param("id"))); err != nil {
		writeMaintenanceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": maintenance.StatusCancelled})
}
