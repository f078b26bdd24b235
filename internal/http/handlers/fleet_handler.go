// README: Fleet handlers for trucks and drivers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetops/internal/auth"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/types"
)

type FleetHandler struct {
	fleet *fleet.Service
}

func NewFleetHandler(svc *fleet.Service) *FleetHandler {
	return &FleetHandler{fleet: svc}
}

type createTruckReq struct {
	Plate          string  `json:"plate"`
	Make           string  `json:"make"`
	Model          string  `json:"model"`
	AvgConsumption float64 `json:"avg_consumption"`
	CurrentMileage float64 `json:"current_mileage"`
}

func (h *FleetHandler) CreateTruck(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	if !auth.CanManageFleet(role) {
		writeError(c, http.StatusForbidden, "role may not manage the fleet")
		return
	}
	var req createTruckReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	truck, err := h.fleet.CreateTruck(c.Request.Context(), fleet.CreateTruckCommand{
		Plate:          req.Plate,
		Make:           req.Make,
		Model:          req.Model,
		AvgConsumption: req.AvgConsumption,
		CurrentMileage: req.CurrentMileage,
	})
	if err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, truck)
}

func (h *FleetHandler) GetTruck(c *gin.Context) {
	truck, err := h.fleet.GetTruck(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, truck)
}

func (h *FleetHandler) ListTrucks(c *gin.Context) {
	trucks, err := h.fleet.ListTrucks(c.Request.Context())
	if err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"trucks": trucks})
}

type updateMileageReq struct {
	Mileage float64 `json:"mileage"`
}

// UpdateMileage corrects a truck's odometer reading; the maintenance overdue
// check runs on the new value.
func (h *FleetHandler) UpdateMileage(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	if !auth.CanManageFleet(role) {
		writeError(c, http.StatusForbidden, "role may not manage the fleet")
		return
	}
	var req updateMileageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	truck, err := h.fleet.UpdateMileage(c.Request.Context(), types.ID(c.Param("id")), req.Mileage)
	if err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, truck)
}

type createDriverReq struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	LicenseNo string `json:"license_no"`
}

func (h *FleetHandler) CreateDriver(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	if !auth.CanManageFleet(role) {
		writeError(c, http.StatusForbidden, "role may not manage the fleet")
		return
	}
	var req createDriverReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	driver, err := h.fleet.CreateDriver(c.Request.Context(), fleet.CreateDriverCommand{
		Name:      req.Name,
		Phone:     req.Phone,
		LicenseNo: req.LicenseNo,
	})
	if err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, driver)
}

func (h *FleetHandler) GetDriver(c *gin.Context) {
	driver, err := h.fleet.GetDriver(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, driver)
}

func (h *FleetHandler) ListDrivers(c *gin.Context) {
	drivers, err := h.fleet.ListDrivers(c.Request.Context())
	if err != nil {
		writeFleetError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"drivers": drivers})
}
