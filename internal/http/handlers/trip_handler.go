// README: Trip handlers for schedule/start/finish/edit/cancel/delete and listing.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleetops/internal/auth"
	"fleetops/internal/modules/trip"
	"fleetops/internal/types"
)

type TripHandler struct {
	trips *trip.Service
}

func NewTripHandler(svc *trip.Service) *TripHandler {
	return &TripHandler{trips: svc}
}

type tripResponse struct {
	ID          string     `json:"id"`
	TruckID     string     `json:"truck_id"`
	DriverID    string     `json:"driver_id"`
	TrailerID   *string    `json:"trailer_id,omitempty"`
	ClientID    *string    `json:"client_id,omitempty"`
	TripCode    *string    `json:"trip_code,omitempty"`
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Distance    float64    `json:"distance_km"`
	Revenue     float64    `json:"revenue"`

	FuelCost      float64 `json:"fuel_cost"`
	TollCost      float64 `json:"toll_cost"`
	OtherCosts    float64 `json:"other_costs"`
	TotalCost     float64 `json:"total_cost"`
	Profit        float64 `json:"profit"`
	ProfitMargin  float64 `json:"profit_margin"`
	FuelEstimated bool    `json:"fuel_estimated"`

	Status string `json:"status"`
}

func toTripResponse(t *trip.Trip) tripResponse {
	return tripResponse{
		ID:            string(t.ID),
		TruckID:       string(t.TruckID),
		DriverID:      string(t.DriverID),
		TrailerID:     idString(t.TrailerID),
		ClientID:      idString(t.ClientID),
		TripCode:      t.TripCode,
		Origin:        t.Origin,
		Destination:   t.Destination,
		StartDate:     t.StartDate,
		EndDate:       t.EndDate,
		Distance:      t.Distance,
		Revenue:       t.Revenue,
		FuelCost:      t.FuelCost,
		TollCost:      t.TollCost,
		OtherCosts:    t.OtherCosts,
		TotalCost:     t.TotalCost,
		Profit:        t.Profit,
		ProfitMargin:  t.ProfitMargin,
		FuelEstimated: t.FuelEstimated,
		Status:        string(t.Status),
	}
}

func idString(id *types.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

type scheduleTripReq struct {
	TruckID     string    `json:"truck_id"`
	DriverID    string    `json:"driver_id"`
	TrailerID   *string   `json:"trailer_id"`
	ClientID    *string   `json:"client_id"`
	TripCode    *string   `json:"trip_code"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	StartDate   time.Time `json:"start_date"`
	Revenue     float64   `json:"revenue"`
}

func (h *TripHandler) Schedule(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	if !auth.CanScheduleTrip(role) {
		writeError(c, http.StatusForbidden, "role may not schedule trips")
		return
	}
	var req scheduleTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.trips.Schedule(c.Request.Context(), trip.ScheduleCommand{
		TruckID:     types.ID(req.TruckID),
		DriverID:    types.ID(req.DriverID),
		TrailerID:   toIDPtr(req.TrailerID),
		ClientID:    toIDPtr(req.ClientID),
		TripCode:    req.TripCode,
		Origin:      req.Origin,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		Revenue:     req.Revenue,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toTripResponse(t))
}

func (h *TripHandler) Get(c *gin.Context) {
	t, err := h.trips.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripResponse(t))
}

func (h *TripHandler) List(c *gin.Context) {
	trips, err := h.trips.List(c.Request.Context(), trip.Filter{
		Status:   trip.Status(c.Query("status")),
		TruckID:  types.ID(c.Query("truck_id")),
		DriverID: types.ID(c.Query("driver_id")),
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	out := make([]tripResponse, 0, len(trips))
	for i := range trips {
		out = append(out, toTripResponse(&trips[i]))
	}
	writeJSON(c, http.StatusOK, map[string]any{"trips": out})
}

func (h *TripHandler) Start(c *gin.Context) {
	t, err := h.trips.Start(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripResponse(t))
}

type finishTripReq struct {
	EndMileage *float64   `json:"end_mileage"`
	EndDate    *time.Time `json:"end_date"`
}

func (h *TripHandler) Finish(c *gin.Context) {
	var req finishTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.trips.Finish(c.Request.Context(), trip.FinishCommand{
		TripID:     types.ID(c.Param("id")),
		EndMileage: req.EndMileage,
		EndDate:    req.EndDate,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripResponse(t))
}

type editTripReq struct {
	TruckID     *string    `json:"truck_id"`
	DriverID    *string    `json:"driver_id"`
	TrailerID   *string    `json:"trailer_id"`
	ClientID    *string    `json:"client_id"`
	TripCode    *string    `json:"trip_code"`
	Origin      *string    `json:"origin"`
	Destination *string    `json:"destination"`
	StartDate   *time.Time `json:"start_date"`
	Revenue     *float64   `json:"revenue"`
}

func (h *TripHandler) Edit(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	if !auth.CanEditTrip(role) {
		writeError(c, http.StatusForbidden, "role may not edit trips")
		return
	}
	var req editTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.trips.Edit(c.Request.Context(), trip.EditCommand{
		TripID:      types.ID(c.Param("id")),
		TruckID:     toIDPtr(req.TruckID),
		DriverID:    toIDPtr(req.DriverID),
		TrailerID:   toIDPtr(req.TrailerID),
		ClientID:    toIDPtr(req.ClientID),
		TripCode:    req.TripCode,
		Origin:      req.Origin,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		Revenue:     req.Revenue,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripResponse(t))
}

func (h *TripHandler) Cancel(c *gin.Context) {
	t, err := h.trips.Cancel(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toTripResponse(t))
}

func (h *TripHandler) Delete(c *gin.Context) {
	role, ok := callerRole(c)
	if !ok {
		return
	}
	id := types.ID(c.Param("id"))
	t, err := h.trips.Get(c.Request.Context(), id)
	if err != nil {
		writeTripError(c, err)
		return
	}
	if !auth.CanDeleteTrip(role, t.Status == trip.StatusPlanned) {
		writeError(c, http.StatusForbidden, "role may not delete this trip")
		return
	}
	if err := h.trips.Delete(c.Request.Context(), id); err != nil {
		writeTripError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toIDPtr(s *string) *types.ID {
	if s == nil || *s == "" {
		return nil
	}
	id := types.ID(*s)
	return &id
}
