// README: HTTP server wiring and route registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fleetops/internal/ai"
	"fleetops/internal/http/handlers"
	"fleetops/internal/http/middleware"
	"fleetops/internal/infra"
	"fleetops/internal/modules/expense"
	"fleetops/internal/modules/finance"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/maintenance"
	"fleetops/internal/modules/trip"
)

// ServerDeps bundles everything the HTTP layer serves.
type ServerDeps struct {
	Trips    *trip.Service
	Expenses *expense.Service
	Fleet    *fleet.Service
	Maint    *maintenance.Service
	Settings *finance.SettingsStore
	Parser   ai.ExpenseParser // optional
	Verifier infra.TokenVerifier
	Log      *logrus.Logger
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	return &Server{deps: deps}
}

// Routes builds the gin engine with all middleware and endpoints registered.
func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(s.deps.Log))
	r.Use(middleware.Logging(s.deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")
	api.Use(middleware.Auth(s.deps.Verifier))

	tripHandler := handlers.NewTripHandler(s.deps.Trips)
	api.POST("/trips", tripHandler.Schedule)
	api.GET("/trips", tripHandler.List)
	api.GET("/trips/:id", tripHandler.Get)
	api.PATCH("/trips/:id", tripHandler.Edit)
	api.DELETE("/trips/:id", tripHandler.Delete)
	api.POST("/trips/:id/start", tripHandler.Start)
	api.POST("/trips/:id/finish", tripHandler.Finish)
	api.POST("/trips/:id/cancel", tripHandler.Cancel)

	expenseHandler := handlers.NewExpenseHandler(s.deps.Expenses, s.deps.Parser)
	api.POST("/expenses", expenseHandler.Create)
	api.GET("/expenses", expenseHandler.List)
	api.GET("/expenses/:id", expenseHandler.Get)
	api.PUT("/expenses/:id", expenseHandler.Update)
	api.DELETE("/expenses/:id", expenseHandler.Delete)
	api.POST("/expenses/parse", expenseHandler.Parse)

	fleetHandler := handlers.NewFleetHandler(s.deps.Fleet)
	api.POST("/trucks", fleetHandler.CreateTruck)
	api.GET("/trucks", fleetHandler.ListTrucks)
	api.GET("/trucks/:id", fleetHandler.GetTruck)
	api.PUT("/trucks/:id/mileage", fleetHandler.UpdateMileage)
	api.POST("/drivers", fleetHandler.CreateDriver)
	api.GET("/drivers", fleetHandler.ListDrivers)
	api.GET("/drivers/:id", fleetHandler.GetDriver)

	maintHandler := handlers.NewMaintenanceHandler(s.deps.Maint, s.deps.Fleet)
	api.POST("/maintenance", maintHandler.Create)
	api.GET("/maintenance/:id", maintHandler.Get)
	api.GET("/trucks/:id/maintenance", maintHandler.ListByTruck)
	api.POST("/maintenance/:id/start", maintHandler.Start)
	api.POST("/maintenance/:id/complete", maintHandler.Complete)
	api.POST("/maintenance/:id/cancel", maintHandler.Cancel)

	settingsHandler := handlers.NewSettingsHandler(s.deps.Settings)
	api.GET("/settings", settingsHandler.Get)
	api.PUT("/settings", settingsHandler.Update)

	return r
}
