// README: Entry point; loads config, wires services, starts HTTP server and background sweepers.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"fleetops/internal/ai"
	"fleetops/internal/config"
	httptransport "fleetops/internal/http"
	"fleetops/internal/infra"
	"fleetops/internal/maps"
	"fleetops/internal/modules/expense"
	"fleetops/internal/modules/finance"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/maintenance"
	"fleetops/internal/modules/trip"
	"fleetops/internal/notify"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("FLEETOPS_FIREBASE_PROJECT_ID is required")
	}
	verifier, err := infra.NewFirebaseVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("firebase init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	dispatcher := notify.NewWebhook(cfg.Webhook.URL, redisClient, log)

	settingsStore := finance.NewSettingsStore(dbPool)

	maintStore := maintenance.NewStore(dbPool)
	maintSvc := maintenance.NewService(maintStore, dispatcher, log)

	fleetStore := fleet.NewStore(dbPool)
	fleetSvc := fleet.NewService(fleetStore, maintSvc, log)

	tripStore := trip.NewStore(dbPool)
	expenseStore := expense.NewStore(dbPool)

	var estimator trip.DistanceEstimator
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		estimator = routeSvc
	}

	validator := trip.NewValidator(tripStore, redisClient, cfg.Scheduling.MinSeparation)
	tripSvc := trip.NewService(trip.Deps{
		Store:              tripStore,
		Validator:          validator,
		Trucks:             fleetStore,
		Drivers:            fleetStore,
		Expenses:           expenseStore,
		Settings:           settingsStore,
		Monitor:            maintSvc,
		Estimator:          estimator,
		Dispatcher:         dispatcher,
		Log:                log,
		LowProfitMarginPct: cfg.Alerts.LowProfitMarginPct,
		SweepTick:          cfg.Scheduling.SweepTick,
	})

	expenseSvc := expense.NewService(expenseStore, tripSvc, dispatcher, cfg.Alerts.HighExpenseAmount, log)

	var parser ai.ExpenseParser
	if cfg.AI.GeminiKey != "" {
		gemini, err := ai.NewGeminiParser(ctx, cfg.AI.GeminiKey)
		if err != nil {
			log.Fatalf("gemini init: %v", err)
		}
		defer gemini.Close()
		parser = gemini
	}

	handler := httptransport.NewServer(httptransport.ServerDeps{
		Trips:    tripSvc,
		Expenses: expenseSvc,
		Fleet:    fleetSvc,
		Maint:    maintSvc,
		Settings: settingsStore,
		Parser:   parser,
		Verifier: verifier,
		Log:      log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler.Routes()}

	go tripSvc.RunDelaySweeper(ctx)

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("fleetops api listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
