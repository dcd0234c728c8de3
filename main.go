package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sigcalc/adapters/archive"
	"sigcalc/app"
	"sigcalc/internal/api"
	"sigcalc/internal/config"
	"sigcalc/internal/toys"
	"sigcalc/ports"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo ports.ResultRepository
	if appConfig.ArchiveEnabled() {
		db, err := archive.Open(ctx, appConfig.Database.Driver, appConfig.Database.DSN)
		if err != nil {
			log.Fatalf("Failed to open results archive: %v", err)
		}
		defer db.Close()
		repo = archive.NewResultRepository(db)
	} else {
		log.Printf("SIGCALC_DB_DSN not set, results will not be archived")
	}

	scanner, err := toys.NewScanner(toys.Config{
		Seed:          appConfig.Toys.Seed,
		MinRejections: appConfig.Toys.MinRejections,
		MaxEvents:     appConfig.Toys.MaxEvents,
		Workers:       appConfig.Toys.Workers,
		Options:       appConfig.SolverOptions(),
	})
	if err != nil {
		log.Fatalf("Invalid toy configuration: %v", err)
	}

	hub := api.NewScanHub()
	defer hub.Close()

	// Scans outlive their requests but stop with the server.
	scanCtx, cancelScans := context.WithCancel(context.Background())
	defer cancelScans()

	handler := api.NewCalculationHandler(
		scanCtx,
		app.NewSignificanceService(appConfig.SolverOptions(), repo),
		app.NewValidationService(scanner, repo),
		hub,
		api.Defaults{
			MuTest:    appConfig.Analysis.MuTest,
			ToyMuMin:  appConfig.Toys.MuMin,
			ToyMuMax:  appConfig.Toys.MuMax,
			ToyPoints: appConfig.Toys.Points,
		},
	)

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           api.NewServer(handler, hub, repo != nil),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting sigcalc API on port %s", appConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	cancelScans()
	handler.WaitForScans()
	log.Printf("Server stopped")
}
