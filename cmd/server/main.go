package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	api "shuttering-manager/internal/api/http"
	"shuttering-manager/internal/config"
	"shuttering-manager/internal/jobs"
	"shuttering-manager/internal/logger"
	"shuttering-manager/internal/repository"
	"shuttering-manager/internal/repository/memory"
	"shuttering-manager/internal/repository/postgres"
	"shuttering-manager/internal/scheduler"
	"shuttering-manager/internal/service"
)

type store struct {
	materials repository.MaterialRepository
	rentals   repository.RentalRepository
	movements repository.MovementRepository
}

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Shuttering Manager...", "address", cfg.GetServerAddress(), "store", cfg.Store.Type)

	var st store
	switch cfg.Store.Type {
	case "memory":
		logger.Info("Using in-memory store")
		mem := memory.NewStore()
		st = store{materials: mem.MaterialRepository, rentals: mem.RentalRepository, movements: mem.MovementRepository}
	default:
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		logger.Info("Database connection established", "host", cfg.Database.Host, "database", cfg.Database.Database)
		pg := postgres.NewStore(db)
		st = store{materials: pg.MaterialRepository, rentals: pg.RentalRepository, movements: pg.MovementRepository}
	}

	inventorySvc := service.NewInventoryService(st.materials, st.movements)
	rentalSvc := service.NewRentalService(st.rentals, st.materials, st.movements)

	router := mux.NewRouter()
	api.NewMaterialHandler(inventorySvc).RegisterRoutes(router)
	api.NewRentalHandler(rentalSvc).RegisterRoutes(router)

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(jobs.NewJobRunner(st.rentals), cfg.Scheduler)
		sched.Start()
		defer sched.Stop()
	}

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
	}
}
