package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cryptofolio/backend/internal/api"
	"github.com/cryptofolio/backend/internal/coingecko"
	"github.com/cryptofolio/backend/internal/config"
	"github.com/cryptofolio/backend/internal/database"
	"github.com/cryptofolio/backend/internal/importer"
	"github.com/cryptofolio/backend/internal/repository"
	"github.com/cryptofolio/backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Apply pending migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Create repositories
	transactionRepo := repository.NewTransactionRepository(db)
	lotRepo := repository.NewLotRepository(db)
	realizedRepo := repository.NewRealizedPnLRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// Create services
	systemService, err := service.NewSystemService(db, settingRepo, cfg.FernetKey)
	if err != nil {
		log.Fatalf("Failed to create system service: %v", err)
	}
	priceFeed := coingecko.NewClient(cfg.PriceFeed.Currency, cfg.PriceFeed.APIKey)
	ledgerService := service.NewLedgerService(
		db,
		transactionRepo,
		lotRepo,
		realizedRepo,
	)
	pnlService := service.NewPnLService(
		lotRepo,
		realizedRepo,
		priceFeed,
	)
	taxService := service.NewTaxService(realizedRepo)
	snapshotService := service.NewSnapshotService(snapshotRepo, pnlService)

	// Blockchain importer with the supported chain fetchers
	fetchers := map[string]importer.ChainFetcher{
		"BTC": importer.NewBitcoinFetcher(),
	}
	imp := importer.NewImporter(ledgerService, priceFeed, fetchers)

	// Schedule the snapshot job
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Snapshot.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if _, err := snapshotService.SaveSnapshot(ctx); err != nil {
			log.Printf("Scheduled snapshot failed: %v", err)
			return
		}
		if _, err := snapshotService.Cleanup(ctx, cfg.Snapshot.RetentionDays); err != nil {
			log.Printf("Snapshot cleanup failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Invalid snapshot schedule %q: %v", cfg.Snapshot.Schedule, err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(systemService, ledgerService, pnlService, taxService, snapshotService, imp, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
