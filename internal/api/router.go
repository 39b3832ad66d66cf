package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cryptofolio/backend/internal/api/handlers"
	custommiddleware "github.com/cryptofolio/backend/internal/api/middleware"
	"github.com/cryptofolio/backend/internal/config"
	"github.com/cryptofolio/backend/internal/importer"
	"github.com/cryptofolio/backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	ledgerService *service.LedgerService,
	pnlService *service.PnLService,
	taxService *service.TaxService,
	snapshotService *service.SnapshotService,
	imp *importer.Importer,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
			r.Put("/price-feed-key", systemHandler.StorePriceFeedKey)
		})

		transactionHandler := handlers.NewTransactionHandler(ledgerService)
		r.Route("/transaction", func(r chi.Router) {
			r.Post("/", transactionHandler.RecordTransaction)
			r.Get("/", transactionHandler.TransactionHistory)
			r.Get("/{id}", transactionHandler.GetTransaction)
		})
		r.Get("/lots", transactionHandler.OpenLots)

		r.Route("/pnl", func(r chi.Router) {
			pnlHandler := handlers.NewPnLHandler(pnlService)
			r.Get("/unrealized", pnlHandler.UnrealizedPnL)
			r.Get("/unrealized/{symbol}", pnlHandler.UnrealizedPnLForSymbol)
			r.Get("/realized", pnlHandler.RealizedPnL)
			r.Get("/cost-basis", pnlHandler.CostBasis)
			r.Get("/summary", pnlHandler.Summary)
		})

		r.Route("/tax", func(r chi.Router) {
			taxHandler := handlers.NewTaxHandler(taxService)
			r.Get("/report", taxHandler.Report)
			r.Get("/years", taxHandler.Years)
		})

		r.Route("/snapshot", func(r chi.Router) {
			snapshotHandler := handlers.NewSnapshotHandler(snapshotService)
			r.Post("/", snapshotHandler.Save)
			r.Get("/latest", snapshotHandler.Latest)
			r.Get("/history", snapshotHandler.History)
			r.Get("/returns", snapshotHandler.Returns)
		})

		if imp != nil {
			importHandler := handlers.NewImportHandler(imp)
			r.Post("/import", importHandler.Run)
		}
	})

	return r
}
