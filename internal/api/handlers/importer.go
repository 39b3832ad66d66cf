package handlers

import (
	"net/http"
	"strings"

	"github.com/cryptofolio/backend/internal/api/request"
	"github.com/cryptofolio/backend/internal/api/response"
	"github.com/cryptofolio/backend/internal/importer"
	"github.com/cryptofolio/backend/internal/validation"
)

// ImportHandler handles HTTP requests for blockchain import runs.
type ImportHandler struct {
	importer *importer.Importer
}

// NewImportHandler creates a new ImportHandler with the provided importer.
func NewImportHandler(imp *importer.Importer) *ImportHandler {
	return &ImportHandler{
		importer: imp,
	}
}

// Run handles POST requests to import on-chain transfer history into the
// ledger. Wallets are fetched concurrently; per-wallet failures are reported
// in the run summary rather than failing the whole run. Already-recorded
// transfers are skipped, so repeated runs are safe.
//
// Endpoint: POST /api/import
// Request Body: RunImportRequest (wallets: [{symbol, address}, ...])
// Response: 200 OK with ImportReport
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if the run cannot start
func (h *ImportHandler) Run(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RunImportRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateRunImport(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	wallets := make([]importer.WalletConfig, 0, len(req.Wallets))
	for _, wallet := range req.Wallets {
		wallets = append(wallets, importer.WalletConfig{
			Symbol:  strings.ToUpper(strings.TrimSpace(wallet.Symbol)),
			Address: strings.TrimSpace(wallet.Address),
		})
	}

	report, err := h.importer.Run(r.Context(), wallets)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "import run failed", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}
