package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cryptofolio/backend/internal/api/response"
	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
)

// PnLHandler handles HTTP requests for profit and loss endpoints.
type PnLHandler struct {
	pnlService *service.PnLService
}

// NewPnLHandler creates a new PnLHandler with the provided service dependency.
func NewPnLHandler(pnlService *service.PnLService) *PnLHandler {
	return &PnLHandler{
		pnlService: pnlService,
	}
}

// UnrealizedPnL handles GET requests for unrealized P&L across symbols.
// Prices are fetched from the configured price feed in one batch. Symbols
// whose price could not be obtained are omitted from the response.
//
// Endpoint: GET /api/pnl/unrealized?symbols=BTC,ETH
// Response: 200 OK with map of symbol to UnrealizedPnL
// Error: 502 Bad Gateway if the price feed is unavailable
// Error: 500 Internal Server Error if calculation fails
func (h *PnLHandler) UnrealizedPnL(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	if raw := r.URL.Query().Get("symbols"); raw != "" {
		for _, symbol := range strings.Split(raw, ",") {
			symbol = strings.ToUpper(strings.TrimSpace(symbol))
			if symbol != "" {
				symbols = append(symbols, symbol)
			}
		}
	}

	pnl, err := h.pnlService.UnrealizedPnLBatch(r.Context(), symbols)
	if err != nil {
		if errors.Is(err, apperrors.ErrPriceUnavailable) {
			response.RespondError(w, http.StatusBadGateway, apperrors.ErrPriceUnavailable.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCalculatePnL.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, pnl)
}

// UnrealizedPnLForSymbol handles GET requests for one symbol's unrealized P&L.
//
// Endpoint: GET /api/pnl/unrealized/{symbol}
// Response: 200 OK with UnrealizedPnL
// Error: 404 Not Found if the symbol has no open lots
// Error: 502 Bad Gateway if the price feed cannot price the symbol
// Error: 500 Internal Server Error if calculation fails
func (h *PnLHandler) UnrealizedPnLForSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))

	pnl, err := h.pnlService.UnrealizedPnLBatch(r.Context(), []string{symbol})
	if err != nil {
		if errors.Is(err, apperrors.ErrPriceUnavailable) {
			response.RespondError(w, http.StatusBadGateway, apperrors.ErrPriceUnavailable.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCalculatePnL.Error(), err.Error())
		return
	}

	result, ok := pnl[symbol]
	if !ok {
		response.RespondError(w, http.StatusNotFound, apperrors.ErrNoOpenLots.Error(), symbol)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// RealizedPnL handles GET requests for realized P&L totals.
// Supports filtering by symbol and date range via query parameters.
//
// Endpoint: GET /api/pnl/realized?symbol=BTC&start=2024-01-01&end=2024-12-31
// Response: 200 OK with RealizedPnLSummary
// Error: 400 Bad Request if a date parameter is malformed or the range is inverted
// Error: 500 Internal Server Error if calculation fails
func (h *PnLHandler) RealizedPnL(w http.ResponseWriter, r *http.Request) {
	filter := model.RealizedPnLFilter{
		Symbol: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol"))),
	}

	start, err := parseDateParam(r, "start")
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid start date", err.Error())
		return
	}
	filter.StartDate = start

	end, err := parseDateParam(r, "end")
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid end date", err.Error())
		return
	}
	filter.EndDate = end

	summary, err := h.pnlService.RealizedPnL(r.Context(), filter)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidDateRange) {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDateRange.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCalculatePnL.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}

// CostBasis handles GET requests for the per-symbol cost basis summary of all
// open lots. Needs no live prices.
//
// Endpoint: GET /api/pnl/cost-basis
// Response: 200 OK with map of symbol to CostBasisSummary
// Error: 500 Internal Server Error if retrieval fails
func (h *PnLHandler) CostBasis(w http.ResponseWriter, r *http.Request) {
	summary, err := h.pnlService.PortfolioCostBasis(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveLots.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}

// Summary handles GET requests for the combined portfolio P&L summary.
// When the price feed is unavailable the unrealized side degrades to empty
// rather than failing the whole report.
//
// Endpoint: GET /api/pnl/summary
// Response: 200 OK with PortfolioPnLSummary
// Error: 500 Internal Server Error if calculation fails
func (h *PnLHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.pnlService.PortfolioPnLSummary(r.Context(), nil)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCalculatePnL.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}
