package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cryptofolio/backend/internal/api/response"
	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
)

// TaxHandler handles HTTP requests for tax report endpoints.
type TaxHandler struct {
	taxService *service.TaxService
}

// NewTaxHandler creates a new TaxHandler with the provided service dependency.
func NewTaxHandler(taxService *service.TaxService) *TaxHandler {
	return &TaxHandler{
		taxService: taxService,
	}
}

// Report handles GET requests to generate a tax report for one calendar year.
// The report only covers realized P&L entries recorded under the requested
// accounting method; a year without activity yields an empty report.
//
// Endpoint: GET /api/tax/report?year=2024&method=FIFO
// Response: 200 OK with TaxReport
// Error: 400 Bad Request if year is missing/malformed or method is invalid
// Error: 500 Internal Server Error if generation fails
func (h *TaxHandler) Report(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid year", r.URL.Query().Get("year"))
		return
	}

	method := model.MethodFIFO
	if raw := r.URL.Query().Get("method"); raw != "" {
		method = model.AccountingMethod(strings.ToUpper(strings.TrimSpace(raw)))
	}

	report, err := h.taxService.GenerateTaxReport(r.Context(), year, method)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidAccountingMethod) {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidAccountingMethod.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGenerateTaxReport.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, report)
}

// Years handles GET requests to list calendar years with realized activity.
//
// Endpoint: GET /api/tax/years
// Response: 200 OK with array of years, newest first
// Error: 500 Internal Server Error if retrieval fails
func (h *TaxHandler) Years(w http.ResponseWriter, r *http.Request) {
	years, err := h.taxService.YearsWithActivity(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGenerateTaxReport.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, years)
}
