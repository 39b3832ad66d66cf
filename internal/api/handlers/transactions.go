package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cryptofolio/backend/internal/api/request"
	"github.com/cryptofolio/backend/internal/api/response"
	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
	"github.com/cryptofolio/backend/internal/validation"
)

// TransactionHandler handles HTTP requests for transaction endpoints.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the ledgerService.
type TransactionHandler struct {
	ledgerService *service.LedgerService
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependency.
func NewTransactionHandler(ledgerService *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
	}
}

// ConsumptionResponse describes one lot consumed by a recorded sell.
type ConsumptionResponse struct {
	LotID     int64           `json:"lotId"`
	Amount    decimal.Decimal `json:"amount"`
	CostBasis decimal.Decimal `json:"costBasis"`
	GainLoss  decimal.Decimal `json:"gainLoss"`
	LotClosed bool            `json:"lotClosed"`
}

// RecordTransactionResponse is returned by POST /api/transaction. The matching
// fields are only present for sells; unresolvedAmount is positive when the
// sell exceeded the open lot coverage.
type RecordTransactionResponse struct {
	Transaction      *model.Transaction    `json:"transaction"`
	Method           string                `json:"method,omitempty"`
	Consumptions     []ConsumptionResponse `json:"consumptions,omitempty"`
	UnresolvedAmount decimal.Decimal       `json:"unresolvedAmount"`
	Warning          string                `json:"warning,omitempty"`
}

// RecordTransaction handles POST requests to record a buy or sell.
// Validates the request body, records the transaction, and for sells returns
// the lot consumptions produced by the configured accounting method.
//
// A sell exceeding the open lot coverage is still recorded for its matched
// portion; the response carries the unresolved remainder and a warning.
//
// Endpoint: POST /api/transaction
// Request Body: RecordTransactionRequest (symbol, type, amount, pricePerUnit, ...)
// Response: 201 Created with RecordTransactionResponse
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 409 Conflict if the external ID was already recorded
// Error: 500 Internal Server Error if recording fails
func (h *TransactionHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.RecordTransactionRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateRecordTransaction(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	recordReq := service.RecordRequest{
		Symbol:       req.Symbol,
		Type:         model.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Amount:       req.Amount,
		PricePerUnit: req.PricePerUnit,
		Fee:          req.Fee,
		FeeCurrency:  req.FeeCurrency,
		Exchange:     req.Exchange,
		ExternalID:   req.ExternalID,
		Notes:        req.Notes,
		Method:       model.AccountingMethod(strings.ToUpper(strings.TrimSpace(req.Method))),
	}
	if req.Timestamp != "" {
		timestamp, err := validation.ParseTimestamp(req.Timestamp)
		if err != nil {
			response.RespondError(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		recordReq.Timestamp = timestamp
	}

	result, err := h.ledgerService.RecordTransaction(r.Context(), recordReq)
	oversold := errors.Is(err, apperrors.ErrOversell)
	if err != nil && !oversold {
		if errors.Is(err, apperrors.ErrDuplicateTransaction) {
			response.RespondError(w, http.StatusConflict, apperrors.ErrDuplicateTransaction.Error(), err.Error())
			return
		}
		if errors.Is(err, apperrors.ErrNoOpenLots) {
			response.RespondError(w, http.StatusUnprocessableEntity, apperrors.ErrNoOpenLots.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRecordTransaction.Error(), err.Error())
		return
	}

	resp := RecordTransactionResponse{Transaction: result.Transaction}
	if result.Matching != nil {
		resp.Method = string(result.Matching.Method)
		resp.UnresolvedAmount = result.Matching.Unresolved
		for _, c := range result.Matching.Consumptions {
			resp.Consumptions = append(resp.Consumptions, ConsumptionResponse{
				LotID:     c.LotID,
				Amount:    c.Amount,
				CostBasis: c.CostBasis,
				GainLoss:  c.GainLoss,
				LotClosed: c.ClosesLot,
			})
		}
	}
	if oversold {
		resp.Warning = "sell exceeds open lots; unresolved amount recorded without cost basis"
	}

	response.RespondJSON(w, http.StatusCreated, resp)
}

// TransactionHistory handles GET requests to retrieve recorded transactions.
// Supports filtering by symbol, type, and date range via query parameters.
//
// Endpoint: GET /api/transaction?symbol=BTC&type=SELL&start=2024-01-01&end=2024-12-31&limit=50
// Response: 200 OK with array of Transaction, newest first
// Error: 400 Bad Request if a query parameter is malformed
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	filter := model.TransactionFilter{
		Symbol: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol"))),
		Type:   model.TransactionType(strings.ToUpper(r.URL.Query().Get("type"))),
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

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			response.RespondError(w, http.StatusBadRequest, "invalid limit", limit)
			return
		}
		filter.Limit = n
	}

	transactions, err := h.ledgerService.TransactionHistory(r.Context(), filter)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidDateRange) {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDateRange.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransaction.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// GetTransaction handles GET requests to retrieve a single transaction by ID.
//
// Endpoint: GET /api/transaction/{id}
// Response: 200 OK with Transaction
// Error: 400 Bad Request if the ID is not numeric
// Error: 404 Not Found if no transaction has that ID
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid transaction id", chi.URLParam(r, "id"))
		return
	}

	transaction, err := h.ledgerService.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperrors.ErrTransactionNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrTransactionNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransaction.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transaction)
}

// OpenLots handles GET requests to list open cost basis lots.
//
// Endpoint: GET /api/lots?symbol=BTC
// Response: 200 OK with array of CostBasisLot, oldest purchase first
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) OpenLots(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))

	lots, err := h.ledgerService.OpenLots(r.Context(), symbol)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveLots.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, lots)
}
