package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cryptofolio/backend/internal/api/response"
	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/service"
)

// SnapshotHandler handles HTTP requests for portfolio snapshot endpoints.
type SnapshotHandler struct {
	snapshotService *service.SnapshotService
}

// NewSnapshotHandler creates a new SnapshotHandler with the provided service dependency.
func NewSnapshotHandler(snapshotService *service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
	}
}

// Save handles POST requests to record a portfolio snapshot now. The same
// code path runs on the cron schedule; this endpoint exists for manual runs.
//
// Endpoint: POST /api/snapshot
// Response: 201 Created with PortfolioSnapshot
// Error: 502 Bad Gateway if open positions cannot be priced
// Error: 500 Internal Server Error if saving fails
func (h *SnapshotHandler) Save(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshotService.SaveSnapshot(r.Context())
	if err != nil {
		if errors.Is(err, apperrors.ErrPriceUnavailable) {
			response.RespondError(w, http.StatusBadGateway, apperrors.ErrPriceUnavailable.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToSaveSnapshot.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, snapshot)
}

// Latest handles GET requests for the most recent snapshot.
//
// Endpoint: GET /api/snapshot/latest
// Response: 200 OK with PortfolioSnapshot
// Error: 404 Not Found if no snapshot has been recorded
// Error: 500 Internal Server Error if retrieval fails
func (h *SnapshotHandler) Latest(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshotService.Latest(r.Context())
	if err != nil {
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrSnapshotNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveSnapshots.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, snapshot)
}

// History handles GET requests for snapshots within a date range.
//
// Endpoint: GET /api/snapshot/history?start=2024-01-01&end=2024-12-31
// Response: 200 OK with array of PortfolioSnapshot, oldest first
// Error: 400 Bad Request if a date parameter is malformed or the range is inverted
// Error: 500 Internal Server Error if retrieval fails
func (h *SnapshotHandler) History(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start")
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid start date", err.Error())
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid end date", err.Error())
		return
	}

	snapshots, err := h.snapshotService.History(r.Context(), start, end)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidDateRange) {
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidDateRange.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveSnapshots.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, snapshots)
}

// Returns handles GET requests for portfolio returns over a lookback window.
//
// Endpoint: GET /api/snapshot/returns?days=30
// Response: 200 OK with PortfolioReturns
// Error: 400 Bad Request if days is missing or not positive
// Error: 404 Not Found if the window has no snapshot on either side
// Error: 500 Internal Server Error if calculation fails
func (h *SnapshotHandler) Returns(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		response.RespondError(w, http.StatusBadRequest, "invalid days parameter", r.URL.Query().Get("days"))
		return
	}

	returns, err := h.snapshotService.Returns(r.Context(), days)
	if err != nil {
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			response.RespondError(w, http.StatusNotFound, apperrors.ErrSnapshotNotFound.Error(), err.Error())
			return
		}
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveSnapshots.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, returns)
}
