package handlers

import (
	"net/http"

	"github.com/cryptofolio/backend/internal/api/request"
	"github.com/cryptofolio/backend/internal/api/response"
	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/service"
)

// SystemHandler handles system-related HTTP requests
type SystemHandler struct {
	systemService *service.SystemService
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{
		systemService: systemService,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Health checks the health of the system and database connectivity
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	// Check database health
	if err := h.systemService.CheckHealth(); err != nil {
		resp := HealthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Error:    err.Error(),
		}
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	// System is healthy
	resp := HealthResponse{
		Status:   "healthy",
		Database: "connected",
	}
	respondJSON(w, http.StatusOK, resp)
}

// VersionInfoResponse represents the version check response containing
// application and database schema version information.
type VersionInfoResponse struct {
	AppVersion string `json:"app_version"`
	DbVersion  int64  `json:"db_version"`
}

// Version handles GET requests to retrieve version information.
//
// Endpoint: GET /api/system/version
// Response: 200 OK with VersionInfoResponse
// Error: 500 Internal Server Error if version check fails
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	info, err := h.systemService.VersionInfo(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToGetVersionInfo.Error(), err.Error())
		return
	}

	resp := VersionInfoResponse{
		AppVersion: info.AppVersion,
		DbVersion:  info.DbVersion,
	}

	respondJSON(w, http.StatusOK, resp)
}

// StorePriceFeedKey handles PUT requests to store the price feed API key.
// The key is encrypted before it is written to the settings table.
//
// Endpoint: PUT /api/system/price-feed-key
// Request Body: StoreAPIKeyRequest
// Response: 204 No Content on success
// Error: 400 Bad Request if the body is invalid or the key is empty
// Error: 500 Internal Server Error if storage fails
func (h *SystemHandler) StorePriceFeedKey(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.StoreAPIKeyRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.APIKey == "" {
		response.RespondError(w, http.StatusBadRequest, "validation failed", "apiKey is required")
		return
	}

	if err := h.systemService.StorePriceFeedAPIKey(r.Context(), req.APIKey); err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to store api key", err.Error())
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
