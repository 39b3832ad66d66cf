package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fernet/fernet-go"

	"github.com/cryptofolio/backend/internal/api/handlers"
	"github.com/cryptofolio/backend/internal/repository"
	"github.com/cryptofolio/backend/internal/service"
	"github.com/cryptofolio/backend/internal/testutil"
)

func newSystemHandler(t *testing.T, fernetKey string) (*handlers.SystemHandler, *service.SystemService) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	svc, err := service.NewSystemService(db, repository.NewSettingRepository(db), fernetKey)
	if err != nil {
		t.Fatalf("Failed to create system service: %v", err)
	}
	return handlers.NewSystemHandler(svc), svc
}

// TestSystemHandler_Health tests the health endpoint.
func TestSystemHandler_Health(t *testing.T) {
	h, _ := newSystemHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/system/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[handlers.HealthResponse](t, rec)
	if resp.Status != "healthy" || resp.Database != "connected" {
		t.Errorf("Unexpected health response %+v", resp)
	}
}

// TestSystemHandler_Version tests the version endpoint.
func TestSystemHandler_Version(t *testing.T) {
	h, _ := newSystemHandler(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/system/version", nil)
	rec := httptest.NewRecorder()
	h.Version(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[handlers.VersionInfoResponse](t, rec)
	if resp.AppVersion == "" {
		t.Error("Expected a non-empty app version")
	}
	if resp.DbVersion == 0 {
		t.Error("Expected a non-zero schema version")
	}
}

// TestSystemHandler_StorePriceFeedKey tests the API key storage endpoint.
func TestSystemHandler_StorePriceFeedKey(t *testing.T) {
	var key fernet.Key
	if err := key.Generate(); err != nil {
		t.Fatalf("Failed to generate fernet key: %v", err)
	}

	t.Run("stores the key with 204", func(t *testing.T) {
		h, svc := newSystemHandler(t, key.Encode())

		req := httptest.NewRequest(http.MethodPut, "/api/system/price-feed-key",
			strings.NewReader(`{"apiKey": "cg-demo-secret"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.StorePriceFeedKey(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("Expected 204, got %d: %s", rec.Code, rec.Body.String())
		}
		stored, err := svc.PriceFeedAPIKey(context.Background())
		if err != nil {
			t.Fatalf("Failed to read back key: %v", err)
		}
		if stored != "cg-demo-secret" {
			t.Errorf("Expected stored key back, got %q", stored)
		}
	})

	t.Run("empty key returns 400", func(t *testing.T) {
		h, _ := newSystemHandler(t, key.Encode())

		req := httptest.NewRequest(http.MethodPut, "/api/system/price-feed-key",
			strings.NewReader(`{"apiKey": ""}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.StorePriceFeedKey(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}
