package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cryptofolio/backend/internal/api/handlers"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/testutil"
)

// TestTaxHandler_Report tests the yearly report endpoint.
//
// WHY: The method defaults to FIFO when omitted, and year/method problems
// must come back as 400 so clients can correct the query.
func TestTaxHandler_Report(t *testing.T) {
	t.Run("defaults to FIFO", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		h := handlers.NewTaxHandler(testutil.NewTestTaxService(t, db))
		testutil.NewBuy(t).WithAmount("1.0").WithPrice("50000").On("2024-01-10").Build(t, db)
		testutil.NewSell(t).WithAmount("0.5").WithPrice("60000").On("2024-03-01").Build(t, db)

		// Execute
		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/tax/report",
			map[string]string{"year": "2024"})
		rec := httptest.NewRecorder()
		h.Report(rec, req)

		// Assert
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		report := decodeBody[model.TaxReport](t, rec)
		if report.AccountingMethod != model.MethodFIFO {
			t.Errorf("Expected default method FIFO, got %s", report.AccountingMethod)
		}
		testutil.AssertDecimalEqual(t, "net gain", testutil.Dec(t, "5000"), report.NetGainLoss)
	})

	t.Run("missing year returns 400", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTaxHandler(testutil.NewTestTaxService(t, db))

		req := httptest.NewRequest(http.MethodGet, "/api/tax/report", nil)
		rec := httptest.NewRecorder()
		h.Report(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("invalid method returns 400", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTaxHandler(testutil.NewTestTaxService(t, db))

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/tax/report",
			map[string]string{"year": "2024", "method": "HIFO"})
		rec := httptest.NewRecorder()
		h.Report(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}

// TestTaxHandler_Years tests the activity-year listing endpoint.
func TestTaxHandler_Years(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := handlers.NewTaxHandler(testutil.NewTestTaxService(t, db))
	testutil.NewBuy(t).WithAmount("1.0").WithPrice("50000").On("2023-01-10").Build(t, db)
	testutil.NewSell(t).WithAmount("0.2").WithPrice("60000").On("2023-06-01").Build(t, db)
	testutil.NewSell(t).WithAmount("0.2").WithPrice("60000").On("2024-06-01").Build(t, db)

	req := httptest.NewRequest(http.MethodGet, "/api/tax/years", nil)
	rec := httptest.NewRecorder()
	h.Years(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	years := decodeBody[[]int](t, rec)
	if len(years) != 2 || years[0] != 2024 || years[1] != 2023 {
		t.Errorf("Expected [2024 2023], got %v", years)
	}
}
