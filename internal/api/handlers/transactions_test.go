package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cryptofolio/backend/internal/api/handlers"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/testutil"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return v
}

// TestTransactionHandler_RecordTransaction tests the record endpoint.
//
// WHY: The handler is the API contract: status codes distinguish validation
// failures, duplicates, and the partially-recorded oversell case, and the
// sell response must expose the lot consumptions clients display.
func TestTransactionHandler_RecordTransaction(t *testing.T) {
	t.Run("records a buy with 201", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))

		// Execute
		rec := postJSON(t, h.RecordTransaction, "/api/transaction",
			`{"symbol": "btc", "type": "buy", "amount": "0.5", "pricePerUnit": "50000", "fee": "25"}`)

		// Assert
		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decodeBody[handlers.RecordTransactionResponse](t, rec)
		if resp.Transaction.Symbol != "BTC" {
			t.Errorf("Expected normalized symbol BTC, got %s", resp.Transaction.Symbol)
		}
		if len(resp.Consumptions) != 0 {
			t.Errorf("Expected no consumptions for a buy, got %d", len(resp.Consumptions))
		}
		testutil.AssertRowCount(t, db, "cost_basis_lots", 1)
	})

	t.Run("returns sell consumptions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))
		testutil.CreateBuy(t, db, "BTC", "0.5", "50000", "25")

		rec := postJSON(t, h.RecordTransaction, "/api/transaction",
			`{"symbol": "BTC", "type": "SELL", "amount": "0.2", "pricePerUnit": "60000", "fee": "12"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decodeBody[handlers.RecordTransactionResponse](t, rec)
		if resp.Method != "FIFO" {
			t.Errorf("Expected default method FIFO, got %s", resp.Method)
		}
		if len(resp.Consumptions) != 1 {
			t.Fatalf("Expected 1 consumption, got %d", len(resp.Consumptions))
		}
		testutil.AssertDecimalEqual(t, "gain", testutil.Dec(t, "1978"), resp.Consumptions[0].GainLoss)
		if resp.Warning != "" {
			t.Errorf("Expected no warning, got %q", resp.Warning)
		}
	})

	t.Run("oversell records the matched portion with a warning", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))
		testutil.CreateBuy(t, db, "BTC", "1.0", "50000", "0")

		rec := postJSON(t, h.RecordTransaction, "/api/transaction",
			`{"symbol": "BTC", "type": "SELL", "amount": "1.5", "pricePerUnit": "60000"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		resp := decodeBody[handlers.RecordTransactionResponse](t, rec)
		if resp.Warning == "" {
			t.Error("Expected an oversell warning")
		}
		testutil.AssertDecimalEqual(t, "unresolved", testutil.Dec(t, "0.5"), resp.UnresolvedAmount)
		testutil.AssertRowCount(t, db, "transactions", 2)
	})

	t.Run("rejects invalid bodies with 400", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))

		tests := []struct {
			name string
			body string
		}{
			{"malformed json", `{"symbol": `},
			{"unknown field", `{"symbol": "BTC", "type": "BUY", "amount": "1", "pricePerUnit": "1", "bogus": true}`},
			{"missing symbol", `{"type": "BUY", "amount": "1", "pricePerUnit": "1"}`},
			{"negative amount", `{"symbol": "BTC", "type": "BUY", "amount": "-1", "pricePerUnit": "1"}`},
			{"bad method", `{"symbol": "BTC", "type": "SELL", "amount": "1", "pricePerUnit": "1", "method": "HIFO"}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := postJSON(t, h.RecordTransaction, "/api/transaction", tt.body)
				if rec.Code != http.StatusBadRequest {
					t.Errorf("Expected 400, got %d", rec.Code)
				}
			})
		}
		testutil.AssertRowCount(t, db, "transactions", 0)
	})

	t.Run("duplicate external id returns 409", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))
		body := `{"symbol": "BTC", "type": "BUY", "amount": "1", "pricePerUnit": "50000", "externalId": "tx-abc"}`

		first := postJSON(t, h.RecordTransaction, "/api/transaction", body)
		if first.Code != http.StatusCreated {
			t.Fatalf("Expected first record to succeed, got %d", first.Code)
		}
		second := postJSON(t, h.RecordTransaction, "/api/transaction", body)

		if second.Code != http.StatusConflict {
			t.Errorf("Expected 409, got %d", second.Code)
		}
		testutil.AssertRowCount(t, db, "transactions", 1)
	})

	t.Run("sell with no holdings returns 422", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))

		rec := postJSON(t, h.RecordTransaction, "/api/transaction",
			`{"symbol": "BTC", "type": "SELL", "amount": "1", "pricePerUnit": "60000"}`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("Expected 422, got %d", rec.Code)
		}
	})
}

// TestTransactionHandler_TransactionHistory tests the list endpoint.
func TestTransactionHandler_TransactionHistory(t *testing.T) {
	t.Run("filters by symbol and type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))
		testutil.CreateBuy(t, db, "BTC", "1.0", "50000", "0")
		testutil.CreateBuy(t, db, "ETH", "10", "3000", "0")
		testutil.CreateSell(t, db, "BTC", "0.5", "60000", "0")

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/transaction",
			map[string]string{"symbol": "btc", "type": "sell"})
		rec := httptest.NewRecorder()
		h.TransactionHistory(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		transactions := decodeBody[[]model.Transaction](t, rec)
		if len(transactions) != 1 {
			t.Fatalf("Expected 1 transaction, got %d", len(transactions))
		}
		if transactions[0].Symbol != "BTC" || transactions[0].Type != model.TransactionTypeSell {
			t.Errorf("Unexpected transaction %+v", transactions[0])
		}
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/transaction",
			map[string]string{"start": "01/2024"})
		rec := httptest.NewRecorder()
		h.TransactionHistory(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects an inverted date range", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))

		req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/transaction",
			map[string]string{"start": "2024-06-01", "end": "2024-01-01"})
		rec := httptest.NewRecorder()
		h.TransactionHistory(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}

// TestTransactionHandler_GetTransaction tests single-transaction lookup.
func TestTransactionHandler_GetTransaction(t *testing.T) {
	t.Run("returns the transaction", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))
		created := testutil.CreateBuy(t, db, "BTC", "1.0", "50000", "0")

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/transaction/1",
			map[string]string{"id": "1"})
		rec := httptest.NewRecorder()
		h.GetTransaction(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		tx := decodeBody[model.Transaction](t, rec)
		if tx.ID != created.Transaction.ID {
			t.Errorf("Expected transaction %d, got %d", created.Transaction.ID, tx.ID)
		}
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/transaction/9999",
			map[string]string{"id": "9999"})
		rec := httptest.NewRecorder()
		h.GetTransaction(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", rec.Code)
		}
	})

	t.Run("non-numeric id returns 400", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))

		req := testutil.NewRequestWithURLParams(http.MethodGet, "/api/transaction/abc",
			map[string]string{"id": "abc"})
		rec := httptest.NewRecorder()
		h.GetTransaction(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}

// TestTransactionHandler_OpenLots tests the open lot listing.
func TestTransactionHandler_OpenLots(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := handlers.NewTransactionHandler(testutil.NewTestLedgerService(t, db))
	testutil.CreateBuy(t, db, "BTC", "0.5", "50000", "25")
	testutil.CreateBuy(t, db, "ETH", "10", "3000", "0")

	req := testutil.NewRequestWithQueryParams(http.MethodGet, "/api/lots",
		map[string]string{"symbol": "BTC"})
	rec := httptest.NewRecorder()
	h.OpenLots(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	lots := decodeBody[[]model.CostBasisLot](t, rec)
	if len(lots) != 1 {
		t.Fatalf("Expected 1 BTC lot, got %d", len(lots))
	}
	testutil.AssertDecimalEqual(t, "lot cost per unit", testutil.Dec(t, "50050"), lots[0].CostPerUnit)
}
