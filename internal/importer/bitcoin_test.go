package importer_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cryptofolio/backend/internal/importer"
	"github.com/cryptofolio/backend/internal/testutil"
)

// TestBitcoinFetcher_FetchTransfers tests BlockCypher response handling.
//
// WHY: The net amount of a transaction must be computed from the inputs and
// outputs that involve the tracked address only, converted from satoshis,
// and signed by direction; self-transfers netting to zero carry no cost
// basis information and must be dropped.
func TestBitcoinFetcher_FetchTransfers(t *testing.T) {
	const address = "bc1qtracked"

	t.Run("computes signed net amounts in BTC", func(t *testing.T) {
		// Setup
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/addrs/"+address+"/full" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			w.Write([]byte(`{"txs": [
				{
					"hash": "hash-received",
					"confirmed": "2024-01-10T08:00:00Z",
					"confirmations": 120,
					"inputs": [{"addresses": ["bc1qsender"], "output_value": 50000000}],
					"outputs": [{"addresses": ["bc1qtracked"], "value": 50000000}]
				},
				{
					"hash": "hash-sent",
					"confirmed": "2024-02-10T08:00:00Z",
					"confirmations": 80,
					"inputs": [{"addresses": ["bc1qtracked"], "output_value": 30000000}],
					"outputs": [
						{"addresses": ["bc1qreceiver"], "value": 19000000},
						{"addresses": ["bc1qtracked"], "value": 10000000}
					]
				}
			]}`))
		}))
		defer server.Close()
		fetcher := importer.NewBitcoinFetcherWithBaseURL(server.URL)

		// Execute
		transfers, err := fetcher.FetchTransfers(context.Background(), address, 100)

		// Assert
		if err != nil {
			t.Fatalf("FetchTransfers() returned unexpected error: %v", err)
		}
		if len(transfers) != 2 {
			t.Fatalf("Expected 2 transfers, got %d", len(transfers))
		}
		// Oldest first.
		if transfers[0].TxHash != "hash-received" {
			t.Errorf("Expected oldest transfer first, got %s", transfers[0].TxHash)
		}
		testutil.AssertDecimalEqual(t, "received amount", testutil.Dec(t, "0.5"), transfers[0].Amount)
		// 0.3 spent, 0.1 change back: net -0.2.
		testutil.AssertDecimalEqual(t, "sent amount", testutil.Dec(t, "-0.2"), transfers[1].Amount)
		if transfers[1].Confirmations != 80 {
			t.Errorf("Expected 80 confirmations, got %d", transfers[1].Confirmations)
		}
	})

	t.Run("drops transactions netting to zero", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"txs": [
				{
					"hash": "hash-self",
					"confirmed": "2024-01-10T08:00:00Z",
					"confirmations": 10,
					"inputs": [{"addresses": ["bc1qtracked"], "output_value": 10000000}],
					"outputs": [{"addresses": ["bc1qtracked"], "value": 10000000}]
				}
			]}`))
		}))
		defer server.Close()
		fetcher := importer.NewBitcoinFetcherWithBaseURL(server.URL)

		transfers, err := fetcher.FetchTransfers(context.Background(), address, 100)

		if err != nil {
			t.Fatalf("FetchTransfers() returned unexpected error: %v", err)
		}
		if len(transfers) != 0 {
			t.Errorf("Expected self-transfer dropped, got %d transfers", len(transfers))
		}
	})

	t.Run("server failure is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()
		fetcher := importer.NewBitcoinFetcherWithBaseURL(server.URL)

		_, err := fetcher.FetchTransfers(context.Background(), address, 100)
		if err == nil {
			t.Fatal("Expected an error for a failed fetch")
		}
	})
}
