package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
	"github.com/cryptofolio/backend/internal/testutil"
)

// TestLedgerService_RecordTransaction_Buy tests buy recording.
//
// WHY: Every buy must open exactly one cost basis lot whose cost per unit
// folds in the acquisition fee; that lot is the source of truth for all later
// gain calculations.
func TestLedgerService_RecordTransaction_Buy(t *testing.T) {
	t.Run("creates transaction and lot atomically", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)

		// Execute
		result := testutil.CreateBuy(t, db, "BTC", "0.5", "50000", "25")

		// Assert
		if result.Transaction.ID == 0 {
			t.Error("Expected transaction ID to be assigned")
		}
		testutil.AssertDecimalEqual(t, "total value", testutil.Dec(t, "25000"), result.Transaction.TotalValue)
		testutil.AssertRowCount(t, db, "transactions", 1)
		testutil.AssertRowCount(t, db, "cost_basis_lots", 1)

		svc := testutil.NewTestLedgerService(t, db)
		lots, err := svc.OpenLots(context.Background(), "BTC")
		if err != nil {
			t.Fatalf("OpenLots() returned unexpected error: %v", err)
		}
		if len(lots) != 1 {
			t.Fatalf("Expected 1 open lot, got %d", len(lots))
		}
		testutil.AssertDecimalEqual(t, "lot amount", testutil.Dec(t, "0.5"), lots[0].Amount)
		// (0.5*50000 + 25) / 0.5 = 50050, fee folded into the basis.
		testutil.AssertDecimalEqual(t, "cost per unit", testutil.Dec(t, "50050"), lots[0].CostPerUnit)
		testutil.AssertDecimalEqual(t, "total cost", testutil.Dec(t, "25025"), lots[0].TotalCost)
	})

	t.Run("normalizes symbol to uppercase", func(t *testing.T) {
		db := testutil.SetupTestDB(t)

		result := testutil.NewBuy(t).WithSymbol("btc ").Build(t, db)

		if result.Transaction.Symbol != "BTC" {
			t.Errorf("Expected symbol BTC, got %q", result.Transaction.Symbol)
		}
	})

	t.Run("rejects invalid requests", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		tests := []struct {
			name    string
			mutate  func(*service.RecordRequest)
			wantErr error
		}{
			{
				name:    "missing symbol",
				mutate:  func(r *service.RecordRequest) { r.Symbol = " " },
				wantErr: apperrors.ErrMissingRequiredField,
			},
			{
				name:    "invalid type",
				mutate:  func(r *service.RecordRequest) { r.Type = "TRANSFER" },
				wantErr: apperrors.ErrInvalidTransactionType,
			},
			{
				name:    "zero amount",
				mutate:  func(r *service.RecordRequest) { r.Amount = testutil.Dec(t, "0") },
				wantErr: apperrors.ErrInvalidAmount,
			},
			{
				name:    "negative amount",
				mutate:  func(r *service.RecordRequest) { r.Amount = testutil.Dec(t, "-1") },
				wantErr: apperrors.ErrInvalidAmount,
			},
			{
				name:    "negative price",
				mutate:  func(r *service.RecordRequest) { r.PricePerUnit = testutil.Dec(t, "-1") },
				wantErr: apperrors.ErrInvalidPrice,
			},
			{
				name:    "negative fee",
				mutate:  func(r *service.RecordRequest) { r.Fee = testutil.Dec(t, "-1") },
				wantErr: apperrors.ErrInvalidFee,
			},
			{
				name:    "unsupported method",
				mutate:  func(r *service.RecordRequest) { r.Method = "SPECIFIC_ID" },
				wantErr: apperrors.ErrInvalidAccountingMethod,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := service.RecordRequest{
					Symbol:       "BTC",
					Type:         model.TransactionTypeBuy,
					Amount:       testutil.Dec(t, "1"),
					PricePerUnit: testutil.Dec(t, "50000"),
				}
				tt.mutate(&req)

				_, err := svc.RecordTransaction(context.Background(), req)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
			})
		}

		// Nothing may have been written by the rejected requests.
		testutil.AssertRowCount(t, db, "transactions", 0)
	})
}

// TestLedgerService_RecordTransaction_Sell tests sell recording.
//
// WHY: A sell must atomically insert the transaction, write one realized P&L
// entry per consumed lot, and mutate the lots. Partial failure would corrupt
// the open-amount invariant that all P&L math depends on.
func TestLedgerService_RecordTransaction_Sell(t *testing.T) {
	t.Run("fifo sell realizes the documented gain", func(t *testing.T) {
		// Setup: the canonical two-lot fixture.
		db := testutil.SetupTestDB(t)
		testutil.NewBuy(t).WithAmount("0.5").WithPrice("50000").WithFee("25").On("2024-01-10").Build(t, db)
		testutil.NewBuy(t).WithAmount("0.3").WithPrice("45000").WithFee("15").On("2024-02-10").Build(t, db)

		// Execute
		result := testutil.NewSell(t).WithAmount("0.2").WithPrice("60000").WithFee("12").On("2024-03-01").Build(t, db)

		// Assert
		if result.Matching == nil {
			t.Fatal("Expected matching result for sell")
		}
		if result.Matching.Method != model.MethodFIFO {
			t.Errorf("Expected default method FIFO, got %s", result.Matching.Method)
		}
		if len(result.Matching.Consumptions) != 1 {
			t.Fatalf("Expected 1 consumption, got %d", len(result.Matching.Consumptions))
		}
		testutil.AssertDecimalEqual(t, "gain", testutil.Dec(t, "1978"), result.Matching.Consumptions[0].GainLoss)

		testutil.AssertRowCount(t, db, "realized_pnl", 1)

		// The first lot was reduced, not closed.
		svc := testutil.NewTestLedgerService(t, db)
		lots, err := svc.OpenLots(context.Background(), "BTC")
		if err != nil {
			t.Fatalf("OpenLots() returned unexpected error: %v", err)
		}
		if len(lots) != 2 {
			t.Fatalf("Expected 2 open lots, got %d", len(lots))
		}
		testutil.AssertDecimalEqual(t, "reduced lot amount", testutil.Dec(t, "0.3"), lots[0].Amount)
		testutil.AssertDecimalEqual(t, "reduced lot basis", testutil.Dec(t, "15015"), lots[0].TotalCost)
	})

	t.Run("lifo sell consumes the newest lot", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.NewBuy(t).WithAmount("0.5").WithPrice("50000").WithFee("25").On("2024-01-10").Build(t, db)
		testutil.NewBuy(t).WithAmount("0.3").WithPrice("45000").WithFee("15").On("2024-02-10").Build(t, db)

		result := testutil.NewSell(t).
			WithAmount("0.2").WithPrice("60000").WithFee("12").
			WithMethod(model.MethodLIFO).On("2024-03-01").
			Build(t, db)

		testutil.AssertDecimalEqual(t, "gain", testutil.Dec(t, "2978"), result.Matching.Consumptions[0].GainLoss)
	})

	t.Run("average cost sell realizes the blended gain", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.NewBuy(t).WithAmount("0.5").WithPrice("50000").WithFee("25").On("2024-01-10").Build(t, db)
		testutil.NewBuy(t).WithAmount("0.3").WithPrice("45000").WithFee("15").On("2024-02-10").Build(t, db)

		result := testutil.NewSell(t).
			WithAmount("0.2").WithPrice("60000").WithFee("12").
			WithMethod(model.MethodAverageCost).On("2024-03-01").
			Build(t, db)

		totalGain := testutil.Dec(t, "0")
		for _, c := range result.Matching.Consumptions {
			totalGain = totalGain.Add(c.GainLoss)
		}
		testutil.AssertDecimalEqual(t, "total gain", testutil.Dec(t, "2353"), totalGain)

		// One realized entry per touched lot, each referencing a real lot row.
		testutil.AssertRowCount(t, db, "realized_pnl", 2)
	})

	t.Run("selling a whole lot closes it", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.CreateBuy(t, db, "BTC", "1.0", "50000", "0")

		result := testutil.CreateSell(t, db, "BTC", "1.0", "60000", "0")

		if !result.Matching.Consumptions[0].ClosesLot {
			t.Error("Expected the lot to be closed")
		}

		svc := testutil.NewTestLedgerService(t, db)
		lots, err := svc.OpenLots(context.Background(), "BTC")
		if err != nil {
			t.Fatalf("OpenLots() returned unexpected error: %v", err)
		}
		if len(lots) != 0 {
			t.Errorf("Expected no open lots, got %d", len(lots))
		}
	})

	t.Run("oversell commits the matched portion and reports the remainder", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.CreateBuy(t, db, "BTC", "1.0", "50000", "0")

		result, err := testutil.NewSell(t).WithAmount("1.5").WithPrice("60000").BuildExpectingError(t, db)

		if !errors.Is(err, apperrors.ErrOversell) {
			t.Fatalf("Expected ErrOversell, got %v", err)
		}
		if result == nil || result.Matching == nil {
			t.Fatal("Expected result with matching details alongside the error")
		}
		testutil.AssertDecimalEqual(t, "unresolved", testutil.Dec(t, "0.5"), result.Matching.Unresolved)

		// The matched 1.0 was committed: transaction, realized entry, closed lot.
		testutil.AssertRowCount(t, db, "transactions", 2)
		testutil.AssertRowCount(t, db, "realized_pnl", 1)

		svc := testutil.NewTestLedgerService(t, db)
		lots, lotsErr := svc.OpenLots(context.Background(), "BTC")
		if lotsErr != nil {
			t.Fatalf("OpenLots() returned unexpected error: %v", lotsErr)
		}
		if len(lots) != 0 {
			t.Errorf("Expected the lot to be closed, got %d open", len(lots))
		}
	})

	t.Run("sells of different symbols do not touch each other's lots", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		testutil.CreateBuy(t, db, "BTC", "1.0", "50000", "0")
		testutil.CreateBuy(t, db, "ETH", "10", "3000", "0")

		testutil.CreateSell(t, db, "ETH", "4", "3500", "0")

		svc := testutil.NewTestLedgerService(t, db)
		btcLots, err := svc.OpenLots(context.Background(), "BTC")
		if err != nil {
			t.Fatalf("OpenLots() returned unexpected error: %v", err)
		}
		testutil.AssertDecimalEqual(t, "btc untouched", testutil.Dec(t, "1.0"), btcLots[0].Amount)

		ethLots, err := svc.OpenLots(context.Background(), "ETH")
		if err != nil {
			t.Fatalf("OpenLots() returned unexpected error: %v", err)
		}
		testutil.AssertDecimalEqual(t, "eth reduced", testutil.Dec(t, "6"), ethLots[0].Amount)
	})
}

// TestLedgerService_DuplicateExternalID tests import idempotency.
//
// WHY: Blockchain importers retry; the same transaction hash arriving twice
// must be rejected before it double-counts a lot.
func TestLedgerService_DuplicateExternalID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestLedgerService(t, db)

	hash := testutil.MakeTxHash()
	testutil.NewBuy(t).WithExternalID(hash).Build(t, db)

	exists, err := svc.TransactionExists(context.Background(), hash)
	if err != nil {
		t.Fatalf("TransactionExists() returned unexpected error: %v", err)
	}
	if !exists {
		t.Error("Expected recorded external ID to exist")
	}

	_, err = svc.RecordTransaction(context.Background(), service.RecordRequest{
		Symbol:       "BTC",
		Type:         model.TransactionTypeBuy,
		Amount:       testutil.Dec(t, "1"),
		PricePerUnit: testutil.Dec(t, "50000"),
		ExternalID:   hash,
	})
	if !errors.Is(err, apperrors.ErrDuplicateTransaction) {
		t.Errorf("Expected ErrDuplicateTransaction, got %v", err)
	}
	testutil.AssertRowCount(t, db, "transactions", 1)

	// Transactions without an external ID never collide.
	testutil.NewBuy(t).Build(t, db)
	testutil.NewBuy(t).Build(t, db)
	testutil.AssertRowCount(t, db, "transactions", 3)
}

// TestLedgerService_TransactionHistory tests history retrieval and filtering.
func TestLedgerService_TransactionHistory(t *testing.T) {
	t.Run("filters by symbol and type", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		testutil.NewBuy(t).WithSymbol("BTC").On("2024-01-01").Build(t, db)
		testutil.NewBuy(t).WithSymbol("ETH").WithAmount("10").WithPrice("3000").On("2024-02-01").Build(t, db)
		testutil.NewSell(t).WithSymbol("BTC").WithAmount("0.5").On("2024-03-01").Build(t, db)

		history, err := svc.TransactionHistory(context.Background(), model.TransactionFilter{Symbol: "BTC"})
		if err != nil {
			t.Fatalf("TransactionHistory() returned unexpected error: %v", err)
		}
		if len(history) != 2 {
			t.Fatalf("Expected 2 BTC transactions, got %d", len(history))
		}
		// Newest first.
		if history[0].Type != model.TransactionTypeSell {
			t.Errorf("Expected newest transaction first, got %s", history[0].Type)
		}

		sells, err := svc.TransactionHistory(context.Background(), model.TransactionFilter{Type: model.TransactionTypeSell})
		if err != nil {
			t.Fatalf("TransactionHistory() returned unexpected error: %v", err)
		}
		if len(sells) != 1 {
			t.Errorf("Expected 1 sell, got %d", len(sells))
		}
	})

	t.Run("rejects inverted date ranges", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		testutil.NewBuy(t).Build(t, db)

		_, err := svc.TransactionHistory(context.Background(), model.TransactionFilter{
			StartDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		if !errors.Is(err, apperrors.ErrInvalidDateRange) {
			t.Errorf("Expected ErrInvalidDateRange, got %v", err)
		}
	})

	t.Run("get by id maps missing rows to not found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		_, err := svc.GetTransaction(context.Background(), 9999)
		if !errors.Is(err, apperrors.ErrTransactionNotFound) {
			t.Errorf("Expected ErrTransactionNotFound, got %v", err)
		}
	})
}
