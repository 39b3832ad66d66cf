package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
)

// BuyBuilder provides a fluent interface for recording test buys through the
// ledger, so cost basis lots are created exactly as production does it.
//
// Example usage:
//
//	// Simple creation with defaults
//	result := testutil.NewBuy(t).Build(t, db)
//
//	// Customized buy
//	result := testutil.NewBuy(t).
//	    WithSymbol("ETH").
//	    WithAmount("0.5").
//	    WithPrice("50000").
//	    WithFee("25").
//	    On("2024-01-15").
//	    Build(t, db)
type BuyBuilder struct {
	req service.RecordRequest
}

// NewBuy creates a BuyBuilder with sensible defaults.
func NewBuy(t *testing.T) *BuyBuilder {
	t.Helper()
	return &BuyBuilder{
		req: service.RecordRequest{
			Symbol:       "BTC",
			Type:         model.TransactionTypeBuy,
			Amount:       Dec(t, "1"),
			PricePerUnit: Dec(t, "50000"),
			Fee:          decimal.Zero,
			Timestamp:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// WithSymbol sets a custom symbol.
func (b *BuyBuilder) WithSymbol(symbol string) *BuyBuilder {
	b.req.Symbol = symbol
	return b
}

// WithAmount sets a custom amount.
func (b *BuyBuilder) WithAmount(amount string) *BuyBuilder {
	b.req.Amount = decimal.RequireFromString(amount)
	return b
}

// WithPrice sets a custom price per unit.
func (b *BuyBuilder) WithPrice(price string) *BuyBuilder {
	b.req.PricePerUnit = decimal.RequireFromString(price)
	return b
}

// WithFee sets a custom fee.
func (b *BuyBuilder) WithFee(fee string) *BuyBuilder {
	b.req.Fee = decimal.RequireFromString(fee)
	return b
}

// WithExternalID sets a custom external ID.
func (b *BuyBuilder) WithExternalID(id string) *BuyBuilder {
	b.req.ExternalID = id
	return b
}

// On sets the transaction date (YYYY-MM-DD).
func (b *BuyBuilder) On(date string) *BuyBuilder {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	b.req.Timestamp = t.UTC()
	return b
}

// At sets the full transaction timestamp.
func (b *BuyBuilder) At(timestamp time.Time) *BuyBuilder {
	b.req.Timestamp = timestamp
	return b
}

// Build records the buy through the ledger and returns the result.
func (b *BuyBuilder) Build(t *testing.T, db *sql.DB) *service.RecordResult {
	t.Helper()

	result, err := NewTestLedgerService(t, db).RecordTransaction(context.Background(), b.req)
	if err != nil {
		t.Fatalf("Failed to record test buy: %v", err)
	}
	return result
}

// SellBuilder provides a fluent interface for recording test sells through
// the ledger.
//
// Example usage:
//
//	result := testutil.NewSell(t).
//	    WithAmount("0.2").
//	    WithPrice("60000").
//	    WithMethod(model.MethodLIFO).
//	    Build(t, db)
type SellBuilder struct {
	req service.RecordRequest
}

// NewSell creates a SellBuilder with sensible defaults.
func NewSell(t *testing.T) *SellBuilder {
	t.Helper()
	return &SellBuilder{
		req: service.RecordRequest{
			Symbol:       "BTC",
			Type:         model.TransactionTypeSell,
			Amount:       Dec(t, "1"),
			PricePerUnit: Dec(t, "60000"),
			Fee:          decimal.Zero,
			Timestamp:    time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// WithSymbol sets a custom symbol.
func (b *SellBuilder) WithSymbol(symbol string) *SellBuilder {
	b.req.Symbol = symbol
	return b
}

// WithAmount sets a custom amount.
func (b *SellBuilder) WithAmount(amount string) *SellBuilder {
	b.req.Amount = decimal.RequireFromString(amount)
	return b
}

// WithPrice sets a custom price per unit.
func (b *SellBuilder) WithPrice(price string) *SellBuilder {
	b.req.PricePerUnit = decimal.RequireFromString(price)
	return b
}

// WithFee sets a custom fee.
func (b *SellBuilder) WithFee(fee string) *SellBuilder {
	b.req.Fee = decimal.RequireFromString(fee)
	return b
}

// WithMethod sets the accounting method used to match lots.
func (b *SellBuilder) WithMethod(method model.AccountingMethod) *SellBuilder {
	b.req.Method = method
	return b
}

// WithExternalID sets a custom external ID.
func (b *SellBuilder) WithExternalID(id string) *SellBuilder {
	b.req.ExternalID = id
	return b
}

// On sets the transaction date (YYYY-MM-DD).
func (b *SellBuilder) On(date string) *SellBuilder {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	b.req.Timestamp = t.UTC()
	return b
}

// Build records the sell through the ledger and returns the result.
// Fails the test on any error, including oversell; use BuildExpectingError
// for error-path tests.
func (b *SellBuilder) Build(t *testing.T, db *sql.DB) *service.RecordResult {
	t.Helper()

	result, err := NewTestLedgerService(t, db).RecordTransaction(context.Background(), b.req)
	if err != nil {
		t.Fatalf("Failed to record test sell: %v", err)
	}
	return result
}

// BuildExpectingError records the sell and returns both result and error.
func (b *SellBuilder) BuildExpectingError(t *testing.T, db *sql.DB) (*service.RecordResult, error) {
	t.Helper()

	return NewTestLedgerService(t, db).RecordTransaction(context.Background(), b.req)
}

// Convenience functions

// CreateBuy records a buy with the given parameters and default everything else.
//
// Example usage:
//
//	testutil.CreateBuy(t, db, "BTC", "0.5", "50000", "25")
func CreateBuy(t *testing.T, db *sql.DB, symbol, amount, price, fee string) *service.RecordResult {
	t.Helper()
	return NewBuy(t).WithSymbol(symbol).WithAmount(amount).WithPrice(price).WithFee(fee).Build(t, db)
}

// CreateSell records a FIFO sell with the given parameters.
//
// Example usage:
//
//	testutil.CreateSell(t, db, "BTC", "0.2", "60000", "12")
func CreateSell(t *testing.T, db *sql.DB, symbol, amount, price, fee string) *service.RecordResult {
	t.Helper()
	return NewSell(t).WithSymbol(symbol).WithAmount(amount).WithPrice(price).WithFee(fee).Build(t, db)
}
