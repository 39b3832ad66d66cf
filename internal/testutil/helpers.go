package testutil

import (
	"context"
	"database/sql"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptofolio/backend/internal/repository"
	"github.com/cryptofolio/backend/internal/service"
)

func NewTestLedgerService(t *testing.T, db *sql.DB) *service.LedgerService {
	t.Helper()

	transactionRepo := repository.NewTransactionRepository(db)
	lotRepo := repository.NewLotRepository(db)
	realizedRepo := repository.NewRealizedPnLRepository(db)

	return service.NewLedgerService(
		db,
		transactionRepo,
		lotRepo,
		realizedRepo,
	)
}

func NewTestPnLService(t *testing.T, db *sql.DB, prices service.PriceFeed) *service.PnLService {
	t.Helper()

	lotRepo := repository.NewLotRepository(db)
	realizedRepo := repository.NewRealizedPnLRepository(db)

	if prices == nil {
		prices = &StaticPriceFeed{}
	}
	return service.NewPnLService(
		lotRepo,
		realizedRepo,
		prices,
	)
}

func NewTestTaxService(t *testing.T, db *sql.DB) *service.TaxService {
	t.Helper()

	return service.NewTaxService(repository.NewRealizedPnLRepository(db))
}

func NewTestSnapshotService(t *testing.T, db *sql.DB, prices service.PriceFeed) *service.SnapshotService {
	t.Helper()

	snapshotRepo := repository.NewSnapshotRepository(db)
	return service.NewSnapshotService(snapshotRepo, NewTestPnLService(t, db, prices))
}

// StaticPriceFeed is a PriceFeed returning fixed prices. A nil Prices map
// means every requested symbol is unpriced; a non-nil Err fails every call.
type StaticPriceFeed struct {
	Prices map[string]decimal.Decimal
	Err    error
	Calls  int
}

// CurrentPrices returns the configured prices for the requested symbols.
func (f *StaticPriceFeed) CurrentPrices(_ context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	prices := make(map[string]decimal.Decimal, len(symbols))
	for _, symbol := range symbols {
		if price, ok := f.Prices[symbol]; ok {
			prices[symbol] = price
		}
	}
	return prices, nil
}

// MakeID generates a UUID string for use in tests.
func MakeID() string {
	return uuid.New().String()
}

// MakeTxHash generates a unique fake transaction hash for testing.
//
// Example usage:
//
//	hash := testutil.MakeTxHash()
//	// Returns: "tx-1A2B3C4D5E6F7A8B"
func MakeTxHash() string {
	return "tx-" + randomAlphanumeric(16)
}

// Dec parses a decimal literal, failing the test on malformed input.
//
// Example usage:
//
//	amount := testutil.Dec(t, "0.5")
func Dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("invalid decimal literal %q: %v", value, err)
	}
	return d
}

// AssertDecimalEqual asserts two decimals are numerically equal.
//
// Example usage:
//
//	testutil.AssertDecimalEqual(t, "gain", testutil.Dec(t, "1978"), result.GainLoss)
func AssertDecimalEqual(t *testing.T, name string, expected, actual decimal.Decimal) {
	t.Helper()

	if !expected.Equal(actual) {
		t.Errorf("%s: expected %s, got %s", name, expected, actual)
	}
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

// Common test constants

var (
	// CommonSymbols contains frequently used crypto ticker symbols
	CommonSymbols = []string{"BTC", "ETH", "XRP", "SOL", "LINK"}

	// CommonExchanges contains frequently used exchange names
	CommonExchanges = []string{"Coinbase", "Kraken", "Binance", "Independent Reserve"}
)

// RandomSymbol returns a random symbol from CommonSymbols.
func RandomSymbol() string {
	//nolint:gosec // G404: Using math/rand for test data generation is acceptable
	return CommonSymbols[rand.Intn(len(CommonSymbols))]
}

// RandomExchange returns a random exchange from CommonExchanges.
func RandomExchange() string {
	//nolint:gosec // G404: Using math/rand for test data generation is acceptable
	return CommonExchanges[rand.Intn(len(CommonExchanges))]
}
