// Package importer pulls on-chain transfer history into the ledger. Each
// configured wallet is fetched concurrently; incoming transfers become buys
// and outgoing transfers become sells, valued at the historical price on the
// transfer date.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
)

// Transfer is one on-chain movement touching a tracked wallet. Amount is
// signed: positive for incoming, negative for outgoing.
type Transfer struct {
	TxHash        string
	Amount        decimal.Decimal
	Timestamp     time.Time
	Confirmations int
}

// ChainFetcher retrieves transfer history for one chain.
type ChainFetcher interface {
	// Symbol is the ticker of the chain's native asset.
	Symbol() string
	// FetchTransfers returns up to limit transfers for the address,
	// oldest first.
	FetchTransfers(ctx context.Context, address string, limit int) ([]Transfer, error)
}

// PriceSource supplies historical prices for valuing imported transfers.
type PriceSource interface {
	HistoricalPrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error)
}

// WalletConfig identifies one wallet to import.
type WalletConfig struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

// WalletReport summarizes the import of a single wallet.
type WalletReport struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Total    int    `json:"total"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Errors   int    `json:"errors"`
	Error    string `json:"error,omitempty"`
}

// ImportReport is the outcome of one import run across all wallets.
type ImportReport struct {
	RunID     string         `json:"runId"`
	StartedAt time.Time      `json:"startedAt"`
	Wallets   []WalletReport `json:"wallets"`
	Total     int            `json:"total"`
	Imported  int            `json:"imported"`
	Skipped   int            `json:"skipped"`
	Errors    int            `json:"errors"`
}

// Importer drives import runs against the ledger.
type Importer struct {
	ledger           *service.LedgerService
	prices           PriceSource
	fetchers         map[string]ChainFetcher
	fetchLimit       int
	minConfirmations int
}

// NewImporter creates an Importer. fetchers is keyed by ticker symbol.
func NewImporter(ledger *service.LedgerService, prices PriceSource, fetchers map[string]ChainFetcher) *Importer {
	return &Importer{
		ledger:           ledger,
		prices:           prices,
		fetchers:         fetchers,
		fetchLimit:       100,
		minConfirmations: 1,
	}
}

// Run imports the transfer history of every configured wallet. Wallets are
// fetched concurrently; a wallet whose fetch fails is reported but does not
// abort the run. Transfers already recorded (matched by transaction hash)
// are skipped, so runs are idempotent.
func (im *Importer) Run(ctx context.Context, wallets []WalletConfig) (*ImportReport, error) {
	report := &ImportReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	log.Printf("import run %s: %d wallets", report.RunID, len(wallets))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, wallet := range wallets {
		wallet := wallet
		g.Go(func() error {
			wr := im.importWallet(gctx, wallet)
			mu.Lock()
			report.Wallets = append(report.Wallets, wr)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Wallets, func(i, j int) bool {
		if report.Wallets[i].Symbol != report.Wallets[j].Symbol {
			return report.Wallets[i].Symbol < report.Wallets[j].Symbol
		}
		return report.Wallets[i].Address < report.Wallets[j].Address
	})
	for _, wr := range report.Wallets {
		report.Total += wr.Total
		report.Imported += wr.Imported
		report.Skipped += wr.Skipped
		report.Errors += wr.Errors
	}
	log.Printf("import run %s done: %d imported, %d skipped, %d errors",
		report.RunID, report.Imported, report.Skipped, report.Errors)
	return report, nil
}

func (im *Importer) importWallet(ctx context.Context, wallet WalletConfig) WalletReport {
	wr := WalletReport{Symbol: wallet.Symbol, Address: wallet.Address}

	fetcher, ok := im.fetchers[wallet.Symbol]
	if !ok {
		wr.Error = fmt.Sprintf("no fetcher for symbol %s", wallet.Symbol)
		return wr
	}

	transfers, err := fetcher.FetchTransfers(ctx, wallet.Address, im.fetchLimit)
	if err != nil {
		wr.Error = err.Error()
		return wr
	}
	wr.Total = len(transfers)

	for _, transfer := range transfers {
		switch im.importTransfer(ctx, wallet.Symbol, wallet.Address, transfer) {
		case importOutcomeImported:
			wr.Imported++
		case importOutcomeSkipped:
			wr.Skipped++
		case importOutcomeError:
			wr.Errors++
		}
	}
	return wr
}

type importOutcome int

const (
	importOutcomeImported importOutcome = iota
	importOutcomeSkipped
	importOutcomeError
)

func (im *Importer) importTransfer(ctx context.Context, symbol, address string, transfer Transfer) importOutcome {
	if transfer.TxHash == "" || transfer.Timestamp.IsZero() || transfer.Amount.IsZero() {
		return importOutcomeSkipped
	}
	if transfer.Confirmations < im.minConfirmations {
		return importOutcomeSkipped
	}

	exists, err := im.ledger.TransactionExists(ctx, transfer.TxHash)
	if err != nil {
		log.Printf("import %s %s: exists check failed: %v", symbol, transfer.TxHash, err)
		return importOutcomeError
	}
	if exists {
		return importOutcomeSkipped
	}

	price, err := im.prices.HistoricalPrice(ctx, symbol, transfer.Timestamp)
	if err != nil {
		log.Printf("import %s %s: no price for %s: %v",
			symbol, transfer.TxHash, transfer.Timestamp.Format("2006-01-02"), err)
		return importOutcomeSkipped
	}

	txType := model.TransactionTypeBuy
	direction := "incoming"
	if transfer.Amount.IsNegative() {
		txType = model.TransactionTypeSell
		direction = "outgoing"
	}

	_, err = im.ledger.RecordTransaction(ctx, service.RecordRequest{
		Symbol:       symbol,
		Type:         txType,
		Amount:       transfer.Amount.Abs(),
		PricePerUnit: price,
		Exchange:     "blockchain",
		ExternalID:   transfer.TxHash,
		Notes:        fmt.Sprintf("Imported %s transfer for %s", direction, address),
		Timestamp:    transfer.Timestamp,
	})
	if errors.Is(err, apperrors.ErrOversell) {
		// The matched portion was committed; the unresolved remainder is
		// already flagged in the ledger's logs.
		return importOutcomeImported
	}
	if errors.Is(err, apperrors.ErrDuplicateTransaction) {
		return importOutcomeSkipped
	}
	if err != nil {
		log.Printf("import %s %s: record failed: %v", symbol, transfer.TxHash, err)
		return importOutcomeError
	}
	return importOutcomeImported
}
