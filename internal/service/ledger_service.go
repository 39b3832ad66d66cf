package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/matching"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/repository"
)

// RecordRequest describes a buy or sell to be appended to the ledger.
type RecordRequest struct {
	Symbol       string
	Type         model.TransactionType
	Amount       decimal.Decimal
	PricePerUnit decimal.Decimal
	Fee          decimal.Decimal
	FeeCurrency  string
	Exchange     string
	ExternalID   string
	Notes        string
	Timestamp    time.Time
	Method       model.AccountingMethod
}

// RecordResult is the outcome of recording a transaction. Matching is nil for
// buys; for sells it carries the lot consumptions and any unresolved
// (oversold) remainder.
type RecordResult struct {
	Transaction *model.Transaction
	Matching    *matching.Result
}

// LedgerService is the transaction recorder: it validates and appends
// buy/sell events, opens cost basis lots for buys, and drives the lot matcher
// for sells. Sell processing for a symbol is serialized by a per-symbol lock
// and applied in a single database transaction, so two sells can never
// consume the same lot quantity.
type LedgerService struct {
	db              *sql.DB
	transactionRepo *repository.TransactionRepository
	lotRepo         *repository.LotRepository
	realizedRepo    *repository.RealizedPnLRepository
	defaultMethod   model.AccountingMethod

	mu          sync.Mutex
	symbolLocks map[string]*sync.Mutex
}

// NewLedgerService creates a new LedgerService with the provided repository dependencies.
func NewLedgerService(
	db *sql.DB,
	transactionRepo *repository.TransactionRepository,
	lotRepo *repository.LotRepository,
	realizedRepo *repository.RealizedPnLRepository,
) *LedgerService {
	return &LedgerService{
		db:              db,
		transactionRepo: transactionRepo,
		lotRepo:         lotRepo,
		realizedRepo:    realizedRepo,
		defaultMethod:   model.MethodFIFO,
		symbolLocks:     make(map[string]*sync.Mutex),
	}
}

// symbolLock returns the mutex serializing writes for one symbol.
func (s *LedgerService) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.symbolLocks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		s.symbolLocks[symbol] = lock
	}
	return lock
}

func (s *LedgerService) validate(req *RecordRequest) error {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	if req.Symbol == "" {
		return fmt.Errorf("%w: symbol", apperrors.ErrMissingRequiredField)
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidTransactionType, req.Type)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidAmount, req.Amount)
	}
	if req.PricePerUnit.IsNegative() {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidPrice, req.PricePerUnit)
	}
	if req.Fee.IsNegative() {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidFee, req.Fee)
	}
	if req.Method == "" {
		req.Method = s.defaultMethod
	}
	if !req.Method.Valid() {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidAccountingMethod, req.Method)
	}
	if req.FeeCurrency == "" {
		req.FeeCurrency = "AUD"
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}
	return nil
}

// RecordTransaction validates and appends a buy or sell event.
//
// A BUY opens exactly one cost basis lot whose cost per unit folds in the
// acquisition fee. A SELL consumes open lots under the requested accounting
// method; the lot updates and realized P&L inserts commit as one atomic unit.
//
// When a sell exceeds the open lot coverage the matched portion is still
// committed and the returned error wraps apperrors.ErrOversell; the result
// carries the unresolved remainder so the caller decides how to treat it.
func (s *LedgerService) RecordTransaction(ctx context.Context, req RecordRequest) (*RecordResult, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	if req.ExternalID != "" {
		exists, err := s.transactionRepo.Exists(ctx, req.ExternalID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrDuplicateTransaction, req.ExternalID)
		}
	}

	transaction := &model.Transaction{
		Timestamp:    req.Timestamp,
		Symbol:       req.Symbol,
		Type:         req.Type,
		Amount:       req.Amount,
		PricePerUnit: req.PricePerUnit,
		TotalValue:   req.Amount.Mul(req.PricePerUnit),
		Fee:          req.Fee,
		FeeCurrency:  req.FeeCurrency,
		Exchange:     req.Exchange,
		ExternalID:   req.ExternalID,
		Notes:        req.Notes,
	}

	if req.Type == model.TransactionTypeBuy {
		if err := s.recordBuy(ctx, transaction); err != nil {
			return nil, err
		}
		return &RecordResult{Transaction: transaction}, nil
	}

	result, err := s.recordSell(ctx, transaction, req.Method)
	if err != nil {
		return nil, err
	}

	recordResult := &RecordResult{Transaction: transaction, Matching: result}
	if !result.FullyMatched() {
		log.Printf("oversell: %s %s exceeds open lots by %s",
			transaction.Symbol, transaction.Amount, result.Unresolved)
		return recordResult, fmt.Errorf("%w: %s %s unmatched",
			apperrors.ErrOversell, result.Unresolved, transaction.Symbol)
	}
	return recordResult, nil
}

func (s *LedgerService) recordBuy(ctx context.Context, transaction *model.Transaction) error {
	return repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		id, err := s.transactionRepo.Insert(ctx, tx, transaction)
		if err != nil {
			return err
		}
		transaction.ID = id

		totalCost := transaction.TotalValue.Add(transaction.Fee)
		lot := &model.CostBasisLot{
			TransactionID: id,
			Symbol:        transaction.Symbol,
			Amount:        transaction.Amount,
			CostPerUnit:   totalCost.Div(transaction.Amount),
			TotalCost:     totalCost,
			Fee:           transaction.Fee,
			PurchaseDate:  transaction.Timestamp,
		}
		if _, err := s.lotRepo.Insert(ctx, tx, lot); err != nil {
			return err
		}
		return nil
	})
}

func (s *LedgerService) recordSell(ctx context.Context, transaction *model.Transaction, method model.AccountingMethod) (*matching.Result, error) {
	strategy, err := matching.ForMethod(method)
	if err != nil {
		return nil, err
	}

	lock := s.symbolLock(transaction.Symbol)
	lock.Lock()
	defer lock.Unlock()

	var result matching.Result
	err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		id, err := s.transactionRepo.Insert(ctx, tx, transaction)
		if err != nil {
			return err
		}
		transaction.ID = id

		lots, err := s.lotRepo.GetOpenLots(ctx, tx, transaction.Symbol)
		if err != nil {
			return err
		}

		result = strategy.Match(lots, matching.Sell{
			Symbol: transaction.Symbol,
			Amount: transaction.Amount,
			Price:  transaction.PricePerUnit,
			Fee:    transaction.Fee,
			Date:   transaction.Timestamp,
		})

		for _, c := range result.Consumptions {
			entry := &model.RealizedPnL{
				SellTransactionID: id,
				LotID:             c.LotID,
				Symbol:            transaction.Symbol,
				Amount:            c.Amount,
				CostBasis:         c.CostBasis,
				SalePrice:         transaction.PricePerUnit,
				SaleValue:         c.SaleProceeds,
				RealizedGainLoss:  c.GainLoss,
				AccountingMethod:  strategy.Method(),
				SaleDate:          transaction.Timestamp,
			}
			if _, err := s.realizedRepo.Insert(ctx, tx, entry); err != nil {
				return err
			}

			if c.ClosesLot {
				if err := s.lotRepo.Close(ctx, tx, c.LotID, transaction.Timestamp); err != nil {
					return err
				}
			} else {
				if err := s.lotRepo.Reduce(ctx, tx, c.LotID, c.NewAmount, c.NewTotalCost); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// TransactionExists reports whether an external transaction ID has already
// been recorded. Importers call this to avoid double-recording the same
// on-chain transfer.
func (s *LedgerService) TransactionExists(ctx context.Context, externalID string) (bool, error) {
	return s.transactionRepo.Exists(ctx, externalID)
}

// GetTransaction retrieves a single transaction by ID.
func (s *LedgerService) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	return s.transactionRepo.Get(ctx, id)
}

// TransactionHistory retrieves transactions matching the filter, newest first.
func (s *LedgerService) TransactionHistory(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	if !filter.StartDate.IsZero() && !filter.EndDate.IsZero() && filter.EndDate.Before(filter.StartDate) {
		return nil, apperrors.ErrInvalidDateRange
	}
	return s.transactionRepo.List(ctx, filter)
}

// OpenLots lists the open cost basis lots, optionally restricted to a symbol.
func (s *LedgerService) OpenLots(ctx context.Context, symbol string) ([]model.CostBasisLot, error) {
	if symbol == "" {
		return s.lotRepo.GetAllOpenLots(ctx)
	}
	return s.lotRepo.GetOpenLots(ctx, s.db, symbol)
}
