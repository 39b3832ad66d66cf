package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/repository"
)

// SnapshotService persists point-in-time portfolio valuations and answers
// questions about historical performance from them.
type SnapshotService struct {
	snapshotRepo *repository.SnapshotRepository
	pnl          *PnLService
}

// NewSnapshotService creates a new SnapshotService.
func NewSnapshotService(snapshotRepo *repository.SnapshotRepository, pnl *PnLService) *SnapshotService {
	return &SnapshotService{snapshotRepo: snapshotRepo, pnl: pnl}
}

// SaveSnapshot values the current portfolio and writes one snapshot row.
// When open positions exist but no prices could be fetched, the snapshot is
// not written; a snapshot of an empty portfolio is still recorded so gaps in
// the history reflect outages rather than inactivity.
func (s *SnapshotService) SaveSnapshot(ctx context.Context) (*model.PortfolioSnapshot, error) {
	unrealized, err := s.pnl.UnrealizedPnLBatch(ctx, nil)
	if err != nil {
		return nil, err
	}

	costBasis, err := s.pnl.PortfolioCostBasis(ctx)
	if err != nil {
		return nil, err
	}
	if len(costBasis) > 0 && len(unrealized) == 0 {
		return nil, fmt.Errorf("%w: no prices for %d held symbols", apperrors.ErrPriceUnavailable, len(costBasis))
	}

	realized, err := s.pnl.RealizedPnL(ctx, model.RealizedPnLFilter{})
	if err != nil {
		return nil, err
	}

	totalValue := decimal.Zero
	totalCostBasis := decimal.Zero
	totalUnrealized := decimal.Zero
	for _, pnl := range unrealized {
		totalValue = totalValue.Add(pnl.CurrentValue)
		totalCostBasis = totalCostBasis.Add(pnl.TotalCostBasis)
		totalUnrealized = totalUnrealized.Add(pnl.UnrealizedGainLoss)
	}

	snap := &model.PortfolioSnapshot{
		ID:                 uuid.New().String(),
		Timestamp:          time.Now().UTC(),
		TotalValue:         totalValue,
		TotalCostBasis:     totalCostBasis,
		UnrealizedGainLoss: totalUnrealized,
		RealizedGainLoss:   realized.TotalRealizedPnL,
	}
	if err := s.snapshotRepo.Insert(ctx, snap); err != nil {
		return nil, err
	}
	log.Printf("saved portfolio snapshot %s: value %s", snap.ID, snap.TotalValue)
	return snap, nil
}

// Latest returns the most recent snapshot.
func (s *SnapshotService) Latest(ctx context.Context) (*model.PortfolioSnapshot, error) {
	return s.snapshotRepo.Latest(ctx)
}

// History returns the snapshots between start and end, oldest first.
func (s *SnapshotService) History(ctx context.Context, start, end time.Time) ([]model.PortfolioSnapshot, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, apperrors.ErrInvalidDateRange
	}
	return s.snapshotRepo.History(ctx, start, end)
}

// Returns compares the latest snapshot against the snapshot closest to the
// start of the lookback window. Needs at least one snapshot on each side of
// the window; otherwise apperrors.ErrSnapshotNotFound is returned.
func (s *SnapshotService) Returns(ctx context.Context, periodDays int) (*model.PortfolioReturns, error) {
	if periodDays <= 0 {
		return nil, fmt.Errorf("%w: period must be positive", apperrors.ErrInvalidDateRange)
	}

	latest, err := s.snapshotRepo.Latest(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := latest.Timestamp.AddDate(0, 0, -periodDays)
	start, err := s.snapshotRepo.ClosestBefore(ctx, cutoff)
	if errors.Is(err, apperrors.ErrSnapshotNotFound) {
		return nil, fmt.Errorf("%w: no snapshot at least %d days old", apperrors.ErrSnapshotNotFound, periodDays)
	}
	if err != nil {
		return nil, err
	}

	diff := latest.TotalValue.Sub(start.TotalValue)
	pct := decimal.Zero
	if start.TotalValue.IsPositive() {
		pct = diff.Div(start.TotalValue).Mul(decimal.NewFromInt(100))
	}

	return &model.PortfolioReturns{
		PeriodDays:    periodDays,
		StartValue:    start.TotalValue,
		EndValue:      latest.TotalValue,
		AbsoluteDiff:  diff,
		PercentChange: pct,
		StartDate:     start.Timestamp,
		EndDate:       latest.Timestamp,
	}, nil
}

// Cleanup deletes snapshots older than keepDays and reports how many were
// removed.
func (s *SnapshotService) Cleanup(ctx context.Context, keepDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)
	removed, err := s.snapshotRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("snapshot cleanup removed %d rows older than %s", removed, cutoff.Format("2006-01-02"))
	}
	return removed, nil
}
