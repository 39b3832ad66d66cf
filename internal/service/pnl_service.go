package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/repository"
)

// PriceFeed supplies live prices for a batch of symbols in one round trip.
// The returned map may be partial (rate limiting, unknown symbols); absent
// symbols must simply be omitted, never given a fabricated price.
type PriceFeed interface {
	CurrentPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
}

// PnLService computes unrealized P&L from open lots plus a live price, and
// aggregates realized P&L entries. It only reads the ledger.
type PnLService struct {
	lotRepo      *repository.LotRepository
	realizedRepo *repository.RealizedPnLRepository
	prices       PriceFeed
}

// NewPnLService creates a new PnLService with the provided dependencies.
func NewPnLService(
	lotRepo *repository.LotRepository,
	realizedRepo *repository.RealizedPnLRepository,
	prices PriceFeed,
) *PnLService {
	return &PnLService{
		lotRepo:      lotRepo,
		realizedRepo: realizedRepo,
		prices:       prices,
	}
}

// UnrealizedPnL aggregates the open lots of one symbol against the given
// price. Returns apperrors.ErrNoOpenLots when the symbol holds nothing.
func (s *PnLService) UnrealizedPnL(ctx context.Context, symbol string, currentPrice decimal.Decimal) (*model.UnrealizedPnL, error) {
	amount, costBasis, err := s.lotRepo.OpenPosition(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoOpenLots, symbol)
	}

	value := amount.Mul(currentPrice)
	gainLoss := value.Sub(costBasis)
	gainLossPct := decimal.Zero
	if costBasis.IsPositive() {
		gainLossPct = gainLoss.Div(costBasis).Mul(decimal.NewFromInt(100))
	}

	return &model.UnrealizedPnL{
		Symbol:              symbol,
		CurrentAmount:       amount,
		AverageCostBasis:    costBasis.Div(amount),
		CurrentPrice:        currentPrice,
		TotalCostBasis:      costBasis,
		CurrentValue:        value,
		UnrealizedGainLoss:  gainLoss,
		UnrealizedGainLossP: gainLossPct,
	}, nil
}

// UnrealizedPnLBatch computes unrealized P&L for the given symbols, fetching
// all prices in a single price-feed round trip. A nil symbol list means every
// symbol with open lots. Symbols whose price could not be obtained are
// omitted from the result.
func (s *PnLService) UnrealizedPnLBatch(ctx context.Context, symbols []string) (map[string]model.UnrealizedPnL, error) {
	if symbols == nil {
		open, err := s.lotRepo.OpenSymbols(ctx)
		if err != nil {
			return nil, err
		}
		symbols = open
	}
	if len(symbols) == 0 {
		return map[string]model.UnrealizedPnL{}, nil
	}

	prices, err := s.prices.CurrentPrices(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrPriceUnavailable, err)
	}

	results := make(map[string]model.UnrealizedPnL)
	for _, symbol := range symbols {
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		pnl, err := s.UnrealizedPnL(ctx, symbol, price)
		if errors.Is(err, apperrors.ErrNoOpenLots) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results[symbol] = *pnl
	}
	return results, nil
}

// RealizedPnL sums recorded realized P&L entries matching the filter.
func (s *PnLService) RealizedPnL(ctx context.Context, filter model.RealizedPnLFilter) (model.RealizedPnLSummary, error) {
	if !filter.StartDate.IsZero() && !filter.EndDate.IsZero() && filter.EndDate.Before(filter.StartDate) {
		return model.RealizedPnLSummary{}, apperrors.ErrInvalidDateRange
	}
	return s.realizedRepo.Sum(ctx, filter)
}

// PortfolioCostBasis summarizes the open lots of every held symbol. This view
// needs no live price and therefore always succeeds while storage is healthy.
func (s *PnLService) PortfolioCostBasis(ctx context.Context) (map[string]model.CostBasisSummary, error) {
	return s.lotRepo.CostBasisBySymbol(ctx)
}

// PortfolioPnLSummary composes unrealized and realized P&L into one report.
// Price-feed failures degrade the unrealized side to empty rather than
// failing the whole summary; realized figures never depend on live prices.
func (s *PnLService) PortfolioPnLSummary(ctx context.Context, symbols []string) (*model.PortfolioPnLSummary, error) {
	unrealized, err := s.UnrealizedPnLBatch(ctx, symbols)
	if errors.Is(err, apperrors.ErrPriceUnavailable) {
		log.Printf("price feed unavailable, returning cost-basis-only summary: %v", err)
		unrealized = map[string]model.UnrealizedPnL{}
	} else if err != nil {
		return nil, err
	}

	realized, err := s.RealizedPnL(ctx, model.RealizedPnLFilter{})
	if err != nil {
		return nil, err
	}

	totalUnrealized := decimal.Zero
	totalCostBasis := decimal.Zero
	totalValue := decimal.Zero
	for _, pnl := range unrealized {
		totalUnrealized = totalUnrealized.Add(pnl.UnrealizedGainLoss)
		totalCostBasis = totalCostBasis.Add(pnl.TotalCostBasis)
		totalValue = totalValue.Add(pnl.CurrentValue)
	}

	totalReturnPct := decimal.Zero
	if totalCostBasis.IsPositive() {
		totalReturnPct = totalValue.Sub(totalCostBasis).Div(totalCostBasis).Mul(decimal.NewFromInt(100))
	}

	return &model.PortfolioPnLSummary{
		UnrealizedPnL:           unrealized,
		RealizedPnL:             realized,
		TotalUnrealizedGainLoss: totalUnrealized,
		TotalRealizedGainLoss:   realized.TotalRealizedPnL,
		TotalGainLoss:           totalUnrealized.Add(realized.TotalRealizedPnL),
		TotalCostBasis:          totalCostBasis,
		TotalCurrentValue:       totalValue,
		TotalReturnPct:          totalReturnPct,
	}, nil
}
