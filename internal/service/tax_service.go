package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/repository"
)

// TaxService assembles yearly tax reports from recorded realized P&L entries.
type TaxService struct {
	realizedRepo *repository.RealizedPnLRepository
}

// NewTaxService creates a new TaxService.
func NewTaxService(realizedRepo *repository.RealizedPnLRepository) *TaxService {
	return &TaxService{realizedRepo: realizedRepo}
}

// GenerateTaxReport aggregates every realized P&L entry of one calendar year,
// recorded under one accounting method, into per-symbol trade summaries.
// A year without matching entries yields an empty report, not an error.
func (s *TaxService) GenerateTaxReport(ctx context.Context, year int, method model.AccountingMethod) (*model.TaxReport, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidAccountingMethod, method)
	}

	entries, err := s.realizedRepo.ListForTaxYear(ctx, year, method)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string]*model.TaxReportTrade)
	for _, entry := range entries {
		trade, ok := bySymbol[entry.Symbol]
		if !ok {
			trade = &model.TaxReportTrade{Symbol: entry.Symbol}
			bySymbol[entry.Symbol] = trade
		}
		trade.AmountSold = trade.AmountSold.Add(entry.Amount)
		trade.CostBasis = trade.CostBasis.Add(entry.CostBasis)
		trade.SaleProceeds = trade.SaleProceeds.Add(entry.SaleValue)
		trade.GainLoss = trade.GainLoss.Add(entry.RealizedGainLoss)
		trade.TradeCount++
	}

	report := &model.TaxReport{
		Year:             year,
		AccountingMethod: method,
		Trades:           make([]model.TaxReportTrade, 0, len(bySymbol)),
	}
	for _, trade := range bySymbol {
		report.Trades = append(report.Trades, *trade)
		if trade.GainLoss.IsNegative() {
			report.TotalLosses = report.TotalLosses.Add(trade.GainLoss.Neg())
		} else {
			report.TotalGains = report.TotalGains.Add(trade.GainLoss)
		}
		report.TotalTrades += trade.TradeCount
	}
	sort.Slice(report.Trades, func(i, j int) bool {
		return report.Trades[i].Symbol < report.Trades[j].Symbol
	})
	report.NetGainLoss = report.TotalGains.Sub(report.TotalLosses)

	return report, nil
}

// YearsWithActivity returns the calendar years that have at least one
// realized P&L entry, newest first.
func (s *TaxService) YearsWithActivity(ctx context.Context) ([]int, error) {
	entries, err := s.realizedRepo.List(ctx, model.RealizedPnLFilter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, entry := range entries {
		year := entry.SaleDate.UTC().Year()
		if !seen[year] {
			seen[year] = true
			years = append(years, year)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years, nil
}
