package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is a point-in-time record of the portfolio's valuation,
// written by the snapshot job so historical performance can be charted
// without replaying the full ledger.
type PortfolioSnapshot struct {
	ID                 string          `json:"id"`
	Timestamp          time.Time       `json:"timestamp"`
	TotalValue         decimal.Decimal `json:"totalValue"`
	TotalCostBasis     decimal.Decimal `json:"totalCostBasis"`
	UnrealizedGainLoss decimal.Decimal `json:"unrealizedGainLoss"`
	RealizedGainLoss   decimal.Decimal `json:"realizedGainLoss"`
	CreatedAt          time.Time       `json:"createdAt,omitempty"`
}

// PortfolioReturns compares the latest snapshot with the closest snapshot to
// the start of a lookback window.
type PortfolioReturns struct {
	PeriodDays    int             `json:"periodDays"`
	StartValue    decimal.Decimal `json:"startValue"`
	EndValue      decimal.Decimal `json:"endValue"`
	AbsoluteDiff  decimal.Decimal `json:"absoluteDiff"`
	PercentChange decimal.Decimal `json:"percentChange"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
}
