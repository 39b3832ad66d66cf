package model

import "github.com/shopspring/decimal"

// UnrealizedPnL is the paper gain/loss on the open lots of one symbol against
// a live price. It is derived on demand and never persisted, since the price
// it depends on is not authoritative.
type UnrealizedPnL struct {
	Symbol              string          `json:"symbol"`
	CurrentAmount       decimal.Decimal `json:"currentAmount"`
	AverageCostBasis    decimal.Decimal `json:"averageCostBasis"`
	CurrentPrice        decimal.Decimal `json:"currentPrice"`
	TotalCostBasis      decimal.Decimal `json:"totalCostBasis"`
	CurrentValue        decimal.Decimal `json:"currentValue"`
	UnrealizedGainLoss  decimal.Decimal `json:"unrealizedGainLoss"`
	UnrealizedGainLossP decimal.Decimal `json:"unrealizedGainLossPct"`
}

// PortfolioPnLSummary composes the live unrealized picture with realized
// totals into one report.
type PortfolioPnLSummary struct {
	UnrealizedPnL           map[string]UnrealizedPnL `json:"unrealizedPnl"`
	RealizedPnL             RealizedPnLSummary       `json:"realizedPnl"`
	TotalUnrealizedGainLoss decimal.Decimal          `json:"totalUnrealizedGainLoss"`
	TotalRealizedGainLoss   decimal.Decimal          `json:"totalRealizedGainLoss"`
	TotalGainLoss           decimal.Decimal          `json:"totalGainLoss"`
	TotalCostBasis          decimal.Decimal          `json:"totalCostBasis"`
	TotalCurrentValue       decimal.Decimal          `json:"totalCurrentValue"`
	TotalReturnPct          decimal.Decimal          `json:"totalReturnPct"`
}
