package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RealizedPnL records one lot (or lot fragment) being closed by one sell
// transaction. Exactly one entry is written per (sell transaction, lot) pair
// touched during matching, and entries are immutable once written.
type RealizedPnL struct {
	ID                int64            `json:"id"`
	SellTransactionID int64            `json:"sellTransactionId"`
	LotID             int64            `json:"lotId"`
	Symbol            string           `json:"symbol"`
	Amount            decimal.Decimal  `json:"amount"`
	CostBasis         decimal.Decimal  `json:"costBasis"`
	SalePrice         decimal.Decimal  `json:"salePrice"`
	SaleValue         decimal.Decimal  `json:"saleValue"`
	RealizedGainLoss  decimal.Decimal  `json:"realizedGainLoss"`
	AccountingMethod  AccountingMethod `json:"accountingMethod"`
	SaleDate          time.Time        `json:"saleDate"`
}

// RealizedPnLFilter narrows realized P&L aggregation. Zero values mean
// "no filter" for that field.
type RealizedPnLFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
}

// RealizedPnLSummary is the aggregate over realized P&L entries matching a filter.
type RealizedPnLSummary struct {
	TotalRealizedPnL decimal.Decimal `json:"totalRealizedPnl"`
	TradeCount       int             `json:"tradeCount"`
}
