package model

import "github.com/shopspring/decimal"

// TaxReportTrade is the per-symbol aggregate of realized P&L entries within a
// tax year.
type TaxReportTrade struct {
	Symbol       string          `json:"symbol"`
	AmountSold   decimal.Decimal `json:"amountSold"`
	CostBasis    decimal.Decimal `json:"costBasis"`
	SaleProceeds decimal.Decimal `json:"saleProceeds"`
	GainLoss     decimal.Decimal `json:"gainLoss"`
	TradeCount   int             `json:"tradeCount"`
}

// TaxReport groups realized P&L for one calendar year under one accounting
// method. TotalLosses is a positive magnitude, so
// NetGainLoss = TotalGains - TotalLosses.
type TaxReport struct {
	Year             int              `json:"year"`
	AccountingMethod AccountingMethod `json:"accountingMethod"`
	Trades           []TaxReportTrade `json:"trades"`
	TotalGains       decimal.Decimal  `json:"totalGains"`
	TotalLosses      decimal.Decimal  `json:"totalLosses"`
	NetGainLoss      decimal.Decimal  `json:"netGainLoss"`
	TotalTrades      int              `json:"totalTrades"`
}
