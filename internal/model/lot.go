package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostBasisLot is the not-yet-disposed remainder of a single buy transaction.
// Exactly one lot is opened per BUY. A sell reduces Amount and TotalCost
// proportionally; when Amount reaches zero the lot is closed and kept as the
// audit trail for the realized P&L entries that reference it. Lots are never
// deleted and a closed lot never reopens.
type CostBasisLot struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transactionId"`
	Symbol        string          `json:"symbol"`
	Amount        decimal.Decimal `json:"amount"`
	CostPerUnit   decimal.Decimal `json:"costPerUnit"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	Fee           decimal.Decimal `json:"fee"`
	PurchaseDate  time.Time       `json:"purchaseDate"`
	IsClosed      bool            `json:"isClosed"`
	ClosedDate    *time.Time      `json:"closedDate,omitempty"`
}

// CostBasisSummary aggregates the open lots of one symbol.
type CostBasisSummary struct {
	Symbol         string          `json:"symbol"`
	Amount         decimal.Decimal `json:"amount"`
	TotalCostBasis decimal.Decimal `json:"totalCostBasis"`
	AvgCostPerUnit decimal.Decimal `json:"avgCostPerUnit"`
}
