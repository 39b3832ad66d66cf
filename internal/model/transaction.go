package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes buy and sell trades.
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "BUY"
	TransactionTypeSell TransactionType = "SELL"
)

// Valid reports whether the transaction type is one the ledger accepts.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeBuy || t == TransactionTypeSell
}

// AccountingMethod selects how a sell is matched against open cost basis lots.
type AccountingMethod string

const (
	MethodFIFO        AccountingMethod = "FIFO"
	MethodLIFO        AccountingMethod = "LIFO"
	MethodAverageCost AccountingMethod = "AVERAGE_COST"
)

// Valid reports whether the accounting method is supported by the lot matcher.
// SPECIFIC_ID is deliberately not supported.
func (m AccountingMethod) Valid() bool {
	switch m {
	case MethodFIFO, MethodLIFO, MethodAverageCost:
		return true
	}
	return false
}

// Transaction represents a single buy or sell trade. Transactions are
// immutable once recorded; they are the source records from which cost
// basis lots and realized P&L entries are derived.
type Transaction struct {
	ID           int64           `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Symbol       string          `json:"symbol"`
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	TotalValue   decimal.Decimal `json:"totalValue"`
	Fee          decimal.Decimal `json:"fee"`
	FeeCurrency  string          `json:"feeCurrency"`
	Exchange     string          `json:"exchange,omitempty"`
	ExternalID   string          `json:"externalId,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"createdAt,omitempty"`
}

// TransactionFilter narrows transaction history queries. Zero values mean
// "no filter" for that field.
type TransactionFilter struct {
	Symbol    string
	Type      TransactionType
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}
