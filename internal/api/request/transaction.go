package request

import "github.com/shopspring/decimal"

// RecordTransactionRequest is the body of POST /api/transaction. Amounts are
// accepted as JSON numbers or strings; strings preserve full precision.
type RecordTransactionRequest struct {
	Symbol       string          `json:"symbol"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Fee          decimal.Decimal `json:"fee"`
	FeeCurrency  string          `json:"feeCurrency,omitempty"`
	Exchange     string          `json:"exchange,omitempty"`
	ExternalID   string          `json:"externalId,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Timestamp    string          `json:"timestamp,omitempty"`
	Method       string          `json:"method,omitempty"`
}
