package validation

import (
	"fmt"
	"strings"

	"github.com/cryptofolio/backend/internal/api/request"
	"github.com/cryptofolio/backend/internal/model"
)

// ValidateRecordTransaction validates a transaction record request.
// Checks all required fields and validates their formats and constraints.
//
// Required fields:
//   - symbol: Non-empty ticker symbol
//   - type: Must be BUY or SELL (case-insensitive)
//   - amount: Must be positive
//   - pricePerUnit: Must be non-negative
//
// Optional fields (validated if provided):
//   - fee: Must be non-negative
//   - timestamp: Must be in an accepted layout
//   - method: Must be FIFO, LIFO, or AVERAGE_COST
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateRecordTransaction(req request.RecordTransactionRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = "symbol is required"
	}

	txType := model.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if strings.TrimSpace(req.Type) == "" {
		errors["type"] = "type is required"
	} else if !txType.Valid() {
		errors["type"] = fmt.Sprintf("invalid type: %s", req.Type)
	}

	if !req.Amount.IsPositive() {
		errors["amount"] = "amount must be positive"
	}

	if req.PricePerUnit.IsNegative() {
		errors["pricePerUnit"] = "pricePerUnit cannot be negative"
	}

	if req.Fee.IsNegative() {
		errors["fee"] = "fee cannot be negative"
	}

	if req.Timestamp != "" {
		if _, err := ParseTimestamp(req.Timestamp); err != nil {
			errors["timestamp"] = err.Error()
		}
	}

	if req.Method != "" {
		method := model.AccountingMethod(strings.ToUpper(strings.TrimSpace(req.Method)))
		if !method.Valid() {
			errors["method"] = fmt.Sprintf("invalid method: %s", req.Method)
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

// ValidateRunImport validates an import run request.
//
// Required fields:
//   - wallets: At least one entry, each with a symbol and address
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateRunImport(req request.RunImportRequest) error {
	errors := make(map[string]string)

	if len(req.Wallets) == 0 {
		errors["wallets"] = "at least one wallet is required"
	}
	for i, wallet := range req.Wallets {
		if strings.TrimSpace(wallet.Symbol) == "" {
			errors[fmt.Sprintf("wallets[%d].symbol", i)] = "symbol is required"
		}
		if strings.TrimSpace(wallet.Address) == "" {
			errors[fmt.Sprintf("wallets[%d].address", i)] = "address is required"
		}
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
