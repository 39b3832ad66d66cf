// Package matching implements the accounting-method strategies that match a
// sell against open cost basis lots. Strategies are pure: they operate on
// in-memory lot slices and report the mutations to apply, so the arithmetic
// is testable without a database and the repository layer can apply the
// outcome atomically.
package matching

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/backend/internal/apperrors"
	"github.com/cryptofolio/backend/internal/model"
)

// Sell describes the disposal being matched.
type Sell struct {
	Symbol string
	Amount decimal.Decimal
	Price  decimal.Decimal
	Fee    decimal.Decimal
	Date   time.Time
}

// Consumption records one open lot (or lot fragment) consumed by a sell,
// together with the lot mutation the ledger must apply.
type Consumption struct {
	LotID         int64
	Amount        decimal.Decimal
	CostPerUnit   decimal.Decimal
	CostBasis     decimal.Decimal
	SaleProceeds  decimal.Decimal
	FeeAllocation decimal.Decimal
	GainLoss      decimal.Decimal

	// Lot state after consumption. ClosesLot implies NewAmount is zero.
	ClosesLot    bool
	NewAmount    decimal.Decimal
	NewTotalCost decimal.Decimal
}

// Result is the outcome of matching one sell. Unresolved is positive when the
// sell exceeded the open lot coverage; the consumed portion is still valid and
// the caller decides how to treat the remainder.
type Result struct {
	Method       model.AccountingMethod
	Consumptions []Consumption
	Unresolved   decimal.Decimal
}

// FullyMatched reports whether the whole sell amount was covered by open lots.
func (r Result) FullyMatched() bool {
	return !r.Unresolved.IsPositive()
}

// ConsumedAmount returns the total lot quantity consumed by the sell.
func (r Result) ConsumedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, c := range r.Consumptions {
		total = total.Add(c.Amount)
	}
	return total
}

// Strategy matches a sell against the open lots of a symbol. Implementations
// must not mutate the input slice.
type Strategy interface {
	Method() model.AccountingMethod
	Match(lots []model.CostBasisLot, sell Sell) Result
}

// ForMethod returns the strategy implementing the given accounting method.
func ForMethod(method model.AccountingMethod) (Strategy, error) {
	switch method {
	case model.MethodFIFO:
		return FIFO{}, nil
	case model.MethodLIFO:
		return LIFO{}, nil
	case model.MethodAverageCost:
		return AverageCost{}, nil
	}
	return nil, apperrors.ErrInvalidAccountingMethod
}

// consumeOrdered walks lots in the given order, taking
// min(remaining, lot amount) from each until the sell is satisfied or the
// lots run out. Fees are allocated pro rata by consumed amount; the final
// allocation of a fully matched sell absorbs any division remainder so the
// allocations sum exactly to the sell fee.
func consumeOrdered(lots []model.CostBasisLot, sell Sell, method model.AccountingMethod) Result {
	result := Result{Method: method}

	remaining := sell.Amount
	allocatedFee := decimal.Zero

	for _, lot := range lots {
		if !remaining.IsPositive() {
			break
		}

		consumed := decimal.Min(remaining, lot.Amount)
		remaining = remaining.Sub(consumed)

		var feeAlloc decimal.Decimal
		if remaining.IsZero() && sell.Fee.IsPositive() {
			feeAlloc = sell.Fee.Sub(allocatedFee)
		} else {
			feeAlloc = sell.Fee.Mul(consumed).Div(sell.Amount)
		}
		allocatedFee = allocatedFee.Add(feeAlloc)

		costBasis := consumed.Mul(lot.CostPerUnit)
		proceeds := consumed.Mul(sell.Price)

		c := Consumption{
			LotID:         lot.ID,
			Amount:        consumed,
			CostPerUnit:   lot.CostPerUnit,
			CostBasis:     costBasis,
			SaleProceeds:  proceeds,
			FeeAllocation: feeAlloc,
			GainLoss:      proceeds.Sub(costBasis).Sub(feeAlloc),
		}

		if consumed.GreaterThanOrEqual(lot.Amount) {
			c.ClosesLot = true
			c.NewAmount = decimal.Zero
			c.NewTotalCost = decimal.Zero
		} else {
			c.NewAmount = lot.Amount.Sub(consumed)
			c.NewTotalCost = c.NewAmount.Mul(lot.CostPerUnit)
		}

		result.Consumptions = append(result.Consumptions, c)
	}

	result.Unresolved = remaining
	return result
}
