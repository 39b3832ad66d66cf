package matching

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cryptofolio/backend/internal/model"
)

// AverageCost treats all open lots of a symbol as one pool whose cost per
// unit is the weighted average over the lots. A sell consumes the pool at the
// blended cost per unit and is reconciled back to the underlying lots
// pro rata, so every lot keeps its audit trail and the open-amount invariant
// survives.
type AverageCost struct{}

// Method returns the accounting method this strategy implements.
func (AverageCost) Method() model.AccountingMethod { return model.MethodAverageCost }

// Match consumes the blended pool and spreads the consumption across the
// underlying lots proportionally to their remaining amounts. The final lot
// absorbs division remainders so consumed amounts and cost basis sum exactly.
func (a AverageCost) Match(lots []model.CostBasisLot, sell Sell) Result {
	result := Result{Method: a.Method()}

	poolAmount := decimal.Zero
	poolCost := decimal.Zero
	for _, lot := range lots {
		poolAmount = poolAmount.Add(lot.Amount)
		poolCost = poolCost.Add(lot.TotalCost)
	}

	if !poolAmount.IsPositive() {
		result.Unresolved = sell.Amount
		return result
	}

	poolCostPerUnit := poolCost.Div(poolAmount)
	consumed := decimal.Min(sell.Amount, poolAmount)
	result.Unresolved = sell.Amount.Sub(consumed)
	fraction := consumed.Div(poolAmount)
	totalCostBasis := consumed.Mul(poolCostPerUnit)

	ordered := make([]model.CostBasisLot, len(lots))
	copy(ordered, lots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].PurchaseDate.Equal(ordered[j].PurchaseDate) {
			return ordered[i].PurchaseDate.Before(ordered[j].PurchaseDate)
		}
		return ordered[i].ID < ordered[j].ID
	})

	closesAll := consumed.Equal(poolAmount)
	allocatedAmount := decimal.Zero
	allocatedBasis := decimal.Zero
	allocatedFee := decimal.Zero

	for i, lot := range ordered {
		last := i == len(ordered)-1

		var fromLot, costBasis, feeAlloc decimal.Decimal
		if last {
			// Remainders land on the final lot so the totals are exact.
			fromLot = consumed.Sub(allocatedAmount)
			costBasis = totalCostBasis.Sub(allocatedBasis)
			if result.Unresolved.IsZero() {
				feeAlloc = sell.Fee.Sub(allocatedFee)
			} else {
				feeAlloc = sell.Fee.Mul(fromLot).Div(sell.Amount)
			}
		} else {
			fromLot = lot.Amount.Mul(fraction)
			costBasis = fromLot.Mul(poolCostPerUnit)
			feeAlloc = sell.Fee.Mul(fromLot).Div(sell.Amount)
		}
		allocatedAmount = allocatedAmount.Add(fromLot)
		allocatedBasis = allocatedBasis.Add(costBasis)
		allocatedFee = allocatedFee.Add(feeAlloc)

		proceeds := fromLot.Mul(sell.Price)

		c := Consumption{
			LotID:         lot.ID,
			Amount:        fromLot,
			CostPerUnit:   poolCostPerUnit,
			CostBasis:     costBasis,
			SaleProceeds:  proceeds,
			FeeAllocation: feeAlloc,
			GainLoss:      proceeds.Sub(costBasis).Sub(feeAlloc),
		}

		if closesAll {
			c.ClosesLot = true
			c.NewAmount = decimal.Zero
			c.NewTotalCost = decimal.Zero
		} else {
			c.NewAmount = lot.Amount.Sub(fromLot)
			c.NewTotalCost = c.NewAmount.Mul(lot.CostPerUnit)
		}

		result.Consumptions = append(result.Consumptions, c)
	}

	return result
}
