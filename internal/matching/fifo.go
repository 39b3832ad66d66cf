package matching

import (
	"sort"

	"github.com/cryptofolio/backend/internal/model"
)

// FIFO consumes the earliest-purchased open lots first, tie-broken by lot ID
// ascending.
type FIFO struct{}

// Method returns the accounting method this strategy implements.
func (FIFO) Method() model.AccountingMethod { return model.MethodFIFO }

// Match consumes lots oldest-first to satisfy the sell.
func (f FIFO) Match(lots []model.CostBasisLot, sell Sell) Result {
	ordered := make([]model.CostBasisLot, len(lots))
	copy(ordered, lots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].PurchaseDate.Equal(ordered[j].PurchaseDate) {
			return ordered[i].PurchaseDate.Before(ordered[j].PurchaseDate)
		}
		return ordered[i].ID < ordered[j].ID
	})

	return consumeOrdered(ordered, sell, f.Method())
}
