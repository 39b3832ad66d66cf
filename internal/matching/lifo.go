package matching

import (
	"sort"

	"github.com/cryptofolio/backend/internal/model"
)

// LIFO consumes the latest-purchased open lots first, tie-broken by lot ID
// descending.
type LIFO struct{}

// Method returns the accounting method this strategy implements.
func (LIFO) Method() model.AccountingMethod { return model.MethodLIFO }

// Match consumes lots newest-first to satisfy the sell.
func (l LIFO) Match(lots []model.CostBasisLot, sell Sell) Result {
	ordered := make([]model.CostBasisLot, len(lots))
	copy(ordered, lots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].PurchaseDate.Equal(ordered[j].PurchaseDate) {
			return ordered[i].PurchaseDate.After(ordered[j].PurchaseDate)
		}
		return ordered[i].ID > ordered[j].ID
	})

	return consumeOrdered(ordered, sell, l.Method())
}
