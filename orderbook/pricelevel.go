package orderbook

import (
	"container/list"

	"github.com/shopspring/decimal"
)

// PriceLevel is the FIFO of resting orders at a single price, plus the
// cached sum of their remaining quantities. Invariant: TotalQty always
// equals the sum of Remaining() across every order currently in Orders.
type PriceLevel struct {
	Price    decimal.Decimal
	Orders   *list.List // of *Order, FIFO: front is oldest
	TotalQty decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:    price,
		Orders:   list.New(),
		TotalQty: decimal.Zero,
	}
}

// push appends an order to the FIFO tail and folds its remaining quantity
// into TotalQty. The order keeps its own list.Element so later removal
// never has to scan.
func (pl *PriceLevel) push(o *Order) {
	o.listElem = pl.Orders.PushBack(o)
	pl.TotalQty = pl.TotalQty.Add(o.Remaining())
}

// removeOne detaches a single order from the FIFO, preserving the relative
// order of what remains, and subtracts its last-known remaining quantity
// from TotalQty. Callers must pass the quantity that was live immediately
// before the removal (quantity accounting happens before Filled mutates
// further).
func (pl *PriceLevel) removeOne(o *Order, lastRemaining decimal.Decimal) {
	if o.listElem != nil {
		pl.Orders.Remove(o.listElem)
		o.listElem = nil
	}
	pl.TotalQty = pl.TotalQty.Sub(lastRemaining)
}

func (pl *PriceLevel) empty() bool {
	return pl.Orders.Len() == 0
}
