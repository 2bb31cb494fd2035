// Package orderbook implements a price-time-priority limit order book: two
// price-indexed ordered maps (bids descending, asks ascending), a FIFO per
// price level, and the crossing-match algorithm that walks resting liquidity
// against an incoming taker order.
package orderbook

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DepthLevel is a read-only snapshot of one price level, suitable for
// publishing market depth without exposing the FIFO internals.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Orders   int
}

// OrderBook is the book for a single symbol. It is a passive data structure
// owned exclusively by the engine loop: no lock protects it because no
// other goroutine is permitted to touch it.
type OrderBook struct {
	bids priceTree // buy orders, best = highest price
	asks priceTree // sell orders, best = lowest price

	orders     map[uuid.UUID]*Order
	userOrders map[uuid.UUID]map[uuid.UUID]struct{}

	fillSeq uint64
}

// New creates an empty order book.
func New() *OrderBook {
	return &OrderBook{
		bids:       newPriceTree(true),
		asks:       newPriceTree(false),
		orders:     make(map[uuid.UUID]*Order),
		userOrders: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (ob *OrderBook) sideTree(side Side) priceTree {
	if side == Buy {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) oppositeTree(side Side) priceTree {
	if side == Buy {
		return ob.asks
	}
	return ob.bids
}

// BestBid returns the highest resting buy price, or false if the bid side is
// empty.
func (ob *OrderBook) BestBid() (decimal.Decimal, bool) {
	lvl, ok := ob.bids.best()
	if !ok {
		return decimal.Decimal{}, false
	}
	return lvl.Price, true
}

// BestAsk returns the lowest resting sell price, or false if the ask side is
// empty.
func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) {
	lvl, ok := ob.asks.best()
	if !ok {
		return decimal.Decimal{}, false
	}
	return lvl.Price, true
}

// Get looks up a resting order by id.
func (ob *OrderBook) Get(id uuid.UUID) (*Order, bool) {
	o, ok := ob.orders[id]
	return o, ok
}

func (ob *OrderBook) registerUser(userID, orderID uuid.UUID) {
	set, ok := ob.userOrders[userID]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		ob.userOrders[userID] = set
	}
	set[orderID] = struct{}{}
}

func (ob *OrderBook) unregisterUser(userID, orderID uuid.UUID) {
	set, ok := ob.userOrders[userID]
	if !ok {
		return
	}
	delete(set, orderID)
	if len(set) == 0 {
		delete(ob.userOrders, userID)
	}
}

// InsertOrder rests a Limit order in the book. Market orders are never
// inserted; callers must match a Market order fully or report its remainder
// unfilled without calling InsertOrder.
func (ob *OrderBook) InsertOrder(o *Order) error {
	if o.Type != Limit || o.Price == nil {
		return ErrInvalidOrder
	}

	level := ob.sideTree(o.Side).getOrCreate(*o.Price)
	level.push(o)

	ob.orders[o.ID] = o
	ob.registerUser(o.UserID, o.ID)
	return nil
}

// CancelOrder removes a resting order, verifying ownership. It returns
// ErrOrderNotFound if no such order rests in the book, or ErrUnauthorized if
// it belongs to a different user.
func (ob *OrderBook) CancelOrder(id, userID uuid.UUID) (*Order, error) {
	o, ok := ob.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.UserID != userID {
		return nil, ErrUnauthorized
	}

	tree := ob.sideTree(o.Side)
	if level, ok := tree.get(*o.Price); ok {
		level.removeOne(o, o.Remaining())
		if level.empty() {
			tree.remove(*o.Price)
		}
	}

	delete(ob.orders, id)
	ob.unregisterUser(o.UserID, o.ID)
	return o, nil
}

// MatchOrder matches taker (Limit or Market) against the opposite side and
// returns every Fill produced plus a residual order if the taker is a Limit
// order with quantity still unfilled. A residual is the caller's
// responsibility to insert via InsertOrder; MatchOrder never mutates the
// book on the taker's own side.
func (ob *OrderBook) MatchOrder(taker *Order) ([]Fill, *Order) {
	var fills []Fill
	opposite := ob.oppositeTree(taker.Side)

	for {
		if taker.Remaining().Sign() <= 0 {
			break
		}

		level, ok := opposite.best()
		if !ok {
			break
		}

		if taker.Type == Limit {
			var crosses bool
			if taker.Side == Buy {
				crosses = taker.Price.GreaterThanOrEqual(level.Price)
			} else {
				crosses = taker.Price.LessThanOrEqual(level.Price)
			}
			if !crosses {
				break
			}
		}

		traded := decimal.Zero
		var drained []*Order

		elem := level.Orders.Front()
		for elem != nil {
			maker := elem.Value.(*Order)
			next := elem.Next()

			q := decimal.Min(maker.Remaining(), taker.Remaining())

			ob.fillSeq++
			fills = append(fills, Fill{
				Seq:           ob.fillSeq,
				MakerOrderID:  maker.ID,
				MakerUserID:   maker.UserID,
				TakerOrderID:  taker.ID,
				TakerUserID:   taker.UserID,
				Price:         level.Price,
				Quantity:      q,
				MakerLeverage: maker.Leverage,
				TakerLeverage: taker.Leverage,
				MakerSide:     maker.Side,
				TakerSide:     taker.Side,
				TimestampNano: time.Now().UnixNano(),
			})

			maker.Filled = maker.Filled.Add(q)
			taker.Filled = taker.Filled.Add(q)
			traded = traded.Add(q)

			if maker.Remaining().Sign() <= 0 {
				drained = append(drained, maker)
			}

			if taker.Remaining().Sign() <= 0 {
				break
			}
			elem = next
		}

		level.TotalQty = level.TotalQty.Sub(traded)
		for _, maker := range drained {
			level.Orders.Remove(maker.listElem)
			maker.listElem = nil
			delete(ob.orders, maker.ID)
			ob.unregisterUser(maker.UserID, maker.ID)
		}
		if level.empty() {
			opposite.remove(level.Price)
		}
	}

	var residual *Order
	if taker.Type == Limit && taker.Remaining().Sign() > 0 {
		residual = taker
	}
	return fills, residual
}

// Depth returns up to maxLevels price levels per side, best price first.
func (ob *OrderBook) Depth(maxLevels int) (bids, asks []DepthLevel) {
	return snapshot(ob.bids, maxLevels), snapshot(ob.asks, maxLevels)
}

func snapshot(t priceTree, maxLevels int) []DepthLevel {
	levels := t.depth(maxLevels)
	out := make([]DepthLevel, len(levels))
	for i, lvl := range levels {
		out[i] = DepthLevel{Price: lvl.Price, Quantity: lvl.TotalQty, Orders: lvl.Orders.Len()}
	}
	return out
}
