package orderbook

import "github.com/shopspring/decimal"

// priceTree is the ordered-map abstraction one side of the book (bids or
// asks) is built on: price-indexed, walkable in best-price-first order.
type priceTree interface {
	// getOrCreate returns the level at price, creating an empty one if
	// absent.
	getOrCreate(price decimal.Decimal) *PriceLevel

	// get returns the level at price without creating it.
	get(price decimal.Decimal) (*PriceLevel, bool)

	// remove deletes the level at price entirely (callers only do this once
	// the level's FIFO is empty).
	remove(price decimal.Decimal)

	// best returns the best (highest bid / lowest ask) level, or false if
	// the tree holds no levels.
	best() (*PriceLevel, bool)

	// depth returns up to maxLevels levels in best-first order.
	depth(maxLevels int) []*PriceLevel

	empty() bool
}
