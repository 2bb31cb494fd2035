package orderbook

import (
	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"github.com/shopspring/decimal"
)

// redBlackPriceTree keys price levels directly by decimal.Decimal in a
// red-black tree. Prices are arbitrary-precision decimals with
// exchange-defined tick sizes, so there is no contiguous integer tick space
// to bucket or shard on; the tree alone gives O(log P) inserts and removes
// and amortized O(1) access to the best level via Left().
type redBlackPriceTree struct {
	tree *rbt.Tree[decimal.Decimal, *PriceLevel]
}

var _ priceTree = (*redBlackPriceTree)(nil)

// newPriceTree creates a price tree ordered best-first: descending for bids
// (highest price first), ascending for asks (lowest price first).
func newPriceTree(descending bool) *redBlackPriceTree {
	cmp := func(a, b decimal.Decimal) int { return a.Cmp(b) }
	if descending {
		cmp = func(a, b decimal.Decimal) int { return b.Cmp(a) }
	}
	return &redBlackPriceTree{tree: rbt.NewWith[decimal.Decimal, *PriceLevel](cmp)}
}

func (t *redBlackPriceTree) getOrCreate(price decimal.Decimal) *PriceLevel {
	if lvl, found := t.tree.Get(price); found {
		return lvl
	}
	lvl := newPriceLevel(price)
	t.tree.Put(price, lvl)
	return lvl
}

func (t *redBlackPriceTree) get(price decimal.Decimal) (*PriceLevel, bool) {
	return t.tree.Get(price)
}

func (t *redBlackPriceTree) remove(price decimal.Decimal) {
	t.tree.Remove(price)
}

// best returns the tree's leftmost node, which the comparator always orients
// toward the best price for either side.
func (t *redBlackPriceTree) best() (*PriceLevel, bool) {
	node := t.tree.Left()
	if node == nil {
		return nil, false
	}
	return node.Value, true
}

func (t *redBlackPriceTree) depth(maxLevels int) []*PriceLevel {
	if maxLevels <= 0 || t.tree.Empty() {
		return nil
	}
	levels := make([]*PriceLevel, 0, maxLevels)
	it := t.tree.Iterator()
	for it.Next() && len(levels) < maxLevels {
		levels = append(levels, it.Value())
	}
	return levels
}

func (t *redBlackPriceTree) empty() bool {
	return t.tree.Empty()
}
