package orderbook

import (
	"container/list"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the side of an order or fill.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// OrderType distinguishes resting limit orders from marketable orders that
// never rest.
type OrderType int

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Limit {
		return "limit"
	}
	return "market"
}

// Status is the lifecycle outcome reported back to a submitter.
type Status int

const (
	Accepted Status = iota
	PartiallyFilled
	FullyFilled
	Rejected
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Accepted:
		return "accepted"
	case PartiallyFilled:
		return "partially_filled"
	case FullyFilled:
		return "fully_filled"
	case Rejected:
		return "rejected"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var minLeverage = decimal.NewFromInt(1)
var maxLeverage = decimal.NewFromInt(125)

// Order is a resting or in-flight order. Price is nil for Market orders and
// required for Limit orders. listElem lets the owning PriceLevel remove the
// order from its FIFO in O(1).
type Order struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Side      Side
	Type      OrderType
	Price     *decimal.Decimal
	Quantity  decimal.Decimal
	Filled    decimal.Decimal
	Leverage  decimal.Decimal
	CreatedAt time.Time

	listElem *list.Element
}

// NewOrder builds an order with a fresh identifier and zero fill progress.
func NewOrder(userID uuid.UUID, side Side, typ OrderType, price *decimal.Decimal, qty, leverage decimal.Decimal) *Order {
	return &Order{
		ID:        uuid.New(),
		UserID:    userID,
		Side:      side,
		Type:      typ,
		Price:     price,
		Quantity:  qty,
		Leverage:  leverage,
		CreatedAt: time.Now(),
	}
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.Filled)
}

// Validate checks the admission invariants from the data model: positive
// quantity, leverage within [1, 125], and a price that is present iff the
// order is a Limit order.
func (o *Order) Validate() error {
	if o.Quantity.Sign() <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	if o.Leverage.LessThan(minLeverage) || o.Leverage.GreaterThan(maxLeverage) {
		return fmt.Errorf("%w: leverage must be within [1, 125]", ErrInvalidOrder)
	}
	switch o.Type {
	case Limit:
		if o.Price == nil {
			return fmt.Errorf("%w: limit order requires a price", ErrInvalidOrder)
		}
		if o.Price.Sign() <= 0 {
			return fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
		}
	case Market:
		if o.Price != nil {
			return fmt.Errorf("%w: market order must not carry a price", ErrInvalidOrder)
		}
	default:
		return fmt.Errorf("%w: unknown order type", ErrInvalidOrder)
	}
	return nil
}
