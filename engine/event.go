package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lightning-exchange/orderbook"
)

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	EventTradeExecuted EventKind = iota
	EventOrderAccepted
	EventOrderRejected
	EventOrderCancelled
	EventMarkPriceUpdated
)

// Event is the tagged union published to the event ring. Only the fields
// relevant to Kind are populated; callers switch on Kind before reading
// them.
type Event struct {
	Kind EventKind

	Fill orderbook.Fill // EventTradeExecuted

	OrderID   uuid.UUID       // OrderAccepted, OrderRejected, OrderCancelled
	UserID    uuid.UUID       // OrderAccepted, OrderRejected, OrderCancelled
	Price     decimal.Decimal // OrderAccepted, MarkPriceUpdated
	Quantity  decimal.Decimal // OrderAccepted
	Reason    string          // OrderRejected
	Timestamp int64           // nanoseconds, all variants except TradeExecuted (carried on Fill)
}
