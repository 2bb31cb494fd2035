package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lightning-exchange/orderbook"
)

// Priority totally orders commands within a batch. Lower values are applied
// first: Critical, then High, then Normal, then Low.
type Priority int

const (
	Critical Priority = iota
	High
	Normal
	Low
)

// Status is the outcome reported to a command's submitter.
type Status = orderbook.Status

const (
	Accepted        = orderbook.Accepted
	PartiallyFilled = orderbook.PartiallyFilled
	FullyFilled     = orderbook.FullyFilled
	Rejected        = orderbook.Rejected
	Cancelled       = orderbook.Cancelled
)

// OrderResponse is sent on a PlaceOrder command's responder. Message is a
// human-readable summary, kept so a front-end can surface it verbatim
// instead of re-deriving it from Status.
type OrderResponse struct {
	OrderID   uuid.UUID
	Status    Status
	Filled    decimal.Decimal
	Remaining decimal.Decimal
	Message   string
	Err       error
}

// CancelResponse is sent on a CancelOrder command's responder.
type CancelResponse struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	Status  Status
	Message string
	Err     error
}

// commandKind distinguishes the three Command variants the engine switches
// on; it is unexported since the constructors are the only supported way to
// build a Command.
type commandKind int

const (
	cmdPlaceOrder commandKind = iota
	cmdCancelOrder
	cmdUpdateMarkPrice
)

// Command is the closed sum type the engine's command channel carries.
// At most one of the responder channels is set, the one matching its kind;
// either may be nil, and an UpdateMarkPrice command carries neither.
type Command struct {
	kind     commandKind
	priority Priority

	order *orderbook.Order

	orderID uuid.UUID
	userID  uuid.UUID

	markPrice decimal.Decimal

	orderResponder  chan OrderResponse
	cancelResponder chan CancelResponse
}

// NewPlaceOrderCommand builds a PlaceOrder command. responder may be nil if
// the submitter does not need the synchronous outcome.
func NewPlaceOrderCommand(order *orderbook.Order, priority Priority, responder chan OrderResponse) Command {
	return Command{kind: cmdPlaceOrder, priority: priority, order: order, orderResponder: responder}
}

// NewCancelCommand builds a CancelOrder command.
func NewCancelCommand(orderID, userID uuid.UUID, priority Priority, responder chan CancelResponse) Command {
	return Command{kind: cmdCancelOrder, priority: priority, orderID: orderID, userID: userID, cancelResponder: responder}
}

// NewMarkPriceCommand builds an UpdateMarkPrice command. It carries no
// responder: the engine records the price and emits a pass-through event,
// nothing more.
func NewMarkPriceCommand(price decimal.Decimal, priority Priority) Command {
	return Command{kind: cmdUpdateMarkPrice, priority: priority, markPrice: price}
}
