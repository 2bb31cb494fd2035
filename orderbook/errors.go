package orderbook

import "errors"

var (
	// ErrOrderNotFound is returned by CancelOrder when no order with the
	// given id is resting in the book.
	ErrOrderNotFound = errors.New("orderbook: order not found")
	// ErrUnauthorized is returned by CancelOrder when the order exists but
	// belongs to a different user.
	ErrUnauthorized = errors.New("orderbook: unauthorized")
	// ErrInvalidOrder wraps order admission validation failures.
	ErrInvalidOrder = errors.New("orderbook: invalid order")
)
