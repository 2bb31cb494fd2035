package orderbook

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fill is an immutable trade record produced per maker/taker match. Sequence
// numbers are assigned by the owning OrderBook and are globally monotonic
// across its lifetime.
type Fill struct {
	Seq           uint64
	MakerOrderID  uuid.UUID
	MakerUserID   uuid.UUID
	TakerOrderID  uuid.UUID
	TakerUserID   uuid.UUID
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	MakerLeverage decimal.Decimal
	TakerLeverage decimal.Decimal
	MakerSide     Side
	TakerSide     Side
	TimestampNano int64
}
