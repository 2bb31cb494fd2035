// Package engine implements the single-writer matching engine loop: it owns
// the order book and the producer end of the event ring, batches incoming
// commands, reorders them by priority, and applies them deterministically.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lightning-exchange/orderbook"
	"lightning-exchange/ring"
)

// Engine is the sole consumer of its command channel and the sole owner of
// its order book; nothing else may touch either.
type Engine struct {
	book   *orderbook.OrderBook
	events *ring.Ring[Event]
	cfg    EngineConfig
	logger *zap.Logger

	droppedEvents atomic.Uint64
	markPrice     decimal.Decimal
}

// New creates an Engine with an empty order book and a fresh event ring
// sized per cfg. A nil logger is replaced with a no-op logger.
func New(cfg EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		book:   orderbook.New(),
		events: ring.New[Event](cfg.EventRingCapacity),
		cfg:    cfg,
		logger: logger,
	}
}

// Events returns the consumer end of the event ring.
func (e *Engine) Events() *ring.Ring[Event] { return e.events }

// OrderBook exposes the book for read-only inspection (e.g. depth
// snapshots). Only the Run goroutine may mutate it.
func (e *Engine) OrderBook() *orderbook.OrderBook { return e.book }

// DroppedEvents returns the number of events lost to a full event ring.
func (e *Engine) DroppedEvents() uint64 { return e.droppedEvents.Load() }

// MarkPrice returns the last mark price recorded via UpdateMarkPrice.
func (e *Engine) MarkPrice() decimal.Decimal { return e.markPrice }

// Run is the matching loop. It blocks for the first command of each batch,
// non-blockingly drains more until the batch holds cfg.BatchCeiling
// commands or the channel is momentarily empty, stable-sorts by
// priority, and applies them in that order. It returns when cmds is closed
// or ctx is cancelled; neither condition flushes or persists any state.
func (e *Engine) Run(ctx context.Context, cmds <-chan Command) {
	batch := make([]Command, 0, e.cfg.BatchCeiling)

	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-cmds:
			if !ok {
				e.logger.Info("command channel closed, exiting engine loop")
				return
			}
			batch = append(batch, cmd)
		}

	drain:
		for len(batch) < e.cfg.BatchCeiling {
			select {
			case cmd, ok := <-cmds:
				if !ok {
					break drain
				}
				batch = append(batch, cmd)
			default:
				break drain
			}
		}

		sort.SliceStable(batch, func(i, j int) bool { return batch[i].priority < batch[j].priority })

		for _, cmd := range batch {
			e.apply(cmd)
		}
		if len(batch) > 1 {
			e.logger.Debug("batch applied", zap.Int("size", len(batch)))
		}
		batch = batch[:0]
	}
}

func (e *Engine) apply(cmd Command) {
	switch cmd.kind {
	case cmdPlaceOrder:
		e.handlePlaceOrder(cmd)
	case cmdCancelOrder:
		e.handleCancelOrder(cmd)
	case cmdUpdateMarkPrice:
		e.handleMarkPrice(cmd)
	}
}

func (e *Engine) handlePlaceOrder(cmd Command) {
	order := cmd.order

	if err := order.Validate(); err != nil {
		e.replyOrder(cmd.orderResponder, OrderResponse{
			OrderID: order.ID,
			Status:  orderbook.Rejected,
			Err:     err,
			Message: err.Error(),
		})
		e.publish(Event{
			Kind:      EventOrderRejected,
			OrderID:   order.ID,
			UserID:    order.UserID,
			Reason:    err.Error(),
			Timestamp: time.Now().UnixNano(),
		})
		return
	}

	fills, residual := e.book.MatchOrder(order)
	for _, f := range fills {
		e.publish(Event{Kind: EventTradeExecuted, Fill: f})
	}

	if residual != nil {
		if err := e.book.InsertOrder(residual); err != nil {
			e.logger.Warn("residual order failed to insert after validation", zap.Error(err))
		} else {
			e.publish(Event{
				Kind:      EventOrderAccepted,
				OrderID:   residual.ID,
				UserID:    residual.UserID,
				Price:     *residual.Price,
				Quantity:  residual.Remaining(),
				Timestamp: time.Now().UnixNano(),
			})
		}
	}

	status := statusFor(order, residual)
	e.replyOrder(cmd.orderResponder, OrderResponse{
		OrderID:   order.ID,
		Status:    status,
		Filled:    order.Filled,
		Remaining: order.Remaining(),
		Message:   fmt.Sprintf("order %s %s, filled %s of %s", order.ID, status, order.Filled, order.Quantity),
	})
}

// statusFor classifies the outcome by how much of the order actually
// filled, not merely by whether a residual was produced: a Market order
// never rests (residual is always nil for it), yet a partial fill on it
// must still report PartiallyFilled, not FullyFilled. Comparing filled
// quantity against the original quantity covers both order types with one
// rule.
func statusFor(order *orderbook.Order, residual *orderbook.Order) orderbook.Status {
	switch {
	case order.Filled.Sign() > 0 && order.Remaining().Sign() == 0:
		return orderbook.FullyFilled
	case order.Filled.Sign() > 0 && order.Remaining().Sign() > 0:
		return orderbook.PartiallyFilled
	case order.Filled.Sign() == 0 && residual != nil:
		return orderbook.Accepted
	default:
		// Zero fills, no residual: an unfillable Market order reporting its
		// whole quantity back as unfilled remainder.
		return orderbook.PartiallyFilled
	}
}

func (e *Engine) handleCancelOrder(cmd Command) {
	order, err := e.book.CancelOrder(cmd.orderID, cmd.userID)
	if err != nil {
		e.replyCancel(cmd.cancelResponder, CancelResponse{
			OrderID: cmd.orderID,
			UserID:  cmd.userID,
			Err:     err,
			Message: err.Error(),
		})
		return
	}

	e.publish(Event{
		Kind:      EventOrderCancelled,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Timestamp: time.Now().UnixNano(),
	})
	e.replyCancel(cmd.cancelResponder, CancelResponse{
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  orderbook.Cancelled,
		Message: fmt.Sprintf("order %s cancelled", order.ID),
	})
}

func (e *Engine) handleMarkPrice(cmd Command) {
	e.markPrice = cmd.markPrice
	e.publish(Event{
		Kind:      EventMarkPriceUpdated,
		Price:     cmd.markPrice,
		Timestamp: time.Now().UnixNano(),
	})
}

// publish pushes to the event ring. A full ring never blocks the loop: the
// event is dropped and counted. Losing market-data events is preferable to
// stalling matching.
func (e *Engine) publish(ev Event) {
	if !e.events.Push(ev) {
		e.droppedEvents.Add(1)
		e.logger.Warn("event ring full, dropping event", zap.Int("kind", int(ev.Kind)))
	}
}

func (e *Engine) replyOrder(ch chan OrderResponse, resp OrderResponse) {
	if ch == nil {
		return
	}
	select {
	case ch <- resp:
	default:
	}
}

func (e *Engine) replyCancel(ch chan CancelResponse, resp CancelResponse) {
	if ch == nil {
		return
	}
	select {
	case ch <- resp:
	default:
	}
}
