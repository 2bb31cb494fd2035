package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"lightning-exchange/orderbook"
)

func testConfig() EngineConfig {
	return EngineConfig{CommandChannelCapacity: 16, EventRingCapacity: 1024, BatchCeiling: 256}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func price(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func drainEvents(t *testing.T, e *Engine, n int, timeout time.Duration) []Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var got []Event
	for len(got) < n && time.Now().Before(deadline) {
		got = append(got, e.Events().DrainBatch(n-len(got))...)
		if len(got) < n {
			time.Sleep(time.Millisecond)
		}
	}
	require.Len(t, got, n, "timed out waiting for events")
	return got
}

func TestPlaceOrderFullyFillsAndReplies(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	go e.Run(ctx, cmds)

	maker, taker := uuid.New(), uuid.New()
	bid := orderbook.NewOrder(maker, orderbook.Buy, orderbook.Limit, price("100"), dec("5"), decimal.NewFromInt(1))
	cmds <- NewPlaceOrderCommand(bid, Normal, nil)
	drainEvents(t, e, 1, time.Second) // OrderAccepted for the resting bid

	sell := orderbook.NewOrder(taker, orderbook.Sell, orderbook.Limit, price("99"), dec("5"), decimal.NewFromInt(1))
	resp := make(chan OrderResponse, 1)
	cmds <- NewPlaceOrderCommand(sell, Normal, resp)

	select {
	case r := <-resp:
		require.Equal(t, orderbook.FullyFilled, r.Status)
		require.True(t, r.Filled.Equal(dec("5")))
		require.True(t, r.Remaining.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for order response")
	}

	events := drainEvents(t, e, 1, time.Second)
	require.Equal(t, EventTradeExecuted, events[0].Kind)
	require.True(t, events[0].Fill.Price.Equal(dec("100")), "fill must be at the maker's resting price")
}

func TestPlaceOrderRejectedOnInvalidOrder(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	go e.Run(ctx, cmds)

	bad := orderbook.NewOrder(uuid.New(), orderbook.Buy, orderbook.Limit, price("100"), decimal.Zero, decimal.NewFromInt(1))
	resp := make(chan OrderResponse, 1)
	cmds <- NewPlaceOrderCommand(bad, Normal, resp)

	select {
	case r := <-resp:
		require.Equal(t, orderbook.Rejected, r.Status)
		require.Error(t, r.Err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for rejection response")
	}

	events := drainEvents(t, e, 1, time.Second)
	require.Equal(t, EventOrderRejected, events[0].Kind)
}

func TestPlaceOrderRestsWithZeroFills(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	go e.Run(ctx, cmds)

	order := orderbook.NewOrder(uuid.New(), orderbook.Buy, orderbook.Limit, price("100"), dec("3"), decimal.NewFromInt(1))
	resp := make(chan OrderResponse, 1)
	cmds <- NewPlaceOrderCommand(order, Normal, resp)

	select {
	case r := <-resp:
		require.Equal(t, orderbook.Accepted, r.Status)
		require.True(t, r.Remaining.Equal(dec("3")))
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	events := drainEvents(t, e, 1, time.Second)
	require.Equal(t, EventOrderAccepted, events[0].Kind)

	bid, ok := e.OrderBook().BestBid()
	require.True(t, ok)
	require.True(t, bid.Equal(dec("100")))
}

func TestPartiallyFilledLimitRestsResidual(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	go e.Run(ctx, cmds)

	maker := uuid.New()
	bid := orderbook.NewOrder(maker, orderbook.Buy, orderbook.Limit, price("100"), dec("5"), decimal.NewFromInt(1))
	cmds <- NewPlaceOrderCommand(bid, Normal, nil)
	drainEvents(t, e, 1, time.Second)

	taker := uuid.New()
	sell := orderbook.NewOrder(taker, orderbook.Sell, orderbook.Limit, price("100"), dec("8"), decimal.NewFromInt(1))
	resp := make(chan OrderResponse, 1)
	cmds <- NewPlaceOrderCommand(sell, Normal, resp)

	select {
	case r := <-resp:
		require.Equal(t, orderbook.PartiallyFilled, r.Status)
		require.True(t, r.Filled.Equal(dec("5")))
		require.True(t, r.Remaining.Equal(dec("3")))
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	// trade against the bid, then the residual resting on the ask side
	events := drainEvents(t, e, 2, time.Second)
	require.Equal(t, EventTradeExecuted, events[0].Kind)
	require.Equal(t, EventOrderAccepted, events[1].Kind)
	require.True(t, events[1].Quantity.Equal(dec("3")))

	ask, ok := e.OrderBook().BestAsk()
	require.True(t, ok)
	require.True(t, ask.Equal(dec("100")))
	_, hasBid := e.OrderBook().BestBid()
	require.False(t, hasBid, "the bid was fully consumed")
}

func TestUnfillableMarketOrderReportsPartiallyFilled(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	go e.Run(ctx, cmds)

	order := orderbook.NewOrder(uuid.New(), orderbook.Sell, orderbook.Market, nil, dec("10"), decimal.NewFromInt(1))
	resp := make(chan OrderResponse, 1)
	cmds <- NewPlaceOrderCommand(order, Normal, resp)

	select {
	case r := <-resp:
		require.Equal(t, orderbook.PartiallyFilled, r.Status)
		require.True(t, r.Filled.IsZero())
		require.True(t, r.Remaining.Equal(dec("10")))
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestCancelOrderEmitsEventAndReplies(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	go e.Run(ctx, cmds)

	user := uuid.New()
	order := orderbook.NewOrder(user, orderbook.Buy, orderbook.Limit, price("100"), dec("1"), decimal.NewFromInt(1))
	cmds <- NewPlaceOrderCommand(order, Normal, nil)
	drainEvents(t, e, 1, time.Second)

	resp := make(chan CancelResponse, 1)
	cmds <- NewCancelCommand(order.ID, user, Normal, resp)

	select {
	case r := <-resp:
		require.NoError(t, r.Err)
		require.Equal(t, orderbook.Cancelled, r.Status)
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	events := drainEvents(t, e, 1, time.Second)
	require.Equal(t, EventOrderCancelled, events[0].Kind)
}

func TestCancelOrderNotFoundRepliesWithError(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	go e.Run(ctx, cmds)

	resp := make(chan CancelResponse, 1)
	cmds <- NewCancelCommand(uuid.New(), uuid.New(), Normal, resp)

	select {
	case r := <-resp:
		require.ErrorIs(t, r.Err, orderbook.ErrOrderNotFound)
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestMarkPriceUpdateRecordsAndEmits(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	go e.Run(ctx, cmds)

	cmds <- NewMarkPriceCommand(dec("51000"), Normal)

	events := drainEvents(t, e, 1, time.Second)
	require.Equal(t, EventMarkPriceUpdated, events[0].Kind)
	require.True(t, events[0].Price.Equal(dec("51000")))

	deadline := time.Now().Add(time.Second)
	for e.MarkPrice().IsZero() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.True(t, e.MarkPrice().Equal(dec("51000")))
}

// TestBatchPriorityOrderingAppliesCriticalFirst submits two commands that
// arrive on the channel together, forming a single batch, and asserts the
// Critical-priority one is applied before the Low-priority one despite
// being enqueued second.
func TestBatchPriorityOrderingAppliesCriticalFirst(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	cmds <- NewMarkPriceCommand(dec("1"), Low)
	cmds <- NewMarkPriceCommand(dec("2"), Critical)

	go e.Run(ctx, cmds)

	events := drainEvents(t, e, 2, time.Second)
	require.Equal(t, EventMarkPriceUpdated, events[0].Kind)
	require.Equal(t, EventMarkPriceUpdated, events[1].Kind)
	require.True(t, events[0].Price.Equal(dec("2")), "Critical priority must apply before Low within the same batch")
	require.True(t, events[1].Price.Equal(dec("1")))
}

func TestDroppedEventsCountedWhenRingIsFull(t *testing.T) {
	cfg := EngineConfig{CommandChannelCapacity: 16, EventRingCapacity: 2, BatchCeiling: 256}
	e := New(cfg, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 8)
	go e.Run(ctx, cmds)

	for i := 0; i < 5; i++ {
		cmds <- NewMarkPriceCommand(decimal.NewFromInt(int64(i)), Normal)
	}

	deadline := time.Now().Add(time.Second)
	for e.DroppedEvents() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Greater(t, e.DroppedEvents(), uint64(0), "a 1-usable-slot ring must drop some of 5 published events")
}

func TestPlaceOrderToleratesNilResponder(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	go e.Run(ctx, cmds)

	order := orderbook.NewOrder(uuid.New(), orderbook.Buy, orderbook.Limit, price("100"), dec("1"), decimal.NewFromInt(1))
	require.NotPanics(t, func() {
		cmds <- NewPlaceOrderCommand(order, Normal, nil)
		drainEvents(t, e, 1, time.Second)
	})
}

func TestRunExitsCleanlyWhenCommandChannelCloses(t *testing.T) {
	e := New(testConfig(), nil)
	cmds := make(chan Command)

	done := make(chan struct{})
	go func() {
		e.Run(context.Background(), cmds)
		close(done)
	}()

	close(cmds)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after its command channel closed")
	}
}

func TestFillSequenceNumbersIncreaseAcrossBatches(t *testing.T) {
	e := New(testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmds := make(chan Command, 4)
	go e.Run(ctx, cmds)

	maker := uuid.New()
	for i := 0; i < 3; i++ {
		order := orderbook.NewOrder(maker, orderbook.Buy, orderbook.Limit, price("100"), dec("1"), decimal.NewFromInt(1))
		cmds <- NewPlaceOrderCommand(order, Normal, nil)
		drainEvents(t, e, 1, time.Second)
		time.Sleep(time.Millisecond) // force each into its own batch
	}

	taker := uuid.New()
	var events []Event
	for i := 0; i < 3; i++ {
		sell := orderbook.NewOrder(taker, orderbook.Sell, orderbook.Limit, price("100"), dec("1"), decimal.NewFromInt(1))
		cmds <- NewPlaceOrderCommand(sell, Normal, nil)
		events = append(events, drainEvents(t, e, 1, time.Second)...) // one fill per sell, each sell in its own batch
	}

	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		require.Greater(t, events[i].Fill.Seq, events[i-1].Fill.Seq)
	}
}
