package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lightning-exchange/engine"
	"lightning-exchange/orderbook"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg := engine.DefaultEngineConfig()
	eng := engine.New(cfg, logger)

	cmds := make(chan engine.Command, cfg.CommandChannelCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx, cmds)

	logger.Info("matching engine started",
		zap.Int("command_channel_capacity", cfg.CommandChannelCapacity),
		zap.Uint64("event_ring_capacity", cfg.EventRingCapacity))

	go func() {
		for {
			events := eng.Events().DrainBatch(64)
			if events == nil {
				time.Sleep(time.Millisecond)
				continue
			}
			for _, ev := range events {
				switch ev.Kind {
				case engine.EventTradeExecuted:
					f := ev.Fill
					fmt.Printf("trade: %s filled %s @ %s against %s\n", f.TakerOrderID, f.Quantity, f.Price, f.MakerOrderID)
				case engine.EventOrderAccepted:
					fmt.Printf("order accepted and resting: %s (%s @ %s)\n", ev.OrderID, ev.Quantity, ev.Price)
				case engine.EventOrderRejected:
					fmt.Printf("order rejected: %s (%s)\n", ev.OrderID, ev.Reason)
				case engine.EventOrderCancelled:
					fmt.Printf("order cancelled: %s\n", ev.OrderID)
				case engine.EventMarkPriceUpdated:
					fmt.Printf("mark price updated: %s\n", ev.Price)
				}
			}
		}
	}()

	seller, buyer := uuid.New(), uuid.New()

	sellPrice := decimal.NewFromInt(50000)
	sell := orderbook.NewOrder(seller, orderbook.Sell, orderbook.Limit, &sellPrice, decimal.NewFromInt(1), decimal.NewFromInt(1))
	cmds <- engine.NewPlaceOrderCommand(sell, engine.Normal, nil)
	fmt.Println("submitted sell order: 1 @ 50000")

	buyPrice := decimal.NewFromInt(50000)
	buy := orderbook.NewOrder(buyer, orderbook.Buy, orderbook.Limit, &buyPrice, decimal.NewFromFloat(0.5), decimal.NewFromInt(1))
	cmds <- engine.NewPlaceOrderCommand(buy, engine.Normal, nil)
	fmt.Println("submitted buy order: 0.5 @ 50000")

	time.Sleep(200 * time.Millisecond)
}
