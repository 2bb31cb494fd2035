package main

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lightning-exchange/engine"
	"lightning-exchange/orderbook"
)

func main() {
	fmt.Println("=== 交易所撮合系统性能测试 ===")

	cfg := engine.DefaultEngineConfig()
	eng := engine.New(cfg, nil)
	cmds := make(chan engine.Command, cfg.CommandChannelCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx, cmds)

	testDuration := 5 * time.Second
	numCPU := runtime.NumCPU()
	numWorkers := numCPU - 2 // 1 个给撮合 goroutine，1 个给系统/GC
	if numWorkers < 1 {
		numWorkers = 1
	}

	var (
		orderCount atomic.Int64
		tradeCount atomic.Int64
	)

	// 消费成交事件
	go func() {
		for {
			events := eng.Events().DrainBatch(256)
			if events == nil {
				runtime.Gosched()
				continue
			}
			for _, ev := range events {
				if ev.Kind == engine.EventTradeExecuted {
					tradeCount.Add(1)
				}
			}
		}
	}()

	fmt.Printf("开始测试...\n")
	fmt.Printf("CPU 核心数: %d\n", numCPU)
	fmt.Printf("生产者数量: %d (NumCPU - 2)\n", numWorkers)
	fmt.Printf("测试时长: %v\n\n", testDuration)

	startTime := time.Now()
	stopChan := make(chan struct{})

	for w := 0; w < numWorkers; w++ {
		go func(workerID int) {
			orderID := 0
			for {
				select {
				case <-stopChan:
					return
				default:
					// 交替发送买单和卖单，价格有重叠以产生成交
					var side orderbook.Side
					if orderID%2 == 0 {
						side = orderbook.Buy
					} else {
						side = orderbook.Sell
					}
					price := decimal.NewFromInt(50000 + int64(orderID%200))
					order := orderbook.NewOrder(uuid.New(), side, orderbook.Limit, &price, decimal.NewFromInt(1), decimal.NewFromInt(1))
					cmds <- engine.NewPlaceOrderCommand(order, engine.Normal, nil)
					orderCount.Add(1)
					orderID++
				}
			}
		}(w)
	}

	ticker := time.NewTicker(1 * time.Second)
	go func() {
		for range ticker.C {
			elapsed := time.Since(startTime)
			orders := orderCount.Load()
			trades := tradeCount.Load()
			qps := float64(orders) / elapsed.Seconds()
			tps := float64(trades) / elapsed.Seconds()
			fmt.Printf("[%.0fs] 订单: %d (%.0f/s) | 成交: %d (%.0f/s)\n",
				elapsed.Seconds(), orders, qps, trades, tps)
		}
	}()

	time.Sleep(testDuration)
	close(stopChan)
	ticker.Stop()
	time.Sleep(500 * time.Millisecond)

	elapsed := time.Since(startTime)
	totalOrders := orderCount.Load()
	totalTrades := tradeCount.Load()

	qps := float64(totalOrders) / elapsed.Seconds()
	tps := float64(totalTrades) / elapsed.Seconds()
	avgLatency := elapsed.Seconds() * 1e6 / float64(totalOrders)
	matchRate := float64(totalTrades) / float64(totalOrders) * 100

	fmt.Println("\n=== 性能测试结果 ===")
	fmt.Printf("测试时长:     %v\n", elapsed)
	fmt.Printf("总订单数:     %d\n", totalOrders)
	fmt.Printf("总成交数:     %d\n", totalTrades)
	fmt.Printf("订单吞吐量:   %.0f orders/sec\n", qps)
	fmt.Printf("成交吞吐量:   %.0f trades/sec\n", tps)
	fmt.Printf("平均延迟:     %.2f μs/order\n", avgLatency)
	fmt.Printf("撮合率:       %.2f%%\n", matchRate)

	fmt.Println("\n=== 性能评级 ===")
	switch {
	case qps >= 1000000:
		fmt.Println("极致性能 (>100万 QPS)")
	case qps >= 500000:
		fmt.Println("优秀性能 (50万-100万 QPS)")
	case qps >= 100000:
		fmt.Println("良好性能 (10万-50万 QPS)")
	case qps >= 10000:
		fmt.Println("合格性能 (1万-10万 QPS)")
	default:
		fmt.Println("性能较低 (<1万 QPS)")
	}

	fmt.Println("\n=== 订单簿状态 ===")
	bestBid, hasBid := eng.OrderBook().BestBid()
	bestAsk, hasAsk := eng.OrderBook().BestAsk()
	if hasBid {
		fmt.Printf("最佳买价:     %s\n", bestBid)
	}
	if hasAsk {
		fmt.Printf("最佳卖价:     %s\n", bestAsk)
	}

	bids, asks := eng.OrderBook().Depth(5)
	fmt.Println("\n买单深度 (前5档):")
	for i, level := range bids {
		fmt.Printf("  %d. 价格: %s, 数量: %s, 订单数: %d\n", i+1, level.Price, level.Quantity, level.Orders)
	}
	fmt.Println("\n卖单深度 (前5档):")
	for i, level := range asks {
		fmt.Printf("  %d. 价格: %s, 数量: %s, 订单数: %d\n", i+1, level.Price, level.Quantity, level.Orders)
	}
}
