package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lightning-exchange/engine"
	"lightning-exchange/orderbook"
)

func main() {
	cpuFile, err := os.Create("cpu.prof")
	if err != nil {
		panic(err)
	}
	defer cpuFile.Close()

	pprof.StartCPUProfile(cpuFile)
	defer pprof.StopCPUProfile()

	fmt.Println("=== 性能分析开始 ===")
	fmt.Println("生成 CPU profile: cpu.prof")

	cfg := engine.DefaultEngineConfig()
	eng := engine.New(cfg, nil)
	cmds := make(chan engine.Command, cfg.CommandChannelCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx, cmds)

	duration := 10 * time.Second
	numCPU := runtime.NumCPU()
	numWorkers := numCPU - 2
	if numWorkers < 1 {
		numWorkers = 1
	}

	var (
		orderCount atomic.Int64
		tradeCount atomic.Int64
	)

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

	fmt.Printf("CPU 核心数: %d\n", numCPU)
	fmt.Printf("生产者数量: %d\n", numWorkers)
	fmt.Printf("测试时长: %v\n\n", duration)

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

	time.Sleep(duration)
	close(stopChan)
	time.Sleep(500 * time.Millisecond)

	elapsed := time.Since(startTime)
	totalOrders := orderCount.Load()
	totalTrades := tradeCount.Load()

	fmt.Println("\n=== 性能测试结果 ===")
	fmt.Printf("总订单数: %d\n", totalOrders)
	fmt.Printf("总成交数: %d\n", totalTrades)
	fmt.Printf("Order QPS: %.0f orders/sec\n", float64(totalOrders)/elapsed.Seconds())
	fmt.Printf("Trade TPS: %.0f trades/sec\n", float64(totalTrades)/elapsed.Seconds())

	fmt.Println("\n分析 CPU profile:")
	fmt.Println("  go tool pprof -http=:8080 cpu.prof")
	fmt.Println("  然后输入: top10")
}
