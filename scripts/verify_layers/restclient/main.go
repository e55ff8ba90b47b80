// Manual verification for the exchange REST layer: fetches a small 1m
// range from Binance futures and checks shape and alignment.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"trading-core/internal/model"
	binance "trading-core/pkg/exchange/binance"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	source := binance.NewSource(false)
	to := time.Now().UnixMilli()
	from := to - 30*model.MsPerMinute

	bars, err := source.FetchBars(ctx, "BTCUSDT", from, to)
	if err != nil {
		fmt.Println("FAIL: fetch:", err)
		os.Exit(1)
	}

	ok := true
	if len(bars) < 25 {
		fmt.Printf("FAIL: expected ~30 bars, got %d\n", len(bars))
		ok = false
	}
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			fmt.Println("FAIL:", err)
			ok = false
		}
		if b.OpenTime%model.MsPerMinute != 0 {
			fmt.Printf("FAIL: bar %d open_time %d not minute-aligned\n", i, b.OpenTime)
			ok = false
		}
		if i > 0 && b.OpenTime <= bars[i-1].OpenTime {
			fmt.Printf("FAIL: bars out of order at %d\n", i)
			ok = false
		}
	}

	if ok {
		fmt.Printf("PASS: %d bars fetched, aligned and ordered\n", len(bars))
	} else {
		os.Exit(1)
	}
}
