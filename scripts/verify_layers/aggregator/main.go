// Manual verification for the bar aggregator: one hour of synthetic
// 1m bars must roll up into aligned 3m/5m/15m/30m bars with exact
// volume sums.
package main

import (
	"fmt"
	"os"

	"trading-core/internal/aggregator"
	"trading-core/internal/model"
)

func main() {
	agg := aggregator.New(nil)
	emitted := map[string][]model.Bar{}

	for i := int64(0); i < 61; i++ {
		b := model.Bar{
			Instrument: "BTCUSDT", Timeframe: "1m",
			OpenTime: i * model.MsPerMinute,
			Open:     100, High: 101 + float64(i%3), Low: 99 - float64(i%2), Close: 100.5,
			Volume: 1, Closed: true,
		}
		out, err := agg.Add(b)
		if err != nil {
			fmt.Println("FAIL: add:", err)
			os.Exit(1)
		}
		for _, hb := range out {
			emitted[hb.Timeframe] = append(emitted[hb.Timeframe], hb)
		}
	}

	want := map[string]int{"3m": 20, "5m": 12, "15m": 4, "30m": 2}
	ok := true
	for tf, n := range want {
		if len(emitted[tf]) != n {
			fmt.Printf("FAIL: %s emitted %d bars, expected %d\n", tf, len(emitted[tf]), n)
			ok = false
		}
		period := model.PeriodMs[tf]
		for _, b := range emitted[tf] {
			if b.OpenTime%period != 0 {
				fmt.Printf("FAIL: %s bar at %d misaligned\n", tf, b.OpenTime)
				ok = false
			}
			if b.Volume != float64(period/model.MsPerMinute) {
				fmt.Printf("FAIL: %s volume %v\n", tf, b.Volume)
				ok = false
			}
		}
	}

	if ok {
		fmt.Println("PASS: aggregation aligned, counts and volumes exact")
	} else {
		os.Exit(1)
	}
}
