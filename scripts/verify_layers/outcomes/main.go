// Manual verification for the outcome layer: tick TP at the exact
// level, bar-path pessimistic SL, and exactly-once delivery.
package main

import (
	"context"
	"fmt"
	"os"

	"trading-core/internal/model"
	"trading-core/internal/outcome"
)

func main() {
	ctx := context.Background()
	ok := true

	// Tick path: LONG TP at exact touch.
	tr := outcome.New(nil, nil)
	var outcomes []model.Outcome
	tr.OnOutcome(func(_ model.Signal, o model.Outcome) { outcomes = append(outcomes, o) })
	tr.Add(model.Signal{
		ID: "v-long", Instrument: "BTCUSDT", Timeframe: "5m",
		Direction: model.Long, Entry: 100, TP: 102, SL: 91.16, State: model.StateActive,
	})
	tr.OnTrade(ctx, model.Trade{Instrument: "BTCUSDT", Price: 102, Time: 1})
	tr.OnTrade(ctx, model.Trade{Instrument: "BTCUSDT", Price: 102, Time: 2})
	if len(outcomes) != 1 || outcomes[0] != model.StateTP {
		fmt.Printf("FAIL: tick path outcomes=%v, expected one TP\n", outcomes)
		ok = false
	} else {
		fmt.Println("PASS: tick TP at exact touch, exactly once")
	}

	// Bar path: a bar spanning TP and SL resolves SL.
	tr2 := outcome.New(nil, nil)
	var barOutcome model.Outcome
	tr2.OnOutcome(func(_ model.Signal, o model.Outcome) { barOutcome = o })
	tr2.Add(model.Signal{
		ID: "v-span", Instrument: "BTCUSDT", Timeframe: "5m",
		Direction: model.Long, Entry: 100, TP: 102, SL: 91.16, State: model.StateActive,
	})
	tr2.OnBar(ctx, model.Bar{
		Instrument: "BTCUSDT", Timeframe: "1m", OpenTime: 60_000,
		Open: 100, High: 103, Low: 91, Close: 95, Volume: 1, Closed: true,
	})
	if barOutcome != model.StateSL {
		fmt.Printf("FAIL: spanning bar outcome=%s, expected SL\n", barOutcome)
		ok = false
	} else {
		fmt.Println("PASS: bar path resolves SL pessimistically")
	}

	if !ok {
		os.Exit(1)
	}
}
