// Manual verification for the signal layer: a canned retest window
// must emit exactly one SHORT, hold the lock, and price TP/SL on
// opposite sides of entry.
package main

import (
	"context"
	"fmt"
	"os"

	"trading-core/internal/atrtracker"
	"trading-core/internal/model"
	"trading-core/internal/signalgen"
	"trading-core/internal/streak"
)

func window() []model.Bar {
	var bars []model.Bar
	for i := 0; i < 51; i++ {
		bars = append(bars, model.Bar{
			Instrument: "BTCUSDT", Timeframe: "5m",
			OpenTime: int64(i) * 300_000,
			Open:     100, High: 101, Low: 99, Close: 100,
			Volume: 1, Closed: true,
		})
	}
	return append(bars, model.Bar{
		Instrument: "BTCUSDT", Timeframe: "5m",
		OpenTime: 51 * 300_000,
		Open:     100.2, High: 101, Low: 99.7, Close: 100.8,
		Volume: 1, Closed: true,
	})
}

func main() {
	gen := signalgen.New(signalgen.DefaultConfig(),
		atrtracker.New(1, 1000), streak.New(nil), nil, nil, nil)

	sig, err := gen.OnClosedBar(context.Background(), window())
	if err != nil {
		fmt.Println("FAIL:", err)
		os.Exit(1)
	}
	if sig == nil {
		fmt.Println("FAIL: no signal emitted from retest window")
		os.Exit(1)
	}

	ok := true
	if sig.Direction != model.Short {
		fmt.Printf("FAIL: direction %s, expected SHORT\n", sig.Direction)
		ok = false
	}
	if !(sig.TP < sig.Entry && sig.Entry < sig.SL) {
		fmt.Printf("FAIL: tp/sl sides: tp=%v entry=%v sl=%v\n", sig.TP, sig.Entry, sig.SL)
		ok = false
	}
	if !gen.Locked("BTCUSDT", "5m") {
		fmt.Println("FAIL: position lock not held after emit")
		ok = false
	}

	// The same conditions again must be blocked by the lock.
	again, err := gen.OnClosedBar(context.Background(), window())
	if err != nil || again != nil {
		fmt.Printf("FAIL: lock did not block second emit (sig=%v err=%v)\n", again, err)
		ok = false
	}

	if ok {
		fmt.Printf("PASS: SHORT %s entry=%.2f tp=%.2f sl=%.2f\n", sig.ID, sig.Entry, sig.TP, sig.SL)
	} else {
		os.Exit(1)
	}
}
