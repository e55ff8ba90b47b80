// Manual verification for the indicator kernel against hand-computed
// reference values.
package main

import (
	"fmt"
	"math"
	"os"

	"trading-core/internal/indicators"
)

func check(name string, got, want, tol float64) bool {
	if math.Abs(got-want) > tol {
		fmt.Printf("FAIL: %s = %v, expected %v\n", name, got, want)
		return false
	}
	fmt.Printf("PASS: %s = %v\n", name, got)
	return true
}

func main() {
	ok := true

	// EMA(3) over {1,2,3,4}: seed mean 2, then 4*0.5 + 2*0.5 = 3.
	ok = check("EMA", indicators.EMA([]float64{1, 2, 3, 4}, 3), 3, 1e-12) && ok

	// Constant unit ranges keep Wilder ATR pinned at 1.
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := range highs {
		highs[i], lows[i], closes[i] = 101, 100, 100.5
	}
	ok = check("ATR", indicators.ATR(highs, lows, closes, 9), 1, 1e-12) && ok

	// Fib 50 over hh=110 ll=90 is the midpoint 100.
	fh := []float64{110, 105, 104, 103, 102, 101, 100, 99, 98}
	fl := []float64{100, 95, 94, 93, 92, 91, 90, 91, 92}
	_, fib500, _ := indicators.FibLevels(fh, fl, 9)
	ok = check("Fib500", fib500, 100, 1e-12) && ok

	// VWAP of tp {10,20} with volumes {1,3} is 17.5.
	vw := indicators.VWAP([]float64{11, 21}, []float64{9, 19}, []float64{10, 20}, []float64{1, 3}, []int64{0, 60000}, nil)
	ok = check("VWAP", vw, 17.5, 1e-12) && ok

	if !ok {
		os.Exit(1)
	}
}
