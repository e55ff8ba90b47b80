// Package binance implements the exchange source port against the
// Binance USDT-margined perpetual futures API: 1m kline and aggTrade
// websocket streams plus REST kline backfill.
package binance

import (
	"encoding/json"
	"strconv"
)

// Kline is a single candlestick as delivered by the exchange.
type Kline struct {
	Symbol    string
	Interval  string
	OpenTime  int64
	CloseTime int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	IsClosed  bool
}

// AggTrade is a single aggregated trade update.
type AggTrade struct {
	Symbol string
	Price  float64
	Qty    float64
	Time   int64
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	case float64:
		return t
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	case json.Number:
		i, _ := t.Int64()
		return i
	default:
		return 0
	}
}
