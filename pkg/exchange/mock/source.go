// Package mock generates a synthetic random-walk market for local
// development, implementing the exchange source port.
package mock

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"trading-core/internal/model"
	"trading-core/internal/ports"
)

// Source emits one synthetic closed 1m bar per instrument per
// interval, plus a trade print each second. Prices follow a simple
// random walk.
type Source struct {
	StartPrice float64
	Step       float64
	// Interval compresses time: one "minute" bar is emitted per
	// Interval. Defaults to 2s so local runs move quickly.
	Interval time.Duration

	mu     sync.Mutex
	prices map[string]float64
	opens  map[string]int64
}

func (m *Source) defaults() {
	if m.StartPrice == 0 {
		m.StartPrice = 100
	}
	if m.Step == 0 {
		m.Step = 0.5
	}
	if m.Interval == 0 {
		m.Interval = 2 * time.Second
	}
	if m.prices == nil {
		m.prices = make(map[string]float64)
		m.opens = make(map[string]int64)
	}
}

func (m *Source) next(inst string) (open, high, low, close float64, openTime int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.prices[inst]
	if !ok {
		p = m.StartPrice
		m.opens[inst] = (time.Now().UnixMilli() / model.MsPerMinute) * model.MsPerMinute
	}
	open = p
	for i := 0; i < 4; i++ {
		p += (rand.Float64()*2 - 1) * m.Step
		if p < m.Step {
			p = m.Step
		}
		if p > high || i == 0 {
			high = p
		}
		if p < low || i == 0 {
			low = p
		}
	}
	if open > high {
		high = open
	}
	if open < low {
		low = open
	}
	close = p

	m.prices[inst] = p
	m.opens[inst] += model.MsPerMinute
	return open, high, low, close, m.opens[inst]
}

// SubscribeBars1m emits synthetic closed bars until ctx ends or stop
// is called.
func (m *Source) SubscribeBars1m(ctx context.Context, instruments []string, h ports.BarHandler) (func(), error) {
	m.defaults()
	done := make(chan struct{})

	go func() {
		t := time.NewTicker(m.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-t.C:
				for _, inst := range instruments {
					open, high, low, close, openTime := m.next(inst)
					h(model.Bar{
						Instrument: inst, Timeframe: "1m", OpenTime: openTime,
						Open: open, High: high, Low: low, Close: close,
						Volume: 1 + rand.Float64()*10, Closed: true,
					})
				}
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// SubscribeTrades emits one synthetic trade per instrument per second
// at the current walk price.
func (m *Source) SubscribeTrades(ctx context.Context, instruments []string, h ports.TradeHandler) (func(), error) {
	m.defaults()
	done := make(chan struct{})

	go func() {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-t.C:
				for _, inst := range instruments {
					m.mu.Lock()
					p, ok := m.prices[inst]
					m.mu.Unlock()
					if !ok {
						continue
					}
					h(model.Trade{
						Instrument: inst, Price: p,
						Quantity: rand.Float64(), Time: time.Now().UnixMilli(),
					})
				}
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// FetchBars returns nothing: the synthetic market has no history.
func (m *Source) FetchBars(context.Context, string, int64, int64) ([]model.Bar, error) {
	return nil, nil
}
