package binance

import (
	"context"
	"fmt"
	"sync"

	"trading-core/internal/model"
	"trading-core/internal/ports"
)

// Source combines the REST and websocket clients into the core's
// exchange source port.
type Source struct {
	rest   *Client
	stream *StreamClient
}

// NewSource builds the concrete exchange source.
func NewSource(testnet bool) *Source {
	return &Source{
		rest:   NewClient(testnet),
		stream: NewStreamClient(testnet),
	}
}

// SubscribeBars1m opens one kline stream per instrument and forwards
// every arrival (closed or not) to the handler as a model.Bar.
func (s *Source) SubscribeBars1m(ctx context.Context, instruments []string, h ports.BarHandler) (func(), error) {
	var stops []func()
	for _, inst := range instruments {
		ch, stop, err := s.stream.SubscribeKlines(ctx, inst, "1m")
		if err != nil {
			for _, st := range stops {
				st()
			}
			return nil, fmt.Errorf("subscribe klines %s: %w", inst, err)
		}
		stops = append(stops, stop)

		go func() {
			for k := range ch {
				h(model.Bar{
					Instrument: k.Symbol,
					Timeframe:  "1m",
					OpenTime:   k.OpenTime,
					Open:       k.Open,
					High:       k.High,
					Low:        k.Low,
					Close:      k.Close,
					Volume:     k.Volume,
					Closed:     k.IsClosed,
				})
			}
		}()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, stop := range stops {
				stop()
			}
		})
	}, nil
}

// SubscribeTrades opens one aggTrade stream per instrument.
func (s *Source) SubscribeTrades(ctx context.Context, instruments []string, h ports.TradeHandler) (func(), error) {
	var stops []func()
	for _, inst := range instruments {
		ch, stop, err := s.stream.SubscribeAggTrades(ctx, inst)
		if err != nil {
			for _, st := range stops {
				st()
			}
			return nil, fmt.Errorf("subscribe trades %s: %w", inst, err)
		}
		stops = append(stops, stop)

		go func() {
			for t := range ch {
				h(model.Trade{
					Instrument: t.Symbol,
					Price:      t.Price,
					Quantity:   t.Qty,
					Time:       t.Time,
				})
			}
		}()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, stop := range stops {
				stop()
			}
		})
	}, nil
}

// FetchBars pages through the REST kline endpoint until the requested
// range is covered.
func (s *Source) FetchBars(ctx context.Context, instrument string, from, to int64) ([]model.Bar, error) {
	var out []model.Bar
	cursor := from
	for cursor <= to {
		klines, err := s.rest.GetKlines(ctx, instrument, "1m", maxKlinesPerRequest, cursor, to)
		if err != nil {
			return nil, fmt.Errorf("fetch bars %s: %w", instrument, err)
		}
		if len(klines) == 0 {
			break
		}
		for _, k := range klines {
			out = append(out, model.Bar{
				Instrument: k.Symbol,
				Timeframe:  "1m",
				OpenTime:   k.OpenTime,
				Open:       k.Open,
				High:       k.High,
				Low:        k.Low,
				Close:      k.Close,
				Volume:     k.Volume,
				Closed:     true,
			})
		}
		next := klines[len(klines)-1].OpenTime + model.MsPerMinute
		if next <= cursor {
			break
		}
		cursor = next
	}
	return out, nil
}
