package entity

import (
	"fmt"
	"time"
)

// Market identifies the exchange a symbol trades on.
type Market string

const (
	MarketAStock  Market = "a_stock"
	MarketHKStock Market = "hk_stock"
	MarketUSStock Market = "us_stock"
)

// Candle is one OHLCV bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries is an ordered OHLCV sequence, ascending by timestamp with no
// duplicate timestamps. Consumers treat it as read-only.
type PriceSeries struct {
	Symbol  string   `json:"symbol"`
	Market  Market   `json:"market"`
	Candles []Candle `json:"candles"`
}

// Validate checks the ordering invariants.
func (p *PriceSeries) Validate() error {
	for i := 1; i < len(p.Candles); i++ {
		prev, cur := p.Candles[i-1].Timestamp, p.Candles[i].Timestamp
		if !cur.After(prev) {
			return fmt.Errorf("price series for %s not strictly ascending at index %d", p.Symbol, i)
		}
	}
	return nil
}

// Len reports the number of bars.
func (p *PriceSeries) Len() int {
	return len(p.Candles)
}

// Closes extracts the close prices in order.
func (p *PriceSeries) Closes() []float64 {
	out := make([]float64, len(p.Candles))
	for i, c := range p.Candles {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volumes in order.
func (p *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(p.Candles))
	for i, c := range p.Candles {
		out[i] = c.Volume
	}
	return out
}

// Latest returns the most recent bar.
func (p *PriceSeries) Latest() (Candle, bool) {
	if len(p.Candles) == 0 {
		return Candle{}, false
	}
	return p.Candles[len(p.Candles)-1], true
}
