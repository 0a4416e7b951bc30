package types

import "time"

// Interval is a bar bucketing interval understood by the broker historical API.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
)

// Duration returns the wall-clock length of one bar.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1m:
		return time.Minute
	case Interval3m:
		return 3 * time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	default:
		return time.Minute
	}
}

// Bar is one time-bucketed price observation. Bars are immutable once
// received and ordered by timestamp; they are the source of truth for
// indicator calculations.
type Bar struct {
	Time   time.Time `csv:"time" json:"time"`
	Open   float64   `csv:"open" json:"open"`
	High   float64   `csv:"high" json:"high"`
	Low    float64   `csv:"low" json:"low"`
	Close  float64   `csv:"close" json:"close"`
	Volume float64   `csv:"volume" json:"volume"`
}

// TypicalPrice returns (high + low + close) / 3, the per-bar input to VWAP.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Quote is a point-in-time price snapshot for one symbol.
type Quote struct {
	Symbol       string    `json:"symbol"`
	LastPrice    float64   `json:"last_price"`
	AveragePrice float64   `json:"average_price"`
	Time         time.Time `json:"time"`
}
