package indicator

import "github.com/quantleap/intraday-engine/internal/types"

// Window holds the rolling per-instrument state the scheduler feeds the
// indicator calculations from: a bounded window of closed bars and a bounded
// history of computed indicator values for previous-vs-current comparisons.
//
// Only closed bars may be appended. The forming bar never enters the window,
// so the most recent history value always corresponds to the most recently
// closed bar.
type Window struct {
	bars     []types.Bar
	capacity int

	values        []float64
	valueCapacity int
}

// NewWindow creates a Window that keeps at most capacity closed bars and
// valueCapacity computed indicator values. For an indicator with lookback
// period p, capacity must be at least p+1.
func NewWindow(capacity, valueCapacity int) *Window {
	return &Window{
		bars:          make([]types.Bar, 0, capacity),
		capacity:      capacity,
		values:        make([]float64, 0, valueCapacity),
		valueCapacity: valueCapacity,
	}
}

// AppendBar adds a closed bar, evicting the oldest when the window is full.
// Bars with timestamps at or before the newest kept bar are ignored so a
// re-fetch of overlapping history cannot double-append.
func (w *Window) AppendBar(bar types.Bar) {
	if n := len(w.bars); n > 0 && !bar.Time.After(w.bars[n-1].Time) {
		return
	}

	w.bars = append(w.bars, bar)
	if len(w.bars) > w.capacity {
		w.bars = w.bars[1:]
	}
}

// ReplaceBars resets the window to the given closed bars, keeping only the
// newest capacity entries. Input must be ordered by timestamp.
func (w *Window) ReplaceBars(bars []types.Bar) {
	if len(bars) > w.capacity {
		bars = bars[len(bars)-w.capacity:]
	}

	w.bars = w.bars[:0]
	w.bars = append(w.bars, bars...)
}

// Bars returns the closed bars currently in the window, oldest first.
func (w *Window) Bars() []types.Bar {
	return w.bars
}

// Closes returns the close prices of the window's bars, oldest first.
func (w *Window) Closes() []float64 {
	closes := make([]float64, len(w.bars))
	for i, bar := range w.bars {
		closes[i] = bar.Close
	}

	return closes
}

// Len returns the number of closed bars in the window.
func (w *Window) Len() int {
	return len(w.bars)
}

// PushValue records a computed indicator value for the latest closed bar.
func (w *Window) PushValue(v float64) {
	w.values = append(w.values, v)
	if len(w.values) > w.valueCapacity {
		w.values = w.values[1:]
	}
}

// Current returns the most recent indicator value, or ValueUnavailable when
// none has been recorded.
func (w *Window) Current() float64 {
	if len(w.values) == 0 {
		return ValueUnavailable
	}

	return w.values[len(w.values)-1]
}

// Previous returns the indicator value before the current one, or
// ValueUnavailable when fewer than two values exist.
func (w *Window) Previous() float64 {
	if len(w.values) < 2 {
		return ValueUnavailable
	}

	return w.values[len(w.values)-2]
}
