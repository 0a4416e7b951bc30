package indicator

import "github.com/quantleap/intraday-engine/internal/types"

// VWAP computes the volume-weighted average price over the given bars:
// cumulative (typical price * volume) divided by cumulative volume, where
// typical price is (high + low + close) / 3.
//
// Returns 0 when cumulative volume is zero; callers treat 0 as "unavailable".
func VWAP(bars []types.Bar) float64 {
	var cumPV, cumVolume float64

	for _, bar := range bars {
		cumPV += bar.TypicalPrice() * bar.Volume
		cumVolume += bar.Volume
	}

	if cumVolume == 0 {
		return 0
	}

	return cumPV / cumVolume
}
