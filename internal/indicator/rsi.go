package indicator

// RSI computes the Wilder-smoothed Relative Strength Index over the given
// closes with lookback period. The seed average gain/loss is the simple mean
// of the first period steps; every later step applies Wilder smoothing,
// avg = (avg*(period-1) + new) / period.
//
// Returns 100 when the average loss is zero (a pure uptrend) and
// ValueUnavailable when fewer than period+1 closes exist.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return ValueUnavailable
	}

	gains := make([]float64, 0, len(closes)-1)
	losses := make([]float64, 0, len(closes)-1)

	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	avgGain := 0.0
	avgLoss := 0.0

	// First average
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Subsequent averages using Wilder's smoothing method
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}
