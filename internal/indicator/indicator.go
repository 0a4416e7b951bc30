// Package indicator contains the pure indicator calculations the engine
// derives its reference values from. Every function is a pure function of its
// inputs: no hidden state, safe to call repeatedly with a growing series.
//
// Short input never produces an error. RSI returns ValueUnavailable and VWAP
// returns zero; callers must gate on "enough history" before trusting a
// reading.
package indicator

// ValueUnavailable is the sentinel returned when a calculation does not have
// enough observations yet. It is outside the RSI range [0, 100], so callers
// can never mistake it for a real reading.
const ValueUnavailable float64 = -1

// Available reports whether v is a real indicator reading rather than the
// unavailable sentinel.
func Available(v float64) bool {
	return v != ValueUnavailable
}
