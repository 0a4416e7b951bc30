package engine

import (
	"math"

	"github.com/quantleap/intraday-engine/internal/indicator"
	"github.com/quantleap/intraday-engine/internal/types"
)

// The evaluator layer is pure: every function here is a function of its
// arguments only, so the same tick history always produces the same signals.
// It never returns errors; missing data shows up as sentinel indicator values
// and evaluates to "no signal".

// Band describes the entry zone [Reference-HighOffset, Reference-LowOffset].
type Band struct {
	Reference  float64
	HighOffset float64
	LowOffset  float64
}

// Bottom returns the lower edge of the entry zone.
func (b Band) Bottom() float64 {
	return b.Reference - b.HighOffset
}

// Top returns the upper edge of the entry zone.
func (b Band) Top() float64 {
	return b.Reference - b.LowOffset
}

// Inside reports whether price lies strictly inside the entry zone edges or
// on them. Zone membership is inclusive; the strict-inequality rule applies
// to crossings, not containment.
func (b Band) Inside(price float64) bool {
	return price >= b.Bottom() && price <= b.Top()
}

// Available reports whether the band has a usable reference value.
func (b Band) Available() bool {
	return b.Reference > 0
}

// BandBoundaryEntry evaluates the primary boundary-aligned band entry: the
// bar close sits inside the zone and the price has stayed above the band for
// at least requiredConsecutive prior observations.
func BandBoundaryEntry(band Band, close float64, consecutiveAboveBand, requiredConsecutive int) bool {
	if !band.Available() {
		return false
	}

	return band.Inside(close) && consecutiveAboveBand >= requiredConsecutive
}

// BandCrossEntry evaluates the intra-bar cross entry: the previous tick was
// still above the zone and the current tick has just come down inside it.
func BandCrossEntry(band Band, prevPrice, currPrice float64) bool {
	if !band.Available() {
		return false
	}

	return prevPrice > band.Top() && currPrice < prevPrice && band.Inside(currPrice)
}

// BandReentry evaluates the secondary "crossed again after an exit" entry.
// It is exempt from the consecutive-observation gate but requires a prior
// exit in the same cycle, a minimum tracked below the band since that exit,
// and the new low to breach the midpoint between the last exit price and
// that minimum. With no minimum tracked yet the midpoint is undefined and no
// signal may fire.
func BandReentry(band Band, currPrice float64, hasExited bool, lastExitPrice, postCrossMin float64) bool {
	if !band.Available() || !hasExited || postCrossMin == math.MaxFloat64 {
		return false
	}

	midpoint := (lastExitPrice + postCrossMin) / 2

	return currPrice < midpoint && currPrice >= band.Bottom()
}

// OscillatorEntry evaluates the momentum entry for one leg. The call leg
// fires when the oscillator falls back through the upper bound; the put leg
// fires on the symmetric rise through the lower bound.
func OscillatorEntry(leg types.OptionType, prevValue, currValue, upper, lower float64) bool {
	if !indicator.Available(prevValue) || !indicator.Available(currValue) {
		return false
	}

	switch leg {
	case types.OptionTypeCall:
		return prevValue >= upper && currValue < upper
	case types.OptionTypePut:
		return prevValue <= lower && currValue > lower
	default:
		return false
	}
}

// OscillatorExit mirrors OscillatorEntry with the opposite direction.
func OscillatorExit(leg types.OptionType, prevValue, currValue, upper, lower float64) bool {
	if !indicator.Available(prevValue) || !indicator.Available(currValue) {
		return false
	}

	switch leg {
	case types.OptionTypeCall:
		return prevValue <= upper && currValue > upper
	case types.OptionTypePut:
		return prevValue >= lower && currValue < lower
	default:
		return false
	}
}

// ExitInput carries everything the exit evaluation needs for one tick of an
// open short position.
type ExitInput struct {
	EntryPrice   float64
	CurrentPrice float64

	StopLossPoints     float64
	ProfitTargetPoints float64

	// TrailingThreshold is the current trailing stop level; it is always at
	// or below EntryPrice+InitialStopOffset and only ever tightens.
	TrailingThreshold      float64
	TrailingStepsCompleted int

	// Reference is the reclaim line; zero means unavailable.
	Reference float64
}

// EvaluateExit applies the exit conditions in priority order: profit target,
// then stop loss (fixed or trailing, whichever is tighter), then reference
// reclaim. Ties are no signal; conditions use strict inequalities.
func EvaluateExit(in ExitInput) (string, bool) {
	// 1. Profit target: price moved favorably by the configured points.
	if in.CurrentPrice < in.EntryPrice-in.ProfitTargetPoints {
		return types.OrderReasonProfitTarget, true
	}

	// 2. Stop loss: adverse move past the fixed offset or the trailing
	// threshold, whichever is tighter.
	stopLevel := in.EntryPrice + in.StopLossPoints
	if in.TrailingThreshold < stopLevel {
		stopLevel = in.TrailingThreshold
	}

	if in.CurrentPrice > stopLevel {
		if in.TrailingThreshold < in.EntryPrice+in.StopLossPoints {
			return types.OrderReasonTrailingStop, true
		}

		return types.OrderReasonStopLoss, true
	}

	// 3. Reference reclaim: honored only once at least one trailing step has
	// completed so a fresh entry cannot flip-flop straight back out.
	if in.Reference > 0 && in.TrailingStepsCompleted >= 1 && in.CurrentPrice > in.Reference {
		return types.OrderReasonReferenceReclaim, true
	}

	return "", false
}
