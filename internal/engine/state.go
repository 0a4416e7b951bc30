package engine

import (
	"math"
	"time"

	"github.com/quantleap/intraday-engine/internal/indicator"
	"github.com/quantleap/intraday-engine/internal/types"
)

// InstrumentState is everything the engine tracks for one tradable leg: the
// rolling indicator window, the position state machine, and the band-cycle
// bookkeeping the secondary entry depends on.
//
// All mutations happen on the scheduler goroutine; the pending states of the
// position act as the lock across the asynchronous broker-call gap.
type InstrumentState struct {
	Instrument types.Instrument
	Window     *indicator.Window
	Position   types.Position

	// Reference is the current reference value (VWAP or oscillator level).
	Reference float64

	// PrevTickPrice and LastTickPrice are the previous and current fast-loop
	// observations, used for the intra-bar cross entry.
	PrevTickPrice float64
	LastTickPrice float64

	// ConsecutiveAboveBand counts successive observations above the entry
	// zone; the primary boundary entry is gated on it.
	ConsecutiveAboveBand int

	// HasExitedThisCycle is set after the first completed exit and unlocks
	// the secondary re-entry category.
	HasExitedThisCycle bool
	// LastExitPrice is the price of the most recent exit in this cycle.
	LastExitPrice float64
	// PostCrossMin is the lowest tick seen since the price crossed below the
	// band. Reset when a new cycle starts.
	PostCrossMin float64
}

// NewInstrumentState creates the state for one instrument with an indicator
// window sized for the given lookback period.
func NewInstrumentState(instrument types.Instrument, period, lookbackBars int) *InstrumentState {
	capacity := lookbackBars
	if capacity < period+1 {
		capacity = period + 1
	}

	return &InstrumentState{
		Instrument: instrument,
		Window:     indicator.NewWindow(capacity, 8),
		Position: types.Position{
			Symbol: instrument.Symbol,
			State:  types.PositionStateClosed,
		},
		Reference:            0,
		PrevTickPrice:        0,
		LastTickPrice:        0,
		ConsecutiveAboveBand: 0,
		HasExitedThisCycle:   false,
		LastExitPrice:        0,
		PostCrossMin:         math.MaxFloat64,
	}
}

// ObserveTick records a fast-loop price observation and maintains the
// post-cross minimum.
func (s *InstrumentState) ObserveTick(price float64, band Band) {
	s.PrevTickPrice = s.LastTickPrice
	s.LastTickPrice = price

	if band.Available() && price < band.Bottom() && price < s.PostCrossMin {
		s.PostCrossMin = price
	}
}

// ObserveClose updates the consecutive-above-band counter from a bar close
// under the configured reset policy. It returns the counter as it stood
// before this close: the close that lands inside the zone is the one being
// gated, so it must not erase the streak it confirms.
func (s *InstrumentState) ObserveClose(close float64, band Band, policy ConsecutiveResetPolicy) int {
	prior := s.ConsecutiveAboveBand

	if !band.Available() {
		return prior
	}

	if close > band.Top() {
		s.ConsecutiveAboveBand++

		return prior
	}

	if policy == ResetOnTick {
		s.ConsecutiveAboveBand = 0
	}

	return prior
}

// BeginEntry transitions CLOSED -> PENDING_ENTRY. It returns false when the
// position is not flat or an operation is already in flight, which is the
// idempotency guard against two loop iterations observing the same signal.
// The flag is set synchronously, before any broker I/O starts.
func (s *InstrumentState) BeginEntry() bool {
	if s.Position.State != types.PositionStateClosed {
		return false
	}

	s.Position.State = types.PositionStatePendingEntry

	return true
}

// ConfirmEntry transitions PENDING_ENTRY -> OPEN with the confirmed fill,
// seeding the trailing-stop sub-protocol.
func (s *InstrumentState) ConfirmEntry(price float64, at time.Time, orderID string, quantity int, risk RiskConfig) {
	s.Position.State = types.PositionStateOpen
	s.Position.EntryPrice = price
	s.Position.EntryTime = at
	s.Position.EntryOrderID = orderID
	s.Position.Quantity = quantity
	s.Position.TrailingStopThreshold = price + risk.InitialStopOffset
	s.Position.TrailingStepsCompleted = 0
	s.Position.NextTriggerPrice = price - risk.TrailingStepSize
}

// AbortEntry reverts PENDING_ENTRY -> CLOSED after a failed placement. No
// partial state survives.
func (s *InstrumentState) AbortEntry() {
	s.Position = types.Position{
		Symbol: s.Instrument.Symbol,
		State:  types.PositionStateClosed,
	}
}

// BeginExit transitions OPEN -> PENDING_EXIT. Returns false when no exit can
// start (not open, or one is already pending).
func (s *InstrumentState) BeginExit() bool {
	if s.Position.State != types.PositionStateOpen {
		return false
	}

	s.Position.State = types.PositionStatePendingExit

	return true
}

// RetryExitLater reverts PENDING_EXIT -> OPEN after a non-fatal placement
// failure so the next evaluation tick can retry the exit.
func (s *InstrumentState) RetryExitLater() {
	if s.Position.State == types.PositionStatePendingExit {
		s.Position.State = types.PositionStateOpen
	}
}

// ConfirmExit transitions PENDING_EXIT -> CLOSED, records the cycle state the
// secondary entry needs, and returns the realized P&L of the round trip.
func (s *InstrumentState) ConfirmExit(exitPrice float64, policy ConsecutiveResetPolicy) float64 {
	pnl := types.ShortPnL(s.Position.EntryPrice, exitPrice, s.Position.Quantity)

	s.HasExitedThisCycle = true
	s.LastExitPrice = exitPrice
	s.PostCrossMin = math.MaxFloat64

	if policy == ResetOnExit {
		s.ConsecutiveAboveBand = 0
	}

	s.Position = types.Position{
		Symbol: s.Instrument.Symbol,
		State:  types.PositionStateClosed,
	}

	return pnl
}

// AdvanceTrailing runs the trailing-stop sub-protocol for one price
// observation: every full step the price has dropped below the last trigger
// tightens the threshold by the adjustment amount and moves the trigger down
// one step. Returns how many steps ran. The threshold never loosens.
func (s *InstrumentState) AdvanceTrailing(price float64, risk RiskConfig) int {
	if s.Position.State != types.PositionStateOpen {
		return 0
	}

	steps := 0

	for price < s.Position.NextTriggerPrice {
		s.Position.TrailingStopThreshold -= risk.TrailingAdjustAmount
		s.Position.NextTriggerPrice -= risk.TrailingStepSize
		s.Position.TrailingStepsCompleted++
		steps++
	}

	return steps
}

// EngineState owns all mutable engine state: one InstrumentState per leg plus
// the daily stop-loss counter. It is created by the engine and passed
// explicitly; nothing here is package-level.
type EngineState struct {
	Instruments map[string]*InstrumentState

	// StopLossCount counts stop-loss and trailing-stop exits today.
	StopLossCount int

	// Signals keeps the most recent acted-on evaluator decisions, newest
	// last.
	Signals []types.Signal
}

// signalHistory bounds the retained signal records.
const signalHistory = 64

// NewEngineState creates an empty EngineState.
func NewEngineState() *EngineState {
	return &EngineState{
		Instruments:   make(map[string]*InstrumentState),
		StopLossCount: 0,
		Signals:       nil,
	}
}

// RecordSignal appends a decision record, evicting the oldest past the
// history bound.
func (e *EngineState) RecordSignal(sig types.Signal) {
	e.Signals = append(e.Signals, sig)

	if len(e.Signals) > signalHistory {
		e.Signals = e.Signals[len(e.Signals)-signalHistory:]
	}
}

// Add registers an instrument state, keyed by symbol.
func (e *EngineState) Add(state *InstrumentState) {
	e.Instruments[state.Instrument.Symbol] = state
}

// EntriesSuppressed reports whether the daily stop-loss cap has been reached;
// once true, no further entries are evaluated for the rest of the session.
func (e *EngineState) EntriesSuppressed(limit int) bool {
	return e.StopLossCount >= limit
}

// RecordExitReason bumps the stop-loss counter for stop-class exit reasons.
func (e *EngineState) RecordExitReason(reason string) {
	if reason == types.OrderReasonStopLoss || reason == types.OrderReasonTrailingStop {
		e.StopLossCount++
	}
}
