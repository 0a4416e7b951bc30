package types

import "time"

// PositionState is the lifecycle state of a per-instrument position.
//
// The machine is CLOSED -> PENDING_ENTRY -> OPEN -> PENDING_EXIT -> CLOSED.
// The pending states double as the mutual-exclusion guard: while one is set,
// no other entry or exit may start for the same instrument.
type PositionState string

const (
	PositionStateClosed       PositionState = "CLOSED"
	PositionStatePendingEntry PositionState = "PENDING_ENTRY"
	PositionStateOpen         PositionState = "OPEN"
	PositionStatePendingExit  PositionState = "PENDING_EXIT"
)

// Position tracks one instrument's open short position and its trailing-stop
// state. It is created on a confirmed entry order and mutated only by the
// position state machine. At most one open Position exists per instrument.
type Position struct {
	Symbol     string        `csv:"symbol"`
	State      PositionState `csv:"state"`
	EntryPrice float64       `csv:"entry_price"`
	EntryTime  time.Time     `csv:"entry_time"`
	Quantity   int           `csv:"quantity"`
	// EntryOrderID is the broker order id of the confirmed entry, if any.
	EntryOrderID string `csv:"entry_order_id"`

	// TrailingStopThreshold is the current stop level. It only tightens
	// (moves down) while the position is open, never loosens.
	TrailingStopThreshold float64 `csv:"trailing_stop_threshold"`
	// TrailingStepsCompleted counts how many trailing adjustments have run.
	// The reference-reclaim exit is honored only once this is at least one.
	TrailingStepsCompleted int `csv:"trailing_steps_completed"`
	// NextTriggerPrice is the price level whose breach runs the next
	// trailing adjustment.
	NextTriggerPrice float64 `csv:"next_trigger_price"`
}

// IsOpen reports whether the position currently holds an open leg, including
// the window where an exit is pending but not yet confirmed.
func (p *Position) IsOpen() bool {
	return p.State == PositionStateOpen || p.State == PositionStatePendingExit
}

// IsPending reports whether an entry or exit operation is in flight. While
// pending, no second operation may start for the instrument.
func (p *Position) IsPending() bool {
	return p.State == PositionStatePendingEntry || p.State == PositionStatePendingExit
}
