package types

import "time"

type SignalType string

const (
	// SignalTypeEntry tells the state machine to open a short position.
	SignalTypeEntry SignalType = "entry"
	// SignalTypeExit tells the state machine to close the open position.
	SignalTypeExit SignalType = "exit"
	// SignalTypeNoAction means no condition fired this tick.
	SignalTypeNoAction SignalType = "no_action"
)

// Signal is the typed output of the evaluator layer: one decision per
// instrument per tick, with the reason and the raw values that produced it.
type Signal struct {
	Time   time.Time
	Type   SignalType
	Symbol string
	// Reason names the condition that fired, e.g. "stop_loss",
	// "band_cross", "oscillator_cross".
	Reason string
	// Price is the tick price the decision was made on.
	Price float64
	// Reference is the reference value (VWAP or oscillator level) at
	// decision time.
	Reference float64
}
