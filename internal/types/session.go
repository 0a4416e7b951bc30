package types

import "time"

// SessionWindow is the immutable per-day tuple of timestamps that gates every
// other component. It is computed once at startup from the current date in a
// fixed timezone.
type SessionWindow struct {
	// SessionStart is the exchange open.
	SessionStart time.Time
	// StrikeSelectionTime is when the day's instruments are chosen from the
	// spot price. Selection happens exactly once.
	StrikeSelectionTime time.Time
	// TradeStartTime is the earliest time an entry may be taken.
	TradeStartTime time.Time
	// SessionEnd is when both loops stop and all open positions are
	// force-closed.
	SessionEnd time.Time
}

// Contains reports whether t falls inside the trading window
// [TradeStartTime, SessionEnd).
func (w SessionWindow) Contains(t time.Time) bool {
	return !t.Before(w.TradeStartTime) && t.Before(w.SessionEnd)
}

// Ended reports whether t is at or past the session end.
func (w SessionWindow) Ended(t time.Time) bool {
	return !t.Before(w.SessionEnd)
}
