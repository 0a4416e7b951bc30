package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// TradeAction identifies the direction of a trade record.
type TradeAction string

const (
	TradeActionEntry TradeAction = "ENTRY"
	TradeActionExit  TradeAction = "EXIT"
)

// Trade is one immutable append-only trade log entry. Records are never
// mutated after creation; the day's P&L is reconstructed from them.
type Trade struct {
	Time     time.Time   `csv:"time"`
	Symbol   string      `csv:"symbol"`
	Action   TradeAction `csv:"action"`
	Price    float64     `csv:"price"`
	Quantity int         `csv:"quantity"`
	// Reason is a human-readable explanation, e.g. "stop_loss" or
	// "entry_signal".
	Reason string `csv:"reason"`
	// OrderID is the broker order id when the order was confirmed; exits
	// accepted best-effort after a placement error carry no id.
	OrderID optional.Option[string] `csv:"-"`
	// RealizedPnL is set on EXIT records only.
	RealizedPnL optional.Option[float64] `csv:"-"`
}

// ShortPnL returns the realized profit of a short round trip,
// (entry - exit) * quantity, computed in decimal to avoid float drift on
// large lot sizes.
func ShortPnL(entryPrice, exitPrice float64, quantity int) float64 {
	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	qty := decimal.NewFromInt(int64(quantity))

	pnl, _ := entry.Sub(exit).Mul(qty).Float64()

	return pnl
}
