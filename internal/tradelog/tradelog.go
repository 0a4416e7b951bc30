// Package tradelog keeps the engine's append-only trade record log and
// exports it as CSV for the tracker endpoints and offline analysis.
package tradelog

import (
	"io"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"github.com/quantleap/intraday-engine/internal/types"
)

// Log is an append-only, thread-safe sequence of trade records. Records are
// never mutated after Append.
type Log struct {
	mu     sync.Mutex
	trades []types.Trade
}

// NewLog creates an empty trade log.
func NewLog() *Log {
	return &Log{
		trades: make([]types.Trade, 0, 16),
	}
}

// Append adds one record to the log.
func (l *Log) Append(trade types.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trades = append(l.trades, trade)
}

// Trades returns a copy of the log in append order.
func (l *Log) Trades() []types.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.Trade, len(l.trades))
	copy(out, l.trades)

	return out
}

// Len returns the number of records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.trades)
}

// DayPnL reconstructs the realized P&L of the day by summing the EXIT
// records.
func (l *Log) DayPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := decimal.Zero

	for _, trade := range l.trades {
		if trade.Action != types.TradeActionExit {
			continue
		}

		if pnl := trade.RealizedPnL; pnl.IsSome() {
			total = total.Add(decimal.NewFromFloat(pnl.Unwrap()))
		}
	}

	result, _ := total.Float64()

	return result
}

// csvTrade is the flattened CSV row shape; optional fields render as empty
// cells when absent.
type csvTrade struct {
	Time        string  `csv:"time"`
	Symbol      string  `csv:"symbol"`
	Action      string  `csv:"action"`
	Price       float64 `csv:"price"`
	Quantity    int     `csv:"quantity"`
	Reason      string  `csv:"reason"`
	OrderID     string  `csv:"order_id"`
	RealizedPnL string  `csv:"realized_pnl"`
}

// WriteCSV writes the full log to w in CSV form.
func (l *Log) WriteCSV(w io.Writer) error {
	trades := l.Trades()

	rows := make([]csvTrade, 0, len(trades))

	for _, trade := range trades {
		row := csvTrade{
			Time:     trade.Time.Format("2006-01-02 15:04:05"),
			Symbol:   trade.Symbol,
			Action:   string(trade.Action),
			Price:    trade.Price,
			Quantity: trade.Quantity,
			Reason:   trade.Reason,
		}

		if id := trade.OrderID; id.IsSome() {
			row.OrderID = id.Unwrap()
		}

		if pnl := trade.RealizedPnL; pnl.IsSome() {
			row.RealizedPnL = decimal.NewFromFloat(pnl.Unwrap()).StringFixed(2)
		}

		rows = append(rows, row)
	}

	return gocsv.Marshal(rows, w)
}
