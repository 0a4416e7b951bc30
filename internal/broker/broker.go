// Package broker defines the engine's single external collaborator: the
// broker data/order API. The engine only ever talks to the Broker interface;
// the REST implementation lives in this package and tests swap in mocks.
package broker

import (
	"context"
	"time"

	"github.com/quantleap/intraday-engine/internal/types"
)

// Broker supplies historical bars, instrument metadata, quotes, and order
// placement/status.
//
// Every method may fail with an authentication-class error
// (pkg/errors.IsAuth); the engine treats those as fatal. All other failures
// are per-call: the engine logs them and keeps running.
type Broker interface {
	// GetHistoricalBars returns closed bars for the instrument in
	// [from, to], ordered by timestamp.
	GetHistoricalBars(ctx context.Context, token string, interval types.Interval, from, to time.Time) ([]types.Bar, error)
	// GetInstruments returns the instrument master for an exchange.
	GetInstruments(ctx context.Context, exchange string) ([]types.Instrument, error)
	// GetQuote returns current quotes keyed by symbol.
	GetQuote(ctx context.Context, symbols []string) (map[string]types.Quote, error)
	// PlaceOrder submits an order and returns the broker order id.
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderReceipt, error)
	// GetOrderStatus returns the broker-reported state of a placed order.
	GetOrderStatus(ctx context.Context, orderID string) (types.OrderState, error)
}
