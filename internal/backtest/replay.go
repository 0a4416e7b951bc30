// Package backtest replays a recorded session through the live engine. The
// replay uses the real evaluator, state machine, and executor; only the
// broker and the clock are simulated, so the same fixture always produces the
// same trade log.
package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantleap/intraday-engine/internal/engine"
	"github.com/quantleap/intraday-engine/internal/logger"
	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

// Tick is one recorded fast-loop observation: option prices keyed by symbol.
type Tick struct {
	Time   time.Time          `yaml:"time"`
	Prices map[string]float64 `yaml:"prices"`
}

// Fixture is a full recorded session: the spot price at strike selection,
// the instrument master, per-token bar history, and the tick tape.
type Fixture struct {
	SpotPrice   float64                `yaml:"spot_price"`
	Instruments []types.Instrument     `yaml:"instruments"`
	Bars        map[string][]types.Bar `yaml:"bars"`
	Ticks       []Tick                 `yaml:"ticks"`
}

// ReplayBroker serves a Fixture through the Broker interface. Orders always
// fill; ids are sequential so runs are reproducible.
type ReplayBroker struct {
	mu     sync.Mutex
	bars   map[string][]types.Bar
	master []types.Instrument
	quotes map[string]types.Quote

	orderSeq int
}

// NewReplayBroker creates a broker over the fixture's recorded data.
func NewReplayBroker(fixture Fixture) *ReplayBroker {
	bars := make(map[string][]types.Bar, len(fixture.Bars))
	for token, series := range fixture.Bars {
		bars[token] = series
	}

	return &ReplayBroker{
		bars:   bars,
		master: fixture.Instruments,
		quotes: make(map[string]types.Quote),
	}
}

// SetQuote records the current replay price for a symbol.
func (b *ReplayBroker) SetQuote(symbol string, price float64, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.quotes[symbol] = types.Quote{
		Symbol:    symbol,
		LastPrice: price,
		Time:      at,
	}
}

// GetHistoricalBars returns the recorded bars inside [from, to).
func (b *ReplayBroker) GetHistoricalBars(_ context.Context, token string, _ types.Interval, from, to time.Time) ([]types.Bar, error) {
	series, ok := b.bars[token]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeInstrumentNotFound, "no recorded bars for token %s", token)
	}

	out := make([]types.Bar, 0, len(series))

	for _, bar := range series {
		if !bar.Time.Before(from) && bar.Time.Before(to) {
			out = append(out, bar)
		}
	}

	return out, nil
}

// GetInstruments returns the recorded instrument master.
func (b *ReplayBroker) GetInstruments(context.Context, string) ([]types.Instrument, error) {
	return b.master, nil
}

// GetQuote returns the current replay quotes.
func (b *ReplayBroker) GetQuote(_ context.Context, symbols []string) (map[string]types.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]types.Quote, len(symbols))

	for _, symbol := range symbols {
		if quote, ok := b.quotes[symbol]; ok {
			out[symbol] = quote
		}
	}

	return out, nil
}

// PlaceOrder always accepts with a sequential simulated order id.
func (b *ReplayBroker) PlaceOrder(_ context.Context, req types.OrderRequest) (types.OrderReceipt, error) {
	if err := req.Validate(); err != nil {
		return types.OrderReceipt{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.orderSeq++

	return types.OrderReceipt{OrderID: fmt.Sprintf("SIM-%d", b.orderSeq)}, nil
}

// GetOrderStatus reports every simulated order as filled.
func (b *ReplayBroker) GetOrderStatus(_ context.Context, orderID string) (types.OrderState, error) {
	return types.OrderState{
		OrderID: orderID,
		Status:  types.OrderStatusFilled,
	}, nil
}

// Driver steps a Fixture through the engine tick by tick on a virtual clock.
type Driver struct {
	engine  *engine.Engine
	broker  *ReplayBroker
	config  engine.Config
	fixture Fixture

	now time.Time
}

// NewDriver builds an engine wired to a replay broker. The config's stream
// URL is ignored; replay always polls.
func NewDriver(config engine.Config, fixture Fixture, log *logger.Logger) (*Driver, error) {
	if len(fixture.Ticks) == 0 {
		return nil, errors.New(errors.ErrCodeInsufficientData, "fixture has no ticks")
	}

	config.StreamURL = ""

	replayBroker := NewReplayBroker(fixture)

	eng, err := engine.New(config, replayBroker, log)
	if err != nil {
		return nil, err
	}

	eng.DisableExecutorDelays()

	return &Driver{
		engine:  eng,
		broker:  replayBroker,
		config:  config,
		fixture: fixture,
		now:     time.Time{},
	}, nil
}

// Engine exposes the driven engine for trade log and state inspection.
func (d *Driver) Engine() *engine.Engine {
	return d.engine
}

// Run replays the whole fixture: strike selection at the session's selection
// time, then one FastTick per recorded tick with a SlowTick at every bar
// boundary, then a final square-off at session end.
func (d *Driver) Run(ctx context.Context) error {
	first := d.fixture.Ticks[0].Time

	d.now = first
	d.engine.SetNow(func() time.Time { return d.now })

	// Spot quote must exist before strike selection.
	d.broker.SetQuote(d.config.Underlying, d.fixture.SpotPrice, first)

	if err := d.engine.Prepare(ctx); err != nil {
		return err
	}

	window := d.engine.Window()
	interval := d.config.Interval.Duration()
	lastBoundary := first.Truncate(interval)

	for _, tick := range d.fixture.Ticks {
		if window.Ended(tick.Time) {
			break
		}

		d.now = tick.Time

		for symbol, price := range tick.Prices {
			d.broker.SetQuote(symbol, price, tick.Time)
		}

		if boundary := tick.Time.Truncate(interval); boundary.After(lastBoundary) {
			lastBoundary = boundary

			if err := d.engine.SlowTick(ctx, tick.Time); err != nil {
				return err
			}
		}

		if err := d.engine.FastTick(ctx, tick.Time); err != nil {
			return err
		}
	}

	d.now = window.SessionEnd
	d.engine.SquareOff(ctx)

	return nil
}
