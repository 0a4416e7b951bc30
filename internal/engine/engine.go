// Package engine implements the live signal-and-position engine: indicator
// derivation, entry/exit evaluation, the per-instrument position state
// machine, idempotent order execution, and the dual-cadence scheduler that
// drives them between the session's fixed time boundaries.
package engine

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quantleap/intraday-engine/internal/broker"
	"github.com/quantleap/intraday-engine/internal/engine/session"
	"github.com/quantleap/intraday-engine/internal/logger"
	"github.com/quantleap/intraday-engine/internal/metrics"
	"github.com/quantleap/intraday-engine/internal/tradelog"
	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

// Engine owns all mutable state for one trading session. Both cadence loops
// run on a single scheduler goroutine, so state transitions are straight-line
// code; the position pending states guard the gaps spanned by broker calls.
type Engine struct {
	config   Config
	broker   broker.Broker
	executor *Executor
	log      *logger.Logger

	state  *EngineState
	trades *tradelog.Log
	clock  *session.Clock
	window types.SessionWindow

	// now is injectable for tests and the replay driver.
	now func() time.Time

	// lastRefresh is when the fast loop last recomputed the reference.
	lastRefresh time.Time

	// streamed quotes, written by the WS handler, read by the fast loop.
	quoteMu       sync.RWMutex
	streamQuotes  map[string]types.Quote
	streamEnabled bool
}

// New creates an Engine from config with the given broker implementation.
func New(config Config, b broker.Broker, log *logger.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clock, err := session.NewClock(config.Session)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:        config,
		broker:        b,
		executor:      NewExecutor(b, log),
		log:           log,
		state:         NewEngineState(),
		trades:        tradelog.NewLog(),
		clock:         clock,
		window:        types.SessionWindow{},
		now:           time.Now,
		lastRefresh:   time.Time{},
		quoteMu:       sync.RWMutex{},
		streamQuotes:  make(map[string]types.Quote),
		streamEnabled: config.StreamURL != "",
	}, nil
}

// State exposes the engine state to the replay driver and tests.
func (e *Engine) State() *EngineState {
	return e.state
}

// Trades exposes the append-only trade log.
func (e *Engine) Trades() *tradelog.Log {
	return e.trades
}

// SetNow overrides the engine clock. Used by tests and the replay driver.
func (e *Engine) SetNow(now func() time.Time) {
	e.now = now
}

// Window returns the resolved session window. Zero until Prepare or Run has
// run.
func (e *Engine) Window() types.SessionWindow {
	return e.window
}

// DisableExecutorDelays removes the order retry and verification waits so
// replayed sessions do not consume wall-clock time.
func (e *Engine) DisableExecutorDelays() {
	e.executor.sleep = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}
}

// Prepare resolves today's session window and performs strike selection
// without starting the loops. The replay driver calls it directly with a
// virtual clock already positioned at the selection time.
func (e *Engine) Prepare(ctx context.Context) error {
	window, err := e.clock.WindowFor(e.now())
	if err != nil {
		return err
	}

	e.window = window

	if window.Ended(e.now()) {
		return errors.New(errors.ErrCodeInvalidSessionWindow, "session already ended for today")
	}

	return e.selectInstruments(ctx)
}

// Run executes one full session: wait for the strike-selection time, select
// instruments, run both cadence loops until session end or cancellation, then
// square off and flush the trade log.
//
// The returned error is nil on a clean session end; an auth-class error means
// the broker session died mid-flight and positions may need manual
// reconciliation.
func (e *Engine) Run(ctx context.Context) error {
	window, err := e.clock.WindowFor(e.now())
	if err != nil {
		return err
	}

	e.window = window

	if window.Ended(e.now()) {
		return errors.New(errors.ErrCodeInvalidSessionWindow, "session already ended for today")
	}

	if err := e.waitUntil(ctx, window.StrikeSelectionTime); err != nil {
		return err
	}

	if err := e.selectInstruments(ctx); err != nil {
		e.flushTrades()

		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)

	var stream *broker.QuoteStream

	if e.streamEnabled {
		stream = broker.NewQuoteStream(e.config.StreamURL, e.symbols(), e.onStreamQuote, e.log)

		group.Go(func() error {
			return stream.Run(groupCtx)
		})
	}

	group.Go(func() error {
		defer func() {
			if stream != nil {
				stream.Close()
			}
		}()

		return e.runLoops(groupCtx)
	})

	runErr := group.Wait()

	e.flushTrades()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	return nil
}

// selectInstruments performs the one-time strike selection: spot quote, ATM
// rounding, and CE/PE resolution from the instrument master, then seeds each
// leg's indicator window from historical bars.
func (e *Engine) selectInstruments(ctx context.Context) error {
	quotes, err := e.broker.GetQuote(ctx, []string{e.config.Underlying})
	if err != nil {
		metrics.BrokerError("quote")

		return errors.Wrap(errors.ErrCodeQuoteUnavailable, "fetch underlying spot", err)
	}

	spot, ok := quotes[e.config.Underlying]
	if !ok || spot.LastPrice <= 0 {
		return errors.Newf(errors.ErrCodeQuoteUnavailable, "no spot quote for %s", e.config.Underlying)
	}

	atm := NearestStrike(spot.LastPrice, e.config.StrikeStep)

	master, err := e.broker.GetInstruments(ctx, e.config.Exchange)
	if err != nil {
		metrics.BrokerError("instruments")

		return err
	}

	ce, pe, err := SelectLegs(master, e.config.SymbolPrefix, atm, e.now(), e.clock.Location())
	if err != nil {
		return err
	}

	e.log.Info("instruments selected",
		zap.Float64("spot", spot.LastPrice),
		zap.Float64("atm_strike", atm),
		zap.String("ce", ce.Symbol),
		zap.String("pe", pe.Symbol),
	)

	for _, inst := range []types.Instrument{ce, pe} {
		state := NewInstrumentState(inst, e.config.Strategy.RSIPeriod, e.config.LookbackBars)
		e.state.Add(state)

		if err := e.seedWindow(ctx, state); err != nil {
			return err
		}
	}

	return nil
}

// seedWindow loads the leg's closed-bar history and computes the first
// reference value.
func (e *Engine) seedWindow(ctx context.Context, state *InstrumentState) error {
	to := e.lastClosedBoundary(e.now())
	from := to.Add(-time.Duration(e.config.LookbackBars) * e.config.Interval.Duration())

	bars, err := e.broker.GetHistoricalBars(ctx, state.Instrument.Token, e.config.Interval, from, to)
	if err != nil {
		metrics.BrokerError("history")

		return err
	}

	state.Window.ReplaceBars(bars)
	e.refreshReference(state)

	return nil
}

// symbols returns the selected leg symbols.
func (e *Engine) symbols() []string {
	out := make([]string, 0, len(e.state.Instruments))
	for symbol := range e.state.Instruments {
		out = append(out, symbol)
	}

	return out
}

// onStreamQuote stores the latest streamed tick for the fast loop.
func (e *Engine) onStreamQuote(quote types.Quote) {
	e.quoteMu.Lock()
	defer e.quoteMu.Unlock()

	e.streamQuotes[quote.Symbol] = quote
}

// waitUntil blocks until t or cancellation. Returns immediately when t has
// passed.
func (e *Engine) waitUntil(ctx context.Context, t time.Time) error {
	delay := t.Sub(e.now())
	if delay <= 0 {
		return nil
	}

	e.log.Info("waiting for session boundary",
		zap.Time("until", t),
		zap.Duration("delay", delay),
	)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// lastClosedBoundary truncates t down to the most recent closed-bar boundary.
func (e *Engine) lastClosedBoundary(t time.Time) time.Time {
	return t.Truncate(e.config.Interval.Duration())
}

// nextBoundary returns the first bar boundary strictly after t.
func nextBoundary(t time.Time, interval time.Duration) time.Time {
	return t.Truncate(interval).Add(interval)
}

// flushTrades writes the CSV trade log. Called on every terminal path,
// including the auth-fatal one.
func (e *Engine) flushTrades() {
	file, err := os.Create(e.config.TradeLogPath)
	if err != nil {
		e.log.Error("trade log flush failed", zap.Error(err))

		return
	}
	defer file.Close()

	if err := e.trades.WriteCSV(file); err != nil {
		e.log.Error("trade log flush failed", zap.Error(err))

		return
	}

	e.log.Info("trade log flushed",
		zap.String("path", e.config.TradeLogPath),
		zap.Int("records", e.trades.Len()),
		zap.Float64("day_pnl", e.trades.DayPnL()),
	)
}
