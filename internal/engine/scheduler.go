package engine

import (
	"context"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/quantleap/intraday-engine/internal/indicator"
	"github.com/quantleap/intraday-engine/internal/metrics"
	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

// runLoops is the dual-cadence scheduler. Both loops are arms of one select
// on a single goroutine: whichever cadence observes a signal first wins, and
// pending-flag check-and-set is straight-line code with no data race by
// construction. Broker calls inside a tick still yield (they block this
// goroutine only), which is exactly the gap the pending states guard.
func (e *Engine) runLoops(ctx context.Context) error {
	fastTicker := time.NewTicker(e.config.FastPollInterval.Duration)
	defer fastTicker.Stop()

	// The first slow evaluation lands on the next bar boundary rather than
	// one interval after engine start; every later one is boundary-spaced.
	interval := e.config.Interval.Duration()
	now := e.now()
	slowTimer := time.NewTimer(nextBoundary(now, interval).Sub(now))
	defer slowTimer.Stop()

	endTimer := time.NewTimer(time.Until(e.window.SessionEnd))
	defer endTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.SquareOff(context.WithoutCancel(ctx))

			return ctx.Err()

		case <-endTimer.C:
			e.log.Info("session end reached, squaring off")
			e.SquareOff(ctx)

			return nil

		case <-fastTicker.C:
			if err := e.FastTick(ctx, e.now()); err != nil {
				if errors.IsAuth(err) {
					return e.abortOnAuth(ctx, err)
				}

				e.log.Error("fast tick failed", zap.Error(err))
			}

		case <-slowTimer.C:
			slowTimer.Reset(interval)

			if err := e.SlowTick(ctx, e.now()); err != nil {
				if errors.IsAuth(err) {
					return e.abortOnAuth(ctx, err)
				}

				e.log.Error("slow tick failed", zap.Error(err))
			}
		}

		if e.state.EntriesSuppressed(e.config.Risk.MaxDailyStopLosses) &&
			e.config.Risk.StopEngineAtCap && !e.anyOpen() {
			e.log.Warn("daily stop-loss cap reached, stopping engine",
				zap.Int("stop_losses", e.state.StopLossCount),
			)

			return nil
		}
	}
}

// FastTick runs one fast-loop iteration at the given time: refresh prices,
// advance trailing stops, evaluate exits every tick, and evaluate the
// intra-bar cross entries. Exported for the replay driver.
func (e *Engine) FastTick(ctx context.Context, now time.Time) error {
	metrics.TickObserved("fast")

	quotes, err := e.currentQuotes(ctx)
	if err != nil {
		return err
	}

	refreshDue := now.Sub(e.lastRefresh) >= e.config.IndicatorRefresh.Duration
	if refreshDue {
		e.lastRefresh = now
	}

	for _, state := range e.instrumentsInOrder() {
		quote, ok := quotes[state.Instrument.Symbol]
		if !ok || quote.LastPrice <= 0 {
			continue
		}

		if refreshDue {
			e.refreshReference(state)
		}

		price := quote.LastPrice
		band := e.bandFor(state)
		state.ObserveTick(price, band)

		e.logStatus(state, price, now)

		state.AdvanceTrailing(price, e.config.Risk)

		if state.Position.State == types.PositionStateOpen {
			if reason, fire := e.evaluateExit(state, price); fire {
				sig := signalAt(types.SignalTypeExit, state, reason, price, now)
				if err := e.tryExit(ctx, state, sig); err != nil {
					return err
				}
			}

			continue
		}

		if !e.entriesAllowed(now) || e.config.Strategy.Mode != StrategyModeBand {
			continue
		}

		// Intra-bar entries: the just-crossed case and the post-exit
		// re-entry, which is exempt from the consecutive gate.
		if BandCrossEntry(band, state.PrevTickPrice, price) ||
			BandReentry(band, price, state.HasExitedThisCycle, state.LastExitPrice, state.PostCrossMin) {
			sig := signalAt(types.SignalTypeEntry, state, types.OrderReasonEntrySignal, price, now)
			if err := e.tryEnter(ctx, state, sig); err != nil {
				return err
			}
		}
	}

	return nil
}

// SlowTick runs one boundary-aligned iteration at the given time: rebuild
// indicator history from closed bars only, evaluate boundary entries, and
// evaluate oscillator crossings. Exported for the replay driver.
func (e *Engine) SlowTick(ctx context.Context, now time.Time) error {
	metrics.TickObserved("slow")

	boundary := e.lastClosedBoundary(now)

	for _, state := range e.instrumentsInOrder() {
		from := boundary.Add(-time.Duration(e.config.LookbackBars) * e.config.Interval.Duration())

		bars, err := e.broker.GetHistoricalBars(ctx, state.Instrument.Token, e.config.Interval, from, boundary)
		if err != nil {
			metrics.BrokerError("history")

			if errors.IsAuth(err) {
				return err
			}

			e.log.Warn("bar refresh failed",
				zap.String("symbol", state.Instrument.Symbol),
				zap.Error(err),
			)

			continue
		}

		state.Window.ReplaceBars(bars)
		e.refreshReference(state)

		if state.Window.Len() == 0 {
			continue
		}

		closes := state.Window.Closes()
		lastClose := closes[len(closes)-1]
		band := e.bandFor(state)

		priorAbove := state.ObserveClose(lastClose, band, e.config.Strategy.ConsecutiveReset)

		switch e.config.Strategy.Mode {
		case StrategyModeOscillator:
			if err := e.oscillatorTick(ctx, state, lastClose, now); err != nil {
				return err
			}

		case StrategyModeBand:
			if state.Position.State != types.PositionStateClosed {
				continue
			}

			if !e.entriesAllowed(now) {
				continue
			}

			if BandBoundaryEntry(band, lastClose, priorAbove,
				e.config.Strategy.RequiredConsecutiveAboveBand) {
				sig := signalAt(types.SignalTypeEntry, state, types.OrderReasonEntrySignal, lastClose, now)
				if err := e.tryEnter(ctx, state, sig); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// oscillatorTick evaluates the RSI crossing family for one leg on a closed
// bar.
func (e *Engine) oscillatorTick(ctx context.Context, state *InstrumentState, lastClose float64, now time.Time) error {
	prev := state.Window.Previous()
	curr := state.Window.Current()
	upper := e.config.Strategy.OscillatorUpper
	lower := e.config.Strategy.OscillatorLower
	leg := state.Instrument.OptionType

	if state.Position.State == types.PositionStateOpen {
		if OscillatorExit(leg, prev, curr, upper, lower) {
			sig := signalAt(types.SignalTypeExit, state, types.OrderReasonOscillatorCross, lastClose, now)

			return e.tryExit(ctx, state, sig)
		}

		return nil
	}

	if state.Position.State != types.PositionStateClosed || !e.entriesAllowed(now) {
		return nil
	}

	if OscillatorEntry(leg, prev, curr, upper, lower) {
		sig := signalAt(types.SignalTypeEntry, state, types.OrderReasonOscillatorCross, lastClose, now)

		return e.tryEnter(ctx, state, sig)
	}

	return nil
}

// signalAt builds the decision record for one acted-on evaluation.
func signalAt(t types.SignalType, state *InstrumentState, reason string, price float64, at time.Time) types.Signal {
	return types.Signal{
		Time:      at,
		Type:      t,
		Symbol:    state.Instrument.Symbol,
		Reason:    reason,
		Price:     price,
		Reference: state.Reference,
	}
}

// tryEnter drives CLOSED -> PENDING_ENTRY -> OPEN. The pending transition
// happens before any broker I/O; a second signal in the same tick window
// finds the flag set and does nothing.
func (e *Engine) tryEnter(ctx context.Context, state *InstrumentState, sig types.Signal) error {
	if !state.BeginEntry() {
		return nil
	}

	quantity := e.config.Risk.Lots * state.Instrument.LotSize

	orderID, err := e.executor.Execute(ctx, state.Instrument, types.OrderSideSell, quantity, e.config.ProductType)
	if err != nil {
		// Abandon the attempt entirely; no partial state survives.
		state.AbortEntry()
		metrics.BrokerError("place_order")

		if errors.IsAuth(err) {
			return err
		}

		e.log.Error("entry abandoned",
			zap.String("symbol", sig.Symbol),
			zap.String("reason", sig.Reason),
			zap.Error(err),
		)

		return nil
	}

	state.ConfirmEntry(sig.Price, sig.Time, orderID, quantity, e.config.Risk)
	e.state.RecordSignal(sig)

	e.trades.Append(types.Trade{
		Time:        sig.Time,
		Symbol:      sig.Symbol,
		Action:      types.TradeActionEntry,
		Price:       sig.Price,
		Quantity:    quantity,
		Reason:      sig.Reason,
		OrderID:     optional.Some(orderID),
		RealizedPnL: optional.None[float64](),
	})

	metrics.EntryConfirmed(sig.Symbol)

	e.log.Info("position opened",
		zap.String("symbol", sig.Symbol),
		zap.Float64("entry_price", sig.Price),
		zap.Float64("reference", sig.Reference),
		zap.Int("quantity", quantity),
		zap.String("reason", sig.Reason),
		zap.String("order_id", orderID),
	)

	return nil
}

// tryExit drives OPEN -> PENDING_EXIT -> CLOSED. A non-auth placement
// failure reverts to OPEN so the next evaluation tick retries.
func (e *Engine) tryExit(ctx context.Context, state *InstrumentState, sig types.Signal) error {
	if !state.BeginExit() {
		return nil
	}

	quantity := state.Position.Quantity

	orderID, err := e.executor.Execute(ctx, state.Instrument, types.OrderSideBuy, quantity, e.config.ProductType)
	if err != nil {
		if errors.IsAuth(err) {
			return err
		}

		state.RetryExitLater()
		metrics.BrokerError("place_order")

		e.log.Error("exit failed, will retry next tick",
			zap.String("symbol", sig.Symbol),
			zap.String("reason", sig.Reason),
			zap.Error(err),
		)

		return nil
	}

	entryPrice := state.Position.EntryPrice
	pnl := state.ConfirmExit(sig.Price, e.config.Strategy.ConsecutiveReset)
	e.state.RecordExitReason(sig.Reason)
	e.state.RecordSignal(sig)

	e.trades.Append(types.Trade{
		Time:        sig.Time,
		Symbol:      sig.Symbol,
		Action:      types.TradeActionExit,
		Price:       sig.Price,
		Quantity:    quantity,
		Reason:      sig.Reason,
		OrderID:     optional.Some(orderID),
		RealizedPnL: optional.Some(pnl),
	})

	metrics.ExitConfirmed(sig.Symbol, sig.Reason)
	metrics.SetRealizedPnL(e.trades.DayPnL())

	if sig.Reason == types.OrderReasonStopLoss || sig.Reason == types.OrderReasonTrailingStop {
		metrics.StopLossRecorded()
	}

	e.log.Info("position closed",
		zap.String("symbol", sig.Symbol),
		zap.Float64("entry_price", entryPrice),
		zap.Float64("exit_price", sig.Price),
		zap.Float64("pnl", pnl),
		zap.String("reason", sig.Reason),
		zap.Int("daily_stop_losses", e.state.StopLossCount),
	)

	return nil
}

// SquareOff force-closes every open position, logging and skipping
// failures. Called at session end, on shutdown, and by the replay driver.
func (e *Engine) SquareOff(ctx context.Context) {
	for _, state := range e.instrumentsInOrder() {
		if !state.Position.IsOpen() {
			continue
		}

		state.RetryExitLater() // normalize PENDING_EXIT back to OPEN first

		price := state.LastTickPrice
		if price <= 0 {
			price = state.Position.EntryPrice
		}

		sig := signalAt(types.SignalTypeExit, state, types.OrderReasonSessionEnd, price, e.now())
		if err := e.tryExit(ctx, state, sig); err != nil {
			e.log.Error("square-off failed",
				zap.String("symbol", state.Instrument.Symbol),
				zap.Error(err),
			)
		}
	}
}

// abortOnAuth handles the one fatal error class: stop both loops, square off
// best effort, and surface the error. The trade log is flushed by Run.
func (e *Engine) abortOnAuth(ctx context.Context, err error) error {
	e.log.Error("authentication failure, stopping engine", zap.Error(err))

	e.SquareOff(ctx)

	return err
}

// evaluateExit builds the exit input for one open position.
func (e *Engine) evaluateExit(state *InstrumentState, price float64) (string, bool) {
	return EvaluateExit(ExitInput{
		EntryPrice:             state.Position.EntryPrice,
		CurrentPrice:           price,
		StopLossPoints:         e.config.Risk.StopLossPoints,
		ProfitTargetPoints:     e.config.Risk.ProfitTargetPoints,
		TrailingThreshold:      state.Position.TrailingStopThreshold,
		TrailingStepsCompleted: state.Position.TrailingStepsCompleted,
		Reference:              e.reclaimReference(state),
	})
}

// reclaimReference returns the reclaim line for exits: the band reference in
// band mode, nothing in oscillator mode (oscillator exits are crossings).
func (e *Engine) reclaimReference(state *InstrumentState) float64 {
	if e.config.Strategy.Mode == StrategyModeBand {
		return state.Reference
	}

	return 0
}

// bandFor builds the current entry band for a leg.
func (e *Engine) bandFor(state *InstrumentState) Band {
	return Band{
		Reference:  state.Reference,
		HighOffset: e.config.Strategy.BandHighOffset,
		LowOffset:  e.config.Strategy.BandLowOffset,
	}
}

// refreshReference recomputes the leg's reference value from its closed-bar
// window: session VWAP in band mode, Wilder RSI in oscillator mode. The
// computed value is appended to the indicator history so crossings compare
// the last two closed bars.
func (e *Engine) refreshReference(state *InstrumentState) {
	switch e.config.Strategy.Mode {
	case StrategyModeBand:
		state.Reference = indicator.VWAP(state.Window.Bars())

	case StrategyModeOscillator:
		value := indicator.RSI(state.Window.Closes(), e.config.Strategy.RSIPeriod)
		state.Reference = value

		if indicator.Available(value) && value != state.Window.Current() {
			state.Window.PushValue(value)
		}
	}
}

// currentQuotes returns the freshest quote per leg: streamed ticks when the
// stream is enabled and has data, the polled endpoint otherwise.
func (e *Engine) currentQuotes(ctx context.Context) (map[string]types.Quote, error) {
	if e.streamEnabled {
		e.quoteMu.RLock()
		if len(e.streamQuotes) == len(e.state.Instruments) {
			out := make(map[string]types.Quote, len(e.streamQuotes))
			for symbol, quote := range e.streamQuotes {
				out[symbol] = quote
			}
			e.quoteMu.RUnlock()

			return out, nil
		}
		e.quoteMu.RUnlock()
	}

	quotes, err := e.broker.GetQuote(ctx, e.symbols())
	if err != nil {
		metrics.BrokerError("quote")

		return nil, err
	}

	return quotes, nil
}

// entriesAllowed gates entries on the trading window and the daily stop-loss
// cap.
func (e *Engine) entriesAllowed(now time.Time) bool {
	if !e.window.Contains(now) {
		return false
	}

	return !e.state.EntriesSuppressed(e.config.Risk.MaxDailyStopLosses)
}

// anyOpen reports whether any leg still holds a position.
func (e *Engine) anyOpen() bool {
	for _, state := range e.state.Instruments {
		if state.Position.IsOpen() {
			return true
		}
	}

	return false
}

// instrumentsInOrder returns instrument states in stable symbol order so a
// replayed session produces an identical trade log.
func (e *Engine) instrumentsInOrder() []*InstrumentState {
	symbols := e.symbols()
	sort.Strings(symbols)

	out := make([]*InstrumentState, 0, len(symbols))
	for _, symbol := range symbols {
		out = append(out, e.state.Instruments[symbol])
	}

	return out
}

// logStatus emits the per-tick human-readable status line the log-tailing UI
// consumes.
func (e *Engine) logStatus(state *InstrumentState, price float64, now time.Time) {
	marker := "closed"
	if state.Position.IsOpen() {
		marker = "open"
	}

	e.log.Info("tick",
		zap.Time("at", now),
		zap.String("symbol", state.Instrument.Symbol),
		zap.Float64("price", price),
		zap.Float64("reference", state.Reference),
		zap.String("position", marker),
	)
}
