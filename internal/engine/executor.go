package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quantleap/intraday-engine/internal/broker"
	"github.com/quantleap/intraday-engine/internal/logger"
	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

const (
	// defaultMaxAttempts bounds order placement retries for transient errors.
	defaultMaxAttempts = 3
	// defaultRetryDelay is the fixed delay between placement attempts.
	defaultRetryDelay = 2 * time.Second
	// defaultVerifyDelay is how long to wait before the single post-placement
	// status poll.
	defaultVerifyDelay = 1 * time.Second
)

// Executor places orders through the broker with bounded retries and
// post-placement verification. It never returns a partially placed order
// silently: the result is either an accepted broker order id or a typed
// error.
type Executor struct {
	broker      broker.Broker
	log         *logger.Logger
	maxAttempts int
	retryDelay  time.Duration
	verifyDelay time.Duration

	// sleep is injectable so tests do not wait wall-clock time.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an Executor with the default retry policy.
func NewExecutor(b broker.Broker, log *logger.Logger) *Executor {
	return &Executor{
		broker:      b,
		log:         log,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		verifyDelay: defaultVerifyDelay,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute submits a market order for the instrument and returns the accepted
// broker order id.
//
// Only transient transport errors are retried, up to the attempt bound with a
// fixed delay. Validation errors, broker rejections, and auth failures
// propagate immediately. After acceptance the order status is polled once;
// REJECTED or CANCELLED turns into a typed rejection error.
func (e *Executor) Execute(ctx context.Context, instrument types.Instrument, side types.OrderSide, quantity int, productType string) (string, error) {
	req := types.OrderRequest{
		ClientID:    uuid.NewString(),
		Exchange:    instrument.Exchange,
		Symbol:      instrument.Symbol,
		Side:        side,
		OrderType:   types.OrderTypeMarket,
		Quantity:    quantity,
		ProductType: productType,
		Price:       0,
	}

	if err := req.Validate(); err != nil {
		return "", err
	}

	var lastErr error

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		receipt, err := e.broker.PlaceOrder(ctx, req)
		if err == nil {
			return e.verify(ctx, receipt.OrderID)
		}

		lastErr = err

		if !errors.IsTransient(err) {
			return "", err
		}

		e.log.Warn("order placement failed, retrying",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(side)),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == e.maxAttempts {
			break
		}

		if err := e.sleep(ctx, e.retryDelay); err != nil {
			return "", errors.Wrap(errors.ErrCodeOrderFailed, "order placement cancelled", err)
		}
	}

	return "", errors.Wrapf(errors.ErrCodeOrderFailed, lastErr, "order placement exhausted %d attempts", e.maxAttempts)
}

// verify polls the order status once after a short fixed delay and rejects
// orders the broker reports as REJECTED or CANCELLED.
func (e *Executor) verify(ctx context.Context, orderID string) (string, error) {
	if err := e.sleep(ctx, e.verifyDelay); err != nil {
		return "", errors.Wrap(errors.ErrCodeOrderFailed, "order verification cancelled", err)
	}

	state, err := e.broker.GetOrderStatus(ctx, orderID)
	if err != nil {
		if errors.IsAuth(err) {
			return "", err
		}

		// Best effort: the order was accepted; a failed status poll does not
		// unwind it.
		e.log.Warn("order status poll failed, accepting order as placed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)

		return orderID, nil
	}

	if state.Status == types.OrderStatusRejected || state.Status == types.OrderStatusCancelled {
		return "", errors.Newf(errors.ErrCodeOrderRejected, "order %s %s: %s", orderID, state.Status, state.StatusMessage)
	}

	return orderID, nil
}
