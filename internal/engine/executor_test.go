package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/quantleap/intraday-engine/internal/logger"
	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/mocks"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

type ExecutorTestSuite struct {
	suite.Suite

	ctrl     *gomock.Controller
	broker   *mocks.MockBroker
	executor *Executor
}

func TestExecutorSuite(t *testing.T) {
	suite.Run(t, new(ExecutorTestSuite))
}

func (s *ExecutorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.broker = mocks.NewMockBroker(s.ctrl)
	s.executor = NewExecutor(s.broker, logger.NewNopLogger())

	// No wall-clock waits in tests.
	s.executor.sleep = func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}
}

func (s *ExecutorTestSuite) instrument() types.Instrument {
	return types.Instrument{
		Token:    "101000000045123",
		Symbol:   "NIFTY2590224500CE",
		Exchange: "NFO",
		LotSize:  75,
	}
}

func (s *ExecutorTestSuite) TestPlacesAndVerifies() {
	var captured types.OrderRequest

	s.broker.EXPECT().
		PlaceOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req types.OrderRequest) (types.OrderReceipt, error) {
			captured = req
			return types.OrderReceipt{OrderID: "OID-42"}, nil
		})
	s.broker.EXPECT().
		GetOrderStatus(gomock.Any(), "OID-42").
		Return(types.OrderState{OrderID: "OID-42", Status: types.OrderStatusFilled}, nil)

	orderID, err := s.executor.Execute(context.Background(), s.instrument(), types.OrderSideSell, 75, "INTRADAY")

	s.Require().NoError(err)
	s.Equal("OID-42", orderID)
	s.Equal(types.OrderSideSell, captured.Side)
	s.Equal(types.OrderTypeMarket, captured.OrderType)
	s.Equal(75, captured.Quantity)
	s.NotEmpty(captured.ClientID)
}

func (s *ExecutorTestSuite) TestRetriesTransientThenSucceeds() {
	transient := errors.New(errors.ErrCodeBrokerUnavailable, "upstream 503")

	gomock.InOrder(
		s.broker.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.OrderReceipt{}, transient),
		s.broker.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.OrderReceipt{}, transient),
		s.broker.EXPECT().PlaceOrder(gomock.Any(), gomock.Any()).Return(types.OrderReceipt{OrderID: "OID-7"}, nil),
	)
	s.broker.EXPECT().
		GetOrderStatus(gomock.Any(), "OID-7").
		Return(types.OrderState{OrderID: "OID-7", Status: types.OrderStatusPending}, nil)

	orderID, err := s.executor.Execute(context.Background(), s.instrument(), types.OrderSideBuy, 75, "INTRADAY")

	s.Require().NoError(err)
	s.Equal("OID-7", orderID)
}

func (s *ExecutorTestSuite) TestTransientExhaustsAttempts() {
	transient := errors.New(errors.ErrCodeRateLimited, "429")

	s.broker.EXPECT().
		PlaceOrder(gomock.Any(), gomock.Any()).
		Return(types.OrderReceipt{}, transient).
		Times(3)

	_, err := s.executor.Execute(context.Background(), s.instrument(), types.OrderSideSell, 75, "INTRADAY")

	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeOrderFailed))
}

func (s *ExecutorTestSuite) TestRejectionIsNotRetried() {
	rejected := errors.New(errors.ErrCodeOrderRejected, "margin shortfall")

	s.broker.EXPECT().
		PlaceOrder(gomock.Any(), gomock.Any()).
		Return(types.OrderReceipt{}, rejected).
		Times(1)

	_, err := s.executor.Execute(context.Background(), s.instrument(), types.OrderSideSell, 75, "INTRADAY")

	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeOrderRejected))
}

func (s *ExecutorTestSuite) TestAuthFailureIsNotRetried() {
	auth := errors.New(errors.ErrCodeSessionExpired, "token expired")

	s.broker.EXPECT().
		PlaceOrder(gomock.Any(), gomock.Any()).
		Return(types.OrderReceipt{}, auth).
		Times(1)

	_, err := s.executor.Execute(context.Background(), s.instrument(), types.OrderSideSell, 75, "INTRADAY")

	s.Require().Error(err)
	s.True(errors.IsAuth(err))
}

func (s *ExecutorTestSuite) TestVerifyRejectsCancelledOrder() {
	s.broker.EXPECT().
		PlaceOrder(gomock.Any(), gomock.Any()).
		Return(types.OrderReceipt{OrderID: "OID-9"}, nil)
	s.broker.EXPECT().
		GetOrderStatus(gomock.Any(), "OID-9").
		Return(types.OrderState{
			OrderID:       "OID-9",
			Status:        types.OrderStatusRejected,
			StatusMessage: "RMS check failed",
		}, nil)

	_, err := s.executor.Execute(context.Background(), s.instrument(), types.OrderSideSell, 75, "INTRADAY")

	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeOrderRejected))
	s.Contains(err.Error(), "RMS check failed")
}

func (s *ExecutorTestSuite) TestVerifyPollFailureAcceptsOrder() {
	s.broker.EXPECT().
		PlaceOrder(gomock.Any(), gomock.Any()).
		Return(types.OrderReceipt{OrderID: "OID-11"}, nil)
	s.broker.EXPECT().
		GetOrderStatus(gomock.Any(), "OID-11").
		Return(types.OrderState{}, errors.New(errors.ErrCodeBrokerUnavailable, "status endpoint down"))

	orderID, err := s.executor.Execute(context.Background(), s.instrument(), types.OrderSideSell, 75, "INTRADAY")

	s.Require().NoError(err)
	s.Equal("OID-11", orderID)
}

func (s *ExecutorTestSuite) TestVerifyPollAuthFailurePropagates() {
	s.broker.EXPECT().
		PlaceOrder(gomock.Any(), gomock.Any()).
		Return(types.OrderReceipt{OrderID: "OID-12"}, nil)
	s.broker.EXPECT().
		GetOrderStatus(gomock.Any(), "OID-12").
		Return(types.OrderState{}, errors.New(errors.ErrCodeSessionExpired, "token expired"))

	_, err := s.executor.Execute(context.Background(), s.instrument(), types.OrderSideSell, 75, "INTRADAY")

	s.Require().Error(err)
	s.True(errors.IsAuth(err))
}

func (s *ExecutorTestSuite) TestInvalidRequestNeverReachesBroker() {
	// No PlaceOrder expectation: a zero-quantity request must fail validation
	// before any broker call.
	_, err := s.executor.Execute(context.Background(), s.instrument(), types.OrderSideSell, 0, "INTRADAY")

	s.Require().Error(err)
}
