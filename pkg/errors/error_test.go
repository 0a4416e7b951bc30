package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeInvalidParameter, "invalid parameter: %s", "test")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter: test", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeNoDataFound, "no bars found", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeNoDataFound, err.Code)
	suite.Equal("no bars found", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeNoDataFound, cause, "no bars found for symbol: %s", "NIFTY25SEP24500CE")
	suite.NotNil(err)
	suite.Equal(ErrCodeNoDataFound, err.Code)
	suite.Equal("no bars found for symbol: NIFTY25SEP24500CE", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[100] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeNoDataFound, "no bars found", cause)
	suite.Equal("[201] no bars found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeNoDataFound, "no bars found", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeOrderRejected, "order rejected")
	suite.Equal(ErrCodeOrderRejected, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeSessionExpired, "session expired")
	err := fmt.Errorf("placing order: %w", cause)
	suite.Equal(ErrCodeSessionExpired, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeNonTypedError() {
	err := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeRateLimited, "too many requests")
	suite.True(HasCode(err, ErrCodeRateLimited))
	suite.False(HasCode(err, ErrCodeOrderRejected))
}

func (suite *ErrorTestSuite) TestIsAuth() {
	suite.True(IsAuth(New(ErrCodeAuthFailed, "bad token")))
	suite.True(IsAuth(New(ErrCodeSessionExpired, "expired")))
	suite.True(IsAuth(fmt.Errorf("order: %w", New(ErrCodeSessionExpired, "expired"))))
	suite.False(IsAuth(New(ErrCodeOrderRejected, "rejected")))
	suite.False(IsAuth(errors.New("plain error")))
}

func (suite *ErrorTestSuite) TestIsTransient() {
	suite.True(IsTransient(New(ErrCodeRateLimited, "429")))
	suite.True(IsTransient(New(ErrCodeBrokerUnavailable, "503")))
	suite.True(IsTransient(New(ErrCodeRequestFailed, "conn reset")))
	suite.False(IsTransient(New(ErrCodeOrderRejected, "rejected")))
	suite.False(IsTransient(New(ErrCodeAuthFailed, "bad token")))
}

func (suite *ErrorTestSuite) TestInsufficientDataError() {
	err := NewInsufficientDataError(15, 10, "NIFTY", "need 15 closes, have 10")
	suite.Equal("need 15 closes, have 10", err.Error())
	suite.True(IsInsufficientDataError(err))
	suite.True(IsInsufficientDataError(fmt.Errorf("rsi: %w", err)))
	suite.False(IsInsufficientDataError(errors.New("other")))
}
