package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type RSITestSuite struct {
	suite.Suite
}

func TestRSISuite(t *testing.T) {
	suite.Run(t, new(RSITestSuite))
}

func (suite *RSITestSuite) TestInsufficientDataReturnsSentinel() {
	// Every series shorter than period+1 must give the sentinel, never panic.
	for n := 0; n <= 14; n++ {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}

		suite.Equal(ValueUnavailable, RSI(closes, 14), "length %d", n)
	}
}

func (suite *RSITestSuite) TestInvalidPeriodReturnsSentinel() {
	closes := []float64{1, 2, 3, 4, 5}
	suite.Equal(ValueUnavailable, RSI(closes, 0))
	suite.Equal(ValueUnavailable, RSI(closes, -1))
}

func (suite *RSITestSuite) TestStrictlyIncreasingIsHundred() {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}

	suite.Equal(100.0, RSI(closes, 14))
}

func (suite *RSITestSuite) TestStrictlyDecreasingIsZero() {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 - float64(i)*0.5
	}

	suite.Equal(0.0, RSI(closes, 14))
}

func (suite *RSITestSuite) TestBoundedForMixedInput() {
	closes := []float64{
		10, 12, 9, 14, 13, 13, 17, 11, 18, 16,
		19, 15, 20, 14, 21, 13, 22, 12, 23, 11,
	}

	value := RSI(closes, 14)
	suite.GreaterOrEqual(value, 0.0)
	suite.LessOrEqual(value, 100.0)
}

func (suite *RSITestSuite) TestWilderReferenceSeries() {
	// Canonical 14-period series from Wilder's reference table; the first
	// computable RSI for it is 70.46.
	closes := []float64{
		44.34, 44.09, 44.15, 43.61, 44.33,
		44.83, 45.10, 45.42, 45.84, 46.08,
		45.89, 46.03, 45.61, 46.28, 46.28,
	}

	suite.InDelta(70.46, RSI(closes, 14), 0.01)
}

func (suite *RSITestSuite) TestGrowingInputIsStable() {
	// Calling twice with the same input yields the same value: pure function.
	closes := []float64{
		44.34, 44.09, 44.15, 43.61, 44.33,
		44.83, 45.10, 45.42, 45.84, 46.08,
		45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03,
	}

	first := RSI(closes, 14)
	second := RSI(closes, 14)
	suite.Equal(first, second)
}
