package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/quantleap/intraday-engine/internal/types"
)

type WindowTestSuite struct {
	suite.Suite
}

func TestWindowSuite(t *testing.T) {
	suite.Run(t, new(WindowTestSuite))
}

func (suite *WindowTestSuite) barAt(minute int, close float64) types.Bar {
	base := time.Date(2026, 8, 28, 9, 15, 0, 0, time.UTC)

	return types.Bar{Time: base.Add(time.Duration(minute) * time.Minute), Close: close}
}

func (suite *WindowTestSuite) TestAppendEvictsOldest() {
	w := NewWindow(3, 3)
	for i := 0; i < 5; i++ {
		w.AppendBar(suite.barAt(i, float64(100+i)))
	}

	suite.Equal(3, w.Len())
	suite.Equal([]float64{102, 103, 104}, w.Closes())
}

func (suite *WindowTestSuite) TestAppendIgnoresStaleOrDuplicateBar() {
	w := NewWindow(5, 5)
	w.AppendBar(suite.barAt(0, 100))
	w.AppendBar(suite.barAt(1, 101))

	// Same timestamp and an older timestamp must both be no-ops.
	w.AppendBar(suite.barAt(1, 999))
	w.AppendBar(suite.barAt(0, 999))

	suite.Equal([]float64{100, 101}, w.Closes())
}

func (suite *WindowTestSuite) TestReplaceBarsKeepsNewest() {
	w := NewWindow(2, 2)

	bars := []types.Bar{
		suite.barAt(0, 100),
		suite.barAt(1, 101),
		suite.barAt(2, 102),
	}
	w.ReplaceBars(bars)

	suite.Equal([]float64{101, 102}, w.Closes())
}

func (suite *WindowTestSuite) TestValueHistory() {
	w := NewWindow(5, 2)

	suite.Equal(ValueUnavailable, w.Current())
	suite.Equal(ValueUnavailable, w.Previous())

	w.PushValue(55)
	suite.Equal(55.0, w.Current())
	suite.Equal(ValueUnavailable, w.Previous())

	w.PushValue(60)
	suite.Equal(60.0, w.Current())
	suite.Equal(55.0, w.Previous())

	// Bounded: pushing past capacity drops the oldest.
	w.PushValue(65)
	suite.Equal(65.0, w.Current())
	suite.Equal(60.0, w.Previous())
}
