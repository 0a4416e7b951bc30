package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/quantleap/intraday-engine/internal/types"
)

type EvaluatorTestSuite struct {
	suite.Suite
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorTestSuite))
}

func (s *EvaluatorTestSuite) band() Band {
	return Band{Reference: 115, HighOffset: 10, LowOffset: 5}
}

func (s *EvaluatorTestSuite) TestBandEdges() {
	b := s.band()

	s.Equal(105.0, b.Bottom())
	s.Equal(110.0, b.Top())
	s.True(b.Inside(105.0))
	s.True(b.Inside(110.0))
	s.True(b.Inside(107.5))
	s.False(b.Inside(104.99))
	s.False(b.Inside(110.01))
}

func (s *EvaluatorTestSuite) TestBandUnavailableNeverFires() {
	b := Band{Reference: 0, HighOffset: 10, LowOffset: 5}

	s.False(BandBoundaryEntry(b, 100, 10, 1))
	s.False(BandCrossEntry(b, 120, 100))
	s.False(BandReentry(b, 100, true, 110, 95))
}

func (s *EvaluatorTestSuite) TestBoundaryEntry() {
	b := s.band()

	s.True(BandBoundaryEntry(b, 108, 3, 3))
	s.True(BandBoundaryEntry(b, 108, 5, 3))
	// Gate not satisfied yet.
	s.False(BandBoundaryEntry(b, 108, 2, 3))
	// Close outside the zone.
	s.False(BandBoundaryEntry(b, 111, 3, 3))
	s.False(BandBoundaryEntry(b, 104, 3, 3))
}

// Price ticks 112 then 108 with reference 115 and offsets 10/5: the second
// tick lands inside [105, 110] coming from above and must fire.
func (s *EvaluatorTestSuite) TestCrossEntry() {
	b := s.band()

	s.True(BandCrossEntry(b, 112, 108))
	// Previous tick already inside: no cross.
	s.False(BandCrossEntry(b, 109, 108))
	// Falls straight through the zone without landing in it.
	s.False(BandCrossEntry(b, 112, 104))
	// Rising into the zone from below is not a cross.
	s.False(BandCrossEntry(b, 100, 108))
}

func (s *EvaluatorTestSuite) TestReentry() {
	b := s.band()

	// Exit at 110, post-cross minimum 100: midpoint 105. A new tick below
	// the midpoint but not below the band bottom fires.
	s.False(BandReentry(b, 104.9, true, 110, 100))
	s.True(BandReentry(b, 106, true, 113, 100))
	// At the midpoint exactly: no signal.
	s.False(BandReentry(b, 106, true, 112, 100))
	// Needs a prior exit this cycle.
	s.False(BandReentry(b, 106, false, 113, 100))
	// At or above the midpoint: no signal.
	s.False(BandReentry(b, 106, true, 110, 102))
}

func (s *EvaluatorTestSuite) TestReentryNeedsTrackedMinimum() {
	b := s.band()

	// Right after an exit no minimum has been tracked below the band, so
	// there is no midpoint to breach: no price may fire, not even one far
	// above the zone.
	s.False(BandReentry(b, 150, true, 139, math.MaxFloat64))
	s.False(BandReentry(b, 108, true, 139, math.MaxFloat64))

	// Once a dip below the band is on record the midpoint rule applies.
	s.True(BandReentry(b, 106, true, 113, 100))
}

func (s *EvaluatorTestSuite) TestOscillatorEntry() {
	// Call leg: falling back through the upper bound.
	s.True(OscillatorEntry(types.OptionTypeCall, 72, 68, 70, 30))
	s.False(OscillatorEntry(types.OptionTypeCall, 68, 65, 70, 30))
	s.False(OscillatorEntry(types.OptionTypeCall, 72, 70, 70, 30))

	// Put leg: rising back through the lower bound.
	s.True(OscillatorEntry(types.OptionTypePut, 28, 33, 70, 30))
	s.False(OscillatorEntry(types.OptionTypePut, 33, 35, 70, 30))

	// Sentinel values never fire.
	s.False(OscillatorEntry(types.OptionTypeCall, -1, 68, 70, 30))
	s.False(OscillatorEntry(types.OptionTypeCall, 72, -1, 70, 30))
}

func (s *EvaluatorTestSuite) TestOscillatorExit() {
	s.True(OscillatorExit(types.OptionTypeCall, 68, 72, 70, 30))
	s.False(OscillatorExit(types.OptionTypeCall, 72, 75, 70, 30))
	s.True(OscillatorExit(types.OptionTypePut, 33, 28, 70, 30))
	s.False(OscillatorExit(types.OptionTypePut, 28, 25, 70, 30))
}

func TestEvaluateExit(t *testing.T) {
	base := ExitInput{
		EntryPrice:             100,
		StopLossPoints:         30,
		ProfitTargetPoints:     40,
		TrailingThreshold:      130,
		TrailingStepsCompleted: 0,
		Reference:              0,
	}

	t.Run("profit target", func(t *testing.T) {
		in := base
		in.CurrentPrice = 59.5
		reason, ok := EvaluateExit(in)
		assert.True(t, ok)
		assert.Equal(t, types.OrderReasonProfitTarget, reason)
	})

	t.Run("profit target tie is no signal", func(t *testing.T) {
		in := base
		in.CurrentPrice = 60
		_, ok := EvaluateExit(in)
		assert.False(t, ok)
	})

	t.Run("fixed stop loss", func(t *testing.T) {
		in := base
		in.CurrentPrice = 131
		reason, ok := EvaluateExit(in)
		assert.True(t, ok)
		assert.Equal(t, types.OrderReasonStopLoss, reason)
	})

	t.Run("stop loss tie is no signal", func(t *testing.T) {
		in := base
		in.CurrentPrice = 130
		_, ok := EvaluateExit(in)
		assert.False(t, ok)
	})

	t.Run("trailing stop tighter than fixed", func(t *testing.T) {
		in := base
		in.CurrentPrice = 121
		in.TrailingThreshold = 120
		in.TrailingStepsCompleted = 2
		reason, ok := EvaluateExit(in)
		assert.True(t, ok)
		assert.Equal(t, types.OrderReasonTrailingStop, reason)
	})

	t.Run("profit target beats stop", func(t *testing.T) {
		// Degenerate config where both would fire; the priority order picks
		// the target.
		in := base
		in.ProfitTargetPoints = -50
		in.CurrentPrice = 131
		reason, ok := EvaluateExit(in)
		assert.True(t, ok)
		assert.Equal(t, types.OrderReasonProfitTarget, reason)
	})

	t.Run("reference reclaim gated on trailing progress", func(t *testing.T) {
		in := base
		in.CurrentPrice = 116
		in.Reference = 115

		_, ok := EvaluateExit(in)
		assert.False(t, ok)

		in.TrailingStepsCompleted = 1
		reason, ok := EvaluateExit(in)
		assert.True(t, ok)
		assert.Equal(t, types.OrderReasonReferenceReclaim, reason)
	})

	t.Run("reclaim tie is no signal", func(t *testing.T) {
		in := base
		in.CurrentPrice = 115
		in.Reference = 115
		in.TrailingStepsCompleted = 1
		_, ok := EvaluateExit(in)
		assert.False(t, ok)
	})

	t.Run("no reference no reclaim", func(t *testing.T) {
		in := base
		in.CurrentPrice = 116
		in.TrailingStepsCompleted = 3
		_, ok := EvaluateExit(in)
		assert.False(t, ok)
	})
}
