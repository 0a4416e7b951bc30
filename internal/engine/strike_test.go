package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

func TestNearestStrike(t *testing.T) {
	tests := []struct {
		name string
		spot float64
		step float64
		want float64
	}{
		{"rounds down", 24512.35, 50, 24500},
		{"rounds up", 24537.80, 50, 24550},
		{"exact strike", 24550, 50, 24550},
		{"midpoint rounds up", 24525, 50, 24550},
		{"hundred step", 51230, 100, 51200},
		{"zero step passes through", 24512.35, 0, 24512.35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearestStrike(tt.spot, tt.step))
		})
	}
}

func TestSelectLegs(t *testing.T) {
	now := time.Date(2025, 9, 2, 9, 20, 0, 0, time.UTC)
	nearExpiry := time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC)
	farExpiry := time.Date(2025, 9, 11, 0, 0, 0, 0, time.UTC)
	pastExpiry := time.Date(2025, 8, 28, 0, 0, 0, 0, time.UTC)

	master := []types.Instrument{
		{Symbol: "NIFTY2590424500CE", Strike: 24500, OptionType: types.OptionTypeCall, Expiry: nearExpiry},
		{Symbol: "NIFTY2590424500PE", Strike: 24500, OptionType: types.OptionTypePut, Expiry: nearExpiry},
		{Symbol: "NIFTY2591124500CE", Strike: 24500, OptionType: types.OptionTypeCall, Expiry: farExpiry},
		{Symbol: "NIFTY2591124500PE", Strike: 24500, OptionType: types.OptionTypePut, Expiry: farExpiry},
		{Symbol: "NIFTY2582824500CE", Strike: 24500, OptionType: types.OptionTypeCall, Expiry: pastExpiry},
		{Symbol: "NIFTY2590424550CE", Strike: 24550, OptionType: types.OptionTypeCall, Expiry: nearExpiry},
		{Symbol: "BANKNIFTY2590424500CE", Strike: 24500, OptionType: types.OptionTypeCall, Expiry: nearExpiry},
	}

	t.Run("picks nearest live expiry per leg", func(t *testing.T) {
		ce, pe, err := SelectLegs(master, "NIFTY", 24500, now, time.UTC)

		require.NoError(t, err)
		assert.Equal(t, "NIFTY2590424500CE", ce.Symbol)
		assert.Equal(t, "NIFTY2590424500PE", pe.Symbol)
	})

	t.Run("prefix excludes other underlyings", func(t *testing.T) {
		ce, _, err := SelectLegs(master, "NIFTY", 24500, now, time.UTC)

		require.NoError(t, err)
		assert.NotEqual(t, "BANKNIFTY2590424500CE", ce.Symbol)
	})

	t.Run("missing strike fails", func(t *testing.T) {
		_, _, err := SelectLegs(master, "NIFTY", 24600, now, time.UTC)

		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInstrumentNotFound))
	})

	t.Run("expiry day itself is still tradable", func(t *testing.T) {
		onExpiry := time.Date(2025, 9, 4, 9, 20, 0, 0, time.UTC)
		ce, _, err := SelectLegs(master, "NIFTY", 24500, onExpiry, time.UTC)

		require.NoError(t, err)
		assert.Equal(t, "NIFTY2590424500CE", ce.Symbol)
	})

	t.Run("expiry day anchored to exchange timezone", func(t *testing.T) {
		ist, err := time.LoadLocation("Asia/Kolkata")
		require.NoError(t, err)

		// Midnight IST is still the previous day in UTC; the expiry-day
		// instrument must stay tradable through the IST morning.
		expiry := time.Date(2025, 9, 2, 0, 0, 0, 0, ist)
		pair := []types.Instrument{
			{Symbol: "NIFTY2590224500CE", Strike: 24500, OptionType: types.OptionTypeCall, Expiry: expiry},
			{Symbol: "NIFTY2590224500PE", Strike: 24500, OptionType: types.OptionTypePut, Expiry: expiry},
		}

		morning := time.Date(2025, 9, 2, 9, 20, 0, 0, ist)
		ce, _, err := SelectLegs(pair, "NIFTY", 24500, morning, ist)

		require.NoError(t, err)
		assert.Equal(t, "NIFTY2590224500CE", ce.Symbol)
	})

	t.Run("missing put leg fails the pair", func(t *testing.T) {
		onlyCalls := []types.Instrument{
			{Symbol: "NIFTY2590424500CE", Strike: 24500, OptionType: types.OptionTypeCall, Expiry: nearExpiry},
		}

		_, _, err := SelectLegs(onlyCalls, "NIFTY", 24500, now, time.UTC)
		require.Error(t, err)
	})
}
