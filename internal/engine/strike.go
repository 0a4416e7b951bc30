package engine

import (
	"math"
	"strings"
	"time"

	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

// NearestStrike rounds the spot price to the nearest strike on the option
// chain's strike grid: the ATM strike.
func NearestStrike(spot, step float64) float64 {
	if step <= 0 {
		return spot
	}

	return math.Round(spot/step) * step
}

// SelectLegs picks the day's two tradable legs from the instrument master:
// the ATM call and ATM put with the nearest expiry on or after the current
// exchange-local day. The result is immutable for the rest of the session.
func SelectLegs(master []types.Instrument, symbolPrefix string, atmStrike float64, now time.Time, loc *time.Location) (types.Instrument, types.Instrument, error) {
	var (
		ce, pe         types.Instrument
		haveCE, havePE bool
	)

	year, month, day := now.In(loc).Date()
	today := time.Date(year, month, day, 0, 0, 0, 0, loc)

	for _, inst := range master {
		if !strings.HasPrefix(inst.Symbol, symbolPrefix) {
			continue
		}

		if inst.Strike != atmStrike || inst.Expiry.Before(today) {
			continue
		}

		switch inst.OptionType {
		case types.OptionTypeCall:
			if !haveCE || inst.Expiry.Before(ce.Expiry) {
				ce = inst
				haveCE = true
			}
		case types.OptionTypePut:
			if !havePE || inst.Expiry.Before(pe.Expiry) {
				pe = inst
				havePE = true
			}
		}
	}

	if !haveCE || !havePE {
		return types.Instrument{}, types.Instrument{}, errors.Newf(errors.ErrCodeInstrumentNotFound,
			"no %s CE/PE pair at strike %.0f", symbolPrefix, atmStrike)
	}

	return ce, pe, nil
}
