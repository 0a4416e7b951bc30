package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

// OptionType identifies the option leg of an instrument.
type OptionType string

const (
	// OptionTypeCall is a call (CE) leg.
	OptionTypeCall OptionType = "CE"
	// OptionTypePut is a put (PE) leg.
	OptionTypePut OptionType = "PE"
)

// Instrument is one tradable option leg. It is selected once per session at
// the strike-selection time from the day's spot price and is immutable
// thereafter.
type Instrument struct {
	// Token is the broker-facing instrument identifier.
	Token string `yaml:"token" json:"token" csv:"token" validate:"required"`
	// Symbol is the human-readable trading symbol, e.g. NIFTY25SEP24500CE.
	Symbol     string     `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Exchange   string     `yaml:"exchange" json:"exchange" csv:"exchange" validate:"required"`
	Strike     float64    `yaml:"strike" json:"strike" csv:"strike" validate:"gt=0"`
	OptionType OptionType `yaml:"option_type" json:"option_type" csv:"option_type" validate:"required,oneof=CE PE"`
	Expiry     time.Time  `yaml:"expiry" json:"expiry" csv:"expiry" validate:"required"`
	// LotSize is the contract multiplier; orders are placed in whole lots.
	LotSize int `yaml:"lot_size" json:"lot_size" csv:"lot_size" validate:"gt=0"`
	// TickSize is the minimum price increment, used to round limit/stop prices.
	TickSize float64 `yaml:"tick_size" json:"tick_size" csv:"tick_size" validate:"gt=0"`
}

// Validate validates the Instrument struct.
func (i *Instrument) Validate() error {
	validate := validator.New()
	if err := validate.Struct(i); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInstrument, "invalid instrument", err)
	}

	return nil
}
