package engine

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/quantleap/intraday-engine/internal/broker"
	"github.com/quantleap/intraday-engine/internal/engine/session"
	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

// StrategyMode selects which signal family drives entries.
type StrategyMode string

const (
	// StrategyModeBand enters on price crossing into a VWAP-anchored band.
	StrategyModeBand StrategyMode = "band"
	// StrategyModeOscillator enters on RSI threshold crosses.
	StrategyModeOscillator StrategyMode = "oscillator"
)

// ConsecutiveResetPolicy controls when the consecutive-above-band counter
// resets. The source behavior is ambiguous, so it is a config choice.
type ConsecutiveResetPolicy string

const (
	// ResetOnTick zeroes the counter on any single below-band observation.
	ResetOnTick ConsecutiveResetPolicy = "tick"
	// ResetOnExit keeps the counter through below-band observations and
	// zeroes it only after a completed exit.
	ResetOnExit ConsecutiveResetPolicy = "exit"
)

// StrategyConfig holds the tunable offsets and thresholds of the evaluator.
type StrategyConfig struct {
	Mode StrategyMode `yaml:"mode" validate:"required,oneof=band oscillator"`

	// RSI settings (oscillator mode).
	RSIPeriod         int     `yaml:"rsi_period" validate:"gt=0"`
	OscillatorUpper   float64 `yaml:"oscillator_upper" validate:"gt=0,lte=100"`
	OscillatorLower   float64 `yaml:"oscillator_lower" validate:"gte=0,lt=100"`

	// Band settings (band mode). The entry zone is
	// [reference-high_offset, reference-low_offset].
	BandHighOffset               float64                `yaml:"band_high_offset" validate:"gte=0"`
	BandLowOffset                float64                `yaml:"band_low_offset" validate:"gte=0"`
	RequiredConsecutiveAboveBand int                    `yaml:"required_consecutive_above_band" validate:"gte=0"`
	ConsecutiveReset             ConsecutiveResetPolicy `yaml:"consecutive_reset" validate:"required,oneof=tick exit"`
}

// RiskConfig holds position sizing and exit offsets, all in option price
// points.
type RiskConfig struct {
	Lots               int     `yaml:"lots" validate:"gt=0"`
	StopLossPoints     float64 `yaml:"stop_loss_points" validate:"gt=0"`
	ProfitTargetPoints float64 `yaml:"profit_target_points" validate:"gt=0"`
	// InitialStopOffset seeds the trailing threshold at entry+offset.
	InitialStopOffset float64 `yaml:"initial_stop_offset" validate:"gt=0"`
	// TrailingStepSize is the favorable move that triggers one tightening.
	TrailingStepSize float64 `yaml:"trailing_step_size" validate:"gt=0"`
	// TrailingAdjustAmount is how much each tightening lowers the stop.
	TrailingAdjustAmount float64 `yaml:"trailing_adjust_amount" validate:"gt=0"`
	// MaxDailyStopLosses caps stop-loss exits per session; at the cap no
	// further entries are taken.
	MaxDailyStopLosses int `yaml:"max_daily_stop_losses" validate:"gt=0"`
	// StopEngineAtCap terminates the engine when the cap is reached instead
	// of idling until session end.
	StopEngineAtCap bool `yaml:"stop_engine_at_cap"`
}

// Config is the full engine configuration, loaded from one yaml file.
type Config struct {
	// Underlying is the spot symbol strikes are selected from.
	Underlying string `yaml:"underlying" validate:"required"`
	// UnderlyingToken is the broker token for the underlying's bar history.
	UnderlyingToken string `yaml:"underlying_token" validate:"required"`
	// SymbolPrefix matches option symbols in the instrument master, e.g.
	// "NIFTY" for NIFTY25SEP24500CE.
	SymbolPrefix string `yaml:"symbol_prefix" validate:"required"`
	Exchange     string `yaml:"exchange" validate:"required"`
	ProductType  string `yaml:"product_type" validate:"required"`
	// StrikeStep is the strike grid of the option chain, e.g. 50 for NIFTY.
	StrikeStep float64 `yaml:"strike_step" validate:"gt=0"`

	// Interval is the closed-bar interval driving the slow loop.
	Interval types.Interval `yaml:"interval" validate:"required,oneof=1m 3m 5m 15m"`
	// FastPollInterval is the fast loop cadence.
	FastPollInterval types.Duration `yaml:"fast_poll_interval"`
	// IndicatorRefresh is how often the fast loop refreshes the reference
	// value between bar closes.
	IndicatorRefresh types.Duration `yaml:"indicator_refresh"`
	// LookbackBars is how many closed bars are fetched to seed indicators.
	LookbackBars int `yaml:"lookback_bars" validate:"gt=0"`

	Strategy StrategyConfig          `yaml:"strategy"`
	Risk     RiskConfig              `yaml:"risk"`
	Session  session.Config          `yaml:"session"`
	Broker   broker.RestBrokerConfig `yaml:"broker"`
	// StreamURL enables the WebSocket tick feed when set; polling remains
	// the fallback.
	StreamURL string `yaml:"stream_url"`
	// TradeLogPath is where the CSV trade log is flushed on shutdown.
	TradeLogPath string `yaml:"trade_log_path" validate:"required"`
}

// DefaultConfig returns a config with every tunable at its default. Broker
// settings have no defaults and must come from the yaml file.
func DefaultConfig() Config {
	return Config{
		Underlying:       "NIFTY 50",
		UnderlyingToken:  "",
		SymbolPrefix:     "NIFTY",
		Exchange:         "NFO",
		ProductType:      "INTRADAY",
		StrikeStep:       50,
		Interval:         types.Interval1m,
		FastPollInterval: types.Seconds(3),
		IndicatorRefresh: types.Seconds(30),
		LookbackBars:     120,
		Strategy: StrategyConfig{
			Mode:                         StrategyModeBand,
			RSIPeriod:                    14,
			OscillatorUpper:              70,
			OscillatorLower:              30,
			BandHighOffset:               10,
			BandLowOffset:                5,
			RequiredConsecutiveAboveBand: 3,
			ConsecutiveReset:             ResetOnTick,
		},
		Risk: RiskConfig{
			Lots:                 1,
			StopLossPoints:       30,
			ProfitTargetPoints:   40,
			InitialStopOffset:    30,
			TrailingStepSize:     10,
			TrailingAdjustAmount: 5,
			MaxDailyStopLosses:   4,
			StopEngineAtCap:      false,
		},
		Session:      session.DefaultConfig(),
		Broker:       broker.RestBrokerConfig{},
		StreamURL:    "",
		TradeLogPath: "trades.csv",
	}
}

// LoadConfig reads, unmarshals, and validates the yaml config at path,
// applying defaults for fields the file omits.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "read config %s", path)
	}

	return ParseConfig(data)
}

// ParseConfig unmarshals and validates a yaml config document.
func ParseConfig(data []byte) (Config, error) {
	config := DefaultConfig()

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "parse config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the config invariants beyond struct tags: the oscillator
// thresholds must not cross and the band offsets must describe a non-empty
// zone below the reference.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if c.Strategy.OscillatorLower >= c.Strategy.OscillatorUpper {
		return errors.New(errors.ErrCodeInvalidConfiguration, "oscillator_lower must be below oscillator_upper")
	}

	if c.Strategy.Mode == StrategyModeBand && c.Strategy.BandHighOffset <= c.Strategy.BandLowOffset {
		return errors.New(errors.ErrCodeInvalidConfiguration, "band_high_offset must exceed band_low_offset")
	}

	if c.Risk.InitialStopOffset > c.Risk.StopLossPoints {
		return errors.New(errors.ErrCodeInvalidConfiguration, "initial_stop_offset must not exceed stop_loss_points")
	}

	if c.FastPollInterval.Duration <= 0 || c.IndicatorRefresh.Duration <= 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "poll intervals must be positive")
	}

	return nil
}
