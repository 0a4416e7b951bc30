// Package session derives the day's fixed time boundaries in the exchange
// timezone and gates the rest of the engine on them.
package session

import (
	"fmt"
	"time"

	"github.com/quantleap/intraday-engine/internal/types"
	"github.com/quantleap/intraday-engine/pkg/errors"
)

// Config holds the session clock offsets as HH:MM strings in the configured
// timezone.
type Config struct {
	// Timezone is the IANA name of the exchange timezone.
	Timezone string `yaml:"timezone" validate:"required"`
	// SessionStart is the exchange open, e.g. "09:15".
	SessionStart string `yaml:"session_start" validate:"required"`
	// StrikeSelection is when the day's instruments are chosen, e.g. "09:20".
	StrikeSelection string `yaml:"strike_selection" validate:"required"`
	// TradeStart is the earliest entry time, e.g. "09:21".
	TradeStart string `yaml:"trade_start" validate:"required"`
	// SessionEnd is the square-off time, e.g. "15:10".
	SessionEnd string `yaml:"session_end" validate:"required"`
}

// DefaultConfig returns the NSE intraday defaults.
func DefaultConfig() Config {
	return Config{
		Timezone:        "Asia/Kolkata",
		SessionStart:    "09:15",
		StrikeSelection: "09:20",
		TradeStart:      "09:21",
		SessionEnd:      "15:10",
	}
}

// Clock computes per-day session windows in a fixed timezone.
type Clock struct {
	config   Config
	location *time.Location
}

// NewClock creates a Clock from the given config. The timezone must resolve
// and the four offsets must be ordered start <= strikeSelection <= tradeStart < end.
func NewClock(config Config) (*Clock, error) {
	location, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "unknown timezone %q", config.Timezone)
	}

	clock := &Clock{
		config:   config,
		location: location,
	}

	// Validate ordering against an arbitrary date.
	window, err := clock.WindowFor(time.Date(2026, 1, 2, 0, 0, 0, 0, location))
	if err != nil {
		return nil, err
	}

	if window.StrikeSelectionTime.Before(window.SessionStart) ||
		window.TradeStartTime.Before(window.StrikeSelectionTime) ||
		!window.SessionEnd.After(window.TradeStartTime) {
		return nil, errors.New(errors.ErrCodeInvalidSessionWindow,
			"session times must be ordered start <= strike_selection <= trade_start < end")
	}

	return clock, nil
}

// Location returns the exchange timezone.
func (c *Clock) Location() *time.Location {
	return c.location
}

// WindowFor computes the immutable session window for the date of t.
func (c *Clock) WindowFor(t time.Time) (types.SessionWindow, error) {
	day := t.In(c.location)

	sessionStart, err := c.at(day, c.config.SessionStart)
	if err != nil {
		return types.SessionWindow{}, err
	}

	strikeSelection, err := c.at(day, c.config.StrikeSelection)
	if err != nil {
		return types.SessionWindow{}, err
	}

	tradeStart, err := c.at(day, c.config.TradeStart)
	if err != nil {
		return types.SessionWindow{}, err
	}

	sessionEnd, err := c.at(day, c.config.SessionEnd)
	if err != nil {
		return types.SessionWindow{}, err
	}

	return types.SessionWindow{
		SessionStart:        sessionStart,
		StrikeSelectionTime: strikeSelection,
		TradeStartTime:      tradeStart,
		SessionEnd:          sessionEnd,
	}, nil
}

// at places an HH:MM offset on day's date in the clock's timezone.
func (c *Clock) at(day time.Time, offset string) (time.Time, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(offset, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, errors.Wrapf(errors.ErrCodeInvalidSessionWindow, err, "bad session offset %q", offset)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, errors.Newf(errors.ErrCodeInvalidSessionWindow, "bad session offset %q", offset)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, c.location), nil
}
