package types

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml configs can write "3s" or "1m30s".
type Duration struct {
	time.Duration
}

// Seconds constructs a Duration of n seconds.
func Seconds(n int) Duration {
	return Duration{Duration: time.Duration(n) * time.Second}
}

// UnmarshalYAML implements custom unmarshaling so durations are written in
// Go's duration syntax.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return err
	}

	d.Duration = parsed

	return nil
}

// MarshalYAML renders the duration back in the same syntax.
func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}
