package fetch

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Mode selects how a position is read from the writer window.
type Mode uint8

const (
	// OneSided issues one read for every contiguous run of a position.
	OneSided Mode = iota
	// TwoSided issues one read covering the whole span of a position and extracts runs locally.
	TwoSided
)

func (m Mode) String() string {
	switch m {
	case OneSided:
		return "onesided"
	case TwoSided:
		return "twosided"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "onesided":
		*m = OneSided
	case "twosided":
		*m = TwoSided
	default:
		return fmt.Errorf("unknown fetch mode %q", text)
	}
	return nil
}

type Config struct {
	Mode Mode `mapstructure:"mode"`
	// MaxInflight limits outstanding window reads of one reader.
	MaxInflight int `mapstructure:"max-inflight"`
	// Trace mirrors metadata of every get to the log.
	Trace bool `mapstructure:"trace"`
}

func DefaultConfig() Config {
	return Config{
		Mode:        TwoSided,
		MaxInflight: 1024,
	}
}

func (c *Config) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("mode", c.Mode.String())
	encoder.AddInt("max inflight", c.MaxInflight)
	encoder.AddBool("trace", c.Trace)
	return nil
}
