package reader

import (
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-ssc/common/types"
)

type Config struct {
	// OpenTimeout bounds the wait for the first step when BeginStep is asked to wait forever.
	OpenTimeout time.Duration `mapstructure:"open-timeout"`
	// SyncMode is fixed for the lifetime of the stream.
	SyncMode types.SyncMode `mapstructure:"step-mode"`
	// Threading overlaps write pattern discovery of the next step with consumption of the
	// current one. Only used in flexible mode.
	Threading bool `mapstructure:"threading"`
	// Verbosity of the reader log, 0 logs warnings only.
	Verbosity int `mapstructure:"verbosity"`
	// History is the number of steps for which BlocksInfo is served.
	History int `mapstructure:"history"`
}

func DefaultConfig() Config {
	return Config{
		OpenTimeout: 10 * time.Second,
		SyncMode:    types.SyncFlexible,
		Threading:   false,
		Verbosity:   0,
		History:     16,
	}
}

func (c *Config) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddDuration("open timeout", c.OpenTimeout)
	encoder.AddString("step mode", c.SyncMode.String())
	encoder.AddBool("threading", c.Threading)
	encoder.AddInt("verbosity", c.Verbosity)
	encoder.AddInt("history", c.History)
	return nil
}
