// Package remote serves writer windows over TCP and reads them from readers.
//
// Every frame is varint length prefixed. A client sends Request frames on a connection and
// reads one Response frame for each, in order.
package remote

import (
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	// Timeout bounds a single request on the client and idle time of a connection on the server.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxMessageSize is the largest window read served in one frame.
	MaxMessageSize int `mapstructure:"max-message-size"`
	// RequestsPerSecond limits reads served by a writer. Zero disables the limit.
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	Burst             int     `mapstructure:"burst"`
	// MaxConns is the number of concurrently served connections.
	MaxConns int `mapstructure:"max-conns"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		MaxMessageSize: 64 << 20,
		Burst:          64,
		MaxConns:       256,
	}
}

func (c *Config) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddDuration("timeout", c.Timeout)
	encoder.AddInt("max message size", c.MaxMessageSize)
	encoder.AddFloat64("requests per second", c.RequestsPerSecond)
	encoder.AddInt("burst", c.Burst)
	encoder.AddInt("max conns", c.MaxConns)
	return nil
}
