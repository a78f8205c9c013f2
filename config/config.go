// Package config contains configuration of the stream reader and of the demo world it runs in.
package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/fabric/remote"
	"github.com/spacemeshos/go-ssc/fetch"
	"github.com/spacemeshos/go-ssc/metrics"
	"github.com/spacemeshos/go-ssc/reader"
)

const (
	// LocalTransport reads windows directly from writer memory.
	LocalTransport = "local"
	// TCPTransport serves every writer window on its own TCP listener.
	TCPTransport = "tcp"
)

// Config defines the top level configuration.
type Config struct {
	BaseConfig `mapstructure:"main"`
	Reader     reader.Config  `mapstructure:"reader"`
	Fetch      fetch.Config   `mapstructure:"fetch"`
	Remote     remote.Config  `mapstructure:"remote"`
	Metrics    metrics.Config `mapstructure:"metrics"`
	LOGGING    LoggerConfig   `mapstructure:"logging"`
}

// BaseConfig describes the stream and the world that produces it.
type BaseConfig struct {
	// DOID identifies the stream. Random if empty.
	DOID    string `mapstructure:"doid"`
	Writers int    `mapstructure:"writers"`
	Readers int    `mapstructure:"readers"`
	Steps   int    `mapstructure:"steps"`
	// Shape of the simulated variable.
	Shape []uint `mapstructure:"shape"`
	// Seed of decompositions produced by writers.
	Seed      uint64 `mapstructure:"seed"`
	Transport string `mapstructure:"transport"`
	// Report is a path where summary of the run is written. Empty disables the report.
	Report string `mapstructure:"report"`

	ProfilerURL  string `mapstructure:"profiler-url"`
	ProfilerName string `mapstructure:"profiler-name"`
}

func (c *BaseConfig) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("doid", c.DOID)
	encoder.AddInt("writers", c.Writers)
	encoder.AddInt("readers", c.Readers)
	encoder.AddInt("steps", c.Steps)
	encoder.AddArray("shape", zapcore.ArrayMarshalerFunc(func(enc zapcore.ArrayEncoder) error {
		for _, dim := range c.Shape {
			enc.AppendUint(dim)
		}
		return nil
	}))
	encoder.AddUint64("seed", c.Seed)
	encoder.AddString("transport", c.Transport)
	return nil
}

// Validate checks that the world can be built from the config.
func (c *BaseConfig) Validate() error {
	if c.Writers <= 0 || c.Readers <= 0 {
		return fmt.Errorf("world requires at least one writer and one reader, got %d/%d", c.Writers, c.Readers)
	}
	if len(c.Shape) == 0 {
		return fmt.Errorf("shape can't be empty")
	}
	for i, dim := range c.Shape {
		if dim == 0 {
			return fmt.Errorf("dimension %d of the shape is zero", i)
		}
	}
	switch c.Transport {
	case LocalTransport, TCPTransport:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	return nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseConfig: defaultBaseConfig(),
		Reader:     reader.DefaultConfig(),
		Fetch:      fetch.DefaultConfig(),
		Remote:     remote.DefaultConfig(),
		Metrics:    metrics.DefaultConfig(),
		LOGGING:    defaultLoggingConfig(),
	}
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		Writers:      4,
		Readers:      2,
		Steps:        10,
		Shape:        []uint{64, 64},
		Seed:         1,
		Transport:    LocalTransport,
		ProfilerName: "ssc-reader",
	}
}

// LoadConfig reads the config file into vip. Format is selected by the file extension.
func LoadConfig(fs afero.Fs, fileLocation string, vip *viper.Viper) error {
	vip.SetFs(fs)
	vip.SetConfigFile(fileLocation)
	if err := vip.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %w", err)
	}
	return nil
}

// Load overwrites fields of cfg with values from the config file. Keys that don't match any
// field are rejected. Empty location keeps cfg unchanged.
func Load(fs afero.Fs, fileLocation string, cfg *Config) error {
	if fileLocation == "" {
		return nil
	}
	vip := viper.New()
	if err := LoadConfig(fs, fileLocation, vip); err != nil {
		return err
	}
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	opts := []viper.DecoderConfigOption{
		viper.DecodeHook(hook),
		withIgnoreUntagged(),
		withErrorUnused(),
	}
	if err := vip.Unmarshal(cfg, opts...); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func withIgnoreUntagged() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.IgnoreUntaggedFields = true
	}
}

func withErrorUnused() viper.DecoderConfigOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
	}
}

// SyncModes lists accepted values of the reader step mode.
func SyncModes() []string {
	return []string{types.SyncFixed.String(), types.SyncFlexible.String()}
}
