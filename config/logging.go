package config

import (
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-ssc/log"
)

const defaultLoggingLevel = zapcore.InfoLevel

// LoggerConfig holds the logging level for each component.
type LoggerConfig struct {
	Encoder           string `mapstructure:"log-encoder"`
	AppLoggerLevel    string `mapstructure:"app"`
	ReaderLoggerLevel string `mapstructure:"reader"`
	WriterLoggerLevel string `mapstructure:"writer"`
	RemoteLoggerLevel string `mapstructure:"remote"`
	FabricLoggerLevel string `mapstructure:"fabric"`
}

func defaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:           log.ConsoleEncoder,
		AppLoggerLevel:    defaultLoggingLevel.String(),
		ReaderLoggerLevel: zapcore.DebugLevel.String(),
		WriterLoggerLevel: defaultLoggingLevel.String(),
		RemoteLoggerLevel: defaultLoggingLevel.String(),
		FabricLoggerLevel: zapcore.WarnLevel.String(),
	}
}
