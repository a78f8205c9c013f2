package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/spacemeshos/go-ssc/cmd/flags"
	"github.com/spacemeshos/go-ssc/config"
)

// AddFlags binds flags to fields of cfg. Defaults are the current values of cfg.
func AddFlags(fs *pflag.FlagSet, cfg *config.Config) {
	/** ======================== BaseConfig Flags ========================== **/
	fs.StringVar(&cfg.DOID, "doid", cfg.DOID, "identifier of the stream, random if empty")
	fs.IntVar(&cfg.Writers, "writers", cfg.Writers, "number of writers")
	fs.IntVar(&cfg.Readers, "readers", cfg.Readers, "number of readers")
	fs.IntVar(&cfg.Steps, "steps", cfg.Steps, "number of steps published by writers")
	fs.UintSliceVar(&cfg.Shape, "shape", cfg.Shape, "shape of the simulated variable")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "seed of writer decompositions")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport,
		fmt.Sprintf("how readers access writer windows (%s|%s)", config.LocalTransport, config.TCPTransport))
	fs.StringVar(&cfg.Report, "report", cfg.Report, "write summary of the run to this path")
	fs.StringVar(&cfg.ProfilerURL, "profiler-url", cfg.ProfilerURL,
		"send profiler data to certain url, if no url no profiling will be sent, format: http://<IP>:<PORT>")
	fs.StringVar(&cfg.ProfilerName, "profiler-name", cfg.ProfilerName, "the name to use when sending profiles")

	/** ======================== Reader Flags ========================== **/
	fs.DurationVar(&cfg.Reader.OpenTimeout, "open-timeout", cfg.Reader.OpenTimeout,
		"how long the first step waits for writers")
	fs.Var(flags.NewTextValue(&cfg.Reader.SyncMode, "mode"), "step-mode",
		fmt.Sprintf("how often write patterns are exchanged (%s)", strings.Join(config.SyncModes(), "|")))
	fs.BoolVar(&cfg.Reader.Threading, "threading", cfg.Reader.Threading,
		"discover the next step in background while the current one is consumed")
	fs.IntVar(&cfg.Reader.Verbosity, "verbosity", cfg.Reader.Verbosity, "verbosity of the reader log")
	fs.IntVar(&cfg.Reader.History, "history", cfg.Reader.History, "number of steps served by blocks info")

	/** ======================== Fetch Flags ========================== **/
	fs.Var(flags.NewTextValue(&cfg.Fetch.Mode, "mode"), "fetch-mode", "how windows are read (onesided|twosided)")
	fs.IntVar(&cfg.Fetch.MaxInflight, "max-inflight", cfg.Fetch.MaxInflight, "max outstanding window reads")
	fs.BoolVar(&cfg.Fetch.Trace, "trace", cfg.Fetch.Trace, "log every get")

	/** ======================== Remote Flags ========================== **/
	fs.DurationVar(&cfg.Remote.Timeout, "remote-timeout", cfg.Remote.Timeout, "timeout of a window read")
	fs.IntVar(&cfg.Remote.MaxMessageSize, "max-message-size", cfg.Remote.MaxMessageSize,
		"largest window read served in one frame")
	fs.Float64Var(&cfg.Remote.RequestsPerSecond, "requests-per-second", cfg.Remote.RequestsPerSecond,
		"window reads served by a writer per second, 0 is unlimited")
	fs.IntVar(&cfg.Remote.Burst, "burst", cfg.Remote.Burst, "burst of window reads")
	fs.IntVar(&cfg.Remote.MaxConns, "max-conns", cfg.Remote.MaxConns, "connections served by a writer")

	/** ======================== Metrics Flags ========================== **/
	fs.BoolVar(&cfg.Metrics.Enabled, "metrics", cfg.Metrics.Enabled, "serve metrics")
	fs.StringVar(&cfg.Metrics.Address, "metrics-address", cfg.Metrics.Address, "metrics server address")
	fs.StringVar(&cfg.Metrics.PushURL, "metrics-push", cfg.Metrics.PushURL, "push metrics to url")
	fs.DurationVar(&cfg.Metrics.PushPeriod, "metrics-push-period", cfg.Metrics.PushPeriod, "push period")
	fs.IntVar(&cfg.Metrics.PushRetries, "metrics-push-retries", cfg.Metrics.PushRetries, "retries of a push")

	/** ======================== Logging Flags ========================== **/
	fs.StringVar(&cfg.LOGGING.Encoder, "log-encoder", cfg.LOGGING.Encoder, "log encoder (console|json)")
	fs.StringVar(&cfg.LOGGING.AppLoggerLevel, "log-level", cfg.LOGGING.AppLoggerLevel, "level of the app log")
	fs.StringVar(&cfg.LOGGING.ReaderLoggerLevel, "reader-log-level", cfg.LOGGING.ReaderLoggerLevel,
		"level of the reader log, verbosity filters it further")
	fs.StringVar(&cfg.LOGGING.WriterLoggerLevel, "writer-log-level", cfg.LOGGING.WriterLoggerLevel,
		"level of the writer log")
	fs.StringVar(&cfg.LOGGING.RemoteLoggerLevel, "remote-log-level", cfg.LOGGING.RemoteLoggerLevel,
		"level of the window transport log")
	fs.StringVar(&cfg.LOGGING.FabricLoggerLevel, "fabric-log-level", cfg.LOGGING.FabricLoggerLevel,
		"level of the fabric log")
}
