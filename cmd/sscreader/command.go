package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-ssc/cmd"
	"github.com/spacemeshos/go-ssc/config"
	"github.com/spacemeshos/go-ssc/log"
	"github.com/spacemeshos/go-ssc/metrics"
	"github.com/spacemeshos/go-ssc/sim"
)

func GetCommand() *cobra.Command {
	conf := config.DefaultConfig()
	var configPath string
	c := &cobra.Command{
		Use:   "sscreader",
		Short: "run writers and readers of a stream and verify what readers receive",
		RunE: func(c *cobra.Command, args []string) error {
			if err := configure(c, configPath, &conf); err != nil {
				return err
			}
			// os.Interrupt for all systems, syscall.SIGTERM is mainly for docker.
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, &conf)
		},
	}
	c.Flags().StringVarP(&configPath, "config", "c", "", "load configuration from file")
	cmd.AddFlags(c.Flags(), &conf)
	return c
}

// configure loads the config file and applies CLI args on top of it.
func configure(c *cobra.Command, configPath string, conf *config.Config) error {
	if err := config.Load(afero.NewOsFs(), configPath, conf); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := c.ParseFlags(os.Args[1:]); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	return nil
}

func newLoggers(conf *config.LoggerConfig) (*zap.Logger, []sim.Opt, error) {
	app, err := log.New("sscreader", conf.AppLoggerLevel, conf.Encoder)
	if err != nil {
		return nil, nil, err
	}
	opts := []sim.Opt{sim.WithLogger(app)}
	for name, level := range map[string]string{
		sim.ReaderLogger: conf.ReaderLoggerLevel,
		sim.WriterLogger: conf.WriterLoggerLevel,
		sim.RemoteLogger: conf.RemoteLoggerLevel,
		sim.FabricLogger: conf.FabricLoggerLevel,
	} {
		logger, err := log.New(name, level, conf.Encoder)
		if err != nil {
			return nil, nil, fmt.Errorf("%s logger: %w", name, err)
		}
		opts = append(opts, sim.WithNamedLogger(name, logger))
	}
	return app, opts, nil
}

func run(ctx context.Context, conf *config.Config) error {
	logger, opts, err := newLoggers(&conf.LOGGING)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("starting",
		zap.String("version", cmd.Version),
		zap.String("commit", cmd.Commit),
		zap.String("branch", cmd.Branch),
		zap.Object("main", &conf.BaseConfig),
		zap.Object("metrics", &conf.Metrics),
		zap.Object("fetch", &conf.Fetch),
		zap.Object("remote", &conf.Remote),
	)

	if conf.ProfilerURL != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: conf.ProfilerName,
			ServerAddress:   conf.ProfilerURL,
		})
		if err != nil {
			return fmt.Errorf("cannot start profiling client: %w", err)
		}
		defer profiler.Stop()
	}

	s, err := sim.New(*conf, opts...)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	telemetry, stop := context.WithCancel(ctx)
	defer func() {
		stop()
		wg.Wait()
	}()
	if conf.Metrics.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartCollectingMetrics(telemetry, logger, conf.Metrics.Address); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}
	if conf.Metrics.PushURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.StartPushingMetrics(telemetry, logger, conf.Metrics, map[string]string{"doid": s.DOID()})
		}()
	}

	report, err := s.Run(ctx)
	if err != nil {
		return err
	}
	for _, rst := range report.Readers {
		logger.Info("reader done",
			zap.Int("rank", rst.Rank),
			zap.Int("steps", rst.Steps),
			zap.Int("not ready", rst.NotReady),
			zap.Uint64("bytes", rst.Bytes),
			zap.String("digest", rst.Digest),
		)
	}
	if conf.Report != "" {
		if err := report.Write(conf.Report); err != nil {
			return err
		}
		logger.Info("report written", zap.String("path", conf.Report))
	}
	return nil
}
