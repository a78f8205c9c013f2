package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config of metrics collection.
type Config struct {
	// Enabled serves metrics on Address.
	Enabled bool   `mapstructure:"metrics"`
	Address string `mapstructure:"metrics-address"`
	// PushURL of prometheus pushgateway. Reader jobs are short lived, so pushing is
	// usually more reliable than scraping.
	PushURL     string        `mapstructure:"metrics-push"`
	PushPeriod  time.Duration `mapstructure:"metrics-push-period"`
	PushRetries int           `mapstructure:"metrics-push-retries"`
}

func DefaultConfig() Config {
	return Config{
		Address:     "127.0.0.1:1010",
		PushPeriod:  10 * time.Second,
		PushRetries: 3,
	}
}

func (c *Config) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddBool("enabled", c.Enabled)
	encoder.AddString("address", c.Address)
	encoder.AddString("push url", c.PushURL)
	encoder.AddDuration("push period", c.PushPeriod)
	encoder.AddInt("push retries", c.PushRetries)
	return nil
}

// StartCollectingMetrics serves metrics on address/metrics until ctx is canceled.
func StartCollectingMetrics(ctx context.Context, logger *zap.Logger, address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()
	logger.Info("serving metrics", zap.String("address", address))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
