package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// retryLogger adapts zap.Logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	inner *zap.Logger
}

func (r retryLogger) Error(msg string, args ...any) {
	r.inner.Sugar().Errorw(msg, args...)
}

func (r retryLogger) Info(msg string, args ...any) {
	r.inner.Sugar().Infow(msg, args...)
}

func (r retryLogger) Warn(msg string, args ...any) {
	r.inner.Sugar().Warnw(msg, args...)
}

func (r retryLogger) Debug(msg string, args ...any) {
	r.inner.Sugar().Debugw(msg, args...)
}

func pushClient(logger *zap.Logger, retries int) *http.Client {
	client := &retryablehttp.Client{
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
		Logger:       retryLogger{inner: logger},
		RetryMax:     retries,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: time.Second,
		Backoff:      retryablehttp.LinearJitterBackoff,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
	}
	return client.StandardClient()
}

// StartPushingMetrics pushes metrics to cfg.PushURL every cfg.PushPeriod until ctx is canceled.
// Metrics are pushed one last time before returning.
func StartPushingMetrics(ctx context.Context, logger *zap.Logger, cfg Config, grouping map[string]string) {
	pusher := push.New(cfg.PushURL, "ssc-reader").
		Gatherer(prometheus.DefaultGatherer).
		Client(pushClient(logger, cfg.PushRetries))
	for k, v := range grouping {
		pusher = pusher.Grouping(k, v)
	}
	logger.Info("pushing metrics", zap.String("url", cfg.PushURL), zap.Duration("period", cfg.PushPeriod))
	ticker := time.NewTicker(cfg.PushPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := pusher.Push(); err != nil {
				logger.Warn("failed to push metrics", zap.Error(err))
			}
			return
		case <-ticker.C:
			if err := pusher.PushContext(ctx); err != nil {
				logger.Warn("failed to push metrics", zap.Error(err))
			}
		}
	}
}
