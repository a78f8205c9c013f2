package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testCounter = NewCounter("pushes", "metrics_test", "counter used by tests", []string{"kind"})

func TestObserveSince(t *testing.T) {
	hist := NewHistogramWithBuckets("latency", "metrics_test", "histogram used by tests", nil, LatencyBuckets)
	ObserveSince(hist.WithLabelValues(), time.Now().Add(-time.Second))
	require.Equal(t, 1, testutil.CollectAndCount(hist))
}

func TestPushWithRetries(t *testing.T) {
	testCounter.WithLabelValues("test").Add(3)

	var (
		mu    sync.Mutex
		calls int
		names = map[string]*dto.MetricFamily{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		decoder := expfmt.NewDecoder(r.Body, expfmt.ResponseFormat(r.Header))
		for {
			var family dto.MetricFamily
			err := decoder.Decode(&family)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			names[family.GetName()] = &family
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := DefaultConfig()
	cfg.PushURL = srv.URL
	cfg.PushPeriod = time.Hour
	cfg.PushRetries = 2
	StartPushingMetrics(ctx, zaptest.NewLogger(t), cfg, map[string]string{"doid": "test"})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, calls)
	require.Contains(t, names, "ssc_metrics_test_pushes")
	family := names["ssc_metrics_test_pushes"]
	require.Len(t, family.GetMetric(), 1)
	require.InDelta(t, 3, family.GetMetric()[0].GetCounter().GetValue(), 0.001)
}

func TestCollectingMetrics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- StartCollectingMetrics(ctx, zaptest.NewLogger(t), "127.0.0.1:0")
	}()
	cancel()
	require.NoError(t, <-errc)
}
