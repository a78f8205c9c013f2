package fetch

import (
	"github.com/spacemeshos/go-ssc/metrics"
)

const subsystem = "fetch"

var (
	fetchedBytes = metrics.NewCounter(
		"bytes",
		subsystem,
		"bytes assembled into caller buffers",
		[]string{},
	).WithLabelValues()

	windowReads = metrics.NewCounter(
		"window_reads",
		subsystem,
		"one-sided reads issued against writer windows",
		[]string{"mode"},
	)

	pendingGets = metrics.NewGauge(
		"pending",
		subsystem,
		"deferred gets waiting for PerformGets",
		[]string{},
	).WithLabelValues()

	getLatency = metrics.NewHistogramWithBuckets(
		"get_latency_seconds",
		subsystem,
		"time from issuing a get to data being assembled",
		[]string{"kind"},
		metrics.LatencyBuckets,
	)
	syncLatency     = getLatency.WithLabelValues("sync")
	deferredLatency = getLatency.WithLabelValues("deferred")
)
