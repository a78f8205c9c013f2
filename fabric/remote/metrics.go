package remote

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spacemeshos/go-ssc/metrics"
)

const subsystem = "remote"

var (
	requests = metrics.NewCounter(
		"requests",
		subsystem,
		"window reads served",
		[]string{"state"},
	)
	servedBytes = metrics.NewCounter(
		"served_bytes",
		subsystem,
		"bytes served from the window",
		[]string{},
	).WithLabelValues()
	clientLatency = metrics.NewHistogramWithBuckets(
		"client_latency_seconds",
		subsystem,
		"latency of a window read on the reader",
		[]string{"result"},
		prometheus.ExponentialBuckets(0.0005, 2, 14),
	)

	servedOk       = requests.WithLabelValues("completed")
	servedFailed   = requests.WithLabelValues("failed")
	clientOk       = clientLatency.WithLabelValues("ok")
	clientFailures = clientLatency.WithLabelValues("failure")
)
