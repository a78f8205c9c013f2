package reader

import (
	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/metrics"
)

const subsystem = "reader"

var (
	beginSteps = metrics.NewCounter(
		"begin_step",
		subsystem,
		"BeginStep outcomes",
		[]string{"status"},
	)
	stepReady       = beginSteps.WithLabelValues(types.StatusReady.String())
	stepNotReady    = beginSteps.WithLabelValues(types.StatusNotReady.String())
	stepEndOfStream = beginSteps.WithLabelValues(types.StatusEndOfStream.String())
	stepError       = beginSteps.WithLabelValues(types.StatusError.String())

	beginLatency = metrics.NewHistogramWithBuckets(
		"begin_step_seconds",
		subsystem,
		"time spent in BeginStep that returned ready",
		[]string{},
		metrics.LatencyBuckets,
	).WithLabelValues()

	recomputations = metrics.NewCounter(
		"position_recomputations",
		subsystem,
		"position map recomputations",
		[]string{},
	).WithLabelValues()

	currentStep = metrics.NewGauge(
		"step",
		subsystem,
		"current step",
		[]string{},
	).WithLabelValues()
)
