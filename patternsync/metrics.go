package patternsync

import (
	"github.com/spacemeshos/go-ssc/metrics"
)

const subsystem = "patternsync"

var (
	syncs = metrics.NewCounter(
		"write_pattern_syncs",
		subsystem,
		"write pattern exchanges by outcome",
		[]string{"outcome"},
	)
	syncChanged   = syncs.WithLabelValues("changed")
	syncUnchanged = syncs.WithLabelValues("unchanged")
	syncFailed    = syncs.WithLabelValues("failed")

	writerBlocks = metrics.NewGauge(
		"writer_blocks",
		subsystem,
		"number of blocks in the last global write pattern",
		[]string{},
	).WithLabelValues()
)
