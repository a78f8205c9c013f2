package fetch

import (
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/hash"
	"github.com/spacemeshos/go-ssc/log"
)

// Tracer observes gets. Engine calls it before reads are issued and after data is assembled.
type Tracer interface {
	BeforeGet(step int64, block *types.Block)
	AfterGet(step int64, block *types.Block, data []byte)
}

type noopTracer struct{}

func (noopTracer) BeforeGet(int64, *types.Block) {}

func (noopTracer) AfterGet(int64, *types.Block, []byte) {}

// previewSize is the number of leading payload bytes mirrored by LogTracer.
const previewSize = 16

// LogTracer mirrors gets to the logger at debug level.
type LogTracer struct {
	logger *zap.Logger
}

func NewLogTracer(logger *zap.Logger) *LogTracer {
	return &LogTracer{logger: logger.Named("trace")}
}

func (t *LogTracer) BeforeGet(step int64, block *types.Block) {
	t.logger.Debug("get", log.ZStep(step), log.ZObject("block", block))
}

func (t *LogTracer) AfterGet(step int64, block *types.Block, data []byte) {
	if !t.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	preview := data
	if len(preview) > previewSize {
		preview = preview[:previewSize]
	}
	t.logger.Debug("got",
		log.ZStep(step),
		log.ZVar(block.Name),
		zap.Int("bytes", len(data)),
		zap.String("head", hex.EncodeToString(preview)),
		log.ZShortStringer("digest", hash.Sum(data)),
	)
}
