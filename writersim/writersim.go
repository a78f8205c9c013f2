// Package writersim drives the writer side of the stream protocol with prepared steps.
package writersim

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/fabric"
	"github.com/spacemeshos/go-ssc/log"
	"github.com/spacemeshos/go-ssc/pattern"
)

// Endpoint is a writer endpoint of the fabric.
type Endpoint interface {
	fabric.Comm
	// Expose replaces the window of the writer.
	Expose(buf []byte)
	// Close terminates the stream.
	Close() error
}

// Step is published by a writer: blocks of the step and the window holding their data.
type Step struct {
	Blocks []types.Block
	Data   []byte
}

type Opt func(*Writer)

func WithLogger(logger *zap.Logger) Opt {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithStepHook calls hook before a step is published.
func WithStepHook(hook func(step int)) Opt {
	return func(w *Writer) {
		w.hook = hook
	}
}

type Writer struct {
	logger   *zap.Logger
	endpoint Endpoint
	doid     string
	mode     types.SyncMode
	hook     func(step int)

	readers [][]types.Block
}

func New(endpoint Endpoint, doid string, mode types.SyncMode, opts ...Opt) *Writer {
	w := &Writer{
		logger:   zap.NewNop(),
		endpoint: endpoint,
		doid:     doid,
		mode:     mode,
		hook:     func(int) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Layout places blocks back to back in the window and returns the window size.
func Layout(blocks []types.Block) uint64 {
	var offset uint64
	for i := range blocks {
		blocks[i].BufferStart = offset
		blocks[i].BufferCount = blocks[i].Bytes()
		offset += blocks[i].BufferCount
	}
	return offset
}

// ReadPatterns returns read patterns published by readers on the first step.
func (w *Writer) ReadPatterns() [][]types.Block {
	return w.readers
}

// Run publishes steps and terminates the stream.
func (w *Writer) Run(ctx context.Context, steps []Step) error {
	defer w.endpoint.Close()
	for i, step := range steps {
		w.hook(i)
		var err error
		switch {
		case i == 0:
			err = w.first(ctx, &step)
		case w.mode == types.SyncFixed:
			if diff := cmp.Diff(steps[0].Blocks, step.Blocks); diff != "" {
				return fmt.Errorf("step %d: pattern can't change in fixed mode: %s", i, diff)
			}
			w.endpoint.Expose(step.Data)
			if err = w.endpoint.Fence(ctx); err == nil {
				err = w.endpoint.Fence(ctx)
			}
		default:
			w.endpoint.Expose(step.Data)
			if err = w.publish(ctx, step.Blocks); err == nil {
				err = w.endpoint.Fence(ctx)
			}
		}
		if err != nil {
			return fmt.Errorf("writer %d step %d: %w", w.endpoint.Rank(), i, err)
		}
		w.logger.Debug("published step",
			log.ZStep(int64(i)),
			log.ZRank("writer", w.endpoint.Rank()),
			zap.Int("blocks", len(step.Blocks)),
		)
	}
	return nil
}

func (w *Writer) publish(ctx context.Context, blocks []types.Block) error {
	doc, err := pattern.Encode(w.doid, w.endpoint.Rank(), blocks)
	if err != nil {
		return err
	}
	_, err = w.endpoint.AllGather(ctx, doc)
	return err
}

func (w *Writer) first(ctx context.Context, step *Step) error {
	w.endpoint.Expose(step.Data)
	if err := w.publish(ctx, step.Blocks); err != nil {
		return err
	}
	payloads, err := w.endpoint.AllGather(ctx, nil)
	if err != nil {
		return err
	}
	writers := w.endpoint.Writers()
	for rank, payload := range payloads[writers:] {
		blocks, err := pattern.DecodeRank(w.doid, rank, payload)
		if err != nil {
			return fmt.Errorf("read pattern: %w", err)
		}
		w.readers = append(w.readers, blocks)
	}
	return w.endpoint.Fence(ctx)
}
