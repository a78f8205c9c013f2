// Package reader drives the steps of a stream on the reader side.
//
// A step starts with BeginStep, which makes the write pattern of the step available and computes
// what has to be read from every writer. Gets are served between BeginStep and EndStep. EndStep
// completes pending gets and closes the access epoch on writer windows.
//
// In fixed mode patterns are exchanged once, on the first step. In flexible mode writers publish
// their pattern every step and the reader discovers the pattern of the next step right after
// EndStep, on a background goroutine when threading is enabled.
package reader

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/fabric"
	"github.com/spacemeshos/go-ssc/fetch"
	"github.com/spacemeshos/go-ssc/log"
	"github.com/spacemeshos/go-ssc/overlap"
	"github.com/spacemeshos/go-ssc/patternsync"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("reader closed")

type state uint8

const (
	stateIdle state = iota
	stateActive
	stateEnded
	stateFailed
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateActive:
		return "active"
	case stateEnded:
		return "ended"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

type Opt func(*Reader)

func WithLogger(logger *zap.Logger) Opt {
	return func(r *Reader) {
		r.logger = logger
	}
}

func WithConfig(cfg Config) Opt {
	return func(r *Reader) {
		r.cfg = cfg
	}
}

func WithClock(clock clockwork.Clock) Opt {
	return func(r *Reader) {
		r.clock = clock
	}
}

// WithFetchOptions configures the fetch engine.
func WithFetchOptions(opts ...fetch.Opt) Opt {
	return func(r *Reader) {
		r.fetchOpts = append(r.fetchOpts, opts...)
	}
}

// Reader consumes a stream identified by doid. Methods must be called from one goroutine.
type Reader struct {
	logger    *zap.Logger
	cfg       Config
	clock     clockwork.Clock
	fetchOpts []fetch.Opt

	doid   string
	comm   fabric.Comm
	sync   *patternsync.Synchronizer
	engine *fetch.Engine

	state state
	err   error
	step  int64
	begun int
	// selection changed since positions were computed
	dirty bool
	read  []types.Block

	global    types.GlobalPattern
	positions *types.PositionMap
	history   *lru.Cache[int64, types.GlobalPattern]

	pending *task
	ctx     context.Context
	cancel  context.CancelFunc
	eg      errgroup.Group
}

// New opens the stream for reading. Window is owned by the reader and closed by Close.
func New(doid string, comm fabric.Comm, window fabric.Window, opts ...Opt) (*Reader, error) {
	r := &Reader{
		logger: zap.NewNop(),
		cfg:    DefaultConfig(),
		clock:  clockwork.NewRealClock(),
		doid:   doid,
		comm:   comm,
		step:   -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cfg.History <= 0 {
		return nil, fmt.Errorf("history size must be positive, got %d", r.cfg.History)
	}
	history, err := lru.New[int64, types.GlobalPattern](r.cfg.History)
	if err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	r.history = history
	r.logger = log.WithVerbosity(r.logger, r.cfg.Verbosity).With(
		zap.String("doid", doid),
		log.ZRank("reader", comm.Rank()),
	)
	r.sync = patternsync.New(comm, doid, patternsync.WithLogger(r.logger))
	r.engine = fetch.New(window, append([]fetch.Opt{fetch.WithLogger(r.logger)}, r.fetchOpts...)...)
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.logger.Info("opened stream", zap.Inline(&r.cfg))
	return r, nil
}

// Select declares the region of a variable read on every step. Selecting a variable again
// replaces its previous selection. In fixed mode the selection can't change after the first step.
func (r *Reader) Select(name string, dtype types.DataType, shape, start, count []uint64) error {
	if err := r.usable(); err != nil {
		return err
	}
	switch {
	case r.state == stateActive:
		return fmt.Errorf("%w: select %s during step %d", types.ErrSequencing, name, r.step)
	case r.cfg.SyncMode == types.SyncFixed && r.begun > 0:
		return fmt.Errorf("%w: select %s: selection is fixed after the first step", types.ErrSequencing, name)
	case r.begun == 0 && r.pending != nil:
		return fmt.Errorf("%w: select %s: read pattern is being published", types.ErrSequencing, name)
	}
	b := types.Block{
		Name:  name,
		Type:  dtype,
		Shape: slices.Clone(shape),
		Start: slices.Clone(start),
		Count: slices.Clone(count),
	}
	b.BufferCount = b.Bytes()
	if err := b.Check(); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	if i := slices.IndexFunc(r.read, func(s types.Block) bool { return s.Name == name }); i >= 0 {
		r.read[i] = b
	} else {
		r.read = append(r.read, b)
	}
	var offset uint64
	for i := range r.read {
		r.read[i].BufferStart = offset
		offset += r.read[i].BufferCount
	}
	r.dirty = true
	return nil
}

// CurrentStep returns the step counter, -1 before the first step.
func (r *Reader) CurrentStep() int64 {
	return r.step
}

func (r *Reader) usable() error {
	switch r.state {
	case stateFailed:
		return r.err
	case stateClosed:
		return ErrClosed
	}
	return nil
}

// BeginStep makes the next step available. NotReady is returned if writers did not publish
// the step within timeout, the step counter doesn't change and the call can be retried.
// Negative timeout waits until the step is available, the first step waits at most OpenTimeout.
// EndOfStream is returned once writers terminated the stream.
func (r *Reader) BeginStep(ctx context.Context, mode types.StepMode, timeout time.Duration) (types.StepStatus, error) {
	status, err := r.beginStep(ctx, mode, timeout)
	switch status {
	case types.StatusReady:
		stepReady.Inc()
	case types.StatusNotReady:
		stepNotReady.Inc()
	case types.StatusEndOfStream:
		stepEndOfStream.Inc()
	case types.StatusError:
		stepError.Inc()
	}
	return status, err
}

func (r *Reader) beginStep(ctx context.Context, mode types.StepMode, timeout time.Duration) (types.StepStatus, error) {
	start := r.clock.Now()
	if err := r.usable(); err != nil {
		return types.StatusError, err
	}
	switch {
	case r.state == stateEnded:
		return types.StatusEndOfStream, nil
	case r.state == stateActive:
		return types.StatusError, fmt.Errorf("%w: step %d is active", types.ErrSequencing, r.step)
	case mode != types.StepModeRead:
		return types.StatusError, fmt.Errorf("%w: step mode %s is not supported", types.ErrSequencing, mode)
	}
	if r.pending == nil {
		switch {
		case r.begun == 0:
			read := make([]types.Block, 0, len(r.read))
			for i := range r.read {
				read = append(read, r.read[i].Clone())
			}
			r.spawn(func(ctx context.Context) discovery {
				return r.discoverFirst(ctx, read)
			})
		case r.cfg.SyncMode == types.SyncFixed:
			r.spawn(r.openEpoch)
		default:
			r.spawn(r.discoverWrite)
		}
	}
	if r.begun == 0 && timeout < 0 {
		timeout = r.cfg.OpenTimeout
	}
	ready, err := r.pending.wait(ctx, r.clock, timeout)
	if err != nil {
		return types.StatusError, err
	}
	if !ready {
		r.logger.Debug("step is not ready", log.ZStep(r.step+1), zap.Duration("timeout", timeout))
		return types.StatusNotReady, nil
	}
	result := r.pending.result
	r.pending = nil
	if result.err != nil {
		if errors.Is(result.err, fabric.ErrEndOfStream) {
			r.end()
			return types.StatusEndOfStream, nil
		}
		return types.StatusError, r.fail(result.err)
	}
	if err := r.activate(&result); err != nil {
		return types.StatusError, r.fail(err)
	}
	beginLatency.Observe(r.clock.Since(start).Seconds())
	return types.StatusReady, nil
}

func (r *Reader) activate(result *discovery) error {
	recompute := r.dirty || r.positions == nil
	if result.global != nil && (result.changed || r.global == nil) {
		r.global = result.global
		recompute = true
	}
	if recompute {
		positions, err := overlap.CalculatePosition(r.global, r.read)
		if err != nil {
			return fmt.Errorf("step %d: %w", r.step+1, err)
		}
		r.positions = positions
		r.dirty = false
		recomputations.Inc()
		r.logger.Debug("computed positions",
			log.ZStep(r.step+1),
			zap.Ints("writers", positions.SortedRanks()),
			zap.Int("reads", positions.Requests()),
			zap.Uint64("bytes", positions.Total),
		)
	}
	if err := r.engine.Begin(r.step+1, r.global, r.positions); err != nil {
		return err
	}
	r.step++
	r.begun++
	r.history.Add(r.step, r.global)
	r.state = stateActive
	currentStep.Set(float64(r.step))
	r.logger.Debug("began step", log.ZStep(r.step), zap.Bool("recomputed", recompute))
	return nil
}

// EndStep completes pending gets and closes the step. In flexible mode it starts discovery of
// the next step.
func (r *Reader) EndStep(ctx context.Context) error {
	if err := r.usable(); err != nil {
		return err
	}
	if r.state != stateActive {
		return fmt.Errorf("%w: end step without active step", types.ErrSequencing)
	}
	drained := r.engine.End(ctx)
	r.state = stateIdle
	if err := r.comm.Fence(ctx); err != nil {
		if errors.Is(err, fabric.ErrEndOfStream) {
			r.end()
			return drained
		}
		return errors.Join(drained, r.fail(fmt.Errorf("close step %d: %w", r.step, err)))
	}
	r.logger.Debug("ended step", log.ZStep(r.step))
	if r.cfg.SyncMode == types.SyncFlexible {
		r.spawn(r.discoverWrite)
		if r.begun == 1 || !r.cfg.Threading {
			// outcome is consumed by the next BeginStep
			if _, err := r.pending.wait(ctx, r.clock, -1); err != nil {
				return errors.Join(drained, err)
			}
		}
	}
	return drained
}

// PerformGets completes every deferred get of the step.
func (r *Reader) PerformGets(ctx context.Context) error {
	if err := r.active("perform gets"); err != nil {
		return err
	}
	return r.engine.PerformGets(ctx)
}

func (r *Reader) active(op string) error {
	if err := r.usable(); err != nil {
		return err
	}
	switch r.state {
	case stateEnded:
		return fmt.Errorf("%w: %s after end of stream", types.ErrSequencing, op)
	case stateActive:
		return nil
	}
	return fmt.Errorf("%w: %s outside of a step", types.ErrSequencing, op)
}

// GetSync reads the selection of the variable into dst.
func (r *Reader) GetSync(ctx context.Context, name string, dst []byte) error {
	if err := r.active("get " + name); err != nil {
		return err
	}
	return r.engine.FetchSync(ctx, name, dst)
}

// GetDeferred issues reads of the variable into dst. Data is available after PerformGets or EndStep.
func (r *Reader) GetDeferred(ctx context.Context, name string, dst []byte) error {
	if err := r.active("get " + name); err != nil {
		return err
	}
	return r.engine.FetchDeferred(ctx, name, dst)
}

// RegisterTransform applies transform to every get of the variable.
func (r *Reader) RegisterTransform(name string, transform fetch.Transform) {
	r.engine.RegisterTransform(name, transform)
}

// BlocksInfo returns blocks of the variable exposed by writers at the step. It doesn't move data.
func (r *Reader) BlocksInfo(name string, step int64) ([]types.RankBlock, error) {
	if err := r.usable(); err != nil {
		return nil, err
	}
	if r.begun == 0 {
		return nil, fmt.Errorf("%w: blocks info before the first step", types.ErrSequencing)
	}
	global, exist := r.history.Peek(step)
	if !exist {
		return nil, fmt.Errorf("%w: step %d", types.ErrNotFound, step)
	}
	return fetch.BlocksInfo(global, name)
}

// Close stops background discovery and releases the window. Close with pending gets is
// rejected and the reader remains usable.
func (r *Reader) Close() error {
	if r.state == stateClosed {
		return nil
	}
	if n := r.engine.Pending(); n > 0 {
		return fmt.Errorf("%w: close with %d pending gets", types.ErrSequencing, n)
	}
	r.cancel()
	r.eg.Wait()
	r.pending = nil
	r.state = stateClosed
	r.logger.Info("closed stream", log.ZStep(r.step))
	return r.engine.Close()
}

func (r *Reader) spawn(fn func(context.Context) discovery) {
	t := &task{done: make(chan struct{})}
	r.pending = t
	r.eg.Go(func() error {
		t.result = fn(r.ctx)
		close(t.done)
		return nil
	})
}

// discoverFirst exchanges both patterns.
func (r *Reader) discoverFirst(ctx context.Context, read []types.Block) discovery {
	global, changed, err := r.sync.SyncWritePattern(ctx)
	if err != nil {
		return discovery{err: err}
	}
	if _, err := r.sync.SyncReadPattern(ctx, read); err != nil {
		return discovery{err: err}
	}
	return discovery{global: global, changed: changed}
}

func (r *Reader) discoverWrite(ctx context.Context) discovery {
	global, changed, err := r.sync.SyncWritePattern(ctx)
	return discovery{global: global, changed: changed, err: err}
}

// openEpoch waits until writers filled windows for the next step.
func (r *Reader) openEpoch(ctx context.Context) discovery {
	if err := r.comm.Fence(ctx); err != nil {
		if errors.Is(err, fabric.ErrEndOfStream) {
			return discovery{err: err}
		}
		return discovery{err: fmt.Errorf("open step: %w", err)}
	}
	return discovery{}
}

func (r *Reader) end() {
	r.state = stateEnded
	r.engine.Disable()
	r.logger.Info("end of stream", log.ZStep(r.step))
}

func (r *Reader) fail(err error) error {
	r.state = stateFailed
	r.err = err
	r.engine.Disable()
	r.logger.Error("stream failed", log.ZStep(r.step), zap.Error(err))
	return err
}
