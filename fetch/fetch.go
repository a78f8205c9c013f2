// Package fetch reads selected variables from writer windows into caller buffers.
//
// Reads of a variable land in the receive buffer first, at the slot the position map reserved
// for it. Once every read of the variable completed, the slot is scattered into the caller buffer.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/fabric"
	"github.com/spacemeshos/go-ssc/log"
	"github.com/spacemeshos/go-ssc/overlap"
)

type Opt func(*Engine)

func WithLogger(logger *zap.Logger) Opt {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithConfig(cfg Config) Opt {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithTracer installs tracer that observes every get.
func WithTracer(tracer Tracer) Opt {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// staged is a two-sided read of a position span, extracted into the receive buffer on completion.
type staged struct {
	pos  *types.Position
	base uint64
	data []byte
}

// get is the set of reads that fills one slot, shared by every destination requesting that slot
// in the step.
type get struct {
	slot     int
	started  time.Time
	dsts     [][]byte
	requests []fabric.Request
	staged   []staged
}

// Engine issues and completes gets of one reader. It is driven from a single goroutine.
type Engine struct {
	logger  *zap.Logger
	cfg     Config
	tracer  Tracer
	window  fabric.Window
	limiter limiter

	buffer     Buffer
	step       int64
	active     bool
	positions  *types.PositionMap
	global     types.GlobalPattern
	pending    map[int]*get
	inflight   []fabric.Request
	transforms map[string]Transform
}

func New(window fabric.Window, opts ...Opt) *Engine {
	e := &Engine{
		logger:     zap.NewNop(),
		cfg:        DefaultConfig(),
		tracer:     noopTracer{},
		window:     window,
		step:       -1,
		pending:    make(map[int]*get),
		transforms: make(map[string]Transform),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.Trace {
		if _, ok := e.tracer.(noopTracer); ok {
			e.tracer = NewLogTracer(e.logger)
		}
	}
	e.limiter = newLimiter(e.cfg.MaxInflight)
	return e
}

// RegisterTransform applies transform to every get of the variable.
func (e *Engine) RegisterTransform(variable string, transform Transform) {
	e.transforms[variable] = transform
}

// Begin enables gets against the position map for the step.
// The receive buffer is sized for the map before any read is issued.
func (e *Engine) Begin(step int64, global types.GlobalPattern, positions *types.PositionMap) error {
	if len(e.pending) > 0 {
		return fmt.Errorf("%w: begin step %d with %d pending gets", types.ErrSequencing, step, len(e.pending))
	}
	if n := e.settle(); n > 0 {
		return fmt.Errorf("%w: begin step %d with %d reads in flight", types.ErrSequencing, step, n)
	}
	e.buffer.Reserve(positions.Total)
	e.step = step
	e.global = global
	e.positions = positions
	e.active = true
	return nil
}

// End completes pending gets and disables further gets until the next Begin.
func (e *Engine) End(ctx context.Context) error {
	err := e.PerformGets(ctx)
	e.active = false
	return err
}

// Disable rejects gets until the next Begin. Used once the stream terminated.
func (e *Engine) Disable() {
	e.active = false
}

// Pending is the number of deferred gets.
func (e *Engine) Pending() int {
	return len(e.pending)
}

// Buffer exposes the receive buffer.
func (e *Engine) Buffer() *Buffer {
	return &e.buffer
}

// FetchSync reads variable into dst and returns once dst holds the data.
func (e *Engine) FetchSync(ctx context.Context, variable string, dst []byte) error {
	g, err := e.issue(ctx, variable, dst)
	if err != nil {
		return err
	}
	delete(e.pending, g.slot)
	pendingGets.Set(float64(len(e.pending)))
	if err := e.complete(ctx, g); err != nil {
		return err
	}
	syncLatency.Observe(time.Since(g.started).Seconds())
	return nil
}

// FetchDeferred issues reads of variable into dst. The data is available after PerformGets.
func (e *Engine) FetchDeferred(ctx context.Context, variable string, dst []byte) error {
	_, err := e.issue(ctx, variable, dst)
	return err
}

// PerformGets completes every deferred get. Every get is completed even if some of them failed.
// Reads target the receive buffer, so the drain is not interrupted by ctx cancellation.
func (e *Engine) PerformGets(ctx context.Context) error {
	if len(e.pending) == 0 {
		return nil
	}
	slots := make([]int, 0, len(e.pending))
	for slot := range e.pending {
		slots = append(slots, slot)
	}
	slices.Sort(slots)
	var errs []error
	for _, slot := range slots {
		g := e.pending[slot]
		if err := e.complete(ctx, g); err != nil {
			errs = append(errs, err)
		} else {
			deferredLatency.Observe(time.Since(g.started).Seconds())
		}
	}
	clear(e.pending)
	pendingGets.Set(0)
	e.settle()
	return errors.Join(errs...)
}

// Close releases the window. Pending gets are a usage error.
func (e *Engine) Close() error {
	if len(e.pending) > 0 {
		return fmt.Errorf("%w: close with %d pending gets", types.ErrSequencing, len(e.pending))
	}
	if n := e.settle(); n > 0 {
		return fmt.Errorf("%w: close with %d reads in flight", types.ErrSequencing, n)
	}
	e.active = false
	return e.window.Close()
}

// settle forgets completed reads and returns the number of reads still in flight.
func (e *Engine) settle() int {
	e.inflight = slices.DeleteFunc(e.inflight, func(req fabric.Request) bool {
		select {
		case <-req.Done():
			return true
		default:
			return false
		}
	})
	return len(e.inflight)
}

func (e *Engine) lookup(variable string) (*types.Slot, int, error) {
	idx := e.positions.Slot(variable)
	if idx < 0 {
		if e.global.Has(variable) {
			return nil, 0, fmt.Errorf("%w: variable %s is not selected", types.ErrNotFound, variable)
		}
		return nil, 0, fmt.Errorf("%w: variable %s", types.ErrNotFound, variable)
	}
	slot := &e.positions.Slots[idx]
	if !slot.Complete() {
		return nil, 0, fmt.Errorf("%w: variable %s: writers expose %d of %d selected bytes",
			types.ErrNotFound, variable, slot.Covered, slot.Size)
	}
	return slot, idx, nil
}

func (e *Engine) issue(ctx context.Context, variable string, dst []byte) (*get, error) {
	if !e.active {
		return nil, fmt.Errorf("%w: get %s outside of a step", types.ErrSequencing, variable)
	}
	slot, idx, err := e.lookup(variable)
	if err != nil {
		return nil, err
	}
	if uint64(len(dst)) < slot.Size {
		return nil, fmt.Errorf("get %s: destination holds %d bytes, selection needs %d", variable, len(dst), slot.Size)
	}
	if g, exist := e.pending[idx]; exist {
		g.dsts = append(g.dsts, dst)
		return g, nil
	}
	e.tracer.BeforeGet(e.step, &slot.Block)
	g := &get{slot: idx, started: time.Now(), dsts: [][]byte{dst}}
	for _, pos := range e.positions.ForSlot(idx) {
		if err := e.read(ctx, g, &pos); err != nil {
			// reads that were already issued still target the receive buffer
			fabric.WaitAll(context.WithoutCancel(ctx), g.requests)
			return nil, fmt.Errorf("get %s from writer %d: %w", variable, pos.Rank, err)
		}
	}
	e.pending[idx] = g
	pendingGets.Set(float64(len(e.pending)))
	e.logger.Debug("issued get",
		log.ZStep(e.step),
		log.ZVar(variable),
		zap.Int("reads", len(g.requests)),
		zap.Uint64("bytes", slot.Size),
	)
	return g, nil
}

func (e *Engine) read(ctx context.Context, g *get, pos *types.Position) error {
	if len(pos.Runs) == 0 {
		return nil
	}
	switch e.cfg.Mode {
	case TwoSided:
		first, last := pos.Runs[0], pos.Runs[len(pos.Runs)-1]
		base := first.Src
		for _, run := range pos.Runs {
			base = min(base, run.Src)
		}
		end := last.Src + last.Len
		for _, run := range pos.Runs {
			end = max(end, run.Src+run.Len)
		}
		data := make([]byte, end-base)
		if err := e.get(ctx, g, pos.Rank, base, data); err != nil {
			return err
		}
		g.staged = append(g.staged, staged{pos: pos, base: base, data: data})
	default:
		for _, run := range pos.Runs {
			if err := e.get(ctx, g, pos.Rank, run.Src, e.buffer.Region(run.Dst, run.Len)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) get(ctx context.Context, g *get, rank int, offset uint64, dst []byte) error {
	if err := e.limiter.Acquire(ctx, 1); err != nil {
		return err
	}
	req, err := e.window.Get(ctx, rank, offset, dst)
	if err != nil {
		e.limiter.Release(1)
		return err
	}
	go func() {
		<-req.Done()
		e.limiter.Release(1)
	}()
	windowReads.WithLabelValues(e.cfg.Mode.String()).Inc()
	g.requests = append(g.requests, req)
	e.inflight = append(e.inflight, req)
	return nil
}

func (e *Engine) complete(ctx context.Context, g *get) error {
	slot := &e.positions.Slots[g.slot]
	if err := fabric.WaitAll(context.WithoutCancel(ctx), g.requests); err != nil {
		return fmt.Errorf("get %s: %w", slot.Block.Name, err)
	}
	for _, st := range g.staged {
		for _, run := range st.pos.Runs {
			copy(e.buffer.Region(run.Dst, run.Len), st.data[run.Src-st.base:])
		}
	}
	first := g.dsts[0][:slot.Size]
	for _, pos := range e.positions.ForSlot(g.slot) {
		packed := e.buffer.Region(pos.DstOffset, pos.Length)
		if err := overlap.Scatter(slot, &pos, packed, first); err != nil {
			return err
		}
	}
	if transform, exist := e.transforms[slot.Block.Name]; exist {
		if err := transform.Apply(&slot.Block, first); err != nil {
			return fmt.Errorf("get %s: %w", slot.Block.Name, err)
		}
	}
	for _, dst := range g.dsts[1:] {
		copy(dst, first)
	}
	fetchedBytes.Add(float64(slot.Size) * float64(len(g.dsts)))
	e.tracer.AfterGet(e.step, &slot.Block, first)
	return nil
}

// BlocksInfo returns blocks of the variable exposed by writers, ordered by writer rank.
func BlocksInfo(global types.GlobalPattern, variable string) ([]types.RankBlock, error) {
	blocks := global.Lookup(variable)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: variable %s", types.ErrNotFound, variable)
	}
	return blocks, nil
}
