// Package local implements the fabric in a single process.
//
// Every participant gets an Endpoint. Collectives are matched by the sequence number of the call
// on each endpoint, and a round completes once every participant joined it. Writer windows are
// plain byte slices that readers copy from asynchronously.
package local

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-ssc/fabric"
	"github.com/spacemeshos/go-ssc/log"
)

type Opt func(*World)

func WithLogger(logger *zap.Logger) Opt {
	return func(w *World) {
		w.logger = logger
	}
}

// WithLatency delays completion of every one-sided read.
func WithLatency(latency time.Duration) Opt {
	return func(w *World) {
		w.latency = latency
	}
}

func WithClock(clock clockwork.Clock) Opt {
	return func(w *World) {
		w.clock = clock
	}
}

type round struct {
	payloads [][]byte
	arrived  int
	done     chan struct{}
	err      error
}

// World is a stream group of writers and readers living in one process.
type World struct {
	logger  *zap.Logger
	clock   clockwork.Clock
	latency time.Duration

	writers, readers int

	mu     sync.Mutex
	rounds map[uint64]*round
	// end is the first sequence number that fails with fabric.ErrEndOfStream.
	end uint64

	wmu     sync.RWMutex
	windows [][]byte
}

func New(writers, readers int, opts ...Opt) *World {
	w := &World{
		logger:  zap.NewNop(),
		clock:   clockwork.NewRealClock(),
		writers: writers,
		readers: readers,
		rounds:  make(map[uint64]*round),
		end:     math.MaxUint64,
		windows: make([][]byte, writers),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Writer returns endpoint of the writer with rank.
func (w *World) Writer(rank int) *Endpoint {
	if rank < 0 || rank >= w.writers {
		panic(fmt.Sprintf("writer rank %d out of range [0, %d)", rank, w.writers))
	}
	return &Endpoint{world: w, writer: true, rank: rank}
}

// Reader returns endpoint of the reader with rank.
func (w *World) Reader(rank int) *Endpoint {
	if rank < 0 || rank >= w.readers {
		panic(fmt.Sprintf("reader rank %d out of range [0, %d)", rank, w.readers))
	}
	return &Endpoint{world: w, rank: rank}
}

// Source returns a snapshot reader over the window of the writer.
func (w *World) Source(rank int) io.ReaderAt {
	return source{world: w, rank: rank}
}

func (w *World) size() int {
	return w.writers + w.readers
}

func (w *World) join(seq uint64, idx int, payload []byte) (*round, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq >= w.end {
		return nil, fabric.ErrEndOfStream
	}
	r, exist := w.rounds[seq]
	if !exist {
		r = &round{payloads: make([][]byte, w.size()), done: make(chan struct{})}
		w.rounds[seq] = r
	}
	r.payloads[idx] = payload
	r.arrived++
	if r.arrived == w.size() {
		close(r.done)
		delete(w.rounds, seq)
	}
	return r, nil
}

// terminate fails every collective starting from seq.
func (w *World) terminate(seq uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if seq >= w.end {
		return
	}
	w.end = seq
	w.logger.Debug("stream terminated", zap.Uint64("seq", seq))
	for s, r := range w.rounds {
		if s >= seq {
			r.err = fabric.ErrEndOfStream
			close(r.done)
			delete(w.rounds, s)
		}
	}
}

func (w *World) expose(rank int, buf []byte) {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	w.windows[rank] = buf
}

func (w *World) read(rank int, offset uint64, dst []byte) error {
	w.wmu.RLock()
	defer w.wmu.RUnlock()
	if rank < 0 || rank >= len(w.windows) {
		return fmt.Errorf("window: unknown writer rank %d", rank)
	}
	win := w.windows[rank]
	if offset > uint64(len(win)) || uint64(len(dst)) > uint64(len(win))-offset {
		return fmt.Errorf("window %d: read of %d bytes at %d exceeds %d bytes",
			rank, len(dst), offset, len(win))
	}
	copy(dst, win[offset:])
	return nil
}

// Endpoint is a participant of the world. It implements fabric.Comm.
// Readers also use it as fabric.Window.
type Endpoint struct {
	world  *World
	writer bool
	rank   int

	mu     sync.Mutex
	seq    uint64
	closed bool
}

func (e *Endpoint) Rank() int {
	return e.rank
}

func (e *Endpoint) Size() int {
	if e.writer {
		return e.world.writers
	}
	return e.world.readers
}

func (e *Endpoint) Writers() int {
	return e.world.writers
}

func (e *Endpoint) index() int {
	if e.writer {
		return e.rank
	}
	return e.world.writers + e.rank
}

func (e *Endpoint) next() (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, fabric.ErrClosed
	}
	seq := e.seq
	e.seq++
	return seq, nil
}

func (e *Endpoint) AllGather(ctx context.Context, payload []byte) ([][]byte, error) {
	seq, err := e.next()
	if err != nil {
		return nil, err
	}
	r, err := e.world.join(seq, e.index(), payload)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
	}
	if r.err != nil {
		return nil, r.err
	}
	return slices.Clone(r.payloads), nil
}

func (e *Endpoint) Fence(ctx context.Context) error {
	_, err := e.AllGather(ctx, nil)
	return err
}

// Expose replaces the window of the writer. Readers must not access the window concurrently,
// which the fence protocol guarantees.
func (e *Endpoint) Expose(buf []byte) {
	if !e.writer {
		panic("expose on reader endpoint")
	}
	e.world.expose(e.rank, buf)
}

func (e *Endpoint) Get(ctx context.Context, rank int, offset uint64, dst []byte) (fabric.Request, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, fabric.ErrClosed
	}
	req := fabric.NewPending()
	go func() {
		if e.world.latency > 0 {
			select {
			case <-e.world.clock.After(e.world.latency):
			case <-ctx.Done():
				req.Complete(ctx.Err())
				return
			}
		}
		req.Complete(e.world.read(rank, offset, dst))
	}()
	return req, nil
}

// Close of a writer endpoint terminates the stream for everyone. Collectives issued by this
// endpoint before Close still complete.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	seq := e.seq
	e.mu.Unlock()
	if e.writer {
		e.world.terminate(seq)
	}
	e.world.logger.Debug("endpoint closed",
		log.ZRank("rank", e.rank),
		zap.Bool("writer", e.writer),
	)
	return nil
}

type source struct {
	world *World
	rank  int
}

func (s source) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("window %d: negative offset %d", s.rank, off)
	}
	if err := s.world.read(s.rank, uint64(off), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

var (
	_ fabric.Comm   = (*Endpoint)(nil)
	_ fabric.Window = (*Endpoint)(nil)
)
