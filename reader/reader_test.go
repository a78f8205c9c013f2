package reader

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/fabric"
	"github.com/spacemeshos/go-ssc/fabric/local"
	"github.com/spacemeshos/go-ssc/log/logtest"
	"github.com/spacemeshos/go-ssc/pattern"
	"github.com/spacemeshos/go-ssc/writersim"
)

const (
	doid = "test-stream"
	size = 16
)

var shape = []uint64{size}

func value(step int, i uint64) uint64 {
	return uint64(step)*1000 + i
}

func expected(step int, start, count uint64) []uint64 {
	rst := make([]uint64, 0, count)
	for i := start; i < start+count; i++ {
		rst = append(rst, value(step, i))
	}
	return rst
}

// writerSteps returns steps of two writers splitting T at split(step).
func writerSteps(n int, split func(step int) uint64) [][]writersim.Step {
	rst := make([][]writersim.Step, 2)
	for step := range n {
		at := split(step)
		for rank, span := range [][2]uint64{{0, at}, {at, size}} {
			blocks := []types.Block{{
				Name:  "T",
				Type:  types.TypeUint64,
				Shape: shape,
				Start: []uint64{span[0]},
				Count: []uint64{span[1] - span[0]},
			}}
			writersim.Layout(blocks)
			var data []byte
			for _, v := range expected(step, span[0], span[1]-span[0]) {
				data = binary.NativeEndian.AppendUint64(data, v)
			}
			rst[rank] = append(rst[rank], writersim.Step{Blocks: blocks, Data: data})
		}
	}
	return rst
}

func fixedSplit(int) uint64 { return size / 2 }

func movingSplit(step int) uint64 { return uint64(1 + step%(size-1)) }

type harness struct {
	world   *local.World
	writers []*writersim.Writer
	cancel  context.CancelFunc
	eg      errgroup.Group
}

func newHarness(t *testing.T, readers int, mode types.SyncMode, opts ...local.Opt) *harness {
	t.Helper()
	h := &harness{world: local.New(2, readers, append(opts, local.WithLogger(logtest.New(t)))...)}
	for rank := range 2 {
		h.writers = append(h.writers, writersim.New(h.world.Writer(rank), doid, mode,
			writersim.WithLogger(logtest.New(t))))
	}
	return h
}

func (h *harness) start(t *testing.T, plan [][]writersim.Step) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	for rank, w := range h.writers {
		h.eg.Go(func() error {
			return w.Run(ctx, plan[rank])
		})
	}
	t.Cleanup(func() {
		cancel()
		h.eg.Wait()
	})
}

func newReader(t *testing.T, comm fabric.Comm, window fabric.Window, cfg Config, opts ...Opt) *Reader {
	t.Helper()
	r, err := New(doid, comm, window, append([]Opt{WithLogger(logtest.New(t)), WithConfig(cfg)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func fixedConfig() Config {
	cfg := DefaultConfig()
	cfg.SyncMode = types.SyncFixed
	return cfg
}

func TestFixedMode(t *testing.T) {
	h := newHarness(t, 1, types.SyncFixed)
	h.start(t, writerSteps(3, fixedSplit))
	ep := h.world.Reader(0)
	r := newReader(t, ep, ep, fixedConfig())
	require.Equal(t, int64(-1), r.CurrentStep())
	require.NoError(t, r.Select("T", types.TypeUint64, shape, []uint64{4}, []uint64{8}))

	var (
		positions *types.PositionMap
		global    types.GlobalPattern
	)
	for step := range 3 {
		status, err := r.BeginStep(context.Background(), types.StepModeRead, -1)
		require.NoError(t, err)
		require.Equal(t, types.StatusReady, status)
		require.Equal(t, int64(step), r.CurrentStep())
		if step == 0 {
			positions, global = r.positions, r.global
			require.ErrorIs(t, r.Select("T", types.TypeUint64, shape, []uint64{0}, []uint64{1}), types.ErrSequencing)
		} else {
			require.Same(t, positions, r.positions)
			require.Same(t, &global[0], &r.global[0])
		}

		dst := make([]uint64, 8)
		require.NoError(t, Get(context.Background(), r, "T", dst))
		require.Equal(t, expected(step, 4, 8), dst)
		require.NoError(t, r.EndStep(context.Background()))
	}
	require.ErrorIs(t, r.Select("T", types.TypeUint64, shape, []uint64{0}, []uint64{1}), types.ErrSequencing)

	status, err := r.BeginStep(context.Background(), types.StepModeRead, -1)
	require.NoError(t, err)
	require.Equal(t, types.StatusEndOfStream, status)
	require.Equal(t, int64(2), r.CurrentStep())

	err = r.GetSync(context.Background(), "T", make([]byte, 64))
	require.ErrorIs(t, err, types.ErrSequencing)
	status, err = r.BeginStep(context.Background(), types.StepModeRead, 0)
	require.NoError(t, err)
	require.Equal(t, types.StatusEndOfStream, status)

	require.NoError(t, h.eg.Wait())
	read := h.writers[0].ReadPatterns()
	require.Len(t, read, 1)
	require.Len(t, read[0], 1)
	require.Equal(t, "T", read[0][0].Name)
	require.Equal(t, []uint64{4}, read[0][0].Start)
}

func TestFlexibleMode(t *testing.T) {
	for _, threading := range []bool{true, false} {
		t.Run(fmt.Sprintf("threading=%v", threading), func(t *testing.T) {
			const n = 6
			h := newHarness(t, 1, types.SyncFlexible)
			h.start(t, writerSteps(n, movingSplit))
			ep := h.world.Reader(0)
			cfg := DefaultConfig()
			cfg.Threading = threading
			r := newReader(t, ep, ep, cfg)
			require.NoError(t, r.Select("T", types.TypeUint64, shape, []uint64{0}, []uint64{size}))

			for step := range n {
				status, err := r.BeginStep(context.Background(), types.StepModeRead, -1)
				require.NoError(t, err)
				require.Equal(t, types.StatusReady, status)
				require.Len(t, r.positions.SortedRanks(), 2)
				require.Equal(t, movingSplit(step)*8, r.positions.Ranks[1][0].DstOffset)

				dst := make([]uint64, size)
				require.NoError(t, GetDeferred(context.Background(), r, "T", dst))
				require.NoError(t, r.PerformGets(context.Background()))
				require.Equal(t, expected(step, 0, size), dst)
				require.NoError(t, r.EndStep(context.Background()))
				require.NotNil(t, r.pending)
			}
			status, err := r.BeginStep(context.Background(), types.StepModeRead, -1)
			require.NoError(t, err)
			require.Equal(t, types.StatusEndOfStream, status)
		})
	}
}

// delayed postpones every collective of the wrapped endpoint.
type delayed struct {
	*local.Endpoint
	delay time.Duration
}

func (d *delayed) AllGather(ctx context.Context, payload []byte) ([][]byte, error) {
	time.Sleep(d.delay)
	return d.Endpoint.AllGather(ctx, payload)
}

func (d *delayed) Fence(ctx context.Context) error {
	_, err := d.AllGather(ctx, nil)
	return err
}

func TestFlexiblePipelining(t *testing.T) {
	const n = 5
	h := newHarness(t, 1, types.SyncFlexible, local.WithLatency(time.Millisecond))
	h.start(t, writerSteps(n, movingSplit))
	ep := h.world.Reader(0)
	cfg := DefaultConfig()
	cfg.Threading = true
	r := newReader(t, &delayed{Endpoint: ep, delay: 20 * time.Millisecond}, ep, cfg)
	require.NoError(t, r.Select("T", types.TypeUint64, shape, []uint64{2}, []uint64{12}))

	for step := range n {
		status, err := r.BeginStep(context.Background(), types.StepModeRead, -1)
		require.NoError(t, err)
		require.Equal(t, types.StatusReady, status)
		require.Nil(t, r.pending)
		for range 3 {
			dst := make([]uint64, 12)
			require.NoError(t, Get(context.Background(), r, "T", dst))
			require.Equal(t, expected(step, 2, 12), dst)
		}
		require.NoError(t, r.EndStep(context.Background()))
	}
	status, err := r.BeginStep(context.Background(), types.StepModeRead, -1)
	require.NoError(t, err)
	require.Equal(t, types.StatusEndOfStream, status)
}

func TestMultipleReaders(t *testing.T) {
	const n = 4
	for _, mode := range []types.SyncMode{types.SyncFixed, types.SyncFlexible} {
		t.Run(mode.String(), func(t *testing.T) {
			split := movingSplit
			if mode == types.SyncFixed {
				split = fixedSplit
			}
			h := newHarness(t, 2, mode)
			h.start(t, writerSteps(n, split))

			var eg errgroup.Group
			for rank, span := range [][2]uint64{{0, 5}, {5, size - 5}} {
				ep := h.world.Reader(rank)
				cfg := DefaultConfig()
				cfg.SyncMode = mode
				r := newReader(t, ep, ep, cfg)
				require.NoError(t, r.Select("T", types.TypeUint64, shape, []uint64{span[0]}, []uint64{span[1]}))
				eg.Go(func() error {
					for step := 0; ; step++ {
						status, err := r.BeginStep(context.Background(), types.StepModeRead, -1)
						if err != nil {
							return err
						}
						if status == types.StatusEndOfStream {
							if step != n {
								return fmt.Errorf("reader %d: end of stream at step %d", rank, step)
							}
							return nil
						}
						dst := make([]uint64, span[1])
						if err := Get(context.Background(), r, "T", dst); err != nil {
							return err
						}
						if !slices.Equal(expected(step, span[0], span[1]), dst) {
							return fmt.Errorf("reader %d step %d: unexpected data %v", rank, step, dst)
						}
						if err := r.EndStep(context.Background()); err != nil {
							return err
						}
					}
				})
			}
			require.NoError(t, eg.Wait())
			require.NoError(t, h.eg.Wait())
			require.Len(t, h.writers[1].ReadPatterns(), 2)
		})
	}
}

func TestNotReady(t *testing.T) {
	h := newHarness(t, 1, types.SyncFlexible)
	ep := h.world.Reader(0)
	clock := clockwork.NewFakeClock()
	r := newReader(t, ep, ep, DefaultConfig(), WithClock(clock))
	require.NoError(t, r.Select("T", types.TypeUint64, shape, []uint64{0}, []uint64{size}))

	status, err := r.BeginStep(context.Background(), types.StepModeRead, 0)
	require.NoError(t, err)
	require.Equal(t, types.StatusNotReady, status)
	require.Equal(t, int64(-1), r.CurrentStep())
	require.ErrorIs(t, r.Select("T", types.TypeUint64, shape, []uint64{0}, []uint64{1}), types.ErrSequencing)

	rst := make(chan types.StepStatus, 1)
	go func() {
		status, _ := r.BeginStep(context.Background(), types.StepModeRead, time.Second)
		rst <- status
	}()
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.Equal(t, types.StatusNotReady, <-rst)

	// infinite timeout on the first step is bounded by open timeout
	go func() {
		status, _ := r.BeginStep(context.Background(), types.StepModeRead, -1)
		rst <- status
	}()
	clock.BlockUntil(1)
	clock.Advance(DefaultConfig().OpenTimeout)
	require.Equal(t, types.StatusNotReady, <-rst)
	require.Equal(t, int64(-1), r.CurrentStep())

	h.start(t, writerSteps(1, fixedSplit))
	status, err = r.BeginStep(context.Background(), types.StepModeRead, -1)
	require.NoError(t, err)
	require.Equal(t, types.StatusReady, status)
	require.Equal(t, int64(0), r.CurrentStep())
}

func TestProtocolError(t *testing.T) {
	world := local.New(1, 1)
	doc, err := pattern.Encode(doid, 0, []types.Block{{
		Name: "T", Type: types.TypeUint64, Shape: shape, Start: []uint64{0}, Count: []uint64{size}, BufferCount: 8 * size,
	}})
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(doc, &raw))
	delete(raw["blocks"].([]any)[0].(map[string]any), "dtype")
	broken, err := json.Marshal(raw)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		writer := world.Writer(0)
		if _, err := writer.AllGather(ctx, broken); err == nil {
			writer.AllGather(ctx, nil)
		}
	}()

	ep := world.Reader(0)
	r := newReader(t, ep, ep, DefaultConfig())
	require.NoError(t, r.Select("T", types.TypeUint64, shape, []uint64{0}, []uint64{size}))
	status, err := r.BeginStep(context.Background(), types.StepModeRead, -1)
	require.ErrorIs(t, err, types.ErrProtocol)
	require.Equal(t, types.StatusError, status)
	require.Equal(t, int64(-1), r.CurrentStep())

	require.ErrorIs(t, r.GetSync(context.Background(), "T", make([]byte, 8*size)), types.ErrProtocol)
	_, err = r.BeginStep(context.Background(), types.StepModeRead, 0)
	require.ErrorIs(t, err, types.ErrProtocol)
	require.ErrorIs(t, r.EndStep(context.Background()), types.ErrProtocol)
	require.NoError(t, r.Close())
}

func TestEndOfStreamBeforeFirstStep(t *testing.T) {
	h := newHarness(t, 1, types.SyncFlexible)
	h.start(t, [][]writersim.Step{nil, nil})
	ep := h.world.Reader(0)
	r := newReader(t, ep, ep, DefaultConfig())
	status, err := r.BeginStep(context.Background(), types.StepModeRead, -1)
	require.NoError(t, err)
	require.Equal(t, types.StatusEndOfStream, status)
	require.ErrorIs(t, r.PerformGets(context.Background()), types.ErrSequencing)
}

func TestSequencing(t *testing.T) {
	h := newHarness(t, 1, types.SyncFlexible)
	h.start(t, writerSteps(2, fixedSplit))
	ep := h.world.Reader(0)
	r := newReader(t, ep, ep, DefaultConfig())
	ctx := context.Background()

	require.ErrorIs(t, r.EndStep(ctx), types.ErrSequencing)
	require.ErrorIs(t, r.GetSync(ctx, "T", nil), types.ErrSequencing)
	require.ErrorIs(t, r.PerformGets(ctx), types.ErrSequencing)
	_, err := r.BlocksInfo("T", 0)
	require.ErrorIs(t, err, types.ErrSequencing)
	require.Error(t, r.Select("T", types.TypeUint64, shape, []uint64{10}, []uint64{10}))
	require.NoError(t, r.Select("T", types.TypeUint64, shape, []uint64{0}, []uint64{size}))

	status, err := r.BeginStep(ctx, types.StepModeAppend, -1)
	require.ErrorIs(t, err, types.ErrSequencing)
	require.Equal(t, types.StatusError, status)

	status, err = r.BeginStep(ctx, types.StepModeRead, -1)
	require.NoError(t, err)
	require.Equal(t, types.StatusReady, status)
	_, err = r.BeginStep(ctx, types.StepModeRead, -1)
	require.ErrorIs(t, err, types.ErrSequencing)
	require.ErrorIs(t, r.Select("P", types.TypeUint64, shape, []uint64{0}, []uint64{1}), types.ErrSequencing)

	require.Error(t, Get(ctx, r, "T", make([]float32, 2*size)))
	require.ErrorIs(t, Get(ctx, r, "P", make([]uint64, 1)), types.ErrNotFound)

	dst := make([]uint64, size)
	require.NoError(t, GetDeferred(ctx, r, "T", dst))
	require.ErrorIs(t, r.Close(), types.ErrSequencing)
	require.NoError(t, r.EndStep(ctx))
	require.Equal(t, expected(0, 0, size), dst)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err = r.BeginStep(ctx, types.StepModeRead, -1)
	require.ErrorIs(t, err, ErrClosed)
}

func TestBlocksInfo(t *testing.T) {
	h := newHarness(t, 1, types.SyncFlexible)
	h.start(t, writerSteps(3, movingSplit))
	ep := h.world.Reader(0)
	r := newReader(t, ep, ep, DefaultConfig())
	require.NoError(t, r.Select("T", types.TypeUint64, shape, []uint64{0}, []uint64{1}))

	for range 3 {
		status, err := r.BeginStep(context.Background(), types.StepModeRead, -1)
		require.NoError(t, err)
		require.Equal(t, types.StatusReady, status)
		require.NoError(t, r.EndStep(context.Background()))
	}
	for step := range 3 {
		blocks, err := r.BlocksInfo("T", int64(step))
		require.NoError(t, err)
		require.Len(t, blocks, 2)
		require.Equal(t, []uint64{movingSplit(step)}, blocks[1].Block.Start)
	}
	_, err := r.BlocksInfo("T", 3)
	require.ErrorIs(t, err, types.ErrNotFound)
	_, err = r.BlocksInfo("P", 1)
	require.ErrorIs(t, err, types.ErrNotFound)
}

func TestBytesOf(t *testing.T) {
	require.Nil(t, bytesOf([]uint32(nil)))
	require.Len(t, bytesOf(make([]complex128, 3)), 48)
}
