package fetch

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/fabric/local"
	"github.com/spacemeshos/go-ssc/fabric/mocks"
	"github.com/spacemeshos/go-ssc/log/logtest"
	"github.com/spacemeshos/go-ssc/overlap"
)

var shape = []uint64{4, 6}

func block(name string, start, count []uint64) types.Block {
	b := types.Block{Name: name, Type: types.TypeUint32, Shape: shape, Start: start, Count: count}
	b.BufferCount = b.Bytes()
	return b
}

// values encodes the global row major index of every element in the block.
func values(b types.Block) []byte {
	var out []byte
	for i := b.Start[0]; i < b.Start[0]+b.Count[0]; i++ {
		for j := b.Start[1]; j < b.Start[1]+b.Count[1]; j++ {
			out = binary.NativeEndian.AppendUint32(out, uint32(i*shape[1]+j))
		}
	}
	return out
}

type fixture struct {
	global types.GlobalPattern
	world  *local.World
}

// newFixture splits T between two writers by rows and exposes P only on the first writer.
func newFixture(t *testing.T, opts ...local.Opt) *fixture {
	top := block("T", []uint64{0, 0}, []uint64{2, 6})
	bottom := block("T", []uint64{2, 0}, []uint64{2, 6})
	p := block("P", []uint64{0, 0}, []uint64{1, 6})
	p.BufferStart = top.BufferCount
	f := &fixture{
		global: types.GlobalPattern{{top, p}, {bottom}},
		world:  local.New(2, 1, append([]local.Opt{local.WithLogger(logtest.New(t))}, opts...)...),
	}
	f.world.Writer(0).Expose(append(values(top), values(p)...))
	f.world.Writer(1).Expose(values(bottom))
	return f
}

func (f *fixture) begin(t *testing.T, e *Engine, read ...types.Block) {
	t.Helper()
	positions, err := overlap.CalculatePosition(f.global, read)
	require.NoError(t, err)
	require.NoError(t, e.Begin(0, f.global, positions))
}

func TestFetchSync(t *testing.T) {
	for _, mode := range []Mode{OneSided, TwoSided} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t)
			cfg := DefaultConfig()
			cfg.Mode = mode
			e := New(f.world.Reader(0), WithLogger(logtest.New(t)), WithConfig(cfg))

			read := block("T", []uint64{1, 2}, []uint64{3, 3})
			f.begin(t, e, read)
			dst := make([]byte, read.Bytes())
			require.NoError(t, e.FetchSync(context.Background(), "T", dst))
			require.Equal(t, values(read), dst)
			require.Zero(t, e.Pending())
			require.NoError(t, e.End(context.Background()))
		})
	}
}

func TestFetchDeferred(t *testing.T) {
	f := newFixture(t)
	e := New(f.world.Reader(0))
	t1 := block("T", []uint64{0, 0}, []uint64{4, 6})
	p := block("P", []uint64{0, 1}, []uint64{1, 4})
	f.begin(t, e, t1, p)

	first := make([]byte, t1.Bytes())
	second := make([]byte, t1.Bytes())
	pdst := make([]byte, p.Bytes())
	require.NoError(t, e.FetchDeferred(context.Background(), "T", first))
	require.NoError(t, e.FetchDeferred(context.Background(), "P", pdst))
	require.NoError(t, e.FetchDeferred(context.Background(), "T", second))
	require.Equal(t, 2, e.Pending())

	require.NoError(t, e.PerformGets(context.Background()))
	require.Zero(t, e.Pending())
	require.Equal(t, values(t1), first)
	require.Equal(t, values(t1), second)
	require.Equal(t, values(p), pdst)
}

func TestEndDrainsPending(t *testing.T) {
	f := newFixture(t)
	e := New(f.world.Reader(0))
	read := block("T", []uint64{2, 0}, []uint64{1, 6})
	f.begin(t, e, read)

	dst := make([]byte, read.Bytes())
	require.NoError(t, e.FetchDeferred(context.Background(), "T", dst))
	require.ErrorIs(t, e.Close(), types.ErrSequencing)
	require.NoError(t, e.End(context.Background()))
	require.Equal(t, values(read), dst)

	err := e.FetchSync(context.Background(), "T", dst)
	require.ErrorIs(t, err, types.ErrSequencing)
	require.NoError(t, e.Close())
}

func TestEndIgnoresCancellation(t *testing.T) {
	clock := clockwork.NewFakeClock()
	f := newFixture(t, local.WithClock(clock), local.WithLatency(time.Second))
	e := New(f.world.Reader(0))
	read := block("T", []uint64{1, 0}, []uint64{2, 6})
	f.begin(t, e, read)

	dst := make([]byte, read.Bytes())
	require.NoError(t, e.FetchDeferred(context.Background(), "T", dst))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ended := make(chan error, 1)
	go func() { ended <- e.End(ctx) }()
	clock.BlockUntil(2)
	select {
	case err := <-ended:
		require.FailNow(t, "end returned with reads in flight", "error: %v", err)
	default:
	}
	clock.Advance(time.Second)
	require.NoError(t, <-ended)
	require.Equal(t, values(read), dst)
	require.Equal(t, int(read.Bytes()), e.Buffer().Len())
	require.NoError(t, e.Close())
}

func TestFetchErrors(t *testing.T) {
	f := newFixture(t)
	e := New(f.world.Reader(0))
	dst := make([]byte, 1024)

	require.ErrorIs(t, e.FetchSync(context.Background(), "T", dst), types.ErrSequencing)

	wide := block("P", []uint64{0, 0}, []uint64{2, 6})
	f.begin(t, e, block("T", []uint64{0, 0}, []uint64{1, 1}), wide)
	require.ErrorIs(t, e.FetchSync(context.Background(), "Q", dst), types.ErrNotFound)
	require.ErrorIs(t, e.FetchDeferred(context.Background(), "P", dst), types.ErrNotFound)
	require.ErrorContains(t, e.FetchSync(context.Background(), "T", dst[:2]), "destination")
	require.Zero(t, e.Pending())

	f.begin(t, e, block("T", []uint64{0, 0}, []uint64{1, 1}))
	err := e.FetchSync(context.Background(), "P", dst)
	require.ErrorIs(t, err, types.ErrNotFound)
	require.ErrorContains(t, err, "not selected")
}

func TestWindowFailure(t *testing.T) {
	f := newFixture(t)
	window := mocks.NewMockWindow(gomock.NewController(t))
	failure := errors.New("window failed")
	window.EXPECT().Get(gomock.Any(), 0, uint64(0), gomock.Any()).Return(nil, failure)

	e := New(window)
	f.begin(t, e, block("T", []uint64{0, 0}, []uint64{1, 6}))
	require.ErrorIs(t, e.FetchSync(context.Background(), "T", make([]byte, 24)), failure)
	require.Zero(t, e.Pending())
}

func TestDeltaTransform(t *testing.T) {
	world := local.New(1, 1)
	b := types.Block{Name: "D", Type: types.TypeInt32, Shape: []uint64{5}, Start: []uint64{0}, Count: []uint64{5}}
	b.BufferCount = b.Bytes()
	var deltas []byte
	for _, d := range []int32{10, -3, 5, 0, -20} {
		deltas = binary.NativeEndian.AppendUint32(deltas, uint32(d))
	}
	world.Writer(0).Expose(deltas)

	e := New(world.Reader(0))
	e.RegisterTransform("D", DeltaTransform{})
	global := types.GlobalPattern{{b}}
	positions, err := overlap.CalculatePosition(global, []types.Block{b})
	require.NoError(t, err)
	require.NoError(t, e.Begin(0, global, positions))

	dst := make([]byte, b.Bytes())
	require.NoError(t, e.FetchSync(context.Background(), "D", dst))
	var got []int32
	for off := 0; off < len(dst); off += 4 {
		got = append(got, int32(binary.NativeEndian.Uint32(dst[off:])))
	}
	require.Equal(t, []int32{10, 7, 12, 12, -8}, got)

	require.Error(t, DeltaTransform{}.Apply(&types.Block{Name: "c", Type: types.TypeComplex128}, nil))
}

func TestTransformFunc(t *testing.T) {
	f := newFixture(t)
	e := New(f.world.Reader(0))
	failure := errors.New("bad data")
	e.RegisterTransform("T", TransformFunc(func(*types.Block, []byte) error { return failure }))
	f.begin(t, e, block("T", []uint64{0, 0}, []uint64{1, 6}))
	require.ErrorIs(t, e.FetchSync(context.Background(), "T", make([]byte, 24)), failure)
}

func TestLogTracer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newFixture(t)
	cfg := DefaultConfig()
	cfg.Trace = true
	e := New(f.world.Reader(0), WithLogger(zap.New(core)), WithConfig(cfg))
	read := block("P", []uint64{0, 0}, []uint64{1, 6})
	f.begin(t, e, read)
	require.NoError(t, e.FetchSync(context.Background(), "P", make([]byte, read.Bytes())))

	traced := logs.Filter(func(entry observer.LoggedEntry) bool { return entry.LoggerName == "trace" })
	got := traced.FilterMessage("got").All()
	require.Len(t, got, 1)
	require.Equal(t, "P", got[0].ContextMap()["var"])
	require.EqualValues(t, 24, got[0].ContextMap()["bytes"])
	require.Len(t, traced.FilterMessage("get").All(), 1)
}

func TestBuffer(t *testing.T) {
	var b Buffer
	b.Reserve(64)
	require.Equal(t, 64, b.Len())
	b.Reserve(16)
	require.Equal(t, 16, b.Len())
	require.Equal(t, 64, b.Cap())
	require.Len(t, b.Region(8, 8), 8)
}

func TestBlocksInfo(t *testing.T) {
	f := newFixture(t)
	blocks, err := BlocksInfo(f.global, "T")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, 1, blocks[1].Rank)
	require.Equal(t, []uint64{2, 0}, blocks[1].Block.Start)

	_, err = BlocksInfo(f.global, "Q")
	require.ErrorIs(t, err, types.ErrNotFound)
}
