package overlap

import (
	"encoding/binary"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-ssc/common/types"
)

func block2d(name string, shape, start, count []uint64, bufferStart uint64) types.Block {
	b := types.Block{
		Name:        name,
		Type:        types.TypeUint64,
		Shape:       shape,
		Start:       start,
		Count:       count,
		BufferStart: bufferStart,
	}
	b.BufferCount = b.Bytes()
	return b
}

func TestSingleWriterInteriorRead(t *testing.T) {
	shape := []uint64{4, 4}
	global := types.GlobalPattern{
		{block2d("T", shape, []uint64{0, 0}, []uint64{4, 4}, 0)},
	}
	read := []types.Block{block2d("T", shape, []uint64{1, 1}, []uint64{2, 2}, 0)}

	pm, err := CalculatePosition(global, read)
	require.NoError(t, err)
	require.Equal(t, []int{0}, pm.SortedRanks())
	require.Len(t, pm.Ranks[0], 1)
	pos := pm.Ranks[0][0]
	require.Equal(t, uint64(4*8), pos.Length)
	require.Equal(t, uint64(0), pos.DstOffset)
	require.Equal(t, uint64(5*8), pos.SrcOffset)
	require.Equal(t, []types.Run{
		{Src: 5 * 8, Dst: 0, Len: 16},
		{Src: 9 * 8, Dst: 16, Len: 16},
	}, pos.Runs)
	require.Equal(t, uint64(32), pm.Total)
	require.True(t, pm.Slots[0].Complete())
}

func TestTwoWritersSplitAtMidpoint(t *testing.T) {
	shape := []uint64{4, 4}
	global := types.GlobalPattern{
		{block2d("T", shape, []uint64{0, 0}, []uint64{2, 4}, 0)},
		{block2d("T", shape, []uint64{2, 0}, []uint64{2, 4}, 0)},
	}
	read := []types.Block{block2d("T", shape, []uint64{0, 0}, []uint64{4, 4}, 0)}

	pm, err := CalculatePosition(global, read)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1}, pm.SortedRanks())
	for rank, dst := range []uint64{0, 64} {
		require.Len(t, pm.Ranks[rank], 1)
		pos := pm.Ranks[rank][0]
		require.Equal(t, uint64(64), pos.Length)
		require.Equal(t, dst, pos.DstOffset)
		require.Equal(t, []types.Run{{Src: 0, Dst: dst, Len: 64}}, pos.Runs)
	}
	require.True(t, pm.Slots[0].Complete())
}

func TestColumnMajor(t *testing.T) {
	shape := []uint64{4, 4}
	wb := block2d("T", shape, []uint64{0, 0}, []uint64{4, 4}, 8)
	wb.Order = types.ColumnMajor
	global := types.GlobalPattern{{wb}}
	read := []types.Block{block2d("T", shape, []uint64{0, 1}, []uint64{4, 1}, 0)}

	pm, err := CalculatePosition(global, read)
	require.NoError(t, err)
	require.Equal(t, types.ColumnMajor, pm.Slots[0].Block.Order)
	// one full column is contiguous in column major order
	require.Equal(t, []types.Run{{Src: 8 + 4*8, Dst: 0, Len: 32}}, pm.Ranks[0][0].Runs)
}

func TestScalar(t *testing.T) {
	scalar := types.Block{Name: "step", Type: types.TypeInt32, BufferStart: 12, BufferCount: 4}
	read := []types.Block{{Name: "step", Type: types.TypeInt32, BufferCount: 4}}

	pm, err := CalculatePosition(types.GlobalPattern{{scalar}, {}}, read)
	require.NoError(t, err)
	require.Equal(t, []types.Run{{Src: 12, Dst: 0, Len: 4}}, pm.Ranks[0][0].Runs)

	_, err = CalculatePosition(types.GlobalPattern{{scalar}, {scalar}}, read)
	require.ErrorIs(t, err, types.ErrProtocol)
}

func TestConflicts(t *testing.T) {
	shape := []uint64{4, 4}
	read := []types.Block{block2d("T", shape, []uint64{0, 0}, []uint64{4, 4}, 0)}
	for _, tc := range []struct {
		desc   string
		global types.GlobalPattern
	}{
		{
			desc: "overlapping writers",
			global: types.GlobalPattern{
				{block2d("T", shape, []uint64{0, 0}, []uint64{3, 4}, 0)},
				{block2d("T", shape, []uint64{2, 0}, []uint64{2, 4}, 0)},
			},
		},
		{
			desc: "type mismatch",
			global: types.GlobalPattern{{{
				Name: "T", Type: types.TypeFloat32, Shape: shape,
				Start: []uint64{0, 0}, Count: []uint64{4, 4}, BufferCount: 64,
			}}},
		},
		{
			desc: "shape mismatch",
			global: types.GlobalPattern{
				{block2d("T", []uint64{8, 4}, []uint64{0, 0}, []uint64{4, 4}, 0)},
			},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := CalculatePosition(tc.global, read)
			require.ErrorIs(t, err, types.ErrProtocol)
		})
	}
}

func TestUnknownVariable(t *testing.T) {
	shape := []uint64{4}
	global := types.GlobalPattern{{block2d("T", shape, []uint64{0}, []uint64{4}, 0)}}
	read := []types.Block{
		block2d("T", shape, []uint64{0}, []uint64{4}, 0),
		block2d("P", shape, []uint64{0}, []uint64{4}, 0),
	}
	pm, err := CalculatePosition(global, read)
	require.NoError(t, err)
	require.True(t, pm.Slots[0].Complete())
	require.False(t, pm.Slots[1].Complete())
	require.Equal(t, uint64(32), pm.Slots[1].Offset)
	require.Equal(t, uint64(64), pm.Total)
	require.Equal(t, 1, pm.Slot("P"))
	require.Equal(t, -1, pm.Slot("Q"))
}

// decompose splits shape into tiles along every dimension and assigns them to writers round robin.
func decompose(rng *rand.Rand, name string, shape []uint64, writers int) (types.GlobalPattern, [][]byte) {
	cuts := make([][]uint64, len(shape))
	for d, n := range shape {
		cuts[d] = []uint64{0}
		for i := uint64(1); i < n; i++ {
			if rng.IntN(3) == 0 {
				cuts[d] = append(cuts[d], i)
			}
		}
		cuts[d] = append(cuts[d], n)
	}
	global := make(types.GlobalPattern, writers)
	windows := make([][]byte, writers)
	idx := make([]int, len(shape))
	for rank := 0; ; rank = (rank + 1) % writers {
		start := make([]uint64, len(shape))
		count := make([]uint64, len(shape))
		for d := range shape {
			start[d] = cuts[d][idx[d]]
			count[d] = cuts[d][idx[d]+1] - start[d]
		}
		b := block2d(name, shape, start, count, uint64(len(windows[rank])))
		global[rank] = append(global[rank], b)
		windows[rank] = append(windows[rank], fill(shape, b)...)

		d := len(shape) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(cuts[d])-1 {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return global, windows
		}
	}
}

// fill encodes global linear index of every element in the block, row major.
func fill(shape []uint64, b types.Block) []byte {
	var out []byte
	idx := make([]uint64, len(shape))
	for {
		var linear uint64
		for d := range shape {
			linear = linear*shape[d] + b.Start[d] + idx[d]
		}
		out = binary.LittleEndian.AppendUint64(out, linear)
		d := len(shape) - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < b.Count[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return out
		}
	}
}

func TestReassembly(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for range 50 {
		dims := 1 + rng.IntN(3)
		shape := make([]uint64, dims)
		for d := range shape {
			shape[d] = 1 + uint64(rng.IntN(6))
		}
		global, windows := decompose(rng, "T", shape, 1+rng.IntN(4))

		start := make([]uint64, dims)
		count := make([]uint64, dims)
		for d := range shape {
			start[d] = uint64(rng.IntN(int(shape[d])))
			count[d] = 1 + uint64(rng.IntN(int(shape[d]-start[d])))
		}
		read := []types.Block{block2d("T", shape, start, count, 0)}

		pm, err := CalculatePosition(global, read)
		require.NoError(t, err)
		again, err := CalculatePosition(global, read)
		require.NoError(t, err)
		require.Equal(t, pm, again)

		slot := &pm.Slots[0]
		require.True(t, slot.Complete())

		recv := make([]byte, pm.Total)
		covered := make([]bool, pm.Total)
		for _, rank := range pm.SortedRanks() {
			for _, pos := range pm.Ranks[rank] {
				var n uint64
				for _, run := range pos.Runs {
					copy(recv[run.Dst:run.Dst+run.Len], windows[rank][run.Src:run.Src+run.Len])
					for i := run.Dst; i < run.Dst+run.Len; i++ {
						require.False(t, covered[i], "byte %d fetched twice", i)
						covered[i] = true
					}
					n += run.Len
				}
				require.Equal(t, pos.Length, n)
			}
		}
		require.NotContains(t, covered, false)

		dst := make([]byte, slot.Size)
		for _, pos := range pm.ForSlot(0) {
			require.NoError(t, Scatter(slot, &pos, recv[pos.DstOffset:pos.DstOffset+pos.Length], dst))
		}
		require.Equal(t, fill(shape, read[0]), dst)
	}
}
