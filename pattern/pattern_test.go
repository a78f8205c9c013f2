package pattern

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/go-ssc/common/types"
)

const doid = "stream-1"

func block(name string, dt types.DataType, shape, start, count []uint64, offset uint64) types.Block {
	b := types.Block{Name: name, Type: dt, Shape: shape, Start: start, Count: count, BufferStart: offset}
	b.BufferCount = b.Bytes()
	return b
}

func testBlocks() []types.Block {
	return []types.Block{
		block("T", types.TypeFloat64, []uint64{4, 4}, []uint64{0, 0}, []uint64{4, 4}, 0),
		block("P", types.TypeInt32, []uint64{10}, []uint64{5}, []uint64{5}, 128),
		block("n", types.TypeUint64, nil, nil, nil, 148),
	}
}

func TestRoundTrip(t *testing.T) {
	blocks := testBlocks()
	blocks[1].Order = types.ColumnMajor
	data, err := Encode(doid, 3, blocks)
	require.NoError(t, err)

	doc, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, doid, doc.Doid)
	require.Equal(t, 3, doc.Rank)
	// scalar dims are decoded as empty slices
	blocks[2].Shape, blocks[2].Start, blocks[2].Count = []uint64{}, []uint64{}, []uint64{}
	require.Empty(t, Diff(types.GlobalPattern{blocks}, types.GlobalPattern{doc.Blocks}))
}

func TestEmptyPattern(t *testing.T) {
	data, err := Encode(doid, 0, nil)
	require.NoError(t, err)
	blocks, err := DecodeRank(doid, 0, data)
	require.NoError(t, err)
	require.Empty(t, blocks)
}

func mutate(t *testing.T, fn func(doc map[string]any)) []byte {
	t.Helper()
	data, err := Encode(doid, 0, testBlocks())
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	fn(doc)
	data, err = json.Marshal(doc)
	require.NoError(t, err)
	return data
}

func firstBlock(doc map[string]any) map[string]any {
	return doc["blocks"].([]any)[0].(map[string]any)
}

func TestDecodeFailsClosed(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		mutate func(map[string]any)
	}{
		{"missing doid", func(doc map[string]any) { delete(doc, "doid") }},
		{"missing blocks", func(doc map[string]any) { delete(doc, "blocks") }},
		{"missing dtype", func(doc map[string]any) { delete(firstBlock(doc), "dtype") }},
		{"missing var", func(doc map[string]any) { delete(firstBlock(doc), "var") }},
		{"missing shape", func(doc map[string]any) { delete(firstBlock(doc), "shape") }},
		{"missing buffer count", func(doc map[string]any) { delete(firstBlock(doc), "bufferCount") }},
		{"mistyped start", func(doc map[string]any) { firstBlock(doc)["start"] = "0,0" }},
		{"negative count", func(doc map[string]any) { firstBlock(doc)["count"] = []any{-1, 4} }},
		{"unknown dtype", func(doc map[string]any) { firstBlock(doc)["dtype"] = "string" }},
		{"wrong buffer count", func(doc map[string]any) { firstBlock(doc)["bufferCount"] = 8 }},
		{"count exceeds shape", func(doc map[string]any) { firstBlock(doc)["count"] = []any{5, 4} }},
		{"start wraps around", func(doc map[string]any) {
			b := firstBlock(doc)
			b["start"] = []any{uint64(math.MaxUint64), 0}
			b["count"] = []any{2, 4}
			b["bufferCount"] = 64
		}},
		{"block size overflows", func(doc map[string]any) {
			b := firstBlock(doc)
			b["shape"] = []any{uint64(1) << 32, uint64(1) << 32}
			b["count"] = []any{uint64(1) << 32, uint64(1) << 32}
			b["bufferCount"] = 0
		}},
		{"buffer end overflows", func(doc map[string]any) {
			firstBlock(doc)["bufferStart"] = uint64(math.MaxUint64 - 8)
		}},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Decode(mutate(t, tc.mutate))
			require.ErrorIs(t, err, types.ErrProtocol)
		})
	}
	t.Run("not json", func(t *testing.T) {
		_, err := Decode([]byte("{"))
		require.ErrorIs(t, err, types.ErrProtocol)
	})
}

func TestDecodeRank(t *testing.T) {
	data, err := Encode(doid, 1, testBlocks())
	require.NoError(t, err)

	_, err = DecodeRank("other", 1, data)
	require.ErrorIs(t, err, types.ErrProtocol)
	_, err = DecodeRank(doid, 2, data)
	require.ErrorIs(t, err, types.ErrProtocol)
	_, err = DecodeRank(doid, 1, nil)
	require.ErrorIs(t, err, types.ErrProtocol)
	blocks, err := DecodeRank(doid, 1, data)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
}

func TestDecodeGlobal(t *testing.T) {
	first, err := Encode(doid, 0, testBlocks()[:1])
	require.NoError(t, err)
	second, err := Encode(doid, 1, testBlocks()[1:])
	require.NoError(t, err)

	global, err := DecodeGlobal(doid, [][]byte{first, second})
	require.NoError(t, err)
	require.Len(t, global, 2)
	require.Len(t, global[0], 1)
	require.Len(t, global[1], 2)

	_, err = DecodeGlobal(doid, [][]byte{first, nil})
	require.ErrorIs(t, err, types.ErrProtocol)
}

func TestFingerprint(t *testing.T) {
	global := types.GlobalPattern{testBlocks()[:2], testBlocks()[2:]}
	a, err := Fingerprint(doid, global)
	require.NoError(t, err)
	b, err := Fingerprint(doid, types.GlobalPattern{testBlocks()[:2], testBlocks()[2:]})
	require.NoError(t, err)
	require.Equal(t, a, b)

	// same blocks, different distribution between writers
	c, err := Fingerprint(doid, types.GlobalPattern{testBlocks()[:1], testBlocks()[1:]})
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	moved := types.GlobalPattern{testBlocks()[:2], testBlocks()[2:]}
	moved[0][1].Start[0] = 4
	d, err := Fingerprint(doid, moved)
	require.NoError(t, err)
	require.NotEqual(t, a, d)
	require.NotEmpty(t, Diff(global, moved))
}
