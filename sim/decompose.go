package sim

import (
	"encoding/binary"
	"math"
	"math/rand"
	"slices"

	"github.com/seehuhn/mt19937"

	"github.com/spacemeshos/go-ssc/common/types"
	"github.com/spacemeshos/go-ssc/writersim"
)

const (
	fieldVar = "field"
	timeVar  = "time"
)

// value of the field element at linear index in the global array.
func value(step int, linear uint64) int64 {
	return int64(step)<<32 | int64(linear)
}

// linearize walks elements of the box in row major order and reports their linear index
// in the array of the given shape.
func linearize(shape, start, count []uint64, visit func(linear uint64)) {
	n := uint64(1)
	for _, c := range count {
		n *= c
	}
	idx := make([]uint64, len(count))
	for local := range n {
		rest := local
		for d := len(count) - 1; d >= 0; d-- {
			idx[d] = rest % count[d]
			rest /= count[d]
		}
		var linear uint64
		for d := range shape {
			linear = linear*shape[d] + start[d] + idx[d]
		}
		visit(linear)
	}
}

// cuts splits [0, size) into parts ranges with random boundaries. Ranges may be empty.
func cuts(rng *rand.Rand, size uint64, parts int) [][2]uint64 {
	points := make([]uint64, 0, parts+1)
	points = append(points, 0)
	for range parts - 1 {
		points = append(points, uint64(rng.Int63n(int64(size)+1)))
	}
	points = append(points, size)
	slices.Sort(points)
	rst := make([][2]uint64, parts)
	for i := range rst {
		rst[i] = [2]uint64{points[i], points[i+1]}
	}
	return rst
}

// plan prepares steps of every writer. In fixed mode the decomposition is drawn once along
// the slowest dimension, in flexible mode every step draws a new one along a rotating axis.
func plan(seed uint64, mode types.SyncMode, shape []uint64, writers, steps int) [][]writersim.Step {
	mt := mt19937.New()
	mt.Seed(int64(seed))
	rng := rand.New(mt)

	rst := make([][]writersim.Step, writers)
	var spans [][2]uint64
	for step := range steps {
		axis := 0
		if mode == types.SyncFlexible {
			axis = step % len(shape)
		}
		if spans == nil || mode == types.SyncFlexible {
			spans = cuts(rng, shape[axis], writers)
		}
		for rank, span := range spans {
			var (
				blocks []types.Block
				data   []byte
			)
			if span[1] > span[0] {
				start := make([]uint64, len(shape))
				count := slices.Clone(shape)
				start[axis], count[axis] = span[0], span[1]-span[0]
				blocks = append(blocks, types.Block{
					Name:  fieldVar,
					Type:  types.TypeInt64,
					Shape: slices.Clone(shape),
					Start: start,
					Count: count,
				})
				linearize(shape, start, count, func(linear uint64) {
					data = binary.NativeEndian.AppendUint64(data, uint64(value(step, linear)))
				})
			}
			if rank == 0 {
				blocks = append(blocks, types.Block{Name: timeVar, Type: types.TypeFloat64})
				data = binary.NativeEndian.AppendUint64(data, math.Float64bits(float64(step)))
			}
			writersim.Layout(blocks)
			rst[rank] = append(rst[rank], writersim.Step{Blocks: blocks, Data: data})
		}
	}
	return rst
}

// selection of the reader: an even slab of the slowest dimension.
func selection(shape []uint64, readers, rank int) (start, count []uint64) {
	start = make([]uint64, len(shape))
	count = slices.Clone(shape)
	per := shape[0] / uint64(readers)
	start[0] = per * uint64(rank)
	count[0] = per
	if rank == readers-1 {
		count[0] = shape[0] - start[0]
	}
	return start, count
}
