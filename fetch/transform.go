package fetch

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spacemeshos/go-ssc/common/types"
)

// Transform post-processes assembled data of a variable in place, before it is visible
// to the caller.
type Transform interface {
	Apply(block *types.Block, data []byte) error
}

// TransformFunc adapts a function to Transform.
type TransformFunc func(block *types.Block, data []byte) error

func (f TransformFunc) Apply(block *types.Block, data []byte) error {
	return f(block, data)
}

// DeltaTransform reverses differencing applied by writers: every element of the selection, in the
// linear order of the variable, was replaced by its difference with the preceding element.
type DeltaTransform struct{}

func (DeltaTransform) Apply(block *types.Block, data []byte) error {
	order := binary.NativeEndian
	switch block.Type {
	case types.TypeInt8, types.TypeUint8, types.TypeChar:
		for i := 1; i < len(data); i++ {
			data[i] += data[i-1]
		}
	case types.TypeInt16, types.TypeUint16:
		prefixSum(data, 2, order.Uint16, order.PutUint16)
	case types.TypeInt32, types.TypeUint32:
		prefixSum(data, 4, order.Uint32, order.PutUint32)
	case types.TypeInt64, types.TypeUint64:
		prefixSum(data, 8, order.Uint64, order.PutUint64)
	case types.TypeFloat32:
		prefixSum(data, 4,
			func(b []byte) float32 { return math.Float32frombits(order.Uint32(b)) },
			func(b []byte, v float32) { order.PutUint32(b, math.Float32bits(v)) },
		)
	case types.TypeFloat64:
		prefixSum(data, 8,
			func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) },
			func(b []byte, v float64) { order.PutUint64(b, math.Float64bits(v)) },
		)
	default:
		return fmt.Errorf("delta transform: unsupported dtype %s of %s", block.Type, block.Name)
	}
	return nil
}

// prefixSum works for signed values too, two's complement addition wraps the same way.
func prefixSum[T uint16 | uint32 | uint64 | float32 | float64](
	data []byte,
	size int,
	get func([]byte) T,
	put func([]byte, T),
) {
	var acc T
	for off := 0; off+size <= len(data); off += size {
		acc += get(data[off:])
		put(data[off:], acc)
	}
}
