// Package types defines the data model shared by the stream reader components.
package types

import (
	"errors"
	"fmt"
	"math/bits"

	"go.uber.org/zap/zapcore"
)

// Order is the linearization rule for multidimensional blocks.
type Order uint8

const (
	RowMajor Order = iota
	ColumnMajor
)

func (o Order) String() string {
	if o == ColumnMajor {
		return "column"
	}
	return "row"
}

// MarshalText implements encoding.TextMarshaler.
func (o Order) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Order) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "row":
		*o = RowMajor
	case "column":
		*o = ColumnMajor
	default:
		return fmt.Errorf("unknown order %q", text)
	}
	return nil
}

// Block is a contiguously described region of one variable.
//
// For a writer block BufferStart and BufferCount locate the block bytes in the writer window.
// For a reader block they locate the block in the reader layout.
type Block struct {
	Name        string
	Type        DataType
	Order       Order
	Shape       []uint64
	Start       []uint64
	Count       []uint64
	BufferStart uint64
	BufferCount uint64
}

// Dims returns number of dimensions.
func (b *Block) Dims() int {
	return len(b.Count)
}

// Elements returns number of elements in the block. The result is exact only for blocks that pass Check.
func (b *Block) Elements() uint64 {
	n := uint64(1)
	for _, c := range b.Count {
		n *= c
	}
	return n
}

// Bytes returns the size of the block payload.
func (b *Block) Bytes() uint64 {
	return b.Elements() * b.Type.Size()
}

// Check verifies that the block geometry is consistent.
func (b *Block) Check() error {
	if b.Name == "" {
		return errors.New("block without variable name")
	}
	if !b.Type.Valid() {
		return fmt.Errorf("variable %s: invalid dtype %s", b.Name, b.Type)
	}
	if len(b.Shape) != len(b.Start) || len(b.Shape) != len(b.Count) {
		return fmt.Errorf("variable %s: shape/start/count dims mismatch (%d/%d/%d)",
			b.Name, len(b.Shape), len(b.Start), len(b.Count))
	}
	size := b.Type.Size()
	for i := range b.Shape {
		end, carry := bits.Add64(b.Start[i], b.Count[i], 0)
		if carry != 0 || end > b.Shape[i] {
			return fmt.Errorf("variable %s: dim %d: start %d + count %d exceeds shape %d",
				b.Name, i, b.Start[i], b.Count[i], b.Shape[i])
		}
		hi, lo := bits.Mul64(size, b.Count[i])
		if hi != 0 {
			return fmt.Errorf("variable %s: block size overflows", b.Name)
		}
		size = lo
	}
	return nil
}

// Validate is Check for blocks received from peers, failures are protocol errors.
func (b *Block) Validate() error {
	if err := b.Check(); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return nil
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() Block {
	c := *b
	c.Shape = append([]uint64(nil), b.Shape...)
	c.Start = append([]uint64(nil), b.Start...)
	c.Count = append([]uint64(nil), b.Count...)
	return c
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (b *Block) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("var", b.Name)
	encoder.AddString("dtype", b.Type.String())
	encoder.AddString("start", fmt.Sprint(b.Start))
	encoder.AddString("count", fmt.Sprint(b.Count))
	encoder.AddUint64("buffer start", b.BufferStart)
	encoder.AddUint64("buffer count", b.BufferCount)
	return nil
}
