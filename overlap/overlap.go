// Package overlap computes which bytes a reader has to pull from every writer.
//
// The receive buffer of a reader is a concatenation of slots, one per block of the read pattern,
// in read pattern order. Inside a slot every intersection with a writer block is packed back
// to back, writers in rank order and blocks in the order they were published. Data inside an
// intersection keeps the order of the variable (row major unless the writers declared column major).
package overlap

import (
	"fmt"
	"slices"

	"github.com/spacemeshos/go-ssc/common/types"
)

// box is an index range in global coordinates, already permuted to row major.
type box struct {
	start []uint64
	count []uint64
}

func (b box) volume() uint64 {
	n := uint64(1)
	for _, c := range b.count {
		n *= c
	}
	return n
}

// rowMajor returns start and count permuted so that the last dimension is the fastest.
func rowMajor(order types.Order, start, count []uint64) box {
	if order != types.ColumnMajor {
		return box{start: start, count: count}
	}
	s := slices.Clone(start)
	c := slices.Clone(count)
	slices.Reverse(s)
	slices.Reverse(c)
	return box{start: s, count: c}
}

// fromRowMajor reverts rowMajor.
func fromRowMajor(order types.Order, b box) (start, count []uint64) {
	if order != types.ColumnMajor {
		return b.start, b.count
	}
	start = slices.Clone(b.start)
	count = slices.Clone(b.count)
	slices.Reverse(start)
	slices.Reverse(count)
	return start, count
}

// intersect returns false if boxes don't overlap or the overlap is empty.
func intersect(a, b box) (box, bool) {
	dims := len(a.start)
	rst := box{start: make([]uint64, dims), count: make([]uint64, dims)}
	for d := 0; d < dims; d++ {
		lo := max(a.start[d], b.start[d])
		hi := min(a.start[d]+a.count[d], b.start[d]+b.count[d])
		if hi <= lo {
			return box{}, false
		}
		rst.start[d] = lo
		rst.count[d] = hi - lo
	}
	return rst, true
}

// CalculatePosition computes the position map of a reader. The result is fully determined by its
// inputs. Writer blocks that claim overlapping regions of a requested variable, or that disagree with
// the reader about the variable type or shape, are reported as types.ErrProtocol.
func CalculatePosition(global types.GlobalPattern, read []types.Block) (*types.PositionMap, error) {
	pm := &types.PositionMap{
		Ranks: make(map[int][]types.Position),
		Slots: make([]types.Slot, 0, len(read)),
	}
	var offset uint64
	for i := range read {
		slot, err := calculateSlot(pm, global, i, &read[i], offset)
		if err != nil {
			return nil, err
		}
		pm.Slots = append(pm.Slots, slot)
		offset += slot.Size
	}
	pm.Total = offset
	for rank := range pm.Ranks {
		slices.SortStableFunc(pm.Ranks[rank], func(a, b types.Position) int {
			switch {
			case a.DstOffset < b.DstOffset:
				return -1
			case a.DstOffset > b.DstOffset:
				return 1
			}
			return 0
		})
	}
	return pm, nil
}

func calculateSlot(
	pm *types.PositionMap,
	global types.GlobalPattern,
	idx int,
	rb *types.Block,
	offset uint64,
) (types.Slot, error) {
	if err := rb.Validate(); err != nil {
		return types.Slot{}, err
	}
	slot := types.Slot{Block: rb.Clone(), Offset: offset, Size: rb.Bytes()}
	candidates := global.Lookup(rb.Name)
	if len(candidates) > 0 {
		slot.Block.Order = candidates[0].Block.Order
	}
	var (
		cursor  = offset
		claimed []box
		elem    = rb.Type.Size()
		request = rowMajor(slot.Block.Order, rb.Start, rb.Count)
	)
	for _, cand := range candidates {
		wb := &cand.Block
		if !wb.Type.Compatible(rb.Type) {
			return types.Slot{}, fmt.Errorf("%w: variable %s: writer %d exposes %s, reader expects %s",
				types.ErrProtocol, rb.Name, cand.Rank, wb.Type, rb.Type)
		}
		if !slices.Equal(wb.Shape, rb.Shape) {
			return types.Slot{}, fmt.Errorf("%w: variable %s: writer %d shape %v, reader shape %v",
				types.ErrProtocol, rb.Name, cand.Rank, wb.Shape, rb.Shape)
		}
		if wb.Order != slot.Block.Order {
			return types.Slot{}, fmt.Errorf("%w: variable %s: writers disagree on order",
				types.ErrProtocol, rb.Name)
		}
		section, ok := intersect(request, rowMajor(wb.Order, wb.Start, wb.Count))
		if !ok {
			continue
		}
		for _, prev := range claimed {
			if _, conflict := intersect(prev, section); conflict {
				return types.Slot{}, fmt.Errorf("%w: variable %s: writer %d claims a region exposed by another writer",
					types.ErrProtocol, rb.Name, cand.Rank)
			}
		}
		claimed = append(claimed, section)

		start, count := fromRowMajor(wb.Order, section)
		length := section.volume() * elem
		runs := sourceRuns(wb, section, elem, cursor)
		pm.Ranks[cand.Rank] = append(pm.Ranks[cand.Rank], types.Position{
			Rank:      cand.Rank,
			Var:       rb.Name,
			Slot:      idx,
			Start:     start,
			Count:     count,
			SrcOffset: runs[0].Src,
			Length:    length,
			DstOffset: cursor,
			Runs:      runs,
		})
		cursor += length
		slot.Covered += length
	}
	return slot, nil
}

// walk visits every innermost row of section, passing linear element offset of the row within
// the enclosing box. Section must be inside enclosing and both must be row major.
func walk(enclosing, section box, visit func(elem uint64)) {
	dims := len(section.count)
	if dims == 0 {
		visit(0)
		return
	}
	strides := make([]uint64, dims)
	strides[dims-1] = 1
	for d := dims - 2; d >= 0; d-- {
		strides[d] = strides[d+1] * enclosing.count[d+1]
	}
	idx := make([]uint64, dims)
	for {
		var linear uint64
		for d := 0; d < dims; d++ {
			linear += (section.start[d] + idx[d] - enclosing.start[d]) * strides[d]
		}
		visit(linear)
		d := dims - 2
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < section.count[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}

// sourceRuns lists contiguous window ranges of the section, packed into the receive buffer
// starting at dst. Runs contiguous in the window are merged.
func sourceRuns(wb *types.Block, section box, elem, dst uint64) []types.Run {
	row := elem
	if dims := len(section.count); dims > 0 {
		row *= section.count[dims-1]
	}
	var runs []types.Run
	walk(rowMajor(wb.Order, wb.Start, wb.Count), section, func(linear uint64) {
		src := wb.BufferStart + linear*elem
		if n := len(runs); n > 0 && runs[n-1].Src+runs[n-1].Len == src {
			runs[n-1].Len += row
		} else {
			runs = append(runs, types.Run{Src: src, Dst: dst, Len: row})
		}
		dst += row
	})
	return runs
}

// Scatter copies packed data of a position into dst, which is laid out as the read block of the slot.
func Scatter(slot *types.Slot, pos *types.Position, packed, dst []byte) error {
	if uint64(len(packed)) < pos.Length {
		return fmt.Errorf("scatter %s: packed data has %d bytes, expected %d", pos.Var, len(packed), pos.Length)
	}
	if uint64(len(dst)) < slot.Size {
		return fmt.Errorf("scatter %s: destination has %d bytes, expected %d", pos.Var, len(dst), slot.Size)
	}
	order := slot.Block.Order
	section := rowMajor(order, pos.Start, pos.Count)
	elem := slot.Block.Type.Size()
	row := elem
	if dims := len(section.count); dims > 0 {
		row *= section.count[dims-1]
	}
	var off uint64
	walk(rowMajor(order, slot.Block.Start, slot.Block.Count), section, func(linear uint64) {
		copy(dst[linear*elem:linear*elem+row], packed[off:off+row])
		off += row
	})
	return nil
}
