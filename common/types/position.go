package types

import (
	"maps"
	"slices"
)

// Run is a contiguous byte range copied from a writer window into the receive buffer.
type Run struct {
	Src uint64
	Dst uint64
	Len uint64
}

// Position is one intersection between a read block and a writer block.
//
// Data of the intersection is packed at [DstOffset, DstOffset+Length) of the receive buffer,
// in the order of the variable. SrcOffset is the window offset of the first intersected element.
type Position struct {
	Rank      int
	Var       string
	Slot      int
	Start     []uint64
	Count     []uint64
	SrcOffset uint64
	Length    uint64
	DstOffset uint64
	Runs      []Run
}

// Slot is the receive buffer region reserved for one block of the read pattern.
type Slot struct {
	Block   Block
	Offset  uint64
	Size    uint64
	Covered uint64
}

// Complete is true if writers expose every requested byte of the slot.
func (s *Slot) Complete() bool {
	return s.Covered == s.Size
}

// PositionMap is the reader-local table of what to fetch from each writer.
type PositionMap struct {
	// Ranks entries are sorted by DstOffset.
	Ranks map[int][]Position
	Slots []Slot
	// Total is the receive buffer size required to hold all slots.
	Total uint64
}

// SortedRanks returns writer ranks that hold data for this reader in ascending order.
func (m *PositionMap) SortedRanks() []int {
	return slices.Sorted(maps.Keys(m.Ranks))
}

// Slot returns index of the slot for the variable or -1.
func (m *PositionMap) Slot(name string) int {
	for i := range m.Slots {
		if m.Slots[i].Block.Name == name {
			return i
		}
	}
	return -1
}

// ForSlot returns positions that fill the slot, ordered by destination offset.
func (m *PositionMap) ForSlot(slot int) []Position {
	var rst []Position
	for _, rank := range m.SortedRanks() {
		for _, pos := range m.Ranks[rank] {
			if pos.Slot == slot {
				rst = append(rst, pos)
			}
		}
	}
	slices.SortFunc(rst, func(a, b Position) int {
		switch {
		case a.DstOffset < b.DstOffset:
			return -1
		case a.DstOffset > b.DstOffset:
			return 1
		}
		return 0
	})
	return rst
}

// Requests returns number of contiguous runs in the map.
func (m *PositionMap) Requests() int {
	n := 0
	for _, positions := range m.Ranks {
		for i := range positions {
			n += len(positions[i].Runs)
		}
	}
	return n
}
