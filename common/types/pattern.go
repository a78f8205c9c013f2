package types

import (
	"slices"
)

// WritePattern is the ordered list of blocks exposed by one writer in a synchronization epoch.
type WritePattern []Block

// GlobalPattern maps writer rank (index) to the blocks it exposes.
type GlobalPattern []WritePattern

// RankBlock is a block together with the writer rank that exposes it.
type RankBlock struct {
	Rank  int
	Block Block
}

// Lookup returns all blocks of the variable ordered by writer rank and then by position within
// the writer pattern.
func (g GlobalPattern) Lookup(name string) []RankBlock {
	var rst []RankBlock
	for rank, blocks := range g {
		for _, b := range blocks {
			if b.Name == name {
				rst = append(rst, RankBlock{Rank: rank, Block: b})
			}
		}
	}
	return rst
}

// Has returns true if any writer exposes the variable.
func (g GlobalPattern) Has(name string) bool {
	for _, blocks := range g {
		for i := range blocks {
			if blocks[i].Name == name {
				return true
			}
		}
	}
	return false
}

// Variables returns sorted unique variable names.
func (g GlobalPattern) Variables() []string {
	var names []string
	for _, blocks := range g {
		for i := range blocks {
			names = append(names, blocks[i].Name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}
