package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Status is the dirty bit of a cache line.
type Status int

const (
	// Clean lines match backing memory.
	Clean Status = iota
	// Modified lines must be written back before reuse.
	Modified
)

func (s Status) String() string {
	if s == Modified {
		return "MODIFIED"
	}
	return "CLEAN"
}

// Line is a read-only view of one cache line.
type Line struct {
	Tag    uint32
	Valid  bool
	Status Status
}

func lineOf(block *akitacache.Block) Line {
	l := Line{
		Tag:   uint32(block.Tag),
		Valid: block.IsValid,
	}
	if block.IsDirty {
		l.Status = Modified
	}
	return l
}

// SetView exposes the lines of one set to a ReplacementPolicy. Policies can
// inspect lines but never mutate them.
type SetView struct {
	index  int
	blocks []*akitacache.Block
}

// Index returns the set index.
func (v SetView) Index() int {
	return v.index
}

// Len returns the associativity of the set.
func (v SetView) Len() int {
	return len(v.blocks)
}

// Line returns the line stored in the given way.
func (v SetView) Line(way int) Line {
	return lineOf(v.blocks[way])
}

// Find returns the way of the valid line holding tag.
func (v SetView) Find(tag uint32) (way int, ok bool) {
	for i, block := range v.blocks {
		if block.IsValid && block.Tag == uint64(tag) {
			return i, true
		}
	}
	return 0, false
}
