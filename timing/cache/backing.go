package cache

// BackingStore is the next level in the memory hierarchy. The cache only
// tracks tags, so a write-back carries the block address alone.
type BackingStore interface {
	// Writeback is called once for every modified line that leaves the cache.
	Writeback(blockAddr uint32)
}

// MemoryBacking is a BackingStore that counts write-backs per block.
type MemoryBacking struct {
	writebacks map[uint32]uint64
	total      uint64
}

// NewMemoryBacking creates a new MemoryBacking.
func NewMemoryBacking() *MemoryBacking {
	return &MemoryBacking{writebacks: make(map[uint32]uint64)}
}

// Writeback records a write-back of the block.
func (m *MemoryBacking) Writeback(blockAddr uint32) {
	m.writebacks[blockAddr]++
	m.total++
}

// Writebacks returns how many times the block was written back.
func (m *MemoryBacking) Writebacks(blockAddr uint32) uint64 {
	return m.writebacks[blockAddr]
}

// Total returns the number of write-backs across all blocks.
func (m *MemoryBacking) Total() uint64 {
	return m.total
}
