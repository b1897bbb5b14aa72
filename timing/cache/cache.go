// Package cache provides a set-associative cache model with pluggable
// replacement policies and prefetchers.
//
// The cache tracks tags and dirty bits only. Line storage is an akita
// directory whose victim selection is delegated to a ReplacementPolicy.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
	"github.com/sarchlab/akita/v4/sim"
)

// Op is the kind of a memory access.
type Op int

const (
	// Read loads from memory.
	Read Op = iota
	// Write stores to memory.
	Write
)

func (o Op) String() string {
	if o == Write {
		return "W"
	}
	return "R"
}

// AccessResult contains the result of a demand access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Evicted is true if a valid line was replaced to serve the access.
	Evicted bool
	// EvictedAddr is the block address of the replaced line.
	EvictedAddr uint32
	// Writeback is true if the replaced line was modified.
	Writeback bool
}

// Statistics holds cache performance statistics.
//
// Reads, Writes, Hits and Misses only count demand accesses. Evictions and
// Writebacks also include the ones caused by prefetch fills.
type Statistics struct {
	Reads          uint64
	Writes         uint64
	Hits           uint64
	Misses         uint64
	Evictions      uint64
	Writebacks     uint64
	Prefetches     uint64
	PrefetchHits   uint64
	PrefetchMisses uint64
}

// Accesses returns the number of demand accesses.
func (s Statistics) Accesses() uint64 {
	return s.Hits + s.Misses
}

// HitRate returns the fraction of demand accesses that hit.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// MissRate returns the fraction of demand accesses that missed.
func (s Statistics) MissRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Misses) / float64(s.Accesses())
}

// Option is a functional option for configuring the Cache.
type Option func(*Cache)

// WithBackingStore sets where modified lines are written back.
func WithBackingStore(backing BackingStore) Option {
	return func(c *Cache) {
		c.backing = backing
	}
}

// Cache is a single level of set-associative cache.
//
// A Cache is not safe for concurrent use. Independent caches share nothing
// and may run on different goroutines.
type Cache struct {
	*sim.HookableBase

	config     Config
	directory  *akitacache.DirectoryImpl
	policy     ReplacementPolicy
	prefetcher Prefetcher
	backing    BackingStore
	issuer     prefetchIssuer

	stats Statistics
}

// New creates a cache with the given geometry and strategies. The cache owns
// the policy and the prefetcher from then on; both are released by Close.
func New(
	config Config,
	policy ReplacementPolicy,
	prefetcher Prefetcher,
	opts ...Option,
) (*Cache, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("cannot create cache: %w", err)
	}
	if policy == nil {
		return nil, &ConfigError{Field: "replacement_policy", Value: nil, Reason: "must not be nil"}
	}
	if prefetcher == nil {
		return nil, &ConfigError{Field: "prefetcher", Value: nil, Reason: "must not be nil"}
	}

	c := &Cache{
		HookableBase: sim.NewHookableBase(),
		config:       config,
		policy:       policy,
		prefetcher:   prefetcher,
		directory: akitacache.NewDirectory(
			int(config.NumSets),
			int(config.Associativity),
			int(config.LineSize),
			&policyVictimFinder{policy: policy},
		),
	}
	c.issuer = prefetchIssuer{cache: c}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// LineSize returns the number of bytes per line.
func (c *Cache) LineSize() uint32 {
	return c.config.LineSize
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// Decompose splits an address into its set index and tag.
func (c *Cache) Decompose(addr uint32) (setIndex, tag uint32) {
	block := addr / c.config.LineSize
	return block % c.config.NumSets, block / c.config.NumSets
}

// BlockAddress returns the address of the first byte of the block identified
// by setIndex and tag.
func (c *Cache) BlockAddress(setIndex, tag uint32) uint32 {
	lineSize := uint64(c.config.LineSize)
	return uint32(uint64(tag)*uint64(c.config.NumSets)*lineSize +
		uint64(setIndex)*lineSize)
}

// Access performs a demand read or write. After the access completes the
// prefetcher is notified and may read more lines; the result only describes
// the demand access.
func (c *Cache) Access(addr uint32, op Op) AccessResult {
	if op == Write {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}

	result := c.access(addr, op, false)
	if result.Hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}

	lines := c.prefetcher.OnAccess(c.issuer, addr, !result.Hit)
	if lines > 0 {
		c.stats.Prefetches += uint64(lines)
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosPrefetch,
			Item:   PrefetchEvent{Addr: addr, Lines: lines},
		})
	}

	return result
}

// access updates the cache state for one access. It never notifies the
// prefetcher, which is what keeps prefetches from cascading.
func (c *Cache) access(addr uint32, op Op, prefetch bool) AccessResult {
	setIndex, tag := c.Decompose(addr)
	set := c.setView(setIndex)

	var result AccessResult
	if way, ok := set.Find(tag); ok {
		result.Hit = true
		if op == Write {
			set.blocks[way].IsDirty = true
		}
	} else {
		result = c.fill(addr, setIndex, tag, op, prefetch)
	}

	c.policy.OnAccess(set, tag)

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosAccess,
		Item: AccessEvent{
			Addr:     addr,
			Op:       op,
			SetIndex: setIndex,
			Tag:      tag,
			Hit:      result.Hit,
			Prefetch: prefetch,
		},
	})

	return result
}

func (c *Cache) fill(
	addr, setIndex, tag uint32,
	op Op,
	prefetch bool,
) AccessResult {
	var result AccessResult

	victim := c.directory.FindVictim(uint64(addr))
	if victim.IsValid {
		result.Evicted = true
		result.EvictedAddr = c.BlockAddress(setIndex, uint32(victim.Tag))
		result.Writeback = victim.IsDirty
		c.evict(victim, result.EvictedAddr, prefetch)
	}

	victim.Tag = uint64(tag)
	victim.IsValid = true
	victim.IsDirty = op == Write

	return result
}

func (c *Cache) evict(victim *akitacache.Block, blockAddr uint32, prefetch bool) {
	c.stats.Evictions++

	if victim.IsDirty {
		c.writeback(blockAddr)
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Pos:    HookPosEvict,
		Item: EvictEvent{
			BlockAddr: blockAddr,
			SetIndex:  uint32(victim.SetID),
			Way:       victim.WayID,
			Dirty:     victim.IsDirty,
			Prefetch:  prefetch,
		},
	})
}

func (c *Cache) writeback(blockAddr uint32) {
	c.stats.Writebacks++
	if c.backing != nil {
		c.backing.Writeback(blockAddr)
	}
}

func (c *Cache) setView(setIndex uint32) SetView {
	sets := c.directory.GetSets()
	return SetView{index: int(setIndex), blocks: sets[setIndex].Blocks}
}

// Contains reports whether the line holding addr is valid in the cache. It
// does not change any state.
func (c *Cache) Contains(addr uint32) bool {
	setIndex, tag := c.Decompose(addr)
	_, ok := c.setView(setIndex).Find(tag)
	return ok
}

// Line returns the line stored in the given set and way.
func (c *Cache) Line(setIndex uint32, way int) Line {
	return c.setView(setIndex).Line(way)
}

// CheckInvariants scans every set and reports the first set that holds more
// lines than the associativity or two valid lines with the same tag.
func (c *Cache) CheckInvariants() error {
	for i, set := range c.directory.GetSets() {
		if len(set.Blocks) != int(c.config.Associativity) {
			return &InvariantViolation{What: fmt.Sprintf(
				"set %d holds %d lines, associativity is %d",
				i, len(set.Blocks), c.config.Associativity)}
		}

		seen := make(map[uint64]int, len(set.Blocks))
		for way, block := range set.Blocks {
			if !block.IsValid {
				continue
			}

			if other, ok := seen[block.Tag]; ok {
				return &InvariantViolation{What: fmt.Sprintf(
					"set %d holds tag 0x%x in ways %d and %d",
					i, block.Tag, other, way)}
			}
			seen[block.Tag] = way
		}
	}

	return nil
}

// Flush writes back all modified lines and invalidates every line.
func (c *Cache) Flush() {
	for i, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.writeback(c.BlockAddress(uint32(i), uint32(block.Tag)))
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all lines without write-back and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

// Close releases the replacement policy, the prefetcher and the line storage,
// in that order. A closed cache must not be used again, and Close must not be
// called twice.
func (c *Cache) Close() {
	c.policy.Close()
	c.prefetcher.Close()
	c.directory = nil
}

// prefetchIssuer is the PrefetchIssuer handed to the prefetcher. Its reads go
// through access, never through Access.
type prefetchIssuer struct {
	cache *Cache
}

func (p prefetchIssuer) LineSize() uint32 {
	return p.cache.config.LineSize
}

func (p prefetchIssuer) Prefetch(addr uint32) {
	result := p.cache.access(addr, Read, true)
	if result.Hit {
		p.cache.stats.PrefetchHits++
	} else {
		p.cache.stats.PrefetchMisses++
	}
}
