package cache

import (
	"log"

	"github.com/sarchlab/akita/v4/sim"
)

// Hook positions invoked by a Cache.
var (
	// HookPosAccess fires after every access, demand or prefetch. The item is
	// an AccessEvent.
	HookPosAccess = &sim.HookPos{Name: "CacheAccess"}

	// HookPosEvict fires when a valid line is replaced. The item is an
	// EvictEvent.
	HookPosEvict = &sim.HookPos{Name: "CacheEvict"}

	// HookPosPrefetch fires after the prefetcher issued at least one line. The
	// item is a PrefetchEvent.
	HookPosPrefetch = &sim.HookPos{Name: "CachePrefetch"}
)

// AccessEvent describes one completed access.
type AccessEvent struct {
	Addr     uint32
	Op       Op
	SetIndex uint32
	Tag      uint32
	Hit      bool
	Prefetch bool
}

// EvictEvent describes one replaced line.
type EvictEvent struct {
	BlockAddr uint32
	SetIndex  uint32
	Way       int
	Dirty     bool
	// Prefetch is true when the eviction was caused by a prefetch fill.
	Prefetch bool
}

// PrefetchEvent describes the prefetches triggered by one demand access.
type PrefetchEvent struct {
	Addr  uint32
	Lines uint32
}

// LogHook prints every cache event to a logger.
type LogHook struct {
	sim.LogHookBase
}

// NewLogHook creates a LogHook that writes to logger.
func NewLogHook(logger *log.Logger) *LogHook {
	h := new(LogHook)
	h.Logger = logger
	return h
}

// Func logs the event carried by ctx.
func (h *LogHook) Func(ctx sim.HookCtx) {
	switch e := ctx.Item.(type) {
	case AccessEvent:
		outcome := "miss"
		if e.Hit {
			outcome = "hit"
		}
		origin := "demand"
		if e.Prefetch {
			origin = "prefetch"
		}
		h.Printf("%s %s 0x%08x set=%d tag=0x%x %s",
			origin, e.Op, e.Addr, e.SetIndex, e.Tag, outcome)
	case EvictEvent:
		h.Printf("evict 0x%08x set=%d way=%d dirty=%t",
			e.BlockAddr, e.SetIndex, e.Way, e.Dirty)
	case PrefetchEvent:
		h.Printf("prefetch 0x%08x lines=%d", e.Addr, e.Lines)
	}
}
