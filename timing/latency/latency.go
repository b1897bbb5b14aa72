// Package latency turns cache outcomes into cycle estimates.
//
// The latency values are based on Apple M2 microarchitecture estimates and
// can be configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/cachesim/timing/cache"
)

// Table provides latency lookups for cache accesses.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default M2 timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// Config returns the timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}

// AccessLatency returns the latency in cycles of one demand access.
func (t *Table) AccessLatency(result cache.AccessResult) uint64 {
	if result.Hit {
		return t.config.HitLatency
	}

	latency := t.config.MissLatency
	if result.Writeback {
		latency += t.config.WritebackLatency
	}

	return latency
}

// TotalCycles returns the cycles spent on the demand accesses counted in
// stats. Prefetch fills overlap with demand accesses and cost nothing, but the
// write-backs they cause are charged.
func (t *Table) TotalCycles(stats cache.Statistics) uint64 {
	return stats.Hits*t.config.HitLatency +
		stats.Misses*t.config.MissLatency +
		stats.Writebacks*t.config.WritebackLatency
}

// AMAT returns the average memory access time in cycles.
func (t *Table) AMAT(stats cache.Statistics) float64 {
	if stats.Accesses() == 0 {
		return 0
	}

	return float64(t.TotalCycles(stats)) / float64(stats.Accesses())
}
