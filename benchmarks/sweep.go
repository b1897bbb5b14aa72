package benchmarks

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/cachesim/timing/cache"
	"github.com/sarchlab/cachesim/timing/latency"
)

// SweepConfig describes a design-space sweep: every policy is paired with
// every prefetcher and run on every workload, all on the same cache geometry.
type SweepConfig struct {
	Cache       cache.Config             `json:"cache"`
	Timing      *latency.TimingConfig    `json:"timing"`
	Policies    []cache.PolicyConfig     `json:"policies"`
	Prefetchers []cache.PrefetcherConfig `json:"prefetchers"`

	// Workloads names the workloads to run. Empty means all of them.
	Workloads []string `json:"workloads,omitempty"`

	// Seed drives the random workloads and any random policy without its
	// own seed.
	Seed uint64 `json:"seed"`
}

// DefaultSweepConfig compares every policy with no prefetching and with
// next-line prefetching on the default L1 data cache.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Cache:  cache.DefaultL1DConfig(),
		Timing: latency.DefaultTimingConfig(),
		Policies: []cache.PolicyConfig{
			{Name: cache.PolicyLRU},
			{Name: cache.PolicyLRUPreferClean},
			{Name: cache.PolicyRandom},
		},
		Prefetchers: []cache.PrefetcherConfig{
			{Name: cache.PrefetcherNull},
			{Name: cache.PrefetcherAdjacent},
		},
		Seed: 1,
	}
}

// LoadSweepConfig loads a SweepConfig from a JSON file. Fields missing from
// the file keep their DefaultSweepConfig values.
func LoadSweepConfig(path string) (SweepConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SweepConfig{}, fmt.Errorf("failed to read sweep config file: %w", err)
	}

	config := DefaultSweepConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return SweepConfig{}, fmt.Errorf("failed to parse sweep config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return SweepConfig{}, fmt.Errorf("sweep config %s: %w", path, err)
	}

	return config, nil
}

// SaveSweepConfig writes a SweepConfig to a JSON file.
func (s SweepConfig) SaveSweepConfig(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize sweep config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write sweep config file: %w", err)
	}

	return nil
}

// Validate checks the geometry, the timing and that every policy, prefetcher
// and workload can be built.
func (s SweepConfig) Validate() error {
	if err := s.Cache.Validate(); err != nil {
		return err
	}

	if s.Timing == nil {
		return fmt.Errorf("timing must be set")
	}
	if err := s.Timing.Validate(); err != nil {
		return err
	}

	if len(s.Policies) == 0 {
		return fmt.Errorf("at least one replacement policy is required")
	}
	for _, p := range s.Policies {
		policy, err := cache.NewReplacementPolicy(p, s.Cache.NumSets, s.Cache.Associativity)
		if err != nil {
			return err
		}
		policy.Close()
	}

	if len(s.Prefetchers) == 0 {
		return fmt.Errorf("at least one prefetcher is required")
	}
	for _, p := range s.Prefetchers {
		prefetcher, err := cache.NewPrefetcher(p)
		if err != nil {
			return err
		}
		prefetcher.Close()
	}

	for _, name := range s.Workloads {
		if _, ok := WorkloadByName(name); !ok {
			return fmt.Errorf("unknown workload %q", name)
		}
	}

	return nil
}

// SweepPoint is one policy/prefetcher/workload combination.
type SweepPoint struct {
	Policy     cache.PolicyConfig
	Prefetcher cache.PrefetcherConfig
	Workload   Workload
}

// PolicyLabel names the policy of the point.
func (p SweepPoint) PolicyLabel() string {
	return p.Policy.Name
}

// PrefetcherLabel names the prefetcher of the point with its parameters.
func (p SweepPoint) PrefetcherLabel() string {
	switch p.Prefetcher.Name {
	case "":
		return cache.PrefetcherNull
	case cache.PrefetcherSequential:
		return fmt.Sprintf("%s(%d)", p.Prefetcher.Name, p.Prefetcher.Amount)
	case cache.PrefetcherStride:
		return fmt.Sprintf("%s(%d,%d)",
			p.Prefetcher.Name, p.Prefetcher.Count, p.Prefetcher.Stride)
	default:
		return p.Prefetcher.Name
	}
}
