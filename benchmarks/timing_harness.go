// Package benchmarks runs synthetic workloads through the cache model and
// compares replacement policies and prefetchers.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/sarchlab/akita/v4/sim"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/cachesim/timing/cache"
	"github.com/sarchlab/cachesim/timing/latency"
)

// BenchmarkResult holds the results for a single sweep point.
type BenchmarkResult struct {
	// Workload identifies the access pattern
	Workload string `json:"workload"`

	// Policy and Prefetcher identify the strategies
	Policy     string `json:"policy"`
	Prefetcher string `json:"prefetcher"`

	// Cache is the geometry the point ran on
	Cache cache.Config `json:"cache"`

	// Stats are the final cache statistics
	Stats cache.Statistics `json:"stats"`

	// HitRate is the demand hit rate
	HitRate float64 `json:"hit_rate"`

	// TotalCycles is the estimated time spent in the cache
	TotalCycles uint64 `json:"total_cycles"`

	// AMAT is the average memory access time in cycles
	AMAT float64 `json:"amat"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Sweep lists the points to run
	Sweep SweepConfig

	// Parallelism bounds the number of points simulated at once
	// (default: runtime.NumCPU())
	Parallelism int

	// Hooks are attached to every cache the harness creates
	Hooks []sim.Hook

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Sweep:       DefaultSweepConfig(),
		Parallelism: runtime.NumCPU(),
		Output:      os.Stdout,
		Verbose:     false,
	}
}

// Harness runs workloads over a policy × prefetcher sweep and reports results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a new benchmark harness. When the sweep names workloads
// they are added; otherwise AddWorkload or AddWorkloads must be called.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Parallelism <= 0 {
		config.Parallelism = runtime.NumCPU()
	}
	if config.Sweep.Timing == nil {
		config.Sweep.Timing = latency.DefaultTimingConfig()
	}

	h := &Harness{
		config:    config,
		workloads: []Workload{},
	}

	for _, name := range config.Sweep.Workloads {
		if w, ok := WorkloadByName(name); ok {
			h.AddWorkload(w)
		}
	}

	return h
}

// AddWorkload adds a workload to the harness.
func (h *Harness) AddWorkload(w Workload) {
	h.workloads = append(h.workloads, w)
}

// AddWorkloads adds multiple workloads to the harness.
func (h *Harness) AddWorkloads(workloads []Workload) {
	h.workloads = append(h.workloads, workloads...)
}

// Points returns the sweep points in run order: workload-major, then policy,
// then prefetcher.
func (h *Harness) Points() []SweepPoint {
	sweep := h.config.Sweep
	points := make([]SweepPoint, 0,
		len(h.workloads)*len(sweep.Policies)*len(sweep.Prefetchers))

	for _, w := range h.workloads {
		for _, p := range sweep.Policies {
			for _, pf := range sweep.Prefetchers {
				points = append(points, SweepPoint{
					Policy:     p,
					Prefetcher: pf,
					Workload:   w,
				})
			}
		}
	}

	return points
}

// RunAll executes every sweep point and returns the results in Points order.
// Points run concurrently, each on its own cache. Cancelling ctx stops the
// sweep before the next point starts.
func (h *Harness) RunAll(ctx context.Context) ([]BenchmarkResult, error) {
	traces := make(map[string][]Access, len(h.workloads))
	for _, w := range h.workloads {
		traces[w.Name] = w.Generate(h.config.Sweep.Seed)
	}

	points := h.Points()
	results := make([]BenchmarkResult, len(points))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.config.Parallelism)

	for i, point := range points {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, err := h.runPoint(point, traces[point.Workload.Name])
			if err != nil {
				return err
			}
			results[i] = result

			if h.config.Verbose {
				_, _ = fmt.Fprintf(h.config.Output, "done %s/%s/%s\n",
					result.Workload, result.Policy, result.Prefetcher)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// RunPoint executes a single sweep point.
func (h *Harness) RunPoint(point SweepPoint) (BenchmarkResult, error) {
	return h.runPoint(point, point.Workload.Generate(h.config.Sweep.Seed))
}

func (h *Harness) runPoint(point SweepPoint, trace []Access) (BenchmarkResult, error) {
	sweep := h.config.Sweep

	policyConfig := point.Policy
	if policyConfig.Seed == 0 {
		policyConfig.Seed = sweep.Seed
	}

	policy, err := cache.NewReplacementPolicy(
		policyConfig, sweep.Cache.NumSets, sweep.Cache.Associativity)
	if err != nil {
		return BenchmarkResult{}, fmt.Errorf("point %s: %w", point.Workload.Name, err)
	}

	prefetcher, err := cache.NewPrefetcher(point.Prefetcher)
	if err != nil {
		policy.Close()
		return BenchmarkResult{}, fmt.Errorf("point %s: %w", point.Workload.Name, err)
	}

	backing := cache.NewMemoryBacking()
	c, err := cache.New(sweep.Cache, policy, prefetcher,
		cache.WithBackingStore(backing))
	if err != nil {
		policy.Close()
		prefetcher.Close()
		return BenchmarkResult{}, fmt.Errorf("point %s: %w", point.Workload.Name, err)
	}
	defer c.Close()

	for _, hook := range h.config.Hooks {
		c.AcceptHook(hook)
	}

	start := time.Now()
	for _, a := range trace {
		c.Access(a.Addr, a.Op)
	}
	wallTime := time.Since(start)

	if err := c.CheckInvariants(); err != nil {
		return BenchmarkResult{}, fmt.Errorf("point %s: %w", point.Workload.Name, err)
	}

	stats := c.Stats()
	if backing.Total() != stats.Writebacks {
		return BenchmarkResult{}, fmt.Errorf("point %s: memory saw %d write-backs, cache counted %d",
			point.Workload.Name, backing.Total(), stats.Writebacks)
	}

	table := latency.NewTableWithConfig(sweep.Timing)

	return BenchmarkResult{
		Workload:    point.Workload.Name,
		Policy:      point.PolicyLabel(),
		Prefetcher:  point.PrefetcherLabel(),
		Cache:       sweep.Cache,
		Stats:       stats,
		HitRate:     stats.HitRate(),
		TotalCycles: table.TotalCycles(stats),
		AMAT:        table.AMAT(stats),
		WallTime:    wallTime,
	}, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Cache Sweep Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Workload: %s\n", r.Workload)
		_, _ = fmt.Fprintf(h.config.Output, "  Policy:     %s\n", r.Policy)
		_, _ = fmt.Fprintf(h.config.Output, "  Prefetcher: %s\n", r.Prefetcher)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Cache ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Accesses:   %d\n", r.Stats.Accesses())
		_, _ = fmt.Fprintf(h.config.Output, "  Hits:       %d\n", r.Stats.Hits)
		_, _ = fmt.Fprintf(h.config.Output, "  Misses:     %d\n", r.Stats.Misses)
		_, _ = fmt.Fprintf(h.config.Output, "  Hit Rate:   %.1f%%\n", r.HitRate*100)
		_, _ = fmt.Fprintf(h.config.Output, "  Evictions:  %d\n", r.Stats.Evictions)
		_, _ = fmt.Fprintf(h.config.Output, "  Writebacks: %d\n", r.Stats.Writebacks)

		if r.Stats.Prefetches > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- Prefetcher ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Issued: %d\n", r.Stats.Prefetches)
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.Stats.PrefetchHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.Stats.PrefetchMisses)
		}

		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Total Cycles: %d\n", r.TotalCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  AMAT:         %.3f\n", r.AMAT)
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"workload,policy,prefetcher,reads,writes,hits,misses,evictions,writebacks,prefetches,hit_rate,total_cycles,amat")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%s,%d,%d,%d,%d,%d,%d,%d,%.4f,%d,%.3f\n",
			r.Workload,
			r.Policy,
			r.Prefetcher,
			r.Stats.Reads,
			r.Stats.Writes,
			r.Stats.Hits,
			r.Stats.Misses,
			r.Stats.Evictions,
			r.Stats.Writebacks,
			r.Stats.Prefetches,
			r.HitRate,
			r.TotalCycles,
			r.AMAT,
		)
	}
}

// BenchmarkReport is the complete output format for sweep results.
type BenchmarkReport struct {
	// Metadata about the sweep
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual point results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the sweep.
type ReportMetadata struct {
	// Timestamp when the sweep was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config is the sweep configuration
	Config SweepConfig `json:"config"`
}

// ReportSummary contains aggregate statistics across all points.
type ReportSummary struct {
	// TotalPoints is the number of points run
	TotalPoints int `json:"total_points"`

	// TotalAccesses is the sum of all demand accesses
	TotalAccesses uint64 `json:"total_accesses"`

	// BestAMAT is the point with the lowest AMAT for each workload
	BestAMAT map[string]string `json:"best_amat"`

	// TotalWallTime is the total wall clock time for all points
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// Version is reported in JSON output.
const Version = "0.1.0"

// Summarize aggregates results into a ReportSummary.
func Summarize(results []BenchmarkResult) ReportSummary {
	summary := ReportSummary{
		TotalPoints: len(results),
		BestAMAT:    map[string]string{},
	}

	best := map[string]float64{}
	for _, r := range results {
		summary.TotalAccesses += r.Stats.Accesses()
		summary.TotalWallTime += r.WallTime

		if amat, ok := best[r.Workload]; !ok || r.AMAT < amat {
			best[r.Workload] = r.AMAT
			summary.BestAMAT[r.Workload] = r.Policy + "+" + r.Prefetcher
		}
	}

	return summary
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config:    h.config.Sweep,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
