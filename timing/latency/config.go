package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds the cycle costs of cache events.
// Values are based on Apple M2 microarchitecture estimates.
type TimingConfig struct {
	// HitLatency is the load-to-use latency of a cache hit.
	// Default: 4 cycles.
	HitLatency uint64 `json:"hit_latency"`

	// MissLatency is the latency of a miss, including the fill from main
	// memory. Default: 150 cycles.
	MissLatency uint64 `json:"miss_latency"`

	// WritebackLatency is the extra latency a miss pays when it evicts a
	// modified line. Default: 0 cycles (write-backs drain through a write
	// buffer).
	WritebackLatency uint64 `json:"writeback_latency"`
}

// DefaultTimingConfig returns a TimingConfig with M2-based default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		HitLatency:       4,
		MissLatency:      150,
		WritebackLatency: 0,
	}
}

// LoadConfig loads a TimingConfig from a JSON file.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that the latencies are consistent.
func (c *TimingConfig) Validate() error {
	if c.HitLatency == 0 {
		return fmt.Errorf("hit_latency must be > 0")
	}
	if c.MissLatency < c.HitLatency {
		return fmt.Errorf("miss_latency must be >= hit_latency")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	return &TimingConfig{
		HitLatency:       c.HitLatency,
		MissLatency:      c.MissLatency,
		WritebackLatency: c.WritebackLatency,
	}
}
