package cache

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the geometry of a cache.
type Config struct {
	// NumSets is the number of sets. Must be a power of two.
	NumSets uint32 `json:"num_sets"`
	// Associativity is the number of ways per set. Must be a power of two.
	Associativity uint32 `json:"associativity"`
	// LineSize is the number of bytes per line. Must be a power of two.
	LineSize uint32 `json:"line_size"`
}

// DefaultL1DConfig returns an L1 data cache geometry modeled after the Apple
// M2 performance core: 128KB, 8-way, 64B lines.
func DefaultL1DConfig() Config {
	return Config{
		NumSets:       256, // 128KB / (8 * 64B)
		Associativity: 8,
		LineSize:      64,
	}
}

// DefaultL1IConfig returns an L1 instruction cache geometry: 128KB, 4-way,
// 64B lines. The M2 L1I is 192KB 6-way, which is not a power-of-two layout,
// so the closest power-of-two capacity is used.
func DefaultL1IConfig() Config {
	return Config{
		NumSets:       512,
		Associativity: 4,
		LineSize:      64,
	}
}

// DefaultL2Config returns a per-core L2 geometry: 512KB, 8-way, 128B lines.
func DefaultL2Config() Config {
	return Config{
		NumSets:       512,
		Associativity: 8,
		LineSize:      128,
	}
}

// Size returns the capacity of the cache in bytes.
func (c Config) Size() uint64 {
	return uint64(c.NumSets) * uint64(c.Associativity) * uint64(c.LineSize)
}

// Validate checks that every dimension is a non-zero power of two.
func (c Config) Validate() error {
	if err := mustBePowerOfTwo("num_sets", c.NumSets); err != nil {
		return err
	}
	if err := mustBePowerOfTwo("associativity", c.Associativity); err != nil {
		return err
	}
	if err := mustBePowerOfTwo("line_size", c.LineSize); err != nil {
		return err
	}
	if uint64(c.NumSets)*uint64(c.LineSize) > 1<<32 {
		return &ConfigError{
			Field:  "num_sets",
			Value:  c.NumSets,
			Reason: "index and offset bits exceed the 32-bit address",
		}
	}
	return nil
}

// LoadConfig loads a Config from a JSON file. Missing fields keep the
// DefaultL1DConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read cache config file: %w", err)
	}

	config := DefaultL1DConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse cache config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("cache config %s: %w", path, err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize cache config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache config file: %w", err)
	}

	return nil
}
