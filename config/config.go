// Package config loads and validates the parameters that describe a
// memory-hierarchy run: cache geometries, replacement policies, the DRAM
// page policy, and the simulation mode.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Mode selects the memory-hierarchy topology to simulate.
//
//	A   single L1 data cache, no timing accounting
//	B   split L1 + shared L2 + DRAM, fixed DRAM latency
//	C   split L1 + shared L2 + DRAM, timed DRAM latency
//	DEF per-core split L1 + shared L2 + DRAM, virtual addressing
type Mode string

const (
	ModeA   Mode = "A"
	ModeB   Mode = "B"
	ModeC   Mode = "C"
	ModeDEF Mode = "DEF"
)

// Policy selects a cache's way-replacement algorithm.
type Policy string

const (
	PolicyLRU    Policy = "LRU"
	PolicyRandom Policy = "RANDOM"
	PolicySWP    Policy = "SWP"
	PolicyDWP    Policy = "DWP"
)

// DRAMPolicy selects the row-buffer management policy DRAM banks use.
type DRAMPolicy string

const (
	DRAMOpenPage  DRAMPolicy = "OPEN_PAGE"
	DRAMClosePage DRAMPolicy = "CLOSE_PAGE"
)

// CacheParams describes the geometry and policy of one cache level.
type CacheParams struct {
	// SizeBytes is the total capacity of the cache in bytes.
	SizeBytes int `json:"size_bytes"`
	// Associativity is the number of ways per set.
	Associativity int `json:"associativity"`
	// Policy is the way-replacement algorithm this cache uses.
	Policy Policy `json:"policy"`
}

// Config is the full set of knobs a run needs. Every field carries a
// json tag so it round-trips through Load/Save unchanged.
type Config struct {
	// Mode selects the hierarchy topology. Default: "C".
	Mode Mode `json:"mode"`
	// LineSize is the cache line size in bytes, shared by every level.
	// Default: 64.
	LineSize int `json:"line_size"`
	// NumCores is the number of cores addressed in mode DEF, which
	// requires exactly 2. Ignored by modes A, B and C, which are always
	// single-core. Default: 2.
	NumCores int `json:"num_cores"`

	// ICache is the instruction cache geometry, used by modes B, C, DEF.
	ICache CacheParams `json:"icache"`
	// DCache is the data cache geometry, used by every mode.
	DCache CacheParams `json:"dcache"`
	// L2Cache is the shared second-level cache geometry, used by modes
	// B, C, DEF.
	L2Cache CacheParams `json:"l2cache"`

	// DRAMPolicy selects the row-buffer policy for modes B, C, DEF.
	// Default: "OPEN_PAGE".
	DRAMPolicy DRAMPolicy `json:"dram_policy"`

	// SWPCore0Ways is the fixed number of L2 ways reserved for core 0
	// under the SWP replacement policy. Default: 8.
	SWPCore0Ways int `json:"swp_core0_ways"`

	// RandomSeed seeds the process-wide pseudorandom source used by the
	// RANDOM replacement policy. Default: 1.
	RandomSeed int64 `json:"random_seed"`

	// RecordDB, if non-empty, is a filesystem path where a per-reference
	// SQLite trace of the run is written. Default: "" (disabled).
	RecordDB string `json:"record_db,omitempty"`
}

// Default returns the configuration used when no config file is given:
// mode C, 64-byte lines, 32KB 8-way LRU L1s, a 512KB 16-way LRU L2, and
// an open-page DRAM.
func Default() *Config {
	return &Config{
		Mode:     ModeC,
		LineSize: 64,
		NumCores: 2,
		ICache: CacheParams{
			SizeBytes:     32 * 1024,
			Associativity: 8,
			Policy:        PolicyLRU,
		},
		DCache: CacheParams{
			SizeBytes:     32 * 1024,
			Associativity: 8,
			Policy:        PolicyLRU,
		},
		L2Cache: CacheParams{
			SizeBytes:     512 * 1024,
			Associativity: 16,
			Policy:        PolicyLRU,
		},
		DRAMPolicy:   DRAMOpenPage,
		SWPCore0Ways: 8,
		RandomSeed:   1,
	}
}

// Load reads a JSON configuration file. Fields absent from the file keep
// their Default() value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that every field holds a value the rest of the
// simulator can act on, returning the first problem it finds.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeA, ModeB, ModeC, ModeDEF:
	default:
		return fmt.Errorf("invalid mode %q", c.Mode)
	}

	if c.LineSize <= 0 || c.LineSize&(c.LineSize-1) != 0 {
		return fmt.Errorf("line_size must be a positive power of two, got %d", c.LineSize)
	}

	if c.Mode == ModeDEF && c.NumCores != 2 {
		return fmt.Errorf("num_cores must be 2 in mode DEF, got %d", c.NumCores)
	}

	if err := c.DCache.validate("dcache", c.LineSize); err != nil {
		return err
	}

	if c.Mode != ModeA {
		if err := c.ICache.validate("icache", c.LineSize); err != nil {
			return err
		}
		if err := c.L2Cache.validate("l2cache", c.LineSize); err != nil {
			return err
		}

		switch c.DRAMPolicy {
		case DRAMOpenPage, DRAMClosePage:
		default:
			return fmt.Errorf("invalid dram_policy %q", c.DRAMPolicy)
		}
	}

	if c.SWPCore0Ways < 0 {
		return fmt.Errorf("swp_core0_ways must not be negative, got %d", c.SWPCore0Ways)
	}
	if c.Mode != ModeA && c.SWPCore0Ways > c.L2Cache.Associativity {
		return fmt.Errorf("swp_core0_ways (%d) must not exceed l2cache.associativity (%d)", c.SWPCore0Ways, c.L2Cache.Associativity)
	}

	return nil
}

func (p CacheParams) validate(label string, lineSize int) error {
	if p.SizeBytes <= 0 {
		return fmt.Errorf("%s.size_bytes must be positive, got %d", label, p.SizeBytes)
	}
	if p.Associativity <= 0 {
		return fmt.Errorf("%s.associativity must be positive, got %d", label, p.Associativity)
	}

	numSets := p.SizeBytes / (p.Associativity * lineSize)
	if numSets <= 0 || numSets&(numSets-1) != 0 {
		return fmt.Errorf("%s geometry does not divide into a power-of-two number of sets", label)
	}

	switch p.Policy {
	case PolicyLRU, PolicyRandom, PolicySWP, PolicyDWP:
	default:
		return fmt.Errorf("%s.policy is invalid: %q", label, p.Policy)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
