package latency

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/sarchlab/rv32sim/timing/bus"
)

// DCacheConfig describes the optional data cache placed in front of memory
// on the responder side of the bus.
type DCacheConfig struct {
	// Enabled turns the cache on. Default: false.
	Enabled bool `json:"enabled"`

	// Size in bytes. Default: 4 KiB.
	Size int `json:"size"`

	// Associativity is the number of ways. Default: 2.
	Associativity int `json:"associativity"`

	// BlockSize is the line size in bytes. Default: 16.
	BlockSize int `json:"block_size"`

	// HitLatency is the extra response delay on a hit. Default: 0 cycles.
	HitLatency uint64 `json:"hit_latency"`

	// MissLatency is the extra response delay on a miss. Default: 8 cycles.
	MissLatency uint64 `json:"miss_latency"`
}

// TimingConfig holds the timing parameters of the memory system seen by the
// core's data port. Instruction fetch is always single-cycle.
type TimingConfig struct {
	// Bus routes data accesses through the bus bridge. When false the data
	// port is a combinational word memory. Default: true.
	Bus bool `json:"bus"`

	// AWReadyLatency is the number of cycles the responder waits with
	// AWVALID high before asserting AWREADY. Default: 0.
	AWReadyLatency uint64 `json:"aw_ready_latency"`

	// WReadyLatency is the number of cycles the responder waits with
	// WVALID high before asserting WREADY. Default: 0.
	WReadyLatency uint64 `json:"w_ready_latency"`

	// BValidLatency is the number of cycles between the write being
	// performed and BVALID. Default: 0.
	BValidLatency uint64 `json:"b_valid_latency"`

	// ARReadyLatency is the number of cycles the responder waits with
	// ARVALID high before asserting ARREADY. Default: 0.
	ARReadyLatency uint64 `json:"ar_ready_latency"`

	// RValidLatency is the number of cycles between the read address being
	// accepted and RVALID. Default: 0.
	RValidLatency uint64 `json:"r_valid_latency"`

	// MemorySize is the size of the backing memory in bytes.
	// Default: 64 KiB.
	MemorySize uint32 `json:"memory_size"`

	// MaxCycles bounds a run; exceeding it is a timeout. Default: 100000.
	MaxCycles uint64 `json:"max_cycles"`

	// DCache configures the responder-side data cache.
	DCache DCacheConfig `json:"dcache"`
}

// DefaultTimingConfig returns a TimingConfig with a zero-wait-state bus.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		Bus:            true,
		AWReadyLatency: 0,
		WReadyLatency:  0,
		BValidLatency:  0,
		ARReadyLatency: 0,
		RValidLatency:  0,
		MemorySize:     64 * 1024,
		MaxCycles:      100000,
		DCache: DCacheConfig{
			Enabled:       false,
			Size:          4 * 1024,
			Associativity: 2,
			BlockSize:     16,
			HitLatency:    0,
			MissLatency:   8,
		},
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields absent from the
// file keep their default values.
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

// MaxLatency is the largest accepted value for any latency field. Latencies
// are counted in int cycles by the bus and the cache.
const MaxLatency = math.MaxInt32

// Validate checks that the configuration describes a buildable system.
func (c *TimingConfig) Validate() error {
	if c.MemorySize < 4 {
		return fmt.Errorf("memory_size must be >= 4")
	}
	if c.MemorySize%4 != 0 {
		return fmt.Errorf("memory_size must be a multiple of 4")
	}
	if c.MaxCycles == 0 {
		return fmt.Errorf("max_cycles must be > 0")
	}
	for _, l := range []struct {
		name string
		v    uint64
	}{
		{"aw_ready_latency", c.AWReadyLatency},
		{"w_ready_latency", c.WReadyLatency},
		{"b_valid_latency", c.BValidLatency},
		{"ar_ready_latency", c.ARReadyLatency},
		{"r_valid_latency", c.RValidLatency},
	} {
		if err := checkLatency(l.name, l.v); err != nil {
			return err
		}
	}
	if c.DCache.Enabled {
		if err := c.DCache.validate(); err != nil {
			return fmt.Errorf("dcache: %w", err)
		}
	}
	return nil
}

func (d DCacheConfig) validate() error {
	if d.BlockSize < 4 || d.BlockSize&(d.BlockSize-1) != 0 {
		return fmt.Errorf("block_size must be a power of two >= 4")
	}
	if d.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0")
	}
	if d.Size <= 0 || d.Size%(d.Associativity*d.BlockSize) != 0 {
		return fmt.Errorf("size must be a positive multiple of associativity*block_size")
	}
	if err := checkLatency("hit_latency", d.HitLatency); err != nil {
		return err
	}
	return checkLatency("miss_latency", d.MissLatency)
}

func checkLatency(name string, v uint64) error {
	if v > MaxLatency {
		return fmt.Errorf("%s must be <= %d, got %d", name, MaxLatency, v)
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}

// BusLatencies returns the responder channel latencies.
func (c *TimingConfig) BusLatencies() bus.Latencies {
	return bus.Latencies{
		AWReady: int(c.AWReadyLatency),
		WReady:  int(c.WReadyLatency),
		BValid:  int(c.BValidLatency),
		ARReady: int(c.ARReadyLatency),
		RValid:  int(c.RValidLatency),
	}
}
