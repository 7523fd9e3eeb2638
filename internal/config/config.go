// Package config holds the JSON-backed configuration for the back-end
// structures' capacities, widths and latencies, following the same
// load/validate/save shape the teacher repo uses for its own timing
// table (timing/latency.TimingConfig in the reference corpus).
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// BackendConfig configures the size and timing of every back-end
// structure: the Reorder Buffer, the shared Reservation Station (ALU
// and branch instructions both buffer here), the Load/Store Queue, and
// the Execution Units behind the Reservation Station.
type BackendConfig struct {
	// ROBCapacity is the number of in-flight instructions the Reorder
	// Buffer may hold at once.
	ROBCapacity int `json:"rob_capacity"`
	// ROBWidth is the number of instructions the Reorder Buffer may
	// retire in a single cycle.
	ROBWidth int `json:"rob_width"`

	// RSCapacity is the shared Reservation Station's capacity. Both ALU
	// and branch instructions buffer in the one station, matching the
	// single generic ReservationStation the back end exposes.
	RSCapacity int `json:"rs_capacity"`
	// RSWidth is the shared Reservation Station's issue width.
	RSWidth int `json:"rs_width"`
	// ALUUnits is how many ALU Execution Units to instantiate.
	ALUUnits int `json:"alu_units"`
	// ALULatency is the cycle latency of one ALU Execution Unit.
	ALULatency int `json:"alu_latency"`

	// BranchUnits is how many branch Execution Units to instantiate.
	BranchUnits int `json:"branch_units"`
	// BranchLatency is the cycle latency of one branch Execution Unit.
	BranchLatency int `json:"branch_latency"`

	// LSQCapacity is the Load/Store Queue's capacity.
	LSQCapacity int `json:"lsq_capacity"`
	// MemoryLatency is the cycle latency of a Load or Store.
	MemoryLatency int `json:"memory_latency"`

	// MemorySize is the number of int64 words backing the simulated
	// address space.
	MemorySize int `json:"memory_size"`
}

// Default returns a BackendConfig with modest, single-cycle-ALU
// defaults suitable for exercising the simulator without a config
// file.
func Default() *BackendConfig {
	return &BackendConfig{
		ROBCapacity:   32,
		ROBWidth:      4,
		RSCapacity:    16,
		RSWidth:       4,
		ALUUnits:      2,
		ALULatency:    1,
		BranchUnits:   1,
		BranchLatency: 1,
		LSQCapacity:   16,
		MemoryLatency: 4,
		MemorySize:    4096,
	}
}

// Load reads a BackendConfig from a JSON file at path, overlaying it
// on top of Default so an incomplete file only overrides the fields
// it specifies.
func Load(path string) (*BackendConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as indented JSON.
func (c *BackendConfig) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: serialize: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks that every capacity, width and latency is positive,
// and that at least one Execution Unit is configured per Reservation
// Station, and returns an error naming the first field that is not — a
// ConfigError from the backend package's constructors would otherwise
// surface these same mistakes later, one structure at a time.
func (c *BackendConfig) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"rob_capacity", c.ROBCapacity},
		{"rob_width", c.ROBWidth},
		{"rs_capacity", c.RSCapacity},
		{"rs_width", c.RSWidth},
		{"alu_units", c.ALUUnits},
		{"alu_latency", c.ALULatency},
		{"branch_units", c.BranchUnits},
		{"branch_latency", c.BranchLatency},
		{"lsq_capacity", c.LSQCapacity},
		{"memory_latency", c.MemoryLatency},
		{"memory_size", c.MemorySize},
	}
	for _, check := range checks {
		if check.value <= 0 {
			return fmt.Errorf("config: %s must be > 0, got %d", check.name, check.value)
		}
	}
	return nil
}
