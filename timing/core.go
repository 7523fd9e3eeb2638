// Package timing wires the clocked back-end structures (Reorder
// Buffer, Reservation Stations, Load/Store Queue, Common Data Bus)
// into one runnable Core, the way the teacher's timing/core.Core wraps
// timing/pipeline.Pipeline behind a small Feed/Tick/Run/Stats surface.
package timing

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/samgd/procsim/backend"
	"github.com/samgd/procsim/emu"
	"github.com/samgd/procsim/insts"
	"github.com/samgd/procsim/internal/config"
)

// Stats mirrors the teacher's core.Stats shape: a flat snapshot of
// counters useful for reporting simulator throughput, taken from the
// Reorder Buffer, the sole component that tracks retirement.
type Stats struct {
	Cycles  uint64
	Retired uint64
	Flushes uint64
}

// Core wires one Reorder Buffer, one Reservation Station (shared by
// ALU and branch/jump instructions), one Load/Store Queue and one
// Common Data Bus into a backend.Clock, and exposes the whole assembly
// as a single ticked, fed component.
type Core struct {
	clock   *backend.Clock
	rob     *backend.ReorderBuffer
	rs      *backend.ReservationStation
	lsq     *backend.LoadStoreQueue
	bus     *backend.CommonDataBus
	regfile *emu.RegisterFile
	memory  *emu.Memory

	flushes       uint64
	lastCorrected int64
}

// NewCore builds a Core from cfg, with registers initialized from
// initialRegisters (nil means every register starts at zero). log
// receives retire/flush diagnostics from the Reorder Buffer; pass
// logging.Discard() for silence.
func NewCore(cfg *config.BackendConfig, initialRegisters map[string]int64, log logr.Logger) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("timing: %w", err)
	}

	bus := backend.NewCommonDataBus()
	memory := emu.NewMemory(cfg.MemorySize)
	regfile := emu.NewRegisterFile(initialRegisters)

	// Both ALU and branch/jump instructions buffer in the same
	// Reservation Station; each Execution Unit advertises only the
	// capability it executes, so the station's capability-hierarchy
	// walk (§4.2) naturally routes each kind to the right pool without
	// the Reorder Buffer needing to know about more than one station.
	units := make([]*backend.ExecutionUnit, 0, cfg.ALUUnits+cfg.BranchUnits)
	for i := 0; i < cfg.ALUUnits; i++ {
		eu, err := backend.NewExecutionUnit([]insts.Capability{insts.CapALU}, cfg.ALULatency, bus)
		if err != nil {
			return nil, fmt.Errorf("timing: %w", err)
		}
		units = append(units, eu)
	}
	for i := 0; i < cfg.BranchUnits; i++ {
		eu, err := backend.NewExecutionUnit([]insts.Capability{insts.CapBranch}, cfg.BranchLatency, bus)
		if err != nil {
			return nil, fmt.Errorf("timing: %w", err)
		}
		units = append(units, eu)
	}
	rs, err := backend.NewReservationStation(cfg.RSCapacity, cfg.RSWidth, units)
	if err != nil {
		return nil, fmt.Errorf("timing: %w", err)
	}

	lsq, err := backend.NewLoadStoreQueue(cfg.LSQCapacity, cfg.MemoryLatency, bus, memory)
	if err != nil {
		return nil, fmt.Errorf("timing: %w", err)
	}

	core := &Core{
		clock:   backend.NewClock(),
		rs:      rs,
		lsq:     lsq,
		bus:     bus,
		regfile: regfile,
		memory:  memory,
	}

	rob, err := backend.NewReorderBuffer(cfg.ROBCapacity, cfg.ROBWidth, rs, lsq, regfile, core)
	if err != nil {
		return nil, fmt.Errorf("timing: %w", err)
	}
	rob.SetLogger(log)
	core.rob = rob

	bus.Subscribe(rs)
	bus.Subscribe(lsq)
	bus.Subscribe(rob)

	core.clock.Register(rob)
	core.clock.Register(rs)
	core.clock.Register(lsq)
	for _, eu := range units {
		core.clock.Register(eu)
	}

	return core, nil
}

// Flush implements backend.PipelineFlushRoot: the Reorder Buffer calls
// this when a retiring branch was mispredicted. There is no front end
// in this package to redirect, so Core just counts it and records the
// corrected PC for a driver to read back via LastCorrectedPC.
func (c *Core) Flush(correctedPC int64) {
	c.flushes++
	c.lastCorrected = correctedPC
}

// Feed decodes line and admits it to the Reorder Buffer. line carries
// no branch prediction metadata; a driver that has pre-decoded
// instructions with BranchInfo attached (e.g. via internal/program,
// whose .branch sidecar supplies predictions) should call FeedInstruction
// instead.
func (c *Core) Feed(line string) error {
	inst, err := insts.Decode(line, nil)
	if err != nil {
		return fmt.Errorf("timing: %w", err)
	}
	return c.FeedInstruction(inst)
}

// FeedInstruction admits an already-decoded inst to the Reorder
// Buffer, which in turn routes it to the Reservation Station or
// Load/Store Queue during this same cycle's Operate. The caller should
// check the Reorder Buffer isn't full first; FeedInstruction still
// reports an error rather than panicking, since a driver feeding from a
// program listing has no other signal to back off on.
func (c *Core) FeedInstruction(inst *insts.Instruction) error {
	if c.rob.Full() {
		return fmt.Errorf("timing: reorder buffer full")
	}
	c.rob.Feed(inst)
	return nil
}

// Tick advances every registered structure by one cycle.
func (c *Core) Tick() {
	c.clock.Tick()
}

// Run ticks the Core until the Reorder Buffer has fully drained
// (nothing in flight, nothing left to retire) or max cycles have
// elapsed, whichever comes first. It returns the number of cycles
// actually run.
func (c *Core) Run(max int) int {
	cycles := 0
	for cycles < max && !c.Idle() {
		c.Tick()
		cycles++
	}
	return cycles
}

// Idle reports whether the Reorder Buffer holds nothing in flight —
// the program has fully drained through the back end.
func (c *Core) Idle() bool {
	return c.rob.Empty()
}

// Stats returns a snapshot of cumulative simulator counters.
func (c *Core) Stats() Stats {
	return Stats{
		Cycles:  c.clock.Cycle(),
		Retired: c.rob.Retired(),
		Flushes: c.rob.Flushes(),
	}
}

// RegisterFile returns the Core's architectural register storage.
func (c *Core) RegisterFile() *emu.RegisterFile {
	return c.regfile
}

// Memory returns the Core's backing memory.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// LastCorrectedPC returns the most recent corrected PC reported by a
// misprediction flush, or 0 if none has occurred.
func (c *Core) LastCorrectedPC() int64 {
	return c.lastCorrected
}
