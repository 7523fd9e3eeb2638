package backend

import (
	"fmt"

	"github.com/samgd/procsim/insts"
)

// ConfigError reports a malformed configuration discovered at
// construction time: a non-positive capacity or width, an empty set of
// execution units, or an execution unit with no capabilities.
// Configuration errors are the caller's mistake, not a runtime
// condition, so every constructor in this package returns one instead
// of panicking (§7 ConfigError). An instruction kind that no registered
// unit can execute is not detected at construction; it is reported at
// dispatch as NoCapableUnit.
type ConfigError struct {
	Component string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("backend: %s: %s", e.Component, e.Reason)
}

// InvariantViolation is raised (via panic) when a data-model invariant
// from spec §3 is broken: feeding a full buffer (for the Reorder Buffer
// this is also what keeps more than capacity tags from being live), or
// feeding a non-memory instruction to the Load/Store Queue. Operate on
// an empty Reorder Buffer retires nothing and raises nothing, and an
// out-of-range memory address panics with emu.AddressError. These are
// programmer errors — the simulator assumes well-formed input from
// decode — and a cycle-accurate model has no notion of "redoing" a
// cycle, so there is nothing to recover locally (§7). Go's panic is
// the idiomatic analogue of the Python original's bare `assert`; a
// driver may recover() at the top level to log and exit cleanly
// instead of dumping a raw goroutine trace.
type InvariantViolation struct {
	Component string
	Reason    string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("backend: invariant violated in %s: %s", e.Component, e.Reason)
}

func violate(component, reason string) {
	panic(&InvariantViolation{Component: component, Reason: reason})
}

// NoCapableUnit is raised (via panic) when a Reservation Station holds
// a dispatch-ready instruction whose Kind no registered ExecutionUnit
// advertises any capability for (§4.2, §7). This is a misconfiguration
// — e.g. BranchUnits left at 0 while a blth is fed — not a transient
// stall: an instruction whose matching units merely happen to all be
// full is left buffered instead, and never raises this.
type NoCapableUnit struct {
	Kind insts.Kind
}

func (e *NoCapableUnit) Error() string {
	return fmt.Sprintf("backend: no execution unit capable of %s", e.Kind)
}
