package backend

import "github.com/samgd/procsim/insts"

// executionSlot is the single in-flight instruction an ExecutionUnit
// may hold at a time.
type executionSlot struct {
	inst      *insts.Instruction
	remaining int
	active    bool
}

// ExecutionUnit models one capability-typed functional unit: it
// accepts at most one dispatched Instruction at a time, holds it for
// a fixed latency, then executes it and broadcasts the Result on the
// Common Data Bus (§4.5). Loads and Stores are never fed to an
// ExecutionUnit — the Load/Store Queue executes those itself so that
// memory ordering stays under its own in-order control.
type ExecutionUnit struct {
	capabilities map[insts.Capability]bool
	delay        int
	bus          *CommonDataBus

	current executionSlot
	future  executionSlot
}

// NewExecutionUnit returns an ExecutionUnit able to dispatch any of
// caps, completing DELAY cycles after it is fed. delay must be
// non-negative; an empty caps set is a ConfigError since such a unit
// could never be matched by any Reservation Station dispatch.
func NewExecutionUnit(caps []insts.Capability, delay int, bus *CommonDataBus) (*ExecutionUnit, error) {
	if len(caps) == 0 {
		return nil, &ConfigError{Component: "ExecutionUnit", Reason: "no capabilities configured"}
	}
	if delay < 0 {
		return nil, &ConfigError{Component: "ExecutionUnit", Reason: "negative delay"}
	}
	set := make(map[insts.Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return &ExecutionUnit{capabilities: set, delay: delay, bus: bus}, nil
}

// Handles reports whether this unit can execute an instruction
// requiring cap.
func (u *ExecutionUnit) Handles(cap insts.Capability) bool {
	return u.capabilities[cap]
}

// Full reports whether this unit already holds an instruction, either
// latched in current state or fed earlier this same cycle, so a
// Reservation Station never hands it a second instruction in one cycle.
func (u *ExecutionUnit) Full() bool {
	return u.current.active || u.future.active
}

// Feed dispatches inst into this unit. The caller must have checked
// Full() first; feeding a full unit is an InvariantViolation, not a
// recoverable error, since dispatch eligibility is a Reservation
// Station invariant, not user input (§7).
func (u *ExecutionUnit) Feed(inst *insts.Instruction) {
	if u.Full() {
		violate("ExecutionUnit", "fed while full")
	}
	u.future.inst = inst
	u.future.remaining = u.delay - 1
	u.future.active = true
}

// Operate advances the held instruction's countdown, or executes and
// broadcasts it once the countdown reaches zero. When this unit is
// idle, Operate leaves future state untouched so that a same-cycle
// Feed (which writes future directly) is never clobbered regardless
// of whether Feed or Operate runs first this cycle.
func (u *ExecutionUnit) Operate() {
	if !u.current.active {
		return
	}
	if u.current.remaining <= 0 {
		result := u.current.inst.Execute(nil)
		if result != nil {
			u.bus.Broadcast(*result)
		}
		u.future.active = false
		u.future.inst = nil
		return
	}
	u.future.inst = u.current.inst
	u.future.remaining = u.current.remaining - 1
	u.future.active = true
}

// Trigger promotes future to current and reseeds future as a copy of
// the new current, ready to receive this cycle's Feed calls.
func (u *ExecutionUnit) Trigger() {
	u.current = u.future
	u.future = u.current
}

// Flush discards any in-flight instruction without broadcasting a
// Result, used when a misprediction cancels everything younger than
// the mispredicting branch (§5 "Cancellation").
func (u *ExecutionUnit) Flush() {
	u.current = executionSlot{}
	u.future = executionSlot{}
}
