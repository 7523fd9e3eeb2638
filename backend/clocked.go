// Package backend implements the out-of-order back-end execution
// engine: the two-phase clocked state-update discipline and the four
// cooperating structures — Reorder Buffer, Reservation Station,
// Load/Store Queue and Common Data Bus — that carry out speculative
// dispatch, in-order commit and flush-on-misprediction (spec §4).
package backend

// Clocked is implemented by every stateful back-end component. The
// two phases are split so that no component's Operate ever observes a
// sibling's in-cycle mutation: Operate reads only already-latched
// state plus whatever arrived in a "future" side channel (a feed or a
// broadcast Result) since the last Trigger, and stages its own outputs
// into its own future state. Trigger then atomically promotes that
// future state to current and seeds a fresh future state. Because the
// Clock may call Tick on registered components in arbitrary order,
// Operate must never depend on whether a sibling has already ticked
// this cycle (§4.1, §5 "ordering independence").
type Clocked interface {
	// Operate computes this component's next (future) state from its
	// current state and any side-channel input received since the
	// last Trigger. It must not mutate any other component's current
	// state.
	Operate()

	// Trigger promotes the staged future state to current and
	// initializes a new future state (typically a copy of current, so
	// staged changes compose across cycles).
	Trigger()
}

// Tick runs Operate then Trigger, in that order, on c.
func Tick(c Clocked) {
	c.Operate()
	c.Trigger()
}

// Flushable is implemented by any component that holds speculative
// state that must be atomically destroyed on a pipeline flush
// (§4.1, §5 "Cancellation").
type Flushable interface {
	Flush()
}
