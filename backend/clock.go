package backend

// Clock coordinates component execution, grounded directly on the
// Python original's Clock (original_source/procsim/clock.py): it
// holds a flat list of registered Clocked components and calls Tick
// on each, once per cycle, in registration order. Feeds are staged by
// every component until its own Trigger, so their timing does not
// depend on that order. Broadcast Results are applied directly (see
// CommonDataBus), so the cycle in which a consumer first acts on a
// Result does depend on whether it ticks before or after the producer.
type Clock struct {
	components []Clocked
	cycle      uint64
}

// NewClock returns an empty Clock.
func NewClock() *Clock {
	return &Clock{}
}

// Register adds c to the set of components ticked every cycle.
func (clk *Clock) Register(c Clocked) {
	clk.components = append(clk.components, c)
}

// Tick advances every registered component by one cycle.
func (clk *Clock) Tick() {
	for _, c := range clk.components {
		Tick(c)
	}
	clk.cycle++
}

// Cycle returns the number of cycles this Clock has ticked.
func (clk *Clock) Cycle() uint64 {
	return clk.cycle
}
