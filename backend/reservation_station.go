package backend

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/samgd/procsim/insts"
)

// unitCacheSize bounds the capability-to-unit LRU below. There are at
// most a handful of distinct Capability values in practice, so any
// small size keeps every hot capability cached without the cache
// itself ever growing unbounded.
const unitCacheSize = 8

// ReservationStation buffers dispatched-but-not-yet-issued
// instructions and, each cycle, issues up to width of them to a
// capability-matched ExecutionUnit once their operands are filled
// (§4.2). Capacity bounds how many instructions it may hold at once;
// width bounds how many it may issue in a single cycle.
type ReservationStation struct {
	capacity int
	width    int
	units    []*ExecutionUnit

	current []*insts.Instruction
	future  []*insts.Instruction

	// pendingFeed collects this cycle's Feed calls separately from
	// future so that Operate's computation of future from current is
	// never clobbered regardless of whether Feed is called before or
	// after this station's own Operate in the Clock's tick sweep.
	pendingFeed []*insts.Instruction

	// unitCache remembers the last non-full unit found for a given
	// capability, so a hot capability doesn't re-scan units every
	// cycle. A cache hit still re-checks Full() before using the
	// entry; a miss or a stale (now-full) entry just falls back to the
	// full scan, so the cache is a pure speedup and never a source of
	// incorrect routing.
	unitCache *lru.Cache[insts.Capability, *ExecutionUnit]
}

// NewReservationStation returns an empty ReservationStation. capacity
// and width must be positive; units is the set of ExecutionUnits this
// station may issue to, searched in registration order on ties.
func NewReservationStation(capacity, width int, units []*ExecutionUnit) (*ReservationStation, error) {
	if capacity <= 0 {
		return nil, &ConfigError{Component: "ReservationStation", Reason: "non-positive capacity"}
	}
	if width <= 0 {
		return nil, &ConfigError{Component: "ReservationStation", Reason: "non-positive width"}
	}
	if len(units) == 0 {
		return nil, &ConfigError{Component: "ReservationStation", Reason: "no execution units registered"}
	}
	cache, err := lru.New[insts.Capability, *ExecutionUnit](unitCacheSize)
	if err != nil {
		return nil, &ConfigError{Component: "ReservationStation", Reason: err.Error()}
	}
	return &ReservationStation{capacity: capacity, width: width, units: units, unitCache: cache}, nil
}

// Full reports whether this station already holds capacity
// instructions, based on already-latched current state.
func (rs *ReservationStation) Full() bool {
	return len(rs.current) >= rs.capacity
}

// Feed admits inst into the station. The caller must have checked
// Full() first; feeding a full station is an InvariantViolation.
func (rs *ReservationStation) Feed(inst *insts.Instruction) {
	if len(rs.current) >= rs.capacity {
		violate("ReservationStation", "fed while full")
	}
	rs.pendingFeed = append(rs.pendingFeed, inst)
}

// Receive fans a broadcast Result out to every buffered instruction's
// unfilled operands (§4.6).
func (rs *ReservationStation) Receive(result insts.Result) {
	for _, inst := range rs.current {
		inst.Receive(result.Tag, result.Value)
	}
}

// Operate walks the buffer in program order and issues up to width
// dispatch-ready instructions to a capability-matched, non-full unit,
// most-specific capability first (§4.2, §9). Instructions that cannot
// yet be issued — because no operand is ready, or every matching unit
// is full — remain buffered for a later cycle.
func (rs *ReservationStation) Operate() {
	issued := 0
	remaining := make([]*insts.Instruction, 0, len(rs.current))
	for _, inst := range rs.current {
		if issued >= rs.width || !inst.CanDispatch() {
			remaining = append(remaining, inst)
			continue
		}
		unit := rs.findUnit(inst)
		if unit == nil {
			if !rs.anyUnitCapable(inst) {
				panic(&NoCapableUnit{Kind: inst.Kind})
			}
			remaining = append(remaining, inst)
			continue
		}
		unit.Feed(inst)
		issued++
	}
	rs.future = append(remaining, rs.pendingFeed...)
}

func (rs *ReservationStation) findUnit(inst *insts.Instruction) *ExecutionUnit {
	for _, cap := range inst.Kind.Capabilities() {
		if u, ok := rs.unitCache.Get(cap); ok && u.Handles(cap) && !u.Full() {
			return u
		}
		for _, u := range rs.units {
			if u.Handles(cap) && !u.Full() {
				rs.unitCache.Add(cap, u)
				return u
			}
		}
	}
	return nil
}

// anyUnitCapable reports whether any registered unit, of any fullness,
// advertises a capability in inst's hierarchy. findUnit returning nil
// despite this being true means every matching unit is merely busy —
// a transient condition the instruction should simply wait out; false
// means no unit could ever dispatch this Kind, a permanent
// misconfiguration (§4.2, §7).
func (rs *ReservationStation) anyUnitCapable(inst *insts.Instruction) bool {
	for _, cap := range inst.Kind.Capabilities() {
		for _, u := range rs.units {
			if u.Handles(cap) {
				return true
			}
		}
	}
	return false
}

// Trigger promotes the issue/feed outcome computed in Operate to
// current.
func (rs *ReservationStation) Trigger() {
	rs.current = rs.future
	rs.future = nil
	rs.pendingFeed = nil
}

// Flush discards every buffered instruction and recursively flushes
// every registered ExecutionUnit (§5 "Cancellation").
func (rs *ReservationStation) Flush() {
	rs.current = nil
	rs.future = nil
	rs.pendingFeed = nil
	for _, u := range rs.units {
		u.Flush()
	}
}
