package backend

import (
	"github.com/samgd/procsim/emu"
	"github.com/samgd/procsim/insts"
)

// lsqState is the state of one LoadStoreQueue entry.
type lsqState uint8

const (
	lsqWaiting lsqState = iota
	lsqExecuting
	// lsqParked is reached only by a speculative store whose memory
	// write has been computed but is held back pending commit-release
	// (§3 Speculative, §4.4).
	lsqParked
)

type lsqEntry struct {
	inst      *insts.Instruction
	state     lsqState
	remaining int
}

// LoadStoreQueue is the in-order memory unit: a strict FIFO of Load
// and Store instructions in which only the oldest (head) entry may be
// executing at any time (§4.4, §8 invariant 4). Loads broadcast their
// Result and retire from the queue as soon as they complete; Stores
// either write through immediately (non-speculative) or park until the
// Reorder Buffer releases them at commit (§3 "writes memory only at
// commit-release").
type LoadStoreQueue struct {
	capacity int
	delay    int
	bus      *CommonDataBus
	mem      *emu.Memory

	current []*lsqEntry
	future  []*lsqEntry

	pendingFeed    []*insts.Instruction
	released       map[int64]bool
	pendingRelease []int64
}

// NewLoadStoreQueue returns an empty LoadStoreQueue. capacity and delay
// must be positive.
func NewLoadStoreQueue(capacity, delay int, bus *CommonDataBus, mem *emu.Memory) (*LoadStoreQueue, error) {
	if capacity <= 0 {
		return nil, &ConfigError{Component: "LoadStoreQueue", Reason: "non-positive capacity"}
	}
	if delay <= 0 {
		return nil, &ConfigError{Component: "LoadStoreQueue", Reason: "non-positive delay"}
	}
	return &LoadStoreQueue{
		capacity: capacity,
		delay:    delay,
		bus:      bus,
		mem:      mem,
		released: make(map[int64]bool),
	}, nil
}

// Full reports whether this queue already holds capacity entries.
func (q *LoadStoreQueue) Full() bool {
	return len(q.current) >= q.capacity
}

// Feed admits a Load or Store instruction at the tail of the queue.
// The caller must have checked Full() first.
func (q *LoadStoreQueue) Feed(inst *insts.Instruction) {
	if len(q.current) >= q.capacity {
		violate("LoadStoreQueue", "fed while full")
	}
	if !inst.Kind.IsMemoryAccess() {
		violate("LoadStoreQueue", "fed a non-memory instruction")
	}
	q.pendingFeed = append(q.pendingFeed, inst)
}

// Receive fans a broadcast Result out to every buffered entry's
// unfilled address/value operands (§4.6).
func (q *LoadStoreQueue) Receive(result insts.Result) {
	for _, e := range q.current {
		e.inst.Receive(result.Tag, result.Value)
	}
}

// ReleaseSpeculative permits a parked speculative store tagged tag to
// commit its write on a subsequent cycle; called by the Reorder Buffer
// when that store retires (§4.4).
func (q *LoadStoreQueue) ReleaseSpeculative(tag int64) {
	q.pendingRelease = append(q.pendingRelease, tag)
}

func (q *LoadStoreQueue) isReleased(tag int64) bool {
	if q.released[tag] {
		return true
	}
	for _, t := range q.pendingRelease {
		if t == tag {
			return true
		}
	}
	return false
}

// Operate advances only the head entry's state machine — every other
// entry is carried over unchanged except for operand fills already
// applied by Receive — preserving the single-execution-slot, in-order
// property required of the memory unit.
func (q *LoadStoreQueue) Operate() {
	future := make([]*lsqEntry, len(q.current))
	copy(future, q.current)

	if len(future) > 0 {
		head := future[0]
		switch head.state {
		case lsqWaiting:
			if head.inst.CanDispatch() {
				future[0] = &lsqEntry{inst: head.inst, state: lsqExecuting, remaining: q.delay - 1}
			}
		case lsqExecuting:
			if head.remaining <= 0 {
				if head.inst.Kind == insts.KindLoad {
					result := head.inst.Execute(q.mem)
					q.bus.Broadcast(*result)
					future = future[1:]
				} else if q.isReleased(head.inst.Tag) || !head.inst.Speculative {
					head.inst.Execute(q.mem)
					future = future[1:]
				} else {
					future[0] = &lsqEntry{inst: head.inst, state: lsqParked}
				}
			} else {
				future[0] = &lsqEntry{inst: head.inst, state: lsqExecuting, remaining: head.remaining - 1}
			}
		case lsqParked:
			if q.isReleased(head.inst.Tag) {
				head.inst.Execute(q.mem)
				future = future[1:]
			}
		}
	}

	q.future = append(future, toEntries(q.pendingFeed)...)
}

func toEntries(pending []*insts.Instruction) []*lsqEntry {
	entries := make([]*lsqEntry, len(pending))
	for i, inst := range pending {
		entries[i] = &lsqEntry{inst: inst, state: lsqWaiting}
	}
	return entries
}

// Trigger promotes the state computed in Operate to current and
// records any releases issued this cycle. A release is forgotten once
// its store has left the queue, so a later store that is given the
// same tag is not taken as already released.
func (q *LoadStoreQueue) Trigger() {
	q.current = q.future
	q.future = nil
	q.pendingFeed = nil
	for _, t := range q.pendingRelease {
		q.released[t] = true
	}
	q.pendingRelease = nil
	held := make(map[int64]bool, len(q.current))
	for _, e := range q.current {
		held[e.inst.Tag] = true
	}
	for t := range q.released {
		if !held[t] {
			delete(q.released, t)
		}
	}
}

// Flush drops every speculative entry the Reorder Buffer has not
// released. Non-speculative entries and released stores are kept, as
// are releases issued this cycle, so a store that has already retired
// still writes memory after a misprediction.
func (q *LoadStoreQueue) Flush() {
	var kept []*lsqEntry
	for _, e := range q.current {
		if !e.inst.Speculative || q.isReleased(e.inst.Tag) {
			kept = append(kept, e)
		}
	}
	q.current = kept
	q.future = nil
	q.pendingFeed = nil
}
