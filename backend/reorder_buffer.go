package backend

import (
	"github.com/go-logr/logr"
	"github.com/rs/xid"

	"github.com/samgd/procsim/insts"
)

// RegisterFile is the architectural register storage the Reorder
// Buffer commits into. It is an external collaborator — register file
// storage is out of scope for this package (§1 Non-goals) — injected
// so the Reorder Buffer can mark a destination pending at dispatch and
// clear it at commit without owning the storage itself.
type RegisterFile interface {
	Get(name string) int64
	Set(name string, value int64)
	MarkPending(name string, tag int64)
	ClearPending(name string, tag int64)
	Pending(name string) (tag int64, ok bool)
	ClearAllPending()
}

// PipelineFlushRoot is notified when a branch retires having been
// mispredicted, so that the front end (out of scope for this package)
// can redirect fetch to correctedPC. The Reorder Buffer itself only
// flushes its own speculative state and that of the Reservation
// Station and Load/Store Queue it drives (§4.1, §5 "Cancellation").
type PipelineFlushRoot interface {
	Flush(correctedPC int64)
}

type robEntry struct {
	inst  *insts.Instruction
	tag   int64
	done  bool
	value int64

	// traceID is a run-scoped id for log lines only; tag allocation
	// (the modulo counter below) never reads it.
	traceID string
}

// ReorderBuffer is the in-order commit point: instructions are fed in
// program order, routed to the Reservation Station or Load/Store
// Queue with a freshly allocated tag, and retired — in order, up to
// width per cycle — once their result (or, for a Store, operands) is
// ready. A retiring mispredicted branch triggers a flush of every
// younger speculative instruction across the whole back end (§4.3).
type ReorderBuffer struct {
	capacity int
	width    int
	rs       *ReservationStation
	lsq      *LoadStoreQueue
	regfile  RegisterFile
	flushRoot PipelineFlushRoot

	current []*robEntry
	future  []*robEntry

	pendingFeed []*insts.Instruction
	nextTag     int64

	retired uint64
	flushes uint64

	log logr.Logger
}

// NewReorderBuffer returns an empty ReorderBuffer. capacity and width
// must be positive.
func NewReorderBuffer(capacity, width int, rs *ReservationStation, lsq *LoadStoreQueue, regfile RegisterFile, flushRoot PipelineFlushRoot) (*ReorderBuffer, error) {
	if capacity <= 0 {
		return nil, &ConfigError{Component: "ReorderBuffer", Reason: "non-positive capacity"}
	}
	if width <= 0 {
		return nil, &ConfigError{Component: "ReorderBuffer", Reason: "non-positive width"}
	}
	return &ReorderBuffer{
		capacity:  capacity,
		width:     width,
		rs:        rs,
		lsq:       lsq,
		regfile:   regfile,
		flushRoot: flushRoot,
		log:       logr.Discard(),
	}, nil
}

// SetLogger attaches log, used for retire and flush diagnostics. The
// zero-value ReorderBuffer logs nowhere until this is called.
func (rob *ReorderBuffer) SetLogger(log logr.Logger) {
	rob.log = log
}

// Full reports whether this buffer already holds capacity in-flight
// instructions, counting those fed this cycle that Operate has not yet
// routed.
func (rob *ReorderBuffer) Full() bool {
	return len(rob.current)+len(rob.pendingFeed) >= rob.capacity
}

// Empty reports whether this buffer holds no in-flight instructions at
// all, including anything fed this same cycle but not yet promoted —
// used by a driver to detect that a program has fully drained.
func (rob *ReorderBuffer) Empty() bool {
	return len(rob.current) == 0 && len(rob.pendingFeed) == 0
}

// Feed admits inst at the tail of the buffer. The caller must have
// checked Full() first; a tag is allocated and written onto inst, and
// inst is routed to the Reservation Station (ALU/branch kinds) or the
// Load/Store Queue (Load/Store) during this same cycle's Operate.
func (rob *ReorderBuffer) Feed(inst *insts.Instruction) {
	if rob.Full() {
		violate("ReorderBuffer", "fed while full")
	}
	rob.pendingFeed = append(rob.pendingFeed, inst)
}

// Receive captures a broadcast Result addressed to one of this
// buffer's in-flight entries (§4.6).
func (rob *ReorderBuffer) Receive(result insts.Result) {
	for _, e := range rob.current {
		if e.tag == result.Tag && !e.done {
			e.done = true
			e.value = result.Value
		}
	}
}

// Operate retires up to width ready entries from the head, routes
// newly fed instructions to the Reservation Station or Load/Store
// Queue with an allocated tag, and marks each routed destination
// register pending in the register file.
func (rob *ReorderBuffer) Operate() {
	future := make([]*robEntry, len(rob.current))
	copy(future, rob.current)

	retired := 0
	for retired < rob.width && len(future) > 0 {
		head := future[0]
		ready, mispredict, correctedPC := rob.retireCheck(head)
		if !ready {
			break
		}
		rob.commit(head, mispredict, correctedPC)
		rob.retired++
		if mispredict {
			// commit already called Flush, which reset rob.current and
			// rob.future (and the Reservation Station and Load/Store
			// Queue) to empty — every entry younger than the branch,
			// retired or not, is gone. Building future from the local
			// slice here would resurrect them, so Operate stops
			// immediately and leaves Flush's reset in place.
			return
		}
		future = future[1:]
		retired++
	}

	hasUnretiredBranch := false
	for _, e := range future {
		if e.inst.Kind == insts.KindBlth {
			hasUnretiredBranch = true
			break
		}
	}

	for _, inst := range rob.pendingFeed {
		tag := rob.nextTag
		rob.nextTag = (rob.nextTag + 1) % int64(rob.capacity)
		inst.Tag = tag
		rob.resolveOperands(inst)

		// An instruction dispatched while an older branch is still
		// in flight is control-dependent on that branch's outcome;
		// the Load/Store Queue relies on this flag to hold a Store's
		// memory write back until its own retirement (which, by the
		// Reorder Buffer's in-order commit, cannot happen before the
		// branch ahead of it has already retired) releases it (§3).
		inst.Speculative = hasUnretiredBranch
		if inst.Kind == insts.KindBlth {
			hasUnretiredBranch = true
		}

		if inst.RdArch != "" {
			rob.regfile.MarkPending(inst.RdArch, tag)
		}
		if inst.Kind.IsMemoryAccess() {
			rob.lsq.Feed(inst)
		} else {
			rob.rs.Feed(inst)
		}
		future = append(future, &robEntry{inst: inst, tag: tag, traceID: xid.New().String()})
	}

	rob.future = future
}

// resolveOperands renames inst's source registers at dispatch (§4.3):
// a register with no in-flight writer resolves to its committed value
// immediately; one still pending a tag resolves to an Operand waiting
// on that tag's Result broadcast. This is the Tomasulo rename step —
// everything downstream (the Reservation Station, the Load/Store
// Queue, Execute) reads only inst.Operands, never the register file
// directly.
func (rob *ReorderBuffer) resolveOperands(inst *insts.Instruction) {
	inst.Operands = make([]insts.Operand, len(inst.SrcArch))
	for i, name := range inst.SrcArch {
		if pendingTag, ok := rob.regfile.Pending(name); ok {
			inst.Operands[i] = insts.PendingOperand(pendingTag)
		} else {
			inst.Operands[i] = insts.LiteralOperand(rob.regfile.Get(name))
		}
	}
}

// retireCheck reports whether head is ready to retire this cycle and,
// for a Blth, whether it was mispredicted and what the corrected PC
// is.
func (rob *ReorderBuffer) retireCheck(head *robEntry) (ready, mispredict bool, correctedPC int64) {
	switch head.inst.Kind {
	case insts.KindStore:
		return head.inst.CanDispatch(), false, 0
	case insts.KindBlth:
		if !head.done {
			return false, false, 0
		}
		actualTaken := head.value != 0
		var predictedTaken bool
		var pcAtDispatch int64
		if head.inst.Branch != nil {
			predictedTaken = head.inst.Branch.PredictedTaken
			pcAtDispatch = head.inst.Branch.PCAtDispatch
		}
		if actualTaken == predictedTaken {
			return true, false, 0
		}
		if actualTaken {
			return true, true, head.inst.Target
		}
		return true, true, pcAtDispatch + 1
	default:
		return head.done, false, 0
	}
}

func (rob *ReorderBuffer) commit(head *robEntry, mispredict bool, correctedPC int64) {
	rob.log.V(1).Info("retire", "trace", head.traceID, "tag", head.tag, "kind", head.inst.Kind)
	switch head.inst.Kind {
	case insts.KindStore:
		rob.lsq.ReleaseSpeculative(head.tag)
	case insts.KindJump, insts.KindBlth:
		if mispredict {
			rob.flushes++
			rob.log.Info("flush", "trace", head.traceID, "correctedPC", correctedPC)
			rob.Flush()
			rob.flushRoot.Flush(correctedPC)
		}
	default:
		rob.regfile.ClearPending(head.inst.RdArch, head.tag)
		rob.regfile.Set(head.inst.RdArch, head.value)
	}
}

// Trigger promotes the retire/feed outcome computed in Operate to
// current.
func (rob *ReorderBuffer) Trigger() {
	rob.current = rob.future
	rob.future = nil
	rob.pendingFeed = nil
}

// Flush discards every in-flight entry and recursively flushes the
// Reservation Station and Load/Store Queue, resetting tag allocation.
// It does not itself notify the PipelineFlushRoot — commit does that,
// once, at the mispredicting branch — so that calling Flush directly
// (e.g. from a test) never drives an unrelated front end.
func (rob *ReorderBuffer) Flush() {
	rob.current = nil
	rob.future = nil
	rob.pendingFeed = nil
	rob.nextTag = 0
	rob.regfile.ClearAllPending()
	rob.rs.Flush()
	rob.lsq.Flush()
}

// Retired returns the total number of instructions retired (committed
// or mispredicted-and-discarded) over the lifetime of this buffer.
func (rob *ReorderBuffer) Retired() uint64 {
	return rob.retired
}

// Flushes returns the total number of mispredict-triggered flushes
// over the lifetime of this buffer.
func (rob *ReorderBuffer) Flushes() uint64 {
	return rob.flushes
}
