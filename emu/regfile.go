// Package emu provides the non-clocked architectural state the back-end
// commits into: the register file and flat memory array. Neither type
// has clocked behavior of its own — they are simple indexed stores
// written only from a Clocked component's operate() phase (see package
// backend).
package emu

import "fmt"

// RegisterFile is a named-register store with a rename overlay.
//
// Values are addressed by architectural name ("r0".."rN", "pc"). While
// an instruction targeting a register is in flight, the register is
// marked pending on that instruction's tag; a later write through Set
// is always allowed (it represents committed state), but MarkPending
// and ClearPending implement the rename-bookkeeping the Reorder Buffer
// needs to detect write-after-write hazards at retirement (§4.3).
type RegisterFile struct {
	values  map[string]int64
	pending map[string]int64
}

// NewRegisterFile creates a RegisterFile with the given initial values.
// Any register name read before being present in init defaults to 0.
func NewRegisterFile(init map[string]int64) *RegisterFile {
	rf := &RegisterFile{
		values:  make(map[string]int64, len(init)),
		pending: make(map[string]int64),
	}
	for name, v := range init {
		rf.values[name] = v
	}
	return rf
}

// Get returns the architectural value of the named register. Unknown
// names read as 0, matching the Python original's defaultdict-like
// register file.
func (rf *RegisterFile) Get(name string) int64 {
	return rf.values[name]
}

// Set commits a value to the named register.
func (rf *RegisterFile) Set(name string, value int64) {
	rf.values[name] = value
}

// MarkPending records that name's next committed value will come from
// the instruction holding tag. Called by the ROB when an instruction
// with an architectural destination is fed (§4.3 feed()).
func (rf *RegisterFile) MarkPending(name string, tag int64) {
	rf.pending[name] = tag
}

// ClearPending removes the pending mark on name, but only if it still
// points at tag — an older in-flight write must not clear a mark a
// younger instruction has since installed (write-after-write hazard,
// §4.3 operate()).
func (rf *RegisterFile) ClearPending(name string, tag int64) {
	if cur, ok := rf.pending[name]; ok && cur == tag {
		delete(rf.pending, name)
	}
}

// ClearAllPending drops every rename mark. Used by flush (§4.3 flush()).
func (rf *RegisterFile) ClearAllPending() {
	rf.pending = make(map[string]int64)
}

// Pending reports the tag name is renamed to, if any.
func (rf *RegisterFile) Pending(name string) (tag int64, ok bool) {
	tag, ok = rf.pending[name]
	return tag, ok
}

// Equal reports whether two RegisterFiles hold identical committed
// values. Pending marks are transient rename state and are not
// compared — two RegisterFiles that agree on architectural state but
// differ in which tags are currently renaming a register are
// considered equal, matching the Python test suite's use of
// RegisterFile equality to assert committed state only.
func (rf *RegisterFile) Equal(other *RegisterFile) bool {
	if other == nil {
		return false
	}
	if len(rf.values) != len(other.values) {
		return false
	}
	for name, v := range rf.values {
		if ov, ok := other.values[name]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String renders the committed register values for debug logging.
func (rf *RegisterFile) String() string {
	return fmt.Sprintf("RegisterFile(%v)", rf.values)
}
