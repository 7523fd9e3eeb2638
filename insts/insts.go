// Package insts defines the tiny custom instruction set the back-end
// executes: a tagged-variant Instruction type plus the capability and
// operand-renaming machinery the Reservation Station, Load/Store Queue
// and Reorder Buffer share.
//
// Per the design notes this favors a single struct with a Kind
// discriminator and a dispatching Execute method over a class
// hierarchy with virtual execute(context) overrides — no inheritance
// is needed to support the ten recognized mnemonics.
package insts

import (
	"fmt"

	"github.com/samgd/procsim/emu"
)

// Kind identifies which of the ten recognized mnemonics an Instruction
// represents.
type Kind uint8

const (
	// KindAdd is "add rd r1 r2".
	KindAdd Kind = iota
	// KindAddI is "addi rd r1 imm".
	KindAddI
	// KindSub is "sub rd r1 r2".
	KindSub
	// KindSubI is "subi rd r1 imm".
	KindSubI
	// KindMul is "mul rd r1 r2".
	KindMul
	// KindMulI is "muli rd r1 imm".
	KindMulI
	// KindLoad is "ldr rd addr-reg".
	KindLoad
	// KindStore is "str addr-reg val-reg".
	KindStore
	// KindJump is "j imm".
	KindJump
	// KindBlth is "blth r1 r2 target".
	KindBlth
)

// String renders the mnemonic for a Kind.
func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindAddI:
		return "addi"
	case KindSub:
		return "sub"
	case KindSubI:
		return "subi"
	case KindMul:
		return "mul"
	case KindMulI:
		return "muli"
	case KindLoad:
		return "ldr"
	case KindStore:
		return "str"
	case KindJump:
		return "j"
	case KindBlth:
		return "blth"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Capability is a tag an ExecutionUnit advertises and an Instruction's
// capability hierarchy is matched against. Capabilities are walked from
// most specific (the Instruction's own Kind) to most general (CapAny),
// replacing the class-hierarchy walk (inspect.getmro in the original
// Python) with explicit tag membership (§9 design note).
type Capability uint8

const (
	CapAdd Capability = iota
	CapAddI
	CapSub
	CapSubI
	CapMul
	CapMulI
	CapLoad
	CapStore
	CapJump
	CapBlth
	// CapALU matches any arithmetic instruction.
	CapALU
	// CapMemoryAccess matches any load or store.
	CapMemoryAccess
	// CapBranch matches any control-transfer instruction.
	CapBranch
	// CapAny matches anything — the universal fallback capability.
	CapAny
)

func (c Capability) String() string {
	names := map[Capability]string{
		CapAdd: "Add", CapAddI: "AddI", CapSub: "Sub", CapSubI: "SubI",
		CapMul: "Mul", CapMulI: "MulI", CapLoad: "Load", CapStore: "Store",
		CapJump: "Jump", CapBlth: "Blth", CapALU: "ALU",
		CapMemoryAccess: "MemoryAccess", CapBranch: "Branch", CapAny: "Any",
	}
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("Capability(%d)", uint8(c))
}

var kindCapability = map[Kind]Capability{
	KindAdd: CapAdd, KindAddI: CapAddI, KindSub: CapSub, KindSubI: CapSubI,
	KindMul: CapMul, KindMulI: CapMulI, KindLoad: CapLoad, KindStore: CapStore,
	KindJump: CapJump, KindBlth: CapBlth,
}

// Capabilities returns the capability hierarchy for this Instruction's
// Kind, most specific first, as the Reservation Station's dispatch
// algorithm requires (§4.2).
func (k Kind) Capabilities() []Capability {
	switch k {
	case KindAdd, KindAddI, KindSub, KindSubI, KindMul, KindMulI:
		return []Capability{kindCapability[k], CapALU, CapAny}
	case KindLoad, KindStore:
		return []Capability{kindCapability[k], CapMemoryAccess, CapAny}
	case KindJump, KindBlth:
		return []Capability{kindCapability[k], CapBranch, CapAny}
	default:
		return []Capability{CapAny}
	}
}

// IsMemoryAccess reports whether the Kind is a Load or Store, i.e.
// belongs in the Load/Store Queue rather than the Reservation Station.
func (k Kind) IsMemoryAccess() bool {
	return k == KindLoad || k == KindStore
}

// ProducesResult reports whether executing an Instruction of this Kind
// broadcasts a Result on the bus. Stores write memory directly and
// never broadcast (§3).
func (k Kind) ProducesResult() bool {
	return k != KindStore
}

// Operand is either an immediately available value or a value pending
// a Result broadcast tagged with Tag. It becomes Filled upon receiving
// a matching Result (§3 Operand).
type Operand struct {
	Filled bool
	Value  int64
	Tag    int64
}

// LiteralOperand returns an already-filled Operand.
func LiteralOperand(value int64) Operand {
	return Operand{Filled: true, Value: value}
}

// PendingOperand returns an unfilled Operand waiting on tag.
func PendingOperand(tag int64) Operand {
	return Operand{Filled: false, Tag: tag}
}

// Receive fills the Operand if it is unfilled and waiting on tag.
// Receiving a Result for an already-filled Operand, or for a tag it is
// not waiting on, is a no-op — broadcasts are delivered to every
// subscriber and each Operand is responsible for filtering by tag.
func (o *Operand) Receive(tag int64, value int64) {
	if !o.Filled && o.Tag == tag {
		o.Value = value
		o.Filled = true
	}
}

// BranchInfo carries the predicted outcome/target a Blth or Jump was
// dispatched with, captured at decode/dispatch time so the Reorder
// Buffer can validate it at retirement (§3, §6).
type BranchInfo struct {
	PredictedTaken  bool
	PredictedTarget int64
	PCAtDispatch    int64
}

// Instruction is the tagged variant covering all ten recognized
// mnemonics. Which fields are meaningful is determined by Kind; see
// the mnemonic table in spec §6.
type Instruction struct {
	Kind Kind

	// Tag is assigned by the Reorder Buffer when the instruction is
	// fed (§4.3); zero until then.
	Tag int64

	// RdArch is the architectural destination register name for ALU
	// ops and Load. Empty for Store, Jump and Blth.
	RdArch string

	// SrcArch holds the architectural source register names in
	// mnemonic order. For Store it is {addrReg, valReg}; for Blth it
	// is {r1, r2}; for Add/Sub/Mul it is {r1, r2}; for the immediate
	// forms and Load it is {r1} / {addrReg} respectively. Jump has no
	// source registers.
	SrcArch []string

	// Imm holds the immediate operand for the *I forms. Target holds
	// the Jump/Blth control-transfer target.
	Imm     int64
	HasImm  bool
	Target  int64
	Branch  *BranchInfo

	// Operands holds the renamed operands, parallel to SrcArch,
	// populated by the Reorder Buffer at feed time from the register
	// file's committed value or pending-tag overlay (§4.3).
	Operands []Operand

	// Speculative is true if this instruction was fed in the shadow
	// of an unresolved branch (§3 Speculative, Glossary).
	Speculative bool
}

// CanDispatch reports whether every Operand this Instruction needs has
// been filled.
func (i *Instruction) CanDispatch() bool {
	for _, op := range i.Operands {
		if !op.Filled {
			return false
		}
	}
	return true
}

// Receive delivers a broadcast Result to every unfilled Operand
// waiting on tag.
func (i *Instruction) Receive(tag int64, value int64) {
	for idx := range i.Operands {
		i.Operands[idx].Receive(tag, value)
	}
}

// Result is a (tag, value) pair broadcast on the Common Data Bus (§3).
// Branch outcomes are carried as 0 (not taken) / 1 (taken) in Value.
type Result struct {
	Tag   int64
	Value int64
}

// Execute computes the effect of this Instruction given resolved
// operands. ALU instructions and Load return a non-nil Result to
// broadcast; Store performs the memory write directly and returns nil
// (§3: "writes memory only at commit-release" — the caller, the
// Load/Store Queue, controls *when* Execute is invoked for a
// speculative store so the write does not happen before release).
// Jump and Blth return the actual taken/not-taken outcome as Value.
func (i *Instruction) Execute(mem *emu.Memory) *Result {
	switch i.Kind {
	case KindAdd:
		return &Result{Tag: i.Tag, Value: i.Operands[0].Value + i.Operands[1].Value}
	case KindAddI:
		return &Result{Tag: i.Tag, Value: i.Operands[0].Value + i.Imm}
	case KindSub:
		return &Result{Tag: i.Tag, Value: i.Operands[0].Value - i.Operands[1].Value}
	case KindSubI:
		return &Result{Tag: i.Tag, Value: i.Operands[0].Value - i.Imm}
	case KindMul:
		return &Result{Tag: i.Tag, Value: i.Operands[0].Value * i.Operands[1].Value}
	case KindMulI:
		return &Result{Tag: i.Tag, Value: i.Operands[0].Value * i.Imm}
	case KindLoad:
		addr := i.Operands[0].Value
		return &Result{Tag: i.Tag, Value: mem.Read(int(addr))}
	case KindStore:
		addr := i.Operands[0].Value
		val := i.Operands[1].Value
		mem.Write(int(addr), val)
		return nil
	case KindJump:
		return &Result{Tag: i.Tag, Value: 1}
	case KindBlth:
		taken := int64(0)
		if i.Operands[0].Value < i.Operands[1].Value {
			taken = 1
		}
		return &Result{Tag: i.Tag, Value: taken}
	default:
		panic(fmt.Sprintf("insts: unknown Kind %v", i.Kind))
	}
}

func (i *Instruction) String() string {
	switch i.Kind {
	case KindAddI, KindSubI, KindMulI:
		return fmt.Sprintf("%s %s %s %d", i.Kind, i.RdArch, i.SrcArch[0], i.Imm)
	case KindAdd, KindSub, KindMul:
		return fmt.Sprintf("%s %s %s %s", i.Kind, i.RdArch, i.SrcArch[0], i.SrcArch[1])
	case KindLoad:
		return fmt.Sprintf("ldr %s %s", i.RdArch, i.SrcArch[0])
	case KindStore:
		return fmt.Sprintf("str %s %s", i.SrcArch[0], i.SrcArch[1])
	case KindJump:
		return fmt.Sprintf("j %d", i.Target)
	case KindBlth:
		return fmt.Sprintf("blth %s %s %d", i.SrcArch[0], i.SrcArch[1], i.Target)
	default:
		return fmt.Sprintf("Instruction(%v)", i.Kind)
	}
}
