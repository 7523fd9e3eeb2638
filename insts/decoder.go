package insts

import (
	"fmt"
	"strconv"
	"strings"
)

// UnknownInstructionError is returned by Decode for a malformed or
// unrecognized instruction string. It is ordinary front-end input
// validation (decode is an external collaborator per spec §1), so it
// is a plain returned error rather than a panic.
type UnknownInstructionError struct {
	Line string
}

func (e *UnknownInstructionError) Error() string {
	return fmt.Sprintf("insts: unknown instruction %q", e.Line)
}

type decodeFunc func(fields []string) (*Instruction, error)

// decoders is a per-mnemonic dispatch table, directly grounded on the
// Python original's gen_ins dict-of-lambdas
// (original_source/procsim/front_end/decode.py).
var decoders = map[string]decodeFunc{
	"add":  decodeTriReg(KindAdd),
	"sub":  decodeTriReg(KindSub),
	"mul":  decodeTriReg(KindMul),
	"addi": decodeRegRegImm(KindAddI),
	"subi": decodeRegRegImm(KindSubI),
	"muli": decodeRegRegImm(KindMulI),
	"ldr":  decodeLoad,
	"str":  decodeStore,
	"j":    decodeJump,
	"blth": decodeBlth,
}

// Decode parses one instruction-string line ("add r1 r2 r3") into an
// Instruction. branchInfo, if non-nil, is attached to a decoded Blth or
// Jump —
// it is not itself computed here: branch prediction is out of scope
// for this package (§1), the value is simply threaded through from
// whatever supplied it (a test fixture, or the program loader's
// sidecar metadata).
func Decode(line string, branchInfo *BranchInfo) (*Instruction, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, &UnknownInstructionError{Line: line}
	}

	fn, ok := decoders[fields[0]]
	if !ok {
		return nil, &UnknownInstructionError{Line: line}
	}

	inst, err := fn(fields[1:])
	if err != nil {
		return nil, &UnknownInstructionError{Line: line}
	}

	if inst.Kind == KindBlth || inst.Kind == KindJump {
		inst.Branch = branchInfo
	}

	return inst, nil
}

func decodeTriReg(kind Kind) decodeFunc {
	return func(f []string) (*Instruction, error) {
		if len(f) != 3 {
			return nil, fmt.Errorf("want 3 operands, got %d", len(f))
		}
		return &Instruction{
			Kind:    kind,
			RdArch:  f[0],
			SrcArch: []string{f[1], f[2]},
		}, nil
	}
}

func decodeRegRegImm(kind Kind) decodeFunc {
	return func(f []string) (*Instruction, error) {
		if len(f) != 3 {
			return nil, fmt.Errorf("want 3 operands, got %d", len(f))
		}
		imm, err := strconv.ParseInt(f[2], 10, 64)
		if err != nil {
			return nil, err
		}
		return &Instruction{
			Kind:    kind,
			RdArch:  f[0],
			SrcArch: []string{f[1]},
			Imm:     imm,
			HasImm:  true,
		}, nil
	}
}

func decodeLoad(f []string) (*Instruction, error) {
	if len(f) != 2 {
		return nil, fmt.Errorf("want 2 operands, got %d", len(f))
	}
	return &Instruction{
		Kind:    KindLoad,
		RdArch:  f[0],
		SrcArch: []string{f[1]},
	}, nil
}

func decodeStore(f []string) (*Instruction, error) {
	if len(f) != 2 {
		return nil, fmt.Errorf("want 2 operands, got %d", len(f))
	}
	return &Instruction{
		Kind:    KindStore,
		SrcArch: []string{f[0], f[1]},
	}, nil
}

func decodeJump(f []string) (*Instruction, error) {
	if len(f) != 1 {
		return nil, fmt.Errorf("want 1 operand, got %d", len(f))
	}
	imm, err := strconv.ParseInt(f[0], 10, 64)
	if err != nil {
		return nil, err
	}
	return &Instruction{Kind: KindJump, Target: imm}, nil
}

func decodeBlth(f []string) (*Instruction, error) {
	if len(f) != 3 {
		return nil, fmt.Errorf("want 3 operands, got %d", len(f))
	}
	target, err := strconv.ParseInt(f[2], 10, 64)
	if err != nil {
		return nil, err
	}
	return &Instruction{
		Kind:    KindBlth,
		SrcArch: []string{f[0], f[1]},
		Target:  target,
	}, nil
}
