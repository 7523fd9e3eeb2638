// Package program loads the tiny custom assembly this simulator
// executes: a plain text scanner rather than a binary parser, since
// the instruction set is the spec's own ten mnemonics, not ELF (the
// teacher's loader.Load parses an ARM64 ELF binary; the shape —
// fmt.Errorf-wrapped errors, a Program result struct — carries over,
// the binary format does not).
package program

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samgd/procsim/insts"
)

// Program is a decoded sequence of instruction strings ready to be fed
// into a timing.Core one at a time, in order.
type Program struct {
	Lines []string
	// Branches maps a 1-indexed instruction position to the predicted
	// outcome for that instruction's branch, loaded from a .branch
	// sidecar. Positions count only the lines kept in Lines; blank and
	// comment lines of the file are not counted.
	Branches map[int]insts.BranchInfo
}

// branchSidecar is the JSON shape of a .branch file: a map from line
// number (as a string key, since JSON object keys are always strings)
// to the prediction for that line.
type branchSidecar map[string]struct {
	PredictedTaken  bool  `json:"predicted_taken"`
	PredictedTarget int64 `json:"predicted_target"`
}

// Load reads path as a .asm text file: one instruction string per
// line, blank lines and lines starting with # ignored. If a sidecar
// file at the same path with a .branch extension exists, its
// predictions are attached by instruction position (see Branches).
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("program: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	prog := &Program{Branches: map[int]insts.BranchInfo{}}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prog.Lines = append(prog.Lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("program: read %s: %w", path, err)
	}

	sidecarPath := branchSidecarPath(path)
	if data, err := os.ReadFile(sidecarPath); err == nil {
		var raw branchSidecar
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("program: parse %s: %w", sidecarPath, err)
		}
		for key, prediction := range raw {
			n, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("program: %s: invalid line number key %q", sidecarPath, key)
			}
			prog.Branches[n] = insts.BranchInfo{
				PredictedTaken:  prediction.PredictedTaken,
				PredictedTarget: prediction.PredictedTarget,
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("program: read %s: %w", sidecarPath, err)
	}

	return prog, nil
}

func branchSidecarPath(path string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return path[:idx] + ".branch"
	}
	return path + ".branch"
}

// Decode decodes every line in the Program via insts.Decode, attaching
// BranchInfo where a prediction was loaded for that line. PCAtDispatch
// is set to the instruction's 1-indexed position in Lines, standing in for a
// real program counter since there is no front end in this package to
// assign addresses.
func (p *Program) Decode() ([]*insts.Instruction, error) {
	out := make([]*insts.Instruction, 0, len(p.Lines))
	for i, line := range p.Lines {
		lineNo := i + 1
		var branch *insts.BranchInfo
		if info, ok := p.Branches[lineNo]; ok {
			info.PCAtDispatch = int64(lineNo)
			branch = &info
		}
		inst, err := insts.Decode(line, branch)
		if err != nil {
			return nil, fmt.Errorf("program: line %d: %w", lineNo, err)
		}
		out = append(out, inst)
	}
	return out, nil
}
