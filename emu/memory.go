package emu

import "fmt"

// AddressError reports an out-of-range or negative memory access. A
// well-formed decoded program never produces one — it is the emu
// package's half of the programmer-error taxonomy described in spec
// §7 (the backend package's ConfigError/InvariantViolation cover the
// other structures).
type AddressError struct {
	Address int
	Size    int
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("emu: address %d out of range [0, %d)", e.Address, e.Size)
}

// Memory is a flat, word-addressed integer array.
type Memory struct {
	words []int64
}

// NewMemory allocates a zeroed Memory of the given size.
func NewMemory(size int) *Memory {
	if size < 0 {
		size = 0
	}
	return &Memory{words: make([]int64, size)}
}

// Len returns the number of addressable words.
func (m *Memory) Len() int {
	return len(m.words)
}

// Read returns the word at address, panicking with *AddressError if
// address is out of range.
func (m *Memory) Read(address int) int64 {
	if address < 0 || address >= len(m.words) {
		panic(&AddressError{Address: address, Size: len(m.words)})
	}
	return m.words[address]
}

// Write stores value at address, panicking with *AddressError if
// address is out of range.
func (m *Memory) Write(address int, value int64) {
	if address < 0 || address >= len(m.words) {
		panic(&AddressError{Address: address, Size: len(m.words)})
	}
	m.words[address] = value
}

// Snapshot returns a copy of the memory contents, used by tests that
// need to compare a simulated run against a sequentially executed
// reference (spec §8 scenario 4).
func (m *Memory) Snapshot() []int64 {
	out := make([]int64, len(m.words))
	copy(out, m.words)
	return out
}
