// Package memtrace adapts emu.Memory to the byte-addressed
// BackingStore contract the teacher's timing/cache package defines,
// and layers a small akita-backed occupancy directory on top so a
// driver can ask which words a run touched. It is not wired into the
// Load/Store Queue's hot path — the queue talks to emu.Memory
// directly — this is an optional trace sink for post-hoc inspection.
package memtrace

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/samgd/procsim/emu"
)

const wordBytes = 8

// BackingStore mirrors the teacher's cache.BackingStore: a byte
// addressed, byte sized read/write contract for the next level down
// in a memory hierarchy.
type BackingStore interface {
	Read(addr uint64, size int) []byte
	Write(addr uint64, data []byte)
}

// MemoryBacking wraps emu.Memory as a BackingStore, translating byte
// addresses into this simulator's word-addressed storage. It is the
// same adapter shape as the teacher's cache.MemoryBacking, over a
// word rather than byte backing array.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking returns a BackingStore view of memory.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read returns size bytes starting at the word that holds byte address
// addr: addr is rounded down to a word boundary, so an unaligned addr
// also returns the bytes before it in that word.
func (m *MemoryBacking) Read(addr uint64, size int) []byte {
	out := make([]byte, 0, size)
	word := int(addr / wordBytes)
	for len(out) < size {
		v := m.memory.Read(word)
		for shift := 0; shift < wordBytes && len(out) < size; shift++ {
			out = append(out, byte(v>>(shift*8)))
		}
		word++
	}
	return out
}

// Write stores data starting at the word that holds byte address addr,
// rounded down to a word boundary. It replaces whole words, so a
// trailing partial word has its remaining bytes set to zero.
func (m *MemoryBacking) Write(addr uint64, data []byte) {
	word := int(addr / wordBytes)
	for i := 0; i < len(data); i += wordBytes {
		var v int64
		for shift := 0; shift < wordBytes && i+shift < len(data); shift++ {
			v |= int64(data[i+shift]) << (shift * 8)
		}
		m.memory.Write(word, v)
		word++
	}
}

// Trace records which words have been touched since the last Reset,
// using an akita cache directory purely as an occupancy set: one way
// per set, one word per block, no hit/miss handling and no backing
// fetch on a recorded miss. A driver calls Record after every write
// the Load/Store Queue performs and can later ask Touched to build a
// diff against a prior Snapshot.
type Trace struct {
	backing   *MemoryBacking
	directory *akitacache.DirectoryImpl
}

// NewTrace returns a Trace over memory.
func NewTrace(memory *emu.Memory) *Trace {
	return &Trace{
		backing: NewMemoryBacking(memory),
		directory: akitacache.NewDirectory(
			memory.Len(),
			1,
			wordBytes,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Record marks the word at wordAddr as touched.
func (t *Trace) Record(wordAddr int64) {
	blockAddr := uint64(wordAddr) * wordBytes
	block := t.directory.Lookup(0, blockAddr)
	if block == nil {
		block = t.directory.FindVictim(blockAddr)
		if block == nil {
			return
		}
		block.Tag = blockAddr
		block.IsValid = true
	}
	t.directory.Visit(block)
}

// Touched reports whether Record has been called for wordAddr since
// the last Reset.
func (t *Trace) Touched(wordAddr int64) bool {
	block := t.directory.Lookup(0, uint64(wordAddr)*wordBytes)
	return block != nil && block.IsValid
}

// Reset clears every recorded touch.
func (t *Trace) Reset() {
	t.directory.Reset()
}

// Read and Write expose the wrapped BackingStore directly, so a
// driver can pull a byte-level view through the same interface the
// teacher's cache.Cache expects from its backing store.
func (t *Trace) Read(addr uint64, size int) []byte {
	return t.backing.Read(addr, size)
}

func (t *Trace) Write(addr uint64, data []byte) {
	t.backing.Write(addr, data)
}
