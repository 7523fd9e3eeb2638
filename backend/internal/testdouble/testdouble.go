// Package testdouble provides minimal recording stand-ins for backend
// package tests, grounded on the Python original's test fixtures
// (test/feed_log.py and its siblings): a collaborator that logs
// whatever it receives instead of doing real work, so a test can
// assert on call order and arguments without wiring a full component.
package testdouble

import "github.com/samgd/procsim/insts"

// FeedLog records every fed Instruction and is never full.
type FeedLog struct {
	Log []*insts.Instruction
}

func (f *FeedLog) Full() bool { return false }

func (f *FeedLog) Feed(inst *insts.Instruction) {
	f.Log = append(f.Log, inst)
}

// BusLog records every broadcast Result instead of delivering it
// anywhere.
type BusLog struct {
	Log []insts.Result
}

func (b *BusLog) Broadcast(result insts.Result) {
	b.Log = append(b.Log, result)
}

func (b *BusLog) Reset() {
	b.Log = nil
}

// FlushableLog records how many times Flush was called and, for use
// as a PipelineFlushRoot double, the corrected PC from the most
// recent call.
type FlushableLog struct {
	Flushes       int
	CorrectedPC   int64
	LastCorrected int64
}

func (f *FlushableLog) Flush(correctedPC int64) {
	f.Flushes++
	f.CorrectedPC = correctedPC
	f.LastCorrected = correctedPC
}

// RegisterFileLog is a minimal RegisterFile double recording Set and
// pending calls without any committed-value storage beyond a map.
type RegisterFileLog struct {
	Values  map[string]int64
	pending map[string]int64
	SetLog  []SetCall
}

type SetCall struct {
	Name  string
	Value int64
}

func NewRegisterFileLog() *RegisterFileLog {
	return &RegisterFileLog{Values: map[string]int64{}, pending: map[string]int64{}}
}

func (r *RegisterFileLog) Get(name string) int64 { return r.Values[name] }

func (r *RegisterFileLog) Set(name string, value int64) {
	r.Values[name] = value
	r.SetLog = append(r.SetLog, SetCall{Name: name, Value: value})
}

func (r *RegisterFileLog) MarkPending(name string, tag int64) {
	r.pending[name] = tag
}

func (r *RegisterFileLog) ClearPending(name string, tag int64) {
	if r.pending[name] == tag {
		delete(r.pending, name)
	}
}

func (r *RegisterFileLog) Pending(name string) (int64, bool) {
	tag, ok := r.pending[name]
	return tag, ok
}

func (r *RegisterFileLog) ClearAllPending() {
	r.pending = make(map[string]int64)
}
