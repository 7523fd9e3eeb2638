package backend

import "github.com/samgd/procsim/insts"

// Subscriber receives every Result broadcast on the Common Data Bus
// and is responsible for filtering by tag (§4.6).
type Subscriber interface {
	Receive(result insts.Result)
}

// CommonDataBus is the broadcast fabric connecting Result producers
// (Execution Units, the Load/Store Queue) to every subscriber (the
// Reservation Station, the Load/Store Queue, the Reorder Buffer).
//
// It is deliberately not itself a Clocked component: a producer calls
// Broadcast from within its own Operate(), and Broadcast fans the
// Result out synchronously into each subscriber's Receive. Receive
// applies the value directly to the subscriber's already-buffered
// entries rather than staging it into future state, so a subscriber
// that has not yet ticked this cycle acts on it in this cycle's
// Operate(), while one that has already ticked acts on it next cycle.
// The bus itself needs no state of its own.
type CommonDataBus struct {
	subscribers []Subscriber
}

// NewCommonDataBus returns an empty CommonDataBus.
func NewCommonDataBus() *CommonDataBus {
	return &CommonDataBus{}
}

// Subscribe registers s to receive every future broadcast.
func (b *CommonDataBus) Subscribe(s Subscriber) {
	b.subscribers = append(b.subscribers, s)
}

// Broadcast delivers result to every subscriber. The single-writer-
// per-tag property (§4.6) means a caller must never broadcast two
// Results with the same tag in one cycle; the bus does not itself
// detect a violation since that would require buffering across an
// entire cycle, which the two-phase discipline's synchronous fan-out
// specifically avoids.
func (b *CommonDataBus) Broadcast(result insts.Result) {
	for _, s := range b.subscribers {
		s.Receive(result)
	}
}
