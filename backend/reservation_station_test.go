package backend_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samgd/procsim/backend"
	"github.com/samgd/procsim/insts"
)

var _ = Describe("ReservationStation", func() {
	var bus *backend.CommonDataBus

	BeforeEach(func() {
		bus = backend.NewCommonDataBus()
	})

	newALUUnit := func(delay int) *backend.ExecutionUnit {
		eu, err := backend.NewExecutionUnit([]insts.Capability{insts.CapALU}, delay, bus)
		Expect(err).NotTo(HaveOccurred())
		return eu
	}

	It("rejects non-positive capacity, non-positive width, and no units", func() {
		eu := newALUUnit(1)
		_, err := backend.NewReservationStation(0, 1, []*backend.ExecutionUnit{eu})
		Expect(err).To(HaveOccurred())
		_, err = backend.NewReservationStation(1, 0, []*backend.ExecutionUnit{eu})
		Expect(err).To(HaveOccurred())
		_, err = backend.NewReservationStation(1, 1, nil)
		Expect(err).To(HaveOccurred())
	})

	It("reports Full once capacity instructions are buffered", func() {
		eu := newALUUnit(1)
		rs, err := backend.NewReservationStation(2, 1, []*backend.ExecutionUnit{eu})
		Expect(err).NotTo(HaveOccurred())

		pending := &insts.Instruction{Kind: insts.KindAdd, Operands: []insts.Operand{insts.PendingOperand(1), insts.PendingOperand(2)}}
		Expect(rs.Full()).To(BeFalse())
		rs.Feed(pending)
		backend.Tick(rs)
		Expect(rs.Full()).To(BeFalse())
		rs.Feed(&insts.Instruction{Kind: insts.KindAdd, Operands: []insts.Operand{insts.PendingOperand(3), insts.PendingOperand(4)}})
		backend.Tick(rs)
		Expect(rs.Full()).To(BeTrue())
	})

	It("fans broadcast Results out to buffered operands", func() {
		eu := newALUUnit(5)
		rs, _ := backend.NewReservationStation(4, 1, []*backend.ExecutionUnit{eu})
		inst := &insts.Instruction{Kind: insts.KindAdd, Operands: []insts.Operand{insts.PendingOperand(1), insts.PendingOperand(2)}}
		rs.Feed(inst)
		backend.Tick(rs)

		rs.Receive(insts.Result{Tag: 1, Value: 10})
		rs.Receive(insts.Result{Tag: 2, Value: 20})

		Expect(inst.CanDispatch()).To(BeTrue())
	})

	It("issues a dispatch-ready instruction to a capability-matched unit", func() {
		eu := newALUUnit(0)
		recorder := &recordingSubscriber{}
		bus.Subscribe(recorder)
		rs, _ := backend.NewReservationStation(4, 1, []*backend.ExecutionUnit{eu})

		inst := &insts.Instruction{Tag: 9, Kind: insts.KindAdd, Operands: []insts.Operand{
			insts.LiteralOperand(3), insts.LiteralOperand(4),
		}}
		rs.Feed(inst)
		backend.Tick(rs)
		Expect(rs.Full()).To(BeFalse())

		for i := 0; i < 2; i++ {
			backend.Tick(rs)
			backend.Tick(eu)
		}
		Expect(recorder.received).To(ContainElement(insts.Result{Tag: 9, Value: 7}))
	})

	It("does not issue more than width instructions in a cycle", func() {
		first := newALUUnit(5)
		second := newALUUnit(5)
		rs, _ := backend.NewReservationStation(4, 1, []*backend.ExecutionUnit{first, second})

		a := &insts.Instruction{Kind: insts.KindAdd, Operands: []insts.Operand{insts.LiteralOperand(1), insts.LiteralOperand(1)}}
		b := &insts.Instruction{Kind: insts.KindAdd, Operands: []insts.Operand{insts.LiteralOperand(2), insts.LiteralOperand(2)}}
		rs.Feed(a)
		rs.Feed(b)
		backend.Tick(rs)

		backend.Tick(rs)
		backend.Tick(first)
		backend.Tick(second)
		// Two idle units could take both ready instructions, but width 1
		// lets only one issue this cycle; the other remains buffered.
		Expect(first.Full()).To(BeTrue())
		Expect(second.Full()).To(BeFalse())
		Expect(rs.Full()).To(BeFalse())
	})

	It("flushes buffered instructions and its registered units", func() {
		eu := newALUUnit(5)
		rs, _ := backend.NewReservationStation(4, 1, []*backend.ExecutionUnit{eu})
		rs.Feed(&insts.Instruction{Kind: insts.KindAdd, Operands: []insts.Operand{insts.LiteralOperand(1), insts.LiteralOperand(1)}})
		backend.Tick(rs)
		backend.Tick(rs)

		rs.Flush()
		Expect(rs.Full()).To(BeFalse())
		Expect(eu.Full()).To(BeFalse())
	})
})
