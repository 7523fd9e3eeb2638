package backend_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samgd/procsim/backend"
	"github.com/samgd/procsim/emu"
	"github.com/samgd/procsim/insts"
)

var _ = Describe("LoadStoreQueue", func() {
	var (
		bus *backend.CommonDataBus
		mem *emu.Memory
	)

	BeforeEach(func() {
		bus = backend.NewCommonDataBus()
		mem = emu.NewMemory(128)
	})

	It("rejects non-positive capacity and delay", func() {
		_, err := backend.NewLoadStoreQueue(0, 1, bus, mem)
		Expect(err).To(HaveOccurred())
		_, err = backend.NewLoadStoreQueue(1, 0, bus, mem)
		Expect(err).To(HaveOccurred())
	})

	It("reports Full once capacity entries are buffered", func() {
		lsq, err := backend.NewLoadStoreQueue(2, 1, bus, mem)
		Expect(err).NotTo(HaveOccurred())
		Expect(lsq.Full()).To(BeFalse())
		lsq.Feed(&insts.Instruction{Kind: insts.KindLoad, Operands: []insts.Operand{insts.LiteralOperand(0)}})
		backend.Tick(lsq)
		Expect(lsq.Full()).To(BeFalse())
		lsq.Feed(&insts.Instruction{Kind: insts.KindLoad, Operands: []insts.Operand{insts.LiteralOperand(1)}})
		backend.Tick(lsq)
		Expect(lsq.Full()).To(BeTrue())
	})

	It("executes a Load and broadcasts the memory value after the configured delay", func() {
		recorder := &recordingSubscriber{}
		bus.Subscribe(recorder)
		mem.Write(4, 77)
		lsq, _ := backend.NewLoadStoreQueue(8, 3, bus, mem)

		lsq.Feed(&insts.Instruction{Tag: 1, Kind: insts.KindLoad, Operands: []insts.Operand{insts.LiteralOperand(4)}})
		for i := 0; i < 5; i++ {
			backend.Tick(lsq)
		}
		Expect(recorder.received).To(Equal([]insts.Result{{Tag: 1, Value: 77}}))
	})

	It("writes through a non-speculative Store without waiting for release", func() {
		lsq, _ := backend.NewLoadStoreQueue(8, 2, bus, mem)
		lsq.Feed(&insts.Instruction{Tag: 2, Kind: insts.KindStore, Operands: []insts.Operand{
			insts.LiteralOperand(10), insts.LiteralOperand(55),
		}})
		for i := 0; i < 4; i++ {
			backend.Tick(lsq)
		}
		Expect(mem.Read(10)).To(Equal(int64(55)))
	})

	It("holds a speculative Store's write until released", func() {
		mem.Write(20, 1)
		lsq, _ := backend.NewLoadStoreQueue(8, 1, bus, mem)
		lsq.Feed(&insts.Instruction{Tag: 3, Kind: insts.KindStore, Speculative: true, Operands: []insts.Operand{
			insts.LiteralOperand(20), insts.LiteralOperand(99),
		}})
		for i := 0; i < 3; i++ {
			backend.Tick(lsq)
			Expect(mem.Read(20)).To(Equal(int64(1)))
		}

		lsq.ReleaseSpeculative(3)
		backend.Tick(lsq)
		Expect(mem.Read(20)).To(Equal(int64(99)))
	})

	It("executes entries strictly in order", func() {
		recorder := &recordingSubscriber{}
		bus.Subscribe(recorder)
		lsq, _ := backend.NewLoadStoreQueue(8, 2, bus, mem)

		first := &insts.Instruction{Tag: 1, Kind: insts.KindLoad, Operands: []insts.Operand{insts.PendingOperand(100)}}
		second := &insts.Instruction{Tag: 2, Kind: insts.KindLoad, Operands: []insts.Operand{insts.LiteralOperand(8)}}
		lsq.Feed(first)
		lsq.Feed(second)
		backend.Tick(lsq)

		// second's address operand is already resolved, but it must not
		// execute before first, which is still waiting on its operand.
		for i := 0; i < 5; i++ {
			backend.Tick(lsq)
		}
		Expect(recorder.received).To(BeEmpty())

		lsq.Receive(insts.Result{Tag: 100, Value: 0})
		for i := 0; i < 6; i++ {
			backend.Tick(lsq)
		}
		Expect(recorder.received).To(HaveLen(2))
		Expect(recorder.received[0].Tag).To(Equal(int64(1)))
		Expect(recorder.received[1].Tag).To(Equal(int64(2)))
	})

	It("flushes speculative buffered entries", func() {
		lsq, _ := backend.NewLoadStoreQueue(4, 1, bus, mem)
		lsq.Feed(&insts.Instruction{Kind: insts.KindLoad, Speculative: true, Operands: []insts.Operand{insts.LiteralOperand(0)}})
		backend.Tick(lsq)
		lsq.Flush()
		Expect(lsq.Full()).To(BeFalse())
	})
})
