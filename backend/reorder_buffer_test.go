package backend_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samgd/procsim/backend"
	"github.com/samgd/procsim/backend/internal/testdouble"
	"github.com/samgd/procsim/emu"
	"github.com/samgd/procsim/insts"
)

var _ = Describe("ReorderBuffer", func() {
	var (
		bus     *backend.CommonDataBus
		mem     *emu.Memory
		rs      *backend.ReservationStation
		lsq     *backend.LoadStoreQueue
		regfile *testdouble.RegisterFileLog
		root    *testdouble.FlushableLog
	)

	BeforeEach(func() {
		bus = backend.NewCommonDataBus()
		mem = emu.NewMemory(64)
		eu, _ := backend.NewExecutionUnit([]insts.Capability{insts.CapAny}, 0, bus)
		rs, _ = backend.NewReservationStation(32, 4, []*backend.ExecutionUnit{eu})
		lsq, _ = backend.NewLoadStoreQueue(32, 1, bus, mem)
		regfile = testdouble.NewRegisterFileLog()
		root = &testdouble.FlushableLog{}
	})

	It("rejects non-positive capacity or width", func() {
		_, err := backend.NewReorderBuffer(0, 1, rs, lsq, regfile, root)
		Expect(err).To(HaveOccurred())
		_, err = backend.NewReorderBuffer(1, 0, rs, lsq, regfile, root)
		Expect(err).To(HaveOccurred())
	})

	It("reports Full once capacity instructions are in flight", func() {
		rob, err := backend.NewReorderBuffer(2, 1, rs, lsq, regfile, root)
		Expect(err).NotTo(HaveOccurred())
		Expect(rob.Full()).To(BeFalse())
		rob.Feed(&insts.Instruction{Kind: insts.KindAdd, RdArch: "r1", SrcArch: []string{"r2", "r3"}})
		backend.Tick(rob)
		Expect(rob.Full()).To(BeFalse())
		rob.Feed(&insts.Instruction{Kind: insts.KindAdd, RdArch: "r4", SrcArch: []string{"r2", "r3"}})
		backend.Tick(rob)
		Expect(rob.Full()).To(BeTrue())
	})

	It("marks the destination register pending at dispatch and clears it at commit", func() {
		rob, _ := backend.NewReorderBuffer(8, 4, rs, lsq, regfile, root)
		inst := &insts.Instruction{Kind: insts.KindAdd, RdArch: "r1", SrcArch: []string{"r2", "r3"}}
		rob.Feed(inst)
		backend.Tick(rob)

		_, pending := regfile.Pending("r1")
		Expect(pending).To(BeTrue())

		rob.Receive(insts.Result{Tag: inst.Tag, Value: 5})
		backend.Tick(rob)

		Expect(regfile.Get("r1")).To(Equal(int64(5)))
		_, stillPending := regfile.Pending("r1")
		Expect(stillPending).To(BeFalse())
	})

	It("commits results strictly in order, stalling on an unready head", func() {
		rob, _ := backend.NewReorderBuffer(8, 4, rs, lsq, regfile, root)
		first := &insts.Instruction{Kind: insts.KindAdd, RdArch: "r1", SrcArch: []string{"r2", "r3"}}
		second := &insts.Instruction{Kind: insts.KindAdd, RdArch: "r2", SrcArch: []string{"r3", "r4"}}
		rob.Feed(first)
		rob.Feed(second)
		backend.Tick(rob)

		rob.Receive(insts.Result{Tag: second.Tag, Value: 2})
		backend.Tick(rob)
		Expect(regfile.Get("r2")).To(Equal(int64(0)))

		rob.Receive(insts.Result{Tag: first.Tag, Value: 9})
		backend.Tick(rob)
		Expect(regfile.Get("r1")).To(Equal(int64(9)))
		Expect(regfile.Get("r2")).To(Equal(int64(2)))
	})

	It("flushes the Reservation Station and Load/Store Queue on misprediction and notifies the flush root", func() {
		rob, _ := backend.NewReorderBuffer(8, 4, rs, lsq, regfile, root)
		branch := &insts.Instruction{
			Kind:    insts.KindBlth,
			Branch:  &insts.BranchInfo{PredictedTaken: false, PCAtDispatch: 10},
			Target:  100,
			SrcArch: []string{"r1", "r2"},
		}
		rob.Feed(branch)
		backend.Tick(rob)

		rob.Receive(insts.Result{Tag: branch.Tag, Value: 1}) // actually taken, mispredicted
		backend.Tick(rob)

		Expect(root.Flushes).To(Equal(1))
		Expect(root.LastCorrected).To(Equal(int64(100)))
		Expect(rob.Full()).To(BeFalse())
	})

	It("retires a Store only once its operands are resolved and releases it to the queue", func() {
		rob, _ := backend.NewReorderBuffer(8, 4, rs, lsq, regfile, root)
		// raddr and rval are still pending on tags 300/301 from some
		// earlier, already in-flight producer, so resolveOperands
		// renames the store's operands to those tags rather than a
		// committed value.
		regfile.MarkPending("raddr", 300)
		regfile.MarkPending("rval", 301)
		store := &insts.Instruction{Kind: insts.KindStore, Speculative: true, SrcArch: []string{"raddr", "rval"}}
		rob.Feed(store)
		backend.Tick(rob)
		Expect(rob.Retired()).To(Equal(uint64(0)))

		backend.Tick(rob)
		Expect(rob.Retired()).To(Equal(uint64(0)))

		store.Receive(300, 5)
		store.Receive(301, 42)
		backend.Tick(rob)
		Expect(rob.Retired()).To(Equal(uint64(1)))
	})
})
