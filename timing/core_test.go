package timing_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samgd/procsim/insts"
	"github.com/samgd/procsim/internal/config"
	"github.com/samgd/procsim/internal/logging"
	"github.com/samgd/procsim/timing"
)

var _ = Describe("Core", func() {
	var (
		cfg *config.BackendConfig
		c   *timing.Core
	)

	BeforeEach(func() {
		cfg = config.Default()
		cfg.ROBCapacity = 8
		cfg.ROBWidth = 2
		cfg.RSCapacity = 8
		cfg.RSWidth = 2
		cfg.ALUUnits = 1
		cfg.ALULatency = 1
		cfg.BranchUnits = 1
		cfg.BranchLatency = 1
		cfg.LSQCapacity = 4
		cfg.MemoryLatency = 1
		cfg.MemorySize = 64

		var err error
		c, err = timing.NewCore(cfg, map[string]int64{"r2": 3, "r3": 4}, logging.Discard())
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts idle with no instructions in flight", func() {
		Expect(c.Idle()).To(BeTrue())
	})

	It("rejects a non-positive configuration", func() {
		bad := config.Default()
		bad.ROBCapacity = 0
		_, err := timing.NewCore(bad, nil, logging.Discard())
		Expect(err).To(HaveOccurred())
	})

	It("feeds, ticks and retires an add through to the register file", func() {
		Expect(c.Feed("add r1 r2 r3")).To(Succeed())
		Expect(c.Idle()).To(BeFalse())

		ran := c.Run(50)
		Expect(ran).To(BeNumerically(">", 0))
		Expect(c.Idle()).To(BeTrue())

		Expect(c.RegisterFile().Get("r1")).To(Equal(int64(7)))

		stats := c.Stats()
		Expect(stats.Retired).To(Equal(uint64(1)))
		Expect(stats.Flushes).To(Equal(uint64(0)))
		Expect(stats.Cycles).To(BeNumerically(">", 0))
	})

	It("reports an error instead of panicking when fed past capacity", func() {
		for i := 0; i < cfg.ROBCapacity; i++ {
			Expect(c.Feed("add r1 r2 r3")).To(Succeed())
		}
		err := c.Feed("add r1 r2 r3")
		Expect(err).To(HaveOccurred())
	})

	It("accepts a pre-decoded instruction via FeedInstruction", func() {
		inst, err := insts.Decode("sub r1 r2 r3", nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(c.FeedInstruction(inst)).To(Succeed())
		c.Run(50)

		Expect(c.RegisterFile().Get("r1")).To(Equal(int64(-1)))
	})

	It("flushes and notifies on a mispredicted branch, recording the corrected PC", func() {
		branchInfo := &insts.BranchInfo{PredictedTaken: false, PCAtDispatch: 10}
		inst, err := insts.Decode("blth r2 r3 100", branchInfo)
		Expect(err).NotTo(HaveOccurred())

		Expect(c.FeedInstruction(inst)).To(Succeed())
		c.Run(50)

		stats := c.Stats()
		Expect(stats.Flushes).To(Equal(uint64(1)))
		Expect(c.LastCorrectedPC()).To(Equal(int64(100)))
	})

	It("exposes the backing memory for a driver to inspect", func() {
		Expect(c.Memory()).NotTo(BeNil())
		c.Memory().Write(0, 99)
		Expect(c.Memory().Read(0)).To(Equal(int64(99)))
	})

	It("holds a speculative store's write back until its owning branch retires", func() {
		// One retirement per cycle, so the store (younger, second in
		// program order) cannot retire in the same cycle as the
		// branch ahead of it — isolating the hold-back window below.
		specCfg := config.Default()
		specCfg.ROBCapacity = 8
		specCfg.ROBWidth = 1
		specCfg.RSCapacity = 8
		specCfg.RSWidth = 1
		specCfg.ALUUnits = 1
		specCfg.ALULatency = 1
		specCfg.BranchUnits = 1
		specCfg.BranchLatency = 1
		specCfg.LSQCapacity = 4
		specCfg.MemoryLatency = 1
		specCfg.MemorySize = 64

		sc, err := timing.NewCore(specCfg, map[string]int64{"r1": 5, "r2": 3, "raddr": 10, "rval": 77}, logging.Discard())
		Expect(err).NotTo(HaveOccurred())

		// r1 < r2 is false, so this branch, predicted not-taken, does
		// not mispredict and never triggers a flush — the store's
		// hold-back below is purely the speculative-store invariant,
		// not a side effect of misprediction recovery.
		branch, err := insts.Decode("blth r1 r2 100", &insts.BranchInfo{PredictedTaken: false, PCAtDispatch: 0})
		Expect(err).NotTo(HaveOccurred())
		store, err := insts.Decode("str raddr rval", nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(sc.FeedInstruction(branch)).To(Succeed())
		Expect(sc.FeedInstruction(store)).To(Succeed())

		// Comfortably fewer cycles than the branch could possibly
		// retire in (dispatch, issue, execute, broadcast, then a
		// separate retire cycle), so the store must still be parked.
		for i := 0; i < 3; i++ {
			sc.Tick()
		}
		Expect(sc.Memory().Read(10)).To(Equal(int64(0)))

		sc.Run(50)
		Expect(sc.Idle()).To(BeTrue())
		Expect(sc.Memory().Read(10)).To(Equal(int64(77)))

		stats := sc.Stats()
		Expect(stats.Flushes).To(Equal(uint64(0)))
		Expect(stats.Retired).To(Equal(uint64(2)))
	})
})
