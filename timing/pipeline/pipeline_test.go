package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/timing/bus"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

const dataBase = 0x2000

type harness struct {
	regFile *emu.RegFile
	memory  *emu.Memory
	pipe    *pipeline.Pipeline
	snaps   []pipeline.Snapshot
	x0Seen  []uint32
}

func newHarness(program []uint32, opts ...pipeline.PipelineOption) *harness {
	h := &harness{
		regFile: &emu.RegFile{},
		memory:  emu.NewMemory(0),
	}
	h.memory.LoadWords(0, program)
	h.regFile.WriteReg(30, dataBase)

	opts = append(opts, pipeline.WithObserver(func(s pipeline.Snapshot) {
		h.snaps = append(h.snaps, s)
		h.x0Seen = append(h.x0Seen, h.regFile.ReadReg(0), h.regFile.X[0])
	}))
	h.pipe = pipeline.NewPipeline(h.regFile, h.memory, opts...)
	return h
}

func withBus(h *harness, lat bus.Latencies) pipeline.PipelineOption {
	return func(p *pipeline.Pipeline) {
		responder := bus.NewMemoryResponder(bus.Untimed(h.memory), lat)
		pipeline.WithDataPort(bus.NewPort(bus.NewBridge(), responder))(p)
	}
}

func newBusHarness(program []uint32, lat bus.Latencies) *harness {
	h := &harness{
		regFile: &emu.RegFile{},
		memory:  emu.NewMemory(0),
	}
	h.memory.LoadWords(0, program)
	h.regFile.WriteReg(30, dataBase)

	h.pipe = pipeline.NewPipeline(h.regFile, h.memory,
		withBus(h, lat),
		pipeline.WithObserver(func(s pipeline.Snapshot) {
			h.snaps = append(h.snaps, s)
			h.x0Seen = append(h.x0Seen, h.regFile.ReadReg(0), h.regFile.X[0])
		}),
	)
	return h
}

func (h *harness) reg(i uint8) uint32 {
	return h.regFile.ReadReg(i)
}

// firstWrite returns the cycle in which register idx is first written, or -1.
func (h *harness) firstWrite(idx uint8) int {
	for _, s := range h.snaps {
		if s.WritePort.Active() && s.WritePort.Index == idx {
			return int(s.Cycle)
		}
	}
	return -1
}

// expectInvariants checks the per-cycle properties that must hold for every
// program.
func (h *harness) expectInvariants() {
	for _, v := range h.x0Seen {
		Expect(v).To(BeZero(), "x0 must read as zero")
	}

	for i, s := range h.snaps {
		Expect(s.Stalls.Stall() && s.Stalls.Flush).To(BeFalse(),
			"stall and flush in cycle %d", s.Cycle)

		Expect(s.PC & 3).To(BeZero(), "misaligned PC in cycle %d", s.Cycle)
		Expect(s.NextPC & 3).To(BeZero(), "misaligned next PC in cycle %d", s.Cycle)

		if s.Stalls.Flush {
			Expect(s.Decode.BranchTarget & 1).To(BeZero())
			if s.Decode.Inst.Ctrl.Branch {
				Expect(s.Decode.BranchTarget & 3).To(BeZero(),
					"misaligned branch target in cycle %d", s.Cycle)
			}
			if i+1 < len(h.snaps) {
				Expect(h.snaps[i+1].IFDE.Valid).To(BeFalse(),
					"decode valid after flush in cycle %d", s.Cycle)
			}
		}

		req := s.Request
		if req.Write && s.Response.Done {
			Expect(req.Strobe).NotTo(BeZero())
		}
		switch req.Strobe {
		case 0b1111:
			Expect(req.Addr & 3).To(BeZero())
		case 0b0011, 0b1100:
			Expect(req.Addr & 1).To(BeZero())
		}
		Expect(req.Read && req.Write).To(BeFalse())
	}
}

var _ = Describe("Pipeline", func() {
	Describe("construction", func() {
		It("should start empty at the reset PC", func() {
			p := pipeline.NewPipeline(&emu.RegFile{}, emu.NewMemory(0),
				pipeline.WithResetPC(0x80))

			Expect(p.PC()).To(Equal(uint32(0x80)))
			Expect(p.GetIFDE().Valid).To(BeFalse())
			Expect(p.GetDEMW().Valid).To(BeFalse())
			Expect(p.Stats()).To(Equal(pipeline.Statistics{}))
		})

		It("should fill the pipeline one stage per cycle", func() {
			h := newHarness([]uint32{insts.ADDI(1, 0, 1)})

			h.pipe.Tick()
			Expect(h.pipe.PC()).To(Equal(uint32(4)))
			Expect(h.pipe.GetIFDE().Valid).To(BeTrue())
			Expect(h.pipe.GetIFDE().InstructionWord).To(Equal(insts.ADDI(1, 0, 1)))
			Expect(h.pipe.GetDEMW().Valid).To(BeFalse())

			h.pipe.Tick()
			Expect(h.pipe.GetDEMW().Valid).To(BeTrue())
			Expect(h.pipe.GetDEMW().ALUResult).To(Equal(uint32(1)))
			Expect(h.reg(1)).To(BeZero())

			h.pipe.Tick()
			Expect(h.reg(1)).To(Equal(uint32(1)))
		})

		It("should reset pipeline state and statistics", func() {
			h := newHarness([]uint32{insts.ADDI(1, 0, 1)})
			h.pipe.RunCycles(5)

			h.pipe.Reset()

			Expect(h.pipe.PC()).To(BeZero())
			Expect(h.pipe.GetIFDE().Valid).To(BeFalse())
			Expect(h.pipe.GetDEMW().Valid).To(BeFalse())
			Expect(h.pipe.Stats().Cycles).To(BeZero())
			Expect(h.reg(1)).To(Equal(uint32(1)))
		})
	})

	Describe("ALU scenario", func() {
		It("should forward x1 into the following addi", func() {
			h := newHarness([]uint32{
				insts.ADDI(1, 0, 42),
				insts.ADDI(2, 1, -10),
			})
			h.pipe.RunCycles(10)

			Expect(h.reg(1)).To(Equal(uint32(42)))
			Expect(h.reg(2)).To(Equal(uint32(32)))
			Expect(h.firstWrite(1)).To(Equal(2))
			Expect(h.firstWrite(2)).To(Equal(3))

			stats := h.pipe.Stats()
			Expect(stats.Cycles).To(Equal(uint64(10)))
			Expect(stats.Instructions).To(Equal(uint64(8)))
			Expect(stats.Stalls).To(BeZero())
			Expect(stats.Flushes).To(BeZero())
			h.expectInvariants()
		})

		It("should compute LUI, AUIPC and the shift operations", func() {
			h := newHarness([]uint32{
				insts.LUI(1, 0x12345),
				insts.AUIPC(2, 1),
				insts.ADDI(3, 0, -16),
				insts.SRAI(4, 3, 2),
				insts.SRLI(5, 3, 28),
				insts.SLLI(6, 3, 4),
				insts.SLTI(7, 3, 0),
				insts.SLTIU(8, 3, 0),
			})
			h.pipe.RunCycles(12)

			Expect(h.reg(1)).To(Equal(uint32(0x12345000)))
			Expect(h.reg(2)).To(Equal(uint32(0x1004)))
			Expect(h.reg(4)).To(Equal(uint32(0xFFFFFFFC)))
			Expect(h.reg(5)).To(Equal(uint32(0xF)))
			Expect(h.reg(6)).To(Equal(uint32(0xFFFFFF00)))
			Expect(h.reg(7)).To(Equal(uint32(1)))
			Expect(h.reg(8)).To(BeZero())
			h.expectInvariants()
		})
	})

	Describe("x0", func() {
		It("should stay zero under every kind of write", func() {
			h := newHarness([]uint32{
				insts.ADDI(0, 0, 5),
				insts.LUI(0, 0xFFFFF),
				insts.ADDI(1, 0, 7),
				insts.SW(1, 30, 0),
				insts.LW(0, 30, 0),
				insts.ADD(2, 0, 0),
				insts.JAL(0, 4),
				insts.ADDI(3, 0, 0),
			})
			h.pipe.RunCycles(20)

			Expect(h.reg(0)).To(BeZero())
			Expect(h.reg(2)).To(BeZero())
			Expect(h.reg(3)).To(BeZero())
			h.expectInvariants()
		})
	})

	Describe("branch scenario", func() {
		var h *harness

		BeforeEach(func() {
			h = newHarness([]uint32{
				insts.ADDI(1, 0, 5), // 0x00
				insts.ADDI(2, 0, 5), // 0x04
				insts.BEQ(1, 2, 12), // 0x08 -> 0x14
				insts.ADDI(3, 0, 1), // 0x0C
				insts.ADDI(4, 0, 1), // 0x10
				insts.ADDI(5, 0, 1), // 0x14
			})
			h.pipe.RunCycles(12)
		})

		It("should take the branch and fetch the target next", func() {
			flushes := 0
			for i, s := range h.snaps {
				if !s.Stalls.Flush {
					continue
				}
				flushes++
				Expect(s.IFDE.PC).To(Equal(uint32(0x08)))
				Expect(s.NextPC).To(Equal(uint32(0x14)))
				Expect(h.snaps[i+1].PC).To(Equal(uint32(0x14)))
				Expect(h.snaps[i+2].IFDE.PC).To(Equal(uint32(0x14)))
				Expect(h.snaps[i+2].IFDE.Valid).To(BeTrue())
			}
			Expect(flushes).To(Equal(1))
			Expect(h.pipe.Stats().Flushes).To(Equal(uint64(1)))
		})

		It("should discard the wrong-path instruction", func() {
			Expect(h.reg(3)).To(BeZero())
			Expect(h.reg(4)).To(BeZero())
			Expect(h.reg(5)).To(Equal(uint32(1)))
			h.expectInvariants()
		})
	})

	Describe("jumps", func() {
		It("should link and return through JAL and JALR", func() {
			h := newHarness([]uint32{
				insts.JAL(1, 12),    // 0x00 call 0x0C
				insts.ADDI(3, 0, 3), // 0x04 return lands here
				insts.JAL(0, 12),    // 0x08 -> 0x14
				insts.ADDI(2, 0, 2), // 0x0C callee
				insts.JALR(0, 1, 0), // 0x10 return
				insts.ADDI(4, 0, 4), // 0x14
			})
			h.pipe.RunCycles(20)

			Expect(h.reg(1)).To(Equal(uint32(4)))
			Expect(h.reg(2)).To(Equal(uint32(2)))
			Expect(h.reg(3)).To(Equal(uint32(3)))
			Expect(h.reg(4)).To(Equal(uint32(4)))
			Expect(h.pipe.Stats().Flushes).To(Equal(uint64(3)))
			h.expectInvariants()
		})

		It("should keep the PC word aligned when a JALR target has bit 1 set", func() {
			h := newHarness([]uint32{
				insts.ADDI(1, 0, 0x12), // 0x00
				insts.JALR(5, 1, 0),    // 0x04 -> 0x12
				insts.ADDI(3, 0, 1),    // 0x08
				insts.ADDI(4, 0, 1),    // 0x0C
				insts.ADDI(6, 0, 6),    // 0x10
				insts.ADDI(7, 0, 7),    // 0x14
			})
			h.pipe.RunCycles(10)

			flushes := 0
			for i, s := range h.snaps {
				if !s.Stalls.Flush {
					continue
				}
				flushes++
				Expect(s.Decode.BranchTarget).To(Equal(uint32(0x12)))
				Expect(s.NextPC).To(Equal(uint32(0x10)))
				Expect(h.snaps[i+1].PC).To(Equal(uint32(0x10)))
			}
			Expect(flushes).To(Equal(1))

			Expect(h.reg(5)).To(Equal(uint32(8)))
			Expect(h.reg(3)).To(BeZero())
			Expect(h.reg(4)).To(BeZero())
			Expect(h.reg(6)).To(Equal(uint32(6)))
			Expect(h.reg(7)).To(Equal(uint32(7)))
			h.expectInvariants()
		})

		It("should drop the low PC bits on SetPC", func() {
			h := newHarness([]uint32{insts.NOP})
			h.pipe.SetPC(0x107)
			Expect(h.pipe.PC()).To(Equal(uint32(0x104)))
		})

		It("should run a counted loop", func() {
			h := newHarness([]uint32{
				insts.ADDI(1, 0, 10),
				insts.ADDI(2, 0, 0),
				insts.ADD(2, 2, 1),
				insts.ADDI(1, 1, -1),
				insts.BNE(1, 0, -8),
				insts.SW(2, 30, 0),
			})
			h.pipe.RunCycles(100)

			Expect(h.reg(2)).To(Equal(uint32(55)))
			Expect(h.memory.ReadWord(dataBase)).To(Equal(uint32(55)))
			Expect(h.pipe.Stats().Flushes).To(Equal(uint64(9)))
			h.expectInvariants()
		})
	})

	Describe("memory scenario", func() {
		program := []uint32{
			insts.ADDI(1, 0, 0x7AB),
			insts.SW(1, 30, 0),
			insts.LW(2, 30, 0),
		}

		It("should load back the stored word", func() {
			h := newHarness(program)
			h.pipe.RunCycles(10)

			Expect(h.memory.ReadWord(dataBase)).To(Equal(uint32(0x7AB)))
			Expect(h.reg(2)).To(Equal(uint32(0x7AB)))

			stats := h.pipe.Stats()
			Expect(stats.Loads).To(Equal(uint64(1)))
			Expect(stats.Stores).To(Equal(uint64(1)))
			h.expectInvariants()
		})

		It("should load back the stored word over the bus", func() {
			h := newBusHarness(program, bus.Latencies{})
			h.pipe.RunCycles(20)

			Expect(h.memory.ReadWord(dataBase)).To(Equal(uint32(0x7AB)))
			Expect(h.reg(2)).To(Equal(uint32(0x7AB)))

			stats := h.pipe.Stats()
			Expect(stats.BusStalls).To(Equal(uint64(4)))
			Expect(stats.Loads).To(Equal(uint64(1)))
			Expect(stats.Stores).To(Equal(uint64(1)))
			h.expectInvariants()
		})

		It("should hold the pipeline for the responder latency", func() {
			lat := bus.Latencies{ARReady: 2, RValid: 3, AWReady: 1, WReady: 2, BValid: 1}
			h := newBusHarness(program, lat)
			h.pipe.RunCycles(40)

			Expect(h.reg(2)).To(Equal(uint32(0x7AB)))

			// store: max(1,2)+1+2 stall cycles; load: 2+3+2.
			Expect(h.pipe.Stats().BusStalls).To(Equal(uint64(5 + 7)))
			h.expectInvariants()
		})
	})

	DescribeTable("store/load round trip",
		func(store, load uint32, value, want uint32) {
			h := newHarness([]uint32{
				insts.LUI(1, value>>12),
				insts.ADDI(1, 1, int32(value&0xFFF)),
				store,
				load,
			})
			h.pipe.RunCycles(12)

			Expect(h.reg(2)).To(Equal(want))
			h.expectInvariants()
		},
		Entry("sw/lw", insts.SW(1, 30, 4), insts.LW(2, 30, 4), uint32(0x12345678), uint32(0x12345678)),
		Entry("sh/lh low", insts.SH(1, 30, 0), insts.LH(2, 30, 0), uint32(0x0000F234), uint32(0xFFFFF234)),
		Entry("sh/lhu high", insts.SH(1, 30, 2), insts.LHU(2, 30, 2), uint32(0x0000F234), uint32(0x0000F234)),
		Entry("sb/lb lane 1", insts.SB(1, 30, 1), insts.LB(2, 30, 1), uint32(0x00000085), uint32(0xFFFFFF85)),
		Entry("sb/lbu lane 3", insts.SB(1, 30, 3), insts.LBU(2, 30, 3), uint32(0x00000085), uint32(0x00000085)),
	)

	It("should write only the strobed lanes", func() {
		h := newHarness([]uint32{
			insts.ADDI(1, 0, 0x55),
			insts.SB(1, 30, 2),
		})
		h.memory.WriteWord(dataBase, 0x11223344, 0b1111)
		h.pipe.RunCycles(8)

		Expect(h.memory.ReadWord(dataBase)).To(Equal(uint32(0x11553344)))
		h.expectInvariants()
	})

	Describe("load-use hazard", func() {
		dependent := []uint32{
			insts.LW(1, 30, 0),
			insts.ADDI(2, 1, 1),
		}
		independent := []uint32{
			insts.LW(1, 30, 0),
			insts.ADDI(2, 3, 1),
		}

		It("should insert exactly one bubble", func() {
			h := newHarness(dependent)
			h.memory.WriteWord(dataBase, 41, 0b1111)
			h.pipe.RunCycles(10)

			bubbles := 0
			for i, s := range h.snaps {
				if s.Stalls.BubbleDEMW {
					bubbles++
					Expect(s.Stalls.HoldPC).To(BeTrue())
					Expect(h.snaps[i+1].DEMW.Valid).To(BeFalse())
					Expect(h.snaps[i+1].IFDE).To(Equal(s.IFDE))
				}
			}
			Expect(bubbles).To(Equal(1))
			Expect(h.reg(2)).To(Equal(uint32(42)))
			Expect(h.pipe.Stats().LoadUseBubbles).To(Equal(uint64(1)))
			h.expectInvariants()
		})

		It("should delay the dependent write by one cycle", func() {
			dep := newHarness(dependent)
			dep.pipe.RunCycles(10)
			ind := newHarness(independent)
			ind.pipe.RunCycles(10)

			Expect(ind.firstWrite(2)).To(Equal(3))
			Expect(dep.firstWrite(2)).To(Equal(4))
		})

		It("should keep advancing data fields through the bubble", func() {
			h := newHarness(dependent)
			h.pipe.RunCycles(3)

			demw := h.pipe.GetDEMW()
			Expect(demw.Valid).To(BeFalse())
			Expect(demw.Ctrl.RegWrite).To(BeFalse())
			Expect(demw.Ctrl.MemRead).To(BeFalse())
			Expect(demw.Ctrl.MemWrite).To(BeFalse())
			Expect(demw.Rd).To(Equal(uint8(2)))
			Expect(demw.PC).To(Equal(uint32(4)))
		})

		It("should not stall a store of the loaded register", func() {
			h := newHarness([]uint32{
				insts.LW(1, 30, 0),
				insts.SW(1, 30, 4),
			})
			h.memory.WriteWord(dataBase, 0xCAFE, 0b1111)
			h.pipe.RunCycles(8)

			Expect(h.pipe.Stats().LoadUseBubbles).To(BeZero())
			Expect(h.memory.ReadWord(dataBase + 4)).To(Equal(uint32(0xCAFE)))
		})

		It("should insert one bubble over the bus", func() {
			h := newBusHarness(dependent, bus.Latencies{RValid: 2})
			h.memory.WriteWord(dataBase, 41, 0b1111)
			h.pipe.RunCycles(20)

			Expect(h.pipe.Stats().LoadUseBubbles).To(Equal(uint64(1)))
			Expect(h.reg(2)).To(Equal(uint32(42)))
			h.expectInvariants()
		})

		It("should re-resolve a branch that waits on a load", func() {
			h := newHarness([]uint32{
				insts.LW(1, 30, 0),  // 0x00
				insts.BEQ(1, 0, 12), // 0x04 -> 0x10
				insts.ADDI(3, 0, 1), // 0x08
				insts.ADDI(4, 0, 1), // 0x0C
				insts.ADDI(5, 0, 1), // 0x10
			})
			h.memory.WriteWord(dataBase, 0, 0b1111)
			h.pipe.RunCycles(12)

			stats := h.pipe.Stats()
			Expect(stats.LoadUseBubbles).To(Equal(uint64(1)))
			Expect(stats.Flushes).To(Equal(uint64(1)))
			Expect(h.reg(3)).To(BeZero())
			Expect(h.reg(4)).To(BeZero())
			Expect(h.reg(5)).To(Equal(uint32(1)))
			h.expectInvariants()
		})
	})

	Describe("bus stalls", func() {
		It("should let the bus stall win over a taken branch", func() {
			h := newBusHarness([]uint32{
				insts.SW(0, 30, 0),  // 0x00
				insts.BEQ(0, 0, 8),  // 0x04 -> 0x0C
				insts.ADDI(3, 0, 1), // 0x08
				insts.ADDI(4, 0, 1), // 0x0C
			}, bus.Latencies{BValid: 2})
			h.pipe.RunCycles(20)

			sawHeldBranch := false
			for _, s := range h.snaps {
				if s.IFDE.Valid && s.IFDE.PC == 0x04 && s.Stalls.BusStall {
					sawHeldBranch = true
					Expect(s.Stalls.Flush).To(BeFalse())
					Expect(s.NextPC).To(Equal(s.PC))
				}
			}
			Expect(sawHeldBranch).To(BeTrue())
			Expect(h.pipe.Stats().Flushes).To(Equal(uint64(1)))
			Expect(h.reg(3)).To(BeZero())
			Expect(h.reg(4)).To(Equal(uint32(1)))
			h.expectInvariants()
		})

		It("should freeze DE/MW while a transaction is in flight", func() {
			h := newBusHarness([]uint32{
				insts.LW(1, 30, 0),
				insts.ADDI(2, 0, 2),
			}, bus.Latencies{ARReady: 1})
			h.pipe.RunCycles(12)

			for _, s := range h.snaps {
				if s.Stalls.BusStall {
					Expect(s.DEMW.PC).To(BeZero())
					Expect(s.DEMW.Valid).To(BeTrue())
					Expect(s.WritePort.Enable).To(BeFalse())
				}
			}
			Expect(h.pipe.Stats().BusStalls).To(Equal(uint64(3)))
			Expect(h.reg(2)).To(Equal(uint32(2)))
		})
	})

	Describe("illegal instructions", func() {
		It("should retire them without side effects", func() {
			h := newHarness([]uint32{
				insts.ADDI(1, 0, 1),
				0xFFFFFFFF,
				insts.ADDI(2, 0, 2),
			})
			h.pipe.RunCycles(8)

			Expect(h.pipe.Stats().IllegalInstructions).To(Equal(uint64(1)))
			Expect(h.reg(1)).To(Equal(uint32(1)))
			Expect(h.reg(2)).To(Equal(uint32(2)))
			for i := uint8(3); i < emu.NumRegs; i++ {
				if i == 30 {
					continue
				}
				Expect(h.reg(i)).To(BeZero())
			}
			h.expectInvariants()
		})
	})

	Describe("statistics", func() {
		It("should report CPI", func() {
			Expect(pipeline.Statistics{}.CPI()).To(BeZero())
			Expect(pipeline.Statistics{Cycles: 12, Instructions: 8}.CPI()).To(Equal(1.5))
		})
	})
})
