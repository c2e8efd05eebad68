package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

var _ = Describe("HazardUnit", func() {
	var (
		hazardUnit *pipeline.HazardUnit
		decoder    *insts.Decoder
		ifde       *pipeline.IFDERegister
		demw       *pipeline.DEMWRegister
	)

	loadInto := func(rd uint8) {
		inst := decoder.Decode(insts.LW(rd, 0, 0))
		*demw = pipeline.DEMWRegister{Valid: true, Inst: inst, Rd: rd, Ctrl: inst.Ctrl}
	}

	detect := func(word uint32) bool {
		ifde.Valid = true
		ifde.InstructionWord = word
		return hazardUnit.DetectLoadUse(ifde, decoder.Decode(word), demw)
	}

	BeforeEach(func() {
		hazardUnit = pipeline.NewHazardUnit()
		decoder = insts.NewDecoder()
		ifde = &pipeline.IFDERegister{}
		demw = &pipeline.DEMWRegister{}
	})

	Describe("DetectLoadUse", func() {
		It("should detect a dependent rs1", func() {
			loadInto(5)
			Expect(detect(insts.ADDI(6, 5, 1))).To(BeTrue())
		})

		It("should detect a dependent register-sourced rs2", func() {
			loadInto(5)
			Expect(detect(insts.ADD(6, 1, 5))).To(BeTrue())
			Expect(detect(insts.BEQ(1, 5, 8))).To(BeTrue())
		})

		It("should ignore rs2 bits that hold an immediate", func() {
			loadInto(5)
			// addi x6, x1, 5 has 5 in the rs2 field.
			Expect(detect(insts.ADDI(6, 1, 5))).To(BeFalse())
		})

		It("should not treat store data as a hazard", func() {
			loadInto(5)
			Expect(detect(insts.SW(5, 1, 0))).To(BeFalse())
			Expect(detect(insts.SW(1, 5, 0))).To(BeTrue())
		})

		It("should ignore loads into x0", func() {
			loadInto(0)
			Expect(detect(insts.ADD(6, 0, 0))).To(BeFalse())
		})

		It("should ignore non-loads and invalid registers", func() {
			inst := decoder.Decode(insts.ADDI(5, 0, 1))
			*demw = pipeline.DEMWRegister{Valid: true, Inst: inst, Rd: 5, Ctrl: inst.Ctrl}
			Expect(detect(insts.ADDI(6, 5, 1))).To(BeFalse())

			loadInto(5)
			demw.Disable()
			Expect(detect(insts.ADDI(6, 5, 1))).To(BeFalse())

			loadInto(5)
			ifde.Valid = false
			Expect(hazardUnit.DetectLoadUse(ifde, decoder.Decode(insts.ADDI(6, 5, 1)), demw)).
				To(BeFalse())
		})

		It("should ignore LUI, AUIPC and JAL", func() {
			loadInto(5)
			Expect(detect(insts.LUI(6, 5))).To(BeFalse())
			Expect(detect(insts.AUIPC(6, 5))).To(BeFalse())
			Expect(detect(insts.JAL(6, 8))).To(BeFalse())
			Expect(detect(insts.JALR(6, 5, 0))).To(BeTrue())
		})
	})

	Describe("ComputeStalls", func() {
		It("should pass through an idle cycle", func() {
			r := hazardUnit.ComputeStalls(false, false, false)
			Expect(r).To(Equal(pipeline.StallResult{}))
			Expect(r.Stall()).To(BeFalse())
		})

		It("should freeze everything on a bus stall", func() {
			r := hazardUnit.ComputeStalls(true, true, true)
			Expect(r.HoldPC).To(BeTrue())
			Expect(r.HoldIFDE).To(BeTrue())
			Expect(r.FreezeDEMW).To(BeTrue())
			Expect(r.BubbleDEMW).To(BeFalse())
			Expect(r.Flush).To(BeFalse())
		})

		It("should insert a bubble on load-use", func() {
			r := hazardUnit.ComputeStalls(false, true, true)
			Expect(r.HoldPC).To(BeTrue())
			Expect(r.HoldIFDE).To(BeTrue())
			Expect(r.BubbleDEMW).To(BeTrue())
			Expect(r.FreezeDEMW).To(BeFalse())
			Expect(r.Flush).To(BeFalse())
		})

		It("should flush on a taken branch", func() {
			r := hazardUnit.ComputeStalls(false, false, true)
			Expect(r.Flush).To(BeTrue())
			Expect(r.Stall()).To(BeFalse())
		})

		It("should never stall and flush in the same cycle", func() {
			for _, bs := range []bool{false, true} {
				for _, lu := range []bool{false, true} {
					for _, bt := range []bool{false, true} {
						r := hazardUnit.ComputeStalls(bs, lu, bt)
						Expect(r.Stall() && r.Flush).To(BeFalse())
					}
				}
			}
		})
	})
})
