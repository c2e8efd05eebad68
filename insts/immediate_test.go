package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/insts"
)

var _ = Describe("Immediate", func() {
	It("should extract I-format immediates", func() {
		Expect(insts.ImmI(insts.ADDI(1, 0, 2047))).To(Equal(uint32(2047)))
		Expect(int32(insts.ImmI(insts.ADDI(1, 0, -2048)))).To(Equal(int32(-2048)))
		Expect(int32(insts.ImmI(insts.ADDI(1, 0, -1)))).To(Equal(int32(-1)))
	})

	It("should reassemble the split S-format fields", func() {
		// sw x5, -4(x2) -> 0xFE512E23
		Expect(insts.SW(5, 2, -4)).To(Equal(uint32(0xFE512E23)))
		Expect(int32(insts.ImmS(0xFE512E23))).To(Equal(int32(-4)))
		Expect(insts.ImmS(insts.SW(5, 2, 0x7AB))).To(Equal(uint32(0x7AB)))
	})

	It("should reassemble B-format offsets", func() {
		Expect(insts.ImmB(0x00208463)).To(Equal(uint32(8)))
		Expect(int32(insts.ImmB(insts.BNE(1, 2, -4096)))).To(Equal(int32(-4096)))
		Expect(insts.ImmB(insts.BEQ(1, 2, 4094))).To(Equal(uint32(4094)))
		Expect(insts.ImmB(insts.BEQ(1, 2, 2048))).To(Equal(uint32(2048)))
	})

	It("should produce even B and J offsets for every bit pattern of the fields", func() {
		for _, word := range []uint32{0xFFFFFFFF, 0xAAAAAAAA, 0x55555555, 0x80000000} {
			Expect(insts.ImmB(word) & 1).To(BeZero())
			Expect(insts.ImmJ(word) & 1).To(BeZero())
		}
	})

	It("should zero-fill the low bits of U-format immediates", func() {
		Expect(insts.ImmU(insts.LUI(1, 0xFFFFF))).To(Equal(uint32(0xFFFFF000)))
		Expect(insts.ImmU(0x123450B7)).To(Equal(uint32(0x12345000)))
	})

	It("should reassemble J-format offsets", func() {
		Expect(int32(insts.ImmJ(0xFFDFF06F))).To(Equal(int32(-4)))
		Expect(insts.ImmJ(insts.JAL(1, 0xFFFFE))).To(Equal(uint32(0xFFFFE)))
		Expect(int32(insts.ImmJ(insts.JAL(1, -0x100000)))).To(Equal(int32(-0x100000)))
		Expect(insts.ImmJ(insts.JAL(1, 2048))).To(Equal(uint32(2048)))
	})

	It("should select the format from the opcode", func() {
		Expect(int32(insts.Immediate(insts.LW(1, 2, -8)))).To(Equal(int32(-8)))
		Expect(int32(insts.Immediate(insts.SB(1, 2, -8)))).To(Equal(int32(-8)))
		Expect(int32(insts.Immediate(insts.BGE(1, 2, -8)))).To(Equal(int32(-8)))
		Expect(int32(insts.Immediate(insts.JALR(1, 2, -8)))).To(Equal(int32(-8)))
		Expect(insts.Immediate(insts.AUIPC(1, 3))).To(Equal(uint32(0x3000)))
		Expect(insts.Immediate(insts.ADD(1, 2, 3))).To(BeZero())
	})
})
