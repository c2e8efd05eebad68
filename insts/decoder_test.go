package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("field extraction", func() {
		// add x3, x1, x2 -> 0x002081B3
		It("should extract rd, rs1, rs2, funct3 and funct7", func() {
			inst := decoder.Decode(0x002081B3)

			Expect(inst.Op).To(Equal(insts.OpADD))
			Expect(inst.Class).To(Equal(insts.ClassALUReg))
			Expect(inst.Rd).To(Equal(uint8(3)))
			Expect(inst.Rs1).To(Equal(uint8(1)))
			Expect(inst.Rs2).To(Equal(uint8(2)))
			Expect(inst.Funct3).To(Equal(uint8(0)))
			Expect(inst.Funct7).To(Equal(uint8(0)))
		})
	})

	Describe("OP-IMM", func() {
		It("should decode addi x1, x0, 42", func() {
			inst := decoder.Decode(0x02A00093)

			Expect(inst.Op).To(Equal(insts.OpADDI))
			Expect(inst.Rd).To(Equal(uint8(1)))
			Expect(inst.Imm).To(Equal(uint32(42)))
			Expect(inst.Ctrl.ALUOp).To(Equal(insts.ALUAdd))
			Expect(inst.Ctrl.ALUSrcImm).To(BeTrue())
			Expect(inst.Ctrl.RegWrite).To(BeTrue())
			Expect(inst.Ctrl.MemRead).To(BeFalse())
			Expect(inst.Ctrl.MemWrite).To(BeFalse())
		})

		It("should sign-extend a negative immediate", func() {
			inst := decoder.Decode(insts.ADDI(2, 1, -10))

			Expect(int32(inst.Imm)).To(Equal(int32(-10)))
		})

		DescribeTable("ALU selection",
			func(word uint32, op insts.Op, aluOp insts.ALUOp) {
				inst := decoder.Decode(word)
				Expect(inst.Op).To(Equal(op))
				Expect(inst.Ctrl.ALUOp).To(Equal(aluOp))
				Expect(inst.Ctrl.Illegal).To(BeFalse())
			},
			Entry("slti", insts.SLTI(1, 2, 3), insts.OpSLTI, insts.ALUSlt),
			Entry("sltiu", insts.SLTIU(1, 2, 3), insts.OpSLTIU, insts.ALUSltu),
			Entry("xori", insts.XORI(1, 2, -1), insts.OpXORI, insts.ALUXor),
			Entry("ori", insts.ORI(1, 2, 3), insts.OpORI, insts.ALUOr),
			Entry("andi", insts.ANDI(1, 2, 3), insts.OpANDI, insts.ALUAnd),
			Entry("slli", insts.SLLI(1, 2, 31), insts.OpSLLI, insts.ALUSll),
			Entry("srli", insts.SRLI(1, 2, 4), insts.OpSRLI, insts.ALUSrl),
			Entry("srai", insts.SRAI(1, 2, 4), insts.OpSRAI, insts.ALUSra),
		)

		It("should reject slli with a nonzero funct7", func() {
			word := insts.EncodeR(0x20, 3, 2, 0b001, 1, insts.OpcodeOpImm)
			inst := decoder.Decode(word)

			Expect(inst.Ctrl.Illegal).To(BeTrue())
			Expect(inst.Ctrl.RegWrite).To(BeFalse())
		})

		It("should reject shift-right immediates with an unknown funct7", func() {
			word := insts.EncodeR(0x01, 3, 2, 0b101, 1, insts.OpcodeOpImm)

			Expect(decoder.Decode(word).Ctrl.Illegal).To(BeTrue())
		})
	})

	Describe("OP", func() {
		DescribeTable("funct3/funct7 dispatch",
			func(word uint32, op insts.Op, aluOp insts.ALUOp) {
				inst := decoder.Decode(word)
				Expect(inst.Op).To(Equal(op))
				Expect(inst.Ctrl.ALUOp).To(Equal(aluOp))
				Expect(inst.Ctrl.ALUSrcImm).To(BeFalse())
				Expect(inst.UsesRs2()).To(BeTrue())
			},
			Entry("add", insts.ADD(1, 2, 3), insts.OpADD, insts.ALUAdd),
			Entry("sub", insts.SUB(1, 2, 3), insts.OpSUB, insts.ALUSub),
			Entry("sll", insts.SLL(1, 2, 3), insts.OpSLL, insts.ALUSll),
			Entry("slt", insts.SLT(1, 2, 3), insts.OpSLT, insts.ALUSlt),
			Entry("sltu", insts.SLTU(1, 2, 3), insts.OpSLTU, insts.ALUSltu),
			Entry("xor", insts.XOR(1, 2, 3), insts.OpXOR, insts.ALUXor),
			Entry("srl", insts.SRL(1, 2, 3), insts.OpSRL, insts.ALUSrl),
			Entry("sra", insts.SRA(1, 2, 3), insts.OpSRA, insts.ALUSra),
			Entry("or", insts.OR(1, 2, 3), insts.OpOR, insts.ALUOr),
			Entry("and", insts.AND(1, 2, 3), insts.OpAND, insts.ALUAnd),
		)

		It("should reject funct7=0x20 outside add/sub and srl/sra", func() {
			word := insts.EncodeR(0x20, 3, 2, 0b111, 1, insts.OpcodeOp)

			Expect(decoder.Decode(word).Ctrl.Illegal).To(BeTrue())
		})

		It("should reject the M extension (funct7=0x01)", func() {
			word := insts.EncodeR(0x01, 3, 2, 0b000, 1, insts.OpcodeOp)

			Expect(decoder.Decode(word).Ctrl.Illegal).To(BeTrue())
		})
	})

	Describe("loads and stores", func() {
		DescribeTable("load width and signedness",
			func(word uint32, width insts.Width, unsigned bool) {
				inst := decoder.Decode(word)
				Expect(inst.Class).To(Equal(insts.ClassLoad))
				Expect(inst.Ctrl.MemRead).To(BeTrue())
				Expect(inst.Ctrl.MemWrite).To(BeFalse())
				Expect(inst.Ctrl.MemToReg).To(BeTrue())
				Expect(inst.Ctrl.Width).To(Equal(width))
				Expect(inst.Ctrl.Unsigned).To(Equal(unsigned))
			},
			Entry("lb", insts.LB(1, 2, 0), insts.WidthByte, false),
			Entry("lh", insts.LH(1, 2, 0), insts.WidthHalf, false),
			Entry("lw", insts.LW(1, 2, 0), insts.WidthWord, false),
			Entry("lbu", insts.LBU(1, 2, 0), insts.WidthByte, true),
			Entry("lhu", insts.LHU(1, 2, 0), insts.WidthHalf, true),
		)

		It("should reject load funct3=3", func() {
			word := insts.EncodeI(0, 2, 0b011, 1, insts.OpcodeLoad)

			inst := decoder.Decode(word)
			Expect(inst.Ctrl.Illegal).To(BeTrue())
			Expect(inst.Ctrl.MemRead).To(BeFalse())
		})

		It("should decode sw x1, 0(x30)", func() {
			inst := decoder.Decode(0x001F2023)

			Expect(inst.Op).To(Equal(insts.OpSW))
			Expect(inst.Rs1).To(Equal(uint8(30)))
			Expect(inst.Rs2).To(Equal(uint8(1)))
			Expect(inst.Ctrl.MemWrite).To(BeTrue())
			Expect(inst.Ctrl.MemRead).To(BeFalse())
			Expect(inst.Ctrl.RegWrite).To(BeFalse())
			Expect(inst.Ctrl.Width).To(Equal(insts.WidthWord))
		})

		It("should reject store funct3=3", func() {
			word := insts.EncodeS(0, 1, 2, 0b011, insts.OpcodeStore)

			Expect(decoder.Decode(word).Ctrl.Illegal).To(BeTrue())
		})

		It("should never set both memory directions", func() {
			for opcode := uint32(0); opcode < 128; opcode++ {
				for funct3 := uint8(0); funct3 < 8; funct3++ {
					inst := decoder.Decode(insts.EncodeI(0, 1, funct3, 2, opcode))
					Expect(inst.Ctrl.MemRead && inst.Ctrl.MemWrite).To(BeFalse())
				}
			}
		})
	})

	Describe("control flow", func() {
		It("should decode beq x1, x2, 8", func() {
			inst := decoder.Decode(0x00208463)

			Expect(inst.Op).To(Equal(insts.OpBEQ))
			Expect(inst.Ctrl.Branch).To(BeTrue())
			Expect(inst.Ctrl.BranchCond).To(Equal(insts.CondEQ))
			Expect(inst.Ctrl.RegWrite).To(BeFalse())
			Expect(inst.Imm).To(Equal(uint32(8)))
		})

		It("should reject branch funct3=2", func() {
			word := insts.EncodeB(8, 2, 1, 0b010, insts.OpcodeBranch)

			Expect(decoder.Decode(word).Ctrl.Illegal).To(BeTrue())
		})

		It("should decode jal x0, -4", func() {
			inst := decoder.Decode(0xFFDFF06F)

			Expect(inst.Op).To(Equal(insts.OpJAL))
			Expect(inst.Ctrl.Jump).To(BeTrue())
			Expect(inst.Ctrl.JALR).To(BeFalse())
			Expect(int32(inst.Imm)).To(Equal(int32(-4)))
			Expect(inst.UsesRs1()).To(BeFalse())
		})

		It("should decode jalr and reject a nonzero funct3", func() {
			inst := decoder.Decode(insts.JALR(1, 5, 12))
			Expect(inst.Op).To(Equal(insts.OpJALR))
			Expect(inst.Ctrl.Jump).To(BeTrue())
			Expect(inst.Ctrl.JALR).To(BeTrue())
			Expect(inst.UsesRs1()).To(BeTrue())

			bad := insts.EncodeI(12, 5, 0b001, 1, insts.OpcodeJALR)
			Expect(decoder.Decode(bad).Ctrl.Illegal).To(BeTrue())
		})

		It("should decode lui as pass-through of the immediate", func() {
			inst := decoder.Decode(0x123450B7)

			Expect(inst.Op).To(Equal(insts.OpLUI))
			Expect(inst.Ctrl.LUI).To(BeTrue())
			Expect(inst.Ctrl.ALUOp).To(Equal(insts.ALUPassB))
			Expect(inst.Imm).To(Equal(uint32(0x12345000)))
		})

		It("should decode auipc", func() {
			inst := decoder.Decode(insts.AUIPC(4, 1))

			Expect(inst.Ctrl.AUIPC).To(BeTrue())
			Expect(inst.Imm).To(Equal(uint32(0x1000)))
		})
	})

	Describe("FENCE and SYSTEM", func() {
		It("should treat fence, ecall and ebreak as legal no-ops", func() {
			for _, word := range []uint32{insts.FENCE(), insts.ECALL(), insts.EBREAK()} {
				inst := decoder.Decode(word)
				Expect(inst.Ctrl.Illegal).To(BeFalse())
				Expect(inst.Ctrl.RegWrite).To(BeFalse())
				Expect(inst.Ctrl.MemRead).To(BeFalse())
				Expect(inst.Ctrl.MemWrite).To(BeFalse())
			}
		})
	})

	Describe("illegal opcodes", func() {
		It("should flag an undefined opcode with safe defaults", func() {
			inst := decoder.Decode(0xFFFFFFFF)

			Expect(inst.Class).To(Equal(insts.ClassIllegal))
			Expect(inst.Ctrl).To(Equal(insts.Control{Illegal: true}))
		})

		It("should flag the all-zero word", func() {
			Expect(decoder.Decode(0).Ctrl.Illegal).To(BeTrue())
		})
	})

	Describe("String", func() {
		It("should disassemble common forms", func() {
			Expect(decoder.Decode(insts.ADDI(1, 0, 42)).String()).To(Equal("addi x1, x0, 42"))
			Expect(decoder.Decode(insts.SW(1, 30, 0)).String()).To(Equal("sw x1, 0(x30)"))
			Expect(decoder.Decode(insts.ADD(3, 1, 2)).String()).To(Equal("add x3, x1, x2"))
		})
	})
})
