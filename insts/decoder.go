package insts

import "fmt"

// Opcode values (bits [6:0]) of the RV32I base instruction set.
const (
	OpcodeLUI    uint32 = 0b0110111
	OpcodeAUIPC  uint32 = 0b0010111
	OpcodeJAL    uint32 = 0b1101111
	OpcodeJALR   uint32 = 0b1100111
	OpcodeBranch uint32 = 0b1100011
	OpcodeLoad   uint32 = 0b0000011
	OpcodeStore  uint32 = 0b0100011
	OpcodeOpImm  uint32 = 0b0010011
	OpcodeOp     uint32 = 0b0110011
	OpcodeFence  uint32 = 0b0001111
	OpcodeSystem uint32 = 0b1110011
)

// funct7 values distinguishing ADD/SUB and SRL/SRA.
const (
	funct7Base uint32 = 0b0000000
	funct7Alt  uint32 = 0b0100000
)

// Class is the instruction class selected by the opcode.
type Class uint8

// Instruction classes.
const (
	ClassIllegal Class = iota
	ClassLUI
	ClassAUIPC
	ClassJAL
	ClassJALR
	ClassBranch
	ClassLoad
	ClassStore
	ClassALUImm
	ClassALUReg
	ClassFence
	ClassSystem
)

var classNames = [...]string{
	ClassIllegal: "illegal",
	ClassLUI:     "lui",
	ClassAUIPC:   "auipc",
	ClassJAL:     "jal",
	ClassJALR:    "jalr",
	ClassBranch:  "branch",
	ClassLoad:    "load",
	ClassStore:   "store",
	ClassALUImm:  "alu-imm",
	ClassALUReg:  "alu-reg",
	ClassFence:   "fence",
	ClassSystem:  "system",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Op represents an RV32I operation.
type Op uint8

// RV32I operations.
const (
	OpUnknown Op = iota
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpFENCE
	OpSYSTEM
)

var opNames = [...]string{
	OpUnknown: "unknown",
	OpLUI:     "lui", OpAUIPC: "auipc", OpJAL: "jal", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge", OpBLTU: "bltu", OpBGEU: "bgeu",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLBU: "lbu", OpLHU: "lhu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw",
	OpADDI: "addi", OpSLTI: "slti", OpSLTIU: "sltiu", OpXORI: "xori", OpORI: "ori",
	OpANDI: "andi", OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai",
	OpADD: "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu",
	OpXOR: "xor", OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",
	OpFENCE: "fence", OpSYSTEM: "system",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// ALUOp is the 4-bit operation selector of the arithmetic unit.
type ALUOp uint8

// ALU operations. Codes 11 through 15 are undefined and produce zero.
const (
	ALUAdd ALUOp = iota
	ALUSub
	ALUSll
	ALUSlt
	ALUSltu
	ALUXor
	ALUSrl
	ALUSra
	ALUOr
	ALUAnd
	ALUPassB
)

// Width is the size of a memory access.
type Width uint8

// Memory access widths.
const (
	WidthByte Width = iota
	WidthHalf
	WidthWord
)

func (w Width) String() string {
	switch w {
	case WidthByte:
		return "byte"
	case WidthHalf:
		return "half"
	case WidthWord:
		return "word"
	default:
		return fmt.Sprintf("width(%d)", uint8(w))
	}
}

// BranchCond is the comparison selected by a conditional branch's funct3.
type BranchCond uint8

// Branch comparisons.
const (
	CondEQ  BranchCond = 0b000
	CondNE  BranchCond = 0b001
	CondLT  BranchCond = 0b100
	CondGE  BranchCond = 0b101
	CondLTU BranchCond = 0b110
	CondGEU BranchCond = 0b111
)

// Control is the flattened control-signal bundle produced by the decoder.
// The zero value is the safe default: no register write, no memory access.
type Control struct {
	ALUOp     ALUOp
	ALUSrcImm bool // operand B is the immediate rather than rs2
	RegWrite  bool
	MemRead   bool
	MemWrite  bool
	Width     Width
	Unsigned  bool // zero-extend loaded bytes/halves
	MemToReg  bool

	Branch     bool // conditional branch
	BranchCond BranchCond
	Jump       bool // JAL or JALR
	JALR       bool
	LUI        bool
	AUIPC      bool

	Illegal bool
}

// Instruction represents a decoded RV32I instruction.
type Instruction struct {
	Word  uint32
	Class Class
	Op    Op

	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Funct3 uint8
	Funct7 uint8

	// Imm is the sign- or zero-extended immediate for the instruction's format.
	Imm uint32

	Ctrl Control
}

// UsesRs1 reports whether the instruction reads rs1.
func (i *Instruction) UsesRs1() bool {
	switch i.Class {
	case ClassJALR, ClassBranch, ClassLoad, ClassStore, ClassALUImm, ClassALUReg:
		return true
	default:
		return false
	}
}

// UsesRs2 reports whether rs2 is a register-sourced ALU/compare operand.
// Store data is read through rs2 as well but is not an ALU operand.
func (i *Instruction) UsesRs2() bool {
	return !i.Ctrl.Illegal && (i.Class == ClassALUReg || i.Class == ClassBranch)
}

// String returns a short disassembly used in logs.
func (i *Instruction) String() string {
	imm := int32(i.Imm)
	switch i.Class {
	case ClassLUI, ClassAUIPC:
		return fmt.Sprintf("%s x%d, 0x%x", i.Op, i.Rd, i.Imm>>12)
	case ClassJAL:
		return fmt.Sprintf("%s x%d, %d", i.Op, i.Rd, imm)
	case ClassJALR, ClassLoad:
		return fmt.Sprintf("%s x%d, %d(x%d)", i.Op, i.Rd, imm, i.Rs1)
	case ClassStore:
		return fmt.Sprintf("%s x%d, %d(x%d)", i.Op, i.Rs2, imm, i.Rs1)
	case ClassBranch:
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rs1, i.Rs2, imm)
	case ClassALUImm:
		return fmt.Sprintf("%s x%d, x%d, %d", i.Op, i.Rd, i.Rs1, imm)
	case ClassALUReg:
		return fmt.Sprintf("%s x%d, x%d, x%d", i.Op, i.Rd, i.Rs1, i.Rs2)
	case ClassFence, ClassSystem:
		return i.Op.String()
	default:
		return fmt.Sprintf("illegal 0x%08x", i.Word)
	}
}

// Decoder decodes RV32I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32I instruction word. It never fails: undefined
// encodings come back with Ctrl.Illegal set and every side-effect control
// cleared.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Word:   word,
		Rd:     uint8((word >> 7) & 0x1F),
		Funct3: uint8((word >> 12) & 0x7),
		Rs1:    uint8((word >> 15) & 0x1F),
		Rs2:    uint8((word >> 20) & 0x1F),
		Funct7: uint8((word >> 25) & 0x7F),
		Imm:    Immediate(word),
	}

	switch word & 0x7F {
	case OpcodeLUI:
		inst.Class, inst.Op = ClassLUI, OpLUI
		inst.Ctrl = Control{ALUOp: ALUPassB, ALUSrcImm: true, RegWrite: true, LUI: true}
	case OpcodeAUIPC:
		inst.Class, inst.Op = ClassAUIPC, OpAUIPC
		inst.Ctrl = Control{ALUOp: ALUAdd, ALUSrcImm: true, RegWrite: true, AUIPC: true}
	case OpcodeJAL:
		inst.Class, inst.Op = ClassJAL, OpJAL
		inst.Ctrl = Control{ALUOp: ALUAdd, ALUSrcImm: true, RegWrite: true, Jump: true}
	case OpcodeJALR:
		d.decodeJALR(inst)
	case OpcodeBranch:
		d.decodeBranch(inst)
	case OpcodeLoad:
		d.decodeLoad(inst)
	case OpcodeStore:
		d.decodeStore(inst)
	case OpcodeOpImm:
		d.decodeALUImm(inst)
	case OpcodeOp:
		d.decodeALUReg(inst)
	case OpcodeFence:
		inst.Class, inst.Op = ClassFence, OpFENCE
	case OpcodeSystem:
		inst.Class, inst.Op = ClassSystem, OpSYSTEM
	default:
		markIllegal(inst)
	}

	return inst
}

func markIllegal(inst *Instruction) {
	inst.Class = ClassIllegal
	inst.Op = OpUnknown
	inst.Ctrl = Control{Illegal: true}
}

func (d *Decoder) decodeJALR(inst *Instruction) {
	if inst.Funct3 != 0 {
		markIllegal(inst)
		return
	}
	inst.Class, inst.Op = ClassJALR, OpJALR
	inst.Ctrl = Control{ALUOp: ALUAdd, ALUSrcImm: true, RegWrite: true, Jump: true, JALR: true}
}

var branchOps = map[uint8]Op{
	uint8(CondEQ): OpBEQ, uint8(CondNE): OpBNE,
	uint8(CondLT): OpBLT, uint8(CondGE): OpBGE,
	uint8(CondLTU): OpBLTU, uint8(CondGEU): OpBGEU,
}

func (d *Decoder) decodeBranch(inst *Instruction) {
	op, ok := branchOps[inst.Funct3]
	if !ok {
		markIllegal(inst)
		return
	}
	inst.Class, inst.Op = ClassBranch, op
	inst.Ctrl = Control{ALUOp: ALUSub, Branch: true, BranchCond: BranchCond(inst.Funct3)}
}

func (d *Decoder) decodeLoad(inst *Instruction) {
	ctrl := Control{ALUOp: ALUAdd, ALUSrcImm: true, RegWrite: true, MemRead: true, MemToReg: true}
	switch inst.Funct3 {
	case 0b000:
		inst.Op, ctrl.Width = OpLB, WidthByte
	case 0b001:
		inst.Op, ctrl.Width = OpLH, WidthHalf
	case 0b010:
		inst.Op, ctrl.Width = OpLW, WidthWord
	case 0b100:
		inst.Op, ctrl.Width, ctrl.Unsigned = OpLBU, WidthByte, true
	case 0b101:
		inst.Op, ctrl.Width, ctrl.Unsigned = OpLHU, WidthHalf, true
	default:
		markIllegal(inst)
		return
	}
	inst.Class = ClassLoad
	inst.Ctrl = ctrl
}

func (d *Decoder) decodeStore(inst *Instruction) {
	ctrl := Control{ALUOp: ALUAdd, ALUSrcImm: true, MemWrite: true}
	switch inst.Funct3 {
	case 0b000:
		inst.Op, ctrl.Width = OpSB, WidthByte
	case 0b001:
		inst.Op, ctrl.Width = OpSH, WidthHalf
	case 0b010:
		inst.Op, ctrl.Width = OpSW, WidthWord
	default:
		markIllegal(inst)
		return
	}
	inst.Class = ClassStore
	inst.Ctrl = ctrl
}

// decodeALUImm decodes OP-IMM. Shift-immediates additionally constrain funct7;
// the other operations take all of bits [31:20] as the immediate.
func (d *Decoder) decodeALUImm(inst *Instruction) {
	f7 := uint32(inst.Funct7)
	var op Op
	var aluOp ALUOp

	switch inst.Funct3 {
	case 0b000:
		op, aluOp = OpADDI, ALUAdd
	case 0b010:
		op, aluOp = OpSLTI, ALUSlt
	case 0b011:
		op, aluOp = OpSLTIU, ALUSltu
	case 0b100:
		op, aluOp = OpXORI, ALUXor
	case 0b110:
		op, aluOp = OpORI, ALUOr
	case 0b111:
		op, aluOp = OpANDI, ALUAnd
	case 0b001:
		if f7 != funct7Base {
			markIllegal(inst)
			return
		}
		op, aluOp = OpSLLI, ALUSll
	case 0b101:
		switch f7 {
		case funct7Base:
			op, aluOp = OpSRLI, ALUSrl
		case funct7Alt:
			op, aluOp = OpSRAI, ALUSra
		default:
			markIllegal(inst)
			return
		}
	}

	inst.Class, inst.Op = ClassALUImm, op
	inst.Ctrl = Control{ALUOp: aluOp, ALUSrcImm: true, RegWrite: true}
}

func (d *Decoder) decodeALUReg(inst *Instruction) {
	var op Op
	var aluOp ALUOp

	switch uint32(inst.Funct7) {
	case funct7Base:
		switch inst.Funct3 {
		case 0b000:
			op, aluOp = OpADD, ALUAdd
		case 0b001:
			op, aluOp = OpSLL, ALUSll
		case 0b010:
			op, aluOp = OpSLT, ALUSlt
		case 0b011:
			op, aluOp = OpSLTU, ALUSltu
		case 0b100:
			op, aluOp = OpXOR, ALUXor
		case 0b101:
			op, aluOp = OpSRL, ALUSrl
		case 0b110:
			op, aluOp = OpOR, ALUOr
		case 0b111:
			op, aluOp = OpAND, ALUAnd
		}
	case funct7Alt:
		switch inst.Funct3 {
		case 0b000:
			op, aluOp = OpSUB, ALUSub
		case 0b101:
			op, aluOp = OpSRA, ALUSra
		default:
			markIllegal(inst)
			return
		}
	default:
		markIllegal(inst)
		return
	}

	inst.Class, inst.Op = ClassALUReg, op
	inst.Ctrl = Control{ALUOp: aluOp, RegWrite: true}
}
