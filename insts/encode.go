package insts

// EncodeR encodes an R-format instruction.
func EncodeR(funct7, rs2, rs1, funct3, rd uint8, opcode uint32) uint32 {
	return uint32(funct7&0x7F)<<25 | uint32(rs2&0x1F)<<20 | uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 | uint32(rd&0x1F)<<7 | opcode&0x7F
}

// EncodeI encodes an I-format instruction. Only the low 12 bits of imm are used.
func EncodeI(imm int32, rs1, funct3, rd uint8, opcode uint32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 | uint32(rd&0x1F)<<7 | opcode&0x7F
}

// EncodeS encodes an S-format instruction.
func EncodeS(imm int32, rs2, rs1, funct3 uint8, opcode uint32) uint32 {
	v := uint32(imm) & 0xFFF
	return (v>>5)<<25 | uint32(rs2&0x1F)<<20 | uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 | (v&0x1F)<<7 | opcode&0x7F
}

// EncodeB encodes a B-format instruction. offset is a byte offset; bit 0 is dropped.
func EncodeB(offset int32, rs2, rs1, funct3 uint8, opcode uint32) uint32 {
	v := uint32(offset) & 0x1FFF
	return ((v>>12)&1)<<31 | ((v>>5)&0x3F)<<25 | uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 | uint32(funct3&0x7)<<12 | ((v>>1)&0xF)<<8 |
		((v>>11)&1)<<7 | opcode&0x7F
}

// EncodeU encodes a U-format instruction from the 20-bit upper immediate.
func EncodeU(imm20 uint32, rd uint8, opcode uint32) uint32 {
	return (imm20&0xFFFFF)<<12 | uint32(rd&0x1F)<<7 | opcode&0x7F
}

// EncodeJ encodes a J-format instruction. offset is a byte offset; bit 0 is dropped.
func EncodeJ(offset int32, rd uint8, opcode uint32) uint32 {
	v := uint32(offset) & 0x1FFFFF
	return ((v>>20)&1)<<31 | ((v>>1)&0x3FF)<<21 | ((v>>11)&1)<<20 |
		((v>>12)&0xFF)<<12 | uint32(rd&0x1F)<<7 | opcode&0x7F
}

// Mnemonic helpers. Register-register operations take (rd, rs1, rs2).

func ADD(rd, rs1, rs2 uint8) uint32  { return EncodeR(0, rs2, rs1, 0b000, rd, OpcodeOp) }
func SUB(rd, rs1, rs2 uint8) uint32  { return EncodeR(0x20, rs2, rs1, 0b000, rd, OpcodeOp) }
func SLL(rd, rs1, rs2 uint8) uint32  { return EncodeR(0, rs2, rs1, 0b001, rd, OpcodeOp) }
func SLT(rd, rs1, rs2 uint8) uint32  { return EncodeR(0, rs2, rs1, 0b010, rd, OpcodeOp) }
func SLTU(rd, rs1, rs2 uint8) uint32 { return EncodeR(0, rs2, rs1, 0b011, rd, OpcodeOp) }
func XOR(rd, rs1, rs2 uint8) uint32  { return EncodeR(0, rs2, rs1, 0b100, rd, OpcodeOp) }
func SRL(rd, rs1, rs2 uint8) uint32  { return EncodeR(0, rs2, rs1, 0b101, rd, OpcodeOp) }
func SRA(rd, rs1, rs2 uint8) uint32  { return EncodeR(0x20, rs2, rs1, 0b101, rd, OpcodeOp) }
func OR(rd, rs1, rs2 uint8) uint32   { return EncodeR(0, rs2, rs1, 0b110, rd, OpcodeOp) }
func AND(rd, rs1, rs2 uint8) uint32  { return EncodeR(0, rs2, rs1, 0b111, rd, OpcodeOp) }

func ADDI(rd, rs1 uint8, imm int32) uint32  { return EncodeI(imm, rs1, 0b000, rd, OpcodeOpImm) }
func SLTI(rd, rs1 uint8, imm int32) uint32  { return EncodeI(imm, rs1, 0b010, rd, OpcodeOpImm) }
func SLTIU(rd, rs1 uint8, imm int32) uint32 { return EncodeI(imm, rs1, 0b011, rd, OpcodeOpImm) }
func XORI(rd, rs1 uint8, imm int32) uint32  { return EncodeI(imm, rs1, 0b100, rd, OpcodeOpImm) }
func ORI(rd, rs1 uint8, imm int32) uint32   { return EncodeI(imm, rs1, 0b110, rd, OpcodeOpImm) }
func ANDI(rd, rs1 uint8, imm int32) uint32  { return EncodeI(imm, rs1, 0b111, rd, OpcodeOpImm) }

func SLLI(rd, rs1, shamt uint8) uint32 { return EncodeR(0, shamt, rs1, 0b001, rd, OpcodeOpImm) }
func SRLI(rd, rs1, shamt uint8) uint32 { return EncodeR(0, shamt, rs1, 0b101, rd, OpcodeOpImm) }
func SRAI(rd, rs1, shamt uint8) uint32 { return EncodeR(0x20, shamt, rs1, 0b101, rd, OpcodeOpImm) }

func LB(rd, rs1 uint8, off int32) uint32  { return EncodeI(off, rs1, 0b000, rd, OpcodeLoad) }
func LH(rd, rs1 uint8, off int32) uint32  { return EncodeI(off, rs1, 0b001, rd, OpcodeLoad) }
func LW(rd, rs1 uint8, off int32) uint32  { return EncodeI(off, rs1, 0b010, rd, OpcodeLoad) }
func LBU(rd, rs1 uint8, off int32) uint32 { return EncodeI(off, rs1, 0b100, rd, OpcodeLoad) }
func LHU(rd, rs1 uint8, off int32) uint32 { return EncodeI(off, rs1, 0b101, rd, OpcodeLoad) }

// Stores take (rs2, rs1, offset), matching "sw rs2, offset(rs1)".
func SB(rs2, rs1 uint8, off int32) uint32 { return EncodeS(off, rs2, rs1, 0b000, OpcodeStore) }
func SH(rs2, rs1 uint8, off int32) uint32 { return EncodeS(off, rs2, rs1, 0b001, OpcodeStore) }
func SW(rs2, rs1 uint8, off int32) uint32 { return EncodeS(off, rs2, rs1, 0b010, OpcodeStore) }

func BEQ(rs1, rs2 uint8, off int32) uint32  { return EncodeB(off, rs2, rs1, 0b000, OpcodeBranch) }
func BNE(rs1, rs2 uint8, off int32) uint32  { return EncodeB(off, rs2, rs1, 0b001, OpcodeBranch) }
func BLT(rs1, rs2 uint8, off int32) uint32  { return EncodeB(off, rs2, rs1, 0b100, OpcodeBranch) }
func BGE(rs1, rs2 uint8, off int32) uint32  { return EncodeB(off, rs2, rs1, 0b101, OpcodeBranch) }
func BLTU(rs1, rs2 uint8, off int32) uint32 { return EncodeB(off, rs2, rs1, 0b110, OpcodeBranch) }
func BGEU(rs1, rs2 uint8, off int32) uint32 { return EncodeB(off, rs2, rs1, 0b111, OpcodeBranch) }

func LUI(rd uint8, imm20 uint32) uint32   { return EncodeU(imm20, rd, OpcodeLUI) }
func AUIPC(rd uint8, imm20 uint32) uint32 { return EncodeU(imm20, rd, OpcodeAUIPC) }

func JAL(rd uint8, off int32) uint32       { return EncodeJ(off, rd, OpcodeJAL) }
func JALR(rd, rs1 uint8, off int32) uint32 { return EncodeI(off, rs1, 0b000, rd, OpcodeJALR) }

// NOP is "addi x0, x0, 0", also the memory model's fill and sentinel word.
const NOP uint32 = 0x00000013

func FENCE() uint32  { return EncodeI(0, 0, 0, 0, OpcodeFence) }
func ECALL() uint32  { return EncodeI(0, 0, 0, 0, OpcodeSystem) }
func EBREAK() uint32 { return EncodeI(1, 0, 0, 0, OpcodeSystem) }
