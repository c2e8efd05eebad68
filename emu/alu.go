package emu

import "github.com/sarchlab/rv32sim/insts"

// ALU implements the RV32I arithmetic and logic operations.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Execute computes op over a and b. Shift amounts use b[4:0]. Undefined
// operation codes produce zero. zero reports whether the result is zero.
func (u *ALU) Execute(x, y uint32, op insts.ALUOp) (result uint32, zero bool) {
	shamt := y & 0x1F

	switch op {
	case insts.ALUAdd:
		result = x + y
	case insts.ALUSub:
		result = x - y
	case insts.ALUSll:
		result = x << shamt
	case insts.ALUSlt:
		if int32(x) < int32(y) {
			result = 1
		}
	case insts.ALUSltu:
		if x < y {
			result = 1
		}
	case insts.ALUXor:
		result = x ^ y
	case insts.ALUSrl:
		result = x >> shamt
	case insts.ALUSra:
		result = uint32(int32(x) >> shamt)
	case insts.ALUOr:
		result = x | y
	case insts.ALUAnd:
		result = x & y
	case insts.ALUPassB:
		result = y
	}

	return result, result == 0
}
