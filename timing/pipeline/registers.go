// Package pipeline provides the 3-stage (IF, DE, MW) RV32I pipeline model.
package pipeline

import "github.com/sarchlab/rv32sim/insts"

// IFDERegister holds state between the Fetch and Decode stages.
type IFDERegister struct {
	// Valid indicates if this pipeline register contains valid data.
	// An invalid register is a bubble.
	Valid bool

	// PC is the program counter of the fetched instruction.
	PC uint32

	// InstructionWord is the raw 32-bit instruction word.
	InstructionWord uint32
}

// Clear resets the IF/DE register to a bubble.
func (r *IFDERegister) Clear() {
	r.Valid = false
	r.PC = 0
	r.InstructionWord = 0
}

// DEMWRegister holds state between the Decode and Memory/Writeback stages.
type DEMWRegister struct {
	// Valid indicates if this pipeline register contains valid data.
	Valid bool

	// PC is the program counter of the instruction.
	PC uint32

	// Inst is the decoded instruction.
	Inst *insts.Instruction

	// ALUResult is the result for ALU ops and the address for loads/stores.
	ALUResult uint32

	// StoreValue is the rs2 value to store.
	StoreValue uint32

	// PCPlus4 is the link value written by JAL/JALR.
	PCPlus4 uint32

	// Rd is the destination register.
	Rd uint8

	// Ctrl is the latched control bundle. RegWrite, MemRead and MemWrite
	// are already gated by the validity of the instruction that produced
	// them.
	Ctrl insts.Control
}

// Clear resets the DE/MW register to empty state.
func (r *DEMWRegister) Clear() {
	*r = DEMWRegister{}
}

// Disable turns the register into a bubble without touching its data
// fields: validity and every write or memory enable are cleared.
func (r *DEMWRegister) Disable() {
	r.Valid = false
	r.Ctrl.RegWrite = false
	r.Ctrl.MemRead = false
	r.Ctrl.MemWrite = false
}
