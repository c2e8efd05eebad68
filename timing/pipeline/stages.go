package pipeline

import (
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/timing/bus"
)

// FetchStage handles instruction fetch from memory.
type FetchStage struct {
	memory InstructionMemory
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage(memory InstructionMemory) *FetchStage {
	return &FetchStage{memory: memory}
}

// Fetch reads the instruction at the given PC.
func (s *FetchStage) Fetch(pc uint32) uint32 {
	return s.memory.Fetch(pc)
}

// DecodeStage decodes, reads registers, executes on the ALU and resolves
// branches and jumps.
type DecodeStage struct {
	regFile    *emu.RegFile
	decoder    *insts.Decoder
	alu        *emu.ALU
	branchUnit *emu.BranchUnit
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{
		regFile:    regFile,
		decoder:    insts.NewDecoder(),
		alu:        emu.NewALU(),
		branchUnit: emu.NewBranchUnit(),
	}
}

// DecodeResult holds the result of the decode stage.
type DecodeResult struct {
	Inst     *insts.Instruction
	Rs1Value uint32
	Rs2Value uint32

	ALUResult uint32

	BranchTaken  bool
	BranchTarget uint32
}

// Decode processes the instruction in IF/DE. Register reads observe the
// write port driven by MW in the same cycle.
func (s *DecodeStage) Decode(ifde *IFDERegister, wp emu.WritePort) DecodeResult {
	inst := s.decoder.Decode(ifde.InstructionWord)
	result := DecodeResult{
		Inst:     inst,
		Rs1Value: s.regFile.Read(inst.Rs1, wp),
		Rs2Value: s.regFile.Read(inst.Rs2, wp),
	}

	a := result.Rs1Value
	if inst.Ctrl.AUIPC {
		a = ifde.PC
	}
	b := result.Rs2Value
	if inst.Ctrl.ALUSrcImm {
		b = inst.Imm
	}
	result.ALUResult, _ = s.alu.Execute(a, b, inst.Ctrl.ALUOp)

	result.BranchTaken, result.BranchTarget = s.branchUnit.Resolve(
		inst.Ctrl, ifde.PC, inst.Imm, result.Rs1Value, result.Rs2Value)

	return result
}

// MemoryStage builds data-side requests and aligns returned load data.
type MemoryStage struct{}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage() *MemoryStage {
	return &MemoryStage{}
}

// Request returns the data-side request for the instruction in DE/MW.
func (s *MemoryStage) Request(demw *DEMWRegister) bus.Request {
	if !demw.Valid {
		return bus.Request{}
	}

	req := bus.Request{
		Addr:  demw.ALUResult,
		Read:  demw.Ctrl.MemRead,
		Write: demw.Ctrl.MemWrite,
	}
	if req.Write {
		req.WData, req.Strobe = emu.StoreLanes(req.Addr, demw.StoreValue, demw.Ctrl.Width)
	}
	return req
}

// LoadValue extracts and extends the loaded value from the bus read data.
func (s *MemoryStage) LoadValue(demw *DEMWRegister, readData uint32) uint32 {
	return emu.ExtractLoad(demw.ALUResult, readData, demw.Ctrl.Width, demw.Ctrl.Unsigned)
}

// WritebackStage selects the value written to the register file.
type WritebackStage struct{}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage() *WritebackStage {
	return &WritebackStage{}
}

// WritePort returns this cycle's register-file write. It is enabled only
// for a valid register-writing instruction whose memory access, if any, is
// not held by a bus stall.
func (s *WritebackStage) WritePort(demw *DEMWRegister, loadValue uint32, busStall bool) emu.WritePort {
	wp := emu.WritePort{
		Enable: demw.Valid && demw.Ctrl.RegWrite && !busStall,
		Index:  demw.Rd,
	}

	switch {
	case demw.Ctrl.Jump:
		wp.Value = demw.PCPlus4
	case demw.Ctrl.MemToReg:
		wp.Value = loadValue
	default:
		wp.Value = demw.ALUResult
	}

	return wp
}
