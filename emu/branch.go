package emu

import "github.com/sarchlab/rv32sim/insts"

// BranchUnit resolves control transfers in the decode stage.
type BranchUnit struct{}

// NewBranchUnit creates a new BranchUnit.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// Compare evaluates a conditional-branch comparison between rs1 and rs2.
// Conditions outside the defined six are never taken.
func (b *BranchUnit) Compare(cond insts.BranchCond, rs1, rs2 uint32) bool {
	switch cond {
	case insts.CondEQ:
		return rs1 == rs2
	case insts.CondNE:
		return rs1 != rs2
	case insts.CondLT:
		return int32(rs1) < int32(rs2)
	case insts.CondGE:
		return int32(rs1) >= int32(rs2)
	case insts.CondLTU:
		return rs1 < rs2
	case insts.CondGEU:
		return rs1 >= rs2
	default:
		return false
	}
}

// Resolve returns whether the instruction at pc redirects control and, if
// so, to where. JAL and JALR are always taken; the JALR target has bit 0
// cleared. Other targets are pc + imm.
func (b *BranchUnit) Resolve(ctrl insts.Control, pc, imm, rs1, rs2 uint32) (taken bool, target uint32) {
	switch {
	case ctrl.Illegal:
		return false, 0
	case ctrl.JALR:
		return true, (rs1 + imm) &^ 1
	case ctrl.Jump:
		return true, pc + imm
	case ctrl.Branch:
		return b.Compare(ctrl.BranchCond, rs1, rs2), pc + imm
	default:
		return false, 0
	}
}
