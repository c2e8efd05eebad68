package pipeline

import "github.com/sarchlab/rv32sim/insts"

// StallResult contains the per-cycle stall and flush control signals.
type StallResult struct {
	// BusStall is the external stall from the data port. It freezes the
	// whole pipeline, including DE/MW.
	BusStall bool
	// LoadUse indicates a load-use hazard between DE/MW and decode.
	LoadUse bool
	// HoldPC holds the program counter.
	HoldPC bool
	// HoldIFDE holds the IF/DE register.
	HoldIFDE bool
	// FreezeDEMW keeps DE/MW unchanged.
	FreezeDEMW bool
	// BubbleDEMW advances DE/MW with validity and enables cleared.
	BubbleDEMW bool
	// Flush discards the instruction fetched behind a taken branch.
	Flush bool
}

// Stall reports whether the pipeline is stalled for any reason.
func (s StallResult) Stall() bool {
	return s.BusStall || s.LoadUse
}

// HazardUnit detects load-use hazards and arbitrates stall against flush.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// DetectLoadUse reports whether the instruction in decode reads the
// destination of the load currently in DE/MW. rs2 counts only when it is a
// register-sourced operand.
func (h *HazardUnit) DetectLoadUse(
	ifde *IFDERegister,
	inst *insts.Instruction,
	demw *DEMWRegister,
) bool {
	if !ifde.Valid || inst == nil {
		return false
	}
	if !demw.Valid || !demw.Ctrl.MemRead || demw.Rd == 0 {
		return false
	}

	if inst.UsesRs1() && inst.Rs1 == demw.Rd {
		return true
	}
	if inst.UsesRs2() && inst.Rs2 == demw.Rd {
		return true
	}

	return false
}

// ComputeStalls combines the external stall, the load-use hazard and the
// branch outcome in decode. Either stall suppresses the flush so the branch
// is re-evaluated once the stall clears.
func (h *HazardUnit) ComputeStalls(busStall, loadUse, branchTaken bool) StallResult {
	result := StallResult{
		BusStall: busStall,
		LoadUse:  loadUse,
	}

	switch {
	case busStall:
		result.HoldPC = true
		result.HoldIFDE = true
		result.FreezeDEMW = true
	case loadUse:
		result.HoldPC = true
		result.HoldIFDE = true
		result.BubbleDEMW = true
	case branchTaken:
		result.Flush = true
	}

	return result
}
