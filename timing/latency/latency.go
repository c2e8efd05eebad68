// Package latency provides the timing configuration of the data-side memory
// system and an analytical model of how many cycles each instruction spends
// in the pipeline.
//
// The model assumes no cache; with the data cache enabled, hits and misses
// add HitLatency or MissLatency to the response channels.
package latency

import (
	"github.com/sarchlab/rv32sim/insts"
)

// Penalties of the 3-stage pipeline, in cycles.
const (
	// TakenBranchPenalty is the one fetched instruction discarded by a
	// taken branch or jump resolved in decode.
	TakenBranchPenalty uint64 = 1

	// LoadUsePenalty is the bubble inserted when an instruction consumes
	// the result of the load immediately ahead of it.
	LoadUsePenalty uint64 = 1
)

// Table provides per-instruction occupancy lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the number of cycles the instruction occupies the MW
// stage. Non-memory instructions take one cycle. Through the bus, a load
// spends one cycle in IDLE, ARReady+1 in READ_ADDRESS and RValid+1 in
// READ_DATA; a store spends one in IDLE, max(AWReady, WReady)+1 in
// WRITE_ADDRESS and BValid+1 in WRITE_RESPONSE.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil || !t.config.Bus {
		return 1
	}

	c := t.config
	switch {
	case t.IsLoadOp(inst):
		return 3 + c.ARReadyLatency + c.RValidLatency
	case t.IsStoreOp(inst):
		return 3 + max(c.AWReadyLatency, c.WReadyLatency) + c.BValidLatency
	default:
		return 1
	}
}

// GetStallCycles returns the number of cycles the whole pipeline is held
// while the instruction completes in MW.
func (t *Table) GetStallCycles(inst *insts.Instruction) uint64 {
	return t.GetLatency(inst) - 1
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Ctrl.MemRead
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Ctrl.MemWrite
}

// IsBranchOp returns true if the instruction can redirect control flow.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Ctrl.Branch || inst.Ctrl.Jump
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
