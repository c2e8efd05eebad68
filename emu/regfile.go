// Package emu provides the functional building blocks of the RV32I core:
// the register file, arithmetic unit, branch comparator, byte-lane
// alignment and a word-addressed memory model.
package emu

import (
	"fmt"
	"io"
)

// NumRegs is the number of integer registers (x0-x31).
const NumRegs = 32

// WritePort is the single register-file write port driven by the MW stage.
type WritePort struct {
	Enable bool
	Index  uint8
	Value  uint32
}

// Active reports whether the port will change architectural state.
func (wp WritePort) Active() bool {
	return wp.Enable && wp.Index != 0 && wp.Index < NumRegs
}

// RegFile represents the RV32I integer register file.
// Register x0 is hardwired to zero.
type RegFile struct {
	X [NumRegs]uint32
}

// Read returns the value of register idx as seen by the decode stage in the
// cycle that wp is being driven: a pending write to the same register is
// forwarded so that write-then-read in one cycle observes the new value.
func (r *RegFile) Read(idx uint8, wp WritePort) uint32 {
	if idx == 0 || idx >= NumRegs {
		return 0
	}
	if wp.Active() && wp.Index == idx {
		return wp.Value
	}
	return r.X[idx]
}

// Commit applies the write port at the clock edge.
func (r *RegFile) Commit(wp WritePort) {
	if wp.Active() {
		r.X[wp.Index] = wp.Value
	}
}

// ReadReg reads a register value. x0 and out-of-range indices return 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	return r.Read(reg, WritePort{})
}

// WriteReg writes a value to a register. Writes to x0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	r.Commit(WritePort{Enable: true, Index: reg, Value: value})
}

// Reset clears every register.
func (r *RegFile) Reset() {
	r.X = [NumRegs]uint32{}
}

// Dump writes the registers x1-x31 one per line as "REGDUMP x<n> <hex>".
func (r *RegFile) Dump(w io.Writer) error {
	for i := 1; i < NumRegs; i++ {
		if _, err := fmt.Fprintf(w, "REGDUMP x%d %08x\n", i, r.X[i]); err != nil {
			return fmt.Errorf("failed to dump x%d: %w", i, err)
		}
	}
	return nil
}
