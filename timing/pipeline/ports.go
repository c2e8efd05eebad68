package pipeline

import (
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/timing/bus"
)

// InstructionMemory is the instruction side of the memory interface: a
// combinational word lookup. The low two address bits are ignored.
type InstructionMemory interface {
	Fetch(addr uint32) uint32
}

// DataPort is the data side of the memory interface. Access evaluates one
// cycle's request from the current state without changing it; Commit
// advances the port at the clock edge. bus.Port and DirectPort implement it.
type DataPort interface {
	Access(req bus.Request) bus.Response
	Commit()
}

// DirectPort is a combinational word memory: reads return in the same
// cycle, writes land at the clock edge, and it never stalls.
type DirectPort struct {
	memory  *emu.Memory
	pending bus.Request
}

// NewDirectPort creates a DirectPort over memory.
func NewDirectPort(memory *emu.Memory) *DirectPort {
	return &DirectPort{memory: memory}
}

// Access serves the request combinationally.
func (d *DirectPort) Access(req bus.Request) bus.Response {
	d.pending = req

	resp := bus.Response{Done: req.Active()}
	if req.Read {
		resp.ReadData = d.memory.ReadWord(req.Addr)
	}
	return resp
}

// Commit performs the write staged by the last Access.
func (d *DirectPort) Commit() {
	if d.pending.Write && !d.pending.Read {
		d.memory.WriteWord(d.pending.Addr, d.pending.WData, d.pending.Strobe)
	}
	d.pending = bus.Request{}
}
