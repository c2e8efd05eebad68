// Package loader reads RV32I programs from $readmemh hex images and ELF32
// executables and places them into simulator memory.
package loader

import "github.com/sarchlab/rv32sim/emu"

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment is a contiguous block of program data.
type Segment struct {
	// Addr is the byte address of the first byte of Data.
	Addr uint32
	// Data contains the segment contents.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// EntryPoint is the address of the first instruction.
	EntryPoint uint32
	// Segments contains all loadable segments.
	Segments []Segment
}

// Size returns the total number of bytes the program occupies in memory.
func (p *Program) Size() uint32 {
	var n uint32
	for _, seg := range p.Segments {
		n += seg.MemSize
	}
	return n
}

// LoadInto copies every segment into mem and zero-fills the part of each
// segment beyond its data. Bytes falling outside mem are dropped.
func (p *Program) LoadInto(mem *emu.Memory) {
	for _, seg := range p.Segments {
		mem.LoadBytes(seg.Addr, seg.Data)

		start := uint64(seg.Addr) + uint64(len(seg.Data))
		end := min(uint64(seg.Addr)+uint64(seg.MemSize), uint64(mem.Size()))
		for addr := start; addr < end; addr++ {
			mem.Write8(uint32(addr), 0)
		}
	}
}
