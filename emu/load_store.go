package emu

import "github.com/sarchlab/rv32sim/insts"

// StoreLanes positions store data on the 32-bit data bus for an access of
// the given width at addr. Bytes are replicated to all four lanes and halves
// to both, so the selected lanes always carry the value; the strobe selects
// which lanes are written.
func StoreLanes(addr, value uint32, width insts.Width) (data uint32, strobe uint8) {
	switch width {
	case insts.WidthByte:
		b := value & 0xFF
		return b | b<<8 | b<<16 | b<<24, 1 << (addr & 3)
	case insts.WidthHalf:
		h := value & 0xFFFF
		if addr&2 != 0 {
			return h | h<<16, 0b1100
		}
		return h | h<<16, 0b0011
	default:
		return value, 0b1111
	}
}

// ExtractLoad selects the addressed byte or half from a full data word and
// sign- or zero-extends it.
func ExtractLoad(addr, word uint32, width insts.Width, unsigned bool) uint32 {
	switch width {
	case insts.WidthByte:
		b := (word >> (8 * (addr & 3))) & 0xFF
		if unsigned {
			return b
		}
		return uint32(int32(int8(b)))
	case insts.WidthHalf:
		h := (word >> (8 * (addr & 2))) & 0xFFFF
		if unsigned {
			return h
		}
		return uint32(int32(int16(h)))
	default:
		return word
	}
}

// MergeStrobe applies a byte-strobed write of data onto old.
func MergeStrobe(old, data uint32, strobe uint8) uint32 {
	for lane := uint(0); lane < 4; lane++ {
		if strobe&(1<<lane) == 0 {
			continue
		}
		mask := uint32(0xFF) << (8 * lane)
		old = old&^mask | data&mask
	}
	return old
}
