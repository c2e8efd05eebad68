package emu

import "github.com/sarchlab/rv32sim/insts"

// DefaultMemorySize is the default memory size in bytes (64 KiB).
const DefaultMemorySize = 64 * 1024

// Sentinel is the word returned for reads outside the backing store and the
// initial contents of every word. It decodes as "addi x0, x0, 0".
const Sentinel = insts.NOP

// Memory is a word-addressed little-endian RAM. Addresses are byte
// addresses; the low two bits select a lane and are otherwise ignored.
type Memory struct {
	words []uint32
}

// NewMemory creates a memory of size bytes, rounded down to whole words.
// A zero size selects DefaultMemorySize.
func NewMemory(size uint32) *Memory {
	if size == 0 {
		size = DefaultMemorySize
	}
	m := &Memory{words: make([]uint32, size/4)}
	m.Reset()
	return m
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.words)) * 4
}

// Reset fills every word with the sentinel.
func (m *Memory) Reset() {
	for i := range m.words {
		m.words[i] = Sentinel
	}
}

func (m *Memory) index(addr uint32) (int, bool) {
	i := addr >> 2
	if uint64(i) >= uint64(len(m.words)) {
		return 0, false
	}
	return int(i), true
}

// Fetch returns the instruction word at addr.
func (m *Memory) Fetch(addr uint32) uint32 {
	return m.ReadWord(addr)
}

// ReadWord returns the word containing addr, or the sentinel when addr is
// out of range.
func (m *Memory) ReadWord(addr uint32) uint32 {
	i, ok := m.index(addr)
	if !ok {
		return Sentinel
	}
	return m.words[i]
}

// WriteWord performs a byte-strobed write of data to the word containing
// addr. Out-of-range writes are discarded.
func (m *Memory) WriteWord(addr, data uint32, strobe uint8) {
	i, ok := m.index(addr)
	if !ok {
		return
	}
	m.words[i] = MergeStrobe(m.words[i], data, strobe)
}

// Read8 reads a single byte.
func (m *Memory) Read8(addr uint32) uint8 {
	return uint8(ExtractLoad(addr, m.ReadWord(addr), insts.WidthByte, true))
}

// Write8 writes a single byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	data, strobe := StoreLanes(addr, uint32(value), insts.WidthByte)
	m.WriteWord(addr, data, strobe)
}

// LoadWords copies words into memory starting at the word containing base.
// Words falling outside the memory are dropped.
func (m *Memory) LoadWords(base uint32, words []uint32) {
	for i, w := range words {
		m.WriteWord(base+uint32(i)*4, w, 0b1111)
	}
}

// LoadBytes copies a byte image into memory starting at base.
func (m *Memory) LoadBytes(base uint32, data []byte) {
	for i, b := range data {
		m.Write8(base+uint32(i), b)
	}
}
