package loader

import (
	"debug/elf"
	"fmt"
	"io"
	"os"
)

// addrSpace is the size of the 32-bit address space.
const addrSpace = uint64(1) << 32

// LoadELF parses a 32-bit little-endian RISC-V ELF executable. Segments must
// fit in the 32-bit address space and their file contents in the file.
func LoadELF(path string) (*Program, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}

	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}
	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V ELF file (machine type: %v)", f.Machine)
	}

	if f.Entry >= addrSpace {
		return nil, fmt.Errorf("entry point 0x%x outside the 32-bit address space", f.Entry)
	}
	prog := &Program{EntryPoint: uint32(f.Entry)}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}
		if err := checkSegment(&phdr.ProgHeader, uint64(info.Size())); err != nil {
			return nil, err
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			Addr:    uint32(phdr.Vaddr),
			Data:    data,
			MemSize: uint32(phdr.Memsz),
			Flags:   flags,
		})
	}

	return prog, nil
}

// checkSegment rejects program headers whose sizes cannot describe a real
// segment of a 32-bit image of fileSize bytes.
func checkSegment(ph *elf.ProgHeader, fileSize uint64) error {
	switch {
	case ph.Filesz > ph.Memsz:
		return fmt.Errorf("segment at 0x%x: file size 0x%x exceeds memory size 0x%x",
			ph.Vaddr, ph.Filesz, ph.Memsz)
	case ph.Vaddr >= addrSpace || ph.Memsz > addrSpace-ph.Vaddr:
		return fmt.Errorf("segment at 0x%x size 0x%x outside the 32-bit address space",
			ph.Vaddr, ph.Memsz)
	case ph.Off > fileSize || ph.Filesz > fileSize-ph.Off:
		return fmt.Errorf("segment at 0x%x: contents 0x%x+0x%x past the end of the file",
			ph.Vaddr, ph.Off, ph.Filesz)
	}
	return nil
}
