// Package loader provides ELF binary loading for statically-linked RV64
// executables.
package loader

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// RISC-V e_flags bits (psABI). debug/elf's FileHeader doesn't surface
// e_flags, so Load reads it directly out of the 64-bit ELF header.
const (
	efRISCVFloatABIMask   = 0x0006
	efRISCVFloatABIDouble = 0x0004
	efRISCVRVE            = 0x0008

	// e_flags lives at this byte offset in a 64-bit ELF header.
	elf64FlagsOffset = 48
)

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

// DefaultStackTop is the default stack top address for a RV64 Linux user
// process. This is a conventional high address in the user space range.
const DefaultStackTop = 0x7ffffffff000

// DefaultStackSize is the default stack size (8MB).
const DefaultStackSize = 8 * 1024 * 1024

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the virtual address where this segment should be loaded.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded ELF program ready for execution.
type Program struct {
	// EntryPoint is the virtual address where execution should begin.
	EntryPoint uint64
	// Segments contains all loadable segments from the ELF file.
	Segments []Segment
	// InitialSP is the initial stack pointer value.
	InitialSP uint64
}

// Load parses a statically-linked 64-bit little-endian RISC-V ELF binary
// and returns a Program ready for loading into guest memory. Parsing and
// segment extraction is the loader's entire responsibility; it has no
// opinion on how the bytes are subsequently placed into memory.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("not a 64-bit ELF file")
	}

	if f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("not a RISC-V ELF file (machine type: %v)", f.Machine)
	}

	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}

	eFlags, err := readELFFlags(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read e_flags: %w", err)
	}

	if eFlags&efRISCVRVE != 0 {
		return nil, fmt.Errorf("RV64E ABI binaries are not supported")
	}

	if eFlags&efRISCVFloatABIMask != efRISCVFloatABIDouble {
		return nil, fmt.Errorf("binary does not target the double-precision float ABI (e_flags float ABI = %#x)",
			eFlags&efRISCVFloatABIMask)
	}

	prog := &Program{
		EntryPoint: f.Entry,
		InitialSP:  DefaultStackTop,
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
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
			VirtAddr: phdr.Vaddr,
			Data:     data,
			MemSize:  phdr.Memsz,
			Flags:    flags,
		})
	}

	return prog, nil
}

// readELFFlags reads e_flags out of a 64-bit ELF header. debug/elf parses
// and validates the rest of the header but discards this field, and it
// carries the RV64-specific ABI bits (float ABI, RVE) Load checks.
func readELFFlags(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	var buf [4]byte
	if _, err := f.ReadAt(buf[:], elf64FlagsOffset); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(buf[:]), nil
}
