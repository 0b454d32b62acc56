package emu

import "math"

// LoadStoreUnit implements RV64I/F/D load and store address dispatch:
// width and signedness selection, little-endian assembly/disassembly, and
// routing into the integer or FP register bank.
type LoadStoreUnit struct {
	mem *Memory
}

// NewLoadStoreUnit creates a load/store unit over the given memory.
func NewLoadStoreUnit(mem *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{mem: mem}
}

// LoadWidth names the RV64I integer load widths and signedness.
type LoadWidth uint8

const (
	LB LoadWidth = iota
	LBU
	LH
	LHU
	LW
	LWU
	LD
)

// Load reads width-selected bytes at addr and returns the value
// sign- or zero-extended to 64 bits per kind.
func (u *LoadStoreUnit) Load(kind LoadWidth, addr uint64) uint64 {
	switch kind {
	case LB:
		return uint64(int64(int8(u.mem.Read8(addr))))
	case LBU:
		return uint64(u.mem.Read8(addr))
	case LH:
		return uint64(int64(int16(u.mem.Read16(addr))))
	case LHU:
		return uint64(u.mem.Read16(addr))
	case LW:
		return signExtend32(u.mem.Read32(addr))
	case LWU:
		return uint64(u.mem.Read32(addr))
	case LD:
		return u.mem.Read64(addr)
	default:
		return 0
	}
}

// StoreWidth names the RV64I integer store widths.
type StoreWidth uint8

const (
	SB StoreWidth = iota
	SH
	SW
	SD
)

// Store writes the low width-selected bytes of value at addr.
func (u *LoadStoreUnit) Store(kind StoreWidth, addr uint64, value uint64) {
	switch kind {
	case SB:
		u.mem.Write8(addr, uint8(value))
	case SH:
		u.mem.Write16(addr, uint16(value))
	case SW:
		u.mem.Write32(addr, uint32(value))
	case SD:
		u.mem.Write64(addr, value)
	}
}

// LoadFloat32 reads a 32-bit pattern for FLW, NaN-boxed by the caller.
func (u *LoadStoreUnit) LoadFloat32(addr uint64) uint32 {
	return u.mem.Read32(addr)
}

// LoadFloat64 reads a 64-bit pattern for FLD.
func (u *LoadStoreUnit) LoadFloat64(addr uint64) uint64 {
	return u.mem.Read64(addr)
}

// StoreFloat32 writes a 32-bit pattern for FSW.
func (u *LoadStoreUnit) StoreFloat32(addr uint64, bits uint32) {
	u.mem.Write32(addr, bits)
}

// StoreFloat64 writes a 64-bit pattern for FSD.
func (u *LoadStoreUnit) StoreFloat64(addr uint64, bits uint64) {
	u.mem.Write64(addr, bits)
}

// Float32Bits and Float64Bits convert between IEEE-754 floats and their
// raw bit patterns for register-file/memory transfer.
func Float32Bits(f float32) uint32    { return math.Float32bits(f) }
func Float32FromBits(b uint32) float32 { return math.Float32frombits(b) }
func Float64Bits(f float64) uint64    { return math.Float64bits(f) }
func Float64FromBits(b uint64) float64 { return math.Float64frombits(b) }
