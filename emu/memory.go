package emu

const pageSize = 4096
const pageMask = pageSize - 1

// Memory is a byte-addressed, little-endian guest address space backed by
// lazily-allocated pages. Reads of unmapped addresses return zero; writes
// allocate the backing page on first touch. Accesses never fault: a
// misaligned or out-of-range access simply decomposes into independent
// byte accesses.
type Memory struct {
	pages map[uint64][]byte
}

// NewMemory creates an empty guest address space.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64][]byte)}
}

func (m *Memory) page(addr uint64, alloc bool) []byte {
	key := addr &^ pageMask
	p, ok := m.pages[key]
	if !ok {
		if !alloc {
			return nil
		}
		p = make([]byte, pageSize)
		m.pages[key] = p
	}
	return p
}

func (m *Memory) readByte(addr uint64) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&pageMask]
}

func (m *Memory) writeByte(addr uint64, v byte) {
	p := m.page(addr, true)
	p[addr&pageMask] = v
}

// WriteBytes installs a loader-populated segment directly, byte for byte.
func (m *Memory) WriteBytes(addr uint64, data []byte) {
	for i, b := range data {
		m.writeByte(addr+uint64(i), b)
	}
}

// Read returns width bytes (1, 2, 4, or 8) at addr as an unsigned value,
// assembled little-endian. Sign-extension of the result is the caller's
// responsibility, since only the decoded instruction knows whether the
// load is signed.
func (m *Memory) Read(addr uint64, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		v |= uint64(m.readByte(addr+uint64(i))) << (8 * uint(i))
	}
	return v
}

// Write stores the low width bytes of value at addr, little-endian.
func (m *Memory) Write(addr uint64, width int, value uint64) {
	for i := 0; i < width; i++ {
		m.writeByte(addr+uint64(i), byte(value>>(8*uint(i))))
	}
}

// Read8/Read16/Read32/Read64 are fixed-width convenience wrappers.
func (m *Memory) Read8(addr uint64) uint8   { return uint8(m.Read(addr, 1)) }
func (m *Memory) Read16(addr uint64) uint16 { return uint16(m.Read(addr, 2)) }
func (m *Memory) Read32(addr uint64) uint32 { return uint32(m.Read(addr, 4)) }
func (m *Memory) Read64(addr uint64) uint64 { return m.Read(addr, 8) }

// Write8/Write16/Write32/Write64 are fixed-width convenience wrappers.
func (m *Memory) Write8(addr uint64, v uint8)   { m.Write(addr, 1, uint64(v)) }
func (m *Memory) Write16(addr uint64, v uint16) { m.Write(addr, 2, uint64(v)) }
func (m *Memory) Write32(addr uint64, v uint32) { m.Write(addr, 4, uint64(v)) }
func (m *Memory) Write64(addr uint64, v uint64) { m.Write(addr, 8, v) }

// ReadInstruction fetches a 32-bit little-endian instruction word.
func (m *Memory) ReadInstruction(addr uint64) uint32 {
	return m.Read32(addr)
}
