// Package benchmarks assembles the concrete scenario programs used to
// exercise all three CPU execution models against each other: an
// Ackermann-style recursive workload, a bit-manipulation array fill, a
// misaligned load/store round trip, a branch-dense sort for predictor
// comparison, a matrix multiply for data-hazard-policy comparison, and an
// illegal-instruction probe.
package benchmarks

// rType packs an R-type instruction: funct7 | rs2 | rs1 | funct3 | rd | opcode.
func rType(funct7 uint32, rs2, rs1 uint8, funct3 uint32, rd uint8, opcode uint32) uint32 {
	return funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

// iType packs an I-type instruction; imm is taken as the low 12 bits.
func iType(imm int32, rs1 uint8, funct3 uint32, rd uint8, opcode uint32) uint32 {
	return uint32(imm&0xfff)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

// sType packs an S-type instruction (stores).
func sType(imm int32, rs2, rs1 uint8, funct3 uint32, opcode uint32) uint32 {
	u := uint32(imm) & 0xfff
	hi := (u >> 5) & 0x7f
	lo := u & 0x1f
	return hi<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | lo<<7 | opcode
}

// bType packs a B-type instruction (conditional branches). imm is the byte
// displacement from this instruction to the target; it must be even.
func bType(imm int32, rs2, rs1 uint8, funct3 uint32, opcode uint32) uint32 {
	u := uint32(imm)
	b12 := (u >> 12) & 0x1
	b11 := (u >> 11) & 0x1
	b10_5 := (u >> 5) & 0x3f
	b4_1 := (u >> 1) & 0xf
	return b12<<31 | b10_5<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 |
		b4_1<<8 | b11<<7 | opcode
}

// jType packs a J-type instruction (JAL). imm is the byte displacement from
// this instruction to the target; it must be even.
func jType(imm int32, rd uint8, opcode uint32) uint32 {
	u := uint32(imm)
	b20 := (u >> 20) & 0x1
	b19_12 := (u >> 12) & 0xff
	b11 := (u >> 11) & 0x1
	b10_1 := (u >> 1) & 0x3ff
	return b20<<31 | b10_1<<21 | b11<<20 | b19_12<<12 | uint32(rd)<<7 | opcode
}

// uType packs a U-type instruction (LUI/AUIPC). imm occupies bits [31:12].
func uType(imm int32, rd uint8, opcode uint32) uint32 {
	return uint32(imm)&0xfffff000 | uint32(rd)<<7 | opcode
}

// RISC-V calling-convention register names used by the scenario builders.
const (
	zero uint8 = 0
	ra   uint8 = 1
	sp   uint8 = 2
	t0   uint8 = 5
	t1   uint8 = 6
	t2   uint8 = 7
	a0   uint8 = 10
	a1   uint8 = 11
	a2   uint8 = 12
	a3   uint8 = 13
	a4   uint8 = 14
	a5   uint8 = 15
	a7   uint8 = 17
	t3   uint8 = 28
	t4   uint8 = 29
	t5   uint8 = 30
	t6   uint8 = 31
)

func asmMV(rd, rs uint8) uint32 { return asmADDI(rd, rs, 0) }

const (
	opLoad   = 0b0000011
	opStore  = 0b0100011
	opImm    = 0b0010011
	opReg    = 0b0110011
	opBranch = 0b1100011
	opJAL    = 0b1101111
	opJALR   = 0b1100111
	opLUI    = 0b0110111
	opAUIPC  = 0b0010111
	opSystem = 0b1110011
)

func asmADD(rd, rs1, rs2 uint8) uint32  { return rType(0, rs2, rs1, 0b000, rd, opReg) }
func asmSUB(rd, rs1, rs2 uint8) uint32  { return rType(0b0100000, rs2, rs1, 0b000, rd, opReg) }
func asmSLT(rd, rs1, rs2 uint8) uint32  { return rType(0, rs2, rs1, 0b010, rd, opReg) }
func asmSLTU(rd, rs1, rs2 uint8) uint32 { return rType(0, rs2, rs1, 0b011, rd, opReg) }
func asmXOR(rd, rs1, rs2 uint8) uint32  { return rType(0, rs2, rs1, 0b100, rd, opReg) }
func asmOR(rd, rs1, rs2 uint8) uint32   { return rType(0, rs2, rs1, 0b110, rd, opReg) }
func asmAND(rd, rs1, rs2 uint8) uint32  { return rType(0, rs2, rs1, 0b111, rd, opReg) }
func asmSLL(rd, rs1, rs2 uint8) uint32  { return rType(0, rs2, rs1, 0b001, rd, opReg) }
func asmSRL(rd, rs1, rs2 uint8) uint32  { return rType(0, rs2, rs1, 0b101, rd, opReg) }
func asmMUL(rd, rs1, rs2 uint8) uint32  { return rType(0b0000001, rs2, rs1, 0b000, rd, opReg) }

func asmADDI(rd, rs1 uint8, imm int32) uint32  { return iType(imm, rs1, 0b000, rd, opImm) }
func asmSLTI(rd, rs1 uint8, imm int32) uint32  { return iType(imm, rs1, 0b010, rd, opImm) }
func asmXORI(rd, rs1 uint8, imm int32) uint32  { return iType(imm, rs1, 0b100, rd, opImm) }
func asmORI(rd, rs1 uint8, imm int32) uint32   { return iType(imm, rs1, 0b110, rd, opImm) }
func asmANDI(rd, rs1 uint8, imm int32) uint32  { return iType(imm, rs1, 0b111, rd, opImm) }
func asmSLLI(rd, rs1 uint8, shamt uint8) uint32 { return iType(int32(shamt&0x3f), rs1, 0b001, rd, opImm) }
func asmSRLI(rd, rs1 uint8, shamt uint8) uint32 { return iType(int32(shamt&0x3f), rs1, 0b101, rd, opImm) }
func asmSRAI(rd, rs1 uint8, shamt uint8) uint32 {
	return iType(int32(0x400|uint32(shamt&0x3f)), rs1, 0b101, rd, opImm)
}

func asmLB(rd, rs1 uint8, imm int32) uint32  { return iType(imm, rs1, 0b000, rd, opLoad) }
func asmLH(rd, rs1 uint8, imm int32) uint32  { return iType(imm, rs1, 0b001, rd, opLoad) }
func asmLW(rd, rs1 uint8, imm int32) uint32  { return iType(imm, rs1, 0b010, rd, opLoad) }
func asmLD(rd, rs1 uint8, imm int32) uint32  { return iType(imm, rs1, 0b011, rd, opLoad) }
func asmLBU(rd, rs1 uint8, imm int32) uint32 { return iType(imm, rs1, 0b100, rd, opLoad) }

func asmSB(rs2, rs1 uint8, imm int32) uint32 { return sType(imm, rs2, rs1, 0b000, opStore) }
func asmSH(rs2, rs1 uint8, imm int32) uint32 { return sType(imm, rs2, rs1, 0b001, opStore) }
func asmSW(rs2, rs1 uint8, imm int32) uint32 { return sType(imm, rs2, rs1, 0b010, opStore) }
func asmSD(rs2, rs1 uint8, imm int32) uint32 { return sType(imm, rs2, rs1, 0b011, opStore) }

func asmBEQ(rs1, rs2 uint8, disp int32) uint32 { return bType(disp, rs2, rs1, 0b000, opBranch) }
func asmBNE(rs1, rs2 uint8, disp int32) uint32 { return bType(disp, rs2, rs1, 0b001, opBranch) }
func asmBLT(rs1, rs2 uint8, disp int32) uint32 { return bType(disp, rs2, rs1, 0b100, opBranch) }
func asmBGE(rs1, rs2 uint8, disp int32) uint32 { return bType(disp, rs2, rs1, 0b101, opBranch) }
func asmBGEU(rs1, rs2 uint8, disp int32) uint32 { return bType(disp, rs2, rs1, 0b111, opBranch) }

func asmJAL(rd uint8, disp int32) uint32            { return jType(disp, rd, opJAL) }
func asmJALR(rd, rs1 uint8, imm int32) uint32        { return iType(imm, rs1, 0b000, rd, opJALR) }
func asmLUI(rd uint8, imm int32) uint32              { return uType(imm, rd, opLUI) }
func asmAUIPC(rd uint8, imm int32) uint32            { return uType(imm, rd, opAUIPC) }
func asmECALL() uint32                               { return opSystem }

// asmLI loads a 32-bit immediate into rd using LUI+ADDI, accounting for the
// sign-extension ADDI performs on its 12-bit immediate.
func asmLI(rd uint8, value int32) []uint32 {
	lo := value & 0xfff
	hi := value - lo // exact multiple of 0x1000, still fits after ADDI sign-extends lo
	if lo&0x800 != 0 {
		hi += 0x1000
	}
	if hi == 0 {
		return []uint32{asmADDI(rd, 0, lo)}
	}
	return []uint32{asmLUI(rd, hi), asmADDI(rd, rd, lo)}
}

// halt appends the three-instruction halt sequence: a0=status, a7=93, ECALL.
func halt(status int32) []uint32 {
	return append(asmLI(10, status), asmADDI(17, 0, 93), asmECALL())
}

// asmLIAddr loads a 32-bit-range address into rd via LUI+ADDI. ADDI's
// 12-bit immediate sign-extends, so when the resulting value's bit 31 is
// set, LUI+ADDI alone would leave rd's upper 32 bits all ones instead of
// zero; SLLI/SRLI by 32 clears them back to the intended zero-extended
// 32-bit address. Only addresses that fit in 32 bits are supported.
func asmLIAddr(rd uint8, addr uint64) []uint32 {
	lo := int32(addr & 0xfff)
	if lo >= 0x800 {
		lo -= 0x1000
	}
	hi := uint32(addr) - uint32(lo)
	words := []uint32{asmLUI(rd, int32(hi)), asmADDI(rd, rd, lo)}
	if hi&0x80000000 != 0 {
		words = append(words, asmSLLI(rd, rd, 32), asmSRLI(rd, rd, 32))
	}
	return words
}

// assemble lays out a sequence of instruction words starting at address 0
// and returns the raw little-endian byte image.
func assemble(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		buf[i*4+0] = byte(w)
		buf[i*4+1] = byte(w >> 8)
		buf[i*4+2] = byte(w >> 16)
		buf[i*4+3] = byte(w >> 24)
	}
	return buf
}

// pendingBranch is a not-yet-resolved branch/jump instruction: its target
// label wasn't known (or wasn't yet at a fixed address) when it was emitted.
type pendingBranch struct {
	index  int
	target string
	encode func(disp int32) uint32
}

// assembler is a tiny two-pass label assembler: emit() appends instructions
// and data in order, label() marks the current position, branchTo()
// defers target-address encoding until resolve(), once every label's final
// word index is known. This avoids manually computing byte displacements
// for the branch-dense scenario programs below.
type assembler struct {
	words   []uint32
	labels  map[string]int
	pending []pendingBranch
}

func newAssembler() *assembler {
	return &assembler{labels: map[string]int{}}
}

func (a *assembler) emit(w uint32) { a.words = append(a.words, w) }

func (a *assembler) emitAll(ws []uint32) {
	a.words = append(a.words, ws...)
}

// label records name as pointing at the next instruction to be emitted.
func (a *assembler) label(name string) {
	a.labels[name] = len(a.words)
}

// branchTo reserves a slot for a branch/JAL whose displacement depends on
// a label, resolved once the whole program has been emitted.
func (a *assembler) branchTo(target string, encode func(disp int32) uint32) {
	a.pending = append(a.pending, pendingBranch{index: len(a.words), target: target, encode: encode})
	a.words = append(a.words, 0)
}

// resolve fixes up every pending branch/jump now that all labels are known
// and returns the finished word stream.
func (a *assembler) resolve() []uint32 {
	for _, p := range a.pending {
		targetIdx, ok := a.labels[p.target]
		if !ok {
			panic("benchmarks: unresolved label " + p.target)
		}
		disp := int32((targetIdx - p.index) * 4)
		a.words[p.index] = p.encode(disp)
	}
	return a.words
}
