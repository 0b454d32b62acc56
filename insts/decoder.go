package insts

// Op identifies a decoded RV64IFD operation.
type Op uint16

// Operations. Grouped by the RV64I base, the M extension, and the F/D
// extensions, in roughly encoding order within each group.
const (
	OpIllegal Op = iota

	// U/J-type
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	// Branches (B-type)
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// Loads (I-type)
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpLWU
	OpLD

	// Stores (S-type)
	OpSB
	OpSH
	OpSW
	OpSD

	// Integer register-immediate (I-type)
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW

	// Integer register-register (R-type)
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW

	// M extension
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU
	OpMULW
	OpDIVW
	OpDIVUW
	OpREMW
	OpREMUW

	// System / fence
	OpFENCE
	OpECALL
	OpEBREAK

	// F/D loads and stores
	OpFLW
	OpFLD
	OpFSW
	OpFSD

	// F/D fused multiply-add
	OpFMADD
	OpFMSUB
	OpFNMSUB
	OpFNMADD

	// F/D arithmetic
	OpFADD
	OpFSUB
	OpFMUL
	OpFDIV
	OpFSQRT
	OpFSGNJ
	OpFSGNJN
	OpFSGNJX
	OpFMIN
	OpFMAX

	// F/D comparison
	OpFEQ
	OpFLT
	OpFLE

	// F/D conversion and bit-move
	OpFCVTWf  // float -> signed 32, f = S or D per Double flag
	OpFCVTWUf // float -> unsigned 32
	OpFCVTLf  // float -> signed 64
	OpFCVTLUf // float -> unsigned 64
	OpFCVTfW  // signed 32 -> float
	OpFCVTfWU // unsigned 32 -> float
	OpFCVTfL  // signed 64 -> float
	OpFCVTfLU // unsigned 64 -> float
	OpFCVTSD  // double -> single
	OpFCVTDS  // single -> double
	OpFMVXf   // float bits -> integer register
	OpFMVfX   // integer register -> float bits
	OpFCLASS
)

// Format names the RISC-V base encoding shape of a decoded instruction.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatR              // register-register
	FormatR4             // fused multiply-add (two extra operand fields)
	FormatI              // register-immediate, loads, JALR
	FormatS              // stores
	FormatB              // conditional branches
	FormatU              // LUI/AUIPC
	FormatJ              // JAL
	FormatSystem         // FENCE/ECALL/EBREAK
)

// Instruction is a decoded RV64IFD operation. Op is the authoritative tag;
// the remaining fields carry whichever operands that Op's format defines.
// Unknown encodings decode to Op == OpIllegal, Format == FormatUnknown.
type Instruction struct {
	Op     Op
	Format Format
	Raw    uint32

	Rd, Rs1, Rs2, Rs3 uint8
	Imm               int64 // pre-sign-extended

	// Double distinguishes the D-extension (float64) form of an F/D op
	// from its S-extension (float32) form.
	Double bool

	// RM carries the rounding-mode field (funct3) of F/D arithmetic ops.
	// The simulator always rounds to nearest, ties-to-even (Go's native
	// float semantics); RM is decoded but not separately interpreted.
	RM uint8
}

// Decoder decodes RV64IFD machine code.
type Decoder struct{}

// NewDecoder creates a RISC-V instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RISC-V instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{Op: OpIllegal, Format: FormatUnknown, Raw: word}

	opcode := word & 0x7f
	switch opcode {
	case 0b0110111:
		d.decodeLUI(word, inst)
	case 0b0010111:
		d.decodeAUIPC(word, inst)
	case 0b1101111:
		d.decodeJAL(word, inst)
	case 0b1100111:
		d.decodeJALR(word, inst)
	case 0b1100011:
		d.decodeBranch(word, inst)
	case 0b0000011:
		d.decodeLoad(word, inst)
	case 0b0100011:
		d.decodeStore(word, inst)
	case 0b0010011:
		d.decodeOpImm(word, inst, false)
	case 0b0011011:
		d.decodeOpImm(word, inst, true)
	case 0b0110011:
		d.decodeOp(word, inst, false)
	case 0b0111011:
		d.decodeOp(word, inst, true)
	case 0b0001111:
		inst.Op = OpFENCE
		inst.Format = FormatSystem
	case 0b1110011:
		d.decodeSystem(word, inst)
	case 0b0000111:
		d.decodeLoadFP(word, inst)
	case 0b0100111:
		d.decodeStoreFP(word, inst)
	case 0b1000011:
		d.decodeFMA(word, inst, OpFMADD)
	case 0b1000111:
		d.decodeFMA(word, inst, OpFMSUB)
	case 0b1001011:
		d.decodeFMA(word, inst, OpFNMSUB)
	case 0b1001111:
		d.decodeFMA(word, inst, OpFNMADD)
	case 0b1010011:
		d.decodeOpFP(word, inst)
	}

	return inst
}

func rd(word uint32) uint8     { return uint8((word >> 7) & 0x1f) }
func funct3(word uint32) uint8 { return uint8((word >> 12) & 0x7) }
func rs1(word uint32) uint8    { return uint8((word >> 15) & 0x1f) }
func rs2(word uint32) uint8    { return uint8((word >> 20) & 0x1f) }
func rs3(word uint32) uint8    { return uint8((word >> 27) & 0x1f) }
func funct7(word uint32) uint8 { return uint8((word >> 25) & 0x7f) }

// shamt6 extracts the 6-bit shift amount RV64I's doubleword SLLI/SRLI/SRAI
// encode in imm[5:0] (bits 25:20) — one bit wider than rs2's field, since
// those shifts can count all the way up to 63.
func shamt6(word uint32) uint8 { return uint8((word >> 20) & 0x3f) }

// funct6 extracts bits 31:26, the SLLI/SRLI-vs-SRAI discriminator for the
// doubleword shift immediate encoding, disjoint from shamt6's bit 25.
func funct6(word uint32) uint8 { return uint8((word >> 26) & 0x3f) }

func immI(word uint32) int64 {
	return int64(int32(word)) >> 20
}

func immS(word uint32) int64 {
	hi := (word >> 25) & 0x7f
	lo := (word >> 7) & 0x1f
	v := (hi << 5) | lo
	return signExtend(uint64(v), 12)
}

func immB(word uint32) int64 {
	b12 := (word >> 31) & 0x1
	b11 := (word >> 7) & 0x1
	b10_5 := (word >> 25) & 0x3f
	b4_1 := (word >> 8) & 0xf
	v := (b12 << 12) | (b11 << 11) | (b10_5 << 5) | (b4_1 << 1)
	return signExtend(uint64(v), 13)
}

func immU(word uint32) int64 {
	return int64(int32(word & 0xfffff000))
}

func immJ(word uint32) int64 {
	b20 := (word >> 31) & 0x1
	b19_12 := (word >> 12) & 0xff
	b11 := (word >> 20) & 0x1
	b10_1 := (word >> 21) & 0x3ff
	v := (b20 << 20) | (b19_12 << 12) | (b11 << 11) | (b10_1 << 1)
	return signExtend(uint64(v), 21)
}

func signExtend(v uint64, bits uint) int64 {
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

func (d *Decoder) decodeLUI(word uint32, inst *Instruction) {
	inst.Format = FormatU
	inst.Op = OpLUI
	inst.Rd = rd(word)
	inst.Imm = immU(word)
}

func (d *Decoder) decodeAUIPC(word uint32, inst *Instruction) {
	inst.Format = FormatU
	inst.Op = OpAUIPC
	inst.Rd = rd(word)
	inst.Imm = immU(word)
}

func (d *Decoder) decodeJAL(word uint32, inst *Instruction) {
	inst.Format = FormatJ
	inst.Op = OpJAL
	inst.Rd = rd(word)
	inst.Imm = immJ(word)
}

func (d *Decoder) decodeJALR(word uint32, inst *Instruction) {
	if funct3(word) != 0 {
		return
	}
	inst.Format = FormatI
	inst.Op = OpJALR
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = immI(word)
}

func (d *Decoder) decodeBranch(word uint32, inst *Instruction) {
	ops := [8]Op{OpBEQ, OpBNE, OpIllegal, OpIllegal, OpBLT, OpBGE, OpBLTU, OpBGEU}
	op := ops[funct3(word)]
	if op == OpIllegal {
		return
	}
	inst.Format = FormatB
	inst.Op = op
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Imm = immB(word)
}

func (d *Decoder) decodeLoad(word uint32, inst *Instruction) {
	ops := [8]Op{OpLB, OpLH, OpLW, OpLD, OpLBU, OpLHU, OpLWU, OpIllegal}
	op := ops[funct3(word)]
	if op == OpIllegal {
		return
	}
	inst.Format = FormatI
	inst.Op = op
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = immI(word)
}

func (d *Decoder) decodeStore(word uint32, inst *Instruction) {
	ops := [8]Op{OpSB, OpSH, OpSW, OpSD, OpIllegal, OpIllegal, OpIllegal, OpIllegal}
	op := ops[funct3(word)]
	if op == OpIllegal {
		return
	}
	inst.Format = FormatS
	inst.Op = op
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Imm = immS(word)
}

func (d *Decoder) decodeOpImm(word uint32, inst *Instruction, word32 bool) {
	f3 := funct3(word)
	inst.Format = FormatI
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)

	if word32 {
		switch f3 {
		case 0b000:
			inst.Op = OpADDIW
			inst.Imm = immI(word)
		case 0b001:
			inst.Op = OpSLLIW
			inst.Imm = int64(rs2(word))
		case 0b101:
			if funct7(word) == 0b0100000 {
				inst.Op = OpSRAIW
			} else {
				inst.Op = OpSRLIW
			}
			inst.Imm = int64(rs2(word))
		default:
			inst.Op = OpIllegal
		}
		return
	}

	switch f3 {
	case 0b000:
		inst.Op = OpADDI
		inst.Imm = immI(word)
	case 0b010:
		inst.Op = OpSLTI
		inst.Imm = immI(word)
	case 0b011:
		inst.Op = OpSLTIU
		inst.Imm = immI(word)
	case 0b100:
		inst.Op = OpXORI
		inst.Imm = immI(word)
	case 0b110:
		inst.Op = OpORI
		inst.Imm = immI(word)
	case 0b111:
		inst.Op = OpANDI
		inst.Imm = immI(word)
	case 0b001:
		inst.Op = OpSLLI
		inst.Imm = int64(shamt6(word))
	case 0b101:
		inst.Imm = int64(shamt6(word))
		if funct6(word) == 0b010000 {
			inst.Op = OpSRAI
		} else {
			inst.Op = OpSRLI
		}
	default:
		inst.Op = OpIllegal
	}
}

func (d *Decoder) decodeOp(word uint32, inst *Instruction, word32 bool) {
	f3 := funct3(word)
	f7 := funct7(word)
	inst.Format = FormatR
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)

	if f7 == 0b0000001 {
		// M extension
		if word32 {
			ops := [8]Op{OpMULW, OpIllegal, OpIllegal, OpIllegal, OpDIVW, OpDIVUW, OpREMW, OpREMUW}
			inst.Op = ops[f3]
		} else {
			ops := [8]Op{OpMUL, OpMULH, OpMULHSU, OpMULHU, OpDIV, OpDIVU, OpREM, OpREMU}
			inst.Op = ops[f3]
		}
		return
	}

	if word32 {
		switch f3 {
		case 0b000:
			if f7 == 0b0100000 {
				inst.Op = OpSUBW
			} else {
				inst.Op = OpADDW
			}
		case 0b001:
			inst.Op = OpSLLW
		case 0b101:
			if f7 == 0b0100000 {
				inst.Op = OpSRAW
			} else {
				inst.Op = OpSRLW
			}
		default:
			inst.Op = OpIllegal
		}
		return
	}

	switch f3 {
	case 0b000:
		if f7 == 0b0100000 {
			inst.Op = OpSUB
		} else {
			inst.Op = OpADD
		}
	case 0b001:
		inst.Op = OpSLL
	case 0b010:
		inst.Op = OpSLT
	case 0b011:
		inst.Op = OpSLTU
	case 0b100:
		inst.Op = OpXOR
	case 0b101:
		if f7 == 0b0100000 {
			inst.Op = OpSRA
		} else {
			inst.Op = OpSRL
		}
	case 0b110:
		inst.Op = OpOR
	case 0b111:
		inst.Op = OpAND
	default:
		inst.Op = OpIllegal
	}
}

func (d *Decoder) decodeSystem(word uint32, inst *Instruction) {
	if funct3(word) != 0 || rd(word) != 0 || rs1(word) != 0 {
		return
	}
	imm := (word >> 20) & 0xfff
	inst.Format = FormatSystem
	switch imm {
	case 0:
		inst.Op = OpECALL
	case 1:
		inst.Op = OpEBREAK
	default:
		inst.Op = OpIllegal
	}
}

func (d *Decoder) decodeLoadFP(word uint32, inst *Instruction) {
	f3 := funct3(word)
	inst.Format = FormatI
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Imm = immI(word)
	switch f3 {
	case 0b010:
		inst.Op = OpFLW
	case 0b011:
		inst.Op = OpFLD
		inst.Double = true
	default:
		inst.Op = OpIllegal
	}
}

func (d *Decoder) decodeStoreFP(word uint32, inst *Instruction) {
	f3 := funct3(word)
	inst.Format = FormatS
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Imm = immS(word)
	switch f3 {
	case 0b010:
		inst.Op = OpFSW
	case 0b011:
		inst.Op = OpFSD
		inst.Double = true
	default:
		inst.Op = OpIllegal
	}
}

func (d *Decoder) decodeFMA(word uint32, inst *Instruction, op Op) {
	fmt := (word >> 25) & 0x3
	if fmt > 1 {
		return
	}
	inst.Format = FormatR4
	inst.Op = op
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.Rs3 = rs3(word)
	inst.RM = funct3(word)
	inst.Double = fmt == 1
}

func (d *Decoder) decodeOpFP(word uint32, inst *Instruction) {
	f7 := funct7(word)
	f3 := funct3(word)
	r2 := rs2(word)
	inst.Format = FormatR
	inst.Rd = rd(word)
	inst.Rs1 = rs1(word)
	inst.Rs2 = rs2(word)
	inst.RM = f3

	double := f7&0x1 == 1
	family := f7 &^ 1

	switch family {
	case 0b0000000:
		inst.Op = OpFADD
		inst.Double = double
	case 0b0000100:
		inst.Op = OpFSUB
		inst.Double = double
	case 0b0001000:
		inst.Op = OpFMUL
		inst.Double = double
	case 0b0001100:
		inst.Op = OpFDIV
		inst.Double = double
	case 0b0101100:
		inst.Op = OpFSQRT
		inst.Double = double
	case 0b0010000:
		switch f3 {
		case 0b000:
			inst.Op = OpFSGNJ
		case 0b001:
			inst.Op = OpFSGNJN
		case 0b010:
			inst.Op = OpFSGNJX
		default:
			inst.Op = OpIllegal
		}
		inst.Double = double
	case 0b0010100:
		switch f3 {
		case 0b000:
			inst.Op = OpFMIN
		case 0b001:
			inst.Op = OpFMAX
		default:
			inst.Op = OpIllegal
		}
		inst.Double = double
	case 0b1010000:
		switch f3 {
		case 0b010:
			inst.Op = OpFEQ
		case 0b001:
			inst.Op = OpFLT
		case 0b000:
			inst.Op = OpFLE
		default:
			inst.Op = OpIllegal
		}
		inst.Double = double
	case 0b1100000:
		switch r2 {
		case 0:
			inst.Op = OpFCVTWf
		case 1:
			inst.Op = OpFCVTWUf
		case 2:
			inst.Op = OpFCVTLf
		case 3:
			inst.Op = OpFCVTLUf
		default:
			inst.Op = OpIllegal
		}
		inst.Double = double
	case 0b1101000:
		switch r2 {
		case 0:
			inst.Op = OpFCVTfW
		case 1:
			inst.Op = OpFCVTfWU
		case 2:
			inst.Op = OpFCVTfL
		case 3:
			inst.Op = OpFCVTfLU
		default:
			inst.Op = OpIllegal
		}
		inst.Double = double
	case 0b1110000:
		switch f3 {
		case 0b000:
			inst.Op = OpFMVXf
		case 0b001:
			inst.Op = OpFCLASS
		default:
			inst.Op = OpIllegal
		}
		inst.Double = double
	case 0b1111000:
		inst.Op = OpFMVfX
		inst.Double = double
	case 0b0100000:
		// FCVT.S.D (rs2=1) or FCVT.D.S (rs2=0); "double" here means the
		// family bit, not the result width, so read rs2 to distinguish.
		if r2 == 1 {
			inst.Op = OpFCVTSD
		} else {
			inst.Op = OpFCVTDS
		}
	default:
		inst.Op = OpIllegal
	}
}
