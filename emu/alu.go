package emu

import "math/bits"

// ALU implements the RV64I/M integer arithmetic, logic, shift, and
// multiply/divide operations. It is stateless: every operation is a pure
// function of its operands, so a single ALU value is shared by every CPU
// variant (single-cycle, multi-cycle, pipeline).
type ALU struct{}

// NewALU creates a stateless ALU.
func NewALU() *ALU { return &ALU{} }

// Add64 computes a+b with twos-complement wraparound.
func (*ALU) Add64(a, b uint64) uint64 { return a + b }

// Sub64 computes a-b with twos-complement wraparound.
func (*ALU) Sub64(a, b uint64) uint64 { return a - b }

// AddW computes the word-width (32-bit) sum, sign-extended to 64 bits.
func (*ALU) AddW(a, b uint64) uint64 {
	return signExtend32(uint32(a) + uint32(b))
}

// SubW computes the word-width (32-bit) difference, sign-extended.
func (*ALU) SubW(a, b uint64) uint64 {
	return signExtend32(uint32(a) - uint32(b))
}

// And, Or, Xor are the bitwise logic ops (AND/OR/XOR), full 64-bit width.
func (*ALU) And(a, b uint64) uint64 { return a & b }
func (*ALU) Or(a, b uint64) uint64  { return a | b }
func (*ALU) Xor(a, b uint64) uint64 { return a ^ b }

// Sll shifts left logically, masking the shift amount to 6 bits.
func (*ALU) Sll(a, shamt uint64) uint64 { return a << (shamt & 0x3f) }

// Srl shifts right logically, masking the shift amount to 6 bits.
func (*ALU) Srl(a, shamt uint64) uint64 { return a >> (shamt & 0x3f) }

// Sra shifts right arithmetically, masking the shift amount to 6 bits.
func (*ALU) Sra(a, shamt uint64) uint64 {
	return uint64(int64(a) >> (shamt & 0x3f))
}

// SllW, SrlW, SraW are the word-width shifts: operate on the low 32 bits
// of a, mask the shift amount to 5 bits, and sign-extend the 32-bit result.
func (*ALU) SllW(a, shamt uint64) uint64 {
	return signExtend32(uint32(a) << (shamt & 0x1f))
}

func (*ALU) SrlW(a, shamt uint64) uint64 {
	return signExtend32(uint32(a) >> (shamt & 0x1f))
}

func (*ALU) SraW(a, shamt uint64) uint64 {
	return signExtend32(uint32(int32(uint32(a)) >> (shamt & 0x1f)))
}

// Slt computes the signed less-than comparison as 0/1.
func (*ALU) Slt(a, b uint64) uint64 {
	if int64(a) < int64(b) {
		return 1
	}
	return 0
}

// Sltu computes the unsigned less-than comparison as 0/1.
func (*ALU) Sltu(a, b uint64) uint64 {
	if a < b {
		return 1
	}
	return 0
}

// signExtend32 sign-extends a 32-bit word-op result to 64 bits.
func signExtend32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

// Mul computes the low 64 bits of the 128-bit product a*b.
func (*ALU) Mul(a, b uint64) uint64 { return a * b }

// MulW computes the word-width product, sign-extended to 64 bits.
func (*ALU) MulW(a, b uint64) uint64 {
	return signExtend32(uint32(a) * uint32(b))
}

// Mulh computes the high 64 bits of the signed*signed 128-bit product.
func (*ALU) Mulh(a, b uint64) uint64 {
	magA, magB := uint64(absI64(int64(a))), uint64(absI64(int64(b)))
	hiMag, loMag := bits.Mul64(magA, magB)
	if (int64(a) < 0) == (int64(b) < 0) {
		return hiMag
	}
	_, borrow := bits.Sub64(0, loMag, 0)
	negHi, _ := bits.Sub64(0, hiMag, borrow)
	return negHi
}

// Mulhu computes the high 64 bits of the unsigned*unsigned 128-bit product.
func (*ALU) Mulhu(a, b uint64) uint64 {
	hi, _ := bits.Mul64(a, b)
	return hi
}

// Mulhsu computes the high 64 bits of the signed(a)*unsigned(b) product.
func (*ALU) Mulhsu(a, b uint64) uint64 {
	neg := int64(a) < 0
	mag := uint64(absI64(int64(a)))
	hiMag, loMag := bits.Mul64(mag, b)
	if !neg {
		return hiMag
	}
	_, borrow := bits.Sub64(0, loMag, 0)
	negHi, _ := bits.Sub64(0, hiMag, borrow)
	return negHi
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Div computes signed division. Division by zero yields -1 (all-ones);
// the INT_MIN/-1 overflow case yields INT_MIN per the RISC-V spec.
func (*ALU) Div(a, b uint64) uint64 {
	sa, sb := int64(a), int64(b)
	if sb == 0 {
		return ^uint64(0)
	}
	if sa == minInt64 && sb == -1 {
		return uint64(sa)
	}
	return uint64(sa / sb)
}

// Divu computes unsigned division. Division by zero yields all-ones.
func (*ALU) Divu(a, b uint64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	return a / b
}

// Rem computes the signed remainder. Division by zero yields the dividend;
// the INT_MIN/-1 overflow case yields 0.
func (*ALU) Rem(a, b uint64) uint64 {
	sa, sb := int64(a), int64(b)
	if sb == 0 {
		return a
	}
	if sa == minInt64 && sb == -1 {
		return 0
	}
	return uint64(sa % sb)
}

// Remu computes the unsigned remainder. Division by zero yields the
// dividend.
func (*ALU) Remu(a, b uint64) uint64 {
	if b == 0 {
		return a
	}
	return a % b
}

// DivW, DivuW, RemW, RemuW are the word-width (32-bit operand) variants,
// sign-extended to 64 bits per the RV64M *W encodings.
func (*ALU) DivW(a, b uint64) uint64 {
	sa, sb := int32(uint32(a)), int32(uint32(b))
	if sb == 0 {
		return ^uint64(0)
	}
	if sa == minInt32 && sb == -1 {
		return signExtend32(uint32(sa))
	}
	return signExtend32(uint32(sa / sb))
}

func (*ALU) DivuW(a, b uint64) uint64 {
	ua, ub := uint32(a), uint32(b)
	if ub == 0 {
		return ^uint64(0)
	}
	return signExtend32(ua / ub)
}

func (*ALU) RemW(a, b uint64) uint64 {
	sa, sb := int32(uint32(a)), int32(uint32(b))
	if sb == 0 {
		return signExtend32(uint32(sa))
	}
	if sa == minInt32 && sb == -1 {
		return 0
	}
	return signExtend32(uint32(sa % sb))
}

func (*ALU) RemuW(a, b uint64) uint64 {
	ua, ub := uint32(a), uint32(b)
	if ub == 0 {
		return signExtend32(ua)
	}
	return signExtend32(ua % ub)
}

const minInt64 = int64(-1 << 63)
const minInt32 = int32(-1 << 31)
