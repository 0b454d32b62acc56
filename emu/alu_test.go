package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64sim/emu"
)

var _ = Describe("ALU", func() {
	var alu *emu.ALU

	BeforeEach(func() {
		alu = emu.NewALU()
	})

	Describe("integer arithmetic", func() {
		It("wraps 64-bit addition on overflow", func() {
			Expect(alu.Add64(^uint64(0), 2)).To(Equal(uint64(1)))
		})

		It("sign-extends word-width addition", func() {
			// 0x7fffffff + 1 overflows a 32-bit signed add to 0x80000000,
			// sign-extended to a negative 64-bit value.
			Expect(alu.AddW(0x7fffffff, 1)).To(Equal(uint64(0xffffffff80000000)))
		})
	})

	Describe("shifts", func() {
		It("masks the doubleword shift amount to 6 bits", func() {
			Expect(alu.Sll(1, 64)).To(Equal(uint64(1))) // 64 & 0x3f == 0
		})

		It("masks the word shift amount to 5 bits", func() {
			Expect(alu.SllW(1, 32)).To(Equal(uint64(1))) // 32 & 0x1f == 0
		})

		It("performs an arithmetic right shift preserving sign", func() {
			Expect(alu.Sra(^uint64(0), 4)).To(Equal(^uint64(0)))
		})
	})

	Describe("comparisons", func() {
		It("computes signed less-than", func() {
			Expect(alu.Slt(^uint64(0), 1)).To(Equal(uint64(1))) // -1 < 1
		})

		It("computes unsigned less-than", func() {
			Expect(alu.Sltu(^uint64(0), 1)).To(Equal(uint64(0))) // huge < 1 is false
		})
	})

	Describe("multiply/divide (M extension)", func() {
		It("computes the low 64 bits of a product", func() {
			Expect(alu.Mul(6, 7)).To(Equal(uint64(42)))
		})

		It("computes MULHU as the high word of an unsigned product", func() {
			Expect(alu.Mulhu(^uint64(0), 2)).To(Equal(uint64(1)))
		})

		It("returns all-ones on signed division by zero", func() {
			Expect(alu.Div(5, 0)).To(Equal(^uint64(0)))
		})

		It("returns the dividend as the remainder on division by zero", func() {
			Expect(alu.Rem(5, 0)).To(Equal(uint64(5)))
		})

		It("handles the INT_MIN/-1 signed division overflow", func() {
			minInt64 := uint64(1) << 63
			Expect(alu.Div(minInt64, ^uint64(0))).To(Equal(minInt64))
			Expect(alu.Rem(minInt64, ^uint64(0))).To(Equal(uint64(0)))
		})

		It("returns all-ones on unsigned word division by zero", func() {
			Expect(alu.DivuW(5, 0)).To(Equal(^uint64(0)))
		})
	})
})
