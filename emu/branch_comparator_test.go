package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64sim/emu"
)

var _ = Describe("Comparator", func() {
	var cmp *emu.Comparator

	BeforeEach(func() {
		cmp = emu.NewComparator()
	})

	It("evaluates BLT as a signed comparison", func() {
		Expect(cmp.Evaluate(emu.BLT, ^uint64(0), 1)).To(BeTrue()) // -1 < 1
	})

	It("evaluates BLTU as an unsigned comparison", func() {
		Expect(cmp.Evaluate(emu.BLTU, ^uint64(0), 1)).To(BeFalse()) // huge < 1 is false
	})

	It("evaluates BEQ/BNE", func() {
		Expect(cmp.Evaluate(emu.BEQ, 5, 5)).To(BeTrue())
		Expect(cmp.Evaluate(emu.BNE, 5, 5)).To(BeFalse())
	})

	It("evaluates BGE at the boundary", func() {
		Expect(cmp.Evaluate(emu.BGE, 5, 5)).To(BeTrue())
		Expect(cmp.Evaluate(emu.BGE, 4, 5)).To(BeFalse())
	})
})
