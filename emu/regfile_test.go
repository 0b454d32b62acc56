package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64sim/emu"
)

var _ = Describe("RegFile", func() {
	var rf *emu.RegFile

	BeforeEach(func() {
		rf = &emu.RegFile{}
	})

	It("reads x0 as zero regardless of writes", func() {
		rf.IWrite(0, 0xdeadbeef)
		Expect(rf.IRead(0)).To(Equal(uint64(0)))
	})

	It("round-trips a write through an integer register", func() {
		rf.IWrite(5, 0x1122334455667788)
		Expect(rf.IRead(5)).To(Equal(uint64(0x1122334455667788)))
	})

	It("sign-extends IReadS for the high bit", func() {
		rf.IWrite(3, 0xffffffffffffffff)
		Expect(rf.IReadS(3)).To(Equal(int64(-1)))
	})

	It("NaN-boxes single-precision writes into the upper 32 bits", func() {
		rf.FWriteS(10, 0x3f800000)
		Expect(rf.FRead(10) >> 32).To(Equal(uint64(0xffffffff)))
		Expect(rf.FReadS(10)).To(Equal(uint32(0x3f800000)))
	})

	It("round-trips a full 64-bit FP write", func() {
		rf.FWrite(20, 0x400921fb54442d18)
		Expect(rf.FRead(20)).To(Equal(uint64(0x400921fb54442d18)))
	})
})
