package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64sim/emu"
)

var _ = Describe("LoadStoreUnit", func() {
	var (
		mem *emu.Memory
		lsu *emu.LoadStoreUnit
	)

	BeforeEach(func() {
		mem = emu.NewMemory()
		lsu = emu.NewLoadStoreUnit(mem)
	})

	It("sign-extends LB for a negative byte", func() {
		mem.Write8(0x10, 0xff)
		Expect(lsu.Load(emu.LB, 0x10)).To(Equal(uint64(0xffffffffffffffff)))
	})

	It("zero-extends LBU", func() {
		mem.Write8(0x10, 0xff)
		Expect(lsu.Load(emu.LBU, 0x10)).To(Equal(uint64(0xff)))
	})

	It("sign-extends LW for a negative word", func() {
		mem.Write32(0x20, 0x80000000)
		Expect(lsu.Load(emu.LW, 0x20)).To(Equal(uint64(0xffffffff80000000)))
	})

	It("round-trips an SD/LD pair at an unaligned address", func() {
		lsu.Store(emu.SD, 0x80000003, 0x0123456789abcdef)
		Expect(lsu.Load(emu.LD, 0x80000003)).To(Equal(uint64(0x0123456789abcdef)))
	})

	It("round-trips FLW/FSW bit patterns without reinterpretation", func() {
		lsu.StoreFloat32(0x40, 0x3f800000)
		Expect(lsu.LoadFloat32(0x40)).To(Equal(uint32(0x3f800000)))
	})
})
