package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64sim/emu"
)

var _ = Describe("Memory", func() {
	var mem *emu.Memory

	BeforeEach(func() {
		mem = emu.NewMemory()
	})

	It("reads unmapped addresses as zero", func() {
		Expect(mem.Read64(0x1000)).To(Equal(uint64(0)))
	})

	It("round-trips an aligned 64-bit write", func() {
		mem.Write64(0x2000, 0x0123456789abcdef)
		Expect(mem.Read64(0x2000)).To(Equal(uint64(0x0123456789abcdef)))
	})

	It("round-trips a misaligned 64-bit write with a subsequent aligned byte load", func() {
		mem.Write64(0x80000003, 0x0123456789abcdef)
		Expect(mem.Read64(0x80000003)).To(Equal(uint64(0x0123456789abcdef)))
		Expect(mem.Read8(0x80000003)).To(Equal(uint8(0xef)))
		Expect(mem.Read8(0x8000000a)).To(Equal(uint8(0x01)))
	})

	It("stores little-endian", func() {
		mem.Write32(0x3000, 0xaabbccdd)
		Expect(mem.Read8(0x3000)).To(Equal(uint8(0xdd)))
		Expect(mem.Read8(0x3003)).To(Equal(uint8(0xaa)))
	})

	It("spans a page boundary transparently", func() {
		mem.Write64(4092, 0x1122334455667788)
		Expect(mem.Read64(4092)).To(Equal(uint64(0x1122334455667788)))
	})

	It("fetches instruction words", func() {
		mem.Write32(0x80, 0x00a58633)
		Expect(mem.ReadInstruction(0x80)).To(Equal(uint32(0x00a58633)))
	})
})
