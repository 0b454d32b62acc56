package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64sim/insts"
)

var _ = Describe("Decoder", func() {
	var d *insts.Decoder

	BeforeEach(func() {
		d = insts.NewDecoder()
	})

	It("decodes ADDI x5, x0, 10", func() {
		inst := d.Decode(0x00a00293)
		Expect(inst.Op).To(Equal(insts.OpADDI))
		Expect(inst.Format).To(Equal(insts.FormatI))
		Expect(inst.Rd).To(Equal(uint8(5)))
		Expect(inst.Rs1).To(Equal(uint8(0)))
		Expect(inst.Imm).To(Equal(int64(10)))
	})

	It("decodes ADD x12, x11, x10", func() {
		inst := d.Decode(0x00a58633)
		Expect(inst.Op).To(Equal(insts.OpADD))
		Expect(inst.Format).To(Equal(insts.FormatR))
		Expect(inst.Rd).To(Equal(uint8(12)))
		Expect(inst.Rs1).To(Equal(uint8(11)))
		Expect(inst.Rs2).To(Equal(uint8(10)))
	})

	It("decodes SUB as ADD with funct7 bit 30 set", func() {
		inst := d.Decode(0x40a58633)
		Expect(inst.Op).To(Equal(insts.OpSUB))
	})

	It("decodes BEQ x1, x2, +8", func() {
		inst := d.Decode(0x00208463)
		Expect(inst.Op).To(Equal(insts.OpBEQ))
		Expect(inst.Format).To(Equal(insts.FormatB))
		Expect(inst.Rs1).To(Equal(uint8(1)))
		Expect(inst.Rs2).To(Equal(uint8(2)))
		Expect(inst.Imm).To(Equal(int64(8)))
	})

	It("decodes a negative branch offset", func() {
		// BEQ x1, x2, -8
		inst := d.Decode(0xfe208ce3)
		Expect(inst.Op).To(Equal(insts.OpBEQ))
		Expect(inst.Imm).To(Equal(int64(-8)))
	})

	It("decodes LW x5, 4(x6)", func() {
		inst := d.Decode(0x00432283)
		Expect(inst.Op).To(Equal(insts.OpLW))
		Expect(inst.Format).To(Equal(insts.FormatI))
		Expect(inst.Rd).To(Equal(uint8(5)))
		Expect(inst.Rs1).To(Equal(uint8(6)))
		Expect(inst.Imm).To(Equal(int64(4)))
	})

	It("decodes JAL x1, +16", func() {
		inst := d.Decode(0x010000ef)
		Expect(inst.Op).To(Equal(insts.OpJAL))
		Expect(inst.Format).To(Equal(insts.FormatJ))
		Expect(inst.Rd).To(Equal(uint8(1)))
		Expect(inst.Imm).To(Equal(int64(16)))
	})

	It("decodes LUI x7, 0x12345", func() {
		inst := d.Decode(0x123453b7)
		Expect(inst.Op).To(Equal(insts.OpLUI))
		Expect(inst.Format).To(Equal(insts.FormatU))
		Expect(inst.Rd).To(Equal(uint8(7)))
		Expect(inst.Imm).To(Equal(int64(0x12345000)))
	})

	It("decodes MUL from the M-extension funct7 encoding", func() {
		inst := d.Decode(0x02c58533) // MUL x10, x11, x12
		Expect(inst.Op).To(Equal(insts.OpMUL))
	})

	It("decodes ECALL", func() {
		inst := d.Decode(0x00000073)
		Expect(inst.Op).To(Equal(insts.OpECALL))
		Expect(inst.Format).To(Equal(insts.FormatSystem))
	})

	It("decodes EBREAK", func() {
		inst := d.Decode(0x00100073)
		Expect(inst.Op).To(Equal(insts.OpEBREAK))
	})

	It("produces OpIllegal for an all-zero word", func() {
		inst := d.Decode(0x00000000)
		Expect(inst.Op).To(Equal(insts.OpIllegal))
		Expect(inst.Format).To(Equal(insts.FormatUnknown))
	})

	It("decodes FADD.D f10, f11, f12", func() {
		inst := d.Decode(0x02c58553)
		Expect(inst.Op).To(Equal(insts.OpFADD))
		Expect(inst.Double).To(BeTrue())
	})

	It("decodes SLLI x5, x6, 5 with a shamt under 32", func() {
		inst := d.Decode(0x00531293) // SLLI x5, x6, 5
		Expect(inst.Op).To(Equal(insts.OpSLLI))
		Expect(inst.Imm).To(Equal(int64(5)))
	})

	It("decodes SLLI x5, x6, 32, a doubleword shamt the 5-bit W-form can't reach", func() {
		inst := d.Decode(0x02031293) // SLLI x5, x6, 32
		Expect(inst.Op).To(Equal(insts.OpSLLI))
		Expect(inst.Imm).To(Equal(int64(32)))
	})

	It("decodes SRLI x7, x8, 63, the top of the doubleword shamt range", func() {
		inst := d.Decode(0x03f45393) // SRLI x7, x8, 63
		Expect(inst.Op).To(Equal(insts.OpSRLI))
		Expect(inst.Imm).To(Equal(int64(63)))
	})

	It("decodes SRAI x9, x10, 40 without confusing shamt[5] for funct6", func() {
		inst := d.Decode(0x42855493) // SRAI x9, x10, 40
		Expect(inst.Op).To(Equal(insts.OpSRAI))
		Expect(inst.Imm).To(Equal(int64(40)))
	})

	It("still tells SRLI and SRAI apart once shamt[5] is set", func() {
		srli := d.Decode(0x03f45393) // SRLI x7, x8, 63 (shamt[5]=1, funct6=0)
		Expect(srli.Op).To(Equal(insts.OpSRLI))

		srai := d.Decode(0x42855493) // SRAI x9, x10, 40 (shamt[5]=1, funct6=0b010000)
		Expect(srai.Op).To(Equal(insts.OpSRAI))
	})
})
