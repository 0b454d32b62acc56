package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64sim/emu"
	"github.com/sarchlab/rv64sim/trace"
)

// asmADDI encodes addi rd, rs1, imm.
func asmADDI(rd, rs1 uint8, imm int64) uint32 {
	return uint32(imm&0xfff)<<20 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x13
}

// asmADD encodes add rd, rs1, rs2.
func asmADD(rd, rs1, rs2 uint8) uint32 {
	return uint32(rs2)<<20 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x33
}

// asmECALL encodes ecall.
func asmECALL() uint32 { return 0x73 }

var _ = Describe("SingleCycleCPU", func() {
	var (
		reg *emu.RegFile
		mem *emu.Memory
		out bytes.Buffer
	)

	BeforeEach(func() {
		reg = &emu.RegFile{}
		mem = emu.NewMemory()
		out.Reset()
	})

	It("commits ADDI and halts via the a7=93 trap", func() {
		mem.Write32(0, asmADDI(10, 0, 4))          // x10 = 4
		mem.Write32(4, asmADDI(17, 0, int64(93)))  // x17 = 93 (halt)
		mem.Write32(8, asmECALL())

		sys := emu.NewDefaultSyscallHandler(reg, mem, &out, &out)
		cpu := emu.NewSingleCycleCPU(reg, mem, sys, nil, 0)
		cpu.Run(0)

		Expect(cpu.Halted()).To(BeTrue())
		Expect(cpu.ExitStatus()).To(Equal(int64(4)))
		Expect(reg.IRead(10)).To(Equal(uint64(4)))
	})

	It("always reads x0 as zero after a write attempt", func() {
		mem.Write32(0, asmADDI(0, 0, 5))
		cpu := emu.NewSingleCycleCPU(reg, mem, nil, nil, 0)
		cpu.Step()
		Expect(reg.IRead(0)).To(Equal(uint64(0)))
	})

	It("reports a fatal error on an illegal instruction", func() {
		mem.Write32(0, 0x00000000)
		cpu := emu.NewSingleCycleCPU(reg, mem, nil, nil, 0)
		halted := cpu.Step()
		Expect(halted).To(BeTrue())
		Expect(cpu.Err()).To(HaveOccurred())
		var fe *emu.FatalError
		Expect(cpu.Err()).To(BeAssignableToTypeOf(fe))
	})

	It("invokes the instruction trace hook once per committed instruction", func() {
		mem.Write32(0, asmADDI(10, 0, 1))
		mem.Write32(4, asmADDI(17, 0, int64(93)))
		mem.Write32(8, asmECALL())

		var pcs []uint64
		em := trace.NewEmitter(trace.Config{ITrace: true}, trace.Hooks{
			Instruction: func(pc uint64, insn uint32) { pcs = append(pcs, pc) },
		})
		sys := emu.NewDefaultSyscallHandler(reg, mem, &out, &out)
		cpu := emu.NewSingleCycleCPU(reg, mem, sys, em, 0)
		cpu.Run(0)

		Expect(pcs).To(Equal([]uint64{0, 4, 8}))
	})
})

var _ = Describe("MultiCycleCPU equivalence", func() {
	It("produces the same architectural state as SingleCycleCPU", func() {
		program := []uint32{
			asmADDI(5, 0, 7),
			asmADDI(6, 0, 35),
			asmADD(7, 5, 6),
			asmADDI(10, 7, 0),
			asmADDI(17, 0, int64(93)),
			asmECALL(),
		}

		scReg, scMem := &emu.RegFile{}, emu.NewMemory()
		mcReg, mcMem := &emu.RegFile{}, emu.NewMemory()
		for i, w := range program {
			scMem.Write32(uint64(i*4), w)
			mcMem.Write32(uint64(i*4), w)
		}

		scSys := emu.NewDefaultSyscallHandler(scReg, scMem, &bytes.Buffer{}, &bytes.Buffer{})
		mcSys := emu.NewDefaultSyscallHandler(mcReg, mcMem, &bytes.Buffer{}, &bytes.Buffer{})

		sc := emu.NewSingleCycleCPU(scReg, scMem, scSys, nil, 0)
		mc := emu.NewMultiCycleCPU(mcReg, mcMem, mcSys, nil, 0)

		sc.Run(0)
		mc.Run(0)

		Expect(mcReg.X).To(Equal(scReg.X))
		Expect(mc.ExitStatus()).To(Equal(sc.ExitStatus()))
		Expect(mc.Instructions()).To(Equal(sc.Cycles()))
		Expect(mc.Cycles()).To(BeNumerically(">", mc.Instructions()))
	})
})
