package pipeline_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64sim/emu"
	"github.com/sarchlab/rv64sim/timing/pipeline"
)

// asmFADD/asmFSUB encode the double-precision (funct7 bit 0 set) forms of
// FADD.D/FSUB.D, round-to-nearest (funct3/RM = 0).
func asmFADD(rd, rs1, rs2 uint8) uint32 {
	return uint32(0b0000001)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | uint32(rd)<<7 | 0b1010011
}

func asmFSUB(rd, rs1, rs2 uint8) uint32 {
	return uint32(0b0000101)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | uint32(rd)<<7 | 0b1010011
}

// Bit-level encoders for the RV64I subset these tests exercise. Shared
// across this package's test files.

func asmADDI(rd, rs1 uint8, imm int64) uint32 {
	return uint32(imm&0xfff)<<20 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x13
}

func asmADD(rd, rs1, rs2 uint8) uint32 {
	return uint32(rs2)<<20 | uint32(rs1)<<15 | uint32(rd)<<7 | 0x33
}

func asmECALL() uint32 { return 0x73 }

func asmLW(rd, rs1 uint8, imm int64) uint32 {
	return uint32(imm&0xfff)<<20 | uint32(rs1)<<15 | 0b010<<12 | uint32(rd)<<7 | 0b0000011
}

func asmSW(rs1, rs2 uint8, imm int64) uint32 {
	u := uint32(imm)
	hi := (u >> 5) & 0x7f
	lo := u & 0x1f
	return hi<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | 0b010<<12 | lo<<7 | 0b0100011
}

func asmBranch(funct3 uint8, rs1, rs2 uint8, offset int64) uint32 {
	u := uint32(offset)
	b12 := (u >> 12) & 0x1
	b11 := (u >> 11) & 0x1
	b10_5 := (u >> 5) & 0x3f
	b4_1 := (u >> 1) & 0xf
	return b12<<31 | b10_5<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | uint32(funct3)<<12 | b4_1<<8 | b11<<7 | 0b1100011
}

func asmBEQ(rs1, rs2 uint8, offset int64) uint32 { return asmBranch(0b000, rs1, rs2, offset) }
func asmBNE(rs1, rs2 uint8, offset int64) uint32 { return asmBranch(0b001, rs1, rs2, offset) }

func asmJAL(rd uint8, offset int64) uint32 {
	u := uint32(offset)
	b20 := (u >> 20) & 0x1
	b19_12 := (u >> 12) & 0xff
	b11 := (u >> 11) & 0x1
	b10_1 := (u >> 1) & 0x3ff
	return b20<<31 | b10_1<<21 | b11<<20 | b19_12<<12 | uint32(rd)<<7 | 0b1101111
}

func writeProgram(mem *emu.Memory, words []uint32) {
	for i, w := range words {
		mem.Write32(uint64(i*4), w)
	}
}

func newPipeline(mem *emu.Memory, reg *emu.RegFile, cfg pipeline.Config, out *bytes.Buffer) *pipeline.Pipeline {
	sys := emu.NewDefaultSyscallHandler(reg, mem, out, out)
	return pipeline.New(reg, mem, 0, cfg, pipeline.WithSyscallHandler(sys))
}

var allControlPolicies = []pipeline.ControlHazardPolicy{
	pipeline.ControlAlwaysNotTaken,
	pipeline.ControlAlwaysTaken,
	pipeline.ControlAllStall,
	pipeline.ControlDynamic,
}

var allDataPolicies = []pipeline.DataHazardPolicy{
	pipeline.DataHazardStall,
	pipeline.DataHazardForward,
}

var _ = Describe("Pipeline", func() {
	var out bytes.Buffer

	BeforeEach(func() { out.Reset() })

	It("runs a straight-line program to halt and commits the final result", func() {
		reg := &emu.RegFile{}
		mem := emu.NewMemory()
		writeProgram(mem, []uint32{
			asmADDI(5, 0, 7),
			asmADDI(6, 0, 35),
			asmADD(7, 5, 6),
			asmADDI(10, 7, 0),
			asmADDI(17, 0, 93),
			asmECALL(),
		})

		p := newPipeline(mem, reg, pipeline.Config{DataHazard: pipeline.DataHazardForward}, &out)
		p.Run(100)

		Expect(p.Halted()).To(BeTrue())
		Expect(p.ExitStatus()).To(Equal(int64(42)))
		Expect(reg.IRead(10)).To(Equal(uint64(42)))
	})

	It("always reads x0 as zero even when an instruction targets it", func() {
		reg := &emu.RegFile{}
		mem := emu.NewMemory()
		writeProgram(mem, []uint32{
			asmADDI(0, 0, 5),
			asmADDI(17, 0, 93),
			asmADDI(10, 0, 0),
			asmECALL(),
		})
		p := newPipeline(mem, reg, pipeline.Config{}, &out)
		p.Run(100)
		Expect(reg.IRead(0)).To(Equal(uint64(0)))
	})

	DescribeTable("matches SingleCycleCPU's final architectural state across every policy combination",
		func(dataPolicy pipeline.DataHazardPolicy, controlPolicy pipeline.ControlHazardPolicy) {
			program := []uint32{
				asmADDI(5, 0, 3),   // x5 = counter
				asmADDI(6, 0, 0),   // x6 = accumulator
				asmADDI(6, 6, 1),   // loop: x6 += 1       (pc=8)
				asmADDI(5, 5, -1),  // x5 -= 1             (pc=12)
				asmBNE(5, 0, -8),   // if x5 != 0 goto loop (pc=16)
				asmADDI(10, 6, 0),  // x10 = x6            (pc=20)
				asmADDI(17, 0, 93), // (pc=24)
				asmECALL(),         // (pc=28)
			}

			scReg, scMem := &emu.RegFile{}, emu.NewMemory()
			writeProgram(scMem, program)
			scSys := emu.NewDefaultSyscallHandler(scReg, scMem, &bytes.Buffer{}, &bytes.Buffer{})
			sc := emu.NewSingleCycleCPU(scReg, scMem, scSys, nil, 0)
			sc.Run(0)

			pReg, pMem := &emu.RegFile{}, emu.NewMemory()
			writeProgram(pMem, program)
			cfg := pipeline.Config{DataHazard: dataPolicy, ControlHazard: controlPolicy}
			if controlPolicy == pipeline.ControlDynamic {
				cfg.Predictor = pipeline.NewTwoBitPredictor()
			}
			p := newPipeline(pMem, pReg, cfg, &bytes.Buffer{})
			p.Run(500)

			Expect(p.Halted()).To(BeTrue())
			Expect(pReg.X).To(Equal(scReg.X))
			Expect(p.ExitStatus()).To(Equal(sc.ExitStatus()))
		},
		Entry("stall / always-not-taken", pipeline.DataHazardStall, pipeline.ControlAlwaysNotTaken),
		Entry("stall / always-taken", pipeline.DataHazardStall, pipeline.ControlAlwaysTaken),
		Entry("stall / all-stall", pipeline.DataHazardStall, pipeline.ControlAllStall),
		Entry("stall / dynamic", pipeline.DataHazardStall, pipeline.ControlDynamic),
		Entry("forward / always-not-taken", pipeline.DataHazardForward, pipeline.ControlAlwaysNotTaken),
		Entry("forward / always-taken", pipeline.DataHazardForward, pipeline.ControlAlwaysTaken),
		Entry("forward / all-stall", pipeline.DataHazardForward, pipeline.ControlAllStall),
		Entry("forward / dynamic", pipeline.DataHazardForward, pipeline.ControlDynamic),
	)

	It("stalls on a load-use hazard and still produces the correct value", func() {
		program := []uint32{
			asmADDI(5, 0, 0),   // x5 = base address 0
			asmADDI(6, 0, 55),  // x6 = 55
			asmSW(5, 6, 0),     // mem[0] = 55
			asmLW(7, 5, 0),     // x7 = mem[0]   (load)
			asmADDI(10, 7, 0),  // x10 = x7      (load-use)
			asmADDI(17, 0, 93),
			asmECALL(),
		}

		for _, dp := range allDataPolicies {
			reg := &emu.RegFile{}
			mem := emu.NewMemory()
			writeProgram(mem, program)
			p := newPipeline(mem, reg, pipeline.Config{DataHazard: dp}, &out)
			p.Run(200)

			Expect(p.Halted()).To(BeTrue())
			Expect(reg.IRead(10)).To(Equal(uint64(55)))
			Expect(p.Stats().Stalls).To(BeNumerically(">=", 1))
		}
	})

	It("resolves a back-to-back ALU RAW hazard under every data-hazard policy", func() {
		program := []uint32{
			asmADDI(5, 0, 10),
			asmADDI(6, 0, 32),
			asmADD(7, 5, 6), // depends on x5/x6, producer one instruction back
			asmADDI(10, 7, 0),
			asmADDI(17, 0, 93),
			asmECALL(),
		}

		for _, dp := range allDataPolicies {
			reg := &emu.RegFile{}
			mem := emu.NewMemory()
			writeProgram(mem, program)
			p := newPipeline(mem, reg, pipeline.Config{DataHazard: dp}, &out)
			p.Run(200)

			Expect(reg.IRead(10)).To(Equal(uint64(42)))
		}
	})

	It("resolves a dependent FADD.D/FSUB.D chain under every data-hazard policy", func() {
		program := []uint32{
			asmFADD(3, 1, 2), // f3 = f1 + f2, producer one instruction back
			asmFSUB(5, 3, 1), // f5 = f3 - f1, depends on f3
			asmADDI(17, 0, 93),
			asmECALL(),
		}

		for _, dp := range allDataPolicies {
			reg := &emu.RegFile{}
			mem := emu.NewMemory()
			reg.FWrite(1, emu.Float64Bits(3.5))
			reg.FWrite(2, emu.Float64Bits(1.5))
			writeProgram(mem, program)
			p := newPipeline(mem, reg, pipeline.Config{DataHazard: dp}, &out)
			p.Run(200)

			Expect(p.Halted()).To(BeTrue())
			Expect(emu.Float64FromBits(reg.FRead(3))).To(Equal(5.0))
			Expect(emu.Float64FromBits(reg.FRead(5))).To(Equal(1.5))
		}
	})

	It("resolves a JAL with its mandatory single-bubble squash of the delay slot", func() {
		program := make([]uint32, 8)
		program[0] = asmJAL(1, 8) // jal x1, pc=0 -> target 8, ra=4
		program[1] = 0            // delay slot, squashed: must never execute
		program[2] = asmADDI(10, 0, 42)
		program[3] = asmADDI(17, 0, 93)
		program[4] = asmECALL()

		reg := &emu.RegFile{}
		mem := emu.NewMemory()
		writeProgram(mem, program)
		p := newPipeline(mem, reg, pipeline.Config{DataHazard: pipeline.DataHazardForward}, &out)
		p.Run(200)

		Expect(p.Halted()).To(BeTrue())
		Expect(reg.IRead(1)).To(Equal(uint64(4)))
		Expect(reg.IRead(10)).To(Equal(uint64(42)))
	})

	It("flushes and redirects on a branch misprediction under always-not-taken", func() {
		program := []uint32{
			asmADDI(5, 0, 1),
			asmADDI(6, 0, 1),
			asmBEQ(5, 6, 8), // taken: skip the next instruction, land on pc=16
			asmADDI(10, 0, 999),
			asmADDI(10, 0, 42),
			asmADDI(17, 0, 93),
			asmECALL(),
		}

		reg := &emu.RegFile{}
		mem := emu.NewMemory()
		writeProgram(mem, program)
		cfg := pipeline.Config{DataHazard: pipeline.DataHazardForward, ControlHazard: pipeline.ControlAlwaysNotTaken}
		p := newPipeline(mem, reg, cfg, &out)
		p.Run(200)

		Expect(p.Halted()).To(BeTrue())
		Expect(reg.IRead(10)).To(Equal(uint64(42)))
		Expect(p.Stats().Mispredictions).To(BeNumerically(">=", 1))
	})

	It("mispredicts nothing under all-stall, since every branch blocks fetch until resolved", func() {
		program := []uint32{
			asmADDI(5, 0, 1),
			asmADDI(6, 0, 1),
			asmBEQ(5, 6, 8),
			asmADDI(10, 0, 999),
			asmADDI(10, 0, 42),
			asmADDI(17, 0, 93),
			asmECALL(),
		}

		reg := &emu.RegFile{}
		mem := emu.NewMemory()
		writeProgram(mem, program)
		cfg := pipeline.Config{DataHazard: pipeline.DataHazardForward, ControlHazard: pipeline.ControlAllStall}
		p := newPipeline(mem, reg, cfg, &out)
		p.Run(200)

		Expect(p.Halted()).To(BeTrue())
		Expect(reg.IRead(10)).To(Equal(uint64(42)))
		Expect(p.Stats().Mispredictions).To(Equal(uint64(0)))
	})

	It("reports a non-zero CPI once instructions have retired", func() {
		reg := &emu.RegFile{}
		mem := emu.NewMemory()
		writeProgram(mem, []uint32{
			asmADDI(10, 0, 1),
			asmADDI(17, 0, 93),
			asmECALL(),
		})
		p := newPipeline(mem, reg, pipeline.Config{}, &out)
		p.Run(100)

		stats := p.Stats()
		Expect(stats.Instructions).To(Equal(uint64(3)))
		Expect(stats.CPI).To(BeNumerically(">", 0))
	})
})
