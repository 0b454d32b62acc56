package pipeline_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv64sim/emu"
	"github.com/sarchlab/rv64sim/insts"
	"github.com/sarchlab/rv64sim/timing/pipeline"
)

var _ = Describe("FetchStage", func() {
	It("reads the instruction word at the given PC", func() {
		mem := emu.NewMemory()
		mem.Write32(0x40, asmADDI(1, 0, 9))
		fs := pipeline.NewFetchStage(mem)
		Expect(fs.Fetch(0x40)).To(Equal(asmADDI(1, 0, 9)))
	})
})

var _ = Describe("DecodeStage", func() {
	It("decodes a word and reads the current register contents", func() {
		reg := &emu.RegFile{}
		reg.IWrite(2, 5)
		ds := pipeline.NewDecodeStage(reg)

		inst := ds.Decode(asmADD(1, 2, 3))
		Expect(inst.Op).To(Equal(insts.OpADD))

		rs1, _, _, _, _ := ds.ReadOperands(inst)
		Expect(rs1).To(Equal(uint64(5)))
	})
})

var _ = Describe("ExecuteStage", func() {
	It("computes the same result as calling emu.Executor.Compute directly", func() {
		mem := emu.NewMemory()
		es := pipeline.NewExecuteStage()
		d := insts.NewDecoder()
		inst := d.Decode(asmADDI(5, 0, 11))

		result, err := es.Execute(0, inst, 0, 0, 0, 0, 0, mem)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.RegValue).To(Equal(uint64(11)))
	})
})

var _ = Describe("MemoryStage", func() {
	It("writes to memory on a store result and returns zero", func() {
		mem := emu.NewMemory()
		ms := pipeline.NewMemoryStage(mem)
		result := emu.ExecResult{MemWrite: true, MemAddr: 0x100, MemWidth: 4, MemValue: 0xcafe}
		Expect(ms.Access(result)).To(Equal(uint64(0)))
		Expect(mem.Read32(0x100)).To(Equal(uint32(0xcafe)))
	})

	It("reads from memory on a load result", func() {
		mem := emu.NewMemory()
		mem.Write32(0x200, 0xfeedface)
		ms := pipeline.NewMemoryStage(mem)
		result := emu.ExecResult{MemRead: true, MemReadAddr: 0x200, MemReadWidth: 4}
		Expect(ms.Access(result)).To(Equal(uint64(0xfeedface)))
	})
})

var _ = Describe("WritebackStage", func() {
	It("writes the ALU result to the destination register", func() {
		reg := &emu.RegFile{}
		ws := pipeline.NewWritebackStage(reg, nil)
		m := &pipeline.MEMWBRegister{
			RegWrite: true, Rd: 6,
			Result: emu.ExecResult{RegValue: 99},
		}
		halted, _ := ws.Writeback(m)
		Expect(halted).To(BeFalse())
		Expect(reg.IRead(6)).To(Equal(uint64(99)))
	})

	It("prefers MemData over the ALU result when MemToReg is set", func() {
		reg := &emu.RegFile{}
		ws := pipeline.NewWritebackStage(reg, nil)
		m := &pipeline.MEMWBRegister{
			RegWrite: true, Rd: 6, MemToReg: true, MemData: 55,
			Result: emu.ExecResult{RegValue: 99},
		}
		ws.Writeback(m)
		Expect(reg.IRead(6)).To(Equal(uint64(55)))
	})

	It("invokes the syscall handler and reports halt on ECALL", func() {
		reg := &emu.RegFile{}
		mem := emu.NewMemory()
		reg.IWrite(17, 93)
		reg.IWrite(10, 3)
		sys := emu.NewDefaultSyscallHandler(reg, mem, &bytes.Buffer{}, &bytes.Buffer{})
		ws := pipeline.NewWritebackStage(reg, sys)

		d := insts.NewDecoder()
		inst := d.Decode(asmECALL())
		m := &pipeline.MEMWBRegister{Inst: inst}

		halted, status := ws.Writeback(m)
		Expect(halted).To(BeTrue())
		Expect(status).To(Equal(int64(3)))
	})
})
