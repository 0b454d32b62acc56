package emu

import (
	"fmt"

	"github.com/sarchlab/rv64sim/insts"
	"github.com/sarchlab/rv64sim/trace"
)

// FatalError reports a guest-fatal condition: an illegal instruction or an
// unreachable decode branch. The simulator aborts the run when one occurs.
type FatalError struct {
	PC  uint64
	Raw uint32
	Msg string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error at pc=0x%x (raw=0x%08x): %s", e.PC, e.Raw, e.Msg)
}

// ExecResult carries everything an instruction's execution produced,
// before any of it has been written back to architectural state. Compute
// populates it from read-only inputs; Commit is the only function that
// mutates the register file or memory. The PC is advanced from NextPC by
// the CPU variant that drives the executor.
type ExecResult struct {
	NextPC uint64

	RegWrite bool
	RegDest  uint8
	RegValue uint64

	FRegWrite bool
	FRegDest  uint8
	FRegValue uint64

	MemWrite bool
	MemAddr  uint64
	MemWidth int
	MemValue uint64

	MemRead      bool
	MemReadAddr  uint64
	MemReadWidth int

	IsECALL bool
}

// Executor computes and commits the architectural effect of one decoded
// instruction. It is the shared engine behind the single-cycle and
// multi-cycle CPU variants: Compute is a pure function of its inputs,
// Commit is the sole place architectural state changes, letting the
// multi-cycle variant defer Commit to its WB sub-step while the
// single-cycle variant calls both back to back.
type Executor struct {
	alu *ALU
	fpu *FPU
	cmp *Comparator
}

// NewExecutor creates an Executor over stateless functional units.
func NewExecutor() *Executor {
	return &Executor{alu: NewALU(), fpu: NewFPU(), cmp: NewComparator()}
}

// Compute evaluates inst's architectural effect without mutating reg or
// mem (loads are read-only and safe to perform early; the addressed
// value travels in the result instead of being committed). x1 and x2 are
// the already-resolved values of rs1 and rs2, and fs1/fs2/fs3 of the
// (possibly nonexistent, for most ops) float rs1/rs2/rs3: the single-cycle
// and multi-cycle variants pass reg.IRead/FRead straight through, while the
// pipeline passes its forwarded operands instead.
func (e *Executor) Compute(pc uint64, inst *insts.Instruction, x1, x2, fs1, fs2, fs3 uint64, mem *Memory) (ExecResult, error) {
	var r ExecResult
	r.NextPC = pc + 4

	switch inst.Op {
	case insts.OpIllegal:
		return r, &FatalError{PC: pc, Raw: inst.Raw, Msg: "illegal instruction"}

	case insts.OpLUI:
		r.RegWrite, r.RegDest, r.RegValue = true, inst.Rd, uint64(inst.Imm)
	case insts.OpAUIPC:
		r.RegWrite, r.RegDest, r.RegValue = true, inst.Rd, pc+uint64(inst.Imm)

	case insts.OpJAL:
		r.RegWrite, r.RegDest, r.RegValue = true, inst.Rd, pc+4
		r.NextPC = pc + uint64(inst.Imm)
	case insts.OpJALR:
		r.RegWrite, r.RegDest, r.RegValue = true, inst.Rd, pc+4
		r.NextPC = (x1 + uint64(inst.Imm)) &^ 1

	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU:
		if e.cmp.Evaluate(branchKindOf(inst.Op), x1, x2) {
			r.NextPC = pc + uint64(inst.Imm)
		}

	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU, insts.OpLWU, insts.OpLD:
		addr := x1 + uint64(inst.Imm)
		width, signed := loadWidthOf(inst.Op)
		raw := mem.Read(addr, width)
		var val uint64
		if signed {
			val = signExtendN(raw, width*8)
		} else {
			val = raw
		}
		r.RegWrite, r.RegDest, r.RegValue = true, inst.Rd, val
		r.MemRead, r.MemReadAddr, r.MemReadWidth = true, addr, width

	case insts.OpSB, insts.OpSH, insts.OpSW, insts.OpSD:
		addr := x1 + uint64(inst.Imm)
		width := storeWidthOf(inst.Op)
		r.MemWrite, r.MemAddr, r.MemWidth, r.MemValue = true, addr, width, x2

	case insts.OpADDI:
		r.set(inst.Rd, e.alu.Add64(x1, uint64(inst.Imm)))
	case insts.OpSLTI:
		r.set(inst.Rd, e.alu.Slt(x1, uint64(inst.Imm)))
	case insts.OpSLTIU:
		r.set(inst.Rd, e.alu.Sltu(x1, uint64(inst.Imm)))
	case insts.OpXORI:
		r.set(inst.Rd, e.alu.Xor(x1, uint64(inst.Imm)))
	case insts.OpORI:
		r.set(inst.Rd, e.alu.Or(x1, uint64(inst.Imm)))
	case insts.OpANDI:
		r.set(inst.Rd, e.alu.And(x1, uint64(inst.Imm)))
	case insts.OpSLLI:
		r.set(inst.Rd, e.alu.Sll(x1, uint64(inst.Imm)))
	case insts.OpSRLI:
		r.set(inst.Rd, e.alu.Srl(x1, uint64(inst.Imm)))
	case insts.OpSRAI:
		r.set(inst.Rd, e.alu.Sra(x1, uint64(inst.Imm)))
	case insts.OpADDIW:
		r.set(inst.Rd, e.alu.AddW(x1, uint64(inst.Imm)))
	case insts.OpSLLIW:
		r.set(inst.Rd, e.alu.SllW(x1, uint64(inst.Imm)))
	case insts.OpSRLIW:
		r.set(inst.Rd, e.alu.SrlW(x1, uint64(inst.Imm)))
	case insts.OpSRAIW:
		r.set(inst.Rd, e.alu.SraW(x1, uint64(inst.Imm)))

	case insts.OpADD:
		r.set(inst.Rd, e.alu.Add64(x1, x2))
	case insts.OpSUB:
		r.set(inst.Rd, e.alu.Sub64(x1, x2))
	case insts.OpSLL:
		r.set(inst.Rd, e.alu.Sll(x1, x2))
	case insts.OpSLT:
		r.set(inst.Rd, e.alu.Slt(x1, x2))
	case insts.OpSLTU:
		r.set(inst.Rd, e.alu.Sltu(x1, x2))
	case insts.OpXOR:
		r.set(inst.Rd, e.alu.Xor(x1, x2))
	case insts.OpSRL:
		r.set(inst.Rd, e.alu.Srl(x1, x2))
	case insts.OpSRA:
		r.set(inst.Rd, e.alu.Sra(x1, x2))
	case insts.OpOR:
		r.set(inst.Rd, e.alu.Or(x1, x2))
	case insts.OpAND:
		r.set(inst.Rd, e.alu.And(x1, x2))
	case insts.OpADDW:
		r.set(inst.Rd, e.alu.AddW(x1, x2))
	case insts.OpSUBW:
		r.set(inst.Rd, e.alu.SubW(x1, x2))
	case insts.OpSLLW:
		r.set(inst.Rd, e.alu.SllW(x1, x2))
	case insts.OpSRLW:
		r.set(inst.Rd, e.alu.SrlW(x1, x2))
	case insts.OpSRAW:
		r.set(inst.Rd, e.alu.SraW(x1, x2))

	case insts.OpMUL:
		r.set(inst.Rd, e.alu.Mul(x1, x2))
	case insts.OpMULH:
		r.set(inst.Rd, e.alu.Mulh(x1, x2))
	case insts.OpMULHSU:
		r.set(inst.Rd, e.alu.Mulhsu(x1, x2))
	case insts.OpMULHU:
		r.set(inst.Rd, e.alu.Mulhu(x1, x2))
	case insts.OpDIV:
		r.set(inst.Rd, e.alu.Div(x1, x2))
	case insts.OpDIVU:
		r.set(inst.Rd, e.alu.Divu(x1, x2))
	case insts.OpREM:
		r.set(inst.Rd, e.alu.Rem(x1, x2))
	case insts.OpREMU:
		r.set(inst.Rd, e.alu.Remu(x1, x2))
	case insts.OpMULW:
		r.set(inst.Rd, e.alu.MulW(x1, x2))
	case insts.OpDIVW:
		r.set(inst.Rd, e.alu.DivW(x1, x2))
	case insts.OpDIVUW:
		r.set(inst.Rd, e.alu.DivuW(x1, x2))
	case insts.OpREMW:
		r.set(inst.Rd, e.alu.RemW(x1, x2))
	case insts.OpREMUW:
		r.set(inst.Rd, e.alu.RemuW(x1, x2))

	case insts.OpFENCE:
		// no-op: single hart, no reordering to fence against

	case insts.OpECALL:
		r.IsECALL = true
	case insts.OpEBREAK:
		return r, &FatalError{PC: pc, Raw: inst.Raw, Msg: "ebreak"}

	case insts.OpFLW:
		addr := x1 + uint64(inst.Imm)
		r.FRegWrite, r.FRegDest, r.FRegValue = true, inst.Rd, uint64(nanBoxTag)|uint64(mem.Read32(addr))
		r.MemRead, r.MemReadAddr, r.MemReadWidth = true, addr, 4
	case insts.OpFLD:
		addr := x1 + uint64(inst.Imm)
		r.FRegWrite, r.FRegDest, r.FRegValue = true, inst.Rd, mem.Read64(addr)
		r.MemRead, r.MemReadAddr, r.MemReadWidth = true, addr, 8
	case insts.OpFSW:
		addr := x1 + uint64(inst.Imm)
		r.MemWrite, r.MemAddr, r.MemWidth, r.MemValue = true, addr, 4, uint64(uint32(fs2))
	case insts.OpFSD:
		addr := x1 + uint64(inst.Imm)
		r.MemWrite, r.MemAddr, r.MemWidth, r.MemValue = true, addr, 8, fs2

	default:
		e.computeFP(pc, inst, x1, fs1, fs2, fs3, &r)
	}

	return r, nil
}

func (r *ExecResult) set(rd uint8, v uint64) {
	r.RegWrite, r.RegDest, r.RegValue = true, rd, v
}

// computeFP handles the F/D arithmetic/comparison/conversion family, split
// out of Compute to keep the integer dispatch readable. x1 is the
// already-resolved integer rs1, needed by the int-to-float conversions and
// FMVfX; fs1/fs2/fs3 are the already-resolved float operands.
func (e *Executor) computeFP(pc uint64, inst *insts.Instruction, x1, fs1, fs2, fs3 uint64, r *ExecResult) {
	d := inst.Double
	f1, f2, f3 := fs1, fs2, fs3
	s1, s2, s3 := uint32(fs1), uint32(fs2), uint32(fs3)

	writeF := func(v float64) {
		r.FRegWrite, r.FRegDest, r.FRegValue = true, inst.Rd, Float64Bits(v)
	}
	writeS := func(v float32) {
		r.FRegWrite, r.FRegDest, r.FRegValue = true, inst.Rd, uint64(nanBoxTag)|uint64(Float32Bits(v))
	}

	switch inst.Op {
	case insts.OpFADD:
		if d {
			writeF(e.fpu.AddD(Float64FromBits(f1), Float64FromBits(f2)))
		} else {
			writeS(e.fpu.AddS(Float32FromBits(s1), Float32FromBits(s2)))
		}
	case insts.OpFSUB:
		if d {
			writeF(e.fpu.SubD(Float64FromBits(f1), Float64FromBits(f2)))
		} else {
			writeS(e.fpu.SubS(Float32FromBits(s1), Float32FromBits(s2)))
		}
	case insts.OpFMUL:
		if d {
			writeF(e.fpu.MulD(Float64FromBits(f1), Float64FromBits(f2)))
		} else {
			writeS(e.fpu.MulS(Float32FromBits(s1), Float32FromBits(s2)))
		}
	case insts.OpFDIV:
		if d {
			writeF(e.fpu.DivD(Float64FromBits(f1), Float64FromBits(f2)))
		} else {
			writeS(e.fpu.DivS(Float32FromBits(s1), Float32FromBits(s2)))
		}
	case insts.OpFSQRT:
		if d {
			writeF(e.fpu.SqrtD(Float64FromBits(f1)))
		} else {
			writeS(e.fpu.SqrtS(Float32FromBits(s1)))
		}
	case insts.OpFMIN:
		if d {
			writeF(e.fpu.MinD(Float64FromBits(f1), Float64FromBits(f2)))
		} else {
			writeS(e.fpu.MinS(Float32FromBits(s1), Float32FromBits(s2)))
		}
	case insts.OpFMAX:
		if d {
			writeF(e.fpu.MaxD(Float64FromBits(f1), Float64FromBits(f2)))
		} else {
			writeS(e.fpu.MaxS(Float32FromBits(s1), Float32FromBits(s2)))
		}
	case insts.OpFSGNJ, insts.OpFSGNJN, insts.OpFSGNJX:
		e.computeSgnj(inst, f1, f2, s1, s2, r, writeF, writeS)
	case insts.OpFMADD, insts.OpFMSUB, insts.OpFNMADD, insts.OpFNMSUB:
		e.computeFMA(inst, d, f1, f2, f3, s1, s2, s3, writeF, writeS)

	case insts.OpFEQ:
		r.set(inst.Rd, boolBit(condFP(d, f1, f2, s1, s2, e.fpu.EqD, e.fpu.EqS)))
	case insts.OpFLT:
		r.set(inst.Rd, boolBit(condFP(d, f1, f2, s1, s2, e.fpu.LtD, e.fpu.LtS)))
	case insts.OpFLE:
		r.set(inst.Rd, boolBit(condFP(d, f1, f2, s1, s2, e.fpu.LeD, e.fpu.LeS)))

	case insts.OpFCVTWf:
		if d {
			r.set(inst.Rd, e.fpu.CvtWD(Float64FromBits(f1)))
		} else {
			r.set(inst.Rd, e.fpu.CvtWD(float64(Float32FromBits(s1))))
		}
	case insts.OpFCVTWUf:
		if d {
			r.set(inst.Rd, e.fpu.CvtWuD(Float64FromBits(f1)))
		} else {
			r.set(inst.Rd, e.fpu.CvtWuD(float64(Float32FromBits(s1))))
		}
	case insts.OpFCVTLf:
		if d {
			r.set(inst.Rd, e.fpu.CvtLD(Float64FromBits(f1)))
		} else {
			r.set(inst.Rd, e.fpu.CvtLD(float64(Float32FromBits(s1))))
		}
	case insts.OpFCVTLUf:
		if d {
			r.set(inst.Rd, e.fpu.CvtLuD(Float64FromBits(f1)))
		} else {
			r.set(inst.Rd, e.fpu.CvtLuD(float64(Float32FromBits(s1))))
		}

	case insts.OpFCVTfW:
		v := e.fpu.CvtDW(x1)
		if d {
			writeF(v)
		} else {
			writeS(float32(v))
		}
	case insts.OpFCVTfWU:
		v := e.fpu.CvtDWu(x1)
		if d {
			writeF(v)
		} else {
			writeS(float32(v))
		}
	case insts.OpFCVTfL:
		v := e.fpu.CvtDL(x1)
		if d {
			writeF(v)
		} else {
			writeS(float32(v))
		}
	case insts.OpFCVTfLU:
		v := e.fpu.CvtDLu(x1)
		if d {
			writeF(v)
		} else {
			writeS(float32(v))
		}

	case insts.OpFCVTSD:
		writeS(e.fpu.CvtSD(Float64FromBits(f1)))
	case insts.OpFCVTDS:
		writeF(e.fpu.CvtDS(Float32FromBits(s1)))

	case insts.OpFMVXf:
		if d {
			r.set(inst.Rd, f1)
		} else {
			r.set(inst.Rd, uint64(s1))
		}
	case insts.OpFMVfX:
		if d {
			r.FRegWrite, r.FRegDest, r.FRegValue = true, inst.Rd, x1
		} else {
			r.FRegWrite, r.FRegDest, r.FRegValue = true, inst.Rd, uint64(nanBoxTag)|uint64(uint32(x1))
		}
	case insts.OpFCLASS:
		r.set(inst.Rd, 0) // classification bitmask: not modeled, reports unknown class
	}
}

func (e *Executor) computeSgnj(inst *insts.Instruction, f1, f2 uint64, s1, s2 uint32, r *ExecResult, writeF func(float64), writeS func(float32)) {
	if inst.Double {
		a, b := Float64FromBits(f1), Float64FromBits(f2)
		switch inst.Op {
		case insts.OpFSGNJ:
			writeF(e.fpu.SgnjD(a, b))
		case insts.OpFSGNJN:
			writeF(e.fpu.SgnjnD(a, b))
		case insts.OpFSGNJX:
			writeF(e.fpu.SgnjxD(a, b))
		}
		return
	}
	a, b := Float32FromBits(s1), Float32FromBits(s2)
	switch inst.Op {
	case insts.OpFSGNJ:
		writeS(float32(e.fpu.SgnjD(float64(a), float64(b))))
	case insts.OpFSGNJN:
		writeS(float32(e.fpu.SgnjnD(float64(a), float64(b))))
	case insts.OpFSGNJX:
		writeS(float32(e.fpu.SgnjxD(float64(a), float64(b))))
	}
}

func (e *Executor) computeFMA(inst *insts.Instruction, d bool, f1, f2, f3 uint64, s1, s2, s3 uint32, writeF func(float64), writeS func(float32)) {
	var v float64
	if d {
		a, b, c := Float64FromBits(f1), Float64FromBits(f2), Float64FromBits(f3)
		switch inst.Op {
		case insts.OpFMADD:
			v = e.fpu.MaddD(a, b, c)
		case insts.OpFMSUB:
			v = e.fpu.MsubD(a, b, c)
		case insts.OpFNMADD:
			v = e.fpu.NmaddD(a, b, c)
		case insts.OpFNMSUB:
			v = e.fpu.NmsubD(a, b, c)
		}
		writeF(v)
		return
	}
	a, b, c := float64(Float32FromBits(s1)), float64(Float32FromBits(s2)), float64(Float32FromBits(s3))
	switch inst.Op {
	case insts.OpFMADD:
		v = e.fpu.MaddD(a, b, c)
	case insts.OpFMSUB:
		v = e.fpu.MsubD(a, b, c)
	case insts.OpFNMADD:
		v = e.fpu.NmaddD(a, b, c)
	case insts.OpFNMSUB:
		v = e.fpu.NmsubD(a, b, c)
	}
	writeS(float32(v))
}

func condFP(d bool, f1, f2 uint64, s1, s2 uint32, fd func(a, b float64) bool, fs func(a, b float32) bool) bool {
	if d {
		return fd(Float64FromBits(f1), Float64FromBits(f2))
	}
	return fs(Float32FromBits(s1), Float32FromBits(s2))
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Commit applies a computed ExecResult to architectural state: register
// writes, the memory write (if any), the syscall trap (if any), and
// reports whether the guest halted. This is the only function in the
// emulator that mutates the register file or memory.
func (e *Executor) Commit(inst *insts.Instruction, result ExecResult, reg *RegFile, mem *Memory, sys SyscallHandler, em *trace.Emitter) (halted bool, status int64) {
	if result.RegWrite {
		reg.IWrite(result.RegDest, result.RegValue)
	}
	if result.FRegWrite {
		reg.FWrite(result.FRegDest, result.FRegValue)
	}
	if result.MemWrite {
		mem.Write(result.MemAddr, result.MemWidth, result.MemValue)
		if em != nil {
			em.Memory(result.MemAddr, result.MemWidth, result.MemValue, true)
		}
	}
	if result.MemRead && em != nil {
		em.Memory(result.MemReadAddr, result.MemReadWidth, mem.Read(result.MemReadAddr, result.MemReadWidth), false)
	}
	if result.IsECALL && sys != nil {
		hr := sys.Handle()
		if hr.Halted {
			return true, hr.Status
		}
	}
	return false, 0
}

func branchKindOf(op insts.Op) BranchKind {
	switch op {
	case insts.OpBEQ:
		return BEQ
	case insts.OpBNE:
		return BNE
	case insts.OpBLT:
		return BLT
	case insts.OpBGE:
		return BGE
	case insts.OpBLTU:
		return BLTU
	default:
		return BGEU
	}
}

func loadWidthOf(op insts.Op) (width int, signed bool) {
	switch op {
	case insts.OpLB:
		return 1, true
	case insts.OpLBU:
		return 1, false
	case insts.OpLH:
		return 2, true
	case insts.OpLHU:
		return 2, false
	case insts.OpLW:
		return 4, true
	case insts.OpLWU:
		return 4, false
	case insts.OpLD:
		return 8, false
	default:
		return 8, false
	}
}

func storeWidthOf(op insts.Op) int {
	switch op {
	case insts.OpSB:
		return 1
	case insts.OpSH:
		return 2
	case insts.OpSW:
		return 4
	default:
		return 8
	}
}

func signExtendN(v uint64, bits int) uint64 {
	shift := uint(64 - bits)
	return uint64(int64(v<<shift) >> shift)
}
