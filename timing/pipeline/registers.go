// Package pipeline implements the 5-stage RV64IFD pipeline: Fetch, Decode,
// Execute, Memory, Writeback, with configurable data- and control-hazard
// policies.
package pipeline

import (
	"github.com/sarchlab/rv64sim/emu"
	"github.com/sarchlab/rv64sim/insts"
)

// IFIDRegister holds state latched between Fetch and Decode.
type IFIDRegister struct {
	Valid  bool
	Bubble bool

	PC              uint64
	InstructionWord uint32

	// PredictedTaken/PredictedTarget are not written by the pipeline: no
	// prediction is made at fetch time. Branches are predicted in ID, and
	// that guess travels to EX in IDEXRegister.
	PredictedTaken  bool
	PredictedTarget uint64
}

// IDEXRegister holds state latched between Decode and Execute.
type IDEXRegister struct {
	Valid  bool
	Bubble bool

	PC   uint64
	Inst *insts.Instruction

	Rs1Value uint64
	Rs2Value uint64
	Fs1Value uint64
	Fs2Value uint64
	Fs3Value uint64

	Rd  uint8
	Rs1 uint8
	Rs2 uint8
	Rs3 uint8

	// UsesFs1/Fs2/Fs3 report whether this instruction reads that operand out
	// of the float register file rather than (or in addition to) the
	// integer one — most F/D opcodes reuse the integer R/R4-format fields,
	// but which of Rs1/Rs2/Rs3 is actually float-valued varies per opcode.
	UsesFs1 bool
	UsesFs2 bool
	UsesFs3 bool

	MemRead  bool
	MemWrite bool
	RegWrite bool
	FRegRead bool
	FRegWrite bool
	MemToReg bool
	IsBranch bool
	IsECALL  bool

	PredictedTaken  bool
	PredictedTarget uint64
}

// EXMEMRegister holds state latched between Execute and Memory.
type EXMEMRegister struct {
	Valid  bool
	Bubble bool

	PC   uint64
	Inst *insts.Instruction

	Result emu.ExecResult

	Rd       uint8
	MemRead  bool
	MemWrite bool
	RegWrite bool
	FRegWrite bool
	MemToReg bool
}

// MEMWBRegister holds state latched between Memory and Writeback.
type MEMWBRegister struct {
	Valid  bool
	Bubble bool

	PC   uint64
	Inst *insts.Instruction

	Result  emu.ExecResult
	MemData uint64

	Rd       uint8
	RegWrite bool
	FRegWrite bool
	MemToReg bool
}

// Clear resets the IF/ID register to an empty bubble.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{Bubble: true}
}

// Clear resets the ID/EX register to an empty bubble.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{Bubble: true}
}

// Clear resets the EX/MEM register to an empty bubble.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{Bubble: true}
}

// Clear resets the MEM/WB register to an empty bubble.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{Bubble: true}
}
