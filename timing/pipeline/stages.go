package pipeline

import (
	"github.com/sarchlab/rv64sim/emu"
	"github.com/sarchlab/rv64sim/insts"
)

// usesRs1/usesRs2 report whether an instruction format reads that operand
// at all, so the hazard unit doesn't treat an unused field as a false
// dependency (e.g. U-type and J-type instructions never read rs1).
func usesRs1(inst *insts.Instruction) bool {
	switch inst.Format {
	case insts.FormatR, insts.FormatR4, insts.FormatI, insts.FormatS, insts.FormatB:
		return true
	default:
		return false
	}
}

func usesRs2(inst *insts.Instruction) bool {
	switch inst.Format {
	case insts.FormatR, insts.FormatR4, insts.FormatS, insts.FormatB:
		return true
	default:
		return false
	}
}

// readsFloatRs1/Rs2/Rs3 report whether an F/D instruction's Rs1/Rs2/Rs3
// field names a float register rather than an integer one. Every F/D
// instruction reuses the integer R- or R4-format encoding, so Format alone
// can't tell the hazard unit which register file a given field addresses —
// OpFCVTfW and friends take an integer source into a float destination,
// OpFMVXf/OpFCLASS/OpFEQ/OpFLT/OpFLE take float sources into an integer
// destination, and OpFSW/OpFSD address memory with an integer rs1 but store
// a float rs2.
func readsFloatRs1(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpFADD, insts.OpFSUB, insts.OpFMUL, insts.OpFDIV, insts.OpFSQRT,
		insts.OpFSGNJ, insts.OpFSGNJN, insts.OpFSGNJX, insts.OpFMIN, insts.OpFMAX,
		insts.OpFMADD, insts.OpFMSUB, insts.OpFNMADD, insts.OpFNMSUB,
		insts.OpFEQ, insts.OpFLT, insts.OpFLE,
		insts.OpFCVTWf, insts.OpFCVTWUf, insts.OpFCVTLf, insts.OpFCVTLUf,
		insts.OpFCVTSD, insts.OpFCVTDS, insts.OpFMVXf, insts.OpFCLASS:
		return true
	default:
		return false
	}
}

func readsFloatRs2(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpFADD, insts.OpFSUB, insts.OpFMUL, insts.OpFDIV, insts.OpFMIN, insts.OpFMAX,
		insts.OpFSGNJ, insts.OpFSGNJN, insts.OpFSGNJX,
		insts.OpFMADD, insts.OpFMSUB, insts.OpFNMADD, insts.OpFNMSUB,
		insts.OpFEQ, insts.OpFLT, insts.OpFLE,
		insts.OpFSW, insts.OpFSD:
		return true
	default:
		return false
	}
}

func readsFloatRs3(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpFMADD, insts.OpFMSUB, insts.OpFNMADD, insts.OpFNMSUB:
		return true
	default:
		return false
	}
}

func isBranchOrJump(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpJAL, insts.OpJALR,
		insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU:
		return true
	default:
		return false
	}
}

func isLoad(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU, insts.OpLWU, insts.OpLD,
		insts.OpFLW, insts.OpFLD:
		return true
	default:
		return false
	}
}

func isStore(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpSB, insts.OpSH, insts.OpSW, insts.OpSD, insts.OpFSW, insts.OpFSD:
		return true
	default:
		return false
	}
}

func writesIntReg(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpSB, insts.OpSH, insts.OpSW, insts.OpSD, insts.OpFSW, insts.OpFSD,
		insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU,
		insts.OpFENCE, insts.OpECALL, insts.OpEBREAK, insts.OpIllegal:
		return false
	case insts.OpFADD, insts.OpFSUB, insts.OpFMUL, insts.OpFDIV, insts.OpFSQRT,
		insts.OpFSGNJ, insts.OpFSGNJN, insts.OpFSGNJX, insts.OpFMIN, insts.OpFMAX,
		insts.OpFMADD, insts.OpFMSUB, insts.OpFNMADD, insts.OpFNMSUB,
		insts.OpFCVTfW, insts.OpFCVTfWU, insts.OpFCVTfL, insts.OpFCVTfLU,
		insts.OpFCVTSD, insts.OpFCVTDS, insts.OpFMVfX:
		return false
	default:
		return inst.Rd != 0
	}
}

func writesFloatReg(inst *insts.Instruction) bool {
	switch inst.Op {
	case insts.OpFLW, insts.OpFLD,
		insts.OpFADD, insts.OpFSUB, insts.OpFMUL, insts.OpFDIV, insts.OpFSQRT,
		insts.OpFSGNJ, insts.OpFSGNJN, insts.OpFSGNJX, insts.OpFMIN, insts.OpFMAX,
		insts.OpFMADD, insts.OpFMSUB, insts.OpFNMADD, insts.OpFNMSUB,
		insts.OpFCVTfW, insts.OpFCVTfWU, insts.OpFCVTfL, insts.OpFCVTfLU,
		insts.OpFCVTSD, insts.OpFCVTDS, insts.OpFMVfX:
		return true
	default:
		return false
	}
}

// FetchStage reads one instruction word from memory.
type FetchStage struct {
	memory *emu.Memory
}

func NewFetchStage(memory *emu.Memory) *FetchStage {
	return &FetchStage{memory: memory}
}

func (s *FetchStage) Fetch(pc uint64) uint32 {
	return s.memory.ReadInstruction(pc)
}

// DecodeStage decodes the fetched word and reads source-register values.
type DecodeStage struct {
	decoder *insts.Decoder
	reg     *emu.RegFile
}

func NewDecodeStage(reg *emu.RegFile) *DecodeStage {
	return &DecodeStage{decoder: insts.NewDecoder(), reg: reg}
}

// Decode decodes word; ReadOperands then snapshots the register operands
// it will need in EX. Values are read in ID (not forwarded) to match a real
// decode stage; the hazard unit corrects stale values via forwarding in EX.
func (s *DecodeStage) Decode(word uint32) *insts.Instruction {
	return s.decoder.Decode(word)
}

func (s *DecodeStage) ReadOperands(inst *insts.Instruction) (rs1, rs2, fs1, fs2, fs3 uint64) {
	return s.reg.IRead(inst.Rs1), s.reg.IRead(inst.Rs2),
		s.reg.FRead(inst.Rs1), s.reg.FRead(inst.Rs2), s.reg.FRead(inst.Rs3)
}

// ExecuteStage wraps the shared Executor so EX can run on forwarded
// operands instead of a live register read.
type ExecuteStage struct {
	exec *emu.Executor
}

func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{exec: emu.NewExecutor()}
}

func (s *ExecuteStage) Execute(pc uint64, inst *insts.Instruction, rs1, rs2, fs1, fs2, fs3 uint64, mem *emu.Memory) (emu.ExecResult, error) {
	return s.exec.Compute(pc, inst, rs1, rs2, fs1, fs2, fs3, mem)
}

// MemoryStage performs the data memory access for loads and stores. It is
// the one place besides register writeback where the pipeline necessarily
// touches architectural state before WB, which is unavoidable in a
// classic 5-stage design: the MEM stage exists precisely to do this.
type MemoryStage struct {
	memory *emu.Memory
}

func NewMemoryStage(memory *emu.Memory) *MemoryStage {
	return &MemoryStage{memory: memory}
}

func (s *MemoryStage) Access(result emu.ExecResult) uint64 {
	if result.MemWrite {
		s.memory.Write(result.MemAddr, result.MemWidth, result.MemValue)
	}
	if result.MemRead {
		return s.memory.Read(result.MemReadAddr, result.MemReadWidth)
	}
	return 0
}

// WritebackStage commits the final register value and, for ECALL,
// invokes the syscall handler — the only two forms of architectural
// commit left once MEM has already placed any memory side effect.
type WritebackStage struct {
	reg *emu.RegFile
	sys emu.SyscallHandler
}

func NewWritebackStage(reg *emu.RegFile, sys emu.SyscallHandler) *WritebackStage {
	return &WritebackStage{reg: reg, sys: sys}
}

func (s *WritebackStage) Writeback(m *MEMWBRegister) (halted bool, status int64) {
	if m.RegWrite {
		s.reg.IWrite(m.Rd, valueForWriteback(m))
	}
	if m.FRegWrite {
		s.reg.FWrite(m.Result.FRegDest, m.Result.FRegValue)
	}
	if m.Inst != nil && m.Inst.Op == insts.OpECALL && s.sys != nil {
		hr := s.sys.Handle()
		if hr.Halted {
			return true, hr.Status
		}
	}
	return false, 0
}

func valueForWriteback(m *MEMWBRegister) uint64 {
	if m.MemToReg {
		return m.MemData
	}
	return m.Result.RegValue
}
