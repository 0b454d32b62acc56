// Package pipeline implements a 5-stage RV64IFD pipeline (IF/ID/EX/MEM/WB)
// with a selectable data-hazard policy (stall or forward) and control-hazard
// policy (always-not-taken, always-taken, all-stall, or a dynamic one-bit
// or two-bit predictor). Stage updates apply in reverse order — WB, MEM,
// EX, ID, IF — within one Tick so that every stage reads the pipeline
// registers as they stood at the start of the cycle.
package pipeline

import (
	"github.com/sarchlab/rv64sim/emu"
	"github.com/sarchlab/rv64sim/insts"
	"github.com/sarchlab/rv64sim/trace"
)

// Config selects the pipeline's hazard-handling behavior.
type Config struct {
	DataHazard    DataHazardPolicy
	ControlHazard ControlHazardPolicy
	// Predictor is required when ControlHazard is ControlDynamic; the
	// caller picks a *OneBitPredictor or *TwoBitPredictor.
	Predictor Predictor
}

// Pipeline is a 5-stage RV64IFD CPU model.
type Pipeline struct {
	fetch   *FetchStage
	decode  *DecodeStage
	execute *ExecuteStage
	memory  *MemoryStage
	writeback *WritebackStage

	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	nextIfid  IFIDRegister
	nextIdex  IDEXRegister
	nextExmem EXMEMRegister
	nextMemwb MEMWBRegister

	hazard    *HazardUnit
	cfg       Config

	reg *emu.RegFile
	mem *emu.Memory
	pc  uint64

	cycles         uint64
	instructions   uint64
	stalls         uint64
	branches       uint64
	mispredictions uint64
	flushes        uint64

	halted   bool
	status   int64
	fatalErr error

	emitter *trace.Emitter

	// freezeFetch is set during ID when the instruction there is an
	// unconditional computed jump (JALR) or, under the all-stall policy,
	// any conditional branch: IF must not advance past it until EX resolves.
	freezeFetch bool
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithSyscallHandler overrides the default syscall handler.
func WithSyscallHandler(h emu.SyscallHandler) Option {
	return func(p *Pipeline) { p.writeback.sys = h }
}

// WithEmitter attaches a trace emitter.
func WithEmitter(em *trace.Emitter) Option {
	return func(p *Pipeline) { p.emitter = em }
}

// New creates a 5-stage pipeline over reg/mem starting at pc, configured
// with the given hazard policies.
func New(reg *emu.RegFile, mem *emu.Memory, pc uint64, cfg Config, opts ...Option) *Pipeline {
	reg.PC = pc
	p := &Pipeline{
		fetch:     NewFetchStage(mem),
		decode:    NewDecodeStage(reg),
		execute:   NewExecuteStage(),
		memory:    NewMemoryStage(mem),
		writeback: NewWritebackStage(reg, emu.NewDefaultSyscallHandler(reg, mem, nil, nil)),
		hazard:    NewHazardUnit(cfg.DataHazard),
		cfg:       cfg,
		reg:       reg,
		mem:       mem,
		pc:        pc,
		emitter:   trace.NewEmitter(trace.Config{}, trace.Hooks{}),
	}
	p.ifid.Bubble, p.idex.Bubble, p.exmem.Bubble, p.memwb.Bubble = true, true, true, true
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Halted() bool          { return p.halted }
func (p *Pipeline) ExitStatus() int64     { return p.status }
func (p *Pipeline) Err() error            { return p.fatalErr }
func (p *Pipeline) RegFile() *emu.RegFile { return p.reg }
func (p *Pipeline) Memory() *emu.Memory   { return p.mem }
func (p *Pipeline) Cycles() uint64        { return p.cycles }
func (p *Pipeline) Instructions() uint64  { return p.instructions }

// Step advances the pipeline by one clock cycle, aliasing Tick so Pipeline
// satisfies the same stepping interface as SingleCycleCPU/MultiCycleCPU.
func (p *Pipeline) Step() bool { return p.Tick() }

// Stats summarizes a completed or in-progress run.
type Stats struct {
	Cycles         uint64
	Instructions   uint64
	Stalls         uint64
	Branches       uint64
	Mispredictions uint64
	Flushes        uint64
	CPI            float64
}

func (p *Pipeline) Stats() Stats {
	s := Stats{
		Cycles:         p.cycles,
		Instructions:   p.instructions,
		Stalls:         p.stalls,
		Branches:       p.branches,
		Mispredictions: p.mispredictions,
		Flushes:        p.flushes,
	}
	if s.Instructions > 0 {
		s.CPI = float64(s.Cycles) / float64(s.Instructions)
	}
	return s
}

// predictDirection applies the configured control-hazard policy to a
// conditional branch observed in ID.
func (p *Pipeline) predictDirection(pc uint64) bool {
	switch p.cfg.ControlHazard {
	case ControlAlwaysTaken:
		return true
	case ControlDynamic:
		if p.cfg.Predictor != nil {
			return p.cfg.Predictor.Predict(pc)
		}
		return false
	default: // ControlAlwaysNotTaken, ControlAllStall
		return false
	}
}

// LatchSnapshot is a point-in-time copy of all four pipeline latches,
// handed to the PrePipeline/PostPipeline trace hooks.
type LatchSnapshot struct {
	IFID  IFIDRegister
	IDEX  IDEXRegister
	EXMEM EXMEMRegister
	MEMWB MEMWBRegister
}

func (p *Pipeline) snapshot() LatchSnapshot {
	return LatchSnapshot{IFID: p.ifid, IDEX: p.idex, EXMEM: p.exmem, MEMWB: p.memwb}
}

// Tick advances the pipeline by one cycle.
func (p *Pipeline) Tick() bool {
	if p.halted {
		return true
	}
	p.cycles++
	p.emitter.PrePipeline(p.snapshot())

	p.doWriteback()
	if p.halted {
		// The halt trap has retired: nothing younger may take effect.
		p.fatalErr = nil
		p.emitter.PostPipeline(p.snapshot())
		return true
	}
	if p.fatalErr != nil {
		// Everything older than the faulting instruction has now retired.
		p.halted = true
		p.emitter.PostPipeline(p.snapshot())
		return true
	}
	p.doMemory()
	mispredicted, redirectPC, flushControl := p.doExecute()
	dataHazard, jalRedirect, jalTarget := p.doDecode()
	p.doFetch()

	stall := p.hazard.ComputeStalls(dataHazard, mispredicted || flushControl, p.freezeFetch)

	if stall.InsertBubbleEX {
		p.nextIdex.Clear()
	}
	if dataHazard {
		p.stalls++
		p.nextIfid = p.ifid
	}

	switch {
	case mispredicted || flushControl:
		// EX's redirect wins: whatever ID holds is on the wrong path.
		p.nextIfid.Clear()
		p.nextIdex.Clear()
		p.pc = redirectPC
		p.flushes++
	case jalRedirect:
		p.nextIfid.Clear()
		p.pc = jalTarget
		p.flushes++
	case p.freezeFetch:
		// Hold fetch at the current PC; the branch/jump already moved
		// into ID/EX normally and will resolve next cycle in EX.
		p.nextIfid.Clear()
	}

	p.ifid = p.nextIfid
	p.idex = p.nextIdex
	p.exmem = p.nextExmem
	p.memwb = p.nextMemwb

	if !dataHazard && !jalRedirect && !mispredicted && !flushControl && !p.freezeFetch {
		p.pc += 4
	}

	p.emitter.PostPipeline(p.snapshot())
	return p.halted
}

func (p *Pipeline) doFetch() {
	word := p.fetch.Fetch(p.pc)
	p.nextIfid.Valid = true
	p.nextIfid.Bubble = false
	p.nextIfid.PC = p.pc
	p.nextIfid.InstructionWord = word
}

// doDecode decodes ifid, checks for data hazards, and resolves anything
// control-flow related that doesn't need EX: JAL's target is
// immediate-only, so it redirects fetch right here, and so does a
// conditional branch the control-hazard policy predicts taken. Returns the
// data hazard flag plus the fetch redirect info.
func (p *Pipeline) doDecode() (dataHazard bool, jalRedirect bool, jalTarget uint64) {
	p.freezeFetch = false

	if !p.ifid.Valid || p.ifid.Bubble {
		p.nextIdex.Clear()
		return false, false, 0
	}

	inst := p.decode.Decode(p.ifid.InstructionWord)
	rs1, rs2, fs1, fs2, fs3 := p.decode.ReadOperands(inst)

	// Load-use costs a stall under either data-hazard policy, since the
	// loaded value doesn't exist until MEM. Under DataHazardStall every
	// other RAW hazard against idex/exmem also stalls, since there is no
	// forwarding path to cover them.
	if p.idex.Valid && !p.idex.Bubble && isLoad(p.idex.Inst) {
		if writesFloatReg(p.idex.Inst) {
			dataHazard = p.hazard.DetectFloatLoadUseHazard(p.idex.Rd,
				readsFloatRs1(inst), readsFloatRs2(inst), readsFloatRs3(inst), inst.Rs1, inst.Rs2, inst.Rs3)
		} else {
			dataHazard = p.hazard.DetectLoadUseHazard(p.idex.Rd, usesRs1(inst), usesRs2(inst), inst.Rs1, inst.Rs2)
		}
	}
	if !dataHazard {
		dataHazard = p.hazard.DetectRAWHazard(&p.idex, &p.exmem, usesRs1(inst), usesRs2(inst), inst.Rs1, inst.Rs2)
	}
	if !dataHazard {
		dataHazard = p.hazard.DetectFloatRAWHazard(&p.idex, &p.exmem,
			readsFloatRs1(inst), readsFloatRs2(inst), readsFloatRs3(inst), inst.Rs1, inst.Rs2, inst.Rs3)
	}
	if dataHazard {
		return true, false, 0
	}

	predictedTaken := false
	predictedTarget := p.ifid.PC + 4

	switch {
	case inst.Op == insts.OpJAL:
		jalTarget = p.ifid.PC + uint64(inst.Imm)
		jalRedirect = true
	case inst.Op == insts.OpJALR:
		p.freezeFetch = true
	case isBranchOrJump(inst): // conditional branch
		if p.cfg.ControlHazard == ControlAllStall {
			p.freezeFetch = true
		} else {
			predictedTaken = p.predictDirection(p.ifid.PC)
			if predictedTaken {
				predictedTarget = p.ifid.PC + uint64(inst.Imm)
				jalTarget = predictedTarget
				jalRedirect = true
			}
		}
	}

	p.nextIdex = IDEXRegister{
		Valid: true, PC: p.ifid.PC, Inst: inst,
		Rs1Value: rs1, Rs2Value: rs2, Fs1Value: fs1, Fs2Value: fs2, Fs3Value: fs3,
		Rd: inst.Rd, Rs1: inst.Rs1, Rs2: inst.Rs2, Rs3: inst.Rs3,
		UsesFs1: readsFloatRs1(inst), UsesFs2: readsFloatRs2(inst), UsesFs3: readsFloatRs3(inst),
		MemRead: isLoad(inst), MemWrite: isStore(inst),
		RegWrite: writesIntReg(inst), FRegWrite: writesFloatReg(inst),
		MemToReg: isLoad(inst) && !writesFloatReg(inst),
		IsBranch: isBranchOrJump(inst), IsECALL: inst.Op == insts.OpECALL,
		PredictedTaken: predictedTaken, PredictedTarget: predictedTarget,
	}

	if jalRedirect {
		// JAL's own destination register write still flows through EX/MEM/WB
		// normally; only the fetch redirect happens here.
		p.freezeFetch = false
	}

	return false, jalRedirect, jalTarget
}

// doExecute runs EX on idex, resolving conditional branches and JALR.
// Returns whether a misprediction (or JALR resolution) requires a flush
// and the PC to redirect fetch to.
func (p *Pipeline) doExecute() (mispredicted bool, redirectPC uint64, flushControl bool) {
	if !p.idex.Valid || p.idex.Bubble {
		p.nextExmem.Clear()
		return false, 0, false
	}

	forwarding := p.hazard.DetectForwarding(&p.idex, &p.exmem, &p.memwb)
	rs1 := p.hazard.GetForwardedValue(forwarding.ForwardRs1, p.idex.Rs1Value, &p.exmem, &p.memwb)
	rs2 := p.hazard.GetForwardedValue(forwarding.ForwardRs2, p.idex.Rs2Value, &p.exmem, &p.memwb)
	fs1 := p.hazard.GetForwardedFloat(forwarding.ForwardFs1, p.idex.Fs1Value, &p.exmem, &p.memwb)
	fs2 := p.hazard.GetForwardedFloat(forwarding.ForwardFs2, p.idex.Fs2Value, &p.exmem, &p.memwb)
	fs3 := p.hazard.GetForwardedFloat(forwarding.ForwardFs3, p.idex.Fs3Value, &p.exmem, &p.memwb)

	result, err := p.execute.Execute(p.idex.PC, p.idex.Inst, rs1, rs2, fs1, fs2, fs3, p.mem)
	if err != nil {
		// Raised by the next Tick, once the older instructions retire,
		// unless one of them halts first.
		p.fatalErr = err
		p.nextExmem.Clear()
		return false, 0, false
	}

	switch p.idex.Inst.Op {
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU:
		actualTaken := result.NextPC != p.idex.PC+4
		p.branches++
		if p.cfg.ControlHazard == ControlAllStall {
			// no prediction was made; EX simply supplies the real target.
			flushControl = true
			redirectPC = result.NextPC
		} else {
			mispredicted = actualTaken != p.idex.PredictedTaken
			if mispredicted {
				p.mispredictions++
				if actualTaken {
					redirectPC = result.NextPC
				} else {
					redirectPC = p.idex.PC + 4
				}
			}
		}
		if p.cfg.ControlHazard == ControlDynamic && p.cfg.Predictor != nil {
			p.cfg.Predictor.Update(p.idex.PC, actualTaken)
		}
	case insts.OpJALR:
		flushControl = true
		redirectPC = result.NextPC
	}

	p.nextExmem = EXMEMRegister{
		Valid: true, PC: p.idex.PC, Inst: p.idex.Inst, Result: result,
		Rd: p.idex.Rd, MemRead: p.idex.MemRead, MemWrite: p.idex.MemWrite,
		RegWrite: p.idex.RegWrite, FRegWrite: p.idex.FRegWrite, MemToReg: p.idex.MemToReg,
	}

	return mispredicted, redirectPC, flushControl
}

func (p *Pipeline) doMemory() {
	if !p.exmem.Valid || p.exmem.Bubble {
		p.nextMemwb.Clear()
		return
	}

	memData := p.memory.Access(p.exmem.Result)
	if p.exmem.Result.MemWrite {
		p.emitter.Memory(p.exmem.Result.MemAddr, p.exmem.Result.MemWidth, p.exmem.Result.MemValue, true)
	}
	if p.exmem.Result.MemRead {
		p.emitter.Memory(p.exmem.Result.MemReadAddr, p.exmem.Result.MemReadWidth, memData, false)
	}
	if p.exmem.MemToReg {
		// Memory.Read zero-extends; the signed loads sign-extend.
		switch p.exmem.Inst.Op {
		case insts.OpLB:
			memData = uint64(int64(int8(memData)))
		case insts.OpLH:
			memData = uint64(int64(int16(memData)))
		case insts.OpLW:
			memData = uint64(int64(int32(memData)))
		}
	}

	p.nextMemwb = MEMWBRegister{
		Valid: true, PC: p.exmem.PC, Inst: p.exmem.Inst, Result: p.exmem.Result,
		MemData: memData, Rd: p.exmem.Rd,
		RegWrite: p.exmem.RegWrite, FRegWrite: p.exmem.FRegWrite, MemToReg: p.exmem.MemToReg,
	}
}

func (p *Pipeline) doWriteback() {
	if !p.memwb.Valid || p.memwb.Bubble {
		return
	}

	halted, status := p.writeback.Writeback(&p.memwb)
	p.emitter.Instruction(p.memwb.PC, p.memwb.Inst.Raw)
	emu.EmitCallTrace(p.emitter, p.memwb.Inst, p.memwb.PC, p.memwb.Result.NextPC)
	p.instructions++

	if halted {
		p.halted = true
		p.status = status
	}
}

// Run ticks the pipeline until it halts or maxCycles is reached (0 means
// unbounded), and returns the number of cycles actually ticked.
func (p *Pipeline) Run(maxCycles uint64) uint64 {
	start := p.cycles
	for !p.halted && (maxCycles == 0 || p.cycles-start < maxCycles) {
		p.Tick()
	}
	return p.cycles - start
}
