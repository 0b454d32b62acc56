package emu

import (
	"github.com/sarchlab/rv64sim/insts"
	"github.com/sarchlab/rv64sim/trace"
)

// multiCycleStage names the five sub-steps one instruction passes through
// in the multi-cycle model. Only the wb stage commits architectural
// state; the rest populate private scratch.
type multiCycleStage uint8

const (
	mcFetch multiCycleStage = iota
	mcDecode
	mcExecute
	mcMemory
	mcWriteback
)

// MultiCycleCPU produces the same architectural effects as
// SingleCycleCPU but exposes the IF/ID/EX/MEM/WB transitions as five
// separate Step calls per instruction. Only one instruction is ever in
// flight: there is no overlap and therefore no hazard logic.
type MultiCycleCPU struct {
	reg      *RegFile
	mem      *Memory
	decoder  *insts.Decoder
	exec     *Executor
	syscalls SyscallHandler
	emitter  *trace.Emitter

	stage multiCycleStage

	// scratch holds per-instruction state accumulated across sub-steps.
	scratchPC   uint64
	scratchWord uint32
	scratchInst *insts.Instruction
	scratchExec ExecResult

	halted   bool
	status   int64
	cycles   uint64
	ticks    uint64
	fatalErr error
}

// NewMultiCycleCPU creates a multi-cycle CPU with entry point pc.
func NewMultiCycleCPU(reg *RegFile, mem *Memory, syscalls SyscallHandler, emitter *trace.Emitter, pc uint64) *MultiCycleCPU {
	if emitter == nil {
		emitter = trace.NewEmitter(trace.Config{}, trace.Hooks{})
	}
	reg.PC = pc
	return &MultiCycleCPU{
		reg:      reg,
		mem:      mem,
		decoder:  insts.NewDecoder(),
		exec:     NewExecutor(),
		syscalls: syscalls,
		emitter:  emitter,
	}
}

func (c *MultiCycleCPU) RegFile() *RegFile    { return c.reg }
func (c *MultiCycleCPU) Memory() *Memory      { return c.mem }
func (c *MultiCycleCPU) Halted() bool         { return c.halted }
func (c *MultiCycleCPU) ExitStatus() int64    { return c.status }
func (c *MultiCycleCPU) Cycles() uint64       { return c.ticks }
func (c *MultiCycleCPU) Instructions() uint64 { return c.cycles }
func (c *MultiCycleCPU) Err() error           { return c.fatalErr }

// Step advances exactly one internal stage. It returns true once the
// guest has halted.
func (c *MultiCycleCPU) Step() bool {
	if c.halted {
		return true
	}
	c.ticks++

	switch c.stage {
	case mcFetch:
		c.scratchPC = c.reg.PC
		c.scratchWord = c.mem.ReadInstruction(c.scratchPC)
		c.stage = mcDecode

	case mcDecode:
		c.scratchInst = c.decoder.Decode(c.scratchWord)
		c.stage = mcExecute

	case mcExecute:
		result, err := c.exec.Compute(c.scratchPC, c.scratchInst,
			c.reg.IRead(c.scratchInst.Rs1), c.reg.IRead(c.scratchInst.Rs2),
			c.reg.FRead(c.scratchInst.Rs1), c.reg.FRead(c.scratchInst.Rs2), c.reg.FRead(c.scratchInst.Rs3),
			c.mem)
		if err != nil {
			c.fatalErr = err
			c.halted = true
			return true
		}
		c.scratchExec = result
		c.stage = mcMemory

	case mcMemory:
		// Memory access values were already computed in Compute; this
		// stage exists only to mirror the five-stage latency, matching
		// what the pipeline variant actually overlaps across hosts.
		c.stage = mcWriteback

	case mcWriteback:
		halted, status := c.exec.Commit(c.scratchInst, c.scratchExec, c.reg, c.mem, c.syscalls, c.emitter)
		c.emitter.Instruction(c.scratchPC, c.scratchWord)
		EmitCallTrace(c.emitter, c.scratchInst, c.scratchPC, c.scratchExec.NextPC)
		c.cycles++

		if halted {
			c.halted = true
			c.status = status
			return true
		}
		c.reg.PC = c.scratchExec.NextPC
		c.stage = mcFetch
	}

	return false
}

// Run steps the CPU until it halts or maxInstructions is reached (0 means
// unbounded), returning the number of instructions retired.
func (c *MultiCycleCPU) Run(maxInstructions uint64) uint64 {
	start := c.cycles
	for !c.halted {
		if maxInstructions != 0 && c.cycles-start >= maxInstructions {
			break
		}
		c.Step()
	}
	return c.cycles - start
}
