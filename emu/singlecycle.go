package emu

import (
	"github.com/sarchlab/rv64sim/insts"
	"github.com/sarchlab/rv64sim/trace"
)

// SingleCycleCPU fetches, decodes, executes, and commits one instruction
// per Step call. It is the architectural oracle every other CPU variant
// is checked against.
type SingleCycleCPU struct {
	reg      *RegFile
	mem      *Memory
	decoder  *insts.Decoder
	exec     *Executor
	syscalls SyscallHandler
	emitter  *trace.Emitter

	halted   bool
	status   int64
	cycles   uint64
	fatalErr error
}

// NewSingleCycleCPU creates a single-cycle CPU over the given register
// file and memory, with entry point pc.
func NewSingleCycleCPU(reg *RegFile, mem *Memory, syscalls SyscallHandler, emitter *trace.Emitter, pc uint64) *SingleCycleCPU {
	if emitter == nil {
		emitter = trace.NewEmitter(trace.Config{}, trace.Hooks{})
	}
	reg.PC = pc
	return &SingleCycleCPU{
		reg:      reg,
		mem:      mem,
		decoder:  insts.NewDecoder(),
		exec:     NewExecutor(),
		syscalls: syscalls,
		emitter:  emitter,
	}
}

// RegFile returns the CPU's register file.
func (c *SingleCycleCPU) RegFile() *RegFile { return c.reg }

// Memory returns the CPU's memory.
func (c *SingleCycleCPU) Memory() *Memory { return c.mem }

// Halted reports whether the guest has halted or hit a fatal error.
func (c *SingleCycleCPU) Halted() bool { return c.halted }

// ExitStatus returns the guest-reported pass/fail status after halting.
func (c *SingleCycleCPU) ExitStatus() int64 { return c.status }

// Cycles returns the number of instructions committed so far; one cycle
// per instruction in this model.
func (c *SingleCycleCPU) Cycles() uint64 { return c.cycles }

// Instructions returns the number of instructions committed so far,
// identical to Cycles here since this model retires one per cycle. Present
// so SingleCycleCPU satisfies the same interface as MultiCycleCPU and
// Pipeline, whose cycle and instruction counts diverge.
func (c *SingleCycleCPU) Instructions() uint64 { return c.cycles }

// Err returns the fatal error that stopped the run, if any.
func (c *SingleCycleCPU) Err() error { return c.fatalErr }

// Step fetches, decodes, executes, and commits exactly one instruction.
// It returns true once the CPU has halted (via the guest trap or a fatal
// error); subsequent calls are no-ops.
func (c *SingleCycleCPU) Step() bool {
	if c.halted {
		return true
	}

	pc := c.reg.PC
	word := c.mem.ReadInstruction(pc)
	inst := c.decoder.Decode(word)

	result, err := c.exec.Compute(pc, inst, c.reg.IRead(inst.Rs1), c.reg.IRead(inst.Rs2),
		c.reg.FRead(inst.Rs1), c.reg.FRead(inst.Rs2), c.reg.FRead(inst.Rs3), c.mem)
	if err != nil {
		c.fatalErr = err
		c.halted = true
		return true
	}

	halted, status := c.exec.Commit(inst, result, c.reg, c.mem, c.syscalls, c.emitter)
	c.emitter.Instruction(pc, word)
	EmitCallTrace(c.emitter, inst, pc, result.NextPC)

	c.cycles++
	if halted {
		c.halted = true
		c.status = status
		return true
	}

	c.reg.PC = result.NextPC
	return false
}

// Run steps the CPU until it halts or maxInstructions is reached (0 means
// unbounded). It returns the number of instructions executed.
func (c *SingleCycleCPU) Run(maxInstructions uint64) uint64 {
	start := c.cycles
	for !c.halted {
		if maxInstructions != 0 && c.cycles-start >= maxInstructions {
			break
		}
		c.Step()
	}
	return c.cycles - start
}

// EmitCallTrace detects JAL-with-rd=ra calls and JALR-rd=x0,rs1=ra returns,
// the ftrace convention named in the guest ABI. Shared by every CPU
// variant's writeback point, single-cycle and multi-cycle here and the
// pipeline's doWriteback in the timing/pipeline package.
func EmitCallTrace(em *trace.Emitter, inst *insts.Instruction, pc, nextPC uint64) {
	const ra = 1
	switch {
	case inst.Op == insts.OpJAL && inst.Rd == ra:
		em.Call(pc, nextPC, trace.Call)
	case inst.Op == insts.OpJALR && inst.Rd == 0 && inst.Rs1 == ra:
		em.Call(pc, nextPC, trace.Return)
	}
}
