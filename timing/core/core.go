// Package core selects and drives one of the simulator's CPU execution
// models behind a single interface, so the harness and equivalence tests
// can swap single-cycle, multi-cycle, or pipelined execution without
// caring which one is live underneath.
package core

import "github.com/sarchlab/rv64sim/emu"

// Model is the common surface every CPU execution variant exposes:
// emu.SingleCycleCPU, emu.MultiCycleCPU, and pipeline.Pipeline all
// satisfy it without any adapter glue.
type Model interface {
	RegFile() *emu.RegFile
	Memory() *emu.Memory
	Halted() bool
	ExitStatus() int64
	Err() error
	Cycles() uint64
	Instructions() uint64
	Step() bool
	Run(max uint64) uint64
}

// Stats summarizes a completed or in-progress run. Variant-specific
// counters (stall/flush/branch-accuracy) live on the concrete Model and
// are read directly by callers that need them instead of being folded in
// here, since only the pipeline variant has any of them.
type Stats struct {
	Cycles       uint64
	Instructions uint64
	CPI          float64
}

// Core drives a Model to completion. It adds no behavior beyond picking a
// uniform entry point for the harness: which CPU variant is plugged in is
// decided entirely by what Model the caller constructs.
type Core struct {
	Model Model
}

// New wraps an already-constructed CPU model.
func New(model Model) *Core {
	return &Core{Model: model}
}

func (c *Core) Halted() bool      { return c.Model.Halted() }
func (c *Core) ExitStatus() int64 { return c.Model.ExitStatus() }
func (c *Core) Err() error        { return c.Model.Err() }

// Step advances the model by one of its native units: one instruction for
// the single/multi-cycle models, one clock cycle for the pipeline.
func (c *Core) Step() bool { return c.Model.Step() }

// Run drives the model to completion, or until max native steps elapse
// (0 means unbounded).
func (c *Core) Run(max uint64) uint64 { return c.Model.Run(max) }

// Stats reports cycle/instruction counts and CPI for the run so far.
func (c *Core) Stats() Stats {
	cycles := c.Model.Cycles()
	instructions := c.Model.Instructions()
	stats := Stats{Cycles: cycles, Instructions: instructions}
	if instructions > 0 {
		stats.CPI = float64(cycles) / float64(instructions)
	}
	return stats
}
