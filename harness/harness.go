// Package harness wires an ELF image into a selected CPU execution model,
// runs it to the halt trap, and reports the outcome. It is the glue layer
// between loader/emu/timing and a command-line frontend; none of the core
// packages depend on it.
package harness

import (
	"fmt"

	"github.com/sarchlab/rv64sim/emu"
	"github.com/sarchlab/rv64sim/loader"
	"github.com/sarchlab/rv64sim/timing/core"
	"github.com/sarchlab/rv64sim/timing/pipeline"
	"github.com/sarchlab/rv64sim/trace"
)

// CPUMode selects which execution model drives the run.
type CPUMode int

const (
	ModeSingle CPUMode = iota
	ModeMulti
	ModePipeline
)

// Config collects everything needed to build and run a Core from an image.
type Config struct {
	ImagePath     string
	Mode          CPUMode
	DataHazard    pipeline.DataHazardPolicy
	ControlHazard pipeline.ControlHazardPolicy
	Predictor     pipeline.Predictor // only consulted when ControlHazard == ControlDynamic
	Trace         trace.Config
	Hooks         trace.Hooks
	MaxCycles     uint64 // 0 means unbounded
}

// Result summarizes a completed run for the caller to print or assert on.
type Result struct {
	ExitStatus     int64
	GuestHalted    bool
	SimulatorError error
	Stats          core.Stats
	Mispredictions uint64
	Branches       uint64
	Bubbles        uint64
}

// ExitCode maps a Result onto the process exit-code convention: 0 pass,
// 1 guest fail, 2 simulator error.
func (r Result) ExitCode() int {
	switch {
	case r.SimulatorError != nil:
		return 2
	case r.ExitStatus != 0:
		return 1
	default:
		return 0
	}
}

// Load reads the ELF image named by cfg and materializes its segments into
// a fresh guest memory, zero-filling BSS (memsz beyond filesz) per segment.
func Load(cfg Config) (*loader.Program, *emu.Memory, error) {
	prog, err := loader.Load(cfg.ImagePath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading image: %w", err)
	}

	mem := emu.NewMemory()
	for _, seg := range prog.Segments {
		for i, b := range seg.Data {
			mem.Write8(seg.VirtAddr+uint64(i), b)
		}
		for i := uint64(len(seg.Data)); i < seg.MemSize; i++ {
			mem.Write8(seg.VirtAddr+i, 0)
		}
	}

	return prog, mem, nil
}

// Build constructs the CPU variant selected by cfg.Mode over reg/mem,
// wired with a syscall handler and trace emitter, and wraps it in a Core.
func Build(cfg Config, prog *loader.Program, mem *emu.Memory) (*core.Core, error) {
	reg := &emu.RegFile{}
	reg.IWrite(2, prog.InitialSP)

	emitter := trace.NewEmitter(cfg.Trace, cfg.Hooks)
	sys := emu.NewDefaultSyscallHandler(reg, mem, nil, nil)

	switch cfg.Mode {
	case ModeSingle:
		return core.New(emu.NewSingleCycleCPU(reg, mem, sys, emitter, prog.EntryPoint)), nil
	case ModeMulti:
		return core.New(emu.NewMultiCycleCPU(reg, mem, sys, emitter, prog.EntryPoint)), nil
	case ModePipeline:
		if cfg.ControlHazard == pipeline.ControlDynamic && cfg.Predictor == nil {
			return nil, fmt.Errorf("dynamic control-hazard policy requires a predictor")
		}
		pcfg := pipeline.Config{
			DataHazard:    cfg.DataHazard,
			ControlHazard: cfg.ControlHazard,
			Predictor:     cfg.Predictor,
		}
		p := pipeline.New(reg, mem, prog.EntryPoint, pcfg,
			pipeline.WithSyscallHandler(sys),
			pipeline.WithEmitter(emitter))
		return core.New(p), nil
	default:
		return nil, fmt.Errorf("unknown CPU mode %v", cfg.Mode)
	}
}

// Run loads the image, builds the configured CPU model, and runs it to
// halt (or to cfg.MaxCycles, if nonzero) in one call.
func Run(cfg Config) (Result, error) {
	prog, mem, err := Load(cfg)
	if err != nil {
		return Result{}, err
	}

	c, err := Build(cfg, prog, mem)
	if err != nil {
		return Result{}, err
	}

	c.Run(cfg.MaxCycles)

	res := Result{
		ExitStatus:     c.ExitStatus(),
		GuestHalted:    c.Halted(),
		SimulatorError: c.Err(),
		Stats:          c.Stats(),
	}

	if p, ok := c.Model.(*pipeline.Pipeline); ok {
		pstats := p.Stats()
		res.Mispredictions = pstats.Mispredictions
		res.Branches = pstats.Branches
		res.Bubbles = pstats.Stalls + pstats.Flushes
	}

	return res, nil
}
