// Package trace defines the advisory event hooks a CPU variant invokes
// while running: per-instruction (itrace), per-memory-access (mtrace),
// per-call/return (ftrace), and pipeline-latch dumps. Hooks are read-only
// observers — disabling all of them must not change simulated state,
// since nothing downstream of the dispatch depends on whether a hook ran.
package trace

// CallKind distinguishes a call-site ftrace event from a return.
type CallKind uint8

const (
	Call CallKind = iota
	Return
)

// Hooks holds the event callbacks a CPU variant invokes. A nil field
// disables that hook; the matching Config flag gates whether it is called,
// so a harness can offer --itrace/--mtrace/--ftrace independently.
type Hooks struct {
	// Instruction fires once per committed instruction.
	Instruction func(pc uint64, insn uint32)

	// Memory fires once per memory access (load or store).
	Memory func(addr uint64, width int, value uint64, isWrite bool)

	// Call fires on a detected call or return: a JAL with rd=ra is a
	// call, a JALR with rd=x0, rs1=ra is a return.
	Call func(callerPC, targetPC uint64, kind CallKind)

	// PrePipeline and PostPipeline fire once per tick, before and after
	// stage processing, carrying a caller-defined latch snapshot. Only
	// the pipeline CPU variant invokes these.
	PrePipeline  func(snapshot any)
	PostPipeline func(snapshot any)
}

// Config selects which hooks are active. It is a read-only value passed
// in at CPU construction; nothing in the simulator mutates it afterward.
type Config struct {
	ITrace bool
	MTrace bool
	FTrace bool

	PrePipelineInfo  bool
	PostPipelineInfo bool
}

// Emitter bundles a Config with the Hooks it gates, so a CPU variant can
// call emit.Instruction(...) etc. without re-checking the Config field
// at every call site.
type Emitter struct {
	cfg   Config
	hooks Hooks
}

// NewEmitter builds an Emitter from a Config and the Hooks it gates.
func NewEmitter(cfg Config, hooks Hooks) *Emitter {
	return &Emitter{cfg: cfg, hooks: hooks}
}

func (e *Emitter) Instruction(pc uint64, insn uint32) {
	if e.cfg.ITrace && e.hooks.Instruction != nil {
		e.hooks.Instruction(pc, insn)
	}
}

func (e *Emitter) Memory(addr uint64, width int, value uint64, isWrite bool) {
	if e.cfg.MTrace && e.hooks.Memory != nil {
		e.hooks.Memory(addr, width, value, isWrite)
	}
}

func (e *Emitter) Call(callerPC, targetPC uint64, kind CallKind) {
	if e.cfg.FTrace && e.hooks.Call != nil {
		e.hooks.Call(callerPC, targetPC, kind)
	}
}

func (e *Emitter) PrePipeline(snapshot any) {
	if e.cfg.PrePipelineInfo && e.hooks.PrePipeline != nil {
		e.hooks.PrePipeline(snapshot)
	}
}

func (e *Emitter) PostPipeline(snapshot any) {
	if e.cfg.PostPipelineInfo && e.hooks.PostPipeline != nil {
		e.hooks.PostPipeline(snapshot)
	}
}
