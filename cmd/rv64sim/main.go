// Package main provides the rv64sim command-line frontend: it parses the
// flag surface, builds a harness.Config, runs the selected CPU model to
// the halt trap, and prints a pass/fail summary.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rv64sim/harness"
	"github.com/sarchlab/rv64sim/timing/core"
	"github.com/sarchlab/rv64sim/timing/pipeline"
	"github.com/sarchlab/rv64sim/trace"
)

func main() {
	var (
		imagePath         string
		debug             bool
		itrace            bool
		mtrace            bool
		ftrace            bool
		cpuMode           string
		dataHazardPolicy  string
		controlPolicy     string
		predictPolicy     string
		prePipelineInfo   bool
		postPipelineInfo  bool
	)

	root := &cobra.Command{
		Use:   "rv64sim",
		Short: "A configurable RV64IFD instruction-set simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			if imagePath == "" {
				return fmt.Errorf("-i <path> is required")
			}

			mode, err := parseCPUMode(cpuMode)
			if err != nil {
				return err
			}
			dhp, err := parseDataHazardPolicy(dataHazardPolicy)
			if err != nil {
				return err
			}
			chp, err := parseControlPolicy(controlPolicy)
			if err != nil {
				return err
			}
			predictor, err := parsePredictor(predictPolicy, chp)
			if err != nil {
				return err
			}

			cfg := harness.Config{
				ImagePath:     imagePath,
				Mode:          mode,
				DataHazard:    dhp,
				ControlHazard: chp,
				Predictor:     predictor,
				Trace: trace.Config{
					ITrace:           itrace,
					MTrace:           mtrace,
					FTrace:           ftrace,
					PrePipelineInfo:  prePipelineInfo,
					PostPipelineInfo: postPipelineInfo,
				},
				Hooks: traceHooks(cmd),
			}

			prog, mem, err := harness.Load(cfg)
			if err != nil {
				return err
			}
			c, err := harness.Build(cfg, prog, mem)
			if err != nil {
				return err
			}

			if debug {
				runDebugREPL(c)
			} else {
				c.Run(0)
			}

			res := harness.Result{
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

			printSummary(res)
			os.Exit(res.ExitCode())
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVarP(&imagePath, "image", "i", "", "ELF image path (required)")
	flags.BoolVar(&debug, "debug", false, "enable single-step debugger")
	flags.BoolVar(&itrace, "itrace", false, "enable instruction trace")
	flags.BoolVar(&mtrace, "mtrace", false, "enable memory-access trace")
	flags.BoolVar(&ftrace, "ftrace", false, "enable call/return trace")
	flags.StringVar(&cpuMode, "cpu-mode", "single", "single|multi|pipeline")
	flags.StringVar(&dataHazardPolicy, "data-hazard-policy", "data-forward", "naive-stall|data-forward")
	flags.StringVar(&controlPolicy, "control-policy", "always-not-taken", "all-stall|always-not-taken|always-taken|dynamic-predict")
	flags.StringVar(&predictPolicy, "predict-policy", "two-bits-predict", "one-bit-predict|two-bits-predict")
	flags.BoolVar(&prePipelineInfo, "pre-pipeline-info", false, "dump latch state before each tick")
	flags.BoolVar(&postPipelineInfo, "post-pipeline-info", false, "dump latch state after each tick")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func parseCPUMode(s string) (harness.CPUMode, error) {
	switch s {
	case "single":
		return harness.ModeSingle, nil
	case "multi":
		return harness.ModeMulti, nil
	case "pipeline":
		return harness.ModePipeline, nil
	default:
		return 0, fmt.Errorf("unknown --cpu-mode %q", s)
	}
}

func parseDataHazardPolicy(s string) (pipeline.DataHazardPolicy, error) {
	switch s {
	case "naive-stall":
		return pipeline.DataHazardStall, nil
	case "data-forward":
		return pipeline.DataHazardForward, nil
	default:
		return 0, fmt.Errorf("unknown --data-hazard-policy %q", s)
	}
}

func parseControlPolicy(s string) (pipeline.ControlHazardPolicy, error) {
	switch s {
	case "all-stall":
		return pipeline.ControlAllStall, nil
	case "always-not-taken":
		return pipeline.ControlAlwaysNotTaken, nil
	case "always-taken":
		return pipeline.ControlAlwaysTaken, nil
	case "dynamic-predict":
		return pipeline.ControlDynamic, nil
	default:
		return 0, fmt.Errorf("unknown --control-policy %q", s)
	}
}

func parsePredictor(s string, chp pipeline.ControlHazardPolicy) (pipeline.Predictor, error) {
	if chp != pipeline.ControlDynamic {
		return nil, nil
	}
	switch s {
	case "one-bit-predict":
		return pipeline.NewOneBitPredictor(), nil
	case "two-bits-predict":
		return pipeline.NewTwoBitPredictor(), nil
	default:
		return nil, fmt.Errorf("unknown --predict-policy %q", s)
	}
}

func traceHooks(cmd *cobra.Command) trace.Hooks {
	out := cmd.OutOrStdout()
	return trace.Hooks{
		Instruction: func(pc uint64, insn uint32) {
			fmt.Fprintf(out, "itrace: pc=0x%08x insn=0x%08x\n", pc, insn)
		},
		Memory: func(addr uint64, width int, value uint64, isWrite bool) {
			verb := "read"
			if isWrite {
				verb = "write"
			}
			fmt.Fprintf(out, "mtrace: %s addr=0x%08x width=%d value=0x%x\n", verb, addr, width, value)
		},
		Call: func(callerPC, targetPC uint64, kind trace.CallKind) {
			dir := "call"
			if kind == trace.Return {
				dir = "return"
			}
			fmt.Fprintf(out, "ftrace: %s from=0x%08x to=0x%08x\n", dir, callerPC, targetPC)
		},
		PrePipeline: func(snapshot any) {
			fmt.Fprintf(out, "pre-pipeline: %s\n", formatLatchSnapshot(snapshot))
		},
		PostPipeline: func(snapshot any) {
			fmt.Fprintf(out, "post-pipeline: %s\n", formatLatchSnapshot(snapshot))
		},
	}
}

// formatLatchSnapshot renders a pipeline.LatchSnapshot for the --pre/post-
// pipeline-info dumps. It takes the snapshot as any rather than importing
// the pipeline package's concrete type, since trace.Hooks is CPU-model
// agnostic and only the pipeline variant ever populates this argument.
func formatLatchSnapshot(snapshot any) string {
	return fmt.Sprintf("%+v", snapshot)
}

func printSummary(res harness.Result) {
	status := "PASS"
	if res.SimulatorError != nil {
		status = "SIMULATOR ERROR"
	} else if res.ExitStatus != 0 {
		status = "FAIL"
	}

	fmt.Printf("\n%s\n", status)
	if res.SimulatorError != nil {
		fmt.Printf("error: %v\n", res.SimulatorError)
	}
	fmt.Printf("exit status: %d\n", res.ExitStatus)
	fmt.Printf("cycles: %d  instructions: %d  CPI: %.2f\n",
		res.Stats.Cycles, res.Stats.Instructions, res.Stats.CPI)
	if res.Branches > 0 {
		accuracy := 100.0 * float64(res.Branches-res.Mispredictions) / float64(res.Branches)
		fmt.Printf("bubbles: %d  branches: %d  mispredictions: %d  prediction accuracy: %.1f%%\n",
			res.Bubbles, res.Branches, res.Mispredictions, accuracy)
	}
}

// runDebugREPL drives a Core one cycle at a time under operator control:
// step, continue, print-reg, print-mem, quit.
func runDebugREPL(c *core.Core) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("rv64sim debugger: step | continue | print-reg <n> | print-mem <addr> | quit")
	for !c.Halted() {
		fmt.Print("(rv64sim) ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "step", "s":
			if !c.Step() {
				return
			}
		case "continue", "c":
			for !c.Halted() && c.Step() {
			}
		case "print-reg", "pr":
			if len(fields) < 2 {
				fmt.Println("usage: print-reg <n>")
				continue
			}
			var n uint8
			if _, err := fmt.Sscanf(fields[1], "%d", &n); err != nil {
				fmt.Printf("bad register number %q\n", fields[1])
				continue
			}
			fmt.Printf("x%d = 0x%x\n", n, c.Model.RegFile().IRead(n))
		case "print-mem", "pm":
			if len(fields) < 2 {
				fmt.Println("usage: print-mem <addr>")
				continue
			}
			var addr uint64
			if _, err := fmt.Sscanf(fields[1], "0x%x", &addr); err != nil {
				if _, err := fmt.Sscanf(fields[1], "%d", &addr); err != nil {
					fmt.Printf("bad address %q\n", fields[1])
					continue
				}
			}
			fmt.Printf("[0x%x] = 0x%08x\n", addr, c.Model.Memory().Read32(addr))
		case "quit", "q":
			return
		default:
			fmt.Printf("unrecognized command %q\n", fields[0])
		}
	}
}
