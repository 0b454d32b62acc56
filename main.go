// Package main provides a stub entry point for rv64sim.
// rv64sim is a configurable RV64IFD instruction-set simulator supporting
// single-cycle, multi-cycle, and five-stage pipelined execution models.
//
// For the full CLI, use: go run ./cmd/rv64sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rv64sim - RV64IFD instruction-set simulator")
	fmt.Println("")
	fmt.Println("Usage: rv64sim -i <program.elf> [options]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  --cpu-mode            single|multi|pipeline")
	fmt.Println("  --data-hazard-policy  naive-stall|data-forward")
	fmt.Println("  --control-policy      all-stall|always-not-taken|always-taken|dynamic-predict")
	fmt.Println("  --predict-policy      one-bit-predict|two-bits-predict")
	fmt.Println("  --debug               enable single-step debugger")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rv64sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rv64sim' instead.")
	}
}
