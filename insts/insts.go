// Package insts decodes RV64IFD machine code into structured instruction
// records.
//
// It supports:
//   - RV64I: the base integer ISA (loads/stores, ALU, branches, jumps,
//     LUI/AUIPC, FENCE/ECALL/EBREAK).
//   - M: integer multiply/divide/remainder, 64-bit and word-width.
//   - F/D: single- and double-precision floating-point arithmetic,
//     load/store, conversion, comparison, and sign-injection.
//
// Usage:
//
//	d := insts.NewDecoder()
//	inst := d.Decode(0x00a58633) // ADD x12, x11, x10
//	fmt.Printf("%v rd=%d rs1=%d rs2=%d\n", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
package insts
