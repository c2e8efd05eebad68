// Package insts provides RV32I instruction definitions and decoding.
//
// This package turns 32-bit RV32I machine words into structured instruction
// representations. Each decoded instruction carries two views:
//   - Class and Op, a variant over the instruction classes (LUI, AUIPC, JAL,
//     JALR, branches, loads, stores, register-immediate and register-register
//     ALU operations, FENCE and SYSTEM)
//   - Control, the flattened control-signal bundle the pipeline latches stage
//     to stage
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x02A00093) // addi x1, x0, 42
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, int32(inst.Imm))
//
// The package also provides encoders for every RV32I format. They are used by
// tests and benchmark programs to build instruction streams without an
// external assembler.
package insts
