package benchmarks

import (
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

// DataBase is the conventional start of the data region.
const DataBase = 0x2000

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		loadUseChain(),
		functionCalls(),
		branchTaken(),
		byteHalfword(),
		vectorAdd(),
		loopSum(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a loop, a memory-bound kernel and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSum(),
		vectorAdd(),
		branchTaken(),
	}
}

// withPass appends the pass sequence: x31 = 1; sw x31, -16(x0).
func withPass(program ...uint32) []uint32 {
	return append(program,
		insts.ADDI(31, 0, 1),
		insts.SW(31, 0, -16),
	)
}

// 1. Arithmetic Sequential - Tests ALU throughput with independent operations
func arithmeticSequential() Benchmark {
	var program []uint32
	for i := 0; i < 4; i++ {
		for rd := uint8(1); rd <= 5; rd++ {
			program = append(program, insts.ADDI(rd, rd, 1))
		}
	}
	program = append(program, insts.ADDI(10, 1, 0))

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 independent ADDIs over 5 registers - measures ALU throughput",
		Program:     withPass(program...),
		ResultReg:   10,
		Expected:    4,
	}
}

// 2. Dependency Chain - Tests forwarding with back-to-back RAW hazards
func dependencyChain() Benchmark {
	program := make([]uint32, 0, 20)
	for i := 0; i < 20; i++ {
		program = append(program, insts.ADDI(10, 10, 1))
	}

	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDIs (x10 = x10 + 1) - measures forwarding",
		Program:     withPass(program...),
		ResultReg:   10,
		Expected:    20,
	}
}

// 3. Memory Sequential - Tests store then load throughput
func memorySequential() Benchmark {
	program := []uint32{insts.LUI(30, DataBase>>12)}
	for i := int32(0); i < 4; i++ {
		program = append(program,
			insts.ADDI(1, 0, i+1),
			insts.SW(1, 30, 4*i),
		)
	}
	program = append(program,
		insts.LW(2, 30, 0),
		insts.LW(3, 30, 4),
		insts.LW(4, 30, 8),
		insts.LW(5, 30, 12),
		insts.ADD(10, 2, 3),
		insts.ADD(10, 10, 4),
		insts.ADD(10, 10, 5),
	)

	return Benchmark{
		Name:        "memory_sequential",
		Description: "4 stores then 4 loads - measures bus transaction cost",
		Program:     withPass(program...),
		ResultReg:   10,
		Expected:    10,
	}
}

// 4. Load-Use Chain - Every load feeds the next instruction
func loadUseChain() Benchmark {
	program := []uint32{
		insts.LUI(30, DataBase>>12),
		insts.SW(0, 30, 0),
	}
	for i := 0; i < 8; i++ {
		program = append(program,
			insts.LW(1, 30, 0),
			insts.ADDI(1, 1, 1),
			insts.SW(1, 30, 0),
		)
	}
	program = append(program, insts.LW(10, 30, 0))

	return Benchmark{
		Name:        "load_use_chain",
		Description: "8 load/increment/store rounds - measures load-use bubbles",
		Program:     withPass(program...),
		ResultReg:   10,
		Expected:    8,
	}
}

// 5. Function Calls - Tests JAL/JALR call and return
func functionCalls() Benchmark {
	const funcAddr = 32

	var program []uint32
	for i := int32(0); i < 5; i++ {
		program = append(program, insts.JAL(1, funcAddr-4*i))
	}
	program = withPass(program...) // 0x14, 0x18
	program = append(program,
		insts.JAL(0, 0),       // 0x1C
		insts.ADDI(10, 10, 1), // 0x20 func
		insts.JALR(0, 1, 0),   // 0x24
	)

	return Benchmark{
		Name:        "function_calls",
		Description: "5 calls to a leaf function - measures jump flush cost",
		Program:     program,
		ResultReg:   10,
		Expected:    5,
	}
}

// 6. Branch Taken - Tests a short counted loop
func branchTaken() Benchmark {
	return Benchmark{
		Name:        "branch_taken",
		Description: "10-iteration loop with a taken BNE - measures branch flush cost",
		Program: withPass(
			insts.ADDI(1, 0, 10),
			insts.ADDI(10, 0, 0),
			insts.ADDI(10, 10, 2), // loop
			insts.ADDI(1, 1, -1),
			insts.BNE(1, 0, -8),
		),
		ResultReg: 10,
		Expected:  20,
	}
}

// 7. Byte/Halfword - Tests sub-word stores and sign/zero-extending loads
func byteHalfword() Benchmark {
	return Benchmark{
		Name:        "byte_halfword",
		Description: "SB/SH with LB/LBU/LHU - measures strobed accesses",
		Program: withPass(
			insts.LUI(30, DataBase>>12),
			insts.ADDI(1, 0, -1),
			insts.SW(0, 30, 0),
			insts.SB(1, 30, 1),
			insts.SH(1, 30, 2),
			insts.LW(2, 30, 0),
			insts.LB(3, 30, 1),
			insts.LBU(4, 30, 1),
			insts.LHU(5, 30, 2),
			insts.ADD(10, 4, 5),
		),
		ResultReg: 10,
		Expected:  0xFF + 0xFFFF,
	}
}

// 8. Vector Add - C[i] = A[i] + B[i] over 8 elements
func vectorAdd() Benchmark {
	return Benchmark{
		Name:        "vector_add",
		Description: "8-element vector add with running sum - mixed loads, stores and branches",
		Setup: func(regFile *emu.RegFile, memory *emu.Memory) {
			for i := uint32(0); i < 8; i++ {
				memory.WriteWord(DataBase+4*i, i+1, 0b1111)
				memory.WriteWord(DataBase+32+4*i, 10*(i+1), 0b1111)
			}
		},
		Program: withPass(
			insts.LUI(30, DataBase>>12),
			insts.ADDI(5, 0, 8),
			insts.ADDI(6, 30, 0),
			insts.LW(1, 6, 0), // loop
			insts.LW(2, 6, 32),
			insts.ADD(3, 1, 2),
			insts.SW(3, 6, 64),
			insts.ADD(10, 10, 3),
			insts.ADDI(6, 6, 4),
			insts.ADDI(5, 5, -1),
			insts.BNE(5, 0, -28),
		),
		ResultReg: 10,
		Expected:  396,
	}
}

// 9. Loop Sum - sum of 1..100
func loopSum() Benchmark {
	return Benchmark{
		Name:        "loop_sum",
		Description: "sum 1..100 in a 3-instruction loop - measures steady-state CPI",
		Program: withPass(
			insts.ADDI(1, 0, 100),
			insts.ADDI(10, 0, 0),
			insts.ADD(10, 10, 1), // loop
			insts.ADDI(1, 1, -1),
			insts.BNE(1, 0, -8),
		),
		ResultReg: 10,
		Expected:  5050,
	}
}
