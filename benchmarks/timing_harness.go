// Package benchmarks provides timing benchmark infrastructure for the RV32I
// core: a set of microbenchmarks and a harness that runs them against a
// timing configuration and reports cycle statistics.
package benchmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/loader"
	"github.com/sarchlab/rv32sim/timing/core"
	"github.com/sarchlab/rv32sim/timing/latency"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Mode is "bus" or "direct"
	Mode string `json:"mode"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// ModelCycles is the cycle count predicted by the latency table from
	// the retired instruction stream and the observed flushes and bubbles.
	ModelCycles uint64 `json:"model_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of stall cycles
	StallCycles uint64 `json:"stall_cycles"`

	// BusStalls is stalls due to bus transactions in flight
	BusStalls uint64 `json:"bus_stalls"`

	// LoadUseBubbles is the number of bubbles inserted for load-use hazards
	LoadUseBubbles uint64 `json:"load_use_bubbles"`

	// PipelineFlushes is the number of pipeline flushes
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// Status is PASS, FAIL or TIMEOUT
	Status string `json:"status"`

	// Result is the value of the benchmark's result register
	Result uint32 `json:"result"`

	// Passed is true when the program passed and Result matched
	Passed bool `json:"passed"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the initial state (e.g., initialize registers, memory)
	Setup func(regFile *emu.RegFile, memory *emu.Memory)

	// Program is the RV32I machine code, loaded at address 0
	Program []uint32

	// Image is a loaded hex or ELF program. When set it replaces Program
	// and execution starts at its entry point.
	Image *loader.Program

	// ResultReg holds the value checked against Expected
	ResultReg uint8

	// Expected is the expected value of ResultReg
	Expected uint32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Timing is the memory-system configuration. Nil means
	// latency.DefaultTimingConfig.
	Timing *latency.TimingConfig

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger is passed to every core (default: discard)
	Logger log.Logger

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Timing: latency.DefaultTimingConfig(),
		Output: os.Stdout,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	table      *latency.Table
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	if config.Logger == nil {
		config.Logger = log.NewLogger(log.DiscardHandler())
	}
	return &Harness{
		config:     config,
		table:      latency.NewTableWithConfig(config.Timing),
		benchmarks: []Benchmark{},
	}
}

// FromProgram wraps a loaded program as a benchmark. It passes when the
// program signals pass.
func FromProgram(name, description string, prog *loader.Program) Benchmark {
	return Benchmark{
		Name:        name,
		Description: description,
		Image:       prog,
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results. It stops early only
// when ctx is done.
func (h *Harness) RunAll(ctx context.Context) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result, err := h.runBenchmark(ctx, bench)
		if err != nil {
			return results, fmt.Errorf("benchmark %s: %w", bench.Name, err)
		}
		results = append(results, result)

		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "%s: %s in %d cycles\n",
				result.Name, result.Status, result.SimulatedCycles)
		}
	}

	return results, nil
}

// runBenchmark executes a single benchmark. A timeout is reported in the
// result, not as an error.
func (h *Harness) runBenchmark(ctx context.Context, bench Benchmark) (BenchmarkResult, error) {
	regFile := &emu.RegFile{}
	memory := emu.NewMemory(h.config.Timing.MemorySize)
	if bench.Setup != nil {
		bench.Setup(regFile, memory)
	}
	var entry uint32
	if bench.Image != nil {
		bench.Image.LoadInto(memory)
		entry = bench.Image.EntryPoint
	} else {
		memory.LoadWords(0, bench.Program)
	}

	// Flush and bubble penalties are charged to the next retirement so a
	// flush in the final cycle is not counted.
	var modelCycles, pending uint64 = 2, 0
	observer := func(s pipeline.Snapshot) {
		if s.DEMW.Valid && !s.Stalls.BusStall {
			modelCycles += h.table.GetLatency(s.DEMW.Inst) + pending
			pending = 0
		}
		if s.Stalls.Flush {
			pending += latency.TakenBranchPenalty
		}
		if s.Stalls.BubbleDEMW {
			pending += latency.LoadUsePenalty
		}
	}

	c, err := core.NewCore(regFile, memory,
		core.WithConfig(h.config.Timing),
		core.WithLogger(h.config.Logger.With("bench", bench.Name)),
		core.WithObserver(observer),
		core.WithResetPC(entry),
	)
	if err != nil {
		return BenchmarkResult{}, err
	}

	start := time.Now()
	run, err := c.Run(ctx, 0)
	wallTime := time.Since(start)
	if err != nil && !errors.Is(err, core.ErrTimeout) {
		return BenchmarkResult{}, err
	}

	mode := "direct"
	if h.config.Timing.Bus {
		mode = "bus"
	}

	stats := run.Stats
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		Mode:                mode,
		SimulatedCycles:     stats.Cycles,
		ModelCycles:         modelCycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI(),
		StallCycles:         stats.Stalls,
		BusStalls:           stats.BusStalls,
		LoadUseBubbles:      stats.LoadUseBubbles,
		PipelineFlushes:     stats.Flushes,
		Status:              run.Status.String(),
		Result:              regFile.ReadReg(bench.ResultReg),
		WallTime:            wallTime,
	}
	result.Passed = run.Status == core.StatusPass && result.Result == bench.Expected

	if stats.DCache != nil {
		result.DCacheHits = stats.DCache.Hits
		result.DCacheMisses = stats.DCache.Misses
	}

	return result, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== RV32I Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s (%s)\n", r.Name, r.Mode)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Status: %s, Result: %d, Passed: %v\n", r.Status, r.Result, r.Passed)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Model Cycles:         %d\n", r.ModelCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Bus Stalls:           %d\n", r.BusStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Load-Use Bubbles:     %d\n", r.LoadUseBubbles)
		_, _ = fmt.Fprintf(h.config.Output, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,mode,cycles,model_cycles,instructions,cpi,stalls,bus_stalls,load_use_bubbles,flushes,dcache_hits,dcache_misses,status,result")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%s,%d\n",
			r.Name,
			r.Mode,
			r.SimulatedCycles,
			r.ModelCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.BusStalls,
			r.LoadUseBubbles,
			r.PipelineFlushes,
			r.DCacheHits,
			r.DCacheMisses,
			r.Status,
			r.Result,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Timing is the configuration used
	Timing *latency.TimingConfig `json:"timing"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// Passed is the number of benchmarks that passed
	Passed int `json:"passed"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	passed := 0
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
		if r.Passed {
			passed++
		}
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Timing:    h.config.Timing,
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			Passed:            passed,
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
