package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/sarchlab/rv32sim/benchmarks"
	"github.com/sarchlab/rv32sim/loader"
)

// programBenchmarks loads every --program path as a benchmark. Files ending
// in .hex are parsed as hex images, anything else as ELF.
func programBenchmarks(paths []string) ([]benchmarks.Benchmark, error) {
	var out []benchmarks.Benchmark
	for _, path := range paths {
		load := loader.LoadELF
		if strings.EqualFold(filepath.Ext(path), ".hex") {
			load = loader.LoadHex
		}
		prog, err := load(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out = append(out, benchmarks.FromProgram(name, path, prog))
	}
	return out, nil
}

func benchModes(mode string) ([]bool, error) {
	switch mode {
	case "bus":
		return []bool{true}, nil
	case "direct":
		return []bool{false}, nil
	case "both":
		return []bool{false, true}, nil
	default:
		return nil, fmt.Errorf("unknown benchmark mode %q", mode)
	}
}

// Bench runs the microbenchmark suite and any --program images in the
// selected modes and writes the results as text, CSV or JSON.
func Bench(ctx *cli.Context) error {
	if ctx.Bool(PProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	l, err := loggerFromContext(ctx.App.ErrWriter, ctx.String(LogLevelFlag.Name))
	if err != nil {
		return err
	}
	modes, err := benchModes(ctx.String(ModeFlag.Name))
	if err != nil {
		return err
	}
	format := ctx.String(FormatFlag.Name)
	if format != "text" && format != "csv" && format != "json" {
		return fmt.Errorf("unknown output format %q", format)
	}

	suite := benchmarks.GetMicrobenchmarks()
	if ctx.Bool(CoreOnlyFlag.Name) {
		suite = benchmarks.GetCoreBenchmarks()
	}
	extra, err := programBenchmarks(ctx.StringSlice(ProgramFlag.Name))
	if err != nil {
		return err
	}
	suite = append(suite, extra...)

	var (
		results []benchmarks.BenchmarkResult
		printer *benchmarks.Harness
	)
	for _, bus := range modes {
		config, err := timingConfig(ctx)
		if err != nil {
			return err
		}
		config.Bus = bus

		harness := benchmarks.NewHarness(benchmarks.HarnessConfig{
			Timing:  config,
			Output:  ctx.App.Writer,
			Logger:  l,
			Verbose: ctx.Bool(VerboseFlag.Name),
		})
		harness.AddBenchmarks(suite)

		run, err := harness.RunAll(ctx.Context)
		if err != nil {
			return err
		}
		results = append(results, run...)
		printer = harness
	}

	switch format {
	case "csv":
		printer.PrintCSV(results)
	case "json":
		if err := printer.PrintJSON(results); err != nil {
			return err
		}
	default:
		printer.PrintResults(results)
	}

	failed := 0
	for _, r := range results {
		if !r.Passed {
			failed++
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d benchmarks failed", failed, len(results)), ExitFail)
	}
	return nil
}

// BenchCommand runs the benchmark harness.
var BenchCommand = &cli.Command{
	Name:        "bench",
	Usage:       "Run the built-in microbenchmarks",
	Description: "Run the RV32I microbenchmark suite in direct and/or bus mode and report cycle counts",
	Action:      Bench,
	Flags: []cli.Flag{
		ModeFlag,
		FormatFlag,
		CoreOnlyFlag,
		ProgramFlag,
		VerboseFlag,
		TimingConfigFlag,
		MaxCyclesFlag,
		DCacheFlag,
		LogLevelFlag,
		PProfCPUFlag,
	},
}
