package main

import (
	"github.com/urfave/cli/v2"
)

// Flags shared by the run, bench and config commands.
var (
	HexFlag = &cli.PathFlag{
		Name:      "hex",
		Usage:     "path of a $readmemh-style hex image to run",
		TakesFile: true,
	}
	ELFFlag = &cli.PathFlag{
		Name:      "elf",
		Usage:     "path of an ELF32 RISC-V executable to run",
		TakesFile: true,
	}
	TimingConfigFlag = &cli.PathFlag{
		Name:      "timing-config",
		Usage:     "path of a JSON timing configuration",
		TakesFile: true,
	}
	MaxCyclesFlag = &cli.Uint64Flag{
		Name:  "max-cycles",
		Usage: "cycle bound before the run times out (0: use the timing configuration)",
	}
	BusFlag = &cli.BoolFlag{
		Name:  "bus",
		Usage: "route data accesses through the AXI4-Lite bus bridge",
		Value: true,
	}
	DCacheFlag = &cli.BoolFlag{
		Name:  "dcache",
		Usage: "enable the responder-side data cache (bus mode only)",
	}
	TraceFlag = &cli.BoolFlag{
		Name:  "trace",
		Usage: "print one line per simulated cycle",
	}
	DumpRegsFlag = &cli.BoolFlag{
		Name:  "dump-regs",
		Usage: "print the final register file as REGDUMP lines",
	}
	DumpJSONFlag = &cli.PathFlag{
		Name:      "dump-json",
		Usage:     "write the final registers and statistics as JSON to this path",
		TakesFile: true,
	}
	DumpStateFlag = &cli.BoolFlag{
		Name:  "dump-state",
		Usage: "print the pipeline snapshot of the last cycle",
	}
	LogLevelFlag = &cli.StringFlag{
		Name:  "log.level",
		Usage: "log level: trace, debug, info, warn, error, crit",
		Value: "info",
	}
	PProfCPUFlag = &cli.BoolFlag{
		Name:  "pprof.cpu",
		Usage: "write a CPU profile to the working directory",
	}
	ModeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "memory system to benchmark: bus, direct or both",
		Value: "both",
	}
	FormatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "output format: text, csv or json",
		Value: "text",
	}
	CoreOnlyFlag = &cli.BoolFlag{
		Name:  "core",
		Usage: "run only the core benchmark subset",
	}
	ProgramFlag = &cli.StringSliceFlag{
		Name:  "program",
		Usage: "extra program to benchmark: a .hex image or an ELF executable (repeatable)",
	}
	VerboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "print progress while benchmarks run",
	}
)
