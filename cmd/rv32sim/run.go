package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/profile"
	"github.com/urfave/cli/v2"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/loader"
	"github.com/sarchlab/rv32sim/timing/core"
	"github.com/sarchlab/rv32sim/timing/latency"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

// Exit codes of the run command.
const (
	ExitFail    = 1
	ExitTimeout = 2
)

// OutFilePerm is the permission of files written by --dump-json.
var OutFilePerm = os.FileMode(0o644)

// StateDump is the JSON document written by --dump-json.
type StateDump struct {
	Status string                      `json:"status"`
	Code   hexutil.Uint64              `json:"code"`
	PC     hexutil.Uint64              `json:"pc"`
	Regs   [emu.NumRegs]hexutil.Uint64 `json:"regs"`
	Stats  core.Stats                  `json:"stats"`
}

func loadProgram(ctx *cli.Context) (*loader.Program, error) {
	hexPath := ctx.Path(HexFlag.Name)
	elfPath := ctx.Path(ELFFlag.Name)
	switch {
	case hexPath != "" && elfPath != "":
		return nil, fmt.Errorf("--%s and --%s are mutually exclusive", HexFlag.Name, ELFFlag.Name)
	case hexPath != "":
		return loader.LoadHex(hexPath)
	case elfPath != "":
		return loader.LoadELF(elfPath)
	default:
		return nil, fmt.Errorf("a program is required: pass --%s or --%s", HexFlag.Name, ELFFlag.Name)
	}
}

// timingConfig loads the timing configuration and applies flag overrides.
func timingConfig(ctx *cli.Context) (*latency.TimingConfig, error) {
	config := latency.DefaultTimingConfig()
	if path := ctx.Path(TimingConfigFlag.Name); path != "" {
		var err error
		if config, err = latency.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if ctx.IsSet(BusFlag.Name) {
		config.Bus = ctx.Bool(BusFlag.Name)
	}
	if ctx.IsSet(DCacheFlag.Name) {
		config.DCache.Enabled = ctx.Bool(DCacheFlag.Name)
	}
	if ctx.IsSet(MaxCyclesFlag.Name) && ctx.Uint64(MaxCyclesFlag.Name) != 0 {
		config.MaxCycles = ctx.Uint64(MaxCyclesFlag.Name)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing configuration: %w", err)
	}
	return config, nil
}

func describe(valid bool, inst *insts.Instruction) string {
	if !valid || inst == nil {
		return "-"
	}
	return inst.String()
}

// traceObserver prints one line per cycle.
func traceObserver(w io.Writer) pipeline.Observer {
	decoder := insts.NewDecoder()
	return func(s pipeline.Snapshot) {
		var ifde *insts.Instruction
		if s.IFDE.Valid {
			ifde = decoder.Decode(s.IFDE.InstructionWord)
		}
		_, _ = fmt.Fprintf(w, "cycle=%d pc=%08x de=[%s] mw=[%s] bus_stall=%v load_use=%v flush=%v\n",
			s.Cycle, s.PC,
			describe(s.IFDE.Valid, ifde),
			describe(s.DEMW.Valid, s.DEMW.Inst),
			s.Stalls.BusStall, s.Stalls.LoadUse, s.Stalls.Flush)
	}
}

func writeStateDump(path string, c *core.Core, res core.Result) error {
	dump := StateDump{
		Status: res.Status.String(),
		Code:   hexutil.Uint64(res.Code),
		PC:     hexutil.Uint64(c.Pipeline.PC()),
		Stats:  res.Stats,
	}
	for i := range dump.Regs {
		dump.Regs[i] = hexutil.Uint64(c.RegFile().ReadReg(uint8(i)))
	}
	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state dump: %w", err)
	}
	if err := os.WriteFile(path, data, OutFilePerm); err != nil {
		return fmt.Errorf("failed to write state dump: %w", err)
	}
	return nil
}

// Run loads a program, simulates it until the pass/fail monitor fires or the
// cycle bound is reached, and reports the outcome. A failing or timed-out
// program returns a cli.ExitCoder carrying ExitFail or ExitTimeout.
func Run(ctx *cli.Context) error {
	if ctx.Bool(PProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	l, err := loggerFromContext(ctx.App.ErrWriter, ctx.String(LogLevelFlag.Name))
	if err != nil {
		return err
	}

	prog, err := loadProgram(ctx)
	if err != nil {
		return err
	}
	config, err := timingConfig(ctx)
	if err != nil {
		return err
	}

	for _, seg := range prog.Segments {
		if uint64(seg.Addr)+uint64(seg.MemSize) > uint64(config.MemorySize) {
			l.Warn("segment exceeds memory, truncating",
				"addr", emu.HexU32(seg.Addr), "size", seg.MemSize, "memory", config.MemorySize)
		}
	}

	memory := emu.NewMemory(config.MemorySize)
	prog.LoadInto(memory)
	l.Info("loaded program",
		"entry", emu.HexU32(prog.EntryPoint), "segments", len(prog.Segments), "bytes", prog.Size())

	opts := []core.Option{
		core.WithLogger(l),
		core.WithConfig(config),
		core.WithResetPC(prog.EntryPoint),
	}
	if ctx.Bool(TraceFlag.Name) {
		opts = append(opts, core.WithObserver(traceObserver(ctx.App.Writer)))
	}
	c, err := core.NewCore(&emu.RegFile{}, memory, opts...)
	if err != nil {
		return err
	}

	res, runErr := c.Run(ctx.Context, 0)
	if runErr != nil && !errors.Is(runErr, core.ErrTimeout) {
		return runErr
	}

	return report(ctx, c, res, l)
}

func report(ctx *cli.Context, c *core.Core, res core.Result, l log.Logger) error {
	w := ctx.App.Writer
	_, _ = fmt.Fprintf(w, "STATUS %s code=%d cycles=%d instructions=%d cpi=%.3f\n",
		res.Status, res.Code, res.Cycles, res.Stats.Instructions, res.Stats.CPI())

	if ctx.Bool(DumpRegsFlag.Name) {
		if err := c.RegFile().Dump(w); err != nil {
			return err
		}
	}
	if ctx.Bool(DumpStateFlag.Name) {
		spew.Fdump(w, c.LastSnapshot())
	}
	if path := ctx.Path(DumpJSONFlag.Name); path != "" {
		if err := writeStateDump(path, c, res); err != nil {
			return err
		}
		l.Info("wrote state dump", "path", path)
	}

	switch res.Status {
	case core.StatusPass:
		return nil
	case core.StatusTimeout:
		return cli.Exit(fmt.Sprintf("timed out after %d cycles", res.Cycles), ExitTimeout)
	default:
		return cli.Exit(fmt.Sprintf("program failed with code %d", res.Code), ExitFail)
	}
}

// RunCommand simulates a single program.
var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Run a program on the pipeline model",
	Description: "Run a hex image or ELF executable until it stores its pass/fail word, or until the cycle bound is reached",
	Action:      Run,
	Flags: []cli.Flag{
		HexFlag,
		ELFFlag,
		TimingConfigFlag,
		MaxCyclesFlag,
		BusFlag,
		DCacheFlag,
		TraceFlag,
		DumpRegsFlag,
		DumpJSONFlag,
		DumpStateFlag,
		LogLevelFlag,
		PProfCPUFlag,
	},
}
