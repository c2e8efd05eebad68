// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline together with its memory system and runs programs
// to completion under the pass/fail store convention.
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/timing/bus"
	"github.com/sarchlab/rv32sim/timing/cache"
	"github.com/sarchlab/rv32sim/timing/latency"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

// ErrTimeout is returned by Run when the cycle bound is reached before the
// program signals pass or fail.
var ErrTimeout = errors.New("simulation timed out")

// ctxCheckInterval is how many cycles Run executes between context checks.
const ctxCheckInterval = 1024

// Stats holds performance statistics for the core.
type Stats struct {
	pipeline.Statistics

	// BusTransactions is the number of completed bus transactions. Zero in
	// direct mode.
	BusTransactions uint64

	// DCache holds data cache statistics when the cache is enabled.
	DCache *cache.Statistics `json:",omitempty"`
}

// Result describes how a run ended.
type Result struct {
	Status Status
	// Code is the word stored to the pass/fail address.
	Code   uint32
	Cycles uint64
	Stats  Stats
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger used by the core and its pipeline.
func WithLogger(logger log.Logger) Option {
	return func(c *Core) {
		c.logger = logger
	}
}

// WithConfig sets the timing configuration. The default is
// latency.DefaultTimingConfig.
func WithConfig(config *latency.TimingConfig) Option {
	return func(c *Core) {
		c.config = config
	}
}

// WithObserver registers an additional per-cycle observer.
func WithObserver(obs pipeline.Observer) Option {
	return func(c *Core) {
		c.observers = append(c.observers, obs)
	}
}

// WithResetPC sets the address of the first fetch.
func WithResetPC(pc uint32) Option {
	return func(c *Core) {
		c.resetPC = pc
	}
}

// Core represents a cycle-accurate CPU core model.
type Core struct {
	// Pipeline is the underlying 3-stage pipeline.
	Pipeline *pipeline.Pipeline

	regFile *emu.RegFile
	memory  *emu.Memory
	config  *latency.TimingConfig
	resetPC uint32

	port      *bus.Port
	responder *bus.MemoryResponder
	dcache    *cache.Cache

	monitor   *Monitor
	observers []pipeline.Observer
	last      pipeline.Snapshot
	logger    log.Logger
}

// NewCore creates a Core over the given register file and memory. The
// memory system is built from the timing configuration.
func NewCore(regFile *emu.RegFile, memory *emu.Memory, opts ...Option) (*Core, error) {
	c := &Core{
		regFile: regFile,
		memory:  memory,
		config:  latency.DefaultTimingConfig(),
		monitor: NewMonitor(),
		logger:  log.NewLogger(log.DiscardHandler()),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing config: %w", err)
	}

	pipeOpts := []pipeline.PipelineOption{
		pipeline.WithLogger(c.logger),
		pipeline.WithResetPC(c.resetPC),
		pipeline.WithObserver(c.observe),
	}

	if c.config.Bus {
		port, err := c.buildBus()
		if err != nil {
			return nil, err
		}
		pipeOpts = append(pipeOpts, pipeline.WithDataPort(port))
	} else if c.config.DCache.Enabled {
		c.logger.Warn("dcache ignored without the bus")
	}

	c.Pipeline = pipeline.NewPipeline(regFile, memory, pipeOpts...)

	return c, nil
}

func (c *Core) buildBus() (*bus.Port, error) {
	lat := c.config.BusLatencies()
	if err := lat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bus latencies: %w", err)
	}

	storage := bus.Untimed(c.memory)
	if c.config.DCache.Enabled {
		d := c.config.DCache
		c.dcache = cache.New(cache.Config{
			Size:          d.Size,
			Associativity: d.Associativity,
			BlockSize:     d.BlockSize,
			HitLatency:    d.HitLatency,
			MissLatency:   d.MissLatency,
		}, cache.NewMemoryBacking(c.memory))
		storage = c.dcache
	}

	c.responder = bus.NewMemoryResponder(storage, lat)
	c.port = bus.NewPort(bus.NewBridge(), c.responder)

	return c.port, nil
}

func (c *Core) observe(s pipeline.Snapshot) {
	c.last = s

	if s.Response.Done && c.port != nil {
		c.logger.Debug("bus transaction done",
			"cycle", s.Cycle,
			"addr", emu.HexU32(s.Request.Addr),
			"write", s.Request.Write,
			"resp", s.Response.Resp,
		)
	}

	if c.monitor.Observe(s) {
		c.logger.Debug("pass/fail store",
			"cycle", s.Cycle,
			"status", c.monitor.Status(),
			"code", emu.HexU32(c.monitor.Code()),
		)
	}

	for _, obs := range c.observers {
		obs(s)
	}
}

// RegFile returns the register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// Memory returns the backing memory. With the data cache enabled it may be
// stale until Run returns or SyncMemory is called.
func (c *Core) Memory() *emu.Memory {
	return c.memory
}

// Config returns the timing configuration.
func (c *Core) Config() *latency.TimingConfig {
	return c.config
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.Pipeline.SetPC(pc)
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Status returns the pass/fail state observed so far.
func (c *Core) Status() Status {
	return c.monitor.Status()
}

// Halted returns true once the program has signalled pass or fail.
func (c *Core) Halted() bool {
	return c.monitor.Status() != StatusRunning
}

// LastSnapshot returns the snapshot of the most recent cycle.
func (c *Core) LastSnapshot() pipeline.Snapshot {
	return c.last
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	stats := Stats{Statistics: c.Pipeline.Stats()}
	if c.port != nil {
		stats.BusTransactions = c.port.Transactions()
	}
	if c.dcache != nil {
		cs := c.dcache.Stats()
		stats.DCache = &cs
	}
	return stats
}

// SyncMemory writes dirty data cache lines back to memory.
func (c *Core) SyncMemory() {
	if c.dcache != nil {
		c.dcache.Flush()
	}
}

// Run executes the core until the program signals pass or fail, the cycle
// bound is reached, or ctx is done. A maxCycles of zero uses the configured
// bound. On timeout the Result is still filled in and the error wraps
// ErrTimeout.
func (c *Core) Run(ctx context.Context, maxCycles uint64) (Result, error) {
	if maxCycles == 0 {
		maxCycles = c.config.MaxCycles
	}

	var runErr error
	for start := c.Pipeline.Stats().Cycles; !c.Halted(); {
		ran := c.Pipeline.Stats().Cycles - start
		if ran >= maxCycles {
			runErr = fmt.Errorf("%w after %d cycles", ErrTimeout, ran)
			break
		}
		if ran%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				runErr = fmt.Errorf("run cancelled: %w", err)
				break
			}
		}
		c.Pipeline.Tick()
	}

	c.SyncMemory()

	result := Result{
		Status: c.monitor.Status(),
		Code:   c.monitor.Code(),
		Stats:  c.Stats(),
	}
	result.Cycles = result.Stats.Cycles
	if errors.Is(runErr, ErrTimeout) {
		result.Status = StatusTimeout
	}

	c.logger.Info("run finished",
		"status", result.Status,
		"cycles", result.Cycles,
		"instructions", result.Stats.Instructions,
		"cpi", fmt.Sprintf("%.3f", result.Stats.CPI()),
	)

	return result, runErr
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !c.Halted(); i++ {
		c.Pipeline.Tick()
	}
	return !c.Halted()
}

// Reset clears pipeline, bus and monitor state. Registers and memory are
// left untouched.
func (c *Core) Reset() {
	c.Pipeline.Reset()
	c.monitor.Reset()
	if c.port != nil {
		c.port.Bridge().Reset()
		c.responder.Reset()
	}
	if c.dcache != nil {
		c.dcache.Reset()
	}
	c.last = pipeline.Snapshot{}
}
