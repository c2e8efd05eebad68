package pipeline

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/timing/bus"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of valid instructions that left MW.
	Instructions uint64
	// Stalls is the number of cycles the pipeline was held for any reason.
	Stalls uint64
	// BusStalls is the number of cycles held by the data port.
	BusStalls uint64
	// LoadUseBubbles is the number of bubbles inserted for load-use hazards.
	LoadUseBubbles uint64
	// Flushes is the number of taken branches and jumps.
	Flushes uint64
	// IllegalInstructions is the number of retired illegal instructions.
	IllegalInstructions uint64
	// Loads is the number of completed loads.
	Loads uint64
	// Stores is the number of completed stores.
	Stores uint64
	// ErrorResponses is the number of accesses completed with a response
	// other than OKAY.
	ErrorResponses uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Snapshot is the complete view of one cycle: the state at the start of the
// cycle and every signal computed from it.
type Snapshot struct {
	Cycle uint64

	PC   uint32
	IFDE IFDERegister
	DEMW DEMWRegister

	Request   bus.Request
	Response  bus.Response
	WritePort emu.WritePort

	Decode DecodeResult
	Stalls StallResult

	NextPC uint32
}

// Observer receives a Snapshot after every cycle commits.
type Observer func(Snapshot)

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithDataPort replaces the default combinational data port.
func WithDataPort(port DataPort) PipelineOption {
	return func(p *Pipeline) {
		p.dataPort = port
	}
}

// WithInstructionMemory fetches instructions from imem instead of the
// pipeline's memory.
func WithInstructionMemory(imem InstructionMemory) PipelineOption {
	return func(p *Pipeline) {
		p.fetchStage = NewFetchStage(imem)
	}
}

// WithObserver registers a per-cycle observer. Observers run in
// registration order.
func WithObserver(obs Observer) PipelineOption {
	return func(p *Pipeline) {
		p.observers = append(p.observers, obs)
	}
}

// WithResetPC sets the program counter loaded on construction and Reset.
func WithResetPC(pc uint32) PipelineOption {
	return func(p *Pipeline) {
		p.resetPC = wordAlign(pc)
		p.pc = p.resetPC
	}
}

// wordAlign drops the low two bits. The PC register holds a word address,
// so every value it takes is a multiple of 4.
func wordAlign(pc uint32) uint32 {
	return pc &^ 3
}

// Pipeline implements the 3-stage RV32I pipeline.
// Stages: Fetch (IF) -> Decode/Execute (DE) -> Memory/Writeback (MW)
type Pipeline struct {
	ifde IFDERegister
	demw DEMWRegister

	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage
	hazardUnit     *HazardUnit

	regFile  *emu.RegFile
	memory   *emu.Memory
	dataPort DataPort

	pc      uint32
	resetPC uint32

	observers []Observer
	logger    log.Logger

	stats Statistics
}

// NewPipeline creates a new 3-stage pipeline. Instructions are fetched from
// memory; data accesses go to memory directly unless WithDataPort is given.
func NewPipeline(regFile *emu.RegFile, memory *emu.Memory, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		fetchStage:     NewFetchStage(memory),
		decodeStage:    NewDecodeStage(regFile),
		memoryStage:    NewMemoryStage(),
		writebackStage: NewWritebackStage(),
		hazardUnit:     NewHazardUnit(),
		regFile:        regFile,
		memory:         memory,
		dataPort:       NewDirectPort(memory),
		logger:         log.NewLogger(log.DiscardHandler()),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the program counter. The low two bits are dropped.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = wordAlign(pc)
}

// GetIFDE returns the IF/DE pipeline register.
func (p *Pipeline) GetIFDE() *IFDERegister {
	return &p.ifde
}

// GetDEMW returns the DE/MW pipeline register.
func (p *Pipeline) GetDEMW() *DEMWRegister {
	return &p.demw
}

// RegFile returns the register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// RunCycles executes the pipeline for the specified number of cycles.
func (p *Pipeline) RunCycles(cycles uint64) {
	for i := uint64(0); i < cycles; i++ {
		p.Tick()
	}
}

// Tick executes one pipeline cycle.
//
// Every stage is evaluated from the registers as they are at the start of
// the cycle, then all state is committed together:
//
//  1. MW builds the data request and the data port answers it, yielding
//     read data and the external stall (from the bus bridge's next state).
//  2. MW selects the write-port value; the write is blocked while stalled.
//  3. DE decodes, reads registers through the write port, runs the ALU and
//     resolves branches.
//  4. The hazard unit combines the external stall, the load-use hazard and
//     the branch outcome.
//  5. Next PC, IF/DE and DE/MW are selected, then the register file,
//     pipeline registers, PC and data port commit.
func (p *Pipeline) Tick() {
	snap := Snapshot{
		Cycle: p.stats.Cycles,
		PC:    p.pc,
		IFDE:  p.ifde,
		DEMW:  p.demw,
	}

	// MW
	snap.Request = p.memoryStage.Request(&p.demw)
	snap.Response = p.dataPort.Access(snap.Request)
	busStall := snap.Response.Stall
	loadValue := p.memoryStage.LoadValue(&p.demw, snap.Response.ReadData)
	snap.WritePort = p.writebackStage.WritePort(&p.demw, loadValue, busStall)

	// DE
	snap.Decode = p.decodeStage.Decode(&p.ifde, snap.WritePort)
	loadUse := p.hazardUnit.DetectLoadUse(&p.ifde, snap.Decode.Inst, &p.demw)
	taken := p.ifde.Valid && snap.Decode.BranchTaken
	snap.Stalls = p.hazardUnit.ComputeStalls(busStall, loadUse, taken)
	stalls := snap.Stalls

	// IF
	word := p.fetchStage.Fetch(p.pc)

	nextPC := p.pc + 4
	switch {
	case stalls.HoldPC:
		nextPC = p.pc
	case stalls.Flush:
		nextPC = snap.Decode.BranchTarget
	}
	nextPC = wordAlign(nextPC)
	snap.NextPC = nextPC

	nextIFDE := IFDERegister{Valid: true, PC: p.pc, InstructionWord: word}
	switch {
	case stalls.HoldIFDE:
		nextIFDE = p.ifde
	case stalls.Flush:
		nextIFDE.Clear()
	}

	nextDEMW := p.latchDEMW(snap.Decode)
	switch {
	case stalls.FreezeDEMW:
		nextDEMW = p.demw
	case stalls.BubbleDEMW:
		nextDEMW.Disable()
	}

	p.updateStats(&snap)
	p.logCycle(&snap)

	// Commit.
	p.regFile.Commit(snap.WritePort)
	p.ifde = nextIFDE
	p.demw = nextDEMW
	p.pc = nextPC
	p.dataPort.Commit()

	for _, obs := range p.observers {
		obs(snap)
	}
}

// latchDEMW builds the DE/MW contents from the decode result, gating the
// enables by IF/DE validity.
func (p *Pipeline) latchDEMW(dec DecodeResult) DEMWRegister {
	inst := dec.Inst
	next := DEMWRegister{
		Valid:      p.ifde.Valid,
		PC:         p.ifde.PC,
		Inst:       inst,
		ALUResult:  dec.ALUResult,
		StoreValue: dec.Rs2Value,
		PCPlus4:    p.ifde.PC + 4,
		Rd:         inst.Rd,
		Ctrl:       inst.Ctrl,
	}
	if !p.ifde.Valid {
		next.Disable()
	}
	return next
}

func (p *Pipeline) updateStats(snap *Snapshot) {
	s := &p.stats
	stalls := snap.Stalls

	s.Cycles++
	if stalls.Stall() {
		s.Stalls++
	}
	if stalls.BusStall {
		s.BusStalls++
	}
	if stalls.BubbleDEMW {
		s.LoadUseBubbles++
	}
	if stalls.Flush {
		s.Flushes++
	}

	if !snap.DEMW.Valid || stalls.BusStall {
		return
	}

	s.Instructions++
	if snap.DEMW.Ctrl.Illegal {
		s.IllegalInstructions++
	}
	if snap.Response.Done {
		switch {
		case snap.Request.Read:
			s.Loads++
		case snap.Request.Write:
			s.Stores++
		}
		if snap.Response.Resp != bus.RespOKAY {
			s.ErrorResponses++
		}
	}
}

func (p *Pipeline) logCycle(snap *Snapshot) {
	stalls := snap.Stalls

	p.logger.Trace("cycle",
		"n", snap.Cycle,
		"pc", emu.HexU32(snap.PC),
		"stall", stalls.Stall(),
		"flush", stalls.Flush,
	)

	if snap.DEMW.Valid && snap.DEMW.Ctrl.Illegal && !stalls.BusStall {
		p.logger.Debug("illegal instruction",
			"pc", emu.HexU32(snap.DEMW.PC),
			"word", emu.HexU32(snap.DEMW.Inst.Word),
		)
	}
	if stalls.Flush {
		p.logger.Debug("branch taken",
			"pc", emu.HexU32(snap.IFDE.PC),
			"inst", snap.Decode.Inst,
			"target", emu.HexU32(snap.Decode.BranchTarget),
		)
	}
	if stalls.BubbleDEMW {
		p.logger.Debug("load-use bubble",
			"pc", emu.HexU32(snap.IFDE.PC),
			"rd", snap.DEMW.Rd,
		)
	}
}

// Reset clears the pipeline registers and statistics and reloads the reset
// PC. The register file and memory are left untouched.
func (p *Pipeline) Reset() {
	p.ifde.Clear()
	p.demw.Clear()
	p.pc = p.resetPC
	p.stats = Statistics{}
}
