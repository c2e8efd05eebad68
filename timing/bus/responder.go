package bus

import "fmt"

// Storage is the memory behind a responder. emu.Memory satisfies it.
type Storage interface {
	ReadWord(addr uint32) uint32
	WriteWord(addr, data uint32, strobe uint8)
}

// TimedStorage is storage whose accesses take a variable number of extra
// cycles, such as a cache in front of memory.
type TimedStorage interface {
	TimedRead(addr uint32) (data uint32, cycles int)
	TimedWrite(addr, data uint32, strobe uint8) (cycles int)
}

type untimed struct {
	Storage
}

func (u untimed) TimedRead(addr uint32) (uint32, int) {
	return u.ReadWord(addr), 0
}

func (u untimed) TimedWrite(addr, data uint32, strobe uint8) int {
	u.WriteWord(addr, data, strobe)
	return 0
}

// Untimed wraps storage whose accesses add no cycles.
func Untimed(s Storage) TimedStorage {
	return untimed{s}
}

// Latencies configures how many cycles each responder channel waits before
// asserting its ready or valid signal. For AW, W and AR the count starts when
// the bridge asserts valid; for R and B it starts when the request is
// accepted.
type Latencies struct {
	AWReady int
	WReady  int
	BValid  int
	ARReady int
	RValid  int
}

// Validate checks that no latency is negative.
func (l Latencies) Validate() error {
	channels := []struct {
		name string
		v    int
	}{
		{"aw_ready", l.AWReady},
		{"w_ready", l.WReady},
		{"b_valid", l.BValid},
		{"ar_ready", l.ARReady},
		{"r_valid", l.RValid},
	}
	for _, c := range channels {
		if c.v < 0 {
			return fmt.Errorf("%s latency must be >= 0, got %d", c.name, c.v)
		}
	}
	return nil
}

// responderState is the registered state of a MemoryResponder.
type responderState struct {
	arWait int

	rPending bool
	rWait    int
	rTarget  int
	rData    uint32

	awWait int
	awGot  bool
	awAddr uint32

	wWait int
	wGot  bool
	wData uint32
	wStrb uint8

	bPending bool
	bWait    int
	bTarget  int
}

// MemoryResponder services bus transactions from storage with configurable
// per-channel latencies. Its outputs are a function of its registered state
// only, so it never depends combinationally on the bridge in the same cycle.
// It always responds OKAY.
type MemoryResponder struct {
	storage TimedStorage
	lat     Latencies
	s       responderState

	reads  uint64
	writes uint64
}

// NewMemoryResponder creates a responder backed by storage.
func NewMemoryResponder(storage TimedStorage, lat Latencies) *MemoryResponder {
	return &MemoryResponder{storage: storage, lat: lat}
}

// Outputs returns the signals driven this cycle.
func (r *MemoryResponder) Outputs() ResponderSignals {
	s := r.s
	return ResponderSignals{
		ARReady: !s.rPending && s.arWait >= r.lat.ARReady,
		RValid:  s.rPending && s.rWait >= s.rTarget,
		RData:   s.rData,
		RResp:   RespOKAY,

		AWReady: !s.awGot && !s.bPending && s.awWait >= r.lat.AWReady,
		WReady:  !s.wGot && !s.bPending && s.wWait >= r.lat.WReady,
		BValid:  s.bPending && s.bWait >= s.bTarget,
		BResp:   RespOKAY,
	}
}

// Next advances the responder by one cycle given the bridge's signals for
// this cycle.
func (r *MemoryResponder) Next(m MasterSignals) {
	out := r.Outputs()
	s := r.s

	r.nextRead(&s, m, out)
	r.nextWrite(&s, m, out)

	r.s = s
}

func (r *MemoryResponder) nextRead(s *responderState, m MasterSignals, out ResponderSignals) {
	if s.rPending {
		if out.RValid && m.RReady {
			s.rPending = false
		} else {
			s.rWait++
		}
	}

	switch {
	case m.ARValid && out.ARReady:
		data, cycles := r.storage.TimedRead(m.ARAddr)
		s.rPending = true
		s.rWait = 0
		s.rTarget = r.lat.RValid + cycles
		s.rData = data
		s.arWait = 0
		r.reads++
	case m.ARValid:
		s.arWait++
	}
}

func (r *MemoryResponder) nextWrite(s *responderState, m MasterSignals, out ResponderSignals) {
	if s.bPending {
		if out.BValid && m.BReady {
			s.bPending = false
		} else {
			s.bWait++
		}
	}

	switch {
	case m.AWValid && out.AWReady:
		s.awGot = true
		s.awAddr = m.AWAddr
		s.awWait = 0
	case m.AWValid && !s.awGot:
		s.awWait++
	}

	switch {
	case m.WValid && out.WReady:
		s.wGot = true
		s.wData = m.WData
		s.wStrb = m.WStrb
		s.wWait = 0
	case m.WValid && !s.wGot:
		s.wWait++
	}

	if s.awGot && s.wGot && !s.bPending {
		cycles := r.storage.TimedWrite(s.awAddr, s.wData, s.wStrb)
		s.awGot = false
		s.wGot = false
		s.bPending = true
		s.bWait = 0
		s.bTarget = r.lat.BValid + cycles
		r.writes++
	}
}

// Reads returns the number of read transactions accepted.
func (r *MemoryResponder) Reads() uint64 {
	return r.reads
}

// Writes returns the number of write transactions performed.
func (r *MemoryResponder) Writes() uint64 {
	return r.writes
}

// Reset drops any in-flight transaction and clears counters.
func (r *MemoryResponder) Reset() {
	r.s = responderState{}
	r.reads = 0
	r.writes = 0
}
