package core

import "github.com/sarchlab/rv32sim/timing/pipeline"

// PassFailAddr is the address test programs store to when they finish.
const PassFailAddr uint32 = 0xFFFFFFF0

// Status is the outcome of a run.
type Status int

// Run outcomes.
const (
	StatusRunning Status = iota
	StatusPass
	StatusFail
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "RUNNING"
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Monitor watches completed stores for the pass/fail convention: a word
// store of 1 to PassFailAddr passes, any other value fails.
type Monitor struct {
	status Status
	code   uint32
}

// NewMonitor creates a Monitor in the running state.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Observe inspects one cycle. It returns true when the cycle completed a
// store to PassFailAddr.
func (m *Monitor) Observe(s pipeline.Snapshot) bool {
	if m.status != StatusRunning {
		return false
	}

	req := s.Request
	if !req.Write || !s.Response.Done || req.Addr&^3 != PassFailAddr {
		return false
	}

	m.code = req.WData
	if req.Strobe == 0b1111 && req.WData == 1 {
		m.status = StatusPass
	} else {
		m.status = StatusFail
	}
	return true
}

// Status returns the current status.
func (m *Monitor) Status() Status {
	return m.status
}

// Code returns the value of the pass/fail store.
func (m *Monitor) Code() uint32 {
	return m.code
}

// Reset returns the monitor to the running state.
func (m *Monitor) Reset() {
	*m = Monitor{}
}
