package bus

// State is the bridge's protocol state.
type State uint8

// Bridge states.
const (
	StateIdle State = iota
	StateReadAddress
	StateReadData
	StateWriteAddress
	StateWriteResponse
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateReadAddress:
		return "READ_ADDRESS"
	case StateReadData:
		return "READ_DATA"
	case StateWriteAddress:
		return "WRITE_ADDRESS"
	case StateWriteResponse:
		return "WRITE_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// transaction is the latched state of the in-flight access.
type transaction struct {
	state  State
	addr   uint32
	wdata  uint32
	strobe uint8
	awDone bool
	wDone  bool
	rdata  uint32
}

// Step is the result of evaluating the bridge for one cycle. It carries the
// signals driven this cycle and the state to commit at the clock edge.
type Step struct {
	Out      MasterSignals
	Response Response
	next     transaction
}

// Next returns the state the bridge will be in after the step commits.
func (s Step) Next() State {
	return s.next.state
}

// Bridge converts single-cycle memory requests into bus transactions.
// Only one transaction is outstanding at a time; requests are sampled only
// in IDLE.
type Bridge struct {
	cur transaction
}

// NewBridge creates a bridge in the IDLE state.
func NewBridge() *Bridge {
	return &Bridge{}
}

// State returns the current protocol state.
func (b *Bridge) State() State {
	return b.cur.state
}

// Reset returns the bridge to IDLE, dropping any in-flight transaction.
func (b *Bridge) Reset() {
	b.cur = transaction{}
}

// Outputs returns the signals driven in the current state. They depend only
// on registered state.
func (b *Bridge) Outputs() MasterSignals {
	t := b.cur
	out := MasterSignals{AWProt: ProtData, ARProt: ProtData}

	switch t.state {
	case StateReadAddress:
		out.ARValid = true
		out.ARAddr = t.addr
	case StateReadData:
		out.RReady = true
	case StateWriteAddress:
		out.AWValid = !t.awDone
		out.AWAddr = t.addr
		out.WValid = !t.wDone
		out.WData = t.wdata
		out.WStrb = t.strobe
	case StateWriteResponse:
		out.BReady = true
	}

	return out
}

// Evaluate computes this cycle's outputs, the response to the core and the
// next state from the current state, the core's request and the responder's
// signals. It does not modify the bridge.
func (b *Bridge) Evaluate(req Request, in ResponderSignals) Step {
	out := b.Outputs()
	next := b.cur
	step := Step{Out: out}
	step.Response.ReadData = b.cur.rdata

	switch b.cur.state {
	case StateIdle:
		switch {
		case req.Read:
			next = transaction{state: StateReadAddress, addr: req.Addr, rdata: b.cur.rdata}
		case req.Write:
			next = transaction{
				state:  StateWriteAddress,
				addr:   req.Addr,
				wdata:  req.WData,
				strobe: req.Strobe,
				rdata:  b.cur.rdata,
			}
		}

	case StateReadAddress:
		if out.ARValid && in.ARReady {
			next.state = StateReadData
		}

	case StateReadData:
		if out.RReady && in.RValid {
			next.state = StateIdle
			next.rdata = in.RData
			step.Response.ReadData = in.RData
			step.Response.Done = true
			step.Response.Resp = in.RResp
		}

	case StateWriteAddress:
		if out.AWValid && in.AWReady {
			next.awDone = true
		}
		if out.WValid && in.WReady {
			next.wDone = true
		}
		if next.awDone && next.wDone {
			next.state = StateWriteResponse
			next.awDone = false
			next.wDone = false
		}

	case StateWriteResponse:
		if out.BReady && in.BValid {
			next.state = StateIdle
			step.Response.Done = true
			step.Response.Resp = in.BResp
		}
	}

	step.next = next
	step.Response.Stall = next.state != StateIdle

	return step
}

// Commit latches the state computed by Evaluate.
func (b *Bridge) Commit(step Step) {
	b.cur = step.next
}
