package bus

// Responder is the slave side of the bus.
type Responder interface {
	// Outputs returns this cycle's responder signals, derived from
	// registered state only.
	Outputs() ResponderSignals

	// Next advances the responder one cycle given the master's signals.
	Next(m MasterSignals)
}

// Port connects a Bridge to a Responder and presents them to the core as a
// single data port. Access is evaluated from the current state; Commit
// advances both sides at the clock edge.
type Port struct {
	bridge    *Bridge
	responder Responder

	step    Step
	pending bool

	transactions uint64
	errors       uint64
}

// NewPort creates a port around a bridge and a responder.
func NewPort(bridge *Bridge, responder Responder) *Port {
	return &Port{bridge: bridge, responder: responder}
}

// Bridge returns the port's bridge.
func (p *Port) Bridge() *Bridge {
	return p.bridge
}

// Access evaluates the bridge for this cycle's request without changing any
// state.
func (p *Port) Access(req Request) Response {
	p.step = p.bridge.Evaluate(req, p.responder.Outputs())
	p.pending = true
	return p.step.Response
}

// Commit advances the responder and the bridge using the step computed by
// the most recent Access. Commit without a preceding Access is a no-op.
func (p *Port) Commit() {
	if !p.pending {
		return
	}

	p.responder.Next(p.step.Out)
	p.bridge.Commit(p.step)
	p.pending = false

	if p.step.Response.Done {
		p.transactions++
		if p.step.Response.Resp != RespOKAY {
			p.errors++
		}
	}
}

// Transactions returns the number of completed transactions.
func (p *Port) Transactions() uint64 {
	return p.transactions
}

// ErrorResponses returns the number of transactions completed with a
// response other than OKAY.
func (p *Port) ErrorResponses() uint64 {
	return p.errors
}
