// Package bus models the core's data-side bus: a bridge that adapts a
// single-request memory interface to a five-channel valid/ready
// split-transaction bus with AXI4-Lite semantics, and a responder that
// services it from backing memory.
package bus

import "fmt"

// Resp is the 2-bit bus response code.
type Resp uint8

// Response codes.
const (
	RespOKAY   Resp = 0b00
	RespEXOKAY Resp = 0b01
	RespSLVERR Resp = 0b10
	RespDECERR Resp = 0b11
)

func (r Resp) String() string {
	switch r {
	case RespOKAY:
		return "OKAY"
	case RespEXOKAY:
		return "EXOKAY"
	case RespSLVERR:
		return "SLVERR"
	case RespDECERR:
		return "DECERR"
	default:
		return fmt.Sprintf("resp(%d)", uint8(r))
	}
}

// ProtData is the protection value driven on AWPROT and ARPROT:
// unprivileged, secure, data access.
const ProtData uint8 = 0b000

// Request is one cycle's data-side request from the core's MW stage.
// Read and Write are never both set.
type Request struct {
	Addr   uint32
	WData  uint32
	Strobe uint8
	Read   bool
	Write  bool
}

// Active reports whether the request asks for a memory access.
func (r Request) Active() bool {
	return r.Read || r.Write
}

// Response is what the data side returns to the core in the same cycle.
type Response struct {
	// ReadData is valid in the cycle a read completes.
	ReadData uint32

	// Stall holds the pipeline while a transaction is in flight.
	Stall bool

	// Done is set in the cycle the requested access completes.
	Done bool

	// Resp is the response code of a completed access.
	Resp Resp
}

// MasterSignals are the signals the bridge drives onto the bus.
type MasterSignals struct {
	AWValid bool
	AWAddr  uint32
	AWProt  uint8

	WValid bool
	WData  uint32
	WStrb  uint8

	BReady bool

	ARValid bool
	ARAddr  uint32
	ARProt  uint8

	RReady bool
}

// ResponderSignals are the signals a responder drives back to the bridge.
type ResponderSignals struct {
	AWReady bool
	WReady  bool

	BValid bool
	BResp  Resp

	ARReady bool

	RValid bool
	RData  uint32
	RResp  Resp
}
