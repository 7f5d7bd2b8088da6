package congestion

import "github.com/rdt-go/rdt-go/internal/protocol"

// Phase of the congestion control state machine.
type Phase uint8

const (
	PhaseSlowStart Phase = iota
	PhaseCongestionAvoidance
	PhaseFastRecovery
)

func (p Phase) String() string {
	switch p {
	case PhaseSlowStart:
		return "SlowStart"
	case PhaseCongestionAvoidance:
		return "CongestionAvoidance"
	case PhaseFastRecovery:
		return "FastRecovery"
	default:
		return "Unknown"
	}
}

// A SendAlgorithm sizes the congestion window from the stream of ack
// and loss events. Implementations are not safe for concurrent use, the
// session loop is their single owner.
type SendAlgorithm interface {
	// OnPacketSent is called for every transmission of a data packet.
	OnPacketSent(seq protocol.SequenceID)
	// OnNewAck is called for a cumulative ack that advances the base.
	// ackedSegments is the number of segments the ack newly covers.
	OnNewAck(ackID protocol.SequenceID, ackedSegments int)
	// OnDuplicateAck is called for an ack repeating the previous ack id.
	// It returns true when the duplicate threshold is reached and the
	// oldest outstanding packet should be fast-retransmitted.
	OnDuplicateAck() bool
	// OnRetransmissionTimeout is called when the RTO expires.
	OnRetransmissionTimeout()
	// WindowSize returns the number of segments allowed in flight.
	WindowSize() int

	Phase() Phase
	CongestionWindow() float64
	SlowStartThreshold() float64
	InSlowStart() bool
	InRecovery() bool
}
