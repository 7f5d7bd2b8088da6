package ackhandler

import (
	"time"

	"github.com/rdt-go/rdt-go/internal/protocol"
)

// A Packet is a sent, not yet acknowledged data packet.
// It is immutable once sent: retransmissions reuse the same sequence id
// and payload, only the send time and the counter change.
type Packet struct {
	SequenceID protocol.SequenceID
	Payload    []byte

	SendTime        time.Time
	Retransmissions int
}

// IsRetransmission says if the packet was sent more than once.
// Such packets are excluded from RTT sampling (Karn's rule).
func (p *Packet) IsRetransmission() bool {
	return p.Retransmissions > 0
}

// End returns the lowest cumulative ack id covering this packet.
func (p *Packet) End() protocol.SequenceID {
	return p.SequenceID + protocol.SequenceID(len(p.Payload))
}
