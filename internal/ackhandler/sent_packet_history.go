package ackhandler

import (
	"fmt"

	"github.com/rdt-go/rdt-go/internal/protocol"
)

// sentPacketHistory is the set of outstanding packets, ordered by
// sequence id. Sequence ids are byte offsets, so a cumulative ack
// always covers a prefix of the history.
type sentPacketHistory struct {
	packets []*Packet

	highestSent protocol.SequenceID
}

func newSentPacketHistory() *sentPacketHistory {
	return &sentPacketHistory{
		packets:     make([]*Packet, 0, 32),
		highestSent: protocol.InvalidSequenceID,
	}
}

func (h *sentPacketHistory) SentPacket(p *Packet) {
	if p.SequenceID <= h.highestSent {
		panic(fmt.Sprintf("non-monotonic sequence id use: %d after %d", p.SequenceID, h.highestSent))
	}
	h.highestSent = p.SequenceID
	h.packets = append(h.packets, p)
}

// FirstOutstanding returns the oldest outstanding packet, or nil.
func (h *sentPacketHistory) FirstOutstanding() *Packet {
	if len(h.packets) == 0 {
		return nil
	}
	return h.packets[0]
}

// DetectAndRemoveAcked removes and returns all packets covered by the
// cumulative ack id, in sequence order.
func (h *sentPacketHistory) DetectAndRemoveAcked(ackID protocol.SequenceID) []*Packet {
	var n int
	for n < len(h.packets) && h.packets[n].End() <= ackID {
		n++
	}
	if n == 0 {
		return nil
	}
	acked := make([]*Packet, n)
	copy(acked, h.packets[:n])
	h.packets = h.packets[:copy(h.packets, h.packets[n:])]
	return acked
}

func (h *sentPacketHistory) Len() int {
	return len(h.packets)
}

func (h *sentPacketHistory) HasOutstanding() bool {
	return len(h.packets) > 0
}
