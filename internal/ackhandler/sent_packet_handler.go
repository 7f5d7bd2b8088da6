package ackhandler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rdt-go/rdt-go/internal/congestion"
	"github.com/rdt-go/rdt-go/internal/protocol"
	"github.com/rdt-go/rdt-go/internal/utils"
	"github.com/rdt-go/rdt-go/internal/wire"
)

// A RetryExhaustedError is returned when the same packet timed out more
// often than the configured budget allows.
type RetryExhaustedError struct {
	SequenceID      protocol.SequenceID
	Retransmissions int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("packet %d timed out after %d retransmissions", e.SequenceID, e.Retransmissions)
}

// An AckResult describes what an incoming ack meant for the window.
type AckResult struct {
	// AckedPackets are the packets the ack removed from the window.
	AckedPackets []*Packet
	// Duplicate is set when the ack repeats the previous ack id.
	Duplicate bool
	// FastRetransmit is set when the duplicate threshold was reached
	// and the oldest outstanding packet must be resent immediately.
	FastRetransmit bool
}

// The SentPacketHandler owns the window of outstanding packets. It
// classifies incoming acks, feeds RTT samples (applying Karn's rule)
// and congestion events, and enforces the retransmission retry budget.
// It is driven exclusively by the session loop, so it needs no locking.
type SentPacketHandler struct {
	history    *sentPacketHistory
	rttStats   *utils.RTTStats
	congestion congestion.SendAlgorithm

	// largestAcked is the highest cumulative ack id seen so far.
	largestAcked protocol.SequenceID
	// lastAckID is the previous ack id, used for duplicate detection.
	lastAckID protocol.SequenceID

	maxRetransmissions int

	logger *slog.Logger
}

func NewSentPacketHandler(
	rttStats *utils.RTTStats,
	cc congestion.SendAlgorithm,
	maxRetransmissions int,
	logger *slog.Logger,
) *SentPacketHandler {
	return &SentPacketHandler{
		history:            newSentPacketHistory(),
		rttStats:           rttStats,
		congestion:         cc,
		largestAcked:       protocol.InvalidSequenceID,
		lastAckID:          protocol.InvalidSequenceID,
		maxRetransmissions: maxRetransmissions,
		logger:             logger,
	}
}

// SentPacket registers a first transmission.
func (h *SentPacketHandler) SentPacket(seq protocol.SequenceID, payload []byte, now time.Time) *Packet {
	p := &Packet{
		SequenceID: seq,
		Payload:    payload,
		SendTime:   now,
	}
	h.history.SentPacket(p)
	h.congestion.OnPacketSent(seq)
	return p
}

// CanSend says if the congestion window permits another packet in flight.
func (h *SentPacketHandler) CanSend() bool {
	return h.history.Len() < h.congestion.WindowSize()
}

// ReceivedAck processes an incoming acknowledgment. Exactly one of the
// following holds for the result: the ack is a duplicate, it advances
// the base (window growth), or it is a stale cumulative ack that may
// still clear delayed packets without growing the window.
func (h *SentPacketHandler) ReceivedAck(ack *wire.Ack, rcvTime time.Time) AckResult {
	if ack.AckID == h.lastAckID {
		fastRetransmit := h.congestion.OnDuplicateAck()
		if fastRetransmit {
			h.logger.Debug("fast retransmit triggered", "ack", int64(ack.AckID))
		}
		return AckResult{Duplicate: true, FastRetransmit: fastRetransmit}
	}
	h.lastAckID = ack.AckID

	acked := h.history.DetectAndRemoveAcked(ack.AckID)
	for _, p := range acked {
		// Karn's rule: retransmitted packets never produce a sample
		if !p.IsRetransmission() {
			h.rttStats.UpdateRTT(rcvTime.Sub(p.SendTime))
		}
	}

	if ack.AckID > h.largestAcked {
		h.largestAcked = ack.AckID
		h.congestion.OnNewAck(ack.AckID, len(acked))
	} else if len(acked) > 0 {
		h.logger.Debug("stale cumulative ack cleared packets", "ack", int64(ack.AckID), "packets", len(acked))
	}
	return AckResult{AckedPackets: acked}
}

// OnRetransmissionTimeout declares an RTO for the oldest outstanding
// packet. It applies the congestion timeout transition and returns the
// packet to resend, or a RetryExhaustedError once the budget is spent.
func (h *SentPacketHandler) OnRetransmissionTimeout(now time.Time) (*Packet, error) {
	p := h.history.FirstOutstanding()
	if p == nil {
		return nil, nil
	}
	if p.Retransmissions >= h.maxRetransmissions {
		return nil, &RetryExhaustedError{SequenceID: p.SequenceID, Retransmissions: p.Retransmissions}
	}
	h.congestion.OnRetransmissionTimeout()
	return h.retransmit(p, now), nil
}

// RetransmitFirstOutstanding marks the oldest outstanding packet as
// retransmitted and returns it. Used for fast retransmits, where the
// congestion controller already adjusted on the duplicate ack.
func (h *SentPacketHandler) RetransmitFirstOutstanding(now time.Time) *Packet {
	p := h.history.FirstOutstanding()
	if p == nil {
		return nil
	}
	return h.retransmit(p, now)
}

func (h *SentPacketHandler) retransmit(p *Packet, now time.Time) *Packet {
	p.Retransmissions++
	p.SendTime = now
	return p
}

func (h *SentPacketHandler) HasOutstanding() bool { return h.history.HasOutstanding() }

func (h *SentPacketHandler) OutstandingCount() int { return h.history.Len() }

func (h *SentPacketHandler) LargestAcked() protocol.SequenceID { return h.largestAcked }
