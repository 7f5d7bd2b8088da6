package congestion

import (
	"github.com/rdt-go/rdt-go/internal/protocol"
)

const (
	// minCongestionWindow is the floor of the congestion window, in segments.
	minCongestionWindow = 1.0
	// minSlowStartThreshold is the floor of ssthresh after a loss event.
	minSlowStartThreshold = 2.0
	// duplicateAckThreshold is the number of duplicate acks that triggers
	// a fast retransmit.
	duplicateAckThreshold = 3
)

// renoSender is the baseline TCP-like controller: slow start,
// congestion avoidance, fast retransmit/recovery.
type renoSender struct {
	phase Phase

	// Congestion window and slow start threshold, in segments.
	// Kept as floats, truncated only when sizing the in-flight window.
	cwnd     float64
	ssthresh float64

	// Window growth per ack in congestion avoidance, in segments,
	// divided by the current window.
	caIncrement float64

	initialWindow float64
	maxWindow     float64

	dupAckCount int

	// Track the largest packet that has been sent.
	largestSent protocol.SequenceID
	// The largest sent sequence id when fast recovery was entered.
	// An ack at or above it ends the recovery.
	recoveryPoint protocol.SequenceID
}

var _ SendAlgorithm = &renoSender{}

// NewRenoSender makes a new Reno-like sender.
// initialWindow and maxWindow are in segments.
func NewRenoSender(initialWindow, maxWindow int, ssthresh, caIncrement float64) SendAlgorithm {
	return newRenoSender(initialWindow, maxWindow, ssthresh, caIncrement)
}

func newRenoSender(initialWindow, maxWindow int, ssthresh, caIncrement float64) *renoSender {
	return &renoSender{
		phase:         PhaseSlowStart,
		cwnd:          float64(initialWindow),
		initialWindow: float64(initialWindow),
		maxWindow:     float64(maxWindow),
		ssthresh:      ssthresh,
		caIncrement:   caIncrement,
		largestSent:   protocol.InvalidSequenceID,
		recoveryPoint: protocol.InvalidSequenceID,
	}
}

func (c *renoSender) OnPacketSent(seq protocol.SequenceID) {
	if seq > c.largestSent {
		c.largestSent = seq
	}
}

func (c *renoSender) OnNewAck(ackID protocol.SequenceID, ackedSegments int) {
	c.dupAckCount = 0
	if c.phase == PhaseFastRecovery {
		if ackID >= c.recoveryPoint {
			// deflate the window back to ssthresh
			c.cwnd = c.ssthresh
			c.phase = PhaseCongestionAvoidance
		}
		c.clampWindow()
		return
	}
	switch c.phase {
	case PhaseSlowStart:
		// exponential growth: one segment per acked segment
		c.cwnd += float64(ackedSegments)
		if c.cwnd >= c.ssthresh {
			c.phase = PhaseCongestionAvoidance
		}
	case PhaseCongestionAvoidance:
		c.cwnd += c.caIncrement / c.cwnd
	}
	c.clampWindow()
}

func (c *renoSender) OnDuplicateAck() bool {
	if c.phase == PhaseFastRecovery {
		// inflate the window for every further duplicate ack
		c.cwnd++
		c.clampWindow()
		return false
	}
	c.dupAckCount++
	if c.dupAckCount < duplicateAckThreshold {
		return false
	}
	c.dupAckCount = 0
	c.ssthresh = max(c.cwnd/2, minSlowStartThreshold)
	c.cwnd = c.ssthresh + duplicateAckThreshold
	c.recoveryPoint = c.largestSent
	c.phase = PhaseFastRecovery
	c.clampWindow()
	return true
}

func (c *renoSender) OnRetransmissionTimeout() {
	c.ssthresh = max(c.cwnd/2, minSlowStartThreshold)
	c.cwnd = c.initialWindow
	c.dupAckCount = 0
	c.phase = PhaseSlowStart
	c.clampWindow()
}

func (c *renoSender) clampWindow() {
	c.cwnd = min(max(c.cwnd, minCongestionWindow), c.maxWindow)
}

// WindowSize returns the whole number of segments allowed in flight.
func (c *renoSender) WindowSize() int { return int(c.cwnd) }

func (c *renoSender) Phase() Phase                { return c.phase }
func (c *renoSender) CongestionWindow() float64   { return c.cwnd }
func (c *renoSender) SlowStartThreshold() float64 { return c.ssthresh }
func (c *renoSender) InSlowStart() bool           { return c.phase == PhaseSlowStart }
func (c *renoSender) InRecovery() bool            { return c.phase == PhaseFastRecovery }
