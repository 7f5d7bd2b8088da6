package congestion

import (
	"time"

	"github.com/rdt-go/rdt-go/internal/protocol"
	"github.com/rdt-go/rdt-go/internal/utils"
)

// AdaptiveConfig holds the delay-gradient tuning knobs. The defaults
// are empirically chosen, not known to be optimal.
type AdaptiveConfig struct {
	// GradientExitThreshold: leave slow start when srtt/baseRTT exceeds it.
	GradientExitThreshold float64
	// GradientBackoffThreshold: shrink the window in congestion
	// avoidance when srtt/baseRTT exceeds it.
	GradientBackoffThreshold float64
	// BackoffFactor is the multiplicative window decrease applied on a
	// gradient backoff.
	BackoffFactor float64
}

// Default delay-gradient parameters.
const (
	DefaultGradientExitThreshold    = 1.2
	DefaultGradientBackoffThreshold = 1.15
	DefaultBackoffFactor            = 0.95
)

func (c AdaptiveConfig) populated() AdaptiveConfig {
	if c.GradientExitThreshold == 0 {
		c.GradientExitThreshold = DefaultGradientExitThreshold
	}
	if c.GradientBackoffThreshold == 0 {
		c.GradientBackoffThreshold = DefaultGradientBackoffThreshold
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = DefaultBackoffFactor
	}
	return c
}

// adaptiveSender extends the Reno state machine with delay-gradient
// signals: the ratio of the smoothed RTT to the lowest smoothed RTT
// observed so far. A rising ratio means a queue is building, so it
// leaves slow start before loss occurs and backs the window off
// preemptively in congestion avoidance.
type adaptiveSender struct {
	renoSender

	rttStats *utils.RTTStats
	// baseRTT is the minimum smoothed RTT observed in this session.
	baseRTT time.Duration
	config  AdaptiveConfig
}

var _ SendAlgorithm = &adaptiveSender{}

// NewAdaptiveSender makes a new delay-adaptive sender reading its delay
// signal from rttStats.
func NewAdaptiveSender(rttStats *utils.RTTStats, initialWindow, maxWindow int, ssthresh, caIncrement float64, config AdaptiveConfig) SendAlgorithm {
	return &adaptiveSender{
		renoSender: *newRenoSender(initialWindow, maxWindow, ssthresh, caIncrement),
		rttStats:   rttStats,
		config:     config.populated(),
	}
}

func (c *adaptiveSender) OnNewAck(ackID protocol.SequenceID, ackedSegments int) {
	gradient := c.updateGradient()
	c.renoSender.OnNewAck(ackID, ackedSegments)

	if c.phase == PhaseSlowStart && gradient > c.config.GradientExitThreshold {
		// the queue is building, leave slow start before loss forces us out
		c.ssthresh = max(c.cwnd, c.ssthresh)
		c.phase = PhaseCongestionAvoidance
	}
	if c.phase == PhaseCongestionAvoidance && gradient > c.config.GradientBackoffThreshold {
		c.cwnd *= c.config.BackoffFactor
		c.clampWindow()
	}
}

// updateGradient refreshes baseRTT and returns srtt/baseRTT,
// or 0 before the first RTT sample.
func (c *adaptiveSender) updateGradient() float64 {
	srtt := c.rttStats.SmoothedRTT()
	if srtt <= 0 {
		return 0
	}
	if c.baseRTT == 0 || srtt < c.baseRTT {
		c.baseRTT = srtt
	}
	return float64(srtt) / float64(c.baseRTT)
}

// BaseRTT returns the minimum smoothed RTT observed so far.
func (c *adaptiveSender) BaseRTT() time.Duration { return c.baseRTT }
