package utils

import (
	"time"

	"github.com/rdt-go/rdt-go/internal/protocol"
)

const (
	rttAlpha      = 0.125
	oneMinusAlpha = 1 - rttAlpha
	rttBeta       = 0.25
	oneMinusBeta  = 1 - rttBeta

	clockGranularity = time.Millisecond
)

// RTTStats provides round-trip statistics, computed per RFC 6298.
// Callers are responsible for Karn's rule: samples measured on
// retransmitted packets must never be passed to UpdateRTT.
type RTTStats struct {
	hasMeasurement bool

	minRTT        time.Duration
	latestRTT     time.Duration
	smoothedRTT   time.Duration
	meanDeviation time.Duration

	initialRTO time.Duration
	minRTO     time.Duration
	maxRTO     time.Duration
}

// NewRTTStats creates an RTTStats with the default timeout bounds.
func NewRTTStats() *RTTStats {
	return &RTTStats{
		initialRTO: protocol.DefaultInitialRTO,
		minRTO:     protocol.DefaultMinRTO,
		maxRTO:     protocol.DefaultMaxRTO,
	}
}

// MinRTT returns the minimum RTT measured so far in this session.
func (r *RTTStats) MinRTT() time.Duration { return r.minRTT }

// LatestRTT returns the most recent RTT measurement.
func (r *RTTStats) LatestRTT() time.Duration { return r.latestRTT }

// SmoothedRTT returns the exponentially weighted moving average of the
// RTT samples, or 0 if no samples were taken yet.
func (r *RTTStats) SmoothedRTT() time.Duration { return r.smoothedRTT }

// MeanDeviation returns the mean deviation of the RTT samples.
func (r *RTTStats) MeanDeviation() time.Duration { return r.meanDeviation }

// HasMeasurement says if a sample was processed yet.
func (r *RTTStats) HasMeasurement() bool { return r.hasMeasurement }

// SetInitialRTO sets the timeout used before the first sample.
func (r *RTTStats) SetInitialRTO(t time.Duration) { r.initialRTO = t }

// SetRTOBounds sets the floor and cap applied to the computed timeout.
func (r *RTTStats) SetRTOBounds(minRTO, maxRTO time.Duration) {
	if minRTO != 0 {
		r.minRTO = minRTO
	}
	if maxRTO != 0 {
		r.maxRTO = maxRTO
	}
}

// UpdateRTT updates the statistics with a new sample.
// The first sample initializes the estimator, every further sample is
// smoothed in with α=1/8 and β=1/4.
func (r *RTTStats) UpdateRTT(sample time.Duration) {
	if sample <= 0 {
		return
	}
	r.latestRTT = sample
	if !r.hasMeasurement {
		r.hasMeasurement = true
		r.minRTT = sample
		r.smoothedRTT = sample
		r.meanDeviation = sample / 2
		return
	}
	if sample < r.minRTT {
		r.minRTT = sample
	}
	r.meanDeviation = time.Duration(oneMinusBeta*float64(r.meanDeviation) + rttBeta*float64((r.smoothedRTT-sample).Abs()))
	r.smoothedRTT = time.Duration(oneMinusAlpha*float64(r.smoothedRTT) + rttAlpha*float64(sample))
}

// RTO returns the retransmission timeout: SRTT + max(G, 4·RTTVAR),
// clamped to the configured bounds. It is recomputed from the current
// estimate on every call, never reset to a fixed value.
func (r *RTTStats) RTO() time.Duration {
	rto := r.initialRTO
	if r.hasMeasurement {
		rto = r.smoothedRTT + max(clockGranularity, 4*r.meanDeviation)
	}
	return min(max(rto, r.minRTO), r.maxRTO)
}
