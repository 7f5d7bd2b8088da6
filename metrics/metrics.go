// Package metrics provides transfer statistics for rdt-go sessions:
// a per-session accumulator producing the final summary line, and a
// Prometheus tracer for live instrumentation.
package metrics

import (
	"fmt"
	"time"

	"github.com/rdt-go/rdt-go/internal/protocol"
)

// score weights, from the evaluation harness
const (
	scoreThroughputDivisor = 2000.0
	scoreJitterWeight      = 15.0
	scoreDelayWeight       = 35.0
)

type sentInfo struct {
	sendTime time.Time
	size     protocol.ByteCount
}

// TransferMetrics accumulates send and ack events over a session.
// It is owned by the session loop and must not be used after Finalize.
type TransferMetrics struct {
	startTime time.Time
	endTime   time.Time

	sent       map[protocol.SequenceID]sentInfo
	delays     []time.Duration
	bytesAcked protocol.ByteCount
}

func NewTransferMetrics() *TransferMetrics {
	return &TransferMetrics{sent: make(map[protocol.SequenceID]sentInfo)}
}

// StartTransfer marks the beginning of the session.
func (m *TransferMetrics) StartTransfer(now time.Time) {
	m.startTime = now
}

// EndTransfer marks the end of the session.
func (m *TransferMetrics) EndTransfer(now time.Time) {
	m.endTime = now
}

// RecordSend records a transmission. A retransmission overwrites the
// previous send time, so the delay is measured from the transmission
// that was (presumably) acknowledged.
func (m *TransferMetrics) RecordSend(seq protocol.SequenceID, now time.Time, size protocol.ByteCount) {
	m.sent[seq] = sentInfo{sendTime: now, size: size}
}

// RecordAck records the acknowledgment of a single packet.
func (m *TransferMetrics) RecordAck(seq protocol.SequenceID, now time.Time) {
	info, ok := m.sent[seq]
	if !ok {
		return
	}
	delete(m.sent, seq)
	m.delays = append(m.delays, now.Sub(info.sendTime))
	m.bytesAcked += info.size
}

// A Report is the immutable final summary of a session.
type Report struct {
	// Throughput in payload bytes per second, counting acknowledged bytes only.
	Throughput float64
	// MeanDelay is the average send-to-ack delay.
	MeanDelay time.Duration
	// Jitter is the mean absolute deviation between consecutive delay samples.
	Jitter time.Duration
	// Score is the composite metric the evaluation harness ranks by.
	Score float64

	Duration   time.Duration
	BytesAcked protocol.ByteCount
}

// Finalize computes the report. The accumulator must not be used afterwards.
func (m *TransferMetrics) Finalize() *Report {
	r := &Report{
		Duration:   m.endTime.Sub(m.startTime),
		BytesAcked: m.bytesAcked,
		MeanDelay:  meanDelay(m.delays),
		Jitter:     jitter(m.delays),
	}
	if r.Duration > 0 {
		r.Throughput = float64(m.bytesAcked) / r.Duration.Seconds()
	}
	r.Score = score(r.Throughput, r.MeanDelay, r.Jitter)
	return r
}

func meanDelay(delays []time.Duration) time.Duration {
	if len(delays) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range delays {
		sum += d
	}
	return sum / time.Duration(len(delays))
}

func jitter(delays []time.Duration) time.Duration {
	if len(delays) < 2 {
		return 0
	}
	var sum time.Duration
	for i := 1; i < len(delays); i++ {
		sum += (delays[i] - delays[i-1]).Abs()
	}
	return sum / time.Duration(len(delays)-1)
}

func score(throughput float64, meanDelay, jitter time.Duration) float64 {
	s := throughput / scoreThroughputDivisor
	if jitter > 0 {
		s += scoreJitterWeight / jitter.Seconds()
	}
	if meanDelay > 0 {
		s += scoreDelayWeight / meanDelay.Seconds()
	}
	return s
}

// CSV renders the line the evaluation harness consumes:
// throughput,delay,jitter,score. Delay and jitter are in seconds.
func (r *Report) CSV() string {
	return fmt.Sprintf("%.7f,%.7f,%.7f,%.7f", r.Throughput, r.MeanDelay.Seconds(), r.Jitter.Seconds(), r.Score)
}
