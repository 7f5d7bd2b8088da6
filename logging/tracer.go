package logging

import (
	"net"
	"time"
)

// A Tracer records events happening during a transfer session.
// Any callback may be nil.
type Tracer struct {
	StartedSession  func(local, remote net.Addr)
	ClosedSession   func(err error)
	SentPacket      func(seq SequenceID, size ByteCount, retransmission bool)
	ReceivedAck     func(ackID SequenceID, duplicate bool)
	DroppedDatagram func(size ByteCount)
	UpdatedCongestionState func(phase Phase, cwnd, ssthresh float64)
	UpdatedRTT             func(srtt, rto time.Duration)
	LossTimerExpired       func(seq SequenceID)
}

// NewMultiplexedTracer creates a new tracer that multiplexes events to
// all given tracers. Nil tracers are skipped.
func NewMultiplexedTracer(tracers ...*Tracer) *Tracer {
	var ts []*Tracer
	for _, t := range tracers {
		if t != nil {
			ts = append(ts, t)
		}
	}
	if len(ts) == 0 {
		return nil
	}
	if len(ts) == 1 {
		return ts[0]
	}
	return &Tracer{
		StartedSession: func(local, remote net.Addr) {
			for _, t := range ts {
				if t.StartedSession != nil {
					t.StartedSession(local, remote)
				}
			}
		},
		ClosedSession: func(err error) {
			for _, t := range ts {
				if t.ClosedSession != nil {
					t.ClosedSession(err)
				}
			}
		},
		SentPacket: func(seq SequenceID, size ByteCount, retransmission bool) {
			for _, t := range ts {
				if t.SentPacket != nil {
					t.SentPacket(seq, size, retransmission)
				}
			}
		},
		ReceivedAck: func(ackID SequenceID, duplicate bool) {
			for _, t := range ts {
				if t.ReceivedAck != nil {
					t.ReceivedAck(ackID, duplicate)
				}
			}
		},
		DroppedDatagram: func(size ByteCount) {
			for _, t := range ts {
				if t.DroppedDatagram != nil {
					t.DroppedDatagram(size)
				}
			}
		},
		UpdatedCongestionState: func(phase Phase, cwnd, ssthresh float64) {
			for _, t := range ts {
				if t.UpdatedCongestionState != nil {
					t.UpdatedCongestionState(phase, cwnd, ssthresh)
				}
			}
		},
		UpdatedRTT: func(srtt, rto time.Duration) {
			for _, t := range ts {
				if t.UpdatedRTT != nil {
					t.UpdatedRTT(srtt, rto)
				}
			}
		},
		LossTimerExpired: func(seq SequenceID) {
			for _, t := range ts {
				if t.LossTimerExpired != nil {
					t.LossTimerExpired(seq)
				}
			}
		},
	}
}
