package metrics

import (
	"errors"
	"time"

	"github.com/rdt-go/rdt-go/logging"

	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "rdt"

var (
	packetsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "packets_sent_total",
			Help:      "Data packets sent",
		},
		[]string{"kind"}, // initial or retransmission
	)
	acksReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "acks_received_total",
			Help:      "Acknowledgments received",
		},
		[]string{"kind"}, // new or duplicate
	)
	datagramsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "datagrams_dropped_total",
			Help:      "Malformed inbound datagrams dropped",
		},
	)
	lossTimerExpirations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "loss_timer_expirations_total",
			Help:      "Retransmission timeouts",
		},
	)
	congestionWindow = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "congestion_window_segments",
			Help:      "Current congestion window",
		},
	)
	smoothedRTT = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "smoothed_rtt_seconds",
			Help:      "Smoothed round-trip time",
		},
	)
)

// NewTracer creates a new tracer using the default Prometheus registerer.
// It can be set on the Tracer field of rdt.Config.
func NewTracer() *logging.Tracer {
	return NewTracerWithRegisterer(prometheus.DefaultRegisterer)
}

// NewTracerWithRegisterer creates a new tracer using a given Prometheus registerer.
func NewTracerWithRegisterer(registerer prometheus.Registerer) *logging.Tracer {
	for _, c := range [...]prometheus.Collector{
		packetsSent,
		acksReceived,
		datagramsDropped,
		lossTimerExpirations,
		congestionWindow,
		smoothedRTT,
	} {
		if err := registerer.Register(c); err != nil {
			if ok := errors.As(err, &prometheus.AlreadyRegisteredError{}); !ok {
				panic(err)
			}
		}
	}

	return &logging.Tracer{
		SentPacket: func(_ logging.SequenceID, _ logging.ByteCount, retransmission bool) {
			kind := "initial"
			if retransmission {
				kind = "retransmission"
			}
			packetsSent.WithLabelValues(kind).Inc()
		},
		ReceivedAck: func(_ logging.SequenceID, duplicate bool) {
			kind := "new"
			if duplicate {
				kind = "duplicate"
			}
			acksReceived.WithLabelValues(kind).Inc()
		},
		DroppedDatagram: func(_ logging.ByteCount) {
			datagramsDropped.Inc()
		},
		LossTimerExpired: func(_ logging.SequenceID) {
			lossTimerExpirations.Inc()
		},
		UpdatedCongestionState: func(_ logging.Phase, cwnd, _ float64) {
			congestionWindow.Set(cwnd)
		},
		UpdatedRTT: func(srtt, _ time.Duration) {
			smoothedRTT.Set(srtt.Seconds())
		},
	}
}
