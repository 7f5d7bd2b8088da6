package rdt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rdt-go/rdt-go/internal/ackhandler"
	"github.com/rdt-go/rdt-go/internal/congestion"
	"github.com/rdt-go/rdt-go/internal/protocol"
	rdtslog "github.com/rdt-go/rdt-go/internal/slog"
	"github.com/rdt-go/rdt-go/internal/utils"
	"github.com/rdt-go/rdt-go/internal/wire"
	"github.com/rdt-go/rdt-go/logging"
	"github.com/rdt-go/rdt-go/metrics"
)

type receivedAck struct {
	ack     *wire.Ack
	rcvTime time.Time
}

// A Session transfers a single payload to a receiver over an unreliable
// datagram connection. It owns the congestion controller, the
// retransmission state and the transfer metrics. A Session is used for
// exactly one transfer.
type Session struct {
	config *Config
	conn   sendConn

	rttStats   *utils.RTTStats
	congestion congestion.SendAlgorithm
	handler    *ackhandler.SentPacketHandler
	metrics    *metrics.TransferMetrics
	tracer     *logging.Tracer
	logger     *slog.Logger

	timer   *utils.Timer
	acks    chan receivedAck
	readErr chan error

	closeOnce sync.Once
	sendBuf   []byte
}

// NewSession creates a session on top of conn, which must be a
// connected datagram endpoint, e.g. a UDP connection obtained from
// net.Dial. The session takes ownership of the connection and closes
// it when Send returns.
func NewSession(conn net.Conn, config *Config) (*Session, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	config = populateConfig(config)

	rttStats := utils.NewRTTStats()
	rttStats.SetInitialRTO(config.InitialRTO)
	rttStats.SetRTOBounds(config.MinRTO, config.MaxRTO)

	s := &Session{
		config:   config,
		conn:     newSendConn(conn),
		rttStats: rttStats,
		metrics:  metrics.NewTransferMetrics(),
		tracer:   config.Tracer,
		logger:   rdtslog.New("session"),
		timer:    utils.NewTimer(),
		acks:     make(chan receivedAck, protocol.AckChannelSize),
		readErr:  make(chan error, 1),
		sendBuf:  make([]byte, 0, protocol.PacketSize),
	}
	s.congestion = s.newController()
	s.handler = ackhandler.NewSentPacketHandler(rttStats, s.congestion, config.MaxRetransmissions, rdtslog.New("ackhandler"))
	return s, nil
}

func (s *Session) newController() congestion.SendAlgorithm {
	if s.config.Algorithm == DelayAdaptive {
		return congestion.NewAdaptiveSender(
			s.rttStats,
			s.config.InitialCongestionWindow,
			s.config.MaxCongestionWindow,
			s.config.SlowStartThreshold,
			s.config.CongestionAvoidanceIncrement,
			congestion.AdaptiveConfig{
				GradientExitThreshold:    s.config.GradientExitThreshold,
				GradientBackoffThreshold: s.config.GradientBackoffThreshold,
				BackoffFactor:            s.config.DelayBackoffFactor,
			},
		)
	}
	return congestion.NewRenoSender(
		s.config.InitialCongestionWindow,
		s.config.MaxCongestionWindow,
		s.config.SlowStartThreshold,
		s.config.CongestionAvoidanceIncrement,
	)
}

// Send transfers payload and performs the closing handshake. It blocks
// until the receiver confirmed the full payload, the transfer failed,
// or ctx is cancelled. On success it returns the finalized transfer
// report. The underlying connection is closed before Send returns.
func (s *Session) Send(ctx context.Context, payload []byte) (*metrics.Report, error) {
	g := new(errgroup.Group)
	g.Go(s.readLoop)
	defer func() {
		s.close()
		_ = g.Wait()
	}()

	if t := s.tracer; t != nil && t.StartedSession != nil {
		t.StartedSession(s.conn.LocalAddr(), s.conn.RemoteAddr())
	}
	s.logger.Debug("starting transfer",
		"remote", s.conn.RemoteAddr().String(),
		"size", len(payload),
		"algorithm", s.config.Algorithm.String(),
	)
	s.metrics.StartTransfer(time.Now())

	finished, err := s.sendPayload(ctx, payload)
	if err == nil && !finished {
		err = s.finHandshake(ctx, len(payload))
	}
	if err != nil {
		if t := s.tracer; t != nil && t.ClosedSession != nil {
			t.ClosedSession(err)
		}
		s.logger.Error("transfer failed", "error", err)
		return nil, err
	}

	s.metrics.EndTransfer(time.Now())
	report := s.metrics.Finalize()
	if t := s.tracer; t != nil && t.ClosedSession != nil {
		t.ClosedSession(nil)
	}
	s.logger.Info("transfer complete",
		"duration", report.Duration,
		"bytes", int64(report.BytesAcked),
		"throughput", report.Throughput,
	)
	return report, nil
}

// sendPayload runs the data phase: fill the congestion window, then
// block for the next ack or timeout, until everything is acknowledged.
// It reports whether the receiver already signaled the end of the
// transfer, which makes the closing handshake unnecessary.
func (s *Session) sendPayload(ctx context.Context, payload []byte) (bool, error) {
	var offset int
	for offset < len(payload) || s.handler.HasOutstanding() {
		for offset < len(payload) && s.handler.CanSend() {
			end := min(offset+s.config.SegmentSize, len(payload))
			p := s.handler.SentPacket(protocol.SequenceID(offset), payload[offset:end], time.Now())
			if err := s.writePacket(p.SequenceID, p.Payload, false); err != nil {
				return false, err
			}
			offset = end
		}
		finished, err := s.waitForAck(ctx)
		if finished || err != nil {
			return finished, err
		}
	}
	return false, nil
}

// waitForAck blocks until the next ack, the retransmission timeout or
// cancellation, and handles the event. It reports whether the receiver
// signaled the end of the transfer.
func (s *Session) waitForAck(ctx context.Context) (bool, error) {
	s.timer.Reset(time.Now().Add(s.rttStats.RTO()))
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-s.readErr:
		return false, err
	case ra := <-s.acks:
		return s.handleAck(ra)
	case <-s.timer.Chan():
		s.timer.SetRead()
		return false, s.onTimeout()
	}
}

func (s *Session) handleAck(ra receivedAck) (bool, error) {
	if ra.ack.IsFin() {
		s.sendFinAck(ra.ack)
		return true, nil
	}
	res := s.handler.ReceivedAck(ra.ack, ra.rcvTime)
	if t := s.tracer; t != nil && t.ReceivedAck != nil {
		t.ReceivedAck(ra.ack.AckID, res.Duplicate)
	}
	for _, p := range res.AckedPackets {
		s.metrics.RecordAck(p.SequenceID, ra.rcvTime)
	}
	if !res.Duplicate {
		s.traceStateUpdate()
	}
	if res.FastRetransmit {
		p := s.handler.RetransmitFirstOutstanding(time.Now())
		if p != nil {
			s.logger.Debug("fast retransmit", "seq", int64(p.SequenceID))
			if err := s.writePacket(p.SequenceID, p.Payload, true); err != nil {
				return false, err
			}
			s.traceStateUpdate()
		}
	}
	return false, nil
}

func (s *Session) onTimeout() error {
	p, err := s.handler.OnRetransmissionTimeout(time.Now())
	if err != nil {
		var exhausted *ackhandler.RetryExhaustedError
		if errors.As(err, &exhausted) {
			return &StallError{
				SequenceID:      exhausted.SequenceID,
				Retransmissions: exhausted.Retransmissions,
			}
		}
		return err
	}
	if p == nil {
		return nil
	}
	if t := s.tracer; t != nil && t.LossTimerExpired != nil {
		t.LossTimerExpired(p.SequenceID)
	}
	s.logger.Debug("retransmission timeout",
		"seq", int64(p.SequenceID),
		"retransmissions", p.Retransmissions,
		"rto", s.rttStats.RTO(),
	)
	if err := s.writePacket(p.SequenceID, p.Payload, true); err != nil {
		return err
	}
	s.traceStateUpdate()
	return nil
}

// finHandshake sends the end-of-transfer marker (an empty payload at
// the sequence id one past the last byte) and waits for the receiver's
// FIN, retrying up to MaxFinAttempts times.
func (s *Session) finHandshake(ctx context.Context, totalBytes int) error {
	eofSeq := protocol.SequenceID(totalBytes)
	for attempt := 0; attempt < s.config.MaxFinAttempts; attempt++ {
		if err := s.writePacket(eofSeq, nil, attempt > 0); err != nil {
			return err
		}
		deadline := time.Now().Add(s.config.FinTimeout)
	waiting:
		for {
			s.timer.Reset(deadline)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err := <-s.readErr:
				return err
			case ra := <-s.acks:
				if ra.ack.IsFin() {
					s.sendFinAck(ra.ack)
					return nil
				}
				// a late ack from the data phase, keep waiting
			case <-s.timer.Chan():
				s.timer.SetRead()
				break waiting
			}
		}
	}
	return &HandshakeError{Attempts: s.config.MaxFinAttempts}
}

// sendFinAck answers the receiver's FIN, completing the handshake.
func (s *Session) sendFinAck(ack *wire.Ack) {
	p := &wire.Packet{SequenceID: ack.AckID, Payload: []byte("FIN/ACK")}
	buf, err := p.Append(s.sendBuf[:0])
	if err != nil {
		return
	}
	if err := s.conn.Write(buf); err != nil {
		s.logger.Debug("failed to send FIN/ACK", "error", err)
		return
	}
	s.logger.Debug("sent FIN/ACK", "ack", int64(ack.AckID))
}

func (s *Session) writePacket(seq protocol.SequenceID, payload []byte, retransmission bool) error {
	p := &wire.Packet{SequenceID: seq, Payload: payload}
	buf, err := p.Append(s.sendBuf[:0])
	if err != nil {
		return err
	}
	if err := s.conn.Write(buf); err != nil {
		return fmt.Errorf("sending packet %d: %w", seq, err)
	}
	s.metrics.RecordSend(seq, time.Now(), protocol.ByteCount(len(payload)))
	if t := s.tracer; t != nil && t.SentPacket != nil {
		t.SentPacket(seq, p.Length(), retransmission)
	}
	return nil
}

func (s *Session) traceStateUpdate() {
	t := s.tracer
	if t == nil {
		return
	}
	if t.UpdatedCongestionState != nil {
		t.UpdatedCongestionState(s.congestion.Phase(), s.congestion.CongestionWindow(), s.congestion.SlowStartThreshold())
	}
	if t.UpdatedRTT != nil && s.rttStats.HasMeasurement() {
		t.UpdatedRTT(s.rttStats.SmoothedRTT(), s.rttStats.RTO())
	}
}

// readLoop reads datagrams off the connection, parses them into acks
// and hands them to the session loop. It exits when the connection is
// closed. Malformed datagrams are dropped. If the ack channel is full,
// acks are dropped too; the cumulative ack scheme makes that safe.
func (s *Session) readLoop() error {
	buf := make([]byte, protocol.PacketSize)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.readErr <- err
			}
			return nil
		}
		rcvTime := time.Now()
		if !wire.Validate(buf[:n]) {
			if t := s.tracer; t != nil && t.DroppedDatagram != nil {
				t.DroppedDatagram(protocol.ByteCount(n))
			}
			s.logger.Debug("dropping malformed datagram", "size", n)
			continue
		}
		ack, err := wire.ParseAck(buf[:n])
		if err != nil {
			if t := s.tracer; t != nil && t.DroppedDatagram != nil {
				t.DroppedDatagram(protocol.ByteCount(n))
			}
			s.logger.Debug("dropping unparseable datagram", "size", n, "error", err)
			continue
		}
		select {
		case s.acks <- receivedAck{ack: ack, rcvTime: rcvTime}:
		default:
			s.logger.Debug("ack channel full, dropping ack", "ack", int64(ack.AckID))
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { s.conn.Close() })
}
