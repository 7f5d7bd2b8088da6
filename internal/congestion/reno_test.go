package congestion

import (
	"testing"

	"github.com/rdt-go/rdt-go/internal/protocol"

	"github.com/stretchr/testify/require"
)

const (
	testMaxWindow = 1 << 10
	testSsthresh  = 32.0
)

// newTestRenoSender starts a Reno sender with one segment in flight per
// sent sequence id 0, 1000, 2000, ...
func newTestRenoSender(initialWindow int) *renoSender {
	return newRenoSender(initialWindow, testMaxWindow, testSsthresh, 1.0)
}

func TestRenoStartsInSlowStart(t *testing.T) {
	c := newTestRenoSender(1)
	require.Equal(t, PhaseSlowStart, c.Phase())
	require.True(t, c.InSlowStart())
	require.Equal(t, 1.0, c.CongestionWindow())
	require.Equal(t, 1, c.WindowSize())
}

func TestRenoSlowStartGrowsExponentially(t *testing.T) {
	c := newTestRenoSender(1)
	var ackID protocol.SequenceID
	for i := 0; i < 10 && c.InSlowStart(); i++ {
		cwnd := c.CongestionWindow()
		ackID += 1000
		c.OnPacketSent(protocol.SequenceID(i * 1000))
		c.OnNewAck(ackID, 1)
		require.Greater(t, c.CongestionWindow(), cwnd)
		require.Equal(t, cwnd+1, c.CongestionWindow())
	}
}

func TestRenoSlowStartCountsAckedSegments(t *testing.T) {
	c := newTestRenoSender(4)
	c.OnNewAck(4000, 4)
	require.Equal(t, 8.0, c.CongestionWindow())
}

func TestRenoEntersCongestionAvoidanceAtThreshold(t *testing.T) {
	c := newTestRenoSender(1)
	var acks int
	for c.InSlowStart() {
		c.OnNewAck(0, 1)
		acks++
	}
	require.Equal(t, PhaseCongestionAvoidance, c.Phase())
	require.GreaterOrEqual(t, c.CongestionWindow(), testSsthresh)
	require.Equal(t, int(testSsthresh)-1, acks)
}

func TestRenoCongestionAvoidanceGrowsLinearly(t *testing.T) {
	c := newRenoSender(40, testMaxWindow, testSsthresh, 1.0)
	c.OnNewAck(1000, 1) // 40 >= ssthresh, moves to congestion avoidance
	require.Equal(t, PhaseCongestionAvoidance, c.Phase())
	cwnd := c.CongestionWindow()
	c.OnNewAck(2000, 1)
	require.Equal(t, cwnd+1/cwnd, c.CongestionWindow())
}

func TestRenoTripleDuplicateAckTriggersFastRecoveryOnce(t *testing.T) {
	c := newRenoSender(20, testMaxWindow, testSsthresh, 1.0)
	c.OnPacketSent(19000)

	require.False(t, c.OnDuplicateAck())
	require.False(t, c.OnDuplicateAck())
	require.Equal(t, 20.0, c.CongestionWindow())
	require.True(t, c.OnDuplicateAck())
	require.Equal(t, PhaseFastRecovery, c.Phase())
	require.True(t, c.InRecovery())
	require.Equal(t, 10.0, c.SlowStartThreshold())
	require.Equal(t, 13.0, c.CongestionWindow()) // ssthresh + 3

	// further duplicates only inflate the window, no second cutback
	for i := 0; i < 5; i++ {
		require.False(t, c.OnDuplicateAck())
	}
	require.Equal(t, 10.0, c.SlowStartThreshold())
	require.Equal(t, 18.0, c.CongestionWindow())
}

func TestRenoNewAckEndsFastRecovery(t *testing.T) {
	c := newRenoSender(20, testMaxWindow, testSsthresh, 1.0)
	c.OnPacketSent(19000)
	c.OnDuplicateAck()
	c.OnDuplicateAck()
	require.True(t, c.OnDuplicateAck())

	// an ack at the recovery point deflates the window to ssthresh
	c.OnNewAck(19000, 5)
	require.Equal(t, PhaseCongestionAvoidance, c.Phase())
	require.Equal(t, c.SlowStartThreshold(), c.CongestionWindow())
}

func TestRenoTimeoutResetsToSlowStart(t *testing.T) {
	c := newRenoSender(10, testMaxWindow, testSsthresh, 1.0)
	c.OnNewAck(1000, 1) // cwnd 11
	c.OnRetransmissionTimeout()
	require.Equal(t, PhaseSlowStart, c.Phase())
	require.Equal(t, 10.0, c.CongestionWindow())
	require.Equal(t, 5.5, c.SlowStartThreshold())
}

func TestRenoTimeoutFromFastRecovery(t *testing.T) {
	c := newRenoSender(20, testMaxWindow, testSsthresh, 1.0)
	c.OnPacketSent(19000)
	c.OnDuplicateAck()
	c.OnDuplicateAck()
	require.True(t, c.OnDuplicateAck())
	require.Equal(t, PhaseFastRecovery, c.Phase())

	c.OnRetransmissionTimeout()
	require.Equal(t, PhaseSlowStart, c.Phase())
	require.Equal(t, 20.0, c.CongestionWindow())
}

func TestRenoSlowStartThresholdFloor(t *testing.T) {
	c := newTestRenoSender(1)
	c.OnRetransmissionTimeout()
	require.Equal(t, 2.0, c.SlowStartThreshold())
}

func TestRenoWindowNeverBelowOneSegment(t *testing.T) {
	c := newTestRenoSender(1)
	for i := 0; i < 5; i++ {
		c.OnRetransmissionTimeout()
	}
	require.GreaterOrEqual(t, c.CongestionWindow(), 1.0)
	require.GreaterOrEqual(t, c.WindowSize(), 1)
}

func TestRenoWindowCappedAtMaximum(t *testing.T) {
	c := newRenoSender(1, 8, 1000, 1.0)
	for i := 0; i < 20; i++ {
		c.OnNewAck(protocol.SequenceID(i*1000), 1)
	}
	require.Equal(t, 8.0, c.CongestionWindow())
}
