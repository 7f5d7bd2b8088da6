package protocol

import "time"

// A SequenceID identifies a data packet. It is the byte offset of the
// packet's payload within the transfer, so ids are strictly increasing
// and unique within a session.
type SequenceID int32

// InvalidSequenceID is the sequence id of the packet "before" the first one.
const InvalidSequenceID SequenceID = -1

// A ByteCount in rdt.
type ByteCount int64

// PacketSize is the size of a full datagram: header plus payload.
const PacketSize ByteCount = 1024

// HeaderSize is the length of the big-endian signed sequence id header.
const HeaderSize ByteCount = 4

// MaxSegmentSize is the maximum payload carried by a single packet.
const MaxSegmentSize = PacketSize - HeaderSize

const (
	// DefaultInitialCongestionWindow is the initial congestion window
	// of the baseline controller, in segments.
	DefaultInitialCongestionWindow = 1
	// DefaultAdaptiveInitialCongestionWindow is the initial congestion
	// window of the delay-adaptive controller, in segments.
	DefaultAdaptiveInitialCongestionWindow = 10
	// DefaultSlowStartThreshold is the initial ssthresh, in segments.
	DefaultSlowStartThreshold = 32
	// DefaultMaxCongestionWindow is the hard cap on the congestion
	// window, in segments.
	DefaultMaxCongestionWindow = 1 << 10
)

const (
	// DefaultInitialRTO is the retransmission timeout used before the
	// first RTT sample is taken.
	DefaultInitialRTO = time.Second
	// DefaultMinRTO floors the computed retransmission timeout.
	DefaultMinRTO = 200 * time.Millisecond
	// DefaultMaxRTO caps the computed retransmission timeout.
	DefaultMaxRTO = 30 * time.Second
)

const (
	// DefaultMaxRetransmissions is the number of consecutive
	// retransmissions of the same packet after which the session
	// declares a fatal stall.
	DefaultMaxRetransmissions = 5
	// DefaultMaxFinAttempts bounds the FIN/ACK handshake retries.
	DefaultMaxFinAttempts = 3
	// DefaultFinTimeout is how long to wait for the receiver's FIN
	// after sending the end-of-stream marker.
	DefaultFinTimeout = 5 * time.Second
)

// AckChannelSize is the capacity of the channel between the datagram
// read loop and the session loop. Acks arriving while it is full are
// dropped; they are cumulative, so a later ack supersedes them.
const AckChannelSize = 64
