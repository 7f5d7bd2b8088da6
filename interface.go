package rdt

import (
	"github.com/rdt-go/rdt-go/internal/protocol"
)

// A SequenceID identifies a packet by the byte offset of its payload
// within the transfer.
type SequenceID = protocol.SequenceID

// A ByteCount is a count of bytes.
type ByteCount = protocol.ByteCount

// MaxSegmentSize is the largest payload that fits into a single packet.
const MaxSegmentSize = protocol.MaxSegmentSize
