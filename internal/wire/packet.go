package wire

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/rdt-go/rdt-go/internal/protocol"
)

// A FormatError is returned when a datagram doesn't conform to the wire
// format. Inbound datagrams triggering it are dropped, never fatal.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "format error: " + e.Reason
}

func (e *FormatError) Is(target error) bool {
	_, ok := target.(*FormatError)
	return ok
}

// A Packet is an outgoing data packet:
// a 4-byte big-endian signed sequence id, followed by the payload.
type Packet struct {
	SequenceID protocol.SequenceID
	Payload    []byte
}

// Append serializes the packet and appends it to b.
func (p *Packet) Append(b []byte) ([]byte, error) {
	if protocol.ByteCount(len(p.Payload)) > protocol.MaxSegmentSize {
		return nil, &FormatError{Reason: fmt.Sprintf("payload of %d bytes exceeds maximum segment size of %d", len(p.Payload), protocol.MaxSegmentSize)}
	}
	b = binary.BigEndian.AppendUint32(b, uint32(p.SequenceID))
	return append(b, p.Payload...), nil
}

// Length returns the serialized size of the packet.
func (p *Packet) Length() protocol.ByteCount {
	return protocol.HeaderSize + protocol.ByteCount(len(p.Payload))
}

// An Ack is the receiver's response to a data packet. The ack id is
// cumulative: it acknowledges every payload byte below it. The message
// is free-form, the receiver uses it to signal the end of the transfer.
type Ack struct {
	AckID   protocol.SequenceID
	Message string
}

// IsFin says if this ack is the receiver's end-of-transfer signal.
func (a *Ack) IsFin() bool {
	return strings.HasPrefix(a.Message, "fin")
}

// ParseAck parses an acknowledgment datagram.
func ParseAck(data []byte) (*Ack, error) {
	if protocol.ByteCount(len(data)) < protocol.HeaderSize {
		return nil, &FormatError{Reason: fmt.Sprintf("datagram of %d bytes is shorter than the header", len(data))}
	}
	ackID := protocol.SequenceID(binary.BigEndian.Uint32(data[:protocol.HeaderSize]))
	// tolerate arbitrary bytes in the message body
	msg := strings.TrimSpace(strings.ToValidUTF8(string(data[protocol.HeaderSize:]), ""))
	return &Ack{AckID: ackID, Message: msg}, nil
}

// Validate reports whether data looks like a well-formed datagram,
// without parsing it.
func Validate(data []byte) bool {
	size := protocol.ByteCount(len(data))
	return size >= protocol.HeaderSize && size <= protocol.PacketSize
}
