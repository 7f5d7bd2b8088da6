package rdt

import (
	"fmt"

	"github.com/rdt-go/rdt-go/internal/protocol"
)

// A StallError is returned when a packet exhausted its retransmission
// budget without being acknowledged.
type StallError struct {
	SequenceID      protocol.SequenceID
	Retransmissions int
}

func (e *StallError) Error() string {
	return fmt.Sprintf("transfer stalled: packet %d unacknowledged after %d retransmissions", e.SequenceID, e.Retransmissions)
}

func (e *StallError) Is(target error) bool {
	t, ok := target.(*StallError)
	if !ok {
		return false
	}
	return e.SequenceID == t.SequenceID && e.Retransmissions == t.Retransmissions
}

// A HandshakeError is returned when the closing handshake failed: the
// receiver never confirmed the end of the transfer.
type HandshakeError struct {
	Attempts int
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("closing handshake failed after %d attempts", e.Attempts)
}

func (e *HandshakeError) Is(target error) bool {
	t, ok := target.(*HandshakeError)
	if !ok {
		return false
	}
	return e.Attempts == t.Attempts
}
