// Package logging defines a logging interface for rdt-go.
// This package should not be considered stable.
package logging

import (
	"github.com/rdt-go/rdt-go/internal/congestion"
	"github.com/rdt-go/rdt-go/internal/protocol"
)

type (
	// A SequenceID identifies a data packet.
	SequenceID = protocol.SequenceID
	// A ByteCount in rdt.
	ByteCount = protocol.ByteCount
	// A Phase of the congestion control state machine.
	Phase = congestion.Phase
)

const (
	// PhaseSlowStart is the exponential growth phase.
	PhaseSlowStart = congestion.PhaseSlowStart
	// PhaseCongestionAvoidance is the linear growth phase.
	PhaseCongestionAvoidance = congestion.PhaseCongestionAvoidance
	// PhaseFastRecovery is entered on triple duplicate acks.
	PhaseFastRecovery = congestion.PhaseFastRecovery
)
