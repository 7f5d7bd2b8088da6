package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerDoesntFireWhenNotSet(t *testing.T) {
	timer := NewTimer()
	select {
	case <-timer.Chan():
		t.Fatal("timer fired without being set")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimerFiresAtDeadline(t *testing.T) {
	timer := NewTimer()
	deadline := time.Now().Add(25 * time.Millisecond)
	timer.Reset(deadline)
	require.Equal(t, deadline, timer.Deadline())
	select {
	case <-timer.Chan():
		timer.SetRead()
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestTimerResetAfterRead(t *testing.T) {
	timer := NewTimer()
	timer.Reset(time.Now().Add(5 * time.Millisecond))
	<-timer.Chan()
	timer.SetRead()
	timer.Reset(time.Now().Add(5 * time.Millisecond))
	select {
	case <-timer.Chan():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire after reset")
	}
}

func TestTimerResetWithoutRead(t *testing.T) {
	timer := NewTimer()
	timer.Reset(time.Now().Add(time.Millisecond))
	time.Sleep(10 * time.Millisecond) // let it fire without reading
	timer.Reset(time.Now().Add(5 * time.Millisecond))
	select {
	case <-timer.Chan():
	case <-time.After(time.Second):
		t.Fatal("timer did not fire after reset")
	}
}
