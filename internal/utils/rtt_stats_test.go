package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRTTStatsDefaultsBeforeUpdate(t *testing.T) {
	rttStats := NewRTTStats()
	require.False(t, rttStats.HasMeasurement())
	require.Zero(t, rttStats.MinRTT())
	require.Zero(t, rttStats.SmoothedRTT())
	require.Equal(t, time.Second, rttStats.RTO())
}

func TestRTTStatsFirstSample(t *testing.T) {
	rttStats := NewRTTStats()
	rttStats.UpdateRTT(300 * time.Millisecond)
	require.True(t, rttStats.HasMeasurement())
	require.Equal(t, 300*time.Millisecond, rttStats.LatestRTT())
	require.Equal(t, 300*time.Millisecond, rttStats.SmoothedRTT())
	require.Equal(t, 150*time.Millisecond, rttStats.MeanDeviation())
	require.Equal(t, 900*time.Millisecond, rttStats.RTO())
}

func TestRTTStatsSmoothing(t *testing.T) {
	rttStats := NewRTTStats()
	rttStats.UpdateRTT(300 * time.Millisecond)
	rttStats.UpdateRTT(350 * time.Millisecond)
	// srtt = 7/8 * 300ms + 1/8 * 350ms
	require.Equal(t, 306250*time.Microsecond, rttStats.SmoothedRTT())
	// rttvar = 3/4 * 150ms + 1/4 * |300ms - 350ms|
	require.Equal(t, 125*time.Millisecond, rttStats.MeanDeviation())
	require.Equal(t, 306250*time.Microsecond+4*125*time.Millisecond, rttStats.RTO())
}

func TestRTTStatsMinRTT(t *testing.T) {
	rttStats := NewRTTStats()
	rttStats.UpdateRTT(200 * time.Millisecond)
	rttStats.UpdateRTT(10 * time.Millisecond)
	rttStats.UpdateRTT(50 * time.Millisecond)
	require.Equal(t, 10*time.Millisecond, rttStats.MinRTT())
}

func TestRTTStatsIgnoresNonPositiveSamples(t *testing.T) {
	rttStats := NewRTTStats()
	rttStats.UpdateRTT(0)
	rttStats.UpdateRTT(-time.Second)
	require.False(t, rttStats.HasMeasurement())
}

func TestRTOFloor(t *testing.T) {
	rttStats := NewRTTStats()
	rttStats.UpdateRTT(time.Millisecond)
	// srtt + 4*rttvar is 3ms, way below the floor
	require.Equal(t, 200*time.Millisecond, rttStats.RTO())
}

func TestRTOStaysAboveFloorAfterLargeSample(t *testing.T) {
	rttStats := NewRTTStats()
	rttStats.UpdateRTT(10 * time.Millisecond)
	srtt := rttStats.SmoothedRTT()
	rttvar := rttStats.MeanDeviation()
	rttStats.UpdateRTT(10 * time.Second)
	require.Greater(t, rttStats.SmoothedRTT(), srtt)
	require.Greater(t, rttStats.MeanDeviation(), rttvar)
	require.GreaterOrEqual(t, rttStats.RTO(), 200*time.Millisecond)
}

func TestRTOCap(t *testing.T) {
	rttStats := NewRTTStats()
	rttStats.SetRTOBounds(50*time.Millisecond, 2*time.Second)
	rttStats.UpdateRTT(10 * time.Second)
	require.Equal(t, 2*time.Second, rttStats.RTO())
}

func TestRTOInitialOverride(t *testing.T) {
	rttStats := NewRTTStats()
	rttStats.SetInitialRTO(100 * time.Millisecond)
	rttStats.SetRTOBounds(50*time.Millisecond, 0)
	require.Equal(t, 100*time.Millisecond, rttStats.RTO())
}
