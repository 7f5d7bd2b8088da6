package rdt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfigDefaultsReno(t *testing.T) {
	c := populateConfig(&Config{})
	require.Equal(t, Reno, c.Algorithm)
	require.Equal(t, 1020, c.SegmentSize)
	require.Equal(t, 1, c.InitialCongestionWindow)
	require.Equal(t, 1024, c.MaxCongestionWindow)
	require.Equal(t, float64(32), c.SlowStartThreshold)
	require.Equal(t, float64(1), c.CongestionAvoidanceIncrement)
	require.Equal(t, time.Second, c.InitialRTO)
	require.Equal(t, 200*time.Millisecond, c.MinRTO)
	require.Equal(t, 30*time.Second, c.MaxRTO)
	require.Equal(t, 5, c.MaxRetransmissions)
	require.Equal(t, 3, c.MaxFinAttempts)
	require.Equal(t, 5*time.Second, c.FinTimeout)
}

func TestConfigDefaultsDelayAdaptive(t *testing.T) {
	c := populateConfig(&Config{Algorithm: DelayAdaptive})
	require.Equal(t, 10, c.InitialCongestionWindow)
	require.Equal(t, float64(2), c.CongestionAvoidanceIncrement)
	require.Equal(t, 1.2, c.GradientExitThreshold)
	require.Equal(t, 1.15, c.GradientBackoffThreshold)
	require.Equal(t, 0.95, c.DelayBackoffFactor)
}

func TestConfigPopulateNil(t *testing.T) {
	c := populateConfig(nil)
	require.Equal(t, Reno, c.Algorithm)
	require.Equal(t, 1, c.InitialCongestionWindow)
}

func TestConfigKeepsExplicitValues(t *testing.T) {
	c := populateConfig(&Config{
		Algorithm:               DelayAdaptive,
		InitialCongestionWindow: 4,
		SlowStartThreshold:      64,
		MinRTO:                  time.Millisecond,
	})
	require.Equal(t, 4, c.InitialCongestionWindow)
	require.Equal(t, float64(64), c.SlowStartThreshold)
	require.Equal(t, time.Millisecond, c.MinRTO)
	// untouched fields still get defaults
	require.Equal(t, time.Second, c.InitialRTO)
}

func TestConfigClone(t *testing.T) {
	c := &Config{Algorithm: DelayAdaptive, SegmentSize: 512}
	cloned := c.Clone()
	cloned.SegmentSize = 100
	require.Equal(t, 512, c.SegmentSize)

	var nilConfig *Config
	require.Nil(t, nilConfig.Clone())
}

func TestValidateConfig(t *testing.T) {
	require.NoError(t, validateConfig(nil))
	require.NoError(t, validateConfig(&Config{SegmentSize: 1020}))
	require.Error(t, validateConfig(&Config{SegmentSize: 1021}))
	require.Error(t, validateConfig(&Config{SegmentSize: -1}))
	require.Error(t, validateConfig(&Config{InitialCongestionWindow: -1}))
	require.Error(t, validateConfig(&Config{MinRTO: time.Second, MaxRTO: time.Millisecond}))
	require.Error(t, validateConfig(&Config{DelayBackoffFactor: 1.5}))
}

func TestCongestionControlAlgorithmFromString(t *testing.T) {
	a, err := CongestionControlAlgorithmFromString("reno")
	require.NoError(t, err)
	require.Equal(t, Reno, a)
	a, err = CongestionControlAlgorithmFromString("adaptive")
	require.NoError(t, err)
	require.Equal(t, DelayAdaptive, a)
	a, err = CongestionControlAlgorithmFromString("")
	require.NoError(t, err)
	require.Equal(t, Reno, a)
	_, err = CongestionControlAlgorithmFromString("cubic")
	require.Error(t, err)
}

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig([]byte(`
algorithm: adaptive
segment_size: 500
initial_congestion_window: 8
slow_start_threshold: 48
min_rto: 50ms
max_rto: 2s
fin_timeout: 1s
max_retransmissions: 7
gradient_exit_threshold: 1.3
`))
	require.NoError(t, err)
	require.Equal(t, DelayAdaptive, c.Algorithm)
	require.Equal(t, 500, c.SegmentSize)
	require.Equal(t, 8, c.InitialCongestionWindow)
	require.Equal(t, float64(48), c.SlowStartThreshold)
	require.Equal(t, 50*time.Millisecond, c.MinRTO)
	require.Equal(t, 2*time.Second, c.MaxRTO)
	require.Equal(t, time.Second, c.FinTimeout)
	require.Equal(t, 7, c.MaxRetransmissions)
	require.Equal(t, 1.3, c.GradientExitThreshold)
	// fields the file leaves out stay zero so defaults apply later
	require.Zero(t, c.InitialRTO)
}

func TestParseConfigRejectsUnknownFields(t *testing.T) {
	_, err := ParseConfig([]byte("window_scaling: true\n"))
	require.Error(t, err)
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	_, err := ParseConfig([]byte("algorithm: vegas\n"))
	require.Error(t, err)
	_, err = ParseConfig([]byte("min_rto: fast\n"))
	require.Error(t, err)
	_, err = ParseConfig([]byte("segment_size: 4096\n"))
	require.Error(t, err)
}
