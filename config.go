package rdt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/rdt-go/rdt-go/internal/congestion"
	"github.com/rdt-go/rdt-go/internal/protocol"
	"github.com/rdt-go/rdt-go/logging"

	"gopkg.in/yaml.v3"
)

// A CongestionControlAlgorithm selects the strategy used to size the
// congestion window.
type CongestionControlAlgorithm uint8

const (
	// Reno is the classic loss-based controller: slow start, AIMD
	// congestion avoidance and fast recovery.
	Reno CongestionControlAlgorithm = 1 + iota
	// DelayAdaptive extends Reno with an RTT-gradient signal that
	// exits slow start early and backs the window off when queueing
	// delay builds up.
	DelayAdaptive
)

func (a CongestionControlAlgorithm) String() string {
	switch a {
	case Reno:
		return "reno"
	case DelayAdaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("unknown (%d)", uint8(a))
	}
}

// CongestionControlAlgorithmFromString parses the textual name of a
// congestion control algorithm, as used in configuration files.
func CongestionControlAlgorithmFromString(s string) (CongestionControlAlgorithm, error) {
	switch s {
	case "", "reno":
		return Reno, nil
	case "adaptive":
		return DelayAdaptive, nil
	default:
		return 0, fmt.Errorf("unknown congestion control algorithm: %q", s)
	}
}

// Config contains all configuration options for a Session.
type Config struct {
	// Algorithm selects the congestion controller.
	// If unset, Reno is used.
	Algorithm CongestionControlAlgorithm
	// SegmentSize is the number of payload bytes carried per packet.
	// It cannot exceed MaxSegmentSize, which is also the default.
	SegmentSize int
	// InitialCongestionWindow is the window size, in packets, at the
	// start of the transfer and after a retransmission timeout.
	// If unset, it defaults to 1 for Reno and 10 for DelayAdaptive.
	InitialCongestionWindow int
	// MaxCongestionWindow caps the window size in packets.
	MaxCongestionWindow int
	// SlowStartThreshold is the window size, in packets, at which the
	// controller leaves slow start. Defaults to 32.
	SlowStartThreshold float64
	// CongestionAvoidanceIncrement is the per-window window growth in
	// congestion avoidance.
	// If unset, it defaults to 1 for Reno and 2 for DelayAdaptive.
	CongestionAvoidanceIncrement float64
	// InitialRTO is the retransmission timeout used before the first
	// RTT sample. Defaults to 1s.
	InitialRTO time.Duration
	// MinRTO is the lower bound on the retransmission timeout.
	// Defaults to 200ms.
	MinRTO time.Duration
	// MaxRTO is the upper bound on the retransmission timeout.
	// Defaults to 30s.
	MaxRTO time.Duration
	// MaxRetransmissions is the number of retransmissions of a single
	// packet after which the transfer is declared stalled. Defaults
	// to 5.
	MaxRetransmissions int
	// MaxFinAttempts is the number of times the end-of-transfer marker
	// is sent before the closing handshake is declared failed.
	// Defaults to 3.
	MaxFinAttempts int
	// FinTimeout is how long to wait for the receiver's FIN after
	// sending the end-of-transfer marker. Defaults to 5s.
	FinTimeout time.Duration
	// GradientExitThreshold is the RTT gradient above which the
	// DelayAdaptive controller leaves slow start early. Defaults to
	// 1.2. Ignored by Reno.
	GradientExitThreshold float64
	// GradientBackoffThreshold is the RTT gradient above which the
	// DelayAdaptive controller shrinks the window in congestion
	// avoidance. Defaults to 1.15. Ignored by Reno.
	GradientBackoffThreshold float64
	// DelayBackoffFactor is the multiplicative window decrease applied
	// on a gradient backoff. Defaults to 0.95. Ignored by Reno.
	DelayBackoffFactor float64
	// Tracer receives callbacks for transfer events.
	Tracer *logging.Tracer
}

// Clone returns a copy of the Config.
// It returns nil when called on a nil pointer.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	copied := *c
	return &copied
}

func validateConfig(config *Config) error {
	if config == nil {
		return nil
	}
	if config.SegmentSize < 0 || protocol.ByteCount(config.SegmentSize) > protocol.MaxSegmentSize {
		return fmt.Errorf("invalid segment size: %d (max %d)", config.SegmentSize, protocol.MaxSegmentSize)
	}
	if config.InitialCongestionWindow < 0 {
		return errors.New("invalid initial congestion window")
	}
	if config.MaxCongestionWindow < 0 {
		return errors.New("invalid maximum congestion window")
	}
	if config.SlowStartThreshold < 0 {
		return errors.New("invalid slow start threshold")
	}
	if config.CongestionAvoidanceIncrement < 0 {
		return errors.New("invalid congestion avoidance increment")
	}
	if config.InitialRTO < 0 || config.MinRTO < 0 || config.MaxRTO < 0 {
		return errors.New("RTO bounds must not be negative")
	}
	if config.MinRTO != 0 && config.MaxRTO != 0 && config.MinRTO > config.MaxRTO {
		return errors.New("minimum RTO exceeds maximum RTO")
	}
	if config.MaxRetransmissions < 0 {
		return errors.New("invalid retransmission limit")
	}
	if config.MaxFinAttempts < 0 {
		return errors.New("invalid FIN attempt limit")
	}
	if config.DelayBackoffFactor < 0 || config.DelayBackoffFactor > 1 {
		return errors.New("delay backoff factor must be in (0, 1]")
	}
	return nil
}

// populateConfig populates fields in the Config with default values if
// none are set.
func populateConfig(config *Config) *Config {
	if config == nil {
		config = &Config{}
	} else {
		config = config.Clone()
	}
	if config.Algorithm == 0 {
		config.Algorithm = Reno
	}
	if config.SegmentSize == 0 {
		config.SegmentSize = int(protocol.MaxSegmentSize)
	}
	if config.InitialCongestionWindow == 0 {
		switch config.Algorithm {
		case DelayAdaptive:
			config.InitialCongestionWindow = protocol.DefaultAdaptiveInitialCongestionWindow
		default:
			config.InitialCongestionWindow = protocol.DefaultInitialCongestionWindow
		}
	}
	if config.MaxCongestionWindow == 0 {
		config.MaxCongestionWindow = protocol.DefaultMaxCongestionWindow
	}
	if config.SlowStartThreshold == 0 {
		config.SlowStartThreshold = protocol.DefaultSlowStartThreshold
	}
	if config.CongestionAvoidanceIncrement == 0 {
		switch config.Algorithm {
		case DelayAdaptive:
			config.CongestionAvoidanceIncrement = 2
		default:
			config.CongestionAvoidanceIncrement = 1
		}
	}
	if config.InitialRTO == 0 {
		config.InitialRTO = protocol.DefaultInitialRTO
	}
	if config.MinRTO == 0 {
		config.MinRTO = protocol.DefaultMinRTO
	}
	if config.MaxRTO == 0 {
		config.MaxRTO = protocol.DefaultMaxRTO
	}
	if config.MaxRetransmissions == 0 {
		config.MaxRetransmissions = protocol.DefaultMaxRetransmissions
	}
	if config.MaxFinAttempts == 0 {
		config.MaxFinAttempts = protocol.DefaultMaxFinAttempts
	}
	if config.FinTimeout == 0 {
		config.FinTimeout = protocol.DefaultFinTimeout
	}
	if config.GradientExitThreshold == 0 {
		config.GradientExitThreshold = congestion.DefaultGradientExitThreshold
	}
	if config.GradientBackoffThreshold == 0 {
		config.GradientBackoffThreshold = congestion.DefaultGradientBackoffThreshold
	}
	if config.DelayBackoffFactor == 0 {
		config.DelayBackoffFactor = congestion.DefaultBackoffFactor
	}
	return config
}

// yamlConfig mirrors Config for configuration files. Durations are
// given as strings in time.ParseDuration syntax.
type yamlConfig struct {
	Algorithm                    string  `yaml:"algorithm"`
	SegmentSize                  int     `yaml:"segment_size"`
	InitialCongestionWindow      int     `yaml:"initial_congestion_window"`
	MaxCongestionWindow          int     `yaml:"max_congestion_window"`
	SlowStartThreshold           float64 `yaml:"slow_start_threshold"`
	CongestionAvoidanceIncrement float64 `yaml:"congestion_avoidance_increment"`
	InitialRTO                   string  `yaml:"initial_rto"`
	MinRTO                       string  `yaml:"min_rto"`
	MaxRTO                       string  `yaml:"max_rto"`
	MaxRetransmissions           int     `yaml:"max_retransmissions"`
	MaxFinAttempts               int     `yaml:"max_fin_attempts"`
	FinTimeout                   string  `yaml:"fin_timeout"`
	GradientExitThreshold        float64 `yaml:"gradient_exit_threshold"`
	GradientBackoffThreshold     float64 `yaml:"gradient_backoff_threshold"`
	DelayBackoffFactor           float64 `yaml:"delay_backoff_factor"`
}

// ParseConfig parses a YAML configuration file. Unknown keys are
// rejected. Fields left out keep their zero value, so the result can
// be passed to NewSession directly and defaults are applied there.
func ParseConfig(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var yc yamlConfig
	if err := dec.Decode(&yc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	algorithm, err := CongestionControlAlgorithmFromString(yc.Algorithm)
	if err != nil {
		return nil, err
	}
	if yc.Algorithm == "" {
		algorithm = 0
	}
	config := &Config{
		Algorithm:                    algorithm,
		SegmentSize:                  yc.SegmentSize,
		InitialCongestionWindow:      yc.InitialCongestionWindow,
		MaxCongestionWindow:          yc.MaxCongestionWindow,
		SlowStartThreshold:           yc.SlowStartThreshold,
		CongestionAvoidanceIncrement: yc.CongestionAvoidanceIncrement,
		MaxRetransmissions:           yc.MaxRetransmissions,
		MaxFinAttempts:               yc.MaxFinAttempts,
		GradientExitThreshold:        yc.GradientExitThreshold,
		GradientBackoffThreshold:     yc.GradientBackoffThreshold,
		DelayBackoffFactor:           yc.DelayBackoffFactor,
	}
	for _, d := range []struct {
		name  string
		value string
		field *time.Duration
	}{
		{"initial_rto", yc.InitialRTO, &config.InitialRTO},
		{"min_rto", yc.MinRTO, &config.MinRTO},
		{"max_rto", yc.MaxRTO, &config.MaxRTO},
		{"fin_timeout", yc.FinTimeout, &config.FinTimeout},
	} {
		if d.value == "" {
			continue
		}
		dur, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.name, err)
		}
		*d.field = dur
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}
