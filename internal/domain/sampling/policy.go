// Package sampling decides how many frames to take from a video of a given
// duration and at which timestamps.
package sampling

import (
	"fmt"
	"math"
	"strings"
)

type Strategy string

const (
	StrategyFixedRate      Strategy = "fixed_rate"
	StrategyAdaptiveBucket Strategy = "adaptive_bucket"
)

// DefaultFixedRate is the fixed-rate cadence in frames per second.
const DefaultFixedRate = 1.0

// MaxAdaptiveFrames caps the adaptive strategy regardless of duration.
const MaxAdaptiveFrames = 35

// MaxFrames bounds the fixed-rate strategy: 100000 frames is almost 28 hours
// at the default rate.
const MaxFrames = 100_000

// ParseStrategy maps a configuration string to a Strategy. An empty string
// selects the fixed-rate strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(StrategyFixedRate):
		return StrategyFixedRate, nil
	case string(StrategyAdaptiveBucket):
		return StrategyAdaptiveBucket, nil
	default:
		return "", fmt.Errorf("unknown sampling strategy %q", s)
	}
}

// Config selects a strategy. FixedRate only applies to StrategyFixedRate;
// zero means DefaultFixedRate.
type Config struct {
	Strategy  Strategy
	FixedRate float64
}

func (c Config) rate() float64 {
	if c.FixedRate > 0 {
		return c.FixedRate
	}
	return DefaultFixedRate
}

// Validate reports configuration errors before any video is touched.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyFixedRate, StrategyAdaptiveBucket:
	default:
		return fmt.Errorf("unknown sampling strategy %q", c.Strategy)
	}
	if c.FixedRate < 0 || math.IsNaN(c.FixedRate) || math.IsInf(c.FixedRate, 0) {
		return fmt.Errorf("fixed rate must be a positive number, got %v", c.FixedRate)
	}
	return nil
}

// FrameCount returns the number of frames the strategy samples from a video
// of the given duration in seconds. Non-positive or non-finite durations
// yield zero. The count never exceeds MaxFrames; callers that must not
// truncate check WithinLimit first.
func FrameCount(cfg Config, duration float64) int {
	if !(duration > 0) || math.IsInf(duration, 0) {
		return 0
	}
	switch cfg.Strategy {
	case StrategyAdaptiveBucket:
		return adaptiveCount(duration)
	default:
		n := math.Floor(duration * cfg.rate())
		if n > MaxFrames {
			return MaxFrames
		}
		return int(n)
	}
}

// WithinLimit reports whether FrameCount for duration is exact, that is
// whether the strategy asks for no more than MaxFrames frames.
func WithinLimit(cfg Config, duration float64) bool {
	if cfg.Strategy == StrategyAdaptiveBucket || !(duration > 0) {
		return true
	}
	return math.Floor(duration*cfg.rate()) <= MaxFrames
}

// Timestamps returns the ordered sample points in seconds. Every value lies
// in [0, duration); the first one is always 0 when the result is non-empty.
func Timestamps(cfg Config, duration float64) []float64 {
	n := FrameCount(cfg, duration)
	if n == 0 {
		return []float64{}
	}

	out := make([]float64, n)
	switch cfg.Strategy {
	case StrategyAdaptiveBucket:
		for i := range out {
			out[i] = duration * float64(i) / float64(n)
		}
	default:
		rate := cfg.rate()
		for i := range out {
			out[i] = float64(i) / rate
		}
	}
	return out
}

func adaptiveCount(duration float64) int {
	if duration > MaxAdaptiveFrames {
		return MaxAdaptiveFrames
	}
	whole := int(math.Floor(duration))

	var n int
	switch {
	case duration < 5:
		n = whole * 5
	case duration < 10:
		n = 12
	case duration < 15:
		n = 15
	case duration < 20:
		n = 20
	case duration <= 35:
		n = whole
	default:
		n = MaxAdaptiveFrames
	}

	if n > MaxAdaptiveFrames {
		n = MaxAdaptiveFrames
	}
	return n
}
