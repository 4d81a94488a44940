// Package quality derives the ray-marching step size and step budget from a
// quality tier and live device/network constraint signals. Everything here
// is a pure function of its inputs so adaptation logic stays testable
// without a GPU context.
package quality

import (
	"fmt"
	"math"
)

// Level is the requested quality tier.
type Level int

const (
	Low Level = iota
	Medium
	High
)

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel converts a config/CLI string into a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "low":
		return Low, nil
	case "", "medium":
		return Medium, nil
	case "high":
		return High, nil
	default:
		return Medium, fmt.Errorf("quality: unknown level %q", s)
	}
}

// Downgrade returns the next coarser tier.
func (l Level) Downgrade() Level {
	if l > Low {
		return l - 1
	}
	return Low
}

// Signals are environmental constraints supplied by the device/network
// sensing collaborator. Each active signal independently coarsens the step
// size.
type Signals struct {
	LowBandwidth bool
	PowerSave    bool
	MobileDevice bool
}

// Config names the adaptive parameters: base step size per tier and one
// multiplier per signal. Step sizes are in normalized volume-space units,
// where the volume occupies a cube of side 2.
type Config struct {
	BaseStep [3]float64 // indexed by Level

	LowBandwidthFactor float64
	PowerSaveFactor    float64
	MobileFactor       float64

	// StepCeiling bounds the compounded step size so stacked penalties can
	// never coarsen a frame past usability.
	StepCeiling float64
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		BaseStep:           [3]float64{0.01, 0.005, 0.002},
		LowBandwidthFactor: 2.0,
		PowerSaveFactor:    1.5,
		MobileFactor:       1.2,
		StepCeiling:        0.05,
	}
}

// StepSize maps a tier plus active signals to a march step size. Signal
// penalties compose multiplicatively.
func (c Config) StepSize(l Level, s Signals) float64 {
	if l < Low || l > High {
		l = Medium
	}
	step := c.BaseStep[l]
	if s.LowBandwidth {
		step *= c.LowBandwidthFactor
	}
	if s.PowerSave {
		step *= c.PowerSaveFactor
	}
	if s.MobileDevice {
		step *= c.MobileFactor
	}
	if c.StepCeiling > 0 && step > c.StepCeiling {
		step = c.StepCeiling
	}
	return step
}

// MaxSteps returns ceil(2/step): enough steps for a ray to cross the full
// diagonal of the normalized cube.
func (c Config) MaxSteps(step float64) int {
	if step <= 0 {
		return 0
	}
	return int(math.Ceil(2.0 / step))
}
