// Package qte classifies quick-time-event timing inputs into reward tiers.
//
// A ZoneConfig is built once per QTE instance and shared by the renderer and
// the classifier; the reference point is never recomputed.
package qte

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/vnbattle/internal/game/dice"
)

// Bar geometry in percentage units.
const (
	BarMin    = 0.0
	BarMax    = 100.0
	Center    = 50.0
	TargetMin = 10
	TargetMax = 90
)

// Mode selects the reference point used for scoring.
type Mode int

const (
	// Centered scores against the bar center with perfect/success/partial/miss tiers.
	Centered Mode = iota
	// Targeted scores against a random target with perfect/good/normal/bad tiers.
	Targeted
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	if m == Centered {
		return "centered"
	}
	return "targeted"
}

// ParseMode maps a configuration string onto a Mode. Unknown values select Targeted.
func ParseMode(s string) Mode {
	switch s {
	case "centered", "legacy", "center":
		return Centered
	default:
		return Targeted
	}
}

// Tier is a discrete timing outcome.
type Tier string

const (
	Perfect Tier = "perfect"
	Good    Tier = "good"
	Normal  Tier = "normal"
	Bad     Tier = "bad"

	Success Tier = "success"
	Partial Tier = "partial"
	Miss    Tier = "miss"
)

// Multiplier returns the damage multiplier a landed hit receives for this tier.
func (t Tier) Multiplier() float64 {
	switch t {
	case Perfect:
		return 1.5
	case Good, Success:
		return 1.25
	case Normal, Partial:
		return 1.0
	default:
		return 0.5
	}
}

// Widths are the tier half-widths before the difficulty multiplier.
type Widths struct {
	Perfect float64 `mapstructure:"perfect_half" yaml:"perfect_half"`
	Good    float64 `mapstructure:"good_half" yaml:"good_half"`
	Normal  float64 `mapstructure:"normal_half" yaml:"normal_half"`
}

// DefaultWidths are used when configuration omits the QTE section.
var DefaultWidths = Widths{Perfect: 5, Good: 10, Normal: 20}

// Validate reports whether the half-widths are positive and non-decreasing.
func (w Widths) Validate() error {
	if w.Perfect <= 0 {
		return fmt.Errorf("perfect_half must be > 0, got %v", w.Perfect)
	}
	if w.Good < w.Perfect {
		return fmt.Errorf("good_half (%v) must be >= perfect_half (%v)", w.Good, w.Perfect)
	}
	if w.Normal < w.Good {
		return fmt.Errorf("normal_half (%v) must be >= good_half (%v)", w.Normal, w.Good)
	}
	return nil
}

// Zone is one scored band of the bar, for rendering.
type Zone struct {
	Tier  Tier
	Start float64
	End   float64
}

// ZoneConfig is the immutable scoring configuration for one QTE instance.
type ZoneConfig struct {
	mode      Mode
	reference float64
	perfect   float64
	good      float64
	normal    float64
}

// NewCentered builds a legacy center-referenced configuration.
func NewCentered(w Widths, difficulty float64) *ZoneConfig {
	return newConfig(Centered, Center, w, difficulty)
}

// NewTargeted builds a target-referenced configuration whose target is drawn
// from src now, uniformly in [TargetMin, TargetMax].
//
// Precondition: src must be non-nil.
func NewTargeted(w Widths, difficulty float64, src dice.Source) *ZoneConfig {
	target := src.Intn(TargetMax-TargetMin+1) + TargetMin
	return newConfig(Targeted, float64(target), w, difficulty)
}

// NewTargetedAt builds a target-referenced configuration with a fixed target,
// clamped into [TargetMin, TargetMax].
func NewTargetedAt(w Widths, difficulty, target float64) *ZoneConfig {
	target = math.Max(TargetMin, math.Min(TargetMax, target))
	return newConfig(Targeted, target, w, difficulty)
}

// New builds a configuration for mode, drawing a target from src when needed.
func New(mode Mode, w Widths, difficulty float64, src dice.Source) *ZoneConfig {
	if mode == Centered {
		return NewCentered(w, difficulty)
	}
	return NewTargeted(w, difficulty, src)
}

func newConfig(mode Mode, reference float64, w Widths, difficulty float64) *ZoneConfig {
	if difficulty <= 0 || math.IsNaN(difficulty) {
		difficulty = 1
	}
	return &ZoneConfig{
		mode:      mode,
		reference: reference,
		perfect:   w.Perfect * difficulty,
		good:      w.Good * difficulty,
		normal:    w.Normal * difficulty,
	}
}

// Mode returns the scoring mode.
func (z *ZoneConfig) Mode() Mode { return z.mode }

// Reference returns the point distances are measured from.
func (z *ZoneConfig) Reference() float64 { return z.reference }

// Widths returns the scaled half-widths.
func (z *ZoneConfig) Widths() Widths {
	return Widths{Perfect: z.perfect, Good: z.good, Normal: z.normal}
}

func (z *ZoneConfig) tiers() [4]Tier {
	if z.mode == Centered {
		return [4]Tier{Perfect, Success, Partial, Miss}
	}
	return [4]Tier{Perfect, Good, Normal, Bad}
}

// Classify returns the tightest tier whose half-width contains the distance
// between position and the reference point. A distance equal to a half-width
// belongs to that tier.
func (z *ZoneConfig) Classify(position float64) Tier {
	t := z.tiers()
	d := math.Abs(position - z.reference)
	switch {
	case d <= z.perfect:
		return t[0]
	case d <= z.good:
		return t[1]
	case d <= z.normal:
		return t[2]
	default:
		return t[3]
	}
}

// Zones returns the scored bands, tightest first, clipped to the bar.
func (z *ZoneConfig) Zones() []Zone {
	t := z.tiers()
	half := [3]float64{z.perfect, z.good, z.normal}
	zones := make([]Zone, 0, len(half))
	for i, h := range half {
		zones = append(zones, Zone{
			Tier:  t[i],
			Start: math.Max(BarMin, z.reference-h),
			End:   math.Min(BarMax, z.reference+h),
		})
	}
	return zones
}
