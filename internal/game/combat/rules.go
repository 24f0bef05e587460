package combat

import "github.com/cory-johannsen/vnbattle/internal/game/qte"

// Rules are the tunable constants of combat resolution.
type Rules struct {
	DefendACBonus       int
	DefendCooldown      int
	FleeDC              int
	FleeBonus           int
	CritMultiplier      int
	MinDamage           int
	BarrierReduction    float64
	BarrierStacksPerHit int
	QTEMode             qte.Mode
	QTEWidths           qte.Widths
	QTEDifficulty       float64
}

// DefaultRules returns the stock tuning.
func DefaultRules() Rules {
	return Rules{
		DefendACBonus:       4,
		DefendCooldown:      2,
		FleeDC:              12,
		CritMultiplier:      2,
		MinDamage:           1,
		BarrierReduction:    0.5,
		BarrierStacksPerHit: 1,
		QTEMode:             qte.Targeted,
		QTEWidths:           qte.DefaultWidths,
		QTEDifficulty:       1,
	}
}
