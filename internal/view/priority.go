package view

import (
	"math"

	"github.com/jonathan/job-dashboard/internal/backend"
)

// PriorityTier is the bucket a priority score falls into.
type PriorityTier struct {
	Label string
	Color string
}

var (
	TierTop  = PriorityTier{Label: "TOP", Color: "#10b981"}
	TierHigh = PriorityTier{Label: "HIGH", Color: "#eab308"}
	TierMed  = PriorityTier{Label: "MED", Color: "#f97316"}
	TierLow  = PriorityTier{Label: "LOW", Color: "#ef4444"}
)

// Tier returns the gauge tier for a 0-100 priority.
func Tier(value int) PriorityTier {
	switch {
	case value >= 81:
		return TierTop
	case value >= 61:
		return TierHigh
	case value >= 41:
		return TierMed
	default:
		return TierLow
	}
}

// Gauge is the geometry of a 270 degree priority arc.
type Gauge struct {
	Value         int
	Tier          PriorityTier
	Size          float64
	StrokeWidth   float64
	Center        float64
	Radius        float64
	Circumference float64
	Progress      float64
	// Gap is the dash gap that hides the open quarter of the track.
	Gap   float64
	Ticks []GaugeTick
	Label string
}

// GaugeTick is a tick mark on the inside of the arc.
type GaugeTick struct {
	X1, Y1, X2, Y2 float64
}

// Default gauge sizes.
const (
	GaugeSize       = 160
	GaugeStroke     = 14
	MiniGaugeSize   = 90
	MiniGaugeStroke = 8
)

// PriorityGauge computes the arc for value. Values outside 0-100 are clamped.
func PriorityGauge(value int, size, strokeWidth float64) Gauge {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	radius := (size - strokeWidth) / 2
	circumference := radius * math.Pi * 1.5
	g := Gauge{
		Value:         value,
		Tier:          Tier(value),
		Size:          size,
		StrokeWidth:   strokeWidth,
		Center:        size / 2,
		Radius:        radius,
		Circumference: circumference,
		Progress:      float64(value) / 100 * circumference,
		Gap:           circumference * 0.333,
		Label:         Tier(value).Label,
	}

	inner := radius - strokeWidth/2 - 8
	outer := radius - strokeWidth/2 - 4
	for _, tick := range []float64{0, 25, 50, 75, 100} {
		rad := (tick/100*270 - 135) * math.Pi / 180
		g.Ticks = append(g.Ticks, GaugeTick{
			X1: g.Center + inner*math.Cos(rad),
			Y1: g.Center + inner*math.Sin(rad),
			X2: g.Center + outer*math.Cos(rad),
			Y2: g.Center + outer*math.Sin(rad),
		})
	}
	return g
}

// TableLabel is the short priority text used in the job table.
type TableLabel struct {
	Label string
	Class string
}

// PriorityLabel returns the table label for a priority. Zero means unscored.
func PriorityLabel(priority int) TableLabel {
	switch {
	case priority >= 81:
		return TableLabel{Label: "Top", Class: "prio-top"}
	case priority >= 61:
		return TableLabel{Label: "High", Class: "prio-high"}
	case priority >= 41:
		return TableLabel{Label: "Med", Class: "prio-med"}
	case priority >= 1:
		return TableLabel{Label: "Low", Class: "prio-low"}
	default:
		return TableLabel{Label: "-", Class: "prio-none"}
	}
}

// RoleGauge is a mini gauge for one role-fit score.
type RoleGauge struct {
	Gauge
	Role    string
	Caption string
	Best    bool
}

// RoleGauges builds mini gauges for role scores and marks the highest one.
// Ties keep the first role.
func RoleGauges(roles []backend.RoleScore) []RoleGauge {
	best := -1
	for i, r := range roles {
		if best < 0 || r.Score > roles[best].Score {
			best = i
		}
	}
	out := make([]RoleGauge, 0, len(roles))
	for i, r := range roles {
		out = append(out, RoleGauge{
			Gauge:   PriorityGauge(r.Score, MiniGaugeSize, MiniGaugeStroke),
			Role:    r.Role,
			Caption: r.Label,
			Best:    i == best,
		})
	}
	return out
}
