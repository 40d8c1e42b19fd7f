package simulator

import (
	"math/rand"
	"time"
)

// Pattern scales a base load for the instant t
type Pattern interface {
	Apply(base float64, t time.Time) float64
	Name() string
}

var (
	PatternSteady Pattern = &SteadyPattern{}
	PatternIdle   Pattern = &IdlePattern{}
	PatternDaily  Pattern = &DailyPattern{}
	PatternWeekly Pattern = &WeeklyPattern{}
	PatternRandom Pattern = &RandomPattern{}
)

func ParsePattern(name string) Pattern {
	switch name {
	case "idle":
		return PatternIdle
	case "daily":
		return PatternDaily
	case "weekly":
		return PatternWeekly
	case "random":
		return PatternRandom
	default:
		return PatternSteady
	}
}

// SteadyPattern - constant load
type SteadyPattern struct{}

func (p *SteadyPattern) Apply(base float64, t time.Time) float64 {
	return base
}

func (p *SteadyPattern) Name() string {
	return "steady"
}

// IdlePattern - no traffic at all, the scale-to-zero case
type IdlePattern struct{}

func (p *IdlePattern) Apply(base float64, t time.Time) float64 {
	return 0
}

func (p *IdlePattern) Name() string {
	return "idle"
}

// DailyPattern - business hours busy, nights empty
type DailyPattern struct{}

func (p *DailyPattern) Apply(base float64, t time.Time) float64 {
	return base * dailyModifier(t.Hour())
}

func (p *DailyPattern) Name() string {
	return "daily"
}

func dailyModifier(hour int) float64 {
	// Peak hours: 9-11 AM and 2-4 PM
	// Nights: no traffic
	switch {
	case hour >= 9 && hour <= 11:
		return 1.4
	case hour >= 14 && hour <= 16:
		return 1.3
	case hour >= 17 && hour <= 20:
		return 0.8
	case hour >= 0 && hour <= 6:
		return 0
	default:
		return 1.0
	}
}

// WeeklyPattern - daily cycle on weekdays, quiet weekends
type WeeklyPattern struct{}

func (p *WeeklyPattern) Apply(base float64, t time.Time) float64 {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return base * 0.2 * dailyModifier(t.Hour())
	}
	return base * dailyModifier(t.Hour())
}

func (p *WeeklyPattern) Name() string {
	return "weekly"
}

// RandomPattern - unpredictable swings between half and one and a half times base
type RandomPattern struct{}

func (p *RandomPattern) Apply(base float64, t time.Time) float64 {
	return base * (0.5 + rand.Float64())
}

func (p *RandomPattern) Name() string {
	return "random"
}
