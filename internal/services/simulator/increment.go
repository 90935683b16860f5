package simulator

import (
	"math"
	"time"

	"BinPulse/internal/domain/models"
	"BinPulse/pkg/util"
)

const (
	jitterMin  = 0.7
	jitterSpan = 0.6

	nearFullLevel   = 90.0
	nearFullDamping = 0.4
	busyLevel       = 80.0
	busyDamping     = 0.7
)

// JitterFactor maps a uniform draw in [0,1) onto the [0.7, 1.3] band.
func JitterFactor(draw float64) float64 {
	return jitterMin + jitterSpan*draw
}

// ComputeIncrement returns the fill delta for one interval. The result is
// never negative and never pushes level past 100.
func ComputeIncrement(p Pattern, level, intervalSeconds float64, at time.Time, jitter float64) float64 {
	if level >= 100 {
		return 0
	}

	inc := p.BaseRate / 3600 * intervalSeconds
	if p.IsPeak(at.Hour()) {
		inc *= p.PeakMultiplier
	}
	if util.IsWeekend(at) {
		inc *= p.WeekendMultiplier
	}
	inc *= jitter

	switch {
	case level > nearFullLevel:
		inc *= nearFullDamping
	case level > busyLevel:
		inc *= busyDamping
	}

	if level+inc > 100 {
		inc = 100 - level
	}
	return math.Max(0, inc)
}

// Calculator binds ComputeIncrement to a pattern table and a random source.
type Calculator struct {
	table *PatternTable
	src   Source
}

func NewCalculator(table *PatternTable, src Source) *Calculator {
	return &Calculator{table: table, src: src}
}

// Increment draws a jitter factor and computes the delta at time at.
func (c *Calculator) Increment(cat models.Category, level, intervalSeconds float64, at time.Time) (float64, error) {
	p, err := c.table.Lookup(cat)
	if err != nil {
		return 0, err
	}
	return ComputeIncrement(p, level, intervalSeconds, at, JitterFactor(c.src.Float64())), nil
}
