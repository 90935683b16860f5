package simulator

import (
	"math"
	"testing"
	"time"

	"BinPulse/internal/domain/models"
)

// Wednesday 2024-03-13 and Saturday 2024-03-16.
func weekdayAt(hour int) time.Time { return time.Date(2024, 3, 13, hour, 0, 0, 0, time.UTC) }
func weekendAt(hour int) time.Time { return time.Date(2024, 3, 16, hour, 0, 0, 0, time.UTC) }

func TestOrganicPeakScenario(t *testing.T) {
	p, _ := DefaultPatterns().Lookup(models.CategoryOrganic)
	inc := ComputeIncrement(p, 68, 30, weekdayAt(12), 1.0)
	if math.Abs(inc-0.5) > 1e-9 {
		t.Fatalf("expected 0.5, got %v", inc)
	}
	if got := 68 + inc; math.Abs(got-68.5) > 1e-9 {
		t.Fatalf("expected new level 68.5, got %v", got)
	}
}

func TestIncrementBounds(t *testing.T) {
	table := DefaultPatterns()
	for _, c := range models.Categories() {
		p, err := table.Lookup(c)
		if err != nil {
			t.Fatalf("lookup %s: %v", c, err)
		}
		for level := 0.0; level < 100; level += 0.37 {
			for hour := 0; hour < 24; hour++ {
				for _, at := range []time.Time{weekdayAt(hour), weekendAt(hour)} {
					for _, jitter := range []float64{0.7, 1.0, 1.3} {
						v := ComputeIncrement(p, level, 3600, at, jitter)
						if v < 0 {
							t.Fatalf("%s level=%v: negative increment %v", c, level, v)
						}
						if level+v > 100+1e-9 {
							t.Fatalf("%s level=%v: overshoot to %v", c, level, level+v)
						}
					}
				}
			}
		}
	}
}

func TestIncrementAtFullIsZero(t *testing.T) {
	table := DefaultPatterns()
	for _, c := range models.Categories() {
		p, _ := table.Lookup(c)
		for hour := 0; hour < 24; hour++ {
			if v := ComputeIncrement(p, 100, 86400, weekendAt(hour), 1.3); v != 0 {
				t.Fatalf("%s hour %d: expected 0 at full, got %v", c, hour, v)
			}
		}
	}
}

func TestIncrementClampsNearFull(t *testing.T) {
	p, _ := DefaultPatterns().Lookup(models.CategoryOrganic)
	v := ComputeIncrement(p, 99.9, 86400, weekendAt(12), 1.3)
	if math.Abs(v-0.1) > 1e-9 {
		t.Fatalf("expected clamp to 0.1, got %v", v)
	}
}

func TestPeakHourScalesIncrement(t *testing.T) {
	p, _ := DefaultPatterns().Lookup(models.CategoryPlastic)
	peak := ComputeIncrement(p, 10, 30, weekdayAt(12), 1.0)
	off := ComputeIncrement(p, 10, 30, weekdayAt(11), 1.0)
	if peak <= off {
		t.Fatalf("peak %v should exceed off-peak %v", peak, off)
	}
	if math.Abs(peak/off-p.PeakMultiplier) > 1e-9 {
		t.Fatalf("expected ratio %v, got %v", p.PeakMultiplier, peak/off)
	}
}

func TestWeekendMultiplier(t *testing.T) {
	p, _ := DefaultPatterns().Lookup(models.CategoryPaper)
	wd := ComputeIncrement(p, 10, 30, weekdayAt(3), 1.0)
	we := ComputeIncrement(p, 10, 30, weekendAt(3), 1.0)
	if math.Abs(we/wd-0.6) > 1e-9 {
		t.Fatalf("expected weekend ratio 0.6, got %v", we/wd)
	}
}

func TestDampingTiers(t *testing.T) {
	p, _ := DefaultPatterns().Lookup(models.CategoryMetal)
	low := ComputeIncrement(p, 50, 30, weekdayAt(3), 1.0)
	busy := ComputeIncrement(p, 85, 30, weekdayAt(3), 1.0)
	full := ComputeIncrement(p, 95, 30, weekdayAt(3), 1.0)
	if math.Abs(busy/low-0.7) > 1e-9 {
		t.Fatalf("expected 0.7 damping above 80, got %v", busy/low)
	}
	if math.Abs(full/low-0.4) > 1e-9 {
		t.Fatalf("expected 0.4 damping above 90, got %v", full/low)
	}
}

func TestJitterFactorBand(t *testing.T) {
	if JitterFactor(0) != 0.7 {
		t.Fatalf("lower bound wrong")
	}
	if math.Abs(JitterFactor(1)-1.3) > 1e-12 {
		t.Fatalf("upper bound wrong")
	}
}

func TestCalculatorDeterministicWithFixedDraw(t *testing.T) {
	c := NewCalculator(DefaultPatterns(), FixedSource(0.25))
	a, err := c.Increment(models.CategoryGlass, 40, 30, weekdayAt(18))
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	b, _ := c.Increment(models.CategoryGlass, 40, 30, weekdayAt(18))
	if a != b {
		t.Fatalf("expected identical results, got %v and %v", a, b)
	}
}

func TestCalculatorUnknownCategory(t *testing.T) {
	c := NewCalculator(DefaultPatterns(), FixedSource(0.5))
	if _, err := c.Increment(models.Category("WOOD"), 10, 30, weekdayAt(1)); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}
