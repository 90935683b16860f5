package simulator

import (
	"fmt"
	"time"

	"BinPulse/internal/domain/models"
	"BinPulse/pkg/util"
)

// TickResult is the proposed outcome for one bin. It is not retained.
type TickResult struct {
	OldLevel   float64
	NewLevel   float64
	Increment  float64
	WasEmptied bool
	At         time.Time
}

// Changed reports whether the level moved by more than epsilon.
func (r TickResult) Changed(epsilon float64) bool {
	if r.WasEmptied {
		return true
	}
	d := r.NewLevel - r.OldLevel
	if d < 0 {
		d = -d
	}
	return d > epsilon
}

// Engine runs the decider and the calculator for one bin per call.
type Engine struct {
	calc    *Calculator
	decider *Decider
	clock   Clock
}

func NewEngine(calc *Calculator, decider *Decider, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{calc: calc, decider: decider, clock: clock}
}

// Step evaluates one bin over intervalSeconds. A single clock reading is used
// for both the collection age and the hour-of-day.
func (e *Engine) Step(b *models.Bin, intervalSeconds float64) (TickResult, error) {
	now := e.clock.Now()
	res := TickResult{OldLevel: b.CurrentLevel, At: now}

	if e.decider.ShouldEmpty(b.CurrentLevel, util.MinutesSince(b.LastEmptied, now)) {
		res.NewLevel = 0
		res.WasEmptied = true
		return res, nil
	}

	inc, err := e.calc.Increment(b.Category, b.CurrentLevel, intervalSeconds, now)
	if err != nil {
		return res, fmt.Errorf("bin %s: %w", b.BinID, err)
	}
	res.Increment = inc
	res.NewLevel = clampLevel(b.CurrentLevel + inc)
	return res, nil
}

func (e *Engine) Now() time.Time { return e.clock.Now() }

func clampLevel(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// FormatUpdate renders the per-bin line returned in tick summaries.
func FormatUpdate(binID string, cat models.Category, oldLevel, newLevel float64, emptied bool) string {
	if emptied {
		return fmt.Sprintf("🚛 %s (%s) EMPTIED: %.1f%% → 0%%", binID, cat, oldLevel)
	}
	change := newLevel - oldLevel
	arrow := "="
	if change > 0 {
		arrow = "↑"
	}
	return fmt.Sprintf("📊 %s (%s) %s %.1f%% → %.1f%% (+%.1f%%)", binID, cat, arrow, oldLevel, newLevel, change)
}
