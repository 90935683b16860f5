package simulator

import (
	"errors"
	"fmt"
	"sort"

	"BinPulse/internal/domain/models"
)

var ErrUnknownCategory = errors.New("simulator: unknown category")

// Pattern describes how fast and when a category fills.
// BaseRate is percent per hour.
type Pattern struct {
	BaseRate          float64
	PeakHours         []int
	PeakMultiplier    float64
	WeekendMultiplier float64

	peak [24]bool
}

// NewPattern validates the pattern and indexes its peak hours.
func NewPattern(baseRate float64, peakHours []int, peakMultiplier, weekendMultiplier float64) (Pattern, error) {
	p := Pattern{
		BaseRate:          baseRate,
		PeakMultiplier:    peakMultiplier,
		WeekendMultiplier: weekendMultiplier,
	}
	if baseRate <= 0 {
		return p, fmt.Errorf("base rate must be > 0, got %v", baseRate)
	}
	if peakMultiplier < 1 {
		return p, fmt.Errorf("peak multiplier must be >= 1, got %v", peakMultiplier)
	}
	if weekendMultiplier <= 0 {
		return p, fmt.Errorf("weekend multiplier must be > 0, got %v", weekendMultiplier)
	}
	hours := make([]int, 0, len(peakHours))
	for _, h := range peakHours {
		if h < 0 || h > 23 {
			return p, fmt.Errorf("peak hour %d out of range 0-23", h)
		}
		if !p.peak[h] {
			p.peak[h] = true
			hours = append(hours, h)
		}
	}
	sort.Ints(hours)
	p.PeakHours = hours
	return p, nil
}

func mustPattern(baseRate float64, peakHours []int, peakMultiplier, weekendMultiplier float64) Pattern {
	p, err := NewPattern(baseRate, peakHours, peakMultiplier, weekendMultiplier)
	if err != nil {
		panic(err)
	}
	return p
}

// IsPeak reports whether hour (0-23) is a peak hour.
func (p Pattern) IsPeak(hour int) bool {
	if hour < 0 || hour > 23 {
		return false
	}
	return p.peak[hour]
}

// PatternTable maps every category to its pattern. It is immutable once built.
type PatternTable struct {
	patterns map[models.Category]Pattern
}

// DefaultPatterns returns the built-in tuning for the six categories.
func DefaultPatterns() *PatternTable {
	return &PatternTable{patterns: map[models.Category]Pattern{
		models.CategoryPlastic: mustPattern(15, []int{12, 13, 18, 19}, 2.5, 1.2),
		models.CategoryPaper:   mustPattern(12, []int{9, 10, 14, 15}, 2.0, 0.6),
		models.CategoryMetal:   mustPattern(10, []int{12, 13, 18, 19}, 1.8, 1.3),
		models.CategoryOrganic: mustPattern(20, []int{7, 8, 12, 13, 18, 19, 20}, 3.0, 1.4),
		models.CategoryGlass:   mustPattern(8, []int{17, 18, 19, 20, 21}, 2.2, 1.8),
		models.CategoryEWaste:  mustPattern(6, []int{10, 11, 15, 16}, 1.5, 0.8),
	}}
}

// NewPatternTable builds a table that must cover every category.
func NewPatternTable(patterns map[models.Category]Pattern) (*PatternTable, error) {
	t := &PatternTable{patterns: make(map[models.Category]Pattern, len(patterns))}
	for c, p := range patterns {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, c)
		}
		checked, err := NewPattern(p.BaseRate, p.PeakHours, p.PeakMultiplier, p.WeekendMultiplier)
		if err != nil {
			return nil, fmt.Errorf("pattern %s: %w", c, err)
		}
		t.patterns[c] = checked
	}
	for _, c := range models.Categories() {
		if _, ok := t.patterns[c]; !ok {
			return nil, fmt.Errorf("pattern table: missing category %s", c)
		}
	}
	return t, nil
}

// WithOverrides returns a copy with the given categories replaced.
func (t *PatternTable) WithOverrides(overrides map[models.Category]Pattern) (*PatternTable, error) {
	merged := make(map[models.Category]Pattern, len(t.patterns))
	for c, p := range t.patterns {
		merged[c] = p
	}
	for c, p := range overrides {
		merged[c] = p
	}
	return NewPatternTable(merged)
}

// Lookup returns the pattern for c.
func (t *PatternTable) Lookup(c models.Category) (Pattern, error) {
	p, ok := t.patterns[c]
	if !ok {
		return Pattern{}, fmt.Errorf("%w: %s", ErrUnknownCategory, c)
	}
	return p, nil
}
