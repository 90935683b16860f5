package simulator

import (
	"errors"
	"testing"

	"BinPulse/internal/domain/models"
)

func TestDefaultPatternsCoverAllCategories(t *testing.T) {
	table := DefaultPatterns()
	for _, c := range models.Categories() {
		p, err := table.Lookup(c)
		if err != nil {
			t.Fatalf("missing %s", c)
		}
		if p.BaseRate <= 0 || p.PeakMultiplier < 1 || p.WeekendMultiplier <= 0 {
			t.Fatalf("%s violates pattern invariants: %+v", c, p)
		}
	}
}

func TestNewPatternRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		base float64
		hrs  []int
		peak float64
		wknd float64
	}{
		{"zero base", 0, nil, 1, 1},
		{"peak below one", 10, nil, 0.9, 1},
		{"zero weekend", 10, nil, 1, 0},
		{"hour out of range", 10, []int{24}, 1, 1},
	}
	for _, tc := range cases {
		if _, err := NewPattern(tc.base, tc.hrs, tc.peak, tc.wknd); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestNewPatternTableRequiresEveryCategory(t *testing.T) {
	_, err := NewPatternTable(map[models.Category]Pattern{
		models.CategoryPlastic: mustPattern(15, nil, 1, 1),
	})
	if err == nil {
		t.Fatalf("expected missing category error")
	}
}

func TestWithOverrides(t *testing.T) {
	base := DefaultPatterns()
	table, err := base.WithOverrides(map[models.Category]Pattern{
		models.CategoryGlass: {BaseRate: 4, PeakHours: []int{22, 22, 23}, PeakMultiplier: 1.5, WeekendMultiplier: 1},
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	p, _ := table.Lookup(models.CategoryGlass)
	if p.BaseRate != 4 || !p.IsPeak(22) || p.IsPeak(18) || len(p.PeakHours) != 2 {
		t.Fatalf("override not applied: %+v", p)
	}
	orig, _ := base.Lookup(models.CategoryGlass)
	if orig.BaseRate != 8 {
		t.Fatalf("base table mutated")
	}

	_, err = base.WithOverrides(map[models.Category]Pattern{"WOOD": {BaseRate: 1, PeakMultiplier: 1, WeekendMultiplier: 1}})
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected unknown category, got %v", err)
	}
}
