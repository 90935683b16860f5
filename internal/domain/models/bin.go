package models

import (
	"fmt"
	"strings"
	"time"
)

// Category identifies a waste stream.
type Category string

const (
	CategoryPlastic Category = "PLASTIC"
	CategoryPaper   Category = "PAPER"
	CategoryMetal   Category = "METAL"
	CategoryOrganic Category = "ORGANIC"
	CategoryGlass   Category = "GLASS"
	CategoryEWaste  Category = "EWASTE"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{CategoryPlastic, CategoryPaper, CategoryMetal, CategoryOrganic, CategoryGlass, CategoryEWaste}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryPlastic, CategoryPaper, CategoryMetal, CategoryOrganic, CategoryGlass, CategoryEWaste:
		return true
	}
	return false
}

// ParseCategory is case-insensitive.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// BinStatus is the three-tier priority derived from the fill level.
type BinStatus string

const (
	StatusLow    BinStatus = "LOW"
	StatusMedium BinStatus = "MEDIUM"
	StatusHigh   BinStatus = "HIGH"
)

const (
	MediumThreshold = 50.0
	HighThreshold   = 80.0
)

// StatusForLevel maps a level to LOW (<=50), MEDIUM (<=80) or HIGH.
func StatusForLevel(level float64) BinStatus {
	switch {
	case level <= MediumThreshold:
		return StatusLow
	case level <= HighThreshold:
		return StatusMedium
	default:
		return StatusHigh
	}
}

func (s BinStatus) Valid() bool {
	return s == StatusLow || s == StatusMedium || s == StatusHigh
}

const DefaultCapacity = 100

// Bin is a physical waste container. ID is the storage key, BinID the
// human readable code printed on the bin (e.g. BIN-P001).
type Bin struct {
	ID           string    `json:"id"`
	BinID        string    `json:"binId"`
	Category     Category  `json:"category"`
	Location     string    `json:"location"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Capacity     int       `json:"capacity"`
	CurrentLevel float64   `json:"currentLevel"`
	Status       BinStatus `json:"status"`
	LastEmptied  time.Time `json:"lastEmptied"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary is the slim view embedded in service requests.
func (b *Bin) Summary() *BinSummary {
	return &BinSummary{
		BinID:        b.BinID,
		Category:     b.Category,
		Location:     b.Location,
		CurrentLevel: b.CurrentLevel,
	}
}

type BinSummary struct {
	BinID        string   `json:"binId"`
	Category     Category `json:"category"`
	Location     string   `json:"location"`
	CurrentLevel float64  `json:"currentLevel"`
}

// BinFilter narrows List results. Empty fields match everything.
type BinFilter struct {
	Category Category
	Status   BinStatus
	Search   string
}

// Matches applies the filter in memory.
func (f BinFilter) Matches(b *Bin) bool {
	if f.Category != "" && b.Category != f.Category {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(b.BinID), q) && !strings.Contains(strings.ToLower(b.Location), q) {
			return false
		}
	}
	return true
}

// LevelChange is what the simulator persists for one bin.
type LevelChange struct {
	Level       float64
	Status      BinStatus
	LastEmptied *time.Time
}

// BinDetail is a bin with its most recent service requests.
type BinDetail struct {
	*Bin
	Requests []*ServiceRequest `json:"requests"`
}
