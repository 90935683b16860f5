package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BinPulse/internal/domain/models"
	drepo "BinPulse/internal/domain/repository"
	"BinPulse/internal/services/simulator"
	applogger "BinPulse/pkg/logger"

	"github.com/google/uuid"
)

type demoBin struct {
	code     string
	category models.Category
	location string
	lat, lng float64
	level    float64
}

var demoBins = []demoBin{
	{"BIN-P001", models.CategoryPlastic, "Main Entrance", 40.7128, -74.0060, 45},
	{"BIN-P002", models.CategoryPlastic, "Cafeteria", 40.7138, -74.0070, 72},
	{"BIN-P003", models.CategoryPlastic, "Parking Lot A", 40.7118, -74.0050, 88},
	{"BIN-PA001", models.CategoryPaper, "Office Building 1", 40.7148, -74.0080, 35},
	{"BIN-PA002", models.CategoryPaper, "Library", 40.7158, -74.0090, 65},
	{"BIN-PA003", models.CategoryPaper, "Print Room", 40.7108, -74.0040, 92},
	{"BIN-M001", models.CategoryMetal, "Workshop", 40.7168, -74.0100, 28},
	{"BIN-M002", models.CategoryMetal, "Recycling Center", 40.7098, -74.0030, 54},
	{"BIN-O001", models.CategoryOrganic, "Kitchen", 40.7178, -74.0110, 68},
	{"BIN-O002", models.CategoryOrganic, "Garden Area", 40.7088, -74.0020, 41},
	{"BIN-O003", models.CategoryOrganic, "Composting Site", 40.7188, -74.0120, 85},
	{"BIN-G001", models.CategoryGlass, "Bar Area", 40.7078, -74.0010, 22},
	{"BIN-G002", models.CategoryGlass, "Reception", 40.7198, -74.0130, 59},
	{"BIN-E001", models.CategoryEWaste, "IT Department", 40.7068, -74.0000, 33},
	{"BIN-E002", models.CategoryEWaste, "Electronics Store", 40.7208, -74.0140, 76},
}

// SeedDemoBins inserts the demo fleet when the store is empty. lastEmptied
// is spread randomly over the past week.
func SeedDemoBins(ctx context.Context, bins drepo.BinRepository, src simulator.Source, log *applogger.Logger) (int, error) {
	n, err := bins.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count bins: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	week := float64(7 * 24 * time.Hour)
	created := 0
	for _, d := range demoBins {
		lat, lng := d.lat, d.lng
		b := &models.Bin{
			ID:           uuid.NewString(),
			BinID:        d.code,
			Category:     d.category,
			Location:     d.location,
			Latitude:     &lat,
			Longitude:    &lng,
			Capacity:     models.DefaultCapacity,
			CurrentLevel: d.level,
			Status:       models.StatusForLevel(d.level),
			LastEmptied:  now.Add(-time.Duration(src.Float64() * week)),
			CreatedBy:    models.SystemPrincipal.UserID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := bins.Create(ctx, b); err != nil {
			if errors.Is(err, drepo.ErrDuplicate) {
				continue
			}
			return created, fmt.Errorf("seed %s: %w", d.code, err)
		}
		created++
	}
	if log != nil {
		log.Info("demo bins seeded", applogger.Int("count", created))
	}
	return created, nil
}
