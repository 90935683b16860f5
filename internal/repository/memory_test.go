package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"BinPulse/internal/domain/models"
	"BinPulse/internal/domain/repository"
)

func seedBin(t *testing.T, r *MemoryBinRepository, id, code string, cat models.Category, level float64) {
	t.Helper()
	err := r.Create(context.Background(), &models.Bin{
		ID: id, BinID: code, Category: cat, Location: "Block " + code,
		CurrentLevel: level, Status: models.StatusForLevel(level), Capacity: models.DefaultCapacity,
	})
	if err != nil {
		t.Fatalf("create %s: %v", code, err)
	}
}

func TestMemoryBinsListOrderedAndFiltered(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryBinRepository()
	seedBin(t, r, "1", "BIN-P001", models.CategoryPlastic, 45)
	seedBin(t, r, "2", "BIN-O001", models.CategoryOrganic, 92)
	seedBin(t, r, "3", "BIN-P002", models.CategoryPlastic, 78)

	all, _ := r.List(ctx, models.BinFilter{})
	if len(all) != 3 || all[0].BinID != "BIN-O001" || all[2].BinID != "BIN-P001" {
		t.Fatalf("unexpected order: %v %v %v", all[0].BinID, all[1].BinID, all[2].BinID)
	}

	plastic, _ := r.List(ctx, models.BinFilter{Category: models.CategoryPlastic})
	if len(plastic) != 2 {
		t.Fatalf("expected 2 plastic bins, got %d", len(plastic))
	}
	high, _ := r.List(ctx, models.BinFilter{Status: models.StatusHigh})
	if len(high) != 1 || high[0].ID != "2" {
		t.Fatalf("expected only bin 2 HIGH, got %+v", high)
	}
	search, _ := r.List(ctx, models.BinFilter{Search: "p002"})
	if len(search) != 1 {
		t.Fatalf("expected search hit, got %d", len(search))
	}
}

func TestMemoryBinsDuplicateCode(t *testing.T) {
	r := NewMemoryBinRepository()
	seedBin(t, r, "1", "BIN-P001", models.CategoryPlastic, 0)
	err := r.Create(context.Background(), &models.Bin{ID: "2", BinID: "BIN-P001"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestMemoryBinsUpdateLevel(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryBinRepository()
	seedBin(t, r, "1", "BIN-G001", models.CategoryGlass, 96)

	now := time.Now().UTC()
	b, err := r.UpdateLevel(ctx, "1", models.LevelChange{Level: 0, Status: models.StatusLow, LastEmptied: &now})
	if err != nil {
		t.Fatalf("update level: %v", err)
	}
	if b.CurrentLevel != 0 || b.Status != models.StatusLow || !b.LastEmptied.Equal(now) {
		t.Fatalf("unexpected bin %+v", b)
	}

	_ = r.Delete(ctx, "1")
	if _, err := r.UpdateLevel(ctx, "1", models.LevelChange{Level: 10}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if _, err := r.GetByCode(ctx, "BIN-G001"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("code index not cleaned: %v", err)
	}
}

func TestMemoryBinsReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryBinRepository()
	seedBin(t, r, "1", "BIN-M001", models.CategoryMetal, 20)

	b, _ := r.Get(ctx, "1")
	b.CurrentLevel = 99
	again, _ := r.Get(ctx, "1")
	if again.CurrentLevel != 20 {
		t.Fatalf("store mutated through returned pointer")
	}
}

func TestMemoryBinsRenameCode(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryBinRepository()
	seedBin(t, r, "1", "BIN-M001", models.CategoryMetal, 20)
	seedBin(t, r, "2", "BIN-M002", models.CategoryMetal, 20)

	b, _ := r.Get(ctx, "1")
	b.BinID = "BIN-M002"
	if err := r.Update(ctx, b); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate on rename, got %v", err)
	}
	b.BinID = "BIN-M009"
	if err := r.Update(ctx, b); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got, err := r.GetByCode(ctx, "BIN-M009"); err != nil || got.ID != "1" {
		t.Fatalf("renamed code not indexed: %v", err)
	}
}

func TestMemoryRequestsNewestFirstAndOpen(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRequestRepository()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, st := range []models.RequestStatus{models.RequestCompleted, models.RequestPending, models.RequestCancelled} {
		err := r.Create(ctx, &models.ServiceRequest{
			ID: string(rune('a' + i)), UserID: "u1", BinRef: "bin-1", Status: st,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	list, _ := r.List(ctx, models.RequestFilter{UserID: "u1"})
	if len(list) != 3 || list[0].ID != "c" || list[2].ID != "a" {
		t.Fatalf("unexpected order")
	}

	open, _ := r.HasOpenForBin(ctx, "bin-1")
	if !open {
		t.Fatalf("expected open request")
	}
	_ = r.Delete(ctx, "b")
	open, _ = r.HasOpenForBin(ctx, "bin-1")
	if open {
		t.Fatalf("no open request expected after delete")
	}
}
