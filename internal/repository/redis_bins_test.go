package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"BinPulse/internal/domain/models"
	"BinPulse/internal/domain/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisBins(t *testing.T) *RedisBinRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBinRepository(client, "test")
}

func createRedisBin(t *testing.T, r *RedisBinRepository, id, code string, level float64) {
	t.Helper()
	err := r.Create(context.Background(), &models.Bin{
		ID: id, BinID: code, Category: models.CategoryPlastic, Location: "Block " + code,
		CurrentLevel: level, Status: models.StatusForLevel(level), Capacity: models.DefaultCapacity,
	})
	if err != nil {
		t.Fatalf("create %s: %v", code, err)
	}
}

func TestRedisBinsIndexFollowsLevel(t *testing.T) {
	ctx := context.Background()
	r := newRedisBins(t)
	createRedisBin(t, r, "1", "BIN-P001", 45)
	createRedisBin(t, r, "2", "BIN-P002", 92)
	createRedisBin(t, r, "3", "BIN-P003", 78)

	if err := r.Create(ctx, &models.Bin{ID: "4", BinID: "BIN-P001"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected duplicate code error, got %v", err)
	}

	if _, err := r.UpdateLevel(ctx, "1", models.LevelChange{Level: 99, Status: models.StatusHigh}); err != nil {
		t.Fatalf("update level: %v", err)
	}
	all, err := r.List(ctx, models.BinFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "1" || all[1].ID != "2" || all[2].ID != "3" {
		t.Fatalf("unexpected order after level change: %v %v %v", all[0].ID, all[1].ID, all[2].ID)
	}

	byCode, err := r.GetByCode(ctx, "BIN-P003")
	if err != nil || byCode.ID != "3" {
		t.Fatalf("get by code: %v %v", byCode, err)
	}

	if err := r.Delete(ctx, "2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := r.Count(ctx); n != 2 {
		t.Fatalf("count after delete = %d", n)
	}
	if _, err := r.GetByCode(ctx, "BIN-P002"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("code index kept deleted bin: %v", err)
	}
	if _, err := r.UpdateLevel(ctx, "2", models.LevelChange{Level: 1}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRedisBinsConcurrentLevelWritesDoNotContend(t *testing.T) {
	ctx := context.Background()
	r := newRedisBins(t)
	const fleet = 16
	for i := 0; i < fleet; i++ {
		createRedisBin(t, r, fmt.Sprint(i), fmt.Sprintf("BIN-P%03d", i), 10)
	}

	var (
		mu       sync.Mutex
		failures []error
	)
	for round := 0; round < 20; round++ {
		var wg sync.WaitGroup
		for i := 0; i < fleet; i++ {
			wg.Add(1)
			go func(id string, level float64) {
				defer wg.Done()
				if _, err := r.UpdateLevel(ctx, id, models.LevelChange{Level: level, Status: models.StatusForLevel(level)}); err != nil {
					mu.Lock()
					failures = append(failures, err)
					mu.Unlock()
				}
			}(fmt.Sprint(i), float64(10+round))
		}
		wg.Wait()
	}
	if len(failures) != 0 {
		t.Fatalf("%d level writes failed, first: %v", len(failures), failures[0])
	}

	all, _ := r.List(ctx, models.BinFilter{})
	for _, b := range all {
		if b.CurrentLevel != 29 {
			t.Fatalf("bin %s level = %v, want 29", b.ID, b.CurrentLevel)
		}
	}
}
