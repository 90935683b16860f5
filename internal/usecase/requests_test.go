package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"BinPulse/internal/domain/models"
	"BinPulse/internal/repository"
	xhttp "BinPulse/pkg/http"
	applogger "BinPulse/pkg/logger"
	"BinPulse/pkg/metrics"
)

var (
	admin = models.Principal{UserID: "admin", Role: models.RoleAdmin}
	alice = models.Principal{UserID: "alice", Role: models.RoleUser}
	bob   = models.Principal{UserID: "bob", Role: models.RoleUser}
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *xhttp.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	return appErr.Status
}

type fixture struct {
	bins     *repository.MemoryBinRepository
	requests *repository.MemoryRequestRepository
	binsUC   *BinsUseCase
	reqUC    *RequestsUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bins:     repository.NewMemoryBinRepository(),
		requests: repository.NewMemoryRequestRepository(),
	}
	f.binsUC = NewBinsUseCase(f.bins, f.requests, metrics.Nop{}, applogger.Nop())
	f.reqUC = NewRequestsUseCase(f.requests, f.bins, applogger.Nop())
	addBin(t, f.bins, "bin-1", "BIN-P001", models.CategoryPlastic, 45, time.Hour)
	return f
}

func TestRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.reqUC.Create(ctx, models.Principal{}, &models.CreateServiceRequest{Type: "MAINTENANCE", Description: "hinge is broken"})
	if statusOf(t, err) != http.StatusUnauthorized {
		t.Fatalf("anonymous create should be unauthorized")
	}
	_, err = f.reqUC.Create(ctx, alice, &models.CreateServiceRequest{Type: "MAINTENANCE", Description: "  too short "})
	if statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("short description should be rejected")
	}

	r, err := f.reqUC.Create(ctx, alice, &models.CreateServiceRequest{
		Type: "MANUAL_PICKUP", Description: "bin is overflowing", BinRef: "bin-1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Status != models.RequestPending || r.Priority != models.PriorityNormal || r.Bin == nil || r.Bin.BinID != "BIN-P001" {
		t.Fatalf("unexpected request %+v", r)
	}

	if _, err := f.reqUC.Get(ctx, bob, r.ID); statusOf(t, err) != http.StatusForbidden {
		t.Fatalf("bob should not read alice's request")
	}
	if _, err := f.reqUC.Get(ctx, admin, r.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}

	list, err := f.reqUC.List(ctx, bob, &models.ListRequestsRequest{})
	if err != nil || len(list) != 0 {
		t.Fatalf("bob should see nothing: %v %v", list, err)
	}
	list, _ = f.reqUC.List(ctx, admin, &models.ListRequestsRequest{})
	if len(list) != 1 {
		t.Fatalf("admin should see all requests, got %d", len(list))
	}

	if _, err := f.reqUC.UpdateStatus(ctx, alice, r.ID, &models.UpdateRequestStatusRequest{Status: "COMPLETED"}); statusOf(t, err) != http.StatusForbidden {
		t.Fatalf("owner must not change status")
	}
	notes := "crew dispatched"
	r, err = f.reqUC.UpdateStatus(ctx, admin, r.ID, &models.UpdateRequestStatusRequest{Status: "IN_PROGRESS", AdminNotes: &notes})
	if err != nil || r.Status != models.RequestInProgress || r.AdminNotes != notes {
		t.Fatalf("status update: %+v %v", r, err)
	}

	r, err = f.reqUC.Update(ctx, alice, r.ID, &models.UpdateServiceRequest{ClearBin: true})
	if err != nil || r.BinRef != "" || r.Bin != nil {
		t.Fatalf("clear bin: %+v %v", r, err)
	}

	if err := f.reqUC.Delete(ctx, bob, r.ID); statusOf(t, err) != http.StatusForbidden {
		t.Fatalf("bob must not delete")
	}
	if err := f.reqUC.Delete(ctx, alice, r.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := f.reqUC.Get(ctx, alice, r.ID); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("deleted request still readable")
	}
}

func TestCreateRequestUnknownBin(t *testing.T) {
	f := newFixture(t)
	_, err := f.reqUC.Create(context.Background(), alice, &models.CreateServiceRequest{
		Type: "MAINTENANCE", Description: "lid will not close", BinRef: "nope",
	})
	if statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("expected 404")
	}
}

func TestCollectionDueJobFilesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := NewCollectionDueJob(f.reqUC, applogger.Nop())

	due := CollectionDue{BinRef: "bin-1", BinID: "BIN-P001", Level: 81.5, At: tickNow}
	if err := job.Handle(ctx, due); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := job.Handle(ctx, []byte(`{"binRef":"bin-1","binId":"BIN-P001","level":83}`)); err != nil {
		t.Fatalf("second handle: %v", err)
	}

	list, _ := f.requests.List(ctx, models.RequestFilter{BinRef: "bin-1"})
	if len(list) != 1 {
		t.Fatalf("expected a single pickup request, got %d", len(list))
	}
	r := list[0]
	if r.Type != models.RequestManualPickup || r.Priority != models.PriorityHigh || r.UserID != models.SystemPrincipal.UserID {
		t.Fatalf("unexpected request %+v", r)
	}

	if err := job.Handle(ctx, CollectionDue{}); err == nil {
		t.Fatalf("payload without bin should fail")
	}
	if err := job.Handle(ctx, 7); err == nil {
		t.Fatalf("bad payload type should fail")
	}
}

func TestBinPermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req := &models.CreateBinRequest{BinID: "BIN-X001", Category: "METAL", Location: "Dock", Capacity: 100}
	if _, err := f.binsUC.Create(ctx, alice, req); statusOf(t, err) != http.StatusForbidden {
		t.Fatalf("non-admin create should be forbidden")
	}
	b, err := f.binsUC.Create(ctx, admin, req)
	if err != nil {
		t.Fatalf("admin create: %v", err)
	}
	if b.CurrentLevel != 0 || b.Status != models.StatusLow || b.CreatedBy != "admin" {
		t.Fatalf("unexpected bin %+v", b)
	}
	if _, err := f.binsUC.Create(ctx, admin, req); statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("duplicate code should be 400")
	}

	loc := "Loading bay"
	if _, err := f.binsUC.Update(ctx, alice, b.ID, &models.UpdateBinRequest{Location: &loc}); statusOf(t, err) != http.StatusForbidden {
		t.Fatalf("non-creator update should be forbidden")
	}
	level := 83.0
	b, err = f.binsUC.Update(ctx, admin, b.ID, &models.UpdateBinRequest{Location: &loc, CurrentLevel: &level})
	if err != nil || b.Location != loc || b.Status != models.StatusHigh {
		t.Fatalf("update: %+v %v", b, err)
	}

	code := "BIN-P001"
	if _, err := f.binsUC.Update(ctx, admin, b.ID, &models.UpdateBinRequest{BinID: &code}); statusOf(t, err) != http.StatusBadRequest {
		t.Fatalf("renaming onto an existing code should be 400")
	}

	if err := f.binsUC.Delete(ctx, alice, b.ID); statusOf(t, err) != http.StatusForbidden {
		t.Fatalf("non-creator delete should be forbidden")
	}
	if err := f.binsUC.Delete(ctx, admin, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.binsUC.Get(ctx, b.ID); statusOf(t, err) != http.StatusNotFound {
		t.Fatalf("deleted bin still readable")
	}
}

func TestGetBinIncludesRecentRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 7; i++ {
		if _, err := f.reqUC.Create(ctx, alice, &models.CreateServiceRequest{
			Type: "MAINTENANCE", Description: "sensor reading looks off", BinRef: "bin-1",
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	d, err := f.binsUC.Get(ctx, "bin-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(d.Requests) != 5 {
		t.Fatalf("expected 5 recent requests, got %d", len(d.Requests))
	}
}
