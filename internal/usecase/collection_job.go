package usecase

import (
	"context"
	"fmt"

	"BinPulse/internal/domain/models"
	applogger "BinPulse/pkg/logger"
	"BinPulse/pkg/queue"
)

// CollectionDueJob files a HIGH priority pickup request for a bin that just
// reached the HIGH tier, unless the bin already has an open request.
type CollectionDueJob struct {
	requests *RequestsUseCase
	log      *applogger.Logger
}

func NewCollectionDueJob(requests *RequestsUseCase, log *applogger.Logger) *CollectionDueJob {
	if log == nil {
		log = applogger.Nop()
	}
	return &CollectionDueJob{requests: requests, log: log}
}

func (j *CollectionDueJob) Name() string { return "collection-due" }

func (j *CollectionDueJob) Type() string { return JobCollectionDue }

func (j *CollectionDueJob) Handle(ctx context.Context, payload interface{}) error {
	due, err := queue.ParsePayload[CollectionDue](payload)
	if err != nil {
		return fmt.Errorf("collection payload: %w", err)
	}
	if due.BinRef == "" {
		return fmt.Errorf("collection payload without bin")
	}

	open, err := j.requests.OpenForBin(ctx, due.BinRef)
	if err != nil {
		return fmt.Errorf("check open requests: %w", err)
	}
	if open {
		j.log.Debug("collection already requested", applogger.String("bin_id", due.BinID))
		return nil
	}

	r := &models.ServiceRequest{
		Type:        models.RequestManualPickup,
		Priority:    models.PriorityHigh,
		BinRef:      due.BinRef,
		Description: fmt.Sprintf("Automatic pickup: %s reached %.1f%% fill", due.BinID, due.Level),
	}
	if err := j.requests.CreateSystem(ctx, r); err != nil {
		return fmt.Errorf("create pickup request: %w", err)
	}
	j.log.Info("pickup request filed",
		applogger.String("bin_id", due.BinID),
		applogger.String("request_id", r.ID),
		applogger.Float64("level", due.Level),
	)
	return nil
}
