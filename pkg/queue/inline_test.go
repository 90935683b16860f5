package queue

import (
	"context"
	"errors"
	"testing"
)

type recordingJob struct {
	got []interface{}
	err error
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "test.recorded" }
func (j *recordingJob) Handle(_ context.Context, payload interface{}) error {
	j.got = append(j.got, payload)
	return j.err
}

func TestInlineQueueDispatches(t *testing.T) {
	q := NewInlineQueue(nil)
	job := &recordingJob{}
	q.RegisterJob(job)

	if err := q.PublishMessage(context.Background(), "test.recorded", collectionPayload{BinID: "BIN-P001"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(job.got) != 1 {
		t.Fatalf("expected one delivery, got %d", len(job.got))
	}
	if err := q.PublishMessage(context.Background(), "test.unknown", nil); err == nil {
		t.Fatalf("unknown type should fail")
	}

	job.err = errors.New("boom")
	if err := q.PublishMessage(context.Background(), "test.recorded", nil); !errors.Is(err, job.err) {
		t.Fatalf("job error should propagate, got %v", err)
	}
}
