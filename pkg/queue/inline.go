package queue

import (
	"context"
	"fmt"
	"sync"

	"BinPulse/pkg/logger"
)

// InlineQueue runs jobs synchronously in the publisher's goroutine. It backs
// single-process deployments without Redis; there are no retries.
type InlineQueue struct {
	logger *logger.Logger

	mu   sync.RWMutex
	jobs map[string]Job
}

func NewInlineQueue(lgr *logger.Logger) *InlineQueue {
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &InlineQueue{logger: lgr, jobs: make(map[string]Job)}
}

func (q *InlineQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.jobs[job.Type()]; exists {
		q.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	q.jobs[job.Type()] = job
}

func (q *InlineQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	job, ok := q.jobs[msgType]
	q.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no job for type %q", msgType)
	}
	if err := job.Handle(ctx, payload); err != nil {
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	return nil
}
