package memq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fedutinova/drivescribe/internal/common"
	"github.com/fedutinova/drivescribe/internal/job"
	"github.com/google/uuid"
)

type JobHandler func(ctx context.Context, j *job.Job) error

type JobQueue interface {
	Enqueue(ctx context.Context, j *job.Job) (uuid.UUID, error)
	Status(ctx context.Context, id uuid.UUID) (*job.Job, bool)
	StartConsumers(ctx context.Context, n int, handler JobHandler)
	Prune(olderThan time.Duration) int
	Len() int
	Shutdown(ctx context.Context) error
}

// StatusStore mirrors job status records outside the process.
type StatusStore interface {
	SaveJob(ctx context.Context, j *job.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*job.Job, error)
}

type Option func(*memQueue)

func WithStatusStore(s StatusStore) Option {
	return func(q *memQueue) { q.store = s }
}

type memQueue struct {
	buf     chan *job.Job
	maxWait time.Duration
	store   StatusStore

	mu     sync.RWMutex
	jobs   map[uuid.UUID]*job.Job
	closed bool

	// closed once the queued record is mirrored; later writes wait on it
	mirrored map[uuid.UUID]chan struct{}

	wg sync.WaitGroup
}

func NewMemoryQueue(buffer int, maxJobDuration time.Duration, opts ...Option) JobQueue {
	q := &memQueue{
		buf:     make(chan *job.Job, buffer),
		maxWait: maxJobDuration,
		jobs:    make(map[uuid.UUID]*job.Job, buffer),

		mirrored: make(map[uuid.UUID]chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue never blocks: a full buffer is reported as common.ErrQueueFull.
func (q *memQueue) Enqueue(ctx context.Context, j *job.Job) (uuid.UUID, error) {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	j.Status = job.StatusQueued
	j.Enqueued = time.Now()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return uuid.Nil, common.ErrQueueClosed
	}
	var gate chan struct{}
	if q.store != nil {
		gate = make(chan struct{})
		q.mirrored[j.ID] = gate
	}
	select {
	case q.buf <- j:
		q.jobs[j.ID] = j
	default:
		delete(q.mirrored, j.ID)
		q.mu.Unlock()
		return uuid.Nil, fmt.Errorf("%d jobs pending: %w", cap(q.buf), common.ErrQueueFull)
	}
	snap := j.Snapshot()
	q.mu.Unlock()

	if gate != nil {
		q.mirror(ctx, snap)
		q.mu.Lock()
		delete(q.mirrored, j.ID)
		q.mu.Unlock()
		close(gate)
	}
	return j.ID, nil
}

// Status returns a payload-free copy of the job.
func (q *memQueue) Status(ctx context.Context, id uuid.UUID) (*job.Job, bool) {
	q.mu.RLock()
	j, ok := q.jobs[id]
	var snap *job.Job
	if ok {
		snap = j.Snapshot()
	}
	q.mu.RUnlock()
	if ok {
		return snap, true
	}

	if q.store == nil {
		return nil, false
	}
	stored, err := q.store.GetJob(ctx, id)
	if err != nil {
		if !common.IsNotFound(err) {
			slog.Warn("job status lookup failed", "id", id, "err", err)
		}
		return nil, false
	}
	return stored, true
}

func (q *memQueue) StartConsumers(ctx context.Context, n int, handler JobHandler) {
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go func(workerID int) {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j, ok := <-q.buf:
					if !ok {
						return
					}
					q.run(ctx, workerID, j, handler)
				}
			}
		}(i + 1)
	}
}

func (q *memQueue) run(ctx context.Context, workerID int, j *job.Job, handler JobHandler) {
	q.mu.Lock()
	now := time.Now()
	j.Status = job.StatusRunning
	j.Started = &now
	snap := j.Snapshot()
	gate := q.mirrored[j.ID]
	q.mu.Unlock()
	if gate != nil {
		// a worker can dequeue before Enqueue has mirrored the queued record
		<-gate
	}
	q.mirror(ctx, snap)

	runCtx, cancel := context.WithTimeout(ctx, q.maxWait)
	err := handler(runCtx, j)
	cancel()

	q.mu.Lock()
	fin := time.Now()
	j.Finished = &fin
	if err != nil {
		j.Status = job.StatusFailed
		j.Error = err.Error()
	} else {
		j.Status = job.StatusSucceeded
	}
	snap = j.Snapshot()
	q.mu.Unlock()
	q.mirror(ctx, snap)

	if err != nil {
		slog.Error("job failed", "id", j.ID, "type", j.Type, "err", err, "worker", workerID)
	} else {
		slog.Info("job done", "id", j.ID, "type", j.Type, "worker", workerID, "duration", fin.Sub(now))
	}
}

func (q *memQueue) mirror(ctx context.Context, snap *job.Job) {
	if q.store == nil {
		return
	}
	// status writes must not be lost to an expiring job deadline
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := q.store.SaveJob(storeCtx, snap); err != nil {
		slog.Warn("job status mirror failed", "id", snap.ID, "err", err)
	}
}

// Prune forgets finished jobs older than olderThan and reports how many went.
func (q *memQueue) Prune(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)

	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for id, j := range q.jobs {
		if j.Done() && j.Finished != nil && j.Finished.Before(cutoff) {
			delete(q.jobs, id)
			removed++
		}
	}
	return removed
}

func (q *memQueue) Len() int {
	return len(q.buf)
}

// Shutdown stops accepting jobs and waits for workers to drain the ones
// already accepted, so each still reaches its handler.
func (q *memQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.buf)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue drain: %d jobs still pending: %w", len(q.buf), ctx.Err())
	}
}
