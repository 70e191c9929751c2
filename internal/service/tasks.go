package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"knowledgebase/internal/contextutil"
)

// TaskStatus is the lifecycle state of a background task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskRunning   TaskStatus = "RUNNING"
	TaskSucceeded TaskStatus = "SUCCEEDED"
	TaskFailed    TaskStatus = "FAILED"
)

// Task is one supervised background job. Long parses must survive the HTTP
// request that triggered them, so the runner keeps an observable record of
// every job instead of firing goroutines and forgetting them.
type Task struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	TargetID   string     `json:"target_id"`
	Status     TaskStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TaskRunner executes jobs with bounded concurrency and a per-task status
// registry. Jobs run on a context detached from the submitting request.
type TaskRunner struct {
	mu      sync.Mutex
	tasks   map[string]*Task
	sem     chan struct{}
	wg      sync.WaitGroup
	baseCtx context.Context
}

// NewTaskRunner creates a runner allowing at most maxConcurrent jobs at
// once. baseCtx bounds the lifetime of every job; pass the process context.
func NewTaskRunner(baseCtx context.Context, maxConcurrent int) *TaskRunner {
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	return &TaskRunner{
		tasks:   make(map[string]*Task),
		sem:     make(chan struct{}, maxConcurrent),
		baseCtx: baseCtx,
	}
}

// Submit registers a job and schedules it. It never blocks; the job waits
// for a concurrency slot in its own goroutine. The returned snapshot is
// immediately serviceable.
func (r *TaskRunner) Submit(kind, targetID string, fn func(ctx context.Context) error) Task {
	task := &Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		TargetID:  targetID,
		Status:    TaskPending,
		CreatedAt: time.Now().UTC(),
	}
	r.mu.Lock()
	r.tasks[task.ID] = task
	r.mu.Unlock()
	snapshot := *task

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-r.baseCtx.Done():
			r.finish(task.ID, r.baseCtx.Err())
			return
		}

		now := time.Now().UTC()
		r.mu.Lock()
		task.Status = TaskRunning
		task.StartedAt = &now
		r.mu.Unlock()

		err := fn(r.baseCtx)
		if err != nil {
			logger := contextutil.LoggerFromContext(r.baseCtx)
			logger.Warn("background task failed", "task_id", task.ID, "kind", kind, "target_id", targetID, "error", err)
		}
		r.finish(task.ID, err)
	}()
	return snapshot
}

func (r *TaskRunner) finish(id string, err error) {
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return
	}
	task.FinishedAt = &now
	if err != nil {
		task.Status = TaskFailed
		task.Error = err.Error()
	} else {
		task.Status = TaskSucceeded
	}
}

// Get returns a snapshot of a task.
func (r *TaskRunner) Get(id string) (Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// Wait blocks until every submitted job has finished. Used on shutdown and
// in tests.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}
