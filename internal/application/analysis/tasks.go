package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	domain "github.com/bryanwahyu/competeiq/internal/domain/analysis"
)

// ErrTaskNotFound is returned when no background task exists for an id
var ErrTaskNotFound = errors.New("task not found")

// TaskState of a background run
type TaskState string

const (
	TaskRunning  TaskState = "running"
	TaskDone     TaskState = "done"
	TaskFailed   TaskState = "failed"
	TaskCanceled TaskState = "canceled"
)

// Task is the handle of one background analysis run
type Task struct {
	ID     domain.AnalysisID
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.RWMutex
	state TaskState
	err   error
}

// Done is closed when the run returns
func (t *Task) Done() <-chan struct{} { return t.done }

// Err is the run error, nil while running or on success
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

func (t *Task) State() TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Cancel asks the run to stop; the pipeline notices between stages
func (t *Task) Cancel() { t.cancel() }

func (t *Task) finish(err error) {
	t.mu.Lock()
	switch {
	case err == nil:
		t.state = TaskDone
	case errors.Is(err, context.Canceled):
		t.state = TaskCanceled
	default:
		t.state = TaskFailed
	}
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// TaskRegistry owns the goroutines of background runs. Every task context
// derives from base, so canceling base stops all of them.
type TaskRegistry struct {
	base  context.Context
	mu    sync.RWMutex
	tasks map[domain.AnalysisID]*Task
	wg    sync.WaitGroup
}

func NewTaskRegistry(base context.Context) *TaskRegistry {
	return &TaskRegistry{base: base, tasks: make(map[domain.AnalysisID]*Task)}
}

// Go starts fn in its own goroutine and returns its handle
func (r *TaskRegistry) Go(id domain.AnalysisID, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(r.base)
	t := &Task{ID: id, cancel: cancel, done: make(chan struct{}), state: TaskRunning}

	r.mu.Lock()
	r.tasks[id] = t
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		var err error
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("task %s panic: %v", id, p)
			}
			t.finish(err)
		}()
		err = fn(ctx)
	}()
	return t
}

func (r *TaskRegistry) Get(id domain.AnalysisID) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}

func (r *TaskRegistry) Cancel(id domain.AnalysisID) error {
	t, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("cancel %s: %w", id, ErrTaskNotFound)
	}
	t.Cancel()
	return nil
}

// Forget drops a finished task; running tasks are kept
func (r *TaskRegistry) Forget(id domain.AnalysisID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok && t.State() != TaskRunning {
		delete(r.tasks, id)
	}
}

// Running counts tasks that have not returned yet
func (r *TaskRegistry) Running() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.tasks {
		if t.State() == TaskRunning {
			n++
		}
	}
	return n
}

// Wait blocks until every started task has returned
func (r *TaskRegistry) Wait() { r.wg.Wait() }
