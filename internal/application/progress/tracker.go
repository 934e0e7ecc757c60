package progress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
	"github.com/bryanwahyu/competeiq/internal/logger"
)

// ErrUnknownRun is returned when an update targets an id that was never started
// or has already been cleaned up.
var ErrUnknownRun = errors.New("unknown analysis run")

// NotifyFunc receives every step transition
type NotifyFunc func(stage analysis.StageName, progress int, status analysis.StageStatus, message string)

type run struct {
	snap   analysis.Snapshot
	notify NotifyFunc
}

// Tracker keeps the in-memory progress of every active run
type Tracker struct {
	mu   sync.RWMutex
	runs map[analysis.AnalysisID]*run
}

func NewTracker() *Tracker {
	return &Tracker{runs: make(map[analysis.AnalysisID]*run)}
}

// Start registers a run with every stage pending. Starting an id twice resets it.
func (t *Tracker) Start(id analysis.AnalysisID, stages []analysis.StageSpec, notify NotifyFunc) {
	steps := make([]analysis.Step, 0, len(stages))
	for _, s := range stages {
		steps = append(steps, analysis.Step{
			Name:     s.Name,
			Status:   analysis.StagePending,
			Progress: 0,
			Agent:    s.Agent,
		})
	}
	current := analysis.CurrentStepUnknown
	if len(steps) > 0 {
		current = string(steps[0].Name)
	}

	t.mu.Lock()
	t.runs[id] = &run{
		snap:   analysis.Snapshot{CurrentStep: current, Progress: 0, Steps: steps},
		notify: notify,
	}
	t.mu.Unlock()
}

// Update sets one stage and recomputes the aggregate, then notifies outside the lock
func (t *Tracker) Update(id analysis.AnalysisID, stage analysis.StageName, progress int, status analysis.StageStatus) error {
	t.mu.Lock()
	r, ok := t.runs[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("update %s: %w", id, ErrUnknownRun)
	}
	found := false
	for i := range r.snap.Steps {
		if r.snap.Steps[i].Name == stage {
			r.snap.Steps[i].Status = status
			r.snap.Steps[i].Progress = progress
			found = true
			break
		}
	}
	if !found {
		t.mu.Unlock()
		return fmt.Errorf("update %s: stage %q not tracked", id, stage)
	}
	r.snap.CurrentStep = string(stage)
	r.snap.Progress = aggregate(r.snap.Steps)
	notify := r.notify
	t.mu.Unlock()

	if notify != nil {
		safeNotify(id, notify, stage, progress, status)
	}
	return nil
}

// safeNotify keeps a failing push from reaching the pipeline
func safeNotify(id analysis.AnalysisID, notify NotifyFunc, stage analysis.StageName, progress int, status analysis.StageStatus) {
	defer func() {
		if p := recover(); p != nil {
			logger.WithAnalysis(string(id)).WithField("stage", stage).Warnf("progress callback failed: %v", p)
		}
	}()
	notify(stage, progress, status, fmt.Sprintf("Step %s %s", stage, status))
}

// MarkDegraded flags a stage whose output came from the fallback
func (t *Tracker) MarkDegraded(id analysis.AnalysisID, stage analysis.StageName) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.runs[id]
	if !ok {
		return fmt.Errorf("mark degraded %s: %w", id, ErrUnknownRun)
	}
	for i := range r.snap.Steps {
		if r.snap.Steps[i].Name == stage {
			r.snap.Steps[i].Degraded = true
		}
	}
	return nil
}

func (t *Tracker) Complete(id analysis.AnalysisID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.runs[id]
	if !ok {
		return fmt.Errorf("complete %s: %w", id, ErrUnknownRun)
	}
	r.snap.CurrentStep = analysis.CurrentStepCompleted
	r.snap.Progress = 100
	return nil
}

func (t *Tracker) Fail(id analysis.AnalysisID, cause error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.runs[id]
	if !ok {
		return fmt.Errorf("fail %s: %w", id, ErrUnknownRun)
	}
	r.snap.CurrentStep = analysis.CurrentStepFailed
	if cause != nil {
		r.snap.Error = cause.Error()
	}
	return nil
}

// Get returns a copy of the run, or the unknown sentinel
func (t *Tracker) Get(id analysis.AnalysisID) analysis.Snapshot {
	snap, ok := t.Lookup(id)
	if !ok {
		return analysis.UnknownSnapshot()
	}
	return snap
}

func (t *Tracker) Lookup(id analysis.AnalysisID) (analysis.Snapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.runs[id]
	if !ok {
		return analysis.Snapshot{}, false
	}
	out := r.snap
	out.Steps = append([]analysis.Step(nil), r.snap.Steps...)
	return out, true
}

// Cleanup drops the run; unknown ids are ignored
func (t *Tracker) Cleanup(id analysis.AnalysisID) {
	t.mu.Lock()
	delete(t.runs, id)
	t.mu.Unlock()
}

// Len reports the number of tracked runs
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.runs)
}

func aggregate(steps []analysis.Step) int {
	if len(steps) == 0 {
		return 0
	}
	done := 0
	for _, s := range steps {
		if s.Status == analysis.StageCompleted {
			done++
		}
	}
	return done * 100 / len(steps)
}
