package luminara

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"
)

// FailurePolicy decides what a run does after a task fails.
type FailurePolicy uint8

const (
	// FailAbort stops the run after the batch containing the failure and
	// returns the failures.
	FailAbort FailurePolicy = iota
	// FailContinue logs each failure, publishes TaskFailed and carries on.
	FailContinue
)

func (p FailurePolicy) String() string {
	switch p {
	case FailAbort:
		return "abort"
	case FailContinue:
		return "continue"
	}
	return fmt.Sprintf("FailurePolicy(%d)", uint8(p))
}

// ParseFailurePolicy parses "abort" or "continue".
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(s) {
	case "abort", "":
		return FailAbort, nil
	case "continue":
		return FailContinue, nil
	}
	return 0, fmt.Errorf("unknown failure policy %q", s)
}

// Option configures a Schedule.
type Option func(*Schedule)

// WithWorkers bounds the number of tasks of one batch that run at the same
// time. Values below one are ignored.
func WithWorkers(n int) Option {
	return func(s *Schedule) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithFailurePolicy sets what happens after a task fails. The default is
// FailAbort.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(s *Schedule) { s.policy = p }
}

// WithTaskTimeout fails a run with a *TimeoutError when a batch takes longer
// than d. The tasks of that batch cannot be stopped, so the schedule refuses
// every later run with ErrSchedulePoisoned. Zero disables the timeout.
func WithTaskTimeout(d time.Duration) Option {
	return func(s *Schedule) { s.timeout = d }
}

// WithLogger sets the logger for stage, batch and failure records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Schedule) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records run statistics into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Schedule) { s.metrics = m }
}

// WithEventBus publishes lifecycle events to bus.
func WithEventBus(bus *EventBus) Option {
	return func(s *Schedule) { s.bus = bus }
}

type stageSlot struct {
	entries []*entry
	batches []*batch // nil when the task list changed since the last plan
	retired bool
	status  StageStatus
}

// Schedule holds the tasks of every stage and runs them against a World.
// Within a stage, tasks are grouped into batches of mutually compatible
// access; batches run in order and the tasks of one batch run concurrently.
//
// Registration is rejected while a run is in progress.
type Schedule struct {
	mu       sync.Mutex
	stages   [stageCount]stageSlot
	index    typeIndex
	seen     map[Task]struct{}
	running  bool
	poisoned bool

	workers int
	policy  FailurePolicy
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
	bus     *EventBus
}

// NewSchedule creates an empty schedule. By default batches use up to
// GOMAXPROCS workers and the first failure aborts the run.
func NewSchedule(opts ...Option) *Schedule {
	s := &Schedule{
		seen:    make(map[Task]struct{}),
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.New(slog.DiscardHandler),
	}
	for i := range s.stages {
		s.stages[i].status = StageStatus{Stage: Stage(i)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds task to stage. Set exclusive for tasks that touch the World
// beyond their declared access; tasks implementing Exclusive() bool are
// exclusive when it reports true.
//
// The access descriptor is read and validated once, here.
func (s *Schedule) Register(stage Stage, task Task, exclusive bool) error {
	if !stage.valid() {
		return fmt.Errorf("%w: %v", ErrUnknownStage, stage)
	}
	if task == nil {
		return errors.New("luminara: nil task")
	}
	access := task.Access()
	if err := access.Validate(); err != nil {
		var ae *AccessError
		if errors.As(err, &ae) && ae.Task == "" {
			ae.Task = task.Name()
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrScheduleRunning
	}
	slot := &s.stages[stage]
	if slot.retired {
		return fmt.Errorf("%w: %v", ErrStageRetired, stage)
	}
	// Only pointer tasks have a stable identity. A value task may be
	// Comparable yet hold an unhashable value in an interface field.
	if reflect.TypeOf(task).Kind() == reflect.Pointer {
		if _, dup := s.seen[task]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateTask, task.Name())
		}
		s.seen[task] = struct{}{}
	}
	slot.entries = append(slot.entries, &entry{
		task:      task,
		name:      task.Name(),
		access:    access,
		mask:      s.index.compile(access),
		exclusive: exclusive || isExclusive(task),
	})
	slot.batches = nil
	return nil
}

// AddSystem builds a function system from fn and registers it to stage.
func (s *Schedule) AddSystem(stage Stage, name string, fn any) error {
	sys, err := NewSystem(name, fn)
	if err != nil {
		return err
	}
	return s.Register(stage, sys, sys.Exclusive())
}

// Plan returns the current batch partition of stage.
func (s *Schedule) Plan(stage Stage) Plan {
	if !stage.valid() {
		return Plan{Stage: stage}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return newPlan(stage, s.batchesNoLock(stage))
}

func (s *Schedule) batchesNoLock(stage Stage) []*batch {
	slot := &s.stages[stage]
	if slot.batches == nil && len(slot.entries) > 0 {
		slot.batches = buildBatches(slot.entries)
	}
	return slot.batches
}

// Status returns the state of stage as of the most recent run.
func (s *Schedule) Status(stage Stage) StageStatus {
	if !stage.valid() {
		return StageStatus{Stage: stage}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stages[stage].status
}

// TaskCount returns the number of tasks registered to stage.
func (s *Schedule) TaskCount(stage Stage) int {
	if !stage.valid() {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stages[stage].entries)
}

// RunStage executes the batches of one stage against w. A retired Startup
// stage is a no-op.
func (s *Schedule) RunStage(ctx context.Context, w *World, stage Stage) error {
	if !stage.valid() {
		return fmt.Errorf("%w: %v", ErrUnknownStage, stage)
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()
	return s.runStage(ctx, w, stage)
}

// Run executes every stage in pipeline order and stops at the first stage
// that returns an error.
func (s *Schedule) Run(ctx context.Context, w *World) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()
	for _, stage := range Stages() {
		if err := s.runStage(ctx, w, stage); err != nil {
			return err
		}
	}
	return nil
}

func (s *Schedule) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.poisoned:
		return ErrSchedulePoisoned
	case s.running:
		return ErrScheduleRunning
	}
	s.running = true
	return nil
}

func (s *Schedule) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Schedule) setState(stage Stage, state StageState, batch int) {
	s.mu.Lock()
	st := &s.stages[stage].status
	st.State = state
	st.Batch = batch
	s.mu.Unlock()
}

func (s *Schedule) runStage(ctx context.Context, w *World, stage Stage) error {
	s.mu.Lock()
	slot := &s.stages[stage]
	if slot.retired {
		s.mu.Unlock()
		return nil
	}
	slot.status.State = StageBatching
	batches := s.batchesNoLock(stage)
	slot.status.Tasks = len(slot.entries)
	tasks := slot.status.Tasks
	s.mu.Unlock()

	start := time.Now()
	Publish(s.bus, StageStarted{Stage: stage, Batches: len(batches), Tasks: tasks})
	s.logger.Debug("stage started", "stage", stage.String(), "batches", len(batches), "tasks", tasks)

	err := s.runBatches(ctx, w, stage, batches)

	elapsed := time.Since(start)
	s.metrics.observeStage(stage, elapsed)
	s.mu.Lock()
	if stage == Startup {
		slot.entries = nil
		slot.batches = nil
		slot.retired = true
		slot.status.State = StageRetired
	} else {
		slot.status.State = StageDone
	}
	s.mu.Unlock()

	Publish(s.bus, StageFinished{Stage: stage, Duration: elapsed, Err: err})
	if err != nil {
		s.logger.Debug("stage stopped", "stage", stage.String(), "elapsed", elapsed, "error", err)
	} else {
		s.logger.Debug("stage finished", "stage", stage.String(), "elapsed", elapsed)
	}
	return err
}

func (s *Schedule) runBatches(ctx context.Context, w *World, stage Stage, batches []*batch) error {
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.setState(stage, StageExecuting, i)
		failures, err := s.runBatch(w, stage, i, b)
		if err != nil {
			return err
		}
		if len(failures) == 0 {
			continue
		}
		errs := make([]error, len(failures))
		for j, f := range failures {
			errs[j] = f
			s.metrics.taskFailed(stage)
			Publish(s.bus, TaskFailed{Stage: stage, Err: f})
			if s.policy == FailContinue {
				s.logger.Error("task failed", "stage", stage.String(), "task", f.Task, "error", f)
			}
		}
		if s.policy == FailAbort {
			return errors.Join(errs...)
		}
	}
	return nil
}
