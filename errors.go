package luminara

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

var (
	// ErrScheduleRunning is returned when tasks are registered while the
	// schedule is executing.
	ErrScheduleRunning = errors.New("schedule is running")
	// ErrStageRetired is returned when registering to the Startup stage after
	// it has already run.
	ErrStageRetired = errors.New("stage retired")
	// ErrDuplicateTask is returned when the same task value is registered twice.
	ErrDuplicateTask = errors.New("task already registered")
	// ErrUnknownStage is returned for stages outside the pipeline.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrSchedulePoisoned is returned by every run after a task timed out.
	ErrSchedulePoisoned = errors.New("schedule poisoned by an earlier timeout")
	// ErrMissingResource is the sentinel matched by *MissingResourceError.
	ErrMissingResource = errors.New("missing resource")
	// ErrInvalidAccess is the sentinel matched by *AccessError.
	ErrInvalidAccess = errors.New("invalid access declaration")
)

// AccessError reports a task whose declared parameters cannot be mapped to a
// valid Access descriptor. It is returned at registration, before any run.
type AccessError struct {
	Task string
	Msg  string
}

func (e *AccessError) Error() string {
	if e.Task == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidAccess, e.Msg)
	}
	return fmt.Sprintf("%s: task %q: %s", ErrInvalidAccess, e.Task, e.Msg)
}

func (e *AccessError) Unwrap() error { return ErrInvalidAccess }

func accessErrorf(task, format string, args ...any) error {
	return &AccessError{Task: task, Msg: fmt.Sprintf(format, args...)}
}

// MissingResourceError reports a resource a task required but the World
// does not hold.
type MissingResourceError struct {
	Type reflect.Type
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMissingResource, e.Type)
}

func (e *MissingResourceError) Unwrap() error { return ErrMissingResource }

// TaskError wraps the failure of one task during a run. Panics are recovered
// and reported with their value and stack.
type TaskError struct {
	Stage Stage
	Task  string
	Err   error
	Panic any
	Stack []byte
}

func (e *TaskError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("stage %s: task %q panicked: %v", e.Stage, e.Task, e.Panic)
	}
	return fmt.Sprintf("stage %s: task %q: %v", e.Stage, e.Task, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// TimeoutError reports a batch that did not complete within the configured
// task timeout. The tasks of that batch are still running when it is
// returned.
type TimeoutError struct {
	Stage   Stage
	Batch   int
	Tasks   []string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stage %s: batch %d %v exceeded task timeout %s", e.Stage, e.Batch, e.Tasks, e.Timeout)
}

// InvariantViolation is raised, as a panic, when two tasks that were allowed
// to run together touch the same type in conflicting ways. It signals a
// scheduler bug and is never recovered into an ordinary error.
type InvariantViolation struct {
	Task string
	Msg  string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("luminara: access invariant violated by task %q: %s", e.Task, e.Msg)
}
