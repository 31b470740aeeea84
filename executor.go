package luminara

import (
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
)

// outcome is the result of one task run. A violation is carried back to the
// goroutine that called Run and panics there.
type outcome struct {
	err       *TaskError
	violation *InvariantViolation
}

type batchResult struct {
	failures  []*TaskError
	violation *InvariantViolation
}

// runBatch executes one batch. Without a task timeout the batch runs on the
// calling goroutine (fanning out for multi-task batches); with one, the batch
// runs in the background and the caller stops waiting at the deadline.
func (s *Schedule) runBatch(w *World, stage Stage, idx int, b *batch) ([]*TaskError, error) {
	s.metrics.observeBatch(stage, len(b.entries))
	s.logger.Debug("batch started", "stage", stage.String(), "batch", idx, "tasks", len(b.entries), "exclusive", b.exclusive())

	var res batchResult
	if s.timeout <= 0 {
		res = s.execBatch(w, stage, b)
	} else {
		done := make(chan batchResult, 1)
		go func() { done <- s.execBatch(w, stage, b) }()
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		select {
		case res = <-done:
		case <-timer.C:
			s.mu.Lock()
			s.poisoned = true
			s.mu.Unlock()
			names := make([]string, len(b.entries))
			for i, e := range b.entries {
				names[i] = e.name
			}
			s.logger.Error("batch timed out", "stage", stage.String(), "batch", idx, "tasks", names, "timeout", s.timeout)
			return nil, &TimeoutError{Stage: stage, Batch: idx, Tasks: names, Timeout: s.timeout}
		}
	}
	if res.violation != nil {
		panic(res.violation)
	}
	return res.failures, nil
}

func (s *Schedule) execBatch(w *World, stage Stage, b *batch) batchResult {
	if len(b.entries) == 1 {
		out := s.runTask(w, stage, b.entries[0], b.exclusive())
		var res batchResult
		res.violation = out.violation
		if out.err != nil {
			res.failures = []*TaskError{out.err}
		}
		return res
	}

	outs := make([]outcome, len(b.entries))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, e := range b.entries {
		g.Go(func() error {
			outs[i] = s.runTask(w, stage, e, false)
			return nil
		})
	}
	_ = g.Wait()

	var res batchResult
	for _, out := range outs {
		if out.violation != nil && res.violation == nil {
			res.violation = out.violation
		}
		if out.err != nil {
			res.failures = append(res.failures, out.err)
		}
	}
	return res
}

// runTask runs one task with its declared access borrowed from the world's
// guard. Panics are recovered into a *TaskError, except access violations.
func (s *Schedule) runTask(w *World, stage Stage, e *entry, exclusive bool) (out outcome) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if v, ok := r.(*InvariantViolation); ok {
			out.violation = v
			return
		}
		te := &TaskError{Stage: stage, Task: e.name, Panic: r, Stack: debug.Stack()}
		if err, ok := r.(error); ok {
			te.Err = err
		}
		out.err = te
	}()
	release := w.guard.acquire(e.name, e.access, exclusive)
	defer release()
	if err := e.task.Run(w); err != nil {
		out.err = &TaskError{Stage: stage, Task: e.name, Err: err}
	}
	return out
}
