package luminara

import (
	"context"
	"sync"
	"testing"
	"time"
)

type Position struct {
	X, Y float32
}

type Velocity struct {
	X, Y float32
}

type Health struct {
	HP int
}

type Frozen struct{}

type resX struct {
	N int
}

type resY struct {
	N int
}

type compY struct {
	N int
}

type TestEvent struct {
	Value int
}

// recorder collects the names of tasks as they run.
type recorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	r.runs = append(r.runs, name)
	r.mu.Unlock()
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func (r *recorder) count(name string) int {
	n := 0
	for _, s := range r.names() {
		if s == name {
			n++
		}
	}
	return n
}

// recordTask returns a task that records its name when it runs.
func recordTask(rec *recorder, name string, opts ...AccessOption) Task {
	return NewTask(name, func(*World) error {
		rec.add(name)
		return nil
	}, opts...)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
