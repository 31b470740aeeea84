package luminara

import (
	"fmt"
	"reflect"
	"sync"
)

const writeBorrow = -1

// accessGuard tracks the borrows of every task the scheduler currently has in
// flight. A borrow that conflicts with one already held means two tasks with
// conflicting descriptors were allowed to overlap; the guard panics with an
// *InvariantViolation instead of letting them run.
type accessGuard struct {
	mu         sync.Mutex
	resources  map[reflect.Type]int // >0 readers, writeBorrow for a writer
	components map[reflect.Type]int
	active     int
	exclusive  string // task holding the whole world, "" if none
}

func newAccessGuard() accessGuard {
	return accessGuard{
		resources:  make(map[reflect.Type]int),
		components: make(map[reflect.Type]int),
	}
}

// acquire borrows everything a declares on behalf of task. Exclusive tasks
// borrow the whole world and require that nothing else is in flight. The
// returned function releases the borrows.
func (g *accessGuard) acquire(task string, a Access, exclusive bool) (release func()) {
	g.mu.Lock()
	if msg := g.checkNoLock(a, exclusive); msg != "" {
		g.mu.Unlock()
		panic(&InvariantViolation{Task: task, Msg: msg})
	}
	g.active++
	if exclusive {
		g.exclusive = task
	}
	borrowAll(g.resources, a.ResourcesRead, a.ResourcesWrite)
	borrowAll(g.components, a.ComponentsRead, a.ComponentsWrite)
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.active--
			if exclusive {
				g.exclusive = ""
			}
			releaseAll(g.resources, a.ResourcesRead, a.ResourcesWrite)
			releaseAll(g.components, a.ComponentsRead, a.ComponentsWrite)
		})
	}
}

func (g *accessGuard) checkNoLock(a Access, exclusive bool) string {
	if g.exclusive != "" {
		return fmt.Sprintf("world is held exclusively by %q", g.exclusive)
	}
	if exclusive && g.active > 0 {
		return fmt.Sprintf("exclusive access requested while %d task(s) are in flight", g.active)
	}
	if msg := checkKind("resource", g.resources, a.ResourcesRead, a.ResourcesWrite); msg != "" {
		return msg
	}
	return checkKind("component", g.components, a.ComponentsRead, a.ComponentsWrite)
}

func checkKind(kind string, held map[reflect.Type]int, reads, writes TypeSet) string {
	for t := range reads.m {
		if held[t] == writeBorrow {
			return fmt.Sprintf("%s %v read while another task writes it", kind, t)
		}
	}
	for t := range writes.m {
		switch n := held[t]; {
		case n == writeBorrow:
			return fmt.Sprintf("%s %v written by two tasks at once", kind, t)
		case n > 0:
			return fmt.Sprintf("%s %v written while %d task(s) read it", kind, t, n)
		}
	}
	return ""
}

func borrowAll(held map[reflect.Type]int, reads, writes TypeSet) {
	for t := range reads.m {
		held[t]++
	}
	for t := range writes.m {
		held[t] = writeBorrow
	}
}

func releaseAll(held map[reflect.Type]int, reads, writes TypeSet) {
	for t := range reads.m {
		if held[t]--; held[t] <= 0 {
			delete(held, t)
		}
	}
	for t := range writes.m {
		delete(held, t)
	}
}

// inFlight returns the number of tasks currently holding borrows.
func (g *accessGuard) inFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
