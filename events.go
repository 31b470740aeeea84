package luminara

import (
	"reflect"
	"sync"
)

type eventInstance[E any] struct {
	id    uint64
	event E
}

// eventQueue is implemented by every Events[E] so the World can advance all
// queues without knowing their event types.
type eventQueue interface {
	update()
}

// Events is the double-buffered queue backing one event type. It is stored as
// a resource: EventWriter[E] declares a write of Events[E] and EventReader[E]
// a read, so writers of the same event type are serialized while readers and
// writers of different event types are not.
//
// An event stays readable for two calls of World.UpdateEvents, which gives
// every reader one full pass to observe it regardless of stage order.
type Events[E any] struct {
	mu    sync.RWMutex
	older []eventInstance[E]
	newer []eventInstance[E]
	next  uint64 // id of the next event sent
}

// Send appends an event to the queue.
func (q *Events[E]) Send(event E) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.newer = append(q.newer, eventInstance[E]{id: q.next, event: event})
	q.next++
}

// Len returns the number of events currently readable.
func (q *Events[E]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.older) + len(q.newer)
}

// since returns the events with an id of at least cursor and the cursor to
// use for the next read.
func (q *Events[E]) since(cursor uint64) ([]E, uint64) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var out []E
	for _, buf := range [2][]eventInstance[E]{q.older, q.newer} {
		for _, ev := range buf {
			if ev.id >= cursor {
				out = append(out, ev.event)
			}
		}
	}
	return out, q.next
}

func (q *Events[E]) update() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.older)
	q.older, q.newer = q.newer, q.older[:0]
}

// AddEvent registers the queue for event type `E`. Readers and writers of `E`
// fail with a *MissingResourceError until it has been added. Adding twice is
// a no-op.
func AddEvent[E any](w *World) {
	r := w.resources
	t := reflect.TypeFor[*Events[E]]()
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t]; ok {
		return
	}
	r.addNoLock(t, &Events[E]{})
}

// SendEvent sends an event from outside the schedule, such as from the host
// loop. It reports false when `E` has not been registered with AddEvent.
func SendEvent[E any](w *World, event E) bool {
	q, ok := GetResourceMut[Events[E]](w)
	if !ok {
		return false
	}
	q.Send(event)
	return true
}

// EventWriter is a system parameter that sends `E` events.
type EventWriter[E any] struct {
	queue *Events[E]
}

func (p *EventWriter[E]) declare(a *Access) error {
	a.WriteResource(reflect.TypeFor[Events[E]]())
	return nil
}

func (p *EventWriter[E]) fetch(w *World) error {
	q, ok := GetResourceMut[Events[E]](w)
	if !ok {
		return &MissingResourceError{Type: reflect.TypeFor[Events[E]]()}
	}
	p.queue = q
	return nil
}

// Send appends an event to the queue.
func (p EventWriter[E]) Send(event E) {
	p.queue.Send(event)
}

// EventReader is a system parameter that reads `E` events. Each reader keeps
// its own cursor, so a system sees every event exactly once as long as it
// runs at least once every two updates.
type EventReader[E any] struct {
	queue  *Events[E]
	cursor *uint64
}

func (p *EventReader[E]) declare(a *Access) error {
	a.ReadResource(reflect.TypeFor[Events[E]]())
	return nil
}

func (p *EventReader[E]) fetch(w *World) error {
	q, ok := GetResourceMut[Events[E]](w)
	if !ok {
		return &MissingResourceError{Type: reflect.TypeFor[Events[E]]()}
	}
	p.queue = q
	if p.cursor == nil {
		p.cursor = new(uint64)
	}
	return nil
}

// Read returns the events sent since this reader last read.
func (p EventReader[E]) Read() []E {
	events, next := p.queue.since(*p.cursor)
	*p.cursor = next
	return events
}
