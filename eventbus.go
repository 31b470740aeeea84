package luminara

import (
	"reflect"
	"sync"
	"time"
)

// MaxEventTypes defines the maximum number of unique event types that can be
// registered in the EventBus. This value is fixed at 256.
const MaxEventTypes = 256

// EventBus delivers host-side notifications synchronously to subscribers. The
// Schedule publishes its lifecycle events (StageStarted, StageFinished,
// TaskFailed) here; unlike Events[E], the bus is not part of the World and
// its handlers are not scheduled tasks.
//
// Subscribe and Publish are safe for concurrent use. Handlers may be called
// from worker goroutines and must not subscribe from inside a handler of the
// same bus.
type EventBus struct {
	mu              sync.RWMutex
	eventTypeMap    map[reflect.Type]uint8
	handlers        [MaxEventTypes][]any
	nextEventTypeID int
}

// NewEventBus returns an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers a handler function to be called when an event of type `T`
// is published. Handlers are stored in the order they are subscribed.
//
// Parameters:
//   - bus: The EventBus instance to subscribe to.
//   - handler: A function that takes a single argument of type `T`.
func Subscribe[T any](bus *EventBus, handler func(T)) {
	t := reflect.TypeFor[T]()
	bus.mu.Lock()
	defer bus.mu.Unlock()
	id := bus.getEventTypeID(t)
	if cap(bus.handlers[id]) == 0 {
		bus.handlers[id] = make([]any, 0, 4)
	}
	bus.handlers[id] = append(bus.handlers[id], handler)
}

// Publish broadcasts an event of type `T` to all registered handlers for that
// type. The handlers are called synchronously in the order they were
// subscribed. Publishing on a nil bus is a no-op.
func Publish[T any](bus *EventBus, event T) {
	if bus == nil {
		return
	}
	t := reflect.TypeFor[T]()
	bus.mu.RLock()
	id, ok := bus.eventTypeMap[t]
	var hs []any
	if ok {
		hs = bus.handlers[id]
	}
	bus.mu.RUnlock()
	for _, h := range hs {
		h.(func(T))(event)
	}
}

// getEventTypeID retrieves or assigns an ID for the event type. Callers hold
// the write lock.
func (bus *EventBus) getEventTypeID(t reflect.Type) uint8 {
	if bus.eventTypeMap == nil {
		bus.eventTypeMap = make(map[reflect.Type]uint8)
	}
	if id, ok := bus.eventTypeMap[t]; ok {
		return id
	}
	if bus.nextEventTypeID >= MaxEventTypes {
		panic("luminara: too many event types")
	}
	id := uint8(bus.nextEventTypeID)
	bus.nextEventTypeID++
	bus.eventTypeMap[t] = id
	return id
}

// StageStarted is published before a stage executes its first batch.
type StageStarted struct {
	Stage   Stage
	Batches int
	Tasks   int
}

// StageFinished is published when a stage stops, successfully or not.
type StageFinished struct {
	Stage    Stage
	Duration time.Duration
	Err      error
}

// TaskFailed is published for every task error, under either failure policy.
type TaskFailed struct {
	Stage Stage
	Err   *TaskError
}
