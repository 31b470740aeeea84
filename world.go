package luminara

import (
	"reflect"
	"sync"
)

// World is the shared store of entities, component tables and resources.
// Worlds are explicit values: there is no package-level world, so tests and
// tools can build as many isolated instances as they need.
//
// Every component table and every resource cell carries its own lock, so two
// tasks touching different types never contend. Which tasks may touch the
// same type concurrently is decided by the Schedule and checked by the
// world's access guard.
type World struct {
	entities  entityRegistry
	tablesMu  sync.RWMutex
	tables    map[reflect.Type]componentTable
	resources *Resources
	guard     accessGuard
}

// NewWorld creates a World with room for initialCapacity entities before the
// allocator has to grow.
func NewWorld(initialCapacity int) *World {
	return &World{
		entities:  newEntityRegistry(initialCapacity),
		tables:    make(map[reflect.Type]componentTable, 16),
		resources: newResources(),
		guard:     newAccessGuard(),
	}
}

// Spawn allocates a new entity with no components. A live identifier is never
// handed out twice; recycled IDs come back with a higher Version.
func (w *World) Spawn() Entity {
	return w.entities.allocate()
}

// SpawnBatch allocates count entities at once.
func (w *World) SpawnBatch(count int) []Entity {
	return w.entities.allocateMany(count)
}

// Despawn removes e and all of its components. It reports false when e is
// already dead or stale. Despawn touches every component table, so scheduled
// code should only call it from exclusive tasks.
func (w *World) Despawn(e Entity) bool {
	if !w.entities.release(e) {
		return false
	}
	w.tablesMu.RLock()
	defer w.tablesMu.RUnlock()
	for _, t := range w.tables {
		t.drop(e)
	}
	return true
}

// IsAlive checks whether e refers to a live entity of the current generation.
func (w *World) IsAlive(e Entity) bool {
	return w.entities.isAlive(e)
}

// Entities returns a snapshot of all live entities ordered by ID.
func (w *World) Entities() []Entity {
	return w.entities.list()
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.entities.count()
}

// ClearEntities despawns every entity and empties every component table.
// Resources are left untouched.
func (w *World) ClearEntities() {
	w.entities.reset()
	w.tablesMu.RLock()
	defer w.tablesMu.RUnlock()
	for _, t := range w.tables {
		t.reset()
	}
}

// Resources returns the world's resource registry.
func (w *World) Resources() *Resources {
	return w.resources
}

// UpdateEvents advances every registered event queue by one update: events
// sent two updates ago are dropped. App.Update calls it after each pass.
func (w *World) UpdateEvents() {
	w.resources.each(func(v any) {
		if q, ok := v.(eventQueue); ok {
			q.update()
		}
	})
}

// tableFor returns the table for T, creating it when create is set. It
// returns nil when the table does not exist and create is false.
func tableFor[T any](w *World, create bool) *table[T] {
	typ := reflect.TypeFor[T]()
	w.tablesMu.RLock()
	t, ok := w.tables[typ]
	w.tablesMu.RUnlock()
	if ok {
		return t.(*table[T])
	}
	if !create {
		return nil
	}
	w.tablesMu.Lock()
	defer w.tablesMu.Unlock()
	if t, ok := w.tables[typ]; ok {
		return t.(*table[T])
	}
	nt := newTable[T]()
	w.tables[typ] = nt
	return nt
}

// tableByType returns the type-erased table for typ, or nil.
func (w *World) tableByType(typ reflect.Type) componentTable {
	w.tablesMu.RLock()
	defer w.tablesMu.RUnlock()
	return w.tables[typ]
}
