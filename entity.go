package luminara

import (
	"fmt"
	"sync"
)

// Entity represents a unique identifier for an object in the World. It combines
// a 32-bit ID with a 32-bit version so that recycled IDs are never confused
// with the entity that previously held them.
type Entity struct {
	// ID is the unique, recyclable identifier for the entity.
	ID uint32
	// Version is a generation counter to protect against stale entity references.
	// It is incremented each time an entity ID is released.
	Version uint32
}

// Less orders entities by ID, then by version.
func (e Entity) Less(other Entity) bool {
	if e.ID != other.ID {
		return e.ID < other.ID
	}
	return e.Version < other.Version
}

// String renders the entity as "id:version".
func (e Entity) String() string {
	return fmt.Sprintf("%d:%d", e.ID, e.Version)
}

// entityMeta holds the generation and liveness of one entity ID.
type entityMeta struct {
	version uint32 // current generation of the ID, starts at 1
	alive   bool
}

// entityRegistry allocates entity IDs. Released IDs go onto a free-list and
// come back with their generation bumped.
type entityRegistry struct {
	mu      sync.RWMutex
	freeIDs []uint32     // stack of recycled entity IDs
	metas   []entityMeta // indexed by entity ID
	alive   int
}

func newEntityRegistry(initialCapacity int) entityRegistry {
	if initialCapacity < 0 {
		initialCapacity = 0
	}
	return entityRegistry{
		freeIDs: make([]uint32, 0, initialCapacity),
		metas:   make([]entityMeta, 0, initialCapacity),
	}
}

// allocateNoLock pops a recycled ID or appends a fresh one.
func (r *entityRegistry) allocateNoLock() Entity {
	var id uint32
	if n := len(r.freeIDs); n > 0 {
		id = r.freeIDs[n-1]
		r.freeIDs = r.freeIDs[:n-1]
	} else {
		id = uint32(len(r.metas))
		r.metas = append(r.metas, entityMeta{version: 1})
	}
	meta := &r.metas[id]
	meta.alive = true
	r.alive++
	return Entity{ID: id, Version: meta.version}
}

func (r *entityRegistry) allocate() Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocateNoLock()
}

func (r *entityRegistry) allocateMany(count int) []Entity {
	if count <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ents := make([]Entity, count)
	for i := range ents {
		ents[i] = r.allocateNoLock()
	}
	return ents
}

// release marks e dead and recycles its ID. It reports false for stale or
// unknown handles.
func (r *entityRegistry) release(e Entity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isAliveNoLock(e) {
		return false
	}
	meta := &r.metas[e.ID]
	meta.alive = false
	meta.version++
	if meta.version == 0 {
		// Version 0 is reserved for "never valid".
		meta.version = 1
	}
	r.freeIDs = append(r.freeIDs, e.ID)
	r.alive--
	return true
}

func (r *entityRegistry) isAliveNoLock(e Entity) bool {
	if int(e.ID) >= len(r.metas) {
		return false
	}
	meta := r.metas[e.ID]
	return meta.alive && meta.version == e.Version
}

func (r *entityRegistry) isAlive(e Entity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isAliveNoLock(e)
}

// list returns every live entity in ID order.
func (r *entityRegistry) list() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entity, 0, r.alive)
	for id, meta := range r.metas {
		if meta.alive {
			out = append(out, Entity{ID: uint32(id), Version: meta.version})
		}
	}
	return out
}

func (r *entityRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alive
}

// reset kills every entity, bumping generations so old handles stay stale.
func (r *entityRegistry) reset() []Entity {
	r.mu.Lock()
	defer r.mu.Unlock()
	var killed []Entity
	for id := range r.metas {
		meta := &r.metas[id]
		if !meta.alive {
			continue
		}
		killed = append(killed, Entity{ID: uint32(id), Version: meta.version})
		meta.alive = false
		meta.version++
		if meta.version == 0 {
			meta.version = 1
		}
		r.freeIDs = append(r.freeIDs, uint32(id))
	}
	r.alive = 0
	return killed
}
