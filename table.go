package luminara

import (
	"reflect"
	"sync"
)

// ChunkSize is the number of component rows stored per chunk. Chunks are
// never reallocated, so pointers into a table stay valid while the table
// grows. Removing a row moves the table's last row into the freed slot.
const ChunkSize = 1024

const noRow = -1

// componentTable is the type-erased view of a table[T] the World uses for
// whole-entity operations such as Despawn.
type componentTable interface {
	componentType() reflect.Type
	has(e Entity) bool
	drop(e Entity) bool
	size() int
	owners() []Entity
	reset()
}

// table is a sparse-set over chunked dense storage for one component type.
type table[T any] struct {
	mu       sync.RWMutex
	chunks   [][]T    // each chunk has length ChunkSize
	entities []Entity // dense row -> owning entity
	sparse   []int    // entity ID -> dense row, noRow if absent
}

func newTable[T any]() *table[T] {
	return &table[T]{}
}

func (t *table[T]) componentType() reflect.Type {
	return reflect.TypeFor[T]()
}

// rowNoLock returns the dense row of e, or noRow.
func (t *table[T]) rowNoLock(e Entity) int {
	if int(e.ID) >= len(t.sparse) {
		return noRow
	}
	row := t.sparse[e.ID]
	if row == noRow || t.entities[row] != e {
		return noRow
	}
	return row
}

func (t *table[T]) at(row int) *T {
	return &t.chunks[row/ChunkSize][row%ChunkSize]
}

// getNoLock returns a pointer to e's row or nil.
func (t *table[T]) getNoLock(e Entity) *T {
	row := t.rowNoLock(e)
	if row == noRow {
		return nil
	}
	return t.at(row)
}

func (t *table[T]) get(e Entity) *T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.getNoLock(e)
}

// setNoLock inserts or overwrites the row of e.
func (t *table[T]) setNoLock(e Entity, val T) *T {
	if row := t.rowNoLock(e); row != noRow {
		p := t.at(row)
		*p = val
		return p
	}
	for int(e.ID) >= len(t.sparse) {
		t.sparse = append(t.sparse, noRow)
	}
	row := len(t.entities)
	if row/ChunkSize >= len(t.chunks) {
		t.chunks = append(t.chunks, make([]T, ChunkSize))
	}
	t.entities = append(t.entities, e)
	t.sparse[e.ID] = row
	p := t.at(row)
	*p = val
	return p
}

// takeNoLock removes the row of e, moving the last row into its place.
func (t *table[T]) takeNoLock(e Entity) (T, bool) {
	var zero T
	row := t.rowNoLock(e)
	if row == noRow {
		return zero, false
	}
	val := *t.at(row)
	last := len(t.entities) - 1
	if row != last {
		moved := t.entities[last]
		*t.at(row) = *t.at(last)
		t.entities[row] = moved
		t.sparse[moved.ID] = row
	}
	*t.at(last) = zero
	t.entities = t.entities[:last]
	t.sparse[e.ID] = noRow
	// Release the trailing chunk once it is empty.
	if keep := (last + ChunkSize - 1) / ChunkSize; keep < len(t.chunks) {
		t.chunks = t.chunks[:keep]
	}
	return val, true
}

func (t *table[T]) has(e Entity) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rowNoLock(e) != noRow
}

func (t *table[T]) drop(e Entity) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.takeNoLock(e)
	return ok
}

func (t *table[T]) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entities)
}

// owners returns a snapshot of the entities that have a row.
func (t *table[T]) owners() []Entity {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entity, len(t.entities))
	copy(out, t.entities)
	return out
}

func (t *table[T]) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chunks = nil
	t.entities = nil
	t.sparse = nil
}
