package luminara

import (
	"reflect"
	"sync"
)

// resourceCell holds one resource. The cell lock guards reads and overwrites
// of the value; the pointer itself never changes while the cell is in use.
type resourceCell struct {
	mu  sync.RWMutex
	ptr any // always a non-nil pointer
}

// Resources manages singleton values keyed by type, ensuring no duplicate types
// are present at the same time. It uses a slice of cells for storage, a map
// for type lookup and a free list for ID reuse.
type Resources struct {
	mu      sync.RWMutex
	cells   []*resourceCell
	types   map[reflect.Type]int
	freeIds []int
}

func newResources() *Resources {
	return &Resources{types: make(map[reflect.Type]int)}
}

// Add adds a resource and returns its ID. res must be a non-nil pointer; the
// resource is keyed by the pointer's type, so Add(&cfg) is found by
// GetResource[Config]. Panics if a resource of the same type already exists.
func (r *Resources) Add(res any) int {
	if res == nil {
		panic("luminara: cannot add nil resource")
	}
	t := reflect.TypeOf(res)
	if t.Kind() != reflect.Pointer || reflect.ValueOf(res).IsNil() {
		panic("luminara: resources must be added as non-nil pointers")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t]; ok {
		panic("luminara: resource of the same type already exists")
	}
	return r.addNoLock(t, res)
}

func (r *Resources) addNoLock(t reflect.Type, ptr any) int {
	if r.types == nil {
		r.types = make(map[reflect.Type]int)
	}
	cell := &resourceCell{ptr: ptr}
	var id int
	if len(r.freeIds) > 0 {
		id = r.freeIds[len(r.freeIds)-1]
		r.freeIds = r.freeIds[:len(r.freeIds)-1]
		r.cells[id] = cell
	} else {
		r.cells = append(r.cells, cell)
		id = len(r.cells) - 1
	}
	r.types[t] = id
	return id
}

// Has checks if a resource with the given ID exists.
func (r *Resources) Has(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasNoLock(id)
}

func (r *Resources) hasNoLock(id int) bool {
	return id >= 0 && id < len(r.cells) && r.cells[id] != nil
}

// Get retrieves the resource pointer by ID, or nil if it doesn't exist.
func (r *Resources) Get(id int) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasNoLock(id) {
		return nil
	}
	return r.cells[id].ptr
}

// Remove removes the resource by ID if it exists, marking the ID as free for reuse.
func (r *Resources) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeNoLock(id)
}

func (r *Resources) removeNoLock(id int) {
	if !r.hasNoLock(id) {
		return
	}
	delete(r.types, reflect.TypeOf(r.cells[id].ptr))
	r.cells[id] = nil
	r.freeIds = append(r.freeIds, id)
}

// Len returns the number of stored resources.
func (r *Resources) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Clear removes all resources, resetting the free list.
func (r *Resources) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.cells)
	r.cells = r.cells[:0]
	clear(r.types)
	r.freeIds = r.freeIds[:0]
}

// each calls fn with every stored resource pointer.
func (r *Resources) each(fn func(ptr any)) {
	r.mu.RLock()
	cells := make([]*resourceCell, 0, len(r.types))
	for _, c := range r.cells {
		if c != nil {
			cells = append(cells, c)
		}
	}
	r.mu.RUnlock()
	for _, c := range cells {
		fn(c.ptr)
	}
}

func (r *Resources) cellFor(t reflect.Type) *resourceCell {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.types[t]
	if !ok {
		return nil
	}
	return r.cells[id]
}

// InsertResource stores val as the world's single `T` resource. An existing
// `T` is overwritten in place, so pointers obtained earlier observe the new
// value.
func InsertResource[T any](w *World, val T) {
	r := w.resources
	t := reflect.TypeFor[*T]()
	r.mu.Lock()
	if id, ok := r.types[t]; ok {
		cell := r.cells[id]
		r.mu.Unlock()
		cell.mu.Lock()
		*cell.ptr.(*T) = val
		cell.mu.Unlock()
		return
	}
	defer r.mu.Unlock()
	p := new(T)
	*p = val
	r.addNoLock(t, p)
}

// GetResource returns a copy of the `T` resource. The second result is false
// when no `T` has been inserted; nothing is ever default-constructed.
func GetResource[T any](w *World) (T, bool) {
	var zero T
	cell := w.resources.cellFor(reflect.TypeFor[*T]())
	if cell == nil {
		return zero, false
	}
	cell.mu.RLock()
	defer cell.mu.RUnlock()
	return *cell.ptr.(*T), true
}

// GetResourceMut returns a pointer to the `T` resource, or nil and false.
func GetResourceMut[T any](w *World) (*T, bool) {
	cell := w.resources.cellFor(reflect.TypeFor[*T]())
	if cell == nil {
		return nil, false
	}
	return cell.ptr.(*T), true
}

// MustResource returns a pointer to the `T` resource and panics with a
// *MissingResourceError when it is absent. Use it where the resource is an
// invariant of the application rather than an option.
func MustResource[T any](w *World) *T {
	p, ok := GetResourceMut[T](w)
	if !ok {
		panic(&MissingResourceError{Type: reflect.TypeFor[T]()})
	}
	return p
}

// RemoveResource removes the `T` resource and returns its last value.
func RemoveResource[T any](w *World) (T, bool) {
	var zero T
	r := w.resources
	t := reflect.TypeFor[*T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.types[t]
	if !ok {
		return zero, false
	}
	cell := r.cells[id]
	cell.mu.RLock()
	val := *cell.ptr.(*T)
	cell.mu.RUnlock()
	r.removeNoLock(id)
	return val, true
}

// HasResource reports whether a `T` resource exists.
func HasResource[T any](w *World) bool {
	return w.resources.cellFor(reflect.TypeFor[*T]()) != nil
}

// ResourceScope removes the `T` resource, calls fn with the world and the
// resource, then puts the resource back, even if fn panics. While fn runs the
// world holds no `T`, so fn may use w freely without aliasing res. It panics
// with a *MissingResourceError when no `T` exists.
func ResourceScope[T, U any](w *World, fn func(w *World, res *T) U) U {
	res, ok := RemoveResource[T](w)
	if !ok {
		panic(&MissingResourceError{Type: reflect.TypeFor[T]()})
	}
	defer func() { InsertResource(w, res) }()
	return fn(w, &res)
}
