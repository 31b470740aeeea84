package luminara

import (
	"reflect"
	"slices"
	"strings"
)

// TypeSet is a set of Go types. The zero value is an empty set ready to use.
type TypeSet struct {
	m map[reflect.Type]struct{}
}

// Add inserts t into the set.
func (s *TypeSet) Add(t reflect.Type) {
	if s.m == nil {
		s.m = make(map[reflect.Type]struct{})
	}
	s.m[t] = struct{}{}
}

// Has reports whether t is in the set.
func (s TypeSet) Has(t reflect.Type) bool {
	_, ok := s.m[t]
	return ok
}

// Len returns the number of types in the set.
func (s TypeSet) Len() int { return len(s.m) }

// Types returns the members sorted by their string form.
func (s TypeSet) Types() []reflect.Type {
	out := make([]reflect.Type, 0, len(s.m))
	for t := range s.m {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b reflect.Type) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// Intersects reports whether the two sets share a member.
func (s TypeSet) Intersects(o TypeSet) bool {
	small, large := s, o
	if len(small.m) > len(large.m) {
		small, large = large, small
	}
	for t := range small.m {
		if large.Has(t) {
			return true
		}
	}
	return false
}

func (s TypeSet) clone() TypeSet {
	if len(s.m) == 0 {
		return TypeSet{}
	}
	m := make(map[reflect.Type]struct{}, len(s.m))
	for t := range s.m {
		m[t] = struct{}{}
	}
	return TypeSet{m: m}
}

func (s TypeSet) String() string {
	types := s.Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return "{" + strings.Join(names, ", ") + "}"
}

// Access is the declared data contract of a task: the resource and component
// types it reads and writes. Write is exclusive and does not imply read.
// An Access is built once when a task is created and treated as immutable
// once the task is registered.
type Access struct {
	ResourcesRead   TypeSet
	ResourcesWrite  TypeSet
	ComponentsRead  TypeSet
	ComponentsWrite TypeSet
}

// ReadResource declares shared access to the resource type t.
func (a *Access) ReadResource(t reflect.Type) { a.ResourcesRead.Add(t) }

// WriteResource declares exclusive access to the resource type t.
func (a *Access) WriteResource(t reflect.Type) { a.ResourcesWrite.Add(t) }

// ReadComponent declares shared access to the component table of t.
func (a *Access) ReadComponent(t reflect.Type) { a.ComponentsRead.Add(t) }

// WriteComponent declares exclusive access to the component table of t.
func (a *Access) WriteComponent(t reflect.Type) { a.ComponentsWrite.Add(t) }

// IsEmpty reports whether the descriptor declares nothing at all.
func (a Access) IsEmpty() bool {
	return a.ResourcesRead.Len() == 0 && a.ResourcesWrite.Len() == 0 &&
		a.ComponentsRead.Len() == 0 && a.ComponentsWrite.Len() == 0
}

// Conflicts reports whether a and o may not run concurrently: both write the
// same type, or one reads a type the other writes. Two reads never conflict.
func (a Access) Conflicts(o Access) bool {
	switch {
	case a.ResourcesWrite.Intersects(o.ResourcesWrite),
		a.ComponentsWrite.Intersects(o.ComponentsWrite),
		a.ResourcesRead.Intersects(o.ResourcesWrite),
		a.ResourcesWrite.Intersects(o.ResourcesRead),
		a.ComponentsRead.Intersects(o.ComponentsWrite),
		a.ComponentsWrite.Intersects(o.ComponentsRead):
		return true
	}
	return false
}

// Merge adds every type declared by o to a.
func (a *Access) Merge(o Access) {
	for t := range o.ResourcesRead.m {
		a.ResourcesRead.Add(t)
	}
	for t := range o.ResourcesWrite.m {
		a.ResourcesWrite.Add(t)
	}
	for t := range o.ComponentsRead.m {
		a.ComponentsRead.Add(t)
	}
	for t := range o.ComponentsWrite.m {
		a.ComponentsWrite.Add(t)
	}
}

// Clone returns a deep copy of a.
func (a Access) Clone() Access {
	return Access{
		ResourcesRead:   a.ResourcesRead.clone(),
		ResourcesWrite:  a.ResourcesWrite.clone(),
		ComponentsRead:  a.ComponentsRead.clone(),
		ComponentsWrite: a.ComponentsWrite.clone(),
	}
}

// Validate rejects a descriptor that lists a type as both read and written
// within the same kind. Declare the write alone; it already grants reading.
func (a Access) Validate() error {
	for _, t := range a.ResourcesRead.Types() {
		if a.ResourcesWrite.Has(t) {
			return accessErrorf("", "resource %v is declared both read and write", t)
		}
	}
	for _, t := range a.ComponentsRead.Types() {
		if a.ComponentsWrite.Has(t) {
			return accessErrorf("", "component %v is declared both read and write", t)
		}
	}
	return nil
}

func (a Access) String() string {
	var parts []string
	add := func(label string, s TypeSet) {
		if s.Len() > 0 {
			parts = append(parts, label+"="+s.String())
		}
	}
	add("res.read", a.ResourcesRead)
	add("res.write", a.ResourcesWrite)
	add("comp.read", a.ComponentsRead)
	add("comp.write", a.ComponentsWrite)
	if len(parts) == 0 {
		return "<none>"
	}
	return strings.Join(parts, " ")
}

// AccessOption adds one declaration to an Access. See NewTask.
type AccessOption func(*Access)

// Reads declares shared access to the `T` component table.
func Reads[T any]() AccessOption {
	return func(a *Access) { a.ReadComponent(reflect.TypeFor[T]()) }
}

// Writes declares exclusive access to the `T` component table.
func Writes[T any]() AccessOption {
	return func(a *Access) { a.WriteComponent(reflect.TypeFor[T]()) }
}

// ReadsResource declares shared access to the `T` resource.
func ReadsResource[T any]() AccessOption {
	return func(a *Access) { a.ReadResource(reflect.TypeFor[T]()) }
}

// WritesResource declares exclusive access to the `T` resource.
func WritesResource[T any]() AccessOption {
	return func(a *Access) { a.WriteResource(reflect.TypeFor[T]()) }
}

// ReadsEvents declares reading the `E` event queue.
func ReadsEvents[E any]() AccessOption {
	return ReadsResource[Events[E]]()
}

// WritesEvents declares sending to the `E` event queue.
func WritesEvents[E any]() AccessOption {
	return WritesResource[Events[E]]()
}
