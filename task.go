package luminara

import (
	"fmt"
	"reflect"
)

// Task is a unit of work scheduled against a World. Access must return the
// same descriptor every time; the schedule reads it once at registration.
type Task interface {
	Name() string
	Access() Access
	Run(w *World) error
}

// exclusiveTask is implemented by tasks that need the whole World.
type exclusiveTask interface {
	Exclusive() bool
}

func isExclusive(t Task) bool {
	x, ok := t.(exclusiveTask)
	return ok && x.Exclusive()
}

type funcTask struct {
	name   string
	access Access
	fn     func(*World) error
}

// NewTask wraps fn in a Task with a hand-written access declaration. fn must
// touch nothing beyond what opts declare; tasks with no declarations run
// alone.
//
// Example:
//
//	luminara.NewTask("integrate", integrate,
//	    luminara.Writes[Position](), luminara.Reads[Velocity]())
func NewTask(name string, fn func(*World) error, opts ...AccessOption) Task {
	t := &funcTask{name: name, fn: fn}
	for _, opt := range opts {
		opt(&t.access)
	}
	return t
}

func (t *funcTask) Name() string       { return t.name }
func (t *funcTask) Access() Access     { return t.access.Clone() }
func (t *funcTask) Run(w *World) error { return t.fn(w) }

var (
	worldPtrType = reflect.TypeFor[*World]()
	errorType    = reflect.TypeFor[error]()
)

// FunctionSystem is a Task built from a plain Go function whose parameters
// describe what it accesses. See NewSystem.
type FunctionSystem struct {
	name       string
	fn         reflect.Value
	params     []reflect.Value // *P for each parameter, invalid for *World
	access     Access
	exclusive  bool
	returnsErr bool
}

// NewSystem builds a FunctionSystem from fn. Every parameter of fn must be one
// of Res, ResMut, OptRes, Query, Query2, Query3, EventReader, EventWriter or
// *World; fn may return nothing or an error. A *World parameter makes the
// system exclusive.
//
// Parameters are bound to the World before each run. Parameter state, such
// as an EventReader's cursor, persists across runs of the same system.
//
// An *AccessError is returned when fn is not a function, uses an unsupported
// parameter or result type, or requests the same type both shared and
// exclusively.
func NewSystem(name string, fn any) (*FunctionSystem, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, accessErrorf(name, "system must be a function, got %T", fn)
	}
	if v.IsNil() {
		return nil, accessErrorf(name, "system function is nil")
	}
	ft := v.Type()
	if ft.IsVariadic() {
		return nil, accessErrorf(name, "variadic systems are not supported")
	}
	s := &FunctionSystem{name: name, fn: v}
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) != errorType {
			return nil, accessErrorf(name, "system may only return error, got %v", ft.Out(0))
		}
		s.returnsErr = true
	default:
		return nil, accessErrorf(name, "system returns %d values", ft.NumOut())
	}

	s.params = make([]reflect.Value, ft.NumIn())
	for i := range ft.NumIn() {
		pt := ft.In(i)
		if pt == worldPtrType {
			s.exclusive = true
			continue
		}
		if !reflect.PointerTo(pt).Implements(systemParamType) {
			return nil, accessErrorf(name, "parameter %d: unsupported type %v", i, pt)
		}
		p := reflect.New(pt)
		var pa Access
		if err := p.Interface().(systemParam).declare(&pa); err != nil {
			return nil, accessErrorf(name, "parameter %d: %v", i, err)
		}
		if s.access.Conflicts(pa) {
			return nil, accessErrorf(name, "parameter %d (%v) conflicts with an earlier parameter", i, pt)
		}
		s.access.Merge(pa)
		s.params[i] = p
	}
	if err := s.access.Validate(); err != nil {
		return nil, accessErrorf(name, "%s", err.(*AccessError).Msg)
	}
	return s, nil
}

// MustSystem is like NewSystem but panics on error.
func MustSystem(name string, fn any) *FunctionSystem {
	s, err := NewSystem(name, fn)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *FunctionSystem) Name() string   { return s.name }
func (s *FunctionSystem) Access() Access { return s.access.Clone() }

// Exclusive reports whether the system takes *World.
func (s *FunctionSystem) Exclusive() bool { return s.exclusive }

// Run binds every parameter to w and calls the function. A parameter that
// cannot be bound fails the run before the function is called.
func (s *FunctionSystem) Run(w *World) error {
	args := make([]reflect.Value, len(s.params))
	for i, p := range s.params {
		if !p.IsValid() {
			args[i] = reflect.ValueOf(w)
			continue
		}
		if err := p.Interface().(systemParam).fetch(w); err != nil {
			return fmt.Errorf("system %q: %w", s.name, err)
		}
		args[i] = p.Elem()
	}
	out := s.fn.Call(args)
	if s.returnsErr && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}
