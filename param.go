package luminara

import "reflect"

// systemParam is implemented (on the pointer) by every type that can appear
// as a parameter of a function system. declare contributes the parameter's
// data access; fetch binds the parameter to a World right before a run.
type systemParam interface {
	declare(a *Access) error
	fetch(w *World) error
}

var systemParamType = reflect.TypeFor[systemParam]()

// Res is a shared borrow of the `T` resource. The task fails with a
// *MissingResourceError if the resource is absent.
type Res[T any] struct {
	ptr *T
}

func (p *Res[T]) declare(a *Access) error {
	a.ReadResource(reflect.TypeFor[T]())
	return nil
}

func (p *Res[T]) fetch(w *World) error {
	v, ok := GetResourceMut[T](w)
	if !ok {
		return &MissingResourceError{Type: reflect.TypeFor[T]()}
	}
	p.ptr = v
	return nil
}

// Get returns the resource. The pointee must not be modified.
func (p Res[T]) Get() *T { return p.ptr }

// ResMut is an exclusive borrow of the `T` resource.
type ResMut[T any] struct {
	ptr *T
}

func (p *ResMut[T]) declare(a *Access) error {
	a.WriteResource(reflect.TypeFor[T]())
	return nil
}

func (p *ResMut[T]) fetch(w *World) error {
	v, ok := GetResourceMut[T](w)
	if !ok {
		return &MissingResourceError{Type: reflect.TypeFor[T]()}
	}
	p.ptr = v
	return nil
}

// Get returns the resource for modification.
func (p ResMut[T]) Get() *T { return p.ptr }

// OptRes is a shared borrow of a resource that may be absent.
type OptRes[T any] struct {
	ptr *T
}

func (p *OptRes[T]) declare(a *Access) error {
	a.ReadResource(reflect.TypeFor[T]())
	return nil
}

func (p *OptRes[T]) fetch(w *World) error {
	p.ptr, _ = GetResourceMut[T](w)
	return nil
}

// Get returns the resource, or nil when it is absent.
func (p OptRes[T]) Get() *T { return p.ptr }

// Present reports whether the resource exists.
func (p OptRes[T]) Present() bool { return p.ptr != nil }
