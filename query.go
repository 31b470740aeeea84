package luminara

import (
	"fmt"
	"reflect"
)

type termKind uint8

const (
	termRef termKind = iota
	termMut
	termWith
	termWithout
)

// Term is one component slot of a query: Ref[T] (shared), Mut[T] (exclusive),
// With[T] or Without[T] (existence filters, declared as reads). The method
// set is sealed; only the term types of this package satisfy it.
type Term[S any] interface {
	termType() reflect.Type
	termKind() termKind
	bind(t componentTable, e Entity) (S, bool)
}

// Ref is a shared borrow of an entity's `T` component.
type Ref[T any] struct {
	ptr *T
}

func (Ref[T]) termType() reflect.Type { return reflect.TypeFor[T]() }
func (Ref[T]) termKind() termKind     { return termRef }

func (Ref[T]) bind(t componentTable, e Entity) (Ref[T], bool) {
	tb, _ := t.(*table[T])
	if tb == nil {
		return Ref[T]{}, false
	}
	p := tb.get(e)
	return Ref[T]{ptr: p}, p != nil
}

// Get returns a copy of the component.
func (r Ref[T]) Get() T { return *r.ptr }

// Mut is an exclusive borrow of an entity's `T` component.
type Mut[T any] struct {
	ptr *T
}

func (Mut[T]) termType() reflect.Type { return reflect.TypeFor[T]() }
func (Mut[T]) termKind() termKind     { return termMut }

func (Mut[T]) bind(t componentTable, e Entity) (Mut[T], bool) {
	tb, _ := t.(*table[T])
	if tb == nil {
		return Mut[T]{}, false
	}
	p := tb.get(e)
	return Mut[T]{ptr: p}, p != nil
}

// Get returns a pointer to the component for modification.
func (m Mut[T]) Get() *T { return m.ptr }

// With matches entities that have a `T` without borrowing its value.
type With[T any] struct{}

func (With[T]) termType() reflect.Type { return reflect.TypeFor[T]() }
func (With[T]) termKind() termKind     { return termWith }

func (With[T]) bind(t componentTable, e Entity) (With[T], bool) {
	return With[T]{}, t != nil && t.has(e)
}

// Without matches entities that do not have a `T`.
type Without[T any] struct{}

func (Without[T]) termType() reflect.Type { return reflect.TypeFor[T]() }
func (Without[T]) termKind() termKind     { return termWithout }

func (Without[T]) bind(t componentTable, e Entity) (Without[T], bool) {
	return Without[T]{}, t == nil || !t.has(e)
}

type termInfo struct {
	typ  reflect.Type
	kind termKind
}

func infoOf[S Term[S]]() termInfo {
	var zero S
	return termInfo{typ: zero.termType(), kind: zero.termKind()}
}

// declareTerms adds the access of a query's terms. A component may appear in
// several filter or Ref slots. A Mut slot may share its type only with With
// slots, which are then covered by the write.
func declareTerms(a *Access, terms ...termInfo) error {
	written := make(map[reflect.Type]bool)
	for i, t := range terms {
		for _, o := range terms[i+1:] {
			if t.typ != o.typ || (t.kind != termMut && o.kind != termMut) {
				continue
			}
			if t.kind != termWith && o.kind != termWith {
				return fmt.Errorf("query requests component %v more than once with exclusive access", t.typ)
			}
		}
		if t.kind == termMut {
			written[t.typ] = true
		}
	}
	for _, t := range terms {
		switch {
		case t.kind == termMut:
			a.WriteComponent(t.typ)
		case !written[t.typ]:
			a.ReadComponent(t.typ)
		}
	}
	return nil
}

// candidates returns the entities worth binding: the owners of the smallest
// required table, or every live entity when the query only has Without terms.
func candidates(w *World, terms []termInfo, tables []componentTable) []Entity {
	var driver componentTable
	for i, t := range terms {
		if t.kind == termWithout {
			continue
		}
		if tables[i] == nil {
			return nil
		}
		if driver == nil || tables[i].size() < driver.size() {
			driver = tables[i]
		}
	}
	if driver == nil {
		return w.Entities()
	}
	return driver.owners()
}

func resolveTables(w *World, terms []termInfo) []componentTable {
	tables := make([]componentTable, len(terms))
	for i, t := range terms {
		tables[i] = w.tableByType(t.typ)
	}
	return tables
}

// Query iterates the entities matching one term.
//
// Example:
//
//	func(q luminara.Query[luminara.Mut[Position]]) {
//	    q.Each(func(e luminara.Entity, p luminara.Mut[Position]) {
//	        p.Get().X++
//	    })
//	}
type Query[A Term[A]] struct {
	w *World
}

// NewQuery binds a query to w for use outside function systems.
func NewQuery[A Term[A]](w *World) Query[A] {
	return Query[A]{w: w}
}

func (q *Query[A]) declare(a *Access) error {
	return declareTerms(a, infoOf[A]())
}

func (q *Query[A]) fetch(w *World) error {
	q.w = w
	return nil
}

// Each calls fn for every matching entity. The entity set is captured when
// Each starts; entities that stop matching mid-iteration are skipped.
func (q Query[A]) Each(fn func(Entity, A)) {
	terms := []termInfo{infoOf[A]()}
	tables := resolveTables(q.w, terms)
	var za A
	for _, e := range candidates(q.w, terms, tables) {
		a, ok := za.bind(tables[0], e)
		if !ok {
			continue
		}
		fn(e, a)
	}
}

// Get binds the query to a single entity.
func (q Query[A]) Get(e Entity) (A, bool) {
	var za A
	return za.bind(q.w.tableByType(za.termType()), e)
}

// Count returns the number of matching entities.
func (q Query[A]) Count() int {
	n := 0
	q.Each(func(Entity, A) { n++ })
	return n
}

// Query2 iterates the entities matching two terms.
type Query2[A Term[A], B Term[B]] struct {
	w *World
}

// NewQuery2 binds a two-term query to w.
func NewQuery2[A Term[A], B Term[B]](w *World) Query2[A, B] {
	return Query2[A, B]{w: w}
}

func (q *Query2[A, B]) declare(a *Access) error {
	return declareTerms(a, infoOf[A](), infoOf[B]())
}

func (q *Query2[A, B]) fetch(w *World) error {
	q.w = w
	return nil
}

// Each calls fn for every matching entity.
func (q Query2[A, B]) Each(fn func(Entity, A, B)) {
	terms := []termInfo{infoOf[A](), infoOf[B]()}
	tables := resolveTables(q.w, terms)
	var (
		za A
		zb B
	)
	for _, e := range candidates(q.w, terms, tables) {
		a, ok := za.bind(tables[0], e)
		if !ok {
			continue
		}
		b, ok := zb.bind(tables[1], e)
		if !ok {
			continue
		}
		fn(e, a, b)
	}
}

// Get binds the query to a single entity.
func (q Query2[A, B]) Get(e Entity) (A, B, bool) {
	var (
		za A
		zb B
	)
	a, ok := za.bind(q.w.tableByType(za.termType()), e)
	if !ok {
		return za, zb, false
	}
	b, ok := zb.bind(q.w.tableByType(zb.termType()), e)
	return a, b, ok
}

// Count returns the number of matching entities.
func (q Query2[A, B]) Count() int {
	n := 0
	q.Each(func(Entity, A, B) { n++ })
	return n
}

// Query3 iterates the entities matching three terms.
type Query3[A Term[A], B Term[B], C Term[C]] struct {
	w *World
}

// NewQuery3 binds a three-term query to w.
func NewQuery3[A Term[A], B Term[B], C Term[C]](w *World) Query3[A, B, C] {
	return Query3[A, B, C]{w: w}
}

func (q *Query3[A, B, C]) declare(a *Access) error {
	return declareTerms(a, infoOf[A](), infoOf[B](), infoOf[C]())
}

func (q *Query3[A, B, C]) fetch(w *World) error {
	q.w = w
	return nil
}

// Each calls fn for every matching entity.
func (q Query3[A, B, C]) Each(fn func(Entity, A, B, C)) {
	terms := []termInfo{infoOf[A](), infoOf[B](), infoOf[C]()}
	tables := resolveTables(q.w, terms)
	var (
		za A
		zb B
		zc C
	)
	for _, e := range candidates(q.w, terms, tables) {
		a, ok := za.bind(tables[0], e)
		if !ok {
			continue
		}
		b, ok := zb.bind(tables[1], e)
		if !ok {
			continue
		}
		c, ok := zc.bind(tables[2], e)
		if !ok {
			continue
		}
		fn(e, a, b, c)
	}
}

// Count returns the number of matching entities.
func (q Query3[A, B, C]) Count() int {
	n := 0
	q.Each(func(Entity, A, B, C) { n++ })
	return n
}
