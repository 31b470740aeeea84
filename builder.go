package luminara

import "reflect"

// Builder spawns entities that carry one component of type `T`, taking the
// table lock once per batch instead of once per entity.
type Builder[T any] struct {
	world *World
	table *table[T]
}

// NewBuilder creates a Builder for component `T`, creating its table if
// needed.
func NewBuilder[T any](w *World) *Builder[T] {
	return &Builder[T]{world: w, table: tableFor[T](w, true)}
}

// New returns a Builder for the same component type on another world.
func (b *Builder[T]) New(w *World) *Builder[T] {
	return NewBuilder[T](w)
}

// NewEntity spawns one entity with a zero `T`.
func (b *Builder[T]) NewEntity() Entity {
	var zero T
	return b.NewEntityWithValue(zero)
}

// NewEntityWithValue spawns one entity carrying comp.
func (b *Builder[T]) NewEntityWithValue(comp T) Entity {
	e := b.world.Spawn()
	b.table.mu.Lock()
	b.table.setNoLock(e, comp)
	b.table.mu.Unlock()
	return e
}

// NewEntities spawns count entities with a zero `T`.
func (b *Builder[T]) NewEntities(count int) []Entity {
	var zero T
	return b.NewEntitiesWithValue(count, zero)
}

// NewEntitiesWithValue spawns count entities, all carrying a copy of comp.
func (b *Builder[T]) NewEntitiesWithValue(count int, comp T) []Entity {
	if count <= 0 {
		return nil
	}
	ents := b.world.SpawnBatch(count)
	b.table.mu.Lock()
	defer b.table.mu.Unlock()
	for _, e := range ents {
		b.table.setNoLock(e, comp)
	}
	return ents
}

// Get returns a pointer to the entity's `T`, or nil.
func (b *Builder[T]) Get(e Entity) *T {
	return b.table.get(e)
}

// Set sets the entity's `T`. Dead entities are ignored.
func (b *Builder[T]) Set(e Entity, comp T) {
	AddComponent(b.world, e, comp)
}

// SetBatch sets comp on every live entity in entities.
func (b *Builder[T]) SetBatch(entities []Entity, comp T) {
	b.table.mu.Lock()
	defer b.table.mu.Unlock()
	for _, e := range entities {
		if b.world.entities.isAlive(e) {
			b.table.setNoLock(e, comp)
		}
	}
}

// Builder2 spawns entities that carry components `T1` and `T2`.
type Builder2[T1 any, T2 any] struct {
	world *World
	t1    *table[T1]
	t2    *table[T2]
}

// NewBuilder2 creates a Builder2, creating both tables if needed. It panics
// if T1 and T2 are the same type.
func NewBuilder2[T1 any, T2 any](w *World) *Builder2[T1, T2] {
	if reflect.TypeFor[T1]() == reflect.TypeFor[T2]() {
		panic("luminara: duplicate component types in Builder2")
	}
	return &Builder2[T1, T2]{world: w, t1: tableFor[T1](w, true), t2: tableFor[T2](w, true)}
}

// New returns a Builder2 for the same component types on another world.
func (b *Builder2[T1, T2]) New(w *World) *Builder2[T1, T2] {
	return NewBuilder2[T1, T2](w)
}

// NewEntity spawns one entity with zero components.
func (b *Builder2[T1, T2]) NewEntity() Entity {
	var (
		z1 T1
		z2 T2
	)
	return b.NewEntityWithValue(z1, z2)
}

// NewEntityWithValue spawns one entity carrying c1 and c2.
func (b *Builder2[T1, T2]) NewEntityWithValue(c1 T1, c2 T2) Entity {
	e := b.world.Spawn()
	setAll(b.t1, []Entity{e}, c1)
	setAll(b.t2, []Entity{e}, c2)
	return e
}

// NewEntities spawns count entities with zero components.
func (b *Builder2[T1, T2]) NewEntities(count int) []Entity {
	var (
		z1 T1
		z2 T2
	)
	return b.NewEntitiesWithValue(count, z1, z2)
}

// NewEntitiesWithValue spawns count entities, all carrying copies of c1 and
// c2. Each table is locked once for the whole batch.
func (b *Builder2[T1, T2]) NewEntitiesWithValue(count int, c1 T1, c2 T2) []Entity {
	if count <= 0 {
		return nil
	}
	ents := b.world.SpawnBatch(count)
	setAll(b.t1, ents, c1)
	setAll(b.t2, ents, c2)
	return ents
}

// Get returns pointers to the entity's components. Either is nil when
// missing.
func (b *Builder2[T1, T2]) Get(e Entity) (*T1, *T2) {
	return b.t1.get(e), b.t2.get(e)
}

// Set sets both components of a live entity.
func (b *Builder2[T1, T2]) Set(e Entity, c1 T1, c2 T2) {
	AddComponent(b.world, e, c1)
	AddComponent(b.world, e, c2)
}

func setAll[T any](t *table[T], ents []Entity, comp T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range ents {
		t.setNoLock(e, comp)
	}
}
