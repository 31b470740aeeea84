package luminara

// AddComponent sets the component of type `T` on the entity, inserting a new
// row or overwriting the existing one.
//
// Parameters:
//   - w: The World where the entity resides.
//   - e: The Entity to modify.
//   - val: The component value.
//
// Returns:
//   - false if the entity is dead or stale, true otherwise.
func AddComponent[T any](w *World, e Entity, val T) bool {
	t := tableFor[T](w, true)
	t.mu.Lock()
	defer t.mu.Unlock()
	if !w.entities.isAlive(e) {
		return false
	}
	t.setNoLock(e, val)
	return true
}

// GetComponent returns a copy of the entity's component of type `T`. The second
// result is false if the entity is invalid or has no such component.
func GetComponent[T any](w *World, e Entity) (T, bool) {
	var zero T
	t := tableFor[T](w, false)
	if t == nil {
		return zero, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	p := t.getNoLock(e)
	if p == nil {
		return zero, false
	}
	return *p, true
}

// GetComponentMut returns a pointer to the entity's component of type `T`, or
// nil if not present or invalid.
//
// The pointer stays valid while the table grows; removing any row of the same
// type may move the row it points at.
func GetComponentMut[T any](w *World, e Entity) *T {
	t := tableFor[T](w, false)
	if t == nil {
		return nil
	}
	return t.get(e)
}

// RemoveComponent removes the component of type `T` from the entity and
// returns the removed value. Removing an absent component is a no-op that
// returns false.
func RemoveComponent[T any](w *World, e Entity) (T, bool) {
	var zero T
	t := tableFor[T](w, false)
	if t == nil {
		return zero, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.takeNoLock(e)
}

// HasComponent reports whether the entity has a component of type `T`.
func HasComponent[T any](w *World, e Entity) bool {
	t := tableFor[T](w, false)
	if t == nil {
		return false
	}
	return t.has(e)
}

// ComponentCount returns the number of entities carrying a `T`.
func ComponentCount[T any](w *World) int {
	t := tableFor[T](w, false)
	if t == nil {
		return 0
	}
	return t.size()
}

// EntityMut is a handle for editing one entity. Component edits go through
// Insert and Remove, which return the handle so calls can be chained:
//
//	em := luminara.Insert(w.Entity(e), Position{})
//	luminara.Remove[Velocity](em).Despawn()
type EntityMut struct {
	world  *World
	entity Entity
}

// Entity returns an EntityMut for e. The handle does not keep e alive.
func (w *World) Entity(e Entity) EntityMut {
	return EntityMut{world: w, entity: e}
}

// ID returns the entity the handle edits.
func (m EntityMut) ID() Entity { return m.entity }

// World returns the world the entity lives in.
func (m EntityMut) World() *World { return m.world }

// IsAlive reports whether the entity is still alive.
func (m EntityMut) IsAlive() bool { return m.world.IsAlive(m.entity) }

// Despawn removes the entity and all of its components.
func (m EntityMut) Despawn() bool { return m.world.Despawn(m.entity) }

// Insert sets the `T` component of the handle's entity. Dead entities are
// ignored.
func Insert[T any](m EntityMut, val T) EntityMut {
	AddComponent(m.world, m.entity, val)
	return m
}

// Remove drops the `T` component of the handle's entity if it has one.
func Remove[T any](m EntityMut) EntityMut {
	RemoveComponent[T](m.world, m.entity)
	return m
}
