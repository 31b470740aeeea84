package luminara

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEntity(t *testing.T) {
	w := NewWorld(4)
	e1 := w.Spawn()
	e2 := w.Spawn()
	assert.NotEqual(t, e1, e2)
	assert.True(t, w.IsAlive(e1))
	assert.True(t, w.IsAlive(e2))
	assert.Equal(t, 2, w.EntityCount())
	assert.False(t, w.IsAlive(Entity{}), "zero entity is never alive")
}

func TestSpawnBatchGrowsPastCapacity(t *testing.T) {
	w := NewWorld(2)
	ents := w.SpawnBatch(10)
	require.Len(t, ents, 10)
	seen := make(map[Entity]bool)
	for _, e := range ents {
		assert.True(t, w.IsAlive(e))
		assert.False(t, seen[e])
		seen[e] = true
	}
	assert.Equal(t, 10, w.EntityCount())
}

func TestDespawnRecyclesWithNewGeneration(t *testing.T) {
	w := NewWorld(4)
	e := w.Spawn()
	require.True(t, AddComponent(w, e, Health{HP: 10}))
	require.True(t, w.Despawn(e))
	assert.False(t, w.IsAlive(e))
	assert.False(t, w.Despawn(e), "second despawn is a no-op")

	reused := w.Spawn()
	assert.Equal(t, e.ID, reused.ID)
	assert.Greater(t, reused.Version, e.Version)
	assert.False(t, w.IsAlive(e), "stale handle must not alias the new entity")

	_, ok := GetComponent[Health](w, reused)
	assert.False(t, ok, "components do not survive recycling")
	_, ok = GetComponent[Health](w, e)
	assert.False(t, ok)
	assert.False(t, AddComponent(w, e, Health{HP: 1}), "stale handle cannot gain components")
}

func TestEntitiesOrdered(t *testing.T) {
	w := NewWorld(8)
	ents := w.SpawnBatch(5)
	w.Despawn(ents[2])
	list := w.Entities()
	require.Len(t, list, 4)
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].Less(list[i]))
	}
}

func TestEntityLess(t *testing.T) {
	assert.True(t, Entity{ID: 1, Version: 5}.Less(Entity{ID: 2, Version: 1}))
	assert.True(t, Entity{ID: 1, Version: 1}.Less(Entity{ID: 1, Version: 2}))
	assert.False(t, Entity{ID: 2, Version: 1}.Less(Entity{ID: 2, Version: 1}))
	assert.Equal(t, "3:2", Entity{ID: 3, Version: 2}.String())
}

func TestComponentRoundTrip(t *testing.T) {
	w := NewWorld(4)
	e := w.Spawn()

	_, ok := GetComponent[Position](w, e)
	assert.False(t, ok, "absent table")

	require.True(t, AddComponent(w, e, Position{X: 1, Y: 2}))
	got, ok := GetComponent[Position](w, e)
	require.True(t, ok)
	assert.Equal(t, Position{X: 1, Y: 2}, got)
	assert.True(t, HasComponent[Position](w, e))

	require.True(t, AddComponent(w, e, Position{X: 3}))
	got, _ = GetComponent[Position](w, e)
	assert.Equal(t, Position{X: 3}, got, "add overwrites")
	assert.Equal(t, 1, ComponentCount[Position](w))

	p := GetComponentMut[Position](w, e)
	require.NotNil(t, p)
	p.Y = 7
	got, _ = GetComponent[Position](w, e)
	assert.Equal(t, float32(7), got.Y)

	removed, ok := RemoveComponent[Position](w, e)
	require.True(t, ok)
	assert.Equal(t, Position{X: 3, Y: 7}, removed)
	_, ok = GetComponent[Position](w, e)
	assert.False(t, ok)
	assert.Nil(t, GetComponentMut[Position](w, e))
	_, ok = RemoveComponent[Position](w, e)
	assert.False(t, ok, "removing twice is a no-op")
	assert.True(t, w.IsAlive(e))
}

func TestComponentDataIntegrityAfterSwapAndPop(t *testing.T) {
	w := NewWorld(8)
	ents := w.SpawnBatch(4)
	for i, e := range ents {
		AddComponent(w, e, Health{HP: i * 10})
	}
	RemoveComponent[Health](w, ents[1])
	w.Despawn(ents[0])

	for i, e := range ents[2:] {
		got, ok := GetComponent[Health](w, e)
		require.True(t, ok)
		assert.Equal(t, (i+2)*10, got.HP)
	}
	assert.Equal(t, 2, ComponentCount[Health](w))
}

func TestTablePointersSurviveGrowth(t *testing.T) {
	w := NewWorld(0)
	first := w.Spawn()
	AddComponent(w, first, Health{HP: 42})
	p := GetComponentMut[Health](w, first)
	for range ChunkSize * 2 {
		AddComponent(w, w.Spawn(), Health{})
	}
	assert.Same(t, p, GetComponentMut[Health](w, first))
	assert.Equal(t, 42, p.HP)
}

func TestClearEntities(t *testing.T) {
	w := NewWorld(4)
	InsertResource(w, resX{N: 1})
	for _, e := range w.SpawnBatch(3) {
		AddComponent(w, e, Position{})
	}
	w.ClearEntities()
	assert.Equal(t, 0, w.EntityCount())
	assert.Equal(t, 0, ComponentCount[Position](w))
	assert.True(t, HasResource[resX](w), "resources are untouched")
	e := w.Spawn()
	assert.True(t, w.IsAlive(e))
}

func TestConcurrentTablesMutate(t *testing.T) {
	w := NewWorld(0)
	ents := w.SpawnBatch(1000)
	var wg sync.WaitGroup
	wg.Go(func() {
		for _, e := range ents {
			AddComponent(w, e, Position{X: 1})
		}
	})
	wg.Go(func() {
		for _, e := range ents {
			AddComponent(w, e, Velocity{Y: 1})
		}
	})
	wg.Go(func() {
		for i := range 1000 {
			InsertResource(w, resX{N: i})
		}
	})
	wg.Wait()
	assert.Equal(t, 1000, ComponentCount[Position](w))
	assert.Equal(t, 1000, ComponentCount[Velocity](w))
}

func TestBuilder(t *testing.T) {
	w := NewWorld(0)
	b := NewBuilder[Health](w)

	e := b.NewEntity()
	require.NotNil(t, b.Get(e))
	assert.Equal(t, 0, b.Get(e).HP)

	e2 := b.NewEntityWithValue(Health{HP: 5})
	assert.Equal(t, 5, b.Get(e2).HP)

	ents := b.NewEntitiesWithValue(3, Health{HP: 9})
	require.Len(t, ents, 3)
	for _, x := range ents {
		got, ok := GetComponent[Health](w, x)
		require.True(t, ok)
		assert.Equal(t, 9, got.HP)
	}
	assert.Nil(t, b.NewEntities(0))

	b.Set(e, Health{HP: 1})
	assert.Equal(t, 1, b.Get(e).HP)

	w.Despawn(ents[0])
	b.SetBatch(ents, Health{HP: 2})
	assert.Nil(t, b.Get(ents[0]), "dead entities are skipped")
	assert.Equal(t, 2, b.Get(ents[1]).HP)
	assert.Equal(t, 4, ComponentCount[Health](w))

	other := NewWorld(0)
	assert.Equal(t, 0, ComponentCount[Health](other))
	b.New(other).NewEntity()
	assert.Equal(t, 1, ComponentCount[Health](other))
}

func TestBuilder2(t *testing.T) {
	w := NewWorld(0)
	b := NewBuilder2[Position, Velocity](w)

	e := b.NewEntityWithValue(Position{X: 1}, Velocity{Y: 2})
	p, v := b.Get(e)
	require.NotNil(t, p)
	require.NotNil(t, v)
	assert.Equal(t, Position{X: 1}, *p)
	assert.Equal(t, Velocity{Y: 2}, *v)

	ents := b.NewEntities(5)
	assert.Len(t, ents, 5)
	assert.Equal(t, 6, NewQuery2[Ref[Position], Ref[Velocity]](w).Count())

	b.Set(ents[0], Position{X: 3}, Velocity{X: 4})
	p, v = b.Get(ents[0])
	assert.Equal(t, float32(3), p.X)
	assert.Equal(t, float32(4), v.X)

	RemoveComponent[Velocity](w, ents[1])
	p, v = b.Get(ents[1])
	assert.NotNil(t, p)
	assert.Nil(t, v)

	assert.Panics(t, func() { NewBuilder2[Health, Health](w) })
	assert.Equal(t, uint32(1), b.New(NewWorld(0)).NewEntitiesWithValue(1, Position{}, Velocity{})[0].Version)
}

func TestEntityMut(t *testing.T) {
	w := NewWorld(0)
	e := w.Spawn()
	em := Insert(Insert(w.Entity(e), Position{X: 1}), Health{HP: 3})
	assert.Equal(t, e, em.ID())
	assert.Same(t, w, em.World())
	assert.True(t, HasComponent[Position](w, e))
	assert.True(t, HasComponent[Health](w, e))

	Remove[Frozen](Remove[Health](em))
	assert.False(t, HasComponent[Health](w, e))
	assert.True(t, HasComponent[Position](w, e))

	assert.True(t, em.Despawn())
	assert.False(t, em.IsAlive())
	assert.False(t, em.Despawn())
	Insert(em, Position{})
	assert.Equal(t, 0, ComponentCount[Position](w), "dead handles are ignored")
}
