package luminara

import (
	"context"
	"fmt"
	"testing"
)

var benchSizes = []int{1000, 10000, 100000}

func sizeName(size int) string {
	if size >= 1000000 {
		return fmt.Sprintf("%dM", size/1000000)
	}
	return fmt.Sprintf("%dK", size/1000)
}

func BenchmarkWorldSpawn(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := NewWorld(size)
				b.StartTimer()
				for range size {
					w.Spawn()
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkWorldSpawnBatch(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := NewWorld(size)
				b.StartTimer()
				w.SpawnBatch(size)
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkBuilderNewEntitiesWithValue(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := NewWorld(size)
				builder := NewBuilder[Position](w)
				b.StartTimer()
				builder.NewEntitiesWithValue(size, Position{X: 1, Y: 2})
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkGetComponent(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := NewWorld(size)
			ents := NewBuilder[Position](w).NewEntities(size)
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				for _, e := range ents {
					_, _ = GetComponent[Position](w, e)
				}
			}
		})
	}
}

func BenchmarkAddRemoveComponent(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := NewWorld(size)
			ents := w.SpawnBatch(size)
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				for _, e := range ents {
					AddComponent(w, e, Health{HP: 10})
				}
				for _, e := range ents {
					RemoveComponent[Health](w, e)
				}
			}
		})
	}
}

func BenchmarkWorldDespawn(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			for b.Loop() {
				b.StopTimer()
				w := NewWorld(size)
				ents := NewBuilder[Position](w).NewEntities(size)
				NewBuilder[Velocity](w).SetBatch(ents, Velocity{X: 1})
				b.StartTimer()
				for _, e := range ents {
					w.Despawn(e)
				}
			}
			b.ReportAllocs()
		})
	}
}

func BenchmarkQueryIterate(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := NewWorld(size)
			NewBuilder[Position](w).NewEntities(size)
			q := NewQuery[Mut[Position]](w)
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				q.Each(func(_ Entity, p Mut[Position]) {
					p.Get().X++
				})
			}
		})
	}
}

func BenchmarkQuery2Iterate(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := NewWorld(size)
			ents := NewBuilder[Position](w).NewEntities(size)
			NewBuilder[Velocity](w).SetBatch(ents, Velocity{X: 1, Y: 1})
			q := NewQuery2[Mut[Position], Ref[Velocity]](w)
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				q.Each(func(_ Entity, p Mut[Position], v Ref[Velocity]) {
					pos, vel := p.Get(), v.Get()
					pos.X += vel.X
					pos.Y += vel.Y
				})
			}
		})
	}
}

func BenchmarkQuery3Iterate(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := NewWorld(size)
			ents := NewBuilder[Position](w).NewEntities(size)
			NewBuilder[Velocity](w).SetBatch(ents, Velocity{X: 1, Y: 1})
			NewBuilder[Health](w).SetBatch(ents[:size/2], Health{HP: 1})
			q := NewQuery3[Mut[Position], Ref[Velocity], Without[Health]](w)
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				q.Each(func(_ Entity, p Mut[Position], v Ref[Velocity], _ Without[Health]) {
					p.Get().X += v.Get().X
				})
			}
		})
	}
}

func BenchmarkSchedulePlan(b *testing.B) {
	for _, size := range []int{10, 100, 1000} {
		b.Run(fmt.Sprint(size), func(b *testing.B) {
			tasks := make([]Task, size)
			for i := range tasks {
				opts := []AccessOption{Reads[Position]()}
				if i%3 == 0 {
					opts = []AccessOption{Writes[Velocity]()}
				}
				tasks[i] = NewTask(fmt.Sprint(i), func(*World) error { return nil }, opts...)
			}
			b.ReportAllocs()
			for b.Loop() {
				s := NewSchedule()
				for _, t := range tasks {
					_ = s.Register(Update, t, false)
				}
				_ = s.Plan(Update)
			}
		})
	}
}

func BenchmarkScheduleRun(b *testing.B) {
	for _, size := range benchSizes {
		b.Run(sizeName(size), func(b *testing.B) {
			w := NewWorld(size)
			ents := NewBuilder[Position](w).NewEntities(size)
			NewBuilder[Velocity](w).SetBatch(ents, Velocity{X: 1, Y: 1})
			NewBuilder[Health](w).SetBatch(ents, Health{HP: 1})

			s := NewSchedule(WithWorkers(4))
			must := func(err error) {
				if err != nil {
					b.Fatal(err)
				}
			}
			must(s.AddSystem(Update, "move", func(q Query2[Mut[Position], Ref[Velocity]]) {
				q.Each(func(_ Entity, p Mut[Position], v Ref[Velocity]) { p.Get().X += v.Get().X })
			}))
			must(s.AddSystem(Update, "heal", func(q Query[Mut[Health]]) {
				q.Each(func(_ Entity, h Mut[Health]) { h.Get().HP++ })
			}))
			must(s.AddSystem(Update, "count", func(q Query[Ref[Position]]) { _ = q.Count() }))

			ctx := context.Background()
			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				if err := s.Run(ctx, w); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
