// Package demo is a small particle simulation used by the luminara binary,
// the profiling mains and the integration tests.
package demo

import (
	"time"

	"github.com/neko-jpg/luminara"
)

// Name is the plugin name.
const Name = "demo"

type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

// Lifetime is the simulated time an entity has left.
type Lifetime struct {
	Remaining time.Duration
}

// Time is the simulation clock, advanced by a fixed step every update.
type Time struct {
	Step    time.Duration
	Elapsed time.Duration
	Frame   uint64
}

// Delta returns the step in seconds.
func (t Time) Delta() float64 { return t.Step.Seconds() }

type Gravity struct {
	Y float64
}

// Stats counts what the simulation did.
type Stats struct {
	Spawned   int
	Despawned int
}

// Despawned is sent for every entity whose lifetime ran out.
type Despawned struct {
	Entity luminara.Entity
	Frame  uint64
}

// Plugin spawns Entities particles at startup and simulates them.
type Plugin struct {
	Entities int
	Step     time.Duration
	Lifetime time.Duration
	Gravity  float64
}

// New returns the plugin with its default tuning.
func New(entities int) Plugin {
	return Plugin{
		Entities: entities,
		Step:     time.Second / 60,
		Lifetime: 2 * time.Second,
		Gravity:  -9.81,
	}
}

func (p Plugin) Name() string { return Name }

// Build registers resources, the Despawned event and the systems.
func (p Plugin) Build(app *luminara.App) error {
	w := app.World()
	luminara.InsertResource(w, Time{Step: p.Step})
	luminara.InsertResource(w, Gravity{Y: p.Gravity})
	luminara.InsertResource(w, Stats{})
	luminara.AddEvent[Despawned](w)

	systems := []struct {
		stage luminara.Stage
		name  string
		fn    any
	}{
		{luminara.Startup, "demo.spawn", p.spawn},
		{luminara.PreUpdate, "demo.tick", tick},
		{luminara.Update, "demo.gravity", applyGravity},
		{luminara.Update, "demo.age", age},
		{luminara.Update, "demo.move", move},
		{luminara.PostUpdate, "demo.expire", expire},
		{luminara.PostUpdate, "demo.count", countDespawned},
	}
	for _, s := range systems {
		if err := app.AddSystem(s.stage, s.name, s.fn); err != nil {
			return err
		}
	}
	return nil
}

func (p Plugin) spawn(w *luminara.World) {
	body := luminara.NewBuilder2[Position, Velocity](w)
	life := luminara.NewBuilder[Lifetime](w)
	ents := body.NewEntities(p.Entities)
	for i, e := range ents {
		_, v := body.Get(e)
		*v = Velocity{X: float64(i%7) - 3, Y: float64(i % 5)}
		// Stagger expiry so despawns spread over several frames.
		life.Set(e, Lifetime{Remaining: p.Lifetime + time.Duration(i%10)*p.Step})
	}
	luminara.MustResource[Stats](w).Spawned += len(ents)
}

func tick(clock luminara.ResMut[Time]) {
	t := clock.Get()
	t.Elapsed += t.Step
	t.Frame++
}

func applyGravity(clock luminara.Res[Time], g luminara.Res[Gravity], q luminara.Query[luminara.Mut[Velocity]]) {
	dy := g.Get().Y * clock.Get().Delta()
	q.Each(func(_ luminara.Entity, v luminara.Mut[Velocity]) {
		v.Get().Y += dy
	})
}

func age(clock luminara.Res[Time], q luminara.Query[luminara.Mut[Lifetime]]) {
	step := clock.Get().Step
	q.Each(func(_ luminara.Entity, l luminara.Mut[Lifetime]) {
		l.Get().Remaining -= step
	})
}

func move(clock luminara.Res[Time], q luminara.Query2[luminara.Mut[Position], luminara.Ref[Velocity]]) {
	dt := clock.Get().Delta()
	q.Each(func(_ luminara.Entity, p luminara.Mut[Position], v luminara.Ref[Velocity]) {
		vel := v.Get()
		pos := p.Get()
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
	})
}

// expire despawns every entity whose lifetime ran out. Despawn touches every
// table, so the system takes the whole world.
func expire(w *luminara.World) error {
	frame := luminara.MustResource[Time](w).Frame
	var dead []luminara.Entity
	luminara.NewQuery[luminara.Ref[Lifetime]](w).Each(func(e luminara.Entity, l luminara.Ref[Lifetime]) {
		if l.Get().Remaining <= 0 {
			dead = append(dead, e)
		}
	})
	for _, e := range dead {
		if w.Despawn(e) {
			luminara.SendEvent(w, Despawned{Entity: e, Frame: frame})
		}
	}
	return nil
}

func countDespawned(events luminara.EventReader[Despawned], stats luminara.ResMut[Stats]) {
	stats.Get().Despawned += len(events.Read())
}
