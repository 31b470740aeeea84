// Package luminara is an entity-component-system runtime whose scheduler runs
// tasks in parallel based on the data they declare.
//
// A World stores entities, one table per component type and one cell per
// resource type. Tasks declare an Access: the resource and component types
// they read and write. A Schedule groups each stage's tasks into batches of
// mutually compatible access; the tasks of a batch run concurrently, the
// batches of a stage run in order, and stages run in pipeline order.
//
// Systems are usually written as plain functions:
//
//	func move(t luminara.Res[Time], q luminara.Query2[luminara.Mut[Position], luminara.Ref[Velocity]]) {
//	    dt := t.Get().Delta
//	    q.Each(func(e luminara.Entity, p luminara.Mut[Position], v luminara.Ref[Velocity]) {
//	        p.Get().X += v.Get().X * dt
//	    })
//	}
//
//	s := luminara.NewSchedule()
//	_ = s.AddSystem(luminara.Update, "move", move)
//	_ = s.Run(ctx, world)
package luminara
