// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/pkg/profile"

	"github.com/neko-jpg/luminara"
)

type comp1 struct {
	V int64
	W int64
}

func main() {
	count := 50
	iters := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

// run churns the allocator: every round respawns recycled IDs.
func run(rounds, iters, numEntities int) {
	for range rounds {
		w := luminara.NewWorld(numEntities)
		for range iters {
			ents := w.SpawnBatch(numEntities)
			for i, e := range ents {
				luminara.AddComponent(w, e, comp1{V: int64(i)})
			}
			for _, e := range ents {
				w.Despawn(e)
			}
		}
	}
}
