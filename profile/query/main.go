// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query mem.pprof

package main

import (
	"github.com/pkg/profile"

	"github.com/neko-jpg/luminara"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
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

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := luminara.NewWorld(numEntities)
		query := luminara.NewQuery2[luminara.Mut[comp1], luminara.Ref[comp2]](w)
		b1 := luminara.NewBuilder[comp1](w)
		b2 := luminara.NewBuilder[comp2](w)

		for range iters {
			ents := b1.NewEntitiesWithValue(numEntities, comp1{V: 1})
			b2.SetBatch(ents, comp2{V: 2, W: 3})
			query.Each(func(_ luminara.Entity, c1 luminara.Mut[comp1], c2 luminara.Ref[comp2]) {
				v := c2.Get()
				c1.Get().V += v.V
				c1.Get().W += v.W
			})
			for _, e := range ents {
				w.Despawn(e)
			}
		}
	}
}
