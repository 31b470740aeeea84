// Profiling:
// go build ./profile/schedule
// go tool pprof -http=":8000" -nodefraction=0.001 ./schedule cpu.pprof

package main

import (
	"context"
	"log"

	"github.com/pkg/profile"

	"github.com/neko-jpg/luminara"
	"github.com/neko-jpg/luminara/internal/demo"
)

func main() {
	rounds := 20
	ticks := 600
	entities := 10000
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, ticks, entities)
	p.Stop()
}

func run(rounds, ticks, numEntities int) {
	ctx := context.Background()
	for range rounds {
		app := luminara.NewApp(luminara.DefaultConfig(), luminara.WithCapacity(numEntities))
		if err := app.AddPlugin(demo.New(numEntities)); err != nil {
			log.Fatal(err)
		}
		if err := app.RunTicks(ctx, ticks); err != nil {
			log.Fatal(err)
		}
	}
}
