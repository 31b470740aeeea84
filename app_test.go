package luminara

import (
	"bytes"
	"errors"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	N int
}

func counterPlugin(name string, deps ...string) PluginFunc {
	return PluginFunc{
		PluginName: name,
		Requires:   deps,
		BuildFunc: func(app *App) error {
			InsertResource(app.World(), counter{})
			return app.AddSystem(Update, name+".inc", func(c ResMut[counter]) {
				c.Get().N++
			})
		},
	}
}

func TestNewAppHasULID(t *testing.T) {
	a := NewApp(DefaultConfig())
	b := NewApp(DefaultConfig())
	_, err := ulid.ParseStrict(a.ID())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.NotNil(t, a.World())
	assert.NotNil(t, a.Schedule())
	assert.NotNil(t, a.EventBus())
}

func TestAppLoggerCarriesID(t *testing.T) {
	var buf bytes.Buffer
	app := NewApp(DefaultConfig(), WithAppLogger(NewLogger(&buf, "text", "debug")))
	require.NoError(t, app.AddPlugin(counterPlugin("count")))
	assert.Contains(t, buf.String(), "app="+app.ID())
}

func TestAppPlugins(t *testing.T) {
	app := NewApp(DefaultConfig())
	require.NoError(t, app.AddPlugin(counterPlugin("base")))
	assert.True(t, app.HasPlugin("base"))

	err := app.AddPlugin(counterPlugin("base"))
	assert.ErrorIs(t, err, ErrDuplicatePlugin)

	err = app.AddPlugin(PluginFunc{PluginName: "needs", Requires: []string{"base", "physics", "audio"}, BuildFunc: func(*App) error { return nil }})
	var pe *PluginError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []string{"physics", "audio"}, pe.Missing)
	assert.False(t, app.HasPlugin("needs"))

	buildErr := errors.New("no gpu")
	err = app.AddPlugin(PluginFunc{PluginName: "render", BuildFunc: func(*App) error { return buildErr }})
	assert.ErrorIs(t, err, buildErr)

	assert.Equal(t, []string{"base", "render"}, app.Plugins())
}

func TestAppUpdate(t *testing.T) {
	app := NewApp(DefaultConfig())
	require.NoError(t, app.AddPlugin(counterPlugin("count")))
	AddEvent[TestEvent](app.World())
	startups := 0
	require.NoError(t, app.AddSystem(Startup, "init", func(c ResMut[counter]) { startups++ }))

	require.NoError(t, app.RunTicks(testContext(t), 4))
	c, _ := GetResource[counter](app.World())
	assert.Equal(t, 4, c.N)
	assert.Equal(t, 1, startups)
	assert.Equal(t, uint64(4), app.Ticks())
}

func TestAppUpdateAdvancesEvents(t *testing.T) {
	app := NewApp(DefaultConfig())
	AddEvent[TestEvent](app.World())
	SendEvent(app.World(), TestEvent{Value: 1})
	q, _ := GetResourceMut[Events[TestEvent]](app.World())
	require.NoError(t, app.Update(testContext(t)))
	assert.Equal(t, 1, q.Len())
	require.NoError(t, app.Update(testContext(t)))
	assert.Equal(t, 0, q.Len())
}

func TestAppRunTicksStopsOnError(t *testing.T) {
	cfg := DefaultConfig()
	app := NewApp(cfg)
	calls := 0
	require.NoError(t, app.AddTask(Update, NewTask("fail", func(*World) error {
		calls++
		if calls == 2 {
			return errors.New("second tick")
		}
		return nil
	}, WritesResource[counter]())))
	err := app.RunTicks(testContext(t), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick 1")
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint64(1), app.Ticks())
}
