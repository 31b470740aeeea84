package luminara

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
)

// App owns a World and the Schedule that runs against it, plus the plugins
// that populated them.
type App struct {
	id       string
	world    *World
	schedule *Schedule
	bus      *EventBus
	logger   *slog.Logger
	metrics  *Metrics

	mu      sync.Mutex
	plugins []string
	added   map[string]struct{}
	ticks   uint64
}

// AppOption configures an App.
type AppOption func(*appOptions)

type appOptions struct {
	logger   *slog.Logger
	metrics  *Metrics
	bus      *EventBus
	capacity int
}

// WithAppLogger sets the logger of the App and its Schedule.
func WithAppLogger(l *slog.Logger) AppOption {
	return func(o *appOptions) { o.logger = l }
}

// WithAppMetrics records the App's schedule runs into m.
func WithAppMetrics(m *Metrics) AppOption {
	return func(o *appOptions) { o.metrics = m }
}

// WithAppEventBus uses bus for lifecycle events instead of a private one.
func WithAppEventBus(bus *EventBus) AppOption {
	return func(o *appOptions) { o.bus = bus }
}

// WithCapacity presizes the World for n entities.
func WithCapacity(n int) AppOption {
	return func(o *appOptions) { o.capacity = n }
}

// NewApp creates an App from cfg. Every App gets a unique ID which is
// attached to each of its log records.
func NewApp(cfg Config, opts ...AppOption) *App {
	o := appOptions{capacity: 1024}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.bus == nil {
		o.bus = NewEventBus()
	}
	id := ulid.Make().String()
	logger := o.logger.With("app", id)

	sopts := append(cfg.ScheduleOptions(),
		WithLogger(logger),
		WithMetrics(o.metrics),
		WithEventBus(o.bus),
	)
	return &App{
		id:       id,
		world:    NewWorld(o.capacity),
		schedule: NewSchedule(sopts...),
		bus:      o.bus,
		logger:   logger,
		metrics:  o.metrics,
		added:    make(map[string]struct{}),
	}
}

// ID returns the App's ULID.
func (a *App) ID() string { return a.id }

// World returns the App's world.
func (a *App) World() *World { return a.world }

// Schedule returns the App's schedule.
func (a *App) Schedule() *Schedule { return a.schedule }

// EventBus returns the bus lifecycle events are published on.
func (a *App) EventBus() *EventBus { return a.bus }

// Logger returns the App's logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// AddPlugin builds p into the App. Its dependencies must already be added.
func (a *App) AddPlugin(p Plugin) error {
	name := p.Name()
	a.mu.Lock()
	if _, ok := a.added[name]; ok {
		a.mu.Unlock()
		return &PluginError{Plugin: name, Err: ErrDuplicatePlugin}
	}
	if d, ok := p.(PluginDependencies); ok {
		var missing []string
		for _, dep := range d.Dependencies() {
			if _, ok := a.added[dep]; !ok {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			a.mu.Unlock()
			return &PluginError{Plugin: name, Missing: missing}
		}
	}
	a.added[name] = struct{}{}
	a.plugins = append(a.plugins, name)
	a.mu.Unlock()

	if err := p.Build(a); err != nil {
		return &PluginError{Plugin: name, Err: err}
	}
	a.logger.Debug("plugin added", "plugin", name)
	return nil
}

// HasPlugin reports whether a plugin with this name was added.
func (a *App) HasPlugin(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.added[name]
	return ok
}

// Plugins returns plugin names in the order they were added.
func (a *App) Plugins() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.plugins...)
}

// AddSystem builds a function system and registers it to stage.
func (a *App) AddSystem(stage Stage, name string, fn any) error {
	return a.schedule.AddSystem(stage, name, fn)
}

// AddTask registers a hand-declared task to stage.
func (a *App) AddTask(stage Stage, task Task) error {
	return a.schedule.Register(stage, task, false)
}

// Update runs one pass of the pipeline and then advances the event queues.
func (a *App) Update(ctx context.Context) error {
	if err := a.schedule.Run(ctx, a.world); err != nil {
		return err
	}
	a.world.UpdateEvents()
	a.mu.Lock()
	a.ticks++
	a.mu.Unlock()
	return nil
}

// Ticks returns the number of completed updates.
func (a *App) Ticks() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ticks
}

// RunTicks calls Update n times, stopping at the first error.
func (a *App) RunTicks(ctx context.Context, n int) error {
	for i := range n {
		if err := a.Update(ctx); err != nil {
			return fmt.Errorf("tick %d: %w", i, err)
		}
	}
	return nil
}
