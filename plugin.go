package luminara

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicatePlugin is returned when a plugin name is added twice.
var ErrDuplicatePlugin = errors.New("plugin already added")

// Plugin bundles the resources, events and systems of one feature.
type Plugin interface {
	Name() string
	Build(app *App) error
}

// PluginDependencies is implemented by plugins that require other plugins to
// be added first.
type PluginDependencies interface {
	Dependencies() []string
}

// PluginError reports a plugin that could not be added.
type PluginError struct {
	Plugin  string
	Missing []string
	Err     error
}

func (e *PluginError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("plugin %q: missing dependencies: %s", e.Plugin, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("plugin %q: %v", e.Plugin, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

// PluginFunc adapts a function to a Plugin.
type PluginFunc struct {
	PluginName string
	Requires   []string
	BuildFunc  func(app *App) error
}

func (p PluginFunc) Name() string           { return p.PluginName }
func (p PluginFunc) Dependencies() []string { return p.Requires }
func (p PluginFunc) Build(app *App) error   { return p.BuildFunc(app) }
