// Package app implements the application layer for pesde.
package app

import (
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App     *App
	Logger  ports.Logger
	Scripts ports.ScriptExecutor
}

// NewComponents creates a new Components struct from dependencies. This is
// the Run target of the Components graft node (internal/app/node.go).
func NewComponents(app *App, logger ports.Logger, scripts ports.ScriptExecutor) *Components {
	return &Components{
		App:     app,
		Logger:  logger,
		Scripts: scripts,
	}
}
