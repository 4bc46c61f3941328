// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "github.com/pesde-pkg/pesde/internal/adapters/archive"
	_ "github.com/pesde-pkg/pesde/internal/adapters/cas"
	_ "github.com/pesde-pkg/pesde/internal/adapters/config"
	_ "github.com/pesde-pkg/pesde/internal/adapters/fs"
	_ "github.com/pesde-pkg/pesde/internal/adapters/logger"
	_ "github.com/pesde-pkg/pesde/internal/adapters/shell"
	_ "github.com/pesde-pkg/pesde/internal/adapters/source/foreign"
	_ "github.com/pesde-pkg/pesde/internal/adapters/source/gitsrc"
	_ "github.com/pesde-pkg/pesde/internal/adapters/source/pathsrc"
	_ "github.com/pesde-pkg/pesde/internal/adapters/source/registry"
	_ "github.com/pesde-pkg/pesde/internal/adapters/source/sourceset"
	_ "github.com/pesde-pkg/pesde/internal/adapters/source/workspacesrc"
	_ "github.com/pesde-pkg/pesde/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "github.com/pesde-pkg/pesde/internal/app"
	_ "github.com/pesde-pkg/pesde/internal/engine/downloader"
	_ "github.com/pesde-pkg/pesde/internal/engine/linker"
	_ "github.com/pesde-pkg/pesde/internal/engine/resolver"
)
