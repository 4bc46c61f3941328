package app

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/adapters/cas"
	"github.com/pesde-pkg/pesde/internal/adapters/config"
	"github.com/pesde-pkg/pesde/internal/adapters/logger"
	"github.com/pesde-pkg/pesde/internal/adapters/shell"
	"github.com/pesde-pkg/pesde/internal/adapters/source/workspacesrc"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"github.com/pesde-pkg/pesde/internal/engine/downloader"
	"github.com/pesde-pkg/pesde/internal/engine/linker"
	"github.com/pesde-pkg/pesde/internal/engine/resolver"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.ManifestLoaderNodeID,
			config.LockfileStoreNodeID,
			resolver.NodeID,
			downloader.NodeID,
			linker.NodeID,
			cas.StoreNodeID,
			workspacesrc.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{AppNodeID, logger.NodeID, shell.NodeID},
		Run:       runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	manifests, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}
	lockfiles, err := graft.Dep[ports.LockfileStore](ctx)
	if err != nil {
		return nil, err
	}
	res, err := graft.Dep[*resolver.Resolver](ctx)
	if err != nil {
		return nil, err
	}
	dl, err := graft.Dep[*downloader.Downloader](ctx)
	if err != nil {
		return nil, err
	}
	lk, err := graft.Dep[*linker.Linker](ctx)
	if err != nil {
		return nil, err
	}
	store, err := graft.Dep[ports.CASStore](ctx)
	if err != nil {
		return nil, err
	}
	workspace, err := graft.Dep[*workspacesrc.Adapter](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(manifests, lockfiles, res, dl, lk, store, workspace, log), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	application, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	scripts, err := graft.Dep[ports.ScriptExecutor](ctx)
	if err != nil {
		return nil, err
	}
	return NewComponents(application, log, scripts), nil
}
