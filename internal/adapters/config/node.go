package config

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/adapters/logger"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

const (
	ManifestLoaderNodeID graft.ID = "adapter.config.manifest_loader"
	LockfileStoreNodeID  graft.ID = "adapter.config.lockfile_store"
)

func init() {
	graft.Register(graft.Node[ports.ManifestLoader]{
		ID:        ManifestLoaderNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ManifestLoader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewManifestLoader(log), nil
		},
	})

	graft.Register(graft.Node[ports.LockfileStore]{
		ID:        LockfileStoreNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.LockfileStore, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewLockfileStore(log), nil
		},
	})
}
