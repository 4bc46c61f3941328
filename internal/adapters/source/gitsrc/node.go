package gitsrc

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/adapters/config"
	"github.com/pesde-pkg/pesde/internal/adapters/logger"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

const NodeID graft.ID = "adapter.source.git"

func init() {
	graft.Register(graft.Node[*Adapter]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ManifestLoaderNodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Adapter, error) {
			loader, err := graft.Dep[ports.ManifestLoader](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			cacheRoot := filepath.Join(cwd, ".pesde", "cas", "git-cache")
			return New(cacheRoot, loader, log), nil
		},
	})
}
