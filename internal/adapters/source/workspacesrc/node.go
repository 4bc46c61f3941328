package workspacesrc

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/adapters/config"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

const NodeID graft.ID = "adapter.source.workspace"

func init() {
	graft.Register(graft.Node[*Adapter]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.ManifestLoaderNodeID},
		Run: func(ctx context.Context) (*Adapter, error) {
			loader, err := graft.Dep[ports.ManifestLoader](ctx)
			if err != nil {
				return nil, err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			root, err := loader.Load(cwd)
			if err != nil {
				return nil, err
			}
			return New(loader, cwd, root.WorkspaceMembers)
		},
	})
}
