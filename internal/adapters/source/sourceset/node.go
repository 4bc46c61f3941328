package sourceset

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/adapters/source/foreign"
	"github.com/pesde-pkg/pesde/internal/adapters/source/gitsrc"
	"github.com/pesde-pkg/pesde/internal/adapters/source/pathsrc"
	"github.com/pesde-pkg/pesde/internal/adapters/source/registry"
	"github.com/pesde-pkg/pesde/internal/adapters/source/workspacesrc"
)

const NodeID graft.ID = "adapter.source.sourceset"

func init() {
	graft.Register(graft.Node[Set]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{registry.NodeID, foreign.NodeID, gitsrc.NodeID, workspacesrc.NodeID, pathsrc.NodeID},
		Run: func(ctx context.Context) (Set, error) {
			reg, err := graft.Dep[*registry.Adapter](ctx)
			if err != nil {
				return nil, err
			}
			frgn, err := graft.Dep[*foreign.Adapter](ctx)
			if err != nil {
				return nil, err
			}
			git, err := graft.Dep[*gitsrc.Adapter](ctx)
			if err != nil {
				return nil, err
			}
			workspace, err := graft.Dep[*workspacesrc.Adapter](ctx)
			if err != nil {
				return nil, err
			}
			path, err := graft.Dep[*pathsrc.Adapter](ctx)
			if err != nil {
				return nil, err
			}
			return New(reg, frgn, git, workspace, path), nil
		},
	})
}
