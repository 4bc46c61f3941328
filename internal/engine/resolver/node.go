package resolver

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/adapters/logger"
	"github.com/pesde-pkg/pesde/internal/adapters/source/sourceset"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

// NodeID is the unique identifier for the resolver Graft node.
const NodeID graft.ID = "engine.resolver"

func init() {
	graft.Register(graft.Node[*Resolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{sourceset.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Resolver, error) {
			sources, err := graft.Dep[sourceset.Set](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(sources, log), nil
		},
	})
}
