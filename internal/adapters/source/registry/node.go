package registry

import (
	"context"

	"github.com/grindlemire/graft"
)

const NodeID graft.ID = "adapter.source.registry"

// defaultBaseURL is pesde's own public registry, used when a project's
// manifest declares no indices alias of its own.
const defaultBaseURL = "https://registry.pesde.dev"

func init() {
	graft.Register(graft.Node[*Adapter]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (*Adapter, error) {
			return New(defaultBaseURL, nil), nil
		},
	})
}
