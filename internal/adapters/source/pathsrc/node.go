package pathsrc

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/adapters/config"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

const NodeID graft.ID = "adapter.source.path"

// Registered under its concrete type rather than ports.SourceAdapter: graft
// resolves dependencies by type, and five adapters share that interface, so
// each registers itself concretely and internal/adapters/source/sourceset
// assembles the map the resolver actually consumes.
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
			return New(loader), nil
		},
	})
}
