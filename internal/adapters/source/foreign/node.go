package foreign

import (
	"context"

	"github.com/grindlemire/graft"
)

const NodeID graft.ID = "adapter.source.foreign"

// defaultBaseURL is the public Wally registry, used when a project's
// manifest declares no wally_indices alias of its own.
const defaultBaseURL = "https://api.wally.run"

func init() {
	graft.Register(graft.Node[*Adapter]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (*Adapter, error) {
			return New(defaultBaseURL, nil), nil
		},
	})
}
