package linker

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/adapters/cas"
	"github.com/pesde-pkg/pesde/internal/adapters/fs" //nolint:depguard // Wired in engine wiring
	"github.com/pesde-pkg/pesde/internal/adapters/logger"
	"github.com/pesde-pkg/pesde/internal/adapters/shell"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

// NodeID is the unique identifier for the linker Graft node.
const NodeID graft.ID = "engine.linker"

func init() {
	graft.Register(graft.Node[*Linker]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{cas.StoreNodeID, fs.VerifierNodeID, shell.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Linker, error) {
			store, err := graft.Dep[ports.CASStore](ctx)
			if err != nil {
				return nil, err
			}
			verifier, err := graft.Dep[ports.Verifier](ctx)
			if err != nil {
				return nil, err
			}
			scripts, err := graft.Dep[ports.ScriptExecutor](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(store, verifier, scripts, log), nil
		},
	})
}
