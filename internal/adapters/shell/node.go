package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/adapters/logger"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

const NodeID graft.ID = "adapter.shell.executor"

func init() {
	graft.Register(graft.Node[ports.ScriptExecutor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ScriptExecutor, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewExecutor(log), nil
		},
	})
}
