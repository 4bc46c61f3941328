package downloader

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/adapters/archive"
	"github.com/pesde-pkg/pesde/internal/adapters/cas"
	"github.com/pesde-pkg/pesde/internal/adapters/logger"
	"github.com/pesde-pkg/pesde/internal/adapters/source/sourceset"
	"github.com/pesde-pkg/pesde/internal/adapters/telemetry/progrock"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

// NodeID is the unique identifier for the downloader Graft node.
const NodeID graft.ID = "engine.downloader"

func init() {
	graft.Register(graft.Node[*Downloader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			sourceset.NodeID,
			archive.UnpackerNodeID,
			archive.PatchApplierNodeID,
			cas.StoreNodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Downloader, error) {
			sources, err := graft.Dep[sourceset.Set](ctx)
			if err != nil {
				return nil, err
			}
			unpacker, err := graft.Dep[ports.Unpacker](ctx)
			if err != nil {
				return nil, err
			}
			patcher, err := graft.Dep[ports.PatchApplier](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.CASStore](ctx)
			if err != nil {
				return nil, err
			}
			telemetry, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(sources, unpacker, patcher, store, telemetry, log), nil
		},
	})
}
