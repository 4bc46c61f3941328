package cas

import (
	"context"
	"os"
	"path/filepath"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

const (
	StoreNodeID  graft.ID = "adapter.cas.store"
	FinderNodeID graft.ID = "adapter.cas.finder"
)

func init() {
	graft.Register(graft.Node[ports.CASFinder]{
		ID:        FinderNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.CASFinder, error) {
			return NewFinder(), nil
		},
	})

	graft.Register(graft.Node[ports.CASStore]{
		ID:        StoreNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{FinderNodeID},
		Run: func(ctx context.Context) (ports.CASStore, error) {
			finder, err := graft.Dep[ports.CASFinder](ctx)
			if err != nil {
				return nil, err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			root, err := finder.Find(cwd)
			if err != nil {
				root = filepath.Join(cwd, ".pesde", "cas")
			}
			return NewStore(root)
		},
	})
}
