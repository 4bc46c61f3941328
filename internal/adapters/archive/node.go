package archive

import (
	"context"

	"github.com/grindlemire/graft"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

const (
	UnpackerNodeID     graft.ID = "adapter.archive.unpacker"
	PatchApplierNodeID graft.ID = "adapter.archive.patchapplier"
)

func init() {
	graft.Register(graft.Node[ports.Unpacker]{
		ID:        UnpackerNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.Unpacker, error) {
			return NewUnpacker(), nil
		},
	})

	graft.Register(graft.Node[ports.PatchApplier]{
		ID:        PatchApplierNodeID,
		Cacheable: true,
		Run: func(ctx context.Context) (ports.PatchApplier, error) {
			return NewPatchApplier(), nil
		},
	})
}
