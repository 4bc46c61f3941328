// Package sourceset assembles the per-domain.SourceKind adapter map the
// resolver needs (resolver.New(adapters, log)) out of the five concrete
// source adapters, each wired into graft under its own concrete pointer
// type (graft resolves by concrete type, so five implementations sharing
// ports.SourceAdapter could not all register under that interface type).
package sourceset

import (
	"github.com/pesde-pkg/pesde/internal/adapters/source/foreign"
	"github.com/pesde-pkg/pesde/internal/adapters/source/gitsrc"
	"github.com/pesde-pkg/pesde/internal/adapters/source/pathsrc"
	"github.com/pesde-pkg/pesde/internal/adapters/source/registry"
	"github.com/pesde-pkg/pesde/internal/adapters/source/workspacesrc"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
)

// Set is the map the resolver consumes, keyed by the source kind each
// adapter serves.
type Set map[domain.SourceKind]ports.SourceAdapter

// New builds a Set from the five concrete adapters. Every field is
// required; a nil adapter would silently make its source kind
// unresolvable, surfaced only as a confusing ErrDisallowedSourceKind deep
// in the resolver, so New takes all five positionally rather than letting
// callers build a partial map by hand.
func New(reg *registry.Adapter, frgn *foreign.Adapter, git *gitsrc.Adapter, workspace *workspacesrc.Adapter, path *pathsrc.Adapter) Set {
	return Set{
		domain.SourceRegistry:  reg,
		domain.SourceForeign:   frgn,
		domain.SourceGit:       git,
		domain.SourceWorkspace: workspace,
		domain.SourcePath:      path,
	}
}
