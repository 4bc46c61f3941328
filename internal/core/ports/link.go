package ports

import (
	"context"

	"github.com/pesde-pkg/pesde/internal/core/domain"
)

// Hasher computes the SHA-256 blob hash of file content, used by the fs
// Verifier behind the linker's post-materialization verification. The CAS
// adapter hashes its own writes and does not use it.
//
//go:generate go run go.uber.org/mock/mockgen -source=link.go -destination=mocks/mock_link.go -package=mocks
type Hasher interface {
	HashFile(path string) (string, error)
	HashBytes(b []byte) string
}

// Verifier checks a materialized tree on disk against its recorded CAS
// tree manifest (adapted from the teacher's output-existence verifier to
// also check content hashes).
type Verifier interface {
	VerifyTree(root string, tree domain.Tree) (ok bool, mismatches []string, err error)
}

// ScriptExecutor runs a manifest-declared script or the roblox sync-config
// generator (§4.6 "Sync-tool configuration"), replacing the teacher's
// hermetic-build Executor port with the narrower process-exec contract this
// domain needs.
type ScriptExecutor interface {
	Run(ctx context.Context, command []string, dir string, env []string) error
}
