package ports

import (
	"context"
	"io"

	"github.com/pesde-pkg/pesde/internal/core/domain"
)

// CASStore is the content-addressable store port (§4.4). Every method is
// safe for many concurrent callers; writers never overwrite an existing key
// (§5 "Shared-resource policy").
//
//go:generate go run go.uber.org/mock/mockgen -source=cas.go -destination=mocks/mock_cas.go -package=mocks
type CASStore interface {
	// PutBlob writes r's content under its SHA-256 hash and returns it.
	// If a blob with that hash already exists, r is still fully drained
	// (callers pass a reader they intend to consume once) but no write
	// occurs.
	PutBlob(ctx context.Context, r io.Reader) (hash string, err error)

	// OpenBlob opens a previously stored blob for reading.
	OpenBlob(ctx context.Context, hash string) (io.ReadCloser, error)

	// HasBlob reports whether a blob with the given hash is present.
	HasBlob(ctx context.Context, hash string) (bool, error)

	// PutTree canonicalizes and serializes tree, stores the serialized form
	// as a blob, and returns the tree's own hash (recorded as Node.TreeHash).
	PutTree(ctx context.Context, tree domain.Tree) (hash string, err error)

	// GetTree reads back a tree previously stored by PutTree.
	GetTree(ctx context.Context, hash string) (domain.Tree, error)

	// HasTree reports whether a tree with the given hash is present.
	HasTree(ctx context.Context, hash string) (bool, error)

	// Root returns the CAS's root directory on disk.
	Root() string

	// Prune removes every blob and tree not reachable from keepTrees
	// (§4.4 "Pruning"). Only Prune may delete.
	Prune(ctx context.Context, keepTrees []string) (removedBlobs, removedTrees int, err error)
}

// CASFinder locates the CAS root directory (§4.4 "CAS finder").
type CASFinder interface {
	// Find walks upward from workspaceRoot and returns the first existing
	// ".pesde/cas" directory. It does not consult the user data directory,
	// compare volumes, or create a CAS; when none exists it returns an error.
	Find(workspaceRoot string) (string, error)
}
