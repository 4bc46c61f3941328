package fs

import (
	"os"
	"path/filepath"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Verifier = (*Verifier)(nil)

// Verifier checks a materialized directory against a domain.Tree manifest.
type Verifier struct {
	hasher *Hasher
}

// NewVerifier creates a new Verifier.
func NewVerifier(hasher *Hasher) *Verifier {
	return &Verifier{hasher: hasher}
}

// VerifyTree reports whether every entry of tree is present under root with
// the expected content hash, returning the relative paths that don't match
// (missing or corrupt) rather than failing on the first mismatch, so a
// caller can report every offending path at once.
func (v *Verifier) VerifyTree(root string, tree domain.Tree) (bool, []string, error) {
	var mismatches []string
	for _, entry := range tree {
		path := filepath.Join(root, entry.RelPath)
		info, err := os.Stat(path)
		if err != nil {
			mismatches = append(mismatches, entry.RelPath)
			continue
		}
		if info.IsDir() {
			mismatches = append(mismatches, entry.RelPath)
			continue
		}

		hash, err := v.hasher.HashFile(path)
		if err != nil {
			return false, nil, zerr.With(zerr.Wrap(err, "failed to verify tree entry"), "path", entry.RelPath)
		}
		if hash != entry.BlobHash {
			mismatches = append(mismatches, entry.RelPath)
		}
	}
	return len(mismatches) == 0, mismatches, nil
}
