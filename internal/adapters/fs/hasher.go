package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher implements ports.Hasher using SHA-256, matching the CAS's content
// hash algorithm (§4.4) so a file's HashFile result is directly comparable
// to a domain.TreeEntry.BlobHash.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher { return &Hasher{} }

// HashFile computes the SHA-256 hash of a file's content.
func (h *Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashBytes computes the SHA-256 hash of an in-memory buffer.
func (h *Hasher) HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// QuickFingerprint computes a fast, non-cryptographic xxhash digest of a
// file's content. It is not a content address (§4.4's CAS is keyed by
// SHA-256), and nothing outside this package's tests calls it.
func (h *Hasher) QuickFingerprint(path string) (uint64, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	digest := xxhash.New()
	if _, err := io.Copy(digest, f); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to fingerprint file content"), "path", path)
	}
	return digest.Sum64(), nil
}
