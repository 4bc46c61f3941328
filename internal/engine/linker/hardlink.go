package linker

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"go.trai.ch/zerr"
)

// blobPath mirrors the CAS adapter's sharded layout (§4.4: "blobs/<hh>/<rest-
// of-hash>"), which the layout is part of the documented contract rather
// than an adapter implementation detail.
func blobPath(casRoot, hash string) string {
	return filepath.Join(casRoot, "blobs", hash[:2], hash[2:])
}

// materializeTree hard-links every entry of tree from the CAS into destDir,
// falling back to a content copy when the hard link cannot cross the
// filesystem boundary (§4.6 "Hard-linking from CAS"). Directory junctions
// for workspace-linked siblings on desktop-Windows are not implemented here:
// the copy fallback is always correct, just costlier, and junction creation
// needs platform syscalls this module has no grounded library for (see
// DESIGN.md).
func materializeTree(casRoot string, tree domain.Tree, destDir string) error {
	for _, entry := range tree {
		dest := filepath.Join(destDir, filepath.FromSlash(entry.RelPath))
		if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create materialization directory"), "path", entry.RelPath)
		}

		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			return zerr.With(zerr.Wrap(err, "failed to clear stale materialized file"), "path", entry.RelPath)
		}

		src := blobPath(casRoot, entry.BlobHash)
		if err := os.Link(src, dest); err == nil {
			continue
		}
		if err := copyBlob(src, dest, entry.ExecBit); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrCrossDeviceLinkFailed, err.Error()), "path", entry.RelPath)
		}
	}
	return nil
}

func copyBlob(src, dest string, execBit bool) error {
	in, err := os.Open(src) //nolint:gosec // src is a CAS-computed sharded path
	if err != nil {
		return err
	}
	defer in.Close()

	mode := os.FileMode(0o640)
	if execBit {
		mode = 0o750
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode) //nolint:gosec // dest lives under the linker's own staging directory
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
