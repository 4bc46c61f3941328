package ports

import (
	"context"
	"io"
)

// ArchiveFormat distinguishes the artifact encodings source adapters hand
// back (§4.5: "tar.gz or zip").
type ArchiveFormat string

const (
	// ArchiveTarGz is a gzip-compressed tarball (native registry, git).
	ArchiveTarGz ArchiveFormat = "tar.gz"
	// ArchiveZip is a zip file (foreign registry).
	ArchiveZip ArchiveFormat = "zip"
)

// Unpacker extracts an archive into a directory, enforcing §4.5 step 3's
// safety checks (path traversal, symlinks, declared max size) as it goes.
//
//go:generate go run go.uber.org/mock/mockgen -source=archive.go -destination=mocks/mock_archive.go -package=mocks
type Unpacker interface {
	Unpack(ctx context.Context, format ArchiveFormat, r io.Reader, destDir string, maxBytes int64) error
}

// PatchApplier applies a unified-diff patch file to an unpacked tree
// (§4.5 step 5, §7 Patch errors).
type PatchApplier interface {
	Apply(ctx context.Context, patchPath, treeDir, manifestRelPath string) error
}
