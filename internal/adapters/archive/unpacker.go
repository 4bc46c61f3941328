// Package archive implements artifact extraction and patch application for
// the download/patch pipeline (§4.5): decoding tar.gz and zip artifacts into
// a destination directory while enforcing the step 3 safety checks, and
// applying a manifest-declared unified-diff patch to the unpacked tree.
package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Unpacker = (*Unpacker)(nil)

// Unpacker implements ports.Unpacker over tar.gz and zip artifacts.
type Unpacker struct{}

// NewUnpacker creates an Unpacker.
func NewUnpacker() *Unpacker {
	return &Unpacker{}
}

// Unpack extracts r into destDir, rejecting entries that escape destDir via
// "..", symlinks, and anything that would push the stream past maxBytes
// (§4.5 step 3).
func (u *Unpacker) Unpack(ctx context.Context, format ports.ArchiveFormat, r io.Reader, destDir string, maxBytes int64) error {
	switch format {
	case ports.ArchiveTarGz:
		return unpackTarGz(ctx, r, destDir, maxBytes)
	case ports.ArchiveZip:
		return unpackZip(ctx, r, destDir, maxBytes)
	default:
		return zerr.With(domain.ErrUnsafeArchiveEntry, "format", string(format))
	}
}

func unpackTarGz(ctx context.Context, r io.Reader, destDir string, maxBytes int64) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return zerr.Wrap(domain.ErrArtifactCorrupt, err.Error())
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return zerr.Wrap(domain.ErrArtifactCorrupt, err.Error())
		}

		if hdr.Typeflag == tar.TypeSymlink || hdr.Typeflag == tar.TypeLink {
			return zerr.With(domain.ErrUnsafeArchiveEntry, "entry", hdr.Name)
		}

		dest, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}

		if hdr.Typeflag == tar.TypeDir {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		total += hdr.Size
		if maxBytes > 0 && total > maxBytes {
			return zerr.With(domain.ErrArtifactTooLarge, "limit", maxBytes)
		}

		if err := writeEntry(dest, tr, hdr.Size, hdr.FileInfo().Mode()); err != nil {
			return err
		}
	}
}

func unpackZip(ctx context.Context, r io.Reader, destDir string, maxBytes int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return zerr.Wrap(domain.ErrArtifactCorrupt, err.Error())
	}
	zr, err := zip.NewReader(strings.NewReader(string(data)), int64(len(data)))
	if err != nil {
		return zerr.Wrap(domain.ErrArtifactCorrupt, err.Error())
	}

	var total int64
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Mode()&os.ModeSymlink != 0 {
			return zerr.With(domain.ErrUnsafeArchiveEntry, "entry", f.Name)
		}

		dest, err := safeJoin(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}

		total += int64(f.UncompressedSize64)
		if maxBytes > 0 && total > maxBytes {
			return zerr.With(domain.ErrArtifactTooLarge, "limit", maxBytes)
		}

		rc, err := f.Open()
		if err != nil {
			return zerr.Wrap(domain.ErrArtifactCorrupt, err.Error())
		}
		err = writeEntry(dest, rc, int64(f.UncompressedSize64), f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// safeJoin joins destDir and entryName, rejecting any entry whose resolved
// path escapes destDir (§4.5 step 3 "reject entries whose path escapes via
// '..'").
func safeJoin(destDir, entryName string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(entryName))
	dest := filepath.Join(destDir, clean)
	rel, err := filepath.Rel(destDir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", zerr.With(domain.ErrUnsafeArchiveEntry, "entry", entryName)
	}
	return dest, nil
}

func writeEntry(dest string, r io.Reader, size int64, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.CopyN(f, r, size); err != nil && err != io.EOF {
		return zerr.Wrap(domain.ErrArtifactCorrupt, err.Error())
	}
	return nil
}
