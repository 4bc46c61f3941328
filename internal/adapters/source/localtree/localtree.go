// Package localtree holds the tar.gz-and-hash helpers shared by the path and
// workspace source adapters: both resolve to a directory already on disk
// rather than a remote artifact, so the uniform download/fingerprint
// contract (§4.2) is satisfied by streaming the directory itself.
package localtree

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
	fsadapter "github.com/pesde-pkg/pesde/internal/adapters/fs" //nolint:depguard // Shared local-directory walk, not a remote source
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"go.trai.ch/zerr"
)

// defaultExcludes skips directories that never belong in a published or
// linked tree, besides the .git/.jj the walker already always skips.
var defaultExcludes = []string{".pesde", "luau_packages", "lune_packages", "roblox_packages"}

var walker = fsadapter.NewWalker()

// TarGz streams root's contents as a deterministic gzipped tar archive,
// sorted by relative path so the resulting bytes (and therefore the
// fingerprint computed over them) are stable across runs.
func TarGz(root string) (io.ReadCloser, error) {
	paths, err := sortedRelPaths(root)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		gz := gzip.NewWriter(pw)
		tw := tar.NewWriter(gz)
		err := writeEntries(tw, root, paths)
		closeErr := tw.Close()
		if err == nil {
			err = closeErr
		}
		gzCloseErr := gz.Close()
		if err == nil {
			err = gzCloseErr
		}
		pw.CloseWithError(err)
	}()
	return pr, nil
}

// Fingerprint hashes root's contents the same way TarGz would serialize
// them, giving a stable identity for a local directory dependency without
// materializing it through the archive pipeline.
func Fingerprint(root string) (string, error) {
	paths, err := sortedRelPaths(root)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, rel := range paths {
		h.Write([]byte(rel))
		//nolint:gosec // rel is derived from filepath.WalkDir under root, not attacker input
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return "", zerr.Wrap(domain.ErrArtifactCorrupt, err.Error())
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// sortedRelPaths delegates the directory walk to the shared fs.Walker
// instead of re-implementing skip-dir logic here; the exclude list holds
// only literal directory names, which filepath.Match (WalkFiles's matcher)
// treats as exact equality.
func sortedRelPaths(root string) ([]string, error) {
	var paths []string
	for path := range walker.WalkFiles(root, defaultExcludes) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil, err
		}
		paths = append(paths, filepath.ToSlash(rel))
	}
	sort.Strings(paths)
	return paths, nil
}

func writeEntries(tw *tar.Writer, root string, paths []string) error {
	for _, rel := range paths {
		full := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Lstat(full)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if err := tw.WriteHeader(&tar.Header{
			Name: rel,
			Mode: int64(info.Mode().Perm()),
			Size: info.Size(),
		}); err != nil {
			return err
		}
		//nolint:gosec // full is joined from the same walk that produced rel
		f, err := os.Open(full)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
