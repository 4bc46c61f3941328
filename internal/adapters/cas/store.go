// Package cas implements the content-addressable blob and tree store (§4.4).
package cas

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"go.trai.ch/zerr"
)

// Store implements ports.CASStore against a directory laid out as
// <root>/blobs/<first2>/<rest> and <root>/trees/<first2>/<rest>, the
// sharding convention §4.4 calls for to keep any one directory small.
type Store struct {
	root string
}

// NewStore opens (creating if necessary) a CAS rooted at root.
func NewStore(root string) (*Store, error) {
	root = filepath.Clean(root)
	for _, sub := range []string{"blobs", "trees", "tmp"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o750); err != nil {
			return nil, zerr.Wrap(err, "failed to create CAS directory")
		}
	}
	return &Store{root: root}, nil
}

func (s *Store) blobPath(hash string) string {
	return filepath.Join(s.root, "blobs", hash[:2], hash[2:])
}

func (s *Store) treePath(hash string) string {
	return filepath.Join(s.root, "trees", hash[:2], hash[2:])
}

// Root returns the CAS root directory.
func (s *Store) Root() string { return s.root }

// PutBlob streams r into the store, hashing as it writes, and publishes the
// blob atomically by renaming a temp file into place (§4.4 "temp-file then
// rename" publish protocol). If a blob with the resulting hash already
// exists, the temp file is discarded and the existing hash returned.
func (s *Store) PutBlob(ctx context.Context, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "blob-*")
	if err != nil {
		return "", zerr.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	h := sha256.New()
	if _, err := io.Copy(tmp, io.TeeReader(r, h)); err != nil {
		return "", zerr.Wrap(err, "failed to write blob contents")
	}
	if err := tmp.Sync(); err != nil {
		return "", zerr.Wrap(err, "failed to fsync blob temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", zerr.Wrap(err, "failed to close blob temp file")
	}

	hash := hex.EncodeToString(h.Sum(nil))
	dest := s.blobPath(hash)
	if _, err := os.Stat(dest); err == nil {
		return hash, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", zerr.Wrap(err, "failed to create blob shard directory")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrAtomicRenameFailed, err.Error()), "hash", hash)
	}
	return hash, nil
}

// OpenBlob opens the blob with the given hash for reading.
func (s *Store) OpenBlob(ctx context.Context, hash string) (io.ReadCloser, error) {
	f, err := os.Open(s.blobPath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(domain.ErrArtifactCorrupt, "hash", hash)
		}
		return nil, zerr.Wrap(err, "failed to open blob")
	}
	return f, nil
}

// HasBlob reports whether a blob with the given hash is present.
func (s *Store) HasBlob(ctx context.Context, hash string) (bool, error) {
	_, err := os.Stat(s.blobPath(hash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, zerr.Wrap(err, "failed to stat blob")
}

// treeFile is the on-disk JSON shape of a tree manifest.
type treeFile struct {
	Entries []domain.TreeEntry `json:"entries"`
}

// PutTree canonicalizes and hashes a tree manifest, publishing it the same
// atomic way as PutBlob.
func (s *Store) PutTree(ctx context.Context, tree domain.Tree) (string, error) {
	canon := tree.Canonicalize()
	data, err := json.Marshal(treeFile{Entries: canon})
	if err != nil {
		return "", zerr.Wrap(err, "failed to marshal tree")
	}

	h := sha256.Sum256(data)
	hash := hex.EncodeToString(h[:])
	dest := s.treePath(hash)
	if _, err := os.Stat(dest); err == nil {
		return hash, nil
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "tree-*")
	if err != nil {
		return "", zerr.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", zerr.Wrap(err, "failed to write tree contents")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", zerr.Wrap(err, "failed to fsync tree temp file")
	}
	if err := tmp.Close(); err != nil {
		return "", zerr.Wrap(err, "failed to close tree temp file")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return "", zerr.Wrap(err, "failed to create tree shard directory")
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", zerr.With(zerr.Wrap(domain.ErrAtomicRenameFailed, err.Error()), "hash", hash)
	}
	return hash, nil
}

// GetTree loads a tree manifest by hash.
func (s *Store) GetTree(ctx context.Context, hash string) (domain.Tree, error) {
	//nolint:gosec // hash is derived from our own sharded path, not user input
	data, err := os.ReadFile(s.treePath(hash))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, zerr.With(domain.ErrArtifactCorrupt, "hash", hash)
		}
		return nil, zerr.Wrap(err, "failed to read tree")
	}
	var tf treeFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, zerr.Wrap(err, "failed to unmarshal tree")
	}
	return Tree(tf.Entries), nil
}

// Tree is a conversion helper so callers don't need to reach for the
// unexported treeFile shape.
func Tree(entries []domain.TreeEntry) domain.Tree { return domain.Tree(entries) }

// HasTree reports whether a tree manifest with the given hash is present.
func (s *Store) HasTree(ctx context.Context, hash string) (bool, error) {
	_, err := os.Stat(s.treePath(hash))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, zerr.Wrap(err, "failed to stat tree")
}

// Prune walks the store removing any blob or tree not reachable from
// keepTrees, per §4.4's garbage collection note.
func (s *Store) Prune(ctx context.Context, keepTrees []string) (removedBlobs, removedTrees int, err error) {
	liveBlobs := make(map[string]bool)
	liveTrees := make(map[string]bool)
	for _, h := range keepTrees {
		liveTrees[h] = true
		present, err := s.HasTree(ctx, h)
		if err != nil {
			return 0, 0, err
		}
		if !present {
			continue
		}
		tree, err := s.GetTree(ctx, h)
		if err != nil {
			return 0, 0, err
		}
		for _, e := range tree {
			liveBlobs[e.BlobHash] = true
		}
	}

	removedBlobs, err = s.pruneDir(filepath.Join(s.root, "blobs"), liveBlobs)
	if err != nil {
		return removedBlobs, 0, err
	}
	removedTrees, err = s.pruneDir(filepath.Join(s.root, "trees"), liveTrees)
	return removedBlobs, removedTrees, err
}

func (s *Store) pruneDir(dir string, keep map[string]bool) (int, error) {
	shards, err := os.ReadDir(dir)
	if err != nil {
		return 0, zerr.Wrap(err, "failed to list CAS shard directory")
	}
	sort.Slice(shards, func(i, j int) bool { return shards[i].Name() < shards[j].Name() })

	removed := 0
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		shardDir := filepath.Join(dir, shard.Name())
		entries, err := os.ReadDir(shardDir)
		if err != nil {
			return removed, zerr.Wrap(err, "failed to list CAS entries")
		}
		for _, e := range entries {
			hash := shard.Name() + e.Name()
			if keep[hash] {
				continue
			}
			if err := os.Remove(filepath.Join(shardDir, e.Name())); err != nil {
				return removed, zerr.Wrap(err, "failed to remove unreachable CAS entry")
			}
			removed++
		}
	}
	return removed, nil
}
