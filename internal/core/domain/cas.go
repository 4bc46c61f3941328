package domain

import "sort"

// TreeEntry is one file in a package-fs manifest: a relative path, the hash
// of its content blob, and whether it carries the executable bit (§3 "CAS
// entry"). GLOSSARY: Tree manifest.
type TreeEntry struct {
	RelPath  string
	BlobHash string
	ExecBit  bool
}

// Tree is the canonical, ordered list of a package's files as stored in CAS.
// The tree's own hash (computed by the CAS adapter over this canonical
// serialization) is the tree hash recorded on a graph node as Node.TreeHash.
type Tree []TreeEntry

// Canonicalize returns a copy of the tree sorted by RelPath, the order its
// hash and its serialized form are always computed over.
func (t Tree) Canonicalize() Tree {
	out := make(Tree, len(t))
	copy(out, t)
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}
