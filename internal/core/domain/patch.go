package domain

// PatchKey identifies which resolved node a patch applies to: package name,
// version, and target (§3 "patches (package x version x target -> patch file)").
type PatchKey struct {
	Name    string
	Version string
	Target  TargetKind
}

// Patch is a manifest-declared unified diff and the content hash of the
// patch file it was loaded from (grounded on original_source/src/patches.rs,
// which keys applied patches by a hash of the patch file itself so a
// re-lock can detect the patch changed without re-reading it from disk).
type Patch struct {
	Key        PatchKey
	Path       string // path to the .patch file, relative to the manifest
	ContentHash string
}
