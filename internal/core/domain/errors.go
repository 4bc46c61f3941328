package domain

import "go.trai.ch/zerr"

// Manifest/spec errors.
var (
	// ErrInvalidName is returned when a scope or package name fails syntax validation.
	ErrInvalidName = zerr.New("invalid name")
	// ErrUnknownIndex is returned when a manifest references an index alias that
	// isn't declared in its indices table.
	ErrUnknownIndex = zerr.New("unknown index")
	// ErrUnknownTarget is returned when a target kind outside the closed set is used.
	ErrUnknownTarget = zerr.New("unknown target")
	// ErrDisallowedSourceKind is returned when an index's policy forbids the
	// dependency source kind used for one of its published packages.
	ErrDisallowedSourceKind = zerr.New("disallowed source kind")
	// ErrMalformedManifest is returned when a manifest fails to decode or
	// violates a structural invariant.
	ErrMalformedManifest = zerr.New("malformed manifest")
)

// Resolution errors.
var (
	// ErrVersionNotFound is returned when no version of a package satisfies
	// a specifier's constraint.
	ErrVersionNotFound = zerr.New("version not found")
	// ErrNoCompatibleTarget is returned when a node's declared target is
	// incompatible with its consumer's target.
	ErrNoCompatibleTarget = zerr.New("no compatible target")
	// ErrUnsatisfiedPeer is returned when a peer dependency edge points to a
	// package the root does not also declare as a direct dependency.
	ErrUnsatisfiedPeer = zerr.New("unsatisfied peer dependency")
	// ErrConflictingOverride is returned when two override keys on the same
	// graph path disagree on the replacement specifier.
	ErrConflictingOverride = zerr.New("conflicting override")
	// ErrCycleThroughNonSelf is not fatal; it is attached to a warning when a
	// cycle spanning more than one identifier is discovered during expansion.
	ErrCycleThroughNonSelf = zerr.New("cycle through multiple packages")
)

// Acquisition errors.
var (
	// ErrNetworkFailure wraps a transport-level failure talking to a source adapter.
	ErrNetworkFailure = zerr.New("network failure")
	// ErrAuthRequired is returned when a source adapter requires credentials
	// that were not supplied.
	ErrAuthRequired = zerr.New("authentication required")
	// ErrArtifactTooLarge is returned when a downloaded artifact exceeds the
	// index's declared maximum size.
	ErrArtifactTooLarge = zerr.New("artifact too large")
	// ErrArtifactCorrupt is returned when an artifact cannot be decoded.
	ErrArtifactCorrupt = zerr.New("artifact corrupt")
	// ErrUnsafeArchiveEntry is returned when an archive entry would escape the
	// unpack directory or install a symlink.
	ErrUnsafeArchiveEntry = zerr.New("unsafe archive entry")
)

// CAS errors.
var (
	// ErrStorageFull is returned when the CAS cannot complete a write due to
	// insufficient disk space.
	ErrStorageFull = zerr.New("storage full")
	// ErrPermissionDenied is returned when the CAS cannot read or write at its root.
	ErrPermissionDenied = zerr.New("permission denied")
	// ErrAtomicRenameFailed is returned when the temp-file-then-rename publish
	// step fails for a reason other than the destination already existing.
	ErrAtomicRenameFailed = zerr.New("atomic rename failed")
)

// Patch errors.
var (
	// ErrPatchDoesNotApply is returned when a unified diff cannot be applied
	// cleanly to the unpacked tree.
	ErrPatchDoesNotApply = zerr.New("patch does not apply")
	// ErrPatchCreatesFileOutsidePackage is returned when a patch targets the
	// package manifest file, which patches may never touch, or a path that
	// escapes the package directory.
	ErrPatchCreatesFileOutsidePackage = zerr.New("patch creates file outside package")
)

// Link errors.
var (
	// ErrEntryPointMissing is returned when a package's declared lib/bin entry
	// does not exist in its materialized tree.
	ErrEntryPointMissing = zerr.New("entry point missing")
	// ErrSyncConfigGeneratorFailed is returned when the roblox_sync_config_generator
	// script exits non-zero.
	ErrSyncConfigGeneratorFailed = zerr.New("sync config generator failed")
	// ErrCrossDeviceLinkFailed is returned when a hard link from the CAS
	// fails (for instance across volumes) and the content copy the linker
	// falls back to fails as well.
	ErrCrossDeviceLinkFailed = zerr.New("cross-device link failed")
)

// Environmental errors.
var (
	// ErrLockfileLocked is returned when another process holds the advisory
	// lockfile lock for the project.
	ErrLockfileLocked = zerr.New("lockfile locked")
	// ErrCancelled is returned when an operation is aborted via context
	// cancellation after any in-flight writes have finished draining.
	ErrCancelled = zerr.New("cancelled")
	// ErrLockfileOutOfSync is returned by a `--locked` install when
	// resolution would produce a graph the existing lockfile doesn't
	// already pin.
	ErrLockfileOutOfSync = zerr.New("lockfile out of sync")
)
