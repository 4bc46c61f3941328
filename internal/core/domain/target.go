package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// TargetKind is the closed set of runtime environments a package can be
// built for. See GLOSSARY: Target.
type TargetKind string

const (
	// TargetLuau is the plain Luau interpreter runtime.
	TargetLuau TargetKind = "luau"
	// TargetLune is the Lune desktop/CLI runtime.
	TargetLune TargetKind = "lune"
	// TargetRoblox is the Roblox game-client runtime.
	TargetRoblox TargetKind = "roblox"
	// TargetRobloxServer is the Roblox server-variant runtime, declared like
	// any other target; a foreign-registry package resolved for it also
	// brings in its server dependencies (§9).
	TargetRobloxServer TargetKind = "roblox_server"
)

// ParseTargetKind validates s against the closed target set.
func ParseTargetKind(s string) (TargetKind, error) {
	switch TargetKind(strings.ToLower(s)) {
	case TargetLuau:
		return TargetLuau, nil
	case TargetLune:
		return TargetLune, nil
	case TargetRoblox:
		return TargetRoblox, nil
	case TargetRobloxServer:
		return TargetRobloxServer, nil
	default:
		return "", zerr.With(ErrUnknownTarget, "target", s)
	}
}

// IsRoblox reports whether the target belongs to the Roblox family, which
// shares the build_files/sync-tool machinery (§4.6).
func (t TargetKind) IsRoblox() bool {
	return t == TargetRoblox || t == TargetRobloxServer
}

// PackagesDir is the name of the per-target packages folder the linker
// materializes into (§4.6), e.g. "luau_packages".
func (t TargetKind) PackagesDir() string {
	return string(t) + "_packages"
}

// FileExtension is the source file suffix used for shims and entry points
// under this target.
func (t TargetKind) FileExtension() string {
	return ".luau"
}

// CompatibleWith reports whether a node declaring target `t` may be consumed
// by a project/package whose own target is `consumer` (§3 invariants): a
// game-client target accepts game-server code, but not vice versa; every
// other pairing must match exactly.
func (t TargetKind) CompatibleWith(consumer TargetKind) bool {
	if t == consumer {
		return true
	}
	if consumer == TargetRoblox && t == TargetRobloxServer {
		return true
	}
	return false
}
