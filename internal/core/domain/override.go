package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// OverrideKey is a comma-separated list of ">"-joined alias paths (§4.1
// apply-overrides). A single manifest override entry may apply to several
// distinct graph paths at once, e.g. "a>b,c>b".
type OverrideKey struct {
	Paths []GraphPath
}

// ParseOverrideKey parses the raw TOML key text into alias paths. Alias
// components are case-folded to their canonical form for matching.
func ParseOverrideKey(raw string) OverrideKey {
	var key OverrideKey
	for _, pathStr := range strings.Split(raw, ",") {
		pathStr = strings.TrimSpace(pathStr)
		if pathStr == "" {
			continue
		}
		var path GraphPath
		for _, seg := range strings.Split(pathStr, ">") {
			path = append(path, NewAlias(strings.TrimSpace(seg)))
		}
		key.Paths = append(key.Paths, path)
	}
	return key
}

// Matches reports whether the given graph path equals any of the key's paths.
func (k OverrideKey) Matches(path GraphPath) bool {
	for _, candidate := range k.Paths {
		if pathsEqual(candidate, path) {
			return true
		}
	}
	return false
}

func pathsEqual(a, b GraphPath) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Canonical() != b[i].Canonical() {
			return false
		}
	}
	return true
}

// OverrideValue is either a literal replacement specifier or a reference to
// one of the root's own direct dependencies by alias (§4.1: "An override
// value can be either a literal specifier or an alias referring to the
// root's own dependency").
type OverrideValue struct {
	Literal   *Specifier
	AliasRef  Alias
	IsAliasRef bool
}

// Override pairs a parsed key with its replacement value, plus the raw key
// text for diagnostics and round-tripping back to TOML.
type Override struct {
	Key   OverrideKey
	Value OverrideValue
	Raw   string
}

// ApplyOverrides implements §4.1 apply-overrides: when the current graph
// path matches any override's key, the spec is replaced. rootDeps supplies
// the root's own direct dependency specifiers, keyed by canonical alias, for
// resolving alias-reference override values.
func ApplyOverrides(path GraphPath, spec Specifier, overrides []Override, rootDeps map[string]Specifier) (Specifier, error) {
	for _, ov := range overrides {
		if !ov.Key.Matches(path) {
			continue
		}
		if ov.Value.IsAliasRef {
			replacement, ok := rootDeps[ov.Value.AliasRef.Canonical()]
			if !ok {
				return Specifier{}, zerr.With(zerr.Wrap(ErrConflictingOverride, "alias not found in root dependencies"), "override", ov.Raw)
			}
			return replacement, nil
		}
		if ov.Value.Literal != nil {
			return *ov.Value.Literal, nil
		}
	}
	return spec, nil
}
