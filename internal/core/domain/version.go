package domain

import (
	"strconv"
	"strings"

	"go.trai.ch/zerr"
	"golang.org/x/mod/semver"
)

// ConstraintKind distinguishes the shapes a version range can take.
type ConstraintKind int

const (
	// ConstraintCaret is "^1.2.3": compatible-with, per semver caret rules.
	ConstraintCaret ConstraintKind = iota
	// ConstraintTilde is "~1.2.3": patch-level compatible-with ("~1.2" too;
	// only "~1", with the minor component omitted, allows any minor).
	ConstraintTilde
	// ConstraintExact is "=1.2.3": must match exactly.
	ConstraintExact
	// ConstraintWildcard is "*": matches anything, including prereleases
	// (§4.1's explicit choice).
	ConstraintWildcard
	// ConstraintExplicit is a bare version used as a workspace specifier
	// with no range operator (§4.2 Workspace).
	ConstraintExplicit
)

// Constraint is a parsed version-range expression.
type Constraint struct {
	Kind ConstraintKind
	// Major, Minor and Patch hold the parsed components of the constraint's
	// version, not including the range operator. Unset components are 0.
	Major, Minor, Patch int
	// HasMinor/HasPatch record whether those components were present in the
	// source text, which changes tilde's matched range.
	HasMinor, HasPatch bool
	// Prerelease is the prerelease tag of Base, if any (e.g. "rc.1").
	Prerelease string
	raw        string
}

// ParseConstraint parses a version range as used in manifests and specifiers.
func ParseConstraint(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	if s == "*" || s == "" {
		return Constraint{Kind: ConstraintWildcard, raw: s}, nil
	}

	kind := ConstraintExplicit
	rest := s
	switch s[0] {
	case '^':
		kind = ConstraintCaret
		rest = s[1:]
	case '~':
		kind = ConstraintTilde
		rest = s[1:]
	case '=':
		kind = ConstraintExact
		rest = s[1:]
	}

	c, err := parseVersionComponents(rest)
	if err != nil {
		return Constraint{}, zerr.With(zerr.Wrap(err, "invalid version constraint"), "constraint", s)
	}
	c.Kind = kind
	c.raw = s
	return c, nil
}

func parseVersionComponents(s string) (Constraint, error) {
	core, pre, _ := strings.Cut(s, "-")
	parts := strings.Split(core, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return Constraint{}, zerr.Wrap(ErrMalformedManifest, "version must have 1-3 numeric components")
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Constraint{}, zerr.With(zerr.Wrap(ErrMalformedManifest, "non-numeric version component"), "component", p)
		}
		nums[i] = n
	}

	return Constraint{
		Major:      nums[0],
		Minor:      nums[1],
		Patch:      nums[2],
		HasMinor:   len(parts) >= 2,
		HasPatch:   len(parts) == 3,
		Prerelease: pre,
	}, nil
}

// String returns the original constraint text.
func (c Constraint) String() string { return c.raw }

// semverString renders the constraint's base version as a canonical
// "vMAJOR.MINOR.PATCH[-pre]" string usable with golang.org/x/mod/semver.
func (c Constraint) semverString() string {
	v := "v" + strconv.Itoa(c.Major) + "." + strconv.Itoa(valueOrZero(c.HasMinor, c.Minor)) + "." + strconv.Itoa(valueOrZero(c.HasPatch, c.Patch))
	if c.Prerelease != "" {
		v += "-" + c.Prerelease
	}
	return v
}

func valueOrZero(has bool, v int) int {
	if has {
		return v
	}
	return 0
}

// toSemver normalizes a bare package version (no leading "v") to the form
// golang.org/x/mod/semver expects.
func toSemver(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}

// Match reports whether candidate (a concrete package version, no leading
// "v" required) satisfies the constraint, per §4.1:
//
//	match(constraint, candidate-version) -> bool: semver with the rule that
//	the bare `*` matches prereleases; other ranges follow standard semver
//	and exclude prereleases unless the range itself includes one.
func (c Constraint) Match(candidate string) bool {
	cand := toSemver(candidate)
	if !semver.IsValid(cand) {
		return false
	}

	if c.Kind == ConstraintWildcard {
		return true
	}

	candPre := semver.Prerelease(cand) // includes leading "-", or ""
	if candPre != "" && c.Prerelease == "" {
		// Standard ranges exclude prereleases unless the range itself
		// includes one (§4.1).
		return false
	}

	base := c.semverString()

	switch c.Kind {
	case ConstraintExact, ConstraintExplicit:
		return semver.Compare(cand, base) == 0
	case ConstraintCaret:
		return c.matchCaret(cand, base)
	case ConstraintTilde:
		return c.matchTilde(cand, base)
	default:
		return false
	}
}

func (c Constraint) matchCaret(cand, base string) bool {
	if semver.Compare(cand, base) < 0 {
		return false
	}

	var upper string
	switch {
	case c.Major > 0:
		upper = "v" + strconv.Itoa(c.Major+1) + ".0.0"
	case c.HasMinor && c.Minor > 0:
		upper = "v0." + strconv.Itoa(c.Minor+1) + ".0"
	case c.HasPatch:
		upper = "v0.0." + strconv.Itoa(c.Patch+1)
	default:
		// ^0 or ^0.0 with no further components: matches only 0.0.0.
		upper = "v0.0.1"
	}
	return semver.Compare(cand, upper) < 0
}

func (c Constraint) matchTilde(cand, base string) bool {
	if semver.Compare(cand, base) < 0 {
		return false
	}

	var upper string
	switch {
	case c.HasMinor:
		upper = "v" + strconv.Itoa(c.Major) + "." + strconv.Itoa(c.Minor+1) + ".0"
	default:
		upper = "v" + strconv.Itoa(c.Major+1) + ".0.0"
	}
	return semver.Compare(cand, upper) < 0
}

// HighestMatching returns the highest version in candidates satisfying c,
// following the resolver's tie-break rule (§4.3 step 7: "prefer the higher
// semver"). candidates need not be sorted or "v"-prefixed.
func HighestMatching(c Constraint, candidates []string) (string, bool) {
	var best string
	found := false
	for _, cand := range candidates {
		if !c.Match(cand) {
			continue
		}
		if !found || semver.Compare(toSemver(cand), toSemver(best)) > 0 {
			best = cand
			found = true
		}
	}
	return best, found
}

// CompareVersions compares two bare package versions using semver ordering.
func CompareVersions(a, b string) int {
	return semver.Compare(toSemver(a), toSemver(b))
}
