package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// PackageName is a validated `scope/name` pair: lowercase ASCII plus digits
// and underscores, grounded on the naming rules in the original
// implementation's names.rs (see SPEC_FULL.md, "Name validation detail").
type PackageName struct {
	scope string
	name  string
}

// ParsePackageName validates and constructs a PackageName from "scope/name".
func ParsePackageName(s string) (PackageName, error) {
	scope, name, ok := strings.Cut(s, "/")
	if !ok {
		return PackageName{}, zerr.With(zerr.Wrap(ErrInvalidName, "expected scope/name"), "input", s)
	}

	if err := validateNamePart(scope, 3); err != nil {
		return PackageName{}, zerr.With(err, "part", "scope")
	}
	if err := validateNamePart(name, 1); err != nil {
		return PackageName{}, zerr.With(err, "part", "name")
	}

	return PackageName{scope: scope, name: name}, nil
}

func validateNamePart(part string, minLen int) error {
	if len(part) < minLen || len(part) > 32 {
		return zerr.With(zerr.Wrap(ErrInvalidName, "length out of range"), "value", part)
	}

	allDigits := true
	for _, c := range part {
		if c < '0' || c > '9' {
			allDigits = false
			break
		}
	}
	if allDigits {
		return zerr.With(zerr.Wrap(ErrInvalidName, "must not be all digits"), "value", part)
	}

	if strings.HasPrefix(part, "_") || strings.HasSuffix(part, "_") {
		return zerr.With(zerr.Wrap(ErrInvalidName, "must not start or end with underscore"), "value", part)
	}

	for _, c := range part {
		isLower := c >= 'a' && c <= 'z'
		isDigit := c >= '0' && c <= '9'
		if !isLower && !isDigit && c != '_' {
			return zerr.With(zerr.Wrap(ErrInvalidName, "invalid characters"), "value", part)
		}
	}

	return nil
}

// Scope returns the package's scope component.
func (n PackageName) Scope() string { return n.scope }

// Name returns the package's name component.
func (n PackageName) Name() string { return n.name }

// String renders the canonical "scope/name" form.
func (n PackageName) String() string {
	if n.scope == "" && n.name == "" {
		return ""
	}
	return n.scope + "/" + n.name
}

// Escaped renders the form used for on-disk materialization paths under
// `.pesde/`, joining scope and name with "+" (grounded on graph.rs's
// `container_dir`, which escapes PackageId the same way).
func (n PackageName) Escaped() string {
	return n.scope + "+" + n.name
}

// MarshalText implements encoding.TextMarshaler.
func (n PackageName) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *PackageName) UnmarshalText(text []byte) error {
	parsed, err := ParsePackageName(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Alias is the short name a dependency is required by at a given graph
// path (GLOSSARY: Graph path). Aliases are case-normalized for keying while
// retaining the original casing for display (§9 open question, resolved in
// SPEC_FULL.md).
type Alias struct {
	display string
}

// NewAlias constructs an Alias, preserving the given casing for display.
func NewAlias(s string) Alias {
	return Alias{display: s}
}

// Canonical returns the lowercase form used as a map/graph-path key.
func (a Alias) Canonical() string {
	return strings.ToLower(a.display)
}

// Display returns the originally-cased form, used for generated file names
// and log output.
func (a Alias) Display() string {
	return a.display
}

// String satisfies fmt.Stringer with the display form.
func (a Alias) String() string {
	return a.display
}

// MarshalText implements encoding.TextMarshaler.
func (a Alias) MarshalText() ([]byte, error) {
	return []byte(a.display), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Alias) UnmarshalText(text []byte) error {
	a.display = string(text)
	return nil
}
