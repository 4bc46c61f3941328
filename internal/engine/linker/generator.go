package linker

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"go.trai.ch/zerr"
)

// pesdeContainerDir is the indirection directory a non-Wally package is
// materialized under (§4.6 layout diagram).
const pesdeContainerDir = ".pesde"

// escapeForContainer turns a package identifier's name into a single path
// component safe for every source kind, not just the scope/name pairs a
// registry package validates to (git and path specifiers carry arbitrary
// separators), generalizing domain.PackageName.Escaped's "+" joiner.
func escapeForContainer(name string) string {
	r := strings.NewReplacer("/", "+", "#", "+", ":", "+", "\\", "+")
	return r.Replace(name)
}

// containerDir returns id's materialization path, relative to the packages
// folder root. Wally (foreign-registry) packages land directly under the
// packages folder rather than behind the .pesde/ indirection, since the
// Wally ecosystem's own sources expect a flat sibling layout (SPEC_FULL.md,
// "Wally-sourced packages materialize into the parent packages directory").
func containerDir(id domain.Identifier) string {
	escaped := escapeForContainer(id.Name)
	if id.Source == domain.SourceForeign {
		return filepath.Join(escaped, string(id.Target))
	}
	return filepath.Join(pesdeContainerDir, escaped, id.Version, string(id.Target))
}

// luauRequirePath computes the relative require() path from fromDir to
// toFile: relativize, normalize to forward slashes, strip the source
// extension, collapse a trailing "/init" (Luau's directory-as-module
// convention), and prefix "./" when the result isn't already "../"-relative
// (grounded on original_source/src/linking/generator.rs's luau_style_path).
func luauRequirePath(fromDir, toFile string) (string, error) {
	rel, err := filepath.Rel(fromDir, toFile)
	if err != nil {
		return "", zerr.Wrap(err, "failed to compute relative require path")
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, ".luau")
	rel = strings.TrimSuffix(rel, ".lua")

	switch {
	case rel == "init":
		rel = "."
	case strings.HasSuffix(rel, "/init"):
		rel = strings.TrimSuffix(rel, "/init")
	}

	if rel != "." && !strings.HasPrefix(rel, "./") && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel, nil
}

// exportedTypeRe matches a Luau `export type Name<...> = ` declaration
// header; the right-hand side is irrelevant to a re-export shim, which only
// needs the name and generic parameter list.
var exportedTypeRe = regexp.MustCompile(`(?m)^[ \t]*export[ \t]+type[ \t]+([A-Za-z_][A-Za-z0-9_]*)[ \t]*(<[^=\n]*>)?[ \t]*=`)

// extractExportedTypes lists every top-level exported type declared in a
// Luau source file, rendered as the `export type T = module.T` re-export lines a
// shim embeds after its require (§4.6 "Cross-package type re-export"). No
// Luau parser exists in the available ecosystem, so this is a deliberately
// narrow regular-expression scan rather than a full grammar (see DESIGN.md).
func extractExportedTypes(src []byte) []string {
	matches := exportedTypeRe.FindAllSubmatch(src, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := string(m[1])
		var generics string
		if len(m) > 2 {
			generics = string(m[2])
		}
		out = append(out, reexportTypeDecl(name, generics))
	}
	return out
}

// reexportTypeDecl renders one type's re-export line, stripping any generic
// parameter defaults from the *usage* side while keeping them in the
// declaration side (a generic used in `module.T<U>` can't repeat `U = V`).
func reexportTypeDecl(name, generics string) string {
	if generics == "" {
		return fmt.Sprintf("export type %s = module.%s", name, name)
	}

	params := strings.Split(strings.Trim(generics, "<>"), ",")
	declParts := make([]string, 0, len(params))
	useParts := make([]string, 0, len(params))
	for _, p := range params {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		declParts = append(declParts, p)
		if idx := strings.Index(p, "="); idx >= 0 {
			useParts = append(useParts, strings.TrimSpace(p[:idx]))
		} else {
			useParts = append(useParts, p)
		}
	}
	return fmt.Sprintf("export type %s<%s> = module.%s<%s>", name, strings.Join(declParts, ", "), name, strings.Join(useParts, ", "))
}

// generateLibShim renders a library shim: a require of the dependency's
// entry point, followed by one re-export line per exported type, returning
// the required module (§4.6 "Shim contents").
func generateLibShim(requirePath string, types []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "local module = require(%q)\n", requirePath)
	for _, t := range types {
		b.WriteString(t)
		b.WriteByte('\n')
	}
	b.WriteString("return module\n")
	return b.String()
}

// binShimTemplate is the generated binary shim's Luau source. It walks
// upward for a manifest file, confirms the working directory is a member of
// that project's lockfile workspace table, exits 1 when either check fails,
// and otherwise requires the bin entry in-process rather than spawning a new
// interpreter (§4.6 "Binary shims").
const binShimTemplate = `-- generated by pesde; do not edit.
local process = require("@lune/process")
local fs = require("@lune/fs")

local function findProjectRoot(startDir: string): string?
	local dir = startDir
	while true do
		if fs.isFile(dir .. "/pesde.toml") then
			return dir
		end
		local parent = dir:match("^(.*)[/\\][^/\\]+$")
		if parent == nil or parent == dir then
			return nil
		end
		dir = parent
	end
end

local function isWorkspaceMember(root: string, cwd: string): boolean
	if root == cwd then
		return true
	end
	local lockfile = fs.readFile(root .. "/pesde.lock")
	if lockfile == nil then
		return false
	end
	return lockfile:find(cwd:sub(#root + 2), 1, true) ~= nil
end

local root = findProjectRoot(process.cwd)
if root == nil or not isWorkspaceMember(root, process.cwd) then
	process.exit(1)
end

_G.PESDE_PACKAGE_ROOT = %q
return (require(%q) :: any)
`

// generateBinShim renders a binary shim for a dependency materialized at
// packageRoot, requiring its bin entry via requirePath.
func generateBinShim(packageRoot, requirePath string) string {
	return fmt.Sprintf(binShimTemplate, packageRoot, requirePath)
}
