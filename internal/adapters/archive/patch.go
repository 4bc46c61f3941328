package archive

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PatchApplier = (*PatchApplier)(nil)

// PatchApplier applies a unified-diff patch file to an unpacked tree
// (§4.5 step 5). go-difflib only generates diffs, not applies them, so the
// hunk parsing and application here is hand-rolled against the classic
// unified format difflib itself produces (---/+++ headers, @@ hunks, lines
// prefixed with ' ', '-', '+').
type PatchApplier struct{}

// NewPatchApplier creates a PatchApplier.
func NewPatchApplier() *PatchApplier {
	return &PatchApplier{}
}

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	lines              []string // each prefixed with ' ', '-', or '+'
}

type fileDiff struct {
	oldPath, newPath string
	hunks            []hunk
}

// Apply parses patchPath as a unified diff and rewrites the files it
// touches inside treeDir. manifestRelPath is checked against every target
// path in the patch; if the patch touches it, Apply fails with
// PatchCreatesFileOutsidePackage (§4.5 step 5, original_source/patches.rs
// convention that a patch must not modify the package's own manifest).
func (p *PatchApplier) Apply(ctx context.Context, patchPath, treeDir, manifestRelPath string) error {
	data, err := os.ReadFile(patchPath)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrPatchDoesNotApply, err.Error()), "patch", patchPath)
	}

	diffs, err := parseUnifiedDiff(string(data))
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrPatchDoesNotApply, err.Error()), "patch", patchPath)
	}

	for _, fd := range diffs {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := patchTargetPath(fd)
		if target == "" {
			continue
		}
		if filepath.Clean(target) == filepath.Clean(manifestRelPath) {
			return zerr.With(domain.ErrPatchCreatesFileOutsidePackage, "path", target)
		}

		dest, err := safeJoin(treeDir, target)
		if err != nil {
			return zerr.With(domain.ErrPatchCreatesFileOutsidePackage, "path", target)
		}

		if err := applyFileDiff(dest, fd); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrPatchDoesNotApply, err.Error()), "path", target)
		}
	}
	return nil
}

// patchTargetPath picks the diff's "new" path, falling back to "old" when
// the new path is empty or "/dev/null" (a pure deletion); only a diff whose
// resulting path is still "/dev/null" has no concrete target and is skipped.
func patchTargetPath(fd fileDiff) string {
	path := fd.newPath
	if path == "" || path == "/dev/null" {
		path = fd.oldPath
	}
	if path == "/dev/null" {
		return ""
	}
	return stripDiffPrefix(path)
}

// stripDiffPrefix removes the conventional "a/"/"b/" prefix unified diffs
// use for from/to file paths.
func stripDiffPrefix(path string) string {
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

func parseUnifiedDiff(text string) ([]fileDiff, error) {
	var diffs []fileDiff
	var cur *fileDiff
	var h *hunk

	// The newline ending the last line would otherwise split off as a
	// trailing "" and be read as an extra empty context line.
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "--- "):
			if cur != nil {
				diffs = append(diffs, *cur)
			}
			cur = &fileDiff{oldPath: strings.TrimSpace(strings.TrimPrefix(line, "--- "))}
			h = nil
		case strings.HasPrefix(line, "+++ "):
			if cur == nil {
				cur = &fileDiff{}
			}
			cur.newPath = strings.TrimSpace(strings.TrimPrefix(line, "+++ "))
		case strings.HasPrefix(line, "@@"):
			parsed, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			if cur == nil {
				cur = &fileDiff{}
			}
			cur.hunks = append(cur.hunks, parsed)
			h = &cur.hunks[len(cur.hunks)-1]
		case h != nil && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "+")):
			h.lines = append(h.lines, line)
		case h != nil && line == "":
			h.lines = append(h.lines, " ")
		}
	}
	if cur != nil {
		diffs = append(diffs, *cur)
	}
	return diffs, nil
}

// parseHunkHeader parses "@@ -oldStart,oldCount +newStart,newCount @@".
func parseHunkHeader(line string) (hunk, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return hunk{}, zerr.Wrap(domain.ErrPatchDoesNotApply, "malformed hunk header")
	}
	oldStart, oldCount, err := parseRange(fields[1])
	if err != nil {
		return hunk{}, err
	}
	newStart, newCount, err := parseRange(fields[2])
	if err != nil {
		return hunk{}, err
	}
	return hunk{oldStart: oldStart, oldCount: oldCount, newStart: newStart, newCount: newCount}, nil
}

func parseRange(field string) (start, count int, err error) {
	field = strings.TrimPrefix(field, "-")
	field = strings.TrimPrefix(field, "+")
	parts := strings.SplitN(field, ",", 2)
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, zerr.Wrap(domain.ErrPatchDoesNotApply, "malformed hunk range")
	}
	count = 1
	if len(parts) == 2 {
		count, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, zerr.Wrap(domain.ErrPatchDoesNotApply, "malformed hunk range")
		}
	}
	return start, count, nil
}

// applyFileDiff rewrites dest by replacing each hunk's old-side lines with
// its new-side lines, creating dest (and parent dirs) when the diff is a
// pure addition.
func applyFileDiff(dest string, fd fileDiff) error {
	var original []string
	if data, err := os.ReadFile(dest); err == nil {
		original = splitKeepEmpty(string(data))
	} else if !os.IsNotExist(err) {
		return err
	}

	var out []string
	cursor := 0 // 0-based index into original
	for _, h := range fd.hunks {
		oldIdx := h.oldStart - 1
		if oldIdx < 0 {
			oldIdx = 0
		}
		// Copy unchanged lines up to the hunk start.
		for cursor < oldIdx && cursor < len(original) {
			out = append(out, original[cursor])
			cursor++
		}
		for _, hl := range h.lines {
			if hl == "" {
				continue
			}
			switch hl[0] {
			case ' ':
				out = append(out, strings.TrimPrefix(hl, " ")+"\n")
				cursor++
			case '-':
				cursor++
			case '+':
				out = append(out, strings.TrimPrefix(hl, "+")+"\n")
			}
		}
	}
	for cursor < len(original) {
		out = append(out, original[cursor])
		cursor++
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, line := range out {
		if _, err := w.WriteString(line); err != nil {
			return err
		}
	}
	return w.Flush()
}

// splitKeepEmpty splits s into lines, keeping the trailing newline on every
// line but the (possibly absent) final one, matching what parseUnifiedDiff
// expects to diff against.
func splitKeepEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}
