package cas

import (
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// Finder implements ports.CASFinder by walking up from a workspace root
// looking for an existing ".pesde/cas" directory (a workspace-level install
// shares one CAS with all of its members, §4.4). It creates nothing: when no
// such directory exists, Find returns an error and the caller picks a root.
type Finder struct{}

// NewFinder creates a new Finder.
func NewFinder() *Finder { return &Finder{} }

// Find returns the CAS root to use for a project rooted at workspaceRoot.
func (f *Finder) Find(workspaceRoot string) (string, error) {
	dir := filepath.Clean(workspaceRoot)
	for {
		candidate := filepath.Join(dir, ".pesde", "cas")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", zerr.With(zerr.New("no existing CAS found above workspace root"), "root", workspaceRoot)
}
