package ports

import "github.com/pesde-pkg/pesde/internal/core/domain"

// ManifestLoader loads and saves the project manifest (pesde.toml),
// mirroring the teacher's ConfigLoader port but over TOML instead of YAML.
//
//go:generate go run go.uber.org/mock/mockgen -source=config.go -destination=mocks/mock_config.go -package=mocks
type ManifestLoader interface {
	// Load reads the manifest from the given working directory.
	Load(cwd string) (domain.Manifest, error)
	// Save writes the manifest back, preserving canonical field ordering.
	Save(cwd string, m domain.Manifest) error
}

// LockfileStore loads and saves the project lockfile (pesde.lock).
type LockfileStore interface {
	Load(cwd string) (*domain.Lockfile, error)
	Save(cwd string, l *domain.Lockfile) error
	// Lock acquires the advisory, filesystem-based single-writer lock for
	// the duration of install/update/publish (§5 "Shared-resource policy").
	// The returned func releases it.
	Lock(cwd string) (release func() error, err error)
}
