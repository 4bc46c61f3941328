package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pesde-pkg/pesde/internal/core/domain"
	"github.com/pesde-pkg/pesde/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	LockfileFilename = "pesde.lock"
	lockSuffix       = ".lock"
	lockRetryDelay   = 50 * time.Millisecond
	lockTimeout      = 10 * time.Second
)

var _ ports.LockfileStore = (*TOMLLockfileStore)(nil)

// TOMLLockfileStore implements ports.LockfileStore against pesde.lock.
type TOMLLockfileStore struct {
	log ports.Logger
}

// NewLockfileStore creates a new TOMLLockfileStore.
func NewLockfileStore(log ports.Logger) *TOMLLockfileStore {
	return &TOMLLockfileStore{log: log}
}

type lockfileDoc struct {
	ResolverVersion     int                     `toml:"resolver_version"`
	ManifestFingerprint string                  `toml:"manifest_fingerprint"`
	Packages            []lockPackageDoc        `toml:"packages"`
	Workspace           map[string][]publishDoc `toml:"workspace,omitempty"`
}

type lockPackageDoc struct {
	Source  string            `toml:"source"`
	Name    string            `toml:"name"`
	Version string            `toml:"version"`
	Target  string            `toml:"target"`
	Deps    map[string]string `toml:"dependencies,omitempty"` // alias -> dependency key
	Peer    bool              `toml:"peer,omitempty"`
	Dev     bool              `toml:"dev,omitempty"`

	TreeHash         string `toml:"tree_hash,omitempty"`
	Fingerprint      string `toml:"fingerprint,omitempty"`
	PatchFingerprint string `toml:"patch_fingerprint,omitempty"`
}

type publishDoc struct {
	Name   string `toml:"name"`
	Target string `toml:"target"`
}

// Load reads and parses pesde.lock from cwd. A missing lockfile is not an
// error: it simply means no lock exists yet (§5: first install has none).
func (s *TOMLLockfileStore) Load(cwd string) (*domain.Lockfile, error) {
	path := filepath.Join(cwd, LockfileFilename)
	//nolint:gosec // path is joined from a caller-controlled project root
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, zerr.Wrap(err, "failed to read lockfile")
	}

	var doc lockfileDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, zerr.Wrap(err, "failed to parse lockfile")
	}

	lock := domain.NewLockfile()
	lock.ResolverVersion = doc.ResolverVersion
	lock.ManifestFingerprint = doc.ManifestFingerprint

	for importer, published := range doc.Workspace {
		var entries []domain.Published
		for _, p := range published {
			target, err := domain.ParseTargetKind(p.Target)
			if err != nil {
				return nil, err
			}
			name, err := domain.ParsePackageName(p.Name)
			if err != nil {
				return nil, err
			}
			entries = append(entries, domain.Published{Name: name, Target: target})
		}
		lock.Workspace.Members[importer] = entries
	}

	for _, pkg := range doc.Packages {
		target, err := domain.ParseTargetKind(pkg.Target)
		if err != nil {
			return nil, err
		}
		sourceKind := domain.SourceKind(pkg.Source)
		id := domain.Identifier{Source: sourceKind, Name: pkg.Name, Version: pkg.Version, Target: target}
		node := lock.Graph.Upsert(id, domain.ManifestSummary{Name: pkg.Name, Version: pkg.Version}, pkg.Peer, pkg.Dev)
		node.TreeHash = pkg.TreeHash
		node.SourceArtifactFingerprint = pkg.Fingerprint
		node.PatchFingerprint = pkg.PatchFingerprint
		for alias, depKeyStr := range pkg.Deps {
			depID, err := parseIdentifierKey(depKeyStr)
			if err != nil {
				return nil, err
			}
			node.Edges[alias] = depID
		}
	}

	return lock, nil
}

// Save serializes a domain.Lockfile and writes it to pesde.lock in cwd.
func (s *TOMLLockfileStore) Save(cwd string, l *domain.Lockfile) error {
	doc := lockfileDoc{
		ResolverVersion:     l.ResolverVersion,
		ManifestFingerprint: l.ManifestFingerprint,
		Workspace:           make(map[string][]publishDoc),
	}

	for importer, published := range l.Workspace.Members {
		for _, p := range published {
			doc.Workspace[importer] = append(doc.Workspace[importer], publishDoc{Name: p.Name.String(), Target: string(p.Target)})
		}
	}

	for _, id := range l.Graph.SortedIdentifiers() {
		node, _ := l.Graph.Get(id)
		deps := make(map[string]string, len(node.Edges))
		for alias, target := range node.Edges {
			deps[alias] = target.Key()
		}
		doc.Packages = append(doc.Packages, lockPackageDoc{
			Source:  string(id.Source),
			Name:    id.Name,
			Version: id.Version,
			Target:  string(id.Target),
			Deps:    deps,
			Peer:    node.IsPeer,
			Dev:     node.IsDev,

			TreeHash:         node.TreeHash,
			Fingerprint:      node.SourceArtifactFingerprint,
			PatchFingerprint: node.PatchFingerprint,
		})
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return zerr.Wrap(err, "failed to marshal lockfile")
	}
	path := filepath.Join(cwd, LockfileFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // lockfile is not sensitive
		return zerr.Wrap(err, "failed to write lockfile")
	}
	return nil
}

// Lock takes an advisory, cross-process lock on the workspace by creating an
// exclusive sentinel file next to the lockfile, retrying until lockTimeout
// elapses (§7 ErrLockfileLocked). No flock-style library appears anywhere
// in the example pack, so this is hand-rolled on os.O_EXCL, which is the
// same primitive any such library would wrap on POSIX systems.
func (s *TOMLLockfileStore) Lock(cwd string) (func() error, error) {
	path := filepath.Join(cwd, LockfileFilename+lockSuffix)
	deadline := time.Now().Add(lockTimeout)

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = f.Close()
			return func() error { return os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, zerr.Wrap(err, "failed to create lockfile sentinel")
		}
		if time.Now().After(deadline) {
			return nil, zerr.With(domain.ErrLockfileLocked, "path", path)
		}
		time.Sleep(lockRetryDelay)
	}
}

func parseIdentifierKey(key string) (domain.Identifier, error) {
	// Mirrors domain.Identifier.Key()'s "source#name@version/target" format.
	hashIdx, atIdx, slashIdx := -1, -1, -1
	for i, c := range key {
		switch c {
		case '#':
			if hashIdx < 0 {
				hashIdx = i
			}
		case '@':
			if atIdx < 0 {
				atIdx = i
			}
		case '/':
			slashIdx = i
		}
	}
	if hashIdx < 0 || atIdx < 0 || slashIdx < 0 {
		return domain.Identifier{}, zerr.With(zerr.New("malformed identifier key"), "key", key)
	}
	target, err := domain.ParseTargetKind(key[slashIdx+1:])
	if err != nil {
		return domain.Identifier{}, err
	}
	return domain.Identifier{
		Source:  domain.SourceKind(key[:hashIdx]),
		Name:    key[hashIdx+1 : atIdx],
		Version: key[atIdx+1 : slashIdx],
		Target:  target,
	}, nil
}
