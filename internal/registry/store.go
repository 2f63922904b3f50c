package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"

	"github.com/0xa1bed0/omd/internal/apperr"
	"github.com/0xa1bed0/omd/internal/logs"
)

// SchemaVersion is written into every persisted registry.
const SchemaVersion = "1.0.0"

var compatibleSchema = mustConstraint("^1.0.0")

type fileFormat struct {
	Version  string                   `json:"version,omitempty"`
	Projects map[string]ProjectRecord `json:"projects"`
}

// Store reads and writes the registry file.
type Store struct {
	fs   afero.Fs
	path string
}

func NewStore(fsys afero.Fs, path string) *Store {
	return &Store{fs: fsys, path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the registry. A missing file is an empty registry; anything
// unreadable is ErrRegistryCorrupt and must stop the caller.
func (s *Store) Load() (*Registry, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logs.Debugf("registry %s does not exist yet, starting empty", s.path)
			return New(), nil
		}
		return nil, fmt.Errorf("read registry %s: %w", s.path, err)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrRegistryCorrupt, s.path, err)
	}

	if ff.Version != "" {
		v, err := semver.NewVersion(ff.Version)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad schema version %q: %v", apperr.ErrRegistryCorrupt, s.path, ff.Version, err)
		}
		if !compatibleSchema.Check(v) {
			return nil, fmt.Errorf("%w: %s: schema version %s is not supported (want %s)", apperr.ErrRegistryCorrupt, s.path, v, SchemaVersion)
		}
	}

	reg := New()
	for name, rec := range ff.Projects {
		if rec.Name == "" {
			rec.Name = name
		}
		if rec.Name != name {
			return nil, fmt.Errorf("%w: %s: entry %q is named %q", apperr.ErrRegistryCorrupt, s.path, name, rec.Name)
		}
		reg.Register(rec)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrRegistryCorrupt, s.path, err)
	}

	logs.Debugf("loaded registry %s with %d project(s)", s.path, reg.Len())
	return reg, nil
}

// Persist rewrites the whole file. The content goes to a temporary file in
// the same directory first and is renamed over the target, so readers see
// either the old registry or the new one.
func (s *Store) Persist(reg *Registry) error {
	ff := fileFormat{Version: SchemaVersion, Projects: reg.projects}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = s.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp registry: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp registry: %w", err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace registry: %w", err)
	}

	logs.Debugf("persisted registry %s with %d project(s)", s.path, reg.Len())
	return nil
}

func mustConstraint(c string) *semver.Constraints {
	cons, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cons
}
