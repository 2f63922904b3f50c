package caddy

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/0xa1bed0/omd/internal/apperr"
	"github.com/0xa1bed0/omd/internal/routes"
)

const (
	fragmentExt = ".caddy"

	// Standalone rules live next to project fragments under a name no
	// project can take: project names start with a letter or a digit.
	rulePrefix = "_rule."
)

// Fragment is one file as found on disk: a project's fragment, or a
// standalone rule with an empty Project.
type Fragment struct {
	Project    string
	Standalone bool
	Path       string
	Rules      []routes.Rule

	key string
}

// FragmentStore owns <projects dir>/<project>.caddy and the standalone rule
// files beside them. Every write replaces one file and never touches the
// others.
type FragmentStore struct {
	fs  afero.Fs
	dir string
}

func NewFragmentStore(fsys afero.Fs, dir string) *FragmentStore {
	return &FragmentStore{fs: fsys, dir: dir}
}

func (s *FragmentStore) Dir() string { return s.dir }

func (s *FragmentStore) Path(project string) string {
	return filepath.Join(s.dir, project+fragmentExt)
}

// Read returns the current fragment; found is false when there is none.
func (s *FragmentStore) Read(project string) (content []byte, found bool, err error) {
	content, err = afero.ReadFile(s.fs, s.Path(project))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read fragment %s: %w", s.Path(project), err)
	}
	return content, true, nil
}

// Write replaces the fragment through a temp file and a rename.
func (s *FragmentStore) Write(project string, content []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create fragments dir %s: %w", s.dir, err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, "."+project+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp fragment: %w", err)
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(content)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("write fragment %s: %w", s.Path(project), errors.Join(werr, cerr))
	}
	if err := s.fs.Rename(tmpName, s.Path(project)); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("replace fragment %s: %w", s.Path(project), err)
	}
	return nil
}

// Remove deletes the fragment. A missing file is not an error.
func (s *FragmentStore) Remove(project string) (removed bool, err error) {
	if err := s.fs.Remove(s.Path(project)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("remove fragment %s: %w", s.Path(project), err)
	}
	return true, nil
}

// Restore puts back what Read returned before a failed change.
func (s *FragmentStore) Restore(project string, previous []byte, existed bool) error {
	if existed {
		return s.Write(project, previous)
	}
	_, err := s.Remove(project)
	return err
}

// List parses every fragment in the directory, sorted by project.
func (s *FragmentStore) List() ([]Fragment, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list fragments in %s: %w", s.dir, err)
	}

	var out []Fragment
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != fragmentExt {
			continue
		}
		key := strings.TrimSuffix(name, fragmentExt)
		content, _, err := s.Read(key)
		if err != nil {
			return nil, err
		}
		f := Fragment{Project: key, Path: s.Path(key), Rules: ParseRules(content), key: key}
		if strings.HasPrefix(key, rulePrefix) {
			f.Project, f.Standalone = "", true
		}
		out = append(out, f)
	}
	// projects first, then standalone rules
	sort.Slice(out, func(i, j int) bool {
		if out[i].Standalone != out[j].Standalone {
			return !out[i].Standalone
		}
		return out[i].key < out[j].key
	})
	return out, nil
}

func ruleKey(domain string) string {
	return rulePrefix + domain
}

// RulePath is the file of the standalone rule for domain.
func (s *FragmentStore) RulePath(domain string) string {
	return s.Path(ruleKey(normalizeRuleDomain(domain)))
}

// AddRule writes a standalone rule. A rule that already exists for the
// domain is left alone and reported with added=false. A domain routed by a
// project fragment is a validation error.
func (s *FragmentStore) AddRule(rule routes.Rule, opts RenderOptions) (added bool, err error) {
	rule.Domain = normalizeRuleDomain(rule.Domain)
	rule.Target = strings.TrimSpace(rule.Target)
	switch {
	case rule.Domain == "":
		return false, apperr.Invalid("domain", "", "is required")
	case strings.ContainsAny(rule.Domain, " /:{}#"):
		return false, apperr.Invalid("domain", rule.Domain, "is not a domain name")
	case rule.Target == "":
		return false, apperr.Invalid("target", "", "is required")
	case strings.ContainsAny(rule.Target, " {}#"):
		return false, apperr.Invalid("target", rule.Target, "must be host:port or a URL")
	}

	key := ruleKey(rule.Domain)
	if _, found, err := s.Read(key); err != nil || found {
		return false, err
	}

	fragments, err := s.List()
	if err != nil {
		return false, err
	}
	for _, f := range fragments {
		if f.Standalone {
			continue
		}
		for _, r := range f.Rules {
			if strings.EqualFold(r.Domain, rule.Domain) {
				return false, apperr.Invalid("domain", rule.Domain, "is already routed by project "+f.Project)
			}
		}
	}

	return true, s.Write(key, RenderRule(rule, opts))
}

// RemoveRule deletes the standalone rule for domain; a missing rule is not
// an error.
func (s *FragmentStore) RemoveRule(domain string) (removed bool, err error) {
	d := normalizeRuleDomain(domain)
	if d == "" {
		return false, apperr.Invalid("domain", "", "is required")
	}
	return s.Remove(ruleKey(d))
}

func normalizeRuleDomain(d string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(d)), ".")
}
