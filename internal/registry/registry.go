// Package registry is the cross-project ledger of claimed host ports.
//
// The one invariant it exists for: no host port is held by two projects.
// Register trusts its caller (the lifecycle controller) to have run Detect
// first; Load refuses any file that already breaks the rule.
package registry

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ProjectRecord is the persisted state of one active project.
type ProjectRecord struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Domain     string   `json:"domain"`
	Network    string   `json:"network"`
	Ports      []int    `json:"ports"`
	Containers []string `json:"containers"`
}

// Registry maps project names to their records.
type Registry struct {
	projects map[string]ProjectRecord
}

func New() *Registry {
	return &Registry{projects: make(map[string]ProjectRecord)}
}

// Register inserts or replaces the record for rec.Name.
func (r *Registry) Register(rec ProjectRecord) {
	rec.Ports = normalizePorts(rec.Ports)
	if rec.Containers == nil {
		rec.Containers = []string{}
	} else {
		rec.Containers = slices.Clone(rec.Containers)
	}
	r.projects[rec.Name] = rec
}

// Unregister removes name and reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	if _, ok := r.projects[name]; !ok {
		return false
	}
	delete(r.projects, name)
	return true
}

func (r *Registry) Get(name string) (ProjectRecord, bool) {
	rec, ok := r.projects[name]
	return rec, ok
}

func (r *Registry) Len() int { return len(r.projects) }

// Projects returns every record sorted by name.
func (r *Registry) Projects() []ProjectRecord {
	out := make([]ProjectRecord, 0, len(r.projects))
	for _, rec := range r.projects {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindByPath returns the project registered from dir, if any.
func (r *Registry) FindByPath(dir string) (ProjectRecord, bool) {
	for _, rec := range r.Projects() {
		if rec.Path == dir {
			return rec, true
		}
	}
	return ProjectRecord{}, false
}

// Owner returns the project holding port.
func (r *Registry) Owner(port int) (string, bool) {
	for _, rec := range r.Projects() {
		if _, found := slices.BinarySearch(rec.Ports, port); found {
			return rec.Name, true
		}
	}
	return "", false
}

// Validate checks the port invariant across every pair of records.
func (r *Registry) Validate() error {
	owners := make(map[int]string)
	var clashes []string
	for _, rec := range r.Projects() {
		for _, p := range rec.Ports {
			if p < 1 || p > 65535 {
				clashes = append(clashes, fmt.Sprintf("%s holds invalid port %d", rec.Name, p))
				continue
			}
			if prev, taken := owners[p]; taken {
				clashes = append(clashes, fmt.Sprintf("port %d held by both %s and %s", p, prev, rec.Name))
				continue
			}
			owners[p] = rec.Name
		}
	}
	if len(clashes) > 0 {
		return fmt.Errorf("%s", strings.Join(clashes, "; "))
	}
	return nil
}

func normalizePorts(ports []int) []int {
	out := slices.Clone(ports)
	if out == nil {
		return []int{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
