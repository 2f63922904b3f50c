package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/0xa1bed0/omd/internal/apperr"
)

// Conflict is one proposed port already claimed by another project.
type Conflict struct {
	Port  int
	Owner string
}

// Detect returns every port in proposed that a project other than excluding
// already holds, ordered by port then owner. It never touches the registry.
func Detect(proposed []int, reg *Registry, excluding string) []Conflict {
	if reg == nil || len(proposed) == 0 {
		return nil
	}

	want := make(map[int]struct{}, len(proposed))
	for _, p := range proposed {
		want[p] = struct{}{}
	}

	var conflicts []Conflict
	for name, rec := range reg.projects {
		if name == excluding {
			continue
		}
		for _, p := range rec.Ports {
			if _, ok := want[p]; ok {
				conflicts = append(conflicts, Conflict{Port: p, Owner: name})
			}
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Port != conflicts[j].Port {
			return conflicts[i].Port < conflicts[j].Port
		}
		return conflicts[i].Owner < conflicts[j].Owner
	})
	return conflicts
}

// ConflictError aborts an activation whose ports are taken.
type ConflictError struct {
	Project   string
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%d (owned by %s)", c.Port, c.Owner))
	}
	return fmt.Sprintf("%v: project %s wants port(s) already in use: %s",
		apperr.ErrPortConflict, e.Project, strings.Join(parts, ", "))
}

func (e *ConflictError) Unwrap() error { return apperr.ErrPortConflict }
