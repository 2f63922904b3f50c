package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/project"
	"github.com/0xa1bed0/omd/internal/registry"
	"github.com/0xa1bed0/omd/internal/state"
)

// Stale lists registered projects whose directory no longer holds a
// declaration.
func (c *Controller) Stale() ([]registry.ProjectRecord, error) {
	reg, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	return c.stale(reg)
}

func (c *Controller) stale(reg *registry.Registry) ([]registry.ProjectRecord, error) {
	var out []registry.ProjectRecord
	for _, rec := range reg.Projects() {
		ok, err := afero.Exists(c.fs, filepath.Join(rec.Path, project.DeclarationFile))
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", rec.Path, err)
		}
		if !ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Prune unregisters stale projects and removes their fragments. confirm sees
// the candidates first; a nil confirm accepts. It returns the pruned records.
func (c *Controller) Prune(ctx context.Context, confirm func([]registry.ProjectRecord) bool) ([]registry.ProjectRecord, error) {
	reg, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	stale, err := c.stale(reg)
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		logs.Debugf("no stale projects")
		return nil, nil
	}
	if confirm != nil && !confirm(stale) {
		return nil, nil
	}

	for _, rec := range stale {
		if _, err := c.fragments.Remove(rec.Name); err != nil {
			return nil, err
		}
		reg.Unregister(rec.Name)
	}
	err = c.store.Persist(reg)
	for _, rec := range stale {
		o, detail := outcome(err)
		if err == nil {
			detail = "declaration missing in " + rec.Path
		}
		c.record(ctx, state.HistoryEntry{
			Project: rec.Name,
			Action:  state.ActionPrune,
			Outcome: o,
			Ports:   rec.Ports,
			Detail:  detail,
		})
	}
	if err != nil {
		return nil, err
	}

	c.reload(ctx)

	if c.hosts != nil {
		for _, rec := range stale {
			if _, err := c.hosts.Remove(rec.Name); err != nil {
				logs.Warnf("can't remove hosts section of %s: %v", rec.Name, err)
			}
		}
	}
	return stale, nil
}
