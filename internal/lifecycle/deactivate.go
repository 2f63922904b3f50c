package lifecycle

import (
	"context"
	"fmt"

	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/project"
	"github.com/0xa1bed0/omd/internal/state"
)

// Deactivation describes a successful deactivate.
type Deactivation struct {
	Project         string
	WasRegistered   bool
	FragmentRemoved bool
	// FreedPorts are the ports the project held before deactivation.
	FreedPorts []int
	Warnings   []string
}

// Deactivate removes the project found at path from the proxy and the
// registry. Deactivating a project that is not registered succeeds and leaves
// the registry untouched.
func (c *Controller) Deactivate(ctx context.Context, path string) (deact *Deactivation, err error) {
	p, err := project.Load(c.fs, path)
	if err != nil {
		return nil, err
	}
	logs.Debugf("deactivating %s", p.Name)

	defer func() {
		o, detail := outcome(err)
		var ports []int
		if deact != nil {
			ports = deact.FreedPorts
			if !deact.WasRegistered {
				detail = "not registered"
			}
		}
		c.record(ctx, state.HistoryEntry{
			Project: p.Name,
			Action:  state.ActionDeactivate,
			Outcome: o,
			Ports:   ports,
			Detail:  detail,
		})
	}()

	// a corrupt registry must stop us before the fragment goes away
	reg, err := c.store.Load()
	if err != nil {
		return nil, err
	}

	deact = &Deactivation{Project: p.Name}
	if rec, ok := reg.Get(p.Name); ok {
		deact.FreedPorts = rec.Ports
	}

	deact.FragmentRemoved, err = c.fragments.Remove(p.Name)
	if err != nil {
		return nil, err
	}

	deact.WasRegistered = reg.Unregister(p.Name)
	if deact.WasRegistered {
		if err := c.store.Persist(reg); err != nil {
			return nil, err
		}
	} else {
		logs.Debugf("%s is not registered, registry left unchanged", p.Name)
	}

	if w := c.reload(ctx); w != "" {
		deact.Warnings = append(deact.Warnings, w)
	}

	if c.hosts != nil {
		if _, herr := c.hosts.Remove(p.Name); herr != nil {
			msg := fmt.Sprintf("can't update hosts file: %v", herr)
			logs.Warnf("%s", msg)
			deact.Warnings = append(deact.Warnings, msg)
		}
	}

	return deact, nil
}
