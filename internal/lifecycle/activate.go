package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/0xa1bed0/omd/internal/apperr"
	"github.com/0xa1bed0/omd/internal/caddy"
	"github.com/0xa1bed0/omd/internal/compose"
	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/project"
	"github.com/0xa1bed0/omd/internal/registry"
	"github.com/0xa1bed0/omd/internal/routes"
	"github.com/0xa1bed0/omd/internal/state"
)

// Activation describes a successful activate.
type Activation struct {
	Project        *project.Project
	Record         registry.ProjectRecord
	Entries        []compose.ServiceEntry
	Routes         []routes.Rule
	FragmentPath   string
	FragmentChange bool
	NetworkCreated bool
	// Warnings lists best-effort steps that failed.
	Warnings []string
}

// Activate registers the project found at path. Any failure before the
// registry is persisted leaves the registry exactly as it was.
func (c *Controller) Activate(ctx context.Context, path string) (act *Activation, err error) {
	p, err := project.Load(c.fs, path)
	if err != nil {
		return nil, err
	}
	logs.Debugf("activating %s from %s", p.Name, p.Declaration)

	var ports []int
	defer func() {
		o, detail := outcome(err)
		if err == nil {
			detail = fmt.Sprintf("%d route(s)", len(act.Routes))
		}
		c.record(ctx, state.HistoryEntry{
			Project: p.Name,
			Action:  state.ActionActivate,
			Outcome: o,
			Ports:   ports,
			Detail:  detail,
		})
	}()

	entries, err := compose.ParseFile(c.fs, p.ComposeFile, p.Name)
	if err != nil {
		return nil, err
	}
	ports = compose.HostPorts(entries)

	reg, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	var warnings []string
	if other, ok := reg.FindByPath(p.Dir); ok && other.Name != p.Name {
		// a renamed declaration leaves the old record holding its ports
		msg := fmt.Sprintf("%s is still registered as %s; deactivate it under that name or run 'omd prune'", p.Dir, other.Name)
		logs.Warnf("%s", msg)
		warnings = append(warnings, msg)
	}
	if conflicts := registry.Detect(ports, reg, p.Name); len(conflicts) > 0 {
		return nil, &registry.ConflictError{Project: p.Name, Conflicts: conflicts}
	}
	if prev, ok := reg.Get(p.Name); ok && prev.Path != p.Dir {
		msg := fmt.Sprintf("project %s was registered from %s, re-registering from %s", p.Name, prev.Path, p.Dir)
		logs.Warnf("%s", msg)
		warnings = append(warnings, msg)
	}

	rules, err := routes.Derive(entries, p.Domain, p.Routes)
	if err != nil {
		return nil, err
	}

	act = &Activation{
		Project:      p,
		Entries:      entries,
		Routes:       rules,
		FragmentPath: c.fragments.Path(p.Name),
		Warnings:     warnings,
	}

	act.NetworkCreated, err = c.networks.EnsureNetwork(ctx, p.Network, p.Name)
	if err != nil {
		var ext *apperr.ExternalCallError
		if !errors.As(err, &ext) {
			err = apperr.External("ensure network", p.Network, err)
		}
		return nil, err
	}
	if err := c.networks.ConnectProxy(ctx, p.Network, c.settings.Caddy.Container); err != nil {
		msg := fmt.Sprintf("can't attach %s to network %s: %v", c.settings.Caddy.Container, p.Network, err)
		logs.Warnf("%s", msg)
		act.Warnings = append(act.Warnings, msg)
	}

	content := caddy.Render(p.Name, rules, caddy.RenderOptions{
		Domain:     p.Domain,
		HTTPS:      c.settings.HTTPS.Enabled,
		CertsMount: c.settings.Caddy.CertsMount,
	})
	previous, existed, err := c.fragments.Read(p.Name)
	if err != nil {
		return nil, err
	}
	act.FragmentChange = !existed || !bytes.Equal(previous, content)
	if act.FragmentChange {
		if existed {
			logs.Debugf("fragment %s changes:\n%s", act.FragmentPath, caddy.LineDiff(previous, content))
		}
		if err := c.fragments.Write(p.Name, content); err != nil {
			return nil, err
		}
	}

	reg.Register(registry.ProjectRecord{
		Name:       p.Name,
		Path:       p.Dir,
		Domain:     p.Domain,
		Network:    p.Network,
		Ports:      ports,
		Containers: compose.ContainerNames(entries),
	})
	if err := c.store.Persist(reg); err != nil {
		if act.FragmentChange {
			if rerr := c.fragments.Restore(p.Name, previous, existed); rerr != nil {
				logs.Warnf("can't restore fragment %s: %v", act.FragmentPath, rerr)
			}
		}
		return nil, err
	}
	act.Record, _ = reg.Get(p.Name)

	if w := c.reload(ctx); w != "" {
		act.Warnings = append(act.Warnings, w)
	}

	if c.hosts != nil {
		domains := make([]string, 0, len(rules))
		for _, r := range rules {
			domains = append(domains, r.Domain)
		}
		skipped, herr := c.hosts.Apply(p.Name, domains)
		if herr != nil {
			msg := fmt.Sprintf("can't update hosts file: %v", herr)
			logs.Warnf("%s", msg)
			act.Warnings = append(act.Warnings, msg)
		}
		for _, d := range skipped {
			logs.Warnf("%s is already mapped in the hosts file by something else, leaving it alone", d)
		}
	}

	return act, nil
}
