// Package lifecycle activates and deactivates projects: it ties the compose
// model, the port registry, route derivation and the proxy together so that
// the registry only ever records fully realized configurations.
package lifecycle

//go:generate mockgen -destination=mocks/lifecycle.go -package=mocks github.com/0xa1bed0/omd/internal/lifecycle Networks,Proxy,HostsFile,Journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	omdconfig "github.com/0xa1bed0/omd/internal/apps/omd/config"
	"github.com/0xa1bed0/omd/internal/caddy"
	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/registry"
	"github.com/0xa1bed0/omd/internal/state"
)

// Networks manages the container runtime networks projects run on.
type Networks interface {
	EnsureNetwork(ctx context.Context, name, project string) (created bool, err error)
	ConnectProxy(ctx context.Context, networkName, proxyContainer string) error
}

// Proxy reloads the reverse proxy after its fragments changed.
type Proxy interface {
	ReloadProxy(ctx context.Context, proxyContainer, configPath string) error
}

// HostsFile maintains one managed hosts section per project.
type HostsFile interface {
	Apply(project string, domains []string) (skipped []string, err error)
	Remove(project string) (bool, error)
}

// Journal records lifecycle operations.
type Journal interface {
	Record(ctx context.Context, e state.HistoryEntry) error
}

// Options wires a Controller. Hosts and Journal are optional.
type Options struct {
	Fs        afero.Fs
	Registry  *registry.Store
	Fragments *caddy.FragmentStore
	Networks  Networks
	Proxy     Proxy
	Hosts     HostsFile
	Journal   Journal
	Settings  *omdconfig.Settings
	RunID     string
}

type Controller struct {
	fs        afero.Fs
	store     *registry.Store
	fragments *caddy.FragmentStore
	networks  Networks
	proxy     Proxy
	hosts     HostsFile
	journal   Journal
	settings  *omdconfig.Settings
	runID     string
}

func New(opts Options) (*Controller, error) {
	switch {
	case opts.Fs == nil:
		return nil, errors.New("lifecycle: filesystem is required")
	case opts.Registry == nil:
		return nil, errors.New("lifecycle: registry store is required")
	case opts.Fragments == nil:
		return nil, errors.New("lifecycle: fragment store is required")
	case opts.Networks == nil:
		return nil, errors.New("lifecycle: networks client is required")
	case opts.Proxy == nil:
		return nil, errors.New("lifecycle: proxy client is required")
	case opts.Settings == nil:
		return nil, errors.New("lifecycle: settings are required")
	}
	return &Controller{
		fs:        opts.Fs,
		store:     opts.Registry,
		fragments: opts.Fragments,
		networks:  opts.Networks,
		proxy:     opts.Proxy,
		hosts:     opts.Hosts,
		journal:   opts.Journal,
		settings:  opts.Settings,
		runID:     opts.RunID,
	}, nil
}

// Projects lists the registered projects sorted by name.
func (c *Controller) Projects() ([]registry.ProjectRecord, error) {
	reg, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	return reg.Projects(), nil
}

// reload signals the proxy. Failure is returned as a warning message.
func (c *Controller) reload(ctx context.Context) (warning string) {
	err := c.proxy.ReloadProxy(ctx, c.settings.Caddy.Container, c.settings.Caddy.Config)
	if err == nil {
		logs.Debugf("proxy %s reloaded", c.settings.Caddy.Container)
		return ""
	}
	msg := fmt.Sprintf("proxy reload failed, the new configuration applies on the next reload: %v", err)
	logs.Warnf("%s", msg)
	return msg
}

func (c *Controller) record(ctx context.Context, e state.HistoryEntry) {
	if c.journal == nil {
		return
	}
	e.RunID = c.runID
	if err := c.journal.Record(ctx, e); err != nil {
		logs.Warnf("can't record %s of %s in history: %v", e.Action, e.Project, err)
	}
}

func outcome(err error) (state.Outcome, string) {
	if err != nil {
		return state.OutcomeFailed, err.Error()
	}
	return state.OutcomeOK, ""
}
