package omd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	omdconfig "github.com/0xa1bed0/omd/internal/apps/omd/config"
	"github.com/0xa1bed0/omd/internal/caddy"
	"github.com/0xa1bed0/omd/internal/dockerclient"
	"github.com/0xa1bed0/omd/internal/lifecycle"
	"github.com/0xa1bed0/omd/internal/logs"
	"github.com/0xa1bed0/omd/internal/registry"
	"github.com/0xa1bed0/omd/internal/runtime"
	"github.com/0xa1bed0/omd/internal/state"
)

func signalContext(rt *runtime.Runtime) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(rt.Ctx(), os.Interrupt, syscall.SIGTERM)
}

func pathArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "."
}

func loadSettings(rt *runtime.Runtime) (*omdconfig.Settings, error) {
	return omdconfig.LoadSettings(rt.Fs(), omdconfig.ConfigBasePath())
}

func registryStore(rt *runtime.Runtime) *registry.Store {
	return registry.NewStore(rt.Fs(), omdconfig.RegistryFile())
}

func fragmentStore(rt *runtime.Runtime, settings *omdconfig.Settings) *caddy.FragmentStore {
	return caddy.NewFragmentStore(rt.Fs(), settings.CaddyProjectsDir())
}

// dockerClient dials on first use, so file-only steps never wait on the
// daemon and Docker failures surface at the step that needed it.
func dockerClient(rt *runtime.Runtime) *dockerclient.Lazy {
	dc := dockerclient.NewLazy(dockerclient.NewDockerClient)
	rt.AddCloser("docker client", dc)
	return dc
}

func openHistory(ctx context.Context, rt *runtime.Runtime) (*state.History, error) {
	db, err := state.OpenDefault(ctx, rt.Fs())
	if err != nil {
		return nil, err
	}
	rt.AddCloser("state database", db)
	return state.NewHistory(ctx, db)
}

func newController(ctx context.Context, rt *runtime.Runtime) (*lifecycle.Controller, error) {
	settings, err := loadSettings(rt)
	if err != nil {
		return nil, err
	}
	dc := dockerClient(rt)

	opts := lifecycle.Options{
		Fs:        rt.Fs(),
		Registry:  registryStore(rt),
		Fragments: fragmentStore(rt, settings),
		Networks:  dc,
		Proxy:     dc,
		Settings:  settings,
		RunID:     rt.RunID(),
	}
	if settings.Hosts.Enabled {
		opts.Hosts = hostsFile(rt, settings)
	}
	if h, err := openHistory(ctx, rt); err != nil {
		logs.Warnf("history is disabled for this run: %v", err)
	} else {
		opts.Journal = h
	}

	return lifecycle.New(opts)
}

func formatPorts(ports []int) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
