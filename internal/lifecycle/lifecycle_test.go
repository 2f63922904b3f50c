package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/0xa1bed0/omd/internal/apperr"
	omdconfig "github.com/0xa1bed0/omd/internal/apps/omd/config"
	"github.com/0xa1bed0/omd/internal/caddy"
	"github.com/0xa1bed0/omd/internal/dockerclient"
	"github.com/0xa1bed0/omd/internal/hosts"
	"github.com/0xa1bed0/omd/internal/lifecycle"
	"github.com/0xa1bed0/omd/internal/lifecycle/mocks"
	"github.com/0xa1bed0/omd/internal/registry"
	"github.com/0xa1bed0/omd/internal/routes"
	"github.com/0xa1bed0/omd/internal/state"
)

var (
	_ lifecycle.Networks  = (*dockerclient.DockerClient)(nil)
	_ lifecycle.Proxy     = (*dockerclient.DockerClient)(nil)
	_ lifecycle.Networks  = (*dockerclient.Lazy)(nil)
	_ lifecycle.Proxy     = (*dockerclient.Lazy)(nil)
	_ lifecycle.HostsFile = (*hosts.File)(nil)
	_ lifecycle.Journal   = (*state.History)(nil)
)

const registryPath = "/omd/registry.json"

type env struct {
	fs        afero.Fs
	settings  *omdconfig.Settings
	store     *registry.Store
	fragments *caddy.FragmentStore
	networks  *mocks.MockNetworks
	proxy     *mocks.MockProxy
	hosts     lifecycle.HostsFile
	journal   lifecycle.Journal
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mc := gomock.NewController(t)
	return newEnvWith(t, mocks.NewMockNetworks(mc), mocks.NewMockProxy(mc))
}

func newEnvWith(t require.TestingT, networks *mocks.MockNetworks, proxy *mocks.MockProxy) *env {
	fs := afero.NewMemMapFs()
	settings, err := omdconfig.LoadSettings(fs, "/omd")
	require.NoError(t, err)
	return &env{
		fs:        fs,
		settings:  settings,
		store:     registry.NewStore(fs, registryPath),
		fragments: caddy.NewFragmentStore(fs, settings.CaddyProjectsDir()),
		networks:  networks,
		proxy:     proxy,
	}
}

func (e *env) controller(t require.TestingT) *lifecycle.Controller {
	c, err := lifecycle.New(lifecycle.Options{
		Fs:        e.fs,
		Registry:  e.store,
		Fragments: e.fragments,
		Networks:  e.networks,
		Proxy:     e.proxy,
		Hosts:     e.hosts,
		Journal:   e.journal,
		Settings:  e.settings,
		RunID:     "run-1",
	})
	require.NoError(t, err)
	return c
}

// allowDocker accepts any number of successful Docker calls.
func (e *env) allowDocker() {
	e.networks.EXPECT().EnsureNetwork(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
	e.networks.EXPECT().ConnectProxy(gomock.Any(), gomock.Any(), "omd-caddy").Return(nil).AnyTimes()
	e.proxy.EXPECT().ReloadProxy(gomock.Any(), "omd-caddy", "/etc/caddy/Caddyfile").Return(nil).AnyTimes()
}

func (e *env) writeProject(t require.TestingT, name, composeFile string, overrides map[string]string) string {
	dir := "/work/" + name

	var b strings.Builder
	fmt.Fprintf(&b, "[project]\nname = %q\ndomain = %q\n\n[network]\nname = %q\n", name, name+".local", name+"-net")
	if len(overrides) > 0 {
		keys := make([]string, 0, len(overrides))
		for k := range overrides {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n[caddy.routes]\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "%q = %q\n", k, overrides[k])
		}
	}

	require.NoError(t, afero.WriteFile(e.fs, dir+"/omd.toml", []byte(b.String()), 0o644))
	if composeFile != "" {
		require.NoError(t, afero.WriteFile(e.fs, dir+"/docker-compose.yml", []byte(composeFile), 0o644))
	}
	return dir
}

func (e *env) registryBytes(t require.TestingT) []byte {
	data, err := afero.ReadFile(e.fs, registryPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	return data
}

func (e *env) fragment(t require.TestingT, project string) string {
	content, found, err := e.fragments.Read(project)
	require.NoError(t, err)
	if !found {
		return ""
	}
	return string(content)
}

func portsCompose(ports ...int) string {
	if len(ports) == 0 {
		return "services:\n  app:\n    image: busybox\n"
	}
	var b strings.Builder
	b.WriteString("services:\n  app:\n    ports:\n")
	for i, p := range ports {
		fmt.Fprintf(&b, "      - \"%d:%d\"\n", p, 80+i)
	}
	return b.String()
}

const shopCompose = `
services:
  api:
    image: shop/api
    ports:
      - "8080:80"
`

func TestActivateRegistersProject(t *testing.T) {
	e := newEnv(t)
	e.networks.EXPECT().EnsureNetwork(gomock.Any(), "shop-net", "shop").Return(true, nil)
	e.networks.EXPECT().ConnectProxy(gomock.Any(), "shop-net", "omd-caddy").Return(nil)
	e.proxy.EXPECT().ReloadProxy(gomock.Any(), "omd-caddy", "/etc/caddy/Caddyfile").Return(nil)

	dir := e.writeProject(t, "shop", shopCompose, nil)
	act, err := e.controller(t).Activate(context.Background(), dir)
	require.NoError(t, err)

	want := registry.ProjectRecord{
		Name:       "shop",
		Path:       "/work/shop",
		Domain:     "shop.local",
		Network:    "shop-net",
		Ports:      []int{8080},
		Containers: []string{"shop-api-1"},
	}
	require.Equal(t, want, act.Record)
	require.True(t, act.NetworkCreated)
	require.True(t, act.FragmentChange)
	require.Empty(t, act.Warnings)
	require.Equal(t, []routes.Rule{{Domain: "api.shop.local", Target: "shop-api-1:80"}}, act.Routes)

	frag := e.fragment(t, "shop")
	require.Contains(t, frag, "api.shop.local {\n    tls /certs/shop_local.crt /certs/shop_local.key\n    reverse_proxy shop-api-1:80\n}\n")
	require.Equal(t, "/omd/caddy/projects/shop.caddy", act.FragmentPath)

	got, err := e.controller(t).Projects()
	require.NoError(t, err)
	require.Equal(t, []registry.ProjectRecord{want}, got)
}

func TestActivateTwiceIsIdempotent(t *testing.T) {
	e := newEnv(t)
	e.allowDocker()
	c := e.controller(t)
	dir := e.writeProject(t, "shop", shopCompose, nil)

	first, err := c.Activate(context.Background(), dir)
	require.NoError(t, err)
	regBefore := e.registryBytes(t)
	fragBefore := e.fragment(t, "shop")

	second, err := c.Activate(context.Background(), dir)
	require.NoError(t, err)
	require.False(t, second.FragmentChange)
	require.Equal(t, first.Record, second.Record)
	require.Equal(t, regBefore, e.registryBytes(t))
	require.Equal(t, fragBefore, e.fragment(t, "shop"))
}

func TestActivateConflictLeavesRegistryUntouched(t *testing.T) {
	e := newEnv(t)
	e.networks.EXPECT().EnsureNetwork(gomock.Any(), "alpha-net", "alpha").Return(true, nil)
	e.networks.EXPECT().ConnectProxy(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	e.proxy.EXPECT().ReloadProxy(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	c := e.controller(t)

	_, err := c.Activate(context.Background(), e.writeProject(t, "alpha", portsCompose(5432), nil))
	require.NoError(t, err)
	before := e.registryBytes(t)

	_, err = c.Activate(context.Background(), e.writeProject(t, "beta", portsCompose(5432, 6000), nil))
	require.ErrorIs(t, err, apperr.ErrPortConflict)

	var conflict *registry.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "beta", conflict.Project)
	require.Equal(t, []registry.Conflict{{Port: 5432, Owner: "alpha"}}, conflict.Conflicts)
	require.Contains(t, err.Error(), "5432 (owned by alpha)")

	require.Equal(t, before, e.registryBytes(t))
	require.Empty(t, e.fragment(t, "beta"))
	projects, err := c.Projects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, "alpha", projects[0].Name)
}

func TestReactivateReleasesOwnPorts(t *testing.T) {
	e := newEnv(t)
	e.allowDocker()
	c := e.controller(t)

	dir := e.writeProject(t, "alpha", portsCompose(5432), nil)
	_, err := c.Activate(context.Background(), dir)
	require.NoError(t, err)

	e.writeProject(t, "alpha", portsCompose(5433), nil)
	act, err := c.Activate(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, []int{5433}, act.Record.Ports)

	projects, err := c.Projects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, []int{5433}, projects[0].Ports)
}

func TestActivateRenamedProjectWarnsAboutOldRecord(t *testing.T) {
	e := newEnv(t)
	e.allowDocker()
	c := e.controller(t)

	dir := e.writeProject(t, "alpha", portsCompose(), nil)
	_, err := c.Activate(context.Background(), dir)
	require.NoError(t, err)

	renamed := "[project]\nname = \"beta\"\ndomain = \"beta.local\"\n\n[network]\nname = \"beta-net\"\n"
	require.NoError(t, afero.WriteFile(e.fs, dir+"/omd.toml", []byte(renamed), 0o644))

	act, err := c.Activate(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, act.Warnings, 1)
	require.Contains(t, act.Warnings[0], "still registered as alpha")

	projects, err := c.Projects()
	require.NoError(t, err)
	require.Len(t, projects, 2)
}

func TestOverridesReplaceAutoRoutes(t *testing.T) {
	e := newEnv(t)
	e.allowDocker()

	dir := e.writeProject(t, "shop", shopCompose, map[string]string{"admin": "admin-panel:8080"})
	act, err := e.controller(t).Activate(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, []routes.Rule{{Domain: "admin.shop.local", Target: "admin-panel:8080"}}, act.Routes)

	frag := e.fragment(t, "shop")
	require.Contains(t, frag, "admin.shop.local {")
	require.NotContains(t, frag, "api.shop.local")
	// ports are claimed regardless of routing
	require.Equal(t, []int{8080}, act.Record.Ports)
}

func TestDeactivateFreesPorts(t *testing.T) {
	e := newEnv(t)
	e.allowDocker()
	c := e.controller(t)

	alpha := e.writeProject(t, "alpha", portsCompose(5432), nil)
	_, err := c.Activate(context.Background(), alpha)
	require.NoError(t, err)

	deact, err := c.Deactivate(context.Background(), alpha)
	require.NoError(t, err)
	require.True(t, deact.WasRegistered)
	require.True(t, deact.FragmentRemoved)
	require.Equal(t, []int{5432}, deact.FreedPorts)
	require.Empty(t, e.fragment(t, "alpha"))

	projects, err := c.Projects()
	require.NoError(t, err)
	require.Empty(t, projects)

	act, err := c.Activate(context.Background(), e.writeProject(t, "beta", portsCompose(5432), nil))
	require.NoError(t, err)
	require.Equal(t, []int{5432}, act.Record.Ports)
}

func TestDeactivateUnregisteredProject(t *testing.T) {
	e := newEnv(t)
	e.allowDocker()
	c := e.controller(t)

	_, err := c.Activate(context.Background(), e.writeProject(t, "blog", portsCompose(4000), nil))
	require.NoError(t, err)
	before := e.registryBytes(t)

	deact, err := c.Deactivate(context.Background(), e.writeProject(t, "shop", shopCompose, nil))
	require.NoError(t, err)
	require.False(t, deact.WasRegistered)
	require.False(t, deact.FragmentRemoved)
	require.Equal(t, before, e.registryBytes(t))

	// again, with no registry at all
	fresh := newEnv(t)
	fresh.allowDocker()
	_, err = fresh.controller(t).Deactivate(context.Background(), fresh.writeProject(t, "shop", shopCompose, nil))
	require.NoError(t, err)
	require.Nil(t, fresh.registryBytes(t))
}

func TestActivateFailuresMutateNothing(t *testing.T) {
	tests := []struct {
		name      string
		compose   string
		overrides map[string]string
		path      string
		wantErr   error
	}{
		{name: "missing declaration", path: "/work/nowhere", wantErr: apperr.ErrConfigNotFound},
		{name: "missing compose file", wantErr: apperr.ErrComposeNotFound},
		{name: "unparsable compose", compose: "services: [\n", wantErr: apperr.ErrParse},
		{name: "port out of range", compose: portsCompose(70000), wantErr: apperr.ErrValidation},
		{
			name:      "duplicate route domain",
			compose:   shopCompose,
			overrides: map[string]string{"admin": "a:1", "admin.shop.local": "b:2"},
			wantErr:   apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// no Docker expectations: any Docker call fails the test
			e := newEnv(t)
			path := e.writeProject(t, "shop", tt.compose, tt.overrides)
			if tt.path != "" {
				path = tt.path
			}

			_, err := e.controller(t).Activate(context.Background(), path)
			require.ErrorIs(t, err, tt.wantErr)
			require.Nil(t, e.registryBytes(t))

			frags, err := e.fragments.List()
			require.NoError(t, err)
			require.Empty(t, frags)
		})
	}
}

func TestActivateCorruptRegistry(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, afero.WriteFile(e.fs, registryPath, []byte("{not json"), 0o644))

	_, err := e.controller(t).Activate(context.Background(), e.writeProject(t, "shop", shopCompose, nil))
	require.ErrorIs(t, err, apperr.ErrRegistryCorrupt)
	require.Equal(t, "{not json", string(e.registryBytes(t)))
}

func TestDeactivateCorruptRegistryKeepsFragment(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.fragments.Write("shop", []byte("# previous\n")))
	require.NoError(t, afero.WriteFile(e.fs, registryPath, []byte(`{"projects": 3}`), 0o644))

	_, err := e.controller(t).Deactivate(context.Background(), e.writeProject(t, "shop", shopCompose, nil))
	require.ErrorIs(t, err, apperr.ErrRegistryCorrupt)
	require.Equal(t, "# previous\n", e.fragment(t, "shop"))
}

func TestActivateNetworkFailureAborts(t *testing.T) {
	e := newEnv(t)
	e.networks.EXPECT().EnsureNetwork(gomock.Any(), "shop-net", "shop").Return(false, errors.New("daemon unreachable"))

	_, err := e.controller(t).Activate(context.Background(), e.writeProject(t, "shop", shopCompose, nil))
	require.ErrorIs(t, err, apperr.ErrExternalCall)

	var ext *apperr.ExternalCallError
	require.ErrorAs(t, err, &ext)
	require.Equal(t, "shop-net", ext.Target)
	require.Contains(t, err.Error(), "daemon unreachable")

	require.Nil(t, e.registryBytes(t))
	require.Empty(t, e.fragment(t, "shop"))
}

func TestActivateBestEffortSteps(t *testing.T) {
	e := newEnv(t)
	e.networks.EXPECT().EnsureNetwork(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	e.networks.EXPECT().ConnectProxy(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("no such container"))
	e.proxy.EXPECT().ReloadProxy(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(apperr.External("reload proxy", "omd-caddy", errors.New("exit code 1")))

	act, err := e.controller(t).Activate(context.Background(), e.writeProject(t, "shop", shopCompose, nil))
	require.NoError(t, err)
	require.Len(t, act.Warnings, 2)
	require.Contains(t, act.Warnings[0], "no such container")
	require.Contains(t, act.Warnings[1], "proxy reload failed")

	projects, err := e.controller(t).Projects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
}

func TestActivatePersistFailureRestoresFragment(t *testing.T) {
	e := newEnv(t)
	e.networks.EXPECT().EnsureNetwork(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	e.networks.EXPECT().ConnectProxy(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	e.store = registry.NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), registryPath)
	require.NoError(t, e.fragments.Write("shop", []byte("# previous\n")))

	_, err := e.controller(t).Activate(context.Background(), e.writeProject(t, "shop", shopCompose, nil))
	require.Error(t, err)
	require.Equal(t, "# previous\n", e.fragment(t, "shop"))

	// a fragment that did not exist before is removed again
	require.NoError(t, e.fragments.Restore("shop", nil, false))
	e.networks.EXPECT().EnsureNetwork(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
	e.networks.EXPECT().ConnectProxy(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	_, err = e.controller(t).Activate(context.Background(), "/work/shop")
	require.Error(t, err)
	require.Empty(t, e.fragment(t, "shop"))
}

func TestHostsAndJournal(t *testing.T) {
	e := newEnv(t)
	e.allowDocker()
	require.NoError(t, afero.WriteFile(e.fs, "/etc/hosts", []byte("127.0.0.1 localhost\n"), 0o644))
	hostsFile := hosts.NewFile(e.fs, "/etc/hosts", "127.0.0.1")
	e.hosts = hostsFile

	journal := mocks.NewMockJournal(gomock.NewController(t))
	var entries []state.HistoryEntry
	journal.EXPECT().Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry state.HistoryEntry) error {
			entries = append(entries, entry)
			return nil
		}).Times(3)
	e.journal = journal
	c := e.controller(t)

	dir := e.writeProject(t, "shop", shopCompose, nil)
	_, err := c.Activate(context.Background(), dir)
	require.NoError(t, err)

	domains, err := hostsFile.Domains()
	require.NoError(t, err)
	require.Equal(t, map[string][]string{"shop": {"api.shop.local"}}, domains)

	_, err = c.Activate(context.Background(), e.writeProject(t, "blog", portsCompose(8080), nil))
	require.ErrorIs(t, err, apperr.ErrPortConflict)

	_, err = c.Deactivate(context.Background(), dir)
	require.NoError(t, err)
	domains, err = hostsFile.Domains()
	require.NoError(t, err)
	require.Empty(t, domains)

	require.Len(t, entries, 3)
	require.Equal(t, state.HistoryEntry{
		RunID: "run-1", Project: "shop", Action: state.ActionActivate,
		Outcome: state.OutcomeOK, Ports: []int{8080}, Detail: "1 route(s)",
	}, entries[0])
	require.Equal(t, "blog", entries[1].Project)
	require.Equal(t, state.OutcomeFailed, entries[1].Outcome)
	require.Contains(t, entries[1].Detail, "owned by shop")
	require.Equal(t, state.ActionDeactivate, entries[2].Action)
	require.Equal(t, []int{8080}, entries[2].Ports)
}

func TestHostsAndJournalFailuresAreWarnings(t *testing.T) {
	e := newEnv(t)
	e.allowDocker()
	hostsMock := mocks.NewMockHostsFile(gomock.NewController(t))
	hostsMock.EXPECT().Apply("shop", []string{"api.shop.local"}).Return(nil, errors.New("permission denied"))
	e.hosts = hostsMock
	journal := mocks.NewMockJournal(gomock.NewController(t))
	journal.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("database is locked"))
	e.journal = journal

	act, err := e.controller(t).Activate(context.Background(), e.writeProject(t, "shop", shopCompose, nil))
	require.NoError(t, err)
	require.Len(t, act.Warnings, 1)
	require.Contains(t, act.Warnings[0], "permission denied")
}

func TestPrune(t *testing.T) {
	e := newEnv(t)
	e.allowDocker()
	c := e.controller(t)

	alpha := e.writeProject(t, "alpha", portsCompose(5000), nil)
	_, err := c.Activate(context.Background(), alpha)
	require.NoError(t, err)
	_, err = c.Activate(context.Background(), e.writeProject(t, "beta", portsCompose(5001), nil))
	require.NoError(t, err)

	pruned, err := c.Prune(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, pruned)

	require.NoError(t, e.fs.RemoveAll(alpha))
	stale, err := c.Stale()
	require.NoError(t, err)
	require.Len(t, stale, 1)

	before := e.registryBytes(t)
	pruned, err = c.Prune(context.Background(), func([]registry.ProjectRecord) bool { return false })
	require.NoError(t, err)
	require.Empty(t, pruned)
	require.Equal(t, before, e.registryBytes(t))

	var offered []registry.ProjectRecord
	pruned, err = c.Prune(context.Background(), func(recs []registry.ProjectRecord) bool {
		offered = recs
		return true
	})
	require.NoError(t, err)
	require.Equal(t, offered, pruned)
	require.Len(t, pruned, 1)
	require.Equal(t, "alpha", pruned[0].Name)
	require.Empty(t, e.fragment(t, "alpha"))

	projects, err := c.Projects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, "beta", projects[0].Name)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := lifecycle.New(lifecycle.Options{})
	require.Error(t, err)
}
