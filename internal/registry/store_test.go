package registry

import (
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/0xa1bed0/omd/internal/apperr"
)

const registryPath = "/home/dev/.omd/registry.json"

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), registryPath)

	reg, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, 0, reg.Len())
	require.Empty(t, reg.Projects())
}

func TestPersistThenLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, registryPath)

	reg := New()
	reg.Register(ProjectRecord{
		Name:       "shop",
		Path:       "/srv/shop",
		Domain:     "shop.local",
		Network:    "shop-net",
		Ports:      []int{8443, 8080, 8080},
		Containers: []string{"shop-api-1", "shop-db-1"},
	})
	reg.Register(ProjectRecord{Name: "blog", Path: "/srv/blog", Domain: "blog.local", Network: "blog-net"})
	require.NoError(t, store.Persist(reg))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, reg.Projects(), loaded.Projects())

	shop, ok := loaded.Get("shop")
	require.True(t, ok)
	require.Equal(t, []int{8080, 8443}, shop.Ports)

	// no temp files left behind
	entries, err := afero.ReadDir(fs, "/home/dev/.omd")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "registry.json", entries[0].Name())
}

func TestPersistedLayout(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, registryPath)

	reg := New()
	reg.Register(ProjectRecord{Name: "alpha", Path: "/a", Domain: "alpha.local", Network: "alpha", Ports: []int{5432}})
	require.NoError(t, store.Persist(reg))

	raw, err := afero.ReadFile(fs, registryPath)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, SchemaVersion, decoded["version"])

	projects := decoded["projects"].(map[string]any)
	alpha := projects["alpha"].(map[string]any)
	require.Equal(t, "alpha", alpha["name"])
	require.Equal(t, "/a", alpha["path"])
	require.Equal(t, "alpha.local", alpha["domain"])
	require.Equal(t, "alpha", alpha["network"])
	require.Equal(t, []any{float64(5432)}, alpha["ports"])
	require.Equal(t, []any{}, alpha["containers"])
}

func TestLoadCorruptRegistry(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{"projects": {`},
		{"wrong shape", `{"projects": []}`},
		{"unsupported schema", `{"version": "2.0.0", "projects": {}}`},
		{"garbage schema", `{"version": "next", "projects": {}}`},
		{"shared port", `{"projects": {
			"a": {"name": "a", "ports": [80]},
			"b": {"name": "b", "ports": [80]}}}`},
		{"port out of range", `{"projects": {"a": {"name": "a", "ports": [70000]}}}`},
		{"key and name differ", `{"projects": {"a": {"name": "b", "ports": []}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, registryPath, []byte(tt.content), 0o644))

			_, err := NewStore(fs, registryPath).Load()
			require.ErrorIs(t, err, apperr.ErrRegistryCorrupt)
		})
	}
}

func TestLoadLegacyRegistryWithoutVersion(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `{"projects": {"alpha": {"path": "/a", "domain": "alpha.local", "network": "alpha", "ports": [5432], "containers": ["alpha-db-1"]}}}`
	require.NoError(t, afero.WriteFile(fs, registryPath, []byte(content), 0o644))

	reg, err := NewStore(fs, registryPath).Load()
	require.NoError(t, err)

	rec, ok := reg.Get("alpha")
	require.True(t, ok)
	require.Equal(t, "alpha", rec.Name)
	require.Equal(t, []int{5432}, rec.Ports)
}

func TestRegistryHelpers(t *testing.T) {
	reg := New()
	reg.Register(ProjectRecord{Name: "beta", Path: "/b", Ports: []int{9000}})
	reg.Register(ProjectRecord{Name: "alpha", Path: "/a", Ports: []int{5432, 80}})

	names := []string{}
	for _, rec := range reg.Projects() {
		names = append(names, rec.Name)
	}
	require.Equal(t, []string{"alpha", "beta"}, names)

	owner, ok := reg.Owner(80)
	require.True(t, ok)
	require.Equal(t, "alpha", owner)
	_, ok = reg.Owner(81)
	require.False(t, ok)

	rec, ok := reg.FindByPath("/b")
	require.True(t, ok)
	require.Equal(t, "beta", rec.Name)

	require.True(t, reg.Unregister("beta"))
	require.False(t, reg.Unregister("beta"))
	require.Equal(t, 1, reg.Len())
}

func TestRegisterReplacesRecord(t *testing.T) {
	reg := New()
	reg.Register(ProjectRecord{Name: "alpha", Ports: []int{5432}})
	reg.Register(ProjectRecord{Name: "alpha", Ports: []int{5433}})

	rec, _ := reg.Get("alpha")
	require.Equal(t, []int{5433}, rec.Ports)
	require.Equal(t, 1, reg.Len())
}
