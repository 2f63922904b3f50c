package hosts

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const baseHosts = `127.0.0.1 localhost
::1 localhost
127.0.0.1 legacy.shop.local
`

func newHosts(t *testing.T) (*File, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/hosts", []byte(baseHosts), 0o644))
	return NewFile(fs, "/etc/hosts", "127.0.0.1"), fs
}

func TestApplyAndRemove(t *testing.T) {
	h, fs := newHosts(t)

	skipped, err := h.Apply("shop", []string{"web.shop.local", "API.shop.local", "legacy.shop.local", "api.shop.local"})
	require.NoError(t, err)
	require.Equal(t, []string{"legacy.shop.local"}, skipped)

	content, err := afero.ReadFile(fs, "/etc/hosts")
	require.NoError(t, err)
	require.Equal(t, baseHosts+`
# === omd start === shop
127.0.0.1 api.shop.local
127.0.0.1 web.shop.local
# === omd end === shop
`, string(content))

	// re-applying is stable
	_, err = h.Apply("shop", []string{"api.shop.local", "web.shop.local"})
	require.NoError(t, err)
	again, _ := afero.ReadFile(fs, "/etc/hosts")
	require.Equal(t, string(content), string(again))

	removed, err := h.Remove("shop")
	require.NoError(t, err)
	require.True(t, removed)
	content, _ = afero.ReadFile(fs, "/etc/hosts")
	require.Equal(t, baseHosts, string(content))

	removed, err = h.Remove("shop")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestApplySkipsOtherProjectsDomains(t *testing.T) {
	h, _ := newHosts(t)

	_, err := h.Apply("blog", []string{"blog.local", "shared.local"})
	require.NoError(t, err)
	skipped, err := h.Apply("shop", []string{"shop.local", "shared.local"})
	require.NoError(t, err)
	require.Equal(t, []string{"shared.local"}, skipped)

	domains, err := h.Domains()
	require.NoError(t, err)
	require.Equal(t, map[string][]string{
		"blog": {"blog.local", "shared.local"},
		"shop": {"shop.local"},
	}, domains)
}

func TestApplyMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := NewFile(fs, "/tmp/hosts", "10.0.0.1")

	_, err := h.Apply("p", []string{"p.local"})
	require.NoError(t, err)
	content, _ := afero.ReadFile(fs, "/tmp/hosts")
	require.Equal(t, "\n# === omd start === p\n10.0.0.1 p.local\n# === omd end === p\n", string(content))
}

func TestCleanupRemovesEverySection(t *testing.T) {
	h, fs := newHosts(t)

	removed, err := h.Cleanup()
	require.NoError(t, err)
	require.Empty(t, removed)

	_, err = h.Apply("shop", []string{"shop.local"})
	require.NoError(t, err)
	_, err = h.Apply("blog", []string{"blog.local"})
	require.NoError(t, err)

	removed, err = h.Cleanup()
	require.NoError(t, err)
	require.Equal(t, []string{"blog", "shop"}, removed)

	content, err := afero.ReadFile(fs, "/etc/hosts")
	require.NoError(t, err)
	require.Equal(t, baseHosts, string(content))

	domains, err := h.Domains()
	require.NoError(t, err)
	require.Empty(t, domains)
}
