package routes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xa1bed0/omd/internal/apperr"
	"github.com/0xa1bed0/omd/internal/compose"
)

func shopEntries() []compose.ServiceEntry {
	return []compose.ServiceEntry{
		{ServiceName: "web", ContainerName: "shop-web-1", HostPort: 8443, ContainerPort: 443},
		{ServiceName: "web", ContainerName: "shop-web-1", HostPort: 8080, ContainerPort: 80},
		{ServiceName: "api", ContainerName: "shop-api-1", HostPort: 9000, ContainerPort: 80},
		{ServiceName: "worker", ContainerName: "shop-worker-1"},
	}
}

func TestDeriveAutoRoutes(t *testing.T) {
	rules, err := Derive(shopEntries(), "shop.local", nil)
	require.NoError(t, err)
	require.Equal(t, []Rule{
		{Domain: "api.shop.local", Target: "shop-api-1:80"},
		{Domain: "web.shop.local", Target: "shop-web-1:443"},
	}, rules)
}

func TestDeriveSingleService(t *testing.T) {
	entries, err := compose.Parse([]byte("services:\n  api:\n    ports: [\"8080:80\"]\n"), "shop")
	require.NoError(t, err)

	rules, err := Derive(entries, "shop.local", nil)
	require.NoError(t, err)
	require.Equal(t, []Rule{{Domain: "api.shop.local", Target: "shop-api-1:80"}}, rules)
}

func TestDeriveOverridesReplaceAutoRoutes(t *testing.T) {
	rules, err := Derive(shopEntries(), "shop.local", map[string]string{"admin": "admin-panel:8080"})
	require.NoError(t, err)
	require.Equal(t, []Rule{{Domain: "admin.shop.local", Target: "admin-panel:8080"}}, rules)
}

func TestDeriveOverrideForms(t *testing.T) {
	rules, err := Derive(nil, "Shop.Local.", map[string]string{
		"docs.example.test": "docs:3000",
		"API":               " shop-api-1:80 ",
	})
	require.NoError(t, err)
	require.Equal(t, []Rule{
		{Domain: "api.shop.local", Target: "shop-api-1:80"},
		{Domain: "docs.example.test", Target: "docs:3000"},
	}, rules)
}

func TestDeriveErrors(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		overrides map[string]string
	}{
		{"duplicate domain", "shop.local", map[string]string{"api": "a:1", "api.shop.local": "b:2"}},
		{"duplicate domain ignoring case", "shop.local", map[string]string{"Admin": "a:1", "admin.SHOP.local": "b:2"}},
		{"empty target", "shop.local", map[string]string{"api": "  "}},
		{"empty key", "shop.local", map[string]string{"": "a:1"}},
		{"empty base", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Derive(shopEntries(), tt.base, tt.overrides)
			require.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestDeriveNothingPublished(t *testing.T) {
	rules, err := Derive([]compose.ServiceEntry{{ServiceName: "worker", ContainerName: "w"}}, "x.local", map[string]string{})
	require.NoError(t, err)
	require.Empty(t, rules)
}

func TestDeriveIsDeterministic(t *testing.T) {
	overrides := map[string]string{"a": "a:1", "b": "b:1", "c": "c:1", "d": "d:1", "e": "e:1"}
	first, err := Derive(nil, "p.local", overrides)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Derive(nil, "p.local", overrides)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestUnder(t *testing.T) {
	require.True(t, Under("api.shop.local", "shop.local"))
	require.True(t, Under("shop.local", "shop.local"))
	require.False(t, Under("docs.example.test", "shop.local"))
	require.False(t, Under("myshop.local", "shop.local"))
}
