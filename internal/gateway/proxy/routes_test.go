package proxy_test

import (
	"testing"

	"github.com/aussiebroadwan/campus/internal/gateway/proxy"
	"github.com/stretchr/testify/require"
)

func mustRoute(t *testing.T, prefix, upstream string) proxy.Route {
	t.Helper()
	r, err := proxy.NewRoute(prefix, upstream)
	require.NoError(t, err)
	return r
}

func TestRouteTableLongestPrefix(t *testing.T) {
	table, err := proxy.NewRouteTable(
		mustRoute(t, "/", "http://default:8080"),
		mustRoute(t, "/auth", "http://auth:8081"),
		mustRoute(t, "/api/admin/users/", "http://identity:8082"),
		mustRoute(t, "/api", "http://backend:8083"),
	)
	require.NoError(t, err)

	tests := map[string]string{
		"/auth":                  "auth:8081",
		"/auth/login":            "auth:8081",
		"/authz":                 "default:8080",
		"/api/admin/users":       "identity:8082",
		"/api/admin/users/7":     "identity:8082",
		"/api/admin/usersx":      "backend:8083",
		"/api/lecturer/thesis/1": "backend:8083",
		"/":                      "default:8080",
	}
	for path, host := range tests {
		r, err := table.Lookup(path)
		require.NoError(t, err, path)
		require.Equal(t, host, r.Upstream.Host, path)
	}
	require.Equal(t, "/api/admin/users", table.Routes()[0].Prefix)
}

func TestRouteTableNoRoute(t *testing.T) {
	table, err := proxy.NewRouteTable(mustRoute(t, "/auth", "http://auth:8081"))
	require.NoError(t, err)

	_, err = table.Lookup("/api/user/me")
	require.ErrorIs(t, err, proxy.ErrNoRoute)
}

func TestNewRouteValidation(t *testing.T) {
	bad := []struct{ prefix, upstream string }{
		{"auth", "http://auth"},
		{"/auth", "ftp://auth"},
		{"/auth", "http://"},
		{"/auth", "://bad"},
	}
	for _, b := range bad {
		_, err := proxy.NewRoute(b.prefix, b.upstream)
		require.Error(t, err, b)
	}

	_, err := proxy.NewRouteTable(mustRoute(t, "/a", "http://x"), mustRoute(t, "/a/", "http://y"))
	require.Error(t, err)
}
