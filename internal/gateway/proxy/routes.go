package proxy

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var ErrNoRoute = errors.New("proxy: no route")

// Route sends every path under Prefix to Upstream. The path is forwarded
// unchanged, appended to the upstream's own path.
type Route struct {
	Prefix   string
	Upstream *url.URL
}

// NewRoute parses upstream and validates prefix.
func NewRoute(prefix, upstream string) (Route, error) {
	if !strings.HasPrefix(prefix, "/") {
		return Route{}, fmt.Errorf("proxy: route prefix %q must start with /", prefix)
	}
	u, err := url.Parse(upstream)
	if err != nil {
		return Route{}, fmt.Errorf("proxy: route %s: %w", prefix, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Route{}, fmt.Errorf("proxy: route %s: upstream %q must be http or https", prefix, upstream)
	}
	if u.Host == "" {
		return Route{}, fmt.Errorf("proxy: route %s: upstream %q has no host", prefix, upstream)
	}
	if prefix != "/" {
		prefix = strings.TrimSuffix(prefix, "/")
	}
	return Route{Prefix: prefix, Upstream: u}, nil
}

func (r Route) matches(path string) bool {
	if r.Prefix == "/" {
		return true
	}
	if !strings.HasPrefix(path, r.Prefix) {
		return false
	}
	rest := path[len(r.Prefix):]
	return rest == "" || rest[0] == '/'
}

// RouteTable resolves a path to its route, longest prefix first. It is
// immutable once built.
type RouteTable struct {
	routes []Route
}

func NewRouteTable(routes ...Route) (*RouteTable, error) {
	sorted := slices.Clone(routes)
	for i, r := range sorted {
		for _, other := range sorted[:i] {
			if other.Prefix == r.Prefix {
				return nil, fmt.Errorf("proxy: duplicate route prefix %q", r.Prefix)
			}
		}
	}
	slices.SortStableFunc(sorted, func(a, b Route) int {
		return len(b.Prefix) - len(a.Prefix)
	})
	return &RouteTable{routes: sorted}, nil
}

// Lookup returns the route for path. Prefixes match on segment boundaries:
// "/auth" serves "/auth" and "/auth/login" but not "/authz".
func (t *RouteTable) Lookup(path string) (Route, error) {
	for _, r := range t.routes {
		if r.matches(path) {
			return r, nil
		}
	}
	return Route{}, ErrNoRoute
}

// Routes returns the table, longest prefix first.
func (t *RouteTable) Routes() []Route {
	return slices.Clone(t.routes)
}

// Len reports the number of routes.
func (t *RouteTable) Len() int { return len(t.routes) }
