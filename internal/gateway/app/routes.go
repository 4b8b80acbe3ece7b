package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aussiebroadwan/campus/internal/gateway/policy"
	"github.com/aussiebroadwan/campus/internal/gateway/proxy"
	"gopkg.in/yaml.v3"
)

// RoutesFile is the on-disk shape of GATEWAY_ROUTES_FILE:
//
//	routes:
//	  - prefix: /auth
//	    upstream: http://auth:8081
//	  - prefix: /
//	    upstream: http://backend:8083
//	policy:
//	  - pattern: /auth/**
//	    access: public
//	  - pattern: /api/admin/**
//	    access: role
//	    role: ADMIN
//
// An absent or empty policy section keeps policy.DefaultRules.
type RoutesFile struct {
	Routes []RouteEntry  `yaml:"routes"`
	Policy []PolicyEntry `yaml:"policy"`
}

type RouteEntry struct {
	Prefix   string `yaml:"prefix"`
	Upstream string `yaml:"upstream"`
}

type PolicyEntry struct {
	Pattern string `yaml:"pattern"`
	Access  string `yaml:"access"`
	Role    string `yaml:"role"`
}

// ParseRoutes decodes a routes file. Unknown keys are an error so a typo does
// not silently drop a rule.
func ParseRoutes(data []byte) (RoutesFile, error) {
	var f RoutesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return RoutesFile{}, fmt.Errorf("routes file: %w", err)
	}
	return f, nil
}

// LoadRoutes reads and parses path.
func LoadRoutes(path string) (RoutesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RoutesFile{}, fmt.Errorf("routes file: %w", err)
	}
	return ParseRoutes(data)
}

// Build turns the file into a route table and a policy matcher.
func (f RoutesFile) Build() (*proxy.RouteTable, *policy.Matcher, error) {
	routes := make([]proxy.Route, 0, len(f.Routes))
	for _, e := range f.Routes {
		r, err := proxy.NewRoute(e.Prefix, e.Upstream)
		if err != nil {
			return nil, nil, err
		}
		routes = append(routes, r)
	}
	table, err := proxy.NewRouteTable(routes...)
	if err != nil {
		return nil, nil, err
	}

	rules := policy.DefaultRules()
	if len(f.Policy) > 0 {
		rules = make([]policy.Rule, 0, len(f.Policy))
		for _, e := range f.Policy {
			access, err := policy.ParseAccess(e.Access)
			if err != nil {
				return nil, nil, fmt.Errorf("policy %s: %w", e.Pattern, err)
			}
			rules = append(rules, policy.Rule{Pattern: e.Pattern, Access: access, Role: e.Role})
		}
	}
	matcher, err := policy.NewMatcher(rules)
	if err != nil {
		return nil, nil, err
	}

	return table, matcher, nil
}

// routesFromConfig is used when no routes file is configured.
func routesFromConfig(cfg Config) RoutesFile {
	f := RoutesFile{Routes: []RouteEntry{{Prefix: "/auth", Upstream: cfg.AuthURL}}}
	if cfg.DefaultUpstream != "" {
		f.Routes = append(f.Routes, RouteEntry{Prefix: "/", Upstream: cfg.DefaultUpstream})
	}
	return f
}
