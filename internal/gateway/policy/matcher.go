// Package policy decides, per request path, whether the gateway lets a
// request through.
//
// Rules are evaluated in order and the first matching pattern decides. The
// decision only ever looks at the Principal the edge authenticator produced;
// it performs no I/O.
package policy

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/campus/pkg/principal"
)

var (
	// MissingAuthentication means the route needs a Principal and there is
	// none (401).
	MissingAuthentication = errors.New("policy: authentication required")

	// InsufficientRole means the route needs a role the caller does not hold,
	// or needs a role and there is no caller at all (403).
	InsufficientRole = errors.New("policy: insufficient role")
)

// Access is what a rule demands of the caller.
type Access int

const (
	Public Access = iota
	Authenticated
	RequireRole
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	case RequireRole:
		return "role"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// ParseAccess reads the names used in the gateway route file.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public", "permit", "permitall":
		return Public, nil
	case "authenticated", "":
		return Authenticated, nil
	case "role", "hasrole":
		return RequireRole, nil
	default:
		return 0, fmt.Errorf("policy: unknown access %q", s)
	}
}

// Rule pairs a path pattern with a requirement. Role is only read for
// RequireRole.
type Rule struct {
	Pattern string
	Access  Access
	Role    string
}

// DefaultRules is the table used when the route file has no policy section.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/auth/**", Access: Public},
		{Pattern: "/api/admin/**", Access: RequireRole, Role: "ADMIN"},
		{Pattern: "/api/user/**", Access: RequireRole, Role: "USER"},
		{Pattern: "/api/teacher/**", Access: RequireRole, Role: "TEACHER"},
		{Pattern: "/api/lecturer/thesis/**", Access: Public},
		{Pattern: "/**", Access: Authenticated},
	}
}

// Decision is the outcome for one request. Err is nil when Allowed.
type Decision struct {
	Allowed bool
	Rule    Rule
	Err     error
}

// Status is the HTTP status a refused request is answered with.
func (d Decision) Status() int {
	switch {
	case d.Allowed:
		return http.StatusOK
	case errors.Is(d.Err, MissingAuthentication):
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

type compiledRule struct {
	Rule
	pattern pattern
}

// Matcher is an immutable compiled rule table, safe for concurrent use.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher compiles rules. Role names are normalized here, once, so they
// compare equal to the roles carried in tokens.
func NewMatcher(rules []Rule) (*Matcher, error) {
	m := &Matcher{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		p, err := compilePattern(r.Pattern)
		if err != nil {
			return nil, err
		}
		if r.Access == RequireRole {
			r.Role = principal.NormalizeRole(r.Role)
			if r.Role == "" {
				return nil, fmt.Errorf("policy: pattern %q requires a role name", r.Pattern)
			}
			if !principal.ValidRole(r.Role) {
				return nil, fmt.Errorf("policy: pattern %q: role %q is not a canonical role name", r.Pattern, r.Role)
			}
		}
		m.rules = append(m.rules, compiledRule{Rule: r, pattern: p})
	}
	return m, nil
}

// Rules returns a copy of the compiled table in evaluation order.
func (m *Matcher) Rules() []Rule {
	out := make([]Rule, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.Rule
	}
	return out
}

// Decide evaluates urlPath, which must already be cleaned, against the table.
// p is nil for anonymous requests. A path no rule matches requires
// authentication.
func (m *Matcher) Decide(urlPath string, p *principal.Principal) Decision {
	rule := Rule{Pattern: "", Access: Authenticated}
	for _, r := range m.rules {
		if r.pattern.match(urlPath) {
			rule = r.Rule
			break
		}
	}

	switch rule.Access {
	case Public:
		return Decision{Allowed: true, Rule: rule}
	case RequireRole:
		if p == nil || !p.HasRole(rule.Role) {
			return Decision{Rule: rule, Err: InsufficientRole}
		}
		return Decision{Allowed: true, Rule: rule}
	default:
		if p == nil {
			return Decision{Rule: rule, Err: MissingAuthentication}
		}
		return Decision{Allowed: true, Rule: rule}
	}
}
