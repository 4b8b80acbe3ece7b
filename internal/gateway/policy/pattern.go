package policy

import (
	"fmt"
	"path"
	"strings"
)

// pattern is an Ant-style path pattern. "**" spans any number of segments,
// zero included; any other segment is matched with path.Match, so "*" and "?"
// never cross a "/".
type pattern struct {
	raw  string
	segs []string
}

func compilePattern(raw string) (pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return pattern{}, fmt.Errorf("policy: pattern %q must start with /", raw)
	}
	segs := split(raw)
	for _, s := range segs {
		if s == "**" {
			continue
		}
		if strings.Contains(s, "**") {
			return pattern{}, fmt.Errorf("policy: pattern %q: ** must be a whole segment", raw)
		}
		if _, err := path.Match(s, ""); err != nil {
			return pattern{}, fmt.Errorf("policy: pattern %q: %w", raw, err)
		}
	}
	return pattern{raw: raw, segs: segs}, nil
}

func (p pattern) match(urlPath string) bool {
	return matchSegments(p.segs, split(urlPath))
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			rest := pat[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(rest, segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, _ := path.Match(pat[0], segs[0]); !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// CleanPath resolves "." and ".." and collapses repeated slashes so that a
// path cannot dodge a rule by spelling itself differently. A trailing slash
// survives cleaning.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}
