package crawl

import (
	"net/url"
	"path"
	"strings"
)

// PathMatcher excludes candidate pages whose path matches a glob pattern.
// A trailing "/*" covers every depth below the prefix, so "/blog/*" drops
// "/blog/2024/01/post" as well as "/blog/post".
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher lowercases and keeps the non-empty patterns.
func NewPathMatcher(patterns []string) *PathMatcher {
	m := &PathMatcher{}
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// Excluded reports whether u's path matches any pattern.
func (m *PathMatcher) Excluded(u *url.URL) bool {
	if m == nil || u == nil {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, pattern := range m.patterns {
		if ok, _ := path.Match(pattern, p); ok {
			return true
		}
		if dir, ok := strings.CutSuffix(pattern, "/*"); ok {
			if p == dir || strings.HasPrefix(p, dir+"/") {
				return true
			}
		}
	}
	return false
}
