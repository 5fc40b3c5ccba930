// Package routeclass decides which access rule applies to a request path.
package routeclass

import (
	"strings"

	"sopmaker/config"
)

// Class is the access rule the route guard applies to a path.
type Class string

const (
	Static    Class = "static"
	Public    Class = "public"
	AuthOnly  Class = "auth-only"
	Protected Class = "protected"
	Admin     Class = "admin"
)

// Default prefix tables. A pattern ending in "/" matches everything below it;
// any other pattern matches the exact path or, as a prefix, its sub paths.
var (
	DefaultStatic = []string{"/_next/", "/static/", "/favicon.ico", "/images/", "/assets/"}

	DefaultPublic = []string{
		"/",
		"/health",
		"/metrics",
		"/share/",
		"/api/share/",
		"/api/auth/exchange-token",
		"/api/auth/status",
		"/api/auth/signout",
		"/api/auth/signin",
		"/api/auth/signup",
		"/auth/callback",
		"/auth/error",
		"/unauthorized",
	}

	DefaultAuthOnly = []string{"/auth/signin", "/auth/signup", "/auth/reset-password"}

	DefaultAdmin = []string{"/admin/", "/api/admin/"}
)

type rule struct {
	pattern string
	class   Class
}

// Table is an ordered list of path rules. The longest matching pattern wins;
// ties keep the first rule. Paths nothing matches are Protected.
type Table struct {
	rules []rule
}

// NewTable builds a table from the four prefix lists in precedence order.
func NewTable(static, public, authOnly, admin []string) *Table {
	t := &Table{}
	t.add(Static, static)
	t.add(Public, public)
	t.add(AuthOnly, authOnly)
	t.add(Admin, admin)

	return t
}

// NewDefaultTable returns the built-in table.
func NewDefaultTable() *Table {
	return NewTable(DefaultStatic, DefaultPublic, DefaultAuthOnly, DefaultAdmin)
}

// FromConfig returns the default table with every non-empty list from cfg replacing its default.
func FromConfig(cfg *config.Config) *Table {
	static, public, authOnly, admin := DefaultStatic, DefaultPublic, DefaultAuthOnly, DefaultAdmin
	if routes := cfg.Routes; routes != nil {
		static = override(static, routes.Static)
		public = override(public, routes.Public)
		authOnly = override(authOnly, routes.AuthOnly)
		admin = override(admin, routes.Admin)
	}

	return NewTable(static, public, authOnly, admin)
}

func override(def, configured []string) []string {
	if len(configured) == 0 {
		return def
	}

	return configured
}

func (t *Table) add(class Class, patterns []string) {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		// "/admin/*" and "/admin/" mean the same thing
		p = strings.TrimSuffix(p, "*")
		t.rules = append(t.rules, rule{pattern: p, class: class})
	}
}

// Classify returns the class of path.
func (t *Table) Classify(path string) Class {
	if path == "" {
		path = "/"
	}

	best := -1
	class := Protected
	for _, r := range t.rules {
		if !matches(r.pattern, path) {
			continue
		}
		if len(r.pattern) > best {
			best = len(r.pattern)
			class = r.class
		}
	}

	return class
}

func matches(pattern, path string) bool {
	if pattern == path {
		return true
	}
	// The root is public only as an exact match, not as a prefix of everything.
	if pattern == "/" {
		return false
	}
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(path, pattern) || path == strings.TrimSuffix(pattern, "/")
	}

	return strings.HasPrefix(path, pattern+"/")
}

// IsAPI reports whether path belongs to the JSON API rather than a page.
func IsAPI(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
