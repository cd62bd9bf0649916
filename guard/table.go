package guard

import (
	"slices"
	"strings"

	"github.com/MrEthical07/goSession/session"
)

// Rule protects Prefix and everything below it. A rule without roles only
// requires authentication.
type Rule struct {
	Prefix string         `yaml:"prefix"`
	Roles  []session.Role `yaml:"roles"`
}

// Table is a static path to role-set mapping. The longest matching prefix
// wins.
type Table struct {
	rules []Rule
}

// NewTable builds a table from rules. A later rule with the same prefix
// replaces an earlier one.
func NewTable(rules ...Rule) *Table {
	t := &Table{}
	for _, r := range rules {
		t.Add(r)
	}
	return t
}

// DefaultTable mirrors the SkillUp dashboard routes.
func DefaultTable() *Table {
	return NewTable(
		Rule{Prefix: "/dashboard"},
		Rule{Prefix: "/profile"},
		Rule{Prefix: "/admin", Roles: []session.Role{session.RoleAdmin}},
		Rule{Prefix: "/instructor", Roles: []session.Role{session.RoleInstructor}},
		Rule{Prefix: "/learner", Roles: []session.Role{session.RoleLearner}},
	)
}

// Add registers r, replacing any rule with the same prefix.
func (t *Table) Add(r Rule) {
	r.Prefix = normalize(r.Prefix)
	r.Roles = slices.Clone(r.Roles)
	for i := range t.rules {
		if t.rules[i].Prefix == r.Prefix {
			t.rules[i] = r
			return
		}
	}
	t.rules = append(t.rules, r)
	slices.SortFunc(t.rules, func(a, b Rule) int {
		return len(b.Prefix) - len(a.Prefix)
	})
}

// Match returns the most specific rule covering path.
func (t *Table) Match(path string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	path = normalize(path)
	for _, r := range t.rules {
		if r.Prefix == "/" || path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the rules, longest prefix first.
func (t *Table) Rules() []Rule {
	if t == nil {
		return nil
	}
	return slices.Clone(t.rules)
}

func normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
