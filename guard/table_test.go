package guard

import (
	"testing"

	"github.com/MrEthical07/goSession/session"
)

func TestTableLongestPrefixWins(t *testing.T) {
	tbl := NewTable(
		Rule{Prefix: "/admin", Roles: []session.Role{session.RoleAdmin}},
		Rule{Prefix: "/admin/reports/", Roles: []session.Role{session.RoleAdmin, session.RoleInstructor}},
	)

	tests := []struct {
		path   string
		prefix string
		found  bool
	}{
		{"/admin", "/admin", true},
		{"/admin/dashboard", "/admin", true},
		{"/admin/reports/weekly?x=1", "/admin/reports", true},
		{"/administrator", "", false},
		{"/courses/go-101", "", false},
	}
	for _, tt := range tests {
		r, ok := tbl.Match(tt.path)
		if ok != tt.found || r.Prefix != tt.prefix {
			t.Fatalf("Match(%q) = %q,%v want %q,%v", tt.path, r.Prefix, ok, tt.prefix, tt.found)
		}
	}
}

func TestTableAddReplacesPrefix(t *testing.T) {
	tbl := NewTable(Rule{Prefix: "/learner", Roles: []session.Role{session.RoleLearner}})
	tbl.Add(Rule{Prefix: "/learner/", Roles: []session.Role{session.RoleInstructor}})

	rules := tbl.Rules()
	if len(rules) != 1 || rules[0].Roles[0] != session.RoleInstructor {
		t.Fatalf("expected replaced rule, got %+v", rules)
	}
}

func TestAuthorizePathDefaultTable(t *testing.T) {
	a := New(Paths{})
	tbl := DefaultTable()

	if d := a.AuthorizePath(tbl, session.Session{}, "/courses"); !d.Allowed {
		t.Fatalf("public path must allow, got %s", d)
	}
	if d := a.AuthorizePath(tbl, session.Session{}, "/dashboard"); d.Redirect != "/auth" {
		t.Fatalf("expected login redirect, got %s", d)
	}
	if d := a.AuthorizePath(tbl, sessionWithRole("learner"), "/dashboard"); !d.Allowed {
		t.Fatalf("authenticated-only path must allow, got %s", d)
	}
	if d := a.AuthorizePath(tbl, sessionWithRole("instructor"), "/admin/dashboard"); d.Redirect != "/instructor/dashboard" {
		t.Fatalf("expected instructor home, got %s", d)
	}
	if d := a.AuthorizePath(tbl, session.Session{}, "/admin/dashboard"); d.Redirect != "/auth" {
		t.Fatalf("expected login redirect, got %s", d)
	}
}
