package guard

import (
	"slices"

	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
)

// Paths are the redirect targets used by an Authorizer.
type Paths struct {
	Login          string `yaml:"login"`
	AdminHome      string `yaml:"admin_home"`
	InstructorHome string `yaml:"instructor_home"`
	LearnerHome    string `yaml:"learner_home"`
}

// DefaultPaths returns the SkillUp login and dashboard routes.
func DefaultPaths() Paths {
	return Paths{
		Login:          "/auth",
		AdminHome:      "/admin/dashboard",
		InstructorHome: "/instructor/dashboard",
		LearnerHome:    "/learner/dashboard",
	}
}

func (p Paths) withDefaults() Paths {
	d := DefaultPaths()
	if p.Login == "" {
		p.Login = d.Login
	}
	if p.AdminHome == "" {
		p.AdminHome = d.AdminHome
	}
	if p.InstructorHome == "" {
		p.InstructorHome = d.InstructorHome
	}
	if p.LearnerHome == "" {
		p.LearnerHome = d.LearnerHome
	}
	return p
}

// Decision is either Allow or a redirect to Redirect.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Allow lets the request through.
func Allow() Decision {
	return Decision{Allowed: true}
}

// RedirectTo denies the request and sends the caller to path.
func RedirectTo(path string) Decision {
	return Decision{Redirect: path}
}

// String renders "allow" or "redirect <path>".
func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return "redirect " + d.Redirect
}

// Authorizer is immutable and safe for concurrent use.
type Authorizer struct {
	paths Paths
}

// New returns an Authorizer. Empty paths fall back to DefaultPaths.
func New(paths Paths) *Authorizer {
	return &Authorizer{paths: paths.withDefaults()}
}

// Paths returns the redirect targets with defaults applied.
func (a *Authorizer) Paths() Paths {
	return a.paths
}

// RequireAuthenticated allows any session with a user.
func (a *Authorizer) RequireAuthenticated(s session.Session) Decision {
	if s.User == nil {
		return RedirectTo(a.paths.Login)
	}
	return Allow()
}

// Authorize allows s when the role in its access token is one of allowed.
// The authentication check always runs first.
func (a *Authorizer) Authorize(s session.Session, allowed ...session.Role) Decision {
	if d := a.RequireAuthenticated(s); !d.Allowed {
		return d
	}

	role := session.Role(token.RoleOf(s.AccessToken))
	if role == "" {
		return RedirectTo(a.paths.Login)
	}
	if slices.Contains(allowed, role) {
		return Allow()
	}
	return RedirectTo(a.HomePath(role))
}

// HomePath maps a role to its dashboard. Unknown roles get the learner home.
func (a *Authorizer) HomePath(role session.Role) string {
	switch role {
	case session.RoleAdmin:
		return a.paths.AdminHome
	case session.RoleInstructor:
		return a.paths.InstructorHome
	default:
		return a.paths.LearnerHome
	}
}

// AuthorizePath resolves path in t and applies the matching rule. Paths
// without a rule are public.
func (a *Authorizer) AuthorizePath(t *Table, s session.Session, path string) Decision {
	rule, ok := t.Match(path)
	if !ok {
		return Allow()
	}
	if len(rule.Roles) == 0 {
		return a.RequireAuthenticated(s)
	}
	return a.Authorize(s, rule.Roles...)
}
