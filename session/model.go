package session

// Role is one of the platform roles a profile can hold.
type Role string

const (
	// RoleLearner is the default role for course consumers.
	RoleLearner Role = "learner"
	// RoleInstructor may author and manage courses.
	RoleInstructor Role = "instructor"
	// RoleAdmin may moderate users and courses.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// Name is the display name of a profile.
type Name struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Profile is the signed-in user as returned by the auth backend.
type Profile struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     Name   `json:"name"`
	Role     Role   `json:"role"`
	Avatar   string `json:"avatar,omitempty"`
}

// ProfilePatch carries the fields to shallow-merge into a [Profile].
// Nil fields are left untouched; Name is replaced as a whole.
type ProfilePatch struct {
	Email    *string
	Username *string
	Name     *Name
	Role     *Role
	Avatar   *string
}

func (p ProfilePatch) apply(dst *Profile) {
	if p.Email != nil {
		dst.Email = *p.Email
	}
	if p.Username != nil {
		dst.Username = *p.Username
	}
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Role != nil {
		dst.Role = *p.Role
	}
	if p.Avatar != nil {
		dst.Avatar = *p.Avatar
	}
}

// Session pairs the signed-in profile with its access token.
//
// A Session with a non-nil User always carries a non-empty AccessToken.
type Session struct {
	User        *Profile
	AccessToken string
}

// Authenticated reports whether a user is signed in.
func (s Session) Authenticated() bool {
	return s.User != nil
}

// Empty reports whether the session holds neither user nor token.
func (s Session) Empty() bool {
	return s.User == nil && s.AccessToken == ""
}

func (s Session) clone() Session {
	out := Session{AccessToken: s.AccessToken}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}
