package entity

// Role is the authorization level of a user.
// The zero value means the principal has no provisioned profile.
type Role string

const (
	RoleUnauthenticated Role = ""
	RoleAdmin           Role = "admin"
	RoleRepresentative  Role = "representative"
	RoleStudent         Role = "student"
)

// IsValid returns true if the role is one of the stored roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleRepresentative, RoleStudent:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// User is a profile document in the users collection.
// The stored Role is only authoritative for admins; representative
// status is always derived from club ownership.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// DisplayName returns the user's name or a fallback when empty
func (u *User) DisplayName() string {
	if u == nil || u.Name == "" {
		return UnknownUserName
	}
	return u.Name
}

// Principal is the identity asserted by the identity provider
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
