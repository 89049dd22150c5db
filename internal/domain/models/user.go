package models

// Role is the access level of an account.
type Role string

const (
	RoleUser    Role = "USER"
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
)

// IsStaff reports whether the role may perform administrative order actions.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager
}

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin || r == RoleManager
}

// User represents an account in the user directory.
// PassHash never crosses the API boundary.
type User struct {
	ID       int64
	Name     string
	Email    string
	PassHash []byte
	Mobile   string
	Role     Role
	Active   bool
}

// Actor is the identity a request acts under: user id plus role,
// extracted from the JWT by the auth middleware.
type Actor struct {
	ID   int64
	Role Role
}
