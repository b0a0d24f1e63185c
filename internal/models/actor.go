package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles recognised by the grievance workflows.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleFaculty    UserRole = "FACULTY"
	RoleStudent    UserRole = "STUDENT"
)

// IsReviewer reports whether the role may change grievance status and resolve grievances.
func (r UserRole) IsReviewer() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// IsSubmitter reports whether the role files grievances and only sees its own.
func (r UserRole) IsSubmitter() bool {
	return r == RoleStudent || r == RoleFaculty
}

// Actor is the authenticated caller as supplied by the identity provider.
type Actor struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}

// JWTClaims represents the access token payload issued by the identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email,omitempty"`
	FullName string   `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into an engine actor.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	return Actor{ID: id, Role: c.Role}
}
