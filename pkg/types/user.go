package types

import "time"

// Role represents the different user roles in the system
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleDevice  Role = "device"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient, RoleDevice:
		return true
	}
	return false
}

// Credential represents a user entry in the credential store. It is
// read-only from the point of view of the authentication core; the
// password hash is never serialized.
type Credential struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`

	// Role-specific attributes carried through to the login response.
	Hospital       string `json:"hospital,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Age            int    `json:"age,omitempty"`
	Condition      string `json:"condition,omitempty"`
}

// UserClaims represents the identity embedded in a session token.
// A token is self-verifying: these fields plus the signature are the
// sole source of truth for authentication decisions.
type UserClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Name   string `json:"name"`
}

// SessionRecord is the bookkeeping entry kept per user after login.
// It is informational only and never consulted for authorization.
type SessionRecord struct {
	UserID    string    `json:"userId"`
	LastLogin time.Time `json:"lastLogin"`
	Token     string    `json:"token"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterUserRequest represents an on-ledger user registration
type RegisterUserRequest struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}
