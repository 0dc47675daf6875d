package quote

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleTitulaire     Role = "titulaire"
	RoleCollaborateur Role = "collaborateur"
	RoleAssistante    Role = "assistante"
)

var (
	ErrIncompleteLogin = errors.New("quote: name, email and access code are required")
	ErrUnknownRole     = errors.New("quote: unknown practitioner role")
)

// User is a practitioner signed in to the dashboard.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// NewUser validates the login form. The access code itself is checked by package auth.
// An empty role defaults to titulaire.
func NewUser(id, name, email string, role Role, code string) (User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || strings.TrimSpace(code) == "" {
		return User{}, ErrIncompleteLogin
	}
	if role == "" {
		role = RoleTitulaire
	}
	switch role {
	case RoleTitulaire, RoleCollaborateur, RoleAssistante:
	default:
		return User{}, ErrUnknownRole
	}
	return User{ID: id, Name: name, Email: email, Role: role}, nil
}
