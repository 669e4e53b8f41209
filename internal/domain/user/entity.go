// Package user holds the account model shared by students, teachers and
// administrators.
package user

import (
	"strings"
	"time"

	"github.com/classtrack/classtrack/internal/domain/shared"
)

// Role is the account role.
type Role string

const (
	RoleStudent       Role = "student"
	RoleTeacher       Role = "teacher"
	RoleAdministrator Role = "administrator"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdministrator:
		return true
	}
	return false
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// ParseRole converts a string to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.ErrInvalidRole
	}
	return r, nil
}

// User is a student, teacher or administrator account.
type User struct {
	ID   string
	Name string

	// StudentID is the institution-issued number. Empty for teachers.
	StudentID string

	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity id.
func (u User) GetID() string {
	return u.ID
}

// Matches reports whether the lowercase filter occurs in the name,
// student id or email. An empty filter matches everything.
func (u User) Matches(filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(u.Name), filter) ||
		strings.Contains(strings.ToLower(u.StudentID), filter) ||
		strings.Contains(strings.ToLower(u.Email), filter)
}

// Filter returns the users matching filter, keeping order.
func Filter(users []User, filter string) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if u.Matches(filter) {
			out = append(out, u)
		}
	}
	return out
}
