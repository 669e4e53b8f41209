package query

import (
	"context"
	"fmt"

	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST USERS QUERY
// Backs the students and teachers list screens.
// ══════════════════════════════════════════════════════════════════════════════

// ListUsersQuery selects users by role, optionally narrowed by a text filter
// over name, student id and email.
type ListUsersQuery struct {
	Role   user.Role
	Filter string
}

// Validate checks the role.
func (q ListUsersQuery) Validate() error {
	if !q.Role.IsValid() {
		return shared.ErrInvalidRole
	}
	return nil
}

// ListUsersHandler handles ListUsersQuery.
type ListUsersHandler struct {
	users UserReader
}

// NewListUsersHandler creates a new handler.
func NewListUsersHandler(users UserReader) *ListUsersHandler {
	return &ListUsersHandler{users: users}
}

// Handle returns the matching users in server order.
func (h *ListUsersHandler) Handle(ctx context.Context, q ListUsersQuery) ([]user.User, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	users, err := h.users.ListUsersByRole(ctx, q.Role)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", q.Role, err)
	}
	return user.Filter(users, q.Filter), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST CLASSES QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListClassesHandler returns every class.
type ListClassesHandler struct {
	classes ClassReader
}

// NewListClassesHandler creates a new handler.
func NewListClassesHandler(classes ClassReader) *ListClassesHandler {
	return &ListClassesHandler{classes: classes}
}

// Handle returns all classes in server order.
func (h *ListClassesHandler) Handle(ctx context.Context) ([]classroom.Class, error) {
	classes, err := h.classes.ListClasses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}
