package user

import (
	"context"
)

// Repository is the storage contract for accounts.
type Repository interface {
	// Create returns ErrUserAlreadyExists when the email is taken.
	Create(ctx context.Context, u *User, passwordHash string) error

	// GetByID returns ErrUserNotFound if no such user exists.
	GetByID(ctx context.Context, id string) (*User, error)

	// ListByRole returns users with the given role ordered by name.
	ListByRole(ctx context.Context, role Role) ([]User, error)

	// Update overwrites the mutable fields. Returns ErrUserNotFound.
	Update(ctx context.Context, u *User) error

	// Delete returns ErrUserNotFound, or ErrUserHasAttendance while
	// attendance rows still reference the user.
	Delete(ctx context.Context, id string) error
}
