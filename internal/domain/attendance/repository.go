package attendance

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores attendance events on the content server side.
type Repository interface {
	// Create stores a new event and returns it with the joined student and
	// class names filled in.
	Create(ctx context.Context, id string, params NewEventParams) (*Event, error)

	// GetByID returns ErrAttendanceNotFound if no such event exists.
	GetByID(ctx context.Context, id string) (*Event, error)

	// ListByStudent returns the student's events ordered by date, then id.
	ListByStudent(ctx context.Context, studentID string) ([]Event, error)

	// ListByClass returns the class's events ordered by date, then id.
	ListByClass(ctx context.Context, classID string) ([]Event, error)

	// Update applies the non-nil fields of upd and returns the new state.
	Update(ctx context.Context, id string, upd EventUpdate) (*Event, error)

	// Delete returns ErrAttendanceNotFound if no such event exists.
	Delete(ctx context.Context, id string) error

	// DeleteMany deletes the given ids and returns the ones actually removed.
	DeleteMany(ctx context.Context, ids []string) ([]string, error)

	// CountByStudent and CountByClass back the foreign key refusal on delete.
	CountByStudent(ctx context.Context, studentID string) (int, error)
	CountByClass(ctx context.Context, classID string) (int, error)
}
