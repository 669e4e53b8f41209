// Package classroom holds the class (subject) model.
package classroom

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/classtrack/classtrack/internal/domain/shared"
)

// MaxScheduleLength bounds the free-text schedule field.
const MaxScheduleLength = 50

// Class is a subject taught by one teacher.
type Class struct {
	ID          string
	Name        string
	Description string
	Schedule    string
	TeacherID   string
	TeacherName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GetID returns the entity id.
func (c Class) GetID() string {
	return c.ID
}

// Validate checks the class invariants.
func (c Class) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewDomainError("classroom", "Validate", shared.ErrEmptyValue, "name is required")
	}
	if utf8.RuneCountInString(c.Schedule) > MaxScheduleLength {
		return shared.ErrScheduleTooLong
	}
	return nil
}

// Repository is the storage contract for classes.
type Repository interface {
	Create(ctx context.Context, c *Class) error

	// GetByID returns ErrClassNotFound if no such class exists.
	GetByID(ctx context.Context, id string) (*Class, error)

	// List returns every class ordered by name.
	List(ctx context.Context) ([]Class, error)

	ListByTeacher(ctx context.Context, teacherID string) ([]Class, error)

	// Update returns ErrClassNotFound.
	Update(ctx context.Context, c *Class) error

	// Delete returns ErrClassNotFound, or ErrClassHasAttendance while
	// attendance rows still reference the class.
	Delete(ctx context.Context, id string) error
}
