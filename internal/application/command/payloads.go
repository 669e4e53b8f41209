package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classtrack/classtrack/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAYLOADS
// Validated with struct tags before any remote call is made.
// ══════════════════════════════════════════════════════════════════════════════

// CreateUserPayload creates a student or a teacher. Role is forced by the
// façade and never taken from the caller.
type CreateUserPayload struct {
	Name      string    `validate:"required,max=100"`
	Email     string    `validate:"required,email"`
	Password  string    `validate:"required,min=8,max=72"`
	StudentID string    `validate:"required,max=50"`
	Role      user.Role `validate:"-"`
}

// UpdateUserPayload changes account fields. Nil fields are left unchanged.
type UpdateUserPayload struct {
	Name      *string `validate:"omitempty,min=1,max=100"`
	Email     *string `validate:"omitempty,email"`
	StudentID *string `validate:"omitempty,min=1,max=50"`
}

// CreateClassPayload creates a class taught by TeacherID.
type CreateClassPayload struct {
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
	Schedule    string `validate:"max=50"`
	TeacherID   string `validate:"required"`
}

// UpdateClassPayload changes class fields. Nil fields are left unchanged.
type UpdateClassPayload struct {
	Name        *string `validate:"omitempty,min=1,max=100"`
	Description *string `validate:"omitempty,max=500"`
	Schedule    *string `validate:"omitempty,max=50"`
	TeacherID   *string `validate:"omitempty,min=1"`
}

// CreateAttendancePayload records one attendance event.
type CreateAttendancePayload struct {
	StudentID        string    `validate:"required"`
	ClassID          string    `validate:"required"`
	Date             time.Time `validate:"required"`
	Recognized       bool
	ConfidenceScore  float64 `validate:"gte=0"`
	ImageCapturedURL string  `validate:"omitempty,url"`
}

// UpdateAttendancePayload corrects an attendance event.
type UpdateAttendancePayload struct {
	Date             *time.Time
	Recognized       *bool
	ConfidenceScore  *float64 `validate:"omitempty,gte=0"`
	ImageCapturedURL *string  `validate:"omitempty,url"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationMessage flattens validator errors into "field: rule" pairs.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
