// Package attendance holds the attendance event model, the per-subject
// aggregation and the risk classifier. It has no external dependencies.
package attendance

import (
	"time"

	"github.com/classtrack/classtrack/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Event is a single attendance record: one student present in one class
// session. Events are immutable once fetched.
type Event struct {
	ID          string
	StudentID   string
	StudentName string
	ClassID     string

	// SubjectName is the name of the class the event belongs to. It is the
	// grouping key for per-subject tallies and must not be empty.
	SubjectName string

	Date             time.Time
	Recognized       bool
	ConfidenceScore  float64
	ImageCapturedURL string
}

func (e Event) GetID() string {
	return e.ID
}

// NewEventParams holds the fields accepted when recording an event.
type NewEventParams struct {
	StudentID        string
	ClassID          string
	Date             time.Time
	Recognized       bool
	ConfidenceScore  float64
	ImageCapturedURL string
}

// Validate checks the relations an event cannot exist without.
func (p NewEventParams) Validate() error {
	if p.StudentID == "" {
		return shared.NewDomainError("attendance", "Validate", shared.ErrValidation, "student is required")
	}
	if p.ClassID == "" {
		return shared.NewDomainError("attendance", "Validate", shared.ErrValidation, "class is required")
	}
	if p.ConfidenceScore < 0 {
		return shared.NewDomainError("attendance", "Validate", shared.ErrValueOutOfRange, "confidence score must not be negative")
	}
	return nil
}

// EventUpdate carries corrections to an event. Nil fields stay unchanged.
type EventUpdate struct {
	Date             *time.Time
	Recognized       *bool
	ConfidenceScore  *float64
	ImageCapturedURL *string
}

// Validate rejects a negative confidence score.
func (u EventUpdate) Validate() error {
	if u.ConfidenceScore != nil && *u.ConfidenceScore < 0 {
		return shared.NewDomainError("attendance", "Validate", shared.ErrValueOutOfRange, "confidence score must not be negative")
	}
	return nil
}

// IDs returns the ids of events in order.
func IDs(events []Event) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	return ids
}
