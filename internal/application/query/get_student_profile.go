package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/domain/user"
	"github.com/classtrack/classtrack/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT PROFILE QUERY
// Fetches a student and their attendance, tallies it per subject and
// classifies every subject against the critical threshold.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentProfileQuery identifies the student.
type GetStudentProfileQuery struct {
	StudentID string
}

// Validate checks the id.
func (q GetStudentProfileQuery) Validate() error {
	if q.StudentID == "" {
		return shared.NewDomainError("student", "Profile", shared.ErrInvalidID, "student id is required")
	}
	return nil
}

// StudentProfileDTO is the student detail screen.
type StudentProfileDTO struct {
	Student   user.User  `json:"student"`
	Threshold int        `json:"threshold"`
	Subjects  []TallyDTO `json:"subjects"`
	Total     int        `json:"total"`
	Critical  int        `json:"critical"`

	// Tallies is kept for the two-phase delete.
	Tallies *attendance.Tallies `json:"-"`
}

// GetStudentProfileHandler handles GetStudentProfileQuery.
type GetStudentProfileHandler struct {
	users      UserReader
	attendance AttendanceReader
	threshold  int
	logger     *slog.Logger
}

// NewGetStudentProfileHandler creates a new handler. threshold is the
// critical count, normally attendance.DefaultThreshold.
func NewGetStudentProfileHandler(users UserReader, events AttendanceReader, threshold int, log *slog.Logger) *GetStudentProfileHandler {
	return &GetStudentProfileHandler{
		users:      users,
		attendance: events,
		threshold:  threshold,
		logger:     logger.OrDefault(log).With(logger.Component("student-profile")),
	}
}

// Handle builds the profile. A student without attendance gets an empty,
// valid profile.
func (h *GetStudentProfileHandler) Handle(ctx context.Context, q GetStudentProfileQuery) (*StudentProfileDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	student, err := h.users.GetUser(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("get student %s: %w", q.StudentID, err)
	}

	events, err := h.attendance.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, fmt.Errorf("list attendance of %s: %w", q.StudentID, err)
	}

	tallies, err := attendance.Aggregate(events)
	if err != nil {
		h.logger.Warn("malformed attendance", logger.StudentID(q.StudentID), logger.Err(err))
		return nil, err
	}

	rows, err := classifyAll(tallies, h.threshold)
	if err != nil {
		return nil, err
	}

	return &StudentProfileDTO{
		Student:   *student,
		Threshold: h.threshold,
		Subjects:  rows,
		Total:     tallies.Total(),
		Critical:  criticalCount(rows),
		Tallies:   tallies,
	}, nil
}
