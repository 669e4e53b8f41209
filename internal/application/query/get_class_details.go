package query

import (
	"context"
	"fmt"

	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CLASS DETAILS QUERY
// A class with its attendance roster: one row per student, first-seen order.
// ══════════════════════════════════════════════════════════════════════════════

// GetClassDetailsQuery identifies the class.
type GetClassDetailsQuery struct {
	ClassID string
}

// Validate checks the id.
func (q GetClassDetailsQuery) Validate() error {
	if q.ClassID == "" {
		return shared.NewDomainError("classroom", "Details", shared.ErrInvalidID, "class id is required")
	}
	return nil
}

// ClassDetailsDTO is the class detail screen.
type ClassDetailsDTO struct {
	Class     classroom.Class `json:"class"`
	Threshold int             `json:"threshold"`
	Roster    []TallyDTO      `json:"roster"`
	Total     int             `json:"total"`
	Critical  int             `json:"critical"`
}

// GetClassDetailsHandler handles GetClassDetailsQuery.
type GetClassDetailsHandler struct {
	classes    ClassReader
	attendance AttendanceReader
	threshold  int
}

// NewGetClassDetailsHandler creates a new handler.
func NewGetClassDetailsHandler(classes ClassReader, events AttendanceReader, threshold int) *GetClassDetailsHandler {
	return &GetClassDetailsHandler{classes: classes, attendance: events, threshold: threshold}
}

// Handle builds the class details.
func (h *GetClassDetailsHandler) Handle(ctx context.Context, q GetClassDetailsQuery) (*ClassDetailsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	class, err := h.classes.GetClass(ctx, q.ClassID)
	if err != nil {
		return nil, fmt.Errorf("get class %s: %w", q.ClassID, err)
	}

	events, err := h.attendance.ListByClass(ctx, q.ClassID)
	if err != nil {
		return nil, fmt.Errorf("list attendance of class %s: %w", q.ClassID, err)
	}

	tallies, err := attendance.AggregateByStudent(events)
	if err != nil {
		return nil, err
	}

	rows, err := classifyAll(tallies, h.threshold)
	if err != nil {
		return nil, err
	}

	return &ClassDetailsDTO{
		Class:     *class,
		Threshold: h.threshold,
		Roster:    rows,
		Total:     tallies.Total(),
		Critical:  criticalCount(rows),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET TEACHER PROFILE QUERY
// ══════════════════════════════════════════════════════════════════════════════

// TeacherProfileDTO is a teacher with the classes they teach.
type TeacherProfileDTO struct {
	Teacher user.User         `json:"teacher"`
	Classes []classroom.Class `json:"classes"`
}

// GetTeacherProfileHandler loads a teacher and their classes.
type GetTeacherProfileHandler struct {
	users   UserReader
	classes ClassReader
}

// NewGetTeacherProfileHandler creates a new handler.
func NewGetTeacherProfileHandler(users UserReader, classes ClassReader) *GetTeacherProfileHandler {
	return &GetTeacherProfileHandler{users: users, classes: classes}
}

// Handle returns the profile of teacherID.
func (h *GetTeacherProfileHandler) Handle(ctx context.Context, teacherID string) (*TeacherProfileDTO, error) {
	if teacherID == "" {
		return nil, shared.NewDomainError("teacher", "Profile", shared.ErrInvalidID, "teacher id is required")
	}

	teacher, err := h.users.GetUser(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("get teacher %s: %w", teacherID, err)
	}

	classes, err := h.classes.ListClassesByTeacher(ctx, teacherID)
	if err != nil {
		return nil, fmt.Errorf("list classes of %s: %w", teacherID, err)
	}

	return &TeacherProfileDTO{Teacher: *teacher, Classes: classes}, nil
}
