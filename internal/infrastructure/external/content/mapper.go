package content

import (
	"errors"
	"fmt"

	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to Domain Entity transformations
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNilDTO is returned when mapping a nil DTO.
	ErrNilDTO = errors.New("nil DTO")

	errEmptyPayload = errors.New("mutation returned no payload")
)

// MappingError describes a DTO that cannot become a domain entity.
type MappingError struct {
	Entity string
	ID     string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map %s %q: %s", e.Entity, e.ID, e.Reason)
}

// Mapper converts between content server DTOs and domain entities, so the
// domain never sees wire field names.
type Mapper struct{}

// NewMapper creates a new Mapper instance.
func NewMapper() *Mapper {
	return &Mapper{}
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

// UserFromDTO converts a UserDTO. An unknown role is a mapping error.
func (m *Mapper) UserFromDTO(dto *UserDTO) (*user.User, error) {
	if dto == nil {
		return nil, ErrNilDTO
	}
	role, err := user.ParseRole(dto.Role)
	if err != nil {
		return nil, &MappingError{Entity: "user", ID: dto.ID, Reason: fmt.Sprintf("unknown role %q", dto.Role)}
	}
	u := &user.User{
		ID:        dto.ID,
		Name:      dto.Name,
		StudentID: dto.StudentID,
		Email:     dto.Email,
		Role:      role,
	}
	if dto.CreatedAt != nil {
		u.CreatedAt = *dto.CreatedAt
	}
	return u, nil
}

// UsersFromDTOs converts a list, keeping order.
func (m *Mapper) UsersFromDTOs(dtos []UserDTO) ([]user.User, error) {
	out := make([]user.User, 0, len(dtos))
	for i := range dtos {
		u, err := m.UserFromDTO(&dtos[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Classes
// ─────────────────────────────────────────────────────────────────────────────

// ClassFromDTO converts a ClassDTO. A missing teacher leaves the teacher
// fields empty.
func (m *Mapper) ClassFromDTO(dto *ClassDTO) (*classroom.Class, error) {
	if dto == nil {
		return nil, ErrNilDTO
	}
	c := &classroom.Class{
		ID:          dto.ID,
		Name:        dto.Name,
		Description: dto.Description,
		Schedule:    dto.Schedule,
	}
	if dto.Teacher != nil {
		c.TeacherID = dto.Teacher.ID
		c.TeacherName = dto.Teacher.Name
	}
	return c, nil
}

// ClassesFromDTOs converts a list, keeping order.
func (m *Mapper) ClassesFromDTOs(dtos []ClassDTO) ([]classroom.Class, error) {
	out := make([]classroom.Class, 0, len(dtos))
	for i := range dtos {
		c, err := m.ClassFromDTO(&dtos[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Attendance
// ─────────────────────────────────────────────────────────────────────────────

// EventFromDTO converts an AttendanceDTO. Missing relations map to empty
// fields; the aggregator reports them as malformed records.
func (m *Mapper) EventFromDTO(dto *AttendanceDTO) (*attendance.Event, error) {
	if dto == nil {
		return nil, ErrNilDTO
	}
	e := &attendance.Event{
		ID:               dto.ID,
		Recognized:       dto.Recognized == "1",
		ConfidenceScore:  dto.ConfidenceScore,
		ImageCapturedURL: dto.ImageCapturedURL,
	}
	if dto.Date != nil {
		e.Date = *dto.Date
	}
	if dto.User != nil {
		e.StudentID = dto.User.ID
		e.StudentName = dto.User.Name
	}
	if dto.Class != nil {
		e.ClassID = dto.Class.ID
		e.SubjectName = dto.Class.Name
	}
	return e, nil
}

// EventsFromDTOs converts a list, keeping order.
func (m *Mapper) EventsFromDTOs(dtos []AttendanceDTO) ([]attendance.Event, error) {
	out := make([]attendance.Event, 0, len(dtos))
	for i := range dtos {
		e, err := m.EventFromDTO(&dtos[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain to wire
// ─────────────────────────────────────────────────────────────────────────────

// RecognizedValue encodes the recognized flag as the server's select value.
func RecognizedValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// UserToDTO converts a domain user for responses.
func (m *Mapper) UserToDTO(u *user.User) UserDTO {
	dto := UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		StudentID: u.StudentID,
		Role:      u.Role.String(),
	}
	if !u.CreatedAt.IsZero() {
		t := u.CreatedAt
		dto.CreatedAt = &t
	}
	return dto
}

// ClassToDTO converts a domain class for responses.
func (m *Mapper) ClassToDTO(c *classroom.Class) ClassDTO {
	dto := ClassDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Schedule:    c.Schedule,
	}
	if c.TeacherID != "" {
		dto.Teacher = &RefDTO{ID: c.TeacherID, Name: c.TeacherName}
	}
	return dto
}

// EventToDTO converts a domain event for responses.
func (m *Mapper) EventToDTO(e *attendance.Event) AttendanceDTO {
	dto := AttendanceDTO{
		ID:               e.ID,
		Recognized:       RecognizedValue(e.Recognized),
		ConfidenceScore:  e.ConfidenceScore,
		ImageCapturedURL: e.ImageCapturedURL,
	}
	if !e.Date.IsZero() {
		t := e.Date
		dto.Date = &t
	}
	if e.StudentID != "" {
		dto.User = &RefDTO{ID: e.StudentID, Name: e.StudentName}
	}
	if e.ClassID != "" {
		dto.Class = &RefDTO{ID: e.ClassID, Name: e.SubjectName}
	}
	return dto
}
