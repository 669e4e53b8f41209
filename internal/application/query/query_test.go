package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/domain/user"
	"github.com/classtrack/classtrack/pkg/logger"
)

type fakeReader struct {
	users      []user.User
	classes    []classroom.Class
	events     []attendance.Event
	attendErr  error
	lastRoleIn user.Role
}

func (f *fakeReader) ListUsersByRole(_ context.Context, role user.Role) ([]user.User, error) {
	f.lastRoleIn = role
	var out []user.User
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeReader) GetUser(_ context.Context, id string) (*user.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (f *fakeReader) ListClasses(context.Context) ([]classroom.Class, error) {
	return f.classes, nil
}

func (f *fakeReader) ListClassesByTeacher(_ context.Context, teacherID string) ([]classroom.Class, error) {
	var out []classroom.Class
	for _, c := range f.classes {
		if c.TeacherID == teacherID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeReader) GetClass(_ context.Context, id string) (*classroom.Class, error) {
	for _, c := range f.classes {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, shared.ErrClassNotFound
}

func (f *fakeReader) ListByStudent(_ context.Context, studentID string) ([]attendance.Event, error) {
	if f.attendErr != nil {
		return nil, f.attendErr
	}
	var out []attendance.Event
	for _, e := range f.events {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeReader) ListByClass(_ context.Context, classID string) ([]attendance.Event, error) {
	var out []attendance.Event
	for _, e := range f.events {
		if e.ClassID == classID {
			out = append(out, e)
		}
	}
	return out, nil
}

func repeatEvents(n int, studentID, studentName, classID, subject string, prefix string) []attendance.Event {
	out := make([]attendance.Event, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, attendance.Event{
			ID:          prefix + string(rune('a'+i)),
			StudentID:   studentID,
			StudentName: studentName,
			ClassID:     classID,
			SubjectName: subject,
		})
	}
	return out
}

func newFixture() *fakeReader {
	events := repeatEvents(12, "s1", "Ana", "c1", "Math", "m")
	events = append(events, repeatEvents(3, "s1", "Ana", "c2", "Art", "a")...)
	events = append(events, repeatEvents(2, "s2", "Ben", "c1", "Math", "b")...)
	return &fakeReader{
		users: []user.User{
			{ID: "s1", Name: "Ana", Email: "ana@school.edu", StudentID: "2024-001", Role: user.RoleStudent},
			{ID: "s2", Name: "Ben", Email: "ben@school.edu", StudentID: "2024-002", Role: user.RoleStudent},
			{ID: "t1", Name: "Carla", Email: "carla@school.edu", Role: user.RoleTeacher},
		},
		classes: []classroom.Class{
			{ID: "c1", Name: "Math", TeacherID: "t1"},
			{ID: "c2", Name: "Art", TeacherID: "t2"},
		},
		events: events,
	}
}

func TestGetStudentProfile(t *testing.T) {
	r := newFixture()
	h := NewGetStudentProfileHandler(r, r, attendance.DefaultThreshold, logger.Discard())

	p, err := h.Handle(context.Background(), GetStudentProfileQuery{StudentID: "s1"})
	require.NoError(t, err)

	require.Len(t, p.Subjects, 2)
	math, art := p.Subjects[0], p.Subjects[1]

	assert.Equal(t, "Math", math.Key)
	assert.Equal(t, 12, math.Count)
	assert.True(t, math.Critical)
	assert.InDelta(t, 1.2, math.Progress, 1e-9)
	assert.Equal(t, "12/10", math.Ratio)

	assert.Equal(t, "Art", art.Key)
	assert.False(t, art.Critical)
	assert.Equal(t, "normal", art.Tier)

	assert.Equal(t, 15, p.Total)
	assert.Equal(t, 1, p.Critical)
	assert.Len(t, p.Tallies.EventIDs(), 15)
}

func TestGetStudentProfile_Empty(t *testing.T) {
	r := newFixture()
	r.users = append(r.users, user.User{ID: "s3", Name: "Dee", Role: user.RoleStudent})
	h := NewGetStudentProfileHandler(r, r, attendance.DefaultThreshold, nil)

	p, err := h.Handle(context.Background(), GetStudentProfileQuery{StudentID: "s3"})
	require.NoError(t, err)
	assert.Empty(t, p.Subjects)
	assert.Equal(t, 0, p.Total)
}

func TestGetStudentProfile_Errors(t *testing.T) {
	t.Run("malformed record", func(t *testing.T) {
		r := newFixture()
		r.events = append(r.events, attendance.Event{ID: "x", StudentID: "s1"})
		h := NewGetStudentProfileHandler(r, r, attendance.DefaultThreshold, nil)

		_, err := h.Handle(context.Background(), GetStudentProfileQuery{StudentID: "s1"})
		assert.True(t, errors.Is(err, shared.ErrMalformedRecord))
	})

	t.Run("invalid threshold", func(t *testing.T) {
		r := newFixture()
		h := NewGetStudentProfileHandler(r, r, 0, nil)

		_, err := h.Handle(context.Background(), GetStudentProfileQuery{StudentID: "s1"})
		assert.True(t, errors.Is(err, shared.ErrInvalidThreshold))
	})

	t.Run("network", func(t *testing.T) {
		r := newFixture()
		r.attendErr = &shared.NetworkError{Op: "ListAttendanceByStudent", Err: errors.New("refused")}
		h := NewGetStudentProfileHandler(r, r, attendance.DefaultThreshold, nil)

		_, err := h.Handle(context.Background(), GetStudentProfileQuery{StudentID: "s1"})
		assert.True(t, errors.Is(err, shared.ErrNetwork))
	})

	t.Run("unknown student", func(t *testing.T) {
		r := newFixture()
		h := NewGetStudentProfileHandler(r, r, attendance.DefaultThreshold, nil)

		_, err := h.Handle(context.Background(), GetStudentProfileQuery{StudentID: "nope"})
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestGetClassDetails(t *testing.T) {
	r := newFixture()
	h := NewGetClassDetailsHandler(r, r, attendance.DefaultThreshold)

	d, err := h.Handle(context.Background(), GetClassDetailsQuery{ClassID: "c1"})
	require.NoError(t, err)
	require.Len(t, d.Roster, 2)
	assert.Equal(t, "s1", d.Roster[0].Key)
	assert.Equal(t, "Ana", d.Roster[0].Label)
	assert.True(t, d.Roster[0].Critical)
	assert.Equal(t, "Ben", d.Roster[1].Label)
	assert.False(t, d.Roster[1].Critical)
	assert.Equal(t, 14, d.Total)
}

func TestGetTeacherProfile(t *testing.T) {
	r := newFixture()
	h := NewGetTeacherProfileHandler(r, r)

	p, err := h.Handle(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "Carla", p.Teacher.Name)
	require.Len(t, p.Classes, 1)
	assert.Equal(t, "Math", p.Classes[0].Name)
}

func TestListUsers(t *testing.T) {
	r := newFixture()
	h := NewListUsersHandler(r)

	users, err := h.Handle(context.Background(), ListUsersQuery{Role: user.RoleStudent, Filter: "BEN"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "s2", users[0].ID)

	_, err = h.Handle(context.Background(), ListUsersQuery{Role: "janitor"})
	assert.True(t, shared.IsValidation(err))
}

func TestListClasses(t *testing.T) {
	r := newFixture()
	classes, err := NewListClassesHandler(r).Handle(context.Background())
	require.NoError(t, err)
	assert.Len(t, classes, 2)
}
