package http

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/domain/user"
)

// memStore is an in-memory stand-in for the PostgreSQL repositories,
// including the RESTRICT foreign keys on attendances.
type memStore struct {
	mu      sync.Mutex
	users   map[string]user.User
	hashes  map[string]string
	classes map[string]classroom.Class
	events  []attendance.Event
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]user.User{},
		hashes:  map[string]string{},
		classes: map[string]classroom.Class{},
	}
}

type memUsers struct{ *memStore }
type memClasses struct{ *memStore }
type memEvents struct{ *memStore }

var (
	_ user.Repository       = memUsers{}
	_ classroom.Repository  = memClasses{}
	_ attendance.Repository = memEvents{}
)

func (m memUsers) Create(_ context.Context, u *user.User, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return shared.ErrUserAlreadyExists
		}
	}
	u.CreatedAt = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	m.users[u.ID] = *u
	m.hashes[u.ID] = hash
	return nil
}

func (m memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

func (m memUsers) ListByRole(_ context.Context, role user.Role) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []user.User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memUsers) Update(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return shared.ErrUserNotFound
	}
	m.users[u.ID] = *u
	return nil
}

func (m memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return shared.ErrUserNotFound
	}
	for _, e := range m.events {
		if e.StudentID == id {
			return shared.ErrUserHasAttendance
		}
	}
	delete(m.users, id)
	return nil
}

func (m memClasses) Create(_ context.Context, c *classroom.Class) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.TeacherID != "" {
		t, ok := m.users[c.TeacherID]
		if !ok {
			return shared.ErrUserNotFound
		}
		c.TeacherName = t.Name
	}
	m.classes[c.ID] = *c
	return nil
}

func (m memClasses) GetByID(_ context.Context, id string) (*classroom.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.classes[id]
	if !ok {
		return nil, shared.ErrClassNotFound
	}
	return &c, nil
}

func (m memClasses) List(_ context.Context) ([]classroom.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []classroom.Class
	for _, c := range m.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m memClasses) ListByTeacher(ctx context.Context, teacherID string) ([]classroom.Class, error) {
	all, _ := m.List(ctx)
	var out []classroom.Class
	for _, c := range all {
		if c.TeacherID == teacherID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m memClasses) Update(_ context.Context, c *classroom.Class) error {
	if err := c.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[c.ID]; !ok {
		return shared.ErrClassNotFound
	}
	m.classes[c.ID] = *c
	return nil
}

func (m memClasses) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[id]; !ok {
		return shared.ErrClassNotFound
	}
	for _, e := range m.events {
		if e.ClassID == id {
			return shared.ErrClassHasAttendance
		}
	}
	delete(m.classes, id)
	return nil
}

func (m memEvents) Create(_ context.Context, id string, p attendance.NewEventParams) (*attendance.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[p.StudentID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	c, ok := m.classes[p.ClassID]
	if !ok {
		return nil, shared.ErrClassNotFound
	}
	e := attendance.Event{
		ID: id, StudentID: u.ID, StudentName: u.Name, ClassID: c.ID, SubjectName: c.Name,
		Date: p.Date, Recognized: p.Recognized, ConfidenceScore: p.ConfidenceScore, ImageCapturedURL: p.ImageCapturedURL,
	}
	m.events = append(m.events, e)
	return &e, nil
}

func (m memEvents) GetByID(_ context.Context, id string) (*attendance.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, shared.ErrAttendanceNotFound
}

func (m memEvents) list(keep func(attendance.Event) bool) []attendance.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []attendance.Event
	for _, e := range m.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (m memEvents) ListByStudent(_ context.Context, id string) ([]attendance.Event, error) {
	return m.list(func(e attendance.Event) bool { return e.StudentID == id }), nil
}

func (m memEvents) ListByClass(_ context.Context, id string) ([]attendance.Event, error) {
	return m.list(func(e attendance.Event) bool { return e.ClassID == id }), nil
}

func (m memEvents) Update(_ context.Context, id string, upd attendance.EventUpdate) (*attendance.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.events {
		e := &m.events[i]
		if e.ID != id {
			continue
		}
		if upd.Date != nil {
			e.Date = *upd.Date
		}
		if upd.Recognized != nil {
			e.Recognized = *upd.Recognized
		}
		if upd.ConfidenceScore != nil {
			e.ConfidenceScore = *upd.ConfidenceScore
		}
		if upd.ImageCapturedURL != nil {
			e.ImageCapturedURL = *upd.ImageCapturedURL
		}
		out := *e
		return &out, nil
	}
	return nil, shared.ErrAttendanceNotFound
}

func (m memEvents) Delete(ctx context.Context, id string) error {
	removed, _ := m.DeleteMany(ctx, []string{id})
	if len(removed) == 0 {
		return shared.ErrAttendanceNotFound
	}
	return nil
}

func (m memEvents) DeleteMany(_ context.Context, ids []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	kept := m.events[:0]
	for _, e := range m.events {
		if slices.Contains(ids, e.ID) {
			removed = append(removed, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return removed, nil
}

func (m memEvents) CountByStudent(ctx context.Context, id string) (int, error) {
	events, _ := m.ListByStudent(ctx, id)
	return len(events), nil
}

func (m memEvents) CountByClass(ctx context.Context, id string) (int, error) {
	events, _ := m.ListByClass(ctx, id)
	return len(events), nil
}
