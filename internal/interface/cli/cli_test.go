package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/classtrack/internal/application/command"
	"github.com/classtrack/classtrack/internal/application/session"
	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/domain/user"
	"github.com/classtrack/classtrack/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type backend struct {
	users   []user.User
	classes []classroom.Class
	events  []attendance.Event
	nextID  int

	// bulkKeep leaves these event ids in place on DeleteMany.
	bulkKeep map[string]bool
}

func (b *backend) id(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s-%d", prefix, b.nextID)
}

type fakeUsers struct{ *backend }
type fakeClasses struct{ *backend }
type fakeEvents struct{ *backend }

func (f fakeUsers) ListUsersByRole(_ context.Context, role user.Role) ([]user.User, error) {
	var out []user.User
	for _, u := range f.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f fakeUsers) GetUser(_ context.Context, id string) (*user.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (f fakeUsers) Create(_ context.Context, p command.CreateUserPayload) (user.User, error) {
	u := user.User{ID: f.id("user"), Name: p.Name, Email: p.Email, StudentID: p.StudentID, Role: p.Role}
	f.users = append(f.users, u)
	return u, nil
}

func (f fakeUsers) Update(_ context.Context, id string, p command.UpdateUserPayload) (user.User, error) {
	for i := range f.users {
		if f.users[i].ID != id {
			continue
		}
		if p.Name != nil {
			f.users[i].Name = *p.Name
		}
		if p.Email != nil {
			f.users[i].Email = *p.Email
		}
		return f.users[i], nil
	}
	return user.User{}, shared.ErrUserNotFound
}

func (f fakeUsers) Delete(_ context.Context, id string) error {
	for _, e := range f.events {
		if e.StudentID == id {
			return shared.ErrUserHasAttendance
		}
	}
	for i, u := range f.users {
		if u.ID == id {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return shared.ErrUserNotFound
}

func (f fakeClasses) ListClasses(context.Context) ([]classroom.Class, error) {
	return f.classes, nil
}

func (f fakeClasses) ListClassesByTeacher(_ context.Context, teacherID string) ([]classroom.Class, error) {
	var out []classroom.Class
	for _, c := range f.classes {
		if c.TeacherID == teacherID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f fakeClasses) GetClass(_ context.Context, id string) (*classroom.Class, error) {
	for _, c := range f.classes {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, shared.ErrClassNotFound
}

func (f fakeClasses) Create(_ context.Context, p command.CreateClassPayload) (classroom.Class, error) {
	c := classroom.Class{ID: f.id("class"), Name: p.Name, Schedule: p.Schedule, TeacherID: p.TeacherID}
	f.classes = append(f.classes, c)
	return c, nil
}

func (f fakeClasses) Update(_ context.Context, id string, p command.UpdateClassPayload) (classroom.Class, error) {
	for i := range f.classes {
		if f.classes[i].ID == id {
			if p.Name != nil {
				f.classes[i].Name = *p.Name
			}
			return f.classes[i], nil
		}
	}
	return classroom.Class{}, shared.ErrClassNotFound
}

func (f fakeClasses) Delete(_ context.Context, id string) error {
	for i, c := range f.classes {
		if c.ID == id {
			f.classes = append(f.classes[:i], f.classes[i+1:]...)
			return nil
		}
	}
	return shared.ErrClassNotFound
}

func (f fakeEvents) ListByStudent(_ context.Context, id string) ([]attendance.Event, error) {
	var out []attendance.Event
	for _, e := range f.events {
		if e.StudentID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f fakeEvents) ListByClass(_ context.Context, id string) ([]attendance.Event, error) {
	var out []attendance.Event
	for _, e := range f.events {
		if e.ClassID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f fakeEvents) Create(_ context.Context, p command.CreateAttendancePayload) (attendance.Event, error) {
	e := attendance.Event{ID: f.id("event"), StudentID: p.StudentID, ClassID: p.ClassID, SubjectName: "Math", Date: p.Date, Recognized: p.Recognized}
	f.events = append(f.events, e)
	return e, nil
}

func (f fakeEvents) Update(_ context.Context, id string, _ command.UpdateAttendancePayload) (attendance.Event, error) {
	return attendance.Event{ID: id}, nil
}

func (f fakeEvents) Delete(ctx context.Context, id string) error {
	removed, _ := f.DeleteMany(ctx, []string{id})
	if len(removed) == 0 {
		return shared.ErrAttendanceNotFound
	}
	return nil
}

func (f fakeEvents) DeleteMany(_ context.Context, ids []string) ([]string, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var removed []string
	kept := f.events[:0]
	for _, e := range f.events {
		if want[e.ID] && !f.bulkKeep[e.ID] {
			removed = append(removed, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return removed, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type testEnv struct {
	backend *backend
	session *session.Service
	router  *Router
	out     *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	b := &backend{
		users: []user.User{
			{ID: "s1", Name: "Aigerim", Email: "aigerim@uni.kz", StudentID: "210101", Role: user.RoleStudent},
			{ID: "s2", Name: "Bolat", Email: "bolat@uni.kz", StudentID: "210102", Role: user.RoleStudent},
			{ID: "t1", Name: "Dana", Email: "dana@uni.kz", StudentID: "T-7", Role: user.RoleTeacher},
		},
		classes: []classroom.Class{
			{ID: "c1", Name: "Math", Schedule: "Mon 9:00", TeacherID: "t1", TeacherName: "Dana"},
			{ID: "c2", Name: "Physics", TeacherID: "t1", TeacherName: "Dana"},
		},
		bulkKeep: map[string]bool{},
	}
	day := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		b.events = append(b.events, attendance.Event{
			ID: fmt.Sprintf("m%d", i), StudentID: "s1", StudentName: "Aigerim",
			ClassID: "c1", SubjectName: "Math", Date: day.AddDate(0, 0, i),
		})
	}
	b.events = append(b.events, attendance.Event{
		ID: "p0", StudentID: "s1", StudentName: "Aigerim", ClassID: "c2", SubjectName: "Physics", Date: day,
	})

	sess := session.NewService(session.NewMemoryStore(), "", logger.Discard())
	app := NewApp(Dependencies{
		Session:           sess,
		Users:             fakeUsers{b},
		Classes:           fakeClasses{b},
		Attendance:        fakeEvents{b},
		UserGateway:       fakeUsers{b},
		ClassGateway:      fakeClasses{b},
		AttendanceGateway: fakeEvents{b},
		Threshold:         attendance.DefaultThreshold,
		Logger:            logger.Discard(),
	})

	out := &bytes.Buffer{}
	r := NewRouter(RouterConfig{Out: out, Logger: logger.Discard()})
	app.Register(r)

	return &testEnv{backend: b, session: sess, router: r, out: out}
}

func (e *testEnv) run(args ...string) error {
	e.out.Reset()
	return e.router.Run(context.Background(), args)
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// ══════════════════════════════════════════════════════════════════════════════

func TestRouter_Usage(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.run())
	assert.Contains(t, env.out.String(), "usage: classtrack <command>")
	assert.Contains(t, env.out.String(), "delete-student <id>")

	require.NoError(t, env.run("help"))
	assert.Contains(t, env.out.String(), "export-class <id> <file.xlsx>")
}

func TestRouter_RejectsBadCommandLines(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"enroll"}},
		{"missing argument", []string{"student"}},
		{"extra argument", []string{"classes", "all"}},
		{"unknown flag", []string{"students", "--page", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.run(tt.args...)
			var usage *UsageError
			require.ErrorAs(t, err, &usage)
			assert.Contains(t, Alert(err), "Alert: ")
		})
	}
}

func TestRouter_RecoversFromPanics(t *testing.T) {
	r := NewRouter(RouterConfig{Logger: logger.Discard()})
	r.RegisterCommand(Command{Name: "boom", Handle: func(context.Context, CommandContext) error {
		panic("nil map")
	}})

	err := r.Run(context.Background(), []string{"boom"})
	require.ErrorIs(t, err, ErrPanic)
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION
// ══════════════════════════════════════════════════════════════════════════════

func TestSessionCommands(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.run("whoami")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	assert.Contains(t, Alert(err), "not authorized")

	require.NoError(t, env.run("login", "--name", "Dana", "--email", "dana@uni.kz", "--token", "tok", "--role", "Teacher"))
	assert.Equal(t, "Logged in as Dana <dana@uni.kz>.\n", env.out.String())

	token, err := env.session.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	require.NoError(t, env.run("whoami"))
	assert.Equal(t, "Dana <dana@uni.kz>\n", env.out.String())

	require.NoError(t, env.run("logout"))
	_, err = env.session.Current(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestLogin_RequiresNameAndEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.run("login", "--token", "tok")
	require.ErrorIs(t, err, shared.ErrValidation)
}

// ══════════════════════════════════════════════════════════════════════════════
// LISTS AND PROFILES
// ══════════════════════════════════════════════════════════════════════════════

func TestStudents_ListAndFilter(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.run("students"))
	out := env.out.String()
	assert.Contains(t, out, "Aigerim")
	assert.Contains(t, out, "Bolat")
	assert.NotContains(t, out, "Dana")

	require.NoError(t, env.run("students", "BOLAT"))
	assert.NotContains(t, env.out.String(), "Aigerim")
	assert.Contains(t, env.out.String(), "210102")

	require.NoError(t, env.run("students", "nobody"))
	assert.Equal(t, "No students found.\n", env.out.String())
}

func TestStudent_ShowsCriticalSubjects(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.run("student", "s1"))
	out := env.out.String()
	assert.Contains(t, out, "Attendance: 11 records, 1 critical subject(s), threshold 10")
	assert.Contains(t, out, "10/10")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "1/10")
	assert.Less(t, bytes.Index(env.out.Bytes(), []byte("Math")), bytes.Index(env.out.Bytes(), []byte("Physics")))
}

func TestStudent_NotFound(t *testing.T) {
	env := newTestEnv(t)

	err := env.run("student", "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Contains(t, Alert(err), "user not found")
}

func TestClassAndTeacher(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.run("class", "c1"))
	assert.Contains(t, env.out.String(), "Schedule: Mon 9:00")
	assert.Contains(t, env.out.String(), "Aigerim")

	require.NoError(t, env.run("teacher", "t1"))
	assert.Contains(t, env.out.String(), "Dana (dana@uni.kz)")
	assert.Contains(t, env.out.String(), "Physics")

	require.NoError(t, env.run("classes"))
	assert.Contains(t, env.out.String(), "Mon 9:00")
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITES
// ══════════════════════════════════════════════════════════════════════════════

func TestAddStudent(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.run("add-student", "--name", "Erlan", "--email", "erlan@uni.kz",
		"--password", "longenough", "--student-id", "210103"))
	assert.Contains(t, env.out.String(), "Created student Erlan")

	created := env.backend.users[len(env.backend.users)-1]
	assert.Equal(t, user.RoleStudent, created.Role)
}

func TestAddTeacher_ValidatesBeforeCalling(t *testing.T) {
	env := newTestEnv(t)
	before := len(env.backend.users)

	err := env.run("add-teacher", "--name", "Gulnar", "--email", "gulnar@uni.kz", "--student-id", "T-8")
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, Alert(err), "Password")
	assert.Len(t, env.backend.users, before)
}

func TestUpdateUserAndClass(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.run("update-user", "s2", "--name", "Bolat K."))
	assert.Equal(t, "Updated student Bolat K..\n", env.out.String())

	err := env.run("update-user", "s2", "--password", "newsecret")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)

	require.NoError(t, env.run("update-class", "c2", "--name", "Physics II"))
	assert.Equal(t, "Physics II", env.backend.classes[1].Name)

	require.NoError(t, env.run("add-class", "--name", "Chemistry", "--teacher", "t1"))
	assert.Len(t, env.backend.classes, 3)
}

func TestRecordAttendance(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.run("record", "s2", "c1", "--date", "2024-09-20"))
	assert.Contains(t, env.out.String(), "on 2024-09-20")

	err := env.run("record", "s2", "c1", "--date", "20/09/2024")
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETES
// ══════════════════════════════════════════════════════════════════════════════

func TestDeleteStudent_RemovesEventsThenStudent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.session.Start(ctx, session.Session{UserName: "Aigerim", UserEmail: "aigerim@uni.kz", UserID: "s1"}))

	require.NoError(t, env.run("delete-student", "s1"))
	assert.Equal(t, "Deleted student Aigerim and 11 attendance record(s).\n", env.out.String())

	assert.Empty(t, env.backend.events)
	for _, u := range env.backend.users {
		assert.NotEqual(t, "s1", u.ID)
	}

	_, err := env.session.Current(ctx)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestDeleteStudent_PartialFailureKeepsStudent(t *testing.T) {
	env := newTestEnv(t)
	env.backend.bulkKeep["m3"] = true

	err := env.run("delete-student", "s1")
	var partial *shared.PartialDeleteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"m3"}, partial.Failed)
	assert.Len(t, partial.Deleted, 10)

	alert := Alert(err)
	assert.Contains(t, alert, "aborted")
	assert.Contains(t, alert, "run the delete again")

	require.Len(t, env.backend.events, 1)
	assert.Equal(t, "m3", env.backend.events[0].ID)

	_, lookupErr := fakeUsers{env.backend}.GetUser(context.Background(), "s1")
	assert.NoError(t, lookupErr)
}

func TestDeleteClass_RefusedRemotely(t *testing.T) {
	env := newTestEnv(t)

	err := env.run("delete-class", "missing")
	require.ErrorIs(t, err, shared.ErrRemoteWrite)

	require.NoError(t, env.run("delete-teacher", "t1"))
	assert.Equal(t, "Deleted teacher.\n", env.out.String())
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORTS
// ══════════════════════════════════════════════════════════════════════════════

func TestExportStudentAndClass(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()

	studentFile := filepath.Join(dir, "aigerim.xlsx")
	require.NoError(t, env.run("export-student", "s1", studentFile))
	info, err := os.Stat(studentFile)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	classFile := filepath.Join(dir, "math.xlsx")
	require.NoError(t, env.run("export-class", "c1", classFile))
	_, err = os.Stat(classFile)
	require.NoError(t, err)

	err = env.run("export-student", "s1", filepath.Join(dir, "missing", "x.xlsx"))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTER & ALERTS
// ══════════════════════════════════════════════════════════════════════════════

func TestPresenter_Bar(t *testing.T) {
	p := &Presenter{barWidth: 10}

	assert.Equal(t, "[..........]", p.Bar(0))
	assert.Equal(t, "[#####.....]", p.Bar(0.5))
	assert.Equal(t, "[##########]", p.Bar(1))
	assert.Equal(t, "[##########]+", p.Bar(1.5))
}

func TestAlert(t *testing.T) {
	assert.Empty(t, Alert(nil))

	netErr := &shared.NetworkError{Op: "ListUsers", Err: errors.New("connection refused")}
	assert.Equal(t,
		"Alert: cannot reach the content server: network error during ListUsers: connection refused",
		Alert(fmt.Errorf("list students: %w", netErr)))

	assert.Equal(t, "Alert: first second", Alert(errors.New("first\n  second")))
}
