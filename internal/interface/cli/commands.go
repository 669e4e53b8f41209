package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/classtrack/classtrack/internal/application/command"
	"github.com/classtrack/classtrack/internal/application/query"
	"github.com/classtrack/classtrack/internal/application/session"
	"github.com/classtrack/classtrack/internal/application/view"
	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/domain/user"
	"github.com/classtrack/classtrack/internal/infrastructure/report"
	"github.com/classtrack/classtrack/pkg/logger"
)

// Register adds every classtrack command to r.
func (a *App) Register(r *Router) {
	// Session
	r.RegisterCommand(Command{
		Name: "login", Usage: "--name NAME --email EMAIL [--token TOKEN] [--user-id ID] [--role ROLE]",
		Summary: "store the local session", MaxArgs: 0,
		Flags: func(fs *pflag.FlagSet) {
			fs.String("name", "", "display name")
			fs.String("email", "", "email address")
			fs.String("token", "", "API bearer token")
			fs.String("user-id", "", "account id")
			fs.String("role", "", "account role")
		},
		Handle: a.login,
	})
	r.RegisterCommand(Command{Name: "logout", Summary: "clear the local session", MaxArgs: 0, Handle: a.logout})
	r.RegisterCommand(Command{Name: "whoami", Summary: "show the local session", MaxArgs: 0, Handle: a.whoami})

	// Lists and profiles
	r.RegisterCommand(Command{
		Name: "students", Usage: "[filter]", Summary: "list students", MaxArgs: 1,
		Handle: a.listUsersOf(user.RoleStudent),
	})
	r.RegisterCommand(Command{
		Name: "teachers", Usage: "[filter]", Summary: "list teachers", MaxArgs: 1,
		Handle: a.listUsersOf(user.RoleTeacher),
	})
	r.RegisterCommand(Command{Name: "classes", Summary: "list classes", MaxArgs: 0, Handle: a.showClasses})
	r.RegisterCommand(Command{
		Name: "student", Usage: "<id>", Summary: "show a student's attendance per subject",
		MinArgs: 1, MaxArgs: 1, Handle: a.showStudent,
	})
	r.RegisterCommand(Command{
		Name: "class", Usage: "<id>", Summary: "show a class and its attendance roster",
		MinArgs: 1, MaxArgs: 1, Handle: a.showClass,
	})
	r.RegisterCommand(Command{
		Name: "teacher", Usage: "<id>", Summary: "show a teacher and their classes",
		MinArgs: 1, MaxArgs: 1, Handle: a.showTeacher,
	})

	// Writes
	r.RegisterCommand(Command{
		Name: "add-student", Usage: "--name NAME --email EMAIL --password PASSWORD --student-id NUMBER",
		Summary: "create a student", MaxArgs: 0, Flags: userFlags, Handle: a.addUser(user.RoleStudent),
	})
	r.RegisterCommand(Command{
		Name: "add-teacher", Usage: "--name NAME --email EMAIL --password PASSWORD --student-id NUMBER",
		Summary: "create a teacher", MaxArgs: 0, Flags: userFlags, Handle: a.addUser(user.RoleTeacher),
	})
	r.RegisterCommand(Command{
		Name: "update-user", Usage: "<id> [--name NAME] [--email EMAIL] [--student-id NUMBER] [--teacher]",
		Summary: "change a student or teacher", MinArgs: 1, MaxArgs: 1,
		Flags: func(fs *pflag.FlagSet) {
			userFlags(fs)
			fs.Bool("teacher", false, "the account is a teacher")
		},
		Handle: a.updateUser,
	})
	r.RegisterCommand(Command{
		Name: "add-class", Usage: "--name NAME --teacher ID [--description TEXT] [--schedule TEXT]",
		Summary: "create a class", MaxArgs: 0, Flags: classFlags, Handle: a.addClass,
	})
	r.RegisterCommand(Command{
		Name: "update-class", Usage: "<id> [--name NAME] [--teacher ID] [--description TEXT] [--schedule TEXT]",
		Summary: "change a class", MinArgs: 1, MaxArgs: 1, Flags: classFlags, Handle: a.updateClass,
	})
	r.RegisterCommand(Command{
		Name: "record", Usage: "<student-id> <class-id> [--date YYYY-MM-DD] [--unrecognized] [--confidence N] [--image URL]",
		Summary: "record an attendance event", MinArgs: 2, MaxArgs: 2,
		Flags: func(fs *pflag.FlagSet) {
			fs.String("date", "", "event date, RFC 3339 or YYYY-MM-DD (default now)")
			fs.Bool("unrecognized", false, "the face was not recognized")
			fs.Float64("confidence", 0, "recognition confidence score")
			fs.String("image", "", "captured image URL")
		},
		Handle: a.recordAttendance,
	})

	// Deletes
	r.RegisterCommand(Command{
		Name: "delete-student", Usage: "<id>", Summary: "delete a student and their attendance",
		MinArgs: 1, MaxArgs: 1, Handle: a.deleteStudentCmd,
	})
	r.RegisterCommand(Command{
		Name: "delete-teacher", Usage: "<id>", Summary: "delete a teacher",
		MinArgs: 1, MaxArgs: 1, Handle: a.deleteTeacher,
	})
	r.RegisterCommand(Command{
		Name: "delete-class", Usage: "<id>", Summary: "delete a class",
		MinArgs: 1, MaxArgs: 1, Handle: a.deleteClass,
	})
	r.RegisterCommand(Command{
		Name: "delete-attendance", Usage: "<id>", Summary: "delete one attendance event",
		MinArgs: 1, MaxArgs: 1, Handle: a.deleteAttendance,
	})

	// Reports
	r.RegisterCommand(Command{
		Name: "export-student", Usage: "<id> <file.xlsx>", Summary: "write a student's attendance report",
		MinArgs: 2, MaxArgs: 2, Handle: a.exportStudent,
	})
	r.RegisterCommand(Command{
		Name: "export-class", Usage: "<id> <file.xlsx>", Summary: "write a class roster report",
		MinArgs: 2, MaxArgs: 2, Handle: a.exportClass,
	})
}

func userFlags(fs *pflag.FlagSet) {
	fs.String("name", "", "full name")
	fs.String("email", "", "email address")
	fs.String("password", "", "initial password (8-72 characters)")
	fs.String("student-id", "", "institution-issued student number")
}

func classFlags(fs *pflag.FlagSet) {
	fs.String("name", "", "class name")
	fs.String("teacher", "", "teacher account id")
	fs.String("description", "", "free-text description")
	fs.String("schedule", "", "schedule, at most 50 characters")
}

// optional returns a pointer to the flag value when it was set.
func optional(cmd CommandContext, name string) *string {
	if !cmd.Changed(name) {
		return nil
	}
	v := cmd.String(name)
	return &v
}

// ─────────────────────────────────────────────────────────────────────────────
// SESSION
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) login(ctx context.Context, cmd CommandContext) error {
	sess := session.Session{
		Token:     cmd.String("token"),
		UserID:    cmd.String("user-id"),
		UserName:  cmd.String("name"),
		UserEmail: cmd.String("email"),
		Role:      cmd.String("role"),
	}
	if sess.Role != "" {
		role, err := user.ParseRole(sess.Role)
		if err != nil {
			return err
		}
		sess.Role = role.String()
	}
	if err := a.session.Start(ctx, sess); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.Out, "Logged in as %s <%s>.\n", sess.UserName, sess.UserEmail)
	return err
}

func (a *App) logout(ctx context.Context, cmd CommandContext) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.Out, "Logged out.")
	return err
}

func (a *App) whoami(ctx context.Context, cmd CommandContext) error {
	sess, err := a.session.Current(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Out, "%s <%s>\n", sess.UserName, sess.UserEmail)
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// LISTS AND PROFILES
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) listUsersOf(role user.Role) CommandHandler {
	return func(ctx context.Context, cmd CommandContext) error {
		state := a.userState(role)
		err := state.Load(ctx, func(ctx context.Context) ([]user.User, error) {
			return a.listUsers.Handle(ctx, query.ListUsersQuery{Role: role, Filter: cmd.Arg(0)})
		})
		if err != nil {
			return err
		}
		return a.presenter.Users(cmd.Out, state.Cache.Items(), role)
	}
}

func (a *App) showClasses(ctx context.Context, cmd CommandContext) error {
	if err := a.classList.Load(ctx, a.listClasses.Handle); err != nil {
		return err
	}
	return a.presenter.Classes(cmd.Out, a.classList.Cache.Items())
}

func (a *App) showStudent(ctx context.Context, cmd CommandContext) error {
	profile, err := a.studentProfile.Handle(ctx, query.GetStudentProfileQuery{StudentID: cmd.Arg(0)})
	if err != nil {
		return err
	}
	return a.presenter.StudentProfile(cmd.Out, profile)
}

func (a *App) showClass(ctx context.Context, cmd CommandContext) error {
	details, err := a.classDetails.Handle(ctx, query.GetClassDetailsQuery{ClassID: cmd.Arg(0)})
	if err != nil {
		return err
	}
	return a.presenter.ClassDetails(cmd.Out, details)
}

func (a *App) showTeacher(ctx context.Context, cmd CommandContext) error {
	profile, err := a.teacherProfile.Handle(ctx, cmd.Arg(0))
	if err != nil {
		return err
	}
	return a.presenter.TeacherProfile(cmd.Out, profile)
}

// ─────────────────────────────────────────────────────────────────────────────
// WRITES
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) addUser(role user.Role) CommandHandler {
	return func(ctx context.Context, cmd CommandContext) error {
		payload := command.CreateUserPayload{
			Name:      cmd.String("name"),
			Email:     cmd.String("email"),
			Password:  cmd.String("password"),
			StudentID: cmd.String("student-id"),
		}
		created, err := a.userFacade(role).Create(ctx, payload, a.userState(role).Cache)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.Out, "Created %s %s (%s).\n", role, created.Name, created.ID)
		return err
	}
}

func (a *App) updateUser(ctx context.Context, cmd CommandContext) error {
	role := user.RoleStudent
	if v, _ := cmd.Flags.GetBool("teacher"); v {
		role = user.RoleTeacher
	}
	if cmd.Changed("password") {
		return &UsageError{Command: "update-user", Msg: "the password cannot be changed here"}
	}

	payload := command.UpdateUserPayload{
		Name:      optional(cmd, "name"),
		Email:     optional(cmd, "email"),
		StudentID: optional(cmd, "student-id"),
	}
	updated, err := a.userFacade(role).Update(ctx, cmd.Arg(0), payload, a.userState(role).Cache)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Out, "Updated %s %s.\n", role, updated.Name)
	return err
}

func (a *App) addClass(ctx context.Context, cmd CommandContext) error {
	payload := command.CreateClassPayload{
		Name:        cmd.String("name"),
		Description: cmd.String("description"),
		Schedule:    cmd.String("schedule"),
		TeacherID:   cmd.String("teacher"),
	}
	created, err := a.classes.Create(ctx, payload, a.classList.Cache)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Out, "Created class %s (%s).\n", created.Name, created.ID)
	return err
}

func (a *App) updateClass(ctx context.Context, cmd CommandContext) error {
	payload := command.UpdateClassPayload{
		Name:        optional(cmd, "name"),
		Description: optional(cmd, "description"),
		Schedule:    optional(cmd, "schedule"),
		TeacherID:   optional(cmd, "teacher"),
	}
	updated, err := a.classes.Update(ctx, cmd.Arg(0), payload, a.classList.Cache)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Out, "Updated class %s.\n", updated.Name)
	return err
}

func (a *App) recordAttendance(ctx context.Context, cmd CommandContext) error {
	date := time.Now().UTC()
	if raw := cmd.String("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return &UsageError{Command: "record", Msg: err.Error()}
		}
		date = parsed
	}
	unrecognized, _ := cmd.Flags.GetBool("unrecognized")
	confidence, _ := cmd.Flags.GetFloat64("confidence")

	event, err := a.attendance.Create(ctx, command.CreateAttendancePayload{
		StudentID:        cmd.Arg(0),
		ClassID:          cmd.Arg(1),
		Date:             date,
		Recognized:       !unrecognized,
		ConfidenceScore:  confidence,
		ImageCapturedURL: cmd.String("image"),
	}, nil)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Out, "Recorded attendance %s for %s in %s on %s.\n",
		event.ID, orDash(event.StudentName), orDash(event.SubjectName), event.Date.Format(time.DateOnly))
	return err
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD or RFC 3339", raw)
	}
	return t, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// DELETES
// ─────────────────────────────────────────────────────────────────────────────

// deleteStudentCmd loads the student's tallies for the event ids, then runs
// the two-phase delete.
func (a *App) deleteStudentCmd(ctx context.Context, cmd CommandContext) error {
	id := cmd.Arg(0)
	profile, err := a.studentProfile.Handle(ctx, query.GetStudentProfileQuery{StudentID: id})
	if err != nil {
		return err
	}

	result, err := a.deleteStudent.Handle(ctx, command.NewDeleteStudentCommand(id, profile.Tallies), a.studentList.Cache)
	if err != nil {
		return err
	}
	a.logger.Info("student removed", logger.StudentID(id), logger.Count(len(result.DeletedEvents)))
	_, err = fmt.Fprintf(cmd.Out, "Deleted student %s and %d attendance record(s).\n",
		profile.Student.Name, len(result.DeletedEvents))
	return err
}

func (a *App) deleteTeacher(ctx context.Context, cmd CommandContext) error {
	if err := a.teachers.Delete(ctx, cmd.Arg(0), a.teacherList.Cache); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.Out, "Deleted teacher.")
	return err
}

func (a *App) deleteClass(ctx context.Context, cmd CommandContext) error {
	if err := a.classes.Delete(ctx, cmd.Arg(0), a.classList.Cache); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.Out, "Deleted class.")
	return err
}

func (a *App) deleteAttendance(ctx context.Context, cmd CommandContext) error {
	if err := a.attendance.Delete(ctx, cmd.Arg(0), nil); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.Out, "Deleted attendance event.")
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// REPORTS
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) exportStudent(ctx context.Context, cmd CommandContext) error {
	profile, err := a.studentProfile.Handle(ctx, query.GetStudentProfileQuery{StudentID: cmd.Arg(0)})
	if err != nil {
		return err
	}
	return writeReport(cmd, cmd.Arg(1), func(f *os.File) error {
		return report.WriteStudentProfile(f, profile)
	})
}

func (a *App) exportClass(ctx context.Context, cmd CommandContext) error {
	details, err := a.classDetails.Handle(ctx, query.GetClassDetailsQuery{ClassID: cmd.Arg(0)})
	if err != nil {
		return err
	}
	return writeReport(cmd, cmd.Arg(1), func(f *os.File) error {
		return report.WriteClassRoster(f, details)
	})
}

func writeReport(cmd CommandContext, path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return shared.WrapError("report", "Export", shared.ErrInvalidInput, "cannot create "+path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	_, err = fmt.Fprintf(cmd.Out, "Wrote %s.\n", path)
	return err
}

// ─────────────────────────────────────────────────────────────────────────────
// HELPERS
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) userFacade(role user.Role) *command.Facade[user.User, command.CreateUserPayload, command.UpdateUserPayload] {
	if role == user.RoleTeacher {
		return a.teachers
	}
	return a.students
}

func (a *App) userState(role user.Role) *view.State[user.User] {
	if role == user.RoleTeacher {
		return a.teacherList
	}
	return a.studentList
}
