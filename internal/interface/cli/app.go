package cli

import (
	"log/slog"

	"github.com/classtrack/classtrack/internal/application/command"
	"github.com/classtrack/classtrack/internal/application/query"
	"github.com/classtrack/classtrack/internal/application/session"
	"github.com/classtrack/classtrack/internal/application/view"
	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/user"
	"github.com/classtrack/classtrack/pkg/logger"
)

// Dependencies contains everything the commands need.
type Dependencies struct {
	Session *session.Service

	Users      query.UserReader
	Classes    query.ClassReader
	Attendance query.AttendanceReader

	UserGateway       command.UserGateway
	ClassGateway      command.ClassGateway
	// AttendanceGateway also deletes a student's events, in bulk when it
	// implements command.BulkAttendanceDeleter.
	AttendanceGateway command.AttendanceGateway

	// Threshold is the critical attendance count.
	Threshold int

	Logger *slog.Logger
}

// App holds the use cases and per-list view state behind the commands.
type App struct {
	session *session.Service

	listUsers      *query.ListUsersHandler
	listClasses    *query.ListClassesHandler
	studentProfile *query.GetStudentProfileHandler
	classDetails   *query.GetClassDetailsHandler
	teacherProfile *query.GetTeacherProfileHandler

	students      *command.Facade[user.User, command.CreateUserPayload, command.UpdateUserPayload]
	teachers      *command.Facade[user.User, command.CreateUserPayload, command.UpdateUserPayload]
	classes       *command.Facade[classroom.Class, command.CreateClassPayload, command.UpdateClassPayload]
	attendance    *command.Facade[attendance.Event, command.CreateAttendancePayload, command.UpdateAttendancePayload]
	deleteStudent *command.DeleteStudentHandler

	studentList *view.State[user.User]
	teacherList *view.State[user.User]
	classList   *view.State[classroom.Class]

	presenter *Presenter
	logger    *slog.Logger
}

// NewApp wires the query handlers and façades.
func NewApp(deps Dependencies) *App {
	log := logger.OrDefault(deps.Logger)
	threshold := deps.Threshold
	if threshold <= 0 {
		threshold = attendance.DefaultThreshold
	}

	students := command.NewStudentFacade(deps.UserGateway, log)
	var forgetter command.SessionForgetter
	if deps.Session != nil {
		forgetter = deps.Session
	}

	return &App{
		session: deps.Session,

		listUsers:      query.NewListUsersHandler(deps.Users),
		listClasses:    query.NewListClassesHandler(deps.Classes),
		studentProfile: query.NewGetStudentProfileHandler(deps.Users, deps.Attendance, threshold, log),
		classDetails:   query.NewGetClassDetailsHandler(deps.Classes, deps.Attendance, threshold),
		teacherProfile: query.NewGetTeacherProfileHandler(deps.Users, deps.Classes),

		students:      students,
		teachers:      command.NewTeacherFacade(deps.UserGateway, log),
		classes:       command.NewClassFacade(deps.ClassGateway, log),
		attendance:    command.NewAttendanceFacade(deps.AttendanceGateway, log),
		deleteStudent: command.NewDeleteStudentHandler(deps.AttendanceGateway, students, forgetter, log),

		studentList: view.NewState[user.User](),
		teacherList: view.NewState[user.User](),
		classList:   view.NewState[classroom.Class](),

		presenter: NewPresenter(),
		logger:    log.With(logger.Component("cli-app")),
	}
}
