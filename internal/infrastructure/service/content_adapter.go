package service

import (
	"context"
	"time"

	"github.com/classtrack/classtrack/internal/application/command"
	"github.com/classtrack/classtrack/internal/application/query"
	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/user"
	"github.com/classtrack/classtrack/internal/infrastructure/external/content"
)

var (
	_ query.UserReader              = (*ContentReader)(nil)
	_ query.ClassReader             = (*ContentReader)(nil)
	_ query.AttendanceReader        = (*ContentReader)(nil)
	_ command.UserGateway           = (*UserGateway)(nil)
	_ command.ClassGateway          = (*ClassGateway)(nil)
	_ command.AttendanceGateway     = (*AttendanceGateway)(nil)
	_ command.BulkAttendanceDeleter = (*AttendanceGateway)(nil)
)

// ══════════════════════════════════════════════════════════════════════════════
// READS
// ══════════════════════════════════════════════════════════════════════════════

// ContentReader adapts content.Client to the query reader interfaces.
type ContentReader struct {
	client *content.Client
	mapper *content.Mapper
}

func NewContentReader(client *content.Client) *ContentReader {
	return &ContentReader{client: client, mapper: content.NewMapper()}
}

func (r *ContentReader) ListUsersByRole(ctx context.Context, role user.Role) ([]user.User, error) {
	dtos, err := r.client.ListUsersByRole(ctx, role.String())
	if err != nil {
		return nil, err
	}
	return r.mapper.UsersFromDTOs(dtos)
}

func (r *ContentReader) GetUser(ctx context.Context, id string) (*user.User, error) {
	dto, err := r.client.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.mapper.UserFromDTO(dto)
}

func (r *ContentReader) ListClasses(ctx context.Context) ([]classroom.Class, error) {
	dtos, err := r.client.ListClasses(ctx)
	if err != nil {
		return nil, err
	}
	return r.mapper.ClassesFromDTOs(dtos)
}

func (r *ContentReader) ListClassesByTeacher(ctx context.Context, teacherID string) ([]classroom.Class, error) {
	dtos, err := r.client.ListClassesByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	return r.mapper.ClassesFromDTOs(dtos)
}

func (r *ContentReader) GetClass(ctx context.Context, id string) (*classroom.Class, error) {
	dto, err := r.client.GetClass(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.mapper.ClassFromDTO(dto)
}

func (r *ContentReader) ListByStudent(ctx context.Context, studentID string) ([]attendance.Event, error) {
	dtos, err := r.client.ListAttendanceByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return r.mapper.EventsFromDTOs(dtos)
}

func (r *ContentReader) ListByClass(ctx context.Context, classID string) ([]attendance.Event, error) {
	dtos, err := r.client.ListAttendanceByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	return r.mapper.EventsFromDTOs(dtos)
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITES
// ══════════════════════════════════════════════════════════════════════════════

// UserGateway adapts content.Client to command.UserGateway.
type UserGateway struct {
	client *content.Client
	mapper *content.Mapper
}

func NewUserGateway(client *content.Client) *UserGateway {
	return &UserGateway{client: client, mapper: content.NewMapper()}
}

func (g *UserGateway) Create(ctx context.Context, p command.CreateUserPayload) (user.User, error) {
	dto, err := g.client.CreateUser(ctx, content.UserCreateInput{
		Name:      p.Name,
		Email:     p.Email,
		Password:  p.Password,
		StudentID: p.StudentID,
		Role:      p.Role.String(),
	})
	if err != nil {
		return user.User{}, err
	}
	u, err := g.mapper.UserFromDTO(dto)
	if err != nil {
		return user.User{}, err
	}
	return *u, nil
}

func (g *UserGateway) Update(ctx context.Context, id string, p command.UpdateUserPayload) (user.User, error) {
	dto, err := g.client.UpdateUser(ctx, id, content.UserUpdateInput{
		Name:      p.Name,
		Email:     p.Email,
		StudentID: p.StudentID,
	})
	if err != nil {
		return user.User{}, err
	}
	u, err := g.mapper.UserFromDTO(dto)
	if err != nil {
		return user.User{}, err
	}
	return *u, nil
}

func (g *UserGateway) Delete(ctx context.Context, id string) error {
	return g.client.DeleteUser(ctx, id)
}

// ClassGateway adapts content.Client to command.ClassGateway.
type ClassGateway struct {
	client *content.Client
	mapper *content.Mapper
}

func NewClassGateway(client *content.Client) *ClassGateway {
	return &ClassGateway{client: client, mapper: content.NewMapper()}
}

func (g *ClassGateway) Create(ctx context.Context, p command.CreateClassPayload) (classroom.Class, error) {
	dto, err := g.client.CreateClass(ctx, content.ClassCreateInput{
		Name:        p.Name,
		Description: p.Description,
		Schedule:    p.Schedule,
		Teacher:     connect(p.TeacherID),
	})
	if err != nil {
		return classroom.Class{}, err
	}
	c, err := g.mapper.ClassFromDTO(dto)
	if err != nil {
		return classroom.Class{}, err
	}
	return *c, nil
}

func (g *ClassGateway) Update(ctx context.Context, id string, p command.UpdateClassPayload) (classroom.Class, error) {
	in := content.ClassUpdateInput{
		Name:        p.Name,
		Description: p.Description,
		Schedule:    p.Schedule,
	}
	if p.TeacherID != nil {
		in.Teacher = connect(*p.TeacherID)
	}
	dto, err := g.client.UpdateClass(ctx, id, in)
	if err != nil {
		return classroom.Class{}, err
	}
	c, err := g.mapper.ClassFromDTO(dto)
	if err != nil {
		return classroom.Class{}, err
	}
	return *c, nil
}

func (g *ClassGateway) Delete(ctx context.Context, id string) error {
	return g.client.DeleteClass(ctx, id)
}

// AttendanceGateway adapts content.Client to command.AttendanceGateway. It
// also satisfies command.BulkAttendanceDeleter.
type AttendanceGateway struct {
	client *content.Client
	mapper *content.Mapper
}

func NewAttendanceGateway(client *content.Client) *AttendanceGateway {
	return &AttendanceGateway{client: client, mapper: content.NewMapper()}
}

func (g *AttendanceGateway) Create(ctx context.Context, p command.CreateAttendancePayload) (attendance.Event, error) {
	in := content.AttendanceCreateInput{
		Recognized:       content.RecognizedValue(p.Recognized),
		ConfidenceScore:  p.ConfidenceScore,
		ImageCapturedURL: p.ImageCapturedURL,
		User:             *connect(p.StudentID),
		Class:            *connect(p.ClassID),
	}
	if !p.Date.IsZero() {
		d := p.Date.UTC().Truncate(time.Second)
		in.Date = &d
	}
	dto, err := g.client.CreateAttendance(ctx, in)
	if err != nil {
		return attendance.Event{}, err
	}
	e, err := g.mapper.EventFromDTO(dto)
	if err != nil {
		return attendance.Event{}, err
	}
	return *e, nil
}

func (g *AttendanceGateway) Update(ctx context.Context, id string, p command.UpdateAttendancePayload) (attendance.Event, error) {
	in := content.AttendanceUpdateInput{
		Date:             p.Date,
		ConfidenceScore:  p.ConfidenceScore,
		ImageCapturedURL: p.ImageCapturedURL,
	}
	if p.Recognized != nil {
		v := content.RecognizedValue(*p.Recognized)
		in.Recognized = &v
	}
	dto, err := g.client.UpdateAttendance(ctx, id, in)
	if err != nil {
		return attendance.Event{}, err
	}
	e, err := g.mapper.EventFromDTO(dto)
	if err != nil {
		return attendance.Event{}, err
	}
	return *e, nil
}

func (g *AttendanceGateway) Delete(ctx context.Context, id string) error {
	return g.client.DeleteAttendance(ctx, id)
}

func (g *AttendanceGateway) DeleteMany(ctx context.Context, ids []string) ([]string, error) {
	return g.client.DeleteAttendances(ctx, ids)
}

func connect(id string) *content.Connect {
	return &content.Connect{Connect: content.WhereUnique{ID: id}}
}
