package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/domain/user"
	"github.com/classtrack/classtrack/internal/infrastructure/external/content"
	"github.com/classtrack/classtrack/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVER REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// ResolverFunc resolves one persisted operation. vars is the raw
// "variables" object, possibly empty.
type ResolverFunc func(ctx context.Context, vars json.RawMessage) (any, error)

type resolver struct {
	field string
	fn    ResolverFunc
}

// Resolvers maps operation names to the root field they answer and the
// function producing it. The query text is never parsed.
type Resolvers struct {
	byOp map[string]resolver
}

// Register adds or replaces the resolver for op.
func (rs *Resolvers) Register(op, field string, fn ResolverFunc) {
	if rs.byOp == nil {
		rs.byOp = make(map[string]resolver)
	}
	rs.byOp[op] = resolver{field: field, fn: fn}
}

// Lookup returns the resolver registered for op.
func (rs *Resolvers) Lookup(op string) (field string, fn ResolverFunc, ok bool) {
	r, ok := rs.byOp[op]
	return r.field, r.fn, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT RESOLVERS
// ══════════════════════════════════════════════════════════════════════════════

// ContentResolvers answers the operations issued by content.Client from
// the PostgreSQL repositories.
type ContentResolvers struct {
	users   user.Repository
	classes classroom.Repository
	events  attendance.Repository

	mapper     *content.Mapper
	validate   *validator.Validate
	bcryptCost int
	newID      func() string
	logger     *slog.Logger
}

// ResolverOption configures ContentResolvers.
type ResolverOption func(*ContentResolvers)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) ResolverOption {
	return func(r *ContentResolvers) { r.bcryptCost = cost }
}

// WithIDGenerator overrides uuid.NewString for new entities.
func WithIDGenerator(fn func() string) ResolverOption {
	return func(r *ContentResolvers) { r.newID = fn }
}

// NewContentResolvers creates the resolvers.
func NewContentResolvers(users user.Repository, classes classroom.Repository, events attendance.Repository, log *slog.Logger, opts ...ResolverOption) *ContentResolvers {
	r := &ContentResolvers{
		users:      users,
		classes:    classes,
		events:     events,
		mapper:     content.NewMapper(),
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		bcryptCost: bcrypt.DefaultCost,
		newID:      uuid.NewString,
		logger:     logger.OrDefault(log).With(logger.Component("graphql")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register wires every content operation into rs.
func (r *ContentResolvers) Register(rs *Resolvers) {
	rs.Register(content.OpHealth, "__typename", func(context.Context, json.RawMessage) (any, error) {
		return "Query", nil
	})

	rs.Register(content.OpListUsersByRole, "users", r.listUsers)
	rs.Register(content.OpGetUser, "users", r.listUsers)
	rs.Register(content.OpCreateUser, "createUser", r.createUser)
	rs.Register(content.OpUpdateUser, "updateUser", r.updateUser)
	rs.Register(content.OpDeleteUser, "deleteUser", r.deleteUser)

	rs.Register(content.OpListClasses, "classes", r.listClasses)
	rs.Register(content.OpListClassesByTeacher, "classes", r.listClasses)
	rs.Register(content.OpGetClass, "classes", r.listClasses)
	rs.Register(content.OpCreateClass, "createClass", r.createClass)
	rs.Register(content.OpUpdateClass, "updateClass", r.updateClass)
	rs.Register(content.OpDeleteClass, "deleteClass", r.deleteClass)

	rs.Register(content.OpListAttendanceByStudent, "attendances", r.listAttendances)
	rs.Register(content.OpListAttendanceByClass, "attendances", r.listAttendances)
	rs.Register(content.OpCreateAttendance, "createAttendance", r.createAttendance)
	rs.Register(content.OpUpdateAttendance, "updateAttendance", r.updateAttendance)
	rs.Register(content.OpDeleteAttendance, "deleteAttendance", r.deleteAttendance)
	rs.Register(content.OpDeleteAttendances, "deleteAttendances", r.deleteAttendances)
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

type userCreateRules struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
	Role     string `validate:"required,oneof=student teacher administrator"`
}

// listUsers lists by role or fetches one user by id. An unknown or malformed
// id yields an empty list.
func (r *ContentResolvers) listUsers(ctx context.Context, raw json.RawMessage) (any, error) {
	vars, err := decodeVars[content.WhereVars[content.UserWhere]](raw)
	if err != nil {
		return nil, err
	}
	where := vars.Where

	var role user.Role
	if where.Role != nil {
		if role, err = user.ParseRole(where.Role.Equals); err != nil {
			return nil, err
		}
	}

	var users []user.User
	switch {
	case where.ID != nil:
		u, err := r.userByID(ctx, where.ID.Equals)
		if err != nil {
			return nil, err
		}
		if u != nil && (role == "" || u.Role == role) {
			users = append(users, *u)
		}
	case role != "":
		if users, err = r.users.ListByRole(ctx, role); err != nil {
			return nil, err
		}
	default:
		for _, rl := range []user.Role{user.RoleAdministrator, user.RoleTeacher, user.RoleStudent} {
			list, err := r.users.ListByRole(ctx, rl)
			if err != nil {
				return nil, err
			}
			users = append(users, list...)
		}
	}

	out := make([]content.UserDTO, 0, len(users))
	for i := range users {
		out = append(out, r.mapper.UserToDTO(&users[i]))
	}
	return out, nil
}

// userByID returns nil, nil for a malformed or unknown id.
func (r *ContentResolvers) userByID(ctx context.Context, id string) (*user.User, error) {
	if !isUUID(id) {
		return nil, nil
	}
	u, err := r.users.GetByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return u, err
}

func (r *ContentResolvers) createUser(ctx context.Context, raw json.RawMessage) (any, error) {
	vars, err := decodeVars[content.DataVars[content.UserCreateInput]](raw)
	if err != nil {
		return nil, err
	}
	in := vars.Data

	rules := userCreateRules{Name: strings.TrimSpace(in.Name), Email: strings.TrimSpace(in.Email), Password: in.Password, Role: in.Role}
	if err := r.check(ctx, "user", rules); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		ID:        r.newID(),
		Name:      rules.Name,
		Email:     rules.Email,
		StudentID: strings.TrimSpace(in.StudentID),
		Role:      user.Role(in.Role),
	}
	if err := r.users.Create(ctx, u, string(hash)); err != nil {
		return nil, err
	}

	r.logger.Info("user created", logger.UserID(u.ID), slog.String("role", u.Role.String()))
	dto := r.mapper.UserToDTO(u)
	return &dto, nil
}

func (r *ContentResolvers) updateUser(ctx context.Context, raw json.RawMessage) (any, error) {
	vars, err := decodeVars[content.UpdateVars[content.UserUpdateInput]](raw)
	if err != nil {
		return nil, err
	}

	u, err := r.userByID(ctx, vars.Where.ID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, shared.ErrUserNotFound
	}

	in := vars.Data
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.StudentID != nil {
		u.StudentID = strings.TrimSpace(*in.StudentID)
	}

	rules := struct {
		Name  string `validate:"required,max=100"`
		Email string `validate:"required,email"`
	}{u.Name, u.Email}
	if err := r.check(ctx, "user", rules); err != nil {
		return nil, err
	}

	if err := r.users.Update(ctx, u); err != nil {
		return nil, err
	}
	dto := r.mapper.UserToDTO(u)
	return &dto, nil
}

func (r *ContentResolvers) deleteUser(ctx context.Context, raw json.RawMessage) (any, error) {
	id, err := decodeWhereID(raw)
	if err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, shared.ErrUserNotFound
	}
	if err := r.users.Delete(ctx, id); err != nil {
		return nil, err
	}
	r.logger.Info("user deleted", logger.UserID(id))
	return &content.DeletedDTO{ID: id}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Classes
// ─────────────────────────────────────────────────────────────────────────────

func (r *ContentResolvers) listClasses(ctx context.Context, raw json.RawMessage) (any, error) {
	vars, err := decodeVars[content.WhereVars[content.ClassWhere]](raw)
	if err != nil {
		return nil, err
	}
	where := vars.Where

	var classes []classroom.Class
	switch {
	case where.ID != nil:
		c, err := r.classByID(ctx, where.ID.Equals)
		if err != nil {
			return nil, err
		}
		if c != nil {
			classes = append(classes, *c)
		}
	case where.Teacher != nil:
		if isUUID(where.Teacher.ID.Equals) {
			if classes, err = r.classes.ListByTeacher(ctx, where.Teacher.ID.Equals); err != nil {
				return nil, err
			}
		}
	default:
		if classes, err = r.classes.List(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]content.ClassDTO, 0, len(classes))
	for i := range classes {
		out = append(out, r.mapper.ClassToDTO(&classes[i]))
	}
	return out, nil
}

func (r *ContentResolvers) classByID(ctx context.Context, id string) (*classroom.Class, error) {
	if !isUUID(id) {
		return nil, nil
	}
	c, err := r.classes.GetByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

func (r *ContentResolvers) createClass(ctx context.Context, raw json.RawMessage) (any, error) {
	vars, err := decodeVars[content.DataVars[content.ClassCreateInput]](raw)
	if err != nil {
		return nil, err
	}
	in := vars.Data

	c := &classroom.Class{
		ID:          r.newID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Schedule:    in.Schedule,
	}
	if in.Teacher != nil {
		if c.TeacherID, err = connectedID(in.Teacher, shared.ErrUserNotFound); err != nil {
			return nil, err
		}
	}

	if err := r.classes.Create(ctx, c); err != nil {
		return nil, err
	}
	r.logger.Info("class created", logger.ClassID(c.ID))
	dto := r.mapper.ClassToDTO(c)
	return &dto, nil
}

func (r *ContentResolvers) updateClass(ctx context.Context, raw json.RawMessage) (any, error) {
	vars, err := decodeVars[content.UpdateVars[content.ClassUpdateInput]](raw)
	if err != nil {
		return nil, err
	}

	c, err := r.classByID(ctx, vars.Where.ID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, shared.ErrClassNotFound
	}

	in := vars.Data
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Schedule != nil {
		c.Schedule = *in.Schedule
	}
	if in.Teacher != nil {
		if c.TeacherID, err = connectedID(in.Teacher, shared.ErrUserNotFound); err != nil {
			return nil, err
		}
	}

	if err := r.classes.Update(ctx, c); err != nil {
		return nil, err
	}
	dto := r.mapper.ClassToDTO(c)
	return &dto, nil
}

func (r *ContentResolvers) deleteClass(ctx context.Context, raw json.RawMessage) (any, error) {
	id, err := decodeWhereID(raw)
	if err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, shared.ErrClassNotFound
	}
	if err := r.classes.Delete(ctx, id); err != nil {
		return nil, err
	}
	r.logger.Info("class deleted", logger.ClassID(id))
	return &content.DeletedDTO{ID: id}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Attendance
// ─────────────────────────────────────────────────────────────────────────────

func (r *ContentResolvers) listAttendances(ctx context.Context, raw json.RawMessage) (any, error) {
	vars, err := decodeVars[content.WhereVars[content.AttendanceWhere]](raw)
	if err != nil {
		return nil, err
	}
	where := vars.Where

	var events []attendance.Event
	switch {
	case where.User != nil:
		if isUUID(where.User.ID.Equals) {
			if events, err = r.events.ListByStudent(ctx, where.User.ID.Equals); err != nil {
				return nil, err
			}
		}
		if where.Class != nil {
			events = filterEvents(events, func(e attendance.Event) bool { return e.ClassID == where.Class.ID.Equals })
		}
	case where.Class != nil:
		if isUUID(where.Class.ID.Equals) {
			if events, err = r.events.ListByClass(ctx, where.Class.ID.Equals); err != nil {
				return nil, err
			}
		}
	default:
		return nil, shared.NewDomainError("attendance", "List", shared.ErrValidation, "filter by user or class is required")
	}

	out := make([]content.AttendanceDTO, 0, len(events))
	for i := range events {
		out = append(out, r.mapper.EventToDTO(&events[i]))
	}
	return out, nil
}

func (r *ContentResolvers) createAttendance(ctx context.Context, raw json.RawMessage) (any, error) {
	vars, err := decodeVars[content.DataVars[content.AttendanceCreateInput]](raw)
	if err != nil {
		return nil, err
	}
	in := vars.Data

	studentID, err := connectedID(&in.User, shared.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	classID, err := connectedID(&in.Class, shared.ErrClassNotFound)
	if err != nil {
		return nil, err
	}
	recognized, err := parseRecognized(in.Recognized)
	if err != nil {
		return nil, err
	}

	params := attendance.NewEventParams{
		StudentID:        studentID,
		ClassID:          classID,
		Recognized:       recognized,
		ConfidenceScore:  in.ConfidenceScore,
		ImageCapturedURL: in.ImageCapturedURL,
	}
	if in.Date != nil {
		params.Date = in.Date.UTC()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	e, err := r.events.Create(ctx, r.newID(), params)
	if err != nil {
		return nil, err
	}
	dto := r.mapper.EventToDTO(e)
	return &dto, nil
}

func (r *ContentResolvers) updateAttendance(ctx context.Context, raw json.RawMessage) (any, error) {
	vars, err := decodeVars[content.UpdateVars[content.AttendanceUpdateInput]](raw)
	if err != nil {
		return nil, err
	}
	if !isUUID(vars.Where.ID) {
		return nil, shared.ErrAttendanceNotFound
	}

	in := vars.Data
	upd := attendance.EventUpdate{
		ConfidenceScore:  in.ConfidenceScore,
		ImageCapturedURL: in.ImageCapturedURL,
	}
	if in.Date != nil {
		d := in.Date.UTC()
		upd.Date = &d
	}
	if in.Recognized != nil {
		b, err := parseRecognized(*in.Recognized)
		if err != nil {
			return nil, err
		}
		upd.Recognized = &b
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	e, err := r.events.Update(ctx, vars.Where.ID, upd)
	if err != nil {
		return nil, err
	}
	dto := r.mapper.EventToDTO(e)
	return &dto, nil
}

func (r *ContentResolvers) deleteAttendance(ctx context.Context, raw json.RawMessage) (any, error) {
	id, err := decodeWhereID(raw)
	if err != nil {
		return nil, err
	}
	if !isUUID(id) {
		return nil, shared.ErrAttendanceNotFound
	}
	if err := r.events.Delete(ctx, id); err != nil {
		return nil, err
	}
	return &content.DeletedDTO{ID: id}, nil
}

// deleteAttendances answers with one entry per requested id, null for ids
// that were not removed.
func (r *ContentResolvers) deleteAttendances(ctx context.Context, raw json.RawMessage) (any, error) {
	vars, err := decodeVars[content.WhereVars[[]content.WhereUnique]](raw)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(vars.Where))
	for _, w := range vars.Where {
		if isUUID(w.ID) {
			ids = append(ids, w.ID)
		}
	}

	var removed []string
	if len(ids) > 0 {
		if removed, err = r.events.DeleteMany(ctx, ids); err != nil {
			return nil, err
		}
	}
	gone := make(map[string]bool, len(removed))
	for _, id := range removed {
		gone[id] = true
	}

	out := make([]*content.DeletedDTO, len(vars.Where))
	for i, w := range vars.Where {
		if gone[w.ID] {
			out[i] = &content.DeletedDTO{ID: w.ID}
		}
	}

	r.logger.Info("attendances deleted", logger.Count(len(removed)), slog.Int("requested", len(vars.Where)))
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *ContentResolvers) check(ctx context.Context, entity string, v any) error {
	err := r.validate.StructCtx(ctx, v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + ": " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return shared.WrapError(entity, "Validate", shared.ErrValidation, strings.Join(msgs, ", "), err)
}

func decodeVars[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, shared.WrapError("graphql", "Variables", shared.ErrInvalidInput, "malformed variables", err)
	}
	return v, nil
}

func decodeWhereID(raw json.RawMessage) (string, error) {
	vars, err := decodeVars[content.WhereVars[content.WhereUnique]](raw)
	if err != nil {
		return "", err
	}
	return vars.Where.ID, nil
}

// connectedID extracts the id of a relation, mapping a malformed id to
// notFound.
func connectedID(c *content.Connect, notFound error) (string, error) {
	id := c.Connect.ID
	if id == "" {
		return "", shared.NewDomainError("graphql", "Connect", shared.ErrValidation, "relation id is required")
	}
	if !isUUID(id) {
		return "", notFound
	}
	return id, nil
}

func parseRecognized(v string) (bool, error) {
	switch v {
	case "1":
		return true, nil
	case "", "0":
		return false, nil
	}
	return false, shared.NewDomainError("attendance", "Validate", shared.ErrInvalidInput, fmt.Sprintf("recognized must be \"1\" or \"0\", got %q", v))
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func filterEvents(events []attendance.Event, keep func(attendance.Event) bool) []attendance.Event {
	out := events[:0]
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// errorCode maps a resolver error to the extensions.code the client
// understands. Unknown errors are internal.
func errorCode(err error) string {
	switch {
	case errors.Is(err, shared.ErrAlreadyExists):
		return content.CodeConflict
	case errors.Is(err, shared.ErrInvalidEntity):
		return content.CodeReferenced
	case errors.Is(err, shared.ErrNotFound):
		return content.CodeNotFound
	case shared.IsValidation(err):
		return content.CodeBadUserInput
	}
	return content.CodeInternalError
}
