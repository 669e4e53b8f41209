// Package command contains write operations (CQRS - Commands).
// Commands validate their input, perform the remote write and patch the
// caller's view cache on success.
package command

import (
	"context"
	"log/slog"

	"github.com/classtrack/classtrack/internal/application/view"
	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/domain/user"
	"github.com/classtrack/classtrack/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// Gateway performs remote writes for one entity kind.
type Gateway[T view.Entity, C any, U any] interface {
	Create(ctx context.Context, payload C) (T, error)
	Update(ctx context.Context, id string, payload U) (T, error)
	Delete(ctx context.Context, id string) error
}

type (
	UserGateway       = Gateway[user.User, CreateUserPayload, UpdateUserPayload]
	ClassGateway      = Gateway[classroom.Class, CreateClassPayload, UpdateClassPayload]
	AttendanceGateway = Gateway[attendance.Event, CreateAttendancePayload, UpdateAttendancePayload]
)

// ══════════════════════════════════════════════════════════════════════════════
// FACADE
// ══════════════════════════════════════════════════════════════════════════════

// Facade is the create/update/delete surface for one entity kind. The
// cache argument of each method is the caller's view cache; nil skips
// the local patch.
type Facade[T view.Entity, C any, U any] struct {
	entity  string
	gateway Gateway[T, C, U]
	prepare func(*C)
	logger  *slog.Logger
}

// NewFacade creates a façade. prepare, if set, adjusts a create payload
// before validation.
func NewFacade[T view.Entity, C any, U any](entity string, gw Gateway[T, C, U], prepare func(*C), log *slog.Logger) *Facade[T, C, U] {
	return &Facade[T, C, U]{
		entity:  entity,
		gateway: gw,
		prepare: prepare,
		logger:  logger.OrDefault(log).With(logger.Component(entity + "-facade")),
	}
}

// NewStudentFacade creates users with the student role.
func NewStudentFacade(gw UserGateway, log *slog.Logger) *Facade[user.User, CreateUserPayload, UpdateUserPayload] {
	return NewFacade("student", gw, forceRole(user.RoleStudent), log)
}

// NewTeacherFacade creates users with the teacher role.
func NewTeacherFacade(gw UserGateway, log *slog.Logger) *Facade[user.User, CreateUserPayload, UpdateUserPayload] {
	return NewFacade("teacher", gw, forceRole(user.RoleTeacher), log)
}

// NewClassFacade creates the class façade.
func NewClassFacade(gw ClassGateway, log *slog.Logger) *Facade[classroom.Class, CreateClassPayload, UpdateClassPayload] {
	return NewFacade("class", gw, nil, log)
}

// NewAttendanceFacade creates the attendance façade.
func NewAttendanceFacade(gw AttendanceGateway, log *slog.Logger) *Facade[attendance.Event, CreateAttendancePayload, UpdateAttendancePayload] {
	return NewFacade("attendance", gw, nil, log)
}

func forceRole(role user.Role) func(*CreateUserPayload) {
	return func(p *CreateUserPayload) { p.Role = role }
}

// Entity returns the entity kind this façade writes.
func (f *Facade[T, C, U]) Entity() string {
	return f.entity
}

// Create validates payload, creates the entity remotely and appends it to
// cache.
func (f *Facade[T, C, U]) Create(ctx context.Context, payload C, cache *view.Cache[T]) (T, error) {
	var zero T
	if f.prepare != nil {
		f.prepare(&payload)
	}
	if err := validate.StructCtx(ctx, payload); err != nil {
		return zero, shared.WrapError(f.entity, "Create", shared.ErrValidation, validationMessage(err), err)
	}

	created, err := f.gateway.Create(ctx, payload)
	if err != nil {
		f.logger.Warn("create failed", logger.Err(err))
		return zero, shared.NewRemoteWriteError(f.entity, "create", "", err)
	}

	if cache != nil {
		cache.Append(created)
	}
	f.logger.Info("created", slog.String("id", created.GetID()))
	return created, nil
}

// Update validates payload, updates the entity remotely and replaces the
// cache entry.
func (f *Facade[T, C, U]) Update(ctx context.Context, id string, payload U, cache *view.Cache[T]) (T, error) {
	var zero T
	if id == "" {
		return zero, shared.NewDomainError(f.entity, "Update", shared.ErrInvalidID, "id is required")
	}
	if err := validate.StructCtx(ctx, payload); err != nil {
		return zero, shared.WrapError(f.entity, "Update", shared.ErrValidation, validationMessage(err), err)
	}

	updated, err := f.gateway.Update(ctx, id, payload)
	if err != nil {
		f.logger.Warn("update failed", slog.String("id", id), logger.Err(err))
		return zero, shared.NewRemoteWriteError(f.entity, "update", id, err)
	}

	if cache != nil {
		cache.Replace(updated)
	}
	return updated, nil
}

// Delete deletes the entity remotely and removes it from cache.
func (f *Facade[T, C, U]) Delete(ctx context.Context, id string, cache *view.Cache[T]) error {
	if id == "" {
		return shared.NewDomainError(f.entity, "Delete", shared.ErrInvalidID, "id is required")
	}

	if err := f.gateway.Delete(ctx, id); err != nil {
		f.logger.Warn("delete failed", slog.String("id", id), logger.Err(err))
		return shared.NewRemoteWriteError(f.entity, "delete", id, err)
	}

	if cache != nil {
		cache.Remove(id)
	}
	f.logger.Info("deleted", slog.String("id", id))
	return nil
}
