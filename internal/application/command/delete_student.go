package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classtrack/classtrack/internal/application/view"
	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/shared"
	"github.com/classtrack/classtrack/internal/domain/user"
	"github.com/classtrack/classtrack/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE STUDENT COMMAND
// Removes a student's attendance events, then the student. Attendance rows
// reference the student, so the student cannot go first.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteStudentCommand contains the data needed to delete a student.
type DeleteStudentCommand struct {
	// StudentID is the user id of the student.
	StudentID string

	// EventIDs are the student's attendance events, subject by subject in
	// encounter order.
	EventIDs []string
}

// NewDeleteStudentCommand takes the event ids from the student's tallies.
func NewDeleteStudentCommand(studentID string, tallies *attendance.Tallies) DeleteStudentCommand {
	cmd := DeleteStudentCommand{StudentID: studentID}
	if tallies != nil {
		cmd.EventIDs = tallies.EventIDs()
	}
	return cmd
}

// Validate validates the command.
func (c DeleteStudentCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewDomainError("student", "Delete", shared.ErrInvalidID, "student id is required")
	}
	return nil
}

// DeleteStudentResult contains the result of a completed delete.
type DeleteStudentResult struct {
	StudentID     string
	DeletedEvents []string
	SessionClosed bool
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// EventDeleter deletes one attendance event.
type EventDeleter interface {
	Delete(ctx context.Context, id string) error
}

// BulkAttendanceDeleter deletes several events in one call and returns the
// ids actually removed.
type BulkAttendanceDeleter interface {
	DeleteMany(ctx context.Context, ids []string) ([]string, error)
}

// SessionForgetter clears local session state after an account is gone.
type SessionForgetter interface {
	Forget(ctx context.Context, deletedUserID string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// DeleteStudentHandler handles DeleteStudentCommand.
type DeleteStudentHandler struct {
	events   EventDeleter
	students *Facade[user.User, CreateUserPayload, UpdateUserPayload]
	session  SessionForgetter
	logger   *slog.Logger
}

// NewDeleteStudentHandler creates a new handler. session may be nil.
func NewDeleteStudentHandler(
	events EventDeleter,
	students *Facade[user.User, CreateUserPayload, UpdateUserPayload],
	session SessionForgetter,
	log *slog.Logger,
) *DeleteStudentHandler {
	return &DeleteStudentHandler{
		events:   events,
		students: students,
		session:  session,
		logger:   logger.OrDefault(log).With(logger.Component("delete-student")),
	}
}

// Handle deletes every event, then the student. The first event failure
// aborts with a *shared.PartialDeleteError and nothing is rolled back.
func (h *DeleteStudentHandler) Handle(ctx context.Context, cmd DeleteStudentCommand, cache *view.Cache[user.User]) (*DeleteStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	log := h.logger.With(logger.StudentID(cmd.StudentID))

	var (
		deleted []string
		err     error
	)
	if bulk, ok := h.events.(BulkAttendanceDeleter); ok && len(cmd.EventIDs) > 0 {
		deleted, err = h.deleteBulk(ctx, bulk, cmd)
	} else {
		deleted, err = h.deleteSequential(ctx, cmd)
	}
	if err != nil {
		log.Error("attendance delete aborted", logger.Count(len(deleted)), logger.Err(err))
		return nil, err
	}

	if err := h.students.Delete(ctx, cmd.StudentID, cache); err != nil {
		log.Error("student delete failed after attendance removal", logger.Count(len(deleted)), logger.Err(err))
		return nil, err
	}

	result := &DeleteStudentResult{StudentID: cmd.StudentID, DeletedEvents: deleted}

	if h.session != nil {
		if err := h.session.Forget(ctx, cmd.StudentID); err != nil {
			log.Warn("failed to clear session", logger.Err(err))
		} else {
			result.SessionClosed = true
		}
	}

	log.Info("student deleted", logger.Count(len(deleted)))
	return result, nil
}

func (h *DeleteStudentHandler) deleteSequential(ctx context.Context, cmd DeleteStudentCommand) ([]string, error) {
	deleted := make([]string, 0, len(cmd.EventIDs))
	for i, id := range cmd.EventIDs {
		if err := h.events.Delete(ctx, id); err != nil {
			return deleted, &shared.PartialDeleteError{
				Entity:    "student",
				ID:        cmd.StudentID,
				Deleted:   deleted,
				Failed:    []string{id},
				Remaining: append([]string(nil), cmd.EventIDs[i+1:]...),
				Err:       shared.NewRemoteWriteError("attendance", "delete", id, err),
			}
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}

func (h *DeleteStudentHandler) deleteBulk(ctx context.Context, bulk BulkAttendanceDeleter, cmd DeleteStudentCommand) ([]string, error) {
	removed, err := bulk.DeleteMany(ctx, cmd.EventIDs)
	if err != nil {
		return nil, &shared.PartialDeleteError{
			Entity: "student",
			ID:     cmd.StudentID,
			Failed: append([]string(nil), cmd.EventIDs...),
			Err:    shared.NewRemoteWriteError("attendance", "delete", "", err),
		}
	}

	got := make(map[string]struct{}, len(removed))
	for _, id := range removed {
		got[id] = struct{}{}
	}

	deleted := make([]string, 0, len(cmd.EventIDs))
	var failed []string
	for _, id := range cmd.EventIDs {
		if _, ok := got[id]; ok {
			deleted = append(deleted, id)
		} else {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return deleted, &shared.PartialDeleteError{
			Entity:  "student",
			ID:      cmd.StudentID,
			Deleted: deleted,
			Failed:  failed,
			Err: shared.NewRemoteWriteError("attendance", "delete", "",
				fmt.Errorf("server removed %d of %d events", len(deleted), len(cmd.EventIDs))),
		}
	}
	return deleted, nil
}
