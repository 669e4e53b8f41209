package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRepository implements attendance.Repository for PostgreSQL.
type AttendanceRepository struct {
	conn *Connection
}

var _ attendance.Repository = (*AttendanceRepository)(nil)

// NewAttendanceRepository creates a new AttendanceRepository.
func NewAttendanceRepository(conn *Connection) *AttendanceRepository {
	return &AttendanceRepository{conn: conn}
}

const attendanceSelect = `
	SELECT a.id, a.user_id, u.name, a.class_id, c.name,
		   a.date, a.recognized, a.confidence_score, a.image_captured_url
	FROM attendances a
	JOIN users u ON u.id = a.user_id
	JOIN classes c ON c.id = a.class_id
`

// Create inserts an event and returns it with the joined names.
func (r *AttendanceRepository) Create(ctx context.Context, id string, p attendance.NewEventParams) (*attendance.Event, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO attendances (id, user_id, class_id, date, recognized, confidence_score, image_captured_url)
		VALUES ($1, $2, $3, COALESCE($4, NOW()), $5, $6, $7)
	`
	var date any
	if !p.Date.IsZero() {
		date = p.Date
	}

	_, err := r.conn.Exec(ctx, query, id, p.StudentID, p.ClassID, date, p.Recognized, p.ConfidenceScore, p.ImageCapturedURL)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return nil, shared.NewDomainError("attendance", "Create", shared.ErrNotFound, "student or class does not exist")
		}
		return nil, fmt.Errorf("failed to create attendance: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID returns one event.
func (r *AttendanceRepository) GetByID(ctx context.Context, id string) (*attendance.Event, error) {
	e, err := scanEvent(r.conn.QueryRow(ctx, attendanceSelect+` WHERE a.id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return e, nil
}

// ListByStudent returns the student's events ordered by date, then id.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]attendance.Event, error) {
	return r.list(ctx, attendanceSelect+` WHERE a.user_id = $1 ORDER BY a.date, a.id`, studentID)
}

// ListByClass returns the class's events ordered by date, then id.
func (r *AttendanceRepository) ListByClass(ctx context.Context, classID string) ([]attendance.Event, error) {
	return r.list(ctx, attendanceSelect+` WHERE a.class_id = $1 ORDER BY a.date, a.id`, classID)
}

func (r *AttendanceRepository) list(ctx context.Context, query string, args ...any) ([]attendance.Event, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	defer rows.Close()

	events := make([]attendance.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Update applies the non-nil fields of upd.
func (r *AttendanceRepository) Update(ctx context.Context, id string, upd attendance.EventUpdate) (*attendance.Event, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	query := `
		UPDATE attendances SET
			date = COALESCE($1, date),
			recognized = COALESCE($2, recognized),
			confidence_score = COALESCE($3, confidence_score),
			image_captured_url = COALESCE($4, image_captured_url)
		WHERE id = $5
	`
	tag, err := r.conn.Exec(ctx, query, upd.Date, upd.Recognized, upd.ConfidenceScore, upd.ImageCapturedURL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrAttendanceNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes one event.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAttendanceNotFound
	}
	return nil
}

// DeleteMany removes the given ids in one statement and returns the ids
// that existed.
func (r *AttendanceRepository) DeleteMany(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	rows, err := r.conn.Query(ctx, `DELETE FROM attendances WHERE id = ANY($1::uuid[]) RETURNING id::text`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to delete attendances: %w", err)
	}
	deleted, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect deleted ids: %w", err)
	}
	return orderLike(ids, deleted), nil
}

// CountByStudent counts the events referencing a student.
func (r *AttendanceRepository) CountByStudent(ctx context.Context, studentID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM attendances WHERE user_id = $1`, studentID)
}

// CountByClass counts the events referencing a class.
func (r *AttendanceRepository) CountByClass(ctx context.Context, classID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM attendances WHERE class_id = $1`, classID)
}

func (r *AttendanceRepository) count(ctx context.Context, query, id string) (int, error) {
	var n int
	if err := r.conn.QueryRow(ctx, query, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count attendance: %w", err)
	}
	return n, nil
}

// orderLike returns the members of got in the order they appear in want.
func orderLike(want, got []string) []string {
	set := make(map[string]struct{}, len(got))
	for _, id := range got {
		set[id] = struct{}{}
	}
	out := make([]string, 0, len(got))
	for _, id := range want {
		if _, ok := set[id]; ok {
			out = append(out, id)
			delete(set, id)
		}
	}
	return out
}

func scanEvent(row pgx.Row) (*attendance.Event, error) {
	var e attendance.Event
	err := row.Scan(&e.ID, &e.StudentID, &e.StudentName, &e.ClassID, &e.SubjectName,
		&e.Date, &e.Recognized, &e.ConfidenceScore, &e.ImageCapturedURL)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
