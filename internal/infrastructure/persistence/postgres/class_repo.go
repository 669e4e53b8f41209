package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ClassRepository implements classroom.Repository for PostgreSQL.
type ClassRepository struct {
	conn *Connection
}

var _ classroom.Repository = (*ClassRepository)(nil)

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(conn *Connection) *ClassRepository {
	return &ClassRepository{conn: conn}
}

const classSelect = `
	SELECT c.id, c.name, c.description, c.schedule,
		   COALESCE(c.teacher_id::text, ''), COALESCE(t.name, ''),
		   c.created_at, c.updated_at
	FROM classes c
	LEFT JOIN users t ON t.id = c.teacher_id
`

// Create inserts c and fills in its timestamps and teacher name.
func (r *ClassRepository) Create(ctx context.Context, c *classroom.Class) error {
	if err := c.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO classes (id, name, description, schedule, teacher_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid)
	`
	if _, err := r.conn.Exec(ctx, query, c.ID, c.Name, c.Description, c.Schedule, c.TeacherID); err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrUserNotFound
		}
		return fmt.Errorf("failed to create class: %w", err)
	}

	created, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *created
	return nil
}

// GetByID returns a class with its teacher name.
func (r *ClassRepository) GetByID(ctx context.Context, id string) (*classroom.Class, error) {
	c, err := scanClass(r.conn.QueryRow(ctx, classSelect+` WHERE c.id = $1`, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return c, nil
}

// List returns every class ordered by name.
func (r *ClassRepository) List(ctx context.Context) ([]classroom.Class, error) {
	return r.list(ctx, classSelect+` ORDER BY c.name, c.id`)
}

// ListByTeacher returns the classes taught by teacherID.
func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]classroom.Class, error) {
	return r.list(ctx, classSelect+` WHERE c.teacher_id = $1 ORDER BY c.name, c.id`, teacherID)
}

func (r *ClassRepository) list(ctx context.Context, query string, args ...any) ([]classroom.Class, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	defer rows.Close()

	classes := make([]classroom.Class, 0)
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// Update overwrites the class fields.
func (r *ClassRepository) Update(ctx context.Context, c *classroom.Class) error {
	if err := c.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE classes SET name = $1, description = $2, schedule = $3,
			teacher_id = NULLIF($4, '')::uuid, updated_at = NOW()
		WHERE id = $5
	`
	tag, err := r.conn.Exec(ctx, query, c.Name, c.Description, c.Schedule, c.TeacherID, c.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrUserNotFound
		}
		return fmt.Errorf("failed to update class: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrClassNotFound
	}

	updated, err := r.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}
	*c = *updated
	return nil
}

// Delete removes a class. Attendance rows referencing it block the delete.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrClassHasAttendance
		}
		return fmt.Errorf("failed to delete class: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrClassNotFound
	}
	return nil
}

func scanClass(row pgx.Row) (*classroom.Class, error) {
	var c classroom.Class
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Schedule,
		&c.TeacherID, &c.TeacherName, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
