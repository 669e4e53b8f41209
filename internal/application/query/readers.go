// Package query contains read operations (CQRS - Queries).
// Each handler serves one screen's fetch path.
package query

import (
	"context"

	"github.com/classtrack/classtrack/internal/domain/attendance"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES (Interfaces)
// ══════════════════════════════════════════════════════════════════════════════

// UserReader reads accounts.
type UserReader interface {
	ListUsersByRole(ctx context.Context, role user.Role) ([]user.User, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
}

// ClassReader reads classes.
type ClassReader interface {
	ListClasses(ctx context.Context) ([]classroom.Class, error)
	ListClassesByTeacher(ctx context.Context, teacherID string) ([]classroom.Class, error)
	GetClass(ctx context.Context, id string) (*classroom.Class, error)
}

// AttendanceReader reads attendance events.
type AttendanceReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]attendance.Event, error)
	ListByClass(ctx context.Context, classID string) ([]attendance.Event, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED DTOs
// ══════════════════════════════════════════════════════════════════════════════

// TallyDTO is one row of a profile: a subject (or a student on a class
// roster) with its count and risk tier.
type TallyDTO struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Count    int      `json:"count"`
	Tier     string   `json:"tier"`
	Critical bool     `json:"critical"`
	Progress float64  `json:"progress"`
	Ratio    string   `json:"ratio"`
	EventIDs []string `json:"event_ids"`
}

// classifyAll turns tallies into rows in first-seen order.
func classifyAll(tallies *attendance.Tallies, threshold int) ([]TallyDTO, error) {
	rows := make([]TallyDTO, 0, tallies.Len())
	for key, t := range tallies.All() {
		c, err := attendance.Classify(t, threshold)
		if err != nil {
			return nil, err
		}
		label := t.Label
		if label == "" {
			label = key
		}
		rows = append(rows, TallyDTO{
			Key:      key,
			Label:    label,
			Count:    t.Count,
			Tier:     c.Tier.String(),
			Critical: c.Tier.IsCritical(),
			Progress: c.NormalizedProgress,
			Ratio:    c.Label(),
			EventIDs: t.EventIDs,
		})
	}
	return rows, nil
}

func criticalCount(rows []TallyDTO) int {
	n := 0
	for _, r := range rows {
		if r.Critical {
			n++
		}
	}
	return n
}
