package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/classtrack/classtrack/internal/application/query"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTER
// Formats query results as plain-text tables for a terminal.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultBarWidth is the number of cells in a progress bar.
const DefaultBarWidth = 20

// Presenter renders lists and profiles.
type Presenter struct {
	barWidth int
}

// NewPresenter creates a presenter with the default bar width.
func NewPresenter() *Presenter {
	return &Presenter{barWidth: DefaultBarWidth}
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// ─────────────────────────────────────────────────────────────────────────────
// LISTS
// ─────────────────────────────────────────────────────────────────────────────

// Users prints an account list.
func (p *Presenter) Users(w io.Writer, users []user.User, role user.Role) error {
	if len(users) == 0 {
		_, err := fmt.Fprintf(w, "No %ss found.\n", role)
		return err
	}

	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tNUMBER\tEMAIL")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Name, orDash(u.StudentID), u.Email)
	}
	return tw.Flush()
}

// Classes prints a class list.
func (p *Presenter) Classes(w io.Writer, classes []classroom.Class) error {
	if len(classes) == 0 {
		_, err := fmt.Fprintln(w, "No classes found.")
		return err
	}

	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tSCHEDULE\tTEACHER")
	for _, c := range classes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Name, orDash(c.Schedule), orDash(c.TeacherName))
	}
	return tw.Flush()
}

// ─────────────────────────────────────────────────────────────────────────────
// PROFILES
// ─────────────────────────────────────────────────────────────────────────────

// StudentProfile prints the student header and one row per subject.
func (p *Presenter) StudentProfile(w io.Writer, dto *query.StudentProfileDTO) error {
	s := dto.Student
	fmt.Fprintf(w, "%s (%s)\n", s.Name, s.Email)
	if s.StudentID != "" {
		fmt.Fprintf(w, "Student ID: %s\n", s.StudentID)
	}
	fmt.Fprintf(w, "Attendance: %d records, %d critical subject(s), threshold %d\n\n",
		dto.Total, dto.Critical, dto.Threshold)

	if len(dto.Subjects) == 0 {
		_, err := fmt.Fprintln(w, "No attendance records.")
		return err
	}
	return p.tallies(w, "SUBJECT", dto.Subjects)
}

// ClassDetails prints the class header and its roster.
func (p *Presenter) ClassDetails(w io.Writer, dto *query.ClassDetailsDTO) error {
	c := dto.Class
	fmt.Fprintln(w, c.Name)
	if c.Description != "" {
		fmt.Fprintln(w, c.Description)
	}
	fmt.Fprintf(w, "Schedule: %s\nTeacher: %s\n", orDash(c.Schedule), orDash(c.TeacherName))
	fmt.Fprintf(w, "Attendance: %d records, %d critical student(s), threshold %d\n\n",
		dto.Total, dto.Critical, dto.Threshold)

	if len(dto.Roster) == 0 {
		_, err := fmt.Fprintln(w, "No attendance records.")
		return err
	}
	return p.tallies(w, "STUDENT", dto.Roster)
}

// TeacherProfile prints a teacher and the classes they teach.
func (p *Presenter) TeacherProfile(w io.Writer, dto *query.TeacherProfileDTO) error {
	fmt.Fprintf(w, "%s (%s)\n\n", dto.Teacher.Name, dto.Teacher.Email)
	return p.Classes(w, dto.Classes)
}

func (p *Presenter) tallies(w io.Writer, heading string, rows []query.TallyDTO) error {
	tw := table(w)
	fmt.Fprintf(tw, "%s\tCOUNT\tPROGRESS\tSTATUS\n", heading)
	for _, r := range rows {
		status := "ok"
		if r.Critical {
			status = "CRITICAL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Label, r.Ratio, p.Bar(r.Progress), status)
	}
	return tw.Flush()
}

// Bar draws progress as a fixed-width bar. Values past 1 fill the bar and
// get a trailing "+".
func (p *Presenter) Bar(progress float64) string {
	filled := int(progress*float64(p.barWidth) + 0.5)
	overflow := progress > 1
	switch {
	case filled < 0:
		filled = 0
	case filled > p.barWidth:
		filled = p.barWidth
	}

	var sb strings.Builder
	sb.Grow(p.barWidth + 3)
	sb.WriteByte('[')
	sb.WriteString(strings.Repeat("#", filled))
	sb.WriteString(strings.Repeat(".", p.barWidth-filled))
	sb.WriteByte(']')
	if overflow {
		sb.WriteByte('+')
	}
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
