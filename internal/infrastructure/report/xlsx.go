// Package report exports attendance profiles as XLSX workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/classtrack/classtrack/internal/application/query"
)

const (
	sheetSummary = "Summary"
	criticalFill = "#F8D7DA"
	criticalFont = "#B02A37"
)

var tallyHeader = []any{"Name", "Count", "Threshold", "Progress", "Ratio", "Tier"}

// WriteStudentProfile writes one row per subject, critical subjects in red.
func WriteStudentProfile(w io.Writer, p *query.StudentProfileDTO) error {
	info := [][]any{
		{"Student", p.Student.Name},
		{"Student ID", p.Student.StudentID},
		{"Email", p.Student.Email},
		{"Total attendance", p.Total},
		{"Critical subjects", p.Critical},
	}
	return write(w, info, "Subjects", p.Threshold, p.Subjects)
}

// WriteClassRoster writes one row per student of the class.
func WriteClassRoster(w io.Writer, d *query.ClassDetailsDTO) error {
	info := [][]any{
		{"Class", d.Class.Name},
		{"Teacher", d.Class.TeacherName},
		{"Schedule", d.Class.Schedule},
		{"Total attendance", d.Total},
		{"Critical students", d.Critical},
	}
	return write(w, info, "Roster", d.Threshold, d.Roster)
}

func write(w io.Writer, info [][]any, sheet string, threshold int, rows []query.TallyDTO) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for i, row := range info {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheetSummary, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	critical, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: criticalFont, Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{criticalFill}},
	})
	if err != nil {
		return fmt.Errorf("critical style: %w", err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	if err != nil {
		return fmt.Errorf("percent style: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &tallyHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "F1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		n := i + 2
		start, _ := excelize.CoordinatesToCellName(1, n)
		end, _ := excelize.CoordinatesToCellName(len(tallyHeader), n)
		progress, _ := excelize.CoordinatesToCellName(4, n)

		values := []any{r.Label, r.Count, threshold, r.Progress, r.Ratio, r.Tier}
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return fmt.Errorf("write row %d: %w", n, err)
		}
		if err := f.SetCellStyle(sheet, progress, progress, percent); err != nil {
			return fmt.Errorf("style row %d: %w", n, err)
		}
		if r.Critical {
			if err := f.SetCellStyle(sheet, start, end, critical); err != nil {
				return fmt.Errorf("style row %d: %w", n, err)
			}
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 28); err != nil {
		return fmt.Errorf("column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
