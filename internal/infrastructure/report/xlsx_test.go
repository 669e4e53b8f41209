package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/classtrack/classtrack/internal/application/query"
	"github.com/classtrack/classtrack/internal/domain/classroom"
	"github.com/classtrack/classtrack/internal/domain/user"
)

func TestWriteStudentProfile(t *testing.T) {
	p := &query.StudentProfileDTO{
		Student:   user.User{Name: "Ana", StudentID: "2024-001", Email: "ana@school.edu"},
		Threshold: 10,
		Subjects: []query.TallyDTO{
			{Key: "Math", Label: "Math", Count: 12, Tier: "critical", Critical: true, Progress: 1.2, Ratio: "12/10"},
			{Key: "Art", Label: "Art", Count: 3, Tier: "normal", Progress: 0.3, Ratio: "3/10"},
		},
		Total:    15,
		Critical: 1,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStudentProfile(&buf, p))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetSummary, "Subjects"}, f.GetSheetList())

	rows, err := f.GetRows("Subjects")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, "Math", rows[1][0])
	assert.Equal(t, "12", rows[1][1])
	assert.Equal(t, "Art", rows[2][0])

	mathStyle, err := f.GetCellStyle("Subjects", "A2")
	require.NoError(t, err)
	artStyle, err := f.GetCellStyle("Subjects", "A3")
	require.NoError(t, err)
	assert.NotEqual(t, mathStyle, artStyle)

	name, err := f.GetCellValue(sheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", name)
}

func TestWriteClassRoster_Empty(t *testing.T) {
	d := &query.ClassDetailsDTO{Class: classroom.Class{Name: "Math"}, Threshold: 10}

	var buf bytes.Buffer
	require.NoError(t, WriteClassRoster(&buf, d))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Roster")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
