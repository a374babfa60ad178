package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

func TestAttendanceEmptySet(t *testing.T) {
	summary := Attendance(nil)
	assert.Equal(t, 0, summary.TotalLectures)
	assert.Equal(t, 0.0, summary.AverageAttendance)
}

func TestAttendanceMean(t *testing.T) {
	reports := []models.Report{
		{PresentCount: 28, RegisteredCount: 32},
		{PresentCount: 16, RegisteredCount: 32},
	}
	summary := Attendance(reports)
	assert.Equal(t, 2, summary.TotalLectures)
	// (0.875 + 0.5) / 2 * 100
	assert.Equal(t, 68.75, summary.AverageAttendance)
}

func TestAttendanceRounding(t *testing.T) {
	reports := []models.Report{
		{PresentCount: 1, RegisteredCount: 3},
	}
	summary := Attendance(reports)
	assert.Equal(t, 33.33, summary.AverageAttendance)
}

func TestAttendanceExcludesZeroRegistered(t *testing.T) {
	reports := []models.Report{
		{PresentCount: 30, RegisteredCount: 30},
		{PresentCount: 0, RegisteredCount: 0},
	}
	summary := Attendance(reports)
	assert.Equal(t, 2, summary.TotalLectures)
	assert.Equal(t, 100.0, summary.AverageAttendance)
}

func TestAttendanceAllZeroRegistered(t *testing.T) {
	reports := []models.Report{
		{PresentCount: 0, RegisteredCount: 0},
		{PresentCount: 5, RegisteredCount: 0},
	}
	summary := Attendance(reports)
	assert.Equal(t, 2, summary.TotalLectures)
	assert.Equal(t, 0.0, summary.AverageAttendance)
}
