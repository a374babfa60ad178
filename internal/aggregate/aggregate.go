// Package aggregate computes the point-in-time statistics snapshotted into a
// summary report at creation.
package aggregate

import (
	"math"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

// AttendanceSummary is the computed snapshot for a set of lecture reports.
type AttendanceSummary struct {
	TotalLectures     int     `json:"total_lectures"`
	AverageAttendance float64 `json:"average_attendance"`
}

// Attendance returns the lecture count and mean attendance percentage over
// the given reports, rounded to 2 decimals. Reports with a zero registered
// count have an undefined attendance ratio and are excluded from the mean
// rather than counted as 0%; they still count toward TotalLectures.
func Attendance(reports []models.Report) AttendanceSummary {
	summary := AttendanceSummary{TotalLectures: len(reports)}

	var sum float64
	var rated int
	for _, r := range reports {
		if r.RegisteredCount <= 0 {
			continue
		}
		sum += float64(r.PresentCount) / float64(r.RegisteredCount)
		rated++
	}
	if rated == 0 {
		return summary
	}

	summary.AverageAttendance = round2(sum / float64(rated) * 100)
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
