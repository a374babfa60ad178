package models

import "time"

// SummaryStatus tracks whether a summary has received program-leader feedback.
type SummaryStatus string

const (
	SummaryStatusSubmitted        SummaryStatus = "submitted"
	SummaryStatusFeedbackReceived SummaryStatus = "feedback_received"
)

// Valid returns true when the status is a supported value.
func (s SummaryStatus) Valid() bool {
	return s == SummaryStatusSubmitted || s == SummaryStatusFeedbackReceived
}

// SummaryReport is a principal lecturer's period attestation over a course.
// TotalLectures and AverageAttendance are snapshotted at creation and never
// recomputed when the underlying reports change.
type SummaryReport struct {
	ID                string        `db:"id" json:"id"`
	PrlID             string        `db:"prl_id" json:"prl_id"`
	ProgramLeaderID   string        `db:"program_leader_id" json:"program_leader_id"`
	CourseID          string        `db:"course_id" json:"course_id"`
	PeriodStart       time.Time     `db:"period_start" json:"period_start"`
	PeriodEnd         time.Time     `db:"period_end" json:"period_end"`
	TotalLectures     int           `db:"total_lectures" json:"total_lectures"`
	AverageAttendance float64       `db:"average_attendance" json:"average_attendance"`
	Highlights        string        `db:"highlights" json:"highlights"`
	Concerns          *string       `db:"concerns" json:"concerns,omitempty"`
	Recommendations   string        `db:"recommendations" json:"recommendations"`
	Status            SummaryStatus `db:"status" json:"status"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// SummaryFeedback is the program leader's response to a summary. At most one
// row exists per summary; writes go through an upsert keyed on summary_report_id.
type SummaryFeedback struct {
	ID              string    `db:"id" json:"id"`
	SummaryReportID string    `db:"summary_report_id" json:"summary_report_id"`
	AuthorID        string    `db:"author_id" json:"author_id"`
	Text            string    `db:"text" json:"text"`
	ActionItems     *string   `db:"action_items" json:"action_items,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// SummaryDetail joins a summary with its feedback for read endpoints.
type SummaryDetail struct {
	SummaryReport
	Feedback *SummaryFeedback `json:"feedback,omitempty"`
}
