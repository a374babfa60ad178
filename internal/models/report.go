package models

import "time"

// ReportStatus tracks where a lecture report sits in the review chain.
type ReportStatus string

const (
	ReportStatusSubmitted        ReportStatus = "submitted"
	ReportStatusFeedbackAdded    ReportStatus = "feedback_added"
	ReportStatusApproved         ReportStatus = "approved"
	ReportStatusNeedsImprovement ReportStatus = "needs_improvement"
)

// Valid returns true when the status is a supported value.
func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusSubmitted, ReportStatusFeedbackAdded, ReportStatusApproved, ReportStatusNeedsImprovement:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are allowed.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusApproved || s == ReportStatusNeedsImprovement
}

// CanTransitionTo enforces the forward-only report lifecycle:
// submitted → feedback_added → {approved | needs_improvement}.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	switch s {
	case ReportStatusSubmitted:
		return next == ReportStatusFeedbackAdded
	case ReportStatusFeedbackAdded:
		return next == ReportStatusApproved || next == ReportStatusNeedsImprovement
	default:
		return false
	}
}

// Report is a per-lecture report filed by a lecturer.
type Report struct {
	ID               string       `db:"id" json:"id"`
	LecturerID       string       `db:"lecturer_id" json:"lecturer_id"`
	CourseID         string       `db:"course_id" json:"course_id"`
	ClassID          string       `db:"class_id" json:"class_id"`
	WeekNumber       int          `db:"week_number" json:"week_number"`
	LectureDate      time.Time    `db:"lecture_date" json:"lecture_date"`
	PresentCount     int          `db:"present_count" json:"present_count"`
	RegisteredCount  int          `db:"registered_count" json:"registered_count"`
	Topic            string       `db:"topic" json:"topic"`
	LearningOutcomes string       `db:"learning_outcomes" json:"learning_outcomes"`
	Recommendations  *string      `db:"recommendations" json:"recommendations,omitempty"`
	Status           ReportStatus `db:"status" json:"status"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// Feedback is the principal lecturer's review of a report. At most one row
// exists per report; writes go through an upsert keyed on report_id.
type Feedback struct {
	ID        string    `db:"id" json:"id"`
	ReportID  string    `db:"report_id" json:"report_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Text      string    `db:"text" json:"text"`
	Rating    int       `db:"rating" json:"rating"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReportDetail joins a report with its feedback for read endpoints.
type ReportDetail struct {
	Report
	Feedback *Feedback `json:"feedback,omitempty"`
}

// ReportFilter captures filtering criteria for listing reports.
type ReportFilter struct {
	LecturerID string
	CourseID   string
	ClassID    string
	Status     *ReportStatus
	WeekNumber *int
}
