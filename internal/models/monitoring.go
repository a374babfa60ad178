package models

import "time"

// MonitoringStatus tracks progress on a monitoring log.
type MonitoringStatus string

const (
	MonitoringStatusOpen       MonitoringStatus = "open"
	MonitoringStatusInProgress MonitoringStatus = "in_progress"
	MonitoringStatusResolved   MonitoringStatus = "resolved"
)

// Valid returns true when the status is a supported value.
func (s MonitoringStatus) Valid() bool {
	switch s {
	case MonitoringStatusOpen, MonitoringStatusInProgress, MonitoringStatusResolved:
		return true
	default:
		return false
	}
}

// MonitoringLog records an observation about a monitored user.
type MonitoringLog struct {
	ID            string           `db:"id" json:"id"`
	SubjectUserID string           `db:"subject_user_id" json:"subject_user_id"`
	AuthorID      string           `db:"author_id" json:"author_id"`
	ClassID       *string          `db:"class_id" json:"class_id,omitempty"`
	Observation   string           `db:"observation" json:"observation"`
	Status        MonitoringStatus `db:"status" json:"status"`
	ActionTaken   *string          `db:"action_taken" json:"action_taken,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}
