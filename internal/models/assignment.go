package models

import "time"

// AssignmentStatus marks whether an assignment still grants reporting rights.
type AssignmentStatus string

const (
	AssignmentStatusActive  AssignmentStatus = "active"
	AssignmentStatusRevoked AssignmentStatus = "revoked"
)

// Assignment links a lecturer to a course/class they may report against.
// Revoked rows are kept for audit and excluded from active-assignment queries.
type Assignment struct {
	ID           string           `db:"id" json:"id"`
	LecturerID   string           `db:"lecturer_id" json:"lecturer_id"`
	CourseID     string           `db:"course_id" json:"course_id"`
	ClassID      string           `db:"class_id" json:"class_id"`
	AssignedByID string           `db:"assigned_by_id" json:"assigned_by_id"`
	Status       AssignmentStatus `db:"status" json:"status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}
