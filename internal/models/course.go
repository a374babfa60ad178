package models

import "time"

// Course is a taught module owned by a program leader and reviewed by a principal lecturer.
type Course struct {
	ID                  string    `db:"id" json:"id"`
	Name                string    `db:"name" json:"name"`
	Code                string    `db:"code" json:"code"`
	Stream              *string   `db:"stream" json:"stream,omitempty"`
	PrincipalLecturerID string    `db:"principal_lecturer_id" json:"principal_lecturer_id"`
	ProgramLeaderID     string    `db:"program_leader_id" json:"program_leader_id"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Class is a scheduled group of students attached to a course.
type Class struct {
	ID                      string    `db:"id" json:"id"`
	Name                    string    `db:"name" json:"name"`
	CourseID                string    `db:"course_id" json:"course_id"`
	Venue                   *string   `db:"venue" json:"venue,omitempty"`
	ScheduledTime           *string   `db:"scheduled_time" json:"scheduled_time,omitempty"`
	TotalRegisteredStudents int       `db:"total_registered_students" json:"total_registered_students"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
}

// CourseFilter captures filtering criteria for listing courses.
type CourseFilter struct {
	PrincipalLecturerID string
	ProgramLeaderID     string
	Stream              string
}
