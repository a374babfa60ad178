package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RatingCriteria maps a criterion name to a 0-5 score, stored as JSONB.
type RatingCriteria map[string]int

// Value implements driver.Valuer.
func (c RatingCriteria) Value() (driver.Value, error) {
	if c == nil {
		c = RatingCriteria{}
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *RatingCriteria) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = RatingCriteria{}
		return nil
	default:
		return fmt.Errorf("unsupported criteria type %T", src)
	}
}

// Rating is a student's scoring of a lecturer. One row exists per
// (student_id, lecturer_id, class_id); resubmissions upsert in place.
type Rating struct {
	ID             string         `db:"id" json:"id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	LecturerID     string         `db:"lecturer_id" json:"lecturer_id"`
	ClassID        *string        `db:"class_id" json:"class_id,omitempty"`
	Criteria       RatingCriteria `db:"criteria" json:"criteria"`
	AggregateScore int            `db:"aggregate_score" json:"aggregate_score"`
	FreeText       *string        `db:"free_text" json:"free_text,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
