package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

// AssignmentRepository persists lecturer-course-class assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, lecturer_id, course_id, class_id, assigned_by_id, status, created_at, updated_at`

// Create inserts a new active assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now
	if assignment.Status == "" {
		assignment.Status = models.AssignmentStatusActive
	}
	const query = `INSERT INTO lecturer_assignments (id, lecturer_id, course_id, class_id, assigned_by_id, status, created_at, updated_at)
VALUES (:id, :lecturer_id, :course_id, :class_id, :assigned_by_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// GetByID returns an assignment by identifier.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM lecturer_assignments WHERE id = $1`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Revoke flips an active assignment to revoked. The row is kept for audit.
// Returns false when the assignment was already revoked.
func (r *AssignmentRepository) Revoke(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE lecturer_assignments SET status = 'revoked', updated_at = $1 WHERE id = $2 AND status = 'active'`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("revoke assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check revoked assignment rows: %w", err)
	}
	return affected > 0, nil
}

// HasActive checks for an active assignment of a lecturer to a course/class.
// Revoked rows never satisfy this query.
func (r *AssignmentRepository) HasActive(ctx context.Context, lecturerID, courseID, classID string) (bool, error) {
	const query = `SELECT 1 FROM lecturer_assignments
WHERE lecturer_id = $1 AND course_id = $2 AND class_id = $3 AND status = 'active' LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, lecturerID, courseID, classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active assignment: %w", err)
	}
	return true, nil
}

// ListActiveByLecturer returns a lecturer's active assignments.
func (r *AssignmentRepository) ListActiveByLecturer(ctx context.Context, lecturerID string) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM lecturer_assignments
WHERE lecturer_id = $1 AND status = 'active' ORDER BY created_at DESC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, lecturerID); err != nil {
		return nil, fmt.Errorf("list lecturer assignments: %w", err)
	}
	return assignments, nil
}

// ListByAssigner returns every assignment a program leader made, any status.
func (r *AssignmentRepository) ListByAssigner(ctx context.Context, plID string) ([]models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM lecturer_assignments
WHERE assigned_by_id = $1 ORDER BY created_at DESC`, assignmentColumns)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, plID); err != nil {
		return nil, fmt.Errorf("list pl assignments: %w", err)
	}
	return assignments, nil
}
