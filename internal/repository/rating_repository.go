package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

// RatingRepository persists student ratings of lecturers.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs the repository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert writes the single rating row for the (student, lecturer, class)
// tuple. The unique expression index covers NULL class ids, so resubmissions
// replace the prior row instead of accumulating.
func (r *RatingRepository) Upsert(ctx context.Context, rating *models.Rating) error {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rating.CreatedAt.IsZero() {
		rating.CreatedAt = now
	}
	rating.UpdatedAt = now
	const query = `INSERT INTO student_ratings (id, student_id, lecturer_id, class_id, criteria, aggregate_score, free_text, created_at, updated_at)
VALUES (:id, :student_id, :lecturer_id, :class_id, :criteria, :aggregate_score, :free_text, :created_at, :updated_at)
ON CONFLICT (student_id, lecturer_id, COALESCE(class_id, '')) DO UPDATE
SET criteria = EXCLUDED.criteria, aggregate_score = EXCLUDED.aggregate_score, free_text = EXCLUDED.free_text, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, rating); err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// Get returns the rating for a (student, lecturer, class) tuple.
func (r *RatingRepository) Get(ctx context.Context, studentID, lecturerID string, classID *string) (*models.Rating, error) {
	const query = `SELECT id, student_id, lecturer_id, class_id, criteria, aggregate_score, free_text, created_at, updated_at
FROM student_ratings
WHERE student_id = $1 AND lecturer_id = $2 AND COALESCE(class_id, '') = COALESCE($3, '')`
	var rating models.Rating
	if err := r.db.GetContext(ctx, &rating, query, studentID, lecturerID, classID); err != nil {
		return nil, err
	}
	return &rating, nil
}

// ListByLecturer returns every rating filed against a lecturer.
func (r *RatingRepository) ListByLecturer(ctx context.Context, lecturerID string) ([]models.Rating, error) {
	const query = `SELECT id, student_id, lecturer_id, class_id, criteria, aggregate_score, free_text, created_at, updated_at
FROM student_ratings WHERE lecturer_id = $1 ORDER BY updated_at DESC`
	var ratings []models.Rating
	if err := r.db.SelectContext(ctx, &ratings, query, lecturerID); err != nil {
		return nil, fmt.Errorf("list lecturer ratings: %w", err)
	}
	return ratings, nil
}
