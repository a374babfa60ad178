package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/policy"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

type ratingRepository interface {
	Upsert(ctx context.Context, rating *models.Rating) error
	Get(ctx context.Context, studentID, lecturerID string, classID *string) (*models.Rating, error)
	ListByLecturer(ctx context.Context, lecturerID string) ([]models.Rating, error)
}

type enrollmentChecker interface {
	IsStudentEnrolled(ctx context.Context, studentID, classID string) (bool, error)
	StudentSharesLecturer(ctx context.Context, studentID, lecturerID string) (bool, error)
}

// SubmitRatingRequest carries a student's per-criterion scores.
type SubmitRatingRequest struct {
	LecturerID string                `json:"lecturer_id" validate:"required"`
	ClassID    *string               `json:"class_id"`
	Criteria   models.RatingCriteria `json:"criteria" validate:"required"`
	FreeText   *string               `json:"free_text"`
}

// RatingService lets enrolled students score the lecturers who teach them.
type RatingService struct {
	ratings     ratingRepository
	enrollments enrollmentChecker
	users       userReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRatingService constructs the service.
func NewRatingService(
	ratings ratingRepository,
	enrollments enrollmentChecker,
	users userReader,
	validate *validator.Validate,
	logger *zap.Logger,
) *RatingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{
		ratings:     ratings,
		enrollments: enrollments,
		users:       users,
		validator:   validate,
		logger:      logger,
	}
}

// Submit upserts the student's rating of a lecturer. Resubmitting replaces
// the previous scores; only one row ever exists per (student, lecturer,
// class) tuple.
func (s *RatingService) Submit(ctx context.Context, actor *models.JWTClaims, req SubmitRatingRequest) (*models.Rating, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rating payload")
	}
	if len(req.Criteria) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one rating criterion is required")
	}
	for name, score := range req.Criteria {
		if score < 0 || score > 5 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("criterion %q must score between 0 and 5", name))
		}
	}

	lecturer, err := s.users.FindByID(ctx, req.LecturerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecturer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer")
	}
	if !lecturer.Role.Staff() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rated user must be a member of staff")
	}

	enrolled, err := s.enrollmentFact(ctx, actor.UserID, req.LecturerID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !policy.Allow(actor.Role, policy.ActionSubmitRating, policy.Facts{ActorIsEnrolled: enrolled}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "ratings are limited to students taught by this lecturer")
	}

	rating := &models.Rating{
		StudentID:      actor.UserID,
		LecturerID:     req.LecturerID,
		ClassID:        req.ClassID,
		Criteria:       req.Criteria,
		AggregateScore: aggregateScore(req.Criteria),
		FreeText:       req.FreeText,
	}
	if err := withConflictRetry(func() error {
		return s.ratings.Upsert(ctx, rating)
	}); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save rating")
	}
	return rating, nil
}

// Get returns the actor's own rating of a lecturer, or NotFound.
func (s *RatingService) Get(ctx context.Context, actor *models.JWTClaims, lecturerID string, classID *string) (*models.Rating, error) {
	rating, err := s.ratings.Get(ctx, actor.UserID, lecturerID, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "rating not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rating")
	}
	return rating, nil
}

// ListForLecturer returns every rating filed against a lecturer.
func (s *RatingService) ListForLecturer(ctx context.Context, lecturerID string) ([]models.Rating, error) {
	ratings, err := s.ratings.ListByLecturer(ctx, lecturerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ratings")
	}
	return ratings, nil
}

// enrollmentFact resolves whether the student may rate: enrollment in the
// named class when one is given, otherwise any active class the student and
// lecturer share.
func (s *RatingService) enrollmentFact(ctx context.Context, studentID, lecturerID string, classID *string) (bool, error) {
	if classID != nil {
		return s.enrollments.IsStudentEnrolled(ctx, studentID, *classID)
	}
	return s.enrollments.StudentSharesLecturer(ctx, studentID, lecturerID)
}

func aggregateScore(criteria models.RatingCriteria) int {
	if len(criteria) == 0 {
		return 0
	}
	sum := 0
	for _, score := range criteria {
		sum += score
	}
	return int(math.Round(float64(sum) / float64(len(criteria))))
}
