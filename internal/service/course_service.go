package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	FindClassByID(ctx context.Context, id string) (*models.Class, error)
	ListClasses(ctx context.Context, courseID string) ([]models.Class, error)
	CreateClass(ctx context.Context, class *models.Class) error
	Enroll(ctx context.Context, studentID, classID string) error
	IsStudentEnrolled(ctx context.Context, studentID, classID string) (bool, error)
}

// CreateCourseRequest registers a course in the catalog.
type CreateCourseRequest struct {
	Name                string  `json:"name" validate:"required"`
	Code                string  `json:"code" validate:"required"`
	Stream              *string `json:"stream"`
	PrincipalLecturerID string  `json:"principal_lecturer_id" validate:"required"`
}

// CreateClassRequest attaches a class to a course.
type CreateClassRequest struct {
	CourseID                string  `json:"course_id" validate:"required"`
	Name                    string  `json:"name" validate:"required"`
	Venue                   *string `json:"venue"`
	ScheduledTime           *string `json:"scheduled_time"`
	TotalRegisteredStudents int     `json:"total_registered_students" validate:"min=0"`
}

// CourseService maintains the course and class catalog.
type CourseService struct {
	courses   courseRepository
	users     userReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(courses courseRepository, users userReader, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{courses: courses, users: users, validator: validate, logger: logger}
}

// CreateCourse registers a course owned by the acting program leader.
func (s *CourseService) CreateCourse(ctx context.Context, actor *models.JWTClaims, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	prl, err := s.users.FindByID(ctx, req.PrincipalLecturerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "principal lecturer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load principal lecturer")
	}
	if prl.Role != models.RolePrincipalLecturer {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reviewer must hold the prl role")
	}

	course := &models.Course{
		Name:                req.Name,
		Code:                req.Code,
		Stream:              req.Stream,
		PrincipalLecturerID: req.PrincipalLecturerID,
		ProgramLeaderID:     actor.UserID,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// CreateClass attaches a class to a course owned by the acting program leader.
func (s *CourseService) CreateClass(ctx context.Context, actor *models.JWTClaims, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.ProgramLeaderID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the program leader of this course may add classes")
	}

	class := &models.Class{
		Name:                    req.Name,
		CourseID:                req.CourseID,
		Venue:                   req.Venue,
		ScheduledTime:           req.ScheduledTime,
		TotalRegisteredStudents: req.TotalRegisteredStudents,
	}
	if err := s.courses.CreateClass(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Enroll adds the acting student to a class. Re-enrolling is a no-op.
func (s *CourseService) Enroll(ctx context.Context, actor *models.JWTClaims, classID string) error {
	if _, err := s.courses.FindClassByID(ctx, classID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if err := s.courses.Enroll(ctx, actor.UserID, classID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}
	return nil
}

// Get returns a course with its classes.
func (s *CourseService) Get(ctx context.Context, courseID string) (*models.Course, []models.Class, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	classes, err := s.courses.ListClasses(ctx, courseID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return course, classes, nil
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, error) {
	courses, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}
