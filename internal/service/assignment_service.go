package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/notify"
	"github.com/noah-isme/luct-reporting-api/internal/policy"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	Revoke(ctx context.Context, id string) (bool, error)
	HasActive(ctx context.Context, lecturerID, courseID, classID string) (bool, error)
	ListActiveByLecturer(ctx context.Context, lecturerID string) ([]models.Assignment, error)
	ListByAssigner(ctx context.Context, plID string) ([]models.Assignment, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateAssignmentRequest links a lecturer to a course/class.
type CreateAssignmentRequest struct {
	LecturerID string `json:"lecturer_id" validate:"required"`
	CourseID   string `json:"course_id" validate:"required"`
	ClassID    string `json:"class_id" validate:"required"`
}

// AssignmentService manages reporting rights for lecturers.
type AssignmentService struct {
	assignments assignmentRepository
	courses     courseReader
	users       userReader
	events      eventDispatcher
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAssignmentService constructs the service.
func NewAssignmentService(
	assignments assignmentRepository,
	courses courseReader,
	users userReader,
	events eventDispatcher,
	validate *validator.Validate,
	logger *zap.Logger,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		assignments: assignments,
		courses:     courses,
		users:       users,
		events:      events,
		validator:   validate,
		logger:      logger,
	}
}

// Create grants a lecturer reporting rights over a course/class.
func (s *AssignmentService) Create(ctx context.Context, actor *models.JWTClaims, req CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	facts := policy.Facts{ActorIsProgramLeader: course.ProgramLeaderID == actor.UserID}
	if !policy.Allow(actor.Role, policy.ActionCreateAssignment, facts) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the program leader of this course may assign lecturers")
	}

	class, err := s.courses.FindClassByID(ctx, req.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if class.CourseID != course.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class does not belong to course")
	}

	lecturer, err := s.users.FindByID(ctx, req.LecturerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecturer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer")
	}
	if lecturer.Role != models.RoleLecturer {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee must hold the lecturer role")
	}
	if !lecturer.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "lecturer account is inactive")
	}

	exists, err := s.assignments.HasActive(ctx, req.LecturerID, req.CourseID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lecturer already holds an active assignment for this class")
	}

	assignment := &models.Assignment{
		LecturerID:   req.LecturerID,
		CourseID:     req.CourseID,
		ClassID:      req.ClassID,
		AssignedByID: actor.UserID,
		Status:       models.AssignmentStatusActive,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.events.Dispatch(ctx, notify.Event{
		Type:         notify.EventAssignmentCreated,
		ActorID:      actor.UserID,
		EntityID:     assignment.ID,
		RecipientIDs: []string{assignment.LecturerID},
		Title:        "New course assignment",
		Message:      fmt.Sprintf("You were assigned to %s, class %s", course.Name, class.Name),
	})
	return assignment, nil
}

// Revoke withdraws reporting rights. The row survives for the audit trail
// and simply stops satisfying active-assignment queries.
func (s *AssignmentService) Revoke(ctx context.Context, actor *models.JWTClaims, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("assignment %s not found", assignmentID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	course, err := s.courses.FindByID(ctx, assignment.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	facts := policy.Facts{ActorIsProgramLeader: course.ProgramLeaderID == actor.UserID}
	if !policy.Allow(actor.Role, policy.ActionRevokeAssignment, facts) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the program leader of this course may revoke assignments")
	}

	revoked, err := s.assignments.Revoke(ctx, assignmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke assignment")
	}
	if !revoked {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment is already revoked")
	}
	assignment.Status = models.AssignmentStatusRevoked
	return assignment, nil
}

// ListForLecturer returns the lecturer's active assignments.
func (s *AssignmentService) ListForLecturer(ctx context.Context, lecturerID string) ([]models.Assignment, error) {
	assignments, err := s.assignments.ListActiveByLecturer(ctx, lecturerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// ListForAssigner returns every assignment the program leader made.
func (s *AssignmentService) ListForAssigner(ctx context.Context, plID string) ([]models.Assignment, error) {
	assignments, err := s.assignments.ListByAssigner(ctx, plID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}
