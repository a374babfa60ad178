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

type monitoringRepository interface {
	Create(ctx context.Context, log *models.MonitoringLog) error
	GetByID(ctx context.Context, id string) (*models.MonitoringLog, error)
	Respond(ctx context.Context, id string, status models.MonitoringStatus, actionTaken *string) error
	ListBySubject(ctx context.Context, subjectUserID string) ([]models.MonitoringLog, error)
	ListByAuthor(ctx context.Context, authorID string) ([]models.MonitoringLog, error)
}

// CreateMonitoringRequest records an observation about a user.
type CreateMonitoringRequest struct {
	SubjectUserID string  `json:"subject_user_id" validate:"required"`
	ClassID       *string `json:"class_id"`
	Observation   string  `json:"observation" validate:"required"`
}

// RespondMonitoringRequest closes the loop on an observation.
type RespondMonitoringRequest struct {
	Status      string  `json:"status" validate:"required"`
	ActionTaken *string `json:"action_taken"`
}

// MonitoringService tracks observations about teaching and attendance and
// the follow-up they receive.
type MonitoringService struct {
	logs      monitoringRepository
	courses   courseReader
	users     userReader
	enrolls   enrollmentChecker
	events    eventDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMonitoringService constructs the service.
func NewMonitoringService(
	logs monitoringRepository,
	courses courseReader,
	users userReader,
	enrolls enrollmentChecker,
	events eventDispatcher,
	validate *validator.Validate,
	logger *zap.Logger,
) *MonitoringService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringService{
		logs:      logs,
		courses:   courses,
		users:     users,
		enrolls:   enrolls,
		events:    events,
		validator: validate,
		logger:    logger,
	}
}

// Create files a new monitoring log in the open state. Staff may observe
// anyone; students may only report on classes they are enrolled in.
func (s *MonitoringService) Create(ctx context.Context, actor *models.JWTClaims, req CreateMonitoringRequest) (*models.MonitoringLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid monitoring payload")
	}

	if _, err := s.users.FindByID(ctx, req.SubjectUserID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject user")
	}

	facts := policy.Facts{}
	if actor.Role == models.RoleStudent {
		if req.ClassID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "students must name the class they are reporting on")
		}
		enrolled, err := s.enrolls.IsStudentEnrolled(ctx, actor.UserID, *req.ClassID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		facts.ActorIsEnrolled = enrolled
	}
	if !policy.Allow(actor.Role, policy.ActionCreateMonitoringLog, facts) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "monitoring is limited to staff and enrolled students")
	}

	log := &models.MonitoringLog{
		SubjectUserID: req.SubjectUserID,
		AuthorID:      actor.UserID,
		ClassID:       req.ClassID,
		Observation:   req.Observation,
		Status:        models.MonitoringStatusOpen,
	}
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create monitoring log")
	}

	s.events.Dispatch(ctx, notify.Event{
		Type:         notify.EventMonitoringLogCreated,
		ActorID:      actor.UserID,
		EntityID:     log.ID,
		RecipientIDs: []string{log.SubjectUserID},
		Title:        "New monitoring observation",
		Message:      "An observation about your sessions was recorded",
	})
	return log, nil
}

// Respond advances an open or in-progress log to in_progress or resolved.
// Resolved logs are terminal.
func (s *MonitoringService) Respond(ctx context.Context, actor *models.JWTClaims, logID string, req RespondMonitoringRequest) (*models.MonitoringLog, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid response payload")
	}
	status := models.MonitoringStatus(req.Status)
	if status != models.MonitoringStatusInProgress && status != models.MonitoringStatusResolved {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be in_progress or resolved")
	}

	log, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("monitoring log %s not found", logID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monitoring log")
	}
	if log.Status == models.MonitoringStatusResolved {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "monitoring log is already resolved")
	}

	supervises, err := s.supervisesFact(ctx, actor, log)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check supervision")
	}
	if !policy.Allow(actor.Role, policy.ActionRespondMonitoringLog, policy.Facts{ActorSupervisesSubject: supervises}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author or a supervising reviewer may respond")
	}

	if err := s.logs.Respond(ctx, logID, status, req.ActionTaken); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to respond to monitoring log")
	}
	log.Status = status
	log.ActionTaken = req.ActionTaken

	s.events.Dispatch(ctx, notify.Event{
		Type:         notify.EventMonitoringLogResponded,
		ActorID:      actor.UserID,
		EntityID:     log.ID,
		RecipientIDs: []string{log.AuthorID},
		Title:        "Monitoring log updated",
		Message:      fmt.Sprintf("Your observation is now %s", status),
	})
	return log, nil
}

// ListForSubject returns logs filed about a user.
func (s *MonitoringService) ListForSubject(ctx context.Context, subjectUserID string) ([]models.MonitoringLog, error) {
	logs, err := s.logs.ListBySubject(ctx, subjectUserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list monitoring logs")
	}
	return logs, nil
}

// ListForAuthor returns logs filed by a user.
func (s *MonitoringService) ListForAuthor(ctx context.Context, authorID string) ([]models.MonitoringLog, error) {
	logs, err := s.logs.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list monitoring logs")
	}
	return logs, nil
}

// supervisesFact is true for the author, and for the PRL or PL of the course
// the log's class belongs to.
func (s *MonitoringService) supervisesFact(ctx context.Context, actor *models.JWTClaims, log *models.MonitoringLog) (bool, error) {
	if actor.UserID == log.AuthorID {
		return true, nil
	}
	if log.ClassID == nil {
		return false, nil
	}
	class, err := s.courses.FindClassByID(ctx, *log.ClassID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	course, err := s.courses.FindByID(ctx, class.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return actor.UserID == course.PrincipalLecturerID || actor.UserID == course.ProgramLeaderID, nil
}
