package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/notify"
	"github.com/noah-isme/luct-reporting-api/internal/policy"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

type reportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	ListByLecturer(ctx context.Context, lecturerID string) ([]models.Report, error)
	ListByPrincipalLecturer(ctx context.Context, prlID string) ([]models.Report, error)
	UpdateStatusIf(ctx context.Context, id string, from, to models.ReportStatus) (bool, error)
	UpsertFeedback(ctx context.Context, feedback *models.Feedback) error
	GetFeedbackByReport(ctx context.Context, reportID string) (*models.Feedback, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindClassByID(ctx context.Context, id string) (*models.Class, error)
}

type assignmentChecker interface {
	HasActive(ctx context.Context, lecturerID, courseID, classID string) (bool, error)
}

// eventDispatcher receives a domain event after the entity write committed.
type eventDispatcher interface {
	Dispatch(ctx context.Context, event notify.Event)
}

// SubmitReportRequest is the lecturer's per-lecture report payload.
type SubmitReportRequest struct {
	CourseID         string    `json:"course_id" validate:"required"`
	ClassID          string    `json:"class_id" validate:"required"`
	WeekNumber       int       `json:"week_number" validate:"required,min=1"`
	LectureDate      time.Time `json:"lecture_date" validate:"required"`
	PresentCount     int       `json:"present_count" validate:"min=0"`
	RegisteredCount  int       `json:"registered_count" validate:"min=0"`
	Topic            string    `json:"topic" validate:"required"`
	LearningOutcomes string    `json:"learning_outcomes" validate:"required"`
	Recommendations  *string   `json:"recommendations"`
}

// AttachFeedbackRequest is the principal lecturer's review payload.
type AttachFeedbackRequest struct {
	Text   string `json:"text" validate:"required"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

// FinalizeReportRequest selects the terminal outcome of a reviewed report.
type FinalizeReportRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

// ReportService owns the lecture report state machine:
// submitted → feedback_added → {approved | needs_improvement}.
type ReportService struct {
	reports     reportRepository
	courses     courseReader
	assignments assignmentChecker
	events      eventDispatcher
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(
	reports reportRepository,
	courses courseReader,
	assignments assignmentChecker,
	events eventDispatcher,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:     reports,
		courses:     courses,
		assignments: assignments,
		events:      events,
		validator:   validate,
		logger:      logger,
	}
}

// Submit validates and files a new report in the submitted state. The active
// assignment check runs against current storage state on every call.
func (s *ReportService) Submit(ctx context.Context, actor *models.JWTClaims, req SubmitReportRequest) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if req.PresentCount > req.RegisteredCount {
		return nil, appErrors.Clone(appErrors.ErrValidation, "present count cannot exceed registered count")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
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

	assigned, err := s.assignments.HasActive(ctx, actor.UserID, req.CourseID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !policy.Allow(actor.Role, policy.ActionSubmitReport, policy.Facts{ActorHasActiveAssignment: assigned}) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no active assignment for this course and class")
	}

	report := &models.Report{
		LecturerID:       actor.UserID,
		CourseID:         req.CourseID,
		ClassID:          req.ClassID,
		WeekNumber:       req.WeekNumber,
		LectureDate:      req.LectureDate,
		PresentCount:     req.PresentCount,
		RegisteredCount:  req.RegisteredCount,
		Topic:            req.Topic,
		LearningOutcomes: req.LearningOutcomes,
		Recommendations:  req.Recommendations,
		Status:           models.ReportStatusSubmitted,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}

	s.events.Dispatch(ctx, notify.Event{
		Type:         notify.EventReportSubmitted,
		ActorID:      actor.UserID,
		EntityID:     report.ID,
		RecipientIDs: []string{course.PrincipalLecturerID},
		Title:        "New lecture report",
		Message:      fmt.Sprintf("Week %d report submitted for %s", report.WeekNumber, course.Name),
	})
	return report, nil
}

// AttachFeedback upserts the report's single feedback row and advances the
// report to feedback_added when it is still in submitted. A report already
// beyond submitted keeps its status; only the feedback content is replaced.
func (s *ReportService) AttachFeedback(ctx context.Context, actor *models.JWTClaims, reportID string, req AttachFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	report, course, err := s.loadReportWithCourse(ctx, reportID)
	if err != nil {
		return nil, err
	}
	facts := policy.Facts{ActorIsPrincipalLecturer: course.PrincipalLecturerID == actor.UserID}
	if !policy.Allow(actor.Role, policy.ActionAttachFeedback, facts) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course principal lecturer may review this report")
	}

	feedback := &models.Feedback{
		ReportID: report.ID,
		AuthorID: actor.UserID,
		Text:     req.Text,
		Rating:   req.Rating,
	}
	if err := withConflictRetry(func() error {
		return s.reports.UpsertFeedback(ctx, feedback)
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save feedback")
	}

	if report.Status == models.ReportStatusSubmitted {
		if _, err := s.reports.UpdateStatusIf(ctx, report.ID, models.ReportStatusSubmitted, models.ReportStatusFeedbackAdded); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance report status")
		}
	}

	s.events.Dispatch(ctx, notify.Event{
		Type:         notify.EventFeedbackAttached,
		ActorID:      actor.UserID,
		EntityID:     report.ID,
		RecipientIDs: []string{report.LecturerID},
		Title:        "Feedback on your report",
		Message:      fmt.Sprintf("Your week %d report for %s received feedback", report.WeekNumber, course.Name),
	})
	return feedback, nil
}

// Finalize moves a reviewed report to its terminal outcome. Only legal from
// feedback_added; anything else is an invalid transition.
func (s *ReportService) Finalize(ctx context.Context, actor *models.JWTClaims, reportID string, req FinalizeReportRequest) (*models.Report, error) {
	outcome := models.ReportStatus(req.Outcome)
	if !outcome.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "outcome must be approved or needs_improvement")
	}

	report, course, err := s.loadReportWithCourse(ctx, reportID)
	if err != nil {
		return nil, err
	}
	facts := policy.Facts{ActorIsPrincipalLecturer: course.PrincipalLecturerID == actor.UserID}
	if !policy.Allow(actor.Role, policy.ActionFinalizeReport, facts) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course principal lecturer may finalize this report")
	}

	moved, err := s.reports.UpdateStatusIf(ctx, report.ID, models.ReportStatusFeedbackAdded, outcome)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize report")
	}
	if !moved {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("report %s cannot move from %s to %s", report.ID, report.Status, outcome))
	}
	report.Status = outcome

	s.events.Dispatch(ctx, notify.Event{
		Type:         notify.EventReportFinalized,
		ActorID:      actor.UserID,
		EntityID:     report.ID,
		RecipientIDs: []string{report.LecturerID},
		Title:        "Report finalized",
		Message:      fmt.Sprintf("Your week %d report for %s was marked %s", report.WeekNumber, course.Name, outcome),
	})
	return report, nil
}

// Get returns a report and its feedback, gated by ownership: the filing
// lecturer, the course PRL, and the course PL may read it.
func (s *ReportService) Get(ctx context.Context, actor *models.JWTClaims, reportID string) (*models.ReportDetail, error) {
	report, course, err := s.loadReportWithCourse(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != report.LecturerID && actor.UserID != course.PrincipalLecturerID && actor.UserID != course.ProgramLeaderID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not visible to this user")
	}

	detail := &models.ReportDetail{Report: *report}
	feedback, err := s.reports.GetFeedbackByReport(ctx, reportID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	if err == nil {
		detail.Feedback = feedback
	}
	return detail, nil
}

// ListForLecturer returns the lecturer's own reports.
func (s *ReportService) ListForLecturer(ctx context.Context, lecturerID string) ([]models.Report, error) {
	reports, err := s.reports.ListByLecturer(ctx, lecturerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, nil
}

// ListForPrincipalLecturer returns reports filed against the PRL's courses.
func (s *ReportService) ListForPrincipalLecturer(ctx context.Context, prlID string) ([]models.Report, error) {
	reports, err := s.reports.ListByPrincipalLecturer(ctx, prlID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, nil
}

func (s *ReportService) loadReportWithCourse(ctx context.Context, reportID string) (*models.Report, *models.Course, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("report %s not found", reportID))
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	course, err := s.courses.FindByID(ctx, report.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return report, course, nil
}
