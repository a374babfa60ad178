package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/luct-reporting-api/internal/aggregate"
	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/notify"
	"github.com/noah-isme/luct-reporting-api/internal/policy"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

type summaryRepository interface {
	Create(ctx context.Context, summary *models.SummaryReport) error
	GetByID(ctx context.Context, id string) (*models.SummaryReport, error)
	ListByPrl(ctx context.Context, prlID string) ([]models.SummaryReport, error)
	ListByProgramLeader(ctx context.Context, plID string) ([]models.SummaryReport, error)
	SetStatus(ctx context.Context, id string, status models.SummaryStatus) error
	UpsertFeedback(ctx context.Context, feedback *models.SummaryFeedback) error
	GetFeedbackBySummary(ctx context.Context, summaryID string) (*models.SummaryFeedback, error)
}

type periodReportReader interface {
	ListForPeriod(ctx context.Context, courseID string, start, end time.Time) ([]models.Report, error)
}

// CreateSummaryRequest is the PRL's period attestation payload.
type CreateSummaryRequest struct {
	CourseID        string    `json:"course_id" validate:"required"`
	PeriodStart     time.Time `json:"period_start" validate:"required"`
	PeriodEnd       time.Time `json:"period_end" validate:"required"`
	Highlights      string    `json:"highlights" validate:"required"`
	Concerns        *string   `json:"concerns"`
	Recommendations string    `json:"recommendations" validate:"required"`
}

// AttachSummaryFeedbackRequest is the program leader's response payload.
type AttachSummaryFeedbackRequest struct {
	Text        string  `json:"text" validate:"required"`
	ActionItems *string `json:"action_items"`
}

// SummaryService owns the summary report state machine:
// submitted → feedback_received.
type SummaryService struct {
	summaries summaryRepository
	reports   periodReportReader
	courses   courseReader
	events    eventDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSummaryService constructs the service.
func NewSummaryService(
	summaries summaryRepository,
	reports periodReportReader,
	courses courseReader,
	events eventDispatcher,
	validate *validator.Validate,
	logger *zap.Logger,
) *SummaryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{
		summaries: summaries,
		reports:   reports,
		courses:   courses,
		events:    events,
		validator: validate,
		logger:    logger,
	}
}

// Create snapshots the PRL's visible report set for the period into a new
// summary. The aggregates are frozen at this moment; later report changes do
// not rewrite an already-delivered attestation.
func (s *SummaryService) Create(ctx context.Context, actor *models.JWTClaims, req CreateSummaryRequest) (*models.SummaryReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid summary payload")
	}
	if req.PeriodEnd.Before(req.PeriodStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "period_end must not precede period_start")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	facts := policy.Facts{ActorIsPrincipalLecturer: course.PrincipalLecturerID == actor.UserID}
	if !policy.Allow(actor.Role, policy.ActionCreateSummary, facts) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the course principal lecturer may create a summary")
	}

	reports, err := s.reports.ListForPeriod(ctx, req.CourseID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to gather period reports")
	}
	snapshot := aggregate.Attendance(reports)

	summary := &models.SummaryReport{
		PrlID:             actor.UserID,
		ProgramLeaderID:   course.ProgramLeaderID,
		CourseID:          course.ID,
		PeriodStart:       req.PeriodStart,
		PeriodEnd:         req.PeriodEnd,
		TotalLectures:     snapshot.TotalLectures,
		AverageAttendance: snapshot.AverageAttendance,
		Highlights:        req.Highlights,
		Concerns:          req.Concerns,
		Recommendations:   req.Recommendations,
		Status:            models.SummaryStatusSubmitted,
	}
	if err := s.summaries.Create(ctx, summary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create summary")
	}

	s.events.Dispatch(ctx, notify.Event{
		Type:         notify.EventSummaryCreated,
		ActorID:      actor.UserID,
		EntityID:     summary.ID,
		RecipientIDs: []string{course.ProgramLeaderID},
		Title:        "New summary report",
		Message:      fmt.Sprintf("Summary for %s covering %s to %s", course.Name, req.PeriodStart.Format("2006-01-02"), req.PeriodEnd.Format("2006-01-02")),
	})
	return summary, nil
}

// AttachFeedback upserts the summary's single feedback row and moves the
// summary to feedback_received. Repeat calls replace the feedback content;
// the status write is idempotent because there is no further state.
func (s *SummaryService) AttachFeedback(ctx context.Context, actor *models.JWTClaims, summaryID string, req AttachSummaryFeedbackRequest) (*models.SummaryFeedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	summary, err := s.summaries.GetByID(ctx, summaryID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("summary %s not found", summaryID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load summary")
	}
	facts := policy.Facts{ActorIsProgramLeader: summary.ProgramLeaderID == actor.UserID}
	if !policy.Allow(actor.Role, policy.ActionAttachSummaryFeedback, facts) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the addressed program leader may respond to this summary")
	}

	feedback := &models.SummaryFeedback{
		SummaryReportID: summary.ID,
		AuthorID:        actor.UserID,
		Text:            req.Text,
		ActionItems:     req.ActionItems,
	}
	if err := withConflictRetry(func() error {
		return s.summaries.UpsertFeedback(ctx, feedback)
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save summary feedback")
	}
	if err := s.summaries.SetStatus(ctx, summary.ID, models.SummaryStatusFeedbackReceived); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update summary status")
	}

	s.events.Dispatch(ctx, notify.Event{
		Type:         notify.EventSummaryFeedbackAttached,
		ActorID:      actor.UserID,
		EntityID:     summary.ID,
		RecipientIDs: []string{summary.PrlID},
		Title:        "Feedback on your summary",
		Message:      "Your summary report received program leader feedback",
	})
	return feedback, nil
}

// Get returns a summary and its feedback, visible to its PRL and PL.
func (s *SummaryService) Get(ctx context.Context, actor *models.JWTClaims, summaryID string) (*models.SummaryDetail, error) {
	summary, err := s.summaries.GetByID(ctx, summaryID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("summary %s not found", summaryID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load summary")
	}
	if actor.UserID != summary.PrlID && actor.UserID != summary.ProgramLeaderID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "summary not visible to this user")
	}

	detail := &models.SummaryDetail{SummaryReport: *summary}
	feedback, err := s.summaries.GetFeedbackBySummary(ctx, summaryID)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load summary feedback")
	}
	if err == nil {
		detail.Feedback = feedback
	}
	return detail, nil
}

// ListForPrl returns summaries the PRL authored.
func (s *SummaryService) ListForPrl(ctx context.Context, prlID string) ([]models.SummaryReport, error) {
	summaries, err := s.summaries.ListByPrl(ctx, prlID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list summaries")
	}
	return summaries, nil
}

// ListForProgramLeader returns summaries addressed to the PL.
func (s *SummaryService) ListForProgramLeader(ctx context.Context, plID string) ([]models.SummaryReport, error) {
	summaries, err := s.summaries.ListByProgramLeader(ctx, plID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list summaries")
	}
	return summaries, nil
}
