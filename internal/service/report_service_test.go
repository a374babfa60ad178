package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/notify"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

type courseReaderStub struct {
	courses map[string]*models.Course
	classes map[string]*models.Class
}

func (s *courseReaderStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := s.courses[id]; ok {
		cp := *course
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *courseReaderStub) FindClassByID(ctx context.Context, id string) (*models.Class, error) {
	if class, ok := s.classes[id]; ok {
		cp := *class
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type eventRecorder struct {
	events []notify.Event
}

func (r *eventRecorder) Dispatch(ctx context.Context, event notify.Event) {
	r.events = append(r.events, event)
}

type assignmentCheckerStub struct {
	active bool
}

func (s *assignmentCheckerStub) HasActive(ctx context.Context, lecturerID, courseID, classID string) (bool, error) {
	return s.active, nil
}

type reportRepoStub struct {
	reports  map[string]*models.Report
	feedback map[string]*models.Feedback
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{
		reports:  map[string]*models.Report{},
		feedback: map[string]*models.Feedback{},
	}
}

func (s *reportRepoStub) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = "report-" + report.Topic
	}
	cp := *report
	s.reports[report.ID] = &cp
	return nil
}

func (s *reportRepoStub) GetByID(ctx context.Context, id string) (*models.Report, error) {
	if report, ok := s.reports[id]; ok {
		cp := *report
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *reportRepoStub) ListByLecturer(ctx context.Context, lecturerID string) ([]models.Report, error) {
	var out []models.Report
	for _, report := range s.reports {
		if report.LecturerID == lecturerID {
			out = append(out, *report)
		}
	}
	return out, nil
}

func (s *reportRepoStub) ListByPrincipalLecturer(ctx context.Context, prlID string) ([]models.Report, error) {
	return nil, nil
}

func (s *reportRepoStub) UpdateStatusIf(ctx context.Context, id string, from, to models.ReportStatus) (bool, error) {
	report, ok := s.reports[id]
	if !ok || report.Status != from {
		return false, nil
	}
	report.Status = to
	return true, nil
}

func (s *reportRepoStub) UpsertFeedback(ctx context.Context, feedback *models.Feedback) error {
	cp := *feedback
	s.feedback[feedback.ReportID] = &cp
	return nil
}

func (s *reportRepoStub) GetFeedbackByReport(ctx context.Context, reportID string) (*models.Feedback, error) {
	if feedback, ok := s.feedback[reportID]; ok {
		cp := *feedback
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func reportFixture() (*reportRepoStub, *courseReaderStub, *eventRecorder, *ReportService) {
	repo := newReportRepoStub()
	courses := &courseReaderStub{
		courses: map[string]*models.Course{
			"course-1": {ID: "course-1", Name: "Web Application Development", PrincipalLecturerID: "prl-1", ProgramLeaderID: "pl-1"},
		},
		classes: map[string]*models.Class{
			"class-1": {ID: "class-1", CourseID: "course-1", TotalRegisteredStudents: 40},
		},
	}
	events := &eventRecorder{}
	svc := NewReportService(repo, courses, &assignmentCheckerStub{active: true}, events, nil, nil)
	return repo, courses, events, svc
}

func lecturerClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "lect-1", Role: models.RoleLecturer}
}

func prlClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "prl-1", Role: models.RolePrincipalLecturer}
}

func validSubmitRequest() SubmitReportRequest {
	return SubmitReportRequest{
		CourseID:         "course-1",
		ClassID:          "class-1",
		WeekNumber:       6,
		LectureDate:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		PresentCount:     32,
		RegisteredCount:  40,
		Topic:            "REST APIs",
		LearningOutcomes: "Students can design resource-oriented endpoints",
	}
}

func TestReportServiceSubmitPresentExceedsRegistered(t *testing.T) {
	_, _, events, svc := reportFixture()

	req := validSubmitRequest()
	req.PresentCount = 45

	_, err := svc.Submit(context.Background(), lecturerClaims(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, events.events)
}

func TestReportServiceSubmitWithoutAssignment(t *testing.T) {
	repo := newReportRepoStub()
	courses := &courseReaderStub{
		courses: map[string]*models.Course{"course-1": {ID: "course-1", PrincipalLecturerID: "prl-1"}},
		classes: map[string]*models.Class{"class-1": {ID: "class-1", CourseID: "course-1"}},
	}
	events := &eventRecorder{}
	svc := NewReportService(repo, courses, &assignmentCheckerStub{active: false}, events, nil, nil)

	_, err := svc.Submit(context.Background(), lecturerClaims(), validSubmitRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, repo.reports)
}

func TestReportServiceSubmitNotifiesPrincipalLecturer(t *testing.T) {
	_, _, events, svc := reportFixture()

	report, err := svc.Submit(context.Background(), lecturerClaims(), validSubmitRequest())
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusSubmitted, report.Status)

	require.Len(t, events.events, 1)
	assert.Equal(t, notify.EventReportSubmitted, events.events[0].Type)
	assert.Equal(t, []string{"prl-1"}, events.events[0].RecipientIDs)
}

func TestReportServiceAttachFeedbackDeniedForOtherPrl(t *testing.T) {
	repo, _, _, svc := reportFixture()
	report, err := svc.Submit(context.Background(), lecturerClaims(), validSubmitRequest())
	require.NoError(t, err)

	outsider := &models.JWTClaims{UserID: "prl-2", Role: models.RolePrincipalLecturer}
	_, err = svc.AttachFeedback(context.Background(), outsider, report.ID, AttachFeedbackRequest{Text: "good", Rating: 4})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, repo.feedback)
}

func TestReportServiceAttachFeedbackTwiceKeepsSingleRow(t *testing.T) {
	repo, _, _, svc := reportFixture()
	report, err := svc.Submit(context.Background(), lecturerClaims(), validSubmitRequest())
	require.NoError(t, err)

	_, err = svc.AttachFeedback(context.Background(), prlClaims(), report.ID, AttachFeedbackRequest{Text: "first pass", Rating: 3})
	require.NoError(t, err)
	_, err = svc.AttachFeedback(context.Background(), prlClaims(), report.ID, AttachFeedbackRequest{Text: "second pass", Rating: 4})
	require.NoError(t, err)

	require.Len(t, repo.feedback, 1)
	assert.Equal(t, "second pass", repo.feedback[report.ID].Text)
	assert.Equal(t, 4, repo.feedback[report.ID].Rating)
	assert.Equal(t, models.ReportStatusFeedbackAdded, repo.reports[report.ID].Status)
}

func TestReportServiceFinalizeBeforeFeedback(t *testing.T) {
	_, _, _, svc := reportFixture()
	report, err := svc.Submit(context.Background(), lecturerClaims(), validSubmitRequest())
	require.NoError(t, err)

	_, err = svc.Finalize(context.Background(), prlClaims(), report.ID, FinalizeReportRequest{Outcome: "approved"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestReportServiceFullChain(t *testing.T) {
	repo, _, events, svc := reportFixture()

	report, err := svc.Submit(context.Background(), lecturerClaims(), validSubmitRequest())
	require.NoError(t, err)

	_, err = svc.AttachFeedback(context.Background(), prlClaims(), report.ID, AttachFeedbackRequest{Text: "solid delivery", Rating: 4})
	require.NoError(t, err)

	final, err := svc.Finalize(context.Background(), prlClaims(), report.ID, FinalizeReportRequest{Outcome: "approved"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusApproved, final.Status)
	assert.Equal(t, models.ReportStatusApproved, repo.reports[report.ID].Status)

	// one notification per transition, no duplicates
	require.Len(t, events.events, 3)
	assert.Equal(t, notify.EventReportSubmitted, events.events[0].Type)
	assert.Equal(t, notify.EventFeedbackAttached, events.events[1].Type)
	assert.Equal(t, notify.EventReportFinalized, events.events[2].Type)
	assert.Equal(t, []string{"lect-1"}, events.events[2].RecipientIDs)
}

func TestReportServiceFinalizeTwice(t *testing.T) {
	_, _, _, svc := reportFixture()
	report, err := svc.Submit(context.Background(), lecturerClaims(), validSubmitRequest())
	require.NoError(t, err)
	_, err = svc.AttachFeedback(context.Background(), prlClaims(), report.ID, AttachFeedbackRequest{Text: "ok", Rating: 3})
	require.NoError(t, err)
	_, err = svc.Finalize(context.Background(), prlClaims(), report.ID, FinalizeReportRequest{Outcome: "approved"})
	require.NoError(t, err)

	_, err = svc.Finalize(context.Background(), prlClaims(), report.ID, FinalizeReportRequest{Outcome: "needs_improvement"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
}

func TestReportServiceGetVisibility(t *testing.T) {
	_, _, _, svc := reportFixture()
	report, err := svc.Submit(context.Background(), lecturerClaims(), validSubmitRequest())
	require.NoError(t, err)

	detail, err := svc.Get(context.Background(), lecturerClaims(), report.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Feedback)

	stranger := &models.JWTClaims{UserID: "lect-9", Role: models.RoleLecturer}
	_, err = svc.Get(context.Background(), stranger, report.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
