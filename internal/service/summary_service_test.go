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

type summaryRepoStub struct {
	summaries map[string]*models.SummaryReport
	feedback  map[string]*models.SummaryFeedback
}

func newSummaryRepoStub() *summaryRepoStub {
	return &summaryRepoStub{
		summaries: map[string]*models.SummaryReport{},
		feedback:  map[string]*models.SummaryFeedback{},
	}
}

func (s *summaryRepoStub) Create(ctx context.Context, summary *models.SummaryReport) error {
	if summary.ID == "" {
		summary.ID = "summary-1"
	}
	cp := *summary
	s.summaries[summary.ID] = &cp
	return nil
}

func (s *summaryRepoStub) GetByID(ctx context.Context, id string) (*models.SummaryReport, error) {
	if summary, ok := s.summaries[id]; ok {
		cp := *summary
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *summaryRepoStub) ListByPrl(ctx context.Context, prlID string) ([]models.SummaryReport, error) {
	return nil, nil
}

func (s *summaryRepoStub) ListByProgramLeader(ctx context.Context, plID string) ([]models.SummaryReport, error) {
	return nil, nil
}

func (s *summaryRepoStub) SetStatus(ctx context.Context, id string, status models.SummaryStatus) error {
	if summary, ok := s.summaries[id]; ok {
		summary.Status = status
	}
	return nil
}

func (s *summaryRepoStub) UpsertFeedback(ctx context.Context, feedback *models.SummaryFeedback) error {
	cp := *feedback
	s.feedback[feedback.SummaryReportID] = &cp
	return nil
}

func (s *summaryRepoStub) GetFeedbackBySummary(ctx context.Context, summaryID string) (*models.SummaryFeedback, error) {
	if feedback, ok := s.feedback[summaryID]; ok {
		cp := *feedback
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type periodReaderStub struct {
	reports []models.Report
}

func (s *periodReaderStub) ListForPeriod(ctx context.Context, courseID string, start, end time.Time) ([]models.Report, error) {
	return s.reports, nil
}

func summaryFixture(reports []models.Report) (*summaryRepoStub, *eventRecorder, *SummaryService) {
	repo := newSummaryRepoStub()
	courses := &courseReaderStub{
		courses: map[string]*models.Course{
			"course-1": {ID: "course-1", Name: "Databases", PrincipalLecturerID: "prl-1", ProgramLeaderID: "pl-1"},
		},
	}
	events := &eventRecorder{}
	svc := NewSummaryService(repo, &periodReaderStub{reports: reports}, courses, events, nil, nil)
	return repo, events, svc
}

func validCreateSummaryRequest() CreateSummaryRequest {
	return CreateSummaryRequest{
		CourseID:        "course-1",
		PeriodStart:     time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Highlights:      "Attendance holding steady",
		Recommendations: "Keep the weekly quizzes",
	}
}

func plClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "pl-1", Role: models.RoleProgramLeader}
}

func TestSummaryServiceCreateEmptyPeriod(t *testing.T) {
	repo, events, svc := summaryFixture(nil)

	summary, err := svc.Create(context.Background(), prlClaims(), validCreateSummaryRequest())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalLectures)
	assert.Equal(t, 0.0, summary.AverageAttendance)
	assert.Equal(t, models.SummaryStatusSubmitted, summary.Status)
	assert.Equal(t, "pl-1", summary.ProgramLeaderID)
	assert.Len(t, repo.summaries, 1)

	require.Len(t, events.events, 1)
	assert.Equal(t, notify.EventSummaryCreated, events.events[0].Type)
	assert.Equal(t, []string{"pl-1"}, events.events[0].RecipientIDs)
}

func TestSummaryServiceCreateSnapshotsAggregates(t *testing.T) {
	reports := []models.Report{
		{PresentCount: 30, RegisteredCount: 40},
		{PresentCount: 25, RegisteredCount: 40},
	}
	_, _, svc := summaryFixture(reports)

	summary, err := svc.Create(context.Background(), prlClaims(), validCreateSummaryRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalLectures)
	assert.InDelta(t, 68.75, summary.AverageAttendance, 0.001)
}

func TestSummaryServiceCreateInvertedPeriod(t *testing.T) {
	_, _, svc := summaryFixture(nil)

	req := validCreateSummaryRequest()
	req.PeriodStart, req.PeriodEnd = req.PeriodEnd, req.PeriodStart
	_, err := svc.Create(context.Background(), prlClaims(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestSummaryServiceCreateDeniedForOtherPrl(t *testing.T) {
	_, events, svc := summaryFixture(nil)

	outsider := &models.JWTClaims{UserID: "prl-2", Role: models.RolePrincipalLecturer}
	_, err := svc.Create(context.Background(), outsider, validCreateSummaryRequest())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Empty(t, events.events)
}

func TestSummaryServiceAttachFeedback(t *testing.T) {
	repo, events, svc := summaryFixture(nil)
	summary, err := svc.Create(context.Background(), prlClaims(), validCreateSummaryRequest())
	require.NoError(t, err)

	items := "schedule a catch-up lecture"
	_, err = svc.AttachFeedback(context.Background(), plClaims(), summary.ID, AttachSummaryFeedbackRequest{Text: "noted", ActionItems: &items})
	require.NoError(t, err)
	assert.Equal(t, models.SummaryStatusFeedbackReceived, repo.summaries[summary.ID].Status)

	require.Len(t, events.events, 2)
	assert.Equal(t, notify.EventSummaryFeedbackAttached, events.events[1].Type)
	assert.Equal(t, []string{"prl-1"}, events.events[1].RecipientIDs)
}

func TestSummaryServiceAttachFeedbackTwiceKeepsSingleRow(t *testing.T) {
	repo, _, svc := summaryFixture(nil)
	summary, err := svc.Create(context.Background(), prlClaims(), validCreateSummaryRequest())
	require.NoError(t, err)

	_, err = svc.AttachFeedback(context.Background(), plClaims(), summary.ID, AttachSummaryFeedbackRequest{Text: "first"})
	require.NoError(t, err)
	_, err = svc.AttachFeedback(context.Background(), plClaims(), summary.ID, AttachSummaryFeedbackRequest{Text: "second"})
	require.NoError(t, err)

	require.Len(t, repo.feedback, 1)
	assert.Equal(t, "second", repo.feedback[summary.ID].Text)
	assert.Equal(t, models.SummaryStatusFeedbackReceived, repo.summaries[summary.ID].Status)
}

func TestSummaryServiceGetVisibility(t *testing.T) {
	_, _, svc := summaryFixture(nil)
	summary, err := svc.Create(context.Background(), prlClaims(), validCreateSummaryRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), plClaims(), summary.ID)
	require.NoError(t, err)

	stranger := &models.JWTClaims{UserID: "pl-9", Role: models.RoleProgramLeader}
	_, err = svc.Get(context.Background(), stranger, summary.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}
