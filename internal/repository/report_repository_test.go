package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lecture_reports")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	report := &models.Report{
		LecturerID:       "lect-1",
		CourseID:         "course-1",
		ClassID:          "class-1",
		WeekNumber:       6,
		LectureDate:      time.Date(2025, 10, 6, 0, 0, 0, 0, time.UTC),
		PresentCount:     28,
		RegisteredCount:  32,
		Topic:            "Pointers",
		LearningOutcomes: "Understand indirection",
	}
	require.NoError(t, repo.Create(context.Background(), report))
	require.NotEmpty(t, report.ID)
	require.Equal(t, models.ReportStatusSubmitted, report.Status)

	rows := sqlmock.NewRows([]string{"id", "lecturer_id", "course_id", "class_id", "week_number", "lecture_date", "present_count", "registered_count", "topic", "learning_outcomes", "recommendations", "status", "created_at", "updated_at"}).
		AddRow(report.ID, "lect-1", "course-1", "class-1", 6, report.LectureDate, 28, 32, "Pointers", "Understand indirection", nil, "submitted", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs(report.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), report.ID)
	require.NoError(t, err)
	require.Equal(t, report.ID, fetched.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpsertFeedbackConflictTarget(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (report_id) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	feedback := &models.Feedback{ReportID: "report-1", AuthorID: "prl-1", Text: "solid coverage", Rating: 4}
	require.NoError(t, repo.UpsertFeedback(context.Background(), feedback))
	require.NotEmpty(t, feedback.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateStatusIfGuards(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE lecture_reports SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs(models.ReportStatusFeedbackAdded, sqlmock.AnyArg(), "report-1", models.ReportStatusSubmitted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	moved, err := repo.UpdateStatusIf(context.Background(), "report-1", models.ReportStatusSubmitted, models.ReportStatusFeedbackAdded)
	require.NoError(t, err)
	require.True(t, moved)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE lecture_reports SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4")).
		WithArgs(models.ReportStatusApproved, sqlmock.AnyArg(), "report-1", models.ReportStatusFeedbackAdded).
		WillReturnResult(sqlmock.NewResult(0, 0))

	moved, err = repo.UpdateStatusIf(context.Background(), "report-1", models.ReportStatusFeedbackAdded, models.ReportStatusApproved)
	require.NoError(t, err)
	require.False(t, moved)
	require.NoError(t, mock.ExpectationsWereMet())
}
