package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

// ReportRepository persists lecture reports and their PRL feedback.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, lecturer_id, course_id, class_id, week_number, lecture_date, present_count, registered_count, topic, learning_outcomes, recommendations, status, created_at, updated_at`

// Create inserts a new report in its initial state.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	if report.Status == "" {
		report.Status = models.ReportStatusSubmitted
	}
	const query = `INSERT INTO lecture_reports (id, lecturer_id, course_id, class_id, week_number, lecture_date, present_count, registered_count, topic, learning_outcomes, recommendations, status, created_at, updated_at)
VALUES (:id, :lecturer_id, :course_id, :class_id, :week_number, :lecture_date, :present_count, :registered_count, :topic, :learning_outcomes, :recommendations, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetByID returns a report by identifier.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM lecture_reports WHERE id = $1`, reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListByLecturer returns a lecturer's own reports, newest lecture first.
func (r *ReportRepository) ListByLecturer(ctx context.Context, lecturerID string) ([]models.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM lecture_reports WHERE lecturer_id = $1 ORDER BY lecture_date DESC`, reportColumns)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, lecturerID); err != nil {
		return nil, fmt.Errorf("list lecturer reports: %w", err)
	}
	return reports, nil
}

// ListByPrincipalLecturer returns every report filed against courses the
// principal lecturer oversees.
func (r *ReportRepository) ListByPrincipalLecturer(ctx context.Context, prlID string) ([]models.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM lecture_reports
WHERE course_id IN (SELECT id FROM courses WHERE principal_lecturer_id = $1)
ORDER BY lecture_date DESC`, reportColumns)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, prlID); err != nil {
		return nil, fmt.Errorf("list prl reports: %w", err)
	}
	return reports, nil
}

// ListForPeriod returns a course's reports dated inside [start, end].
func (r *ReportRepository) ListForPeriod(ctx context.Context, courseID string, start, end time.Time) ([]models.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM lecture_reports
WHERE course_id = $1 AND lecture_date >= $2 AND lecture_date <= $3
ORDER BY lecture_date ASC`, reportColumns)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, courseID, start, end); err != nil {
		return nil, fmt.Errorf("list period reports: %w", err)
	}
	return reports, nil
}

// UpdateStatusIf moves a report from one status to another in a single
// guarded write. It returns false when the report was not in the expected
// status, letting the caller distinguish a lost race from success.
func (r *ReportRepository) UpdateStatusIf(ctx context.Context, id string, from, to models.ReportStatus) (bool, error) {
	const query = `UPDATE lecture_reports SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("update report status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check report status rows: %w", err)
	}
	return affected > 0, nil
}

// UpsertFeedback writes the single feedback row for a report. The unique key
// on report_id makes concurrent calls resolve last-writer-wins; no second row
// can ever exist.
func (r *ReportRepository) UpsertFeedback(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = now
	}
	feedback.UpdatedAt = now
	const query = `INSERT INTO report_feedback (id, report_id, author_id, text, rating, created_at, updated_at)
VALUES (:id, :report_id, :author_id, :text, :rating, :created_at, :updated_at)
ON CONFLICT (report_id) DO UPDATE
SET author_id = EXCLUDED.author_id, text = EXCLUDED.text, rating = EXCLUDED.rating, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("upsert feedback: %w", err)
	}
	return nil
}

// GetFeedbackByReport returns the feedback attached to a report, if any.
func (r *ReportRepository) GetFeedbackByReport(ctx context.Context, reportID string) (*models.Feedback, error) {
	const query = `SELECT id, report_id, author_id, text, rating, created_at, updated_at
FROM report_feedback WHERE report_id = $1`
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, reportID); err != nil {
		return nil, err
	}
	return &feedback, nil
}
