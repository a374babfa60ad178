package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

// SummaryRepository persists summary reports and their PL feedback.
type SummaryRepository struct {
	db *sqlx.DB
}

// NewSummaryRepository constructs the repository.
func NewSummaryRepository(db *sqlx.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

const summaryColumns = `id, prl_id, program_leader_id, course_id, period_start, period_end, total_lectures, average_attendance, highlights, concerns, recommendations, status, created_at, updated_at`

// Create inserts a new summary with its computed snapshot.
func (r *SummaryRepository) Create(ctx context.Context, summary *models.SummaryReport) error {
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = now
	}
	summary.UpdatedAt = now
	if summary.Status == "" {
		summary.Status = models.SummaryStatusSubmitted
	}
	const query = `INSERT INTO summary_reports (id, prl_id, program_leader_id, course_id, period_start, period_end, total_lectures, average_attendance, highlights, concerns, recommendations, status, created_at, updated_at)
VALUES (:id, :prl_id, :program_leader_id, :course_id, :period_start, :period_end, :total_lectures, :average_attendance, :highlights, :concerns, :recommendations, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, summary); err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	return nil
}

// GetByID returns a summary by identifier.
func (r *SummaryRepository) GetByID(ctx context.Context, id string) (*models.SummaryReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM summary_reports WHERE id = $1`, summaryColumns)
	var summary models.SummaryReport
	if err := r.db.GetContext(ctx, &summary, query, id); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListByPrl returns summaries authored by the principal lecturer.
func (r *SummaryRepository) ListByPrl(ctx context.Context, prlID string) ([]models.SummaryReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM summary_reports WHERE prl_id = $1 ORDER BY created_at DESC`, summaryColumns)
	var summaries []models.SummaryReport
	if err := r.db.SelectContext(ctx, &summaries, query, prlID); err != nil {
		return nil, fmt.Errorf("list prl summaries: %w", err)
	}
	return summaries, nil
}

// ListByProgramLeader returns summaries addressed to the program leader.
func (r *SummaryRepository) ListByProgramLeader(ctx context.Context, plID string) ([]models.SummaryReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM summary_reports WHERE program_leader_id = $1 ORDER BY created_at DESC`, summaryColumns)
	var summaries []models.SummaryReport
	if err := r.db.SelectContext(ctx, &summaries, query, plID); err != nil {
		return nil, fmt.Errorf("list pl summaries: %w", err)
	}
	return summaries, nil
}

// SetStatus writes the summary status unconditionally; feedback_received is
// the only target and repeating it is idempotent.
func (r *SummaryRepository) SetStatus(ctx context.Context, id string, status models.SummaryStatus) error {
	const query = `UPDATE summary_reports SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set summary status: %w", err)
	}
	return nil
}

// UpsertFeedback writes the single feedback row for a summary. The unique key
// on summary_report_id resolves concurrent writes last-writer-wins.
func (r *SummaryRepository) UpsertFeedback(ctx context.Context, feedback *models.SummaryFeedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = now
	}
	feedback.UpdatedAt = now
	const query = `INSERT INTO summary_feedback (id, summary_report_id, author_id, text, action_items, created_at, updated_at)
VALUES (:id, :summary_report_id, :author_id, :text, :action_items, :created_at, :updated_at)
ON CONFLICT (summary_report_id) DO UPDATE
SET author_id = EXCLUDED.author_id, text = EXCLUDED.text, action_items = EXCLUDED.action_items, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("upsert summary feedback: %w", err)
	}
	return nil
}

// GetFeedbackBySummary returns the feedback attached to a summary, if any.
func (r *SummaryRepository) GetFeedbackBySummary(ctx context.Context, summaryID string) (*models.SummaryFeedback, error) {
	const query = `SELECT id, summary_report_id, author_id, text, action_items, created_at, updated_at
FROM summary_feedback WHERE summary_report_id = $1`
	var feedback models.SummaryFeedback
	if err := r.db.GetContext(ctx, &feedback, query, summaryID); err != nil {
		return nil, err
	}
	return &feedback, nil
}
