package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/luct-reporting-api/internal/models"
)

// MonitoringRepository persists monitoring logs.
type MonitoringRepository struct {
	db *sqlx.DB
}

// NewMonitoringRepository constructs the repository.
func NewMonitoringRepository(db *sqlx.DB) *MonitoringRepository {
	return &MonitoringRepository{db: db}
}

const monitoringColumns = `id, subject_user_id, author_id, class_id, observation, status, action_taken, created_at, updated_at`

// Create inserts a new open monitoring log.
func (r *MonitoringRepository) Create(ctx context.Context, log *models.MonitoringLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.UpdatedAt = now
	if log.Status == "" {
		log.Status = models.MonitoringStatusOpen
	}
	const query = `INSERT INTO monitoring_logs (id, subject_user_id, author_id, class_id, observation, status, action_taken, created_at, updated_at)
VALUES (:id, :subject_user_id, :author_id, :class_id, :observation, :status, :action_taken, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create monitoring log: %w", err)
	}
	return nil
}

// GetByID returns a monitoring log by identifier.
func (r *MonitoringRepository) GetByID(ctx context.Context, id string) (*models.MonitoringLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM monitoring_logs WHERE id = $1`, monitoringColumns)
	var log models.MonitoringLog
	if err := r.db.GetContext(ctx, &log, query, id); err != nil {
		return nil, err
	}
	return &log, nil
}

// Respond updates status and action taken on a log.
func (r *MonitoringRepository) Respond(ctx context.Context, id string, status models.MonitoringStatus, actionTaken *string) error {
	const query = `UPDATE monitoring_logs SET status = $1, action_taken = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, status, actionTaken, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("respond monitoring log: %w", err)
	}
	return nil
}

// ListBySubject returns logs about the monitored user, newest first.
func (r *MonitoringRepository) ListBySubject(ctx context.Context, subjectUserID string) ([]models.MonitoringLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM monitoring_logs WHERE subject_user_id = $1 ORDER BY created_at DESC`, monitoringColumns)
	var logs []models.MonitoringLog
	if err := r.db.SelectContext(ctx, &logs, query, subjectUserID); err != nil {
		return nil, fmt.Errorf("list subject monitoring logs: %w", err)
	}
	return logs, nil
}

// ListByAuthor returns logs created by a user, newest first.
func (r *MonitoringRepository) ListByAuthor(ctx context.Context, authorID string) ([]models.MonitoringLog, error) {
	query := fmt.Sprintf(`SELECT %s FROM monitoring_logs WHERE author_id = $1 ORDER BY created_at DESC`, monitoringColumns)
	var logs []models.MonitoringLog
	if err := r.db.SelectContext(ctx, &logs, query, authorID); err != nil {
		return nil, fmt.Errorf("list author monitoring logs: %w", err)
	}
	return logs, nil
}
