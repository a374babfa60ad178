package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/notify"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, page, pageSize int) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
}

// pushPublisher relays a created notification to live subscribers, possibly
// across instances. Failures are logged and swallowed: the persisted row is
// the source of truth and the push only trims latency.
type pushPublisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

type fanoutRecorder interface {
	ObserveNotificationFanout(event string, ok bool)
}

// NotificationService turns domain events into durable notification rows and
// fans them out to subscribers.
type NotificationService struct {
	repo      notificationRepository
	hub       *notify.Hub
	publisher pushPublisher
	metrics   fanoutRecorder
	pageSize  int
	logger    *zap.Logger
}

// NewNotificationService constructs the service. publisher may be nil, in
// which case pushes stay in-process through the hub. metrics may be nil.
// historyPageSize is the page size used when the caller does not ask for one.
func NewNotificationService(repo notificationRepository, hub *notify.Hub, publisher pushPublisher, metrics fanoutRecorder, historyPageSize int, logger *zap.Logger) *NotificationService {
	if historyPageSize <= 0 || historyPageSize > 100 {
		historyPageSize = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, hub: hub, publisher: publisher, metrics: metrics, pageSize: historyPageSize, logger: logger}
}

// Dispatch persists one notification per event recipient and pushes each to
// live subscribers. The triggering entity write has already committed by the
// time this runs; nothing here may fail that transition, so every error is
// logged and absorbed.
func (s *NotificationService) Dispatch(ctx context.Context, event notify.Event) {
	for _, recipientID := range event.RecipientIDs {
		actorID := event.ActorID
		n := &models.Notification{
			RecipientID: recipientID,
			Title:       event.Title,
			Message:     event.Message,
		}
		if actorID != "" {
			n.ActorID = &actorID
		}

		err := s.repo.Create(ctx, n)
		if s.metrics != nil {
			s.metrics.ObserveNotificationFanout(string(event.Type), err == nil)
		}
		if err != nil {
			s.logger.Error("notification row creation failed",
				zap.String("event", string(event.Type)),
				zap.String("recipient_id", recipientID),
				zap.Error(err),
			)
			continue
		}

		s.push(ctx, *n)
	}
}

func (s *NotificationService) push(ctx context.Context, n models.Notification) {
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			s.logger.Warn("notification push failed, row remains retrievable",
				zap.String("notification_id", n.ID),
				zap.Error(err),
			)
		}
		return
	}
	if s.hub != nil {
		s.hub.Publish(n)
	}
}

// Subscribe registers a live listener for a recipient. The cancel func is
// idempotent.
func (s *NotificationService) Subscribe(recipientID string) (<-chan models.Notification, func()) {
	return s.hub.Subscribe(recipientID)
}

// List returns a page of the recipient's notifications plus the unread count.
// A non-positive or out-of-range page size falls back to the configured
// history page size.
func (s *NotificationService) List(ctx context.Context, recipientID string, page, pageSize int) ([]models.Notification, *models.Pagination, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = s.pageSize
	}
	notifications, total, err := s.repo.ListByRecipient(ctx, recipientID, page, pageSize)
	if err != nil {
		return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	pagination := &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	return notifications, pagination, unread, nil
}

// MarkRead flips a notification's read flag, verifying ownership.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	if err := s.repo.MarkRead(ctx, id, recipientID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flips every unread notification of a recipient.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	if err := s.repo.MarkAllRead(ctx, recipientID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}
