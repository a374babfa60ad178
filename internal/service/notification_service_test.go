package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/notify"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
)

type notificationRepoStub struct {
	rows      []*models.Notification
	failFor      map[string]bool
	createErr    error
	lastPageSize int
}

func newNotificationRepoStub() *notificationRepoStub {
	return &notificationRepoStub{failFor: map[string]bool{}}
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	if s.failFor[n.RecipientID] {
		return errors.New("insert failed")
	}
	if n.ID == "" {
		n.ID = "notif-" + n.RecipientID
	}
	cp := *n
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *notificationRepoStub) ListByRecipient(ctx context.Context, recipientID string, page, pageSize int) ([]models.Notification, int, error) {
	s.lastPageSize = pageSize
	var out []models.Notification
	for _, n := range s.rows {
		if n.RecipientID == recipientID {
			out = append(out, *n)
		}
	}
	return out, len(out), nil
}

func (s *notificationRepoStub) CountUnread(ctx context.Context, recipientID string) (int, error) {
	count := 0
	for _, n := range s.rows {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *notificationRepoStub) MarkRead(ctx context.Context, id, recipientID string) error {
	for _, n := range s.rows {
		if n.ID == id && n.RecipientID == recipientID {
			n.IsRead = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *notificationRepoStub) MarkAllRead(ctx context.Context, recipientID string) error {
	for _, n := range s.rows {
		if n.RecipientID == recipientID {
			n.IsRead = true
		}
	}
	return nil
}

type publisherStub struct {
	published []models.Notification
	err       error
}

func (s *publisherStub) Publish(ctx context.Context, n models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, n)
	return nil
}

func testEvent(recipients ...string) notify.Event {
	return notify.Event{
		Type:         notify.EventReportSubmitted,
		ActorID:      "lect-1",
		EntityID:     "report-1",
		RecipientIDs: recipients,
		Title:        "New lecture report",
		Message:      "Week 6 report submitted",
	}
}

func TestNotificationServiceDispatchPersistsPerRecipient(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, notify.NewHub(4, nil), nil, nil, 0, nil)

	svc.Dispatch(context.Background(), testEvent("prl-1", "pl-1"))

	require.Len(t, repo.rows, 2)
	assert.False(t, repo.rows[0].IsRead)
	require.NotNil(t, repo.rows[0].ActorID)
	assert.Equal(t, "lect-1", *repo.rows[0].ActorID)
}

func TestNotificationServiceDispatchDeliversToSubscriber(t *testing.T) {
	repo := newNotificationRepoStub()
	hub := notify.NewHub(4, nil)
	svc := NewNotificationService(repo, hub, nil, nil, 0, nil)

	ch, cancel := svc.Subscribe("prl-1")
	defer cancel()

	svc.Dispatch(context.Background(), testEvent("prl-1"))

	select {
	case n := <-ch:
		assert.Equal(t, "prl-1", n.RecipientID)
		assert.Equal(t, "New lecture report", n.Title)
	case <-time.After(time.Second):
		t.Fatal("expected a pushed notification")
	}
}

func TestNotificationServiceDispatchAbsorbsRowFailure(t *testing.T) {
	repo := newNotificationRepoStub()
	repo.failFor["prl-1"] = true
	svc := NewNotificationService(repo, notify.NewHub(4, nil), nil, nil, 0, nil)

	// a failing recipient must not stop fan-out to the others
	svc.Dispatch(context.Background(), testEvent("prl-1", "pl-1"))

	require.Len(t, repo.rows, 1)
	assert.Equal(t, "pl-1", repo.rows[0].RecipientID)
}

func TestNotificationServiceDispatchPrefersPublisher(t *testing.T) {
	repo := newNotificationRepoStub()
	publisher := &publisherStub{}
	svc := NewNotificationService(repo, notify.NewHub(4, nil), publisher, nil, 0, nil)

	svc.Dispatch(context.Background(), testEvent("prl-1"))

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "prl-1", publisher.published[0].RecipientID)
}

func TestNotificationServiceDispatchSurvivesPublishFailure(t *testing.T) {
	repo := newNotificationRepoStub()
	publisher := &publisherStub{err: errors.New("redis down")}
	svc := NewNotificationService(repo, notify.NewHub(4, nil), publisher, nil, 0, nil)

	svc.Dispatch(context.Background(), testEvent("prl-1"))

	// the durable row is the source of truth
	require.Len(t, repo.rows, 1)
}

func TestNotificationServiceMarkReadOwnership(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, notify.NewHub(4, nil), nil, nil, 0, nil)
	svc.Dispatch(context.Background(), testEvent("prl-1"))

	err := svc.MarkRead(context.Background(), repo.rows[0].ID, "someone-else")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.MarkRead(context.Background(), repo.rows[0].ID, "prl-1"))
	assert.True(t, repo.rows[0].IsRead)
}

func TestNotificationServiceListCountsUnread(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, notify.NewHub(4, nil), nil, nil, 0, nil)
	svc.Dispatch(context.Background(), testEvent("prl-1"))
	svc.Dispatch(context.Background(), testEvent("prl-1"))

	require.NoError(t, svc.MarkAllRead(context.Background(), "prl-1"))

	notifications, pagination, unread, err := svc.List(context.Background(), "prl-1", 1, 20)
	require.NoError(t, err)
	assert.Len(t, notifications, 2)
	assert.Equal(t, 0, unread)
	assert.Equal(t, 2, pagination.TotalCount)
}

func TestNotificationServiceListUsesConfiguredPageSize(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, notify.NewHub(4, nil), nil, nil, 50, nil)
	svc.Dispatch(context.Background(), testEvent("prl-1"))

	_, pagination, _, err := svc.List(context.Background(), "prl-1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastPageSize)
	assert.Equal(t, 50, pagination.PageSize)
	assert.Equal(t, 1, pagination.Page)

	// An explicit in-range size still wins over the configured default.
	_, pagination, _, err = svc.List(context.Background(), "prl-1", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, repo.lastPageSize)
	assert.Equal(t, 5, pagination.PageSize)
}
