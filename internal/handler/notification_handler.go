package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/luct-reporting-api/internal/service"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
	"github.com/noah-isme/luct-reporting-api/pkg/response"
)

// NotificationHandler wires notification retrieval and the live stream to
// HTTP routes.
type NotificationHandler struct {
	notifications *service.NotificationService
	metrics       *service.MetricsService
}

// NewNotificationHandler constructs a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService, metrics *service.MetricsService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, metrics: metrics}
}

// List godoc
// @Summary List the caller's notifications with the unread count
// @Tags Notifications
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	notifications, pagination, unread, err := h.notifications.List(c.Request.Context(), claims.UserID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notifications, pagination, map[string]interface{}{"unread_count": unread})
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkAllRead godoc
// @Summary Mark every unread notification of the caller as read
// @Tags Notifications
// @Produce json
// @Success 204
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.notifications.MarkAllRead(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stream godoc
// @Summary Server-sent event stream of the caller's notifications
// @Tags Notifications
// @Produce text/event-stream
// @Success 200
// @Security BearerAuth
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	ch, cancel := h.notifications.Subscribe(claims.UserID)
	defer cancel()

	h.metrics.StreamSubscriberConnected(1)
	defer h.metrics.StreamSubscriberConnected(-1)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case n, open := <-ch:
			if !open {
				return false
			}
			c.SSEvent("notification", n)
			return true
		}
	})
}
