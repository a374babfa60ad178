package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/luct-reporting-api/internal/service"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
	"github.com/noah-isme/luct-reporting-api/pkg/response"
)

// MonitoringHandler wires monitoring logs to HTTP routes.
type MonitoringHandler struct {
	monitoring *service.MonitoringService
}

// NewMonitoringHandler constructs a new MonitoringHandler.
func NewMonitoringHandler(monitoring *service.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{monitoring: monitoring}
}

// Create godoc
// @Summary File a monitoring observation about a user
// @Tags Monitoring
// @Accept json
// @Produce json
// @Param payload body service.CreateMonitoringRequest true "Observation payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /monitoring [post]
func (h *MonitoringHandler) Create(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateMonitoringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid monitoring payload"))
		return
	}
	log, err := h.monitoring.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, log)
}

// Respond godoc
// @Summary Record follow-up on a monitoring observation
// @Tags Monitoring
// @Accept json
// @Produce json
// @Param id path string true "Monitoring log ID"
// @Param payload body service.RespondMonitoringRequest true "Response payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /monitoring/{id}/respond [post]
func (h *MonitoringHandler) Respond(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RespondMonitoringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid response payload"))
		return
	}
	log, err := h.monitoring.Respond(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// ListMine godoc
// @Summary List monitoring logs filed by or about the caller
// @Tags Monitoring
// @Produce json
// @Param view query string false "mine (default) or about-me"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /monitoring [get]
func (h *MonitoringHandler) ListMine(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if c.Query("view") == "about-me" {
		logs, err := h.monitoring.ListForSubject(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, logs, nil)
		return
	}
	logs, err := h.monitoring.ListForAuthor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
