package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/service"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
	"github.com/noah-isme/luct-reporting-api/pkg/response"
)

// ReportHandler wires the lecture report chain to HTTP routes.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs a new ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Submit godoc
// @Summary Submit a lecture report
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.SubmitReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /reports [post]
func (h *ReportHandler) Submit(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}
	report, err := h.reports.Submit(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// AttachFeedback godoc
// @Summary Attach or replace principal lecturer feedback on a report
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body service.AttachFeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{id}/feedback [put]
func (h *ReportHandler) AttachFeedback(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AttachFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}
	feedback, err := h.reports.AttachFeedback(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}

// Finalize godoc
// @Summary Finalize a reviewed report as approved or needs_improvement
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body service.FinalizeReportRequest true "Outcome payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{id}/finalize [post]
func (h *ReportHandler) Finalize(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.FinalizeReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid finalize payload"))
		return
	}
	report, err := h.reports.Finalize(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Get godoc
// @Summary Get a report with its feedback
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.reports.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List reports visible to the caller
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var (
		reports []models.Report
		err     error
	)
	switch claims.Role {
	case models.RoleLecturer:
		reports, err = h.reports.ListForLecturer(c.Request.Context(), claims.UserID)
	case models.RolePrincipalLecturer:
		reports, err = h.reports.ListForPrincipalLecturer(c.Request.Context(), claims.UserID)
	default:
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}
