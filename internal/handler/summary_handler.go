package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/luct-reporting-api/internal/models"
	"github.com/noah-isme/luct-reporting-api/internal/service"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
	"github.com/noah-isme/luct-reporting-api/pkg/response"
)

// SummaryHandler wires summary reports to HTTP routes.
type SummaryHandler struct {
	summaries *service.SummaryService
}

// NewSummaryHandler constructs a new SummaryHandler.
func NewSummaryHandler(summaries *service.SummaryService) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

// Create godoc
// @Summary Create a period summary with frozen attendance aggregates
// @Tags Summaries
// @Accept json
// @Produce json
// @Param payload body service.CreateSummaryRequest true "Summary payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /summaries [post]
func (h *SummaryHandler) Create(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid summary payload"))
		return
	}
	summary, err := h.summaries.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, summary)
}

// AttachFeedback godoc
// @Summary Attach or replace program leader feedback on a summary
// @Tags Summaries
// @Accept json
// @Produce json
// @Param id path string true "Summary ID"
// @Param payload body service.AttachSummaryFeedbackRequest true "Feedback payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /summaries/{id}/feedback [put]
func (h *SummaryHandler) AttachFeedback(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.AttachSummaryFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}
	feedback, err := h.summaries.AttachFeedback(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feedback, nil)
}

// Get godoc
// @Summary Get a summary with its feedback
// @Tags Summaries
// @Produce json
// @Param id path string true "Summary ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /summaries/{id} [get]
func (h *SummaryHandler) Get(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.summaries.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List summaries visible to the caller
// @Tags Summaries
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /summaries [get]
func (h *SummaryHandler) List(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var (
		summaries []models.SummaryReport
		err       error
	)
	switch claims.Role {
	case models.RolePrincipalLecturer:
		summaries, err = h.summaries.ListForPrl(c.Request.Context(), claims.UserID)
	case models.RoleProgramLeader:
		summaries, err = h.summaries.ListForProgramLeader(c.Request.Context(), claims.UserID)
	default:
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}
