package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/luct-reporting-api/internal/service"
	appErrors "github.com/noah-isme/luct-reporting-api/pkg/errors"
	"github.com/noah-isme/luct-reporting-api/pkg/response"
)

// RatingHandler wires student ratings to HTTP routes.
type RatingHandler struct {
	ratings *service.RatingService
}

// NewRatingHandler constructs a new RatingHandler.
func NewRatingHandler(ratings *service.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

// Submit godoc
// @Summary Submit or replace a rating of a lecturer
// @Tags Ratings
// @Accept json
// @Produce json
// @Param payload body service.SubmitRatingRequest true "Rating payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /ratings [put]
func (h *RatingHandler) Submit(c *gin.Context) {
	claims, ok := currentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rating payload"))
		return
	}
	rating, err := h.ratings.Submit(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rating, nil)
}

// ListForLecturer godoc
// @Summary List ratings filed against a lecturer
// @Tags Ratings
// @Produce json
// @Param id path string true "Lecturer ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /lecturers/{id}/ratings [get]
func (h *RatingHandler) ListForLecturer(c *gin.Context) {
	ratings, err := h.ratings.ListForLecturer(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ratings, nil)
}
