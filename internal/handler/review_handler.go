package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/consultly/consultly-api/internal/service"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
	"github.com/consultly/consultly-api/pkg/response"
)

// ReviewHandler exposes review endpoints.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler constructs handler.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Create godoc
// @Summary Review a completed booking
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Param payload body service.CreateReviewRequest true "Review payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /bookings/{id}/review [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	var req service.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	review, err := h.reviews.Create(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, review)
}

// Update godoc
// @Summary Rewrite an existing review
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Param payload body service.UpdateReviewRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(c *gin.Context) {
	var req service.UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	review, err := h.reviews.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// Delete godoc
// @Summary Soft-delete a review
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Success 204 "No Content"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	if err := h.reviews.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Restore godoc
// @Summary Restore a soft-deleted review
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Review ID"
// @Success 200 {object} response.Envelope
// @Router /reviews/{id}/restore [post]
func (h *ReviewHandler) Restore(c *gin.Context) {
	review, err := h.reviews.Restore(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review, nil)
}

// ListByConsultant godoc
// @Summary List a consultant's visible reviews
// @Tags Reviews
// @Produce json
// @Param id path string true "Consultant ID"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /consultants/{id}/reviews [get]
func (h *ReviewHandler) ListByConsultant(c *gin.Context) {
	reviews, pagination, err := h.reviews.ListByConsultant(c.Request.Context(), c.Param("id"),
		parseIntQuery(c, "page", 1), parseIntQuery(c, "pageSize", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, pagination)
}
