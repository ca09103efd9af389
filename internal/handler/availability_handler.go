package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/consultly/consultly-api/internal/service"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
	"github.com/consultly/consultly-api/pkg/response"
)

// AvailabilityHandler exposes consultant availability endpoints.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// DaySlots godoc
// @Summary List bookable slots for a consultant on a date
// @Tags Availability
// @Produce json
// @Param id path string true "Consultant ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param duration query int false "Slot duration in minutes (default 60)"
// @Param buffer query int false "Buffer after each slot in minutes"
// @Success 200 {object} response.Envelope
// @Router /consultants/{id}/slots [get]
func (h *AvailabilityHandler) DaySlots(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return
	}

	duration := parseIntQuery(c, "duration", 60)
	buffer := parseIntQuery(c, "buffer", 0)

	slots, err := h.availability.DaySlots(c.Request.Context(), c.Param("id"), date, duration, buffer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
