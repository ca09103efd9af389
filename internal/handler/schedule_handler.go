package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/consultly/consultly-api/internal/service"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
	"github.com/consultly/consultly-api/pkg/response"
)

// ScheduleHandler exposes consultant working hours and holiday endpoints.
type ScheduleHandler struct {
	schedule *service.ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(schedule *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// ListWorkingHours godoc
// @Summary List a consultant's weekly working hours
// @Tags Schedule
// @Produce json
// @Param id path string true "Consultant ID"
// @Success 200 {object} response.Envelope
// @Router /consultants/{id}/working-hours [get]
func (h *ScheduleHandler) ListWorkingHours(c *gin.Context) {
	hours, err := h.schedule.ListWorkingHours(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hours, nil)
}

// AddWorkingHour godoc
// @Summary Add a weekly working hour window
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Consultant ID"
// @Param payload body service.CreateWorkingHourRequest true "Working hour payload"
// @Success 201 {object} response.Envelope
// @Router /consultants/{id}/working-hours [post]
func (h *ScheduleHandler) AddWorkingHour(c *gin.Context) {
	var req service.CreateWorkingHourRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	hour, err := h.schedule.AddWorkingHour(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hour)
}

// RemoveWorkingHour godoc
// @Summary Remove a weekly working hour window
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param id path string true "Consultant ID"
// @Param hourId path string true "Working hour ID"
// @Success 204 "No Content"
// @Router /consultants/{id}/working-hours/{hourId} [delete]
func (h *ScheduleHandler) RemoveWorkingHour(c *gin.Context) {
	if err := h.schedule.RemoveWorkingHour(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("hourId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListHolidays godoc
// @Summary List a consultant's holidays
// @Tags Schedule
// @Produce json
// @Param id path string true "Consultant ID"
// @Success 200 {object} response.Envelope
// @Router /consultants/{id}/holidays [get]
func (h *ScheduleHandler) ListHolidays(c *gin.Context) {
	holidays, err := h.schedule.ListHolidays(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// AddHoliday godoc
// @Summary Block a calendar date
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Consultant ID"
// @Param payload body service.CreateHolidayRequest true "Holiday payload"
// @Success 201 {object} response.Envelope
// @Router /consultants/{id}/holidays [post]
func (h *ScheduleHandler) AddHoliday(c *gin.Context) {
	var req service.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	holiday, err := h.schedule.AddHoliday(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// RemoveHoliday godoc
// @Summary Unblock a calendar date
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param id path string true "Consultant ID"
// @Param holidayId path string true "Holiday ID"
// @Success 204 "No Content"
// @Router /consultants/{id}/holidays/{holidayId} [delete]
func (h *ScheduleHandler) RemoveHoliday(c *gin.Context) {
	if err := h.schedule.RemoveHoliday(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("holidayId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
