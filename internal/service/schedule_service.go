package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/consultly/consultly-api/internal/models"
	"github.com/consultly/consultly-api/internal/repository"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
)

type scheduleWorkingHourRepo interface {
	ListByConsultant(ctx context.Context, consultantID string) ([]models.WorkingHour, error)
	Create(ctx context.Context, hour *models.WorkingHour) error
	Delete(ctx context.Context, consultantID, id string) error
}

type scheduleHolidayRepo interface {
	ListByConsultant(ctx context.Context, consultantID string) ([]models.Holiday, error)
	Create(ctx context.Context, holiday *models.Holiday) error
	Delete(ctx context.Context, consultantID, id string) error
}

type scheduleConsultantRepo interface {
	FindByID(ctx context.Context, id string) (*models.Consultant, error)
}

// CreateWorkingHourRequest adds a weekly availability window.
type CreateWorkingHourRequest struct {
	DayOfWeek int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// CreateHolidayRequest blocks a calendar date.
type CreateHolidayRequest struct {
	Date  string  `json:"date" validate:"required"`
	Label *string `json:"label,omitempty" validate:"omitempty,max=200"`
}

// ScheduleService manages a consultant's weekly working hours and holidays.
type ScheduleService struct {
	hours       scheduleWorkingHourRepo
	holidays    scheduleHolidayRepo
	consultants scheduleConsultantRepo
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(hours scheduleWorkingHourRepo, holidays scheduleHolidayRepo, consultants scheduleConsultantRepo, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{hours: hours, holidays: holidays, consultants: consultants, validator: validate, logger: logger}
}

// ListWorkingHours returns the consultant's weekly windows.
func (s *ScheduleService) ListWorkingHours(ctx context.Context, consultantID string) ([]models.WorkingHour, error) {
	hours, err := s.hours.ListByConsultant(ctx, consultantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list working hours")
	}
	return hours, nil
}

// AddWorkingHour creates a weekly window for the consultant.
func (s *ScheduleService) AddWorkingHour(ctx context.Context, actor models.Actor, consultantID string, req CreateWorkingHourRequest) (*models.WorkingHour, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid working hour payload")
	}

	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must precede end_time")
	}

	if err := s.authorize(ctx, actor, consultantID); err != nil {
		return nil, err
	}

	hour := &models.WorkingHour{
		ConsultantID: consultantID,
		DayOfWeek:    req.DayOfWeek,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Active:       true,
	}
	if err := s.hours.Create(ctx, hour); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create working hour")
	}
	return hour, nil
}

// RemoveWorkingHour deletes a weekly window.
func (s *ScheduleService) RemoveWorkingHour(ctx context.Context, actor models.Actor, consultantID, hourID string) error {
	if err := s.authorize(ctx, actor, consultantID); err != nil {
		return err
	}
	if err := s.hours.Delete(ctx, consultantID, hourID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return appErrors.Clone(appErrors.ErrNotFound, "working hour not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete working hour")
	}
	return nil
}

// ListHolidays returns the consultant's holidays.
func (s *ScheduleService) ListHolidays(ctx context.Context, consultantID string) ([]models.Holiday, error) {
	holidays, err := s.holidays.ListByConsultant(ctx, consultantID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	return holidays, nil
}

// AddHoliday blocks a calendar date for the consultant.
func (s *ScheduleService) AddHoliday(ctx context.Context, actor models.Actor, consultantID string, req CreateHolidayRequest) (*models.Holiday, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	if err := s.authorize(ctx, actor, consultantID); err != nil {
		return nil, err
	}

	holiday := &models.Holiday{
		ConsultantID: consultantID,
		Date:         date,
		Label:        req.Label,
	}
	if err := s.holidays.Create(ctx, holiday); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create holiday")
	}
	return holiday, nil
}

// RemoveHoliday unblocks a calendar date.
func (s *ScheduleService) RemoveHoliday(ctx context.Context, actor models.Actor, consultantID, holidayID string) error {
	if err := s.authorize(ctx, actor, consultantID); err != nil {
		return err
	}
	if err := s.holidays.Delete(ctx, consultantID, holidayID); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	return nil
}

// authorize admits the consultant who owns the calendar or an admin.
func (s *ScheduleService) authorize(ctx context.Context, actor models.Actor, consultantID string) error {
	if actor.IsAdmin() {
		return nil
	}
	consultant, err := s.consultants.FindByID(ctx, consultantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch consultant")
	}
	if consultant.UserID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "no standing on this consultant's schedule")
	}
	return nil
}
