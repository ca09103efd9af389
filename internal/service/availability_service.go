package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/consultly/consultly-api/internal/models"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
	"github.com/consultly/consultly-api/pkg/timewindow"
)

type availabilityWorkingHourRepo interface {
	ListActiveByDay(ctx context.Context, consultantID string, dayOfWeek int) ([]models.WorkingHour, error)
}

type availabilityHolidayRepo interface {
	ExistsOnDate(ctx context.Context, consultantID string, date time.Time) (bool, error)
}

type availabilityBookingRepo interface {
	FindConflicting(ctx context.Context, consultantID string, start, bufferedEnd time.Time) (string, error)
	ListActiveBetween(ctx context.Context, consultantID string, from, to time.Time) ([]models.Booking, error)
}

type slotCache interface {
	Get(ctx context.Context, consultantID, date string, durationMinutes int) ([]models.Slot, error)
	Set(ctx context.Context, consultantID, date string, durationMinutes int, slots []models.Slot, ttl time.Duration) error
}

// AvailabilityConfig tunes the resolver.
type AvailabilityConfig struct {
	GranularityMins int
	CacheTTL        time.Duration
}

// AvailabilityService answers whether a candidate window is bookable and
// enumerates free slots for a day. Pure reads; the authoritative overlap
// re-check happens again inside the reservation transaction.
type AvailabilityService struct {
	hours    availabilityWorkingHourRepo
	holidays availabilityHolidayRepo
	bookings availabilityBookingRepo
	cache    slotCache
	metrics  *MetricsService
	logger   *zap.Logger
	config   AvailabilityConfig
	clock    func() time.Time
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(hours availabilityWorkingHourRepo, holidays availabilityHolidayRepo, bookings availabilityBookingRepo, cache slotCache, metrics *MetricsService, logger *zap.Logger, config AvailabilityConfig) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.GranularityMins <= 0 {
		config.GranularityMins = 5
	}
	return &AvailabilityService{
		hours:    hours,
		holidays: holidays,
		bookings: bookings,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		config:   config,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source, used by tests and by the booking
// service so both share one notion of now.
func (s *AvailabilityService) WithClock(clock func() time.Time) *AvailabilityService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// CheckWindow validates that [startAt, startAt+duration) is bookable for
// the consultant: on the slot grid, in the future, inside an active working
// window, not on a holiday, and clear of existing pending/confirmed
// bookings once both sides' buffers are applied.
func (s *AvailabilityService) CheckWindow(ctx context.Context, consultantID string, startAt time.Time, durationMinutes, bufferMinutes int) (timewindow.Window, error) {
	var zero timewindow.Window

	if !startAt.After(s.clock()) {
		return zero, appErrors.Clone(appErrors.ErrValidation, "start time must be in the future")
	}
	if !timewindow.AlignedToGrid(startAt, s.config.GranularityMins) {
		return zero, appErrors.Clone(appErrors.ErrInvalidTimeAlignment, fmt.Sprintf("start time must fall on a %d-minute boundary", s.config.GranularityMins))
	}
	if !timewindow.IsGridMultiple(durationMinutes, s.config.GranularityMins) {
		return zero, appErrors.Clone(appErrors.ErrInvalidTimeAlignment, fmt.Sprintf("duration must be a positive multiple of %d minutes", s.config.GranularityMins))
	}
	if bufferMinutes < 0 || (bufferMinutes > 0 && !timewindow.IsGridMultiple(bufferMinutes, s.config.GranularityMins)) {
		return zero, appErrors.Clone(appErrors.ErrInvalidTimeAlignment, fmt.Sprintf("buffer must be a non-negative multiple of %d minutes", s.config.GranularityMins))
	}

	window := timewindow.New(startAt, durationMinutes)

	inside, err := s.insideWorkingHours(ctx, consultantID, window)
	if err != nil {
		return zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load working hours")
	}
	if !inside {
		return zero, appErrors.ErrOutsideWorkingHours
	}

	onHoliday, err := s.holidays.ExistsOnDate(ctx, consultantID, startAt)
	if err != nil {
		return zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check holidays")
	}
	if onHoliday {
		return zero, appErrors.ErrOnHoliday
	}

	conflictingID, err := s.bookings.FindConflicting(ctx, consultantID, window.Start, window.WithBuffer(bufferMinutes).End)
	if err != nil {
		return zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check booking conflicts")
	}
	if conflictingID != "" {
		return zero, appErrors.Wrap(&models.SlotConflictError{
			ConflictingBookingID: conflictingID,
			RequestedStart:       window.Start,
			RequestedEnd:         window.End,
		}, appErrors.ErrSlotConflict.Code, appErrors.ErrSlotConflict.Status, appErrors.ErrSlotConflict.Message)
	}

	return window, nil
}

// DaySlots enumerates the consultant's free slots of the given duration on
// a calendar date, cache-aside.
func (s *AvailabilityService) DaySlots(ctx context.Context, consultantID string, date time.Time, durationMinutes, bufferMinutes int) ([]models.Slot, error) {
	if !timewindow.IsGridMultiple(durationMinutes, s.config.GranularityMins) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTimeAlignment, fmt.Sprintf("duration must be a positive multiple of %d minutes", s.config.GranularityMins))
	}

	dateKey := date.Format("2006-01-02")
	if s.cache != nil {
		start := time.Now()
		cached, err := s.cache.Get(ctx, consultantID, dateKey, durationMinutes)
		hit := err == nil
		s.metrics.RecordCacheLookup(hit, time.Since(start))
		if hit {
			return cached, nil
		}
		if !appErrors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("slot cache read failed", zap.String("consultant_id", consultantID), zap.Error(err))
		}
	}

	slots, err := s.computeDaySlots(ctx, consultantID, date, durationMinutes, bufferMinutes)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, consultantID, dateKey, durationMinutes, slots, s.config.CacheTTL); err != nil {
			s.logger.Warn("slot cache write failed", zap.String("consultant_id", consultantID), zap.Error(err))
		}
	}
	return slots, nil
}

func (s *AvailabilityService) computeDaySlots(ctx context.Context, consultantID string, date time.Time, durationMinutes, bufferMinutes int) ([]models.Slot, error) {
	slots := []models.Slot{}

	onHoliday, err := s.holidays.ExistsOnDate(ctx, consultantID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check holidays")
	}
	if onHoliday {
		return slots, nil
	}

	windows, err := s.hours.ListActiveByDay(ctx, consultantID, int(date.Weekday()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load working hours")
	}
	if len(windows) == 0 {
		return slots, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	booked, err := s.bookings.ListActiveBetween(ctx, consultantID, dayStart, dayEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	now := s.clock()
	step := time.Duration(s.config.GranularityMins) * time.Minute

	for _, wh := range windows {
		open, err := anchorWindow(wh, dayStart)
		if err != nil {
			s.logger.Warn("skipping malformed working hour", zap.String("working_hour_id", wh.ID), zap.Error(err))
			continue
		}

		for start := open.Start; ; start = start.Add(step) {
			candidate := timewindow.New(start, durationMinutes)
			if candidate.End.After(open.End) {
				break
			}
			if !start.After(now) {
				continue
			}
			if overlapsAny(candidate.WithBuffer(bufferMinutes), booked) {
				continue
			}
			slots = append(slots, models.Slot{StartAt: candidate.Start, EndAt: candidate.End})
		}
	}

	return slots, nil
}

func (s *AvailabilityService) insideWorkingHours(ctx context.Context, consultantID string, window timewindow.Window) (bool, error) {
	hours, err := s.hours.ListActiveByDay(ctx, consultantID, int(window.Start.Weekday()))
	if err != nil {
		return false, err
	}

	dayStart := time.Date(window.Start.Year(), window.Start.Month(), window.Start.Day(), 0, 0, 0, 0, time.UTC)
	// A window inside ANY active working-hour row for the day is accepted;
	// overlapping rows behave as the union of their spans.
	for _, wh := range hours {
		open, err := anchorWindow(wh, dayStart)
		if err != nil {
			s.logger.Warn("skipping malformed working hour", zap.String("working_hour_id", wh.ID), zap.Error(err))
			continue
		}
		if open.Contains(window) {
			return true, nil
		}
	}
	return false, nil
}

// anchorWindow projects an "HH:MM" working-hour row onto a calendar date.
func anchorWindow(wh models.WorkingHour, dayStart time.Time) (timewindow.Window, error) {
	start, err := clockOnDate(wh.StartTime, dayStart)
	if err != nil {
		return timewindow.Window{}, err
	}
	end, err := clockOnDate(wh.EndTime, dayStart)
	if err != nil {
		return timewindow.Window{}, err
	}
	if !start.Before(end) {
		return timewindow.Window{}, fmt.Errorf("working hour %q-%q has no span", wh.StartTime, wh.EndTime)
	}
	return timewindow.Window{Start: start, End: end}, nil
}

func clockOnDate(hhmm string, dayStart time.Time) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", hhmm, err)
	}
	return dayStart.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute), nil
}

func overlapsAny(candidate timewindow.Window, bookings []models.Booking) bool {
	for _, b := range bookings {
		existing := timewindow.Window{Start: b.StartAt, End: b.EndAt}.WithBuffer(b.BufferAfterMinutes)
		if candidate.Overlaps(existing) {
			return true
		}
	}
	return false
}
