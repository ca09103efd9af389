package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultly/consultly-api/internal/models"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
)

type workingHourRepoStub struct {
	hours []models.WorkingHour
	err   error
}

func (s *workingHourRepoStub) ListActiveByDay(_ context.Context, _ string, _ int) ([]models.WorkingHour, error) {
	return s.hours, s.err
}

type holidayRepoStub struct {
	onHoliday bool
	err       error
}

func (s *holidayRepoStub) ExistsOnDate(_ context.Context, _ string, _ time.Time) (bool, error) {
	return s.onHoliday, s.err
}

type bookingRepoStub struct {
	conflictID string
	active     []models.Booking
	err        error
}

func (s *bookingRepoStub) FindConflicting(_ context.Context, _ string, _, _ time.Time) (string, error) {
	return s.conflictID, s.err
}

func (s *bookingRepoStub) ListActiveBetween(_ context.Context, _ string, _, _ time.Time) ([]models.Booking, error) {
	return s.active, s.err
}

type slotCacheStub struct {
	cached   []models.Slot
	getErr   error
	setCalls int
}

func (s *slotCacheStub) Get(_ context.Context, _, _ string, _ int) ([]models.Slot, error) {
	return s.cached, s.getErr
}

func (s *slotCacheStub) Set(_ context.Context, _, _ string, _ int, _ []models.Slot, _ time.Duration) error {
	s.setCalls++
	return nil
}

// Monday 2026-03-02.
var testDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func mondayNineToFive() []models.WorkingHour {
	return []models.WorkingHour{{
		ID:           "wh-1",
		ConsultantID: "consultant-1",
		DayOfWeek:    1,
		StartTime:    "09:00",
		EndTime:      "17:00",
		Active:       true,
	}}
}

func newAvailability(hours *workingHourRepoStub, holidays *holidayRepoStub, bookings *bookingRepoStub, cache *slotCacheStub) *AvailabilityService {
	var cacheDep slotCache
	if cache != nil {
		cacheDep = cache
	}
	svc := NewAvailabilityService(hours, holidays, bookings, cacheDep, nil, nil, AvailabilityConfig{
		GranularityMins: 5,
		CacheTTL:        2 * time.Minute,
	})
	return svc.WithClock(func() time.Time { return testDay.Add(8 * time.Hour) })
}

func TestCheckWindowAccepted(t *testing.T) {
	svc := newAvailability(&workingHourRepoStub{hours: mondayNineToFive()}, &holidayRepoStub{}, &bookingRepoStub{}, nil)

	window, err := svc.CheckWindow(context.Background(), "consultant-1", testDay.Add(14*time.Hour), 60, 10)
	require.NoError(t, err)
	assert.Equal(t, testDay.Add(14*time.Hour), window.Start)
	assert.Equal(t, testDay.Add(15*time.Hour), window.End)
}

func TestCheckWindowWorkingHourBoundaries(t *testing.T) {
	svc := newAvailability(&workingHourRepoStub{hours: mondayNineToFive()}, &holidayRepoStub{}, &bookingRepoStub{}, nil)

	// Exactly filling the working window is allowed.
	_, err := svc.CheckWindow(context.Background(), "consultant-1", testDay.Add(9*time.Hour), 8*60, 0)
	assert.NoError(t, err)

	// One grid step past closing is not.
	_, err = svc.CheckWindow(context.Background(), "consultant-1", testDay.Add(16*time.Hour+30*time.Minute), 35, 0)
	assert.True(t, appErrors.Is(err, appErrors.ErrOutsideWorkingHours))

	// Before opening is not.
	_, err = svc.CheckWindow(context.Background(), "consultant-1", testDay.Add(8*time.Hour+30*time.Minute), 60, 0)
	assert.True(t, appErrors.Is(err, appErrors.ErrOutsideWorkingHours))
}

func TestCheckWindowRejectsOffGridTimes(t *testing.T) {
	svc := newAvailability(&workingHourRepoStub{hours: mondayNineToFive()}, &holidayRepoStub{}, &bookingRepoStub{}, nil)

	_, err := svc.CheckWindow(context.Background(), "consultant-1", testDay.Add(14*time.Hour+3*time.Minute), 60, 0)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTimeAlignment))

	_, err = svc.CheckWindow(context.Background(), "consultant-1", testDay.Add(14*time.Hour), 47, 0)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTimeAlignment))

	_, err = svc.CheckWindow(context.Background(), "consultant-1", testDay.Add(14*time.Hour), 60, -5)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTimeAlignment))
}

func TestCheckWindowRejectsPastStart(t *testing.T) {
	svc := newAvailability(&workingHourRepoStub{hours: mondayNineToFive()}, &holidayRepoStub{}, &bookingRepoStub{}, nil)

	_, err := svc.CheckWindow(context.Background(), "consultant-1", testDay.Add(7*time.Hour), 60, 0)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCheckWindowHoliday(t *testing.T) {
	svc := newAvailability(&workingHourRepoStub{hours: mondayNineToFive()}, &holidayRepoStub{onHoliday: true}, &bookingRepoStub{}, nil)

	_, err := svc.CheckWindow(context.Background(), "consultant-1", testDay.Add(14*time.Hour), 60, 0)
	assert.True(t, appErrors.Is(err, appErrors.ErrOnHoliday))
}

func TestCheckWindowBufferedConflict(t *testing.T) {
	// A 14:00-15:00 booking with a 10 minute buffer blocks a 14:50 start
	// but not a 15:10 start. The repo applies the existing booking's
	// buffer; the stub mimics its answer for each candidate.
	existingStart := testDay.Add(14 * time.Hour)
	existingBufferedEnd := testDay.Add(15*time.Hour + 10*time.Minute)

	bookings := &bookingRepoStub{}
	svc := newAvailability(&workingHourRepoStub{hours: mondayNineToFive()}, &holidayRepoStub{}, bookings, nil)

	overlaps := func(start, end time.Time) bool {
		return start.Before(existingBufferedEnd) && end.After(existingStart)
	}

	at1450 := testDay.Add(14*time.Hour + 50*time.Minute)
	require.True(t, overlaps(at1450, at1450.Add(60*time.Minute)))
	bookings.conflictID = "existing-1"
	_, err := svc.CheckWindow(context.Background(), "consultant-1", at1450, 60, 0)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSlotConflict))

	var conflict *models.SlotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "existing-1", conflict.ConflictingBookingID)

	at1510 := testDay.Add(15*time.Hour + 10*time.Minute)
	require.False(t, overlaps(at1510, at1510.Add(60*time.Minute)))
	bookings.conflictID = ""
	_, err = svc.CheckWindow(context.Background(), "consultant-1", at1510, 60, 0)
	assert.NoError(t, err)
}

func TestDaySlotsSkipsBookedAndPast(t *testing.T) {
	booked := []models.Booking{{
		StartAt:            testDay.Add(10 * time.Hour),
		EndAt:              testDay.Add(11 * time.Hour),
		BufferAfterMinutes: 10,
		Status:             models.BookingConfirmed,
	}}
	svc := newAvailability(&workingHourRepoStub{hours: mondayNineToFive()}, &holidayRepoStub{}, &bookingRepoStub{active: booked}, nil)

	slots, err := svc.DaySlots(context.Background(), "consultant-1", testDay, 60, 0)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	for _, slot := range slots {
		// Clock is 08:00; nothing in the past may be offered.
		assert.True(t, slot.StartAt.After(testDay.Add(8*time.Hour)))
		// Nothing may touch the booked window plus its buffer.
		assert.False(t, slot.StartAt.Before(testDay.Add(11*time.Hour+10*time.Minute)) &&
			slot.EndAt.After(testDay.Add(10*time.Hour)),
			"slot %v overlaps the booked window", slot.StartAt)
	}

	// 09:00 is free and in the future, so it must be offered.
	assert.Equal(t, testDay.Add(9*time.Hour), slots[0].StartAt)
}

func TestDaySlotsHolidayReturnsEmpty(t *testing.T) {
	svc := newAvailability(&workingHourRepoStub{hours: mondayNineToFive()}, &holidayRepoStub{onHoliday: true}, &bookingRepoStub{}, nil)

	slots, err := svc.DaySlots(context.Background(), "consultant-1", testDay, 60, 0)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestDaySlotsCacheHitSkipsCompute(t *testing.T) {
	cached := []models.Slot{{StartAt: testDay.Add(9 * time.Hour), EndAt: testDay.Add(10 * time.Hour)}}
	cache := &slotCacheStub{cached: cached}
	holidays := &holidayRepoStub{err: errors.New("db should not be touched")}
	svc := newAvailability(&workingHourRepoStub{}, holidays, &bookingRepoStub{}, cache)

	slots, err := svc.DaySlots(context.Background(), "consultant-1", testDay, 60, 0)
	require.NoError(t, err)
	assert.Equal(t, cached, slots)
	assert.Zero(t, cache.setCalls)
}

func TestDaySlotsCacheMissPopulatesCache(t *testing.T) {
	cache := &slotCacheStub{getErr: appErrors.ErrCacheMiss}
	svc := newAvailability(&workingHourRepoStub{hours: mondayNineToFive()}, &holidayRepoStub{}, &bookingRepoStub{}, cache)

	slots, err := svc.DaySlots(context.Background(), "consultant-1", testDay, 60, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, slots)
	assert.Equal(t, 1, cache.setCalls)
}
