package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consultly/consultly-api/internal/models"
	"github.com/consultly/consultly-api/internal/repository"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
	"github.com/consultly/consultly-api/pkg/timewindow"
)

type bookingStoreStub struct {
	reserved       *models.Booking
	reserveErr     error
	byID           map[string]*models.Booking
	confirmResult  *models.Booking
	confirmErr     error
	cancelResult   *models.Booking
	cancelErr      error
	expiredPending [][]models.Booking
	expiredLoop    []models.Booking
	markExpiredErr map[string]error
	expired        []string
	elapsed        [][]models.Booking
	completed      []string
}

func (s *bookingStoreStub) Reserve(_ context.Context, booking *models.Booking) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserved = booking
	return nil
}

func (s *bookingStoreStub) FindByID(_ context.Context, id string) (*models.Booking, error) {
	if b, ok := s.byID[id]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bookingStoreStub) List(_ context.Context, _ models.BookingFilter) ([]models.Booking, int, error) {
	return nil, 0, nil
}

func (s *bookingStoreStub) Confirm(_ context.Context, _ string, _ time.Time) (*models.Booking, error) {
	return s.confirmResult, s.confirmErr
}

func (s *bookingStoreStub) Cancel(_ context.Context, _ string, _ models.Canceller, _ string, _ time.Time) (*models.Booking, error) {
	return s.cancelResult, s.cancelErr
}

func (s *bookingStoreStub) ListExpiredPending(_ context.Context, _ time.Time, _ int) ([]models.Booking, error) {
	if s.expiredLoop != nil {
		return s.expiredLoop, nil
	}
	if len(s.expiredPending) == 0 {
		return nil, nil
	}
	chunk := s.expiredPending[0]
	s.expiredPending = s.expiredPending[1:]
	return chunk, nil
}

func (s *bookingStoreStub) MarkExpired(_ context.Context, id string, _ time.Time) error {
	if err, ok := s.markExpiredErr[id]; ok {
		return err
	}
	s.expired = append(s.expired, id)
	return nil
}

func (s *bookingStoreStub) ListElapsedConfirmed(_ context.Context, _ time.Time, _ int) ([]models.Booking, error) {
	if len(s.elapsed) == 0 {
		return nil, nil
	}
	chunk := s.elapsed[0]
	s.elapsed = s.elapsed[1:]
	return chunk, nil
}

func (s *bookingStoreStub) MarkCompleted(_ context.Context, id string, _ time.Time) error {
	s.completed = append(s.completed, id)
	return nil
}

type consultantStoreStub struct {
	consultants map[string]*models.Consultant
	byUser      map[string]*models.Consultant
}

func (s *consultantStoreStub) FindByID(_ context.Context, id string) (*models.Consultant, error) {
	if c, ok := s.consultants[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (s *consultantStoreStub) FindByUserID(_ context.Context, userID string) (*models.Consultant, error) {
	if c, ok := s.byUser[userID]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type catalogStoreStub struct {
	services map[string]*models.ConsultantService
}

func (s *catalogStoreStub) FindByID(_ context.Context, id string) (*models.ConsultantService, error) {
	if svc, ok := s.services[id]; ok {
		return svc, nil
	}
	return nil, sql.ErrNoRows
}

type checkerStub struct {
	err error
}

func (s *checkerStub) CheckWindow(_ context.Context, _ string, startAt time.Time, durationMinutes, _ int) (timewindow.Window, error) {
	if s.err != nil {
		return timewindow.Window{}, s.err
	}
	return timewindow.New(startAt, durationMinutes), nil
}

type invalidatorStub struct {
	invalidated []string
}

func (s *invalidatorStub) InvalidateConsultant(_ context.Context, consultantID string) error {
	s.invalidated = append(s.invalidated, consultantID)
	return nil
}

func activeConsultant() *models.Consultant {
	return &models.Consultant{
		ID:                     "consultant-1",
		UserID:                 "user-consultant",
		HourlyPrice:            90,
		DefaultDurationMinutes: 60,
		DefaultBufferMinutes:   10,
		Active:                 true,
	}
}

func newBookingFixture(store *bookingStoreStub) (*BookingService, *invalidatorStub) {
	consultants := &consultantStoreStub{
		consultants: map[string]*models.Consultant{"consultant-1": activeConsultant()},
		byUser:      map[string]*models.Consultant{"user-consultant": activeConsultant()},
	}
	catalog := &catalogStoreStub{services: map[string]*models.ConsultantService{
		"service-1": {
			ID:              "service-1",
			ConsultantID:    "consultant-1",
			Title:           "CV review",
			Price:           45,
			DurationMinutes: 30,
			BufferMinutes:   5,
			Active:          true,
		},
	}}
	cache := &invalidatorStub{}
	svc := NewBookingService(store, consultants, catalog, &checkerStub{}, cache, nil, nil, nil, BookingConfig{
		HoldDuration:   15 * time.Minute,
		SweepChunkSize: 2,
	})
	svc.WithClock(func() time.Time { return testDay.Add(8 * time.Hour) })
	return svc, cache
}

func TestBookingCreateConsultantTime(t *testing.T) {
	store := &bookingStoreStub{}
	svc, cache := newBookingFixture(store)

	start := testDay.Add(14 * time.Hour)
	duration := 30
	booking, err := svc.Create(context.Background(), models.Actor{UserID: "client-1", Role: models.RoleClient}, CreateBookingRequest{
		ConsultantID:    "consultant-1",
		Bookable:        models.BookableTarget{Kind: models.BookableConsultant},
		StartAt:         start,
		DurationMinutes: &duration,
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, "client-1", booking.ClientID)
	assert.Equal(t, 30, booking.DurationMinutes)
	assert.Equal(t, 10, booking.BufferAfterMinutes)
	assert.Equal(t, start.Add(30*time.Minute), booking.EndAt)
	// 30 minutes at 90/hour.
	assert.Equal(t, 45.0, booking.Price)
	// Hold expires relative to the injected clock, not the start time.
	require.NotNil(t, booking.ExpiresAt)
	assert.Equal(t, testDay.Add(8*time.Hour+15*time.Minute), *booking.ExpiresAt)
	assert.Equal(t, []string{"consultant-1"}, cache.invalidated)
}

func TestBookingCreateCapsRequestedDuration(t *testing.T) {
	store := &bookingStoreStub{}
	svc, _ := newBookingFixture(store)
	actor := models.Actor{UserID: "client-1", Role: models.RoleClient}
	start := testDay.Add(14 * time.Hour)

	// The consultant's default session length is the upper bound.
	over := 480
	_, err := svc.Create(context.Background(), actor, CreateBookingRequest{
		ConsultantID:    "consultant-1",
		Bookable:        models.BookableTarget{Kind: models.BookableConsultant},
		StartAt:         start,
		DurationMinutes: &over,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	assert.Nil(t, store.reserved)

	atCap := 60
	booking, err := svc.Create(context.Background(), actor, CreateBookingRequest{
		ConsultantID:    "consultant-1",
		Bookable:        models.BookableTarget{Kind: models.BookableConsultant},
		StartAt:         start,
		DurationMinutes: &atCap,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, booking.DurationMinutes)
}

func TestBookingCreateServiceSnapshot(t *testing.T) {
	store := &bookingStoreStub{}
	svc, _ := newBookingFixture(store)

	start := testDay.Add(10 * time.Hour)
	booking, err := svc.Create(context.Background(), models.Actor{UserID: "client-1", Role: models.RoleClient}, CreateBookingRequest{
		ConsultantID: "consultant-1",
		Bookable:     models.BookableTarget{Kind: models.BookableService, ServiceID: "service-1"},
		StartAt:      start,
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookableService, booking.BookableType)
	require.NotNil(t, booking.ConsultantServiceID)
	assert.Equal(t, "service-1", *booking.ConsultantServiceID)
	assert.Equal(t, 30, booking.DurationMinutes)
	assert.Equal(t, 5, booking.BufferAfterMinutes)
	assert.Equal(t, 45.0, booking.Price)
}

func TestBookingCreateRejectsUnknownService(t *testing.T) {
	svc, _ := newBookingFixture(&bookingStoreStub{})

	_, err := svc.Create(context.Background(), models.Actor{UserID: "client-1", Role: models.RoleClient}, CreateBookingRequest{
		ConsultantID: "consultant-1",
		Bookable:     models.BookableTarget{Kind: models.BookableService, ServiceID: "ghost"},
		StartAt:      testDay.Add(10 * time.Hour),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestBookingCreatePropagatesAvailabilityRejection(t *testing.T) {
	store := &bookingStoreStub{}
	svc, cache := newBookingFixture(store)
	svc.availability = &checkerStub{err: appErrors.ErrOutsideWorkingHours}

	_, err := svc.Create(context.Background(), models.Actor{UserID: "client-1", Role: models.RoleClient}, CreateBookingRequest{
		ConsultantID: "consultant-1",
		Bookable:     models.BookableTarget{Kind: models.BookableConsultant},
		StartAt:      testDay.Add(22 * time.Hour),
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrOutsideWorkingHours))
	assert.Nil(t, store.reserved)
	assert.Empty(t, cache.invalidated)
}

func TestBookingConfirmOnlyClient(t *testing.T) {
	pending := &models.Booking{ID: "booking-1", ClientID: "client-1", ConsultantID: "consultant-1", Status: models.BookingPending}
	store := &bookingStoreStub{
		byID:          map[string]*models.Booking{"booking-1": pending},
		confirmResult: &models.Booking{ID: "booking-1", Status: models.BookingConfirmed},
	}
	svc, _ := newBookingFixture(store)

	_, err := svc.Confirm(context.Background(), models.Actor{UserID: "someone-else", Role: models.RoleClient}, "booking-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	confirmed, err := svc.Confirm(context.Background(), models.Actor{UserID: "client-1", Role: models.RoleClient}, "booking-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)
}

func TestBookingConfirmExpiredHoldInvalidatesSlots(t *testing.T) {
	pending := &models.Booking{ID: "booking-1", ClientID: "client-1", ConsultantID: "consultant-1", Status: models.BookingPending}
	store := &bookingStoreStub{
		byID:       map[string]*models.Booking{"booking-1": pending},
		confirmErr: appErrors.ErrBookingExpired,
	}
	svc, cache := newBookingFixture(store)

	_, err := svc.Confirm(context.Background(), models.Actor{UserID: "client-1", Role: models.RoleClient}, "booking-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrBookingExpired))
	assert.Equal(t, []string{"consultant-1"}, cache.invalidated)
}

func TestBookingCancelAuthorization(t *testing.T) {
	booking := &models.Booking{ID: "booking-1", ClientID: "client-1", ConsultantID: "consultant-1", Status: models.BookingConfirmed}
	store := &bookingStoreStub{
		byID:         map[string]*models.Booking{"booking-1": booking},
		cancelResult: &models.Booking{ID: "booking-1", Status: models.BookingCancelled},
	}
	svc, _ := newBookingFixture(store)
	req := CancelBookingRequest{Reason: "schedule change"}

	_, err := svc.Cancel(context.Background(), models.Actor{UserID: "stranger", Role: models.RoleClient}, "booking-1", req)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	// The consultant who owns the calendar may cancel.
	_, err = svc.Cancel(context.Background(), models.Actor{UserID: "user-consultant", Role: models.RoleConsultant}, "booking-1", req)
	assert.NoError(t, err)

	// So may an admin.
	_, err = svc.Cancel(context.Background(), models.Actor{UserID: "admin-1", Role: models.RoleAdmin}, "booking-1", req)
	assert.NoError(t, err)
}

func TestExpireOldPendingSweepsInChunks(t *testing.T) {
	store := &bookingStoreStub{
		expiredPending: [][]models.Booking{
			{
				{ID: "b-1", ConsultantID: "consultant-1"},
				{ID: "b-2", ConsultantID: "consultant-1"},
			},
			{
				{ID: "b-3", ConsultantID: "consultant-2"},
			},
		},
		markExpiredErr: map[string]error{"b-2": repository.ErrNoRowsAffected},
	}
	svc, cache := newBookingFixture(store)

	count, err := svc.ExpireOldPending(context.Background())
	require.NoError(t, err)
	// b-2 lost the race to a confirm and is skipped without counting.
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"b-1", "b-3"}, store.expired)
	assert.ElementsMatch(t, []string{"consultant-1", "consultant-2"}, cache.invalidated)
}

func TestExpireOldPendingBoundedOnPersistentFailures(t *testing.T) {
	// Both rows fail with a real error, stay pending, and are re-listed on
	// every iteration; the sweep must still return.
	store := &bookingStoreStub{
		expiredLoop: []models.Booking{
			{ID: "b-1", ConsultantID: "consultant-1"},
			{ID: "b-2", ConsultantID: "consultant-1"},
		},
		markExpiredErr: map[string]error{
			"b-1": assert.AnError,
			"b-2": assert.AnError,
		},
	}
	svc, cache := newBookingFixture(store)

	count, err := svc.ExpireOldPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, store.expired)
	assert.Empty(t, cache.invalidated)
}

func TestCompleteElapsedMarksConfirmed(t *testing.T) {
	store := &bookingStoreStub{
		elapsed: [][]models.Booking{{
			{ID: "b-1", ConsultantID: "consultant-1", Status: models.BookingConfirmed},
		}},
	}
	svc, _ := newBookingFixture(store)

	count, err := svc.CompleteElapsed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"b-1"}, store.completed)
}
