package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/consultly/consultly-api/internal/models"
	"github.com/consultly/consultly-api/internal/repository"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
	"github.com/consultly/consultly-api/pkg/timewindow"
)

type bookingRepository interface {
	Reserve(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	Confirm(ctx context.Context, id string, now time.Time) (*models.Booking, error)
	Cancel(ctx context.Context, id string, canceller models.Canceller, reason string, now time.Time) (*models.Booking, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error)
	MarkExpired(ctx context.Context, id string, now time.Time) error
	ListElapsedConfirmed(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error)
	MarkCompleted(ctx context.Context, id string, now time.Time) error
}

type bookingConsultantRepo interface {
	FindByID(ctx context.Context, id string) (*models.Consultant, error)
	FindByUserID(ctx context.Context, userID string) (*models.Consultant, error)
}

type bookingCatalogRepo interface {
	FindByID(ctx context.Context, id string) (*models.ConsultantService, error)
}

type availabilityChecker interface {
	CheckWindow(ctx context.Context, consultantID string, startAt time.Time, durationMinutes, bufferMinutes int) (timewindow.Window, error)
}

type slotInvalidator interface {
	InvalidateConsultant(ctx context.Context, consultantID string) error
}

// BookingConfig tunes hold expiry and sweep batching.
type BookingConfig struct {
	HoldDuration   time.Duration
	SweepChunkSize int
}

// CreateBookingRequest describes payload for creating a booking.
type CreateBookingRequest struct {
	ConsultantID    string                `json:"consultant_id" validate:"required"`
	Bookable        models.BookableTarget `json:"bookable" validate:"required"`
	StartAt         time.Time             `json:"start_at" validate:"required"`
	DurationMinutes *int                  `json:"duration_minutes,omitempty"`
}

// CancelBookingRequest carries the cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// BookingService orchestrates the booking lifecycle: availability-checked
// creation, confirmation inside the hold window, cancellation, and the
// periodic expiry/completion sweeps.
type BookingService struct {
	bookings     bookingRepository
	consultants  bookingConsultantRepo
	catalog      bookingCatalogRepo
	availability availabilityChecker
	cache        slotInvalidator
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	config       BookingConfig
	clock        func() time.Time
}

// NewBookingService instantiates BookingService.
func NewBookingService(bookings bookingRepository, consultants bookingConsultantRepo, catalog bookingCatalogRepo, availability availabilityChecker, cache slotInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config BookingConfig) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.HoldDuration <= 0 {
		config.HoldDuration = 15 * time.Minute
	}
	if config.SweepChunkSize <= 0 {
		config.SweepChunkSize = 100
	}
	return &BookingService{
		bookings:     bookings,
		consultants:  consultants,
		catalog:      catalog,
		availability: availability,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		config:       config,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source for deterministic tests.
func (s *BookingService) WithClock(clock func() time.Time) *BookingService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Create places a pending hold on the requested window. The availability
// check runs twice: here as a fast pre-check, and again inside the reserve
// transaction where it is authoritative.
func (s *BookingService) Create(ctx context.Context, actor models.Actor, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	consultant, err := s.consultants.FindByID(ctx, req.ConsultantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "consultant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch consultant")
	}
	if !consultant.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "consultant is not accepting bookings")
	}

	booking := &models.Booking{
		ClientID:     actor.UserID,
		ConsultantID: consultant.ID,
		StartAt:      req.StartAt,
		Status:       models.BookingPending,
	}

	switch req.Bookable.Kind {
	case models.BookableService:
		svc, err := s.catalog.FindByID(ctx, req.Bookable.ServiceID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "service not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch service")
		}
		if svc.ConsultantID != consultant.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "service does not belong to the consultant")
		}
		if !svc.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "service is not bookable")
		}
		booking.BookableType = models.BookableService
		booking.ConsultantServiceID = &svc.ID
		booking.DurationMinutes = svc.DurationMinutes
		booking.BufferAfterMinutes = svc.BufferMinutes
		booking.Price = svc.Price
	case models.BookableConsultant:
		duration := consultant.DefaultDurationMinutes
		if req.DurationMinutes != nil {
			if *req.DurationMinutes > consultant.DefaultDurationMinutes {
				return nil, appErrors.Clone(appErrors.ErrValidation, "duration exceeds the consultant's maximum session length")
			}
			duration = *req.DurationMinutes
		}
		booking.BookableType = models.BookableConsultant
		booking.DurationMinutes = duration
		booking.BufferAfterMinutes = consultant.DefaultBufferMinutes
		booking.Price = math.Round(consultant.HourlyPrice*float64(duration)/60*100) / 100
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown bookable kind")
	}

	window, err := s.availability.CheckWindow(ctx, consultant.ID, booking.StartAt, booking.DurationMinutes, booking.BufferAfterMinutes)
	if err != nil {
		return nil, err
	}
	booking.EndAt = window.End

	expiresAt := s.clock().Add(s.config.HoldDuration)
	booking.ExpiresAt = &expiresAt

	if err := s.bookings.Reserve(ctx, booking); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve booking")
	}

	s.invalidateSlots(ctx, consultant.ID)
	s.metrics.RecordBookingEvent("created")
	return booking, nil
}

// Confirm settles a pending hold. Only the booking's client may confirm,
// and only before the hold expires.
func (s *BookingService) Confirm(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	booking, err := s.fetch(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ClientID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the booking's client may confirm it")
	}

	confirmed, err := s.bookings.Confirm(ctx, bookingID, s.clock())
	if err != nil {
		if appErrors.Is(err, appErrors.ErrBookingExpired) {
			// The confirm lost the race against the hold TTL; the row was
			// flipped to expired on the way out.
			s.invalidateSlots(ctx, booking.ConsultantID)
			s.metrics.RecordBookingEvent("expired")
			return nil, err
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm booking")
	}

	s.metrics.RecordBookingEvent("confirmed")
	return confirmed, nil
}

// Cancel moves a pending or confirmed booking to cancelled. Allowed for
// the booking's client, its consultant, or an admin.
func (s *BookingService) Cancel(ctx context.Context, actor models.Actor, bookingID string, req CancelBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}

	booking, err := s.fetch(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, booking); err != nil {
		return nil, err
	}

	canceller := models.Canceller{Kind: models.CancellerUser, ID: actor.UserID}
	if actor.IsAdmin() {
		canceller.Kind = models.CancellerAdmin
	}

	cancelled, err := s.bookings.Cancel(ctx, bookingID, canceller, req.Reason, s.clock())
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}

	s.invalidateSlots(ctx, booking.ConsultantID)
	s.metrics.RecordBookingEvent("cancelled")
	return cancelled, nil
}

// Get returns one booking, visible to its client, its consultant, or an admin.
func (s *BookingService) Get(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	booking, err := s.fetch(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// List returns bookings scoped to what the actor may see.
func (s *BookingService) List(ctx context.Context, actor models.Actor, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	switch actor.Role {
	case models.RoleClient:
		filter.ClientID = actor.UserID
	case models.RoleConsultant:
		consultant, err := s.consultants.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "consultant profile not found")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch consultant")
		}
		filter.ConsultantID = consultant.ID
	case models.RoleAdmin:
		// admins see everything
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return bookings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ExpireOldPending sweeps pending bookings whose hold lapsed, in bounded
// chunks. Per-row failures are logged and skipped so one bad row cannot
// stall the rest. Returns the number of bookings expired.
func (s *BookingService) ExpireOldPending(ctx context.Context) (int, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveSweep("expire_pending", time.Since(started)) }()

	count := 0
	touched := map[string]struct{}{}
	attempted := map[string]struct{}{}

	for {
		now := s.clock()
		chunk, err := s.bookings.ListExpiredPending(ctx, now, s.config.SweepChunkSize)
		if err != nil {
			return count, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired holds")
		}
		if len(chunk) == 0 {
			break
		}

		// Rows whose update fails stay pending and get re-listed; tracking
		// attempted ids keeps one sweep run bounded.
		progressed := false
		for _, booking := range chunk {
			if _, seen := attempted[booking.ID]; seen {
				continue
			}
			attempted[booking.ID] = struct{}{}
			progressed = true
			if err := s.bookings.MarkExpired(ctx, booking.ID, now); err != nil {
				if errors.Is(err, repository.ErrNoRowsAffected) {
					// A racing confirm or cancel moved the row on already.
					continue
				}
				s.logger.Error("failed to expire booking",
					zap.String("booking_id", booking.ID),
					zap.String("consultant_id", booking.ConsultantID),
					zap.Error(err))
				continue
			}
			count++
			touched[booking.ConsultantID] = struct{}{}
			s.metrics.RecordBookingEvent("expired")
		}

		if !progressed || len(chunk) < s.config.SweepChunkSize {
			break
		}
	}

	for consultantID := range touched {
		s.invalidateSlots(ctx, consultantID)
	}
	return count, nil
}

// CompleteElapsed sweeps confirmed bookings whose session end has passed
// and marks them completed, enabling reviews.
func (s *BookingService) CompleteElapsed(ctx context.Context) (int, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveSweep("complete_elapsed", time.Since(started)) }()

	count := 0
	attempted := map[string]struct{}{}
	for {
		now := s.clock()
		chunk, err := s.bookings.ListElapsedConfirmed(ctx, now, s.config.SweepChunkSize)
		if err != nil {
			return count, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list elapsed bookings")
		}
		if len(chunk) == 0 {
			break
		}

		progressed := false
		for _, booking := range chunk {
			if _, seen := attempted[booking.ID]; seen {
				continue
			}
			attempted[booking.ID] = struct{}{}
			progressed = true
			if err := s.bookings.MarkCompleted(ctx, booking.ID, now); err != nil {
				if errors.Is(err, repository.ErrNoRowsAffected) {
					continue
				}
				s.logger.Error("failed to complete booking",
					zap.String("booking_id", booking.ID),
					zap.Error(err))
				continue
			}
			count++
			s.metrics.RecordBookingEvent("completed")
		}

		if !progressed || len(chunk) < s.config.SweepChunkSize {
			break
		}
	}
	return count, nil
}

func (s *BookingService) fetch(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch booking")
	}
	return booking, nil
}

// authorize admits the booking's client, its consultant, or an admin.
func (s *BookingService) authorize(ctx context.Context, actor models.Actor, booking *models.Booking) error {
	if actor.IsAdmin() || booking.ClientID == actor.UserID {
		return nil
	}
	if actor.Role == models.RoleConsultant {
		consultant, err := s.consultants.FindByID(ctx, booking.ConsultantID)
		if err == nil && consultant.UserID == actor.UserID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "no standing on this booking")
}

func (s *BookingService) invalidateSlots(ctx context.Context, consultantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateConsultant(ctx, consultantID); err != nil {
		s.logger.Warn("slot cache invalidation failed", zap.String("consultant_id", consultantID), zap.Error(err))
	}
}
