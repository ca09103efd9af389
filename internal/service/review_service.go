package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/consultly/consultly-api/internal/models"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
)

type reviewRepository interface {
	FindByID(ctx context.Context, id string) (*models.Review, error)
	ExistsForBooking(ctx context.Context, bookingID string) (bool, error)
	ListByConsultant(ctx context.Context, consultantID string, page, size int) ([]models.Review, int, error)
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	SoftDelete(ctx context.Context, id string, now time.Time) error
	Restore(ctx context.Context, id string, now time.Time) error
}

type reviewBookingRepo interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

type ratingUpdater interface {
	UpdateConsultantRatings(ctx context.Context, consultantID string) error
	UpdateServiceRatings(ctx context.Context, serviceID string) error
}

// CreateReviewRequest describes payload for reviewing a completed booking.
type CreateReviewRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// UpdateReviewRequest rewrites an existing review.
type UpdateReviewRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// ReviewService owns the review lifecycle. Every write path explicitly
// recomputes the aggregates of the review's consultant and, when set, its
// service, so the derived columns never drift from the review set.
type ReviewService struct {
	reviews   reviewRepository
	bookings  reviewBookingRepo
	ratings   ratingUpdater
	validator *validator.Validate
	logger    *zap.Logger
	clock     func() time.Time
}

// NewReviewService instantiates ReviewService.
func NewReviewService(reviews reviewRepository, bookings reviewBookingRepo, ratings ratingUpdater, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		reviews:   reviews,
		bookings:  bookings,
		ratings:   ratings,
		validator: validate,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source for deterministic tests.
func (s *ReviewService) WithClock(clock func() time.Time) *ReviewService {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Create records a review for a completed booking by its client.
func (s *ReviewService) Create(ctx context.Context, actor models.Actor, bookingID string, req CreateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch booking")
	}
	if booking.ClientID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the booking's client may review it")
	}
	if booking.Status != models.BookingCompleted {
		return nil, appErrors.ErrReviewNotAllowed
	}

	exists, err := s.reviews.ExistsForBooking(ctx, bookingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing review")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "booking already has a review")
	}

	review := &models.Review{
		BookingID:           booking.ID,
		ConsultantID:        booking.ConsultantID,
		ClientID:            booking.ClientID,
		ConsultantServiceID: booking.ConsultantServiceID,
		Rating:              req.Rating,
		Comment:             req.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create review")
	}

	if err := s.recomputeTargets(ctx, review, nil); err != nil {
		return nil, err
	}
	return review, nil
}

// Update rewrites a review's rating and comment.
func (s *ReviewService) Update(ctx context.Context, actor models.Actor, reviewID string, req UpdateReviewRequest) (*models.Review, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	review, err := s.fetchOwned(ctx, actor, reviewID)
	if err != nil {
		return nil, err
	}
	if review.DeletedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
	}

	previous := *review
	review.Rating = req.Rating
	review.Comment = req.Comment
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update review")
	}

	if err := s.recomputeTargets(ctx, review, &previous); err != nil {
		return nil, err
	}
	return review, nil
}

// Delete soft-deletes a review, removing it from aggregates.
func (s *ReviewService) Delete(ctx context.Context, actor models.Actor, reviewID string) error {
	review, err := s.fetchOwned(ctx, actor, reviewID)
	if err != nil {
		return err
	}
	if review.DeletedAt != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "review not found")
	}

	if err := s.reviews.SoftDelete(ctx, reviewID, s.clock()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete review")
	}
	return s.recomputeTargets(ctx, review, nil)
}

// Restore brings a soft-deleted review back into the aggregates.
func (s *ReviewService) Restore(ctx context.Context, actor models.Actor, reviewID string) (*models.Review, error) {
	review, err := s.fetchOwned(ctx, actor, reviewID)
	if err != nil {
		return nil, err
	}
	if review.DeletedAt == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "review is not deleted")
	}

	if err := s.reviews.Restore(ctx, reviewID, s.clock()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore review")
	}
	review.DeletedAt = nil

	if err := s.recomputeTargets(ctx, review, nil); err != nil {
		return nil, err
	}
	return review, nil
}

// ListByConsultant returns a consultant's live reviews.
func (s *ReviewService) ListByConsultant(ctx context.Context, consultantID string, page, size int) ([]models.Review, *models.Pagination, error) {
	reviews, total, err := s.reviews.ListByConsultant(ctx, consultantID, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reviews")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return reviews, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// recomputeTargets refreshes the aggregates referenced by the review's
// current foreign keys and, when previous is given and a key changed, the
// old targets too, so neither side is left stale.
func (s *ReviewService) recomputeTargets(ctx context.Context, review *models.Review, previous *models.Review) error {
	if err := s.ratings.UpdateConsultantRatings(ctx, review.ConsultantID); err != nil {
		return err
	}
	if review.ConsultantServiceID != nil {
		if err := s.ratings.UpdateServiceRatings(ctx, *review.ConsultantServiceID); err != nil {
			return err
		}
	}

	if previous == nil {
		return nil
	}
	if previous.ConsultantID != review.ConsultantID {
		if err := s.ratings.UpdateConsultantRatings(ctx, previous.ConsultantID); err != nil {
			return err
		}
	}
	if previous.ConsultantServiceID != nil && (review.ConsultantServiceID == nil || *previous.ConsultantServiceID != *review.ConsultantServiceID) {
		if err := s.ratings.UpdateServiceRatings(ctx, *previous.ConsultantServiceID); err != nil {
			return err
		}
	}
	return nil
}

func (s *ReviewService) fetchOwned(ctx context.Context, actor models.Actor, reviewID string) (*models.Review, error) {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch review")
	}
	if review.ClientID != actor.UserID && !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no standing on this review")
	}
	return review, nil
}
