package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/consultly/consultly-api/internal/models"
	appErrors "github.com/consultly/consultly-api/pkg/errors"
)

type ratingRepository interface {
	RecomputeConsultant(ctx context.Context, consultantID string) (models.RatingAggregate, error)
	RecomputeService(ctx context.Context, serviceID string) (models.RatingAggregate, error)
}

// RatingService keeps derived rating aggregates consistent with the live
// review set. Every recomputation is a full recalculation, so repeated or
// concurrent calls for the same target converge on identical values.
//
// Failures here are both logged and returned: a silently stale aggregate
// is an invisible data defect, so the caller must see the error too.
type RatingService struct {
	repo   ratingRepository
	logger *zap.Logger
}

// NewRatingService instantiates RatingService.
func NewRatingService(repo ratingRepository, logger *zap.Logger) *RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RatingService{repo: repo, logger: logger}
}

// UpdateConsultantRatings recomputes rating_avg/ratings_count for a consultant.
func (s *RatingService) UpdateConsultantRatings(ctx context.Context, consultantID string) error {
	agg, err := s.repo.RecomputeConsultant(ctx, consultantID)
	if err != nil {
		s.logger.Error("consultant rating recomputation failed",
			zap.String("consultant_id", consultantID),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute consultant ratings")
	}
	s.logger.Debug("consultant ratings recomputed",
		zap.String("consultant_id", consultantID),
		zap.Float64("rating_avg", agg.Average),
		zap.Int("ratings_count", agg.Count))
	return nil
}

// UpdateServiceRatings recomputes rating_avg/ratings_count for a catalog item.
func (s *RatingService) UpdateServiceRatings(ctx context.Context, serviceID string) error {
	agg, err := s.repo.RecomputeService(ctx, serviceID)
	if err != nil {
		s.logger.Error("service rating recomputation failed",
			zap.String("service_id", serviceID),
			zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to recompute service ratings")
	}
	s.logger.Debug("service ratings recomputed",
		zap.String("service_id", serviceID),
		zap.Float64("rating_avg", agg.Average),
		zap.Int("ratings_count", agg.Count))
	return nil
}
