package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/consultly/consultly-api/internal/models"
)

// RatingRepository recomputes and persists aggregate ratings. Aggregates
// are always fully recomputed from the live review set, never adjusted
// incrementally, so concurrent recomputations converge on the same values.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository creates a new rating repository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// RecomputeConsultant recalculates rating_avg/ratings_count for a
// consultant from its non-deleted reviews, inside one transaction.
func (r *RatingRepository) RecomputeConsultant(ctx context.Context, consultantID string) (agg models.RatingAggregate, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return agg, fmt.Errorf("begin consultant rating recompute: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const aggQuery = `SELECT COALESCE(ROUND(AVG(rating)::numeric, 2), 0) AS rating_avg, COUNT(*) AS ratings_count FROM reviews WHERE consultant_id = $1 AND deleted_at IS NULL`
	if err = tx.GetContext(ctx, &agg, aggQuery, consultantID); err != nil {
		err = fmt.Errorf("aggregate consultant ratings: %w", err)
		return agg, err
	}

	const updateQuery = `UPDATE consultants SET rating_avg = $2, ratings_count = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, consultantID, agg.Average, agg.Count, time.Now().UTC()); err != nil {
		err = fmt.Errorf("persist consultant ratings: %w", err)
		return agg, err
	}

	if err = tx.Commit(); err != nil {
		return agg, fmt.Errorf("commit consultant rating recompute: %w", err)
	}
	return agg, nil
}

// RecomputeService recalculates rating_avg/ratings_count for a catalog
// item from reviews referencing it, inside one transaction.
func (r *RatingRepository) RecomputeService(ctx context.Context, serviceID string) (agg models.RatingAggregate, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return agg, fmt.Errorf("begin service rating recompute: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const aggQuery = `SELECT COALESCE(ROUND(AVG(rating)::numeric, 2), 0) AS rating_avg, COUNT(*) AS ratings_count FROM reviews WHERE consultant_service_id = $1 AND deleted_at IS NULL`
	if err = tx.GetContext(ctx, &agg, aggQuery, serviceID); err != nil {
		err = fmt.Errorf("aggregate service ratings: %w", err)
		return agg, err
	}

	const updateQuery = `UPDATE consultant_services SET rating_avg = $2, ratings_count = $3, updated_at = $4 WHERE id = $1`
	if _, err = tx.ExecContext(ctx, updateQuery, serviceID, agg.Average, agg.Count, time.Now().UTC()); err != nil {
		err = fmt.Errorf("persist service ratings: %w", err)
		return agg, err
	}

	if err = tx.Commit(); err != nil {
		return agg, fmt.Errorf("commit service rating recompute: %w", err)
	}
	return agg, nil
}
